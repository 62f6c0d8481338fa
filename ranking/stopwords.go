package ranking

import "strings"

// stopwords are query tokens that carry no retrieval signal. Tokens in this
// set are excluded from coverage scoring.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "any": true, "are": true,
	"can": true, "for": true, "from": true, "give": true, "have": true,
	"i": true, "in": true, "is": true, "it": true, "like": true,
	"me": true, "my": true, "of": true, "on": true, "or": true,
	"please": true, "show": true, "some": true, "something": true,
	"that": true, "the": true, "to": true, "want": true, "what": true,
	"with": true, "would": true, "you": true,
}

// Tokenize lowercases the text and splits it on any non-alphanumeric rune,
// dropping stopwords and empty tokens.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !stopwords[f] {
			out = append(out, f)
		}
	}
	return out
}

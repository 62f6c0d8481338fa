package agent

import (
	"strconv"
	"strings"

	"recipeagent/ranking"
)

// inventoryResetPhrases trigger the inventory-reset branch. Matching is a
// plain case-insensitive substring check on the raw message.
var inventoryResetPhrases = []string{
	"clear my inventory",
	"reset my inventory",
	"empty my inventory",
	"clear my pantry",
	"reset my pantry",
	"empty my pantry",
	"clear my fridge",
	"reset my fridge",
	"empty my fridge",
}

// IsInventoryReset reports whether the message is an inventory-clear command.
func IsInventoryReset(message string) bool {
	m := strings.ToLower(message)
	for _, phrase := range inventoryResetPhrases {
		if strings.Contains(m, phrase) {
			return true
		}
	}
	return false
}

var ordinalWords = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"fifth":  5,
}

// ResolveIndex extracts a 1-based list index from the message. Patterns are
// tried in a fixed precedence: "number N", an ordinal suffix ("2nd", "10th"),
// spelled ordinals ("first".."fifth"), and finally a bare number as last
// resort. The full digit run is parsed, so "number 10" is 10, not 1; range
// checking against the cached list is the caller's job. Returns 0 when
// nothing matches.
func ResolveIndex(message string) int {
	m := strings.ToLower(message)
	words := strings.Fields(m)

	for i, w := range words {
		if w == "number" && i+1 < len(words) {
			if n := parseIndex(words[i+1]); n > 0 {
				return n
			}
		}
	}

	for _, w := range words {
		w = strings.Trim(w, ".,!?")
		for _, suffix := range []string{"st", "nd", "rd", "th"} {
			if digits, ok := strings.CutSuffix(w, suffix); ok {
				if n := parseIndex(digits); n > 0 {
					return n
				}
			}
		}
	}

	for _, w := range words {
		if n, ok := ordinalWords[strings.Trim(w, ".,!?")]; ok {
			return n
		}
	}

	for _, w := range words {
		if n := parseIndex(w); n > 0 {
			return n
		}
	}

	return 0
}

// parseIndex parses a word made entirely of digits, trimming trailing
// punctuation. Returns 0 for anything else, including zero itself.
func parseIndex(s string) int {
	s = strings.Trim(s, ".,!?")
	if s == "" {
		return 0
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

var detailVocabulary = []string{
	"recipe",
	"ingredient",
	"instruction",
	"how to make",
	"how do i make",
	"details",
	"show me",
	"tell me more",
	"more about",
}

// WantsDetail reports whether the message asks about a previously shown
// recipe rather than issuing a new search.
func WantsDetail(message string) bool {
	m := strings.ToLower(message)
	for _, term := range detailVocabulary {
		if strings.Contains(m, term) {
			return true
		}
	}
	return false
}

// lowInfoPhrases contribute nothing to a search query and are stripped from
// the message before tokenization.
var lowInfoPhrases = []string{
	"can you",
	"could you",
	"would you",
	"i want",
	"i would like",
	"i'd like",
	"give me",
	"show me",
	"find me",
	"looking for",
	"what can i make",
	"what should i eat",
	"recommendations",
	"recommendation",
	"recommend",
	"suggestions",
	"suggestion",
	"suggest",
	"please",
	"something",
	"anything",
	"recipe for",
	"recipes for",
	"some recipes",
	"a recipe",
}

const (
	maxQueryTokens = 6
	minQueryTokens = 2
)

// DeriveQuery builds the retrieval query for a turn. A non-empty inventory is
// joined verbatim and used as-is. Otherwise the message is stripped of
// low-information phrases and tokenized; the first six content tokens form
// the query. Fewer than two content tokens means no query can be formed and
// the empty string is returned.
func DeriveQuery(message string, inventory []string) string {
	if len(inventory) > 0 {
		return strings.Join(inventory, " ")
	}

	m := strings.ToLower(message)
	for _, phrase := range lowInfoPhrases {
		m = strings.ReplaceAll(m, phrase, " ")
	}

	tokens := ranking.Tokenize(m)
	if len(tokens) < minQueryTokens {
		return ""
	}
	if len(tokens) > maxQueryTokens {
		tokens = tokens[:maxQueryTokens]
	}
	return strings.Join(tokens, " ")
}

var deficitVocabulary = []string{
	"deficit",
	"lose weight",
	"weight loss",
	"low calorie",
	"low-calorie",
	"fewer calories",
	"cut calories",
	"lean",
}

// InferFocusNutrient picks the macro a turn should emphasize. Message
// keywords take precedence over the stated objective.
func InferFocusNutrient(message, objective string) string {
	m := strings.ToLower(message)

	if strings.Contains(m, "fiber") || strings.Contains(m, "fibre") {
		return "fiber"
	}
	if strings.Contains(m, "protein") {
		return "protein"
	}
	for _, term := range deficitVocabulary {
		if strings.Contains(m, term) {
			return "calories"
		}
	}

	o := strings.ToLower(objective)
	switch {
	case strings.Contains(o, "bulk"), strings.Contains(o, "muscle"), strings.Contains(o, "gain"):
		return "protein"
	case strings.Contains(o, "cut"), strings.Contains(o, "loss"), strings.Contains(o, "lose"), strings.Contains(o, "deficit"):
		return "calories"
	}
	return ""
}

// Package dietary is the deterministic compliance gate: no LLM, no network.
// A candidate survives only if it carries every enforceable diet tag the user
// requires and none of the user's allergy terms.
package dietary

import (
	"log/slog"
	"strings"

	"recipeagent"
)

// restrictionSynonyms maps user-supplied restriction labels to canonical diet
// tags. Matching is on the lowercased, trimmed label.
var restrictionSynonyms = map[string]string{
	"vegan":        "vegan",
	"plant-based":  "vegan",
	"plant based":  "vegan",
	"vegetarian":   "vegetarian",
	"veggie":       "vegetarian",
	"pescatarian":  "pescatarian",
	"pescetarian":  "pescatarian",
	"gluten free":  "gluten free",
	"gluten-free":  "gluten free",
	"glutenfree":   "gluten free",
	"celiac":       "gluten free",
	"coeliac":      "gluten free",
	"no gluten":    "gluten free",
	"dairy free":   "dairy free",
	"dairy-free":   "dairy free",
	"lactose free": "dairy free",
}

// enforceable is the closed set of diet tags the lifestyle gate checks. A
// restriction outside this set is kept as profile metadata but filters
// nothing, so an unrecognized label never silently empties the result pool.
var enforceable = map[string]bool{
	"vegan":       true,
	"vegetarian":  true,
	"pescatarian": true,
	"gluten free": true,
	"dairy free":  true,
}

// CanonicalTag normalizes a diet or restriction label to its canonical
// spelling. Unknown labels are returned lowercased and trimmed.
func CanonicalTag(label string) string {
	norm := strings.ToLower(strings.TrimSpace(label))
	if canonical, ok := restrictionSynonyms[norm]; ok {
		return canonical
	}
	return norm
}

// Enforceable reports whether a canonical tag participates in the lifestyle gate.
func Enforceable(tag string) bool {
	return enforceable[CanonicalTag(tag)]
}

// RequiredTags maps the profile's restrictions to the canonical enforceable
// tags the lifestyle gate will check.
func RequiredTags(restrictions []string) []string {
	var required []string
	seen := map[string]bool{}
	for _, r := range restrictions {
		tag := CanonicalTag(r)
		if !enforceable[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		required = append(required, tag)
	}
	return required
}

// Filter returns the order-preserving subset of candidates compliant with the
// profile's restrictions and allergies.
func Filter(candidates []recipeagent.Recipe, profile *recipeagent.UserProfile) []recipeagent.Recipe {
	required := RequiredTags(profile.Restrictions)

	allergies := make(map[string]bool, len(profile.Allergies))
	for _, a := range profile.Allergies {
		allergies[strings.ToLower(strings.TrimSpace(a))] = true
	}

	out := make([]recipeagent.Recipe, 0, len(candidates))
	for _, candidate := range candidates {
		if !matchesLifestyle(candidate, required) {
			continue
		}
		if violatesAllergies(candidate, allergies) {
			continue
		}
		out = append(out, candidate)
	}

	if len(out) < len(candidates) {
		slog.Info("DIETARY: Filtered candidates",
			"in", len(candidates),
			"out", len(out),
			"required_tags", required,
		)
	}
	return out
}

// matchesLifestyle requires every enforceable tag to be present in the
// candidate's own diet-tag set, case-insensitively.
func matchesLifestyle(candidate recipeagent.Recipe, required []string) bool {
	if len(required) == 0 {
		return true
	}
	tags := make(map[string]bool, len(candidate.Diets))
	for _, d := range candidate.Diets {
		tags[CanonicalTag(d)] = true
	}
	for _, tag := range required {
		if !tags[tag] {
			return false
		}
	}
	return true
}

// violatesAllergies checks exact tag equality only. Substring matching is
// deliberately avoided here: "nut" must not knock out "nutmeg"-free recipes
// tagged with unrelated allergens.
func violatesAllergies(candidate recipeagent.Recipe, allergies map[string]bool) bool {
	if len(allergies) == 0 {
		return false
	}
	for _, allergen := range candidate.Allergens {
		if allergies[strings.ToLower(strings.TrimSpace(allergen))] {
			return true
		}
	}
	return false
}

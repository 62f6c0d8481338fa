package sources

import (
	"fmt"
	"strings"

	"recipeagent"
	"recipeagent/dietary"
)

// macroSynonyms maps each canonical macro to the substrings recognized in
// provider nutrient field names, checked case-insensitively. USDA reports
// "Energy" and "Total lipid (fat)"; Spoonacular reports "Calories" and "Fat".
// The first field matching a macro wins; later duplicates (a provider emitting
// both "Energy" and "kcal") are ignored, in the provider's own field order.
var macroSynonyms = []struct {
	macro    string
	synonyms []string
}{
	{recipeagent.MacroCalories, []string{"energy", "kcal", "calorie"}},
	{recipeagent.MacroProtein, []string{"protein"}},
	{recipeagent.MacroCarbs, []string{"carbohydrate", "carb"}},
	{recipeagent.MacroFiber, []string{"fiber", "fibre"}},
	{recipeagent.MacroFat, []string{"total lipid", "fat"}},
}

// Normalize converts a provider-shaped record into the shared candidate shape.
// The candidate ID is source-qualified so ids never collide across providers.
func Normalize(source string, raw RawRecipe) recipeagent.Recipe {
	recipe := recipeagent.Recipe{
		ID:           fmt.Sprintf("%s:%s", source, raw.SourceID),
		Name:         raw.Name,
		Ingredients:  cleanList(raw.Ingredients),
		Diets:        canonicalTags(raw.Diets),
		Allergens:    cleanList(raw.Allergens),
		Instructions: raw.Instructions,
		SourceURL:    raw.SourceURL,
	}

	assigned := map[string]bool{}
	for _, field := range raw.Nutrients {
		name := strings.ToLower(strings.TrimSpace(field.Name))
		if name == "" {
			continue
		}
		for _, entry := range macroSynonyms {
			if assigned[entry.macro] {
				continue
			}
			if !containsAny(name, entry.synonyms) {
				continue
			}
			value := field.Value
			switch entry.macro {
			case recipeagent.MacroCalories:
				recipe.Calories = &value
			case recipeagent.MacroProtein:
				recipe.Protein = &value
			case recipeagent.MacroCarbs:
				recipe.Carbs = &value
			case recipeagent.MacroFat:
				recipe.Fat = &value
			case recipeagent.MacroFiber:
				recipe.Fiber = &value
			}
			assigned[entry.macro] = true
			break
		}
	}

	return recipe
}

func containsAny(name string, synonyms []string) bool {
	for _, syn := range synonyms {
		if strings.Contains(name, syn) {
			return true
		}
	}
	return false
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func canonicalTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = dietary.CanonicalTag(tag)
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

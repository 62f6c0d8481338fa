// Package sources fetches recipe and nutrition candidates from external
// providers (TheMealDB, Spoonacular, USDA FoodData Central) and normalizes
// their heterogeneous payloads into the shared candidate shape.
package sources

import "context"

// RawNutrient is one nutrient field as the provider emitted it. Order matters:
// normalization takes the first field matching a macro synonym and ignores
// later duplicates.
type RawNutrient struct {
	Name  string
	Value float64
}

// RawRecipe is a provider-shaped record before normalization.
type RawRecipe struct {
	SourceID     string
	Name         string
	Ingredients  []string
	Diets        []string
	Allergens    []string
	Nutrients    []RawNutrient
	Instructions string
	SourceURL    string
}

// Provider is one external recipe/food source. Search must not panic or leak
// transport errors past the Aggregator boundary; it returns an error and the
// Aggregator degrades that source to zero candidates.
type Provider interface {
	Name() string

	// Enabled reports whether the provider's access credential is present.
	// Disabled providers are never queried.
	Enabled() bool

	Search(ctx context.Context, query string, pageSize int) ([]RawRecipe, error)
}

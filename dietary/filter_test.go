package dietary

import (
	"testing"

	"recipeagent"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"vegan", "vegan"},
		{"Celiac", "gluten free"},
		{"gluten-free", "gluten free"},
		{"Pescetarian", "pescatarian"},
		{"pescatarian", "pescatarian"},
		{"  Plant-Based ", "vegan"},
		{"keto", "keto"}, // unknown labels pass through lowercased
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalTag(tt.in), "CanonicalTag(%q)", tt.in)
	}
}

func TestRequiredTags(t *testing.T) {
	// Unenforceable restrictions are metadata only and impose no filtering.
	got := RequiredTags([]string{"vegan", "keto", "celiac", "VEGAN"})
	assert.Equal(t, []string{"vegan", "gluten free"}, got)
}

func TestFilter(t *testing.T) {
	candidates := []recipeagent.Recipe{
		{ID: "a", Name: "Chickpea Curry", Diets: []string{"vegan", "gluten-free"}},
		{ID: "b", Name: "Chicken Rice", Diets: []string{"gluten free"}},
		{ID: "c", Name: "Peanut Stir Fry", Diets: []string{"Vegan"}, Allergens: []string{"peanut"}},
		{ID: "d", Name: "Tofu Bowl", Diets: []string{"vegan"}},
	}

	tests := []struct {
		name    string
		profile *recipeagent.UserProfile
		wantIDs []string
	}{
		{
			name:    "no restrictions passes everything",
			profile: recipeagent.NewUserProfile("u"),
			wantIDs: []string{"a", "b", "c", "d"},
		},
		{
			name: "lifestyle gate requires every enforceable tag",
			profile: &recipeagent.UserProfile{
				Restrictions: []string{"vegan"},
			},
			wantIDs: []string{"a", "c", "d"},
		},
		{
			name: "allergy gate uses exact tag equality",
			profile: &recipeagent.UserProfile{
				Restrictions: []string{"vegan"},
				Allergies:    []string{"Peanut"},
			},
			wantIDs: []string{"a", "d"},
		},
		{
			name: "allergy substring does not collide",
			profile: &recipeagent.UserProfile{
				Allergies: []string{"pea"},
			},
			wantIDs: []string{"a", "b", "c", "d"},
		},
		{
			name: "unrecognized restriction filters nothing",
			profile: &recipeagent.UserProfile{
				Restrictions: []string{"paleo"},
			},
			wantIDs: []string{"a", "b", "c", "d"},
		},
		{
			name: "synonym restriction maps before gating",
			profile: &recipeagent.UserProfile{
				Restrictions: []string{"celiac"},
			},
			wantIDs: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(candidates, tt.profile)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			// Output must be an order-preserving subset of the input.
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterPreservesOrderAndInput(t *testing.T) {
	candidates := []recipeagent.Recipe{
		{ID: "x", Diets: []string{"vegan"}},
		{ID: "y"},
		{ID: "z", Diets: []string{"vegan"}},
	}
	profile := &recipeagent.UserProfile{Restrictions: []string{"vegan"}}

	got := Filter(candidates, profile)
	assert.Equal(t, "x", got[0].ID)
	assert.Equal(t, "z", got[1].ID)
	// Input slice is untouched.
	assert.Len(t, candidates, 3)
}

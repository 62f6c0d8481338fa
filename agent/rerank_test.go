package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/llm/mock"
)

func rerankInput() []recipeagent.Recipe {
	return []recipeagent.Recipe{
		{ID: "mealdb:1", Name: "Chickpea Curry"},
		{ID: "mealdb:2", Name: "Tofu Stir Fry"},
		{ID: "usda:3", Name: "Lentil Soup"},
	}
}

func ids(recipes []recipeagent.Recipe) []string {
	out := make([]string, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, r.ID)
	}
	return out
}

func TestByPreferenceAppliesRanking(t *testing.T) {
	chat := mock.NewClient(`{"ranked_ids": ["usda:3", "mealdb:1", "mealdb:2"], "notes": "likes lentils"}`)
	r := NewReranker(chat, time.Second)

	profile := recipeagent.NewUserProfile("alice")
	got := r.ByPreference(context.Background(), rerankInput(), profile)

	assert.Equal(t, []string{"usda:3", "mealdb:1", "mealdb:2"}, ids(got))
	assert.Equal(t, 1, chat.Calls())
}

func TestByPreferenceAppendsMissingIDs(t *testing.T) {
	// Partial response: mealdb:1 and usda:3 are not ranked and must follow in
	// their original order.
	chat := mock.NewClient(`{"ranked_ids": ["mealdb:2"]}`)
	r := NewReranker(chat, time.Second)

	got := r.ByPreference(context.Background(), rerankInput(), recipeagent.NewUserProfile("alice"))
	assert.Equal(t, []string{"mealdb:2", "mealdb:1", "usda:3"}, ids(got))
}

func TestByPreferenceIgnoresUnknownAndDuplicateIDs(t *testing.T) {
	chat := mock.NewClient(`{"ranked_ids": ["bogus:9", "mealdb:2", "mealdb:2", "mealdb:1", "usda:3"]}`)
	r := NewReranker(chat, time.Second)

	got := r.ByPreference(context.Background(), rerankInput(), recipeagent.NewUserProfile("alice"))
	assert.Equal(t, []string{"mealdb:2", "mealdb:1", "usda:3"}, ids(got))
}

func TestByPreferenceKeepsOrderOnFailure(t *testing.T) {
	chat := mock.NewFailingClient(errors.New("model offline"))
	r := NewReranker(chat, time.Second)

	got := r.ByPreference(context.Background(), rerankInput(), recipeagent.NewUserProfile("alice"))
	assert.Equal(t, []string{"mealdb:1", "mealdb:2", "usda:3"}, ids(got))
}

func TestByPreferenceKeepsOrderOnUnparsableResponse(t *testing.T) {
	chat := mock.NewClient("sure, here is my ranking in plain prose")
	r := NewReranker(chat, time.Second)

	got := r.ByPreference(context.Background(), rerankInput(), recipeagent.NewUserProfile("alice"))
	assert.Equal(t, []string{"mealdb:1", "mealdb:2", "usda:3"}, ids(got))
}

func TestByObjectiveTruncates(t *testing.T) {
	chat := mock.NewClient(`{"ranked_ids": ["usda:3", "mealdb:2", "mealdb:1"]}`)
	r := NewReranker(chat, time.Second)

	got := r.ByObjective(context.Background(), rerankInput(), recipeagent.NewUserProfile("alice"), 2)
	assert.Equal(t, []string{"usda:3", "mealdb:2"}, ids(got))
}

func TestRerankEmptyInputSkipsLLM(t *testing.T) {
	chat := mock.NewClient(`{"ranked_ids": []}`)
	r := NewReranker(chat, time.Second)

	got := r.ByPreference(context.Background(), nil, recipeagent.NewUserProfile("alice"))
	require.Empty(t, got)
	got = r.ByObjective(context.Background(), nil, recipeagent.NewUserProfile("alice"), 5)
	require.Empty(t, got)
	assert.Zero(t, chat.Calls())
}

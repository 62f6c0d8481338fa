package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipeagent"
	"recipeagent/agent/storage"
)

type stubFetcher struct {
	recipes   []recipeagent.Recipe
	calls     int
	lastQuery string
}

func (f *stubFetcher) Fetch(_ context.Context, query string, _ int) []recipeagent.Recipe {
	f.calls++
	f.lastQuery = query
	return f.recipes
}

type stubScorer struct{}

func (s *stubScorer) Rerank(_ context.Context, _ string, candidates []recipeagent.Recipe, _ string, topK int) []recipeagent.Recipe {
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}

// stubAnalyzer returns a scripted analysis, or the deterministic default when
// none is scripted.
type stubAnalyzer struct {
	analysis *recipeagent.TurnAnalysis
	calls    int
}

func (a *stubAnalyzer) Analyse(_ context.Context, message string, profile *recipeagent.UserProfile) recipeagent.TurnAnalysis {
	a.calls++
	if a.analysis == nil {
		return defaultAnalysis(message, profile)
	}
	return *a.analysis
}

type passRanker struct{}

func (r *passRanker) ByPreference(_ context.Context, recipes []recipeagent.Recipe, _ *recipeagent.UserProfile) []recipeagent.Recipe {
	return recipes
}

func (r *passRanker) ByObjective(_ context.Context, recipes []recipeagent.Recipe, _ *recipeagent.UserProfile, maxResults int) []recipeagent.Recipe {
	if maxResults > 0 && len(recipes) > maxResults {
		recipes = recipes[:maxResults]
	}
	return recipes
}

func f64(v float64) *float64 { return &v }

func testConfig() (recipeagent.ProviderConfig, recipeagent.AgentConfig) {
	return recipeagent.ProviderConfig{PageSize: 10},
		recipeagent.AgentConfig{RelevanceTopK: 20, MaxResults: 10}
}

func newTestOrchestrator(fetcher *stubFetcher, analyzer *stubAnalyzer, store profileStore) *Orchestrator {
	providerCfg, agentCfg := testConfig()
	return NewOrchestrator(
		fetcher,
		&stubScorer{},
		analyzer,
		&passRanker{},
		store,
		recipeagent.NewNoOpTurnLogger(),
		providerCfg,
		agentCfg,
	)
}

func veganRecipes() []recipeagent.Recipe {
	return []recipeagent.Recipe{
		{ID: "mealdb:1", Name: "Chickpea Curry", Diets: []string{"vegan"}, Protein: f64(18)},
		{ID: "mealdb:2", Name: "Tofu Stir Fry", Diets: []string{"vegan"}, Protein: f64(22)},
		{ID: "mealdb:3", Name: "Lentil Soup", Diets: []string{"vegan"}, Protein: f64(12)},
	}
}

func TestNormalTurnUpdatesProfileAdditively(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{
		Restrictions: []string{"vegan"},
		Likes:        []string{"chickpeas"},
		Dislikes:     []string{"broccoli"},
		Query:        "vegan dinner",
	}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "alice", "I'm vegan, I love chickpeas, hate broccoli, vegan dinner ideas", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.ModeNormal, result.Mode)
	assert.Equal(t, recipeagent.OutcomeOK, result.Outcome)
	assert.Equal(t, []string{"vegan"}, result.Profile.Restrictions)
	assert.Equal(t, []string{"chickpeas"}, result.Profile.Likes)
	assert.Equal(t, []string{"broccoli"}, result.Profile.Dislikes)
	assert.True(t, result.SaveStatus.OK)

	// A later turn only ever grows the sets.
	analyzer.analysis = &recipeagent.TurnAnalysis{
		Likes: []string{"tofu"},
		Query: "vegan dinner",
	}
	result, err = o.HandleMessage(context.Background(), "alice", "I also love tofu, more vegan dinner ideas", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"vegan"}, result.Profile.Restrictions)
	assert.Equal(t, []string{"chickpeas", "tofu"}, result.Profile.Likes)
	assert.Equal(t, []string{"broccoli"}, result.Profile.Dislikes)
}

func TestInventoryResetClearsOnlyInventory(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{
		Restrictions: []string{"vegan"},
		Likes:        []string{"chickpeas"},
		Dislikes:     []string{"broccoli"},
		Inventory:    []string{"rice", "beans"},
		Query:        "vegan dinner",
	}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	_, err := o.HandleMessage(context.Background(), "alice", "I'm vegan with rice and beans at home", nil)
	require.NoError(t, err)
	analyzerCallsBefore := analyzer.calls
	fetchCallsBefore := fetcher.calls

	result, err := o.HandleMessage(context.Background(), "alice", "clear my inventory", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.ModeInventoryReset, result.Mode)
	assert.Equal(t, recipeagent.OutcomeOK, result.Outcome)
	assert.Empty(t, result.Recipes)
	assert.Empty(t, result.Profile.Inventory)
	assert.Equal(t, []string{"vegan"}, result.Profile.Restrictions)
	assert.Equal(t, []string{"chickpeas"}, result.Profile.Likes)
	assert.Equal(t, []string{"broccoli"}, result.Profile.Dislikes)

	// No retrieval and no LLM call on the reset branch.
	assert.Equal(t, analyzerCallsBefore, analyzer.calls)
	assert.Equal(t, fetchCallsBefore, fetcher.calls)
	assert.True(t, result.SaveStatus.OK)
}

func TestInventoryReplaceUnionsHints(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{
		Inventory: []string{"rice", "beans"},
		Query:     "rice beans",
	}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "bob", "I have rice and beans", []string{"spinach", "rice"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"rice", "beans", "spinach"}, result.Profile.Inventory)

	// New inventory replaces the old snapshot, no union with the past.
	analyzer.analysis = &recipeagent.TurnAnalysis{
		Inventory: []string{"pasta"},
		Query:     "pasta",
	}
	result, err = o.HandleMessage(context.Background(), "bob", "now I only have pasta and sauce", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pasta"}, result.Profile.Inventory)
}

func TestNoQueryOutcome(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	o := newTestOrchestrator(fetcher, &stubAnalyzer{}, store)

	result, err := o.HandleMessage(context.Background(), "carol", "please suggest something", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.ModeNormal, result.Mode)
	assert.Equal(t, recipeagent.OutcomeNoQuery, result.Outcome)
	assert.Empty(t, result.Recipes)
	assert.Zero(t, fetcher.calls)
	// Profile is still persisted on the early-exit branch.
	assert.Len(t, store.Notes("carol"), 1)
}

func TestNoCandidatesOutcome(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{}
	o := newTestOrchestrator(fetcher, &stubAnalyzer{}, store)

	result, err := o.HandleMessage(context.Background(), "carol", "spicy thai curry ideas", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.OutcomeNoCandidates, result.Outcome)
	assert.Empty(t, result.Recipes)
	assert.Equal(t, 1, fetcher.calls)
	assert.Len(t, store.Notes("carol"), 1)
}

func TestNoneCompliantStillPersists(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: []recipeagent.Recipe{
		{ID: "mealdb:1", Name: "Beef Stew", Diets: []string{}},
	}}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{
		Restrictions: []string{"vegan"},
		Query:        "hearty dinner",
	}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "dave", "hearty dinner ideas", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.OutcomeNoneCompliant, result.Outcome)
	assert.Empty(t, result.Recipes)
	assert.Len(t, store.Notes("dave"), 1)
	assert.Equal(t, []string{"vegan"}, result.Profile.Restrictions)
}

func TestDetailModeReturnsCachedRecipe(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	first, err := o.HandleMessage(context.Background(), "erin", "vegan dinner ideas", nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.Recipes)
	fetchCallsBefore := fetcher.calls

	result, err := o.HandleMessage(context.Background(), "erin", "show me recipe number 2", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.ModeDetail, result.Mode)
	assert.Equal(t, recipeagent.OutcomeOK, result.Outcome)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, first.Recipes[1], result.Recipes[0])
	assert.Equal(t, fetchCallsBefore, fetcher.calls)

	// Cache is untouched by detail turns, so the same reference still resolves.
	result, err = o.HandleMessage(context.Background(), "erin", "show me the ingredients for number 2", nil)
	require.NoError(t, err)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, first.Recipes[1], result.Recipes[0])
}

func TestDetailModeResolvesTwoDigitIndex(t *testing.T) {
	recipes := make([]recipeagent.Recipe, 10)
	for i := range recipes {
		recipes[i] = recipeagent.Recipe{
			ID:    fmt.Sprintf("mealdb:%d", i+1),
			Name:  fmt.Sprintf("Dish %d", i+1),
			Diets: []string{"vegan"},
		}
	}

	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: recipes}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	first, err := o.HandleMessage(context.Background(), "judy", "vegan dinner ideas", nil)
	require.NoError(t, err)
	require.Len(t, first.Recipes, 10)

	result, err := o.HandleMessage(context.Background(), "judy", "show me recipe number 10", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.ModeDetail, result.Mode)
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, first.Recipes[9], result.Recipes[0])

	// A reference past the end of the cache is a new search, not a wrong pick.
	result, err = o.HandleMessage(context.Background(), "judy", "show me recipe number 42", nil)
	require.NoError(t, err)
	assert.Equal(t, recipeagent.ModeNormal, result.Mode)
}

func TestDetailModeOutOfRangeFallsThrough(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	first, err := o.HandleMessage(context.Background(), "frank", "vegan dinner ideas", nil)
	require.NoError(t, err)
	require.Len(t, first.Recipes, 3)

	result, err := o.HandleMessage(context.Background(), "frank", "show me recipe number 9", nil)
	require.NoError(t, err)
	assert.Equal(t, recipeagent.ModeNormal, result.Mode)
}

func TestDetailModeRequiresCache(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "grace", "show me recipe number 2", nil)
	require.NoError(t, err)
	assert.Equal(t, recipeagent.ModeNormal, result.Mode)
}

func TestFocusNutrientOrdersFinalOutput(t *testing.T) {
	store := storage.NewTestProfileStore()
	fetcher := &stubFetcher{recipes: []recipeagent.Recipe{
		{ID: "mealdb:1", Name: "Low", Diets: []string{"vegan"}, Protein: f64(5)},
		{ID: "mealdb:2", Name: "Missing", Diets: []string{"vegan"}},
		{ID: "mealdb:3", Name: "High", Diets: []string{"vegan"}, Protein: f64(20)},
		{ID: "mealdb:4", Name: "Mid", Diets: []string{"vegan"}, Protein: f64(12)},
	}}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "protein meals"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "henry", "high protein vegan meals", nil)
	require.NoError(t, err)

	assert.Equal(t, "protein", result.FocusNutrient)
	require.Len(t, result.Recipes, 4)
	var got []string
	for _, r := range result.Recipes {
		got = append(got, r.ID)
	}
	assert.Equal(t, []string{"mealdb:3", "mealdb:4", "mealdb:1", "mealdb:2"}, got)
}

func TestSaveFailureIsNonFatal(t *testing.T) {
	store := storage.NewTestProfileStoreWithSaveError()
	fetcher := &stubFetcher{recipes: veganRecipes()}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	o := newTestOrchestrator(fetcher, analyzer, store)

	result, err := o.HandleMessage(context.Background(), "iris", "vegan dinner ideas", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.OutcomeOK, result.Outcome)
	assert.NotEmpty(t, result.Recipes)
	assert.False(t, result.SaveStatus.OK)
	assert.Contains(t, result.SaveStatus.Error, "save failed")
}

type panickingFetcher struct{}

func (f *panickingFetcher) Fetch(_ context.Context, _ string, _ int) []recipeagent.Recipe {
	panic("provider index out of range")
}

type capturingTurnLogger struct {
	logs []recipeagent.TurnLog
}

func (l *capturingTurnLogger) LogTurn(turn recipeagent.TurnLog) error {
	l.logs = append(l.logs, turn)
	return nil
}

func TestInternalFaultYieldsEmptyResult(t *testing.T) {
	store := storage.NewTestProfileStore()
	logger := &capturingTurnLogger{}
	analyzer := &stubAnalyzer{analysis: &recipeagent.TurnAnalysis{Query: "vegan dinner"}}
	providerCfg, agentCfg := testConfig()
	o := NewOrchestrator(
		&panickingFetcher{},
		&stubScorer{},
		analyzer,
		&passRanker{},
		store,
		logger,
		providerCfg,
		agentCfg,
	)

	result, err := o.HandleMessage(context.Background(), "iris", "vegan dinner ideas", nil)
	require.NoError(t, err)

	assert.Equal(t, recipeagent.OutcomeFault, result.Outcome)
	assert.Empty(t, result.Recipes)
	require.NotNil(t, result.Profile)
	assert.Equal(t, "iris", result.Profile.Username)
	assert.True(t, result.SaveStatus.OK)
	assert.Len(t, store.Notes("iris"), 1)

	require.Len(t, logger.logs, 1)
	assert.Equal(t, recipeagent.OutcomeFault, logger.logs[0].Outcome)
	assert.Contains(t, logger.logs[0].Error, "provider index out of range")
}

// Package agent holds the conversation orchestrator: the per-turn state
// machine that drives retrieval, filtering, and reranking.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"recipeagent"
	"recipeagent/dietary"
)

// Collaborator seams. The concrete sources.Aggregator, ranking.Scorer,
// Analyzer, and Reranker types satisfy these.
type candidateFetcher interface {
	Fetch(ctx context.Context, query string, pageSize int) []recipeagent.Recipe
}

type relevanceRanker interface {
	Rerank(ctx context.Context, query string, candidates []recipeagent.Recipe, focusNutrient string, topK int) []recipeagent.Recipe
}

type intentAnalyzer interface {
	Analyse(ctx context.Context, message string, profile *recipeagent.UserProfile) recipeagent.TurnAnalysis
}

type preferenceRanker interface {
	ByPreference(ctx context.Context, recipes []recipeagent.Recipe, profile *recipeagent.UserProfile) []recipeagent.Recipe
	ByObjective(ctx context.Context, recipes []recipeagent.Recipe, profile *recipeagent.UserProfile, maxResults int) []recipeagent.Recipe
}

type profileStore interface {
	Load(ctx context.Context, username string) (*recipeagent.UserProfile, error)
	Save(ctx context.Context, profile *recipeagent.UserProfile, contextNote string) error
}

// Orchestrator interprets each incoming message, picks the turn mode, and
// drives the pipeline: retrieval, relevance cut, compliance filter,
// preference rerank, objective rerank, focus-nutrient ordering. It owns the
// per-user last-shown cache and serializes turns per username.
type Orchestrator struct {
	fetcher   candidateFetcher
	scorer    relevanceRanker
	analyzer  intentAnalyzer
	reranker  preferenceRanker
	store     profileStore
	logger    recipeagent.TurnLogger
	lastShown *lastShownStore

	pageSize   int
	topK       int
	maxResults int
}

func NewOrchestrator(
	fetcher candidateFetcher,
	scorer relevanceRanker,
	analyzer intentAnalyzer,
	reranker preferenceRanker,
	store profileStore,
	logger recipeagent.TurnLogger,
	providerCfg recipeagent.ProviderConfig,
	agentCfg recipeagent.AgentConfig,
) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		scorer:     scorer,
		analyzer:   analyzer,
		reranker:   reranker,
		store:      store,
		logger:     logger,
		lastShown:  newLastShownStore(),
		pageSize:   providerCfg.PageSize,
		topK:       agentCfg.RelevanceTopK,
		maxResults: agentCfg.MaxResults,
	}
}

// HandleMessage processes one conversation turn for a user. It never fails
// the turn on collaborator errors: retrieval, scoring, and LLM failures
// degrade to empty or neutral contributions and the profile is persisted on
// every branch. An unexpected internal fault yields a well-formed empty
// result, never a crash visible to the caller.
func (o *Orchestrator) HandleMessage(ctx context.Context, username, message string, inventoryHints []string) (result recipeagent.TurnResult, err error) {
	turnID := uuid.NewString()
	slog.Info("ORCHESTRATOR: Starting turn", "turn_id", turnID, "username", username)

	var profile *recipeagent.UserProfile
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ORCHESTRATOR: Unexpected fault, returning empty result", "turn_id", turnID, "panic", r)
			if profile == nil {
				profile = recipeagent.NewUserProfile(username)
			}
			result = recipeagent.TurnResult{
				TurnID:  turnID,
				Mode:    recipeagent.ModeNormal,
				Outcome: recipeagent.OutcomeFault,
				Profile: profile,
			}
			o.finishFault(ctx, &result, fmt.Sprint(r))
			err = nil
		}
	}()

	// One turn per user at a time; turns for other users proceed in parallel.
	entry := o.lastShown.entry(username)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	profile, err = o.store.Load(ctx, username)
	if err != nil {
		slog.Warn("ORCHESTRATOR: Profile load failed, starting fresh", "username", username, "error", err)
		profile = nil
	}
	if profile == nil {
		profile = recipeagent.NewUserProfile(username)
	}

	if IsInventoryReset(message) {
		return o.inventoryResetTurn(ctx, turnID, message, profile), nil
	}

	if result, ok := o.detailTurn(ctx, turnID, message, profile, entry); ok {
		return result, nil
	}

	return o.normalTurn(ctx, turnID, message, inventoryHints, profile, entry), nil
}

func (o *Orchestrator) inventoryResetTurn(ctx context.Context, turnID, message string, profile *recipeagent.UserProfile) recipeagent.TurnResult {
	slog.Info("ORCHESTRATOR: Inventory reset", "turn_id", turnID, "username", profile.Username)

	profile.Inventory = nil
	analysis := defaultAnalysis(message, profile)

	result := recipeagent.TurnResult{
		TurnID:   turnID,
		Mode:     recipeagent.ModeInventoryReset,
		Outcome:  recipeagent.OutcomeOK,
		Analysis: analysis,
		Profile:  profile,
	}
	o.finish(ctx, &result, 0, 0)
	return result
}

// detailTurn resolves "show me number 2"-style follow-ups against the cached
// last results. The cache is left untouched so later references keep
// resolving against the same list. Returns false when the branch does not
// apply, including out-of-range indexes.
func (o *Orchestrator) detailTurn(ctx context.Context, turnID, message string, profile *recipeagent.UserProfile, entry *lastShownEntry) (recipeagent.TurnResult, bool) {
	cached := entry.get()
	if len(cached) == 0 || !WantsDetail(message) {
		return recipeagent.TurnResult{}, false
	}
	idx := ResolveIndex(message)
	if idx < 1 || idx > len(cached) {
		return recipeagent.TurnResult{}, false
	}

	slog.Info("ORCHESTRATOR: Detail lookup", "turn_id", turnID, "username", profile.Username, "index", idx)

	result := recipeagent.TurnResult{
		TurnID:   turnID,
		Mode:     recipeagent.ModeDetail,
		Outcome:  recipeagent.OutcomeOK,
		Recipes:  []recipeagent.Recipe{cached[idx-1]},
		Analysis: defaultAnalysis(message, profile),
		Profile:  profile,
	}
	o.finish(ctx, &result, 0, 0)
	return result, true
}

func (o *Orchestrator) normalTurn(ctx context.Context, turnID, message string, inventoryHints []string, profile *recipeagent.UserProfile, entry *lastShownEntry) recipeagent.TurnResult {
	analysis := o.analyzer.Analyse(ctx, message, profile)

	if analysis.Objective != "" {
		profile.Objective = analysis.Objective
	}
	profile.AddRestrictions(analysis.Restrictions...)
	profile.AddAllergies(analysis.Allergies...)
	profile.AddLikes(analysis.Likes...)
	profile.AddDislikes(analysis.Dislikes...)
	profile.ReplaceInventory(analysis.Inventory, inventoryHints)

	result := recipeagent.TurnResult{
		TurnID:   turnID,
		Mode:     recipeagent.ModeNormal,
		Analysis: analysis,
		Profile:  profile,
	}

	query := DeriveQuery(message, profile.Inventory)
	result.Query = query
	if query == "" {
		slog.Info("ORCHESTRATOR: No searchable content in message", "turn_id", turnID)
		result.Outcome = recipeagent.OutcomeNoQuery
		o.finish(ctx, &result, 0, 0)
		return result
	}

	focus := InferFocusNutrient(message, profile.Objective)
	result.FocusNutrient = focus

	candidates := o.fetcher.Fetch(ctx, query, o.pageSize)
	slog.Info("ORCHESTRATOR: Candidates fetched",
		"turn_id", turnID,
		"query", query,
		"focus_nutrient", focus,
		"count", len(candidates),
	)
	if len(candidates) == 0 {
		result.Outcome = recipeagent.OutcomeNoCandidates
		o.finish(ctx, &result, 0, 0)
		return result
	}

	top := o.scorer.Rerank(ctx, query, candidates, focus, o.topK)

	compliant := dietary.Filter(top, profile)
	slog.Info("ORCHESTRATOR: Compliance filter applied",
		"turn_id", turnID,
		"before", len(top),
		"after", len(compliant),
	)
	if len(compliant) == 0 {
		result.Outcome = recipeagent.OutcomeNoneCompliant
		o.finish(ctx, &result, len(candidates), 0)
		return result
	}

	ranked := o.reranker.ByPreference(ctx, compliant, profile)
	ranked = o.reranker.ByObjective(ctx, ranked, profile, o.maxResults)

	// Nutrient intent wins over LLM-ranked order on output.
	if focus != "" {
		sortByMacro(ranked, focus)
	}

	entry.replace(ranked)

	result.Outcome = recipeagent.OutcomeOK
	result.Recipes = ranked
	o.finish(ctx, &result, len(candidates), len(compliant))
	return result
}

// sortByMacro stable-sorts descending by the macro's raw value, treating
// missing values as 0 so they sink to the end.
func sortByMacro(recipes []recipeagent.Recipe, macro string) {
	sort.SliceStable(recipes, func(i, j int) bool {
		vi, _ := recipes[i].Macro(macro)
		vj, _ := recipes[j].Macro(macro)
		return vi > vj
	})
}

// finishFault is the persistence path for a recovered internal fault. It
// still saves the profile and emits a TurnLog carrying the fault text.
func (o *Orchestrator) finishFault(ctx context.Context, result *recipeagent.TurnResult, faultText string) {
	result.SaveStatus = recipeagent.SaveStatus{OK: true}
	if err := o.store.Save(ctx, result.Profile, "ANALYSIS: turn aborted by internal fault"); err != nil {
		slog.Warn("ORCHESTRATOR: Profile save failed", "turn_id", result.TurnID, "error", err)
		result.SaveStatus = recipeagent.SaveStatus{OK: false, Error: err.Error()}
	}

	turnLog := recipeagent.TurnLog{
		TurnID:    result.TurnID,
		Username:  result.Profile.Username,
		Timestamp: time.Now(),
		Mode:      result.Mode,
		Outcome:   result.Outcome,
		SaveError: result.SaveStatus.Error,
		Error:     faultText,
	}
	if err := o.logger.LogTurn(turnLog); err != nil {
		slog.Error("ORCHESTRATOR: Failed to log turn", "turn_id", result.TurnID, "error", err)
	}
}

// finish persists the profile and emits the structured turn summary. Runs on
// every branch; a save failure is reported in the result, never fatal.
func (o *Orchestrator) finish(ctx context.Context, result *recipeagent.TurnResult, fetched, compliant int) {
	note := "ANALYSIS: "
	if b, err := json.Marshal(result.Analysis); err == nil {
		note += string(b)
	}

	result.SaveStatus = recipeagent.SaveStatus{OK: true}
	if err := o.store.Save(ctx, result.Profile, note); err != nil {
		slog.Warn("ORCHESTRATOR: Profile save failed", "turn_id", result.TurnID, "error", err)
		result.SaveStatus = recipeagent.SaveStatus{OK: false, Error: err.Error()}
	}

	turnLog := recipeagent.TurnLog{
		TurnID:        result.TurnID,
		Username:      result.Profile.Username,
		Timestamp:     time.Now(),
		Mode:          result.Mode,
		Outcome:       result.Outcome,
		Query:         result.Query,
		FocusNutrient: result.FocusNutrient,
		Fetched:       fetched,
		Compliant:     compliant,
		Returned:      len(result.Recipes),
		SaveError:     result.SaveStatus.Error,
	}
	if err := o.logger.LogTurn(turnLog); err != nil {
		slog.Error("ORCHESTRATOR: Failed to log turn", "turn_id", result.TurnID, "error", err)
	}

	slog.Info("ORCHESTRATOR: Turn finished",
		"turn_id", result.TurnID,
		"mode", result.Mode,
		"outcome", result.Outcome,
		"returned", len(result.Recipes),
	)
}

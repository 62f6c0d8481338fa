package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"recipeagent"
	"recipeagent/llm"
)

const preferenceSystemPrompt = `You are an assistant that ranks recipes by how well they match a user's ingredient preferences.
- Prefer recipes containing ingredients the user likes.
- Demote recipes containing ingredients the user dislikes.
- Keep the existing order for recipes the preferences say nothing about.

Return ONLY valid JSON with keys:
- 'ranked_ids': list of recipe IDs from best to worst
- 'notes': a short text explanation (optional).`

const objectiveSystemPrompt = `You are a nutrition-aware assistant that ranks recipes according to a user's high-level objective.
- If objective is 'cutting' or 'fat loss', prefer lower-calorie meals with reasonable protein.
- If objective is 'bulking' or 'muscle gain', prefer higher-calorie and high-protein meals.
- If objective is 'healthier' or unspecified, prefer moderate calories, decent protein, and not excessive fat.

Return ONLY valid JSON with keys:
- 'ranked_ids': list of recipe IDs from best to worst
- 'notes': a short text explanation (optional).`

// Reranker drives the two LLM ranking passes. A failed or partial response
// never drops candidates: unknown ids are skipped and missing ids are
// appended in their original order.
type Reranker struct {
	chat    llm.ChatClient
	timeout time.Duration
}

func NewReranker(chat llm.ChatClient, timeout time.Duration) *Reranker {
	return &Reranker{chat: chat, timeout: timeout}
}

type rankedResponse struct {
	RankedIDs []string `json:"ranked_ids"`
	Notes     string   `json:"notes"`
}

type recipeSummary struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
	Protein  *float64 `json:"protein"`
	Carbs    *float64 `json:"carbs"`
	Fat      *float64 `json:"fat"`
	Fiber    *float64 `json:"fiber"`
}

func summarize(recipes []recipeagent.Recipe) []recipeSummary {
	out := make([]recipeSummary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, recipeSummary{
			ID:       r.ID,
			Name:     r.Name,
			Calories: r.Calories,
			Protein:  r.Protein,
			Carbs:    r.Carbs,
			Fat:      r.Fat,
			Fiber:    r.Fiber,
		})
	}
	return out
}

// ByPreference reorders recipes by the user's liked and disliked ingredients.
func (r *Reranker) ByPreference(ctx context.Context, recipes []recipeagent.Recipe, profile *recipeagent.UserProfile) []recipeagent.Recipe {
	if len(recipes) == 0 {
		return recipes
	}
	payload := map[string]any{
		"likes":    profile.Likes,
		"dislikes": profile.Dislikes,
		"recipes":  summarize(recipes),
	}
	return r.rank(ctx, "preference", preferenceSystemPrompt, payload, recipes)
}

// ByObjective reorders recipes by the user's stated goal and truncates to
// maxResults.
func (r *Reranker) ByObjective(ctx context.Context, recipes []recipeagent.Recipe, profile *recipeagent.UserProfile, maxResults int) []recipeagent.Recipe {
	if len(recipes) == 0 {
		return recipes
	}
	objective := profile.Objective
	if objective == "" {
		objective = "healthier"
	}
	payload := map[string]any{
		"objective": objective,
		"recipes":   summarize(recipes),
	}
	ranked := r.rank(ctx, "objective", objectiveSystemPrompt, payload, recipes)
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return ranked
}

func (r *Reranker) rank(ctx context.Context, stage, system string, payload map[string]any, recipes []recipeagent.Recipe) []recipeagent.Recipe {
	b, err := json.Marshal(payload)
	if err != nil {
		slog.Error("RERANKER: Failed to marshal payload", "stage", stage, "error", err)
		return recipes
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.chat.Complete(ctx, system, string(b))
	if err != nil {
		slog.Warn("RERANKER: LLM call failed, keeping input order", "stage", stage, "error", err)
		return recipes
	}

	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		slog.Warn("RERANKER: No JSON object in response, keeping input order", "stage", stage)
		return recipes
	}

	var resp rankedResponse
	if err := json.Unmarshal([]byte(extracted), &resp); err != nil {
		slog.Warn("RERANKER: Unparsable ranking JSON, keeping input order", "stage", stage, "error", err)
		return recipes
	}

	return applyRanking(recipes, resp.RankedIDs)
}

// applyRanking maps ranked ids back to recipes, skipping unknown or duplicate
// ids, then appends every recipe the ranking omitted in original order.
func applyRanking(recipes []recipeagent.Recipe, rankedIDs []string) []recipeagent.Recipe {
	byID := make(map[string]recipeagent.Recipe, len(recipes))
	for _, rec := range recipes {
		byID[rec.ID] = rec
	}

	seen := make(map[string]bool, len(recipes))
	out := make([]recipeagent.Recipe, 0, len(recipes))
	for _, id := range rankedIDs {
		rec, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, rec)
	}
	for _, rec := range recipes {
		if !seen[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"recipeagent"
	"recipeagent/llm"
)

const analysisSystemPrompt = `You are an assistant that interprets a user's free-text request about food and meal planning. You must output ONLY valid JSON. Infer their objective (cutting, bulking, healthier if possible), dietary restrictions, allergies, liked ingredients, disliked ingredients, any pantry/fridge inventory items they mention, and whether they want a meal plan for a day or a week.

Also provide a concise 'query' string that captures what kind of recipes to search for (e.g. 'high protein vegan dinners with chickpeas').

Output a JSON object with exactly these keys: objective (string), dietary_restrictions (array of strings), allergies (array of strings), likes (array of strings), dislikes (array of strings), inventory (array of strings), wants_meal_plan (boolean), time_horizon (string), query (string).`

// Analyzer turns one message into a TurnAnalysis via the chat collaborator.
// The LLM's JSON is treated as untrusted: it is schema-validated and any
// missing or invalid piece falls back to a deterministic default built from
// the current profile.
type Analyzer struct {
	chat    llm.ChatClient
	timeout time.Duration
	schema  *jsonschema.Resolved
}

func NewAnalyzer(chat llm.ChatClient, timeout time.Duration) (*Analyzer, error) {
	resolved, err := analysisSchema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve analysis schema: %w", err)
	}
	return &Analyzer{chat: chat, timeout: timeout, schema: resolved}, nil
}

func analysisSchema() *jsonschema.Schema {
	stringArray := func() *jsonschema.Schema {
		return &jsonschema.Schema{
			Type:  "array",
			Items: &jsonschema.Schema{Type: "string"},
		}
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"objective":            {Type: "string"},
			"dietary_restrictions": stringArray(),
			"allergies":            stringArray(),
			"likes":                stringArray(),
			"dislikes":             stringArray(),
			"inventory":            stringArray(),
			"wants_meal_plan":      {Type: "boolean"},
			"time_horizon":         {Type: "string"},
			"query":                {Type: "string"},
		},
	}
}

// Analyse interprets the message in the context of the user's current
// profile. It never returns an error: any collaborator failure yields the
// default analysis so the turn can proceed.
func (a *Analyzer) Analyse(ctx context.Context, message string, profile *recipeagent.UserProfile) recipeagent.TurnAnalysis {
	fallback := defaultAnalysis(message, profile)

	userPayload, err := json.Marshal(map[string]any{
		"message": message,
		"current_user": map[string]any{
			"username":             profile.Username,
			"objective":            profile.Objective,
			"dietary_restrictions": profile.Restrictions,
			"allergies":            profile.Allergies,
			"likes":                profile.Likes,
			"dislikes":             profile.Dislikes,
		},
	})
	if err != nil {
		slog.Error("ANALYZER: Failed to marshal analysis input", "error", err)
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.chat.Complete(ctx, analysisSystemPrompt, string(userPayload))
	if err != nil {
		slog.Warn("ANALYZER: Intent extraction failed, using default analysis", "error", err)
		return fallback
	}

	extracted := llm.ExtractJSON(raw)
	if extracted == "" {
		slog.Warn("ANALYZER: No JSON object in LLM response, using default analysis")
		return fallback
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(extracted), &decoded); err != nil {
		slog.Warn("ANALYZER: Unparsable analysis JSON, using default analysis", "error", err)
		return fallback
	}

	if err := a.schema.Validate(decoded); err != nil {
		slog.Warn("ANALYZER: Analysis JSON failed schema validation, using default analysis", "error", err)
		return fallback
	}

	analysis := fallback
	if v, ok := decoded["objective"].(string); ok && v != "" {
		analysis.Objective = v
	}
	if v, ok := stringSlice(decoded["dietary_restrictions"]); ok {
		analysis.Restrictions = v
	}
	if v, ok := stringSlice(decoded["allergies"]); ok {
		analysis.Allergies = v
	}
	if v, ok := stringSlice(decoded["likes"]); ok {
		analysis.Likes = v
	}
	if v, ok := stringSlice(decoded["dislikes"]); ok {
		analysis.Dislikes = v
	}
	if v, ok := stringSlice(decoded["inventory"]); ok {
		analysis.Inventory = v
	}
	if v, ok := decoded["wants_meal_plan"].(bool); ok {
		analysis.WantsMealPlan = v
	}
	if v, ok := decoded["time_horizon"].(string); ok && v != "" {
		analysis.TimeHorizon = v
	}
	if v, ok := decoded["query"].(string); ok && v != "" {
		analysis.Query = v
	}

	slog.Info("ANALYZER: Analysis accepted",
		"objective", analysis.Objective,
		"restrictions", len(analysis.Restrictions),
		"inventory_items", len(analysis.Inventory),
	)
	return analysis
}

// defaultAnalysis carries the profile forward unchanged and treats the raw
// message as the query.
func defaultAnalysis(message string, profile *recipeagent.UserProfile) recipeagent.TurnAnalysis {
	return recipeagent.TurnAnalysis{
		Objective:    profile.Objective,
		Restrictions: append([]string(nil), profile.Restrictions...),
		Allergies:    append([]string(nil), profile.Allergies...),
		Likes:        append([]string(nil), profile.Likes...),
		Dislikes:     append([]string(nil), profile.Dislikes...),
		Query:        message,
	}
}

func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

package recipeagent

import (
	"context"
	"net/http"
	"strings"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type SlackClient interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// Recommender is the library entry point: one call per conversation turn.
type Recommender interface {
	HandleMessage(ctx context.Context, username, message string, inventoryHints []string) (TurnResult, error)
}

// Canonical macro names used for nutrient normalization and focus-nutrient ordering.
const (
	MacroCalories = "calories"
	MacroProtein  = "protein"
	MacroCarbs    = "carbs"
	MacroFat      = "fat"
	MacroFiber    = "fiber"
)

// Recipe is a candidate normalized from any provider. Macro pointers are nil
// when the provider did not report a value; nil is "unknown", never zero.
type Recipe struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Diets        []string `json:"diets"`
	Allergens    []string `json:"allergens"`
	Calories     *float64 `json:"calories,omitempty"`
	Protein      *float64 `json:"protein,omitempty"`
	Carbs        *float64 `json:"carbs,omitempty"`
	Fat          *float64 `json:"fat,omitempty"`
	Fiber        *float64 `json:"fiber,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
}

// Macro returns the named macro value and whether the provider reported one.
func (r Recipe) Macro(name string) (float64, bool) {
	var p *float64
	switch name {
	case MacroCalories:
		p = r.Calories
	case MacroProtein:
		p = r.Protein
	case MacroCarbs:
		p = r.Carbs
	case MacroFat:
		p = r.Fat
	case MacroFiber:
		p = r.Fiber
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// UserProfile is the durable per-user state. Restriction, allergy, like, and
// dislike sets only ever grow across turns; inventory is replaced wholesale
// whenever a turn supplies new inventory.
type UserProfile struct {
	Username     string   `json:"username"`
	Objective    string   `json:"objective,omitempty"`
	Restrictions []string `json:"dietary_restrictions"`
	Allergies    []string `json:"allergies"`
	Likes        []string `json:"likes"`
	Dislikes     []string `json:"dislikes"`
	Inventory    []string `json:"inventory"`
}

func NewUserProfile(username string) *UserProfile {
	return &UserProfile{Username: username}
}

func (p *UserProfile) AddRestrictions(items ...string) {
	p.Restrictions = addUnique(p.Restrictions, items)
}

func (p *UserProfile) AddAllergies(items ...string) { p.Allergies = addUnique(p.Allergies, items) }
func (p *UserProfile) AddLikes(items ...string)     { p.Likes = addUnique(p.Likes, items) }
func (p *UserProfile) AddDislikes(items ...string)  { p.Dislikes = addUnique(p.Dislikes, items) }

// ReplaceInventory snapshots the union of the given item lists as the new
// inventory. It is a no-op when no items are supplied, so a turn that says
// nothing about inventory leaves the previous snapshot intact.
func (p *UserProfile) ReplaceInventory(itemLists ...[]string) {
	var all []string
	for _, items := range itemLists {
		all = append(all, items...)
	}
	if len(all) == 0 {
		return
	}
	p.Inventory = addUnique(nil, all)
}

func addUnique(existing []string, items []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[strings.ToLower(e)] = true
	}
	for _, item := range items {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		existing = append(existing, item)
	}
	return existing
}

// TurnAnalysis is the structured interpretation of one message. One per turn.
type TurnAnalysis struct {
	Objective     string   `json:"objective,omitempty"`
	Restrictions  []string `json:"dietary_restrictions"`
	Allergies     []string `json:"allergies"`
	Likes         []string `json:"likes"`
	Dislikes      []string `json:"dislikes"`
	Inventory     []string `json:"inventory"`
	WantsMealPlan bool     `json:"wants_meal_plan"`
	TimeHorizon   string   `json:"time_horizon,omitempty"`
	Query         string   `json:"query"`
}

// Turn modes, in the orchestrator's priority order.
const (
	ModeInventoryReset = "inventory_reset"
	ModeDetail         = "detail"
	ModeNormal         = "normal"
)

// Turn outcomes. Empty results carry a distinct outcome per cause so a caller
// can tell "your request had no searchable content" apart from "everything was
// filtered out by your restrictions".
const (
	OutcomeOK            = "ok"
	OutcomeNoQuery       = "no_query"
	OutcomeNoCandidates  = "no_candidates"
	OutcomeNoneCompliant = "none_compliant"
	OutcomeFault         = "fault"
)

// SaveStatus reports the durable-store write for a turn. A failed save never
// invalidates the recommendation computed in memory.
type SaveStatus struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// TurnResult is what one orchestrated turn returns to the caller.
type TurnResult struct {
	TurnID        string       `json:"turn_id"`
	Mode          string       `json:"mode"`
	Outcome       string       `json:"outcome"`
	Recipes       []Recipe     `json:"recipes"`
	Analysis      TurnAnalysis `json:"analysis"`
	Profile       *UserProfile `json:"profile"`
	FocusNutrient string       `json:"focus_nutrient,omitempty"`
	Query         string       `json:"query,omitempty"`
	SaveStatus    SaveStatus   `json:"save_status"`
}

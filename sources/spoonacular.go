package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recipeagent"
)

const spoonacularBaseURL = "https://api.spoonacular.com"

// Spoonacular queries the Spoonacular complex search endpoint with nutrition
// included. Disabled unless an API key is configured.
type Spoonacular struct {
	apiKey     string
	baseURL    string
	httpClient recipeagent.HTTPClient
}

func NewSpoonacular(apiKey string, httpClient recipeagent.HTTPClient) *Spoonacular {
	return &Spoonacular{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    spoonacularBaseURL,
		httpClient: httpClient,
	}
}

func (s *Spoonacular) Name() string  { return "spoonacular" }
func (s *Spoonacular) Enabled() bool { return s.apiKey != "" }

type spoonacularResponse struct {
	Results []spoonacularResult `json:"results"`
}

type spoonacularResult struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	SourceURL   string   `json:"sourceUrl"`
	Vegetarian  bool     `json:"vegetarian"`
	Vegan       bool     `json:"vegan"`
	GlutenFree  bool     `json:"glutenFree"`
	DairyFree   bool     `json:"dairyFree"`
	Diets       []string `json:"diets"`
	Ingredients []struct {
		Name string `json:"name"`
	} `json:"extendedIngredients"`
	Nutrition struct {
		Nutrients []struct {
			Name   string  `json:"name"`
			Amount float64 `json:"amount"`
		} `json:"nutrients"`
	} `json:"nutrition"`
}

func (s *Spoonacular) Search(ctx context.Context, query string, pageSize int) ([]RawRecipe, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("number", strconv.Itoa(pageSize))
	params.Set("addRecipeNutrition", "true")
	params.Set("addRecipeInformation", "true")
	params.Set("apiKey", s.apiKey)
	endpoint := fmt.Sprintf("%s/recipes/complexSearch?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("spoonacular: %s: %s", resp.Status, string(body))
	}

	var wire spoonacularResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("spoonacular: parse response: %w", err)
	}

	records := make([]RawRecipe, 0, len(wire.Results))
	for _, result := range wire.Results {
		if result.ID == 0 || result.Title == "" {
			continue
		}
		rec := RawRecipe{
			SourceID:  strconv.Itoa(result.ID),
			Name:      result.Title,
			SourceURL: result.SourceURL,
			Diets:     append([]string(nil), result.Diets...),
		}
		if result.Vegetarian {
			rec.Diets = append(rec.Diets, "vegetarian")
		}
		if result.Vegan {
			rec.Diets = append(rec.Diets, "vegan")
		}
		if result.GlutenFree {
			rec.Diets = append(rec.Diets, "gluten free")
		}
		if result.DairyFree {
			rec.Diets = append(rec.Diets, "dairy free")
		}
		for _, ing := range result.Ingredients {
			if ing.Name != "" {
				rec.Ingredients = append(rec.Ingredients, ing.Name)
			}
		}
		for _, n := range result.Nutrition.Nutrients {
			rec.Nutrients = append(rec.Nutrients, RawNutrient{Name: n.Name, Value: n.Amount})
		}
		records = append(records, rec)
	}

	return records, nil
}

package sources

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"context"

	"recipeagent"
)

const mealDBBaseURL = "https://www.themealdb.com/api/json/v1"

// MealDB queries TheMealDB. The free tier ships with the literal API key "1",
// so this provider is usually enabled out of the box. TheMealDB reports no
// nutrient data; its candidates carry unknown macros.
type MealDB struct {
	apiKey     string
	baseURL    string
	httpClient recipeagent.HTTPClient
}

func NewMealDB(apiKey string, httpClient recipeagent.HTTPClient) *MealDB {
	return &MealDB{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    mealDBBaseURL,
		httpClient: httpClient,
	}
}

func (m *MealDB) Name() string  { return "mealdb" }
func (m *MealDB) Enabled() bool { return m.apiKey != "" }

type mealDBResponse struct {
	Meals []map[string]any `json:"meals"`
}

func (m *MealDB) Search(ctx context.Context, query string, pageSize int) ([]RawRecipe, error) {
	endpoint := fmt.Sprintf("%s/%s/search.php?s=%s", m.baseURL, m.apiKey, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mealdb: %s: %s", resp.Status, string(body))
	}

	var wire mealDBResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("mealdb: parse response: %w", err)
	}

	// "meals": null means no matches; that's an empty result, not an error.
	records := make([]RawRecipe, 0, len(wire.Meals))
	for _, meal := range wire.Meals {
		rec := RawRecipe{
			SourceID:     str(meal["idMeal"]),
			Name:         str(meal["strMeal"]),
			Instructions: str(meal["strInstructions"]),
			SourceURL:    str(meal["strSource"]),
		}
		if rec.SourceID == "" || rec.Name == "" {
			continue
		}

		// TheMealDB spreads ingredients over strIngredient1..strIngredient20.
		for i := 1; i <= 20; i++ {
			ing := strings.TrimSpace(str(meal[fmt.Sprintf("strIngredient%d", i)]))
			if ing != "" {
				rec.Ingredients = append(rec.Ingredients, ing)
			}
		}

		for _, tag := range strings.Split(str(meal["strTags"]), ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				rec.Diets = append(rec.Diets, tag)
			}
		}

		records = append(records, rec)
		if pageSize > 0 && len(records) >= pageSize {
			break
		}
	}

	return records, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

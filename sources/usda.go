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

const usdaBaseURL = "https://api.nal.usda.gov/fdc"

// USDA queries the FoodData Central search endpoint. FDC records are foods,
// not recipes: they carry rich nutrient data but no diet tags or
// instructions, so their candidates lean entirely on the nutrient signals.
type USDA struct {
	apiKey     string
	baseURL    string
	httpClient recipeagent.HTTPClient
}

func NewUSDA(apiKey string, httpClient recipeagent.HTTPClient) *USDA {
	return &USDA{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    usdaBaseURL,
		httpClient: httpClient,
	}
}

func (u *USDA) Name() string  { return "usda" }
func (u *USDA) Enabled() bool { return u.apiKey != "" }

type usdaResponse struct {
	Foods []usdaFood `json:"foods"`
}

type usdaFood struct {
	FdcID       int    `json:"fdcId"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Nutrients   []struct {
		Name  string  `json:"nutrientName"`
		Value float64 `json:"value"`
	} `json:"foodNutrients"`
}

func (u *USDA) Search(ctx context.Context, query string, pageSize int) ([]RawRecipe, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(pageSize))
	params.Set("api_key", u.apiKey)
	endpoint := fmt.Sprintf("%s/v1/foods/search?%s", u.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usda: %s: %s", resp.Status, string(body))
	}

	var wire usdaResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("usda: parse response: %w", err)
	}

	records := make([]RawRecipe, 0, len(wire.Foods))
	for _, food := range wire.Foods {
		if food.FdcID == 0 || food.Description == "" {
			continue
		}
		rec := RawRecipe{
			SourceID: strconv.Itoa(food.FdcID),
			Name:     food.Description,
		}
		// FDC "ingredients" is a single comma-separated label string.
		for _, ing := range strings.Split(food.Ingredients, ",") {
			if ing = strings.TrimSpace(ing); ing != "" {
				rec.Ingredients = append(rec.Ingredients, ing)
			}
		}
		// Field order is preserved so the first synonym hit wins during
		// normalization ("Energy" vs a later "Energy (Atwater General Factors)").
		for _, n := range food.Nutrients {
			rec.Nutrients = append(rec.Nutrients, RawNutrient{Name: n.Name, Value: n.Value})
		}
		records = append(records, rec)
	}

	return records, nil
}

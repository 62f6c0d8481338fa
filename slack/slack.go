package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"recipeagent"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

func (c *Client) PostMessage(ctx context.Context, channel string, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// PostRecommendations formats a ranked recipe list as a single message. Only
// macros the source reported are shown.
func (c *Client) PostRecommendations(ctx context.Context, channel, username string, recipes []recipeagent.Recipe) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendations for %s:\n", username)
	if len(recipes) == 0 {
		b.WriteString("No recipes matched this request.")
	}
	for i, r := range recipes {
		fmt.Fprintf(&b, "%d. %s", i+1, r.Name)
		var macros []string
		if r.Calories != nil {
			macros = append(macros, fmt.Sprintf("%.0f kcal", *r.Calories))
		}
		if r.Protein != nil {
			macros = append(macros, fmt.Sprintf("%.0fg protein", *r.Protein))
		}
		if len(macros) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(macros, ", "))
		}
		b.WriteString("\n")
	}
	return c.PostMessage(ctx, channel, b.String())
}

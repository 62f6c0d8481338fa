// Package ollama implements the chat and embedding collaborators against a
// local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"recipeagent"
)

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type Client struct {
	chatEndpoint  string
	embedEndpoint string
	model         string
	embedModel    string
	httpClient    recipeagent.HTTPClient
	options       options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	EmbedModelID string
	HTTPClient   recipeagent.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		return nil, fmt.Errorf("http client is required")
	}

	return &Client{
		model:         opts.ModelID,
		embedModel:    opts.EmbedModelID,
		httpClient:    opts.HTTPClient,
		chatEndpoint:  opts.BaseEndpoint + "/api/chat",
		embedEndpoint: opts.BaseEndpoint + "/api/embed",
		options: options{
			Temperature: 0.2,
			TopP:        0.9,
			NumCtx:      16384,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireChatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options,omitempty"`
}

type wireChatResponse struct {
	Message wireMessage `json:"message"`
	// other metadata omitted but available
}

// Complete sends one system+user exchange and returns the model's text reply
// verbatim. JSON extraction is the caller's concern.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	slog.Info("LLM_CLIENT: Complete invoked", "model", c.model, "user_len", len(user))

	messages := make([]wireMessage, 0, 2)
	if system != "" {
		messages = append(messages, wireMessage{Role: "system", Content: system})
	}
	messages = append(messages, wireMessage{Role: "user", Content: user})

	reqBody := wireChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options:  c.options,
	}

	body, err := c.post(ctx, c.chatEndpoint, reqBody)
	if err != nil {
		return "", err
	}

	var wire wireChatResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	return wire.Message.Content, nil
}

type wireEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type wireEmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed returns one vector per input, same order. Requires EmbedModelID.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	if c.embedModel == "" {
		return nil, fmt.Errorf("no embed model configured")
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	slog.Info("LLM_CLIENT: Embed invoked", "model", c.embedModel, "inputs", len(inputs))

	body, err := c.post(ctx, c.embedEndpoint, wireEmbedRequest{Model: c.embedModel, Input: inputs})
	if err != nil {
		return nil, err
	}

	var wire wireEmbedResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(wire.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(wire.Embeddings), len(inputs))
	}
	return wire.Embeddings, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	reqBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LLM_CLIENT: %s: %s", resp.Status, string(body))
	}
	return body, nil
}

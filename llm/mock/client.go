// Package mock provides a scripted chat client for tests and local dry runs.
package mock

import (
	"context"
	"errors"
	"log/slog"
)

// Client replays a fixed list of responses in order. Once the script is
// exhausted it keeps returning the last response, which mirrors how a turn
// makes a small, known number of LLM calls.
type Client struct {
	responses []string
	calls     int
	err       error
}

func NewClient(responses ...string) *Client {
	return &Client{responses: responses}
}

// NewFailingClient returns a client whose every call fails with err.
func NewFailingClient(err error) *Client {
	if err == nil {
		err = errors.New("mock llm failure")
	}
	return &Client{err: err}
}

func (c *Client) Complete(_ context.Context, _ string, user string) (string, error) {
	c.calls++
	slog.Info("LLM_CLIENT: mock invoked", "call", c.calls, "user_len", len(user))

	if c.err != nil {
		return "", c.err
	}
	if len(c.responses) == 0 {
		return "", errors.New("mock llm has no scripted responses")
	}
	i := c.calls - 1
	if i >= len(c.responses) {
		i = len(c.responses) - 1
	}
	return c.responses[i], nil
}

// Calls reports how many times Complete was invoked.
func (c *Client) Calls() int {
	return c.calls
}

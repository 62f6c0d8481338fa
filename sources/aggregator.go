package sources

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"recipeagent"
)

// Aggregator fans a query out to every enabled provider and joins the
// normalized results. A provider that is unreachable, times out, or returns a
// malformed payload contributes zero candidates; partial results are success.
// If every provider comes back empty the result is empty; no synthetic
// fallback candidate is ever injected.
type Aggregator struct {
	providers []Provider
	timeout   time.Duration
}

func NewAggregator(providers []Provider, timeout time.Duration) *Aggregator {
	return &Aggregator{
		providers: providers,
		timeout:   timeout,
	}
}

// Fetch queries all enabled providers concurrently and blocks until every one
// has responded or soft-failed. Results keep provider registration order so
// the candidate sequence is deterministic for a given set of responses.
func (a *Aggregator) Fetch(ctx context.Context, query string, pageSize int) []recipeagent.Recipe {
	perProvider := make([][]recipeagent.Recipe, len(a.providers))

	var wg sync.WaitGroup
	for i, provider := range a.providers {
		if !provider.Enabled() {
			slog.Info("AGGREGATOR: Provider disabled, skipping", "provider", provider.Name())
			continue
		}

		wg.Add(1)
		go func(i int, provider Provider) {
			defer wg.Done()
			perProvider[i] = a.fetchOne(ctx, provider, query, pageSize)
		}(i, provider)
	}
	wg.Wait()

	var out []recipeagent.Recipe
	for _, batch := range perProvider {
		out = append(out, batch...)
	}

	slog.Info("AGGREGATOR: Fetch complete", "query", query, "candidates", len(out))
	return out
}

func (a *Aggregator) fetchOne(ctx context.Context, provider Provider, query string, pageSize int) []recipeagent.Recipe {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	raw, err := provider.Search(ctx, query, pageSize)
	if err != nil {
		slog.Warn("AGGREGATOR: Provider failed, contributing zero candidates",
			"provider", provider.Name(),
			"error", err,
		)
		return nil
	}

	recipes := make([]recipeagent.Recipe, 0, len(raw))
	for _, record := range raw {
		recipes = append(recipes, Normalize(provider.Name(), record))
	}
	return recipes
}

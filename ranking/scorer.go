// Package ranking cuts the candidate pool to a bounded, relevance-ordered
// top-K before any LLM is involved. It blends three signals: query-token
// coverage, embedding similarity, and focus-nutrient emphasis.
package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"recipeagent"
)

// Signal weights for the blended score.
const (
	coverageWeight   = 0.4
	similarityWeight = 0.4
	nutrientWeight   = 0.2
)

// Embedder turns texts into fixed-length vectors, same length and order as
// the input. An unavailable embedding service is a soft failure: the
// similarity signal degrades to zero, ranking proceeds.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float64, error)
}

type Scorer struct {
	embedder Embedder
	timeout  time.Duration
}

func NewScorer(embedder Embedder, timeout time.Duration) *Scorer {
	return &Scorer{
		embedder: embedder,
		timeout:  timeout,
	}
}

// Rerank orders candidates by (raw focus-nutrient value, blended score), both
// descending, and truncates to topK. The two-key sort is intentional: a
// "high-protein" request surfaces high-protein items first even when their
// blended relevance is mediocre; the blend only breaks ties within equal
// nutrient values. Missing focus values sort as zero.
func (s *Scorer) Rerank(ctx context.Context, query string, candidates []recipeagent.Recipe, focusNutrient string, topK int) []recipeagent.Recipe {
	if len(candidates) == 0 {
		// No embedding call for zero items.
		return nil
	}

	similarities := s.similarities(ctx, query, candidates)
	queryTokens := Tokenize(query)

	type scored struct {
		recipe   recipeagent.Recipe
		focusRaw float64
		combined float64
	}

	items := make([]scored, len(candidates))
	for i, candidate := range candidates {
		coverage := coverageScore(queryTokens, candidate)
		nutrient, focusRaw := nutrientScore(candidate, focusNutrient)
		combined := coverageWeight*coverage + similarityWeight*similarities[i] + nutrientWeight*nutrient

		items[i] = scored{recipe: candidate, focusRaw: focusRaw, combined: combined}

		slog.Debug("RANKING: Scored candidate",
			"id", candidate.ID,
			"coverage", coverage,
			"similarity", similarities[i],
			"nutrient", nutrient,
			"combined", combined,
		)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].focusRaw != items[j].focusRaw {
			return items[i].focusRaw > items[j].focusRaw
		}
		return items[i].combined > items[j].combined
	})

	if topK > 0 && len(items) > topK {
		items = items[:topK]
	}

	out := make([]recipeagent.Recipe, len(items))
	for i, item := range items {
		out[i] = item.recipe
	}
	return out
}

// coverageScore is the fraction of informative query tokens found as a
// substring of the candidate's name or any ingredient. A query with no
// informative tokens scores a neutral 1.0 rather than penalizing everything.
func coverageScore(queryTokens []string, candidate recipeagent.Recipe) float64 {
	if len(queryTokens) == 0 {
		return 1.0
	}

	haystacks := make([]string, 0, len(candidate.Ingredients)+1)
	haystacks = append(haystacks, strings.ToLower(candidate.Name))
	for _, ing := range candidate.Ingredients {
		haystacks = append(haystacks, strings.ToLower(ing))
	}

	hits := 0
	for _, token := range queryTokens {
		for _, hay := range haystacks {
			if strings.Contains(hay, token) {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// nutrientScore returns the log-damped emphasis signal and the raw focus
// value used as the primary sort key. Both are zero when no focus nutrient is
// set or the candidate does not report it.
func nutrientScore(candidate recipeagent.Recipe, focusNutrient string) (score, raw float64) {
	if focusNutrient == "" {
		return 0, 0
	}
	value, ok := candidate.Macro(focusNutrient)
	if !ok {
		return 0, 0
	}
	return math.Log1p(math.Max(value, 0)), value
}

// similarities embeds the query and every candidate description in a single
// call and returns per-candidate cosine similarity, or all zeros when the
// embedding service is unavailable or answers with the wrong shape.
func (s *Scorer) similarities(ctx context.Context, query string, candidates []recipeagent.Recipe) []float64 {
	zeros := make([]float64, len(candidates))
	if s.embedder == nil {
		return zeros
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	inputs := make([]string, 0, len(candidates)+1)
	inputs = append(inputs, query)
	for _, candidate := range candidates {
		inputs = append(inputs, describe(candidate))
	}

	vectors, err := s.embedder.Embed(ctx, inputs)
	if err != nil || len(vectors) != len(inputs) {
		slog.Warn("RANKING: Embedding unavailable, similarity degraded to zero", "error", err)
		return zeros
	}

	queryVec := vectors[0]
	out := make([]float64, len(candidates))
	for i := range candidates {
		out[i] = cosine(queryVec, vectors[i+1])
	}
	return out
}

// describe synthesizes the text embedded per candidate.
func describe(candidate recipeagent.Recipe) string {
	source, _, _ := strings.Cut(candidate.ID, ":")
	return fmt.Sprintf("%s. Ingredients: %s. Diets: %s. Source: %s.",
		candidate.Name,
		strings.Join(candidate.Ingredients, ", "),
		strings.Join(candidate.Diets, ", "),
		source,
	)
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

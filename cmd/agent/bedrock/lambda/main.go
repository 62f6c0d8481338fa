package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"recipeagent"
	"recipeagent/agent"
	"recipeagent/agent/storage"
	"recipeagent/llm/bedrock"
	"recipeagent/ranking"
	"recipeagent/sources"
)

type Params struct {
	Username       string   `json:"username"`
	Message        string   `json:"message"`
	InventoryHints []string `json:"inventory_hints,omitempty"`
}

type Results struct {
	Result recipeagent.TurnResult `json:"result"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig recipeagent.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var providerConfig recipeagent.ProviderConfig
		if err := envdecode.Decode(&providerConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var agentConfig recipeagent.AgentConfig
		if err := envdecode.Decode(&agentConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		s3Bucket := os.Getenv("PROFILES_S3_BUCKET")
		s3Prefix := os.Getenv("PROFILES_S3_PREFIX")
		if s3Bucket == "" {
			return Results{}, fmt.Errorf("missing S3 config: PROFILES_S3_BUCKET must be set")
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}

		store := storage.NewS3ProfileStore(s3.NewFromConfig(awsCfg), s3Bucket, s3Prefix)
		slog.Info("SETUP: S3 profile store initialized", "bucket", s3Bucket, "prefix", s3Prefix)

		llmClient := bedrock.NewClient(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
		})

		providers := []sources.Provider{
			sources.NewMealDB(providerConfig.MealDBKey, http.DefaultClient),
			sources.NewSpoonacular(providerConfig.SpoonacularKey, http.DefaultClient),
			sources.NewUSDA(providerConfig.USDAKey, http.DefaultClient),
		}
		aggregator := sources.NewAggregator(providers, agentConfig.ProviderTimeout)

		scorer := ranking.NewScorer(nil, agentConfig.EmbedTimeout)

		analyzer, err := agent.NewAnalyzer(llmClient, agentConfig.LLMTimeout)
		if err != nil {
			slog.Error("SETUP: Failed to create analyzer", "error", err)
			return Results{}, err
		}
		reranker := agent.NewReranker(llmClient, agentConfig.LLMTimeout)

		orchestrator := agent.NewOrchestrator(
			aggregator,
			scorer,
			analyzer,
			reranker,
			store,
			recipeagent.NewStdoutTurnLogger(),
			providerConfig,
			agentConfig,
		)

		result, err := orchestrator.HandleMessage(ctx, params.Username, params.Message, params.InventoryHints)
		if err != nil {
			slog.Error("FAILURE: Error handling message", "error", err)
			return Results{}, err
		}

		return Results{Result: result}, nil
	}

	lambda.Start(fn)
}

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"recipeagent"
	"recipeagent/agent"
	"recipeagent/agent/storage"
	"recipeagent/llm/bedrock"
	"recipeagent/ranking"
	"recipeagent/sources"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("SETUP: Failed to load .env: %s", err)
	}

	var modelConfig recipeagent.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var providerConfig recipeagent.ProviderConfig
	if err := envdecode.Decode(&providerConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var agentConfig recipeagent.AgentConfig
	if err := envdecode.Decode(&agentConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to load AWS config", "error", err)
		return
	}
	brc := bedrockruntime.NewFromConfig(awsCfg)

	llmClient := bedrock.NewClient(brc, bedrock.Options{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
	})

	store, err := storage.NewFileProfileStore(agentConfig.ProfileStorePath)
	if err != nil {
		slog.Error("SETUP: Failed to create profile store", "error", err)
		return
	}

	providers := []sources.Provider{
		sources.NewMealDB(providerConfig.MealDBKey, http.DefaultClient),
		sources.NewSpoonacular(providerConfig.SpoonacularKey, http.DefaultClient),
		sources.NewUSDA(providerConfig.USDAKey, http.DefaultClient),
	}
	aggregator := sources.NewAggregator(providers, agentConfig.ProviderTimeout)

	// Bedrock Converse has no embedding surface here; similarity degrades to
	// zero and coverage plus nutrient emphasis carry the relevance cut.
	scorer := ranking.NewScorer(nil, agentConfig.EmbedTimeout)

	analyzer, err := agent.NewAnalyzer(llmClient, agentConfig.LLMTimeout)
	if err != nil {
		slog.Error("SETUP: Failed to create analyzer", "error", err)
		return
	}
	reranker := agent.NewReranker(llmClient, agentConfig.LLMTimeout)

	tracerProvider, meterProvider, otelShutdown, err := recipeagent.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	tracer := tracerProvider.Tracer(recipeagent.TracerNameBedrock)
	meter := meterProvider.Meter(recipeagent.TracerNameBedrock)

	ctx, span := tracer.Start(ctx, recipeagent.TracerNameBedrock, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
		attribute.Float64("model.temperature", float64(modelConfig.Temperature)),
		attribute.Float64("model.top_p", float64(modelConfig.TopP)),
	))
	defer span.End()

	orchestrator := agent.NewInstrumentedOrchestrator(
		agent.NewOrchestrator(
			aggregator,
			scorer,
			analyzer,
			reranker,
			store,
			recipeagent.NewStdoutTurnLogger(),
			providerConfig,
			agentConfig,
		),
		tracer,
		meter,
	)

	username := argOr(1, "demo")
	message := argOr(2, "Suggest high protein vegan dinners with chickpeas.")

	result, err := orchestrator.HandleMessage(ctx, username, message, nil)
	if err != nil {
		slog.Error("FAILURE: Error handling message", "error", err)
		return
	}

	for i, r := range result.Recipes {
		fmt.Printf("%d. %s (%s)\n", i+1, r.Name, r.ID)
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"recipeagent"
	"recipeagent/agent"
	"recipeagent/agent/storage"
	"recipeagent/llm/ollama"
	"recipeagent/ranking"
	"recipeagent/slack"
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

	store, err := storage.NewFileProfileStore(agentConfig.ProfileStorePath)
	if err != nil {
		slog.Error("SETUP: Failed to create profile store", "error", err)
		return
	}

	turnLogger, cleanup, err := newTurnLogger(modelConfig.ModelID)
	if err != nil {
		slog.Error("SETUP: Failed to create turn logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush turn log", "error", err)
		}
	}()

	llmClient, err := ollama.NewClient(ollama.ClientOpts{
		BaseEndpoint: agentConfig.BaseOllamaEndpoint,
		ModelID:      modelConfig.ModelID,
		EmbedModelID: modelConfig.EmbedModel,
		HTTPClient:   http.DefaultClient,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create LLM client", "error", err)
		return
	}

	providers := []sources.Provider{
		sources.NewMealDB(providerConfig.MealDBKey, http.DefaultClient),
		sources.NewSpoonacular(providerConfig.SpoonacularKey, http.DefaultClient),
		sources.NewUSDA(providerConfig.USDAKey, http.DefaultClient),
	}
	aggregator := sources.NewAggregator(providers, agentConfig.ProviderTimeout)

	scorer := ranking.NewScorer(llmClient, agentConfig.EmbedTimeout)

	analyzer, err := agent.NewAnalyzer(llmClient, agentConfig.LLMTimeout)
	if err != nil {
		slog.Error("SETUP: Failed to create analyzer", "error", err)
		return
	}
	reranker := agent.NewReranker(llmClient, agentConfig.LLMTimeout)

	orchestrator := agent.NewOrchestrator(
		aggregator,
		scorer,
		analyzer,
		reranker,
		store,
		turnLogger,
		providerConfig,
		agentConfig,
	)

	username := argOr(1, "demo")
	message := argOr(2, "Suggest high protein vegan dinners with chickpeas.")

	result, err := orchestrator.HandleMessage(ctx, username, message, nil)
	if err != nil {
		slog.Error("FAILURE: Error handling message", "error", err)
		return
	}

	slog.Info("Turn complete",
		"mode", result.Mode,
		"outcome", result.Outcome,
		"recipes", len(result.Recipes),
		"save_ok", result.SaveStatus.OK,
	)
	for i, r := range result.Recipes {
		fmt.Printf("%d. %s (%s)\n", i+1, r.Name, r.ID)
	}
	if os.Getenv("DEBUG_DUMP") != "" {
		recipeagent.Dump(result)
	}

	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		slackClient := slack.NewClient(webhook, http.DefaultClient)
		if err := slackClient.PostRecommendations(ctx, "#general", username, result.Recipes); err != nil {
			slog.Error("Failed to post recommendations to Slack", "error", err)
		}
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newTurnLogger(modelID string) (recipeagent.TurnLogger, func() error, error) {
	logFilePath := recipeagent.NewTurnLogFilePath(modelID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := recipeagent.NewFileTurnLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}

package recipeagent

import "time"

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	EmbedModel  string  `env:"EMBED_MODEL,default=nomic-embed-text"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

// ProviderConfig holds recipe/nutrition source credentials. A provider with an
// empty credential is disabled. TheMealDB's free tier uses the literal key "1".
type ProviderConfig struct {
	MealDBKey      string `env:"MEALDB_API_KEY,default=1"`
	SpoonacularKey string `env:"SPOONACULAR_API_KEY,default="`
	USDAKey        string `env:"USDA_API_KEY,default="`
	PageSize       int    `env:"PROVIDER_PAGE_SIZE,default=10"`
}

type AgentConfig struct {
	ProfileStorePath   string        `env:"PROFILE_STORE_PATH,default=artifacts/profiles.json"`
	BaseOllamaEndpoint string        `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT,default=10s"`
	EmbedTimeout       time.Duration `env:"EMBED_TIMEOUT,default=10s"`
	LLMTimeout         time.Duration `env:"LLM_TIMEOUT,default=30s"`
	RelevanceTopK      int           `env:"RELEVANCE_TOP_K,default=20"`
	MaxResults         int           `env:"MAX_RESULTS,default=10"`
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Chat     ChatConfig
	Identity IdentityConfig
}

type AppConfig struct {
	Environment string `validate:"required"`
	LogFilePath string `validate:"required"`
}

type BackendConfig struct {
	BaseURL             string `validate:"required,url"`
	BuildTimeoutSeconds int    `validate:"gt=0"`
}

type ChatConfig struct {
	Model           string `validate:"required"`
	SummarizerModel string
	SystemPrompt    string `validate:"required"`
	UseMemory       bool
	StagingEnabled  bool
}

type IdentityConfig struct {
	DisplayName string
	Workspace   string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "localmind-client.log"),
		},
		Backend: BackendConfig{
			BaseURL:             getEnv("BACKEND_BASE_URL", "http://localhost:8000"),
			BuildTimeoutSeconds: getEnvAsInt("BUILD_TIMEOUT_SECONDS", 60),
		},
		Chat: ChatConfig{
			Model:           getEnv("CHAT_MODEL", "qwen2:7b-instruct"),
			SummarizerModel: getEnv("SUMMARIZER_MODEL", "qwen2.5:0.5b-instruct"),
			SystemPrompt:    getEnv("SYSTEM_PROMPT", "You are a helpful local assistant."),
			UseMemory:       getEnvAsBool("USE_MEMORY", true),
			StagingEnabled:  getEnvAsBool("STAGING_ENABLED", true),
		},
		Identity: IdentityConfig{
			DisplayName: getEnv("IDENTITY_DISPLAY_NAME", "Guest"),
			Workspace:   getEnv("IDENTITY_WORKSPACE", "Guest Workspace"),
		},
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	return cfg
}

// Validate rejects environment overrides that would break the client,
// like a blank backend URL or a non-positive build timeout.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

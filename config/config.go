package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Port        string
	Environment string

	// Redis (optional; the conversation index falls back to memory)
	RedisURL string

	// Routing policy
	InternalDomain  string
	IntakeAddress   string
	TicketingDomain string
	PersonalDomains []string

	// Destination collections (ticketing project ids)
	InboxCollectionID    string
	ClientsCollectionID  string
	ExternalCollectionID string

	// Conversation index
	RetentionDays int

	// OpenAI
	OpenAIAPIKey   string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Linear
	LinearAPIKey   string
	LinearEndpoint string
	LinearTeamID   string

	// Slack
	SlackWebhookURL string

	// CORS
	AllowedOrigins []string
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		RedisURL: getEnv("REDIS_URL", ""),

		InternalDomain:  getEnv("INTERNAL_DOMAIN", "weapply.se"),
		IntakeAddress:   getEnv("INTAKE_ADDRESS", "pm@weapply.se"),
		TicketingDomain: getEnv("TICKETING_DOMAIN", "linear.app"),
		PersonalDomains: getEnvSlice("PERSONAL_DOMAINS", nil),

		InboxCollectionID:    getEnv("INBOX_COLLECTION_ID", ""),
		ClientsCollectionID:  getEnv("CLIENTS_COLLECTION_ID", ""),
		ExternalCollectionID: getEnv("EXTERNAL_COLLECTION_ID", ""),

		RetentionDays: getEnvInt("CONVERSATION_RETENTION_DAYS", 7),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.3),

		LinearAPIKey:   getEnv("LINEAR_API_KEY", ""),
		LinearEndpoint: getEnv("LINEAR_ENDPOINT", ""),
		LinearTeamID:   getEnv("LINEAR_TEAM_ID", ""),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

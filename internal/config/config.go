// Package config loads all settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ideaforge/adapters/llm"
	"ideaforge/internal/retry"
	"ideaforge/ports"
)

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Pipeline PipelineConfig
	Roles    RolesConfig
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Port    string // gin front door
	OpsPort string // chi ops router (health, pprof)
	GinMode string
}

// DatabaseConfig holds the profile store connection settings.
type DatabaseConfig struct {
	URL string
}

// PipelineConfig holds run-level pipeline knobs.
type PipelineConfig struct {
	DefaultIdeaCount int
	MaxIdeaCount     int
	RunTimeout       time.Duration
	MaxInFlight      int64
	Retry            retry.Policy
	ReportDir        string
}

// RoleBinding names the primary and optional fallback provider for one role.
type RoleBinding struct {
	Provider string
	Fallback string
}

// RolesConfig assigns a provider binding to each model role.
type RolesConfig struct {
	Generator RoleBinding
	Refiner   RoleBinding
	Evaluator RoleBinding

	Providers map[string]llm.Config
}

// Load reads configuration from the environment. A .env file is honored
// when present.
func Load() (*Config, error) {
	// Missing .env is fine; the system environment wins anyway.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			OpsPort: getEnv("OPS_PORT", "8081"),
			GinMode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Pipeline: PipelineConfig{
			DefaultIdeaCount: getEnvInt("DEFAULT_IDEA_COUNT", 5),
			MaxIdeaCount:     getEnvInt("MAX_IDEA_COUNT", 20),
			RunTimeout:       getEnvDuration("RUN_TIMEOUT", 5*time.Minute),
			MaxInFlight:      int64(getEnvInt("MAX_IN_FLIGHT", 4)),
			Retry: retry.Policy{
				MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
				BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
				MaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 8*time.Second),
			},
			ReportDir: getEnv("REPORT_DIR", "./reports"),
		},
		Roles: RolesConfig{
			Generator: RoleBinding{
				Provider: getEnv("GENERATOR_PROVIDER", llm.ProviderDoubao),
				Fallback: getEnv("GENERATOR_FALLBACK", ""),
			},
			Refiner: RoleBinding{
				Provider: getEnv("REFINER_PROVIDER", llm.ProviderOpenAI),
				Fallback: getEnv("REFINER_FALLBACK", ""),
			},
			Evaluator: RoleBinding{
				Provider: getEnv("EVALUATOR_PROVIDER", llm.ProviderGemini),
				Fallback: getEnv("EVALUATOR_FALLBACK", ""),
			},
			Providers: map[string]llm.Config{
				llm.ProviderDoubao: {
					Provider:    llm.ProviderDoubao,
					APIKey:      getEnv("DOUBAO_API_KEY", ""),
					BaseURL:     getEnv("DOUBAO_BASE_URL", ""),
					Model:       getEnv("DOUBAO_MODEL", "doubao-pro-32k"),
					Temperature: getEnvFloat("DOUBAO_TEMPERATURE", 0.7),
					MaxTokens:   getEnvInt("DOUBAO_MAX_TOKENS", 1024),
					Timeout:     getEnvDuration("DOUBAO_TIMEOUT", 60*time.Second),
				},
				llm.ProviderOpenAI: {
					Provider:    llm.ProviderOpenAI,
					APIKey:      getEnv("OPENAI_API_KEY", ""),
					BaseURL:     getEnv("OPENAI_BASE_URL", ""),
					Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
					Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
					MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 1024),
					Timeout:     getEnvDuration("OPENAI_TIMEOUT", 60*time.Second),
				},
				llm.ProviderGemini: {
					Provider:    llm.ProviderGemini,
					APIKey:      getEnv("GEMINI_API_KEY", ""),
					BaseURL:     getEnv("GEMINI_BASE_URL", ""),
					Model:       getEnv("GEMINI_MODEL", "gemini-pro"),
					Temperature: getEnvFloat("GEMINI_TEMPERATURE", 0.7),
					MaxTokens:   getEnvInt("GEMINI_MAX_TOKENS", 1024),
					Timeout:     getEnvDuration("GEMINI_TIMEOUT", 60*time.Second),
				},
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every configured role has a usable provider.
func (c *Config) Validate() error {
	roles := map[ports.Role]RoleBinding{
		ports.RoleGenerator: c.Roles.Generator,
		ports.RoleRefiner:   c.Roles.Refiner,
		ports.RoleEvaluator: c.Roles.Evaluator,
	}
	for role, binding := range roles {
		pc, ok := c.Roles.Providers[binding.Provider]
		if !ok {
			return fmt.Errorf("role %s: unknown provider %q", role, binding.Provider)
		}
		if pc.APIKey == "" {
			return fmt.Errorf("role %s: provider %q has no API key configured", role, binding.Provider)
		}
		if binding.Fallback != "" {
			fc, ok := c.Roles.Providers[binding.Fallback]
			if !ok {
				return fmt.Errorf("role %s: unknown fallback provider %q", role, binding.Fallback)
			}
			if fc.APIKey == "" {
				return fmt.Errorf("role %s: fallback provider %q has no API key configured", role, binding.Fallback)
			}
		}
	}
	if c.Pipeline.MaxIdeaCount < c.Pipeline.DefaultIdeaCount {
		return fmt.Errorf("MAX_IDEA_COUNT (%d) below DEFAULT_IDEA_COUNT (%d)",
			c.Pipeline.MaxIdeaCount, c.Pipeline.DefaultIdeaCount)
	}
	return nil
}

// ProviderConfig returns the binding config for a provider name.
func (c *Config) ProviderConfig(name string) (llm.Config, bool) {
	pc, ok := c.Roles.Providers[name]
	return pc, ok
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

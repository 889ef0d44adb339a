package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	CloudName    string
	CloudAPIKey  string
	CloudSecret  string
	UploadFolder string

	StatsCacheTTL time.Duration

	// CompleteFinalLevel controls the end-of-stage policy: when true, an
	// approved promotion with no destination level is marked completed
	// instead of staying at approved.
	CompleteFinalLevel bool

	AIProvider      string
	OpenAIAPIKey    string
	AnthropicAPIKey string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SMARTEDU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SmartEdu API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloud.folder", "smartedu/resources")
	v.SetDefault("promotions.stats_cache_ttl", "5m")
	v.SetDefault("promotions.complete_final_level", false)
	v.SetDefault("ai.provider", "openai")

	ttlString := v.GetString("promotions.stats_cache_ttl")
	if ttlString == "" {
		ttlString = "5m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid promotion stats cache ttl: %w", err)
	}

	cfg := Config{
		AppName:            v.GetString("app.name"),
		AppEnv:             v.GetString("app.env"),
		AppPort:            v.GetString("app.port"),
		DatabaseURL:        v.GetString("database.url"),
		RedisURL:           v.GetString("redis.url"),
		NATSURL:            v.GetString("nats.url"),
		JWTSecret:          v.GetString("jwt.secret"),
		CloudName:          v.GetString("cloud.name"),
		CloudAPIKey:        v.GetString("cloud.api_key"),
		CloudSecret:        v.GetString("cloud.api_secret"),
		UploadFolder:       v.GetString("cloud.folder"),
		StatsCacheTTL:      ttl,
		CompleteFinalLevel: v.GetBool("promotions.complete_final_level"),
		AIProvider:         strings.ToLower(v.GetString("ai.provider")),
		OpenAIAPIKey:       v.GetString("openai_api_key"),
		AnthropicAPIKey:    v.GetString("anthropic_api_key"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

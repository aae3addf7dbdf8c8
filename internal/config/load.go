package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables use the
// CARDVAULT_ prefix with underscores for nesting (e.g.
// CARDVAULT_SERVER_PORT) and take precedence over file values.
// Returns a populated Config struct or an error if loading or validation
// fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARDVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; environment variables carry the load.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("storage.intake_dir", "data/intake")
	v.SetDefault("storage.pending_dir", "data/pending")
	v.SetDefault("storage.archive_dir", "data/verified")
	v.SetDefault("storage.history_dir", "data/history")
	v.SetDefault("storage.state_dir", "data/state")
	v.SetDefault("auth.token_lifetime_minutes", 720)
	v.SetDefault("extractor.model_name", "gemini-2.0-flash")
	v.SetDefault("extractor.prompt_template_path", "prompts/extract_cards.tmpl")
	v.SetDefault("extractor.max_retries", 3)
	v.SetDefault("extractor.retry_delay_seconds", 2)
	v.SetDefault("batch.default_count", 10)
}

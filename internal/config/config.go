package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Extractor ExtractorConfig `mapstructure:"extractor" validate:"required"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Learning  LearningConfig  `mapstructure:"learning"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all catalog database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// StorageConfig names the directories of the durable on-disk layout. The
// layout is shared with the extraction tooling and must stay compatible:
// intake holds raw multi-card scans, pending holds one JSON sidecar plus
// one image per unit of verification work (with per-card back crops under
// a backs subdirectory), archive mirrors pending for verified images, and
// history holds one log file per pending image ID.
type StorageConfig struct {
	IntakeDir  string `mapstructure:"intake_dir"  validate:"required"`
	PendingDir string `mapstructure:"pending_dir" validate:"required"`
	ArchiveDir string `mapstructure:"archive_dir" validate:"required"`
	HistoryDir string `mapstructure:"history_dir" validate:"required"`
	StateDir   string `mapstructure:"state_dir"   validate:"required"`
}

// AuthConfig contains operator authentication settings. PasswordHash is a
// bcrypt hash of the operator password; JWTSecret signs session tokens.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	PasswordHash         string `mapstructure:"password_hash"          validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gte=0"`
}

// ExtractorConfig contains AI vision extraction settings.
type ExtractorConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string `mapstructure:"model_name"           validate:"required"`
	PromptTemplatePath string `mapstructure:"prompt_template_path" validate:"required"`
	MaxRetries         int    `mapstructure:"max_retries"          validate:"gte=0"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds"  validate:"gte=0"`
}

// BatchConfig tunes the background extraction sweep.
type BatchConfig struct {
	DefaultCount int `mapstructure:"default_count" validate:"gte=0"`
}

// LearningConfig configures the correction-learning hook. When URL is
// empty the hook is disabled.
type LearningConfig struct {
	URL string `mapstructure:"url"`
}

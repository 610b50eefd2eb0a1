package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gt=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
	BCryptCost           int    `mapstructure:"bcrypt_cost"            validate:"gte=4,lte=31"`
}

// LLMConfig contains the settings for the Gemini content generation client.
type LLMConfig struct {
	GeminiAPIKey       string  `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string  `mapstructure:"model_name"           validate:"required"`
	PromptDir          string  `mapstructure:"prompt_dir"`
	MaxRetries         int     `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	RetryDelaySeconds  int     `mapstructure:"retry_delay_seconds"  validate:"gte=1,lte=60"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"  validate:"gt=0"`
	Burst              int     `mapstructure:"burst"                validate:"gt=0"`
	CallTimeoutSeconds int     `mapstructure:"call_timeout_seconds" validate:"gt=0"`
}

// TaskConfig controls the asynchronous task engine.
type TaskConfig struct {
	// PoolSize bounds the number of concurrent outbound generation calls.
	PoolSize int `mapstructure:"pool_size"  validate:"gte=1,lte=64"`
	// QueueSize is the buffer of calls waiting for a free pool worker.
	QueueSize int `mapstructure:"queue_size" validate:"gt=0"`

	DefaultListLimit int `mapstructure:"default_list_limit" validate:"gt=0"`
	MaxListLimit     int `mapstructure:"max_list_limit"     validate:"gt=0,gtefield=DefaultListLimit"`

	// StuckTaskAgeMinutes is how long a running task may go without a
	// progress write before the reconciler treats it as orphaned.
	StuckTaskAgeMinutes           int  `mapstructure:"stuck_task_age_minutes"            validate:"gt=0"`
	StuckTaskCheckIntervalMinutes int  `mapstructure:"stuck_task_check_interval_minutes" validate:"gt=0"`
	SweepOnStartup                bool `mapstructure:"sweep_on_startup"`
}

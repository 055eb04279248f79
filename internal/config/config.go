package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Detector  DetectorConfig
	LLM       LLMConfig
	Telemetry TelemetryConfig
	Incident  IncidentConfig
	Redis     RedisConfig
	Snapshot  SnapshotConfig
	Logging   LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	Environment     string
	APIKey          string
	AllowedOrigins  []string
	RateLimitRPS    int
	RateLimitBurst  int
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// For SQLite
	Path string
}

// DetectorConfig contains anomaly detector configuration
type DetectorConfig struct {
	WindowSize  int
	MinPoints   int
	ZThreshold  float64
	EWMAAlpha   float64
	RecentLimit int
	Sev1ZScore  float64
	Sev2ZScore  float64
	RulesFile   string
}

// LLMConfig contains LLM gateway configuration
type LLMConfig struct {
	Provider        string // gemini, openai or echo
	GeminiAPIKey    string
	OpenAIAPIKey    string
	Model           string
	ContextWindow   int
	CostInputPer1K  float64
	CostOutputPer1K float64
	RequestTimeout  time.Duration
}

// TelemetryConfig contains metric forwarding configuration
type TelemetryConfig struct {
	DatadogAPIKey string
	DatadogSite   string
	FlushInterval time.Duration
	QueueSize     int
	ServiceName   string
}

// IncidentConfig contains incident creation configuration
type IncidentConfig struct {
	SeverityFloor   string
	Cooldown        time.Duration
	SlackWebhookURL string
	SlackChannel    string
}

// RedisConfig contains response cache configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	CacheTTL time.Duration
}

// SnapshotConfig contains baseline persistence configuration
type SnapshotConfig struct {
	Enabled        bool
	Schedule       string
	RestoreOnStart bool
	RetentionDays  int
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string
	Format     string // json or console
	OutputPath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			Environment:     getEnv("ENVIRONMENT", "development"),
			APIKey:          getEnv("API_KEY", ""),
			AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 200),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "llmwatch"),
			User:            getEnv("DB_USER", ""),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			Path:            getEnv("DB_PATH", "./llmwatch.db"),
		},
		Detector: DetectorConfig{
			WindowSize:  getEnvAsInt("DETECTOR_WINDOW_SIZE", 100),
			MinPoints:   getEnvAsInt("DETECTOR_MIN_POINTS", 10),
			ZThreshold:  getEnvAsFloat("DETECTOR_Z_THRESHOLD", 3.0),
			EWMAAlpha:   getEnvAsFloat("DETECTOR_EWMA_ALPHA", 0.1),
			RecentLimit: getEnvAsInt("DETECTOR_RECENT_LIMIT", 50),
			Sev1ZScore:  getEnvAsFloat("DETECTOR_SEV1_ZSCORE", 6.0),
			Sev2ZScore:  getEnvAsFloat("DETECTOR_SEV2_ZSCORE", 4.5),
			RulesFile:   getEnv("DETECTOR_RULES_FILE", ""),
		},
		LLM: LLMConfig{
			Provider:        getEnv("LLM_PROVIDER", "echo"),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			Model:           getEnv("LLM_MODEL", ""),
			ContextWindow:   getEnvAsInt("LLM_CONTEXT_WINDOW", 32000),
			CostInputPer1K:  getEnvAsFloat("LLM_COST_INPUT_PER_1K", 0.00025),
			CostOutputPer1K: getEnvAsFloat("LLM_COST_OUTPUT_PER_1K", 0.0005),
			RequestTimeout:  getEnvAsDuration("LLM_REQUEST_TIMEOUT", 60*time.Second),
		},
		Telemetry: TelemetryConfig{
			DatadogAPIKey: getEnv("DD_API_KEY", ""),
			DatadogSite:   getEnv("DD_SITE", "datadoghq.com"),
			FlushInterval: getEnvAsDuration("TELEMETRY_FLUSH_INTERVAL", 10*time.Second),
			QueueSize:     getEnvAsInt("TELEMETRY_QUEUE_SIZE", 1000),
			ServiceName:   getEnv("TELEMETRY_SERVICE_NAME", "llmwatch"),
		},
		Incident: IncidentConfig{
			SeverityFloor:   getEnv("INCIDENT_SEVERITY_FLOOR", "SEV-2"),
			Cooldown:        getEnvAsDuration("INCIDENT_COOLDOWN", 10*time.Minute),
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", "#llm-incidents"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Snapshot: SnapshotConfig{
			Enabled:        getEnvAsBool("SNAPSHOT_ENABLED", true),
			Schedule:       getEnv("SNAPSHOT_SCHEDULE", "@hourly"),
			RestoreOnStart: getEnvAsBool("SNAPSHOT_RESTORE_ON_START", true),
			RetentionDays:  getEnvAsInt("RETENTION_DAYS", 30),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "json"),
			OutputPath: getEnv("LOG_OUTPUT", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	switch c.LLM.Provider {
	case "gemini", "openai", "echo":
	default:
		return fmt.Errorf("unsupported llm provider: %s", c.LLM.Provider)
	}

	d := c.Detector
	if d.WindowSize < 1 {
		return fmt.Errorf("detector window size must be positive, got %d", d.WindowSize)
	}
	if d.MinPoints < 1 || d.MinPoints > d.WindowSize {
		return fmt.Errorf("detector min points must be in [1, window size], got %d", d.MinPoints)
	}
	if d.ZThreshold <= 0 {
		return fmt.Errorf("detector z threshold must be positive, got %v", d.ZThreshold)
	}
	if d.EWMAAlpha <= 0 || d.EWMAAlpha > 1 {
		return fmt.Errorf("detector ewma alpha must be in (0, 1], got %v", d.EWMAAlpha)
	}
	if d.Sev2ZScore < d.ZThreshold || d.Sev1ZScore < d.Sev2ZScore {
		return fmt.Errorf("severity boundaries must satisfy threshold <= sev2 <= sev1")
	}

	switch c.Incident.SeverityFloor {
	case "SEV-1", "SEV-2", "SEV-3":
	default:
		return fmt.Errorf("invalid incident severity floor: %s", c.Incident.SeverityFloor)
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

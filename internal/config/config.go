package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	DB            DBConfig
	Auth          AuthConfig
	S3            S3Config
	Log           LogConfig
	Understanding UnderstandingConfig
	Confidence    ConfidenceConfig
	CORS          CORSConfig
	Batch         BatchConfig
	Notify        NotifyConfig
}

// NotifyConfig holds handoff notification settings.
type NotifyConfig struct {
	Provider    string `mapstructure:"provider"`
	Region      string `mapstructure:"region"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	ToAddress   string `mapstructure:"to_address"`
}

// BatchConfig holds batch extraction settings.
type BatchConfig struct {
	Concurrency      int `mapstructure:"concurrency"`
	MaxConversations int `mapstructure:"max_conversations"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ProviderConfig holds settings for a single understanding provider.
type ProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	BaseURL      string `mapstructure:"base_url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`

	// RateLimit caps outgoing requests per second; 0 disables client-side throttling.
	RateLimit float64 `mapstructure:"rate_limit"`
}

// UnderstandingConfig selects the language-model providers behind the extraction step.
// Mode is "fallback" (try providers in order) or "merge" (run primary and secondary together).
type UnderstandingConfig struct {
	Mode        string `mapstructure:"mode"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`

	Primary   ProviderConfig `mapstructure:"primary"`
	Secondary ProviderConfig `mapstructure:"secondary"`
	Tertiary  ProviderConfig `mapstructure:"tertiary"`
}

// Timeout returns the per-pass deadline for the understanding call.
func (u *UnderstandingConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSecs) * time.Second
}

// SecondaryConfig returns the secondary provider config, or nil if not configured.
func (u *UnderstandingConfig) SecondaryConfig() *ProviderConfig {
	if u.Secondary.Provider != "" {
		return &u.Secondary
	}
	return nil
}

// TertiaryConfig returns the tertiary provider config, or nil if not configured.
func (u *UnderstandingConfig) TertiaryConfig() *ProviderConfig {
	if u.Tertiary.Provider != "" {
		return &u.Tertiary
	}
	return nil
}

// BandConfig is one evidence-strength confidence band.
type BandConfig struct {
	Min          float64 `mapstructure:"min"`
	Max          float64 `mapstructure:"max"`
	Default      float64 `mapstructure:"default"`
	MaxExclusive bool    `mapstructure:"max_exclusive"`
}

// ConfidenceConfig holds the calibration table. The "none" band is fixed at 0.
type ConfidenceConfig struct {
	Explicit    BandConfig `mapstructure:"explicit"`
	Implied     BandConfig `mapstructure:"implied"`
	Inferred    BandConfig `mapstructure:"inferred"`
	Speculative BandConfig `mapstructure:"speculative"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// AuthConfig holds service-token settings. An empty secret disables authentication.
type AuthConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// S3Config holds record archive settings. An empty bucket disables archiving.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables with the ARIA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "ARIA_SERVER_PORT",
		"server.read_timeout":        "ARIA_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "ARIA_SERVER_WRITE_TIMEOUT",
		"server.environment":         "ARIA_SERVER_ENVIRONMENT",
		"db.host":                    "ARIA_DB_HOST",
		"db.port":                    "ARIA_DB_PORT",
		"db.user":                    "ARIA_DB_USER",
		"db.password":                "ARIA_DB_PASSWORD",
		"db.name":                    "ARIA_DB_NAME",
		"db.sslmode":                 "ARIA_DB_SSLMODE",
		"db.max_open":                "ARIA_DB_MAX_OPEN",
		"db.max_idle":                "ARIA_DB_MAX_IDLE",
		"auth.secret":                "ARIA_AUTH_SECRET",
		"auth.issuer":                "ARIA_AUTH_ISSUER",
		"s3.region":                  "ARIA_S3_REGION",
		"s3.bucket":                  "ARIA_S3_BUCKET",
		"s3.endpoint":                "ARIA_S3_ENDPOINT",
		"s3.access_key":              "ARIA_S3_ACCESS_KEY",
		"s3.secret_key":              "ARIA_S3_SECRET_KEY",
		"s3.prefix":                  "ARIA_S3_PREFIX",
		"log.level":                  "ARIA_LOG_LEVEL",
		"log.format":                 "ARIA_LOG_FORMAT",
		"cors.allowed_origins":       "ARIA_CORS_ALLOWED_ORIGINS",
		"batch.concurrency":          "ARIA_BATCH_CONCURRENCY",
		"batch.max_conversations":    "ARIA_BATCH_MAX_CONVERSATIONS",
		"notify.provider":            "ARIA_NOTIFY_PROVIDER",
		"notify.region":              "ARIA_NOTIFY_REGION",
		"notify.from_address":        "ARIA_NOTIFY_FROM_ADDRESS",
		"notify.from_name":           "ARIA_NOTIFY_FROM_NAME",
		"notify.to_address":          "ARIA_NOTIFY_TO_ADDRESS",
		"understanding.mode":         "ARIA_UNDERSTANDING_MODE",
		"understanding.timeout_secs": "ARIA_UNDERSTANDING_TIMEOUT_SECS",
	}
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		for _, key := range []string{"provider", "api_key", "default_model", "base_url", "max_retries", "timeout_secs", "rate_limit"} {
			path := "understanding." + tier + "." + key
			envBindings[path] = "ARIA_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
		}
	}
	for _, band := range []string{"explicit", "implied", "inferred", "speculative"} {
		for _, key := range []string{"min", "max", "default", "max_exclusive"} {
			path := "confidence." + band + "." + key
			envBindings[path] = "ARIA_" + strings.ToUpper(strings.ReplaceAll(path, ".", "_"))
		}
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set PORT. Use it if ARIA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ARIA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Auth = AuthConfig{
		Secret: v.GetString("auth.secret"),
		Issuer: v.GetString("auth.issuer"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		Prefix:    v.GetString("s3.prefix"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	cfg.Batch = BatchConfig{
		Concurrency:      v.GetInt("batch.concurrency"),
		MaxConversations: v.GetInt("batch.max_conversations"),
	}
	cfg.Notify = NotifyConfig{
		Provider:    v.GetString("notify.provider"),
		Region:      v.GetString("notify.region"),
		FromAddress: v.GetString("notify.from_address"),
		FromName:    v.GetString("notify.from_name"),
		ToAddress:   v.GetString("notify.to_address"),
	}
	cfg.Understanding = UnderstandingConfig{
		Mode:        v.GetString("understanding.mode"),
		TimeoutSecs: v.GetInt("understanding.timeout_secs"),
		Primary:     providerConfig(v, "understanding.primary"),
		Secondary:   providerConfig(v, "understanding.secondary"),
		Tertiary:    providerConfig(v, "understanding.tertiary"),
	}
	cfg.Confidence = ConfidenceConfig{
		Explicit:    bandConfig(v, "confidence.explicit"),
		Implied:     bandConfig(v, "confidence.implied"),
		Inferred:    bandConfig(v, "confidence.inferred"),
		Speculative: bandConfig(v, "confidence.speculative"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "aria")
	v.SetDefault("db.password", "aria_secret")
	v.SetDefault("db.name", "aria_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Auth defaults (empty secret disables service-token checks)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "aria")

	// S3 defaults (empty bucket disables archiving)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.prefix", "extractions")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.max_conversations", 50)

	// Notify defaults
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("notify.region", "us-east-1")
	v.SetDefault("notify.from_address", "noreply@aria.local")
	v.SetDefault("notify.from_name", "ARIA")
	v.SetDefault("notify.to_address", "")

	// Understanding defaults
	v.SetDefault("understanding.mode", "fallback")
	v.SetDefault("understanding.timeout_secs", 60)
	v.SetDefault("understanding.primary.provider", "claude")
	v.SetDefault("understanding.primary.default_model", "claude-sonnet-4-20250514")
	for _, tier := range []string{"primary", "secondary", "tertiary"} {
		v.SetDefault("understanding."+tier+".max_retries", 2)
		v.SetDefault("understanding."+tier+".timeout_secs", 60)
	}

	// Confidence bands
	v.SetDefault("confidence.explicit.min", 0.9)
	v.SetDefault("confidence.explicit.max", 1.0)
	v.SetDefault("confidence.explicit.default", 0.95)
	v.SetDefault("confidence.implied.min", 0.7)
	v.SetDefault("confidence.implied.max", 0.9)
	v.SetDefault("confidence.implied.default", 0.8)
	v.SetDefault("confidence.implied.max_exclusive", true)
	v.SetDefault("confidence.inferred.min", 0.4)
	v.SetDefault("confidence.inferred.max", 0.6)
	v.SetDefault("confidence.inferred.default", 0.5)
	v.SetDefault("confidence.speculative.min", 0.1)
	v.SetDefault("confidence.speculative.max", 0.3)
	v.SetDefault("confidence.speculative.default", 0.2)
}

func providerConfig(v *viper.Viper, prefix string) ProviderConfig {
	return ProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		BaseURL:      v.GetString(prefix + ".base_url"),
		MaxRetries:   v.GetInt(prefix + ".max_retries"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
		RateLimit:    v.GetFloat64(prefix + ".rate_limit"),
	}
}

func bandConfig(v *viper.Viper, prefix string) BandConfig {
	return BandConfig{
		Min:          v.GetFloat64(prefix + ".min"),
		Max:          v.GetFloat64(prefix + ".max"),
		Default:      v.GetFloat64(prefix + ".default"),
		MaxExclusive: v.GetBool(prefix + ".max_exclusive"),
	}
}

func (c *Config) validate() error {
	switch c.Understanding.Mode {
	case "fallback", "merge":
	default:
		return fmt.Errorf("config: understanding.mode must be fallback or merge, got %q", c.Understanding.Mode)
	}
	if c.Understanding.Mode == "merge" && c.Understanding.SecondaryConfig() == nil {
		return fmt.Errorf("config: understanding.mode=merge requires a secondary provider")
	}
	if c.Understanding.TimeoutSecs <= 0 {
		return fmt.Errorf("config: understanding.timeout_secs must be positive")
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("config: batch.concurrency must be positive")
	}
	return nil
}

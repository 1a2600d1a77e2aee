package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "AGROFIN"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	S3        S3Config
	Log       LogConfig
	LLM       LLMConfig
	Upload    UploadConfig
	Extractor ExtractorConfig
	Pipeline  PipelineConfig
	Email     EmailConfig
	CORS      CORSConfig
	Batch     BatchConfig
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

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTokenExpiry time.Duration `mapstructure:"access_expiry"`
}

// S3Config holds settings for the invoice archive bucket.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
}

// Enabled reports whether an archive bucket is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LLMProviderConfig holds settings for a single generation provider.
type LLMProviderConfig struct {
	Provider     string `mapstructure:"provider"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	MaxRetries   int    `mapstructure:"max_retries"`
	TimeoutSecs  int    `mapstructure:"timeout_secs"`
}

// LLMConfig lists generation providers in fallback order.
type LLMConfig struct {
	Primary   LLMProviderConfig `mapstructure:"primary"`
	Secondary LLMProviderConfig `mapstructure:"secondary"`
	Tertiary  LLMProviderConfig `mapstructure:"tertiary"`
}

// Providers returns the configured providers in fallback order. Entries
// without a provider name are skipped.
func (c *LLMConfig) Providers() []*LLMProviderConfig {
	var out []*LLMProviderConfig
	for _, p := range []*LLMProviderConfig{&c.Primary, &c.Secondary, &c.Tertiary} {
		if p.Provider != "" {
			out = append(out, p)
		}
	}
	return out
}

// UploadConfig holds limits for uploaded documents.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// MaxBytes returns the upload limit in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// ExtractorConfig holds PDF text extraction settings.
type ExtractorConfig struct {
	PdftotextPath string `mapstructure:"pdftotext_path"`
	TimeoutSecs   int    `mapstructure:"timeout_secs"`
}

// PipelineConfig holds extraction pipeline settings.
type PipelineConfig struct {
	PayloadLogLimit        int  `mapstructure:"payload_log_limit"`
	StrictInstallmentCount bool `mapstructure:"strict_installment_count"`
}

// EmailConfig holds email delivery settings.
type EmailConfig struct {
	Provider         string   `mapstructure:"provider"`
	Region           string   `mapstructure:"region"`
	FromAddress      string   `mapstructure:"from_address"`
	FromName         string   `mapstructure:"from_name"`
	ReviewRecipients []string `mapstructure:"review_recipients"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BatchConfig holds settings for concurrent batch extraction.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

var defaults = map[string]any{
	"server.port":          ":8080",
	"server.read_timeout":  "30s",
	"server.write_timeout": "120s",
	"server.environment":   "development",

	"db.host":     "localhost",
	"db.port":     5432,
	"db.user":     "agrofin",
	"db.password": "agrofin_secret",
	"db.name":     "agrofin_db",
	"db.sslmode":  "disable",
	"db.max_open": 25,
	"db.max_idle": 10,

	"jwt.secret":        "change-me-in-production",
	"jwt.issuer":        "agrofin",
	"jwt.access_expiry": "1h",

	"s3.region":         "sa-east-1",
	"s3.bucket":         "",
	"s3.endpoint":       "",
	"s3.access_key":     "",
	"s3.secret_key":     "",
	"s3.presign_expiry": 3600,

	"log.level":  "info",
	"log.format": "console",

	"llm.primary.provider":        "gemini",
	"llm.primary.api_key":         "",
	"llm.primary.default_model":   "gemini-2.0-flash",
	"llm.primary.max_retries":     2,
	"llm.primary.timeout_secs":    120,
	"llm.secondary.provider":      "",
	"llm.secondary.api_key":       "",
	"llm.secondary.default_model": "",
	"llm.secondary.max_retries":   2,
	"llm.secondary.timeout_secs":  120,
	"llm.tertiary.provider":       "",
	"llm.tertiary.api_key":        "",
	"llm.tertiary.default_model":  "",
	"llm.tertiary.max_retries":    2,
	"llm.tertiary.timeout_secs":   120,

	"upload.max_file_size_mb": 10,

	"extractor.pdftotext_path": "pdftotext",
	"extractor.timeout_secs":   30,

	"pipeline.payload_log_limit":        512,
	"pipeline.strict_installment_count": false,

	"email.provider":          "noop",
	"email.region":            "sa-east-1",
	"email.from_address":      "noreply@agrofin.local",
	"email.from_name":         "Agrofin",
	"email.review_recipients": "",

	"cors.allowed_origins": "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173",

	"batch.concurrency": 4,
}

// envName maps a config key to its environment variable, e.g.
// "llm.primary.api_key" to "AGROFIN_LLM_PRIMARY_API_KEY".
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Load reads configuration from environment variables with the AGROFIN_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key, envName(key)); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := &Config{}

	// Hosting platforms set PORT. Use it unless the server port is explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv(envName("server.port")) == "" {
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
	cfg.JWT = JWTConfig{
		Secret:            v.GetString("jwt.secret"),
		Issuer:            v.GetString("jwt.issuer"),
		AccessTokenExpiry: v.GetDuration("jwt.access_expiry"),
	}
	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.LLM = LLMConfig{
		Primary:   providerConfig(v, "llm.primary"),
		Secondary: providerConfig(v, "llm.secondary"),
		Tertiary:  providerConfig(v, "llm.tertiary"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}
	cfg.Extractor = ExtractorConfig{
		PdftotextPath: v.GetString("extractor.pdftotext_path"),
		TimeoutSecs:   v.GetInt("extractor.timeout_secs"),
	}
	cfg.Pipeline = PipelineConfig{
		PayloadLogLimit:        v.GetInt("pipeline.payload_log_limit"),
		StrictInstallmentCount: v.GetBool("pipeline.strict_installment_count"),
	}
	cfg.Email = EmailConfig{
		Provider:         v.GetString("email.provider"),
		Region:           v.GetString("email.region"),
		FromAddress:      v.GetString("email.from_address"),
		FromName:         v.GetString("email.from_name"),
		ReviewRecipients: splitList(v.GetString("email.review_recipients")),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Batch = BatchConfig{
		Concurrency: v.GetInt("batch.concurrency"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func providerConfig(v *viper.Viper, prefix string) LLMProviderConfig {
	return LLMProviderConfig{
		Provider:     v.GetString(prefix + ".provider"),
		APIKey:       v.GetString(prefix + ".api_key"),
		DefaultModel: v.GetString(prefix + ".default_model"),
		MaxRetries:   v.GetInt(prefix + ".max_retries"),
		TimeoutSecs:  v.GetInt(prefix + ".timeout_secs"),
	}
}

func (c *Config) validate() error {
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive, got %d", c.Upload.MaxFileSizeMB)
	}
	if c.Pipeline.PayloadLogLimit < 0 {
		return fmt.Errorf("pipeline.payload_log_limit must not be negative, got %d", c.Pipeline.PayloadLogLimit)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	return nil
}

// splitList parses a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

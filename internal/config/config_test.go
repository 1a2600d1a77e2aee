package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrofin/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "gemini", cfg.LLM.Primary.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.Primary.DefaultModel)
	assert.Equal(t, int64(10), cfg.Upload.MaxFileSizeMB)
	assert.Equal(t, int64(10*1024*1024), cfg.Upload.MaxBytes())
	assert.Equal(t, "pdftotext", cfg.Extractor.PdftotextPath)
	assert.Equal(t, 512, cfg.Pipeline.PayloadLogLimit)
	assert.False(t, cfg.Pipeline.StrictInstallmentCount)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Empty(t, cfg.Email.ReviewRecipients)
	assert.Len(t, cfg.CORS.AllowedOrigins, 3)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AGROFIN_LLM_PRIMARY_API_KEY", "gem-key")
	t.Setenv("AGROFIN_LLM_SECONDARY_PROVIDER", "claude")
	t.Setenv("AGROFIN_LLM_SECONDARY_API_KEY", "sk-ant")
	t.Setenv("AGROFIN_PIPELINE_STRICT_INSTALLMENT_COUNT", "true")
	t.Setenv("AGROFIN_EMAIL_REVIEW_RECIPIENTS", "fin@example.com, ops@example.com ,")
	t.Setenv("AGROFIN_S3_BUCKET", "invoices")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gem-key", cfg.LLM.Primary.APIKey)
	assert.Equal(t, "claude", cfg.LLM.Secondary.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.Secondary.APIKey)
	assert.True(t, cfg.Pipeline.StrictInstallmentCount)
	assert.Equal(t, []string{"fin@example.com", "ops@example.com"}, cfg.Email.ReviewRecipients)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoad_PortFromPlatform(t *testing.T) {
	t.Setenv("PORT", "9000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoad_ExplicitServerPortWins(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("AGROFIN_SERVER_PORT", ":7000")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		env, val string
	}{
		{"AGROFIN_UPLOAD_MAX_FILE_SIZE_MB", "0"},
		{"AGROFIN_PIPELINE_PAYLOAD_LOG_LIMIT", "-1"},
		{"AGROFIN_BATCH_CONCURRENCY", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestLLMConfig_ProvidersSkipsUnset(t *testing.T) {
	cfg := config.LLMConfig{
		Primary:  config.LLMProviderConfig{Provider: "gemini"},
		Tertiary: config.LLMProviderConfig{Provider: "openai"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "gemini", providers[0].Provider)
	assert.Equal(t, "openai", providers[1].Provider)
}

func TestDBConfig_DSN(t *testing.T) {
	db := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", db.DSN())
}

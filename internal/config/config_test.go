package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
)

var managedEnv = []string{
	"APP_ENV", "PORT", "CORS_ALLOWED_ORIGINS", "SECRET_KEY", "SESSION_TTL", "SESSION_SECURE_COOKIE",
	"LLM_PROVIDER", "REQUEST_TIMEOUT",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "GEMINI_TEMPERATURE", "GEMINI_TOP_P", "GEMINI_TOP_K", "GEMINI_MAX_OUTPUT_TOKENS",
	"ARK_API_KEY", "ARK_ACCESS_KEY", "ARK_SECRET_KEY", "ARK_MODEL", "ARK_BASE_URL", "ARK_REGION", "ARK_TEMPERATURE", "ARK_TOP_P", "ARK_MAX_TOKENS",
	"PROMPT_MAX_CHARS", "DOCUMENT_POLICY", "GREETING_POLICY", "VERBOSITY_POLICY", "FORMATTING_POLICY",
	"DOCUMENT_FORMATS", "DOCUMENT_DB_PATH", "MAX_UPLOAD_BYTES", "LOG_LEVEL", "LOG_FILE_PATH",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedEnv {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.False(t, cfg.Development())
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Session.Ephemeral)
	assert.True(t, cfg.Session.SecureCookie)
	assert.Len(t, cfg.Session.Secret, 64)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 64, *cfg.AI.Gemini.TopK)
	assert.Equal(t, 8192, *cfg.AI.Gemini.MaxOutputTokens)
	assert.InDelta(t, 0.95, *cfg.AI.Gemini.TopP, 1e-9)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, prompt.DefaultPolicy(), cfg.Prompt)
	assert.Equal(t, []extract.Format{extract.FormatText, extract.FormatPDF, extract.FormatDOC, extract.FormatDOCX}, cfg.Document.Formats)
	assert.Equal(t, DefaultGeminiModel, cfg.AI.Gemini.Model)
	assert.Empty(t, cfg.AI.Gemini.BaseURL)
	assert.Equal(t, int64(16<<20), cfg.Document.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "Development")
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://example.com")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PROMPT_MAX_CHARS", "1000")
	t.Setenv("DOCUMENT_POLICY", "keyword")
	t.Setenv("FORMATTING_POLICY", "plain-emphasis")
	t.Setenv("DOCUMENT_FORMATS", "txt")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Development())
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:3000", "http://example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, []byte("s3cret"), cfg.Session.Secret)
	assert.False(t, cfg.Session.Ephemeral)
	assert.False(t, cfg.Session.SecureCookie)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.AI.Enabled())
	assert.Equal(t, 1000, cfg.Prompt.MaxChars)
	assert.Equal(t, prompt.DocumentKeyword, cfg.Prompt.Document)
	assert.Equal(t, prompt.FormatPlainEmphasis, cfg.Prompt.Formatting)
	assert.Equal(t, []extract.Format{extract.FormatText}, cfg.Document.Formats)
	assert.Equal(t, int64(1024), cfg.Document.MaxUploadBytes)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_ENV":               "staging",
		"PORT":                  "80 80",
		"SESSION_TTL":           "forever",
		"SESSION_SECURE_COOKIE": "maybe",
		"LLM_PROVIDER":          "openai",
		"REQUEST_TIMEOUT":       "-1s",
		"GEMINI_TOP_K":          "many",
		"DOCUMENT_POLICY":       "sometimes",
		"DOCUMENT_FORMATS":      "txt,exe",
		"MAX_UPLOAD_BYTES":      "0",
		"PROMPT_MAX_CHARS":      "5",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestArkProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ark")
	t.Setenv("ARK_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.AI.Enabled())

	_, err = cfg.AI.NewChatModel(context.Background())
	assert.Error(t, err)
}

func TestNewGeminiModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	m, err := cfg.AI.NewChatModel(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, m)
}

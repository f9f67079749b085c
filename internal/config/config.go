package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/zhouzirui/study-mentor/backend/internal/extract"
	"github.com/zhouzirui/study-mentor/backend/internal/service/prompt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	ProviderGemini = "gemini"
	ProviderArk    = "ark"

	DefaultGeminiModel = "gemini-1.5-flash"
)

// Config aggregates the service configuration.
type Config struct {
	Env      string
	Server   ServerConfig
	Session  SessionConfig
	AI       AIConfig
	Prompt   prompt.Policy
	Document DocumentConfig
	Log      LogConfig
}

// Development reports whether the service runs in development mode.
func (c *Config) Development() bool {
	return c.Env == EnvDevelopment
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	env := strings.ToLower(getEnvOrDefault("APP_ENV", EnvProduction))
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("invalid APP_ENV value %q (want development or production)", env)
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig(env)
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	policy, err := loadPromptPolicy()
	if err != nil {
		return nil, err
	}

	document, err := loadDocumentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Env:      env,
		Server:   server,
		Session:  session,
		AI:       ai,
		Prompt:   policy,
		Document: document,
		Log: LogConfig{
			Level:    getEnvOrDefault("LOG_LEVEL", "info"),
			FilePath: strings.TrimSpace(os.Getenv("LOG_FILE_PATH")),
		},
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig resolves the listen address.
func loadServerConfig() (ServerConfig, error) {
	origins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" as given.
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// SessionConfig describes the session cookie and idle expiry.
type SessionConfig struct {
	Secret       []byte
	// Ephemeral is set when no SECRET_KEY was configured and a random one
	// was generated for this process.
	Ephemeral    bool
	SecureCookie bool
	TTL          time.Duration
}

func loadSessionConfig(env string) (SessionConfig, error) {
	ttl, err := parseDurationEnv("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}

	secure, err := parseBoolEnv("SESSION_SECURE_COOKIE", env == EnvProduction)
	if err != nil {
		return SessionConfig{}, err
	}

	if secret := strings.TrimSpace(os.Getenv("SECRET_KEY")); secret != "" {
		return SessionConfig{Secret: []byte(secret), SecureCookie: secure, TTL: ttl}, nil
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return SessionConfig{}, fmt.Errorf("failed to generate session secret: %w", err)
	}
	return SessionConfig{Secret: []byte(hex.EncodeToString(buf)), Ephemeral: true, SecureCookie: secure, TTL: ttl}, nil
}

// AIConfig selects and configures the chat model provider.
type AIConfig struct {
	Provider string
	Timeout  time.Duration
	Gemini   GeminiConfig
	Ark      ArkConfig
}

// GeminiConfig holds the Gemini API settings.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
}

// ArkConfig holds the Volcengine Ark settings.
type ArkConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether the selected provider has the credentials it needs.
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.Ark.Model != "" && (c.Ark.APIKey != "" || (c.Ark.AccessKey != "" && c.Ark.SecretKey != ""))
	default:
		return c.Gemini.APIKey != ""
	}
}

// NewChatModel builds a chat model for the selected provider.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		if c.Provider == ProviderArk {
			return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY (or ARK_ACCESS_KEY + ARK_SECRET_KEY) and ARK_MODEL")
		}
		return nil, fmt.Errorf("gemini credentials missing: set GEMINI_API_KEY")
	}

	if c.Provider == ProviderArk {
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     c.Ark.BaseURL,
			Region:      c.Ark.Region,
			APIKey:      c.Ark.APIKey,
			AccessKey:   c.Ark.AccessKey,
			SecretKey:   c.Ark.SecretKey,
			Model:       c.Ark.Model,
			MaxTokens:   c.Ark.MaxTokens,
			Temperature: toFloat32(c.Ark.Temperature),
			TopP:        toFloat32(c.Ark.TopP),
		})
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.Gemini.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: c.Gemini.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	var topK *int32
	if c.Gemini.TopK != nil {
		val := int32(*c.Gemini.TopK)
		topK = &val
	}

	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       c.Gemini.Model,
		MaxTokens:   c.Gemini.MaxOutputTokens,
		Temperature: toFloat32(c.Gemini.Temperature),
		TopP:        toFloat32(c.Gemini.TopP),
		TopK:        topK,
	})
}

func loadAIConfig() (AIConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGemini))
	if provider != ProviderGemini && provider != ProviderArk {
		return AIConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q (want gemini or ark)", provider)
	}

	timeout, err := parseDurationEnv("REQUEST_TIMEOUT", 60*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	geminiCfg, err := loadGeminiConfig()
	if err != nil {
		return AIConfig{}, err
	}

	arkCfg, err := loadArkConfig()
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{Provider: provider, Timeout: timeout, Gemini: geminiCfg, Ark: arkCfg}, nil
}

func loadGeminiConfig() (GeminiConfig, error) {
	temperature, err := parseFloatEnvDefault("GEMINI_TEMPERATURE", 1)
	if err != nil {
		return GeminiConfig{}, err
	}

	topP, err := parseFloatEnvDefault("GEMINI_TOP_P", 0.95)
	if err != nil {
		return GeminiConfig{}, err
	}

	topK, err := parseIntEnvDefault("GEMINI_TOP_K", 64)
	if err != nil {
		return GeminiConfig{}, err
	}

	maxTokens, err := parseIntEnvDefault("GEMINI_MAX_OUTPUT_TOKENS", 8192)
	if err != nil {
		return GeminiConfig{}, err
	}

	return GeminiConfig{
		APIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		Model:           getEnvOrDefault("GEMINI_MODEL", DefaultGeminiModel),
		BaseURL:         strings.TrimSpace(os.Getenv("GEMINI_BASE_URL")),
		Temperature:     temperature,
		TopP:            topP,
		TopK:            topK,
		MaxOutputTokens: maxTokens,
	}, nil
}

func loadArkConfig() (ArkConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return ArkConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return ArkConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return ArkConfig{}, err
	}

	return ArkConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

func loadPromptPolicy() (prompt.Policy, error) {
	maxChars, err := parseOptionalIntEnv("PROMPT_MAX_CHARS")
	if err != nil {
		return prompt.Policy{}, err
	}
	limit := 0
	if maxChars != nil {
		limit = *maxChars
	}

	policy, err := prompt.ParsePolicy(
		os.Getenv("DOCUMENT_POLICY"),
		os.Getenv("GREETING_POLICY"),
		os.Getenv("VERBOSITY_POLICY"),
		os.Getenv("FORMATTING_POLICY"),
		limit,
	)
	if err != nil {
		return prompt.Policy{}, fmt.Errorf("invalid prompt policy: %w", err)
	}
	return policy, nil
}

// DocumentConfig describes document upload limits and storage.
type DocumentConfig struct {
	Formats        []extract.Format
	DBPath         string
	MaxUploadBytes int64
}

func loadDocumentConfig() (DocumentConfig, error) {
	formats, err := extract.ParseFormats(getEnvOrDefault("DOCUMENT_FORMATS", "txt,pdf,doc,docx"))
	if err != nil {
		return DocumentConfig{}, fmt.Errorf("invalid DOCUMENT_FORMATS: %w", err)
	}

	maxBytes := int64(16 << 20)
	if override, err := parseOptionalIntEnv("MAX_UPLOAD_BYTES"); err != nil {
		return DocumentConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return DocumentConfig{}, fmt.Errorf("invalid MAX_UPLOAD_BYTES value %d: must be positive", *override)
		}
		maxBytes = int64(*override)
	}

	return DocumentConfig{
		Formats:        formats,
		DBPath:         getEnvOrDefault("DOCUMENT_DB_PATH", "data/documents.bolt"),
		MaxUploadBytes: maxBytes,
	}, nil
}

// LogConfig describes logging output.
type LogConfig struct {
	Level    string
	FilePath string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseFloatEnvDefault(key string, defaultValue float64) (*float64, error) {
	val, err := parseOptionalFloatEnv(key)
	if err != nil || val != nil {
		return val, err
	}
	return &defaultValue, nil
}

func parseIntEnvDefault(key string, defaultValue int) (*int, error) {
	val, err := parseOptionalIntEnv(key)
	if err != nil || val != nil {
		return val, err
	}
	return &defaultValue, nil
}

func toFloat32(v *float64) *float32 {
	if v == nil {
		return nil
	}
	f := float32(*v)
	return &f
}

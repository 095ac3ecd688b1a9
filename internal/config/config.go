// Package config loads the process configuration from .env, flags and
// environment variables.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// DatabaseDSN switches the store to Postgres when set.
	DatabaseDSN string

	CORSAllowedOrigins []string

	LLM      LLMConfig
	Arena    ArenaConfig
	Analysis AnalysisConfig
	Engine   EngineConfig
	Artifact ArtifactConfig
}

type LLMConfig struct {
	OpenAIKey    string
	AnthropicKey string
	GeminiKey    string

	LocalEnabled bool
	LocalBaseURL string

	// MoveTimeout bounds every provider call.
	MoveTimeout time.Duration

	// AllowedModels is the per-provider allow-list consulted before a
	// model ever receives a request.
	AllowedModels map[string][]string

	// CustomModelEnabled permits arbitrary model names, bypassing the
	// allow-list.
	CustomModelEnabled bool
}

type ArenaConfig struct {
	// Concurrency bounds simultaneously running games per run.
	Concurrency int
}

type AnalysisConfig struct {
	Enabled            bool
	Profile            string
	MinPlies           int
	MaxPlies           int
	MoveTime           time.Duration
	KeyMovesLimit      int
	TurningPointsLimit int
}

type EngineConfig struct {
	// Path overrides stockfish discovery on PATH.
	Path string
	// MoveTime is the per-move search budget for engine players.
	MoveTime time.Duration
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:        *port,
		Env:         env,
		DatabaseDSN: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		CORSAllowedOrigins: parseCSV(os.Getenv("CORS_ALLOWED_ORIGINS"),
			[]string{"http://localhost:5173", "http://127.0.0.1:5173"}),
		LLM:      loadLLMConfig(),
		Arena:    loadArenaConfig(),
		Analysis: loadAnalysisConfig(),
		Engine:   loadEngineConfig(),
		Artifact: loadArtifactConfig(env),
	}, nil
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		OpenAIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		AnthropicKey: strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY")),
		GeminiKey:    strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		LocalEnabled: parseBool(os.Getenv("LOCAL_LLM_ENABLED"), true),
		LocalBaseURL: firstNonEmpty(strings.TrimRight(strings.TrimSpace(os.Getenv("LOCAL_LLM_BASE_URL")), "/"), "http://127.0.0.1:11434"),
		MoveTimeout:  parseSeconds(os.Getenv("LLM_MOVE_TIMEOUT_SECONDS"), 15*time.Second),
		AllowedModels: map[string][]string{
			"openai":    parseCSV(os.Getenv("LLM_ALLOWED_MODELS_OPENAI"), []string{"gpt-4.1-mini", "gpt-4o-mini"}),
			"anthropic": parseCSV(os.Getenv("LLM_ALLOWED_MODELS_ANTHROPIC"), []string{"claude-3-5-sonnet-latest", "claude-3-5-haiku-latest"}),
			"gemini":    parseCSV(os.Getenv("LLM_ALLOWED_MODELS_GEMINI"), []string{"gemini-1.5-pro", "gemini-1.5-flash"}),
			"local":     parseCSV(os.Getenv("LLM_ALLOWED_MODELS_LOCAL"), []string{"llama3.1:8b"}),
		},
		CustomModelEnabled: parseBool(os.Getenv("LLM_ADVANCED_CUSTOM_MODEL_ENABLED"), true),
	}
}

func loadArenaConfig() ArenaConfig {
	return ArenaConfig{
		Concurrency: parseInt(os.Getenv("ARENA_CONCURRENCY"), 2),
	}
}

func loadAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Enabled:            parseBool(os.Getenv("ANALYSIS_FEATURE_ENABLED"), true),
		Profile:            firstNonEmpty(strings.TrimSpace(os.Getenv("ANALYSIS_PROFILE_DEFAULT")), "balanced"),
		MinPlies:           parseInt(os.Getenv("ANALYSIS_MIN_PLIES"), 8),
		MaxPlies:           parseInt(os.Getenv("ANALYSIS_MAX_PLIES"), 160),
		MoveTime:           parseSeconds(os.Getenv("ANALYSIS_TIME_LIMIT_SECONDS"), 100*time.Millisecond),
		KeyMovesLimit:      parseInt(os.Getenv("ANALYSIS_KEY_MOVES_LIMIT"), 5),
		TurningPointsLimit: parseInt(os.Getenv("ANALYSIS_TURNING_POINTS_LIMIT"), 3),
	}
}

func loadEngineConfig() EngineConfig {
	return EngineConfig{
		Path:     strings.TrimSpace(os.Getenv("STOCKFISH_PATH")),
		MoveTime: parseSeconds(os.Getenv("STOCKFISH_MOVE_TIME_SECONDS"), 500*time.Millisecond),
	}
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "chessarena-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

// IsModelAllowed consults the per-provider allow-list. Providers and
// models compare case-insensitively.
func (c *Config) IsModelAllowed(provider, model string) bool {
	provider = strings.ToLower(strings.TrimSpace(provider))
	model = strings.TrimSpace(model)
	if provider == "" || model == "" {
		return false
	}
	if provider == "local" && !c.LLM.LocalEnabled {
		return false
	}
	for _, allowed := range c.LLM.AllowedModels[provider] {
		if strings.EqualFold(allowed, model) {
			return true
		}
	}
	return false
}

// CustomModelAllowed reports whether free-form model names are
// accepted.
func (c *Config) CustomModelAllowed() bool {
	return c.LLM.CustomModelEnabled
}

func parseCSV(raw string, fallback []string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func parseBool(raw string, fallback bool) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func parseSeconds(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return time.Duration(v * float64(time.Second))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

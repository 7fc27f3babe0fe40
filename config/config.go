package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/Hx199814/oneyearobesity/utils"
)

// Model backends, as selected by MODEL_BACKEND and reported in model
// descriptions.
const (
	BackendPrototype = "prototype"
	BackendRemote    = "remote"
)

type Config struct {
	Port           string
	RequestTimeout time.Duration
	StaticDir      string
	TLS            TLSConfig
	Model          ModelConfig
	Advice         AdviceConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type ModelConfig struct {
	Backend string
	Path    string
	// AllowExample serves the bundled example artifact when Path is missing.
	// Off by default: a missing artifact leaves predictions unavailable.
	AllowExample bool
	K            int
	ServiceURL   string
	Timeout      time.Duration
}

type AdviceConfig struct {
	GeminiAPIKey string
	GeminiModel  string
	Timeout      time.Duration
}

// Load reads the service configuration from the environment. Call
// godotenv.Load beforehand so values from .env are visible here.
func Load() *Config {
	return &Config{
		Port:           utils.GetEnv("PORT", "5000"),
		RequestTimeout: time.Duration(utils.GetEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		StaticDir:      utils.GetEnv("STATIC_DIR", "static"),
		TLS: TLSConfig{
			CertFile: utils.GetEnv("CERT_FILE"),
			KeyFile:  utils.GetEnv("CERT_KEY"),
		},
		Model: ModelConfig{
			Backend:      strings.ToLower(utils.GetEnv("MODEL_BACKEND", BackendPrototype)),
			Path:         utils.GetEnv("MODEL_PATH", filepath.Join("obesity", "model.json")),
			AllowExample: utils.GetEnvBool("MODEL_ALLOW_EXAMPLE", false),
			K:            utils.GetEnvInt("MODEL_K", 5),
			ServiceURL:   utils.GetEnv("MODEL_SERVICE_URL", "http://localhost:8000"),
			Timeout:      time.Duration(utils.GetEnvInt("MODEL_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Advice: AdviceConfig{
			GeminiAPIKey: utils.GetEnv("GEMINI_API_KEY"),
			GeminiModel:  utils.GetEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:      time.Duration(utils.GetEnvInt("ADVICE_TIMEOUT_SECONDS", 10)) * time.Second,
		},
	}
}

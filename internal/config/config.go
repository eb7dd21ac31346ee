package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// Multi-face policy values for reference images.
const (
	MultiFaceFirst  = "first"
	MultiFaceReject = "reject"
)

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Gallery   GalleryConfig
	Ledger    LedgerConfig
	Camera    CameraConfig
	Database  DatabaseConfig
	Web       WebConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Ollama    OllamaConfig
	LlamaCpp  LlamaCppConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL   string // embedding service base URL, defaults to http://localhost:8000
	Model string // embedding model name, used to look up dim/threshold defaults
	Dim   int    // embedding dimensionality, defaults from the model table
}

type MatchConfig struct {
	Threshold float64 // maximum euclidean distance for an accepted match
}

type GalleryConfig struct {
	Dir       string // directory of reference images (one person per file)
	MultiFace string // policy for multi-face reference images: "first" or "reject"
}

type LedgerConfig struct {
	Dir      string // directory for per-day CSV attendance files
	MySQLDSN string // optional MySQL DSN for the database-backed ledger
}

type CameraConfig struct {
	URL      string // snapshot URL returning a still image (e.g., http://cam/snapshot.jpg)
	Interval int    // seconds between frames, defaults to 2
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL for the embedding cache
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type WebConfig struct {
	Token string // bearer token for API authentication (empty disables auth)
}

type OpenAIConfig struct {
	Token string
}

type GeminiConfig struct {
	APIKey string
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2
}

type LlamaCppConfig struct {
	URL   string // defaults to http://localhost:8080
	Model string // defaults to llama
}

// ModelsConfig holds per-model defaults loaded from the embedded models.yaml.
type ModelsConfig struct {
	Models map[string]ModelDefaults `yaml:"models"`
}

// ModelDefaults describes the dimensionality and the conventional same-person
// distance cutoff for a known embedding model.
type ModelDefaults struct {
	Dim       int     `yaml:"dim"`
	Threshold float64 `yaml:"threshold"`
}

// Fallback defaults when the embedding model is not in the table.
const (
	defaultDim       = 128
	defaultThreshold = 0.6
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = "dlib"
	}
	defaults := modelDefaults(&models, model)

	multiFace := os.Getenv("GALLERY_MULTI_FACE")
	if multiFace != MultiFaceReject {
		multiFace = MultiFaceFirst
	}

	galleryDir := os.Getenv("GALLERY_DIR")
	if galleryDir == "" {
		galleryDir = "images"
	}
	ledgerDir := os.Getenv("LEDGER_DIR")
	if ledgerDir == "" {
		ledgerDir = "."
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: model,
			Dim:   envInt("EMBEDDING_DIM", defaults.Dim),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD", defaults.Threshold),
		},
		Gallery: GalleryConfig{
			Dir:       galleryDir,
			MultiFace: multiFace,
		},
		Ledger: LedgerConfig{
			Dir:      ledgerDir,
			MySQLDSN: os.Getenv("ATTENDANCE_MYSQL_DSN"),
		},
		Camera: CameraConfig{
			URL:      os.Getenv("CAMERA_URL"),
			Interval: envInt("CAMERA_INTERVAL", 2),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			Token: os.Getenv("WEB_API_TOKEN"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		LlamaCpp: LlamaCppConfig{
			URL:   os.Getenv("LLAMACPP_URL"),
			Model: os.Getenv("LLAMACPP_MODEL"),
		},
		Models: models,
	}
}

// modelDefaults returns the dim/threshold defaults for a model name,
// falling back to the dlib-style 128-d / 0.6 cutoff for unknown models.
func modelDefaults(models *ModelsConfig, name string) ModelDefaults {
	if d, ok := models.Models[name]; ok {
		return d
	}
	return ModelDefaults{Dim: defaultDim, Threshold: defaultThreshold}
}

// GetModelDefaults returns the dim/threshold defaults for a specific model.
func (c *Config) GetModelDefaults(name string) ModelDefaults {
	return modelDefaults(&c.Models, name)
}

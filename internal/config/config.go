package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Data      DataConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Camera    CameraConfig
	Web       WebConfig
	Defaults  DefaultsConfig
}

type DataConfig struct {
	Dir string // Root directory for students.csv, settings.csv, ledgers and photos
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
	Dim int    // defaults to 128 (dlib face vectors)
}

type MatchingConfig struct {
	Threshold float64 // Maximum Euclidean distance for a face match
}

type CameraConfig struct {
	URL        string // Snapshot URL of the camera frame source
	IntervalMs int    // Delay between frame reads in milliseconds
}

type WebConfig struct {
	Port          int
	Host          string
	SessionSecret string
	AdminPassword string
}

// DefaultsConfig holds the initial settings table, loaded from the embedded
// defaults.yaml and written to settings.csv on first run.
type DefaultsConfig struct {
	Settings map[string]string `yaml:"settings"`
}

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

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var defaults DefaultsConfig
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		Data: DataConfig{
			Dir: envString("DATA_DIR", "./data"),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
			Dim: envInt("EMBEDDING_DIM", 128),
		},
		Matching: MatchingConfig{
			Threshold: envFloat("MATCH_THRESHOLD", 0.6),
		},
		Camera: CameraConfig{
			URL:        os.Getenv("CAMERA_URL"),
			IntervalMs: envInt("CAMERA_INTERVAL_MS", 500),
		},
		Web: WebConfig{
			Port:          envInt("WEB_PORT", 8080),
			Host:          envString("WEB_HOST", "0.0.0.0"),
			SessionSecret: os.Getenv("WEB_SESSION_SECRET"),
			AdminPassword: os.Getenv("WEB_ADMIN_PASSWORD"),
		},
		Defaults: defaults,
	}
}

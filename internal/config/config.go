package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	DBPath     string `yaml:"db_path"`
	AdminToken string `yaml:"admin_token"`

	Storage    StorageConfig    `yaml:"storage"`
	Similarity SimilarityConfig `yaml:"similarity"`
}

type StorageConfig struct {
	Type      string `yaml:"type"`       // local or cdn
	LocalPath string `yaml:"local_path"` // root directory for the local backend
	PublicURL string `yaml:"public_url"` // base URL for the cdn backend
}

type SimilarityConfig struct {
	Threshold     int           `yaml:"threshold"`
	MaxCandidates int           `yaml:"max_candidates"`
	Timeout       time.Duration `yaml:"timeout"`
}

func defaults() *Config {
	return &Config{
		ListenAddr: ":8080",
		DBPath:     "/data/db/scenes.db",
		Storage: StorageConfig{
			Type:      "local",
			LocalPath: "/data/scenes",
		},
		Similarity: SimilarityConfig{
			Threshold:     8,
			MaxCandidates: 10000,
			Timeout:       5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// SCENE_CONFIG_FILE (if any), then SCENE_* environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("SCENE_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ListenAddr = getEnv("SCENE_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DBPath = getEnv("SCENE_DB_PATH", cfg.DBPath)
	cfg.AdminToken = getEnv("SCENE_ADMIN_TOKEN", cfg.AdminToken)
	cfg.Storage.Type = getEnv("SCENE_STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.LocalPath = getEnv("SCENE_STORAGE_PATH", cfg.Storage.LocalPath)
	cfg.Storage.PublicURL = getEnv("SCENE_STORAGE_PUBLIC_URL", cfg.Storage.PublicURL)
	cfg.Similarity.Threshold = getEnvInt("SCENE_SIMILARITY_THRESHOLD", cfg.Similarity.Threshold)
	cfg.Similarity.MaxCandidates = getEnvInt("SCENE_SIMILARITY_MAX_CANDIDATES", cfg.Similarity.MaxCandidates)
	cfg.Similarity.Timeout = getEnvDuration("SCENE_SIMILARITY_TIMEOUT", cfg.Similarity.Timeout)

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getEnvInt returns defaultValue when the variable is unset or not a
// non-negative integer.
func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

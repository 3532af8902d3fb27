package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"remedy/internal/errors"
	"remedy/internal/evidence"
	"remedy/internal/validation"
)

type Config struct {
	Database struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr" validate:"required"`
	} `yaml:"server"`
	Engine struct {
		Threshold      float64 `yaml:"threshold" validate:"gt=0,lte=1"`
		Epsilon        float64 `yaml:"epsilon" validate:"gt=0,lt=0.01"`
		CollapseSingle bool    `yaml:"collapse_single"` // score a lone observation like several
	} `yaml:"engine"`
	Log struct {
		JSON  bool   `yaml:"json"`
		Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Database.Path = "remedy.db"
	cfg.Server.Addr = ":8080"
	cfg.Engine.Threshold = evidence.DefaultThreshold
	cfg.Engine.Epsilon = evidence.DefaultEpsilon
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig reads .env, then the YAML file at path (if it exists) over the
// defaults, then REMEDY_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	// 3. Override with Environment Variables if present
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := validation.ValidateStruct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("REMEDY_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REMEDY_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("REMEDY_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrap(err, "REMEDY_THRESHOLD")
		}
		cfg.Engine.Threshold = f
	}
	if v := os.Getenv("REMEDY_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, "REMEDY_LOG_JSON")
		}
		cfg.Log.JSON = b
	}
	return nil
}

// EngineOptions converts the engine section for evidence.NewEngine.
func (c *Config) EngineOptions() evidence.Options {
	return evidence.Options{
		Threshold:      c.Engine.Threshold,
		Epsilon:        c.Engine.Epsilon,
		CollapseSingle: c.Engine.CollapseSingle,
	}
}

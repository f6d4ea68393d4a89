package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/vormiaphp/vormiaquery/internal/timex"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

type LoadOptions struct {
	// File is a JSON or YAML config file; empty skips it.
	File string
	// EnvFile is a dotenv file; a missing file is ignored.
	EnvFile string
	// Lookup defaults to os.LookupEnv.
	Lookup LookupFunc
}

// Load builds a Config from defaults, File, EnvFile and the environment.
// Flags are applied by the caller afterwards.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.LoadFile(opts.File); err != nil {
			return nil, err
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if opts.EnvFile != "" {
		dotenv, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file %s: %w", opts.EnvFile, err)
		}
		lookup = withFallback(lookup, dotenv)
	}

	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the JSON or YAML file at path. Files ending in .yaml or
// .yml are YAML, anything else JSON.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

// ApplyEnv overlays the recognized environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("API_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := get("AUTH_TOKEN_KEY"); ok {
		c.AuthTokenKey = v
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := timex.Parse(v)
		if err != nil {
			return fmt.Errorf("TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v, ok := get("WITH_CREDENTIALS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("WITH_CREDENTIALS: %w", err)
		}
		c.WithCredentials = b
	}
	if v, ok := get("PUBLIC_KEY"); ok {
		c.PublicKey = v
	}
	if v, ok := get("PRIVATE_KEY"); ok {
		c.PrivateKey = v
	}
	if v, ok := get("ENCRYPTION_KEY"); ok {
		c.EncryptionKey = v
	}
	if v, ok := get("APP_ENV"); ok {
		c.SetProduction(strings.EqualFold(v, Production))
		c.Environment = v
	}
	if v, ok := get("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		c.IncludeDebugInfo = b
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return nil
}

func withFallback(primary LookupFunc, fallback map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

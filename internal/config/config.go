// Package config loads the consigne configuration file.
//
// The file has an "app" section with the base settings and one optional
// section per environment ("development", "production", ...). The active
// environment is $ENV, then the "env" key of the app section, then
// DefaultEnv. Its section is merged over "app" key by key: maps merge shallowly with the
// environment winning, any other value is replaced. String values may refer to
// environment variables as ${NAME}.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/consigne/internal/store"
)

// DefaultEnv is used when neither ENV nor app.env names an environment.
const DefaultEnv = "development"

// DatabaseConfig describes the SQLite database.
type DatabaseConfig struct {
	Driver       string            `yaml:"driver" json:"driver"`
	Path         string            `yaml:"path" json:"path"`
	Timeout      time.Duration     `yaml:"timeout" json:"timeout"`
	Params       map[string]string `yaml:"params" json:"params"`
	MaxOpenConns int               `yaml:"max_open_conns" json:"max_open_conns"`
	Bootstrap    bool              `yaml:"bootstrap" json:"bootstrap"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Config is the merged application configuration.
type Config struct {
	Env      string         `yaml:"-" json:"env"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Env: DefaultEnv,
		Database: DatabaseConfig{
			Driver:  store.DriverCgo,
			Timeout: store.DefaultTimeout,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadFile loads path for the environment named by $ENV, falling back to
// the file's app.env.
func LoadFile(path string) (Config, error) {
	return LoadFileEnv(path, os.Getenv("ENV"))
}

// LoadFileEnv loads path for env. An empty env defers to app.env.
func LoadFileEnv(path, env string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, env)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse merges the app and env sections of a YAML document, expands
// environment variables and validates the result. An empty env selects
// app.env, or DefaultEnv when that is unset too.
func Parse(data []byte, env string) (Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	app, ok := doc["app"].(map[string]any)
	if !ok {
		return Config{}, fmt.Errorf("app section not found")
	}
	if env == "" {
		env = DefaultEnv
		if raw, present := app["env"]; present {
			name, ok := raw.(string)
			if !ok || strings.TrimSpace(name) == "" {
				return Config{}, fmt.Errorf("app.env must be a non-empty string")
			}
			env = strings.TrimSpace(name)
		}
	}
	var overlay map[string]any
	if raw, present := doc[env]; present {
		if overlay, ok = raw.(map[string]any); !ok {
			return Config{}, fmt.Errorf("%s section must be a mapping", env)
		}
	}

	merged, err := merge(app, overlay)
	if err != nil {
		return Config{}, err
	}
	expanded, err := expandEnv(merged)
	if err != nil {
		return Config{}, err
	}

	// Round-trip through YAML so typed decoding (durations) applies.
	out, err := yaml.Marshal(expanded)
	if err != nil {
		return Config{}, fmt.Errorf("encode merged config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(out, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode merged config: %w", err)
	}
	cfg.Env = env

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate normalizes the driver name and checks required settings.
func (c *Config) Validate() error {
	driver := NormalizeDriver(c.Database.Driver)
	if driver != store.DriverCgo && driver != store.DriverPure {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	c.Database.Driver = driver
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Timeout < 0 {
		return fmt.Errorf("database.timeout must not be negative")
	}
	return nil
}

// StoreOptions converts the database section for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:       c.Database.Driver,
		Path:         c.Database.Path,
		Timeout:      c.Database.Timeout,
		Params:       c.Database.Params,
		MaxOpenConns: c.Database.MaxOpenConns,
	}
}

// NormalizeDriver maps driver aliases to the registered database/sql names.
func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "", "sqlite3", "cgo", "mattn", "go-sqlite3":
		return store.DriverCgo
	case "sqlite", "pure", "modernc":
		return store.DriverPure
	default:
		return strings.ToLower(d)
	}
}

func merge(app, env map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(app)+len(env))
	for k, v := range app {
		out[k] = v
	}
	for k, ev := range env {
		av, ok := out[k]
		if !ok || av == nil || ev == nil {
			if ev != nil {
				out[k] = ev
			}
			continue
		}
		am, aIsMap := av.(map[string]any)
		em, eIsMap := ev.(map[string]any)
		switch {
		case aIsMap && eIsMap:
			m := make(map[string]any, len(am)+len(em))
			for kk, vv := range am {
				m[kk] = vv
			}
			for kk, vv := range em {
				m[kk] = vv
			}
			out[k] = m
		case aIsMap != eIsMap:
			return nil, fmt.Errorf("%s: app and environment values must have the same type", k)
		default:
			out[k] = ev
		}
	}
	return out, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(v any) (any, error) {
	switch x := v.(type) {
	case string:
		var missing string
		s := envRef.ReplaceAllStringFunc(x, func(ref string) string {
			name := envRef.FindStringSubmatch(ref)[1]
			val, ok := os.LookupEnv(name)
			if !ok && missing == "" {
				missing = name
			}
			return strings.TrimRight(val, "\r")
		})
		if missing != "" {
			return nil, fmt.Errorf("environment variable %s is not set", missing)
		}
		return s, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			e, err := expandEnv(vv)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = e
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, vv := range x {
			e, err := expandEnv(vv)
			if err != nil {
				return nil, err
			}
			out[i] = e
		}
		return out, nil
	}
	return v, nil
}

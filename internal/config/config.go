package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "twinflow.db"
	DefaultLogName        = "twinflow.log"
	DefaultCallbackAddr   = "127.0.0.1:8765"
	DefaultAuthTimeout    = "5m"

	EnvConfigPath            = "TWINFLOW_CONFIG"
	EnvGoogleClientSecret    = "TWINFLOW_GOOGLE_CLIENT_SECRET"
	EnvMicrosoftClientSecret = "TWINFLOW_MICROSOFT_CLIENT_SECRET"

	dateLayout = "2006-01-02"
)

type Keymap struct {
	Quit          string `toml:"quit"`
	Add           string `toml:"add"`
	Up            string `toml:"up"`
	Down          string `toml:"down"`
	Toggle        string `toml:"toggle"`
	Search        string `toml:"search"`
	NextFilter    string `toml:"next_filter"`
	Confirm       string `toml:"confirm"`
	Cancel        string `toml:"cancel"`
	SignOut       string `toml:"sign_out"`
	GoogleSignIn  string `toml:"google_sign_in"`
	MicrosoftSign string `toml:"microsoft_sign_in"`
}

type Auth struct {
	Timeout           string `toml:"timeout"`
	CallbackAddr      string `toml:"callback_addr"`
	GoogleClientID    string `toml:"google_client_id"`
	MicrosoftClientID string `toml:"microsoft_client_id"`
	MicrosoftTenant   string `toml:"microsoft_tenant"`

	// Secrets never live in the file.
	GoogleClientSecret    string `toml:"-"`
	MicrosoftClientSecret string `toml:"-"`
}

type Config struct {
	DBPath        string `toml:"db_path"`
	DefaultFilter string `toml:"default_filter"`
	ProjectDue    string `toml:"project_due"`
	LogFile       string `toml:"log_file"`
	Keys          Keymap `toml:"keys"`
	Auth          Auth   `toml:"auth"`
}

// ResolveConfigPath honours $TWINFLOW_CONFIG, then $XDG_CONFIG_HOME, then the user config dir.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return DefaultConfigFileName
		}
		base = dir
	}
	return filepath.Join(base, "twinflow", DefaultConfigFileName)
}

// LoadEnv reads KEY=VALUE pairs from the given .env files into the process
// environment. Variables that are already set win. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// LoadOrCreate reads the config at path, writing defaults on first launch.
// Relative db and log paths are resolved against the config directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
		return cfg.finish(path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.LogFile == "" {
		cfg.LogFile = DefaultLogName
	}
	if cfg.Auth.CallbackAddr == "" {
		cfg.Auth.CallbackAddr = DefaultCallbackAddr
	}
	if cfg.Auth.Timeout == "" {
		cfg.Auth.Timeout = DefaultAuthTimeout
	}
	if _, err := cfg.AuthTimeout(); err != nil {
		return cfg, err
	}
	if _, err := cfg.Due(); err != nil {
		return cfg, err
	}
	return cfg.finish(path), nil
}

func (c Config) finish(path string) Config {
	dir := filepath.Dir(path)
	c.DBPath = resolve(dir, c.DBPath)
	c.LogFile = resolve(dir, c.LogFile)
	c.Auth.GoogleClientSecret = os.Getenv(EnvGoogleClientSecret)
	c.Auth.MicrosoftClientSecret = os.Getenv(EnvMicrosoftClientSecret)
	return c
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) || len(p) > 5 && p[:5] == "file:" {
		return p
	}
	return filepath.Join(dir, p)
}

// AuthTimeout parses auth.timeout. Zero leaves the choice to the authenticator.
func (c Config) AuthTimeout() (time.Duration, error) {
	if c.Auth.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Auth.Timeout)
	if err != nil {
		return 0, fmt.Errorf("auth.timeout %q: %w", c.Auth.Timeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("auth.timeout %q: must not be negative", c.Auth.Timeout)
	}
	return d, nil
}

// Due parses project_due. An empty value yields the zero time.
func (c Config) Due() (time.Time, error) {
	if c.ProjectDue == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, c.ProjectDue, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("project_due %q: %w", c.ProjectDue, err)
	}
	return t, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration written on first launch.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		DBPath:        DefaultDBName,
		DefaultFilter: "all",
		LogFile:       DefaultLogName,
		Keys: Keymap{
			Quit:          "q",
			Add:           "a",
			Up:            "k",
			Down:          "j",
			Toggle:        " ",
			Search:        "/",
			NextFilter:    "tab",
			Confirm:       "enter",
			Cancel:        "esc",
			SignOut:       "ctrl+o",
			GoogleSignIn:  "ctrl+g",
			MicrosoftSign: "ctrl+t",
		},
		Auth: Auth{
			Timeout:         DefaultAuthTimeout,
			CallbackAddr:    DefaultCallbackAddr,
			MicrosoftTenant: "common",
		},
	}
}

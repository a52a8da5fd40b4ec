// Package config loads issuesync settings from defaults, a YAML config file,
// a .env file, environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/issuesync/issuesync/internal/types"
)

// FileName is the config file base name searched for on startup.
const FileName = "issuesync"

var (
	v *viper.Viper
	// loadedEnv lists variables set from a .env file, for `config show`.
	loadedEnv []string
)

// Initialize sets up the package-level viper instance. If configFile is
// empty, issuesync.yaml is searched in the working directory, then in
// $XDG_CONFIG_HOME/issuesync (or ~/.config/issuesync). A missing file is
// not an error; an unreadable one is.
func Initialize(configFile string) error {
	v = viper.New()

	for _, k := range Keys {
		if k.Default != "" {
			v.SetDefault(k.Key, k.Default)
		}
		if k.EnvVar != "" {
			_ = v.BindEnv(k.Key, k.EnvVar)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := userConfigDir(); err == nil {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
	}
	return nil
}

// loadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left untouched.
func loadDotEnv(path string) error {
	loadedEnv = nil
	env, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for name, value := range env {
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, value); err != nil {
			return fmt.Errorf("applying %s from %s: %w", name, path, err)
		}
		loadedEnv = append(loadedEnv, name)
	}
	return nil
}

func userConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", FileName), nil
}

// BindFlag binds a key to a command-line flag so an explicitly set flag
// overrides every other source.
func BindFlag(key string, flag *pflag.Flag) error {
	if v == nil || flag == nil {
		return nil
	}
	return v.BindPFlag(key, flag)
}

// ConfigFileUsed returns the path of the loaded config file, if any.
func ConfigFileUsed() string {
	if v == nil {
		return ""
	}
	return v.ConfigFileUsed()
}

// DotEnvKeys returns the variables that were set from a .env file.
func DotEnvKeys() []string {
	return append([]string(nil), loadedEnv...)
}

// GetString retrieves a string configuration value
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(v.GetString(key))
}

// GetBool retrieves a boolean configuration value
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetDuration retrieves a duration configuration value
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value for the current process only.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// ResetForTesting clears the package-level viper instance.
func ResetForTesting() {
	v = nil
	loadedEnv = nil
}

// Config is a validated snapshot of the effective configuration.
// It is a value: pass it to constructors, never mutate shared state.
type Config struct {
	GitHub   GitHubConfig   `yaml:"github"`
	Airtable AirtableConfig `yaml:"airtable"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
}

type GitHubConfig struct {
	Token   string            `yaml:"token"`
	Repo    string            `yaml:"repo"`
	State   types.StateFilter `yaml:"state"`
	BaseURL string            `yaml:"base_url,omitempty"`
}

// Owner returns the part of Repo before the slash.
func (c GitHubConfig) Owner() string {
	owner, _, _ := strings.Cut(c.Repo, "/")
	return owner
}

// Name returns the part of Repo after the slash.
func (c GitHubConfig) Name() string {
	_, name, _ := strings.Cut(c.Repo, "/")
	return name
}

type AirtableConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseID  string `yaml:"base_id"`
	Table   string `yaml:"table"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type SyncConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	Concurrency int           `yaml:"concurrency"`
	DryRun      bool          `yaml:"dry_run"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file,omitempty"`
	Format string `yaml:"format"`
}

// ConfigurationError lists every problem found while loading configuration.
// It is reported before any network call is made.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 1 {
		return "configuration error: " + e.Problems[0]
	}
	return fmt.Sprintf("configuration error (%d problems):\n  - %s",
		len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// Load snapshots the effective configuration and validates it. The
// returned Config is usable only when err is nil.
func Load() (Config, error) {
	if v == nil {
		if err := Initialize(""); err != nil {
			return Config{}, err
		}
	}

	var problems []string
	check := func(key string) string {
		value := GetString(key)
		k := LookupKey(key)
		if value == "" {
			if k.Required {
				problems = append(problems, missingMessage(k))
			}
			return value
		}
		if k.Validate != nil {
			if err := k.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			}
		}
		return value
	}

	cfg := Config{
		GitHub: GitHubConfig{
			Token:   check("github.token"),
			Repo:    check("github.repo"),
			State:   types.StateFilter(strings.ToLower(check("github.state"))),
			BaseURL: check("github.base_url"),
		},
		Airtable: AirtableConfig{
			APIKey:  check("airtable.api_key"),
			BaseID:  check("airtable.base_id"),
			Table:   check("airtable.table"),
			BaseURL: check("airtable.base_url"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(check("log.level")),
			File:   check("log.file"),
			Format: strings.ToLower(check("log.format")),
		},
	}
	if cfg.GitHub.State == "" {
		cfg.GitHub.State = types.FilterAll
	}

	if s := check("sync.timeout"); s != "" {
		cfg.Sync.Timeout, _ = time.ParseDuration(s)
	}
	if s := check("sync.concurrency"); s != "" {
		cfg.Sync.Concurrency, _ = strconv.Atoi(s)
	}
	if s := check("sync.dry_run"); s != "" {
		cfg.Sync.DryRun = GetBool("sync.dry_run")
	}

	if len(problems) > 0 {
		return cfg, &ConfigurationError{Problems: problems}
	}
	return cfg, nil
}

func missingMessage(k *Key) string {
	var sources []string
	if k.Flag != "" {
		sources = append(sources, "--"+k.Flag)
	}
	if k.EnvVar != "" {
		sources = append(sources, k.EnvVar)
	}
	if !k.Secret {
		sources = append(sources, k.Key+" in "+FileName+".yaml")
	}
	return fmt.Sprintf("%s is required (set %s)", k.Key, strings.Join(sources, " or "))
}

// Redacted returns a copy safe to print: secrets are masked.
func (c Config) Redacted() Config {
	c.GitHub.Token = mask(c.GitHub.Token)
	c.Airtable.APIKey = mask(c.Airtable.APIKey)
	return c
}

func mask(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "********"
	default:
		return secret[:4] + "********"
	}
}

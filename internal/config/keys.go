package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/issuesync/issuesync/internal/types"
)

// Key describes one configuration key.
type Key struct {
	Key         string // Full key name (e.g., "github.repo")
	Description string // Human-readable description
	EnvVar      string // Corresponding env var name (empty = no env mapping)
	Flag        string // Command-line flag bound to the key (empty = none)
	Secret      bool   // If true, never written to the config file and redacted on display
	Required    bool   // If true, sync cannot start without it
	Default     string // Default value (empty = no default)
	Validate    func(string) error
}

// Keys defines all recognized configuration keys.
var Keys = []Key{
	// Source
	{
		Key:         "github.token",
		Description: "GitHub token with read access to issues",
		EnvVar:      "GITHUB_TOKEN",
		Secret:      true,
		Required:    true,
	},
	{
		Key:         "github.repo",
		Description: "Repository to mirror, as owner/name",
		EnvVar:      "GITHUB_REPO",
		Flag:        "repo",
		Required:    true,
		Validate:    validateRepo,
	},
	{
		Key:         "github.state",
		Description: "Issue state filter (open, closed, all)",
		EnvVar:      "GITHUB_STATE",
		Flag:        "state",
		Default:     string(types.FilterAll),
		Validate:    validateState,
	},
	{
		Key:         "github.base_url",
		Description: "GitHub API base URL (GitHub Enterprise)",
		EnvVar:      "GITHUB_BASE_URL",
	},
	// Destination
	{
		Key:         "airtable.api_key",
		Description: "Airtable personal access token",
		EnvVar:      "AIRTABLE_API_KEY",
		Secret:      true,
		Required:    true,
	},
	{
		Key:         "airtable.base_id",
		Description: "Airtable base ID (app...)",
		EnvVar:      "AIRTABLE_BASE_ID",
		Flag:        "base",
		Required:    true,
	},
	{
		Key:         "airtable.table",
		Description: "Airtable table name or ID",
		EnvVar:      "AIRTABLE_TABLE",
		Flag:        "table",
		Required:    true,
	},
	{
		Key:         "airtable.base_url",
		Description: "Airtable API base URL",
		EnvVar:      "AIRTABLE_BASE_URL",
	},
	// Sync
	{
		Key:         "sync.timeout",
		Description: "Deadline for a whole sync run (0 = none)",
		EnvVar:      "SYNC_TIMEOUT",
		Flag:        "timeout",
		Default:     "5m",
		Validate:    validateDuration,
	},
	{
		Key:         "sync.concurrency",
		Description: "Maximum concurrent write calls per path (0 = one per chunk)",
		EnvVar:      "SYNC_CONCURRENCY",
		Flag:        "concurrency",
		Default:     "0",
		Validate:    validateNonNegative,
	},
	{
		Key:         "sync.dry_run",
		Description: "Reconcile without writing",
		Flag:        "dry-run",
		Default:     "false",
		Validate:    validateBool,
	},
	// Logging
	{
		Key:         "log.level",
		Description: "Log level (debug, info, warn, error)",
		EnvVar:      "LOG_LEVEL",
		Flag:        "log-level",
		Default:     "info",
		Validate:    validateLogLevel,
	},
	{
		Key:         "log.file",
		Description: "Write logs to this file (rotated) instead of stderr",
		EnvVar:      "LOG_FILE",
		Flag:        "log-file",
	},
	{
		Key:         "log.format",
		Description: "Log format (text, json)",
		EnvVar:      "LOG_FORMAT",
		Default:     "text",
		Validate:    validateLogFormat,
	},
}

// keyMap is a lookup table built from Keys.
var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Key] = &Keys[i]
	}
}

// LookupKey returns the Key definition, or nil if the key is not recognized.
func LookupKey(key string) *Key {
	return keyMap[key]
}

// ValidateKey checks that key is known, may be stored in the config file,
// and that value is acceptable for it.
func ValidateKey(key, value string) error {
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, k := range Keys {
			known = append(known, k.Key)
		}
		return fmt.Errorf("unknown key %q; valid keys: %s", key, strings.Join(known, ", "))
	}

	if k.Secret {
		return fmt.Errorf("key %q is a secret and must not be stored in the config file (set %s instead)", key, k.EnvVar)
	}

	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}

	return nil
}

// EnvMap returns a mapping from key to environment variable name.
func EnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Key] = k.EnvVar
		}
	}
	return m
}

// Validation helpers

func validateRepo(value string) error {
	owner, name, ok := strings.Cut(value, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("must be owner/name, got %q", value)
	}
	return nil
}

func validateState(value string) error {
	_, err := types.ParseStateFilter(value)
	return err
}

func validateDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a duration like 30s or 5m, got %q", value)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative, got %s", d)
	}
	return nil
}

func validateNonNegative(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("must be a number, got %q", value)
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of: debug, info, warn, error; got %q", value)
	}
}

func validateLogFormat(value string) error {
	switch strings.ToLower(value) {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("must be text or json, got %q", value)
	}
}

func validateBool(value string) error {
	switch strings.ToLower(value) {
	case "true", "false", "1", "0", "yes", "no":
		return nil
	default:
		return fmt.Errorf("must be true or false, got %q", value)
	}
}

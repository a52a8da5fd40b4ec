package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/issuesync/issuesync/internal/config"
	"github.com/issuesync/issuesync/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit configuration",
	Long: `Show the effective configuration or write keys to the config file.

Settings are resolved from, in increasing order of precedence: defaults,
issuesync.yaml, a .env file, environment variables, and flags.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration (secrets masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, loadErr := config.Load()
		var cfgErr *config.ConfigurationError
		if loadErr != nil && !errors.As(loadErr, &cfgErr) {
			return loadErr
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			o := map[string]interface{}{
				"config":      cfg.Redacted(),
				"config_file": config.ConfigFileUsed(),
				"dotenv_keys": config.DotEnvKeys(),
			}
			if cfgErr != nil {
				o["problems"] = cfgErr.Problems
			}
			return outputJSON(out, o)
		}

		data, err := config.RenderYAML(cfg)
		if err != nil {
			return err
		}
		if used := config.ConfigFileUsed(); used != "" {
			fmt.Fprintln(out, ui.RenderMuted("# config file: "+used))
		}
		if keys := config.DotEnvKeys(); len(keys) > 0 {
			sort.Strings(keys)
			fmt.Fprintln(out, ui.RenderMuted("# from .env: "+strings.Join(keys, ", ")))
		}
		fmt.Fprint(out, string(data))

		if cfgErr != nil {
			for _, p := range cfgErr.Problems {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.RenderWarnIcon(), p)
			}
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key to the config file",
	Long: `Write a key to issuesync.yaml (or the file given with --config).

Secrets such as github.token and airtable.api_key are refused; set them
through the environment or a .env file instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		path := config.WritePath()
		if err := config.SetFileValue(path, key, value); err != nil {
			return &config.ConfigurationError{Problems: []string{err.Error()}}
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]string{
				"key":   key,
				"value": value,
				"file":  path,
			})
		}
		if !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s = %s in %s\n", ui.RenderPassIcon(), key, value, path)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List recognized configuration keys",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		if jsonOutput {
			type keyInfo struct {
				Key         string `json:"key"`
				Description string `json:"description"`
				EnvVar      string `json:"env,omitempty"`
				Flag        string `json:"flag,omitempty"`
				Default     string `json:"default,omitempty"`
				Secret      bool   `json:"secret,omitempty"`
				Required    bool   `json:"required,omitempty"`
			}
			keys := make([]keyInfo, 0, len(config.Keys))
			for _, k := range config.Keys {
				keys = append(keys, keyInfo{k.Key, k.Description, k.EnvVar, k.Flag, k.Default, k.Secret, k.Required})
			}
			return outputJSON(out, keys)
		}

		for _, k := range config.Keys {
			var sources []string
			if k.EnvVar != "" {
				sources = append(sources, "$"+k.EnvVar)
			}
			if k.Flag != "" {
				sources = append(sources, "--"+k.Flag)
			}
			if k.Default != "" {
				sources = append(sources, "default "+k.Default)
			}
			name := ui.RenderAccent(k.Key)
			if k.Required {
				name += ui.RenderWarn(" (required)")
			}
			fmt.Fprintf(out, "%s\n  %s\n", name, k.Description)
			if len(sources) > 0 {
				fmt.Fprintf(out, "  %s\n", ui.RenderMuted(strings.Join(sources, ", ")))
			}
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeysCmd)
	rootCmd.AddCommand(configCmd)
}

package main

import (
	"github.com/issuesync/issuesync/internal/airtable"
	"github.com/issuesync/issuesync/internal/config"
	"github.com/issuesync/issuesync/internal/github"
	"github.com/issuesync/issuesync/internal/telemetry"
	"github.com/issuesync/issuesync/internal/tracker"
)

// newEngine wires the GitHub source and Airtable store described by cfg.
func newEngine(cfg config.Config, reporter tracker.Reporter) (*tracker.Engine, error) {
	source := github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner(), cfg.GitHub.Name())
	if cfg.GitHub.BaseURL != "" {
		var err error
		source, err = source.WithBaseURL(cfg.GitHub.BaseURL)
		if err != nil {
			return nil, &config.ConfigurationError{Problems: []string{err.Error()}}
		}
	}

	store := airtable.NewClient(cfg.Airtable.APIKey, cfg.Airtable.BaseID, cfg.Airtable.Table)
	if cfg.Airtable.BaseURL != "" {
		store = store.WithBaseURL(cfg.Airtable.BaseURL)
	}

	engine := tracker.NewEngine(telemetry.WrapSource(source), telemetry.WrapStore(store), reporter)
	engine.Concurrency = cfg.Sync.Concurrency
	return engine, nil
}

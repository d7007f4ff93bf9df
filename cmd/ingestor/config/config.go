// Package config builds runtime configurations for the ingestor CLI from
// flags and environment settings.
package config

import (
	"time"

	"statement-ingestion-service/internal/aiclient"
	"statement-ingestion-service/internal/reconciler"
)

// DefaultDatabasePath is used when no --db flag or INGESTOR_DB variable is set.
const DefaultDatabasePath = "ingestor.db"

// CreatePipelineConfig creates the pipeline configuration with CLI overrides.
func CreatePipelineConfig(aiDelay time.Duration, dueWindowDays int) *reconciler.Config {
	cfg := reconciler.DefaultConfig()

	if aiDelay >= 0 {
		cfg.Categorizer.AIDelay = aiDelay
	}
	if dueWindowDays > 0 {
		cfg.Validator.MaxDueDateWindowDays = dueWindowDays
	}

	return cfg
}

// CreateAIConfig creates the Gemini client configuration.
func CreateAIConfig(model, apiKey string) *aiclient.Config {
	cfg := aiclient.DefaultConfig()
	if model != "" {
		cfg.Model = model
	}
	cfg.APIKey = apiKey
	return cfg
}

// DatabasePath resolves the database location from the configured value.
func DatabasePath(configured string) string {
	if configured != "" {
		return configured
	}
	return DefaultDatabasePath
}

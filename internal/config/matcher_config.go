package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type MatcherConfig struct {
	// AIKey is optional: without it the embedding gateway is not constructed
	// and every candidate search degrades to the fallback scorer.
	AIKey                  string        `mapstructure:"ai_key"`
	EmbeddingModel         string        `mapstructure:"embedding_model"`
	EmbeddingDimensions    int           `mapstructure:"embedding_dimensions"`
	AiMaxRequestsPerMinute float32       `mapstructure:"ai_max_requests_per_minute"`
	AiMaxRequestsPerDay    float32       `mapstructure:"ai_max_requests_per_day"`
	JobsFile               string        `mapstructure:"jobs_file"`
	CandidatesFile         string        `mapstructure:"candidates_file"`
	EmbeddingWorkers       int           `mapstructure:"embedding_workers"`
	EmbeddingQueueSize     int           `mapstructure:"embedding_queue_size"`
	CacheTTL               time.Duration `mapstructure:"cache_ttl"`
	GatewayTimeout         time.Duration `mapstructure:"gateway_timeout"`
	MetricsPort            int           `mapstructure:"metrics_port"`
}

func (config MatcherConfig) validate() error {

	var missingFields []string

	if config.JobsFile == "" {
		missingFields = append(missingFields, "jobs_file")
	}

	if config.CandidatesFile == "" {
		missingFields = append(missingFields, "candidates_file")
	}

	if config.AIKey != "" && config.EmbeddingModel == "" {
		missingFields = append(missingFields, "embedding_model")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	if config.EmbeddingWorkers <= 0 {
		return errors.New("embedding_workers must be greater than zero")
	}

	if config.EmbeddingDimensions < 0 {
		return errors.New("embedding_dimensions must not be negative")
	}

	return nil
}

func (config MatcherConfig) bindEnvironmentVariables() error {
	var errs []error

	bindings := map[string]string{
		"matcher.ai_key":               "AI_KEY",
		"matcher.embedding_model":      "EMBEDDING_MODEL",
		"matcher.embedding_dimensions": "EMBEDDING_DIMENSIONS",
		"matcher.jobs_file":            "JOBS_FILE",
		"matcher.candidates_file":      "CANDIDATES_FILE",
		"matcher.metrics_port":         "METRICS_PORT",
	}

	for key, env := range bindings {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// FetchJob loads one remote CSV into a table of a local DuckDB file.
type FetchJob struct {
	SourceURL   string `mapstructure:"source_url" yaml:"source_url" validate:"required"`
	Destination string `mapstructure:"destination" yaml:"destination" validate:"required"`
	Table       string `mapstructure:"table" yaml:"table" validate:"required"`
}

type fetchJobsFile struct {
	Jobs []FetchJob `mapstructure:"jobs" yaml:"jobs" validate:"dive"`
}

// LoadJobs reads a fetch-jobs YAML file of the form `jobs: [{source_url, destination, table}]`.
func LoadJobs(path string) ([]FetchJob, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read jobs file %s: %w", path, err)
	}

	var file fetchJobsFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal jobs file: %w", err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid jobs file: %w", err)
	}
	return file.Jobs, nil
}

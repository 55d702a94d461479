package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envBindings maps config keys to the environment variables that override them.
// Earlier names win.
var envBindings = map[string][]string{
	"github.token":                 {"GHUB_TOKEN", "GITHUB_TOKEN"},
	"github.base_url":              {"GITHUB_API_URL"},
	"sink.type":                    {"SINK_TYPE"},
	"sink.sheets.credentials":      {"GCP_CREDENTIALS"},
	"sink.sheets.name":             {"GOOGLE_SHEET_NAME"},
	"sink.sheets.spreadsheet_id":   {"GOOGLE_SHEET_ID"},
	"sink.duckdb.path":             {"DUCKDB_PATH"},
	"sink.duckdb.motherduck_db":    {"MOTHERDUCK_DB"},
	"sink.duckdb.motherduck_token": {"MOTHERDUCK_TOKEN"},
	"sink.database_url":            {"DATABASE_URL"},
	"sink.mongo.uri":               {"MONGO_URI"},
	"sink.mongo.database":          {"MONGO_DB"},
	"logging.level":                {"LOG_LEVEL"},
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("curator")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// 未找到默认配置文件时只用默认值和环境变量
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.base_url", cfg.GitHub.BaseURL)
	v.SetDefault("github.request_timeout", cfg.GitHub.RequestTimeout)

	v.SetDefault("lists.base_url", cfg.Lists.BaseURL)
	entries := make([]map[string]any, 0, len(cfg.Lists.Entries))
	for _, e := range cfg.Lists.Entries {
		entries = append(entries, map[string]any{
			"name":        e.Name,
			"url":         e.URL,
			"description": e.Description,
		})
	}
	v.SetDefault("lists.entries", entries)

	v.SetDefault("recommend.min_stars", cfg.Recommend.MinStars)
	v.SetDefault("recommend.max_per_topic", cfg.Recommend.MaxPerTopic)

	v.SetDefault("pacing.enrich", cfg.Pacing.Enrich)
	v.SetDefault("pacing.scrape", cfg.Pacing.Scrape)
	v.SetDefault("pacing.search", cfg.Pacing.Search)

	v.SetDefault("sink.type", cfg.Sink.Type)
	v.SetDefault("sink.sheets.credentials", cfg.Sink.Sheets.Credentials)
	v.SetDefault("sink.sheets.spreadsheet_id", cfg.Sink.Sheets.SpreadsheetID)
	v.SetDefault("sink.sheets.name", cfg.Sink.Sheets.Name)
	v.SetDefault("sink.duckdb.path", cfg.Sink.DuckDB.Path)
	v.SetDefault("sink.duckdb.motherduck_db", cfg.Sink.DuckDB.MotherDuckDB)
	v.SetDefault("sink.duckdb.motherduck_token", cfg.Sink.DuckDB.MotherDuckToken)
	v.SetDefault("sink.database_url", cfg.Sink.DatabaseURL)
	v.SetDefault("sink.mongo.uri", cfg.Sink.Mongo.URI)
	v.SetDefault("sink.mongo.database", cfg.Sink.Mongo.Database)

	v.SetDefault("jobs.file", cfg.Jobs.File)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.development", cfg.Logging.Development)
}

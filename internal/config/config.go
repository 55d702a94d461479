package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github-star-curator/internal/domain"
)

// Config is the complete runtime configuration, built once in main and passed down.
type Config struct {
	GitHub    GitHubConfig    `mapstructure:"github" yaml:"github"`
	Lists     ListsConfig     `mapstructure:"lists" yaml:"lists"`
	Recommend RecommendConfig `mapstructure:"recommend" yaml:"recommend"`
	Pacing    PacingConfig    `mapstructure:"pacing" yaml:"pacing"`
	Sink      SinkConfig      `mapstructure:"sink" yaml:"sink"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// GitHubConfig holds API access settings.
type GitHubConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
	// empty means the public API
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" validate:"gt=0"`
}

// ListsConfig declares the curated lists that become tags.
type ListsConfig struct {
	BaseURL string      `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	Entries []ListEntry `mapstructure:"entries" yaml:"entries" validate:"dive"`
}

// ListEntry is one curated list. URL defaults to BaseURL + Name.
type ListEntry struct {
	Name        string `mapstructure:"name" yaml:"name" validate:"required"`
	URL         string `mapstructure:"url" yaml:"url" validate:"omitempty,url"`
	Description string `mapstructure:"description" yaml:"description"`
}

// RecommendConfig tunes the topic search.
type RecommendConfig struct {
	MinStars    int `mapstructure:"min_stars" yaml:"min_stars" validate:"gte=0"`
	MaxPerTopic int `mapstructure:"max_per_topic" yaml:"max_per_topic" validate:"gt=0"`
}

// PacingConfig is the fixed interval between successive calls to one external API.
type PacingConfig struct {
	Enrich time.Duration `mapstructure:"enrich" yaml:"enrich" validate:"gte=0"`
	Scrape time.Duration `mapstructure:"scrape" yaml:"scrape" validate:"gte=0"`
	Search time.Duration `mapstructure:"search" yaml:"search" validate:"gte=0"`
}

// Sink types.
const (
	SinkSheets   = "sheets"
	SinkDuckDB   = "duckdb"
	SinkPostgres = "postgres"
	SinkSQLite   = "sqlite"
	SinkMongo    = "mongo"
)

// SinkConfig selects and configures the output backend. Secrets are checked by the
// backend that needs them.
type SinkConfig struct {
	Type   string       `mapstructure:"type" yaml:"type" validate:"oneof=sheets duckdb postgres sqlite mongo"`
	Sheets SheetsConfig `mapstructure:"sheets" yaml:"sheets"`
	DuckDB DuckDBConfig `mapstructure:"duckdb" yaml:"duckdb"`
	// postgres:// DSN or sqlite file path
	DatabaseURL string      `mapstructure:"database_url" yaml:"database_url"`
	Mongo       MongoConfig `mapstructure:"mongo" yaml:"mongo"`
}

type SheetsConfig struct {
	// inline JSON or a file path
	Credentials   string `mapstructure:"credentials" yaml:"credentials"`
	SpreadsheetID string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
	Name          string `mapstructure:"name" yaml:"name"`
}

type DuckDBConfig struct {
	// local database file; when empty MotherDuck is used
	Path            string `mapstructure:"path" yaml:"path"`
	MotherDuckDB    string `mapstructure:"motherduck_db" yaml:"motherduck_db"`
	MotherDuckToken string `mapstructure:"motherduck_token" yaml:"motherduck_token"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// JobsConfig points at the batch fetch-jobs file.
type JobsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// DefaultListBaseURL is the curated-list page prefix.
const DefaultListBaseURL = "https://github.com/stars/Veatec22/lists/"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			RequestTimeout: 30 * time.Second,
		},
		Lists: ListsConfig{
			BaseURL: DefaultListBaseURL,
			Entries: []ListEntry{
				{Name: "future-ideas", Description: "Innovative projects and experimental technologies"},
				{Name: "stack", Description: "Core development stack and essential tools"},
				{Name: "nice-to-have", Description: "Useful tools and libraries for future consideration"},
				{Name: domain.IgnoreList, Description: "Excluded from every output table"},
				{Name: "education", Description: "Learning material"},
			},
		},
		Recommend: RecommendConfig{
			MinStars:    1000,
			MaxPerTopic: 50,
		},
		Pacing: PacingConfig{
			Enrich: 100 * time.Millisecond,
			Scrape: time.Second,
			Search: 100 * time.Millisecond,
		},
		Sink: SinkConfig{
			Type: SinkSheets,
			Sheets: SheetsConfig{
				Name: "GitHub Stars",
			},
			DuckDB: DuckDBConfig{
				MotherDuckDB: "github",
			},
			Mongo: MongoConfig{
				Database: "github",
			},
		},
		Jobs: JobsConfig{
			File: "fetch_jobs.yaml",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks field constraints and that list names are unique.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Lists.Entries))
	for _, e := range c.Lists.Entries {
		if seen[e.Name] {
			return fmt.Errorf("invalid config: duplicate list name %q", e.Name)
		}
		seen[e.Name] = true
	}
	return nil
}

// CuratedLists resolves the configured entries into lists with URLs.
func (c *Config) CuratedLists() []domain.CuratedList {
	lists := make([]domain.CuratedList, 0, len(c.Lists.Entries))
	for _, e := range c.Lists.Entries {
		u := e.URL
		if u == "" {
			u = strings.TrimRight(c.Lists.BaseURL, "/") + "/" + e.Name
		}
		lists = append(lists, domain.CuratedList{Name: e.Name, URL: u})
	}
	return lists
}

package domain

import (
	"fmt"
	"time"
)

// Output table names.
const (
	StarredTable         = "starred"
	RecommendationsTable = "recommendations"
	ListsTable           = "lists"
)

// Table is a flat result set ready for a sink. Rows is the cell view used by the
// spreadsheet sink; Model and Records are the typed view used by database sinks.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
	// pointer to a zero row struct, e.g. &StarredRow{}
	Model any
	// slice of row structs, e.g. []StarredRow
	Records any
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// StarredRow is the flat storage shape of a Repo.
type StarredRow struct {
	FullName             string `gorm:"column:full_name;primaryKey" bson:"full_name" json:"full_name"`
	Description          string `gorm:"column:description" bson:"description" json:"description"`
	StarCount            int    `gorm:"column:star_count" bson:"star_count" json:"star_count"`
	ForkCount            int    `gorm:"column:fork_count" bson:"fork_count" json:"fork_count"`
	PrimaryLanguage      string `gorm:"column:primary_language" bson:"primary_language" json:"primary_language"`
	URL                  string `gorm:"column:url" bson:"url" json:"url"`
	LastReleaseTimestamp string `gorm:"column:last_release_timestamp" bson:"last_release_timestamp" json:"last_release_timestamp"`
	Topics               string `gorm:"column:topics" bson:"topics" json:"topics"`
	CuratedTags          string `gorm:"column:curated_tags" bson:"curated_tags" json:"curated_tags"`
	AllTags              string `gorm:"column:all_tags" bson:"all_tags" json:"all_tags"`
	IsCurated            bool   `gorm:"column:is_curated" bson:"is_curated" json:"is_curated"`
	CreatedAt            string `gorm:"column:created_at" bson:"created_at" json:"created_at"`
	UpdatedAt            string `gorm:"column:updated_at" bson:"updated_at" json:"updated_at"`
	PushedAt             string `gorm:"column:pushed_at" bson:"pushed_at" json:"pushed_at"`
	FetchedAt            string `gorm:"column:fetched_at" bson:"fetched_at" json:"fetched_at"`
	Archived             bool   `gorm:"column:archived" bson:"archived" json:"archived"`
	Fork                 bool   `gorm:"column:fork" bson:"fork" json:"fork"`
}

// StarredColumns is the column order of the starred table.
var StarredColumns = []string{
	"full_name", "description", "star_count", "fork_count", "primary_language", "url",
	"last_release_timestamp", "topics", "curated_tags", "all_tags", "is_curated",
	"created_at", "updated_at", "pushed_at", "fetched_at", "archived", "fork",
}

// Values returns the cells in StarredColumns order.
func (r StarredRow) Values() []any {
	return []any{
		r.FullName, r.Description, r.StarCount, r.ForkCount, r.PrimaryLanguage, r.URL,
		r.LastReleaseTimestamp, r.Topics, r.CuratedTags, r.AllTags, r.IsCurated,
		r.CreatedAt, r.UpdatedAt, r.PushedAt, r.FetchedAt, r.Archived, r.Fork,
	}
}

// Pointers returns scan targets in StarredColumns order.
func (r *StarredRow) Pointers() []any {
	return []any{
		&r.FullName, &r.Description, &r.StarCount, &r.ForkCount, &r.PrimaryLanguage, &r.URL,
		&r.LastReleaseTimestamp, &r.Topics, &r.CuratedTags, &r.AllTags, &r.IsCurated,
		&r.CreatedAt, &r.UpdatedAt, &r.PushedAt, &r.FetchedAt, &r.Archived, &r.Fork,
	}
}

// Tags returns the parsed all_tags cell.
func (r StarredRow) Tags() []string {
	return SplitTags(r.AllTags)
}

// ToRow flattens the repository.
func (r *Repo) ToRow() StarredRow {
	return StarredRow{
		FullName:             r.FullName,
		Description:          r.Description,
		StarCount:            r.Stars,
		ForkCount:            r.Forks,
		PrimaryLanguage:      r.Language,
		URL:                  r.URL,
		LastReleaseTimestamp: r.LastRelease.String(),
		Topics:               JoinTags(r.Topics),
		CuratedTags:          JoinTags(r.CuratedTags),
		AllTags:              JoinTags(r.AllTags),
		IsCurated:            r.IsCurated,
		CreatedAt:            formatTime(r.CreatedAt),
		UpdatedAt:            formatTime(r.UpdatedAt),
		PushedAt:             formatTime(r.PushedAt),
		FetchedAt:            formatTime(r.FetchedAt),
		Archived:             r.Archived,
		Fork:                 r.Fork,
	}
}

// RecommendationRow is the flat storage shape of a Recommendation.
type RecommendationRow struct {
	FullName            string `gorm:"column:full_name;primaryKey" bson:"full_name" json:"full_name"`
	StarCount           int    `gorm:"column:star_count" bson:"star_count" json:"star_count"`
	ForkCount           int    `gorm:"column:fork_count" bson:"fork_count" json:"fork_count"`
	PrimaryLanguage     string `gorm:"column:primary_language" bson:"primary_language" json:"primary_language"`
	URL                 string `gorm:"column:url" bson:"url" json:"url"`
	Topics              string `gorm:"column:topics" bson:"topics" json:"topics"`
	MatchedTopics       string `gorm:"column:matched_topics" bson:"matched_topics" json:"matched_topics"`
	TopicFrequencyScore int    `gorm:"column:topic_frequency_score" bson:"topic_frequency_score" json:"topic_frequency_score"`
	NumTopicMatches     int    `gorm:"column:num_topic_matches" bson:"num_topic_matches" json:"num_topic_matches"`
}

// RecommendationColumns is the column order of the recommendations table.
var RecommendationColumns = []string{
	"full_name", "star_count", "fork_count", "primary_language", "url",
	"topics", "matched_topics", "topic_frequency_score", "num_topic_matches",
}

// Values returns the cells in RecommendationColumns order.
func (r RecommendationRow) Values() []any {
	return []any{
		r.FullName, r.StarCount, r.ForkCount, r.PrimaryLanguage, r.URL,
		r.Topics, r.MatchedTopics, r.TopicFrequencyScore, r.NumTopicMatches,
	}
}

// ToRow flattens the recommendation. Matched topics keep their discovery order.
func (r *Recommendation) ToRow() RecommendationRow {
	return RecommendationRow{
		FullName:            r.FullName,
		StarCount:           r.Stars,
		ForkCount:           r.Forks,
		PrimaryLanguage:     r.Language,
		URL:                 r.URL,
		Topics:              JoinTags(r.Topics),
		MatchedTopics:       JoinTags(r.MatchedTopics),
		TopicFrequencyScore: r.Score,
		NumTopicMatches:     r.NumMatches(),
	}
}

// ListRow is the flat storage shape of a combined ListEntry.
type ListRow struct {
	FullName        string `gorm:"column:full_name;primaryKey" bson:"full_name" json:"full_name"`
	URL             string `gorm:"column:url" bson:"url" json:"url"`
	Description     string `gorm:"column:description" bson:"description" json:"description"`
	PrimaryLanguage string `gorm:"column:primary_language" bson:"primary_language" json:"primary_language"`
	StarCount       int    `gorm:"column:star_count" bson:"star_count" json:"star_count"`
	ForkCount       int    `gorm:"column:fork_count" bson:"fork_count" json:"fork_count"`
	UpdatedAt       string `gorm:"column:updated_at" bson:"updated_at" json:"updated_at"`
	Tags            string `gorm:"column:tags" bson:"tags" json:"tags"`
	TagsCount       int    `gorm:"column:tags_count" bson:"tags_count" json:"tags_count"`
	FetchedAt       string `gorm:"column:fetched_at" bson:"fetched_at" json:"fetched_at"`
}

// ListColumns is the column order of the lists table.
var ListColumns = []string{
	"full_name", "url", "description", "primary_language", "star_count", "fork_count",
	"updated_at", "tags", "tags_count", "fetched_at",
}

// Values returns the cells in ListColumns order.
func (r ListRow) Values() []any {
	return []any{
		r.FullName, r.URL, r.Description, r.PrimaryLanguage, r.StarCount, r.ForkCount,
		r.UpdatedAt, r.Tags, r.TagsCount, r.FetchedAt,
	}
}

// ToRow flattens the list entry.
func (e *ListEntry) ToRow() ListRow {
	tags := SortedUnion(e.Tags)
	return ListRow{
		FullName:        e.FullName,
		URL:             e.URL,
		Description:     e.Description,
		PrimaryLanguage: e.Language,
		StarCount:       e.Stars,
		ForkCount:       e.Forks,
		UpdatedAt:       e.UpdatedAt,
		Tags:            JoinTags(tags),
		TagsCount:       len(tags),
		FetchedAt:       formatTime(e.FetchedAt),
	}
}

// NewStarredTable validates the repositories and builds the starred table.
// full_name must be unique across the table.
func NewStarredTable(name string, repos []Repo) (*Table, error) {
	seen := make(map[string]struct{}, len(repos))
	records := make([]StarredRow, 0, len(repos))
	rows := make([][]any, 0, len(repos))
	for i := range repos {
		repo := &repos[i]
		if err := repo.Validate(); err != nil {
			return nil, fmt.Errorf("starred row %d: %w", i, err)
		}
		if _, dup := seen[repo.FullName]; dup {
			return nil, fmt.Errorf("starred row %d: duplicate full_name %q", i, repo.FullName)
		}
		seen[repo.FullName] = struct{}{}
		row := repo.ToRow()
		records = append(records, row)
		rows = append(rows, row.Values())
	}
	return &Table{Name: name, Columns: StarredColumns, Rows: rows, Model: &StarredRow{}, Records: records}, nil
}

// NewRecommendationTable validates the recommendations and builds the recommendations table.
func NewRecommendationTable(name string, recs []Recommendation) (*Table, error) {
	seen := make(map[string]struct{}, len(recs))
	records := make([]RecommendationRow, 0, len(recs))
	rows := make([][]any, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("recommendation row %d: %w", i, err)
		}
		if _, dup := seen[rec.FullName]; dup {
			return nil, fmt.Errorf("recommendation row %d: duplicate full_name %q", i, rec.FullName)
		}
		seen[rec.FullName] = struct{}{}
		row := rec.ToRow()
		records = append(records, row)
		rows = append(rows, row.Values())
	}
	return &Table{Name: name, Columns: RecommendationColumns, Rows: rows, Model: &RecommendationRow{}, Records: records}, nil
}

// NewListTable builds the combined curated-lists table.
func NewListTable(name string, entries []ListEntry) (*Table, error) {
	seen := make(map[string]struct{}, len(entries))
	records := make([]ListRow, 0, len(entries))
	rows := make([][]any, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		if entry.FullName == "" {
			return nil, fmt.Errorf("list row %d: empty full_name", i)
		}
		if _, dup := seen[entry.FullName]; dup {
			return nil, fmt.Errorf("list row %d: duplicate full_name %q", i, entry.FullName)
		}
		seen[entry.FullName] = struct{}{}
		row := entry.ToRow()
		records = append(records, row)
		rows = append(rows, row.Values())
	}
	return &Table{Name: name, Columns: ListColumns, Rows: rows, Model: &ListRow{}, Records: records}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

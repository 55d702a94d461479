package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
)

func openTestSink(t *testing.T) *Sink {
	t.Helper()
	sink, err := Open(config.DuckDBConfig{Path: filepath.Join(t.TempDir(), "nested", "stars.duckdb")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	return sink
}

func starredTable(t *testing.T, n int) *domain.Table {
	t.Helper()
	repos := make([]domain.Repo, 0, n)
	for i := 0; i < n; i++ {
		r := domain.Repo{
			ID:          int64(i + 1),
			FullName:    fmt.Sprintf("owner/repo%02d", i),
			Stars:       i * 10,
			Topics:      []string{"duckdb", "sql"},
			LastRelease: domain.Release{Status: domain.ReleaseError, Code: 502},
		}
		r.ApplyCuratedTags(nil)
		repos = append(repos, r)
	}
	table, err := domain.NewStarredTable(domain.StarredTable, repos)
	require.NoError(t, err)
	return table
}

func countRows(t *testing.T, s *Sink, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM "+quote(table)).Scan(&n))
	return n
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "data/stars.duckdb", DSN(config.DuckDBConfig{Path: "data/stars.duckdb", MotherDuckDB: "github"}))
	assert.Equal(t, "md:github", DSN(config.DuckDBConfig{MotherDuckDB: "github"}))
	assert.Equal(t, "md:github?motherduck_token=tok", DSN(config.DuckDBConfig{MotherDuckDB: "github", MotherDuckToken: "tok"}))
}

func TestSink_Persist_OverwritesPreviousRun(t *testing.T) {
	sink := openTestSink(t)
	ctx := context.Background()

	require.NoError(t, sink.Persist(ctx, starredTable(t, 10)))
	assert.Equal(t, 10, countRows(t, sink, domain.StarredTable))

	require.NoError(t, sink.Persist(ctx, starredTable(t, 3)))
	assert.Equal(t, 3, countRows(t, sink, domain.StarredTable))

	rows, err := sink.LoadStarred(ctx, domain.StarredTable)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "owner/repo01", rows[1].FullName)
	assert.Equal(t, 10, rows[1].StarCount)
	assert.Equal(t, "Error: 502", rows[1].LastReleaseTimestamp)
	assert.Equal(t, []string{"duckdb", "sql"}, rows[1].Tags())
	assert.False(t, rows[1].IsCurated)
}

func TestSink_Persist_EmptyTableKeepsSchema(t *testing.T) {
	sink := openTestSink(t)
	ctx := context.Background()

	table, err := domain.NewRecommendationTable(domain.RecommendationsTable, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Persist(ctx, table))

	assert.Equal(t, 0, countRows(t, sink, domain.RecommendationsTable))

	tables, err := sink.Tables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, domain.RecommendationsTable)
}

func TestSink_Persist_RejectsBadTableName(t *testing.T) {
	sink := openTestSink(t)
	table := starredTable(t, 1)
	table.Name = "starred; DROP TABLE x"

	assert.Error(t, sink.Persist(context.Background(), table))
}

func TestSink_LoadStarred_MissingTable(t *testing.T) {
	sink := openTestSink(t)

	rows, err := sink.LoadStarred(context.Background(), domain.StarredTable)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateTableSQL(t *testing.T) {
	got := createTableSQL("t", []string{"name", "stars", "ok"}, []any{"", 0, false})
	assert.Equal(t, `CREATE TABLE "t" ("name" VARCHAR, "stars" BIGINT, "ok" BOOLEAN)`, got)
	assert.Equal(t, `INSERT INTO "t" ("a", "b") VALUES (?, ?)`, insertSQL("t", []string{"a", "b"}))
}

func TestJobRunner_Run(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,age\nada,36\nlinus,28\n"), 0o644))

	dest := filepath.Join(dir, "data", "raw", "people.duckdb")
	jobs := []config.FetchJob{{SourceURL: csvPath, Destination: dest, Table: "people"}}

	runner := NewJobRunner(nil)
	require.NoError(t, runner.Run(context.Background(), jobs))
	// 再跑一次应当替换而不是追加
	require.NoError(t, runner.Run(context.Background(), jobs))

	db, err := sql.Open("duckdb", dest)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM "people"`).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestJobRunner_InvalidTable(t *testing.T) {
	err := NewJobRunner(nil).RunJob(context.Background(), config.FetchJob{
		SourceURL:   "https://example.com/a.csv",
		Destination: filepath.Join(t.TempDir(), "a.duckdb"),
		Table:       "bad-name",
	})
	assert.Error(t, err)
}

func TestLoadCSVSQL_EscapesQuotes(t *testing.T) {
	assert.Equal(t,
		`CREATE OR REPLACE TABLE "t" AS SELECT * FROM read_csv_auto('https://x.io/o''brien.csv')`,
		loadCSVSQL("t", "https://x.io/o'brien.csv"))
}

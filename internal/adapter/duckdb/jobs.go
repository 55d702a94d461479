package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier 只接受简单的 SQL 标识符
func ValidateIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return common.NewError(common.ErrCodeInvalidInput, fmt.Sprintf("invalid table name %q", name))
	}
	return nil
}

// JobRunner 把远程 CSV 加载进本地 DuckDB 文件
type JobRunner struct {
	logger *zap.Logger
}

func NewJobRunner(logger *zap.Logger) *JobRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobRunner{logger: logger.With(zap.String("component", "fetch_jobs"))}
}

// Run 依次执行每个任务，遇到第一个失败即返回
func (r *JobRunner) Run(ctx context.Context, jobs []config.FetchJob) error {
	for _, job := range jobs {
		if err := r.RunJob(ctx, job); err != nil {
			return err
		}
	}
	return nil
}

// RunJob replaces job.Table in job.Destination with the rows of job.SourceURL.
func (r *JobRunner) RunJob(ctx context.Context, job config.FetchJob) error {
	if err := ValidateIdentifier(job.Table); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(job.Destination), 0o755); err != nil {
		return common.WrapError(common.ErrCodeSink, "create destination directory", err)
	}

	db, err := sql.Open("duckdb", job.Destination)
	if err != nil {
		return common.WrapError(common.ErrCodeSink, "open "+job.Destination, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, loadCSVSQL(job.Table, job.SourceURL)); err != nil {
		return common.WrapError(common.ErrCodeSink, fmt.Sprintf("load %s into %s", job.SourceURL, job.Table), err)
	}

	r.logger.Info("saved table",
		zap.String("table", job.Table),
		zap.String("destination", job.Destination))
	return nil
}

func loadCSVSQL(table, source string) string {
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto('%s')",
		quote(table), strings.ReplaceAll(source, "'", "''"))
}

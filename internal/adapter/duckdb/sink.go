package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

var _ port.Sink = (*Sink)(nil)

// Sink 把结果表写入 DuckDB 文件或 MotherDuck
type Sink struct {
	db     *sql.DB
	logger *zap.Logger
}

// DSN builds the connection string: a local file when Path is set, MotherDuck otherwise.
func DSN(cfg config.DuckDBConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	dsn := "md:" + cfg.MotherDuckDB
	if cfg.MotherDuckToken != "" {
		dsn += "?motherduck_token=" + cfg.MotherDuckToken
	}
	return dsn
}

// Open 连接 DuckDB，必要时创建本地文件所在目录
func Open(cfg config.DuckDBConfig, logger *zap.Logger) (*Sink, error) {
	if cfg.Path == "" && cfg.MotherDuckDB == "" {
		return nil, common.NewError(common.ErrCodeConfig, "duckdb sink needs a path or a MotherDuck database")
	}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, common.WrapError(common.ErrCodeSink, "create duckdb directory", err)
		}
	}

	db, err := sql.Open("duckdb", DSN(cfg))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "open duckdb", err)
	}
	return newSink(db, logger), nil
}

func newSink(db *sql.DB, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{db: db, logger: logger.With(zap.String("component", "duckdb_sink"))}
}

type valuer interface {
	Values() []any
}

// Persist 删表、建表、插入，在同一事务内完成
func (s *Sink) Persist(ctx context.Context, table *domain.Table) error {
	if err := ValidateIdentifier(table.Name); err != nil {
		return err
	}
	model, ok := table.Model.(valuer)
	if !ok {
		return common.NewError(common.ErrCodeInvalidInput, "table model has no column values: "+table.Name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(common.ErrCodeSink, "begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+quote(table.Name)); err != nil {
		return common.WrapError(common.ErrCodeSink, "drop "+table.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(table.Name, table.Columns, model.Values())); err != nil {
		return common.WrapError(common.ErrCodeSink, "create "+table.Name, err)
	}

	if table.Len() > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL(table.Name, table.Columns))
		if err != nil {
			return common.WrapError(common.ErrCodeSink, "prepare insert into "+table.Name, err)
		}
		defer stmt.Close()

		for i, row := range table.Rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return common.WrapError(common.ErrCodeSink, fmt.Sprintf("insert row %d into %s", i, table.Name), err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return common.WrapError(common.ErrCodeSink, "commit "+table.Name, err)
	}

	s.logger.Info("table replaced", zap.String("table", table.Name), zap.Int("rows", table.Len()))
	return nil
}

// LoadStarred 读回 starred 表；表不存在时返回空
func (s *Sink) LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error) {
	if err := ValidateIdentifier(name); err != nil {
		return nil, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = ?", name).Scan(&count)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "look up "+name, err)
	}
	if count == 0 {
		return nil, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY full_name", quoteAll(domain.StarredColumns), quote(name))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "load "+name, err)
	}
	defer rows.Close()

	var out []domain.StarredRow
	for rows.Next() {
		var row domain.StarredRow
		if err := rows.Scan(row.Pointers()...); err != nil {
			return nil, common.WrapError(common.ErrCodeSink, "scan "+name, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "load "+name, err)
	}
	return out, nil
}

// Tables checks the connection and lists the tables of the current database.
func (s *Sink) Tables(ctx context.Context) ([]string, error) {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "list tables", err)
	}

	rows, err := s.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "show tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.WrapError(common.ErrCodeSink, "scan table name", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

func (s *Sink) Close() error {
	return s.db.Close()
}

func createTableSQL(name string, columns []string, sample []any) string {
	defs := make([]string, 0, len(columns))
	for i, col := range columns {
		defs = append(defs, quote(col)+" "+sqlType(sample[i]))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(defs, ", "))
}

func insertSQL(name string, columns []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(name), quoteAll(columns), placeholders)
}

func sqlType(v any) string {
	switch v.(type) {
	case bool:
		return "BOOLEAN"
	case int, int32, int64:
		return "BIGINT"
	case float32, float64:
		return "DOUBLE"
	default:
		return "VARCHAR"
	}
}

func quoteAll(idents []string) string {
	quoted := make([]string, 0, len(idents))
	for _, id := range idents {
		quoted = append(quoted, quote(id))
	}
	return strings.Join(quoted, ", ")
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

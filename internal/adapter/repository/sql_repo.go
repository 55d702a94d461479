package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

const batchSize = 100

var _ port.Sink = (*SQLRepo)(nil)

// SQLRepo 把结果表整表写入关系型数据库 (Postgres / SQLite)
type SQLRepo struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Dialector picks the gorm driver for a sink kind.
func Dialector(kind, dsn string) (gorm.Dialector, error) {
	switch kind {
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	default:
		return nil, common.NewError(common.ErrCodeConfig, "unsupported sql sink "+kind)
	}
}

// NewSQLRepo 初始化数据库连接
func NewSQLRepo(kind, dsn string, log *zap.Logger) (*SQLRepo, error) {
	if dsn == "" {
		return nil, common.NewError(common.ErrCodeConfig, "DATABASE_URL is required for the "+kind+" sink")
	}
	dialector, err := Dialector(kind, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "连接数据库失败", err)
	}

	return newSQLRepo(db, log), nil
}

func newSQLRepo(db *gorm.DB, log *zap.Logger) *SQLRepo {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLRepo{db: db, logger: log.With(zap.String("component", "sql_sink"))}
}

// Persist 在一个事务里删表、按行模型重建表、批量插入
func (r *SQLRepo) Persist(ctx context.Context, table *domain.Table) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(table.Name).Migrator().DropTable(table.Model); err != nil {
			return fmt.Errorf("drop table %s: %w", table.Name, err)
		}
		if err := tx.Table(table.Name).AutoMigrate(table.Model); err != nil {
			return fmt.Errorf("create table %s: %w", table.Name, err)
		}
		if table.Len() == 0 {
			return nil
		}
		if err := tx.Table(table.Name).CreateInBatches(table.Records, batchSize).Error; err != nil {
			return fmt.Errorf("insert into %s: %w", table.Name, err)
		}
		return nil
	})
	if err != nil {
		return common.WrapError(common.ErrCodeSink, "persist "+table.Name, err)
	}

	r.logger.Info("table replaced", zap.String("table", table.Name), zap.Int("rows", table.Len()))
	return nil
}

// LoadStarred 读回 starred 表；表不存在时返回空
func (r *SQLRepo) LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error) {
	db := r.db.WithContext(ctx)
	if !db.Migrator().HasTable(name) {
		return nil, nil
	}

	var rows []domain.StarredRow
	if err := db.Table(name).Order("full_name").Find(&rows).Error; err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "load "+name, err)
	}
	return rows, nil
}

// Tables 列出现有的表
func (r *SQLRepo) Tables(ctx context.Context) ([]string, error) {
	tables, err := r.db.WithContext(ctx).Migrator().GetTables()
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "list tables", err)
	}
	return tables, nil
}

func (r *SQLRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

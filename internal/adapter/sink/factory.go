package sink

import (
	"context"

	"go.uber.org/zap"

	"github-star-curator/internal/adapter/duckdb"
	"github-star-curator/internal/adapter/mongo"
	"github-star-curator/internal/adapter/repository"
	"github-star-curator/internal/adapter/sheets"
	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/port"
)

// Open 按 cfg.Sink.Type 创建输出端
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (port.Sink, error) {
	switch cfg.Sink.Type {
	case config.SinkSheets:
		s, err := sheets.New(ctx, cfg.Sink.Sheets, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkDuckDB:
		s, err := duckdb.Open(cfg.Sink.DuckDB, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkPostgres, config.SinkSQLite:
		s, err := repository.NewSQLRepo(cfg.Sink.Type, cfg.Sink.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.SinkMongo:
		s, err := mongo.Open(ctx, cfg.Sink.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, common.NewError(common.ErrCodeConfig, "unknown sink type: "+cfg.Sink.Type)
	}
}

package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github-star-curator/internal/adapter/github"
	"github-star-curator/internal/adapter/recommender"
	"github-star-curator/internal/adapter/scraper"
	"github-star-curator/internal/adapter/sink"
	"github-star-curator/internal/adapter/tagger"
	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/port"
	"github-star-curator/internal/service"
)

// globalFlags 是所有子命令共享的参数
type globalFlags struct {
	configPath string
	sinkType   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "curator",
		Short:         "Catalog starred GitHub repositories and recommend new ones",
		Long:          "curator fetches your starred repositories, tags them with your curated GitHub lists, enriches them with release and topic data, writes them to a spreadsheet or database and recommends similar repositories by topic frequency.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file (default: ./curator.yaml or ./configs/curator.yaml)")
	root.PersistentFlags().StringVar(&flags.sinkType, "sink", "", "output sink: sheets|duckdb|postgres|sqlite|mongo (overrides SINK_TYPE)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")

	root.AddCommand(
		newSyncCmd(flags),
		newStarredCmd(flags),
		newRecommendCmd(flags),
		newListsCmd(flags),
		newJobsCmd(flags),
	)
	return root
}

// loadConfig 读取配置并应用命令行覆盖
func loadConfig(flags *globalFlags) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, common.WrapError(common.ErrCodeConfig, "load config", err)
	}
	if flags.sinkType != "" {
		cfg.Sink.Type = flags.sinkType
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, common.WrapError(common.ErrCodeConfig, "invalid config", err)
	}

	return cfg, common.NewLogger(cfg.Logging.Level, cfg.Logging.Development), nil
}

// newService 组装所有组件
func newService(cfg *config.Config, out port.Sink, logger *zap.Logger) (*service.CuratorService, error) {
	client, err := github.NewClient(cfg.GitHub, logger,
		github.WithSearchPacer(common.NewPacer(cfg.Pacing.Search)))
	if err != nil {
		return nil, err
	}
	if cfg.GitHub.Token == "" {
		logger.Warn("GHUB_TOKEN is not set, using anonymous GitHub access")
	}

	listScraper := scraper.NewScraper(&http.Client{Timeout: cfg.GitHub.RequestTimeout}, logger)
	curator := tagger.NewTagger(listScraper, common.NewPacer(cfg.Pacing.Scrape), logger)
	engine := recommender.NewEngine(client, cfg.Recommend.MinStars, cfg.Recommend.MaxPerTopic, logger)

	return service.NewCuratorService(
		client,
		client,
		curator,
		engine,
		out,
		cfg.CuratedLists(),
		common.NewPacer(cfg.Pacing.Enrich),
		logger,
	), nil
}

// withService 加载配置、打开 sink、组装服务后执行 fn，结束时关闭 sink
func withService(ctx context.Context, flags *globalFlags, fn func(*service.CuratorService, *zap.Logger) error) error {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, err := sink.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sink", zap.String("sink", cfg.Sink.Type), zap.Error(err))
		return err
	}
	defer out.Close()

	svc, err := newService(cfg, out, logger)
	if err != nil {
		return err
	}

	if err := fn(svc, logger); err != nil {
		logger.Error("command failed", zap.Error(err))
		return err
	}
	return nil
}

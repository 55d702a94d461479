package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github-star-curator/internal/adapter/duckdb"
	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/service"
)

func newStarredCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "starred",
		Short: "Fetch, tag, enrich and persist starred repositories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), flags, func(svc *service.CuratorService, _ *zap.Logger) error {
				summary, _, _, err := svc.Starred(cmd.Context())
				if errors.Is(err, service.ErrNothingToDo) {
					fmt.Fprintln(cmd.OutOrStdout(), noStarredMessage)
					return nil
				}
				if err != nil {
					return err
				}
				printStarredSummary(cmd.OutOrStdout(), summary)
				return nil
			})
		},
	}
}

func newRecommendCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Recommend repositories from the topics of the stored starred table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), flags, func(svc *service.CuratorService, _ *zap.Logger) error {
				recs, err := svc.Recommend(cmd.Context())
				if errors.Is(err, service.ErrNothingToDo) {
					fmt.Fprintln(cmd.OutOrStdout(), "📭 no starred repositories with topics, nothing to do")
					return nil
				}
				if err != nil {
					return err
				}
				printRecommendations(cmd.OutOrStdout(), recs)
				return nil
			})
		},
	}
}

func newListsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "lists",
		Short: "Scrape every curated list into the combined lists table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), flags, func(svc *service.CuratorService, _ *zap.Logger) error {
				counts, total, err := svc.Lists(cmd.Context())
				if err != nil {
					return err
				}
				printTagCounts(cmd.OutOrStdout(), total, counts)
				return nil
			})
		},
	}
}

func newJobsCmd(flags *globalFlags) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Load the CSV sources of a fetch-jobs file into DuckDB files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(flags)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if file == "" {
				file = cfg.Jobs.File
			}
			jobs, err := config.LoadJobs(file)
			if err != nil {
				return common.WrapError(common.ErrCodeConfig, "load jobs", err)
			}

			if err := duckdb.NewJobRunner(logger).Run(cmd.Context(), jobs); err != nil {
				logger.Error("fetch job failed", zap.Error(err))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d jobs done\n", len(jobs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "fetch-jobs YAML file (default from config: fetch_jobs.yaml)")
	return cmd
}

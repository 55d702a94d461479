package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github-star-curator/internal/service"
)

func newSyncCmd(flags *globalFlags) *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch, tag, enrich and persist starred repositories, then recommend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return withService(cmd.Context(), flags, func(svc *service.CuratorService, logger *zap.Logger) error {
				if interval > 0 {
					return runScheduled(cmd.Context(), out, time.Duration(interval)*time.Minute, logger, func(ctx context.Context) error {
						return runSync(ctx, out, svc)
					})
				}
				return runSync(cmd.Context(), out, svc)
			})
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "repeat every N minutes until interrupted (0 runs once)")
	return cmd
}

func runSync(ctx context.Context, out io.Writer, svc *service.CuratorService) error {
	report, err := svc.Sync(ctx)
	if errors.Is(err, service.ErrNothingToDo) {
		fmt.Fprintln(out, noStarredMessage)
		return nil
	}
	if err != nil {
		return err
	}
	printStarredSummary(out, report.Starred)
	printRecommendations(out, report.Recommendations)
	return nil
}

// runScheduled 立即执行一次，然后按 interval 定时执行，收到 SIGINT/SIGTERM 时退出。
// 单轮失败只记录日志，不中断定时任务。
func runScheduled(parent context.Context, out io.Writer, interval time.Duration, logger *zap.Logger, cycle func(context.Context) error) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// 设置信号处理，优雅关闭
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fmt.Fprintf(out, "⏰ scheduled mode: every %s, Ctrl+C to stop\n", interval)

	run := func() {
		if err := cycle(ctx); err != nil {
			logger.Error("sync cycle failed", zap.Error(err))
		}
	}

	run()
	for {
		select {
		case <-ticker.C:
			run()
		case <-sigChan:
			fmt.Fprintln(out, "👋 stop signal received, exiting")
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

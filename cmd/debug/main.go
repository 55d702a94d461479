package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github-star-curator/internal/adapter/sink"
	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
)

// 调试模式：连接配置的 sink，列出已有的表
func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 返回进程退出码，所有清理都在返回前由 defer 完成
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("debug", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML 配置文件路径")
	sinkType := fs.String("sink", "", "覆盖 sink 类型")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "❌ 配置加载失败: %v\n", err)
		return 1
	}
	if *sinkType != "" {
		cfg.Sink.Type = *sinkType
	}
	logger := common.NewLogger("debug", true)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Fprintf(stdout, "🔌 正在连接 %s ...\n", cfg.Sink.Type)
	s, err := sink.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "❌ 连接失败: %v\n", err)
		return 1
	}
	defer s.Close()

	tables, err := s.Tables(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "❌ 读取表失败: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "✅ 连接成功，共 %d 张表\n", len(tables))
	for _, t := range tables {
		fmt.Fprintf(stdout, "  - %s\n", t)
	}
	return 0
}

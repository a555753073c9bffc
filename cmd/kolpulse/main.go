// KOLPulse — 财经KOL观点聚合器
//
// Usage:
//
//	kolpulse run          # 采集、提取、摘要、汇总
//	kolpulse date         # 显示当前分析日期
//	kolpulse aggregate    # 仅汇总已有摘要
//	kolpulse history      # 显示最近运行记录
//	kolpulse version      # 显示版本
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kolpulse/kolpulse/internal/archive"
	"github.com/kolpulse/kolpulse/internal/extract"
	"github.com/kolpulse/kolpulse/internal/ledger"
	"github.com/kolpulse/kolpulse/internal/market"
	"github.com/kolpulse/kolpulse/internal/pipeline"
	"github.com/kolpulse/kolpulse/internal/schedule"
	"github.com/kolpulse/kolpulse/internal/sources"
	"github.com/kolpulse/kolpulse/pkg/llm"
	"github.com/kolpulse/kolpulse/pkg/notify"
	"github.com/kolpulse/kolpulse/pkg/workerpool"
)

var version = "dev"

var platformOrder = []string{"video", "microblog", "newsletter"}

func main() {
	// .env is optional; real deployments use the environment directly.
	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rootCmd := &cobra.Command{
		Use:   "kolpulse",
		Short: "财经KOL观点聚合器",
		Long:  "KOLPulse 监控财经KOL的视频、微博与公众号，提取近期内容并用 LLM 生成每日观点报告。",
	}

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(dateCmd())
	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var configPath string
	var platforms []string
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "采集、提取、摘要并汇总当日内容",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(configPath, platforms)
			if err != nil {
				return err
			}
			defer app.Close()

			if every <= 0 {
				return app.runOnce(ctx)
			}

			sched := schedule.New(app.logger)
			sched.Add(schedule.Job{Name: "collect-and-aggregate", Fn: app.runOnce})
			sched.Start(ctx, every)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	cmd.Flags().StringSliceVarP(&platforms, "platform", "p", nil, "只运行指定平台 (video/microblog/newsletter)")
	cmd.Flags().DurationVar(&every, "every", 0, "按间隔循环运行，0 表示只运行一次")
	return cmd
}

func dateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date",
		Short: "显示当前分析日期及判定原因",
		Run: func(cmd *cobra.Command, args []string) {
			res := market.Resolve(time.Now())
			fmt.Printf("分析日期: %s\n原因: %s\n归档目录: %s\n", res.DateKey, res.Reason, res.BucketDir)
		},
	}
}

func aggregateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "仅用已归档的摘要生成日报与合并报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApp(configPath, nil)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.aggregate(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	return cmd
}

func historyCmd() *cobra.Command {
	var configPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "显示最近的运行记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath)
			if err != nil {
				return err
			}
			defer led.Close()

			runs, err := led.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("暂无运行记录")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%s  %-10s  列出%d  近期%d  提取%d  摘要%d  %s\n",
					r.DateKey, r.Platform, r.Listed, r.Recent, r.Extracted, r.Summarized,
					r.FinishedAt.Format("15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "显示条数")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kolpulse %s\n", version)
		},
	}
}

// app wires the configured components together for one process.
type app struct {
	cfg        AppConfig
	logger     *slog.Logger
	store      *archive.Store
	ledger     *ledger.Ledger
	llmClient  llm.Client
	summarizer pipeline.Summarizer
	srcs       []sources.ContentSource
	dispatcher *notify.Dispatcher
}

func newApp(configPath string, platforms []string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      archive.NewStore(cfg.ArchiveRoot),
		ledger:     led,
		llmClient:  client,
		summarizer: pipeline.NewLLMSummarizer(client),
		srcs:       buildSources(cfg, platforms, logger),
		dispatcher: buildDispatcher(cfg.Notify, logger),
	}, nil
}

func (a *app) Close() {
	a.llmClient.Close()
	a.ledger.Close()
}

// runOnce collects every configured platform in parallel, then aggregates.
func (a *app) runOnce(ctx context.Context) error {
	res := market.Resolve(time.Now())
	a.logger.Info("开始运行", "date", res.DateKey, "reason", res.Reason)

	bucket, err := a.store.Bucket(res)
	if err != nil {
		return err
	}

	itemPrompts := pipeline.Prompts{System: a.cfg.Prompts.ItemSystem, User: a.cfg.Prompts.ItemUser}
	results := workerpool.Run(ctx, a.srcs, func(ctx context.Context, src sources.ContentSource) (pipeline.RunResult, error) {
		collector := &pipeline.Collector{
			Source:     src,
			Bucket:     bucket,
			Summarizer: a.summarizer,
			Extractor: &extract.Executor{
				Bucket: bucket,
				Source: src,
				Ledger: a.ledger,
				Logger: a.logger,
			},
			Recorder: a.ledger,
			Prompts:  itemPrompts,
			Pool:     a.cfg.Pool.Options(),
			Now:      time.Now,
			Logger:   a.logger,
		}
		return collector.Run(ctx)
	}, workerpool.Options{MaxConcurrency: len(a.srcs)})

	for _, r := range results {
		if !r.OK() {
			a.logger.Error("平台采集失败", "platform", r.Input.Platform(), "error", r.Err)
		}
	}

	return a.aggregateBucket(ctx, bucket)
}

// aggregate builds digests and the merged report for today's bucket.
func (a *app) aggregate(ctx context.Context) error {
	bucket, err := a.store.Bucket(market.Resolve(time.Now()))
	if err != nil {
		return err
	}
	return a.aggregateBucket(ctx, bucket)
}

func (a *app) aggregateBucket(ctx context.Context, bucket archive.Bucket) error {
	agg := &pipeline.Aggregator{
		Bucket:     bucket,
		Summarizer: a.summarizer,
		Platforms:  platformOrder,
		Merge:      pipeline.Prompts{System: a.cfg.Prompts.MergeSystem, User: a.cfg.Prompts.MergeUser},
		Logger:     a.logger,
	}
	merged, err := agg.Run(ctx)
	if err != nil {
		return err
	}
	if merged == "" {
		a.logger.Info("今日无内容，不发送通知")
		return nil
	}

	if a.dispatcher.Registered() > 0 {
		msg := notify.Message{
			Title: fmt.Sprintf("KOL观点日报 %s", bucket.DateKey),
			Body:  merged,
		}
		if err := a.dispatcher.SendAll(ctx, msg); err != nil {
			a.logger.Warn("通知发送部分失败", "error", err)
		}
	}

	fmt.Println(merged)
	return nil
}

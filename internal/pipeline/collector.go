// Package pipeline runs the daily collection flow: list candidates per
// account, keep the recent ones, extract their text through the tier chain,
// summarize each item, then fold the per-item summaries into platform
// digests and one merged report. Every stage probes the archive before
// doing work, so re-running after a crash only fills the gaps.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kolpulse/kolpulse/internal/archive"
	"github.com/kolpulse/kolpulse/internal/extract"
	"github.com/kolpulse/kolpulse/internal/ledger"
	"github.com/kolpulse/kolpulse/internal/market"
	"github.com/kolpulse/kolpulse/internal/sources"
	"github.com/kolpulse/kolpulse/pkg/llm"
	"github.com/kolpulse/kolpulse/pkg/workerpool"
)

// Summarizer condenses one text with a prompt pair.
type Summarizer interface {
	Summarize(ctx context.Context, text, systemPrompt, userPrompt string) (string, error)
}

// llmSummarizer adapts an llm.Client to the Summarizer interface.
type llmSummarizer struct {
	client llm.Client
}

// NewLLMSummarizer wraps an LLM client as a Summarizer.
func NewLLMSummarizer(client llm.Client) Summarizer {
	return &llmSummarizer{client: client}
}

func (s *llmSummarizer) Summarize(ctx context.Context, text, systemPrompt, userPrompt string) (string, error) {
	return llm.Summarize(ctx, s.client, text, systemPrompt, userPrompt)
}

// RunRecorder persists per-platform run statistics. *ledger.Ledger
// implements it.
type RunRecorder interface {
	RecordRun(ctx context.Context, stats ledger.RunStats) error
}

// RunResult is one platform's outcome for the day.
type RunResult struct {
	Platform    string
	Listed      int
	Recent      int
	Extracted   int
	Summarized  int
	SummaryKeys []string
}

// Collector drives one platform through list, filter, extract, summarize.
type Collector struct {
	Source     sources.ContentSource
	Bucket     archive.Bucket
	Summarizer Summarizer
	Extractor  *extract.Executor
	Recorder   RunRecorder
	Prompts    Prompts
	Pool       workerpool.Options
	Now        func() time.Time
	Logger     *slog.Logger
}

// Run processes every account of the collector's platform.
func (c *Collector) Run(ctx context.Context) (RunResult, error) {
	started := c.Now()
	platform := c.Source.Platform()
	result := RunResult{Platform: platform}
	prompts := c.Prompts.orDefault(defaultItemPrompts)

	var candidates []sources.Item
	for _, account := range c.Source.Accounts() {
		items, err := c.Source.ListRecentCandidates(ctx, account)
		if err != nil {
			// One account failing must not sink the others.
			c.Logger.Error("拉取账号列表失败", "platform", platform, "account", account, "error", err)
			continue
		}
		candidates = append(candidates, items...)
	}
	result.Listed = len(candidates)

	now := c.Now()
	var recent []sources.Item
	for _, item := range candidates {
		if market.IsRecent(item.PublishMarker, now) {
			recent = append(recent, item)
		} else {
			c.Logger.Debug("跳过非近期内容", "platform", platform, "item", item.ID, "marker", item.PublishMarker)
		}
	}
	result.Recent = len(recent)

	extracted := workerpool.Run(ctx, recent, func(ctx context.Context, item sources.Item) (extract.ExtractedText, error) {
		return c.Extractor.Extract(ctx, item)
	}, c.Pool)

	type summarizable struct {
		item sources.Item
		text extract.ExtractedText
	}
	var todo []summarizable
	for i, res := range extracted {
		if !res.OK() {
			c.Logger.Warn("条目提取失败", "platform", platform, "item", recent[i].ID, "error", res.Err)
			continue
		}
		result.Extracted++
		todo = append(todo, summarizable{item: recent[i], text: res.Output})
	}

	summaries := workerpool.Run(ctx, todo, func(ctx context.Context, s summarizable) (string, error) {
		key := archive.ItemSummaryKey(platform, s.item.Title)
		if c.Bucket.Exists(key) {
			return key, nil
		}
		summary, err := c.Summarizer.Summarize(ctx, s.text.Body, prompts.System, prompts.User)
		if err != nil {
			return "", fmt.Errorf("summarize %s: %w", s.item.ID, err)
		}
		if err := c.Bucket.Write(key, summary); err != nil {
			return "", err
		}
		return key, nil
	}, c.Pool)

	for i, res := range summaries {
		if !res.OK() {
			c.Logger.Warn("条目摘要失败", "platform", platform, "item", todo[i].item.ID, "error", res.Err)
			continue
		}
		result.Summarized++
		result.SummaryKeys = append(result.SummaryKeys, res.Output)
	}

	if c.Recorder != nil {
		stats := ledger.RunStats{
			DateKey:    c.Bucket.DateKey,
			Platform:   platform,
			Listed:     result.Listed,
			Recent:     result.Recent,
			Extracted:  result.Extracted,
			Summarized: result.Summarized,
			StartedAt:  started,
			FinishedAt: c.Now(),
		}
		if err := c.Recorder.RecordRun(ctx, stats); err != nil {
			c.Logger.Warn("记录运行统计失败", "platform", platform, "error", err)
		}
	}

	c.Logger.Info("平台采集完成",
		"platform", platform,
		"listed", result.Listed,
		"recent", result.Recent,
		"extracted", result.Extracted,
		"summarized", result.Summarized,
	)
	return result, nil
}

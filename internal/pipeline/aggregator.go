package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kolpulse/kolpulse/internal/archive"
)

// Aggregator folds per-item summaries into platform digests and the final
// merged report. Both stages are probe-before-work: an existing digest or
// report is reused as-is.
type Aggregator struct {
	Bucket     archive.Bucket
	Summarizer Summarizer
	Platforms  []string
	Merge      Prompts
	Logger     *slog.Logger
}

// DigestPlatform builds one platform's daily digest from its per-item
// summaries. Returns the digest text, or "" when the platform produced no
// summaries today.
func (a *Aggregator) DigestPlatform(ctx context.Context, platform string) (string, error) {
	digestKey := archive.DigestKey(platform, a.Bucket.DateKey)
	if text, err := a.Bucket.Read(digestKey); err == nil {
		a.Logger.Debug("命中已归档日报", "platform", platform)
		return text, nil
	}

	keys, err := a.Bucket.List(archive.SummaryPrefix(platform), archive.SummarySuffix())
	if err != nil {
		return "", fmt.Errorf("list summaries for %s: %w", platform, err)
	}
	if len(keys) == 0 {
		a.Logger.Info("平台今日无摘要，跳过日报", "platform", platform)
		return "", nil
	}

	var parts []string
	for _, key := range keys {
		text, err := a.Bucket.Read(key)
		if err != nil {
			return "", fmt.Errorf("read summary %s: %w", key, err)
		}
		parts = append(parts, text)
	}

	prompts := DigestPrompts(platform)
	digest, err := a.Summarizer.Summarize(ctx, strings.Join(parts, "\n\n---\n\n"), prompts.System, prompts.User)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", platform, err)
	}
	if err := a.Bucket.Write(digestKey, digest); err != nil {
		return "", err
	}
	a.Logger.Info("平台日报生成", "platform", platform, "summaries", len(keys))
	return digest, nil
}

// MergeDigests folds the available platform digests into the final report.
// Returns "" when no platform produced a digest today.
func (a *Aggregator) MergeDigests(ctx context.Context) (string, error) {
	mergedKey := archive.MergedKey(a.Bucket.DateKey)
	if text, err := a.Bucket.Read(mergedKey); err == nil {
		a.Logger.Debug("命中已归档合并报告")
		return text, nil
	}

	var parts []string
	for _, platform := range a.Platforms {
		text, err := a.Bucket.Read(archive.DigestKey(platform, a.Bucket.DateKey))
		if err != nil {
			if errors.Is(err, archive.ErrNotFound) {
				continue
			}
			return "", fmt.Errorf("read digest for %s: %w", platform, err)
		}
		parts = append(parts, fmt.Sprintf("## %s\n\n%s", platform, text))
	}
	if len(parts) == 0 {
		a.Logger.Info("今日无任何平台日报，跳过合并")
		return "", nil
	}

	prompts := a.Merge.orDefault(defaultMergePrompts)
	merged, err := a.Summarizer.Summarize(ctx, strings.Join(parts, "\n\n"), prompts.System, prompts.User)
	if err != nil {
		return "", fmt.Errorf("merge digests: %w", err)
	}
	if err := a.Bucket.Write(mergedKey, merged); err != nil {
		return "", err
	}
	a.Logger.Info("合并报告生成", "platforms", len(parts))
	return merged, nil
}

// Run builds every platform digest and then the merged report.
func (a *Aggregator) Run(ctx context.Context) (string, error) {
	for _, platform := range a.Platforms {
		if _, err := a.DigestPlatform(ctx, platform); err != nil {
			return "", err
		}
	}
	return a.MergeDigests(ctx)
}

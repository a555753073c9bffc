// Package extract turns a candidate item into archived text by walking the
// platform's tier chain: preferred source first, then each fallback, until
// one yields non-empty content. The archive write happens before control
// returns, so a crash between items never loses completed work.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kolpulse/kolpulse/internal/archive"
	"github.com/kolpulse/kolpulse/internal/sources"
)

// Origin records which tier produced an item's text.
const (
	OriginPrimary   = "primary"
	OriginSecondary = "secondary"
	OriginGenerated = "generated"
)

// ErrExhausted reports that every tier in the chain failed or came back
// empty.
var ErrExhausted = errors.New("extract: all tiers exhausted")

// ExtractedText is the outcome of one successful extraction.
type ExtractedText struct {
	ItemID string
	Body   string
	Origin string
}

// Strategy is one tier in a platform's chain.
type Strategy struct {
	Name   string
	Origin string
	Run    func(ctx context.Context, item sources.Item) (sources.Payload, error)
}

// ChainFor builds the tier chain for a source, in preference order.
func ChainFor(src sources.ContentSource) []Strategy {
	return []Strategy{
		{Name: "primary", Origin: OriginPrimary, Run: src.FetchPrimary},
		{Name: "secondary", Origin: OriginSecondary, Run: src.FetchSecondary},
		{Name: "generated", Origin: OriginGenerated, Run: src.GenerateTertiary},
	}
}

// OriginLedger remembers which tier produced an item, so a cache hit on a
// later run can still report its origin.
type OriginLedger interface {
	RecordExtraction(ctx context.Context, dateKey, itemID, origin string) error
	ExtractionOrigin(ctx context.Context, dateKey, itemID string) (string, error)
}

// Executor walks a source's chain and persists the winning text.
type Executor struct {
	Bucket archive.Bucket
	Source sources.ContentSource
	Ledger OriginLedger
	Logger *slog.Logger
}

// Extract returns the item's text, reusing the archived copy when one
// exists. On a fresh extraction the text is written to the archive before
// the function returns.
func (e *Executor) Extract(ctx context.Context, item sources.Item) (ExtractedText, error) {
	key := archive.ItemTextKey(item.Platform, item.Title)

	if body, err := e.Bucket.Read(key); err == nil {
		origin := OriginPrimary
		if e.Ledger != nil {
			if o, err := e.Ledger.ExtractionOrigin(ctx, e.Bucket.DateKey, item.ID); err == nil && o != "" {
				origin = o
			}
		}
		e.Logger.Debug("命中已归档正文", "item", item.ID, "key", key)
		return ExtractedText{ItemID: item.ID, Body: body, Origin: origin}, nil
	}

	for _, strat := range ChainFor(e.Source) {
		payload, err := strat.Run(ctx, item)
		if err != nil {
			if !errors.Is(err, sources.ErrNotAvailable) {
				e.Logger.Warn("提取层级失败", "item", item.ID, "tier", strat.Name, "error", err)
			}
			continue
		}

		text := payload.Text
		if text == "" && payload.LocatorURL != "" {
			text, err = e.Source.FetchLocator(ctx, payload.LocatorURL)
			if err != nil {
				e.Logger.Warn("定位地址取回失败", "item", item.ID, "tier", strat.Name, "error", err)
				continue
			}
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		if err := e.Bucket.Write(key, text); err != nil {
			return ExtractedText{}, fmt.Errorf("archive %s: %w", key, err)
		}
		if e.Ledger != nil {
			if err := e.Ledger.RecordExtraction(ctx, e.Bucket.DateKey, item.ID, strat.Origin); err != nil {
				e.Logger.Warn("记录提取来源失败", "item", item.ID, "error", err)
			}
		}
		e.Logger.Info("提取成功", "item", item.ID, "tier", strat.Name)
		return ExtractedText{ItemID: item.ID, Body: text, Origin: strat.Origin}, nil
	}

	return ExtractedText{}, fmt.Errorf("%w: item %s", ErrExhausted, item.ID)
}

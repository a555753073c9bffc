// Package sources defines the content-source contract and the per-platform
// adapters that implement it. An adapter only knows how to talk to its
// platform; recency filtering, extraction order, and archiving live upstream.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotAvailable reports that a tier exists for the platform but produced
// nothing for this item (no subtitle track, no long-text variant). The
// caller moves on to the next tier.
var ErrNotAvailable = errors.New("sources: content not available at this tier")

// Item is one candidate publication from a monitored account.
type Item struct {
	ID            string
	Title         string
	URL           string
	PublishMarker string
	Platform      string
}

// Payload is what one extraction tier yields. Exactly one field is set:
// either the text itself, or a locator URL whose body holds the text.
type Payload struct {
	Text       string
	LocatorURL string
}

// Empty reports whether the tier produced nothing usable.
func (p Payload) Empty() bool { return p.Text == "" && p.LocatorURL == "" }

// ContentSource is one platform adapter. Tiers a platform does not have
// return ErrNotAvailable unconditionally.
type ContentSource interface {
	Platform() string
	Accounts() []string
	ListRecentCandidates(ctx context.Context, account string) ([]Item, error)
	FetchPrimary(ctx context.Context, item Item) (Payload, error)
	FetchSecondary(ctx context.Context, item Item) (Payload, error)
	GenerateTertiary(ctx context.Context, item Item) (Payload, error)
	FetchLocator(ctx context.Context, locatorURL string) (string, error)
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

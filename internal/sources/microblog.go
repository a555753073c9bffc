package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kolpulse/kolpulse/internal/market"
)

// MicroblogConfig wires a MicroblogSource to its platform endpoints.
type MicroblogConfig struct {
	Accounts    []string      `yaml:"accounts"`
	TimelineURL string        `yaml:"timeline_url"`
	LongTextURL string        `yaml:"longtext_url"`
	Cookie      string        `yaml:"cookie" env:"KOLPULSE_MICROBLOG_COOKIE"`
	Timeout     time.Duration `yaml:"timeout"`
}

// microblogTimeLayout is the ruby-style timestamp the timeline API
// renders, e.g. "Wed Aug 26 11:55:00 +0800 2026".
const microblogTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// MicroblogSource monitors microblog accounts. The timeline response
// already carries each post's (possibly truncated) text, so the primary
// tier is a cache lookup; the secondary tier calls the long-text API for
// the full body. There is no generated tier.
type MicroblogSource struct {
	cfg    MicroblogConfig
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	texts map[string]string // idstr -> timeline text
}

func NewMicroblogSource(cfg MicroblogConfig, logger *slog.Logger) *MicroblogSource {
	if cfg.TimelineURL == "" {
		cfg.TimelineURL = "https://weibo.com/ajax/statuses/mymblog"
	}
	if cfg.LongTextURL == "" {
		cfg.LongTextURL = "https://weibo.com/ajax/statuses/longtext"
	}
	return &MicroblogSource{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("platform", "microblog"),
		now:    time.Now,
		texts:  make(map[string]string),
	}
}

func (s *MicroblogSource) Platform() string   { return "microblog" }
func (s *MicroblogSource) Accounts() []string { return s.cfg.Accounts }

func (s *MicroblogSource) ListRecentCandidates(ctx context.Context, account string) ([]Item, error) {
	var body []byte
	err := withRetry(ctx, s.logger, "list timeline", func() error {
		u := fmt.Sprintf("%s?uid=%s&page=1", s.cfg.TimelineURL, url.QueryEscape(account))
		var err error
		body, err = s.get(ctx, u)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list timeline for %s: %w", account, err)
	}

	var resp struct {
		Data struct {
			List []struct {
				IDStr      string `json:"idstr"`
				Text       string `json:"text_raw"`
				CreatedAt  string `json:"created_at"`
				IsLongText bool   `json:"isLongText"`
				User       struct {
					ScreenName string `json:"screen_name"`
				} `json:"user"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode timeline: %w", err)
	}

	now := s.now()
	items := make([]Item, 0, len(resp.Data.List))
	for _, post := range resp.Data.List {
		s.mu.Lock()
		s.texts[post.IDStr] = post.Text
		s.mu.Unlock()
		// The timeline renders ruby-style English timestamps; rewrite them
		// as relative markers so the recency filter can read them. An
		// unparseable value passes through as-is.
		marker := post.CreatedAt
		if t, err := time.Parse(microblogTimeLayout, post.CreatedAt); err == nil {
			marker = market.RelativeMarker(t, now)
		} else {
			s.logger.Warn("无法解析发布时间", "idstr", post.IDStr, "created_at", post.CreatedAt)
		}
		items = append(items, Item{
			ID:            post.IDStr,
			Title:         post.User.ScreenName + "_" + post.IDStr,
			URL:           "https://weibo.com/detail/" + post.IDStr,
			PublishMarker: marker,
			Platform:      s.Platform(),
		})
	}
	return items, nil
}

// FetchPrimary returns the text captured from the timeline listing.
func (s *MicroblogSource) FetchPrimary(_ context.Context, item Item) (Payload, error) {
	s.mu.Lock()
	text, ok := s.texts[item.ID]
	s.mu.Unlock()
	if !ok || strings.TrimSpace(text) == "" {
		return Payload{}, ErrNotAvailable
	}
	return Payload{Text: text}, nil
}

// FetchSecondary retrieves the untruncated body of a long post.
func (s *MicroblogSource) FetchSecondary(ctx context.Context, item Item) (Payload, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s?id=%s", s.cfg.LongTextURL, url.QueryEscape(item.ID)))
	if err != nil {
		return Payload{}, fmt.Errorf("longtext %s: %w", item.ID, err)
	}
	var resp struct {
		Data struct {
			LongTextContent string `json:"longTextContent"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Payload{}, fmt.Errorf("decode longtext %s: %w", item.ID, err)
	}
	if strings.TrimSpace(resp.Data.LongTextContent) == "" {
		return Payload{}, ErrNotAvailable
	}
	return Payload{Text: resp.Data.LongTextContent}, nil
}

func (s *MicroblogSource) GenerateTertiary(context.Context, Item) (Payload, error) {
	return Payload{}, ErrNotAvailable
}

func (s *MicroblogSource) FetchLocator(context.Context, string) (string, error) {
	return "", ErrNotAvailable
}

func (s *MicroblogSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Referer", "https://weibo.com/")
	if s.cfg.Cookie != "" {
		req.Header.Set("Cookie", s.cfg.Cookie)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

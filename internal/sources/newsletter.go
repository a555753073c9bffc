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

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/kolpulse/kolpulse/internal/market"
)

// NewsletterConfig wires a NewsletterSource. Accounts are public-account
// identifiers (fakeid); RSSFeeds maps an account to an RSS mirror used as
// the secondary tier.
type NewsletterConfig struct {
	Accounts []string          `yaml:"accounts"`
	ListURL  string            `yaml:"list_url"`
	Token    string            `yaml:"token" env:"KOLPULSE_NEWSLETTER_TOKEN"`
	Cookie   string            `yaml:"cookie" env:"KOLPULSE_NEWSLETTER_COOKIE"`
	RSSFeeds map[string]string `yaml:"rss_feeds"`
	Timeout  time.Duration     `yaml:"timeout"`
}

// NewsletterSource monitors public-account article feeds. The primary tier
// fetches the article page and extracts the body; the secondary tier reads
// an RSS mirror of the account. There is no generated tier.
type NewsletterSource struct {
	cfg    NewsletterConfig
	client *http.Client
	parser *gofeed.Parser
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	itemAccount map[string]string // item ID -> account, for RSS lookup
}

func NewNewsletterSource(cfg NewsletterConfig, logger *slog.Logger) *NewsletterSource {
	if cfg.ListURL == "" {
		cfg.ListURL = "https://mp.weixin.qq.com/cgi-bin/appmsg"
	}
	return &NewsletterSource{
		cfg:         cfg,
		client:      newHTTPClient(cfg.Timeout),
		parser:      gofeed.NewParser(),
		logger:      logger.With("platform", "newsletter"),
		now:         time.Now,
		itemAccount: make(map[string]string),
	}
}

func (s *NewsletterSource) Platform() string   { return "newsletter" }
func (s *NewsletterSource) Accounts() []string { return s.cfg.Accounts }

func (s *NewsletterSource) ListRecentCandidates(ctx context.Context, account string) ([]Item, error) {
	var body []byte
	err := withRetry(ctx, s.logger, "list articles", func() error {
		u := fmt.Sprintf("%s?action=list_ex&fakeid=%s&type=9&begin=0&count=10&token=%s",
			s.cfg.ListURL, url.QueryEscape(account), url.QueryEscape(s.cfg.Token))
		var err error
		body, err = s.get(ctx, u)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list articles for %s: %w", account, err)
	}

	var resp struct {
		AppMsgList []struct {
			Aid        string `json:"aid"`
			Title      string `json:"title"`
			Link       string `json:"link"`
			CreateTime int64  `json:"create_time"`
		} `json:"app_msg_list"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode article list: %w", err)
	}

	now := s.now()
	items := make([]Item, 0, len(resp.AppMsgList))
	for _, a := range resp.AppMsgList {
		s.mu.Lock()
		s.itemAccount[a.Aid] = account
		s.mu.Unlock()
		items = append(items, Item{
			ID:    a.Aid,
			Title: a.Title,
			URL:   a.Link,
			// Precise timestamps are rendered as relative markers so the
			// whole pipeline speaks one publish-marker dialect.
			PublishMarker: market.RelativeMarker(time.Unix(a.CreateTime, 0), now),
			Platform:      s.Platform(),
		})
	}
	return items, nil
}

// FetchPrimary fetches the article page and extracts the body text.
func (s *NewsletterSource) FetchPrimary(ctx context.Context, item Item) (Payload, error) {
	body, err := s.get(ctx, item.URL)
	if err != nil {
		return Payload{}, fmt.Errorf("fetch article %s: %w", item.ID, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return Payload{}, fmt.Errorf("parse article %s: %w", item.ID, err)
	}
	text := strings.TrimSpace(doc.Find("#js_content, .rich_media_content, article").Text())
	if text == "" {
		return Payload{}, ErrNotAvailable
	}
	return Payload{Text: text}, nil
}

// FetchSecondary reads the account's RSS mirror and returns the matching
// entry's content.
func (s *NewsletterSource) FetchSecondary(ctx context.Context, item Item) (Payload, error) {
	s.mu.Lock()
	account := s.itemAccount[item.ID]
	s.mu.Unlock()
	feedURL, ok := s.cfg.RSSFeeds[account]
	if !ok || feedURL == "" {
		return Payload{}, ErrNotAvailable
	}
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return Payload{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	for _, entry := range feed.Items {
		if entry.Title != item.Title {
			continue
		}
		content := entry.Content
		if content == "" {
			content = entry.Description
		}
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
			content = doc.Text()
		}
		content = strings.TrimSpace(content)
		if content == "" {
			return Payload{}, ErrNotAvailable
		}
		return Payload{Text: content}, nil
	}
	return Payload{}, ErrNotAvailable
}

func (s *NewsletterSource) GenerateTertiary(context.Context, Item) (Payload, error) {
	return Payload{}, ErrNotAvailable
}

func (s *NewsletterSource) FetchLocator(context.Context, string) (string, error) {
	return "", ErrNotAvailable
}

func (s *NewsletterSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
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

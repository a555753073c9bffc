package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// VideoConfig wires a VideoSource to its platform endpoints. The endpoints
// default to the public web API; tests point them at a local server.
type VideoConfig struct {
	Accounts       []string      `yaml:"accounts"`
	ListURL        string        `yaml:"list_url"`
	SubtitleURL    string        `yaml:"subtitle_url"`
	PlayerURL      string        `yaml:"player_url"`
	TranscriberURL string        `yaml:"transcriber_url"`
	Cookie         string        `yaml:"cookie" env:"KOLPULSE_VIDEO_COOKIE"`
	Timeout        time.Duration `yaml:"timeout"`
}

// VideoSource monitors video uploaders. Its primary tier reads the creator
// uploaded subtitle track; the secondary tier reads the AI generated track
// from the player API; the tertiary tier posts the audio to an external
// transcriber service.
type VideoSource struct {
	cfg    VideoConfig
	client *http.Client
	logger *slog.Logger
}

func NewVideoSource(cfg VideoConfig, logger *slog.Logger) *VideoSource {
	if cfg.ListURL == "" {
		cfg.ListURL = "https://api.bilibili.com/x/space/wbi/arc/search"
	}
	if cfg.SubtitleURL == "" {
		cfg.SubtitleURL = "https://api.bilibili.com/x/web-interface/view"
	}
	if cfg.PlayerURL == "" {
		cfg.PlayerURL = "https://api.bilibili.com/x/player/wbi/v2"
	}
	return &VideoSource{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		logger: logger.With("platform", "video"),
	}
}

func (s *VideoSource) Platform() string   { return "video" }
func (s *VideoSource) Accounts() []string { return s.cfg.Accounts }

// ListRecentCandidates returns the account's latest uploads with their raw
// publish markers. The marker stays unparsed here; the pipeline decides
// what counts as recent.
func (s *VideoSource) ListRecentCandidates(ctx context.Context, account string) ([]Item, error) {
	var body []byte
	err := withRetry(ctx, s.logger, "list uploads", func() error {
		u := fmt.Sprintf("%s?mid=%s&ps=10&pn=1&order=pubdate", s.cfg.ListURL, url.QueryEscape(account))
		var err error
		body, err = s.get(ctx, u)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list uploads for %s: %w", account, err)
	}

	var resp struct {
		Code int `json:"code"`
		Data struct {
			List struct {
				Vlist []struct {
					Bvid    string `json:"bvid"`
					Title   string `json:"title"`
					Created int64  `json:"created"`
					Publish string `json:"publish_text"`
				} `json:"vlist"`
			} `json:"list"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode upload list: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("upload list api code %d", resp.Code)
	}

	items := make([]Item, 0, len(resp.Data.List.Vlist))
	for _, v := range resp.Data.List.Vlist {
		marker := v.Publish
		if marker == "" && v.Created > 0 {
			marker = time.Unix(v.Created, 0).Format("2006-01-02")
		}
		items = append(items, Item{
			ID:            v.Bvid,
			Title:         v.Title,
			URL:           "https://www.bilibili.com/video/" + v.Bvid,
			PublishMarker: marker,
			Platform:      s.Platform(),
		})
	}
	return items, nil
}

// FetchPrimary looks up the creator uploaded subtitle track and returns its
// locator URL.
func (s *VideoSource) FetchPrimary(ctx context.Context, item Item) (Payload, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s?bvid=%s", s.cfg.SubtitleURL, url.QueryEscape(item.ID)))
	if err != nil {
		return Payload{}, fmt.Errorf("view %s: %w", item.ID, err)
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Subtitle struct {
				List []struct {
					SubtitleURL string `json:"subtitle_url"`
					AISubtitle  bool   `json:"ai_status"`
				} `json:"list"`
			} `json:"subtitle"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Payload{}, fmt.Errorf("decode view %s: %w", item.ID, err)
	}
	for _, sub := range resp.Data.Subtitle.List {
		if sub.SubtitleURL != "" && !sub.AISubtitle {
			return Payload{LocatorURL: normalizeLocator(sub.SubtitleURL)}, nil
		}
	}
	return Payload{}, ErrNotAvailable
}

// FetchSecondary reads the player API, which also lists AI generated
// subtitle tracks.
func (s *VideoSource) FetchSecondary(ctx context.Context, item Item) (Payload, error) {
	body, err := s.get(ctx, fmt.Sprintf("%s?bvid=%s", s.cfg.PlayerURL, url.QueryEscape(item.ID)))
	if err != nil {
		return Payload{}, fmt.Errorf("player %s: %w", item.ID, err)
	}
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Subtitle struct {
				Subtitles []struct {
					SubtitleURL string `json:"subtitle_url"`
				} `json:"subtitles"`
			} `json:"subtitle"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Payload{}, fmt.Errorf("decode player %s: %w", item.ID, err)
	}
	for _, sub := range resp.Data.Subtitle.Subtitles {
		if sub.SubtitleURL != "" {
			return Payload{LocatorURL: normalizeLocator(sub.SubtitleURL)}, nil
		}
	}
	return Payload{}, ErrNotAvailable
}

// GenerateTertiary posts the video to an external transcriber service and
// returns the transcript directly. Disabled when no transcriber is
// configured.
func (s *VideoSource) GenerateTertiary(ctx context.Context, item Item) (Payload, error) {
	if s.cfg.TranscriberURL == "" {
		return Payload{}, ErrNotAvailable
	}
	payload, _ := json.Marshal(map[string]string{"bvid": item.ID, "url": item.URL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TranscriberURL, bytes.NewReader(payload))
	if err != nil {
		return Payload{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return Payload{}, fmt.Errorf("transcribe %s: %w", item.ID, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return Payload{}, fmt.Errorf("transcribe %s: %w", item.ID, err)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Payload{}, fmt.Errorf("decode transcript %s: %w", item.ID, err)
	}
	if strings.TrimSpace(out.Text) == "" {
		return Payload{}, ErrNotAvailable
	}
	return Payload{Text: out.Text}, nil
}

// FetchLocator dereferences a subtitle track URL into plain text, one line
// per caption.
func (s *VideoSource) FetchLocator(ctx context.Context, locatorURL string) (string, error) {
	body, err := s.get(ctx, locatorURL)
	if err != nil {
		return "", fmt.Errorf("fetch subtitle: %w", err)
	}
	var track struct {
		Body []struct {
			Content string `json:"content"`
		} `json:"body"`
	}
	if err := json.Unmarshal(body, &track); err != nil {
		return "", fmt.Errorf("decode subtitle: %w", err)
	}
	lines := make([]string, 0, len(track.Body))
	for _, line := range track.Body {
		if line.Content != "" {
			lines = append(lines, line.Content)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func (s *VideoSource) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Referer", "https://www.bilibili.com/")
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

// Subtitle URLs in API responses are often protocol-relative.
func normalizeLocator(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

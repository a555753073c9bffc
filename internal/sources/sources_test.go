package sources

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/kolpulse/kolpulse/internal/market"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVideoSourceListAndSubtitles(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mid") != "12345" {
			http.Error(w, "bad mid", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"code":0,"data":{"list":{"vlist":[
			{"bvid":"BV1xx","title":"午盘复盘","publish_text":"3小时前"},
			{"bvid":"BV2yy","title":"上周行情","publish_text":"3天前"}
		]}}}`)
	})
	mux.HandleFunc("/view", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":0,"data":{"subtitle":{"list":[
			{"subtitle_url":"`+srvURL+`/track","ai_status":false}
		]}}}`)
	})
	mux.HandleFunc("/track", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"body":[{"content":"大家好"},{"content":"今天聊聊大盘"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	src := NewVideoSource(VideoConfig{
		Accounts:    []string{"12345"},
		ListURL:     srv.URL + "/list",
		SubtitleURL: srv.URL + "/view",
		PlayerURL:   srv.URL + "/player",
	}, testLogger())

	items, err := src.ListRecentCandidates(context.Background(), "12345")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != "BV1xx" || items[0].PublishMarker != "3小时前" {
		t.Fatalf("items = %+v", items)
	}

	payload, err := src.FetchPrimary(context.Background(), items[0])
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	if payload.LocatorURL == "" {
		t.Fatal("primary should yield a locator")
	}
	text, err := src.FetchLocator(context.Background(), payload.LocatorURL)
	if err != nil {
		t.Fatalf("locator: %v", err)
	}
	if text != "大家好\n今天聊聊大盘" {
		t.Errorf("locator text = %q", text)
	}
}

func TestVideoSourcePrimarySkipsAITracks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"code":0,"data":{"subtitle":{"list":[
			{"subtitle_url":"//example.com/ai","ai_status":true}
		]}}}`)
	}))
	defer srv.Close()

	src := NewVideoSource(VideoConfig{SubtitleURL: srv.URL}, testLogger())
	_, err := src.FetchPrimary(context.Background(), Item{ID: "BV1xx"})
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}
}

func TestVideoSourceTertiaryDisabledWithoutTranscriber(t *testing.T) {
	src := NewVideoSource(VideoConfig{}, testLogger())
	_, err := src.GenerateTertiary(context.Background(), Item{ID: "BV1xx"})
	if !errors.Is(err, ErrNotAvailable) {
		t.Fatalf("err = %v, want ErrNotAvailable", err)
	}
}

func TestMicroblogPrimaryUsesTimelineCache(t *testing.T) {
	// The timeline API renders ruby-style English timestamps.
	created := time.Now().Add(-2 * time.Hour).Format(microblogTimeLayout)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"list":[
			{"idstr":"100","text_raw":"盘面观察：缩量震荡","created_at":"`+created+`","isLongText":false,
			 "user":{"screen_name":"某大V"}}
		]}}`)
	}))
	defer srv.Close()

	src := NewMicroblogSource(MicroblogConfig{TimelineURL: srv.URL}, testLogger())
	items, err := src.ListRecentCandidates(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "某大V_100" {
		t.Fatalf("items = %+v", items)
	}
	if items[0].PublishMarker != "2小时前" {
		t.Errorf("marker = %q, want 2小时前", items[0].PublishMarker)
	}
	if !market.IsRecent(items[0].PublishMarker, time.Now()) {
		t.Errorf("a two-hour-old post must pass the recency filter, marker = %q", items[0].PublishMarker)
	}

	payload, err := src.FetchPrimary(context.Background(), items[0])
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	if payload.Text != "盘面观察：缩量震荡" {
		t.Errorf("text = %q", payload.Text)
	}

	// An item never seen on the timeline has nothing cached.
	_, err = src.FetchPrimary(context.Background(), Item{ID: "999"})
	if !errors.Is(err, ErrNotAvailable) {
		t.Errorf("uncached item err = %v, want ErrNotAvailable", err)
	}
}

func TestMicroblogMarkerFallsBackToRawValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"data":{"list":[
			{"idstr":"101","text_raw":"置顶","created_at":"not-a-date",
			 "user":{"screen_name":"某大V"}}
		]}}`)
	}))
	defer srv.Close()

	src := NewMicroblogSource(MicroblogConfig{TimelineURL: srv.URL}, testLogger())
	items, err := src.ListRecentCandidates(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if items[0].PublishMarker != "not-a-date" {
		t.Errorf("marker = %q, want the raw value", items[0].PublishMarker)
	}
}

func TestMicroblogSecondaryLongText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id") != "100" {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"data":{"longTextContent":"完整长文内容"}}`)
	}))
	defer srv.Close()

	src := NewMicroblogSource(MicroblogConfig{LongTextURL: srv.URL}, testLogger())
	payload, err := src.FetchSecondary(context.Background(), Item{ID: "100"})
	if err != nil {
		t.Fatalf("secondary: %v", err)
	}
	if payload.Text != "完整长文内容" {
		t.Errorf("text = %q", payload.Text)
	}
}

func TestNewsletterListRendersRelativeMarkers(t *testing.T) {
	now := time.Now()
	recent := now.Add(-2 * time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"app_msg_list":[
			{"aid":"a1","title":"宏观周报","link":"http://example.com/a1","create_time":`+strconv.FormatInt(recent, 10)+`}
		]}`)
	}))
	defer srv.Close()

	src := NewNewsletterSource(NewsletterConfig{ListURL: srv.URL}, testLogger())
	items, err := src.ListRecentCandidates(context.Background(), "acct")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].PublishMarker != "2小时前" {
		t.Errorf("marker = %q, want 2小时前", items[0].PublishMarker)
	}
}

func TestNewsletterPrimaryExtractsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><body>
			<div class="rich_media_content" id="js_content">本周观点：保持仓位。</div>
		</body></html>`)
	}))
	defer srv.Close()

	src := NewNewsletterSource(NewsletterConfig{}, testLogger())
	payload, err := src.FetchPrimary(context.Background(), Item{ID: "a1", URL: srv.URL})
	if err != nil {
		t.Fatalf("primary: %v", err)
	}
	if !strings.Contains(payload.Text, "保持仓位") {
		t.Errorf("text = %q", payload.Text)
	}
}

func TestNewsletterSecondaryReadsRSS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<?xml version="1.0"?>
<rss version="2.0"><channel><title>mirror</title>
<item><title>宏观周报</title><description>&lt;p&gt;镜像正文&lt;/p&gt;</description></item>
</channel></rss>`)
	}))
	defer srv.Close()

	src := NewNewsletterSource(NewsletterConfig{
		RSSFeeds: map[string]string{"acct": srv.URL},
	}, testLogger())
	src.mu.Lock()
	src.itemAccount["a1"] = "acct"
	src.mu.Unlock()

	payload, err := src.FetchSecondary(context.Background(), Item{ID: "a1", Title: "宏观周报"})
	if err != nil {
		t.Fatalf("secondary: %v", err)
	}
	if payload.Text != "镜像正文" {
		t.Errorf("text = %q", payload.Text)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("unexpected status 503"), true},
		{errors.New("request timeout"), true},
		{errors.New("unexpected status 404"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := isTransient(tt.err); got != tt.want {
			t.Errorf("isTransient(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// telegramMessageLimit is the Bot API's maximum message length.
const telegramMessageLimit = 4096

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" json:"bot_token" env:"KOLPULSE_TELEGRAM_TOKEN"`
	ChatID   string `yaml:"chat_id" json:"chat_id"`
	BaseURL  string `yaml:"base_url" json:"base_url"`
}

// TelegramNotifier sends messages via Telegram Bot API.
type TelegramNotifier struct {
	config TelegramConfig
	http   *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier.
func NewTelegramNotifier(cfg TelegramConfig) *TelegramNotifier {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	return &TelegramNotifier{
		config: cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Channel() Channel { return ChannelTelegram }

// Send sends a message via Telegram.
func (t *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	text := msg.Body
	if msg.Title != "" {
		text = fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(msg.Title), msg.Body)
	}
	if msg.URL != "" {
		text += fmt.Sprintf("\n\n🔗 [查看详情](%s)", msg.URL)
	}
	text = truncate(text, telegramMessageLimit)

	payload := map[string]any{
		"chat_id":    t.config.ChatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.config.BaseURL, t.config.BotToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(text string) string {
	special := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	result := text
	for _, ch := range special {
		result = strings.ReplaceAll(result, ch, "\\"+ch)
	}
	return result
}

// truncate cuts text to at most limit bytes on a rune boundary.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}

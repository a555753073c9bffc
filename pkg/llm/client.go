// Package llm provides a unified interface for chat-completion providers.
// It supports DeepSeek, OpenAI-compatible endpoints, and local Ollama with
// automatic retries and cost tracking.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	DeepSeek Provider = "deepseek"
	OpenAI   Provider = "openai"
	Ollama   Provider = "ollama"
)

// Config holds configuration for an LLM client.
type Config struct {
	Provider    Provider      `yaml:"provider" json:"provider"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key" env:"KOLPULSE_LLM_API_KEY"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	MaxRetries  int           `yaml:"max_retries" json:"max_retries"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	MaxTokens   int           `yaml:"max_tokens" json:"max_tokens"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:    DeepSeek,
		Model:       "deepseek-chat",
		MaxRetries:  3,
		Timeout:     120 * time.Second,
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Client is the unified interface for LLM interactions.
type Client interface {
	// Generate sends a prompt and returns the LLM response.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Provider returns the name of the provider.
	Provider() Provider

	// Close releases any resources held by the client.
	Close() error
}

// Message represents a single message in a conversation.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Request holds the parameters for an LLM generation request.
type Request struct {
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Response holds the result of an LLM generation.
type Response struct {
	Content   string  `json:"content"`
	TokensIn  int     `json:"tokens_in"`
	TokensOut int     `json:"tokens_out"`
	Cost      float64 `json:"cost"`
	Model     string  `json:"model"`
	LatencyMs int64   `json:"latency_ms"`
}

// NewClient creates a new LLM client based on the provided config.
func NewClient(cfg Config) (Client, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	switch cfg.Provider {
	case DeepSeek:
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.deepseek.com"
		}
		if cfg.Model == "" {
			cfg.Model = "deepseek-chat"
		}
		return newOpenAIClient(cfg)
	case OpenAI:
		return newOpenAIClient(cfg)
	case Ollama:
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// Summarize sends one system/user prompt pair over the given text and
// returns the non-empty summary. An empty completion is an error so callers
// never archive a blank summary.
func Summarize(ctx context.Context, client Client, text, systemPrompt, userPrompt string) (string, error) {
	resp, err := client.Generate(ctx, &Request{
		System: systemPrompt,
		Messages: []Message{
			{Role: "user", Content: userPrompt + "\n\n" + text},
		},
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty completion from %s", resp.Model)
	}
	return summary, nil
}

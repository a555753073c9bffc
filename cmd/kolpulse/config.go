package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kolpulse/kolpulse/internal/sources"
	"github.com/kolpulse/kolpulse/pkg/config"
	"github.com/kolpulse/kolpulse/pkg/llm"
	"github.com/kolpulse/kolpulse/pkg/notify"
	"github.com/kolpulse/kolpulse/pkg/workerpool"
)

// PoolConfig bounds the parallel stages.
type PoolConfig struct {
	MaxWorkers  int             `yaml:"max_workers" env:"KOLPULSE_MAX_WORKERS"`
	TaskTimeout config.Duration `yaml:"task_timeout" env:"KOLPULSE_TASK_TIMEOUT"`
	PoolTimeout config.Duration `yaml:"pool_timeout" env:"KOLPULSE_POOL_TIMEOUT"`
}

// Options converts the YAML settings into worker pool options.
func (p PoolConfig) Options() workerpool.Options {
	return workerpool.Options{
		MaxConcurrency: p.MaxWorkers,
		TaskTimeout:    p.TaskTimeout.Std(),
		PoolTimeout:    p.PoolTimeout.Std(),
	}
}

// NotifyConfig selects delivery channels for the merged report.
type NotifyConfig struct {
	Telegram notify.TelegramConfig `yaml:"telegram"`
	Email    notify.EmailConfig    `yaml:"email"`
}

// PromptsConfig overrides the built-in prompts.
type PromptsConfig struct {
	ItemSystem  string `yaml:"item_system"`
	ItemUser    string `yaml:"item_user"`
	MergeSystem string `yaml:"merge_system"`
	MergeUser   string `yaml:"merge_user"`
}

// AppConfig is the root configuration.
type AppConfig struct {
	ArchiveRoot string `yaml:"archive_root" env:"KOLPULSE_ARCHIVE_ROOT"`
	LedgerPath  string `yaml:"ledger_path" env:"KOLPULSE_LEDGER_PATH"`

	LLM        llm.Config               `yaml:"llm"`
	Pool       PoolConfig               `yaml:"pool"`
	Video      sources.VideoConfig      `yaml:"video"`
	Microblog  sources.MicroblogConfig  `yaml:"microblog"`
	Newsletter sources.NewsletterConfig `yaml:"newsletter"`
	Notify     NotifyConfig             `yaml:"notify"`
	Prompts    PromptsConfig            `yaml:"prompts"`
}

// loadConfig reads the YAML config and fills in defaults.
func loadConfig(path string) (AppConfig, error) {
	cfg := AppConfig{
		ArchiveRoot: "./archive",
		LedgerPath:  "kolpulse.db",
		LLM:         llm.DefaultConfig(),
	}
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("load %s: %w", path, err)
	}
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("KOLPULSE_LLM_API_KEY")
	}
	return cfg, nil
}

// buildSources constructs the configured platform adapters. platforms
// filters by name; empty means all.
func buildSources(cfg AppConfig, platforms []string, logger *slog.Logger) []sources.ContentSource {
	all := []sources.ContentSource{
		sources.NewVideoSource(cfg.Video, logger),
		sources.NewMicroblogSource(cfg.Microblog, logger),
		sources.NewNewsletterSource(cfg.Newsletter, logger),
	}
	if len(platforms) == 0 {
		return all
	}
	wanted := make(map[string]bool, len(platforms))
	for _, p := range platforms {
		wanted[p] = true
	}
	var out []sources.ContentSource
	for _, src := range all {
		if wanted[src.Platform()] {
			out = append(out, src)
		}
	}
	return out
}

// buildDispatcher registers the configured notification channels.
func buildDispatcher(cfg NotifyConfig, logger *slog.Logger) *notify.Dispatcher {
	d := notify.NewDispatcher(logger)
	if cfg.Telegram.BotToken != "" {
		d.Register(notify.NewTelegramNotifier(cfg.Telegram))
	}
	if cfg.Email.SMTPHost != "" && cfg.Email.To != "" {
		d.Register(notify.NewEmailNotifier(cfg.Email))
	}
	return d
}

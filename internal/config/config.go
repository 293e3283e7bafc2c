package config

import (
	"errors"
	"fmt"
	"io/fs"
	"megumi/internal/core/domain"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Gateway struct {
	URL     string
	Token   string
	Timeout time.Duration
}

type Reconnect struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// MaxAttempts is the number of consecutive failed dials tolerated, 0 for no limit.
	MaxAttempts int
}

type OpenRouter struct {
	APIKey         string
	Model          string
	SystemPrompt   string
	ContextTimeout time.Duration
}

type Telegram struct {
	BotToken string
	ChatID   int64
}

// Config is the runtime configuration, read from the environment and an optional .env file.
type Config struct {
	SessionName string
	BotName     string
	OwnerNumber string
	OwnerName   string
	PairingCode bool
	WriteStore  bool
	BaseURL     string
	Description string
	URL         string

	Prefixes         string
	FallbackImageURL string
	Thumbnail        string
	StoreFile        string
	StoreInterval    time.Duration
	HandlerTimeout   time.Duration
	ReplyOnError     bool
	DispatchWorkers  int
	CallBlockDelay   time.Duration
	AnnounceAll      bool
	GPTPersona       string
	UptimeAddr       string
	LogLevel         string
	LogFile          string

	Gateway    Gateway
	Reconnect  Reconnect
	OpenRouter OpenRouter
	Telegram   Telegram
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("session_name", "session")
	v.SetDefault("bot_name", "megumi")
	v.SetDefault("owner_name", "Owner")
	v.SetDefault("pairing_code", false)
	v.SetDefault("write_store", false)
	v.SetDefault("description", "megumi")
	v.SetDefault("prefixes", domain.DefaultPrefixes)
	v.SetDefault("fallback_image_url", domain.DefaultFallbackImage)
	v.SetDefault("thumbnail", "megumi.jpg")
	v.SetDefault("store_file", "store.json")
	v.SetDefault("store_interval", "10s")
	v.SetDefault("handler_timeout", "60s")
	v.SetDefault("reply_on_error", false)
	v.SetDefault("dispatch_workers", 4)
	v.SetDefault("call_block_delay", "5s")
	v.SetDefault("announce_every_group_update", false)
	v.SetDefault("uptime_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetDefault("gateway_url", "ws://127.0.0.1:3000/session")
	v.SetDefault("gateway_timeout", "60s")

	v.SetDefault("reconnect_initial_delay", "1s")
	v.SetDefault("reconnect_max_delay", "30s")
	v.SetDefault("reconnect_max_attempts", 0)

	v.SetDefault("openrouter_model", "openai/gpt-4.1-mini")
	v.SetDefault("system_prompt", "You are a helpful assistant in a group chat. Keep answers short.")
	v.SetDefault("chat_context_timeout", "10m")
}

// Load reads the given env files, if they exist, and then the process environment. Variables already set in
// the environment win over the files.
func Load(envFiles ...string) (Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read %s: %w", file, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		SessionName: v.GetString("session_name"),
		BotName:     v.GetString("bot_name"),
		OwnerNumber: domain.DigitsOnly(v.GetString("owner_number")),
		OwnerName:   v.GetString("owner_name"),
		PairingCode: v.GetBool("pairing_code"),
		WriteStore:  v.GetBool("write_store"),
		BaseURL:     v.GetString("base_url"),
		Description: v.GetString("description"),
		URL:         v.GetString("url"),

		Prefixes:         v.GetString("prefixes"),
		FallbackImageURL: v.GetString("fallback_image_url"),
		Thumbnail:        v.GetString("thumbnail"),
		StoreFile:        v.GetString("store_file"),
		StoreInterval:    v.GetDuration("store_interval"),
		HandlerTimeout:   v.GetDuration("handler_timeout"),
		ReplyOnError:     v.GetBool("reply_on_error"),
		DispatchWorkers:  v.GetInt("dispatch_workers"),
		CallBlockDelay:   v.GetDuration("call_block_delay"),
		AnnounceAll:      v.GetBool("announce_every_group_update"),
		GPTPersona:       v.GetString("gpt_persona"),
		UptimeAddr:       v.GetString("uptime_addr"),
		LogLevel:         v.GetString("log_level"),
		LogFile:          v.GetString("log_file"),

		Gateway: Gateway{
			URL:     v.GetString("gateway_url"),
			Token:   v.GetString("gateway_token"),
			Timeout: v.GetDuration("gateway_timeout"),
		},
		Reconnect: Reconnect{
			InitialDelay: v.GetDuration("reconnect_initial_delay"),
			MaxDelay:     v.GetDuration("reconnect_max_delay"),
			MaxAttempts:  v.GetInt("reconnect_max_attempts"),
		},
		OpenRouter: OpenRouter{
			APIKey:         v.GetString("openrouter_api_key"),
			Model:          v.GetString("openrouter_model"),
			SystemPrompt:   v.GetString("system_prompt"),
			ContextTimeout: v.GetDuration("chat_context_timeout"),
		},
		Telegram: Telegram{
			BotToken: v.GetString("telegram_bot_token"),
			ChatID:   v.GetInt64("telegram_chat_id"),
		},
	}

	return cfg, cfg.Validate()
}

var ErrInvalidConfig = errors.New("invalid config")

func (c Config) Validate() error {
	var errs []error

	if c.SessionName == "" {
		errs = append(errs, errors.New("SESSION_NAME must not be empty"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("GATEWAY_URL must not be empty"))
	}
	if c.DispatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("DISPATCH_WORKERS must be at least 1, got %d", c.DispatchWorkers))
	}
	if c.HandlerTimeout <= 0 {
		errs = append(errs, errors.New("HANDLER_TIMEOUT must be a positive duration"))
	}
	if c.WriteStore && c.StoreInterval <= 0 {
		errs = append(errs, errors.New("STORE_INTERVAL must be a positive duration"))
	}
	if c.Reconnect.InitialDelay <= 0 || c.Reconnect.MaxDelay < c.Reconnect.InitialDelay {
		errs = append(errs, errors.New("RECONNECT_MAX_DELAY must not be below a positive RECONNECT_INITIAL_DELAY"))
	}
	if c.Reconnect.MaxAttempts < 0 {
		errs = append(errs, errors.New("RECONNECT_MAX_ATTEMPTS must not be negative"))
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required with TELEGRAM_BOT_TOKEN"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	return nil
}

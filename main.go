package main

import (
	"context"
	"errors"
	"fmt"
	"megumi/internal/adapters/credential"
	"megumi/internal/adapters/file"
	"megumi/internal/adapters/gateway"
	"megumi/internal/adapters/generator"
	"megumi/internal/adapters/operator"
	"megumi/internal/adapters/replyapi"
	"megumi/internal/adapters/store"
	"megumi/internal/adapters/uptime"
	"megumi/internal/config"
	"megumi/internal/core/domain"
	"megumi/internal/core/domain/command"
	"megumi/internal/core/port"
	"megumi/internal/core/service"
	"megumi/internal/logging"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const callRejectPause = 100 * time.Millisecond

var browser = []string{"Mac OS", "chrome", "121.0.6167.159"}

type flags struct {
	code   bool
	qr     bool
	mobile bool
}

func main() {
	var f flags

	root := &cobra.Command{
		Use:           "megumi",
		Short:         "WhatsApp bot relaying chat commands to a reply api",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	root.Flags().BoolVar(&f.code, "code", false, "log in with a pairing code instead of a QR code")
	root.Flags().BoolVar(&f.qr, "qr", false, "always display QR codes")
	root.Flags().BoolVar(&f.mobile, "mobile", false, "use the mobile api")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("megumi stopped")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	started := time.Now()
	log.Info().Str("session", cfg.SessionName).Msg("starting megumi...")

	mem := store.NewMemory(store.DefaultMessageLimit)
	if err := mem.ReadFromFile(cfg.StoreFile); err != nil {
		log.Warn().Err(err).Str("path", cfg.StoreFile).Msg("could not restore store snapshot")
	}
	if cfg.WriteStore {
		go mem.RunSnapshots(ctx, cfg.StoreFile, cfg.StoreInterval)
	}

	registry := newRegistry(cfg, started)

	var thumbnail []byte
	if cfg.Thumbnail != "" {
		thumbnail, err = file.Load(ctx, cfg.Thumbnail)
		if err != nil {
			log.Warn().Err(err).Str("thumbnail", cfg.Thumbnail).Msg("replies are sent without thumbnail")
		}
	}

	creds := credential.NewFileStore(cfg.SessionName)

	dispatcher := service.NewDispatcher(registry, mem, service.NewAuthorizer(cfg.OwnerNumber),
		service.DispatcherOptions{
			Prefixes:     domain.NewPrefixSet(cfg.Prefixes, domain.DefaultFallbackPrefix),
			Timeout:      cfg.HandlerTimeout,
			ReplyOnError: cfg.ReplyOnError,
			Preview:      service.ReplyPreview{SourceURL: cfg.URL, Thumbnail: thumbnail},
		})

	router := service.NewRouter()
	service.NewEvents(creds, mem, dispatcher, service.EventOptions{
		OwnerNumber:      cfg.OwnerNumber,
		OwnerName:        cfg.OwnerName,
		FallbackImageURL: cfg.FallbackImageURL,
		Description:      cfg.Description,
		SourceURL:        cfg.URL,
		CallRejectPause:  callRejectPause,
		CallBlockDelay:   cfg.CallBlockDelay,
		Workers:          cfg.DispatchWorkers,

		AnnounceEveryUpdate: cfg.AnnounceAll,
	}).Register(router)

	dialer := gateway.NewDialer(creds, gateway.Options{
		URL:          cfg.Gateway.URL,
		Token:        cfg.Gateway.Token,
		Timeout:      cfg.Gateway.Timeout,
		Mobile:       f.mobile,
		PrintQR:      !(cfg.PairingCode || f.code),
		Browser:      browser,
		Lookup:       mem.LoadMessage,
		FallbackText: cfg.BotName,
	})

	op, err := newOperator(cfg)
	if err != nil {
		return err
	}

	sup := service.NewSupervisor(dialer, router, op, mem, service.SupervisorOptions{
		PairingCode: cfg.PairingCode || f.code,
		ForceQR:     f.qr,
		Mobile:      f.mobile,
		Retry: service.RetryPolicy{
			InitialDelay: cfg.Reconnect.InitialDelay,
			MaxDelay:     cfg.Reconnect.MaxDelay,
			MaxAttempts:  cfg.Reconnect.MaxAttempts,
		},
	})

	if cfg.UptimeAddr != "" {
		handler := uptime.NewRouter(func() string { return string(sup.State()) }, started)
		go func() {
			if err := uptime.Serve(ctx, cfg.UptimeAddr, handler); err != nil {
				log.Error().Err(err).Str("addr", cfg.UptimeAddr).Msg("uptime server stopped")
			}
		}()
	}

	err = sup.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrLoggedOut), errors.Is(err, domain.ErrInvalidPhoneNumber):
		log.Info().Err(err).Msg("shutting down")
		return nil
	case errors.Is(err, context.Canceled):
		log.Info().Msg("received shutdown signal")
		return nil
	default:
		return err
	}
}

func setupLogging(cfg config.Config) (func(), error) {
	closer, err := logging.Setup(logging.Config{Level: cfg.LogLevel, File: cfg.LogFile}, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	return func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}, nil
}

func newRegistry(cfg config.Config, started time.Time) *command.Registry {
	api := replyapi.New(cfg.BaseURL, &http.Client{Timeout: cfg.HandlerTimeout})

	registry := &command.Registry{}
	registry.Register(command.NewOpenAI(api))
	registry.Register(command.NewGPT(api, cfg.GPTPersona))
	registry.Register(command.NewGPT4(api))
	registry.Register(command.NewTinyURL(api))
	registry.Register(command.NewMenu(registry, cfg.BotName, "menu"))
	registry.Register(command.NewDebug("debug", started))

	if cfg.OpenRouter.APIKey != "" {
		gen := generator.NewOpenRouter(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, cfg.OpenRouter.SystemPrompt,
			cfg.BotName)
		ask := command.NewAsk(gen, "ai", cfg.OpenRouter.ContextTimeout)
		registry.Register(ask)
		registry.Register(command.NewAskClearContext(ask, "reset"))
	}

	return registry
}

func newOperator(cfg config.Config) (port.Operator, error) {
	var op port.Operator = operator.NewTerminal(os.Stdin, os.Stdout)

	if cfg.Telegram.BotToken == "" {
		return op, nil
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithDefaultHandler(noOpHandler), bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed initializing telegram bot: %w", err)
	}

	return operator.NewTelegram(op, b, cfg.Telegram.ChatID, cfg.BotName), nil
}

func noOpHandler(_ context.Context, _ *bot.Bot, _ *models.Update) {}

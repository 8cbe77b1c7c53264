package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"github.com/campushub/chatkit/apiclient"
	"github.com/campushub/chatkit/config"
	"github.com/campushub/chatkit/coordinator"
	"github.com/campushub/chatkit/directory"
	"github.com/campushub/chatkit/logger"
	"github.com/campushub/chatkit/push"
	"github.com/campushub/chatkit/unread"
)

// Headless harness for the conversation layer: wires the directory, push
// transport, unread ledger and coordinator together, polls the portal API,
// and exposes a small debug surface to inspect the live state.
func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(logger.Config{Development: os.Getenv("APP_ENV") != "production"})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	api := apiclient.New(apiclient.Config{
		BaseURL: cfg.API.BaseURL,
		Token:   cfg.API.Token,
		Timeout: cfg.APITimeout,
	}, zlog)

	transport, err := push.New(cfg.Push.URL, zlog)
	if err != nil {
		zlog.Fatalw("failed to initialize push transport", "err", err)
	}
	defer transport.Close()
	zlog.Infow("push transport initialized", "url", cfg.Push.URL)

	ledger := unread.NewLedger()
	dir := directory.New(api, cfg.UserID, zlog)
	coord := coordinator.New(transport, api, ledger, cfg.UserID, zlog)
	coord.OnTranscriptReady = func(conversationID string) {
		zlog.Infow("transcript ready", "conversation", conversationID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := dir.Refresh(ctx); err != nil {
		zlog.Warnw("initial refresh failed, continuing with empty list", "err", err)
	}
	go dir.Poll(ctx, config.PollInterval)

	app := fiber.New()
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	app.Get("/status", func(c *fiber.Ctx) error {
		active := ""
		if conv := coord.Active(); conv != nil {
			active = conv.ID
		}
		return c.JSON(fiber.Map{
			"connected":     transport.Connected(),
			"subscriptions": transport.ActiveSubscriptions(),
			"active":        active,
			"owner":         coord.Owner().String(),
			"minimized":     coord.Minimized(),
			"conversations": len(dir.Conversations()),
			"unread":        ledger.Snapshot(),
			"unreadTotal":   ledger.Total(),
		})
	})

	go func() {
		zlog.Infow("starting debug server", "addr", cfg.Server.Addr)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			zlog.Fatalw("debug server failed", "err", err)
		}
	}()

	// Block until signal received
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	cancel()
	if err := app.Shutdown(); err != nil {
		zlog.Warnw("error shutting down debug server", "err", err)
	}
	zlog.Info("stopped")
}

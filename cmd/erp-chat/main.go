package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/chat"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/cli"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/config"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/logger"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/repository"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/socket"
)

func main() {
	cfg := config.Load()

	// Keep structured logs off the interactive prompt.
	level := cfg.LogLevel
	if cli.Mode(cfg.Mode) == cli.ModeInteractive && level == "info" {
		level = "warn"
	}
	logger.Init(level)

	if cfg.SelfID == "" {
		log.Fatal("missing user identity: set -user-id or ERP_CHAT_USER_ID")
	}

	client, cleanup, err := buildClient(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize chat client: %v", err)
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Connect the push channel up front; dial failures are retried by the
	// connection manager and surfaced as status events.
	if err := client.Start(ctx); err != nil {
		log.Printf("Push channel start failed: %v", err)
	}

	handler := cli.NewCommandHandler(client)

	var runErr error
	switch cli.Mode(cfg.Mode) {
	case cli.ModeHeadless:
		runErr = cli.NewHeadlessCLI(handler).Run(ctx)
	default:
		runErr = cli.NewInteractiveCLI(handler).Run(ctx)
	}
	if runErr != nil && runErr != context.Canceled {
		log.Printf("CLI error: %v", runErr)
	}

	client.Stop()
}

func buildClient(cfg *config.Config) (*chat.Client, func(), error) {
	cleanup := func() {}

	opts := chat.Options{
		Self: domain.Participant{ID: cfg.SelfID, Name: cfg.SelfName},
	}

	if cfg.DatabasePath != "" {
		db, err := initDatabase(cfg.DatabasePath)
		if err != nil {
			return nil, cleanup, err
		}
		opts.ChatStore = repository.NewChatRepository(db)
		opts.MessageStore = repository.NewMessageRepository(db)
		cleanup = func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}
	}

	apiClient := api.NewClient(api.Config{
		BaseURL: cfg.APIBaseURL,
		Token:   cfg.Token,
	})

	conn := socket.New(socket.Config{
		URL:               cfg.SocketURL,
		PollURL:           cfg.PollURL,
		Token:             cfg.Token,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		ReconnectDelayMax: cfg.ReconnectDelayMax,
	}, logger.Module("socket"))

	bus := domain.NewEventBus()

	client := chat.NewClient(apiClient, conn, bus, opts, logger.Module("chat"))
	return client, cleanup, nil
}

func initDatabase(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	db.Exec("PRAGMA journal_mode=WAL")

	err = db.AutoMigrate(
		&repository.ChatModel{},
		&repository.MessageModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/krishd9895/multi-op-bot-v5/internal/config"
	"github.com/krishd9895/multi-op-bot-v5/internal/handlers"
	"github.com/krishd9895/multi-op-bot-v5/internal/logging"
	"github.com/krishd9895/multi-op-bot-v5/internal/scheduler"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
	"github.com/krishd9895/multi-op-bot-v5/internal/storage"
)

const logPath = "logs.txt"

func main() {
	_ = godotenv.Load() // BOT_TOKEN, MONGODB_URI etc.

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.Setup(logPath, slog.LevelInfo)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Error("load timezone", "tz", cfg.Timezone, "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.New(ctx, cfg.MongoURI, cfg.DBName, log)
	if err != nil {
		log.Error("connect store", "err", err)
		os.Exit(1)
	}

	prompt, fallback, err := store.LoadScheduleTimes(ctx)
	if err != nil {
		log.Error("load schedule times", "err", err)
	}
	sched := config.NewSchedule(prompt, fallback, store)

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("telegram auth", "err", err)
		os.Exit(1)
	}
	log.Info("authorized", "account", bot.Self.UserName)

	sessions := session.NewRegistry()
	h := handlers.New(bot, store, sessions, sched, loc, cfg.OwnerID, log, logPath)
	h.StartTimeoutSupervisor(ctx)

	eng := scheduler.New(h, store, sessions, sched, loc, log)
	if _, err := eng.Start(ctx); err != nil {
		log.Error("start scheduler", "err", err)
		os.Exit(1)
	}

	go keepAlive(cfg.Port, log)

	runPolling(ctx, bot, h)
}

// runPolling consumes the update stream. The channel is requested exactly
// once: tgbotapi's producer goroutine never stops, so a second
// GetUpdatesChan call would race it for offsets and drop updates. Per-update
// panics are contained inside HandleUpdate.
func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, h *handlers.Handler) {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	for upd := range bot.GetUpdatesChan(updateConfig) {
		h.HandleUpdate(ctx, upd)
	}
}

// keepAlive answers hosting-platform health probes.
func keepAlive(port string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Bot is running")
	})
	log.Info("keep-alive listening", "port", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error("keep-alive server", "err", err)
	}
}

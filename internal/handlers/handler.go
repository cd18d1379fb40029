// Package handlers wires telegram updates to the recording flow, settings,
// reports and admin operations.
package handlers

import (
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/config"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
	"github.com/krishd9895/multi-op-bot-v5/internal/storage"
)

// UserTimeout bounds how long a button prompt waits for a response.
const UserTimeout = 60 * time.Second

// Bot is the slice of the telegram client the handlers use. *tgbotapi.BotAPI
// satisfies it; tests plug in a recorder.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Handler struct {
	Bot      Bot
	Store    storage.Store
	Sessions *session.Registry
	Schedule *config.Schedule
	Loc      *time.Location
	OwnerID  int64
	Log      *slog.Logger
	LogPath  string

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func New(bot Bot, store storage.Store, sessions *session.Registry, sched *config.Schedule, loc *time.Location, ownerID int64, log *slog.Logger, logPath string) *Handler {
	return &Handler{
		Bot:      bot,
		Store:    store,
		Sessions: sessions,
		Schedule: sched,
		Loc:      loc,
		OwnerID:  ownerID,
		Log:      log,
		LogPath:  logPath,
		Now:      func() time.Time { return time.Now().In(loc) },
	}
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Error("send message", "chat", chatID, "err", err)
	}
}

func (h *Handler) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Error("send message", "chat", chatID, "err", err)
	}
}

// deleteMessage is best effort; the message may already be gone.
func (h *Handler) deleteMessage(chatID int64, messageID int) {
	_, _ = h.Bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
}

// trackPending arms the timeout supervisor for a button prompt.
func (h *Handler) trackPending(userID, chatID int64, messageID int) {
	h.Sessions.SetPending(userID, session.Pending{
		MessageID: messageID,
		ChatID:    chatID,
		ExpiresAt: h.Now().Add(UserTimeout),
	})
}

func (h *Handler) sendDocument(chatID int64, filename string, data []byte, caption string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := h.Bot.Send(doc); err != nil {
		h.Log.Error("send document", "chat", chatID, "err", err)
	}
}

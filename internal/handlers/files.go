package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/fileimport"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
)

const maxUploadBytes = 10 << 20

var fileClient = &http.Client{Timeout: 30 * time.Second}

// HandleDocument consumes an upload only when one was asked for.
func (h *Handler) HandleDocument(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	await := h.Sessions.TakeAwait(userID)
	if await != session.AwaitVillageFile && await != session.AwaitHolidayFile {
		return
	}
	h.Sessions.RemovePending(userID)

	data, err := h.downloadDocument(msg.Document)
	if err != nil {
		h.Log.Error("download document", "user", userID, "file", msg.Document.FileName, "err", err)
		h.send(chatID, "❌ Could not download the file. Please try again.")
		return
	}
	table, err := fileimport.Parse(msg.Document.FileName, data)
	if err != nil {
		h.send(chatID, fmt.Sprintf("❌ Error processing file: %v", err))
		return
	}

	switch await {
	case session.AwaitVillageFile:
		h.importVillages(ctx, userID, chatID, table)
	case session.AwaitHolidayFile:
		h.importHolidays(ctx, userID, chatID, table)
	}
}

func (h *Handler) downloadDocument(doc *tgbotapi.Document) ([]byte, error) {
	url, err := h.Bot.GetFileDirectURL(doc.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file url: %w", err)
	}
	resp, err := fileClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch file: status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return data, nil
}

// importVillages replaces the whole village list with the uploaded one.
func (h *Handler) importVillages(ctx context.Context, userID, chatID int64, table *fileimport.Table) {
	villages, skipped, err := fileimport.Villages(table)
	if err != nil {
		h.send(chatID, fmt.Sprintf("❌ %v", err))
		return
	}
	if err := h.Store.ReplaceVillages(ctx, userID, villages); err != nil {
		h.Log.Error("replace villages", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	reply := fmt.Sprintf("✅ Imported %d villages:\n%s", len(villages), strings.Join(villages, ", "))
	if len(skipped) > 0 {
		reply += fmt.Sprintf("\n\n⚠️ Skipped %d invalid entries: %s", len(skipped), strings.Join(skipped, ", "))
	}
	h.send(chatID, reply)
	h.Log.Info("villages imported", "user", userID, "count", len(villages), "skipped", len(skipped))
}

// importHolidays replaces the user's declared public holidays.
func (h *Handler) importHolidays(ctx context.Context, userID, chatID int64, table *fileimport.Table) {
	holidays, skipped, err := fileimport.Holidays(table)
	if err != nil {
		h.send(chatID, fmt.Sprintf("❌ %v", err))
		return
	}
	if err := h.Store.ReplaceHolidays(ctx, userID, holidays); err != nil {
		h.Log.Error("replace holidays", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	reply := fmt.Sprintf("✅ Imported %d public holidays.", len(holidays))
	if len(skipped) > 0 {
		reply += fmt.Sprintf("\n\n⚠️ Skipped %d rows with unreadable dates: %s", len(skipped), strings.Join(skipped, ", "))
	}
	h.send(chatID, reply)
	h.Log.Info("holidays imported", "user", userID, "count", len(holidays), "skipped", len(skipped))
}

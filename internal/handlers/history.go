package handlers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
)

// handleActivitiesBrowser opens the year picker for recorded history.
func (h *Handler) handleActivitiesBrowser(ctx context.Context, userID, chatID int64) {
	if err := h.Store.MigrateActivities(ctx, userID); err != nil {
		h.Log.Error("migrate activities", "user", userID, "err", err)
	}
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil || len(u.Activities) == 0 {
		h.send(chatID, msgNoActivities)
		return
	}
	years := make([]string, 0, len(u.Activities))
	for y := range u.Activities {
		years = append(years, y)
	}
	sort.Strings(years)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, y := range years {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(y, "hist:y:"+y)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")))
	msg := tgbotapi.NewMessage(chatID, "📅 Select a year:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Error("send year picker", "user", userID, "err", err)
	}
}

func (h *Handler) handleHistoryAction(ctx context.Context, userID, chatID int64, messageID int, act action) {
	switch act.arg(0) {
	case "y":
		h.showHistoryMonths(ctx, userID, chatID, messageID, act.arg(1))
	case "m":
		h.showHistoryDates(ctx, userID, chatID, messageID, act.arg(1), act.arg(2))
	case "del":
		h.confirmHistoryDelete(ctx, userID, chatID, messageID, act.arg(1), act.arg(2), act.rest(3))
	case "delok":
		h.deleteHistoryEntry(ctx, userID, chatID, messageID, act.arg(1), act.arg(2), act.rest(3))
	}
}

func (h *Handler) showHistoryMonths(ctx context.Context, userID, chatID int64, messageID int, year string) {
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.send(chatID, msgStoreFailure)
		return
	}
	monthKeys := make([]int, 0, 12)
	for m := range u.Activities[year] {
		if n, err := strconv.Atoi(m); err == nil {
			monthKeys = append(monthKeys, n)
		}
	}
	sort.Ints(monthKeys)

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range monthKeys {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				time.Month(m).String(), fmt.Sprintf("hist:m:%s:%d", year, m))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")))
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		fmt.Sprintf("📅 Year: %s\nSelect a month:", year),
		tgbotapi.NewInlineKeyboardMarkup(rows...))
	if _, err := h.Bot.Send(edit); err != nil {
		h.Log.Error("edit history message", "user", userID, "err", err)
	}
}

func (h *Handler) showHistoryDates(ctx context.Context, userID, chatID int64, messageID int, year, month string) {
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.send(chatID, msgStoreFailure)
		return
	}
	acts := models.SortActivitiesByDate(u.MonthActivities(year, month))
	monthName := monthDisplay(month)
	if len(acts) == 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID,
			fmt.Sprintf("❌ No activities for %s %s.", monthName, year))
		if _, err := h.Bot.Send(edit); err != nil {
			h.Log.Error("edit history message", "user", userID, "err", err)
		}
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "📅 Activities for %s %s:\n\n", monthName, year)
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, a := range acts {
		fmt.Fprintf(&text, "%d. %s: %s - %s\n", i+1, a.Date, a.ToVillage, a.Purpose)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("🗑️ %d", i+1),
			fmt.Sprintf("hist:del:%s:%s:%s", year, month, a.Date)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")))
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text.String(),
		tgbotapi.NewInlineKeyboardMarkup(rows...))
	if _, err := h.Bot.Send(edit); err != nil {
		h.Log.Error("edit history message", "user", userID, "err", err)
	}
}

func (h *Handler) confirmHistoryDelete(ctx context.Context, userID, chatID int64, messageID int, year, month, date string) {
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.send(chatID, msgStoreFailure)
		return
	}
	var target *models.Activity
	for _, a := range u.MonthActivities(year, month) {
		if a.Date == date {
			a := a
			target = &a
			break
		}
	}
	if target == nil {
		h.showHistoryDates(ctx, userID, chatID, messageID, year, month)
		return
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Yes", fmt.Sprintf("hist:delok:%s:%s:%s", year, month, date)),
			tgbotapi.NewInlineKeyboardButtonData("❌ No", fmt.Sprintf("hist:m:%s:%s", year, month)),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
		fmt.Sprintf("Are you sure you want to delete this activity?\n\n%s: %s - %s",
			target.Date, target.ToVillage, target.Purpose), kb)
	if _, err := h.Bot.Send(edit); err != nil {
		h.Log.Error("edit history message", "user", userID, "err", err)
	}
}

func (h *Handler) deleteHistoryEntry(ctx context.Context, userID, chatID int64, messageID int, year, month, date string) {
	if err := h.Store.DeleteActivity(ctx, userID, year, month, date); err != nil {
		h.Log.Error("delete activity", "user", userID, "date", date, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	h.Log.Info("activity deleted", "user", userID, "date", date)
	h.showHistoryDates(ctx, userID, chatID, messageID, year, month)
}

func monthDisplay(month string) string {
	if n, err := strconv.Atoi(month); err == nil && n >= 1 && n <= 12 {
		return time.Month(n).String()
	}
	return month
}

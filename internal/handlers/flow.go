package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/selector"
)

const hqOfficePurpose = "Attended office work"

// startFlow opens the recording flow for a date: a fresh draft plus the
// village keyboard. Any earlier half-finished flow is superseded.
func (h *Handler) startFlow(ctx context.Context, userID, chatID int64, date string) {
	u, err := h.Store.EnsureUser(ctx, userID)
	if err != nil {
		h.Log.Error("ensure user", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	if len(u.Villages) == 0 {
		h.send(chatID, "🏘️ You have no villages configured. Use /settings to add villages first.")
		return
	}
	h.Sessions.StartDraft(userID, chatID, date)
	h.sendVillagePrompt(ctx, u, chatID, date)
}

// sendVillagePrompt builds the village keyboard: headquarters first, then the
// not-yet-covered villages two per row, then manual entry and cancel.
func (h *Handler) sendVillagePrompt(ctx context.Context, u *models.User, chatID int64, date string) {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		t = h.Now()
	}
	year, month := models.YearMonthKeys(t)
	monthActs := u.MonthActivities(year, month)
	available := selector.Available(u.Villages, monthActs)
	kb := villageKeyboard(u, available)

	covered := selector.Covered(monthActs)
	text := fmt.Sprintf("🏘️ Select the village you visited on %s:", date)
	if len(covered) > 0 {
		names := make([]string, 0, len(covered))
		for name := range covered {
			names = append(names, name)
		}
		text += "\n\n✅ Already covered this month: " + strings.Join(names, ", ")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = kb
	sent, err := h.Bot.Send(msg)
	if err != nil {
		h.Log.Error("send village prompt", "chat", chatID, "err", err)
		return
	}
	h.trackPending(u.UserID, chatID, sent.MessageID)
}

// villageKeyboard lays out headquarters, the open villages two per row, then
// manual entry and cancel.
func villageKeyboard(u *models.User, available []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("🏢 %s (headquarters)", selector.TitleCase(u.HQ())), "village:hq"),
	))
	for i := 0; i < len(available); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(available[i], "village:"+available[i]),
		}
		if i+1 < len(available) {
			row = append(row,
				tgbotapi.NewInlineKeyboardButtonData(available[i+1], "village:"+available[i+1]))
		}
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnManualEntry, "village:manual")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// sendPurposePrompt shows the numbered purpose options for the draft's month.
func (h *Handler) sendPurposePrompt(ctx context.Context, userID, chatID int64) {
	d, ok := h.Sessions.Draft(userID)
	if !ok {
		return
	}
	month := h.Now().Month()
	if t, err := time.Parse(models.DateLayout, d.Date); err == nil {
		month = t.Month()
	}
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.Log.Error("get user", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	options := selector.PurposeOptions(u.CustomActivities, month)
	h.Sessions.SetDraftPurposes(userID, options)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := range options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%d", i+1), fmt.Sprintf("purpose:%d", i)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📝 Manual Entry", "purpose:manual")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")),
	)

	var list strings.Builder
	for i, p := range options {
		fmt.Fprintf(&list, "%d. %s\n", i+1, p)
	}
	msg := tgbotapi.NewMessage(chatID,
		"🎯 *Select the purpose of visit:*\n\n"+list.String()+"\nClick the number button or use Manual Entry.")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	sent, err := h.Bot.Send(msg)
	if err != nil {
		h.Log.Error("send purpose prompt", "chat", chatID, "err", err)
		return
	}
	h.trackPending(userID, chatID, sent.MessageID)
}

// completeDraft finalizes the flow once both village and purpose are known.
func (h *Handler) completeDraft(ctx context.Context, userID, chatID int64, purpose string) {
	d, ok := h.Sessions.Draft(userID)
	if !ok || !d.VillageSet {
		h.send(chatID, "❌ Village information is missing. Please try again.")
		return
	}
	u, err := h.Store.GetUser(ctx, userID)
	if err != nil {
		h.Log.Error("get user", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	act := models.Activity{
		Date:      d.Date,
		From:      u.HQ(),
		ToVillage: d.Village,
		Purpose:   purpose,
	}
	h.saveActivity(ctx, userID, chatID, act)
	h.Sessions.ClearDraft(userID)
	h.Sessions.RemovePending(userID)
}

// saveActivity persists one entry and confirms with a summary. The daily
// reminder message, if still showing, is removed so it cannot be answered
// twice.
func (h *Handler) saveActivity(ctx context.Context, userID, chatID int64, act models.Activity) {
	updated, err := h.Store.SaveActivity(ctx, userID, act)
	if err != nil {
		h.Log.Error("save activity", "user", userID, "date", act.Date, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}
	if dp, ok := h.Sessions.TakeDailyPrompt(userID); ok {
		h.deleteMessage(chatID, dp.MessageID)
	}
	head := msgRecorded
	if updated {
		head = msgUpdated
	}
	h.sendMarkdown(chatID, head+"\n\n"+activitySummary(act))
	h.Log.Info("activity saved", "user", userID, "date", act.Date, "to", act.ToVillage, "updated", updated)
}

func activitySummary(act models.Activity) string {
	return fmt.Sprintf("*Date:* %s\n*From:* %s\n*To:* %s\n*Purpose:* %s",
		act.Date, act.From, act.ToVillage, act.Purpose)
}


// cancelFlow tears down whatever the user was in the middle of.
func (h *Handler) cancelFlow(userID, chatID int64, promptMessageID int) {
	h.Sessions.ClearDraft(userID)
	h.Sessions.RemovePending(userID)
	h.Sessions.MarkCancelled(userID)
	if promptMessageID != 0 {
		h.deleteMessage(chatID, promptMessageID)
	}
	h.send(chatID, msgCancelled)
}

// SendDailyPrompt delivers the scheduled reminder with the village keyboard.
// pickedPurpose is non-empty when the user has no default purpose and the
// scheduler chose a seasonal one to mention.
func (h *Handler) SendDailyPrompt(ctx context.Context, u *models.User, date string, pickedPurpose string) {
	h.Sessions.StartDraft(u.UserID, u.UserID, date)

	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		t = h.Now()
	}
	year, month := models.YearMonthKeys(t)
	available := selector.Available(u.Villages, u.MonthActivities(year, month))

	text := "🕰️ *Daily Activity Reminder*\n\nPlease record your tour activity for today. Select the village you visited:"
	if pickedPurpose != "" {
		text += "\n\n📝 Note: Since you haven't set a default purpose, I've randomly selected one from this month's activities: *" + pickedPurpose + "*"
	}
	msg := tgbotapi.NewMessage(u.UserID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = villageKeyboard(u, available)
	sent, err := h.Bot.Send(msg)
	if err != nil {
		h.Log.Error("send daily prompt", "user", u.UserID, "err", err)
		return
	}
	h.Sessions.SetDailyPrompt(u.UserID, sent.MessageID, t.Format("2006-01-02"))
	h.Log.Info("daily prompt sent", "user", u.UserID, "available", len(available))
}

// NotifyHolidayRecorded announces the automatic holiday entry.
func (h *Handler) NotifyHolidayRecorded(userID int64, act models.Activity, reason string) {
	h.sendMarkdown(userID, fmt.Sprintf(
		"🏖️ *Public Holiday Recorded*\n\nToday is a public holiday (%s).\n%s",
		reason, activitySummary(act)))
}

// NotifyFallbackRecorded announces the automatic rotation entry.
func (h *Handler) NotifyFallbackRecorded(userID int64, act models.Activity, fallbackTime string, hadDefault bool) {
	why := fmt.Sprintf("Since you didn't record an activity by %s, I've added a default entry.", fallbackTime)
	if !hadDefault {
		why += " The purpose was picked from this month's seasonal activities."
	}
	if dp, ok := h.Sessions.TakeDailyPrompt(userID); ok {
		h.deleteMessage(userID, dp.MessageID)
	}
	// the reminder's draft is now answered by the automatic entry; an
	// unrelated draft (say an /editact for another date) is left alone
	if d, open := h.Sessions.Draft(userID); open && d.Date == act.Date {
		h.Sessions.ClearDraft(userID)
		h.Sessions.RemovePending(userID)
	}
	h.sendMarkdown(userID, fmt.Sprintf(
		"🤖 *Default Activity Recorded*\n\n%s\n\n%s\n\nYou can update this using /act command if needed.",
		why, activitySummary(act)))
}

package handlers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/config"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
)

func (h *Handler) handleSettings(ctx context.Context, userID, chatID int64) {
	u, err := h.Store.EnsureUser(ctx, userID)
	if err != nil {
		h.Log.Error("ensure user", "user", userID, "err", err)
		h.send(chatID, msgStoreFailure)
		return
	}

	status := func(s string) string {
		if s == "" {
			return "Not set"
		}
		return "✅ " + s
	}
	text := fmt.Sprintf(
		"⚙️ *Settings*\n\nHeadquarters: %s\nRole: %s\nVillages: %d\nCustom activities: %d\nDefault purpose: %s\nPublic holidays: %d",
		status(u.Headquarters), status(u.Role), len(u.Villages),
		len(u.CustomActivities), status(u.DefaultPurpose), len(u.PublicHolidays))

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Set Role", "set:role"),
			tgbotapi.NewInlineKeyboardButtonData("🏢 Set Headquarters", "set:hq"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏘️ Manage Villages", "set:vil"),
			tgbotapi.NewInlineKeyboardButtonData("📋 Manage Activities", "set:acts"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Default Purpose", "set:dp"),
			tgbotapi.NewInlineKeyboardButtonData("📅 Add Public Holidays", "set:hol"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	sent, err := h.Bot.Send(msg)
	if err != nil {
		h.Log.Error("send settings menu", "user", userID, "err", err)
		return
	}
	h.trackPending(userID, chatID, sent.MessageID)
}

func (h *Handler) handleSettingsAction(ctx context.Context, userID, chatID int64, messageID int, act action) {
	h.deleteMessage(chatID, messageID)
	switch act.arg(0) {
	case "role":
		h.askInput(userID, chatID, session.AwaitRole, msgAskRole)
	case "hq":
		h.askInput(userID, chatID, session.AwaitHeadquarters, msgAskHeadquarters)
	case "dp":
		h.handleDefaultPurposeAction(ctx, userID, chatID, act)
	case "vil":
		h.handleVillagesAction(ctx, userID, chatID, act)
	case "acts":
		h.handleActivitiesAction(ctx, userID, chatID, act)
	case "hol":
		h.Sessions.SetAwait(userID, session.AwaitHolidayFile)
		h.send(chatID, msgAskHolidayFile)
	}
}

func (h *Handler) askInput(userID, chatID int64, await session.Await, text string) {
	h.Sessions.SetAwait(userID, await)
	sent, err := h.Bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		h.Log.Error("send input prompt", "user", userID, "err", err)
		return
	}
	h.Sessions.SetInputPrompt(userID, sent.MessageID)
	h.trackPending(userID, chatID, sent.MessageID)
}

func (h *Handler) handleDefaultPurposeAction(ctx context.Context, userID, chatID int64, act action) {
	switch act.arg(1) {
	case "set":
		h.askInput(userID, chatID, session.AwaitDefaultPurpose, msgAskDefPurpose)
	case "clear":
		if err := h.Store.UnsetDefaultPurpose(ctx, userID); err != nil {
			h.Log.Error("unset default purpose", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, "✅ Default purpose cleared. Automatic entries will use seasonal purposes.")
	default:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✏️ Set purpose", "set:dp:set"),
				tgbotapi.NewInlineKeyboardButtonData("🗑️ Clear purpose", "set:dp:clear"),
			),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")),
		)
		msg := tgbotapi.NewMessage(chatID, "🎯 Default purpose is used for automatic fallback entries.")
		msg.ReplyMarkup = kb
		sent, err := h.Bot.Send(msg)
		if err != nil {
			h.Log.Error("send default purpose menu", "user", userID, "err", err)
			return
		}
		h.trackPending(userID, chatID, sent.MessageID)
	}
}

func (h *Handler) handleVillagesAction(ctx context.Context, userID, chatID int64, act action) {
	switch act.arg(1) {
	case "add":
		h.askInput(userID, chatID, session.AwaitNewVillage, msgAskVillageName)
	case "upload":
		h.Sessions.SetAwait(userID, session.AwaitVillageFile)
		h.send(chatID, msgAskVillageFile)
	case "del":
		u, err := h.Store.GetUser(ctx, userID)
		if err != nil {
			h.Log.Error("get user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		if len(u.Villages) == 0 {
			h.send(chatID, "🏘️ No villages to remove.")
			return
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for i, v := range u.Villages {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑️ "+v, fmt.Sprintf("set:vil:rm:%d", i))))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")))
		msg := tgbotapi.NewMessage(chatID, "🗑️ Select the village to remove:")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		sent, err := h.Bot.Send(msg)
		if err != nil {
			h.Log.Error("send remove village menu", "user", userID, "err", err)
			return
		}
		h.trackPending(userID, chatID, sent.MessageID)
	case "rm":
		idx, err := strconv.Atoi(act.arg(2))
		if err != nil {
			return
		}
		u, err := h.Store.GetUser(ctx, userID)
		if err != nil {
			h.Log.Error("get user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		if idx < 0 || idx >= len(u.Villages) {
			return
		}
		name := u.Villages[idx]
		if err := h.Store.RemoveVillage(ctx, userID, name); err != nil {
			h.Log.Error("remove village", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Village removed: %s", name))
	default:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("➕ Add Village", "set:vil:add"),
				tgbotapi.NewInlineKeyboardButtonData("🗑️ Remove Village", "set:vil:del"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("📁 Upload File (Replace All)", "set:vil:upload"),
			),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")),
		)
		u, err := h.Store.GetUser(ctx, userID)
		if err != nil {
			h.Log.Error("get user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		text := "🏘️ Your villages: none"
		if len(u.Villages) > 0 {
			text = "🏘️ Your villages:\n" + strings.Join(u.Villages, ", ")
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = kb
		sent, err := h.Bot.Send(msg)
		if err != nil {
			h.Log.Error("send villages menu", "user", userID, "err", err)
			return
		}
		h.trackPending(userID, chatID, sent.MessageID)
	}
}

func (h *Handler) handleActivitiesAction(ctx context.Context, userID, chatID int64, act action) {
	switch act.arg(1) {
	case "add":
		h.askInput(userID, chatID, session.AwaitNewActivity, msgAskNewActivity)
	case "rm":
		idx, err := strconv.Atoi(act.arg(2))
		if err != nil {
			return
		}
		u, err := h.Store.GetUser(ctx, userID)
		if err != nil {
			h.Log.Error("get user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		if idx < 0 || idx >= len(u.CustomActivities) {
			return
		}
		label := u.CustomActivities[idx]
		if err := h.Store.RemoveCustomActivity(ctx, userID, label); err != nil {
			h.Log.Error("remove custom activity", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Activity removed: %s", label))
	default:
		u, err := h.Store.GetUser(ctx, userID)
		if err != nil {
			h.Log.Error("get user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for i, a := range u.CustomActivities {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑️ "+a, fmt.Sprintf("set:acts:rm:%d", i))))
		}
		rows = append(rows,
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Add Activity", "set:acts:add")),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnCancel, "cancel")),
		)
		msg := tgbotapi.NewMessage(chatID, "📋 Your custom activities are offered first on the purpose keyboard.")
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		sent, err := h.Bot.Send(msg)
		if err != nil {
			h.Log.Error("send activities menu", "user", userID, "err", err)
			return
		}
		h.trackPending(userID, chatID, sent.MessageID)
	}
}

// handleOwnerSet shows the schedule-time menu to the bot owner.
func (h *Handler) handleOwnerSet(userID, chatID int64) {
	if userID != h.OwnerID {
		h.send(chatID, msgNotAdmin)
		return
	}
	text := fmt.Sprintf("🛠️ *Owner Settings*\n\nDaily prompt time: %s IST\nDefault activity time: %s IST",
		h.Schedule.PromptTime(), h.Schedule.FallbackTime())
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Change Daily Prompt Time", "owner:prompt")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🤖 Change Default Activity Time", "owner:fallback")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Close", "cancel")),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	if _, err := h.Bot.Send(msg); err != nil {
		h.Log.Error("send owner menu", "user", userID, "err", err)
	}
}

func (h *Handler) handleOwnerAction(userID, chatID int64, messageID int, act action) {
	if userID != h.OwnerID {
		h.send(chatID, msgNotAdmin)
		return
	}
	h.deleteMessage(chatID, messageID)
	switch act.arg(0) {
	case "prompt":
		h.askInput(userID, chatID, session.AwaitPromptTime,
			"⏰ Enter the new daily prompt time (HH:MM, 24h IST):")
	case "fallback":
		h.askInput(userID, chatID, session.AwaitFallbackTime,
			"🤖 Enter the new default activity time (HH:MM, 24h IST):")
	}
}

// handleTimeInput validates and persists a new schedule time from the owner.
func (h *Handler) handleTimeInput(ctx context.Context, userID, chatID int64, text string, prompt bool) {
	if userID != h.OwnerID {
		h.send(chatID, msgNotAdmin)
		return
	}
	if !config.ValidTime(text) {
		await := session.AwaitFallbackTime
		if prompt {
			await = session.AwaitPromptTime
		}
		h.reask(userID, chatID, await, msgBadTime)
		return
	}
	var err error
	var what string
	if prompt {
		err = h.Schedule.SetPromptTime(ctx, text)
		what = "Daily prompt time"
	} else {
		err = h.Schedule.SetFallbackTime(ctx, text)
		what = "Default activity fallback time"
	}
	if err != nil {
		h.Log.Error("save schedule time", "err", err)
		h.send(chatID, "❌ An error occurred while saving the new time.")
		return
	}
	h.sendMarkdown(chatID, fmt.Sprintf(
		"✅ %s updated to *%s* IST. The change will take effect on the next schedule check.", what, text))
	h.Log.Info("schedule time updated", "what", what, "time", text, "by", userID)
}

// handleLogs sends the current log file to the owner.
func (h *Handler) handleLogs(userID, chatID int64) {
	if userID != h.OwnerID {
		h.send(chatID, msgNotAdmin)
		return
	}
	data, err := os.ReadFile(h.LogPath)
	if err != nil {
		h.Log.Error("read log file", "path", h.LogPath, "err", err)
		h.send(chatID, "❌ Could not read the log file.")
		return
	}
	if len(data) == 0 {
		h.send(chatID, "📄 Log file is empty.")
		return
	}
	h.sendDocument(chatID, "bot.log", data, "📄 Current bot log")
}

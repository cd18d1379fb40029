package handlers

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/selector"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
)

// HandleUpdate is the single entry point the polling loop feeds. A panic is
// contained here so one malformed update cannot abandon the update channel;
// tgbotapi's producer goroutine never exits, so the stream must stay owned
// by a single consumer.
func (h *Handler) HandleUpdate(ctx context.Context, up tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			h.Log.Error("update handler panicked", "panic", r)
		}
	}()
	switch {
	case up.CallbackQuery != nil:
		h.HandleCallback(ctx, up.CallbackQuery)
	case up.Message != nil && up.Message.Document != nil:
		h.HandleDocument(ctx, up.Message)
	case up.Message != nil && up.Message.IsCommand():
		h.HandleCommand(ctx, up.Message)
	case up.Message != nil:
		h.HandleText(ctx, up.Message)
	}
}

func (h *Handler) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		if _, err := h.Store.EnsureUser(ctx, userID); err != nil {
			h.Log.Error("ensure user", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, msgWelcome)
	case "act":
		date := h.Now().Format(models.DateLayout)
		if arg := msg.CommandArguments(); arg != "" {
			if _, err := time.Parse(models.DateLayout, arg); err != nil {
				h.send(chatID, msgBadDate)
				return
			}
			date = arg
		}
		h.startFlow(ctx, userID, chatID, date)
	case "editact":
		h.handleEditAct(ctx, msg)
	case "dnact":
		h.handleDownloadActivities(ctx, msg)
	case "td":
		h.handleTourDiary(ctx, msg)
	case "settings":
		h.handleSettings(ctx, userID, chatID)
	case "activities":
		h.handleActivitiesBrowser(ctx, userID, chatID)
	case "ownerset":
		h.handleOwnerSet(userID, chatID)
	case "logs":
		h.handleLogs(userID, chatID)
	default:
		h.send(chatID, "❓ Unknown command.")
	}
}

// handleEditAct records an activity for an arbitrary past or future date.
// With an argument the date is taken directly, otherwise it is asked for.
func (h *Handler) handleEditAct(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	if arg := msg.CommandArguments(); arg != "" {
		if _, err := time.Parse(models.DateLayout, arg); err != nil {
			h.send(chatID, msgBadDate)
			return
		}
		h.startFlow(ctx, userID, chatID, arg)
		return
	}
	h.Sessions.SetAwait(userID, session.AwaitEditDate)
	sent, err := h.Bot.Send(tgbotapi.NewMessage(chatID, msgAskEditDate))
	if err != nil {
		h.Log.Error("send edit date prompt", "user", userID, "err", err)
		return
	}
	h.Sessions.SetInputPrompt(userID, sent.MessageID)
	h.trackPending(userID, chatID, sent.MessageID)
}

// HandleText routes a free-text message by whatever input the user was asked
// to provide. Without an open question the message is ignored.
func (h *Handler) HandleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := msg.Text

	if h.Sessions.ConsumeCancelled(userID) {
		return
	}
	await := h.Sessions.TakeAwait(userID)
	if await == session.AwaitNone {
		return
	}
	if mid, ok := h.Sessions.TakeInputPrompt(userID); ok {
		h.deleteMessage(chatID, mid)
	}
	h.Sessions.RemovePending(userID)

	switch await {
	case session.AwaitVillageText:
		if !selector.ValidVillage(text) {
			h.reask(userID, chatID, session.AwaitVillageText, msgBadVillage+"\n"+msgAskVillageName)
			return
		}
		h.Sessions.SetDraftVillage(userID, selector.TitleCase(text))
		h.sendPurposePrompt(ctx, userID, chatID)

	case session.AwaitPurposeText:
		h.completeDraft(ctx, userID, chatID, text)

	case session.AwaitEditDate:
		if _, err := time.Parse(models.DateLayout, text); err != nil {
			h.reask(userID, chatID, session.AwaitEditDate, msgBadDate+"\n"+msgAskEditDate)
			return
		}
		h.startFlow(ctx, userID, chatID, text)

	case session.AwaitHeadquarters:
		hq := selector.TitleCase(text)
		if hq == "" {
			h.reask(userID, chatID, session.AwaitHeadquarters, msgAskHeadquarters)
			return
		}
		if err := h.Store.SetHeadquarters(ctx, userID, hq); err != nil {
			h.Log.Error("set headquarters", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Headquarters set to %s.", hq))

	case session.AwaitRole:
		if err := h.Store.SetRole(ctx, userID, text); err != nil {
			h.Log.Error("set role", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Role set to %s.", text))

	case session.AwaitDefaultPurpose:
		if err := h.Store.SetDefaultPurpose(ctx, userID, text); err != nil {
			h.Log.Error("set default purpose", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Default purpose set to: %s", text))

	case session.AwaitNewActivity:
		if err := h.Store.AddCustomActivity(ctx, userID, text); err != nil {
			h.Log.Error("add custom activity", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Activity added: %s", text))

	case session.AwaitNewVillage:
		if !selector.ValidVillage(text) {
			h.reask(userID, chatID, session.AwaitNewVillage, msgBadVillage+"\n"+msgAskVillageName)
			return
		}
		name := selector.TitleCase(text)
		if err := h.Store.AddVillage(ctx, userID, name); err != nil {
			h.Log.Error("add village", "user", userID, "err", err)
			h.send(chatID, msgStoreFailure)
			return
		}
		h.send(chatID, fmt.Sprintf("✅ Village added: %s", name))

	case session.AwaitPromptTime:
		h.handleTimeInput(ctx, userID, chatID, text, true)

	case session.AwaitFallbackTime:
		h.handleTimeInput(ctx, userID, chatID, text, false)
	}
}

// reask re-arms the same input step after a validation failure.
func (h *Handler) reask(userID, chatID int64, await session.Await, text string) {
	h.Sessions.SetAwait(userID, await)
	sent, err := h.Bot.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		h.Log.Error("send re-prompt", "user", userID, "err", err)
		return
	}
	h.Sessions.SetInputPrompt(userID, sent.MessageID)
	h.trackPending(userID, chatID, sent.MessageID)
}

// monthYearArgs parses "<month_number> <year>" command arguments.
func monthYearArgs(msg *tgbotapi.Message, usage string) (time.Month, int, string) {
	var m, y int
	if _, err := fmt.Sscanf(msg.CommandArguments(), "%d %d", &m, &y); err != nil || m < 1 || m > 12 {
		return 0, 0, usage
	}
	return time.Month(m), y, ""
}

package handlers

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/session"
)

// action is a parsed callback payload. Payloads are colon-separated:
// "village:<name>", "purpose:<index>", "set:vil:rm:<index>",
// "hist:m:<year>:<month>", and so on.
type action struct {
	kind string
	args []string
}

func parseAction(data string) action {
	parts := strings.Split(data, ":")
	return action{kind: parts[0], args: parts[1:]}
}

func (a action) arg(i int) string {
	if i < len(a.args) {
		return a.args[i]
	}
	return ""
}

// rest joins the remaining args; village names never contain colons but this
// keeps the parser total.
func (a action) rest(i int) string {
	if i >= len(a.args) {
		return ""
	}
	return strings.Join(a.args[i:], ":")
}

func (h *Handler) HandleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	_, _ = h.Bot.Request(tgbotapi.NewCallback(cq.ID, ""))
	if cq.Message == nil {
		return
	}
	userID := cq.From.ID
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	h.Sessions.RemovePending(userID)

	act := parseAction(cq.Data)
	switch act.kind {
	case "cancel":
		h.cancelFlow(userID, chatID, messageID)
	case "village":
		h.handleVillagePick(ctx, userID, chatID, messageID, act)
	case "purpose":
		h.handlePurposePick(ctx, userID, chatID, messageID, act)
	case "set":
		h.handleSettingsAction(ctx, userID, chatID, messageID, act)
	case "owner":
		h.handleOwnerAction(userID, chatID, messageID, act)
	case "hist":
		h.handleHistoryAction(ctx, userID, chatID, messageID, act)
	default:
		h.Log.Warn("unknown callback payload", "user", userID, "data", cq.Data)
	}
}

func (h *Handler) handleVillagePick(ctx context.Context, userID, chatID int64, messageID int, act action) {
	if _, ok := h.Sessions.Draft(userID); !ok {
		// stale keyboard from a superseded or expired flow
		h.deleteMessage(chatID, messageID)
		return
	}
	switch act.arg(0) {
	case "hq":
		h.deleteMessage(chatID, messageID)
		h.Sessions.SetDraftVillage(userID, "")
		h.completeDraft(ctx, userID, chatID, hqOfficePurpose)
	case "manual":
		h.deleteMessage(chatID, messageID)
		h.Sessions.SetAwait(userID, session.AwaitVillageText)
		sent, err := h.Bot.Send(tgbotapi.NewMessage(chatID, msgAskVillageName))
		if err != nil {
			h.Log.Error("send manual village prompt", "user", userID, "err", err)
			return
		}
		h.Sessions.SetInputPrompt(userID, sent.MessageID)
		h.trackPending(userID, chatID, sent.MessageID)
	default:
		village := act.rest(0)
		if village == "" {
			return
		}
		h.deleteMessage(chatID, messageID)
		h.Sessions.SetDraftVillage(userID, village)
		h.sendPurposePrompt(ctx, userID, chatID)
	}
}

func (h *Handler) handlePurposePick(ctx context.Context, userID, chatID int64, messageID int, act action) {
	d, ok := h.Sessions.Draft(userID)
	if !ok {
		h.deleteMessage(chatID, messageID)
		return
	}
	switch act.arg(0) {
	case "manual":
		h.deleteMessage(chatID, messageID)
		h.Sessions.SetAwait(userID, session.AwaitPurposeText)
		sent, err := h.Bot.Send(tgbotapi.NewMessage(chatID, msgAskPurposeText))
		if err != nil {
			h.Log.Error("send manual purpose prompt", "user", userID, "err", err)
			return
		}
		h.Sessions.SetInputPrompt(userID, sent.MessageID)
		h.trackPending(userID, chatID, sent.MessageID)
	default:
		idx, err := strconv.Atoi(act.arg(0))
		if err != nil || idx < 0 || idx >= len(d.Purposes) {
			h.Log.Warn("purpose index out of range", "user", userID, "idx", act.arg(0))
			return
		}
		h.deleteMessage(chatID, messageID)
		h.completeDraft(ctx, userID, chatID, d.Purposes[idx])
	}
}

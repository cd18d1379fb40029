package handlers

import (
	"context"
	"time"
)

// StartTimeoutSupervisor expires button prompts nobody answered. The prompt
// message is removed, the flow state dropped and the user told the operation
// was cancelled.
func (h *Handler) StartTimeoutSupervisor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.expirePending(h.Now())
			}
		}
	}()
}

func (h *Handler) expirePending(now time.Time) {
	for userID, p := range h.Sessions.Expired(now) {
		h.Sessions.ClearDraft(userID)
		h.Sessions.MarkCancelled(userID)
		h.deleteMessage(p.ChatID, p.MessageID)
		h.send(p.ChatID, msgTimedOut)
		h.Log.Info("prompt timed out", "user", userID)
	}
}

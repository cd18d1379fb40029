// Package session keeps the ephemeral per-user state shared by the update
// loop, the daily scheduler and the timeout sweep: in-progress drafts,
// pending button prompts, awaited text inputs and cancellation flags. All
// of it is in-memory only and guarded by one mutex.
package session

import (
	"sync"
	"time"
)

// Await names the text or document input a user's next message is consumed
// by. AwaitNone means free text is ignored.
type Await int

const (
	AwaitNone Await = iota
	AwaitVillageText
	AwaitPurposeText
	AwaitEditDate
	AwaitHeadquarters
	AwaitRole
	AwaitDefaultPurpose
	AwaitNewActivity
	AwaitNewVillage
	AwaitVillageFile
	AwaitHolidayFile
	AwaitPromptTime
	AwaitFallbackTime
)

// Draft is the in-progress activity assembled across flow steps.
type Draft struct {
	UserID     int64
	ChatID     int64
	Date       string
	Village    string
	VillageSet bool
	Purposes   []string // options offered on the purpose keyboard, by index
}

// Pending tracks a button prompt waiting for a response, with its expiry.
type Pending struct {
	MessageID int
	ChatID    int64
	ExpiresAt time.Time
}

// DailyPrompt remembers the scheduler's prompt message for a user so a later
// save can delete it and a re-run can detect the duplicate.
type DailyPrompt struct {
	MessageID int
	Date      string // YYYY-MM-DD
}

// Registry is the mutex-guarded store of all ephemeral state.
type Registry struct {
	mu           sync.Mutex
	drafts       map[int64]*Draft
	pending      map[int64]Pending
	awaits       map[int64]Await
	cancelled    map[int64]bool
	inputPrompts map[int64]int // prompt message awaiting text input, for cleanup
	dailyPrompts map[int64]DailyPrompt
}

func NewRegistry() *Registry {
	return &Registry{
		drafts:       make(map[int64]*Draft),
		pending:      make(map[int64]Pending),
		awaits:       make(map[int64]Await),
		cancelled:    make(map[int64]bool),
		inputPrompts: make(map[int64]int),
		dailyPrompts: make(map[int64]DailyPrompt),
	}
}

// StartDraft replaces any previous draft and clears stale flow state, so a
// fresh request always supersedes an abandoned one.
func (r *Registry) StartDraft(userID, chatID int64, date string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[userID] = &Draft{UserID: userID, ChatID: chatID, Date: date}
	delete(r.awaits, userID)
	delete(r.cancelled, userID)
}

// Draft returns a copy of the user's draft, if any.
func (r *Registry) Draft(userID int64) (Draft, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[userID]
	if !ok {
		return Draft{}, false
	}
	return *d, true
}

// SetDraftVillage records the chosen destination on the draft.
func (r *Registry) SetDraftVillage(userID int64, village string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[userID]; ok {
		d.Village = village
		d.VillageSet = true
	}
}

// SetDraftPurposes remembers the offered purpose options so a button press
// can be resolved by index later.
func (r *Registry) SetDraftPurposes(userID int64, purposes []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.drafts[userID]; ok {
		d.Purposes = append([]string(nil), purposes...)
	}
}

func (r *Registry) ClearDraft(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, userID)
	delete(r.awaits, userID)
}

// SetAwait registers which input the user's next message feeds.
func (r *Registry) SetAwait(userID int64, a Await) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a == AwaitNone {
		delete(r.awaits, userID)
		return
	}
	r.awaits[userID] = a
}

// TakeAwait returns and clears the registered input kind.
func (r *Registry) TakeAwait(userID int64) Await {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.awaits[userID]
	delete(r.awaits, userID)
	return a
}

// Await peeks without clearing; document uploads check before consuming.
func (r *Registry) Await(userID int64) Await {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.awaits[userID]
}

// MarkCancelled flags the user so an in-flight text handler for the aborted
// step is suppressed instead of acted on.
func (r *Registry) MarkCancelled(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled[userID] = true
}

// ConsumeCancelled reports and clears the flag.
func (r *Registry) ConsumeCancelled(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled[userID] {
		delete(r.cancelled, userID)
		return true
	}
	return false
}

// SetPending records a button prompt with its absolute expiry.
func (r *Registry) SetPending(userID int64, p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[userID] = p
}

func (r *Registry) RemovePending(userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, userID)
}

// Expired removes and returns every pending prompt whose expiry has passed.
func (r *Registry) Expired(now time.Time) map[int64]Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]Pending)
	for id, p := range r.pending {
		if !now.Before(p.ExpiresAt) {
			out[id] = p
			delete(r.pending, id)
		}
	}
	return out
}

// SetInputPrompt remembers the message that asked for text input so it can
// be deleted once the input arrives.
func (r *Registry) SetInputPrompt(userID int64, messageID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputPrompts[userID] = messageID
}

// TakeInputPrompt returns and clears the remembered prompt message id.
func (r *Registry) TakeInputPrompt(userID int64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.inputPrompts[userID]
	delete(r.inputPrompts, userID)
	return id, ok
}

// SetDailyPrompt records the scheduler prompt sent to a user today.
func (r *Registry) SetDailyPrompt(userID int64, messageID int, date string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dailyPrompts[userID] = DailyPrompt{MessageID: messageID, Date: date}
}

func (r *Registry) DailyPrompt(userID int64) (DailyPrompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.dailyPrompts[userID]
	return p, ok
}

// TakeDailyPrompt returns and clears the daily prompt reference.
func (r *Registry) TakeDailyPrompt(userID int64) (DailyPrompt, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.dailyPrompts[userID]
	delete(r.dailyPrompts, userID)
	return p, ok
}

package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/krishd9895/multi-op-bot-v5/internal/config"
	"github.com/krishd9895/multi-op-bot-v5/internal/handlers"
	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
	"github.com/krishd9895/multi-op-bot-v5/internal/storage"
)

type fakeBot struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	nextID   int
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, c)
	b.nextID++
	return tgbotapi.Message{MessageID: b.nextID}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) GetFileDirectURL(fileID string) (string, error) { return "", nil }

func (b *fakeBot) messages() []tgbotapi.MessageConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range b.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

// fakeStore covers only what the engine touches; anything else panics via
// the embedded nil interface.
type fakeStore struct {
	storage.Store
	mu    sync.Mutex
	users map[int64]*models.User
	order []int64
}

func newFakeStore(users ...*models.User) *fakeStore {
	s := &fakeStore{users: make(map[int64]*models.User)}
	for _, u := range users {
		s.users[u.UserID] = u
		s.order = append(s.order, u.UserID)
	}
	return s
}

func (s *fakeStore) ListUsersWithVillages(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, id := range s.order {
		if u := s.users[id]; len(u.Villages) > 0 {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *fakeStore) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) MigrateActivities(ctx context.Context, userID int64) error { return nil }

func (s *fakeStore) SaveActivity(ctx context.Context, userID int64, act models.Activity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	t, err := time.Parse(models.DateLayout, act.Date)
	if err != nil {
		return false, err
	}
	y, m := models.YearMonthKeys(t)
	if u.Activities == nil {
		u.Activities = make(map[string]map[string][]models.Activity)
	}
	if u.Activities[y] == nil {
		u.Activities[y] = make(map[string][]models.Activity)
	}
	for i, existing := range u.Activities[y][m] {
		if existing.Date == act.Date {
			u.Activities[y][m][i] = act
			return true, nil
		}
	}
	u.Activities[y][m] = append(u.Activities[y][m], act)
	return false, nil
}

func (s *fakeStore) activity(userID int64, date string) (models.Activity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return models.Activity{}, false
	}
	y, m := models.YearMonthKeys(t)
	for _, a := range u.Activities[y][m] {
		if a.Date == date {
			return a, true
		}
	}
	return models.Activity{}, false
}

func (s *fakeStore) count(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, months := range s.users[userID].Activities {
		for _, acts := range months {
			n += len(acts)
		}
	}
	return n
}

func testEngine(t *testing.T, store storage.Store, now time.Time) (*Engine, *fakeBot) {
	t.Helper()
	bot := &fakeBot{}
	log := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	sessions := session.NewRegistry()
	sched := config.NewSchedule("19:00", "20:00", nil)
	h := handlers.New(bot, store, sessions, sched, time.UTC, 99, log, "logs.txt")
	h.Now = func() time.Time { return now }
	e := New(h, store, sessions, sched, time.UTC, log)
	e.Rand = rand.New(rand.NewSource(1))
	e.Now = func() time.Time { return now }
	return e, bot
}

// 9 June 2024 is a Sunday, 5 June a Wednesday, 8 June the second Saturday.
func at(day, hour, min int) time.Time {
	return time.Date(2024, time.June, day, hour, min, 0, 0, time.UTC)
}

func TestRunDailyPromptSkipsGlobalHoliday(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{UserID: 1, Villages: []string{"Gokul"}})
	e, bot := testEngine(t, store, at(9, 19, 0))

	e.RunDailyPrompt(ctx, e.Now())
	if n := len(bot.messages()); n != 0 {
		t.Fatalf("sent %d messages on a Sunday", n)
	}
}

func TestRunDailyPromptPerUserSkips(t *testing.T) {
	ctx := context.Background()
	recorded := &models.User{
		UserID:   2,
		Villages: []string{"Gokul"},
		Activities: map[string]map[string][]models.Activity{
			"2024": {"6": {{Date: "05/06/2024", ToVillage: "Gokul"}}},
		},
	}
	onHoliday := &models.User{
		UserID:         3,
		Villages:       []string{"Gokul"},
		PublicHolidays: []models.Holiday{{Date: "05/06/2024", Desc: "Festival"}},
	}
	eligible := &models.User{UserID: 1, Villages: []string{"Gokul"}}
	prompted := &models.User{UserID: 4, Villages: []string{"Gokul"}}
	store := newFakeStore(eligible, recorded, onHoliday, prompted)
	e, bot := testEngine(t, store, at(5, 19, 0))
	e.Sessions.SetDailyPrompt(4, 9, "2024-06-05")

	e.RunDailyPrompt(ctx, e.Now())

	msgs := bot.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(msgs))
	}
	if msgs[0].ChatID != 1 {
		t.Fatalf("prompt went to chat %d, want 1", msgs[0].ChatID)
	}
	dp, ok := e.Sessions.DailyPrompt(1)
	if !ok || dp.Date != "2024-06-05" {
		t.Fatalf("daily prompt not registered: %+v ok=%v", dp, ok)
	}
}

func TestRunDailyPromptMentionsPickedPurpose(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{UserID: 1, Villages: []string{"Gokul"}})
	e, bot := testEngine(t, store, at(5, 19, 0))

	e.RunDailyPrompt(ctx, e.Now())
	msgs := bot.messages()
	if len(msgs) != 1 {
		t.Fatalf("sent %d prompts, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0].Text, "randomly selected one") {
		t.Fatalf("prompt without default purpose should mention the picked one: %q", msgs[0].Text)
	}
}

func TestRunFallbackSundayHoliday(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:       1,
		Headquarters: "Anandpur",
		Villages:     []string{"Gokul", "Rampur"},
	})
	e, bot := testEngine(t, store, at(9, 20, 0))

	e.RunFallback(ctx, e.Now())

	act, ok := store.activity(1, "09/06/2024")
	if !ok {
		t.Fatal("holiday entry not saved")
	}
	want := models.Activity{Date: "09/06/2024", From: "Anandpur", Purpose: "Public holiday (Sunday)"}
	if act != want {
		t.Fatalf("saved = %+v, want %+v", act, want)
	}
	msgs := bot.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "public holiday (Sunday)") {
		t.Fatalf("notification = %+v", msgs)
	}
}

func TestRunFallbackUserHolidayDescriptionWins(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:         1,
		Headquarters:   "Anandpur",
		Villages:       []string{"Gokul"},
		PublicHolidays: []models.Holiday{{Date: "09/06/2024", Desc: "Bakrid"}},
	})
	e, bot := testEngine(t, store, at(9, 20, 0))

	e.RunFallback(ctx, e.Now())

	act, ok := store.activity(1, "09/06/2024")
	if !ok || act.Purpose != "Public holiday (Bakrid)" {
		t.Fatalf("saved = %+v ok=%v", act, ok)
	}
	msgs := bot.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Bakrid") {
		t.Fatalf("notification = %+v", msgs)
	}
}

func TestRunFallbackRotation(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:         1,
		Headquarters:   "Anandpur",
		Villages:       []string{"Gokul", "Rampur"},
		DefaultPurpose: "Routine inspection",
		Activities: map[string]map[string][]models.Activity{
			"2024": {"6": {{Date: "03/06/2024", From: "Anandpur", ToVillage: "Gokul", Purpose: "x"}}},
		},
	})
	e, bot := testEngine(t, store, at(5, 20, 0))
	e.Sessions.SetDailyPrompt(1, 55, "2024-06-05")

	e.RunFallback(ctx, e.Now())

	act, ok := store.activity(1, "05/06/2024")
	if !ok {
		t.Fatal("rotation entry not saved")
	}
	if act.ToVillage != "Rampur" {
		t.Fatalf("rotation picked %q, want the unvisited Rampur", act.ToVillage)
	}
	if act.Purpose != "Routine inspection" {
		t.Fatalf("purpose = %q", act.Purpose)
	}

	msgs := bot.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Text, "Default Activity Recorded") {
		t.Fatalf("notification = %+v", msgs)
	}
	if strings.Contains(msgs[0].Text, "seasonal activities") {
		t.Fatal("user-set purpose must not be announced as seasonal")
	}
	deleted := false
	for _, c := range bot.requests {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok && d.MessageID == 55 {
			deleted = true
		}
	}
	if !deleted {
		t.Fatal("stale daily prompt 55 not deleted")
	}
}

func TestRunFallbackClearsPromptDraft(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:       1,
		Headquarters: "Anandpur",
		Villages:     []string{"Gokul"},
	})
	e, _ := testEngine(t, store, at(5, 20, 0))
	// state left by the 19:00 reminder nobody answered
	e.Sessions.StartDraft(1, 1, "05/06/2024")
	e.Sessions.SetDailyPrompt(1, 55, "2024-06-05")

	e.RunFallback(ctx, e.Now())

	if _, ok := e.Sessions.Draft(1); ok {
		t.Fatal("reminder draft must be cleared once the fallback records the day")
	}
	if _, ok := store.activity(1, "05/06/2024"); !ok {
		t.Fatal("fallback entry not saved")
	}
}

func TestRunFallbackSkipsRecordedUser(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:   1,
		Villages: []string{"Gokul"},
		Activities: map[string]map[string][]models.Activity{
			"2024": {"6": {{Date: "05/06/2024", ToVillage: "Gokul"}}},
		},
	})
	e, bot := testEngine(t, store, at(5, 20, 0))

	e.RunFallback(ctx, e.Now())

	if n := store.count(1); n != 1 {
		t.Fatalf("activity count = %d, want the existing 1", n)
	}
	if n := len(bot.messages()); n != 0 {
		t.Fatalf("sent %d messages for an already-recorded user", n)
	}
}

func TestTickFiresEachTriggerOncePerMinute(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{UserID: 1, Villages: []string{"Gokul"}})
	e, bot := testEngine(t, store, at(5, 19, 0))

	e.Tick(ctx)
	e.Tick(ctx)
	if n := len(bot.messages()); n != 1 {
		t.Fatalf("prompt fired %d times within one minute, want 1", n)
	}
	if n := store.count(1); n != 0 {
		t.Fatalf("fallback must not fire at the prompt time, recorded %d", n)
	}
}

func TestStaleJobStopsFiringAfterTimeChange(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{
		UserID:       1,
		Headquarters: "Anandpur",
		Villages:     []string{"Gokul"},
	})
	e, bot := testEngine(t, store, at(5, 20, 0))
	if err := e.Schedule.SetFallbackTime(ctx, "20:30"); err != nil {
		t.Fatal(err)
	}

	// the job registered for the old 20:00 slot still invokes this
	e.fireFallback(ctx, at(5, 20, 0))
	if n := store.count(1); n != 0 {
		t.Fatalf("superseded 20:00 slot recorded %d entries", n)
	}
	if n := len(bot.messages()); n != 0 {
		t.Fatalf("superseded slot sent %d messages", n)
	}

	e.Now = func() time.Time { return at(5, 20, 30) }
	e.fireFallback(ctx, e.Now())
	if n := store.count(1); n != 1 {
		t.Fatalf("configured 20:30 slot recorded %d entries, want 1", n)
	}
}

func TestTickIgnoresOffScheduleMinutes(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore(&models.User{UserID: 1, Villages: []string{"Gokul"}})
	e, bot := testEngine(t, store, at(5, 18, 59))

	e.Tick(ctx)
	if n := len(bot.messages()); n != 0 {
		t.Fatalf("sent %d messages off schedule", n)
	}
}

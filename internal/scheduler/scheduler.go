// Package scheduler drives the two daily triggers: the reminder prompt and
// the automatic fallback entry. Both run through gocron daily jobs and,
// redundantly, through a coarse tick that string-compares the wall clock
// against the configured times; every path converges on the same per-user
// idempotence checks, so double firing never double-records.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/krishd9895/multi-op-bot-v5/internal/config"
	"github.com/krishd9895/multi-op-bot-v5/internal/handlers"
	"github.com/krishd9895/multi-op-bot-v5/internal/models"
	"github.com/krishd9895/multi-op-bot-v5/internal/selector"
	"github.com/krishd9895/multi-op-bot-v5/internal/session"
	"github.com/krishd9895/multi-op-bot-v5/internal/storage"
)

const tickInterval = 30 * time.Second

type Engine struct {
	H        *handlers.Handler
	Store    storage.Store
	Sessions *session.Registry
	Schedule *config.Schedule
	Loc      *time.Location
	Log      *slog.Logger
	Rand     *rand.Rand

	// Now is the clock; overridable in tests.
	Now func() time.Time

	mu        sync.Mutex
	lastFired map[string]string // trigger -> "date hh:mm" it last ran for
}

func New(h *handlers.Handler, store storage.Store, sessions *session.Registry, sched *config.Schedule, loc *time.Location, log *slog.Logger) *Engine {
	return &Engine{
		H:         h,
		Store:     store,
		Sessions:  sessions,
		Schedule:  sched,
		Loc:       loc,
		Log:       log,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:       func() time.Time { return time.Now().In(loc) },
		lastFired: make(map[string]string),
	}
}

// Start registers the daily jobs at the configured times plus the redundancy
// tick, and starts the scheduler.
func (e *Engine) Start(ctx context.Context) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(e.Loc))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	promptAt, err := atTime(e.Schedule.PromptTime())
	if err != nil {
		return nil, err
	}
	fallbackAt, err := atTime(e.Schedule.FallbackTime())
	if err != nil {
		return nil, err
	}

	if _, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(promptAt)),
		gocron.NewTask(func() { e.firePrompt(ctx, e.Now()) }),
	); err != nil {
		return nil, fmt.Errorf("register prompt job: %w", err)
	}
	if _, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(fallbackAt)),
		gocron.NewTask(func() { e.fireFallback(ctx, e.Now()) }),
	); err != nil {
		return nil, fmt.Errorf("register fallback job: %w", err)
	}

	// The tick picks up runtime changes to the configured times; the daily
	// jobs above stay registered at the startup times but fire* rejects any
	// invocation whose minute no longer matches the configuration.
	if _, err := s.NewJob(
		gocron.DurationJob(tickInterval),
		gocron.NewTask(func() { e.Tick(ctx) }),
	); err != nil {
		return nil, fmt.Errorf("register tick job: %w", err)
	}

	s.Start()
	e.Log.Info("scheduler started",
		"prompt", e.Schedule.PromptTime(), "fallback", e.Schedule.FallbackTime())
	return s, nil
}

func atTime(hhmm string) (gocron.AtTime, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return nil, fmt.Errorf("bad schedule time %q: %w", hhmm, err)
	}
	return gocron.NewAtTime(uint(t.Hour()), uint(t.Minute()), 0), nil
}

// Tick fires a trigger when the wall clock matches its configured time.
func (e *Engine) Tick(ctx context.Context) {
	now := e.Now()
	hhmm := now.Format("15:04")
	if hhmm == e.Schedule.PromptTime() {
		e.firePrompt(ctx, now)
	}
	if hhmm == e.Schedule.FallbackTime() {
		e.fireFallback(ctx, now)
	}
}

// claim reports whether this trigger already ran for the current minute.
func (e *Engine) claim(trigger string, now time.Time) bool {
	key := now.Format("2006-01-02 15:04")
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastFired[trigger] == key {
		return false
	}
	e.lastFired[trigger] = key
	return true
}

// The wall-clock check makes a daily job registered for a superseded time a
// no-op: after the owner moves a trigger, only the minute matching the
// current configuration fires.
func (e *Engine) firePrompt(ctx context.Context, now time.Time) {
	if now.Format("15:04") != e.Schedule.PromptTime() {
		return
	}
	if !e.claim("prompt", now) {
		return
	}
	e.RunDailyPrompt(ctx, now)
}

func (e *Engine) fireFallback(ctx context.Context, now time.Time) {
	if now.Format("15:04") != e.Schedule.FallbackTime() {
		return
	}
	if !e.claim("fallback", now) {
		return
	}
	e.RunFallback(ctx, now)
}

// RunDailyPrompt sends the reminder to every eligible user. Global holidays
// skip the whole run; user-declared holidays, existing entries and an
// already-sent prompt skip just that user.
func (e *Engine) RunDailyPrompt(ctx context.Context, now time.Time) {
	e.Log.Info("daily prompt triggered", "at", now.Format("15:04:05"))
	if reason, ok := selector.GlobalHoliday(now); ok {
		e.Log.Info("skipping daily prompt", "holiday", reason)
		return
	}
	users, err := e.Store.ListUsersWithVillages(ctx)
	if err != nil {
		e.Log.Error("list users for prompt", "err", err)
		return
	}
	today := now.Format(models.DateLayout)
	dateKey := now.Format("2006-01-02")
	for i := range users {
		u := &users[i]
		if dp, ok := e.Sessions.DailyPrompt(u.UserID); ok && dp.Date == dateKey {
			continue
		}
		if desc, ok := selector.UserHoliday(u.PublicHolidays, now); ok {
			e.Log.Info("skipping user on declared holiday", "user", u.UserID, "holiday", desc)
			continue
		}
		if err := e.Store.MigrateActivities(ctx, u.UserID); err != nil {
			e.Log.Error("migrate activities", "user", u.UserID, "err", err)
			continue
		}
		if u.HasActivityOn(today) {
			continue
		}
		picked := ""
		if u.DefaultPurpose == "" {
			picked, _ = selector.FallbackPurpose(e.Rand, u, now.Month())
		}
		e.H.SendDailyPrompt(ctx, u, today, picked)
	}
}

// RunFallback records an automatic entry for every user still without one
// today: a holiday entry on global holidays, a rotated-village default entry
// otherwise. One user's failure never aborts the batch.
func (e *Engine) RunFallback(ctx context.Context, now time.Time) {
	e.Log.Info("fallback triggered", "at", now.Format("15:04:05"))
	users, err := e.Store.ListUsersWithVillages(ctx)
	if err != nil {
		e.Log.Error("list users for fallback", "err", err)
		return
	}
	today := now.Format(models.DateLayout)
	_, globalHoliday := selector.GlobalHoliday(now)
	for i := range users {
		u := &users[i]
		if err := e.Store.MigrateActivities(ctx, u.UserID); err != nil {
			e.Log.Error("migrate activities", "user", u.UserID, "err", err)
			continue
		}
		if u.HasActivityOn(today) {
			continue
		}
		if globalHoliday {
			e.recordHoliday(ctx, u, now, today)
		} else {
			e.recordRotation(ctx, u, now, today)
		}
	}
}

func (e *Engine) recordHoliday(ctx context.Context, u *models.User, now time.Time, today string) {
	purpose, _ := selector.HolidayPurpose(u.PublicHolidays, now)
	act := models.Activity{
		Date:    today,
		From:    u.HQ(),
		Purpose: purpose,
	}
	if _, err := e.Store.SaveActivity(ctx, u.UserID, act); err != nil {
		e.Log.Error("save holiday entry", "user", u.UserID, "err", err)
		return
	}
	reason := holidayReason(u, now)
	e.Log.Info("holiday entry recorded", "user", u.UserID, "reason", reason)
	e.H.NotifyHolidayRecorded(u.UserID, act, reason)
}

// holidayReason names what made today a holiday, with the user's own
// description taking precedence over the weekday rule.
func holidayReason(u *models.User, now time.Time) string {
	if desc, ok := selector.UserHoliday(u.PublicHolidays, now); ok {
		return desc
	}
	reason, _ := selector.GlobalHoliday(now)
	return reason
}

func (e *Engine) recordRotation(ctx context.Context, u *models.User, now time.Time, today string) {
	year, month := models.YearMonthKeys(now)
	village, ok := selector.FallbackVillage(e.Rand, u.Villages, u.MonthActivities(year, month))
	if !ok {
		e.Log.Warn("empty selection pool, skipping fallback", "user", u.UserID)
		return
	}
	purpose, userSet := selector.FallbackPurpose(e.Rand, u, now.Month())
	act := models.Activity{
		Date:      today,
		From:      u.HQ(),
		ToVillage: village,
		Purpose:   purpose,
	}
	if _, err := e.Store.SaveActivity(ctx, u.UserID, act); err != nil {
		e.Log.Error("save fallback entry", "user", u.UserID, "err", err)
		return
	}
	e.Log.Info("fallback entry recorded", "user", u.UserID, "to", village, "userSetPurpose", userSet)
	e.H.NotifyFallbackRecorded(u.UserID, act, e.Schedule.FallbackTime(), userSet)
}

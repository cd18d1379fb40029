package config

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Default daily trigger times, local civil time.
const (
	DefaultPromptTime   = "19:00"
	DefaultFallbackTime = "20:00"
)

// SchedulePersister stores schedule times durably. Implemented by the
// storage layer.
type SchedulePersister interface {
	SavePromptTime(ctx context.Context, hhmm string) error
	SaveFallbackTime(ctx context.Context, hhmm string) error
}

// Schedule owns the two daily trigger times. The scheduler reads through the
// accessors on every tick, so an owner update takes effect without restart.
type Schedule struct {
	mu       sync.RWMutex
	prompt   string
	fallback string
	persist  SchedulePersister
}

// NewSchedule wraps the loaded times; empty or invalid values fall back to
// defaults.
func NewSchedule(prompt, fallback string, persist SchedulePersister) *Schedule {
	p, err := normalizeTime(prompt)
	if err != nil {
		p = DefaultPromptTime
	}
	f, err := normalizeTime(fallback)
	if err != nil {
		f = DefaultFallbackTime
	}
	return &Schedule{prompt: p, fallback: f, persist: persist}
}

func (s *Schedule) PromptTime() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

func (s *Schedule) FallbackTime() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fallback
}

// SetPromptTime validates, persists, then swaps the in-memory value.
func (s *Schedule) SetPromptTime(ctx context.Context, hhmm string) error {
	norm, err := normalizeTime(hhmm)
	if err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist.SavePromptTime(ctx, norm); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.prompt = norm
	s.mu.Unlock()
	return nil
}

// SetFallbackTime validates, persists, then swaps the in-memory value.
func (s *Schedule) SetFallbackTime(ctx context.Context, hhmm string) error {
	norm, err := normalizeTime(hhmm)
	if err != nil {
		return err
	}
	if s.persist != nil {
		if err := s.persist.SaveFallbackTime(ctx, norm); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.fallback = norm
	s.mu.Unlock()
	return nil
}

// ValidTime reports whether s is a wall-clock time in HH:MM form.
func ValidTime(s string) bool {
	_, err := normalizeTime(s)
	return err == nil
}

// normalizeTime zero-pads so the scheduler's string comparison against
// Format("15:04") output always lines up.
func normalizeTime(s string) (string, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return t.Format("15:04"), nil
}

package session

import (
	"testing"
	"time"
)

func TestStartDraftSupersedes(t *testing.T) {
	r := NewRegistry()
	r.StartDraft(1, 10, "05/06/2024")
	r.SetDraftVillage(1, "Gokul")
	r.SetAwait(1, AwaitPurposeText)
	r.MarkCancelled(1)

	r.StartDraft(1, 10, "06/06/2024")
	d, ok := r.Draft(1)
	if !ok || d.Date != "06/06/2024" || d.VillageSet {
		t.Fatalf("draft = %+v ok=%v", d, ok)
	}
	if r.Await(1) != AwaitNone {
		t.Fatal("await must be cleared by a new draft")
	}
	if r.ConsumeCancelled(1) {
		t.Fatal("cancelled flag must be cleared by a new draft")
	}
}

func TestDraftIsolation(t *testing.T) {
	r := NewRegistry()
	r.StartDraft(1, 10, "05/06/2024")
	d, _ := r.Draft(1)
	d.Village = "mutated"
	got, _ := r.Draft(1)
	if got.Village != "" {
		t.Fatal("Draft must return a copy")
	}
}

func TestSetDraftPurposes(t *testing.T) {
	r := NewRegistry()
	r.StartDraft(1, 10, "05/06/2024")
	opts := []string{"a", "b"}
	r.SetDraftPurposes(1, opts)
	opts[0] = "mutated"
	d, _ := r.Draft(1)
	if d.Purposes[0] != "a" {
		t.Fatal("purposes must be copied")
	}
}

func TestTakeAwait(t *testing.T) {
	r := NewRegistry()
	r.SetAwait(1, AwaitVillageText)
	if got := r.TakeAwait(1); got != AwaitVillageText {
		t.Fatalf("got %v", got)
	}
	if got := r.TakeAwait(1); got != AwaitNone {
		t.Fatalf("second take got %v, want AwaitNone", got)
	}
}

func TestConsumeCancelled(t *testing.T) {
	r := NewRegistry()
	if r.ConsumeCancelled(1) {
		t.Fatal("unmarked user reported cancelled")
	}
	r.MarkCancelled(1)
	if !r.ConsumeCancelled(1) {
		t.Fatal("marked user not reported cancelled")
	}
	if r.ConsumeCancelled(1) {
		t.Fatal("cancelled flag must be one-shot")
	}
}

func TestExpired(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	r.SetPending(1, Pending{MessageID: 11, ChatID: 10, ExpiresAt: now.Add(-time.Second)})
	r.SetPending(2, Pending{MessageID: 22, ChatID: 20, ExpiresAt: now.Add(time.Minute)})

	expired := r.Expired(now)
	if len(expired) != 1 {
		t.Fatalf("expired = %v", expired)
	}
	if p, ok := expired[1]; !ok || p.MessageID != 11 {
		t.Fatalf("expired[1] = %+v ok=%v", p, ok)
	}
	// expired entries are removed, live ones stay
	if again := r.Expired(now); len(again) != 0 {
		t.Fatalf("second sweep returned %v", again)
	}
	if later := r.Expired(now.Add(2 * time.Minute)); len(later) != 1 {
		t.Fatalf("live entry not expired later: %v", later)
	}
}

func TestDailyPrompt(t *testing.T) {
	r := NewRegistry()
	r.SetDailyPrompt(1, 7, "2024-06-05")
	dp, ok := r.DailyPrompt(1)
	if !ok || dp.MessageID != 7 || dp.Date != "2024-06-05" {
		t.Fatalf("dp = %+v ok=%v", dp, ok)
	}
	dp, ok = r.TakeDailyPrompt(1)
	if !ok || dp.MessageID != 7 {
		t.Fatalf("take dp = %+v ok=%v", dp, ok)
	}
	if _, ok := r.TakeDailyPrompt(1); ok {
		t.Fatal("daily prompt must be removed after take")
	}
}

func TestInputPrompt(t *testing.T) {
	r := NewRegistry()
	r.SetInputPrompt(1, 42)
	if mid, ok := r.TakeInputPrompt(1); !ok || mid != 42 {
		t.Fatalf("mid=%d ok=%v", mid, ok)
	}
	if _, ok := r.TakeInputPrompt(1); ok {
		t.Fatal("input prompt must be one-shot")
	}
}

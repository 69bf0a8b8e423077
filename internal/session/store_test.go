package session

import (
	"testing"
	"time"
)

func TestAcquireSerializesSameChat(t *testing.T) {
	store := NewStore()

	sess, ok := store.Acquire("5547999887766@s.whatsapp.net")
	if !ok {
		t.Fatalf("expected first acquire to succeed")
	}
	if sess.Stage != StageGreeting {
		t.Fatalf("expected new session in greeting stage, got %q", sess.Stage)
	}

	if _, ok := store.Acquire("5547999887766@s.whatsapp.net"); ok {
		t.Fatalf("expected second acquire on the same chat to be rejected")
	}

	// A different chat is not blocked.
	if _, ok := store.Acquire("5547911112222@s.whatsapp.net"); !ok {
		t.Fatalf("expected acquire on a different chat to succeed")
	}

	store.Release("5547999887766@s.whatsapp.net")
	if _, ok := store.Acquire("5547999887766@s.whatsapp.net"); !ok {
		t.Fatalf("expected acquire after release to succeed")
	}
}

func TestEvictIdleSkipsBusySessions(t *testing.T) {
	store := NewStore()
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Acquire("busy@s.whatsapp.net")

	store.Acquire("idle@s.whatsapp.net")
	store.Release("idle@s.whatsapp.net")

	current = current.Add(7 * time.Hour)

	evicted := store.EvictIdle(6 * time.Hour)
	if evicted != 1 {
		t.Fatalf("expected 1 session evicted, got %d", evicted)
	}
	if store.Peek("busy@s.whatsapp.net") == nil {
		t.Fatalf("expected busy session to survive eviction")
	}
	if store.Peek("idle@s.whatsapp.net") != nil {
		t.Fatalf("expected idle session to be evicted")
	}
}

func TestEvictIdleKeepsRecentSessions(t *testing.T) {
	store := NewStore()
	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return current }

	store.Acquire("recent@s.whatsapp.net")
	store.Release("recent@s.whatsapp.net")

	current = current.Add(time.Hour)
	if evicted := store.EvictIdle(6 * time.Hour); evicted != 0 {
		t.Fatalf("expected no evictions, got %d", evicted)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", store.Len())
	}
}

func TestAppendTurnTruncatesFromFront(t *testing.T) {
	sess := &Session{}
	for i := 0; i < HistoryLimit+5; i++ {
		sess.AppendTurn("user", "mensagem")
	}
	sess.AppendTurn("assistant", "última")

	if len(sess.History) != HistoryLimit {
		t.Fatalf("expected history capped at %d, got %d", HistoryLimit, len(sess.History))
	}
	last := sess.History[len(sess.History)-1]
	if last.Role != "assistant" || last.Content != "última" {
		t.Fatalf("expected newest turn at the end, got %+v", last)
	}
}

func TestRecordPresentedDeduplicates(t *testing.T) {
	sess := &Session{}
	sess.RecordPresented([]string{"AP001", "CA001"})
	sess.RecordPresented([]string{"AP001", "AP002"})

	want := []string{"AP001", "CA001", "AP002"}
	if len(sess.PresentedProperties) != len(want) {
		t.Fatalf("expected %d codes, got %d", len(want), len(sess.PresentedProperties))
	}
	for i, code := range want {
		if sess.PresentedProperties[i] != code {
			t.Fatalf("expected code %q at position %d, got %q", code, i, sess.PresentedProperties[i])
		}
	}
	if sess.FirstPresented() != "AP001" {
		t.Fatalf("expected first presented AP001, got %q", sess.FirstPresented())
	}
}

package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"scimoveis_backend/internal/session"
	"scimoveis_backend/platform/logger"
)

type sentMessage struct {
	chatID   string
	text     string
	quotedID string
}

type fakeSender struct {
	sent []sentMessage
}

func (f *fakeSender) SendText(_ context.Context, chatID, text, quotedID string) error {
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, quotedID: quotedID})
	return nil
}

type fakeTracker struct {
	tracked []string
	touched []string
	forgot  []string
}

func (f *fakeTracker) Track(chatID string, _, _ uuid.UUID, _ []string) {
	f.tracked = append(f.tracked, chatID)
}
func (f *fakeTracker) Touch(chatID string)  { f.touched = append(f.touched, chatID) }
func (f *fakeTracker) Forget(chatID string) { f.forgot = append(f.forgot, chatID) }

func newTestService(sender Sender, tracker FollowUpTracker) *Service {
	return NewService(
		session.NewStore(), nil, nil, sender, nil, tracker, nil,
		logger.New("development"),
		Config{
			TenantID:         uuid.New(),
			OfficeHoursStart: 8,
			OfficeHoursEnd:   22,
		},
	)
}

func TestHandleInboundIgnoresOwnMessages(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    "5547999887766@s.whatsapp.net",
		Text:      "oi",
		FromMe:    true,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no replies for own message, got %d", len(sender.sent))
	}
}

func TestHandleInboundIgnoresPreStartTimestamps(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    "5547999887766@s.whatsapp.net",
		Text:      "oi",
		Timestamp: svc.startTime.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected replayed history to be dropped, got %d replies", len(sender.sent))
	}
}

func TestHandleInboundOutsideOfficeHours(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 23, 30, 0, 0, svc.location)
	}

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    "5547999887766@s.whatsapp.net",
		Text:      "oi",
		Timestamp: svc.startTime.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].text != replyOutsideOfficeHours {
		t.Fatalf("expected office hours reply, got %+v", sender.sent)
	}
}

func TestHandleInboundUnsupportedMedia(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 10, 0, 0, 0, svc.location)
	}

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    "5547999887766@s.whatsapp.net",
		Timestamp: svc.startTime.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].text != replyUnsupportedMedia {
		t.Fatalf("expected unsupported media reply, got %+v", sender.sent)
	}
}

func TestHandleInboundResetCommand(t *testing.T) {
	sender := &fakeSender{}
	tracker := &fakeTracker{}
	svc := newTestService(sender, tracker)
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 10, 0, 0, 0, svc.location)
	}

	chatID := "5547999887766@s.whatsapp.net"
	svc.store.Acquire(chatID)
	svc.store.Release(chatID)

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    chatID,
		Text:      " #reiniciar ",
		Timestamp: svc.startTime.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.store.Peek(chatID) != nil {
		t.Fatalf("expected session evicted on reset")
	}
	if len(tracker.forgot) != 1 || tracker.forgot[0] != chatID {
		t.Fatalf("expected follow-up entry forgotten, got %v", tracker.forgot)
	}
	if len(sender.sent) != 1 || sender.sent[0].text != replySessionReset {
		t.Fatalf("expected reset confirmation, got %+v", sender.sent)
	}
}

func TestHandleInboundBusyGate(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})
	svc.now = func() time.Time {
		return time.Date(2025, 3, 10, 10, 0, 0, 0, svc.location)
	}

	chatID := "5547999887766@s.whatsapp.net"
	svc.store.Acquire(chatID) // simulate a message still in flight

	err := svc.HandleInbound(context.Background(), Inbound{
		ChatID:    chatID,
		Text:      "oi",
		Timestamp: svc.startTime.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 || sender.sent[0].text != replyBusy {
		t.Fatalf("expected busy reply, got %+v", sender.sent)
	}
}

func TestContextNoteCarriesLeadScore(t *testing.T) {
	svc := newTestService(&fakeSender{}, &fakeTracker{})

	sess := &session.Session{
		ChatID:       "5547999887766@s.whatsapp.net",
		ContactName:  "Maria",
		ContactScore: 80,
		Stage:        session.StagePresenting,
	}

	note := svc.contextNote(sess)
	if !strings.Contains(note, "Score do lead: 80/100") {
		t.Fatalf("context note missing lead score: %q", note)
	}
	if !strings.Contains(note, "Maria") {
		t.Fatalf("context note missing contact name: %q", note)
	}
}

func TestDeliverSplitsBlocksAndQuotesFirst(t *testing.T) {
	sender := &fakeSender{}
	svc := newTestService(sender, &fakeTracker{})
	sleeps := 0
	svc.sleep = func(time.Duration) { sleeps++ }

	reply := "Encontrei estas opções:\n[PROPERTY_BLOCK]\nCódigo: AP001\n[PROPERTY_BLOCK]\nCódigo: CA002"
	if err := svc.deliver(context.Background(), "chat@s.whatsapp.net", "MSG1", reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sender.sent) != 3 {
		t.Fatalf("expected 3 outbound messages, got %d", len(sender.sent))
	}
	if sender.sent[0].quotedID != "MSG1" {
		t.Fatalf("expected first block to quote the inbound message")
	}
	if sender.sent[1].quotedID != "" || sender.sent[2].quotedID != "" {
		t.Fatalf("expected later blocks unquoted")
	}
	if sleeps != 2 {
		t.Fatalf("expected 2 inter-block delays, got %d", sleeps)
	}
}

package assistant

import (
	"context"
	"errors"
	"testing"

	"scimoveis_backend/internal/session"
	"scimoveis_backend/platform/logger"
)

// scriptedProvider replays a fixed sequence of replies and records the
// messages of every request.
type scriptedProvider struct {
	replies  []*Reply
	requests [][]Message
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, msgs []Message) (*Reply, error) {
	p.requests = append(p.requests, append([]Message(nil), msgs...))
	if len(p.replies) == 0 {
		return nil, errors.New("script exhausted")
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

type stubTools struct {
	searchPayload string
	searchErr     error
	visitPayload  string
	visitErr      error
	searchCalls   []SearchParams
	visitCalls    []VisitParams
}

func (s *stubTools) SearchProperties(_ context.Context, _ *session.Session, params SearchParams) (string, error) {
	s.searchCalls = append(s.searchCalls, params)
	return s.searchPayload, s.searchErr
}

func (s *stubTools) ScheduleVisit(_ context.Context, _ *session.Session, params VisitParams) (string, error) {
	s.visitCalls = append(s.visitCalls, params)
	return s.visitPayload, s.visitErr
}

func testSession() *session.Session {
	sess := &session.Session{ChatID: "5547999887766@s.whatsapp.net"}
	sess.AppendTurn(RoleUser, "quero um apartamento em Itajaí")
	return sess
}

func TestRespondPlainText(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{{Text: "Olá! Como posso ajudar?"}}}
	orch := NewOrchestrator(provider, &stubTools{}, logger.New("development"))

	got, err := orch.Respond(context.Background(), testSession(), "nota de contexto")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Olá! Como posso ajudar?" {
		t.Fatalf("unexpected reply: %q", got)
	}

	// History turn plus the context note.
	if len(provider.requests) != 1 || len(provider.requests[0]) != 2 {
		t.Fatalf("unexpected request shape: %+v", provider.requests)
	}
	last := provider.requests[0][1]
	if last.Role != RoleUser || last.Text != "nota de contexto" {
		t.Fatalf("context note not appended: %+v", last)
	}
}

func TestRespondToolRoundTrip(t *testing.T) {
	call := ToolCall{
		ID:   "call-1",
		Name: ToolSearchProperties,
		Args: map[string]any{"city": "Itajaí", "bedrooms": float64(2)},
	}
	provider := &scriptedProvider{replies: []*Reply{
		{Calls: []ToolCall{call}},
		{Text: "Encontrei 2 opções!"},
	}}
	tools := &stubTools{searchPayload: `{"count":2}`}
	orch := NewOrchestrator(provider, tools, logger.New("development"))

	got, err := orch.Respond(context.Background(), testSession(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Encontrei 2 opções!" {
		t.Fatalf("unexpected reply: %q", got)
	}

	if len(tools.searchCalls) != 1 {
		t.Fatalf("expected one search call, got %d", len(tools.searchCalls))
	}
	if p := tools.searchCalls[0]; p.City != "Itajaí" || p.Bedrooms != 2 {
		t.Fatalf("search params not parsed: %+v", p)
	}

	// Second request must carry the model's call turn and the result turn.
	if len(provider.requests) != 2 {
		t.Fatalf("expected 2 model rounds, got %d", len(provider.requests))
	}
	second := provider.requests[1]
	callTurn := second[len(second)-2]
	resultTurn := second[len(second)-1]
	if callTurn.Role != RoleModel || len(callTurn.Calls) != 1 {
		t.Fatalf("model call turn missing: %+v", callTurn)
	}
	if resultTurn.Role != RoleUser || len(resultTurn.Results) != 1 {
		t.Fatalf("tool result turn missing: %+v", resultTurn)
	}
	if r := resultTurn.Results[0]; r.ID != "call-1" || r.Payload != `{"count":2}` || r.Error != "" {
		t.Fatalf("unexpected tool result: %+v", r)
	}
}

func TestRespondUnknownToolBecomesErrorResult(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{Calls: []ToolCall{{ID: "call-1", Name: "deleteEverything"}}},
		{Text: "Desculpe, não consegui."},
	}}
	orch := NewOrchestrator(provider, &stubTools{}, logger.New("development"))

	got, err := orch.Respond(context.Background(), testSession(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Desculpe, não consegui." {
		t.Fatalf("unexpected reply: %q", got)
	}

	second := provider.requests[1]
	result := second[len(second)-1].Results[0]
	if result.Error == "" {
		t.Fatalf("expected unknown tool to produce an error result")
	}
}

func TestRespondVisitParamsValidation(t *testing.T) {
	provider := &scriptedProvider{replies: []*Reply{
		{Calls: []ToolCall{{
			ID:   "call-1",
			Name: ToolScheduleVisit,
			Args: map[string]any{"propertyId": "AP001"}, // date, time, name missing
		}}},
		{Text: "Preciso de mais detalhes para agendar."},
	}}
	tools := &stubTools{}
	orch := NewOrchestrator(provider, tools, logger.New("development"))

	if _, err := orch.Respond(context.Background(), testSession(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tools.visitCalls) != 0 {
		t.Fatalf("incomplete params must not reach the tool handler")
	}
	result := provider.requests[1][len(provider.requests[1])-1].Results[0]
	if result.Error == "" {
		t.Fatalf("expected validation error result")
	}
}

func TestRespondToolRoundLimit(t *testing.T) {
	loop := &Reply{Calls: []ToolCall{{
		ID:   "call-n",
		Name: ToolSearchProperties,
		Args: map[string]any{},
	}}}
	provider := &scriptedProvider{replies: []*Reply{loop, loop, loop, loop, loop}}
	orch := NewOrchestrator(provider, &stubTools{}, logger.New("development"))

	_, err := orch.Respond(context.Background(), testSession(), "")
	if err == nil {
		t.Fatalf("expected round limit error")
	}
	// Rounds 0..maxToolRounds inclusive, and no request beyond the cap.
	if len(provider.requests) != maxToolRounds+1 {
		t.Fatalf("expected %d rounds, got %d", maxToolRounds+1, len(provider.requests))
	}
}

func TestRespondProviderError(t *testing.T) {
	provider := &scriptedProvider{}
	orch := NewOrchestrator(provider, &stubTools{}, logger.New("development"))

	if _, err := orch.Respond(context.Background(), testSession(), ""); err == nil {
		t.Fatalf("expected provider error to propagate")
	}
}

package assistant

import (
	"context"
	"fmt"

	"scimoveis_backend/internal/session"
	"scimoveis_backend/platform/logger"
)

// maxToolRounds caps how many tool round-trips one inbound message may
// trigger before the last text reply (or an error) is returned.
const maxToolRounds = 3

// Orchestrator owns the full model exchange for one inbound message: it
// sends the rolling history, executes requested tools and feeds results back
// until the model settles on a text reply. Tool turns are never persisted in
// the session history.
type Orchestrator struct {
	provider Provider
	tools    ToolHandler
	log      *logger.Logger
}

// NewOrchestrator wires the provider with the tool handler.
func NewOrchestrator(provider Provider, tools ToolHandler, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		tools:    tools,
		log:      log,
	}
}

// Respond produces the assistant's reply for the session's current history.
// The latest user turn must already be appended to sess.History. contextNote
// carries the per-turn conversation state summary; it is sent to the model
// but never stored.
func (o *Orchestrator) Respond(ctx context.Context, sess *session.Session, contextNote string) (string, error) {
	msgs := historyMessages(sess)
	if contextNote != "" {
		msgs = append(msgs, Message{Role: RoleUser, Text: contextNote})
	}

	var lastText string
	for round := 0; round <= maxToolRounds; round++ {
		reply, err := o.provider.Generate(ctx, SystemPrompt(), msgs)
		if err != nil {
			return "", fmt.Errorf("model round %d: %w", round, err)
		}
		if reply.Text != "" {
			lastText = reply.Text
		}
		if len(reply.Calls) == 0 {
			return reply.Text, nil
		}
		if round == maxToolRounds {
			break
		}

		results := make([]ToolResult, 0, len(reply.Calls))
		for _, call := range reply.Calls {
			results = append(results, o.execute(ctx, sess, call))
		}

		msgs = append(msgs,
			Message{Role: RoleModel, Calls: reply.Calls},
			Message{Role: RoleUser, Results: results},
		)
	}

	if lastText != "" {
		return lastText, nil
	}
	return "", fmt.Errorf("tool round limit reached without a text reply")
}

// execute dispatches one tool call. Unknown tools and argument problems
// become error results the model can recover from in the next round.
func (o *Orchestrator) execute(ctx context.Context, sess *session.Session, call ToolCall) ToolResult {
	result := ToolResult{ID: call.ID, Name: call.Name}

	switch call.Name {
	case ToolSearchProperties:
		payload, err := o.tools.SearchProperties(ctx, sess, parseSearchParams(call.Args))
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.Payload = payload

	case ToolScheduleVisit:
		params, err := parseVisitParams(call.Args)
		if err != nil {
			result.Error = err.Error()
			break
		}
		payload, err := o.tools.ScheduleVisit(ctx, sess, params)
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.Payload = payload

	default:
		result.Error = fmt.Sprintf("unknown tool %q", call.Name)
	}

	if result.Error != "" {
		o.log.WithChatID(sess.ChatID).Warn("tool call failed",
			"tool", string(call.Name),
			"error", result.Error,
		)
	}
	return result
}

func historyMessages(sess *session.Session) []Message {
	msgs := make([]Message, 0, len(sess.History))
	for _, turn := range sess.History {
		role := RoleUser
		if turn.Role == RoleModel || turn.Role == "assistant" {
			role = RoleModel
		}
		msgs = append(msgs, Message{Role: role, Text: turn.Content})
	}
	return msgs
}

// Package assistant drives the LLM conversation: prompt assembly, the tool
// round-trip and reply shaping.
package assistant

import "context"

// Message roles in provider requests.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Message is one turn sent to the model. A turn carries either text, tool
// calls (model side) or tool results (user side), never a mix.
type Message struct {
	Role    string
	Text    string
	Calls   []ToolCall
	Results []ToolResult
}

// Reply is what the model produced for one request.
type Reply struct {
	Text  string
	Calls []ToolCall
}

// Provider generates model replies. Implementations translate the neutral
// message form into their SDK's wire types.
type Provider interface {
	Generate(ctx context.Context, system string, msgs []Message) (*Reply, error)
}

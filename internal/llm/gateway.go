// Package llm wraps the external language-model completion service: prompt
// assembly, structured-output mode, bounded retries with backoff, and
// best-effort JSON extraction from free-text replies.
package llm

import "context"

// Message roles follow the conventional chat shape. The Gemini client maps
// the system role onto the systemInstruction field.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in an ordered completion conversation.
type Message struct {
	Role    string
	Content string
}

// Gateway is the boundary abstraction over the completion service. When
// structured is true the call demands a JSON-only reply and uses a lower
// sampling temperature; a false value leaves the model free-form for
// open-ended replies.
type Gateway interface {
	Complete(ctx context.Context, messages []Message, structured bool) (string, error)
}

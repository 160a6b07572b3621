package assistant

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/spendlens/backend/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scriptedReply struct {
	text string
	err  error
}

// scriptedGateway returns canned replies in order and records every call.
// Running past the script fails the test, which keeps the number of
// completion calls per turn pinned.
type scriptedGateway struct {
	t       *testing.T
	replies []scriptedReply
	calls   [][]llm.Message
}

func newScriptedGateway(t *testing.T, replies ...scriptedReply) *scriptedGateway {
	return &scriptedGateway{t: t, replies: replies}
}

func (g *scriptedGateway) Complete(ctx context.Context, messages []llm.Message, structured bool) (string, error) {
	g.t.Helper()
	g.calls = append(g.calls, messages)
	if len(g.replies) == 0 {
		g.t.Fatalf("unexpected completion call #%d: %v", len(g.calls), messages)
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

// gatewayFunc adapts a function to llm.Gateway for one-off behaviors.
type gatewayFunc func(ctx context.Context, messages []llm.Message, structured bool) (string, error)

func (f gatewayFunc) Complete(ctx context.Context, messages []llm.Message, structured bool) (string, error) {
	return f(ctx, messages, structured)
}

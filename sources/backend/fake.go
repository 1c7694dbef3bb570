package backend

import (
	"context"

	"claudir/sources/tools"
)

// Fake is the in-memory ConversationalBackend spec.md §9 requires for
// testing the Supervisor/ToolDispatcher without spawning a subprocess.
type Fake struct {
	Invocations []string
	NextCalls   []tools.Call
	NextErr     error
}

func NewFake() *Fake {
	return &Fake{}
}

func (f *Fake) Invoke(ctx context.Context, systemPrompt, renderedContext, ephemeralSuffix string) ([]tools.Call, error) {
	f.Invocations = append(f.Invocations, renderedContext)
	if f.NextErr != nil {
		return nil, f.NextErr
	}
	return f.NextCalls, nil
}

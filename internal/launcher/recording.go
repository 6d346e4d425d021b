package launcher

import (
	"context"
	"sync"
)

// Call is a launch captured by Recording.
type Call struct {
	Kind   string // "url" or "tool"
	Target string
}

// Recording captures launches for tests. Errors maps a target to the error
// returned for it.
type Recording struct {
	mu     sync.Mutex
	calls  []Call
	Errors map[string]error
}

// OpenURL records the url.
func (r *Recording) OpenURL(_ context.Context, url string) error {
	return r.record("url", url)
}

// LaunchTool records the tool name.
func (r *Recording) LaunchTool(_ context.Context, name string) error {
	return r.record("tool", name)
}

// Calls returns the recorded launches.
func (r *Recording) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *Recording) record(kind, target string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Kind: kind, Target: target})
	if r.Errors != nil {
		return r.Errors[target]
	}
	return nil
}

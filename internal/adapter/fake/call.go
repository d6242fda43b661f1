package fake

import "sync"

// Call is one recorded method invocation on a double, with the arguments it
// was given.
type Call struct {
	Method string
	Args   []any
}

// CallRecorder collects the invocations a double has seen. The engine and
// ledger fakes embed it so tests can assert how often the reconciler touched
// a collaborator, and with what.
type CallRecorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *CallRecorder) record(method string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Method: method, Args: args})
	r.mu.Unlock()
}

// Calls returns the recorded invocations of one method, in order. An empty
// method name returns everything, which is how tests assert that a
// short-circuit touched nothing at all.
func (r *CallRecorder) Calls(method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()

	if method == "" {
		out := make([]Call, len(r.calls))
		copy(out, r.calls)
		return out
	}

	var out []Call
	for _, c := range r.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset discards everything recorded so far. Seed helpers call it so test
// assertions start from the operation under test, not the setup.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

package runtime

import (
	"context"

	"github.com/rickb777/date/v2/timespan"
	"go.uber.org/multierr"

	"github.com/wippyai/noasync/engine"
)

// CallSession runs several calls as concurrent tasks of one event loop.
// Their suspension points interleave; nothing else does.
type CallSession struct {
	module *Module
	calls  []pendingCall
}

type pendingCall struct {
	start func(ctx context.Context) (any, error)
	name  string
}

// CallResult is the outcome of one call in a session.
type CallResult struct {
	Value any
	Err   error
	Name  string
	Span  timespan.TimeSpan
}

// NewSession starts an empty session over the module.
func (m *Module) NewSession() *CallSession {
	return &CallSession{module: m}
}

// Add queues a call resolved like Module.Call.
func (s *CallSession) Add(name string, args ...any) *CallSession {
	s.calls = append(s.calls, pendingCall{
		name: name,
		start: func(ctx context.Context) (any, error) {
			return s.module.start(ctx, name, args)
		},
	})
	return s
}

// AddMethod queues a method call on an existing instance.
func (s *CallSession) AddMethod(inst *Instance, method string, args ...any) *CallSession {
	s.calls = append(s.calls, pendingCall{
		name: inst.Class() + "." + method,
		start: func(ctx context.Context) (any, error) {
			return inst.start(ctx, method, args)
		},
	})
	return s
}

// Len is the number of queued calls.
func (s *CallSession) Len() int {
	return len(s.calls)
}

// Run starts every queued call as its own task and waits for all of them.
// Results are in the order calls were added; the returned error combines
// the failures.
func (s *CallSession) Run(ctx context.Context) ([]CallResult, error) {
	results := make([]CallResult, len(s.calls))
	in := s.module.runtime.in
	loop := engine.NewLoop()

	_, err := loop.Run(ctx, func(ctx context.Context) (any, error) {
		tasks := make([]*engine.Task, len(s.calls))
		for i, c := range s.calls {
			results[i].Name = c.name
			start := c.start
			tasks[i] = loop.Spawn(c.name, func(ctx context.Context) (any, error) {
				v, err := start(ctx)
				if err != nil {
					return nil, err
				}
				return in.Await(ctx, v)
			})
		}
		for i, t := range tasks {
			results[i].Value, results[i].Err = engine.Await(ctx, t.Future())
			results[i].Span = t.Span()
		}
		return nil, nil
	})

	for _, r := range results {
		err = multierr.Append(err, r.Err)
	}
	return results, err
}

package engine

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	nerrors "github.com/wippyai/noasync/errors"
)

type readyItem struct {
	task *Task
	yr   *YieldResult
}

type completion struct {
	task  *Task
	value any
	err   error
}

// Loop drives tasks one at a time. A task runs until it suspends or
// finishes; pending operations execute concurrently in the background and
// their completions resume tasks in arrival order.
//
// A Loop is driven by a single goroutine. Spawn may be called from inside a
// running task.
type Loop struct {
	opCtx       context.Context
	completions chan completion
	log         *zap.Logger
	ready       []readyItem
	tasks       []*Task
	inflight    int
	mu          sync.Mutex
	running     bool
	closing     bool
}

// NewLoop creates an idle loop.
func NewLoop() *Loop {
	return &Loop{
		completions: make(chan completion),
		log:         Logger(),
	}
}

// Spawn schedules fn as a new task. The task starts the next time the loop
// picks it from the ready queue.
func (l *Loop) Spawn(name string, fn TaskFunc) *Task {
	t := NewTask(name, fn)
	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		t.canceled = true
		t.settle(nil, context.Canceled)
		return t
	}
	l.tasks = append(l.tasks, t)
	l.ready = append(l.ready, readyItem{task: t})
	l.mu.Unlock()
	debugf("spawn %s", t)
	return t
}

// Run spawns fn as the main task and runs until it completes.
func (l *Loop) Run(ctx context.Context, fn TaskFunc) (any, error) {
	if l.Running() {
		return nil, errLoopRunning()
	}
	return l.RunUntilComplete(ctx, l.Spawn("main", fn))
}

// Running reports whether the loop is currently being driven.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

func errLoopRunning() error {
	return nerrors.New(nerrors.PhaseRuntime, nerrors.KindUnsupported).
		Detail("loop is already running").Build()
}

// RunUntilComplete drives the loop until main finishes, then cancels every
// other unfinished task and drains them. Failures of tasks whose result was
// never awaited are combined with main's error.
func (l *Loop) RunUntilComplete(ctx context.Context, main *Task) (any, error) {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil, errLoopRunning()
	}
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	opCtx, cancelOps := context.WithCancel(ctx)
	defer cancelOps()
	l.opCtx = opCtx
	taskCtx := WithLoop(ctx, l)

	var runErr error
	for !main.Done() {
		if l.stepNext(taskCtx) {
			continue
		}
		if l.inflight == 0 {
			runErr = nerrors.New(nerrors.PhaseRuntime, nerrors.KindDeadlock).
				Detail("all tasks are blocked waiting on each other").Build()
			break
		}
		select {
		case c := <-l.completions:
			l.inflight--
			l.push(c.task, &YieldResult{Value: c.value, Error: c.err})
		case <-ctx.Done():
			runErr = ctx.Err()
		}
		if runErr != nil {
			break
		}
	}

	var (
		value   any
		mainErr error
	)
	if main.Done() {
		value, mainErr = main.Result()
	}

	cancelOps()
	unobserved := l.shutdown(taskCtx)

	if runErr != nil {
		l.log.Debug("loop stopped", zap.Error(runErr))
		return nil, multierr.Append(runErr, unobserved)
	}
	return value, multierr.Append(mainErr, unobserved)
}

func (l *Loop) push(t *Task, yr *YieldResult) {
	l.mu.Lock()
	l.ready = append(l.ready, readyItem{task: t, yr: yr})
	l.mu.Unlock()
}

func (l *Loop) pop() (readyItem, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.ready) == 0 {
		return readyItem{}, false
	}
	item := l.ready[0]
	l.ready = l.ready[1:]
	return item, true
}

// stepNext runs one ready task up to its next yield. It reports false when
// nothing was ready.
func (l *Loop) stepNext(ctx context.Context) bool {
	item, ok := l.pop()
	if !ok {
		return false
	}
	t := item.task
	if t.Done() {
		return true
	}

	sr, err := t.Step(ctx, item.yr)
	if err != nil {
		l.log.Warn("step failed", zap.Stringer("task", t), zap.Error(err))
		return true
	}

	switch sr.Status {
	case StepContinue:
		l.inflight++
		go l.execute(t, sr.PendingOp)
	case StepIdle:
		if sr.Wait.Done() {
			v, err := sr.Wait.Result()
			l.push(t, &YieldResult{Value: v, Error: err})
			break
		}
		t.waiting = sr.Wait
		sr.Wait.waiters = append(sr.Wait.waiters, t)
	case StepDone:
		l.finish(t, sr.Value, sr.Error)
	}
	return true
}

func (l *Loop) execute(t *Task, op PendingOp) {
	value, err := op.Execute(l.opCtx)
	l.completions <- completion{task: t, value: value, err: err}
}

func (l *Loop) finish(t *Task, value any, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		l.log.Debug("task failed", zap.Stringer("task", t), zap.Error(err))
	} else {
		debugf("task %s done in %s", t, t.Span().Duration())
	}
	if !t.Done() {
		t.settle(value, err)
	}
	for _, w := range t.fut.takeWaiters() {
		w.waiting = nil
		l.push(w, &YieldResult{Value: t.fut.value, Error: t.fut.err})
	}
}

// shutdown cancels and drains every unfinished task, then reports failures
// nobody observed.
func (l *Loop) shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closing = true
	tasks := append([]*Task(nil), l.tasks...)
	l.mu.Unlock()

	for _, t := range tasks {
		if t.Done() {
			continue
		}
		t.canceled = true
		switch {
		case !t.started:
			l.finish(t, nil, context.Canceled)
		case t.waiting != nil:
			f := t.waiting
			for i, w := range f.waiters {
				if w == t {
					f.waiters = append(f.waiters[:i], f.waiters[i+1:]...)
					break
				}
			}
			t.waiting = nil
			l.push(t, &YieldResult{Error: context.Canceled})
		}
	}

	for l.pending(tasks) {
		if l.stepNext(ctx) {
			continue
		}
		if l.inflight == 0 {
			break
		}
		c := <-l.completions
		l.inflight--
		l.push(c.task, &YieldResult{Value: c.value, Error: c.err})
	}

	var errs error
	for _, t := range tasks {
		if !t.Done() || t.fut.observed {
			continue
		}
		if _, err := t.fut.Result(); err != nil && !errors.Is(err, context.Canceled) {
			errs = multierr.Append(errs, err)
		}
	}

	l.mu.Lock()
	l.tasks = l.tasks[:0]
	l.ready = l.ready[:0]
	l.closing = false
	l.mu.Unlock()
	return errs
}

func (l *Loop) pending(tasks []*Task) bool {
	for _, t := range tasks {
		if !t.Done() {
			return true
		}
	}
	return false
}

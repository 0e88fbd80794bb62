package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rickb777/date/v2/timespan"

	nerrors "github.com/wippyai/noasync/errors"
)

// ErrorKind categorizes errors for integration with external error handling.
type ErrorKind string

const (
	KindUnknown  ErrorKind = "Unknown"
	KindCanceled ErrorKind = "Canceled"
	KindTimeout  ErrorKind = "Timeout"
	KindInternal ErrorKind = "Internal"
	KindInvalid  ErrorKind = "Invalid"
)

func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var e *nerrors.Error
	if errors.As(err, &e) && e.Phase == nerrors.PhaseRuntime {
		return KindInternal
	}
	return KindUnknown
}

// ErrNoTask is returned when a suspension is attempted outside a running task.
var ErrNoTask = &nerrors.Error{
	Phase:  nerrors.PhaseRuntime,
	Kind:   nerrors.KindAwaitOutsideTask,
	Detail: "await outside a running task",
}

// PendingOp is an operation yielded by a suspended task. Execute runs on a
// background goroutine and must return promptly once ctx is done.
type PendingOp interface {
	Execute(ctx context.Context) (any, error)
}

type StepStatus int

const (
	StepContinue StepStatus = iota // yielded an operation, expects resume
	StepIdle                       // waiting on another task's result
	StepDone                       // execution complete
)

func (s StepStatus) String() string {
	switch s {
	case StepContinue:
		return "continue"
	case StepIdle:
		return "idle"
	case StepDone:
		return "done"
	}
	return "unknown"
}

type StepResult struct {
	PendingOp PendingOp
	Wait      *Future
	Value     any
	Error     error
	ErrorKind ErrorKind
	Status    StepStatus
}

type YieldResult struct {
	Value any
	Error error
}

// TaskFunc is the body of a task. It may call Suspend and Await on the
// context it receives.
type TaskFunc func(ctx context.Context) (any, error)

// Future is a one-shot result owned by a loop.
type Future struct {
	value    any
	err      error
	waiters  []*Task
	done     bool
	observed bool
}

func (f *Future) Done() bool { return f.done }

// Result returns the settled value. It is only meaningful once Done.
func (f *Future) Result() (any, error) {
	f.observed = true
	return f.value, f.err
}

// Task is a unit of cooperative execution. Its function runs on its own
// goroutine but only while the driving loop has handed it control.
type Task struct {
	start    time.Time
	end      time.Time
	fn       TaskFunc
	fut      *Future
	waiting  *Future
	resume   chan YieldResult
	yield    chan StepResult
	Name     string
	ID       uuid.UUID
	started  bool
	canceled bool
}

// NewTask creates a task that has not started yet.
func NewTask(name string, fn TaskFunc) *Task {
	return &Task{
		ID:     uuid.New(),
		Name:   name,
		fn:     fn,
		fut:    &Future{},
		resume: make(chan YieldResult),
		yield:  make(chan StepResult),
	}
}

func (t *Task) String() string {
	return fmt.Sprintf("%s[%s]", t.Name, t.ID.String()[:8])
}

func (t *Task) Done() bool { return t.fut.done }

func (t *Task) Started() bool { return t.started }

// Future returns the future settled with the task's outcome.
func (t *Task) Future() *Future { return t.fut }

// Result returns the task's outcome once Done.
func (t *Task) Result() (any, error) { return t.fut.Result() }

// Span is the time the task has been running, or ran if finished.
func (t *Task) Span() timespan.TimeSpan {
	if !t.started {
		return timespan.BetweenTimes(time.Time{}, time.Time{})
	}
	end := t.end
	if end.IsZero() {
		end = time.Now()
	}
	return timespan.BetweenTimes(t.start, end)
}

// Step advances the task. Pass nil for the first call, or a YieldResult to
// resume after a StepContinue or StepIdle. The returned error reports misuse
// of the task; a failure of the task itself is carried in StepResult.Error.
func (t *Task) Step(ctx context.Context, yr *YieldResult) (StepResult, error) {
	if t.Done() {
		err := fmt.Errorf("task %s: step after completion", t)
		return StepResult{Error: err, ErrorKind: KindInvalid}, err
	}

	if !t.started {
		t.started = true
		t.start = time.Now()
		go t.run(ctx)
	} else {
		if yr == nil {
			yr = &YieldResult{}
		}
		t.resume <- *yr
	}

	sr := <-t.yield
	if sr.Status == StepDone {
		t.end = time.Now()
		t.settle(sr.Value, sr.Error)
	}
	return sr, nil
}

func (t *Task) run(ctx context.Context) {
	var (
		value any
		err   error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", t, r)
		}
		t.yield <- StepResult{Status: StepDone, Value: value, Error: err, ErrorKind: ClassifyError(err)}
	}()
	value, err = t.fn(withTask(ctx, t))
}

func (t *Task) settle(value any, err error) {
	t.fut.value = value
	t.fut.err = err
	t.fut.done = true
}

func (f *Future) takeWaiters() []*Task {
	waiters := f.waiters
	f.waiters = nil
	if len(waiters) > 0 {
		f.observed = true
	}
	return waiters
}

type ctxKeyTask struct{}
type ctxKeyLoop struct{}

func withTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, ctxKeyTask{}, t)
}

// CurrentTask returns the task running on ctx, or nil.
func CurrentTask(ctx context.Context) *Task {
	if v := ctx.Value(ctxKeyTask{}); v != nil {
		return v.(*Task)
	}
	return nil
}

// WithLoop attaches a loop to ctx.
func WithLoop(ctx context.Context, l *Loop) context.Context {
	return context.WithValue(ctx, ctxKeyLoop{}, l)
}

// GetLoop returns the loop attached to ctx, or nil.
func GetLoop(ctx context.Context) *Loop {
	if v := ctx.Value(ctxKeyLoop{}); v != nil {
		return v.(*Loop)
	}
	return nil
}

// InTask reports whether ctx belongs to a running task.
func InTask(ctx context.Context) bool {
	return CurrentTask(ctx) != nil
}

// Suspend yields op to the loop and blocks until its result is available.
// Called from inside a task.
func Suspend(ctx context.Context, op PendingOp) (any, error) {
	t := CurrentTask(ctx)
	if t == nil {
		return nil, ErrNoTask
	}
	if t.canceled {
		return nil, context.Canceled
	}
	t.yield <- StepResult{Status: StepContinue, PendingOp: op}
	yr := <-t.resume
	return yr.Value, yr.Error
}

// Await blocks the current task until f settles.
func Await(ctx context.Context, f *Future) (any, error) {
	if f.Done() {
		return f.Result()
	}
	t := CurrentTask(ctx)
	if t == nil {
		return nil, ErrNoTask
	}
	if t.canceled {
		return nil, context.Canceled
	}
	if f == t.fut {
		return nil, nerrors.New(nerrors.PhaseRuntime, nerrors.KindDeadlock).
			Detail("task %s awaits itself", t).Build()
	}
	t.yield <- StepResult{Status: StepIdle, Wait: f}
	yr := <-t.resume
	return yr.Value, yr.Error
}

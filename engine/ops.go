package engine

import (
	"context"
	"time"

	"go.uber.org/multierr"
)

// OpFunc adapts a function to PendingOp.
type OpFunc func(ctx context.Context) (any, error)

func (f OpFunc) Execute(ctx context.Context) (any, error) { return f(ctx) }

// SleepOp completes after D elapses or its context is done.
type SleepOp struct {
	D time.Duration
}

func (op SleepOp) Execute(ctx context.Context) (any, error) {
	if op.D <= 0 {
		return nil, ctx.Err()
	}
	timer := time.NewTimer(op.D)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sleep suspends the current task for d.
func Sleep(ctx context.Context, d time.Duration) error {
	_, err := Suspend(ctx, SleepOp{D: d})
	return err
}

// Gather waits for every task in order and returns their values. All tasks
// are waited for even when some fail; the failures are combined.
func Gather(ctx context.Context, tasks ...*Task) ([]any, error) {
	values := make([]any, len(tasks))
	var errs error
	for i, t := range tasks {
		v, err := Await(ctx, t.Future())
		values[i] = v
		errs = multierr.Append(errs, err)
	}
	return values, errs
}

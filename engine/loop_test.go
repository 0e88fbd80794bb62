package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	nerrors "github.com/wippyai/noasync/errors"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestLoop_RunReturnsValue(t *testing.T) {
	l := NewLoop()
	v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoop_SuspendResumesWithOpResult(t *testing.T) {
	l := NewLoop()
	v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		x, err := Suspend(ctx, OpFunc(func(context.Context) (any, error) { return "io", nil }))
		if err != nil {
			return nil, err
		}
		return x.(string) + "-done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "io-done", v)
}

func TestLoop_OpErrorSurfacesUnchanged(t *testing.T) {
	boom := errors.New("connection refused")
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		return Suspend(ctx, OpFunc(func(context.Context) (any, error) { return nil, boom }))
	})
	require.ErrorIs(t, err, boom)
}

func TestLoop_TasksInterleaveAtSuspensionPoints(t *testing.T) {
	rec := &recorder{}
	worker := func(name string) TaskFunc {
		return func(ctx context.Context) (any, error) {
			for i := 0; i < 2; i++ {
				rec.add(name)
				if err := Sleep(ctx, time.Millisecond); err != nil {
					return nil, err
				}
			}
			return name, nil
		}
	}

	l := NewLoop()
	v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		a := GetLoop(ctx).Spawn("a", worker("a"))
		b := GetLoop(ctx).Spawn("b", worker("b"))
		return Gather(ctx, a, b)
	})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	events := rec.list()
	require.Len(t, events, 4)
	// both tasks ran their first segment before either ran a second one
	assert.ElementsMatch(t, []string{"a", "b"}, events[:2])
}

func TestLoop_ConcurrentOpsOverlap(t *testing.T) {
	l := NewLoop()
	start := time.Now()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		var tasks []*Task
		for i := 0; i < 5; i++ {
			tasks = append(tasks, GetLoop(ctx).Spawn("sleeper", func(ctx context.Context) (any, error) {
				return nil, Sleep(ctx, 50*time.Millisecond)
			}))
		}
		_, err := Gather(ctx, tasks...)
		return nil, err
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLoop_AwaitFinishedTask(t *testing.T) {
	l := NewLoop()
	v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		child := GetLoop(ctx).Spawn("child", func(context.Context) (any, error) { return 7, nil })
		// let the child finish first
		if err := Sleep(ctx, time.Millisecond); err != nil {
			return nil, err
		}
		assert.True(t, child.Done())
		return Await(ctx, child.Future())
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestLoop_GatherCombinesErrors(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		a := GetLoop(ctx).Spawn("a", func(context.Context) (any, error) { return nil, e1 })
		b := GetLoop(ctx).Spawn("b", func(context.Context) (any, error) { return nil, e2 })
		return Gather(ctx, a, b)
	})
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
}

func TestLoop_DrainCancelsLeftoverTasks(t *testing.T) {
	var leftover *Task
	var sawCancel bool
	l := NewLoop()
	v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		leftover = GetLoop(ctx).Spawn("slow", func(ctx context.Context) (any, error) {
			err := Sleep(ctx, time.Hour)
			sawCancel = errors.Is(err, context.Canceled)
			return nil, err
		})
		// give the slow task a chance to start and suspend
		return "main", Sleep(ctx, time.Millisecond)
	})
	require.NoError(t, err)
	assert.Equal(t, "main", v)
	assert.True(t, leftover.Done())
	assert.True(t, sawCancel)
}

func TestLoop_UnstartedTasksCancelled(t *testing.T) {
	var never *Task
	ran := false
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		never = GetLoop(ctx).Spawn("never", func(context.Context) (any, error) {
			ran = true
			return nil, nil
		})
		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, ran)
	_, terr := never.Result()
	assert.ErrorIs(t, terr, context.Canceled)
}

func TestLoop_UnobservedFailureReported(t *testing.T) {
	boom := errors.New("background failure")
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		GetLoop(ctx).Spawn("bg", func(context.Context) (any, error) { return nil, boom })
		return nil, Sleep(ctx, time.Millisecond)
	})
	assert.ErrorIs(t, err, boom)
}

func TestLoop_Deadlock(t *testing.T) {
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		self := CurrentTask(ctx)
		child := GetLoop(ctx).Spawn("child", func(ctx context.Context) (any, error) {
			return Await(ctx, self.Future())
		})
		return Await(ctx, child.Future())
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseRuntime, Kind: nerrors.KindDeadlock})
}

func TestLoop_AwaitSelf(t *testing.T) {
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		return Await(ctx, CurrentTask(ctx).Future())
	})
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseRuntime, Kind: nerrors.KindDeadlock})
}

func TestLoop_ContextTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	l := NewLoop()
	_, err := l.Run(ctx, func(ctx context.Context) (any, error) {
		return nil, Sleep(ctx, time.Hour)
	})
	require.Error(t, err)
	assert.Equal(t, KindTimeout, ClassifyError(err))
}

func TestLoop_PanicBecomesError(t *testing.T) {
	l := NewLoop()
	_, err := l.Run(context.Background(), func(context.Context) (any, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestLoop_RejectsNestedRun(t *testing.T) {
	l := NewLoop()
	_, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
		return GetLoop(ctx).Run(ctx, func(context.Context) (any, error) { return nil, nil })
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestLoop_Reusable(t *testing.T) {
	l := NewLoop()
	for i := 0; i < 3; i++ {
		v, err := l.Run(context.Background(), func(ctx context.Context) (any, error) {
			_, err := Suspend(ctx, OpFunc(func(context.Context) (any, error) { return nil, nil }))
			return i, err
		})
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
}

func TestSuspendOutsideTask(t *testing.T) {
	_, err := Suspend(context.Background(), SleepOp{})
	assert.ErrorIs(t, err, ErrNoTask)

	_, err = Await(context.Background(), NewTask("x", nil).Future())
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestTask_StepProtocol(t *testing.T) {
	task := NewTask("direct", func(ctx context.Context) (any, error) {
		a, err := Suspend(ctx, OpFunc(func(context.Context) (any, error) { return 1, nil }))
		if err != nil {
			return nil, err
		}
		b, err := Suspend(ctx, OpFunc(func(context.Context) (any, error) { return 2, nil }))
		if err != nil {
			return nil, err
		}
		return a.(int) + b.(int), nil
	})

	ctx := context.Background()
	sr, err := task.Step(ctx, nil)
	require.NoError(t, err)
	steps := 0
	for sr.Status == StepContinue {
		steps++
		v, opErr := sr.PendingOp.Execute(ctx)
		sr, err = task.Step(ctx, &YieldResult{Value: v, Error: opErr})
		require.NoError(t, err)
	}

	assert.Equal(t, 2, steps)
	assert.Equal(t, StepDone, sr.Status)
	assert.Equal(t, 3, sr.Value)
	assert.True(t, task.Span().Duration() >= 0)

	assert.True(t, task.Done())
	_, err = task.Step(ctx, nil)
	assert.Error(t, err)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, KindUnknown, ClassifyError(nil))
	assert.Equal(t, KindCanceled, ClassifyError(context.Canceled))
	assert.Equal(t, KindTimeout, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, KindInternal, ClassifyError(ErrNoTask))
	assert.Equal(t, KindUnknown, ClassifyError(errors.New("other")))
}

func TestSetLogger(t *testing.T) {
	SetLogger(zaptest.NewLogger(t))
	defer SetLogger(nil)

	l := NewLoop()
	_, err := l.Run(context.Background(), func(context.Context) (any, error) {
		return nil, errors.New("logged")
	})
	assert.Error(t, err)
}

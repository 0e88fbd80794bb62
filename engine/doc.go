// Package engine provides the cooperative scheduler that runs nas coroutines.
//
// # Architecture
//
// The package provides two main types:
//
//	Loop - Drives tasks one at a time and executes pending operations
//	Task - A unit of execution with its own goroutine and a one-shot Future
//
// Only one task runs at any moment. A task hands control back to the loop
// in exactly two ways: by yielding a PendingOp through Suspend, or by
// waiting on another task's Future through Await. Pending operations run
// concurrently on background goroutines; their completions are queued and
// the suspended tasks are resumed in arrival order.
//
// # Step Protocol
//
// Task.Step is the low-level entry point and can be used to integrate with
// an external event loop. A task that only yields operations can be driven
// directly:
//
//	t := engine.NewTask("main", fn)
//	sr, _ := t.Step(ctx, nil)
//	for sr.Status != engine.StepDone {
//	    v, err := sr.PendingOp.Execute(ctx)
//	    sr, _ = t.Step(ctx, &engine.YieldResult{Value: v, Error: err})
//	}
//
// Loop.Run and Loop.RunUntilComplete wrap this protocol. When the main
// task finishes, every other unfinished task is cancelled: its in-flight
// operation sees a cancelled context and any further suspension returns
// context.Canceled.
//
// # Context
//
// Suspend and Await find the current task through the context passed to the
// task function. Host code must use that context, and must not suspend from
// goroutines it starts itself.
package engine

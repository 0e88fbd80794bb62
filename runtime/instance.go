package runtime

import (
	"context"

	"github.com/wippyai/noasync/interp"
)

// Instance is a script object created through a Module.
type Instance struct {
	module *Module
	obj    *interp.Instance
}

// Call invokes a method and awaits its result. Promoted methods return a
// coroutine, which is run to completion on a fresh event loop.
func (i *Instance) Call(ctx context.Context, method string, args ...any) (any, error) {
	v, err := i.start(ctx, method, args)
	if err != nil {
		return nil, err
	}
	return i.module.runtime.Await(ctx, v)
}

// Start invokes a method without awaiting it. Calling a promoted method
// yields a pending coroutine rather than its value.
func (i *Instance) Start(ctx context.Context, method string, args ...any) (any, error) {
	return i.start(ctx, method, args)
}

func (i *Instance) start(ctx context.Context, method string, args []any) (any, error) {
	fn, err := interp.GetAttr(i.obj, method)
	if err != nil {
		return nil, err
	}
	in, err := toValues(args)
	if err != nil {
		return nil, err
	}
	return i.module.runtime.in.Call(ctx, fn, in, nil)
}

// Class is the name of the instance's class.
func (i *Instance) Class() string {
	return i.obj.Class.Name
}

// Value returns the underlying script object.
func (i *Instance) Value() *interp.Instance {
	return i.obj
}

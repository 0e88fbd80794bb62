// Package interp executes nas syntax trees.
//
// Compile turns an *ast.File into a Unit of Go closures; Unit.Exec runs its
// module-level statements in a Namespace. An Interpreter supplies the
// builtin scope, print output and logging shared by every namespace.
//
// # Values
//
// None, bool, int, float and str are nil, bool, int64, float64 and string.
// Lists, dicts, functions, classes and instances are pointer types defined
// here. Go values registered with the interpreter are wrapped in HostObject
// and HostFunc; their methods and exported fields are reachable under
// snake_case names.
//
// # Suspension
//
// Calling an async def returns a Coroutine. Awaiting one runs its body on
// the calling task. Awaiting a Pending or an engine.Task suspends the task
// on its event loop. Awaiting any other value yields the value itself, so
// an await left in front of an ordinary call is harmless.
//
// The builtins run, spawn, gather, wait and sleep expose the event loop to
// scripts:
//
//	async def fetch(n) {
//	    await sleep(0.1)
//	    return n
//	}
//	async def main() {
//	    return await gather(fetch(1), fetch(2))
//	}
//	print(run(main()))
//
// # Class hooks
//
// A class statement whose metaclass keyword or one of whose decorators is a
// ClassHook hands the ClassSpec to the hook after the body has run and
// before the class object exists. The hook may replace members.
package interp

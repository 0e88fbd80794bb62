// Package runtime provides the high-level API for loading and running nas
// scripts whose classes are rewritten to suspend at magic calls.
//
// # Quick Start
//
//	rt, err := runtime.New(runtime.WithFS(os.DirFS("scripts")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	// Load a file; blocks guarded by __name__ == "__main__" do not run
//	mod, err := rt.LoadFile(ctx, "example.nas")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Call a promoted method; the coroutine is driven to completion
//	v, err := mod.Call(ctx, "Example.no_async_test", 5)
//	fmt.Println(v) // 5
//
// # Loading
//
//	LoadFile(file)          - run file as a module named after it
//	RunFile(file)           - run file as __main__
//	LoadSource(file, src)   - register src under file, then LoadFile
//
// Sources registered with LoadSource shadow files on the runtime's file
// system, including when a class in them is rewritten.
//
// # Rewriting
//
// Classes opt in with the noasync hook:
//
//	class Client(metaclass=noasync) {
//	    magic = ["get", "head"]
//
//	    def status(self, url) {
//	        r = self.session.get(url)
//	        return r.status_code
//	    }
//	}
//
// status calls a magic name, so it becomes an async method and the call
// becomes await self.session.get(url). The prefix do is always magic.
// Module.Rewrites reports what each rewrite promoted. To load a file with
// its classes as written, pass a context from rewrite.Suppress.
//
// # Host Functions
//
// Go values become script modules:
//
//	rt.RegisterFunc("greet", func(name string) string {
//	    return "Hello, " + name
//	})
//
//	// Or implement the Host interface for a full module
//	rt.RegisterHost(myHost)
//
// Method names are converted to snake_case (FetchAll -> fetch_all). Methods
// named by AsyncFunctions run in the background while the calling task is
// suspended; their first parameter may be a context.Context. The http
// module is registered by default.
//
// # Concurrency
//
// Script code runs one task at a time. Await, Module.Call and Instance.Call
// each drive a fresh event loop; a CallSession runs several calls as tasks
// of one loop so their suspension points interleave. A Runtime may load
// modules from several goroutines, but the objects a module defines are
// not safe for concurrent use from Go.
package runtime

// Package noasync lets classes call coroutines without writing async or
// await.
//
// A class created through the noasync hook names its magic functions in a
// magic member. Every function in the class's file that calls one of them
// (or "do", which is always magic) is recompiled as a coroutine, and each
// such call is awaited. Callers receive coroutines and run them on an event
// loop as usual.
//
//	class Fetcher(metaclass=noasync) {
//	    magic = ["get"]
//
//	    def title(self, url) {
//	        return self.get(url).text
//	    }
//
//	    async def get(self, url) {
//	        return await session.get(url)
//	    }
//	}
//
// # Packages
//
//	noasync/
//	├── runtime/    Loading scripts, host registration and calls
//	├── rewrite/    The class hook, isolated recompilation and the guard
//	├── asyncify/   Magic-call detection and the syntax tree transform
//	├── syntax/     Parser and printer for nas source
//	├── interp/     Tree-walking interpreter
//	├── engine/     Cooperative event loop and tasks
//	├── host/http/  Asynchronous HTTP session exposed to scripts
//	└── errors/     Structured error types
//
// Preview reports what the hook would do to a file without running it.
package noasync

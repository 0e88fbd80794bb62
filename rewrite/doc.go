// Package rewrite turns classes that call magic names into classes whose
// methods suspend.
//
// A Hook installed on a class statement, with @noasync or
// metaclass=noasync, runs once the class body has executed. It reads the
// class's source file, promotes functions that make magic calls with
// asyncify.Transform, and runs the rewritten file with Build in a namespace
// copied from the one defining the class. The class of the same name found
// there donates the members the transform changed to the class under
// construction; the rest stay as the class body defined them.
//
// Rewriting a file re-runs its class statements. Build guards the file on
// the context it executes with, and a Hook does nothing for a guarded file,
// so the classes of the rewritten copy are taken as they are. The guard
// covers only the call chain of one Build; once it returns the file may be
// rewritten again. Importers that want classes left as written wrap their
// context with Suppress.
package rewrite

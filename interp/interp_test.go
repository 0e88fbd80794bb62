package interp

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	nerrors "github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax"
)

func compileSource(t *testing.T, src string) *Unit {
	t.Helper()
	f, err := syntax.Parse(src, "test.nas")
	require.NoError(t, err)
	u, err := Compile(f, "")
	require.NoError(t, err)
	return u
}

func execSource(t *testing.T, in *Interpreter, src string) (*Namespace, error) {
	t.Helper()
	ns := NewNamespace("__main__", "test.nas")
	return ns, compileSource(t, src).Exec(context.Background(), in, ns)
}

// runSource executes src and returns what it printed.
func runSource(t *testing.T, src string) string {
	t.Helper()
	var out bytes.Buffer
	_, err := execSource(t, New(WithStdout(&out)), src)
	require.NoError(t, err)
	return out.String()
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"print(1 + 2 * 3)", "7"},
		{"print(7 // 2, -7 // 2)", "3 -4"},
		{"print(7 % 3, -7 % 3)", "1 2"},
		{"print(1 / 2, 4 / 2)", "0.5 2.0"},
		{"print(1 + 0.5)", "1.5"},
		{`print("a" + "b", "ab" * 2)`, "ab abab"},
		{"print([1] + [2], [0] * 3)", "[1, 2] [0, 0, 0]"},
		{"print(-3, not 0, not [1])", "-3 True False"},
		{"print(1 == 1.0, 2 != 2, 1 < 2 and 2 < 3)", "True False True"},
		{`print(0 or "x", 1 and None)`, "x None"},
		{`print(2 in [1, 2], "b" in "abc", "k" in {"k": 1})`, "True True True"},
		{`print({"a": 1, "b": [1, 'x']})`, "{'a': 1, 'b': [1, 'x']}"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want+"\n", runSource(t, tt.src))
		})
	}
}

func TestControlFlow(t *testing.T) {
	out := runSource(t, `
total = 0
for i in range(10) {
    if i == 2 {
        continue
    } elif i == 6 {
        break
    } else {
        total += i
    }
}
n = 0
while True {
    n += 1
    if n >= 3 { break }
}
print(total, n)
`)
	assert.Equal(t, "13 3\n", out)
}

func TestFunctions(t *testing.T) {
	out := runSource(t, `
def greet(name, greeting="hello") {
    return greeting + " " + name
}

def counter() {
    count = [0]
    def inc() {
        count[0] += 1
        return count[0]
    }
    return inc
}

c = counter()
c()
print(greet("bob"), greet("amy", greeting="hi"), c())
`)
	assert.Equal(t, "hello bob hi amy 2\n", out)
}

func TestFunctionArgumentErrors(t *testing.T) {
	tests := []string{
		"def f(a) { return a }\nf()",
		"def f(a) { return a }\nf(1, 2)",
		"def f(a) { return a }\nf(1, a=2)",
		"def f(a) { return a }\nf(b=2)",
	}
	for _, src := range tests {
		_, err := execSource(t, New(), src)
		assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseExec, Kind: nerrors.KindTypeMismatch}, src)
	}
}

func TestClasses(t *testing.T) {
	out := runSource(t, `
class Animal {
    sound = "..."

    def __init__(self, name) {
        self.name = name
    }

    def speak(self) {
        return self.name + " says " + self.sound
    }
}

class Dog(Animal) {
    sound = "woof"
}

d = Dog("rex")
print(d.speak(), isinstance(d, Animal), isinstance(Animal("x"), Dog))
print(Dog.__name__, d.speak.__name__)
`)
	assert.Equal(t, "rex says woof True False\nDog speak\n", out)
}

func TestClassScopeNotVisibleInMethods(t *testing.T) {
	_, err := execSource(t, New(), `
class A {
    x = 1
    def f(self) {
        return x
    }
}
A().f()
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseExec, Kind: nerrors.KindNameError})
}

func TestQualnames(t *testing.T) {
	ns, err := execSource(t, New(), `
class Outer {
    def method(self) {
        def inner() { pass }
        return inner
    }
}
f = Outer().method()
`)
	require.NoError(t, err)
	cls, ok := ns.Class("Outer")
	require.True(t, ok)
	m, _ := cls.Members.Get("method")
	assert.Equal(t, "Outer.method", m.(*Function).Qualname)
	f, _ := ns.Get("f")
	assert.Equal(t, "Outer.method.inner", f.(*Function).Qualname)
}

func TestErrorPosition(t *testing.T) {
	_, err := execSource(t, New(), "x = 1\n\ny = missing + x\n")
	require.Error(t, err)

	var e *nerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, nerrors.KindNameError, e.Kind)
	assert.Equal(t, "test.nas", e.File)
	assert.Equal(t, 3, e.Line)
	assert.Contains(t, err.Error(), "name 'missing' is not defined")
}

func TestErrorPathNamesFunction(t *testing.T) {
	_, err := execSource(t, New(), `
class C {
    def bad(self) {
        return 1 // 0
    }
}
C().bad()
`)
	var e *nerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, nerrors.KindZeroDivision, e.Kind)
	assert.Equal(t, []string{"C", "bad"}, e.Path)
	assert.Equal(t, 4, e.Line)
}

func TestCompileErrors(t *testing.T) {
	tests := []string{
		"break",
		"continue",
		"return 1",
		"class A { return 1 }",
		"def f() { for x in [1] { def g() { break } } }",
	}
	for _, src := range tests {
		f, err := syntax.Parse(src, "bad.nas")
		require.NoError(t, err, src)
		_, err = Compile(f, "")
		assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseCompile, Kind: nerrors.KindSyntax}, src)
	}
}

func TestRaise(t *testing.T) {
	_, err := execSource(t, New(), `raise "boom"`)
	var e *nerrors.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, nerrors.KindRaised, e.Kind)
	assert.Equal(t, "boom", e.Value)
}

func TestAsyncFunctions(t *testing.T) {
	out := runSource(t, `
async def double(x) {
    return x * 2
}

async def main() {
    a = await double(20)
    b = await 2
    return a + b
}

print(iscoroutinefunction(double), iscoroutine(double(1)))
print(run(main()))
`)
	assert.Equal(t, "True True\n42\n", out)
}

func TestCoroutineCannotBeReused(t *testing.T) {
	_, err := execSource(t, New(), `
async def f() { return 1 }
async def main() {
    c = f()
    await c
    await c
}
run(main())
`)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseRuntime, Kind: nerrors.KindReusedCoroutine})
}

func TestGatherInterleavesAtSuspensionPoints(t *testing.T) {
	out := runSource(t, `
order = []

async def worker(name, delay) {
    order.append(name + "1")
    await sleep(delay)
    order.append(name + "2")
    return name
}

async def main() {
    return await gather(worker("a", 0.05), worker("b", 0.001))
}

print(run(main()))
print(order)
`)
	assert.Equal(t, "['a', 'b']\n['a1', 'b1', 'b2', 'a2']\n", out)
}

func TestSpawnAndWait(t *testing.T) {
	out := runSource(t, `
async def square(n) {
    await sleep(0)
    return n * n
}

async def main() {
    tasks = []
    for i in range(4) {
        tasks.append(spawn(square(i)))
    }
    results = await wait(tasks)
    return [results, tasks[3].done(), tasks[3].result()]
}

print(run(main()))
`)
	assert.Equal(t, "[[0, 1, 4, 9], True, 9]\n", out)
}

func TestRunInsideTaskRejected(t *testing.T) {
	_, err := execSource(t, New(), `
async def inner() { return 1 }
async def outer() { return run(inner()) }
run(outer())
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running event loop")
}

func TestSpawnOutsideLoop(t *testing.T) {
	_, err := execSource(t, New(), `
async def f() { return 1 }
spawn(f())
`)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseRuntime, Kind: nerrors.KindAwaitOutsideTask})
}

func TestAsyncInitRejected(t *testing.T) {
	_, err := execSource(t, New(), `
class A {
    async def __init__(self) { pass }
}
A()
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be async")
}

type recordingHook struct {
	specs []*ClassSpec
}

func (h *recordingHook) ConstructClass(_ context.Context, _ *Interpreter, spec *ClassSpec) error {
	h.specs = append(h.specs, spec)
	spec.Members.Set("hooked", true)
	return nil
}

func TestClassHook(t *testing.T) {
	hook := &recordingHook{}
	in := New()
	in.Define("hook", hook)

	ns, err := execSource(t, in, `
class A(metaclass=hook) {
    x = 1
}

@hook
class B {
    def m(self) { return 2 }
}

class C {}
`)
	require.NoError(t, err)
	require.Len(t, hook.specs, 2)
	assert.Equal(t, "A", hook.specs[0].Name)
	assert.Equal(t, "test.nas", hook.specs[0].File)
	assert.Equal(t, 2, hook.specs[0].Line)
	assert.Same(t, ns, hook.specs[0].Namespace)
	assert.Equal(t, []string{"m"}, hook.specs[1].Members.Keys()[:1])

	for _, name := range []string{"A", "B"} {
		cls, ok := ns.Class(name)
		require.True(t, ok)
		v, _ := cls.Members.Get("hooked")
		assert.Equal(t, true, v, name)
	}
	c, _ := ns.Class("C")
	assert.False(t, c.Members.Has("hooked"))
}

func TestMetaclassMustBeHook(t *testing.T) {
	_, err := execSource(t, New(), "class A(metaclass=1) {}")
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseExec, Kind: nerrors.KindUnsupported})
}

func TestLogBuiltin(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	in := New(WithLogger(zap.New(core)))
	_, err := execSource(t, in, `log("fetched", 3, url="http://x")`)
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fetched 3", entries[0].Message)
	assert.Equal(t, "http://x", entries[0].ContextMap()["url"])
}

func TestNamespaceCopyIsIndependent(t *testing.T) {
	ns := NewNamespace("__main__", "a.nas")
	ns.Set("x", int64(1))
	cp := ns.Copy("a")
	cp.Set("x", int64(2))
	cp.Set("y", int64(3))

	x, _ := ns.Get("x")
	assert.Equal(t, int64(1), x)
	assert.False(t, ns.Vars().Has("y"))
	name, _ := cp.Get("__name__")
	assert.Equal(t, "a", name)
	assert.Equal(t, "a.nas", cp.File)
}

func TestRepr(t *testing.T) {
	assert.Equal(t, "1.0", Repr(1.0))
	assert.Equal(t, "2.5", Repr(2.5))
	assert.Equal(t, "1e+21", Repr(1e21))
	assert.Equal(t, `'it\'s'`, Repr("it's"))
	assert.Equal(t, "None", Repr(nil))
	assert.Equal(t, "[True, 'a']", Repr(NewList(true, "a")))
}

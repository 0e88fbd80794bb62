package runtime

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/wippyai/noasync/interp"
)

const workersSource = `# steps record their progress on the instance

class Workers(metaclass=noasync) {
    magic = "pause"

    def __init__(self) {
        self.order = []
    }

    def step(self, name, delay) {
        self.order.append(name + "1")
        self.pause(delay)
        self.order.append(name + "2")
        return name
    }

    async def pause(self, delay) {
        await sleep(delay)
    }

    def fail(self) {
        self.pause(0)
        raise "worker failed"
    }

    def history(self) {
        return self.order
    }

    def __repr__(self) {
        self.pause(0)
        return "Workers"
    }
}

def helper(x) {
    return x + 1
}
`

func loadWorkers(t *testing.T) *Module {
	t.Helper()
	rt, _ := newTestRuntime(t, fstest.MapFS{"workers.nas": {Data: []byte(workersSource)}})
	mod, err := rt.LoadFile(context.Background(), "workers.nas")
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	return mod
}

func TestModule_Classes(t *testing.T) {
	mod := loadWorkers(t)

	classes := mod.Classes()
	if len(classes) != 1 || classes[0].Name != "Workers" || classes[0].Line != 3 {
		t.Fatalf("classes = %+v", classes)
	}
	want := map[string]bool{"step": true, "pause": true, "fail": true, "history": false, "__init__": false, "__repr__": false}
	for _, m := range classes[0].Methods {
		if async, ok := want[m.Name]; !ok || async != m.Async {
			t.Errorf("method %s async=%v", m.Name, m.Async)
		}
	}

	funcs := mod.Functions()
	if len(funcs) != 1 || funcs[0].Name != "helper" || funcs[0].Async {
		t.Errorf("functions = %+v", funcs)
	}
	if got, err := mod.Call(context.Background(), "helper", 41); err != nil || got != int64(42) {
		t.Errorf("helper = %v, %v", got, err)
	}
}

func TestModule_Rewrites(t *testing.T) {
	mod := loadWorkers(t)
	reps := mod.Rewrites()
	if len(reps) != 1 {
		t.Fatalf("rewrites = %d", len(reps))
	}
	if got := strings.Join(reps[0].Promoted, ","); got != "Workers.step,Workers.fail" {
		t.Errorf("promoted = %s", got)
	}
	if reps[0].Magic.String() != "pause" {
		t.Errorf("magic = %s", reps[0].Magic)
	}
}

func TestModule_RewrittenSource(t *testing.T) {
	mod := loadWorkers(t)
	src, err := mod.RewrittenSource("Workers")
	if err != nil {
		t.Fatalf("RewrittenSource error: %v", err)
	}
	for _, want := range []string{"async def step(self, name, delay)", "await self.pause(delay)", "def __repr__(self)"} {
		if !strings.Contains(src, want) {
			t.Errorf("rewritten source lacks %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "async def __repr__") {
		t.Error("dunder method promoted")
	}
	if _, err := mod.RewrittenSource("Nope"); err == nil {
		t.Error("expected error for unknown class")
	}
}

func TestModule_CallNotFound(t *testing.T) {
	mod := loadWorkers(t)
	ctx := context.Background()
	for _, name := range []string{"nope", "Nope.step", "Workers.nope"} {
		if _, err := mod.Call(ctx, name); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCallSession_Interleaves(t *testing.T) {
	mod := loadWorkers(t)
	ctx := context.Background()

	inst, err := mod.New(ctx, "Workers")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	results, err := mod.NewSession().
		AddMethod(inst, "step", "a", 0.05).
		AddMethod(inst, "step", "b", 0.001).
		Run(ctx)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(results) != 2 || results[0].Value != "a" || results[1].Value != "b" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Name != "Workers.step" {
		t.Errorf("name = %s", results[0].Name)
	}
	if results[0].Span.Duration() < results[1].Span.Duration() {
		t.Errorf("span a %v shorter than span b %v", results[0].Span.Duration(), results[1].Span.Duration())
	}

	order, err := inst.Call(ctx, "history")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if got := interp.Repr(order); got != "['a1', 'b1', 'b2', 'a2']" {
		t.Errorf("order = %s", got)
	}
}

func TestCallSession_CollectsFailures(t *testing.T) {
	mod := loadWorkers(t)
	s := mod.NewSession().
		Add("Workers.fail").
		Add("helper", 1).
		Add("missing")
	if s.Len() != 3 {
		t.Fatalf("Len = %d", s.Len())
	}

	results, err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected combined error")
	}
	if results[0].Err == nil || !strings.Contains(results[0].Err.Error(), "worker failed") {
		t.Errorf("fail result = %+v", results[0])
	}
	if results[1].Err != nil || results[1].Value != int64(2) {
		t.Errorf("helper result = %+v", results[1])
	}
	if results[2].Err == nil {
		t.Error("missing call succeeded")
	}
}

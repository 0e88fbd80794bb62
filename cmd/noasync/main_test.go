package main

import (
	"bytes"
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/noasync/runtime"
)

const script = `
class Worker(metaclass=noasync) {
    magic = "fetch"

    def load(self, key) {
        return self.fetch(key)
    }

    async def fetch(self, key) {
        return key
    }
}

@noasync
class Dynamic {
    magic = pick()
}

def helper(x) {
    return x
}
`

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"2.5", 2.5},
		{"true", true},
		{"False", false},
		{"None", nil},
		{`"quoted"`, "quoted"},
		{"bare", "bare"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseArg(tt.in), tt.in)
	}
}

func TestPrintRewritten(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRewritten(&out, "worker.nas", script))

	s := out.String()
	assert.Contains(t, s, "# Worker (magic fetch): promoted Worker.load")
	assert.Contains(t, s, "async def load(self, key)")
	assert.Contains(t, s, "await self.fetch(key)")
	assert.Contains(t, s, "# Dynamic: magic is not a literal, skipped")
}

func TestPrintRewrittenWithoutHook(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printRewritten(&out, "plain.nas", "class A {}\n"))
	assert.Equal(t, "# no class uses the noasync hook\n", out.String())

	assert.Error(t, printRewritten(&out, "bad.nas", "class {"))
}

func TestPrintModule(t *testing.T) {
	fsys := fstest.MapFS{"worker.nas": {Data: []byte(`
class Worker(metaclass=noasync) {
    magic = "fetch"

    def load(self, key) {
        return self.fetch(key)
    }

    async def fetch(self, key) {
        return key
    }
}

def helper(x) {
    return x
}
`)}}
	rt, err := runtime.New(runtime.WithFS(fsys))
	require.NoError(t, err)
	defer rt.Close()

	mod, err := rt.LoadFile(context.Background(), "worker.nas")
	require.NoError(t, err)

	var out bytes.Buffer
	printModule(&out, mod)
	s := out.String()
	assert.Contains(t, s, "Module: worker (worker.nas)")
	assert.Contains(t, s, "Rewrote Worker with magic fetch: 1 promoted, 1 wrapped")
	assert.Contains(t, s, "  Worker (line 2)")
	assert.Contains(t, s, "    async load(self, key)")
	assert.Contains(t, s, "    async fetch(self, key)")
	assert.Contains(t, s, "  helper(x)")
}

func TestInteractiveParams(t *testing.T) {
	method := funcInfo{name: "Worker.load", fn: runtime.Func{Name: "load", Params: []string{"self", "key"}}, bound: true}
	assert.Equal(t, []string{"key"}, method.params())

	fn := funcInfo{name: "helper", fn: runtime.Func{Name: "helper", Params: []string{"x"}}}
	assert.Equal(t, []string{"x"}, fn.params())
}

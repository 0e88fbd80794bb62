package syntax

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/syntax/ast"
)

const sample = `
# request helper
@noasync
class Fetcher(Base, metaclass=NoAsync) {
    magic = ["get", "head"]

    def __init__(self, base="http://localhost") {
        self.base = base
        self.count = 0
    }

    def status(self, path) -> "int" {
        r = self.session.head(self.base + path)
        self.count += 1
        return r.status_code
    }

    async def already(self) {
        return await self.do_thing()
    }
}

def main() {
    f = Fetcher()
    total = 0
    for i in range(3) {
        if i == 0 {
            continue
        } elif i > 5 and not False {
            break
        } else {
            total -= -i
        }
    }
    while total < 10 {
        total = total * 2 + 1
    }
    d = {"a": 1, "b": [1, 2.5, None]}
    return d["b"][0]
}
`

func TestParseStructure(t *testing.T) {
	f, err := Parse(sample, "sample.nas")
	require.NoError(t, err)
	require.Len(t, f.Body, 2)
	assert.Equal(t, "sample.nas", f.Name)

	cls, ok := f.Body[0].(*ast.ClassDef)
	require.True(t, ok)
	assert.Equal(t, "Fetcher", cls.Name)
	require.Len(t, cls.Decorators, 1)
	require.Len(t, cls.Bases, 1)
	require.Len(t, cls.Keywords, 1)
	assert.Equal(t, "metaclass", cls.Keywords[0].Name)
	require.Len(t, cls.Body, 4)

	status := cls.Body[2].(*ast.FuncDef)
	assert.Equal(t, "status", status.Name)
	assert.False(t, status.Async)
	assert.NotNil(t, status.Returns)
	assert.Len(t, status.Params, 2)

	init := cls.Body[1].(*ast.FuncDef)
	require.NotNil(t, init.Params[1].Default)

	already := cls.Body[3].(*ast.FuncDef)
	assert.True(t, already.Async)
	ret := already.Body[0].(*ast.Return)
	_, isAwait := ret.Value.(*ast.Await)
	assert.True(t, isAwait)

	assert.Same(t, cls, f.FindClass("Fetcher"))
	assert.Nil(t, f.FindClass("Missing"))
}

func TestFormatRoundTrip(t *testing.T) {
	f, err := Parse(sample, "sample.nas")
	require.NoError(t, err)

	out := Format(f)
	again, err := Parse(out, "sample.nas")
	require.NoError(t, err, out)

	assert.Equal(t, out, Format(again))
}

func TestFormatParenthesizes(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"x = (a + b) * c", "x = (a + b) * c\n"},
		{"x = a - (b - c)", "x = a - (b - c)\n"},
		{"x = (await f()).y", "x = (await f()).y\n"},
		{"x = not (a or b)", "x = not (a or b)\n"},
		{"x = -y.z", "x = -y.z\n"},
		{"x = 2.0", "x = 2.0\n"},
		{`x = "q\"uote"`, `x = "q\"uote"` + "\n"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			f, err := Parse(tt.src, "t.nas")
			require.NoError(t, err)
			assert.Equal(t, tt.want, Format(f))
		})
	}
}

func TestParseOneLineBlocks(t *testing.T) {
	f, err := Parse("def f(x) { return x }\nclass A { pass }", "t.nas")
	require.NoError(t, err)
	require.Len(t, f.Body, 2)
}

func TestParseElseOnNextLine(t *testing.T) {
	src := "if a {\n    x = 1\n}\nelse {\n    x = 2\n}\n"
	f, err := Parse(src, "t.nas")
	require.NoError(t, err)
	require.Len(t, f.Body, 1)
	assert.Len(t, f.Body[0].(*ast.If).Else, 1)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"missing brace", "def f() {\n  return 1\n", 3},
		{"bad target", "f() = 1", 1},
		{"decorator on statement", "@x\nreturn 1", 2},
		{"positional after keyword", "f(a=1, 2)", 1},
		{"duplicate param", "def f(a, a) { pass }", 1},
		{"default order", "def f(a=1, b) { pass }", 1},
		{"bad char", "x = 1\ny = $", 2},
		{"chained compare", "x = a < b < c", 1},
		{"missing end", "x = 1 y = 2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, "bad.nas")
			require.Error(t, err)

			var e *nerrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, nerrors.PhaseParse, e.Phase)
			assert.Equal(t, nerrors.KindSyntax, e.Kind)
			assert.Equal(t, "bad.nas", e.File)
			assert.Equal(t, tt.line, e.Line)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	f, err := Parse(sample, "sample.nas")
	require.NoError(t, err)

	c := ast.CloneFile(f)
	assert.Equal(t, Format(f), Format(c))

	c.FindClass("Fetcher").Body[2].(*ast.FuncDef).Async = true
	assert.False(t, f.FindClass("Fetcher").Body[2].(*ast.FuncDef).Async)
}

func TestInspectVisitsCalls(t *testing.T) {
	f, err := Parse("x = a.b(c(1), k=d())", "t.nas")
	require.NoError(t, err)

	var calls int
	ast.Inspect(f, func(n ast.Node) bool {
		if _, ok := n.(*ast.Call); ok {
			calls++
		}
		return true
	})
	assert.Equal(t, 3, calls)
}

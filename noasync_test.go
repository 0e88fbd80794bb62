package noasync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/noasync/asyncify"
	"github.com/wippyai/noasync/syntax"
	"github.com/wippyai/noasync/syntax/ast"
)

func TestPreview(t *testing.T) {
	src := `
class A(metaclass=noasync) {
    magic = "fetch"
    def load(self) { return self.fetch() }
    async def fetch(self) { return 1 }
}

@NoAsync
class B {
    def run(self) { return self.do() }
    async def do(self) { return 2 }
}

class C(metaclass=noasync) {
    magic = names()
}

class Plain {
    def load(self) { return self.fetch() }
}
`
	rewrites, err := Preview("preview.nas", src)
	require.NoError(t, err)
	require.Len(t, rewrites, 3)

	a := rewrites[0]
	assert.Equal(t, "A", a.Class)
	assert.Equal(t, 2, a.Line)
	assert.True(t, a.Static)
	assert.Equal(t, asyncify.MagicNames{"fetch"}, a.Magic)
	assert.Equal(t, []string{"A.load"}, a.Promoted)
	assert.Contains(t, a.Source, "async def load(self)")

	// The whole file is rewritten with A's magic, but only A's own
	// methods are reported.
	assert.Contains(t, a.Source, "class Plain")
	assert.NotContains(t, a.Promoted, "Plain.load")

	b := rewrites[1]
	assert.Equal(t, asyncify.MagicNames{"do"}, b.Magic)
	assert.Equal(t, []string{"B.run"}, b.Promoted)

	c := rewrites[2]
	assert.Equal(t, "C", c.Class)
	assert.False(t, c.Static)
	assert.Empty(t, c.Source)
}

func TestPreviewParseError(t *testing.T) {
	_, err := Preview("bad.nas", "class A(metaclass=noasync) {")
	assert.Error(t, err)
}

func TestHooked(t *testing.T) {
	tree, err := syntax.Parse(`
class A(metaclass=noasync) {}
class B(metaclass=other) {}
@noasync
class C {}
class D(base=noasync) {}
`, "hooked.nas")
	require.NoError(t, err)

	var got []string
	for _, s := range tree.Body {
		if c, ok := s.(*ast.ClassDef); ok && Hooked(c) {
			got = append(got, c.Name)
		}
	}
	assert.Equal(t, []string{"A", "C"}, got)
}

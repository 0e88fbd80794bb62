package interp

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/wippyai/noasync/errors"
)

var errUnavailable = errors.New("store unavailable")

type store struct {
	Label string
	Tags  map[string]string
	data  map[string]string
	Count int
}

func (s *store) Put(key, value string) int {
	s.data[key] = value
	s.Count++
	return s.Count
}

func (s *store) Fetch(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	v, ok := s.data[key]
	if !ok {
		return "", errUnavailable
	}
	return v, nil
}

func (s *store) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func (s *store) AsyncFunctions() []string { return []string{"Fetch"} }

func newStoreInterp(t *testing.T) (*Interpreter, *bytes.Buffer, *store) {
	t.Helper()
	var out bytes.Buffer
	in := New(WithStdout(&out))
	s := &store{Label: "primary", Tags: map[string]string{"b": "2", "a": "1"}, data: map[string]string{}}
	in.Define("db", NewHostObject(s))
	return in, &out, s
}

func TestHostObjectMethodsAndFields(t *testing.T) {
	in, out, s := newStoreInterp(t)
	_, err := execSource(t, in, `
print(db.put("k", "v"), db.count, db.label, db.tags)
print(db.keys())
`)
	require.NoError(t, err)
	assert.Equal(t, "1 1 primary {'a': '1', 'b': '2'}\n['k']\n", out.String())
	assert.Equal(t, "v", s.data["k"])
}

func TestHostObjectAsyncMethod(t *testing.T) {
	in, out, _ := newStoreInterp(t)
	_, err := execSource(t, in, `
db.put("k", "v")
p = db.fetch("k")
async def main() {
    return await p
}
print(p, run(main()))
`)
	require.NoError(t, err)
	assert.Equal(t, "<pending fetch> v\n", out.String())
}

func TestHostErrorsSurfaceUnchanged(t *testing.T) {
	in, _, _ := newStoreInterp(t)
	_, err := execSource(t, in, `
async def main() {
    return await db.fetch("missing")
}
run(main())
`)
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnavailable)
	var e *nerrors.Error
	assert.False(t, errors.As(err, &e))
}

func TestHostArgumentConversion(t *testing.T) {
	in, _, _ := newStoreInterp(t)
	_, err := execSource(t, in, `db.put("k", 1)`)
	require.Error(t, err)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseHost, Kind: nerrors.KindTypeMismatch})
	assert.Contains(t, err.Error(), "argument 2")

	_, err = execSource(t, in, `db.put("k")`)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseHost, Kind: nerrors.KindTypeMismatch})
}

func TestHostFunc(t *testing.T) {
	join, err := NewHostFunc("join", func(parts []string, sep string) string {
		return strings.Join(parts, sep)
	}, false)
	require.NoError(t, err)
	scale, err := NewHostFunc("scale", func(x float64, by int) float64 { return x * float64(by) }, false)
	require.NoError(t, err)

	var out bytes.Buffer
	in := New(WithStdout(&out))
	in.Define("join", join)
	in.Define("scale", scale)
	_, err = execSource(t, in, `print(join(["a", "b"], "-"), scale(2, 3))`)
	require.NoError(t, err)
	assert.Equal(t, "a-b 6.0\n", out.String())

	_, err = NewHostFunc("bad", 42, false)
	assert.Error(t, err)
	_, err = NewHostFunc("bad", func() (int, int) { return 0, 0 }, false)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseHost, Kind: nerrors.KindRegistration})
}

func TestSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Get":        "get",
		"StatusCode": "status_code",
		"GetHTTPURL": "get_http_url",
		"ID":         "id",
		"HTTPClient": "http_client",
		"already":    "already",
		"Fetch_All":  "fetch_all",
	}
	for in, want := range tests {
		assert.Equal(t, want, SnakeCase(in), in)
	}
}

type grid struct {
	Cells map[[2]int]string
}

func TestHostMapKeysMustBeHashable(t *testing.T) {
	cells, err := NewHostFunc("cells", func() map[[2]int]string {
		return map[[2]int]string{{0, 1}: "x"}
	}, false)
	require.NoError(t, err)
	counts, err := NewHostFunc("counts", func() map[int]string {
		return map[int]string{2: "b", 1: "a"}
	}, false)
	require.NoError(t, err)

	var out bytes.Buffer
	in := New(WithStdout(&out))
	in.Define("cells", cells)
	in.Define("counts", counts)
	in.Define("board", NewHostObject(&grid{Cells: map[[2]int]string{{1, 1}: "o"}}))

	_, err = execSource(t, in, `print(counts())`)
	require.NoError(t, err)
	assert.Equal(t, "{1: 'a', 2: 'b'}\n", out.String())

	_, err = execSource(t, in, `cells()`)
	require.Error(t, err)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseHost, Kind: nerrors.KindTypeMismatch})
	assert.Contains(t, err.Error(), "[2]int")

	_, err = execSource(t, in, `board.cells`)
	require.Error(t, err)
	assert.ErrorIs(t, err, &nerrors.Error{Phase: nerrors.PhaseHost, Kind: nerrors.KindTypeMismatch})
}

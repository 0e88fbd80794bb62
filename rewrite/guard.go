package rewrite

import (
	"context"
	"path"

	"github.com/cespare/xxhash/v2"
)

type guardKey struct{}

// guard is the set of files whose rewrite is in progress on a call chain.
// It is immutable; WithGuard derives a new one.
type guard struct {
	parent   *guard
	file     uint64
	suppress bool
}

// FileID is the identity a file is guarded under.
func FileID(file string) uint64 {
	return xxhash.Sum64String(path.Clean(file))
}

func guardFrom(ctx context.Context) *guard {
	g, _ := ctx.Value(guardKey{}).(*guard)
	return g
}

// WithGuard marks file as being rewritten for everything run with the
// returned context.
func WithGuard(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, guardKey{}, &guard{parent: guardFrom(ctx), file: FileID(file)})
}

// Suppress disables rewriting for every file under the returned context.
// Importers use it to load a file with its classes left as written.
func Suppress(ctx context.Context) context.Context {
	return context.WithValue(ctx, guardKey{}, &guard{parent: guardFrom(ctx), suppress: true})
}

// Guarded reports whether a class defined in file must be constructed
// unchanged under ctx.
func Guarded(ctx context.Context, file string) bool {
	id := FileID(file)
	for g := guardFrom(ctx); g != nil; g = g.parent {
		if g.suppress || g.file == id {
			return true
		}
	}
	return false
}

// Suppressed reports whether Suppress is in effect.
func Suppressed(ctx context.Context) bool {
	for g := guardFrom(ctx); g != nil; g = g.parent {
		if g.suppress {
			return true
		}
	}
	return false
}

package rewrite

import (
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/wippyai/noasync/errors"
)

// SourceReader supplies the text of a source file by the name it was
// loaded under.
type SourceReader interface {
	ReadSource(file string) (string, error)
}

// FSReader reads sources from a file system.
type FSReader struct {
	FS fs.FS
}

func (r FSReader) ReadSource(file string) (string, error) {
	if r.FS == nil {
		return "", errors.Load(file, fs.ErrNotExist)
	}
	data, err := fs.ReadFile(r.FS, fsPath(file))
	if err != nil {
		return "", errors.Load(file, err)
	}
	return string(data), nil
}

func fsPath(file string) string {
	p := path.Clean(strings.ReplaceAll(file, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}

// Overlay serves in-memory sources ahead of a fallback reader. Sources
// registered with Add shadow files of the same name.
type Overlay struct {
	next  SourceReader
	files map[string]string
	mu    sync.RWMutex
}

func NewOverlay(next SourceReader) *Overlay {
	return &Overlay{next: next, files: make(map[string]string)}
}

// Add registers source under file, replacing any earlier registration.
func (o *Overlay) Add(file, source string) {
	o.mu.Lock()
	o.files[path.Clean(file)] = source
	o.mu.Unlock()
}

func (o *Overlay) ReadSource(file string) (string, error) {
	o.mu.RLock()
	src, ok := o.files[path.Clean(file)]
	o.mu.RUnlock()
	if ok {
		return src, nil
	}
	if o.next == nil {
		return "", errors.Load(file, fs.ErrNotExist)
	}
	return o.next.ReadSource(file)
}

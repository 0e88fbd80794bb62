package runtime

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/noasync/engine"
	"github.com/wippyai/noasync/errors"
	httphost "github.com/wippyai/noasync/host/http"
	"github.com/wippyai/noasync/interp"
	"github.com/wippyai/noasync/rewrite"
)

// HookNames are the builtin names the rewrite hook is bound to.
var HookNames = []string{"noasync", "NoAsync"}

type Runtime struct {
	in      *interp.Interpreter
	hosts   *HostRegistry
	sources *rewrite.Overlay
	cache   *rewrite.Cache
	hook    *rewrite.Hook
	log     *zap.Logger
	reports []rewrite.Report
	mu      sync.Mutex
}

type config struct {
	fsys       fs.FS
	log        *zap.Logger
	stdout     io.Writer
	client     *http.Client
	cacheSize  int64
	noHTTP     bool
	logEngines bool
}

type Option func(*config)

// WithFS sets where sources are read from. The default is the working
// directory.
func WithFS(fsys fs.FS) Option {
	return func(c *config) { c.fsys = fsys }
}

// WithLogger sets the logger for the runtime, the log builtin, the event
// loop and the rewrite hook.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
			c.logEngines = true
		}
	}
}

// WithStdout redirects print.
func WithStdout(w io.Writer) Option {
	return func(c *config) { c.stdout = w }
}

// WithHTTPClient sets the client behind the http module.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) { c.client = client }
}

// WithoutHTTP leaves the http module unbound.
func WithoutHTTP() Option {
	return func(c *config) { c.noHTTP = true }
}

// WithCacheSize bounds the parse cache in bytes of source.
func WithCacheSize(n int64) Option {
	return func(c *config) { c.cacheSize = n }
}

func New(opts ...Option) (*Runtime, error) {
	cfg := config{
		fsys:   os.DirFS("."),
		log:    zap.NewNop(),
		stdout: os.Stdout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := rewrite.NewCache(cfg.cacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.logEngines {
		engine.SetLogger(cfg.log.Named("engine"))
		rewrite.SetLogger(cfg.log.Named("rewrite"))
	}

	r := &Runtime{
		in:      interp.New(interp.WithStdout(cfg.stdout), interp.WithLogger(cfg.log.Named("script"))),
		hosts:   NewHostRegistry(),
		sources: rewrite.NewOverlay(rewrite.FSReader{FS: cfg.fsys}),
		cache:   cache,
		log:     cfg.log,
	}
	r.hook = &rewrite.Hook{Reader: r.sources, Cache: cache, OnRewrite: r.record}
	for _, name := range HookNames {
		r.in.Define(name, r.hook)
	}

	if !cfg.noHTTP {
		if err := r.RegisterHost(httphost.NewModule(cfg.client, cfg.log.Named("http"))); err != nil {
			cache.Close()
			return nil, err
		}
	}
	return r, nil
}

// Close releases the parse cache.
func (r *Runtime) Close() {
	r.cache.Close()
}

// Interpreter exposes the interpreter modules run on.
func (r *Runtime) Interpreter() *interp.Interpreter {
	return r.in
}

// RegisterHost binds h under its namespace. Exported methods are reachable
// as snake_case names (FetchAll -> fetch_all); those listed by
// AsyncFunctions suspend the calling task. Register hosts before loading
// files that use them.
func (r *Runtime) RegisterHost(h Host) error {
	if err := r.claim(h.Namespace()); err != nil {
		return err
	}
	if err := r.hosts.RegisterHost(h); err != nil {
		return err
	}
	r.hosts.Bind(r.in)
	return nil
}

func (r *Runtime) RegisterFunc(name string, fn any) error {
	if err := r.claim(name); err != nil {
		return err
	}
	if err := r.hosts.RegisterFunc(name, fn); err != nil {
		return err
	}
	r.hosts.Bind(r.in)
	return nil
}

// RegisterFuncAsync registers fn as a function that suspends its caller
// while it runs.
func (r *Runtime) RegisterFuncAsync(name string, fn any) error {
	if err := r.claim(name); err != nil {
		return err
	}
	if err := r.hosts.RegisterFuncAsync(name, fn); err != nil {
		return err
	}
	r.hosts.Bind(r.in)
	return nil
}

// claim fails when name is a builtin that no host registered.
func (r *Runtime) claim(name string) error {
	if _, builtin := r.in.Builtin(name); !builtin {
		return nil
	}
	if _, host := r.hosts.Lookup(name); host {
		return nil
	}
	return errors.Registration(name, errors.InvalidInput(errors.PhaseHost, "name shadows a builtin"))
}

func (r *Runtime) Hosts() *HostRegistry {
	return r.hosts
}

// LoadFile executes file as a module named after it. Blocks guarded by
// __name__ == "__main__" do not run.
func (r *Runtime) LoadFile(ctx context.Context, file string) (*Module, error) {
	return r.load(ctx, file, rewrite.ModuleName(file, nil))
}

// LoadSource registers source under file, shadowing any file of that name,
// and loads it.
func (r *Runtime) LoadSource(ctx context.Context, file, source string) (*Module, error) {
	r.sources.Add(file, source)
	return r.LoadFile(ctx, file)
}

// RunFile executes file as the main module.
func (r *Runtime) RunFile(ctx context.Context, file string) (*Module, error) {
	return r.load(ctx, file, "__main__")
}

func (r *Runtime) load(ctx context.Context, file, name string) (*Module, error) {
	src, err := r.sources.ReadSource(file)
	if err != nil {
		return nil, err
	}
	tree, err := r.cache.Parse(src, file)
	if err != nil {
		return nil, err
	}
	unit, err := interp.Compile(tree, file)
	if err != nil {
		return nil, err
	}

	mark := r.reportCount()
	start := time.Now()
	ns := interp.NewNamespace(name, file)
	if err := unit.Exec(ctx, r.in, ns); err != nil {
		return nil, err
	}
	r.log.Debug("module loaded",
		zap.String("file", file),
		zap.String("name", name),
		zap.Duration("duration", time.Since(start)),
	)
	return &Module{
		runtime:  r,
		ns:       ns,
		tree:     tree,
		File:     file,
		Name:     name,
		rewrites: r.reportsSince(mark, file),
	}, nil
}

func (r *Runtime) record(rep rewrite.Report) {
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()
}

func (r *Runtime) reportCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *Runtime) reportsSince(mark int, file string) []rewrite.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []rewrite.Report
	for _, rep := range r.reports[mark:] {
		if rep.File == file {
			out = append(out, rep)
		}
	}
	return out
}

// Await drives v, typically a coroutine returned by a promoted method, to
// completion on a fresh event loop.
func (r *Runtime) Await(ctx context.Context, v any) (any, error) {
	return r.in.Run(ctx, v)
}

// Call invokes a script callable with Go arguments and awaits the result.
func (r *Runtime) Call(ctx context.Context, fn any, args ...any) (any, error) {
	in, err := toValues(args)
	if err != nil {
		return nil, err
	}
	v, err := r.in.Call(ctx, fn, in, nil)
	if err != nil {
		return nil, err
	}
	return r.Await(ctx, v)
}

func toValues(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := interp.ToValue(reflect.ValueOf(a))
		if err != nil {
			return nil, errors.New(errors.PhaseRuntime, errors.KindTypeMismatch).
				Cause(err).Detail("argument %d", i+1).Build()
		}
		out[i] = v
	}
	return out, nil
}

func notFound(what, name string) error {
	return errors.New(errors.PhaseRuntime, errors.KindNotFound).
		Path(name).
		Detail("%s %s not found", what, name).
		Build()
}

package runtime

import (
	"sort"
	"sync"

	"github.com/wippyai/noasync/errors"
	"github.com/wippyai/noasync/interp"
)

// Host is the interface for struct-based host modules. All exported
// methods except Namespace and AsyncFunctions are reachable from scripts
// on the object bound to Namespace().
type Host interface {
	// Namespace returns the script name of the module (e.g. "http").
	Namespace() string
}

// AsyncHost extends Host with suspending methods. Methods listed by
// AsyncFunctions, by their Go names, return a pending value that the
// script awaits.
type AsyncHost interface {
	Host
	AsyncFunctions() []string
}

type HostRegistry struct {
	objects map[string]*interp.HostObject
	funcs   map[string]*interp.HostFunc
	mu      sync.RWMutex
}

func NewHostRegistry() *HostRegistry {
	return &HostRegistry{
		objects: make(map[string]*interp.HostObject),
		funcs:   make(map[string]*interp.HostFunc),
	}
}

func (r *HostRegistry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.funcs[ns]; taken {
		return errors.Registration(ns, errors.InvalidInput(errors.PhaseHost, "name is bound to a function"))
	}
	r.objects[ns] = interp.NewHostObject(h)
	return nil
}

func (r *HostRegistry) RegisterFunc(name string, fn any) error {
	return r.registerFunc(name, fn, false)
}

// RegisterFuncAsync registers a single function that suspends its caller.
func (r *HostRegistry) RegisterFuncAsync(name string, fn any) error {
	return r.registerFunc(name, fn, true)
}

func (r *HostRegistry) registerFunc(name string, fn any, async bool) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	hf, err := interp.NewHostFunc(name, fn, async)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.objects[name]; taken {
		return errors.Registration(name, errors.InvalidInput(errors.PhaseHost, "name is bound to a host module"))
	}
	r.funcs[name] = hf
	return nil
}

// Names returns every registered name, sorted.
func (r *HostRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.objects)+len(r.funcs))
	for name := range r.objects {
		names = append(names, name)
	}
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the script value registered under name.
func (r *HostRegistry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if obj, ok := r.objects[name]; ok {
		return obj, true
	}
	if fn, ok := r.funcs[name]; ok {
		return fn, true
	}
	return nil, false
}

// Bind defines every registered host as a builtin of in.
func (r *HostRegistry) Bind(in *interp.Interpreter) {
	for _, name := range r.Names() {
		if v, ok := r.Lookup(name); ok {
			in.Define(name, v)
		}
	}
}

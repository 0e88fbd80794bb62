package interp

// Members is an insertion-ordered name to value map. It backs class bodies,
// instance attributes and module globals.
type Members struct {
	m    map[string]any
	keys []string
}

func NewMembers() *Members {
	return &Members{m: make(map[string]any)}
}

func (m *Members) Get(name string) (any, bool) {
	v, ok := m.m[name]
	return v, ok
}

func (m *Members) Has(name string) bool {
	_, ok := m.m[name]
	return ok
}

// Set binds name, keeping its original position when it already exists.
func (m *Members) Set(name string, v any) {
	if _, ok := m.m[name]; !ok {
		m.keys = append(m.keys, name)
	}
	m.m[name] = v
}

func (m *Members) Delete(name string) {
	if _, ok := m.m[name]; !ok {
		return
	}
	delete(m.m, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the names in insertion order.
func (m *Members) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *Members) Len() int { return len(m.keys) }

// Each calls f for every binding in order until f returns false.
func (m *Members) Each(f func(name string, v any) bool) {
	for _, k := range m.keys {
		if !f(k, m.m[k]) {
			return
		}
	}
}

// Copy returns a shallow copy.
func (m *Members) Copy() *Members {
	out := &Members{m: make(map[string]any, len(m.m)), keys: append([]string(nil), m.keys...)}
	for k, v := range m.m {
		out.m[k] = v
	}
	return out
}

// Namespace is a module's global scope.
type Namespace struct {
	vars *Members
	Name string
	File string
}

func NewNamespace(name, file string) *Namespace {
	ns := &Namespace{Name: name, File: file, vars: NewMembers()}
	ns.vars.Set("__name__", name)
	ns.vars.Set("__file__", file)
	return ns
}

func (ns *Namespace) Get(name string) (any, bool) { return ns.vars.Get(name) }

func (ns *Namespace) Set(name string, v any) { ns.vars.Set(name, v) }

func (ns *Namespace) Delete(name string) { ns.vars.Delete(name) }

func (ns *Namespace) Names() []string { return ns.vars.Keys() }

// Vars exposes the ordered bindings.
func (ns *Namespace) Vars() *Members { return ns.vars }

// Copy returns an independent namespace holding the same bindings, renamed.
// Values are shared; rebinding a name in one does not affect the other.
func (ns *Namespace) Copy(name string) *Namespace {
	out := &Namespace{Name: name, File: ns.File, vars: ns.vars.Copy()}
	out.vars.Set("__name__", name)
	return out
}

// Class returns the class bound to name, if any.
func (ns *Namespace) Class(name string) (*Class, bool) {
	v, ok := ns.vars.Get(name)
	if !ok {
		return nil, false
	}
	c, ok := v.(*Class)
	return c, ok
}

// Env is a local frame. Class bodies get an Env marked class; functions
// defined inside them close over the nearest non-class frame.
type Env struct {
	vars   *Members
	parent *Env
	class  bool
}

func newEnv(parent *Env) *Env {
	return &Env{vars: NewMembers(), parent: parent}
}

func (e *Env) lookup(name string) (any, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.class && cur != e {
			continue
		}
		if v, ok := cur.vars.Get(name); ok {
			return v, true
		}
	}
	return nil, false
}

// closure returns the frame a function defined in e captures.
func (e *Env) closure() *Env {
	cur := e
	for cur != nil && cur.class {
		cur = cur.parent
	}
	return cur
}

// frame is the dynamic state of one executing body.
type frame struct {
	env  *Env // nil at module level
	ns   *Namespace
	in   *Interpreter
	file string
	fn   *Function
}

func (fr *frame) lookup(name string) (any, bool) {
	if fr.env != nil {
		if v, ok := fr.env.lookup(name); ok {
			return v, true
		}
	}
	if v, ok := fr.ns.Get(name); ok {
		return v, true
	}
	return fr.in.builtins.Get(name)
}

func (fr *frame) store(name string, v any) {
	if fr.env != nil {
		fr.env.vars.Set(name, v)
		return
	}
	fr.ns.Set(name, v)
}

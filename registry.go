package wayland

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// Registry is a client's view of the globals the server advertises. It is
// updated as the display's queue is dispatched.
type Registry struct {
	conn *Conn

	mu       sync.Mutex
	globals  map[uint32]Global
	order    []uint32
	onGlobal []func(Global)
	onRemove []func(Global)
}

func newRegistry(c *Conn) *Registry {
	return &Registry{conn: c, globals: make(map[uint32]Global)}
}

// Globals returns the advertised globals in announcement order.
func (r *Registry) Globals() []Global {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Global, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.globals[name])
	}
	return out
}

// Lookup returns the global advertised under name.
func (r *Registry) Lookup(name uint32) (Global, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.globals[name]
	return g, ok
}

// Find returns every advertised global implementing iface.
func (r *Registry) Find(iface string) []Global {
	var out []Global
	for _, g := range r.Globals() {
		if g.Interface == iface {
			out = append(out, g)
		}
	}
	return out
}

// OnGlobal registers fn for announcements. Globals already known are
// replayed to fn before it returns.
func (r *Registry) OnGlobal(fn func(Global)) {
	r.mu.Lock()
	r.onGlobal = append(r.onGlobal, fn)
	r.mu.Unlock()
	for _, g := range r.Globals() {
		fn(g)
	}
}

// OnGlobalRemove registers fn for removals.
func (r *Registry) OnGlobalRemove(fn func(Global)) {
	r.mu.Lock()
	r.onRemove = append(r.onRemove, fn)
	r.mu.Unlock()
}

// Bind creates a proxy for the global advertised under name. The request is
// checked against the advertisement first: an unknown name, another
// interface, or an unsupported version fail without allocating an id and
// leave the connection open.
func (r *Registry) Bind(name uint32, iface *Interface, version uint32) (*Object, error) {
	return r.BindQueue(nil, name, iface, version)
}

// BindQueue is Bind with the new proxy assigned to q.
func (r *Registry) BindQueue(q *Queue, name uint32, iface *Interface, version uint32) (*Object, error) {
	if err := ensureRegistered(iface); err != nil {
		return nil, err
	}
	g, ok := r.Lookup(name)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownGlobal, "name %d", name)
	}
	if g.Interface != iface.Name {
		return nil, errors.Wrapf(ErrInterfaceMismatch, "global %d is %s, not %s", name, g.Interface, iface.Name)
	}
	if supported := min(g.Version, iface.Version); version == 0 || version > supported {
		return nil, &VersionError{Interface: iface.Name, Requested: version, Supported: supported}
	}

	return r.conn.display.SendNewOnQueue(q, DisplayRequestBind, iface, version,
		wire.Uint(name), wire.String(iface.Name), wire.Uint(version), wire.NewID(0))
}

func (r *Registry) add(g Global) {
	r.mu.Lock()
	if _, ok := r.globals[g.Name]; !ok {
		r.order = append(r.order, g.Name)
	}
	r.globals[g.Name] = g
	callbacks := r.onGlobal
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(g)
	}
}

func (r *Registry) remove(name uint32) {
	r.mu.Lock()
	g, ok := r.globals[name]
	if ok {
		delete(r.globals, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	callbacks := r.onRemove
	r.mu.Unlock()

	if !ok {
		r.conn.logger.Warn("removal of unknown global", "name", name)
		return
	}
	for _, fn := range callbacks {
		fn(g)
	}
}

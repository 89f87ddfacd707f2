package wayland

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// BindFunc is called when a client binds a global, with the resource created
// for the client. A returned error disconnects the client.
type BindFunc func(res *Object) error

// Global is a server-advertised singleton clients can bind by name. Names are
// allocated per server and never reused.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32

	iface *Interface
	bind  BindFunc
}

func (g Global) String() string {
	return fmt.Sprintf("%s v%d (name %d)", g.Interface, g.Version, g.Name)
}

// Client is a connection accepted by a Server.
type Client struct {
	server *Server
	conn   *Conn
}

func (cl *Client) Conn() *Conn { return cl.conn }

func (cl *Client) Server() *Server { return cl.server }

// Close disconnects the client.
func (cl *Client) Close() error { return cl.conn.Close() }

// announce sends a global event to one client.
func (cl *Client) announce(g *Global) error {
	return cl.conn.display.Send(DisplayEventGlobal, wire.Uint(g.Name), wire.String(g.Interface), wire.Uint(g.Version))
}

// CreateGlobal advertises iface at version to every client, present and
// future. bind runs for each successful bind.
func (s *Server) CreateGlobal(iface *Interface, version uint32, bind BindFunc) (*Global, error) {
	if version == 0 || version > iface.Version {
		return nil, &VersionError{Interface: iface.Name, Requested: version, Supported: iface.Version}
	}
	if err := RegisterInterface(iface); err != nil {
		return nil, err
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrServerClosed
	}
	s.nextName++
	g := &Global{Name: s.nextName, Interface: iface.Name, Version: version, iface: iface, bind: bind}
	s.globals[g.Name] = g
	s.order = append(s.order, g.Name)
	clients := s.clientList()
	s.mu.Unlock()

	s.logger.Debug("global created", "global", g.String())
	for _, cl := range clients {
		if err := cl.announce(g); err == nil {
			_ = cl.conn.Flush()
		}
	}
	return g, nil
}

// RemoveGlobal withdraws g. Clients racing a bind against the removal get an
// inert object; the name is never advertised again.
func (s *Server) RemoveGlobal(g *Global) {
	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	s.mu.Lock()
	if _, ok := s.globals[g.Name]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.globals, g.Name)
	for i, name := range s.order {
		if name == g.Name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.removed[g.Name] = g
	clients := s.clientList()
	s.mu.Unlock()

	s.logger.Debug("global removed", "global", g.String())
	for _, cl := range clients {
		if err := cl.conn.display.Send(DisplayEventGlobalRemove, wire.Uint(g.Name)); err == nil {
			_ = cl.conn.Flush()
		}
	}
}

// Globals returns the live globals in creation order.
func (s *Server) Globals() []*Global {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Global, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.globals[name])
	}
	return out
}

// bindResource checks a client's bind request and creates the resource as
// soon as the request is read, so later messages in the same read can use the
// new id. Every check happens before the resource is created. The bind
// callback runs later, when the request is dispatched.
func (cl *Client) bindResource(name uint32, ifaceName string, version uint32, id ObjectID) (*Object, error) {
	s := cl.server
	display := cl.conn.display

	s.mu.Lock()
	g, live := s.globals[name]
	if !live {
		g = s.removed[name]
	}
	s.mu.Unlock()

	if g == nil {
		return nil, protocolError(display, DisplayErrorInvalidObject, errors.Wrapf(ErrUnknownGlobal, "name %d", name))
	}
	if g.Interface != ifaceName {
		return nil, protocolError(display, DisplayErrorInvalidObject,
			errors.Wrapf(ErrInterfaceMismatch, "global %d is %s, not %s", name, g.Interface, ifaceName))
	}
	if version == 0 || version > g.Version {
		return nil, protocolError(display, DisplayErrorInvalidObject,
			&VersionError{Interface: g.Interface, Requested: version, Supported: g.Version})
	}

	res, err := cl.conn.NewResource(g.iface, version, id)
	if err != nil {
		return nil, protocolError(display, DisplayErrorInvalidObject, err)
	}
	if live {
		res.global = g
	} else {
		s.logger.Debug("bind to removed global", "global", g.String(), "resource", res.String())
	}
	return res, nil
}

// runBind calls the bind callback of the global res was bound to. Resources
// bound to a removed global stay inert.
func runBind(res *Object) error {
	if res == nil || res.global == nil || res.global.bind == nil {
		return nil
	}
	return res.global.bind(res)
}

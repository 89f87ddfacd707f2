package wayland

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Zereker/wayland/wire"
)

// Handler receives the messages addressed to an object: events on clients,
// requests on servers. A returned error is fatal for the connection; servers
// report it to the client as a display error before disconnecting.
type Handler interface {
	Dispatch(obj *Object, msg Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(obj *Object, msg Message) error

func (f HandlerFunc) Dispatch(obj *Object, msg Message) error {
	return f(obj, msg)
}

// Object is one protocol object on a connection: a proxy on clients and a
// resource on servers. Objects are created by the connection, never directly.
type Object struct {
	conn    *Conn
	id      ObjectID
	iface   *Interface
	version uint32
	// global is the live global a server resource was bound to.
	global *Global

	destroyed atomic.Bool
	// acked is set once the peer can no longer address the object.
	acked atomic.Bool
	freed atomic.Bool
	// pending counts messages queued for this object and not yet dispatched.
	pending atomic.Int32

	mu       sync.Mutex
	handler  Handler
	queue    *Queue
	userData any
}

func newObject(c *Conn, iface *Interface, version uint32, q *Queue) *Object {
	return &Object{conn: c, iface: iface, version: version, queue: q}
}

func (o *Object) ID() ObjectID { return o.id }

func (o *Object) Interface() *Interface { return o.iface }

func (o *Object) Version() uint32 { return o.version }

func (o *Object) Conn() *Conn { return o.conn }

// Alive reports whether the object has not been destroyed locally.
func (o *Object) Alive() bool { return !o.destroyed.Load() }

// SetHandler installs the handler for incoming messages.
func (o *Object) SetHandler(h Handler) {
	o.mu.Lock()
	o.handler = h
	o.mu.Unlock()
}

func (o *Object) Handler() Handler {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.handler
}

// SetQueue moves future messages for the object to q. Messages already
// queued stay where they are.
func (o *Object) SetQueue(q *Queue) {
	if q == nil {
		q = o.conn.queue
	}
	o.mu.Lock()
	o.queue = q
	o.mu.Unlock()
}

func (o *Object) Queue() *Queue {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue
}

// UserData returns the application value attached to the object.
func (o *Object) UserData() any {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.userData
}

func (o *Object) SetUserData(v any) {
	o.mu.Lock()
	o.userData = v
	o.mu.Unlock()
}

// Send queues a message without a new_id argument. Nothing reaches the socket
// until the connection is flushed. A destructor message destroys the object.
func (o *Object) Send(opcode uint16, args ...wire.Argument) error {
	_, err := o.conn.send(o, opcode, args, nil, 0, nil)
	return err
}

// SendNew queues a message carrying a new_id argument and returns the object
// it creates. For a typed new_id iface may be nil and version 0, in which case
// the interface named by the table and the sender's version are used. The new
// object starts on the sender's queue. The placeholder value of the new_id
// argument is replaced by the allocated id.
func (o *Object) SendNew(opcode uint16, iface *Interface, version uint32, args ...wire.Argument) (*Object, error) {
	return o.conn.send(o, opcode, args, iface, version, nil)
}

// SendNewOnQueue is SendNew with the new object assigned to q before the
// message is queued, so no reply can be routed elsewhere.
func (o *Object) SendNewOnQueue(q *Queue, opcode uint16, iface *Interface, version uint32, args ...wire.Argument) (*Object, error) {
	return o.conn.send(o, opcode, args, iface, version, q)
}

// Destroy releases the object locally without sending anything. Objects whose
// interface has a destructor request are normally destroyed by sending it.
// On servers, destroying a client-allocated object tells the client the id
// is free.
func (o *Object) Destroy() {
	o.conn.destroy(o)
}

// PostError reports a protocol error against the object and disconnects the
// client. It is only meaningful on servers.
func (o *Object) PostError(code uint32, format string, args ...any) error {
	pe := &ProtocolError{
		ObjectID:  o.id,
		Interface: o.iface.Name,
		Code:      code,
		Message:   fmt.Sprintf(format, args...),
	}
	return o.conn.fatal(pe)
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%d", o.iface.Name, o.id)
}

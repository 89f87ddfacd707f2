// Package wayland implements the wire protocol engine shared by display
// clients and compositors: the object model, the dispatch engine with its
// event queues, and the global registry handshake.
package wayland

import (
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// Side is the role of a connection endpoint.
type Side int

const (
	ClientSide Side = iota
	ServerSide
)

func (s Side) String() string {
	if s == ServerSide {
		return "server"
	}
	return "client"
}

// State is the position of a connection in its read loop.
type State int32

const (
	StateConnected State = iota
	StateReadPending
	StateDecoding
	StateRouting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateReadPending:
		return "read-pending"
	case StateDecoding:
		return "decoding"
	case StateRouting:
		return "routing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// outFD is a descriptor queued for sending, with the offset in the out
// buffer of the message it belongs to.
type outFD struct {
	fd int
	at int
}

// Conn is one end of a protocol connection.
//
// Locking: writeMu serializes the out buffer and is held across id
// allocation, encoding and destruction in send, so ids reach the wire in
// allocation order. mu guards the object arena and may be taken while
// holding writeMu, never the reverse. rmu guards the reader hand-off and is
// never held while taking another lock except a queue's.
type Conn struct {
	side    Side
	sock    *wire.Socket
	logger  Logger
	metrics *Metrics
	opts    options

	rmu      sync.Mutex
	readCond *sync.Cond
	reading  bool
	readSeq  uint64
	in       wire.Buffer // owned by the goroutine with reading set
	inFDs    wire.FDQueue

	writeMu sync.Mutex
	out     wire.Buffer
	outFDs  []outFD

	mu      sync.Mutex
	objects objectMap
	queues  []*Queue

	display  *Object
	queue    *Queue
	registry *Registry
	client   *Client

	state  atomic.Int32
	closed atomic.Bool
	errMu  sync.Mutex
	err    error
}

// NewConn creates the client end of a connection over an established socket.
func NewConn(conn *net.UnixConn, opt ...Option) (*Conn, error) {
	opts, err := buildOptions(opt)
	if err != nil {
		return nil, err
	}
	return newConn(conn, ClientSide, opts), nil
}

func newConn(uc *net.UnixConn, side Side, opts options) *Conn {
	c := &Conn{
		side:    side,
		sock:    wire.NewSocket(uc),
		logger:  opts.logger,
		metrics: opts.metrics,
		opts:    opts,
		objects: newObjectMap(),
	}
	c.readCond = sync.NewCond(&c.rmu)
	c.queue = c.NewQueue()

	c.display = newObject(c, DisplayInterface, DisplayInterface.Version, c.queue)
	c.display.id = DisplayID
	_ = c.objects.insertAt(DisplayID, c.display)

	if side == ClientSide {
		c.registry = newRegistry(c)
		c.display.SetHandler(clientDisplay{c})
	}

	c.metrics.connOpened()
	c.metrics.objectCreated()
	c.logger.Debug("connection established", "side", side.String())
	return c
}

// Connect opens a client connection using the process environment.
func Connect(opt ...Option) (*Conn, error) {
	return ConnectConfig(ConfigFromEnv(), opt...)
}

// ConnectConfig opens a client connection described by cfg. An inherited
// socket takes precedence over the socket path.
func ConnectConfig(cfg Config, opt ...Option) (*Conn, error) {
	if cfg.Debug {
		opt = append([]Option{DebugOption(true)}, opt...)
	}

	if cfg.Socket != nil {
		fc, err := net.FileConn(cfg.Socket)
		_ = cfg.Socket.Close()
		if err != nil {
			return nil, errors.Wrap(err, "wayland: inherited socket")
		}
		uc, ok := fc.(*net.UnixConn)
		if !ok {
			fc.Close()
			return nil, errors.New("wayland: inherited socket is not a unix socket")
		}
		return NewConn(uc, opt...)
	}

	path, err := cfg.SocketPath()
	if err != nil {
		return nil, err
	}
	uc, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, errors.Wrapf(err, "wayland: connect to %s", path)
	}
	return NewConn(uc, opt...)
}

func (c *Conn) Side() Side { return c.side }

// Display returns the display object at id 1.
func (c *Conn) Display() *Object { return c.display }

// Registry returns the client's view of the advertised globals. It is nil on
// server connections.
func (c *Conn) Registry() *Registry { return c.registry }

// Client returns the server-side client record, nil on client connections.
func (c *Conn) Client() *Client { return c.client }

// DefaultQueue returns the queue new objects are assigned to by default.
func (c *Conn) DefaultQueue() *Queue { return c.queue }

// State reports where the connection is in its read loop.
func (c *Conn) State() State {
	if c.closed.Load() {
		return StateClosed
	}
	return State(c.state.Load())
}

func (c *Conn) setState(s State) {
	c.state.Store(int32(s))
}

// Err returns the error that closed the connection, or nil while it is open
// or when it was closed with Close.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// Object returns the object currently stored under id. It may be a destroyed
// object whose id has not been reused yet.
func (c *Conn) Object(id ObjectID) *Object {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.lookup(id)
}

// ObjectCount returns the number of live objects, the display included.
func (c *Conn) ObjectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.live()
}

// NextID returns the id the next locally created object will get.
func (c *Conn) NextID() ObjectID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.objects.peek(c.side == ServerSide)
}

// Readable waits up to timeout for incoming data without consuming it.
// Callers use it to bound a later blocking dispatch.
func (c *Conn) Readable(timeout time.Duration) (bool, error) {
	if c.closed.Load() {
		return false, ErrConnectionClosed
	}
	return c.sock.Readable(timeout)
}

// Dispatch dispatches the default queue, blocking for input when it is empty.
func (c *Conn) Dispatch() (int, error) { return c.queue.Dispatch() }

// DispatchPending dispatches what the default queue already holds.
func (c *Conn) DispatchPending() (int, error) { return c.queue.DispatchPending() }

// Roundtrip blocks until the server has processed every request sent so far.
func (c *Conn) Roundtrip() error { return c.queue.Roundtrip() }

// NewResource creates the server-side object for an id the client chose in
// an untyped new_id argument, as bind does.
func (c *Conn) NewResource(iface *Interface, version uint32, id ObjectID) (*Object, error) {
	if c.side != ServerSide {
		return nil, errors.New("wayland: NewResource on a client connection")
	}
	if id.IsServerID() {
		return nil, errors.Wrapf(ErrInvalidObject, "new id %d outside client range", id)
	}
	if err := ensureRegistered(iface); err != nil {
		return nil, err
	}
	obj := newObject(c, iface, version, c.queue)
	obj.id = id

	c.mu.Lock()
	err := c.objects.insertAt(id, obj)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.metrics.objectCreated()
	return obj, nil
}

// Flush writes every queued message. Messages with descriptors are split
// across sendmsg calls only when they carry more descriptors than one call
// can hold. Flushing an empty buffer does nothing.
func (c *Conn) Flush() error {
	c.writeMu.Lock()

	if c.closed.Load() {
		c.writeMu.Unlock()
		return ErrConnectionClosed
	}
	err := c.flushLocked()
	if err == nil {
		c.writeMu.Unlock()
		return nil
	}
	first := c.markClosed(err)
	c.discardOutLocked()
	c.writeMu.Unlock()

	if !first {
		return ErrConnectionClosed
	}
	c.shutdown(err)
	return err
}

func (c *Conn) flushLocked() error {
	data := c.out.Bytes()
	pending := c.outFDs
	start := 0

	for start < len(data) {
		end, n := len(data), len(pending)
		if n > wire.MaxFDsPerCall {
			n = wire.MaxFDsPerCall
			end = pending[n].at
		}
		fds := make([]int, n)
		for i := range fds {
			fds[i] = pending[i].fd
		}
		if err := c.sock.WriteMsg(data[start:end], fds); err != nil {
			return errors.Wrap(err, "wayland: flush")
		}
		wire.CloseFDs(fds)
		c.metrics.write()
		c.metrics.transfer(directionOut, end-start, n)

		start = end
		pending = pending[n:]
		c.outFDs = pending
	}
	c.out.Reset()
	c.outFDs = nil
	return nil
}

// discardOutLocked drops unsent bytes and closes their descriptors.
func (c *Conn) discardOutLocked() {
	for _, o := range c.outFDs {
		wire.CloseFDs([]int{o.fd})
	}
	c.outFDs = nil
	c.out.Reset()
}

func (c *Conn) outgoing(iface *Interface, opcode uint16) (*MessageDesc, bool) {
	if c.side == ServerSide {
		return iface.Event(opcode)
	}
	return iface.Request(opcode)
}

func (c *Conn) incoming(iface *Interface, opcode uint16) (*MessageDesc, bool) {
	if c.side == ServerSide {
		return iface.Request(opcode)
	}
	return iface.Event(opcode)
}

// send validates and queues one message from obj. When the message has a
// new_id argument the created object is returned.
func (c *Conn) send(obj *Object, opcode uint16, args []wire.Argument, iface *Interface, version uint32, q *Queue) (*Object, error) {
	desc, ok := c.outgoing(obj.iface, opcode)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidOpcode, "%s opcode %d", obj, opcode)
	}
	if desc.Since > obj.version {
		return nil, &VersionError{Interface: obj.iface.Name, Message: desc.Name, Requested: desc.Since, Supported: obj.version}
	}
	if err := checkArgs(obj.iface, desc, args); err != nil {
		return nil, err
	}

	newArg := desc.NewIDArg()
	if newArg >= 0 {
		var err error
		if iface, version, err = c.newIDTarget(obj, desc, args, iface, version); err != nil {
			return nil, err
		}
		if q == nil {
			q = obj.Queue()
		}
	} else if iface != nil {
		return nil, &SignatureError{Interface: obj.iface.Name, Message: desc.Name, Reason: "message creates no object"}
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}
	if obj.destroyed.Load() {
		return nil, errors.Wrapf(ErrObjectDestroyed, "%s.%s", obj, desc.Name)
	}
	if err := c.checkObjectArgs(obj, desc, args); err != nil {
		return nil, err
	}

	out := make([]wire.Argument, len(args))
	copy(out, args)

	var created *Object
	if newArg >= 0 {
		created = newObject(c, iface, version, q)
		c.mu.Lock()
		id, err := c.objects.allocate(c.side == ServerSide, created)
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		created.id = id
		out[newArg].Value = uint32(id)
	}

	var dups []int
	fail := func(err error) (*Object, error) {
		wire.CloseFDs(dups)
		if created != nil {
			c.mu.Lock()
			c.objects.discard(created.id)
			c.mu.Unlock()
		}
		return nil, err
	}
	for i := range out {
		if out[i].Type != wire.ArgFD {
			continue
		}
		fd, err := wire.DupFD(out[i].FD)
		if err != nil {
			return fail(err)
		}
		dups = append(dups, fd)
		out[i].FD = fd
	}

	at := c.out.Len()
	fds, err := c.out.AppendMessage(wire.Message{Sender: uint32(obj.id), Opcode: opcode, Args: out})
	if err != nil {
		return fail(errors.Wrapf(err, "%s.%s", obj, desc.Name))
	}
	for _, fd := range fds {
		c.outFDs = append(c.outFDs, outFD{fd: fd, at: at})
	}

	c.trace(" ->", obj, desc, out)
	c.metrics.message(directionOut, obj.iface.Name)
	if created != nil {
		c.metrics.objectCreated()
	}
	if desc.Destructor {
		c.destroyLocked(obj)
	}
	return created, nil
}

// newIDTarget resolves the interface and version of the object a message
// creates. Typed new_id arguments inherit the sender's version.
func (c *Conn) newIDTarget(obj *Object, desc *MessageDesc, args []wire.Argument, iface *Interface, version uint32) (*Interface, uint32, error) {
	a := desc.Args[desc.NewIDArg()]
	bad := func(reason string) (*Interface, uint32, error) {
		return nil, 0, &SignatureError{Interface: obj.iface.Name, Message: desc.Name, Reason: reason}
	}

	if a.Interface != "" {
		if iface == nil {
			var err error
			if iface, err = lookupInterface(a.Interface); err != nil {
				return nil, 0, err
			}
		} else if iface.Name != a.Interface {
			return bad("new object must be " + a.Interface + ", not " + iface.Name)
		}
		if version == 0 {
			version = obj.version
		}
		return iface, version, nil
	}

	if iface == nil {
		return bad("untyped new_id needs an interface")
	}
	k := desc.NewIDArg()
	if args[k-2].Str != iface.Name || args[k-1].Value != version {
		return bad("interface and version arguments do not describe the new object")
	}
	if version == 0 || version > iface.Version {
		return nil, 0, &VersionError{Interface: iface.Name, Requested: version, Supported: iface.Version}
	}
	return iface, version, nil
}

// checkArgs matches args against the table entry.
func checkArgs(iface *Interface, desc *MessageDesc, args []wire.Argument) error {
	bad := func(format string, v ...any) error {
		return &SignatureError{Interface: iface.Name, Message: desc.Name, Reason: fmt.Sprintf(format, v...)}
	}
	if len(args) != len(desc.Args) {
		return bad("got %d arguments, want %d", len(args), len(desc.Args))
	}
	for i, a := range desc.Args {
		got := args[i]
		if got.Type != a.Type {
			return bad("argument %s is %s, want %s", a.Name, got.Type, a.Type)
		}
		switch a.Type {
		case wire.ArgString:
			if got.Null && !a.Nullable {
				return bad("argument %s is not nullable", a.Name)
			}
		case wire.ArgObject:
			if got.Value == 0 && !a.Nullable {
				return bad("argument %s is not nullable", a.Name)
			}
		}
	}
	return nil
}

// checkObjectArgs rejects references to unknown or destroyed objects.
func (c *Conn) checkObjectArgs(obj *Object, desc *MessageDesc, args []wire.Argument) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range desc.Args {
		if a.Type != wire.ArgObject || args[i].Value == 0 {
			continue
		}
		ref := c.objects.lookup(ObjectID(args[i].Value))
		switch {
		case ref == nil:
			return errors.Wrapf(ErrInvalidObject, "%s.%s argument %s: id %d", obj, desc.Name, a.Name, args[i].Value)
		case ref.destroyed.Load():
			return errors.Wrapf(ErrObjectDestroyed, "%s.%s argument %s: %s", obj, desc.Name, a.Name, ref)
		case a.Interface != "" && ref.iface.Name != a.Interface:
			return &SignatureError{Interface: obj.iface.Name, Message: desc.Name,
				Reason: fmt.Sprintf("argument %s must be %s, not %s", a.Name, a.Interface, ref.iface.Name)}
		}
	}
	return nil
}

// appendLocked queues an engine-generated message without validation.
func (c *Conn) appendLocked(obj *Object, opcode uint16, args ...wire.Argument) {
	if _, err := c.out.AppendMessage(wire.Message{Sender: uint32(obj.id), Opcode: opcode, Args: args}); err != nil {
		c.logger.Warn("failed to queue message", "object", obj.String(), "opcode", opcode, "error", err)
		return
	}
	if desc, ok := c.outgoing(obj.iface, opcode); ok {
		c.trace(" ->", obj, desc, args)
	}
	c.metrics.message(directionOut, obj.iface.Name)
}

func (c *Conn) destroy(obj *Object) {
	c.writeMu.Lock()
	c.destroyLocked(obj)
	c.writeMu.Unlock()
}

// destroyLocked marks obj destroyed. A server tells the client when one of
// the client's ids becomes free; a client keeps its own ids until told so.
func (c *Conn) destroyLocked(obj *Object) {
	if obj == c.display || obj.destroyed.Swap(true) {
		return
	}
	c.metrics.objectDestroyed()

	switch {
	case obj.id.IsServerID():
		obj.acked.Store(true)
	case c.side == ServerSide:
		if !c.closed.Load() {
			c.appendLocked(c.display, DisplayEventDeleteID, wire.Uint(uint32(obj.id)))
		}
		obj.acked.Store(true)
	}
	c.maybeRelease(obj)
}

// maybeRelease returns an id of the local range to the allocator once the
// object is destroyed, acknowledged and no queued message refers to it.
func (c *Conn) maybeRelease(obj *Object) {
	if !obj.destroyed.Load() || !obj.acked.Load() || obj.pending.Load() != 0 {
		return
	}
	if obj.id.IsServerID() != (c.side == ServerSide) {
		return
	}
	if obj.freed.Swap(true) {
		return
	}
	c.mu.Lock()
	if c.objects.lookup(obj.id) == obj {
		c.objects.free(obj.id)
	}
	c.mu.Unlock()
}

// ReadEvents reads once from the socket and routes every complete message.
// If another goroutine is already reading, it waits for that read instead.
func (c *Conn) ReadEvents() error {
	return c.readEvents(nil)
}

// readEvents lets exactly one goroutine read at a time. Waiters for a queue
// return as soon as a finished read gave their queue something to dispatch.
func (c *Conn) readEvents(q *Queue) error {
	c.rmu.Lock()
	seq := c.readSeq
	for {
		if c.closed.Load() {
			c.rmu.Unlock()
			return ErrConnectionClosed
		}
		if q != nil && q.Len() > 0 || q == nil && c.readSeq != seq {
			c.rmu.Unlock()
			return nil
		}
		if !c.reading {
			break
		}
		c.readCond.Wait()
	}
	c.reading = true
	c.rmu.Unlock()

	err := c.readOnce()

	c.rmu.Lock()
	c.reading = false
	c.readSeq++
	if c.closed.Load() {
		c.inFDs.CloseAll()
	}
	c.readCond.Broadcast()
	c.rmu.Unlock()
	return err
}

func (c *Conn) readOnce() error {
	c.setState(StateReadPending)
	buf := c.in.Grow(c.opts.readSize)
	n, fds, err := c.sock.ReadMsg(buf)
	c.inFDs.Push(fds...)
	if n > 0 {
		c.in.Commit(n)
	}
	c.metrics.transfer(directionIn, n, len(fds))
	if err != nil {
		if c.closed.Load() {
			return ErrConnectionClosed
		}
		if errors.Is(err, io.EOF) {
			return c.fatal(errors.Wrap(err, "wayland: peer closed the connection"))
		}
		return c.fatal(errors.Wrap(err, "wayland: read"))
	}

	for {
		c.setState(StateDecoding)
		f, size, err := wire.ReadFrame(c.in.Bytes())
		if errors.Is(err, wire.ErrShortBuffer) {
			break
		}
		if err != nil {
			return c.fatal(err)
		}

		c.setState(StateRouting)
		err = c.route(f)
		c.in.Consume(size)
		if err != nil {
			return c.fatal(err)
		}
		if c.closed.Load() {
			return ErrConnectionClosed
		}
	}
	c.setState(StateConnected)
	return nil
}

// peerError attributes a violation by the peer to obj. Servers report it to
// the client; clients just close.
func (c *Conn) peerError(obj *Object, code uint32, cause error) error {
	if c.side == ServerSide {
		return protocolError(obj, code, cause)
	}
	return cause
}

// route decodes one frame and hands it to its object's queue.
func (c *Conn) route(f wire.Frame) error {
	c.mu.Lock()
	target := c.objects.lookup(ObjectID(f.Sender))
	c.mu.Unlock()
	if target == nil {
		return c.peerError(c.display, DisplayErrorInvalidObject,
			errors.Wrapf(ErrInvalidObject, "message for unknown object %d", f.Sender))
	}

	desc, ok := c.incoming(target.iface, f.Opcode)
	if !ok {
		return c.peerError(target, DisplayErrorInvalidMethod,
			errors.Wrapf(ErrInvalidOpcode, "%s opcode %d", target, f.Opcode))
	}
	wm, err := f.Decode(desc.Signature(), &c.inFDs)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", target, desc.Name)
	}
	msg := Message{Opcode: f.Opcode, Desc: desc, Args: wm.Args}
	if desc.Since > target.version {
		msg.closeFDs()
		return c.peerError(target, DisplayErrorInvalidMethod, &SignatureError{
			Interface: target.iface.Name,
			Message:   desc.Name,
			Reason:    fmt.Sprintf("requires version %d, object has %d", desc.Since, target.version),
		})
	}
	c.metrics.message(directionIn, target.iface.Name)

	if err := c.resolve(target, &msg); err != nil {
		msg.closeFDs()
		return err
	}

	if c.side == ClientSide && target == c.display &&
		(f.Opcode == DisplayEventError || f.Opcode == DisplayEventDeleteID) {
		c.trace("<- ", target, desc, msg.Args)
		return target.Handler().Dispatch(target, msg)
	}

	if target.destroyed.Load() && target.acked.Load() {
		c.drop(target, msg)
		return nil
	}
	target.pending.Add(1)
	target.Queue().push(target, msg)
	return nil
}

// resolve looks up object arguments and creates the objects of new_id
// arguments.
func (c *Conn) resolve(target *Object, msg *Message) error {
	desc := msg.Desc
	for i, a := range desc.Args {
		arg := msg.Args[i]
		switch a.Type {
		case wire.ArgString:
			if arg.Null && !a.Nullable {
				return c.peerError(target, DisplayErrorInvalidMethod, &SignatureError{
					Interface: target.iface.Name, Message: desc.Name, Reason: "null string " + a.Name})
			}

		case wire.ArgObject:
			id := ObjectID(arg.Value)
			if id == 0 {
				if !a.Nullable {
					return c.peerError(target, DisplayErrorInvalidMethod, &SignatureError{
						Interface: target.iface.Name, Message: desc.Name, Reason: "null object " + a.Name})
				}
				continue
			}
			c.mu.Lock()
			ref := c.objects.lookup(id)
			c.mu.Unlock()
			if ref == nil {
				// A display error may name an object this side never saw.
				if c.side == ClientSide && target == c.display {
					continue
				}
				return c.peerError(target, DisplayErrorInvalidObject,
					errors.Wrapf(ErrInvalidObject, "%s.%s argument %s: id %d", target, desc.Name, a.Name, id))
			}
			if c.side == ServerSide && ref.destroyed.Load() {
				return c.peerError(target, DisplayErrorInvalidObject,
					errors.Wrapf(ErrObjectDestroyed, "%s.%s argument %s: %s", target, desc.Name, a.Name, ref))
			}
			if a.Interface != "" && ref.iface.Name != a.Interface {
				return c.peerError(target, DisplayErrorInvalidMethod, &SignatureError{
					Interface: target.iface.Name, Message: desc.Name,
					Reason: fmt.Sprintf("argument %s must be %s, not %s", a.Name, a.Interface, ref.iface.Name)})
			}
			if msg.objects == nil {
				msg.objects = make([]*Object, len(msg.Args))
			}
			msg.objects[i] = ref

		case wire.ArgNewID:
			obj, err := c.createPeerObject(target, desc, msg.Args, i)
			if err != nil {
				return err
			}
			if obj == nil {
				continue
			}
			if msg.objects == nil {
				msg.objects = make([]*Object, len(msg.Args))
			}
			msg.objects[i] = obj
		}
	}
	return nil
}

// createPeerObject inserts the object named by a new_id argument of an
// incoming message. On servers an untyped new_id on the display is a bind.
func (c *Conn) createPeerObject(target *Object, desc *MessageDesc, args []wire.Argument, i int) (*Object, error) {
	id := ObjectID(args[i].Value)
	if id == 0 || id.IsServerID() == (c.side == ServerSide) {
		return nil, c.peerError(target, DisplayErrorInvalidObject,
			errors.Wrapf(ErrInvalidObject, "%s.%s: new id %d outside peer range", target, desc.Name, id))
	}

	a := desc.Args[i]
	var (
		iface   *Interface
		version uint32
		err     error
	)
	if a.Interface == "" {
		if c.side == ServerSide && target == c.display && c.client != nil {
			return c.client.bindResource(args[i-3].Value, args[i-2].Str, args[i-1].Value, id)
		}
		version = args[i-1].Value
		iface, err = lookupInterface(args[i-2].Str)
	} else {
		version = target.version
		iface, err = lookupInterface(a.Interface)
	}
	if err != nil {
		return nil, c.peerError(target, DisplayErrorInvalidMethod, err)
	}

	obj := newObject(c, iface, version, target.Queue())
	obj.id = id
	c.mu.Lock()
	err = c.objects.insertAt(id, obj)
	c.mu.Unlock()
	if err != nil {
		return nil, c.peerError(target, DisplayErrorInvalidObject, err)
	}
	c.metrics.objectCreated()
	return obj, nil
}

// drop discards a message whose target the peer already knows is gone.
// Objects the message created are destroyed with it.
func (c *Conn) drop(target *Object, msg Message) {
	c.logger.Debug("dropping message for destroyed object", "object", target.String(), "message", msg.Desc.Name)
	c.metrics.drop()
	msg.closeFDs()
	if i := msg.Desc.NewIDArg(); i >= 0 {
		if obj := msg.Object(i); obj != nil {
			c.destroy(obj)
		}
	}
}

// dispatchOne runs the handler of one queued message. It reports whether a
// handler was run.
func (c *Conn) dispatchOne(target *Object, msg Message) (bool, error) {
	defer func() {
		target.pending.Add(-1)
		c.maybeRelease(target)
	}()

	if target.destroyed.Load() && target.acked.Load() {
		c.drop(target, msg)
		return false, nil
	}
	c.trace("<- ", target, msg.Desc, msg.Args)

	h := target.Handler()
	if h == nil {
		h = c.opts.unhandled
	}
	var err error
	if h != nil {
		err = h.Dispatch(target, msg)
	} else {
		c.logger.Debug("no handler for message", "object", target.String(), "message", msg.Desc.Name)
		msg.closeFDs()
	}
	if msg.Desc.Destructor {
		c.destroy(target)
	}
	if err != nil {
		if c.closed.Load() {
			return true, ErrConnectionClosed
		}
		return true, c.fatal(c.handlerError(target, err))
	}
	return true, nil
}

func (c *Conn) handlerError(obj *Object, err error) error {
	var pe *ProtocolError
	if c.side == ServerSide && !errors.As(err, &pe) {
		return protocolError(obj, DisplayErrorImplementation, err)
	}
	return err
}

// markClosed moves the connection to Closed exactly once and records err.
func (c *Conn) markClosed(err error) bool {
	if c.closed.Swap(true) {
		return false
	}
	c.setState(StateClosed)
	if err != nil {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()
		c.metrics.fatal(err)
	}
	return true
}

// fatal closes the connection because of err and returns err to the caller
// that hit it. Later callers get ErrConnectionClosed. A server first tells
// the client what went wrong. writeMu must not be held.
func (c *Conn) fatal(err error) error {
	c.writeMu.Lock()
	if !c.markClosed(err) {
		c.writeMu.Unlock()
		return ErrConnectionClosed
	}
	var pe *ProtocolError
	if c.side == ServerSide && errors.As(err, &pe) && !pe.received {
		c.appendLocked(c.display, DisplayEventError,
			wire.Object(uint32(pe.ObjectID)), wire.Uint(pe.Code), wire.String(pe.Message))
	}
	if ferr := c.flushLocked(); ferr != nil {
		c.logger.Debug("flush on close failed", "error", ferr)
	}
	c.discardOutLocked()
	c.writeMu.Unlock()

	c.shutdown(err)
	return err
}

// Close flushes queued messages best-effort and closes the connection.
// It is safe to call more than once.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	if !c.markClosed(nil) {
		c.writeMu.Unlock()
		return nil
	}
	if err := c.flushLocked(); err != nil {
		c.logger.Debug("flush on close failed", "error", err)
	}
	c.discardOutLocked()
	c.writeMu.Unlock()

	c.shutdown(nil)
	return nil
}

// shutdown releases everything a closed connection holds.
func (c *Conn) shutdown(err error) {
	_ = c.sock.Close()

	c.rmu.Lock()
	if !c.reading {
		c.inFDs.CloseAll()
	}
	c.readCond.Broadcast()
	c.rmu.Unlock()

	c.mu.Lock()
	queues := c.queues
	live := c.objects.live()
	c.mu.Unlock()
	for _, q := range queues {
		q.drain()
	}
	c.metrics.connClosed(live)

	if err != nil {
		c.logger.Error("connection closed", "side", c.side.String(), "kind", errorKind(err), "error", err)
		c.opts.onError(err)
	} else {
		c.logger.Debug("connection closed", "side", c.side.String())
	}
	if c.client != nil {
		c.client.server.removeClient(c.client)
	}
}

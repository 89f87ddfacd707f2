package demo_test

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/Zereker/wayland"
	"github.com/Zereker/wayland/protocol/demo"
	"github.com/Zereker/wayland/wire"
)

// compositor is the server side of the tests. Handlers run on the client's
// dispatch goroutine, so everything the test inspects sits behind mu.
type compositor struct {
	mu       sync.Mutex
	surfaces map[wayland.ObjectID]*surfaceState
	output   *demo.Output
	pools    []*poolState
	released []string

	preferredScaleErr error
}

type surfaceState struct {
	title     string
	damage    [4]int32
	region    []byte
	destroyed bool
}

type poolState struct {
	requested int32
	actual    int64
	resized   int32
	destroyed bool
}

func (c *compositor) bindCompositor(res *wayland.Object) error {
	demo.AsCompositor(res).SetImplementation(compositorImpl{c})
	return nil
}

func (c *compositor) bindShm(res *wayland.Object) error {
	shm := demo.AsShm(res)
	shm.SetImplementation(shmImpl{c})
	if err := shm.SendFormat(uint32(demo.ShmFormatArgb8888)); err != nil {
		return err
	}
	return shm.SendFormat(uint32(demo.ShmFormatXrgb8888))
}

func (c *compositor) bindOutput(res *wayland.Object) error {
	out := demo.AsOutput(res)
	out.SetImplementation(outputImpl{c})
	c.mu.Lock()
	c.output = out
	c.mu.Unlock()

	if err := out.SendGeometry(0, 0, "Acme", "Panel 9000"); err != nil {
		return err
	}
	if out.Version() < 2 {
		return nil
	}
	if err := out.SendScale(2); err != nil {
		return err
	}
	return out.SendDone()
}

func (c *compositor) bindSeat(res *wayland.Object) error {
	seat := demo.AsSeat(res)
	seat.SetImplementation(seatImpl{c})
	if err := seat.SendCapabilities(uint32(demo.SeatCapabilityPointer | demo.SeatCapabilityKeyboard)); err != nil {
		return err
	}
	if seat.Version() >= 2 {
		return seat.SendName("seat0")
	}
	return nil
}

func (c *compositor) surface(id wayland.ObjectID) *surfaceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.surfaces[id]
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

type compositorImpl struct{ c *compositor }

func (i compositorImpl) CreateSurface(r *demo.Compositor, id *demo.Surface) error {
	id.SetImplementation(surfaceImpl{i.c})

	i.c.mu.Lock()
	defer i.c.mu.Unlock()
	i.c.surfaces[id.ID()] = &surfaceState{}
	if i.c.output != nil {
		if err := id.SendEnter(i.c.output); err != nil {
			return err
		}
	}
	i.c.preferredScaleErr = id.SendPreferredScale(wire.FixedFromInt(2))
	return nil
}

type surfaceImpl struct{ c *compositor }

func (i surfaceImpl) update(r *demo.Surface, fn func(*surfaceState)) {
	i.c.mu.Lock()
	fn(i.c.surfaces[r.ID()])
	i.c.mu.Unlock()
}

func (i surfaceImpl) Destroy(r *demo.Surface) error {
	i.update(r, func(s *surfaceState) { s.destroyed = true })
	return nil
}

func (i surfaceImpl) Damage(r *demo.Surface, x, y, width, height int32) error {
	if width < 0 || height < 0 {
		return r.PostError(uint32(demo.SurfaceErrorInvalidSize), "negative damage %dx%d", width, height)
	}
	i.update(r, func(s *surfaceState) { s.damage = [4]int32{x, y, width, height} })
	return nil
}

func (i surfaceImpl) Frame(r *demo.Surface, callback *wayland.Object) error {
	return callback.Send(wayland.CallbackEventDone, wire.Uint(42))
}

func (i surfaceImpl) SetTitle(r *demo.Surface, title string) error {
	i.update(r, func(s *surfaceState) { s.title = title })
	return nil
}

func (i surfaceImpl) SetOpaqueRegion(r *demo.Surface, region []byte) error {
	i.update(r, func(s *surfaceState) { s.region = append([]byte(nil), region...) })
	return nil
}

func (i surfaceImpl) SetBufferScale(r *demo.Surface, scale int32) error {
	return nil
}

type shmImpl struct{ c *compositor }

func (i shmImpl) CreatePool(r *demo.Shm, id *demo.ShmPool, fd int, size int32) error {
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return err
	}
	pool := &poolState{requested: size, actual: st.Size}
	id.SetImplementation(poolImpl{c: i.c, pool: pool})

	i.c.mu.Lock()
	i.c.pools = append(i.c.pools, pool)
	i.c.mu.Unlock()
	return nil
}

type poolImpl struct {
	c    *compositor
	pool *poolState
}

func (i poolImpl) Destroy(r *demo.ShmPool) error {
	i.c.mu.Lock()
	i.pool.destroyed = true
	i.c.mu.Unlock()
	return nil
}

func (i poolImpl) Resize(r *demo.ShmPool, size int32) error {
	i.c.mu.Lock()
	i.pool.resized = size
	i.c.mu.Unlock()
	return nil
}

type outputImpl struct{ c *compositor }

func (i outputImpl) Release(r *demo.Output) error {
	i.c.mu.Lock()
	i.c.released = append(i.c.released, r.String())
	i.c.mu.Unlock()
	return nil
}

type seatImpl struct{ c *compositor }

func (i seatImpl) Release(r *demo.Seat) error {
	i.c.mu.Lock()
	i.c.released = append(i.c.released, r.String())
	i.c.mu.Unlock()
	return nil
}

// newSession starts a server advertising the demo globals and connects a
// client to it over a socket pair. The globals are known when it returns.
func newSession(t *testing.T) (*compositor, *wayland.Conn) {
	t.Helper()

	srv, err := wayland.NewServer()
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	comp := &compositor{surfaces: make(map[wayland.ObjectID]*surfaceState)}
	globals := []struct {
		iface   *wayland.Interface
		version uint32
		bind    wayland.BindFunc
	}{
		{demo.CompositorInterface, 1, comp.bindCompositor},
		{demo.ShmInterface, 1, comp.bindShm},
		{demo.OutputInterface, 2, comp.bindOutput},
		{demo.SeatInterface, 4, comp.bindSeat},
	}
	for _, g := range globals {
		if _, err := srv.CreateGlobal(g.iface, g.version, g.bind); err != nil {
			t.Fatalf("CreateGlobal(%s): %v", g.iface.Name, err)
		}
	}

	a, b, err := wire.SocketPair()
	if err != nil {
		t.Fatalf("SocketPair: %v", err)
	}
	if _, err := srv.AddSocket(a); err != nil {
		t.Fatalf("AddSocket: %v", err)
	}
	conn, err := wayland.NewConn(b)
	if err != nil {
		t.Fatalf("NewConn: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		srv.Close()
	})

	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("initial roundtrip: %v", err)
	}
	return comp, conn
}

func bind(t *testing.T, conn *wayland.Conn, iface *wayland.Interface, version uint32) *wayland.Object {
	t.Helper()
	found := conn.Registry().Find(iface.Name)
	if len(found) != 1 {
		t.Fatalf("%s advertised %d times", iface.Name, len(found))
	}
	obj, err := conn.Registry().Bind(found[0].Name, iface, version)
	if err != nil {
		t.Fatalf("Bind(%s): %v", iface.Name, err)
	}
	return obj
}

func TestRegistryAdvertisesGlobals(t *testing.T) {
	_, conn := newSession(t)

	want := []struct {
		iface   string
		version uint32
	}{
		{"wl_compositor", 1},
		{"wl_shm", 1},
		{"wl_output", 2},
		{"wl_seat", 4},
	}
	got := conn.Registry().Globals()
	if len(got) != len(want) {
		t.Fatalf("got %d globals, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Interface != w.iface || got[i].Version != w.version {
			t.Errorf("global %d = %s, want %s v%d", i, got[i], w.iface, w.version)
		}
	}
}

type outputInfo struct {
	make, model string
	scale       int32
	done        bool
}

func (o *outputInfo) Geometry(x, y int32, makeArg, model string) {
	o.make, o.model = makeArg, model
}

func (o *outputInfo) Scale(factor int32) { o.scale = factor }

func (o *outputInfo) Done() { o.done = true }

func TestOutputEventsFollowBoundVersion(t *testing.T) {
	comp, conn := newSession(t)

	v2 := demo.AsOutput(bind(t, conn, demo.OutputInterface, 2))
	var info2 outputInfo
	v2.SetListener(&info2)

	v1 := demo.AsOutput(bind(t, conn, demo.OutputInterface, 1))
	var info1 outputInfo
	v1.SetListener(&info1)

	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	if info2.make != "Acme" || info2.model != "Panel 9000" || info2.scale != 2 || !info2.done {
		t.Errorf("v2 output = %+v", info2)
	}
	if info1.make != "Acme" || info1.scale != 0 || info1.done {
		t.Errorf("v1 output = %+v", info1)
	}

	var verr *wayland.VersionError
	if err := v1.Release(); !errors.As(err, &verr) {
		t.Errorf("release on a v1 output: got %v, want VersionError", err)
	}
	if err := v2.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if v2.Alive() {
		t.Error("released output should be destroyed")
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	comp.mu.Lock()
	defer comp.mu.Unlock()
	if len(comp.released) != 1 {
		t.Errorf("server saw %d releases, want 1", len(comp.released))
	}
}

type seatInfo struct {
	caps demo.SeatCapability
	name string
}

func (s *seatInfo) Capabilities(capabilities uint32) { s.caps = demo.SeatCapability(capabilities) }

func (s *seatInfo) Name(name string) { s.name = name }

func TestSeatCapabilities(t *testing.T) {
	comp, conn := newSession(t)

	seat := demo.AsSeat(bind(t, conn, demo.SeatInterface, 4))
	var info seatInfo
	seat.SetListener(&info)
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	if !info.caps.Has(demo.SeatCapabilityPointer | demo.SeatCapabilityKeyboard) {
		t.Errorf("capabilities = %b, want pointer and keyboard", info.caps)
	}
	if info.caps.Has(demo.SeatCapabilityTouch) {
		t.Error("touch should not be advertised")
	}
	if info.name != "seat0" {
		t.Errorf("name = %q, want seat0", info.name)
	}

	if err := seat.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
	comp.mu.Lock()
	defer comp.mu.Unlock()
	if len(comp.released) != 1 || comp.released[0] != seat.String() {
		t.Errorf("released = %v, want [%s]", comp.released, seat)
	}
}

func TestSeatBindVersion(t *testing.T) {
	_, conn := newSession(t)

	found := conn.Registry().Find(demo.SeatInterface.Name)
	if len(found) != 1 {
		t.Fatalf("wl_seat advertised %d times", len(found))
	}
	next := conn.NextID()

	var verr *wayland.VersionError
	if _, err := conn.Registry().Bind(found[0].Name, demo.SeatInterface, 5); !errors.As(err, &verr) {
		t.Fatalf("bind v5: got %v, want VersionError", err)
	}
	if conn.NextID() != next {
		t.Errorf("rejected bind moved NextID from %d to %d", next, conn.NextID())
	}

	obj, err := conn.Registry().Bind(found[0].Name, demo.SeatInterface, 3)
	if err != nil {
		t.Fatalf("bind v3: %v", err)
	}
	if obj.ID() != next || obj.Version() != 3 || !obj.Alive() {
		t.Errorf("seat = %s v%d", obj, obj.Version())
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
}

type surfaceEvents struct {
	entered []wayland.ObjectID
}

func (s *surfaceEvents) Enter(output *demo.Output) { s.entered = append(s.entered, output.ID()) }

func (s *surfaceEvents) Leave(output *demo.Output) {}

func (s *surfaceEvents) PreferredScale(factor wire.Fixed) {}

func TestSurfaceRequests(t *testing.T) {
	comp, conn := newSession(t)

	output := demo.AsOutput(bind(t, conn, demo.OutputInterface, 2))
	compositor := demo.AsCompositor(bind(t, conn, demo.CompositorInterface, 1))
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	surface, err := compositor.CreateSurface()
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if surface.Version() != 1 {
		t.Errorf("surface version = %d, want the compositor's 1", surface.Version())
	}
	var events surfaceEvents
	surface.SetListener(&events)

	if err := surface.SetTitle("hello"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := surface.Damage(1, 2, 3, 4); err != nil {
		t.Fatalf("Damage: %v", err)
	}
	if err := surface.SetOpaqueRegion([]byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("SetOpaqueRegion: %v", err)
	}
	var verr *wayland.VersionError
	if err := surface.SetBufferScale(2); !errors.As(err, &verr) {
		t.Errorf("SetBufferScale on v1: got %v, want VersionError", err)
	}

	cb, err := surface.Frame()
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	var frameDone uint32
	cb.SetHandler(wayland.HandlerFunc(func(_ *wayland.Object, msg wayland.Message) error {
		frameDone = msg.Uint(0)
		return nil
	}))

	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	st := comp.surface(surface.ID())
	if st == nil {
		t.Fatal("server does not know the surface")
	}
	if st.title != "hello" || st.damage != [4]int32{1, 2, 3, 4} || len(st.region) != 5 {
		t.Errorf("server state = %+v", st)
	}
	if frameDone != 42 {
		t.Errorf("frame done = %d, want 42", frameDone)
	}
	if cb.Alive() {
		t.Error("callback should be destroyed by its done event")
	}
	if len(events.entered) != 1 || events.entered[0] != output.ID() {
		t.Errorf("entered = %v, want [%d]", events.entered, output.ID())
	}

	comp.mu.Lock()
	scaleErr := comp.preferredScaleErr
	comp.mu.Unlock()
	if !errors.As(scaleErr, &verr) {
		t.Errorf("preferred_scale on a v1 surface: got %v, want VersionError", scaleErr)
	}

	// An empty title travels as a null string.
	if err := surface.SetTitle(""); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
	if st := comp.surface(surface.ID()); st.title != "" {
		t.Errorf("title = %q, want empty", st.title)
	}
}

func TestSurfaceDestroyAndIDReuse(t *testing.T) {
	comp, conn := newSession(t)

	compositor := demo.AsCompositor(bind(t, conn, demo.CompositorInterface, 1))
	surface, err := compositor.CreateSurface()
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
	id := surface.ID()

	if err := surface.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if surface.Alive() {
		t.Error("surface should be destroyed")
	}
	if err := surface.Damage(0, 0, 1, 1); !errors.Is(err, wayland.ErrObjectDestroyed) {
		t.Errorf("Damage after destroy: got %v, want ErrObjectDestroyed", err)
	}
	if conn.NextID() == id {
		t.Error("id reused before the server acknowledged the destroy")
	}
	if conn.Object(id) != surface.Object {
		t.Error("destroyed surface should stay in its slot until the id is reused")
	}

	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}
	if st := comp.surface(id); st == nil || !st.destroyed {
		t.Error("server did not see the destroy request")
	}

	reused := false
	for i := 0; i < 2; i++ {
		next, err := compositor.CreateSurface()
		if err != nil {
			t.Fatalf("CreateSurface: %v", err)
		}
		if next.ID() == id {
			reused = true
		}
	}
	if !reused {
		t.Errorf("id %d was not reused after delete_id", id)
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip after reuse: %v", err)
	}
}

type formats []uint32

func (f *formats) Format(format uint32) { *f = append(*f, format) }

func TestShmPoolPassesDescriptor(t *testing.T) {
	comp, conn := newSession(t)

	shm := demo.AsShm(bind(t, conn, demo.ShmInterface, 1))
	var got formats
	shm.SetListener(&got)

	fd, err := unix.MemfdCreate("demo-pool", unix.MFD_CLOEXEC)
	if err != nil {
		t.Skipf("memfd_create: %v", err)
	}
	if err := unix.Ftruncate(fd, 4096); err != nil {
		unix.Close(fd)
		t.Fatalf("Ftruncate: %v", err)
	}

	pool, err := shm.CreatePool(fd, 4096)
	// The connection sends a duplicate; the caller keeps its descriptor.
	unix.Close(fd)
	if err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	if err := pool.Resize(8192); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if err := pool.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := conn.Roundtrip(); err != nil {
		t.Fatalf("Roundtrip: %v", err)
	}

	if len(got) != 2 || got[0] != uint32(demo.ShmFormatArgb8888) || got[1] != uint32(demo.ShmFormatXrgb8888) {
		t.Errorf("formats = %v", got)
	}

	comp.mu.Lock()
	defer comp.mu.Unlock()
	if len(comp.pools) != 1 {
		t.Fatalf("server created %d pools, want 1", len(comp.pools))
	}
	p := comp.pools[0]
	if p.requested != 4096 || p.actual != 4096 || p.resized != 8192 || !p.destroyed {
		t.Errorf("pool = %+v", *p)
	}
}

func TestProtocolErrorDisconnects(t *testing.T) {
	_, conn := newSession(t)

	compositor := demo.AsCompositor(bind(t, conn, demo.CompositorInterface, 1))
	surface, err := compositor.CreateSurface()
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	if err := surface.Damage(0, 0, -1, 10); err != nil {
		t.Fatalf("Damage: %v", err)
	}

	err = conn.Roundtrip()
	var pe *wayland.ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("Roundtrip: got %v, want ProtocolError", err)
	}
	if pe.ObjectID != surface.ID() || pe.Interface != "wl_surface" || pe.Code != uint32(demo.SurfaceErrorInvalidSize) {
		t.Errorf("protocol error = %+v", pe)
	}
	if conn.State() != wayland.StateClosed {
		t.Errorf("state = %s, want closed", conn.State())
	}
	if err := conn.Roundtrip(); !errors.Is(err, wayland.ErrConnectionClosed) {
		t.Errorf("Roundtrip after error: got %v, want ErrConnectionClosed", err)
	}
}

// compositor is a minimal display server advertising the demo protocol. It
// keeps track of surfaces and maps the shared-memory pools clients hand it.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/Zereker/wayland"
	"github.com/Zereker/wayland/protocol/demo"
	"github.com/Zereker/wayland/wire"
)

type compositor struct {
	logger *slog.Logger

	mu       sync.Mutex
	surfaces map[*demo.Surface]string
	outputs  map[*wayland.Client][]*demo.Output
}

func (c *compositor) bindCompositor(res *wayland.Object) error {
	demo.AsCompositor(res).SetImplementation(c)
	return nil
}

func (c *compositor) bindShm(res *wayland.Object) error {
	shm := demo.AsShm(res)
	shm.SetImplementation(c)
	if err := shm.SendFormat(uint32(demo.ShmFormatArgb8888)); err != nil {
		return err
	}
	return shm.SendFormat(uint32(demo.ShmFormatXrgb8888))
}

func (c *compositor) bindOutput(res *wayland.Object) error {
	out := demo.AsOutput(res)
	out.SetImplementation(outputImpl{c})

	c.mu.Lock()
	cl := res.Conn().Client()
	c.outputs[cl] = append(c.outputs[cl], out)
	c.mu.Unlock()

	if err := out.SendGeometry(0, 0, "Zereker", "Virtual-1"); err != nil {
		return err
	}
	if out.Version() >= 2 {
		if err := out.SendScale(1); err != nil {
			return err
		}
		return out.SendDone()
	}
	return nil
}

func (c *compositor) bindSeat(res *wayland.Object) error {
	seat := demo.AsSeat(res)
	seat.SetImplementation(seatImpl{})
	if err := seat.SendCapabilities(uint32(demo.SeatCapabilityPointer | demo.SeatCapabilityKeyboard)); err != nil {
		return err
	}
	if seat.Version() >= 2 {
		return seat.SendName("seat0")
	}
	return nil
}

func (c *compositor) CreateSurface(r *demo.Compositor, id *demo.Surface) error {
	id.SetImplementation(surfaceImpl{c})

	c.mu.Lock()
	c.surfaces[id] = ""
	outputs := c.outputs[r.Conn().Client()]
	c.mu.Unlock()

	for _, out := range outputs {
		if !out.Alive() {
			continue
		}
		if err := id.SendEnter(out); err != nil {
			return err
		}
	}
	c.logger.Info("surface created", "surface", id.String())
	return nil
}

func (c *compositor) CreatePool(r *demo.Shm, id *demo.ShmPool, fd int, size int32) error {
	p := &pool{fd: fd}
	if err := p.remap(size); err != nil {
		unix.Close(fd)
		return id.PostError(wayland.DisplayErrorInvalidMethod, "cannot map pool: %v", err)
	}
	id.SetImplementation(p)
	c.logger.Info("pool created", "pool", id.String(), "size", size)
	return nil
}

type surfaceImpl struct{ c *compositor }

func (s surfaceImpl) Destroy(r *demo.Surface) error {
	s.c.mu.Lock()
	delete(s.c.surfaces, r)
	s.c.mu.Unlock()
	s.c.logger.Info("surface destroyed", "surface", r.String())
	return nil
}

func (s surfaceImpl) Damage(r *demo.Surface, x, y, width, height int32) error {
	if width < 0 || height < 0 {
		return r.PostError(uint32(demo.SurfaceErrorInvalidSize), "negative damage %dx%d", width, height)
	}
	s.c.logger.Debug("damage", "surface", r.String(), "x", x, "y", y, "width", width, "height", height)
	return nil
}

func (s surfaceImpl) Frame(r *demo.Surface, callback *wayland.Object) error {
	return callback.Send(wayland.CallbackEventDone, wire.Uint(r.Conn().Client().Server().NextSerial()))
}

func (s surfaceImpl) SetTitle(r *demo.Surface, title string) error {
	s.c.mu.Lock()
	s.c.surfaces[r] = title
	s.c.mu.Unlock()
	return nil
}

func (s surfaceImpl) SetOpaqueRegion(r *demo.Surface, region []byte) error {
	return nil
}

func (s surfaceImpl) SetBufferScale(r *demo.Surface, scale int32) error {
	if scale < 1 {
		return r.PostError(uint32(demo.SurfaceErrorInvalidScale), "buffer scale %d", scale)
	}
	return nil
}

// pool is a client's shared-memory pool mapped read-only.
type pool struct {
	fd   int
	data []byte
}

func (p *pool) remap(size int32) error {
	if size <= 0 {
		return errors.Errorf("invalid size %d", size)
	}
	if p.data != nil {
		_ = unix.Munmap(p.data)
		p.data = nil
	}
	data, err := unix.Mmap(p.fd, 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrap(err, "mmap")
	}
	p.data = data
	return nil
}

func (p *pool) Destroy(r *demo.ShmPool) error {
	if p.data != nil {
		_ = unix.Munmap(p.data)
	}
	return unix.Close(p.fd)
}

func (p *pool) Resize(r *demo.ShmPool, size int32) error {
	if int(size) < len(p.data) {
		return r.PostError(wayland.DisplayErrorInvalidMethod, "pools cannot shrink")
	}
	return p.remap(size)
}

type outputImpl struct{ c *compositor }

func (o outputImpl) Release(r *demo.Output) error {
	o.c.mu.Lock()
	defer o.c.mu.Unlock()
	cl := r.Conn().Client()
	outputs := o.c.outputs[cl]
	for i, out := range outputs {
		if out.Object == r.Object {
			o.c.outputs[cl] = append(outputs[:i], outputs[i+1:]...)
			break
		}
	}
	return nil
}

type seatImpl struct{}

func (seatImpl) Release(r *demo.Seat) error { return nil }

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("compositor failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath  string
		display     string
		debug       bool
		metricsAddr string
	)
	flagSet := pflag.NewFlagSet("compositor", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	flagSet.StringVarP(&display, "socket", "s", "", "socket name (default: first free wayland-N)")
	flagSet.BoolVarP(&debug, "debug", "d", false, "trace every message")
	flagSet.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg := wayland.ServerConfig{Config: wayland.ConfigFromEnv()}
	if configPath != "" {
		var err error
		if cfg, err = wayland.LoadServerConfig(configPath, cfg); err != nil {
			return err
		}
	}
	if display != "" {
		cfg.Display = display
	}
	if debug {
		cfg.Debug = true
	}
	if metricsAddr != "" && cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = "compositor"
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	srv, err := wayland.NewServer(append(cfg.ServerOptions(), wayland.ServerLoggerOption(logger))...)
	if err != nil {
		return err
	}
	defer srv.Close()

	c := &compositor{
		logger:   logger,
		surfaces: make(map[*demo.Surface]string),
		outputs:  make(map[*wayland.Client][]*demo.Output),
	}
	globals := []struct {
		iface   *wayland.Interface
		version uint32
		bind    wayland.BindFunc
	}{
		{demo.CompositorInterface, 1, c.bindCompositor},
		{demo.ShmInterface, 1, c.bindShm},
		{demo.OutputInterface, 2, c.bindOutput},
		{demo.SeatInterface, 4, c.bindSeat},
	}
	for _, g := range globals {
		if _, err := srv.CreateGlobal(g.iface, g.version, g.bind); err != nil {
			return err
		}
	}

	if cfg.Display != "" {
		err = srv.Listen(cfg.Config)
	} else {
		cfg.Display, err = srv.ListenAuto(cfg.Config)
	}
	if err != nil {
		return err
	}
	logger.Info("listening", "socket", srv.Addr(), "display", cfg.Display)

	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

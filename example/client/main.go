// client connects to a display, lists its globals and, when the demo
// compositor is running, creates a surface backed by a shared-memory pool
// and waits for one frame.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sys/unix"

	"github.com/Zereker/wayland"
	"github.com/Zereker/wayland/protocol/demo"
	"github.com/Zereker/wayland/wire"
)

type outputListener struct{ logger *slog.Logger }

func (l outputListener) Geometry(x, y int32, makeArg, model string) {
	l.logger.Info("output geometry", "x", x, "y", y, "make", makeArg, "model", model)
}

func (l outputListener) Scale(factor int32) { l.logger.Info("output scale", "factor", factor) }

func (l outputListener) Done() {}

type seatListener struct{ logger *slog.Logger }

func (l seatListener) Capabilities(capabilities uint32) {
	caps := demo.SeatCapability(capabilities)
	l.logger.Info("seat capabilities",
		"pointer", caps.Has(demo.SeatCapabilityPointer),
		"keyboard", caps.Has(demo.SeatCapabilityKeyboard),
		"touch", caps.Has(demo.SeatCapabilityTouch))
}

func (l seatListener) Name(name string) { l.logger.Info("seat name", "name", name) }

type surfaceListener struct{ logger *slog.Logger }

func (l surfaceListener) Enter(output *demo.Output) {
	l.logger.Info("surface entered output", "output", output.String())
}

func (l surfaceListener) Leave(output *demo.Output) {
	l.logger.Info("surface left output", "output", output.String())
}

func (l surfaceListener) PreferredScale(factor wire.Fixed) {}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		display string
		debug   bool
		title   string
	)
	flagSet := pflag.NewFlagSet("client", pflag.ContinueOnError)
	flagSet.StringVarP(&display, "display", "D", "", "display socket name or path (default: $WAYLAND_DISPLAY)")
	flagSet.BoolVarP(&debug, "debug", "d", false, "trace every message")
	flagSet.StringVarP(&title, "title", "t", "example", "surface title")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg := wayland.ConfigFromEnv()
	if display != "" {
		cfg.Display = display
	}
	cfg.Debug = cfg.Debug || debug

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	conn, err := wayland.ConnectConfig(cfg, wayland.LoggerOption(logger))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Roundtrip(); err != nil {
		return err
	}
	for _, g := range conn.Registry().Globals() {
		fmt.Println(g)
	}

	reg := conn.Registry()
	bindFirst := func(iface *wayland.Interface, version uint32) (*wayland.Object, error) {
		found := reg.Find(iface.Name)
		if len(found) == 0 {
			return nil, nil
		}
		return reg.Bind(found[0].Name, iface, min(version, found[0].Version, iface.Version))
	}

	if obj, err := bindFirst(demo.OutputInterface, 2); err != nil {
		return err
	} else if obj != nil {
		demo.AsOutput(obj).SetListener(outputListener{logger})
	}
	if obj, err := bindFirst(demo.SeatInterface, 4); err != nil {
		return err
	} else if obj != nil {
		demo.AsSeat(obj).SetListener(seatListener{logger})
	}

	compObj, err := bindFirst(demo.CompositorInterface, 1)
	if err != nil {
		return err
	}
	shmObj, err := bindFirst(demo.ShmInterface, 1)
	if err != nil {
		return err
	}
	if err := conn.Roundtrip(); err != nil {
		return err
	}
	if compObj == nil || shmObj == nil {
		logger.Info("no demo compositor on this display")
		return nil
	}

	return drawFrame(conn, demo.AsCompositor(compObj), demo.AsShm(shmObj), title, logger)
}

// drawFrame creates a surface with a pool behind it and waits for the
// compositor's frame callback.
func drawFrame(conn *wayland.Conn, compositor *demo.Compositor, shm *demo.Shm, title string, logger *slog.Logger) error {
	const width, height = 64, 64
	size := int32(width * height * 4)

	fd, err := unix.MemfdCreate("client-pool", unix.MFD_CLOEXEC)
	if err != nil {
		return errors.Wrap(err, "memfd_create")
	}
	defer unix.Close(fd)
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return errors.Wrap(err, "ftruncate")
	}

	pool, err := shm.CreatePool(fd, size)
	if err != nil {
		return err
	}
	surface, err := compositor.CreateSurface()
	if err != nil {
		return err
	}
	surface.SetListener(surfaceListener{logger})
	if err := surface.SetTitle(title); err != nil {
		return err
	}
	if err := surface.Damage(0, 0, width, height); err != nil {
		return err
	}

	cb, err := surface.Frame()
	if err != nil {
		return err
	}
	done := false
	cb.SetHandler(wayland.HandlerFunc(func(_ *wayland.Object, msg wayland.Message) error {
		logger.Info("frame done", "serial", msg.Uint(0))
		done = true
		return nil
	}))

	if err := conn.Flush(); err != nil {
		return err
	}
	for !done {
		if _, err := conn.Dispatch(); err != nil {
			return err
		}
	}

	if err := surface.Destroy(); err != nil {
		return err
	}
	if err := pool.Destroy(); err != nil {
		return err
	}
	return conn.Roundtrip()
}

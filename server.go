package wayland

import (
	"context"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// ErrServerClosed is returned by operations on a closed server.
var ErrServerClosed = errors.New("wayland: server closed")

// Server is a compositor endpoint: it listens on a local socket, accepts any
// number of clients, and advertises globals to them. Each client gets its own
// connection and id namespace.
type Server struct {
	logger          Logger
	shutdownTimeout time.Duration
	connOpts        []Option
	opts            options

	// announceMu orders global announcements and removals across clients.
	announceMu sync.Mutex

	mu          sync.Mutex
	listener    *net.UnixListener
	lockFile    *os.File
	path        string
	shutdown    bool
	closed      bool
	shutdownNow chan struct{} // closed by Close to bypass the shutdown timeout

	globals  map[uint32]*Global
	order    []uint32
	removed  map[uint32]*Global
	nextName uint32
	clients  map[*Client]struct{}

	serial atomic.Uint32
	wg     sync.WaitGroup
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// ServerLoggerOption sets the logger for the server.
func ServerLoggerOption(logger Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// ServerShutdownTimeoutOption sets the graceful shutdown timeout.
// When the context passed to Serve is canceled, the server keeps accepting
// for up to this duration before closing. Default is 0 (immediate shutdown).
func ServerShutdownTimeoutOption(timeout time.Duration) ServerOption {
	return func(s *Server) {
		s.shutdownTimeout = timeout
	}
}

// ServerConnOptions sets the options every client connection is created with.
func ServerConnOptions(opts ...Option) ServerOption {
	return func(s *Server) {
		s.connOpts = append(s.connOpts, opts...)
	}
}

// NewServer creates a server with no socket. Use Listen to bind one, or
// AddSocket to serve connections created elsewhere.
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		logger:      defaultLogger(),
		shutdownNow: make(chan struct{}),
		globals:     make(map[uint32]*Global),
		removed:     make(map[uint32]*Global),
		clients:     make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	connOpts := append([]Option{LoggerOption(s.logger)}, s.connOpts...)
	var err error
	if s.opts, err = buildOptions(connOpts); err != nil {
		return nil, err
	}
	return s, nil
}

// Listen binds the socket described by cfg. A lock file next to the socket
// guards against a second server; a socket left behind by a dead server is
// removed.
func (s *Server) Listen(cfg Config) error {
	path, err := cfg.SocketPath()
	if err != nil {
		return err
	}

	lock, err := os.OpenFile(path+".lock", os.O_CREATE|os.O_RDWR, 0o660)
	if err != nil {
		return errors.Wrap(err, "wayland: open lock file")
	}
	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		lock.Close()
		return errors.Wrapf(err, "wayland: socket %s is in use", path)
	}

	if _, err := os.Stat(path); err == nil {
		s.logger.Debug("removing stale socket", "path", path)
		if err := os.Remove(path); err != nil {
			lock.Close()
			return errors.Wrap(err, "wayland: remove stale socket")
		}
	}

	ln, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		lock.Close()
		return errors.Wrapf(err, "wayland: listen on %s", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ln.Close()
		lock.Close()
		return ErrServerClosed
	}
	if s.listener != nil {
		ln.Close()
		lock.Close()
		return errors.New("wayland: server is already listening")
	}
	s.listener, s.lockFile, s.path = ln, lock, path
	return nil
}

// ListenAuto binds the first free display name among wayland-0 to
// wayland-32 in cfg's runtime directory and returns it.
func (s *Server) ListenAuto(cfg Config) (string, error) {
	for i := 0; i <= 32; i++ {
		cfg.Display = "wayland-" + strconv.Itoa(i)
		err := s.Listen(cfg)
		if err == nil {
			return cfg.Display, nil
		}
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EADDRINUSE) {
			continue
		}
		return "", err
	}
	return "", errors.New("wayland: no free display name")
}

// Serve accepts clients until the context is canceled or accepting fails.
// When the context is canceled, it stops accepting new connections.
// If ServerShutdownTimeoutOption is set, the server waits up to the specified
// duration before stopping. Call Close() to bypass the timeout. Every client
// is disconnected before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("wayland: server is not listening")
	}

	s.logger.Info("server started", "socket", s.path)

	g, gctx := errgroup.WithContext(ctx)
	accepting := make(chan struct{})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-accepting:
			return nil
		}

		// Wait for shutdown timeout if configured, but allow early exit via Close()
		if s.shutdownTimeout > 0 && ctx.Err() != nil {
			s.logger.Info("graceful shutdown initiated", "timeout", s.shutdownTimeout)
			select {
			case <-time.After(s.shutdownTimeout):
			case <-s.shutdownNow:
				s.logger.Debug("shutdown timeout bypassed via Close()")
			}
		}

		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		// Set a deadline to unblock Accept
		_ = ln.SetDeadline(time.Now())
		return nil
	})

	g.Go(func() error {
		defer close(accepting)
		for {
			conn, err := ln.AcceptUnix()
			if err != nil {
				s.mu.Lock()
				isShutdown := s.shutdown
				s.mu.Unlock()

				if isShutdown {
					s.logger.Info("server stopped", "socket", s.path)
					return ctx.Err()
				}

				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				s.logger.Error("accept error", "error", err)
				return errors.Wrap(err, "wayland: accept")
			}

			if _, err := s.AddSocket(conn); err != nil {
				s.logger.Warn("rejecting client", "error", err)
				conn.Close()
			}
		}
	})

	err := g.Wait()
	s.closeClients()
	s.wg.Wait()
	return err
}

// AddSocket serves a client over an already connected socket. The client is
// sent every live global and then dispatched on its own goroutine.
func (s *Server) AddSocket(uc *net.UnixConn) (*Client, error) {
	c := newConn(uc, ServerSide, s.opts)
	cl := &Client{server: s, conn: c}
	c.client = cl
	c.display.SetHandler(serverDisplay{client: cl})

	s.announceMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.announceMu.Unlock()
		c.Close()
		return nil, ErrServerClosed
	}
	s.clients[cl] = struct{}{}
	globals := make([]*Global, 0, len(s.order))
	for _, name := range s.order {
		globals = append(globals, s.globals[name])
	}
	s.wg.Add(1)
	s.mu.Unlock()

	for _, g := range globals {
		if err := cl.announce(g); err != nil {
			break
		}
	}
	_ = c.Flush()
	s.announceMu.Unlock()

	s.logger.Debug("client connected", "clients", s.ClientCount())
	go s.serveClient(cl)
	return cl, nil
}

// serveClient dispatches one client's requests and flushes the replies.
func (s *Server) serveClient(cl *Client) {
	defer s.wg.Done()
	for {
		if _, err := cl.conn.Dispatch(); err != nil {
			break
		}
		if err := cl.conn.Flush(); err != nil {
			break
		}
	}
	_ = cl.conn.Close()
}

func (s *Server) removeClient(cl *Client) {
	s.mu.Lock()
	delete(s.clients, cl)
	n := len(s.clients)
	s.mu.Unlock()
	s.logger.Debug("client disconnected", "clients", n)
}

// clientList snapshots the clients. s.mu must be held.
func (s *Server) clientList() []*Client {
	out := make([]*Client, 0, len(s.clients))
	for cl := range s.clients {
		out = append(out, cl)
	}
	return out
}

// Clients returns the connected clients.
func (s *Server) Clients() []*Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientList()
}

func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// NextSerial returns a new event serial.
func (s *Server) NextSerial() uint32 {
	return s.serial.Add(1)
}

func (s *Server) closeClients() {
	for _, cl := range s.Clients() {
		_ = cl.conn.Close()
	}
}

// Close stops the server: the listener is closed, every client disconnected
// and the lock file released. If a shutdown timeout is configured, Close()
// bypasses the remaining timeout. It waits for client goroutines, so it must
// not be called from a handler.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.shutdown = true
	ln, lock, path := s.listener, s.lockFile, s.path
	s.mu.Unlock()

	// Bypass any pending shutdown timeout, now or later.
	close(s.shutdownNow)

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.closeClients()
	s.wg.Wait()
	if lock != nil {
		_ = os.Remove(path + ".lock")
		_ = lock.Close()
	}
	return err
}

// Addr returns the socket path, empty when the server is not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.path
}

package wayland

import (
	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// ErrInvalidReadSize is returned when the read chunk size cannot hold a header.
var ErrInvalidReadSize = errors.New("wayland: read size smaller than a message header")

// options holds the configuration for a connection.
type options struct {
	logger  Logger
	metrics *Metrics

	// debug traces every message sent and dispatched at debug level.
	debug bool

	// unhandled receives messages for objects without a handler.
	unhandled Handler
	// onError is called once with the error that closed the connection.
	onError func(error)

	readSize int // bytes requested from the socket per read
}

// Option is a function that configures connection options.
type Option func(*options)

// LoggerOption returns an Option that sets the logger.
// If not set, the default slog logger will be used.
func LoggerOption(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// DebugOption returns an Option that enables message tracing. Each message is
// logged at debug level as it is queued for sending or dispatched.
func DebugOption(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// MetricsOption returns an Option that records traffic into m.
func MetricsOption(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// UnhandledOption returns an Option that sets the handler invoked for
// messages addressed to objects that have no handler of their own.
// Without it such messages are logged at debug level and their descriptors closed.
func UnhandledOption(h Handler) Option {
	return func(o *options) {
		o.unhandled = h
	}
}

// OnErrorOption returns an Option that sets the error callback.
// The callback is invoked once with the error that closed the connection.
func OnErrorOption(cb func(error)) Option {
	return func(o *options) {
		o.onError = cb
	}
}

// ReadSizeOption returns an Option that sets how many bytes each socket read
// asks for.
func ReadSizeOption(size int) Option {
	return func(o *options) {
		o.readSize = size
	}
}

// defaultReadSize holds a few maximum-size messages per read.
const defaultReadSize = 4 * wire.MaxMessageSize

func buildOptions(opt []Option) (options, error) {
	var opts options
	for _, o := range opt {
		o(&opts)
	}
	return opts, checkOptions(&opts)
}

// checkOptions validates and sets default values for connection options.
func checkOptions(opts *options) error {
	if opts.readSize == 0 {
		opts.readSize = defaultReadSize
	}

	if opts.readSize < wire.HeaderSize {
		return ErrInvalidReadSize
	}

	if opts.onError == nil {
		opts.onError = func(error) {}
	}

	if opts.logger == nil {
		opts.logger = defaultLogger()
	}

	return nil
}

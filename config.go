package wayland

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvRuntimeDir = "XDG_RUNTIME_DIR"
	EnvDisplay    = "WAYLAND_DISPLAY"
	EnvSocket     = "WAYLAND_SOCKET"
	EnvDebug      = "WAYLAND_DEBUG"
)

// DefaultDisplay is the display name used when none is configured.
const DefaultDisplay = "wayland-0"

// maxSocketPath is the size of sun_path minus its terminator.
const maxSocketPath = 107

// Config locates the display socket. The engine never reads the environment
// itself; ConfigFromEnv is the only place that does.
type Config struct {
	// RuntimeDir holds the socket when Display is not absolute.
	RuntimeDir string
	// Display is a socket name relative to RuntimeDir, or an absolute path.
	Display string
	// Socket is an already connected socket inherited from the parent
	// process. When set, it takes precedence over the path.
	Socket *os.File
	// Debug enables message tracing.
	Debug bool
}

// ConfigFromEnv builds a Config from the conventional environment variables.
// WAYLAND_SOCKET is removed from the environment once read so that child
// processes do not inherit it.
func ConfigFromEnv() Config {
	cfg := Config{
		RuntimeDir: os.Getenv(EnvRuntimeDir),
		Display:    os.Getenv(EnvDisplay),
		Debug:      debugEnabled(os.Getenv(EnvDebug)),
	}
	if v, ok := os.LookupEnv(EnvSocket); ok {
		_ = os.Unsetenv(EnvSocket)
		if fd, err := strconv.Atoi(v); err == nil && fd >= 0 {
			cfg.Socket = os.NewFile(uintptr(fd), "wayland-socket")
		}
	}
	return cfg
}

// debugEnabled accepts "1" and lists naming the client or server side.
func debugEnabled(v string) bool {
	if v == "" {
		return false
	}
	for _, part := range strings.Split(v, ",") {
		switch strings.TrimSpace(part) {
		case "1", "client", "server", "all":
			return true
		}
	}
	return false
}

// SocketPath resolves the path of the display socket.
func (c Config) SocketPath() (string, error) {
	display := c.Display
	if display == "" {
		display = DefaultDisplay
	}

	path := display
	if !filepath.IsAbs(display) {
		if c.RuntimeDir == "" {
			return "", errors.Errorf("wayland: %s is not set", EnvRuntimeDir)
		}
		path = filepath.Join(c.RuntimeDir, display)
	}
	if len(path) > maxSocketPath {
		return "", errors.Errorf("wayland: socket path %q is longer than %d bytes", path, maxSocketPath)
	}
	return path, nil
}

// ServerConfig is the file-level configuration of a compositor process.
type ServerConfig struct {
	Config
	// ShutdownTimeout bounds graceful shutdown of Serve.
	ShutdownTimeout time.Duration
	// ReadSize overrides the per-read buffer size of client connections.
	ReadSize int
	// MetricsNamespace enables Prometheus metrics under this namespace.
	MetricsNamespace string
}

// serverFileConfig is the TOML key mapping of ServerConfig.
type serverFileConfig struct {
	RuntimeDir       string `toml:"runtime_dir"`
	Socket           string `toml:"socket"`
	Debug            bool   `toml:"debug"`
	ShutdownTimeout  string `toml:"shutdown_timeout"`
	ReadSize         int    `toml:"read_size"`
	MetricsNamespace string `toml:"metrics_namespace"`
}

// LoadServerConfig reads a TOML file over base. Keys absent from the file
// keep base's values.
func LoadServerConfig(path string, base ServerConfig) (ServerConfig, error) {
	cfg := base

	var raw serverFileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ServerConfig{}, errors.Wrap(err, "wayland: load server config")
	}

	if meta.IsDefined("runtime_dir") {
		cfg.RuntimeDir = strings.TrimSpace(raw.RuntimeDir)
	}
	if meta.IsDefined("socket") {
		cfg.Display = strings.TrimSpace(raw.Socket)
	}
	if meta.IsDefined("debug") {
		cfg.Debug = raw.Debug
	}
	if meta.IsDefined("shutdown_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ShutdownTimeout))
		if err != nil {
			return ServerConfig{}, errors.Wrap(err, "wayland: load server config: shutdown_timeout")
		}
		cfg.ShutdownTimeout = d
	}
	if meta.IsDefined("read_size") {
		cfg.ReadSize = raw.ReadSize
	}
	if meta.IsDefined("metrics_namespace") {
		cfg.MetricsNamespace = strings.TrimSpace(raw.MetricsNamespace)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ServerConfig{}, errors.Errorf("wayland: load server config: unknown key %q", undecoded[0].String())
	}
	return cfg, nil
}

// ServerOptions translates the configuration into server options. Metrics
// are registered with the default Prometheus registerer.
func (c ServerConfig) ServerOptions() []ServerOption {
	connOpts := []Option{DebugOption(c.Debug)}
	if c.ReadSize > 0 {
		connOpts = append(connOpts, ReadSizeOption(c.ReadSize))
	}
	if c.MetricsNamespace != "" {
		connOpts = append(connOpts, MetricsOption(NewMetrics(MetricsConfig{Namespace: c.MetricsNamespace})))
	}
	return []ServerOption{
		ServerShutdownTimeoutOption(c.ShutdownTimeout),
		ServerConnOptions(connOpts...),
	}
}

package wire

import (
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MaxFDsPerCall is the number of descriptors sent in one sendmsg call.
const MaxFDsPerCall = 28

// ErrControlTruncated is returned when the kernel dropped ancillary data.
var ErrControlTruncated = errors.New("wire: control message truncated")

// Socket is a local stream socket that carries descriptors alongside bytes.
type Socket struct {
	conn *net.UnixConn
	oob  []byte
}

func NewSocket(conn *net.UnixConn) *Socket {
	return &Socket{
		conn: conn,
		oob:  make([]byte, unix.CmsgSpace(MaxFDsPerCall*4)),
	}
}

// WriteMsg writes all of b. fds ride with the first byte written.
func (s *Socket) WriteMsg(b []byte, fds []int) error {
	if len(fds) > MaxFDsPerCall {
		return ErrTooManyFDs
	}
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	for len(b) > 0 || oob != nil {
		n, _, err := s.conn.WriteMsgUnix(b, oob, nil)
		if err != nil {
			return errors.Wrap(err, "wire: sendmsg")
		}
		b = b[n:]
		oob = nil
	}
	return nil
}

// ReadMsg reads at most len(b) bytes along with any descriptors that arrived
// with them. A closed peer yields io.EOF.
func (s *Socket) ReadMsg(b []byte) (int, []int, error) {
	n, oobn, flags, _, err := s.conn.ReadMsgUnix(b, s.oob)
	var fds []int
	if oobn > 0 {
		var perr error
		fds, perr = parseRights(s.oob[:oobn])
		if perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return n, fds, err
	}
	if flags&unix.MSG_CTRUNC != 0 {
		return n, fds, ErrControlTruncated
	}
	if n == 0 && oobn == 0 {
		return 0, nil, io.EOF
	}
	return n, fds, nil
}

func parseRights(oob []byte) ([]int, error) {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, errors.Wrap(err, "wire: parse control message")
	}
	var fds []int
	for i := range msgs {
		if msgs[i].Header.Level != unix.SOL_SOCKET || msgs[i].Header.Type != unix.SCM_RIGHTS {
			continue
		}
		rights, err := unix.ParseUnixRights(&msgs[i])
		if err != nil {
			return fds, errors.Wrap(err, "wire: parse rights")
		}
		fds = append(fds, rights...)
	}
	return fds, nil
}

// Readable waits up to timeout for the socket to become readable. A negative
// timeout waits indefinitely. It does not consume any data.
func (s *Socket) Readable(timeout time.Duration) (bool, error) {
	raw, err := s.conn.SyscallConn()
	if err != nil {
		return false, errors.Wrap(err, "wire: syscall conn")
	}
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	var ready bool
	var perr error
	cerr := raw.Control(func(fd uintptr) {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, err := unix.Poll(fds, ms)
			if err == unix.EINTR {
				continue
			}
			perr = err
			ready = n > 0 && fds[0].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0
			return
		}
	})
	if cerr != nil {
		return false, errors.Wrap(cerr, "wire: poll")
	}
	if perr != nil {
		return false, errors.Wrap(perr, "wire: poll")
	}
	return ready, nil
}

func (s *Socket) Conn() *net.UnixConn { return s.conn }

func (s *Socket) Close() error {
	return s.conn.Close()
}

// SocketPair returns two connected local stream sockets.
func SocketPair() (*net.UnixConn, *net.UnixConn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "wire: socketpair")
	}
	a, err := FileConn(fds[0], "socketpair-a")
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := FileConn(fds[1], "socketpair-b")
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

// FileConn takes ownership of fd, which must be a connected local stream
// socket, and wraps it.
func FileConn(fd int, name string) (*net.UnixConn, error) {
	f := os.NewFile(uintptr(fd), name)
	if f == nil {
		return nil, errors.Errorf("wire: invalid descriptor %d", fd)
	}
	defer f.Close()
	c, err := net.FileConn(f)
	if err != nil {
		return nil, errors.Wrapf(err, "wire: descriptor %d", fd)
	}
	uc, ok := c.(*net.UnixConn)
	if !ok {
		c.Close()
		return nil, errors.Errorf("wire: descriptor %d is not a unix socket", fd)
	}
	return uc, nil
}

// DupFD duplicates fd with close-on-exec set.
func DupFD(fd int) (int, error) {
	nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return -1, errors.Wrapf(err, "wire: dup %d", fd)
	}
	return nfd, nil
}

// CloseFDs closes every descriptor in fds, ignoring errors.
func CloseFDs(fds []int) {
	for _, fd := range fds {
		_ = unix.Close(fd)
	}
}

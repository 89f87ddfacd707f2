package wire

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// HeaderSize is the size of the object id plus the size/opcode word.
	HeaderSize = 8
	// MaxMessageSize bounds a single encoded message, header included.
	MaxMessageSize = 4096
	// MaxFDsPerMessage is the number of descriptors one message may carry.
	MaxFDsPerMessage = 1
)

// byteOrder is the host byte order; the protocol never crosses machines.
var byteOrder = binary.NativeEndian

// Errors returned by the codec.
var (
	// ErrShortBuffer means more bytes are needed before a frame can be parsed.
	// It is the only recoverable decoding error.
	ErrShortBuffer = errors.New("wire: short buffer")
	// ErrMalformed reports a violated size, padding or termination invariant.
	ErrMalformed = errors.New("wire: malformed message")
	// ErrMessageTooLarge is returned when an encoded message exceeds MaxMessageSize.
	ErrMessageTooLarge = errors.New("wire: message too large")
	// ErrTooManyFDs is returned when a message carries more than MaxFDsPerMessage descriptors.
	ErrTooManyFDs = errors.New("wire: too many file descriptors")
	// ErrMissingFD is returned when a descriptor slot has no received descriptor.
	ErrMissingFD = errors.New("wire: missing file descriptor")
)

// Header is the fixed message prefix.
type Header struct {
	Sender uint32
	Opcode uint16
	Size   uint16
}

// ParseHeader reads the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	word := byteOrder.Uint32(b[4:8])
	h := Header{
		Sender: byteOrder.Uint32(b[0:4]),
		Opcode: uint16(word),
		Size:   uint16(word >> 16),
	}
	if h.Size < HeaderSize || h.Size%4 != 0 || int(h.Size) > MaxMessageSize {
		return Header{}, errors.Wrapf(ErrMalformed, "invalid size %d", h.Size)
	}
	return h, nil
}

// Frame is a complete message whose arguments have not been interpreted.
type Frame struct {
	Sender  uint32
	Opcode  uint16
	Payload []byte
}

// ReadFrame parses one frame from the start of b and reports how many bytes
// it occupies. Payload aliases b.
func ReadFrame(b []byte) (Frame, int, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return Frame{}, 0, err
	}
	if len(b) < int(h.Size) {
		return Frame{}, 0, ErrShortBuffer
	}
	return Frame{
		Sender:  h.Sender,
		Opcode:  h.Opcode,
		Payload: b[HeaderSize:h.Size],
	}, int(h.Size), nil
}

// FDSource supplies received descriptors in arrival order.
type FDSource interface {
	PopFD() (int, bool)
}

// Decode interprets the payload against sig. One descriptor is taken from
// fds for every ArgFD slot. Strings and arrays are copied out of the payload.
func (f Frame) Decode(sig []ArgType, fds FDSource) (Message, error) {
	msg := Message{
		Sender: f.Sender,
		Opcode: f.Opcode,
		Args:   make([]Argument, 0, len(sig)),
	}
	p := f.Payload

	fail := func(err error) (Message, error) {
		for _, a := range msg.Args {
			if a.Type == ArgFD {
				_ = unix.Close(a.FD)
			}
		}
		return Message{}, err
	}

	for i, t := range sig {
		switch t {
		case ArgInt, ArgUint, ArgFixed, ArgObject, ArgNewID:
			if len(p) < 4 {
				return fail(errors.Wrapf(ErrMalformed, "argument %d (%s) overruns payload", i, t))
			}
			msg.Args = append(msg.Args, Argument{Type: t, Value: byteOrder.Uint32(p)})
			p = p[4:]

		case ArgString:
			body, rest, err := readBlob(p)
			if err != nil {
				return fail(errors.Wrapf(err, "argument %d (string)", i))
			}
			p = rest
			if body == nil {
				msg.Args = append(msg.Args, NullString())
				continue
			}
			if body[len(body)-1] != 0 {
				return fail(errors.Wrapf(ErrMalformed, "argument %d: string not terminated", i))
			}
			msg.Args = append(msg.Args, String(string(body[:len(body)-1])))

		case ArgArray:
			body, rest, err := readBlob(p)
			if err != nil {
				return fail(errors.Wrapf(err, "argument %d (array)", i))
			}
			p = rest
			msg.Args = append(msg.Args, Array(append([]byte{}, body...)))

		case ArgFD:
			fd, ok := fds.PopFD()
			if !ok {
				return fail(errors.Wrapf(ErrMissingFD, "argument %d", i))
			}
			msg.Args = append(msg.Args, FD(fd))

		default:
			return fail(errors.Errorf("wire: argument %d has unknown type %d", i, t))
		}
	}
	if len(p) != 0 {
		return fail(errors.Wrapf(ErrMalformed, "%d trailing bytes", len(p)))
	}
	return msg, nil
}

// readBlob reads a length-prefixed, 4-byte padded body. A zero length yields
// a nil body.
func readBlob(p []byte) (body, rest []byte, err error) {
	if len(p) < 4 {
		return nil, nil, errors.Wrap(ErrMalformed, "length overruns payload")
	}
	n := uint64(byteOrder.Uint32(p))
	p = p[4:]
	if n == 0 {
		return nil, p, nil
	}
	padded := (n + 3) &^ 3
	if padded > uint64(len(p)) {
		return nil, nil, errors.Wrapf(ErrMalformed, "length %d overruns payload", n)
	}
	return p[:n], p[padded:], nil
}

// Message is a decoded message or one about to be encoded.
type Message struct {
	Sender uint32
	Opcode uint16
	Args   []Argument
}

// Encode appends the encoded message to dst and returns the descriptors that
// must travel with it. On error dst is returned unchanged.
func (m Message) Encode(dst []byte) ([]byte, []int, error) {
	start := len(dst)
	dst = append(dst, make([]byte, HeaderSize)...)
	var fds []int

	for i, a := range m.Args {
		switch a.Type {
		case ArgInt, ArgUint, ArgFixed, ArgObject, ArgNewID:
			dst = byteOrder.AppendUint32(dst, a.Value)
		case ArgString:
			if a.Null {
				dst = byteOrder.AppendUint32(dst, 0)
				break
			}
			n := len(a.Str) + 1
			dst = byteOrder.AppendUint32(dst, uint32(n))
			dst = append(dst, a.Str...)
			dst = append(dst, 0)
			dst = appendPadding(dst, n)
		case ArgArray:
			dst = byteOrder.AppendUint32(dst, uint32(len(a.Array)))
			dst = append(dst, a.Array...)
			dst = appendPadding(dst, len(a.Array))
		case ArgFD:
			if a.FD < 0 {
				return dst[:start], nil, errors.Errorf("wire: argument %d: invalid descriptor %d", i, a.FD)
			}
			fds = append(fds, a.FD)
		default:
			return dst[:start], nil, errors.Errorf("wire: argument %d has unknown type %d", i, a.Type)
		}
		if len(dst)-start > MaxMessageSize {
			return dst[:start], nil, ErrMessageTooLarge
		}
	}
	if len(fds) > MaxFDsPerMessage {
		return dst[:start], nil, ErrTooManyFDs
	}

	size := len(dst) - start
	byteOrder.PutUint32(dst[start:], m.Sender)
	byteOrder.PutUint32(dst[start+4:], uint32(size)<<16|uint32(m.Opcode))
	return dst, fds, nil
}

func appendPadding(dst []byte, n int) []byte {
	if pad := (4 - n%4) % 4; pad > 0 {
		dst = append(dst, make([]byte, pad)...)
	}
	return dst
}

// Signature returns the argument types of m in order.
func (m Message) Signature() []ArgType {
	sig := make([]ArgType, len(m.Args))
	for i, a := range m.Args {
		sig[i] = a.Type
	}
	return sig
}

func (m Message) String() string {
	var b strings.Builder
	b.WriteString("(")
	for i, a := range m.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteString(")")
	return b.String()
}

// DecodeMessage parses and decodes one message from the start of b.
func DecodeMessage(b []byte, sig []ArgType, fds FDSource) (Message, int, error) {
	f, n, err := ReadFrame(b)
	if err != nil {
		return Message{}, 0, err
	}
	msg, err := f.Decode(sig, fds)
	if err != nil {
		return Message{}, 0, err
	}
	return msg, n, nil
}

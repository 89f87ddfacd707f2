package wayland

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// Errors returned by connection and object operations.
var (
	// ErrConnectionClosed is returned by every operation on a closed connection.
	ErrConnectionClosed = errors.New("wayland: connection closed")
	// ErrObjectDestroyed is returned when operating on a destroyed object.
	ErrObjectDestroyed = errors.New("wayland: object destroyed")
	// ErrInvalidObject reports an id that does not name a known object.
	ErrInvalidObject = errors.New("wayland: invalid object")
	// ErrInvalidOpcode reports an opcode missing from the interface table.
	ErrInvalidOpcode = errors.New("wayland: invalid opcode")
	// ErrUnknownInterface reports an interface name that was never registered.
	ErrUnknownInterface = errors.New("wayland: unknown interface")
	// ErrUnknownGlobal is returned when binding a name that is not advertised.
	ErrUnknownGlobal = errors.New("wayland: unknown global")
	// ErrInterfaceMismatch is returned when a bind names the wrong interface.
	ErrInterfaceMismatch = errors.New("wayland: interface mismatch")
	// ErrIDInUse reports a peer creating an object over a live id.
	ErrIDInUse = errors.New("wayland: object id in use")
	// ErrIDSpaceExhausted is returned when no object id is left to allocate.
	ErrIDSpaceExhausted = errors.New("wayland: object id space exhausted")
)

// Error codes carried by the display error event.
const (
	DisplayErrorInvalidObject  uint32 = 0
	DisplayErrorInvalidMethod  uint32 = 1
	DisplayErrorNoMemory       uint32 = 2
	DisplayErrorImplementation uint32 = 3
)

// SignatureError reports arguments that do not match an interface table.
type SignatureError struct {
	Interface string
	Message   string
	Reason    string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("wayland: %s.%s: %s", e.Interface, e.Message, e.Reason)
}

// VersionError reports a message or bind beyond the negotiated version.
type VersionError struct {
	Interface string
	Message   string
	Requested uint32
	Supported uint32
}

func (e *VersionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wayland: %s version %d not supported (max %d)", e.Interface, e.Requested, e.Supported)
	}
	return fmt.Sprintf("wayland: %s.%s requires version %d, object has %d",
		e.Interface, e.Message, e.Requested, e.Supported)
}

// ProtocolError is a fatal error attributed to one object. Clients receive it
// through the display error event; servers send it before disconnecting.
type ProtocolError struct {
	ObjectID  ObjectID
	Interface string
	Code      uint32
	Message   string

	received bool
	cause    error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wayland: protocol error on %s@%d: code %d: %s", e.Interface, e.ObjectID, e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error { return e.cause }

// protocolError builds the error a server posts for a misbehaving peer.
func protocolError(obj *Object, code uint32, cause error) *ProtocolError {
	pe := &ProtocolError{Code: code, Message: cause.Error(), cause: cause}
	if obj != nil {
		pe.ObjectID = obj.id
		pe.Interface = obj.iface.Name
	}
	return pe
}

// errorKind classifies err for logging and metrics.
func errorKind(err error) string {
	var sig *SignatureError
	var ver *VersionError
	var pe *ProtocolError
	switch {
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrMissingFD),
		errors.Is(err, wire.ErrControlTruncated):
		return "framing"
	case errors.As(err, &sig), errors.Is(err, ErrInvalidOpcode):
		return "signature"
	case errors.Is(err, ErrInvalidObject), errors.Is(err, ErrObjectDestroyed),
		errors.Is(err, ErrIDInUse), errors.Is(err, ErrUnknownInterface):
		return "invalidity"
	case errors.As(err, &ver), errors.Is(err, ErrUnknownGlobal), errors.Is(err, ErrInterfaceMismatch):
		return "version"
	case errors.As(err, &pe):
		return "protocol"
	}
	return "io"
}

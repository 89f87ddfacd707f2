package wayland

import (
	"strings"

	"github.com/Zereker/wayland/wire"
)

// ArgDesc describes one argument of a request or event.
type ArgDesc struct {
	Name     string
	Type     wire.ArgType
	Nullable bool
	// Interface names the referenced interface for object and new_id
	// arguments. An untyped new_id takes its interface and version from
	// the string and uint arguments immediately before it.
	Interface string
}

// MessageDesc is one entry of an interface's request or event table.
type MessageDesc struct {
	Name       string
	Since      uint32
	Destructor bool
	Args       []ArgDesc

	sig      []wire.ArgType
	newIDArg int
}

// Signature returns the wire types of the arguments.
func (m *MessageDesc) Signature() []wire.ArgType {
	if m.sig == nil {
		m.prepare()
	}
	return m.sig
}

// NewIDArg returns the index of the new_id argument or -1.
func (m *MessageDesc) NewIDArg() int {
	if m.sig == nil {
		m.prepare()
	}
	return m.newIDArg
}

func (m *MessageDesc) prepare() {
	m.newIDArg = -1
	sig := make([]wire.ArgType, len(m.Args))
	for i, a := range m.Args {
		sig[i] = a.Type
		if a.Type == wire.ArgNewID {
			m.newIDArg = i
		}
	}
	if m.Since == 0 {
		m.Since = 1
	}
	m.sig = sig
}

// Message is a decoded request or event as seen by a Handler.
type Message struct {
	Opcode uint16
	Desc   *MessageDesc
	Args   []wire.Argument

	objects []*Object
}

func (m Message) Int(i int) int32 { return m.Args[i].Int() }

func (m Message) Uint(i int) uint32 { return m.Args[i].Value }

func (m Message) Fixed(i int) wire.Fixed { return m.Args[i].Fixed() }

func (m Message) String(i int) string { return m.Args[i].Str }

// IsNull reports whether a nullable string or object argument is absent.
func (m Message) IsNull(i int) bool {
	a := m.Args[i]
	if a.Type == wire.ArgObject {
		return a.Value == 0
	}
	return a.Null
}

func (m Message) Array(i int) []byte { return m.Args[i].Array }

// NewID returns the id carried by a new_id argument. Servers use it for
// untyped new_id arguments, which are not created automatically.
func (m Message) NewID(i int) ObjectID { return ObjectID(m.Args[i].Value) }

// FD returns the received descriptor. The handler owns it.
func (m Message) FD(i int) int { return m.Args[i].FD }

// Object returns the object referenced or created by argument i, or nil for
// a null reference. Objects referenced by events may already be destroyed
// locally; check Alive before using them.
func (m Message) Object(i int) *Object {
	if i < len(m.objects) {
		return m.objects[i]
	}
	return nil
}

// closeFDs releases descriptors of a message nobody will handle.
func (m Message) closeFDs() {
	var fds []int
	for _, a := range m.Args {
		if a.Type == wire.ArgFD {
			fds = append(fds, a.FD)
		}
	}
	wire.CloseFDs(fds)
}

func formatMessage(obj *Object, desc *MessageDesc, args []wire.Argument) string {
	var b strings.Builder
	b.WriteString(obj.String())
	b.WriteString(".")
	b.WriteString(desc.Name)
	b.WriteString(wire.Message{Args: args}.String())
	return b.String()
}

// ObjectArg references o, or the null object when o is nil.
func ObjectArg(o *Object) wire.Argument {
	if o == nil {
		return wire.Object(0)
	}
	return wire.Object(uint32(o.id))
}

// OptionalString encodes s as a nullable string argument; the empty string
// is sent as null.
func OptionalString(s string) wire.Argument {
	if s == "" {
		return wire.NullString()
	}
	return wire.String(s)
}

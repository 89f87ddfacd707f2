// Package wire implements the binary framing of the display protocol:
// fixed 8-byte headers, 32-bit aligned arguments and file descriptors
// carried in the socket's ancillary channel. It knows nothing about
// object identity; callers supply the argument signature when decoding.
package wire

import (
	"fmt"
	"strconv"
)

// ArgType identifies how one argument is laid out on the wire.
type ArgType uint8

const (
	ArgInt ArgType = iota + 1
	ArgUint
	ArgFixed
	ArgString
	ArgObject
	ArgNewID
	ArgArray
	ArgFD
)

var argTypeNames = map[ArgType]string{
	ArgInt:    "int",
	ArgUint:   "uint",
	ArgFixed:  "fixed",
	ArgString: "string",
	ArgObject: "object",
	ArgNewID:  "new_id",
	ArgArray:  "array",
	ArgFD:     "fd",
}

func (t ArgType) String() string {
	if name, ok := argTypeNames[t]; ok {
		return name
	}
	return "ArgType(" + strconv.Itoa(int(t)) + ")"
}

// ParseArgType maps a protocol description type name to an ArgType.
func ParseArgType(name string) (ArgType, bool) {
	for t, n := range argTypeNames {
		if n == name {
			return t, true
		}
	}
	return 0, false
}

// Argument is a single typed message argument.
//
// Value carries the 32-bit payload of int, uint, fixed, object and new_id
// arguments. Str and Null carry strings, Array carries arrays and FD carries
// a file descriptor.
type Argument struct {
	Type  ArgType
	Value uint32
	Str   string
	Null  bool
	Array []byte
	FD    int
}

func Int(v int32) Argument { return Argument{Type: ArgInt, Value: uint32(v)} }

func Uint(v uint32) Argument { return Argument{Type: ArgUint, Value: v} }

func FixedArg(v Fixed) Argument { return Argument{Type: ArgFixed, Value: uint32(v)} }

func String(s string) Argument { return Argument{Type: ArgString, Str: s} }

// NullString is the absent value of a nullable string argument.
func NullString() Argument { return Argument{Type: ArgString, Null: true} }

// Object references an existing object; id 0 is the null object.
func Object(id uint32) Argument { return Argument{Type: ArgObject, Value: id} }

// NewID announces the id of an object created by the message.
func NewID(id uint32) Argument { return Argument{Type: ArgNewID, Value: id} }

func Array(b []byte) Argument { return Argument{Type: ArgArray, Array: b} }

func FD(fd int) Argument { return Argument{Type: ArgFD, FD: fd} }

// Int returns the payload as a signed integer.
func (a Argument) Int() int32 { return int32(a.Value) }

// Fixed returns the payload as a fixed-point number.
func (a Argument) Fixed() Fixed { return Fixed(int32(a.Value)) }

func (a Argument) String() string {
	switch a.Type {
	case ArgInt:
		return strconv.FormatInt(int64(a.Int()), 10)
	case ArgUint:
		return strconv.FormatUint(uint64(a.Value), 10)
	case ArgFixed:
		return a.Fixed().String()
	case ArgString:
		if a.Null {
			return "nil"
		}
		return strconv.Quote(a.Str)
	case ArgObject:
		if a.Value == 0 {
			return "nil"
		}
		return "object " + strconv.FormatUint(uint64(a.Value), 10)
	case ArgNewID:
		return "new id " + strconv.FormatUint(uint64(a.Value), 10)
	case ArgArray:
		return fmt.Sprintf("array[%d]", len(a.Array))
	case ArgFD:
		return "fd " + strconv.Itoa(a.FD)
	}
	return "?"
}

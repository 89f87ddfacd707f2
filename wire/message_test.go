package wire

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func TestMessageRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{
			name: "no_args",
			msg:  Message{Sender: 1, Opcode: 0},
		},
		{
			name: "integers",
			msg: Message{Sender: 7, Opcode: 3, Args: []Argument{
				Int(-42), Uint(0xdeadbeef), FixedArg(FixedFromFloat(-1.5)),
			}},
		},
		{
			name: "strings",
			msg: Message{Sender: 2, Opcode: 2, Args: []Argument{
				Uint(1), String("output"), Uint(2), String(""), NullString(), String("abc"),
			}},
		},
		{
			name: "objects",
			msg: Message{Sender: 0xff000001, Opcode: 9, Args: []Argument{
				Object(5), Object(0), NewID(12),
			}},
		},
		{
			name: "arrays",
			msg: Message{Sender: 3, Opcode: 1, Args: []Argument{
				Array([]byte{1, 2, 3, 4, 5}), Array([]byte{}), Array([]byte{9, 9, 9, 9}),
			}},
		},
		{
			name: "one_fd",
			msg: Message{Sender: 4, Opcode: 1, Args: []Argument{
				Int(100), FD(17), String("memfd"),
			}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			encoded, fds, err := tc.msg.Encode(nil)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if len(encoded)%4 != 0 {
				t.Errorf("encoded length %d is not 4-byte aligned", len(encoded))
			}

			var queue FDQueue
			queue.Push(fds...)

			decoded, n, err := DecodeMessage(encoded, tc.msg.Signature(), &queue)
			if err != nil {
				t.Fatalf("DecodeMessage failed: %v", err)
			}
			if n != len(encoded) {
				t.Errorf("consumed %d bytes, want %d", n, len(encoded))
			}
			if decoded.Sender != tc.msg.Sender || decoded.Opcode != tc.msg.Opcode {
				t.Errorf("header = %d/%d, want %d/%d", decoded.Sender, decoded.Opcode, tc.msg.Sender, tc.msg.Opcode)
			}
			if len(decoded.Args) != len(tc.msg.Args) {
				t.Fatalf("decoded %d args, want %d", len(decoded.Args), len(tc.msg.Args))
			}
			for i, want := range tc.msg.Args {
				got := decoded.Args[i]
				if got.Type != want.Type || got.Value != want.Value || got.Str != want.Str ||
					got.Null != want.Null || got.FD != want.FD || !bytes.Equal(got.Array, want.Array) {
					t.Errorf("arg %d = %+v, want %+v", i, got, want)
				}
			}
			if queue.Len() != 0 {
				t.Errorf("%d descriptors left in queue", queue.Len())
			}
		})
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	encoded, _, err := Message{Sender: 5, Opcode: 3, Args: []Argument{Uint(1)}}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	h, err := ParseHeader(encoded)
	if err != nil {
		t.Fatalf("ParseHeader failed: %v", err)
	}
	if h.Sender != 5 || h.Opcode != 3 || h.Size != 12 {
		t.Errorf("header = %+v, want sender 5 opcode 3 size 12", h)
	}
}

func TestEncodeStringPadding(t *testing.T) {
	encoded, _, err := Message{Sender: 1, Args: []Argument{String("seat")}}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	// header + length + "seat\0" padded to 8
	if len(encoded) != HeaderSize+4+8 {
		t.Errorf("encoded length = %d, want %d", len(encoded), HeaderSize+4+8)
	}
	if encoded[HeaderSize+4+4] != 0 {
		t.Error("string is not NUL terminated")
	}
}

func TestEncodeAppends(t *testing.T) {
	first, _, err := Message{Sender: 1, Opcode: 0}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	both, _, err := Message{Sender: 2, Opcode: 1, Args: []Argument{Int(3)}}.Encode(first)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	f1, n1, err := ReadFrame(both)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	f2, _, err := ReadFrame(both[n1:])
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if f1.Sender != 1 || f2.Sender != 2 || f2.Opcode != 1 {
		t.Errorf("frames out of order: %+v %+v", f1, f2)
	}
}

func TestEncodeErrors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{
			name: "two_fds",
			msg:  Message{Sender: 1, Args: []Argument{FD(3), FD(4)}},
			want: ErrTooManyFDs,
		},
		{
			name: "too_large",
			msg:  Message{Sender: 1, Args: []Argument{Array(make([]byte, MaxMessageSize))}},
			want: ErrMessageTooLarge,
		},
		{
			// The array fills the message exactly; the null string's length
			// word pushes it over.
			name: "too_large_null_string",
			msg: Message{Sender: 1, Args: []Argument{
				Array(make([]byte, MaxMessageSize-HeaderSize-4)),
				NullString(),
			}},
			want: ErrMessageTooLarge,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prefix := []byte{1, 2, 3, 4}
			out, _, err := tc.msg.Encode(prefix)
			if !errors.Is(err, tc.want) {
				t.Errorf("Encode error = %v, want %v", err, tc.want)
			}
			if len(out) != len(prefix) {
				t.Errorf("Encode left %d bytes, want %d", len(out), len(prefix))
			}
		})
	}
}

func TestEncodeAtSizeLimit(t *testing.T) {
	out, _, err := Message{Sender: 1, Args: []Argument{Array(make([]byte, MaxMessageSize-HeaderSize-4))}}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(out) != MaxMessageSize {
		t.Errorf("encoded %d bytes, want %d", len(out), MaxMessageSize)
	}
}

func TestReadFrameShortBuffer(t *testing.T) {
	encoded, _, err := Message{Sender: 1, Args: []Argument{String("compositor")}}.Encode(nil)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	for _, n := range []int{0, 4, HeaderSize, len(encoded) - 1} {
		if _, _, err := ReadFrame(encoded[:n]); !errors.Is(err, ErrShortBuffer) {
			t.Errorf("ReadFrame(%d bytes) error = %v, want ErrShortBuffer", n, err)
		}
	}
}

func TestParseHeaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		size uint32
	}{
		{"smaller_than_header", 4},
		{"unaligned", 13},
		{"too_large", MaxMessageSize + 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := make([]byte, 16)
			byteOrder.PutUint32(b[0:], 1)
			byteOrder.PutUint32(b[4:], tc.size<<16)
			if _, err := ParseHeader(b); !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseHeader error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	frame := func(payload ...uint32) Frame {
		var b []byte
		for _, v := range payload {
			b = byteOrder.AppendUint32(b, v)
		}
		return Frame{Sender: 1, Payload: b}
	}

	tests := []struct {
		name  string
		frame Frame
		sig   []ArgType
		want  error
	}{
		{"missing_uint", frame(), []ArgType{ArgUint}, ErrMalformed},
		{"trailing_bytes", frame(1, 2), []ArgType{ArgUint}, ErrMalformed},
		{"string_overrun", frame(100, 0), []ArgType{ArgString}, ErrMalformed},
		{"string_unterminated", frame(4, 0x41414141), []ArgType{ArgString}, ErrMalformed},
		{"array_overrun", frame(9, 0, 0), []ArgType{ArgArray}, ErrMalformed},
		{"missing_fd", frame(), []ArgType{ArgFD}, ErrMissingFD},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var queue FDQueue
			if _, err := tc.frame.Decode(tc.sig, &queue); !errors.Is(err, tc.want) {
				t.Errorf("Decode error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestArgumentString(t *testing.T) {
	tests := []struct {
		arg  Argument
		want string
	}{
		{Int(-3), "-3"},
		{Uint(7), "7"},
		{FixedArg(FixedFromFloat(2.5)), "2.5"},
		{String("x"), `"x"`},
		{NullString(), "nil"},
		{Object(0), "nil"},
		{Object(4), "object 4"},
		{NewID(9), "new id 9"},
		{Array([]byte{1, 2}), "array[2]"},
		{FD(5), "fd 5"},
	}
	for _, tc := range tests {
		if got := tc.arg.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

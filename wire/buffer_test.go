package wire

import (
	"bytes"
	"testing"
)

func TestBuffer_GrowCommitConsume(t *testing.T) {
	var b Buffer

	region := b.Grow(4)
	if len(region) < 4 {
		t.Fatalf("Grow returned %d bytes, want at least 4", len(region))
	}
	copy(region, []byte{1, 2, 3, 4})
	b.Commit(4)

	copy(b.Grow(2), []byte{5, 6})
	b.Commit(2)
	if !bytes.Equal(b.Bytes(), []byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Bytes() = %v", b.Bytes())
	}

	b.Consume(4)
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}

	// Growing compacts consumed bytes away.
	b.Grow(1024)
	if !bytes.Equal(b.Bytes(), []byte{5, 6}) {
		t.Errorf("Bytes() after Grow = %v, want [5 6]", b.Bytes())
	}

	b.Consume(2)
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
}

func TestBuffer_AppendMessage(t *testing.T) {
	var b Buffer
	if _, err := b.AppendMessage(Message{Sender: 1, Args: []Argument{Uint(1)}}); err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	mark := b.Len()
	fds, err := b.AppendMessage(Message{Sender: 2, Args: []Argument{FD(9)}})
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}
	if len(fds) != 1 || fds[0] != 9 {
		t.Errorf("fds = %v, want [9]", fds)
	}
	if b.Len() != mark+HeaderSize {
		t.Errorf("Len() = %d, want %d", b.Len(), mark+HeaderSize)
	}

	// A failed append leaves the buffer as it was.
	if _, err := b.AppendMessage(Message{Sender: 3, Args: []Argument{FD(-1)}}); err == nil {
		t.Fatal("AppendMessage accepted an invalid descriptor")
	}
	if b.Len() != mark+HeaderSize {
		t.Errorf("Len() after failed append = %d", b.Len())
	}
}

func TestFDQueue(t *testing.T) {
	var q FDQueue
	q.Push(3, 4)
	q.Push(5)

	for _, want := range []int{3, 4, 5} {
		fd, ok := q.PopFD()
		if !ok || fd != want {
			t.Errorf("PopFD() = %d, %v; want %d, true", fd, ok, want)
		}
	}
	if _, ok := q.PopFD(); ok {
		t.Error("PopFD on empty queue returned ok")
	}
}

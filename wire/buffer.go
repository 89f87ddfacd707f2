package wire

import "golang.org/x/sys/unix"

// Buffer holds bytes read from or queued for a socket. Consumed bytes are
// reclaimed lazily when more room is needed.
type Buffer struct {
	data []byte
	off  int
}

// Bytes returns the unconsumed bytes. The slice is valid until the next
// mutating call.
func (b *Buffer) Bytes() []byte { return b.data[b.off:] }

func (b *Buffer) Len() int { return len(b.data) - b.off }

// AppendMessage encodes m onto the end of the buffer.
func (b *Buffer) AppendMessage(m Message) ([]int, error) {
	data, fds, err := m.Encode(b.data)
	if err != nil {
		return nil, err
	}
	b.data = data
	return fds, nil
}

// Consume marks the first n unconsumed bytes as read.
func (b *Buffer) Consume(n int) {
	b.off += n
	if b.off >= len(b.data) {
		b.Reset()
	}
}

func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.off = 0
}

// Grow returns a writable region of at least n bytes past the end of the
// buffer. Call Commit with the number of bytes actually written.
func (b *Buffer) Grow(n int) []byte {
	if b.off > 0 && cap(b.data)-len(b.data) < n {
		m := copy(b.data, b.data[b.off:])
		b.data = b.data[:m]
		b.off = 0
	}
	if cap(b.data)-len(b.data) < n {
		grown := make([]byte, len(b.data), 2*cap(b.data)+n)
		copy(grown, b.data)
		b.data = grown
	}
	return b.data[len(b.data):cap(b.data)]
}

// Commit extends the buffer by n bytes previously written into Grow's region.
func (b *Buffer) Commit(n int) {
	b.data = b.data[:len(b.data)+n]
}

// FDQueue is a FIFO of received descriptors waiting for their message.
type FDQueue struct {
	fds []int
}

func (q *FDQueue) Push(fds ...int) {
	q.fds = append(q.fds, fds...)
}

func (q *FDQueue) PopFD() (int, bool) {
	if len(q.fds) == 0 {
		return -1, false
	}
	fd := q.fds[0]
	q.fds = q.fds[1:]
	return fd, true
}

func (q *FDQueue) Len() int { return len(q.fds) }

// CloseAll closes and forgets every queued descriptor.
func (q *FDQueue) CloseAll() {
	for _, fd := range q.fds {
		_ = unix.Close(fd)
	}
	q.fds = nil
}

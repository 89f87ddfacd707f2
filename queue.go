package wayland

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// Queue is an ordered list of received messages waiting for their handlers.
// Each queue is drained by one goroutine at a time; different queues of the
// same connection may be drained concurrently.
type Queue struct {
	conn *Conn

	mu       sync.Mutex
	messages []queued
}

type queued struct {
	target *Object
	msg    Message
}

// NewQueue creates an empty queue. Objects are moved to it with SetQueue.
func (c *Conn) NewQueue() *Queue {
	q := &Queue{conn: c}
	c.mu.Lock()
	c.queues = append(c.queues, q)
	c.mu.Unlock()
	return q
}

// Len returns the number of messages waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

func (q *Queue) push(target *Object, msg Message) {
	q.mu.Lock()
	q.messages = append(q.messages, queued{target: target, msg: msg})
	q.mu.Unlock()
}

func (q *Queue) pop() (queued, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.messages) == 0 {
		return queued{}, false
	}
	e := q.messages[0]
	q.messages[0] = queued{}
	q.messages = q.messages[1:]
	return e, true
}

// drain discards everything queued when the connection closes.
func (q *Queue) drain() {
	q.mu.Lock()
	messages := q.messages
	q.messages = nil
	q.mu.Unlock()

	for _, e := range messages {
		e.msg.closeFDs()
		e.target.pending.Add(-1)
	}
}

// DispatchPending runs the handlers of every queued message in arrival order
// without reading the socket. It returns the number of handlers run.
func (q *Queue) DispatchPending() (int, error) {
	n := 0
	for {
		if q.conn.closed.Load() {
			return n, ErrConnectionClosed
		}
		e, ok := q.pop()
		if !ok {
			return n, nil
		}
		ran, err := q.conn.dispatchOne(e.target, e.msg)
		if ran {
			n++
		}
		if err != nil {
			return n, err
		}
	}
}

// Dispatch runs queued handlers, reading from the socket first when the
// queue is empty. It blocks until at least one handler ran or the connection
// closed. Queued requests are not flushed; call Flush before blocking.
func (q *Queue) Dispatch() (int, error) {
	for {
		n, err := q.DispatchPending()
		if err != nil || n > 0 {
			return n, err
		}
		if err := q.conn.readEvents(q); err != nil {
			return 0, err
		}
	}
}

// Roundtrip sends a sync request, flushes, and dispatches the queue until the
// server answers it. Every request sent before it has then been processed.
func (q *Queue) Roundtrip() error {
	c := q.conn
	if c.side != ClientSide {
		return errors.New("wayland: roundtrip on a server connection")
	}

	cb, err := c.display.SendNewOnQueue(q, DisplayRequestSync, CallbackInterface, 0, wire.NewID(0))
	if err != nil {
		return err
	}
	done := false
	cb.SetHandler(HandlerFunc(func(*Object, Message) error {
		done = true
		return nil
	}))

	if err := c.Flush(); err != nil {
		return err
	}
	for !done {
		if _, err := q.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

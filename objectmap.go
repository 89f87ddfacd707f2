package wayland

import "github.com/pkg/errors"

// ObjectID names an object within one connection. Zero is the null object.
type ObjectID uint32

const (
	// DisplayID is the reserved id of the display object on every connection.
	DisplayID ObjectID = 1
	// ServerIDStart is the first id of the range allocated by servers; ids
	// below it are allocated by clients.
	ServerIDStart ObjectID = 0xff000000
	maxClientID   ObjectID = ServerIDStart - 1
)

// IsServerID reports whether id belongs to the server-allocated range.
func (id ObjectID) IsServerID() bool { return id >= ServerIDStart }

// objectMap is the per-connection arena of objects, indexed by id. Each range
// is a dense slice; freed ids go to a LIFO free list. A slot keeps pointing to
// a destroyed object until its id is reused, so late messages can be
// recognized and dropped.
type objectMap struct {
	client []*Object // index = id
	server []*Object // index = id - ServerIDStart

	clientFree []ObjectID
	serverFree []ObjectID
}

func newObjectMap() objectMap {
	// Slot 0 of the client range is the null id.
	return objectMap{client: make([]*Object, 1, 64)}
}

func (m *objectMap) lookup(id ObjectID) *Object {
	if id.IsServerID() {
		i := int(id - ServerIDStart)
		if i < len(m.server) {
			return m.server[i]
		}
		return nil
	}
	if int(id) < len(m.client) {
		return m.client[id]
	}
	return nil
}

// peek returns the id the next allocate call in the given range would use.
func (m *objectMap) peek(server bool) ObjectID {
	if server {
		if n := len(m.serverFree); n > 0 {
			return m.serverFree[n-1]
		}
		return ServerIDStart + ObjectID(len(m.server))
	}
	if n := len(m.clientFree); n > 0 {
		return m.clientFree[n-1]
	}
	return ObjectID(len(m.client))
}

// allocate stores obj under a fresh id from the given range.
func (m *objectMap) allocate(server bool, obj *Object) (ObjectID, error) {
	if server {
		if n := len(m.serverFree); n > 0 {
			id := m.serverFree[n-1]
			m.serverFree = m.serverFree[:n-1]
			m.server[id-ServerIDStart] = obj
			return id, nil
		}
		if uint64(len(m.server)) > uint64(^ObjectID(0)-ServerIDStart) {
			return 0, ErrIDSpaceExhausted
		}
		m.server = append(m.server, obj)
		return ServerIDStart + ObjectID(len(m.server)-1), nil
	}

	if n := len(m.clientFree); n > 0 {
		id := m.clientFree[n-1]
		m.clientFree = m.clientFree[:n-1]
		m.client[id] = obj
		return id, nil
	}
	if ObjectID(len(m.client)) > maxClientID {
		return 0, ErrIDSpaceExhausted
	}
	m.client = append(m.client, obj)
	return ObjectID(len(m.client) - 1), nil
}

// insertAt stores obj under an id chosen by the peer. The id must either
// extend its range by exactly one or reuse a slot whose object was destroyed.
func (m *objectMap) insertAt(id ObjectID, obj *Object) error {
	if id == 0 {
		return errors.Wrap(ErrInvalidObject, "null id")
	}
	slots := &m.client
	index := int(id)
	if id.IsServerID() {
		slots = &m.server
		index = int(id - ServerIDStart)
	}

	switch {
	case index == len(*slots):
		*slots = append(*slots, obj)
	case index < len(*slots):
		if old := (*slots)[index]; old != nil && !old.destroyed.Load() {
			return errors.Wrapf(ErrIDInUse, "id %d", id)
		}
		(*slots)[index] = obj
	default:
		return errors.Wrapf(ErrInvalidObject, "id %d skips ahead of range", id)
	}
	return nil
}

// free returns id to its range's free list. The slot keeps its tombstone.
func (m *objectMap) free(id ObjectID) {
	if id.IsServerID() {
		m.serverFree = append(m.serverFree, id)
		return
	}
	m.clientFree = append(m.clientFree, id)
}

// discard forgets an object that never reached the wire.
func (m *objectMap) discard(id ObjectID) {
	if id.IsServerID() {
		m.server[id-ServerIDStart] = nil
	} else {
		m.client[id] = nil
	}
	m.free(id)
}

// live counts objects that have not been destroyed.
func (m *objectMap) live() int {
	n := 0
	for _, slots := range [][]*Object{m.client, m.server} {
		for _, obj := range slots {
			if obj != nil && !obj.destroyed.Load() {
				n++
			}
		}
	}
	return n
}

package wayland

import (
	"github.com/Zereker/wayland/wire"
)

// clientDisplay handles the display events on a client. error and delete_id
// run as soon as they are read; global announcements go through the
// display's queue to the registry.
type clientDisplay struct {
	c *Conn
}

func (d clientDisplay) Dispatch(display *Object, msg Message) error {
	c := d.c
	switch msg.Opcode {
	case DisplayEventError:
		pe := &ProtocolError{
			ObjectID: ObjectID(msg.Uint(0)),
			Code:     msg.Uint(1),
			Message:  msg.String(2),
			received: true,
		}
		if obj := msg.Object(0); obj != nil {
			pe.Interface = obj.iface.Name
		}
		c.logger.Error("protocol error", "object", pe.ObjectID, "interface", pe.Interface,
			"code", pe.Code, "message", pe.Message)
		return pe

	case DisplayEventDeleteID:
		id := ObjectID(msg.Uint(0))
		obj := c.Object(id)
		if obj == nil || id.IsServerID() || obj == c.display {
			c.logger.Warn("delete_id for unknown object", "id", id)
			return nil
		}
		obj.acked.Store(true)
		c.maybeRelease(obj)

	case DisplayEventGlobal:
		c.registry.add(Global{Name: msg.Uint(0), Interface: msg.String(1), Version: msg.Uint(2)})

	case DisplayEventGlobalRemove:
		c.registry.remove(msg.Uint(0))
	}
	return nil
}

// serverDisplay handles the display requests of one client.
type serverDisplay struct {
	client *Client
}

func (d serverDisplay) Dispatch(display *Object, msg Message) error {
	switch msg.Opcode {
	case DisplayRequestSync:
		cb := msg.Object(0)
		return cb.Send(CallbackEventDone, wire.Uint(d.client.server.NextSerial()))

	case DisplayRequestBind:
		return runBind(msg.Object(3))
	}
	return nil
}

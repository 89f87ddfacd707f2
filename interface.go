package wayland

//go:generate go run ./cmd/wlgen -i protocol/core.xml -o core_protocol.go -p wayland --core --prefix wl_

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

// Interface is the static message table of one protocol interface, as
// produced by the interface generator. Requests flow client to server and
// events server to client; opcodes are slice indices.
type Interface struct {
	Name     string
	Version  uint32
	Requests []MessageDesc
	Events   []MessageDesc
}

// Request returns the request table entry for opcode.
func (i *Interface) Request(opcode uint16) (*MessageDesc, bool) {
	if int(opcode) >= len(i.Requests) {
		return nil, false
	}
	return &i.Requests[opcode], true
}

// Event returns the event table entry for opcode.
func (i *Interface) Event(opcode uint16) (*MessageDesc, bool) {
	if int(opcode) >= len(i.Events) {
		return nil, false
	}
	return &i.Events[opcode], true
}

// Validate checks the table once, at registration time, so that sends and
// decodes can trust it.
func (i *Interface) Validate() error {
	if i.Name == "" {
		return errors.New("wayland: interface has no name")
	}
	if i.Version == 0 {
		return errors.Errorf("wayland: interface %s: version must be at least 1", i.Name)
	}
	if len(i.Requests) > 0xffff || len(i.Events) > 0xffff {
		return errors.Errorf("wayland: interface %s: too many messages", i.Name)
	}

	destructors := 0
	for k := range i.Requests {
		if err := i.validateMessage(&i.Requests[k]); err != nil {
			return err
		}
		if i.Requests[k].Destructor {
			destructors++
		}
	}
	if destructors > 1 {
		return errors.Errorf("wayland: interface %s: %d destructor requests", i.Name, destructors)
	}
	for k := range i.Events {
		if err := i.validateMessage(&i.Events[k]); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interface) validateMessage(m *MessageDesc) error {
	m.prepare()
	bad := func(format string, args ...any) error {
		return &SignatureError{Interface: i.Name, Message: m.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if m.Since > i.Version {
		return bad("since %d exceeds interface version %d", m.Since, i.Version)
	}
	fds, newIDs := 0, 0
	for k, a := range m.Args {
		switch a.Type {
		case wire.ArgFD:
			fds++
		case wire.ArgNewID:
			newIDs++
			if a.Nullable {
				return bad("new_id argument %s cannot be nullable", a.Name)
			}
			if a.Interface == "" {
				if k < 2 || m.Args[k-2].Type != wire.ArgString || m.Args[k-1].Type != wire.ArgUint {
					return bad("untyped new_id %s must follow interface and version arguments", a.Name)
				}
			}
		case wire.ArgString, wire.ArgObject:
		case wire.ArgInt, wire.ArgUint, wire.ArgFixed, wire.ArgArray:
			if a.Nullable {
				return bad("%s argument %s cannot be nullable", a.Type, a.Name)
			}
		default:
			return bad("argument %s has unknown type %d", a.Name, a.Type)
		}
	}
	if fds > wire.MaxFDsPerMessage {
		return bad("%d fd arguments", fds)
	}
	if newIDs > 1 {
		return bad("%d new_id arguments", newIDs)
	}
	return nil
}

// interfaces is the process-wide table of known interfaces, used to resolve
// new_id arguments that name their interface.
var interfaces = struct {
	sync.RWMutex
	byName map[string]*Interface
}{byName: make(map[string]*Interface)}

// RegisterInterface validates iface and makes it resolvable by name.
// Registering the same table twice is a no-op.
func RegisterInterface(iface *Interface) error {
	interfaces.Lock()
	defer interfaces.Unlock()

	if existing, ok := interfaces.byName[iface.Name]; ok {
		if existing == iface {
			return nil
		}
		return errors.Errorf("wayland: interface %s registered twice", iface.Name)
	}
	if err := iface.Validate(); err != nil {
		return err
	}
	interfaces.byName[iface.Name] = iface
	return nil
}

// ensureRegistered registers iface if needed. Objects are only created with
// registered interfaces, whose tables are validated once.
func ensureRegistered(iface *Interface) error {
	if err := RegisterInterface(iface); err != nil {
		return errors.Wrapf(ErrUnknownInterface, "%s: %v", iface.Name, err)
	}
	return nil
}

// MustRegisterInterface is RegisterInterface for generated init functions.
func MustRegisterInterface(iface *Interface) {
	if err := RegisterInterface(iface); err != nil {
		panic(err)
	}
}

// LookupInterface returns the registered interface with the given name.
func LookupInterface(name string) (*Interface, bool) {
	interfaces.RLock()
	defer interfaces.RUnlock()
	iface, ok := interfaces.byName[name]
	return iface, ok
}

func lookupInterface(name string) (*Interface, error) {
	iface, ok := LookupInterface(name)
	if !ok {
		return nil, errors.Wrap(ErrUnknownInterface, name)
	}
	return iface, nil
}

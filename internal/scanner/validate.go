package scanner

import (
	"fmt"
	"strconv"

	"github.com/Zereker/wayland/wire"
)

// ValidationError locates a problem in a protocol description.
type ValidationError struct {
	Interface string
	Message   string
	Reason    string
}

func (e ValidationError) Error() string {
	switch {
	case e.Interface == "":
		return fmt.Sprintf("scanner: %s", e.Reason)
	case e.Message == "":
		return fmt.Sprintf("scanner: %s: %s", e.Interface, e.Reason)
	}
	return fmt.Sprintf("scanner: %s.%s: %s", e.Interface, e.Message, e.Reason)
}

// Normalize fills in defaults and expands untyped new_id arguments into the
// interface name, version and id triple that travels on the wire. It is safe
// to run more than once.
func Normalize(p *Protocol) {
	for _, iface := range p.Interfaces {
		for _, m := range iface.Requests {
			normalizeMessage(m)
		}
		for _, m := range iface.Events {
			normalizeMessage(m)
		}
		for _, e := range iface.Enums {
			if e.Since == 0 {
				e.Since = 1
			}
		}
	}
}

func normalizeMessage(m *Message) {
	if m.Since == 0 {
		m.Since = 1
	}
	for k := 0; k < len(m.Args); k++ {
		a := m.Args[k]
		if a.Type != "new_id" || a.Interface != "" {
			continue
		}
		if k >= 2 && m.Args[k-2].Type == "string" && m.Args[k-1].Type == "uint" {
			m.Args[k-2].Implicit = true
			m.Args[k-1].Implicit = true
			continue
		}
		implicit := []*Arg{
			{Name: "interface", Type: "string", Summary: "interface of the new object", Implicit: true},
			{Name: "version", Type: "uint", Summary: "version of the new object", Implicit: true},
		}
		m.Args = append(m.Args[:k], append(implicit, m.Args[k:]...)...)
		k += len(implicit)
	}
}

// Validate checks a normalized protocol against the rules the runtime
// enforces when the generated tables are registered.
func Validate(p *Protocol) error {
	if p.Name == "" {
		return ValidationError{Reason: "protocol has no name"}
	}
	if len(p.Interfaces) == 0 {
		return ValidationError{Reason: fmt.Sprintf("protocol %s has no interfaces", p.Name)}
	}

	seen := make(map[string]bool)
	for _, iface := range p.Interfaces {
		if iface.Name == "" {
			return ValidationError{Reason: "interface has no name"}
		}
		if seen[iface.Name] {
			return ValidationError{Interface: iface.Name, Reason: "defined twice"}
		}
		seen[iface.Name] = true

		if err := validateInterface(iface); err != nil {
			return err
		}
	}
	return nil
}

func validateInterface(iface *Interface) error {
	bad := func(reason string, v ...any) error {
		return ValidationError{Interface: iface.Name, Reason: fmt.Sprintf(reason, v...)}
	}
	if iface.Version == 0 {
		return bad("version must be at least 1")
	}

	destructors := 0
	if err := validateMessages(iface, iface.Requests, "request"); err != nil {
		return err
	}
	for _, m := range iface.Requests {
		if m.IsDestructor() {
			destructors++
		}
	}
	if destructors > 1 {
		return bad("%d destructor requests", destructors)
	}
	if err := validateMessages(iface, iface.Events, "event"); err != nil {
		return err
	}

	enums := make(map[string]bool)
	for _, e := range iface.Enums {
		if e.Name == "" {
			return bad("enum has no name")
		}
		if enums[e.Name] {
			return bad("enum %s defined twice", e.Name)
		}
		enums[e.Name] = true

		entries := make(map[string]bool)
		for _, entry := range e.Entries {
			if entries[entry.Name] {
				return bad("enum %s: entry %s defined twice", e.Name, entry.Name)
			}
			entries[entry.Name] = true
			if _, err := strconv.ParseUint(entry.Value, 0, 32); err != nil {
				return bad("enum %s: entry %s: invalid value %q", e.Name, entry.Name, entry.Value)
			}
		}
	}
	return nil
}

func validateMessages(iface *Interface, messages []*Message, kind string) error {
	if len(messages) > 0xffff {
		return ValidationError{Interface: iface.Name, Reason: "too many " + kind + "s"}
	}
	names := make(map[string]bool)
	for _, m := range messages {
		bad := func(reason string, v ...any) error {
			return ValidationError{Interface: iface.Name, Message: m.Name, Reason: fmt.Sprintf(reason, v...)}
		}
		if m.Name == "" {
			return ValidationError{Interface: iface.Name, Reason: kind + " has no name"}
		}
		if names[m.Name] {
			return bad("%s defined twice", kind)
		}
		names[m.Name] = true

		if m.Type != "" && !m.IsDestructor() {
			return bad("unknown message type %q", m.Type)
		}
		if m.Since == 0 || m.Since > iface.Version {
			return bad("since %d outside interface version %d", m.Since, iface.Version)
		}

		fds, newIDs := 0, 0
		for k, a := range m.Args {
			t, ok := wire.ParseArgType(a.Type)
			if !ok {
				return bad("argument %s has unknown type %q", a.Name, a.Type)
			}
			if a.Name == "" {
				return bad("argument %d has no name", k)
			}
			if a.AllowNull && t != wire.ArgString && t != wire.ArgObject {
				return bad("%s argument %s cannot be nullable", t, a.Name)
			}
			switch t {
			case wire.ArgFD:
				fds++
			case wire.ArgNewID:
				newIDs++
				if a.Interface == "" && (k < 2 || !m.Args[k-2].Implicit || !m.Args[k-1].Implicit) {
					return bad("untyped new_id %s is not normalized", a.Name)
				}
			}
		}
		if fds > wire.MaxFDsPerMessage {
			return bad("%d fd arguments", fds)
		}
		if newIDs > 1 {
			return bad("%d new_id arguments", newIDs)
		}
	}
	return nil
}

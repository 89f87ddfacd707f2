// Package scanner reads protocol descriptions and generates the Go tables
// and typed wrappers the wayland package consumes.
package scanner

import (
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Protocol is a parsed protocol description.
type Protocol struct {
	XMLName     xml.Name     `xml:"protocol" yaml:"-"`
	Name        string       `xml:"name,attr" yaml:"name"`
	Copyright   string       `xml:"copyright" yaml:"copyright,omitempty"`
	Description *Description `xml:"description" yaml:"description,omitempty"`
	Interfaces  []*Interface `xml:"interface" yaml:"interfaces"`
}

// Description is the free-form documentation attached to most elements.
type Description struct {
	Summary string `xml:"summary,attr" yaml:"summary"`
	Text    string `xml:",chardata" yaml:"text,omitempty"`
}

type Interface struct {
	Name        string       `xml:"name,attr" yaml:"name"`
	Version     uint32       `xml:"version,attr" yaml:"version"`
	Description *Description `xml:"description" yaml:"description,omitempty"`
	Requests    []*Message   `xml:"request" yaml:"requests,omitempty"`
	Events      []*Message   `xml:"event" yaml:"events,omitempty"`
	Enums       []*Enum      `xml:"enum" yaml:"enums,omitempty"`
}

// Message is a request or an event.
type Message struct {
	Name        string       `xml:"name,attr" yaml:"name"`
	Type        string       `xml:"type,attr" yaml:"type,omitempty"`
	Since       uint32       `xml:"since,attr" yaml:"since,omitempty"`
	Description *Description `xml:"description" yaml:"description,omitempty"`
	Args        []*Arg       `xml:"arg" yaml:"args,omitempty"`
}

// IsDestructor reports whether the message destroys its object.
func (m *Message) IsDestructor() bool { return m.Type == "destructor" }

type Arg struct {
	Name      string `xml:"name,attr" yaml:"name"`
	Type      string `xml:"type,attr" yaml:"type"`
	Interface string `xml:"interface,attr" yaml:"interface,omitempty"`
	AllowNull bool   `xml:"allow-null,attr" yaml:"allow-null,omitempty"`
	Enum      string `xml:"enum,attr" yaml:"enum,omitempty"`
	Summary   string `xml:"summary,attr" yaml:"summary,omitempty"`

	// Implicit marks the interface and version arguments Normalize adds in
	// front of an untyped new_id.
	Implicit bool `xml:"-" yaml:"-"`
}

type Enum struct {
	Name        string       `xml:"name,attr" yaml:"name"`
	Since       uint32       `xml:"since,attr" yaml:"since,omitempty"`
	Bitfield    bool         `xml:"bitfield,attr" yaml:"bitfield,omitempty"`
	Description *Description `xml:"description" yaml:"description,omitempty"`
	Entries     []*Entry     `xml:"entry" yaml:"entries"`
}

type Entry struct {
	Name    string `xml:"name,attr" yaml:"name"`
	Value   string `xml:"value,attr" yaml:"value"`
	Summary string `xml:"summary,attr" yaml:"summary,omitempty"`
	Since   uint32 `xml:"since,attr" yaml:"since,omitempty"`
}

// ParseXML reads a protocol in the XML description format.
func ParseXML(r io.Reader) (*Protocol, error) {
	var p Protocol
	if err := xml.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, "scanner: parse xml")
	}
	return &p, nil
}

// ParseYAML reads a protocol written as a YAML document with the same
// structure as the XML format.
func ParseYAML(r io.Reader) (*Protocol, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var p Protocol
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(err, "scanner: parse yaml")
	}
	return &p, nil
}

// ParseFile reads path, choosing the format by extension, then normalizes
// and validates the result.
func ParseFile(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "scanner: read protocol")
	}

	var p *Protocol
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		p, err = ParseYAML(bytes.NewReader(data))
	default:
		p, err = ParseXML(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrap(err, path)
	}

	Normalize(p)
	if err := Validate(p); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return p, nil
}

// Lookup returns the interface called name.
func (p *Protocol) Lookup(name string) (*Interface, bool) {
	for _, iface := range p.Interfaces {
		if iface.Name == name {
			return iface, true
		}
	}
	return nil, false
}

package scanner

import (
	"bytes"
	_ "embed"
	"fmt"
	"go/format"
	"strconv"
	"strings"
	"text/template"

	"github.com/pkg/errors"

	"github.com/Zereker/wayland/wire"
)

//go:embed protocol.go.tmpl
var protocolTemplate string

var tmpl = template.Must(template.New("protocol").Funcs(template.FuncMap{
	"dict": func(qual string, m *messageView) map[string]any {
		return map[string]any{"qual": qual, "msg": m}
	},
}).Parse(protocolTemplate))

// Options controls code generation.
type Options struct {
	// Package is the name of the generated package.
	Package string
	// Source is the description file named in the generated header.
	Source string
	// Core generates the tables for the wayland package itself: identifiers
	// are not qualified and no wrappers are emitted.
	Core bool
	// TrimPrefix is removed from interface names before they become Go
	// identifiers, "wl_" for the core protocol.
	TrimPrefix string
}

type fileView struct {
	Source     string
	Package    string
	Core       bool
	Qual       string
	NeedWire   bool
	Interfaces []*ifaceView
}

type ifaceView struct {
	Name     string
	GoName   string
	Var      string
	Version  uint32
	Summary  string
	Requests []*messageView
	Events   []*messageView
	Enums    []*enumView
}

type messageView struct {
	Name       string
	GoName     string
	Method     string
	Const      string
	Opcode     int
	Since      uint32
	Destructor bool
	Summary    string
	Literals   []string

	Params   string
	Result   string
	Body     string
	Handler  string
	CallArgs string
}

type enumView struct {
	Name     string
	GoName   string
	Bitfield bool
	Summary  string
	Entries  []entryView
}

type entryView struct {
	GoName  string
	Value   string
	Summary string
}

// Generate renders p as a gofmt-formatted Go source file.
func Generate(p *Protocol, opts Options) ([]byte, error) {
	if opts.Package == "" {
		return nil, errors.New("scanner: package name is required")
	}
	Normalize(p)
	if err := Validate(p); err != nil {
		return nil, err
	}

	g := &generator{p: p, opts: opts}
	view, err := g.file()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, errors.Wrap(err, "scanner: execute template")
	}
	out, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "scanner: format generated code")
	}
	return out, nil
}

type generator struct {
	p    *Protocol
	opts Options
}

func (g *generator) qual() string {
	if g.opts.Core {
		return ""
	}
	return "wayland."
}

// wrapper returns the Go type of the wrapper for the named interface, or ""
// when the interface lives in another protocol.
func (g *generator) wrapper(name string) string {
	if g.opts.Core || name == "" {
		return ""
	}
	if _, ok := g.p.Lookup(name); !ok {
		return ""
	}
	return GoName(name, g.opts.TrimPrefix)
}

func (g *generator) file() (*fileView, error) {
	source := g.opts.Source
	if source == "" {
		source = g.p.Name
	}
	fv := &fileView{
		Source:  source,
		Package: g.opts.Package,
		Core:    g.opts.Core,
		Qual:    g.qual(),
	}
	for _, iface := range g.p.Interfaces {
		iv, err := g.iface(iface)
		if err != nil {
			return nil, err
		}
		fv.NeedWire = fv.NeedWire || hasArgs(iface.Requests) || hasArgs(iface.Events)
		fv.Interfaces = append(fv.Interfaces, iv)
	}
	return fv, nil
}

func (g *generator) iface(iface *Interface) (*ifaceView, error) {
	name := GoName(iface.Name, g.opts.TrimPrefix)
	iv := &ifaceView{
		Name:    iface.Name,
		GoName:  name,
		Var:     name + "Interface",
		Version: iface.Version,
		Summary: summaryOf(iface.Description),
	}

	methods := make(map[string]string)
	claim := func(method, owner string) error {
		if prev, ok := methods[method]; ok {
			return ValidationError{Interface: iface.Name, Message: owner,
				Reason: fmt.Sprintf("method %s collides with %s", method, prev)}
		}
		methods[method] = owner
		return nil
	}

	for i, m := range iface.Requests {
		mv := g.message(iv, m, i, "Request")
		mv.Method = methodName(m.Name)
		if !g.opts.Core {
			if err := claim(mv.Method, m.Name); err != nil {
				return nil, err
			}
			g.sender(mv, m)
			g.receiver(iv, mv, m, true)
		}
		iv.Requests = append(iv.Requests, mv)
	}
	for i, m := range iface.Events {
		mv := g.message(iv, m, i, "Event")
		mv.Method = "Send" + mv.GoName
		if objectMethods[mv.Method] {
			mv.Method += "Event"
		}
		if !g.opts.Core {
			if err := claim(mv.Method, m.Name); err != nil {
				return nil, err
			}
			g.sender(mv, m)
			g.receiver(iv, mv, m, false)
		}
		iv.Events = append(iv.Events, mv)
	}

	for _, e := range iface.Enums {
		ev := &enumView{
			Name:     e.Name,
			GoName:   name + GoName(e.Name, ""),
			Bitfield: e.Bitfield,
			Summary:  summaryOf(e.Description),
		}
		for _, entry := range e.Entries {
			ev.Entries = append(ev.Entries, entryView{
				GoName:  ev.GoName + GoName(entry.Name, ""),
				Value:   entry.Value,
				Summary: strings.Join(strings.Fields(entry.Summary), " "),
			})
		}
		iv.Enums = append(iv.Enums, ev)
	}
	return iv, nil
}

func (g *generator) message(iv *ifaceView, m *Message, opcode int, kind string) *messageView {
	mv := &messageView{
		Name:       m.Name,
		GoName:     GoName(m.Name, ""),
		Opcode:     opcode,
		Since:      m.Since,
		Destructor: m.IsDestructor(),
		Summary:    summaryOf(m.Description),
	}
	mv.Const = iv.GoName + kind + mv.GoName
	for _, a := range m.Args {
		mv.Literals = append(mv.Literals, g.argLiteral(a))
	}
	return mv
}

func (g *generator) argLiteral(a *Arg) string {
	t, _ := wire.ParseArgType(a.Type)
	fields := []string{
		"Name: " + strconv.Quote(a.Name),
		"Type: wire." + argTypeConst(t),
	}
	if a.AllowNull {
		fields = append(fields, "Nullable: true")
	}
	if a.Interface != "" {
		fields = append(fields, "Interface: "+strconv.Quote(a.Interface))
	}
	return "{" + strings.Join(fields, ", ") + "}"
}

func argTypeConst(t wire.ArgType) string {
	switch t {
	case wire.ArgInt:
		return "ArgInt"
	case wire.ArgUint:
		return "ArgUint"
	case wire.ArgFixed:
		return "ArgFixed"
	case wire.ArgString:
		return "ArgString"
	case wire.ArgObject:
		return "ArgObject"
	case wire.ArgNewID:
		return "ArgNewID"
	case wire.ArgArray:
		return "ArgArray"
	}
	return "ArgFD"
}

// sender fills in the method that sends m from a wrapper.
func (g *generator) sender(mv *messageView, m *Message) {
	var params, args []string
	newID := -1
	for k, a := range m.Args {
		if a.Implicit {
			if a.Type == "string" {
				args = append(args, "wire.String(iface.Name)")
			} else {
				args = append(args, "wire.Uint(version)")
			}
			continue
		}
		name := paramName(a.Name)
		switch a.Type {
		case "int":
			params = append(params, name+" int32")
			args = append(args, "wire.Int("+name+")")
		case "uint":
			params = append(params, name+" uint32")
			args = append(args, "wire.Uint("+name+")")
		case "fixed":
			params = append(params, name+" wire.Fixed")
			args = append(args, "wire.FixedArg("+name+")")
		case "string":
			params = append(params, name+" string")
			if a.AllowNull {
				args = append(args, "wayland.OptionalString("+name+")")
			} else {
				args = append(args, "wire.String("+name+")")
			}
		case "array":
			params = append(params, name+" []byte")
			args = append(args, "wire.Array("+name+")")
		case "fd":
			params = append(params, name+" int")
			args = append(args, "wire.FD("+name+")")
		case "object":
			if w := g.wrapper(a.Interface); w != "" {
				params = append(params, name+" *"+w)
				args = append(args, "wayland.ObjectArg("+name+".object())")
			} else {
				params = append(params, name+" *wayland.Object")
				args = append(args, "wayland.ObjectArg("+name+")")
			}
		case "new_id":
			newID = k
			args = append(args, "wire.NewID(0)")
		}
	}

	call := strings.Join(args, ", ")
	if call != "" {
		call = ", " + call
	}

	switch {
	case newID < 0:
		mv.Result = "error"
		mv.Body = "return p.Send(" + mv.Const + call + ")"
	case m.Args[newID].Interface == "":
		params = append(params, "iface *wayland.Interface", "version uint32")
		mv.Result = "(*wayland.Object, error)"
		mv.Body = "return p.SendNew(" + mv.Const + ", iface, version" + call + ")"
	default:
		w := g.wrapper(m.Args[newID].Interface)
		if w == "" {
			mv.Result = "(*wayland.Object, error)"
			mv.Body = "return p.SendNew(" + mv.Const + ", nil, 0" + call + ")"
			break
		}
		mv.Result = "(*" + w + ", error)"
		mv.Body = "obj, err := p.SendNew(" + mv.Const + ", nil, 0" + call + ")\n" +
			"if err != nil {\nreturn nil, err\n}\n" +
			"return &" + w + "{Object: obj}, nil"
	}
	mv.Params = strings.Join(params, ", ")
}

// receiver fills in the handler signature for m and the call that decodes
// a received message into it. Servers see untyped new_id arguments as bare
// ids, since they create those objects themselves.
func (g *generator) receiver(iv *ifaceView, mv *messageView, m *Message, server bool) {
	var params, call []string
	for k, a := range m.Args {
		name := paramName(a.Name)
		var typ, expr string
		switch a.Type {
		case "int":
			typ, expr = "int32", fmt.Sprintf("msg.Int(%d)", k)
		case "uint":
			typ, expr = "uint32", fmt.Sprintf("msg.Uint(%d)", k)
		case "fixed":
			typ, expr = "wire.Fixed", fmt.Sprintf("msg.Fixed(%d)", k)
		case "string":
			typ, expr = "string", fmt.Sprintf("msg.String(%d)", k)
		case "array":
			typ, expr = "[]byte", fmt.Sprintf("msg.Array(%d)", k)
		case "fd":
			typ, expr = "int", fmt.Sprintf("msg.FD(%d)", k)
		case "object", "new_id":
			if a.Type == "new_id" && a.Interface == "" && server {
				typ, expr = "wayland.ObjectID", fmt.Sprintf("msg.NewID(%d)", k)
			} else if w := g.wrapper(a.Interface); w != "" {
				typ, expr = "*"+w, fmt.Sprintf("As%s(msg.Object(%d))", w, k)
			} else {
				typ, expr = "*wayland.Object", fmt.Sprintf("msg.Object(%d)", k)
			}
		}
		params = append(params, name+" "+typ)
		call = append(call, expr)
	}

	if server {
		params = append([]string{"r *" + iv.GoName}, params...)
		call = append([]string{"p"}, call...)
	}
	mv.Handler = strings.Join(params, ", ")
	mv.CallArgs = strings.Join(call, ", ")
}

func hasArgs(messages []*Message) bool {
	for _, m := range messages {
		if len(m.Args) > 0 {
			return true
		}
	}
	return false
}

func summaryOf(d *Description) string {
	if d == nil {
		return ""
	}
	return sentence(d.Summary)
}

// sentence capitalizes s and ends it with a period.
func sentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

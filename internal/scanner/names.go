package scanner

import (
	"go/token"
	"go/types"
	"strings"
)

// initialisms are written in upper case inside Go identifiers.
var initialisms = map[string]string{
	"id":   "ID",
	"fd":   "FD",
	"url":  "URL",
	"uri":  "URI",
	"dpi":  "DPI",
	"rgb":  "RGB",
	"rgba": "RGBA",
	"xrgb": "XRGB",
	"argb": "ARGB",
	"api":  "API",
	"ui":   "UI",
}

// GoName converts a snake_case protocol name to an exported Go identifier,
// dropping prefix first.
func GoName(name, prefix string) string {
	name = strings.TrimPrefix(name, prefix)
	var b strings.Builder
	for _, word := range strings.Split(name, "_") {
		if word == "" {
			continue
		}
		if up, ok := initialisms[strings.ToLower(word)]; ok {
			b.WriteString(up)
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	out := b.String()
	if out == "" || !token.IsIdentifier(out) {
		out = "X" + out
	}
	return out
}

// localNames are taken by the generated method bodies.
var localNames = map[string]bool{
	"p": true, "r": true, "l": true, "impl": true, "obj": true, "msg": true, "err": true,
	"wayland": true, "wire": true, "iface": true, "version": true,
}

// paramName converts a protocol argument name to an unexported parameter
// name that cannot shadow anything the generated code uses.
func paramName(name string) string {
	exported := GoName(name, "")
	param := strings.ToLower(exported[:1]) + exported[1:]
	if up, ok := initialisms[strings.ToLower(name)]; ok {
		param = strings.ToLower(up)
	}
	if token.IsKeyword(param) || localNames[param] || types.Universe.Lookup(param) != nil {
		param += "Arg"
	}
	return param
}

// objectMethods are promoted from *wayland.Object and must stay reachable
// on wrappers. Destroy is absent: a destructor request replaces it.
var objectMethods = map[string]bool{
	"ID": true, "Interface": true, "Version": true, "Conn": true, "Alive": true,
	"SetHandler": true, "Handler": true, "SetQueue": true, "Queue": true,
	"UserData": true, "SetUserData": true, "Send": true, "SendNew": true,
	"SendNewOnQueue": true, "PostError": true, "String": true,
	"SetListener": true, "SetImplementation": true,
}

func methodName(name string) string {
	n := GoName(name, "")
	if objectMethods[n] {
		n += "Request"
	}
	return n
}

// Package demo holds the generated bindings of a small desktop protocol:
// a compositor that creates surfaces, shared memory pools passed by file
// descriptor, outputs and seats. It is used by the examples and by the
// end-to-end tests of the engine.
package demo

//go:generate go run ../../cmd/wlgen -i demo.xml -o demo.go -p demo --prefix wl_

package main

import (
	"bytes"

	"osim/kernel"
	"osim/kernel/loader"
	"osim/kernel/trap"
)

// program is an in-memory stand-in for an executable file: just enough for
// loader.Load to install a process's segments from (spec.md §1 scopes the
// on-disk executable format itself out of the kernel's concern, so there is
// nothing here to actually decode or execute).
type program struct {
	header loader.Header
	image  []byte
	argv   []string
}

// registry is the trivial, built-in "file system" cmd/osim resolves
// YALNIX_EXEC and the boot-time init program name against, standing in for
// original_source's on-disk a.out lookup.
var registry = map[string]program{
	"init": {
		header: loader.Header{EntryPage: 0, TextPages: 1, DataPages: 1},
		image:  make([]byte, 2*4096),
	},
}

// lookup implements trap.ExecLookup against registry.
func lookup(name string) (trap.ExecFile, loader.Header, []string, *kernel.Error) {
	p, ok := registry[name]
	if !ok {
		return nil, loader.Header{}, nil, &kernel.Error{Module: "cmd/osim", Message: "no such program: " + name}
	}
	argv := p.argv
	if argv == nil {
		argv = []string{name}
	}
	return bytes.NewReader(p.image), p.header, argv, nil
}

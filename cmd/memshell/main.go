// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The memshell tool is an interactive REPL for walking a pinned struct view
// field by field: load a schema, pin a struct at an address over a
// zero-filled memory block, then "get", "set", "cd" and "up" your way
// around it.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"golang.org/x/memoverlay/memschema"
	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

func main() {
	schemaPath := flag.String("schema", "", "path to a memschema YAML file")
	structName := flag.String("struct", "", "struct name from the schema to pin")
	size := flag.Int64("size", 4096, "bytes of zero-filled memory to map")
	flag.Parse()

	if *schemaPath == "" || *structName == "" {
		fmt.Fprintln(os.Stderr, "memshell: -schema and -struct are required")
		os.Exit(2)
	}

	data, err := os.ReadFile(*schemaPath)
	if err != nil {
		fatal(err)
	}
	structs, err := memschema.Load(data)
	if err != nil {
		fatal(err)
	}
	st, ok := structs[*structName]
	if !ok {
		fatal(fmt.Errorf("schema has no struct %q", *structName))
	}

	vm := memvm.New()
	base, err := vm.Map(*size, memvm.Read|memvm.Write)
	if err != nil {
		fatal(err)
	}
	root, err := typedmem.Pin(st, vm, base)
	if err != nil {
		fatal(err)
	}

	rl, err := readline.New(prompt(root))
	if err != nil {
		fatal(err)
	}
	defer rl.Close()

	shell{vm: vm, cur: root}.run(rl)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "memshell:", err)
	os.Exit(1)
}

func prompt(v typedmem.View) string {
	return fmt.Sprintf("%s> ", v.Type())
}

// shell holds the REPL's navigation state: the view currently "cd"'d into,
// plus the stack of views "cd" has descended through (so "up" can return).
type shell struct {
	vm    typedmem.VM
	cur   typedmem.View
	stack []typedmem.View
}

func (s shell) run(rl *readline.Instance) {
	for {
		rl.SetPrompt(prompt(s.cur))
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			fatal(err)
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if err := s.dispatch(fields); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func (s *shell) dispatch(fields []string) error {
	switch fields[0] {
	case "help":
		fmt.Println("commands: get <field>, set <field> <value>, cd <field>, up, addr, raw, quit")
		return nil
	case "up":
		if len(s.stack) == 0 {
			return fmt.Errorf("already at the root")
		}
		s.cur = s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		return nil
	case "quit", "exit":
		os.Exit(0)
		return nil
	case "addr":
		fmt.Printf("%#x\n", uint64(s.cur.Addr()))
		return nil
	case "raw":
		raw, err := s.cur.Raw()
		if err != nil {
			return err
		}
		fmt.Printf("% x\n", raw)
		return nil
	case "get":
		if len(fields) != 2 {
			return fmt.Errorf("usage: get <field>")
		}
		sv, ok := s.cur.(*typedmem.StructView)
		if !ok {
			return fmt.Errorf("current view is not a struct")
		}
		v, err := sv.Field(fields[1])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set <field> <value>")
		}
		sv, ok := s.cur.(*typedmem.StructView)
		if !ok {
			return fmt.Errorf("current view is not a struct")
		}
		n, err := strconv.ParseInt(fields[2], 0, 64)
		if err != nil {
			return sv.SetField(fields[1], fields[2])
		}
		return sv.SetField(fields[1], n)
	case "cd":
		if len(fields) != 2 {
			return fmt.Errorf("usage: cd <field>")
		}
		sv, ok := s.cur.(*typedmem.StructView)
		if !ok {
			return fmt.Errorf("current view is not a struct")
		}
		addr, err := sv.FieldAddr(fields[1])
		if err != nil {
			return err
		}
		fv, err := sv.Field(fields[1])
		if err != nil {
			return err
		}
		if view, ok := fv.(typedmem.View); ok {
			s.stack = append(s.stack, s.cur)
			s.cur = view
			return nil
		}
		return fmt.Errorf("field %q (at %#x) is a scalar, not a navigable view", fields[1], uint64(addr))
	default:
		return fmt.Errorf("unknown command %q; try 'help'", fields[0])
	}
}

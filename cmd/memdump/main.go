// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The memdump tool loads a typedmem struct schema from a YAML sidecar file,
// and prints the schema's layout ("describe") or maps a flat binary file
// into memory and prints the decoded field values at a chosen offset into
// it ("dump"). Run "memdump help" for a list of commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"golang.org/x/memoverlay/cmd/memdump/internal/render"
	"golang.org/x/memoverlay/memschema"
	"golang.org/x/memoverlay/memvm"
	"golang.org/x/memoverlay/typedmem"
)

var (
	schemaPath string
	binPath    string
	structName string
	addr       uint64
)

func main() {
	root := &cobra.Command{
		Use:   "memdump",
		Short: "Inspect byte-addressable memory through a typedmem schema",
	}
	root.PersistentFlags().StringVar(&schemaPath, "schema", "", "path to a memschema YAML file (required)")
	root.MarkPersistentFlagRequired("schema")

	describe := &cobra.Command{
		Use:   "describe",
		Short: "print every struct's field layout",
		RunE:  runDescribe,
	}

	dump := &cobra.Command{
		Use:   "dump",
		Short: "decode and print one struct at an address",
		RunE:  runDump,
	}
	dump.Flags().StringVar(&binPath, "file", "", "flat binary file to map (required)")
	dump.Flags().StringVar(&structName, "struct", "", "struct name from the schema to decode (required)")
	dump.Flags().Uint64Var(&addr, "addr", 0, "address within the mapped file to decode from")
	dump.MarkFlagRequired("file")
	dump.MarkFlagRequired("struct")

	root.AddCommand(describe, dump)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadSchema() (map[string]*typedmem.StructType, error) {
	data, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return memschema.Load(data)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	structs, err := loadSchema()
	if err != nil {
		return err
	}
	render.Layouts(os.Stdout, structs)
	return nil
}

func runDump(cmd *cobra.Command, args []string) error {
	structs, err := loadSchema()
	if err != nil {
		return err
	}
	st, ok := structs[structName]
	if !ok {
		return fmt.Errorf("schema has no struct %q", structName)
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", binPath, err)
	}

	vm := memvm.New()
	base, err := vm.Map(int64(len(data)), memvm.Read|memvm.Write)
	if err != nil {
		return err
	}
	if err := vm.Write(base, data); err != nil {
		return err
	}

	view, err := typedmem.Pin(st, vm, base.Add(int64(addr)))
	if err != nil {
		return err
	}
	render.Tree(os.Stdout, view)
	return nil
}

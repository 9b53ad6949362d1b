// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render prints typedmem schemas and pinned views for memdump,
// the way viewcore's main.go lays out its "overview"/"mappings" tables with
// text/tabwriter.
package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kortschak/utter"

	"golang.org/x/memoverlay/typedmem"
)

// Layouts prints, for every struct in structs, its fields in declaration
// order with their offset and size.
func Layouts(w io.Writer, structs map[string]*typedmem.StructType) {
	for _, st := range structs {
		t := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
		fmt.Fprintf(t, "%s\n", st.Name)
		fmt.Fprintf(t, "offset\tsize\tfield\ttype\t\n")
		for _, f := range st.Fields {
			n, ok := f.Type.Size()
			size := "?"
			if ok {
				size = fmt.Sprint(n)
			}
			fmt.Fprintf(t, "%d\t%s\t%s\t%s\t\n", f.Off, size, f.Name, f.Type)
		}
		t.Flush()
		fmt.Fprintln(w)
	}
}

// Tree deep-prints the value reachable from view: for a StructView, every
// field's Go value (recursing through nested StructViews); for anything
// else, its Raw bytes or value.
func Tree(w io.Writer, view typedmem.View) {
	v, err := flatten(view)
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", view, err)
		return
	}
	fmt.Fprintln(w, utter.Sdump(v))
}

func flatten(view typedmem.View) (any, error) {
	switch vv := view.(type) {
	case *typedmem.StructView:
		out := map[string]any{}
		st := vv.Type().(*typedmem.StructType)
		for _, f := range st.Fields {
			fv, err := vv.Field(f.Name)
			if err != nil {
				return nil, err
			}
			if nested, ok := fv.(typedmem.View); ok {
				flat, err := flatten(nested)
				if err != nil {
					return nil, err
				}
				out[f.Name] = flat
				continue
			}
			out[f.Name] = fv
		}
		return out, nil
	case *typedmem.ValueView:
		return vv.Get()
	case *typedmem.StrView:
		return vv.AsString()
	case *typedmem.PointerView:
		return vv.Value()
	default:
		raw, err := view.Raw()
		if err != nil {
			return view.String(), nil
		}
		return raw, nil
	}
}

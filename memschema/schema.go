// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package memschema loads typedmem struct declarations from a YAML sidecar
// file, the ahead-of-time analogue of hand-writing typedmem.MustStruct
// calls: useful for cmd/memdump and cmd/memshell, where the schema being
// explored isn't known until the tool runs.
package memschema

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"golang.org/x/memoverlay/typedmem"
)

// Doc is the top-level shape of a schema YAML file: an ordered list of
// struct declarations, later ones free to reference earlier ones by name.
type Doc struct {
	Structs []StructDoc `yaml:"structs"`
}

// StructDoc is one struct declaration.
type StructDoc struct {
	Name   string     `yaml:"name"`
	Fields []FieldDoc `yaml:"fields"`
}

// FieldDoc is one field of a struct declaration: a name and a type
// expression in the small grammar documented on Parse.
type FieldDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Load parses a schema document and builds its structs in declaration
// order, returning them keyed by name. A field's type expression may refer
// to any struct declared earlier in the same document, or to "self" for the
// struct currently being built.
//
// Grammar (colon-separated, recursive for array/ptr element types):
//
//	num:<fmt>                 typedmem.Num, e.g. "num:<I"
//	raw:<fmt>                 typedmem.Raw, e.g. "raw:<IHB"
//	str:ansi | str:utf16le    typedmem.Str, unbounded
//	str:ansi:<max>            typedmem.Str, capped scan
//	ptr:<fmt>:<target>        typedmem.Ptr, target is "void", "self", or a
//	                          previously-declared struct name
//	array:<elem>:<n>          typedmem.Array, fixed length n
//	array:<elem>              typedmem.Array, unsized (Load rejects it as a
//	                          struct field with typedmem.ErrUnsized, since
//	                          every field needs a static size)
//	struct:<name>             a previously-declared struct, embedded by value
func Load(data []byte) (map[string]*typedmem.StructType, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("memschema: parsing schema: %w", err)
	}
	built := map[string]*typedmem.StructType{}
	for _, sd := range doc.Structs {
		if _, dup := built[sd.Name]; dup {
			return nil, fmt.Errorf("memschema: duplicate struct %q", sd.Name)
		}
		var decls []typedmem.FieldDecl
		for _, fd := range sd.Fields {
			t, err := parseType(fd.Type, built, sd.Name)
			if err != nil {
				return nil, fmt.Errorf("memschema: struct %s, field %s: %w", sd.Name, fd.Name, err)
			}
			decls = append(decls, typedmem.FieldDecl{Name: fd.Name, Type: t})
		}
		st, err := typedmem.NewStruct(sd.Name, decls)
		if err != nil {
			return nil, fmt.Errorf("memschema: struct %s: %w", sd.Name, err)
		}
		built[sd.Name] = typedmem.Intern(st).(*typedmem.StructType)
	}
	return built, nil
}

func parseType(expr string, built map[string]*typedmem.StructType, selfName string) (typedmem.Type, error) {
	parts := strings.SplitN(expr, ":", 2)
	kind := parts[0]
	rest := ""
	if len(parts) == 2 {
		rest = parts[1]
	}
	switch kind {
	case "num":
		return typedmem.NewNum(rest)
	case "raw":
		return typedmem.NewRaw(rest)
	case "str":
		return parseStr(rest)
	case "ptr":
		return parsePtr(rest, built, selfName)
	case "array":
		return parseArray(rest, built, selfName)
	case "struct":
		st, ok := built[rest]
		if !ok {
			return nil, fmt.Errorf("struct %q referenced before it is declared", rest)
		}
		return st, nil
	case "void":
		return typedmem.Void, nil
	default:
		return nil, fmt.Errorf("unknown type kind %q in %q", kind, expr)
	}
}

func parseStr(rest string) (typedmem.Type, error) {
	args := strings.SplitN(rest, ":", 2)
	var enc typedmem.StrEncoding
	switch args[0] {
	case "ansi":
		enc = typedmem.StrANSI
	case "utf16le":
		enc = typedmem.StrUTF16LE
	default:
		return nil, fmt.Errorf("unknown str encoding %q", args[0])
	}
	if len(args) == 1 {
		return typedmem.NewStr(enc), nil
	}
	max, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad str max %q: %w", args[1], err)
	}
	return typedmem.NewStrMax(enc, max), nil
}

func parsePtr(rest string, built map[string]*typedmem.StructType, selfName string) (typedmem.Type, error) {
	args := strings.SplitN(rest, ":", 2)
	if len(args) != 2 {
		return nil, fmt.Errorf("ptr needs <fmt>:<target>, got %q", rest)
	}
	fmtStr, target := args[0], args[1]
	var dst typedmem.Type
	switch {
	case target == "void":
		dst = typedmem.Void
	case target == "self" || target == selfName:
		dst = typedmem.Self
	default:
		st, ok := built[target]
		if !ok {
			return nil, fmt.Errorf("ptr target struct %q referenced before it is declared", target)
		}
		dst = st
	}
	return typedmem.NewPtr(fmtStr, dst)
}

func parseArray(rest string, built map[string]*typedmem.StructType, selfName string) (typedmem.Type, error) {
	i := strings.LastIndex(rest, ":")
	if i < 0 {
		elem, err := parseType(rest, built, selfName)
		if err != nil {
			return nil, err
		}
		return typedmem.NewArrayType(elem)
	}
	elemExpr, nStr := rest[:i], rest[i+1:]
	n, err := strconv.ParseInt(nStr, 10, 64)
	if err != nil {
		// Not actually a trailing length (the element expression itself
		// contains a colon, e.g. a nested ptr); treat the whole thing as
		// an unsized array of the full expression.
		elem, perr := parseType(rest, built, selfName)
		if perr != nil {
			return nil, fmt.Errorf("array element/length %q: %v / %v", rest, err, perr)
		}
		return typedmem.NewArrayType(elem)
	}
	elem, err := parseType(elemExpr, built, selfName)
	if err != nil {
		return nil, err
	}
	return typedmem.NewSizedArrayType(elem, n)
}

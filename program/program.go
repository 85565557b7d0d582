// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package program ties a loaded debug image to a type cache and
// exposes the debugger-facing lookups: find a type by name, find an
// object (enumerator constant, function, or variable) by name.
package program

import (
	"github.com/kamalesh-babulal/drgn/internal/dwimage"
	"github.com/kamalesh-babulal/drgn/internal/dwinfo"
	"github.com/kamalesh-babulal/drgn/internal/dwtype"
	"github.com/kamalesh-babulal/drgn/internal/object"
)

// A Program is a program being debugged: its ELF image, platform
// state, and the cache of types materialized so far. A Program and
// everything materialized from it may be used by at most one
// goroutine at a time.
type Program struct {
	img   *dwimage.Image
	cache *dwinfo.Cache
}

// Open loads the ELF file at path and prepares it for lookups.
func Open(path string) (*Program, error) {
	img, err := dwimage.Open(path)
	if err != nil {
		return nil, err
	}
	p := &Program{img: img}
	p.cache = dwinfo.NewCache(dwtype.NewFactory(), img.Index(), p)
	return p, nil
}

// Close releases the program's image. Types and objects materialized
// from the program do not outlive it.
func (p *Program) Close() error {
	return p.img.Close()
}

// WordSize returns the program's pointer size in bytes.
func (p *Program) WordSize() int { return p.img.WordSize() }

// LittleEndian reports the program's byte order.
func (p *Program) LittleEndian() bool { return p.img.LittleEndian() }

// DefaultLanguage returns the language assumed for compilation units
// that do not declare one.
func (p *Program) DefaultLanguage() dwtype.Language {
	return p.img.DefaultLanguage()
}

// Warnings returns non-fatal problems found while loading the image.
func (p *Program) Warnings() []string { return p.img.Warnings() }

// FindType finds the type of the given kind and name. filename, if
// non-empty, restricts the search to compilation units whose path ends
// with it.
func (p *Program) FindType(kind dwtype.Kind, name, filename string) (dwtype.QualifiedType, error) {
	return p.cache.FindType(kind, name, filename)
}

// FindObject finds the named object among the kinds selected by
// flags.
func (p *Program) FindObject(name, filename string, flags dwinfo.FindObjectFlags) (*object.Object, error) {
	return p.cache.FindObject(name, filename, flags)
}

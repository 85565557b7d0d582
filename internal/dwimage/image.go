// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwimage loads the DWARF debugging information of an ELF
// image and serves it to the materializer: DIE handles with integrated
// attribute access, compilation-unit metadata, and a name index that
// excludes declaration-only entries.
package dwimage

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/kamalesh-babulal/drgn/internal/dwinfo"
	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// An Image is a loaded ELF file and its DWARF data.
type Image struct {
	path string
	file *elf.File
	data *dwarf.Data

	littleEndian bool
	wordSize     int

	// bias is the runtime relocation offset applied to static
	// addresses. It is zero for an image examined at its link
	// address.
	bias uint64

	units []*unit
	index *Index

	warnings []string
}

// Open loads the ELF file at path and builds its name index.
func Open(path string) (*Image, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	data, err := f.DWARF()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: failed to read DWARF: %v", path, err)
	}

	img := &Image{
		path:         path,
		file:         f,
		data:         data,
		littleEndian: f.ByteOrder == binary.LittleEndian,
		wordSize:     4,
	}
	if f.Class == elf.ELFCLASS64 {
		img.wordSize = 8
	}
	if err := img.scan(); err != nil {
		f.Close()
		return nil, err
	}
	return img, nil
}

// Close releases the underlying file. DIE handles and keys do not
// outlive the image.
func (img *Image) Close() error {
	return img.file.Close()
}

// Path returns the file the image was loaded from.
func (img *Image) Path() string { return img.path }

// WordSize returns the pointer size of the image in bytes.
func (img *Image) WordSize() int { return img.wordSize }

// LittleEndian reports the byte order of the ELF header.
func (img *Image) LittleEndian() bool { return img.littleEndian }

// DefaultLanguage returns the language of the image's first
// compilation unit whose language is known, or C if there is none.
func (img *Image) DefaultLanguage() dwtype.Language {
	for _, u := range img.units {
		if u.lang != dwtype.LanguageUnknown {
			return u.lang
		}
	}
	return dwtype.LanguageC
}

// Index returns the image's name index.
func (img *Image) Index() *Index { return img.index }

// Warnings returns non-fatal problems encountered while loading.
func (img *Image) Warnings() []string { return img.warnings }

func (img *Image) warnf(format string, args ...interface{}) {
	img.warnings = append(img.warnings, fmt.Sprintf(format, args...))
}

// unit is one compilation unit.
type unit struct {
	img         *Image
	offset      dwarf.Offset // offset of the unit's root DIE
	path        string
	lang        dwtype.Language
	addressSize int
}

func (u *unit) Path() string { return u.path }

func (u *unit) Language() dwtype.Language { return u.lang }

func (u *unit) LittleEndian() bool { return u.img.littleEndian }

func (u *unit) AddressSize() int { return u.addressSize }

// unitFor returns the compilation unit containing the DIE at off.
func (img *Image) unitFor(off dwarf.Offset) *unit {
	i := sort.Search(len(img.units), func(i int) bool {
		return img.units[i].offset > off
	})
	if i == 0 {
		return nil
	}
	return img.units[i-1]
}

// entryAt loads the entry at off.
func (img *Image) entryAt(off dwarf.Offset) (*dwarf.Entry, error) {
	r := img.data.Reader()
	r.Seek(off)
	e, err := r.Next()
	if err != nil {
		return nil, err
	}
	if e == nil || e.Offset != off {
		return nil, fmt.Errorf("no DIE at offset %#x", off)
	}
	return e, nil
}

// dieAt returns a DIE handle for the entry at off.
func (img *Image) dieAt(off dwarf.Offset) (dwinfo.Die, error) {
	e, err := img.entryAt(off)
	if err != nil {
		return nil, err
	}
	u := img.unitFor(off)
	if u == nil {
		return nil, fmt.Errorf("DIE at offset %#x is outside every compilation unit", off)
	}
	return &die{u: u, entry: e}, nil
}

// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwinfo

import (
	"debug/dwarf"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// A DieKey identifies a DIE within its debug image. Keys are
// comparable and stable for the lifetime of the image; two keys are
// equal iff they denote the same DWARF entry.
type DieKey interface{}

// A Die is a handle to a DWARF debugging information entry, supplied
// by the DIE store. Attribute reads are integrated: if the named
// attribute is absent on the entry itself, the store follows
// DW_AT_specification and DW_AT_abstract_origin transitively.
type Die interface {
	// Key returns the DIE's identity, used as a memoization key.
	Key() DieKey

	// Tag returns the DIE's DWARF tag.
	Tag() dwarf.Tag

	// Unit returns the compilation unit the DIE belongs to.
	Unit() Unit

	// Val returns the integrated raw value of an attribute and
	// whether it is present. Constants are uint64 when encoded with
	// an unsigned form and int64 when encoded with a signed form
	// (DW_FORM_sdata, DW_FORM_implicit_const); strings are string,
	// flags bool, and blocks []byte.
	Val(attr dwarf.Attr) (interface{}, bool)

	// Ref resolves a reference-valued attribute to the DIE it
	// denotes. It returns (nil, nil) when the attribute is absent and
	// an error when it is present but not a resolvable reference.
	Ref(attr dwarf.Attr) (Die, error)

	// Children returns the DIE's direct children in order.
	Children() ([]Die, error)
}

// A Unit is the compilation unit a DIE belongs to.
type Unit interface {
	// Path returns the unit's source file path.
	Path() string

	// Language returns the unit's source language.
	Language() dwtype.Language

	// LittleEndian reports the byte order of the ELF image the unit
	// came from.
	LittleEndian() bool

	// AddressSize returns the size in bytes of addresses in the
	// unit.
	AddressSize() int
}

// An Index is the name index over a debug image. It excludes
// declaration-only DIEs, so every DIE it yields is a complete
// definition.
type Index interface {
	// Iterate returns an iterator over the DIEs named name whose tag
	// is one of tags. Enumerator queries yield the enclosing
	// enumeration DIE. The iterator is stateful and must not be
	// shared across calls.
	Iterate(name string, tags []dwarf.Tag) Iterator
}

// An Iterator yields (DIE, bias) pairs. Bias is the runtime
// relocation offset of the module the DIE came from.
type Iterator interface {
	Next() (Die, uint64, bool)
}

// A Platform supplies program-level state the materializer cannot get
// from a DIE.
type Platform interface {
	// WordSize returns the program's pointer size in bytes.
	WordSize() int

	// DefaultLanguage returns the language assumed for units that do
	// not declare one.
	DefaultLanguage() dwtype.Language
}

// DW_ATE base type encodings. Not exported by debug/dwarf.
const (
	encBoolean      = 0x02
	encComplexFloat = 0x03
	encFloat        = 0x04
	encSigned       = 0x05
	encSignedChar   = 0x06
	encUnsigned     = 0x07
	encUnsignedChar = 0x08
)

// DW_END endianity codes. Not exported by debug/dwarf.
const (
	endDefault = 0x00
	endBig     = 0x01
	endLittle  = 0x02
)

// attrUdata decodes an unsigned constant attribute. A signed form is
// accepted if non-negative, matching libdw's widening.
func attrUdata(d Die, attr dwarf.Attr) (uint64, bool, error) {
	v, ok := d.Val(attr)
	if !ok {
		return 0, false, nil
	}
	switch x := v.(type) {
	case uint64:
		return x, true, nil
	case int64:
		if x < 0 {
			return 0, true, errBadForm
		}
		return uint64(x), true, nil
	}
	return 0, true, errBadForm
}

// attrSdata decodes a signed constant attribute, accepting an unsigned
// form that fits in int64.
func attrSdata(d Die, attr dwarf.Attr) (int64, bool, error) {
	v, ok := d.Val(attr)
	if !ok {
		return 0, false, nil
	}
	switch x := v.(type) {
	case int64:
		return x, true, nil
	case uint64:
		if x > 1<<63-1 {
			return 0, true, errBadForm
		}
		return int64(x), true, nil
	}
	return 0, true, errBadForm
}

// attrString decodes a string attribute.
func attrString(d Die, attr dwarf.Attr) (string, bool, error) {
	v, ok := d.Val(attr)
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", true, errBadForm
	}
	return s, true, nil
}

// attrFlag decodes a flag attribute. Absent means false.
func attrFlag(d Die, attr dwarf.Attr) (bool, error) {
	v, ok := d.Val(attr)
	if !ok {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errBadForm
	}
	return b, nil
}

// attrBlock decodes a block attribute.
func attrBlock(d Die, attr dwarf.Attr) ([]byte, bool, error) {
	v, ok := d.Val(attr)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, true, errBadForm
	}
	return b, true, nil
}

// isSignedForm reports whether an attribute's value was encoded with a
// signed form (DW_FORM_sdata or DW_FORM_implicit_const).
func isSignedForm(d Die, attr dwarf.Attr) bool {
	v, ok := d.Val(attr)
	if !ok {
		return false
	}
	_, signed := v.(int64)
	return signed
}

// dieName returns the DIE's integrated DW_AT_name.
func dieName(d Die) (string, bool, error) {
	return attrString(d, dwarf.AttrName)
}

// dieByteSize returns the DIE's integrated DW_AT_byte_size.
func dieByteSize(d Die) (uint64, bool, error) {
	return attrUdata(d, dwarf.AttrByteSize)
}

// dieLittleEndian determines the byte order of a DIE. If checkAttr is
// set and the DIE has DW_AT_endianity, the attribute decides;
// otherwise the ELF header of the unit's image does. With checkAttr
// unset the function cannot fail.
func dieLittleEndian(d Die, checkAttr bool) (bool, error) {
	endianity := uint64(endDefault)
	if checkAttr {
		v, present, err := attrUdata(d, dwarf.AttrEndianity)
		if err != nil {
			return false, malformedf("invalid DW_AT_endianity")
		}
		if present {
			endianity = v
		}
	}
	switch endianity {
	case endDefault:
		return d.Unit().LittleEndian(), nil
	case endLittle:
		return true, nil
	case endBig:
		return false, nil
	}
	return false, malformedf("unknown DW_AT_endianity")
}

// languageOf returns the language of the DIE's unit, falling back to
// the platform default.
func (c *Cache) languageOf(d Die) dwtype.Language {
	lang := d.Unit().Language()
	if lang == dwtype.LanguageUnknown {
		return c.platform.DefaultLanguage()
	}
	return lang
}

// matchesFilename reports whether the DIE's compilation unit path ends
// with the path components of filename. An empty filename matches
// everything.
func matchesFilename(d Die, filename string) bool {
	if filename == "" {
		return true
	}
	return pathEndsWith(d.Unit().Path(), filename)
}

// pathEndsWith reports whether the trailing path components of path
// equal the components of suffix.
func pathEndsWith(path, suffix string) bool {
	if len(suffix) > len(path) {
		return false
	}
	i := len(path) - len(suffix)
	if path[i:] != suffix {
		return false
	}
	return i == 0 || path[i-1] == '/'
}

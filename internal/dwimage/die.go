// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwimage

import (
	"debug/dwarf"
	"fmt"

	"github.com/kamalesh-babulal/drgn/internal/dwinfo"
)

// integrateDepth bounds how many DW_AT_specification and
// DW_AT_abstract_origin links an attribute read will follow, so a
// producer-induced link cycle cannot hang a lookup.
const integrateDepth = 16

// dieKey identifies a DIE by image and section offset.
type dieKey struct {
	img *Image
	off dwarf.Offset
}

// die implements dwinfo.Die over a debug/dwarf entry.
type die struct {
	u     *unit
	entry *dwarf.Entry
}

func (d *die) Key() dwinfo.DieKey {
	return dieKey{img: d.u.img, off: d.entry.Offset}
}

func (d *die) Tag() dwarf.Tag { return d.entry.Tag }

func (d *die) Unit() dwinfo.Unit { return d.u }

// Val returns the integrated attribute value as debug/dwarf decodes
// it. debug/dwarf yields int64 for every constant form, so this store
// presents all constants as signed-form values whatever form the
// producer used: DW_FORM_data8 and DW_FORM_udata values of 2^63 or
// more read as negative, and every enumerator decodes as signed.
func (d *die) Val(attr dwarf.Attr) (interface{}, bool) {
	return d.u.img.integratedVal(d.entry, attr, 0)
}

// integratedVal reads an attribute, following specification and
// abstract-origin links transitively when it is absent on the entry
// itself.
func (img *Image) integratedVal(e *dwarf.Entry, attr dwarf.Attr, depth int) (interface{}, bool) {
	if f := e.AttrField(attr); f != nil {
		return f.Val, true
	}
	if depth >= integrateDepth {
		return nil, false
	}
	for _, link := range [...]dwarf.Attr{dwarf.AttrSpecification, dwarf.AttrAbstractOrigin} {
		f := e.AttrField(link)
		if f == nil {
			continue
		}
		off, ok := f.Val.(dwarf.Offset)
		if !ok {
			continue
		}
		le, err := img.entryAt(off)
		if err != nil {
			continue
		}
		if v, ok := img.integratedVal(le, attr, depth+1); ok {
			return v, true
		}
	}
	return nil, false
}

func (d *die) Ref(attr dwarf.Attr) (dwinfo.Die, error) {
	v, ok := d.Val(attr)
	if !ok {
		return nil, nil
	}
	off, ok := v.(dwarf.Offset)
	if !ok {
		return nil, fmt.Errorf("%w: attribute %s is not a reference", dwinfo.ErrMalformedDWARF, attr)
	}
	ref, err := d.u.img.dieAt(off)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dwinfo.ErrMalformedDWARF, err)
	}
	return ref, nil
}

// Children collects the DIE's direct children. Composite entries
// nested inside a child are skipped over, not descended into.
func (d *die) Children() ([]dwinfo.Die, error) {
	if !d.entry.Children {
		return nil, nil
	}
	r := d.u.img.data.Reader()
	r.Seek(d.entry.Offset)
	if _, err := r.Next(); err != nil {
		return nil, err
	}

	var children []dwinfo.Die
	depth := 0
	for {
		kid, err := r.Next()
		if err != nil {
			return nil, err
		}
		if kid == nil {
			return nil, fmt.Errorf("unexpected end of DWARF entries")
		}
		if kid.Tag == 0 {
			if depth == 0 {
				return children, nil
			}
			depth--
			continue
		}
		if depth == 0 {
			children = append(children, &die{u: d.u, entry: kid})
		}
		if kid.Children {
			depth++
		}
	}
}

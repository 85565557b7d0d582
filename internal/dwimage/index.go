// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwimage

import (
	"debug/dwarf"

	"github.com/kamalesh-babulal/drgn/internal/dwinfo"
	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// indexEntry is one name-index hit: the DIE at off, registered under
// indexTag. Enumerators are registered under DW_TAG_enumerator but
// point at the enclosing enumeration DIE.
type indexEntry struct {
	indexTag dwarf.Tag
	off      dwarf.Offset
	u        *unit
}

// An Index maps names to the DIEs bearing them. Declaration-only
// DIEs, anonymous DIEs, and entities local to a subprogram are
// excluded, so every DIE the index yields is a global, complete
// definition.
type Index struct {
	img    *Image
	byName map[string][]indexEntry
}

// Iterate returns an iterator over the DIEs named name whose index
// tag is one of tags. The iterator is stateful and must not be shared
// across calls.
func (x *Index) Iterate(name string, tags []dwarf.Tag) dwinfo.Iterator {
	return &iterator{img: x.img, entries: x.byName[name], tags: tags}
}

type iterator struct {
	img     *Image
	entries []indexEntry
	tags    []dwarf.Tag
}

func (it *iterator) Next() (dwinfo.Die, uint64, bool) {
	for len(it.entries) > 0 {
		ent := it.entries[0]
		it.entries = it.entries[1:]
		match := false
		for _, tag := range it.tags {
			if ent.indexTag == tag {
				match = true
				break
			}
		}
		if !match {
			continue
		}
		e, err := it.img.entryAt(ent.off)
		if err != nil {
			continue
		}
		return &die{u: ent.u, entry: e}, it.img.bias, true
	}
	return nil, 0, false
}

// scanFrame tracks one open parent while walking the DIE tree.
type scanFrame struct {
	tag     dwarf.Tag
	off     dwarf.Offset
	indexed bool // parent enumeration is complete and global
}

// scan walks every DIE once, collecting compilation units and
// building the name index.
func (img *Image) scan() error {
	img.index = &Index{img: img, byName: make(map[string][]indexEntry)}
	var cur *unit
	var stack []scanFrame

	r := img.data.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			img.warnf("DWARF scan stopped early: %v", err)
			break
		}
		if e == nil {
			break
		}
		if e.Tag == 0 {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		if e.Tag == dwarf.TagCompileUnit {
			cur = &unit{
				img:         img,
				offset:      e.Offset,
				addressSize: r.AddressSize(),
				lang:        dwtype.LanguageUnknown,
			}
			if path, ok := e.Val(dwarf.AttrName).(string); ok {
				cur.path = path
			} else {
				img.warnf("compilation unit at %#x has no name", e.Offset)
			}
			if code, ok := e.Val(dwarf.AttrLanguage).(int64); ok {
				cur.lang = dwtype.LanguageFromDWARF(code)
			}
			img.units = append(img.units, cur)
			stack = stack[:0]
			if e.Children {
				stack = append(stack, scanFrame{tag: e.Tag, off: e.Offset})
			}
			continue
		}
		if cur == nil {
			// Not inside any compilation unit; nothing to index.
			if e.Children {
				r.SkipChildren()
			}
			continue
		}

		indexed := img.indexDie(e, cur, stack)

		if e.Children {
			stack = append(stack, scanFrame{tag: e.Tag, off: e.Offset, indexed: indexed})
		}
	}
	return nil
}

// indexDie decides whether e belongs in the name index and adds it.
// It reports whether e was indexed or, for an anonymous enumeration,
// which is never added, whether it would have been had it a name. This
// matters for enumeration types: their enumerator children are only
// indexed when it reports true for the enumeration.
func (img *Image) indexDie(e *dwarf.Entry, cur *unit, stack []scanFrame) bool {
	inSubprogram := false
	for _, f := range stack {
		if f.tag == dwarf.TagSubprogram || f.tag == dwarf.TagSubroutineType {
			inSubprogram = true
			break
		}
	}
	topLevel := len(stack) == 1

	switch e.Tag {
	case dwarf.TagBaseType, dwarf.TagTypedef,
		dwarf.TagStructType, dwarf.TagUnionType, dwarf.TagClassType,
		dwarf.TagEnumerationType:
		if inSubprogram {
			return false
		}
		if decl, ok := e.Val(dwarf.AttrDeclaration).(bool); ok && decl {
			return false
		}
		name, ok := e.Val(dwarf.AttrName).(string)
		if !ok {
			// An anonymous enumeration is not findable by name, but
			// its enumerators still are.
			return e.Tag == dwarf.TagEnumerationType
		}
		img.add(name, indexEntry{indexTag: e.Tag, off: e.Offset, u: cur})
		return true

	case dwarf.TagEnumerator:
		// Register the enumerator under its own name, but yield the
		// enclosing enumeration DIE.
		if len(stack) == 0 {
			return false
		}
		parent := stack[len(stack)-1]
		if parent.tag != dwarf.TagEnumerationType || !parent.indexed {
			return false
		}
		name, ok := e.Val(dwarf.AttrName).(string)
		if !ok {
			return false
		}
		img.add(name, indexEntry{indexTag: dwarf.TagEnumerator, off: parent.off, u: cur})
		return false

	case dwarf.TagSubprogram, dwarf.TagVariable:
		if !topLevel || inSubprogram {
			return false
		}
		if decl, ok := e.Val(dwarf.AttrDeclaration).(bool); ok && decl {
			return false
		}
		name, ok := e.Val(dwarf.AttrName).(string)
		if !ok {
			return false
		}
		img.add(name, indexEntry{indexTag: e.Tag, off: e.Offset, u: cur})
		return true
	}
	return false
}

func (img *Image) add(name string, ent indexEntry) {
	img.index.byName[name] = append(img.index.byName[name], ent)
}

// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwinfo materializes program-level type descriptors and
// objects from DWARF debugging information entries.
//
// The entry points are Cache.FindType and Cache.FindObject, which walk
// the name index, and Cache.Resolve, which materializes the type of a
// single DIE. Resolution is memoized so that equal DIEs yield
// pointer-equal descriptors, and cycles in the type graph (a struct
// member that points back at the enclosing struct) are broken by
// storing member and parameter types as thunks that materialize on
// first use.
//
// A cache and the image under it are single-threaded: at most one
// goroutine may use a cache at a time. Concurrent materializers must
// use different caches.
package dwinfo

import (
	"debug/dwarf"
	"fmt"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// maxDepth bounds type resolution depth, guarding against
// producer-induced cycles and pathological nesting.
const maxDepth = 1000

type memoEntry struct {
	typ               *dwtype.Type
	qualifiers        dwtype.Qualifiers
	isIncompleteArray bool
}

// A Cache materializes and memoizes types for one debug image. It is
// created per program and lives until the program is destroyed.
type Cache struct {
	factory  *dwtype.Factory
	index    Index
	platform Platform

	depth int

	// primary holds the resolution of each DIE as observed when the
	// caller allowed incomplete arrays. restricted holds the second
	// legal resolution of DIEs whose outermost array length had to be
	// forced to zero; it is sparse because the two resolutions differ
	// only when primary's entry is an incomplete array.
	primary    map[DieKey]memoEntry
	restricted map[DieKey]memoEntry
}

// NewCache returns an empty cache over index.
func NewCache(factory *dwtype.Factory, index Index, platform Platform) *Cache {
	return &Cache{
		factory:    factory,
		index:      index,
		platform:   platform,
		primary:    make(map[DieKey]memoEntry),
		restricted: make(map[DieKey]memoEntry),
	}
}

// Resolve materializes the type described by die.
func (c *Cache) Resolve(die Die) (dwtype.QualifiedType, error) {
	return c.resolve(die, true, nil)
}

// resolve is the memoization core. canBeIncompleteArray says whether
// the caller can accept an incomplete array type; if not and the DIE
// encodes one, the outermost length is forced to zero.
// isIncompleteArrayRet, when non-nil, reports whether the DIE encodes
// an incomplete array or a typedef of one, regardless of
// canBeIncompleteArray.
func (c *Cache) resolve(die Die, canBeIncompleteArray bool, isIncompleteArrayRet *bool) (dwtype.QualifiedType, error) {
	if c.depth >= maxDepth {
		return dwtype.QualifiedType{}, fmt.Errorf("%w: maximum DWARF type parsing depth exceeded", ErrRecursionLimit)
	}

	key := die.Key()
	if ent, ok := c.primary[key]; ok {
		if canBeIncompleteArray || !ent.isIncompleteArray {
			return c.memoHit(ent, isIncompleteArrayRet), nil
		}
		if ent, ok := c.restricted[key]; ok {
			return c.memoHit(ent, isIncompleteArrayRet), nil
		}
		// The primary entry is an incomplete array but the caller
		// needs a complete one; fall through and materialize the
		// zero-length variant.
	}

	lang := c.languageOf(die)

	c.depth++
	qt, isIncompleteArray, err := c.dispatch(die, lang, canBeIncompleteArray)
	c.depth--
	if err != nil {
		return dwtype.QualifiedType{}, err
	}

	ent := memoEntry{typ: qt.Type, qualifiers: qt.Qualifiers, isIncompleteArray: isIncompleteArray}
	if canBeIncompleteArray || !isIncompleteArray {
		c.primary[key] = ent
	} else {
		c.restricted[key] = ent
	}
	if isIncompleteArrayRet != nil {
		*isIncompleteArrayRet = isIncompleteArray
	}
	return qt, nil
}

func (c *Cache) memoHit(ent memoEntry, isIncompleteArrayRet *bool) dwtype.QualifiedType {
	if isIncompleteArrayRet != nil {
		*isIncompleteArrayRet = ent.isIncompleteArray
	}
	return dwtype.QualifiedType{Type: ent.typ, Qualifiers: ent.qualifiers}
}

// dispatch decodes one DIE by tag. It returns the qualified type and
// whether the DIE encodes an incomplete array (or a typedef of one).
func (c *Cache) dispatch(die Die, lang dwtype.Language, canBeIncompleteArray bool) (dwtype.QualifiedType, bool, error) {
	var qt dwtype.QualifiedType
	var isIncompleteArray bool
	var err error

	switch die.Tag() {
	case dwarf.TagConstType:
		qt, err = c.qualifierType(die, "DW_TAG_const_type", dwtype.QualifierConst, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagRestrictType:
		qt, err = c.qualifierType(die, "DW_TAG_restrict_type", dwtype.QualifierRestrict, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagVolatileType:
		qt, err = c.qualifierType(die, "DW_TAG_volatile_type", dwtype.QualifierVolatile, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagAtomicType:
		qt, err = c.qualifierType(die, "DW_TAG_atomic_type", dwtype.QualifierAtomic, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagBaseType:
		qt.Type, err = c.baseType(die, lang)
	case dwarf.TagStructType:
		qt.Type, err = c.compoundType(die, lang, dwtype.KindStruct)
	case dwarf.TagUnionType:
		qt.Type, err = c.compoundType(die, lang, dwtype.KindUnion)
	case dwarf.TagClassType:
		qt.Type, err = c.compoundType(die, lang, dwtype.KindClass)
	case dwarf.TagEnumerationType:
		qt.Type, err = c.enumType(die, lang)
	case dwarf.TagTypedef:
		qt.Type, err = c.typedefType(die, lang, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagPointerType:
		qt.Type, err = c.pointerType(die, lang)
	case dwarf.TagArrayType:
		qt.Type, err = c.arrayType(die, lang, canBeIncompleteArray, &isIncompleteArray)
	case dwarf.TagSubroutineType, dwarf.TagSubprogram:
		qt.Type, err = c.functionType(die, lang)
	default:
		err = malformedf("unknown DWARF type tag %#x", uint32(die.Tag()))
	}
	if err != nil {
		return dwtype.QualifiedType{}, false, err
	}
	return qt, isIncompleteArray, nil
}

// qualifierType decodes a qualifier wrapper DIE: it resolves the
// wrapped type (void if absent) and ORs the qualifier bit into its
// qualifier set. The incomplete-array property of the wrapped type is
// preserved through to the caller.
func (c *Cache) qualifierType(die Die, tagName string, q dwtype.Qualifiers, canBeIncompleteArray bool, isIncompleteArrayRet *bool) (dwtype.QualifiedType, error) {
	qt, err := c.typeFromChild(die, tagName, true, canBeIncompleteArray, isIncompleteArrayRet)
	if err != nil {
		return dwtype.QualifiedType{}, err
	}
	qt.Qualifiers |= q
	return qt, nil
}

// typeFromChild resolves the type referenced by die's DW_AT_type
// attribute. If the attribute is absent and canBeVoid is set, the
// result is the void type; otherwise its absence is an error. tagName
// names die's tag for error messages.
func (c *Cache) typeFromChild(die Die, tagName string, canBeVoid, canBeIncompleteArray bool, isIncompleteArrayRet *bool) (dwtype.QualifiedType, error) {
	typeDie, err := die.Ref(dwarf.AttrType)
	if err != nil {
		return dwtype.QualifiedType{}, malformedf("%s has invalid DW_AT_type", tagName)
	}
	if typeDie == nil {
		if canBeVoid {
			return dwtype.QualifiedType{Type: c.factory.Void(c.languageOf(die))}, nil
		}
		return dwtype.QualifiedType{}, malformedf("%s is missing DW_AT_type", tagName)
	}
	return c.resolve(typeDie, canBeIncompleteArray, isIncompleteArrayRet)
}

// thunk is a suspended resolution of a DIE's type, used for compound
// members and function parameters so that cyclic references never
// re-enter the DIE under resolution.
type thunk struct {
	cache                *Cache
	die                  Die
	canBeIncompleteArray bool
}

func (t *thunk) Evaluate() (dwtype.QualifiedType, error) {
	return t.cache.resolve(t.die, t.canBeIncompleteArray, nil)
}

// lazyTypeFromChild returns a lazy type for the DIE referenced by
// die's DW_AT_type attribute. Unlike typeFromChild, the attribute is
// required.
func (c *Cache) lazyTypeFromChild(die Die, tagName string, canBeIncompleteArray bool) (*dwtype.LazyType, error) {
	typeDie, err := die.Ref(dwarf.AttrType)
	if err != nil {
		return nil, malformedf("%s has invalid DW_AT_type", tagName)
	}
	if typeDie == nil {
		return nil, malformedf("%s is missing DW_AT_type", tagName)
	}
	return dwtype.LazyFromThunk(&thunk{cache: c, die: typeDie, canBeIncompleteArray: canBeIncompleteArray}), nil
}

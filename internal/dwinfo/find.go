// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwinfo

import (
	"debug/dwarf"
	"encoding/binary"

	"github.com/go-delve/delve/pkg/dwarf/op"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
	"github.com/kamalesh-babulal/drgn/internal/object"
)

// FindObjectFlags selects which kinds of objects FindObject considers.
type FindObjectFlags uint

const (
	FindObjectConstant FindObjectFlags = 1 << iota
	FindObjectFunction
	FindObjectVariable

	FindObjectAny = FindObjectConstant | FindObjectFunction | FindObjectVariable
)

// FindType finds the type of the given kind and name, materializing
// the first complete match from the name index. filename, if
// non-empty, restricts candidates to compilation units whose path ends
// with it. kind must be one of int, bool, float, struct, union, class,
// enum, or typedef; the first three all map to DW_TAG_base_type, so
// the materialized kind is checked against the request.
func (c *Cache) FindType(kind dwtype.Kind, name, filename string) (dwtype.QualifiedType, error) {
	var tag dwarf.Tag
	switch kind {
	case dwtype.KindInt, dwtype.KindBool, dwtype.KindFloat:
		tag = dwarf.TagBaseType
	case dwtype.KindStruct:
		tag = dwarf.TagStructType
	case dwtype.KindUnion:
		tag = dwarf.TagUnionType
	case dwtype.KindClass:
		tag = dwarf.TagClassType
	case dwtype.KindEnum:
		tag = dwarf.TagEnumerationType
	case dwtype.KindTypedef:
		tag = dwarf.TagTypedef
	default:
		return dwtype.QualifiedType{}, malformedf("cannot find %s types by name", kind)
	}

	it := c.index.Iterate(name, []dwarf.Tag{tag})
	for {
		die, _, ok := it.Next()
		if !ok {
			break
		}
		if !matchesFilename(die, filename) {
			continue
		}
		qt, err := c.Resolve(die)
		if err != nil {
			return dwtype.QualifiedType{}, err
		}
		// One DWARF tag covers the three base kinds; check that the
		// type found is the right one.
		if qt.Type.Kind() == kind {
			return qt, nil
		}
	}
	return dwtype.QualifiedType{}, ErrNotFound
}

// FindObject finds the named enumerator constant, function, or
// variable and materializes it as an object.
func (c *Cache) FindObject(name, filename string, flags FindObjectFlags) (*object.Object, error) {
	var tags []dwarf.Tag
	if flags&FindObjectConstant != 0 {
		tags = append(tags, dwarf.TagEnumerator)
	}
	if flags&FindObjectFunction != 0 {
		tags = append(tags, dwarf.TagSubprogram)
	}
	if flags&FindObjectVariable != 0 {
		tags = append(tags, dwarf.TagVariable)
	}

	it := c.index.Iterate(name, tags)
	for {
		die, bias, ok := it.Next()
		if !ok {
			break
		}
		if !matchesFilename(die, filename) {
			continue
		}
		switch die.Tag() {
		case dwarf.TagEnumerationType:
			// Enumerator queries yield the enclosing enumeration.
			return c.objectFromEnumerator(die, name)
		case dwarf.TagSubprogram:
			return c.objectFromSubprogram(die, bias, name)
		case dwarf.TagVariable:
			return c.objectFromVariable(die, bias, name)
		}
	}
	return nil, ErrNotFound
}

// objectFromEnumerator materializes the enumeration containing the
// named constant and builds its value object, signed or unsigned per
// the enum's compatible type.
func (c *Cache) objectFromEnumerator(die Die, name string) (*object.Object, error) {
	qt, err := c.Resolve(die)
	if err != nil {
		return nil, err
	}
	for _, e := range qt.Type.Enumerators() {
		if e.Name != name {
			continue
		}
		_, bitSize, err := object.Storage(qt)
		if err != nil {
			return nil, err
		}
		if qt.Type.IsSigned() {
			return object.NewSigned(qt, e.SValue, bitSize), nil
		}
		return object.NewUnsigned(qt, e.UValue, bitSize), nil
	}
	return nil, malformedf("DW_TAG_enumeration_type has no enumerator named %q", name)
}

// objectFromSubprogram materializes a function reference at its
// relocated entry address.
func (c *Cache) objectFromSubprogram(die Die, bias uint64, name string) (*object.Object, error) {
	qt, err := c.Resolve(die)
	if err != nil {
		return nil, err
	}
	lowPC, present, err := attrUdata(die, dwarf.AttrLowpc)
	if !present || err != nil {
		return nil, lookupf("could not find address of '%s'", name)
	}
	littleEndian, _ := dieLittleEndian(die, false)
	return object.NewReference(qt, lowPC+bias, littleEndian), nil
}

// objectFromVariable materializes a variable: a reference when it has
// an address, a value when it has a constant, an error otherwise.
func (c *Cache) objectFromVariable(die Die, bias uint64, name string) (*object.Object, error) {
	qt, err := c.typeFromChild(die, "DW_TAG_variable", true, true, nil)
	if err != nil {
		return nil, err
	}

	if _, ok := die.Val(dwarf.AttrLocation); ok {
		loc, _, err := attrBlock(die, dwarf.AttrLocation)
		if err != nil {
			return nil, malformedf("DW_AT_location has unimplemented operation")
		}
		addr, err := parseAddrLocation(loc, die.Unit())
		if err != nil {
			return nil, err
		}
		littleEndian, err := dieLittleEndian(die, true)
		if err != nil {
			return nil, err
		}
		return object.NewReference(qt, addr+bias, littleEndian), nil
	}

	if v, ok := die.Val(dwarf.AttrConstValue); ok {
		return c.constantObject(die, qt, v)
	}

	return nil, lookupf("could not find address or value of '%s'", name)
}

// parseAddrLocation decodes a location expression that must consist of
// exactly one DW_OP_addr operation, returning its operand.
func parseAddrLocation(loc []byte, unit Unit) (uint64, error) {
	addrSize := unit.AddressSize()
	if len(loc) != 1+addrSize || op.Opcode(loc[0]) != op.DW_OP_addr {
		return 0, malformedf("DW_AT_location has unimplemented operation")
	}
	var order binary.ByteOrder = binary.BigEndian
	if unit.LittleEndian() {
		order = binary.LittleEndian
	}
	switch addrSize {
	case 4:
		return uint64(order.Uint32(loc[1:])), nil
	case 8:
		return order.Uint64(loc[1:]), nil
	}
	return 0, malformedf("DW_AT_location has unsupported address size %d", addrSize)
}

// constantObject builds a value object from DW_AT_const_value. A block
// form decodes as a raw buffer in the variable's byte order; integer
// forms decode signed or unsigned per the type's storage class.
func (c *Cache) constantObject(die Die, qt dwtype.QualifiedType, v interface{}) (*object.Object, error) {
	class, bitSize, err := object.Storage(qt)
	if err != nil {
		return nil, err
	}

	switch x := v.(type) {
	case []byte:
		littleEndian, err := dieLittleEndian(die, true)
		if err != nil {
			return nil, err
		}
		if uint64(len(x)) < (bitSize+7)/8 {
			return nil, malformedf("DW_AT_const_value block is too small")
		}
		return object.NewBuffer(qt, x, bitSize, littleEndian), nil
	case int64:
		switch class {
		case object.StorageSigned:
			return object.NewSigned(qt, x, bitSize), nil
		case object.StorageUnsigned:
			return object.NewUnsigned(qt, uint64(x), bitSize), nil
		}
	case uint64:
		switch class {
		case object.StorageSigned:
			return object.NewSigned(qt, int64(x), bitSize), nil
		case object.StorageUnsigned:
			return object.NewUnsigned(qt, x, bitSize), nil
		}
	}
	return nil, malformedf("unknown DW_AT_const_value form")
}

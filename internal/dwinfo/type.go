// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwinfo

import (
	"debug/dwarf"
	"math"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// baseType decodes a DW_TAG_base_type DIE. Name, encoding, and byte
// size are required.
func (c *Cache) baseType(die Die, lang dwtype.Language) (*dwtype.Type, error) {
	name, present, err := dieName(die)
	if !present || err != nil {
		return nil, malformedf("DW_TAG_base_type has missing or invalid DW_AT_name")
	}
	encoding, present, err := attrUdata(die, dwarf.AttrEncoding)
	if !present || err != nil {
		return nil, malformedf("DW_TAG_base_type has missing or invalid DW_AT_encoding")
	}
	size, present, err := dieByteSize(die)
	if !present || err != nil {
		return nil, malformedf("DW_TAG_base_type has missing or invalid DW_AT_byte_size")
	}

	switch encoding {
	case encBoolean:
		return c.factory.Bool(name, size, lang), nil
	case encFloat:
		return c.factory.Float(name, size, lang), nil
	case encSigned, encSignedChar:
		return c.factory.Int(name, size, true, lang), nil
	case encUnsigned, encUnsignedChar:
		return c.factory.Int(name, size, false, lang), nil
	case encComplexFloat:
		realDie, err := die.Ref(dwarf.AttrType)
		if err != nil || realDie == nil {
			return nil, malformedf("DW_TAG_base_type has missing or invalid DW_AT_type")
		}
		real, err := c.Resolve(realDie)
		if err != nil {
			return nil, err
		}
		if k := real.Type.Kind(); k != dwtype.KindFloat && k != dwtype.KindInt {
			return nil, malformedf("DW_AT_type of DW_ATE_complex_float is not a floating-point or integer type")
		}
		return c.factory.Complex(name, size, real.Type, lang), nil
	}
	return nil, malformedf("DW_TAG_base_type has unknown DWARF encoding %#x", encoding)
}

// findComplete searches the name index for the complete definition of
// a declaration-only compound or enum. The index excludes
// declaration-only DIEs, so any hit is a complete definition. Zero
// hits or more than one hit mean there is no definitive match, which
// is signaled with errStop; the caller falls back to an incomplete
// placeholder rather than guessing.
func (c *Cache) findComplete(tag dwarf.Tag, name string) (*dwtype.Type, error) {
	it := c.index.Iterate(name, []dwarf.Tag{tag})
	die, _, ok := it.Next()
	if !ok {
		return nil, errStop
	}
	if _, _, ok := it.Next(); ok {
		return nil, errStop
	}
	qt, err := c.Resolve(die)
	if err != nil {
		return nil, err
	}
	return qt.Type, nil
}

// parseMemberOffset computes the bit offset of a compound member from
// the beginning of the containing object. Producers encode it three
// ways:
//
// DW_AT_data_bit_offset is already the answer.
//
// DW_AT_data_member_location is the byte offset of the member
// (defaulting to 0), possibly combined with the legacy DW_AT_bit_offset
// for bit fields, which counts from the most significant bit of the
// containing object. On a big-endian machine that is also the start of
// the field; on a little-endian machine the start is computed from the
// member's byte size minus bit offset and field size.
func (c *Cache) parseMemberOffset(die Die, memberType *dwtype.LazyType, bitFieldSize uint64, littleEndian bool) (uint64, error) {
	bitOffset, present, err := attrUdata(die, dwarf.AttrDataBitOffset)
	if err != nil {
		return 0, malformedf("DW_TAG_member has invalid DW_AT_data_bit_offset")
	}
	if present {
		return bitOffset, nil
	}

	byteOffset, present, err := attrUdata(die, dwarf.AttrDataMemberLoc)
	if err != nil {
		return 0, malformedf("DW_TAG_member has invalid DW_AT_data_member_location")
	}
	offset := uint64(0)
	if present {
		offset = 8 * byteOffset
	}

	legacyBitOffset, present, err := attrUdata(die, dwarf.AttrBitOffset)
	if err != nil {
		return 0, malformedf("DW_TAG_member has invalid DW_AT_bit_offset")
	}
	if present {
		if littleEndian {
			byteSize, haveByteSize, err := attrUdata(die, dwarf.AttrByteSize)
			if err != nil {
				return 0, malformedf("DW_TAG_member has invalid DW_AT_byte_size")
			}
			if !haveByteSize {
				// No explicit byte size on the member; take it from
				// the member's type.
				qt, err := memberType.Evaluate()
				if err != nil {
					return 0, err
				}
				size, ok := qt.Type.Size()
				if !ok {
					return 0, malformedf("DW_TAG_member bit field type does not have size")
				}
				byteSize = size
			}
			offset += 8*byteSize - legacyBitOffset - bitFieldSize
		} else {
			offset += legacyBitOffset
		}
	}
	return offset, nil
}

// parseMember decodes one DW_TAG_member child into the builder.
func (c *Cache) parseMember(die Die, littleEndian, canBeIncompleteArray bool, builder *dwtype.CompoundBuilder) error {
	name, _, err := dieName(die)
	if err != nil {
		return malformedf("DW_TAG_member has invalid DW_AT_name")
	}

	bitFieldSize, _, err := attrUdata(die, dwarf.AttrBitSize)
	if err != nil {
		return malformedf("DW_TAG_member has invalid DW_AT_bit_size")
	}

	memberType, err := c.lazyTypeFromChild(die, "DW_TAG_member", canBeIncompleteArray)
	if err != nil {
		return err
	}

	bitOffset, err := c.parseMemberOffset(die, memberType, bitFieldSize, littleEndian)
	if err != nil {
		return err
	}

	builder.AddMember(name, memberType, bitOffset, bitFieldSize)
	return nil
}

// compoundType decodes a structure, union, or class DIE. A
// declaration with a tag name is first resolved through the name
// index; if no definitive complete definition exists, an incomplete
// placeholder is produced. The last member of a struct or class with
// at least one other member may be a flexible (incomplete) array;
// every other member position forces array lengths to zero.
func (c *Cache) compoundType(die Die, lang dwtype.Language, kind dwtype.Kind) (*dwtype.Type, error) {
	var dwTagStr string
	var dwTag dwarf.Tag
	switch kind {
	case dwtype.KindStruct:
		dwTagStr, dwTag = "DW_TAG_structure_type", dwarf.TagStructType
	case dwtype.KindUnion:
		dwTagStr, dwTag = "DW_TAG_union_type", dwarf.TagUnionType
	case dwtype.KindClass:
		dwTagStr, dwTag = "DW_TAG_class_type", dwarf.TagClassType
	}

	tag, _, err := dieName(die)
	if err != nil {
		return nil, malformedf("%s has invalid DW_AT_name", dwTagStr)
	}

	declaration, err := attrFlag(die, dwarf.AttrDeclaration)
	if err != nil {
		return nil, malformedf("%s has invalid DW_AT_declaration", dwTagStr)
	}
	if declaration && tag != "" {
		t, err := c.findComplete(dwTag, tag)
		if err == nil {
			return t, nil
		}
		if err != errStop {
			return nil, err
		}
	}
	if declaration {
		return c.factory.IncompleteCompound(kind, tag, lang), nil
	}

	size, present, err := dieByteSize(die)
	if !present || err != nil {
		return nil, malformedf("%s has missing or invalid DW_AT_byte_size", dwTagStr)
	}

	builder := c.factory.NewCompoundBuilder(kind)
	littleEndian, _ := dieLittleEndian(die, false)
	children, err := die.Children()
	if err != nil {
		return nil, malformedf("could not parse DIE children")
	}
	// One-member lookahead: the last member is decoded knowing it is
	// last, since only it may be a flexible array member.
	var pending Die
	for _, child := range children {
		if child.Tag() != dwarf.TagMember {
			continue
		}
		if pending != nil {
			if err := c.parseMember(pending, littleEndian, false, builder); err != nil {
				return nil, err
			}
		}
		pending = child
	}
	if pending != nil {
		last := kind != dwtype.KindUnion && builder.Len() > 0
		if err := c.parseMember(pending, littleEndian, last, builder); err != nil {
			return nil, err
		}
	}

	return builder.Build(tag, size, lang), nil
}

// parseEnumerator decodes one DW_TAG_enumerator child. A signed form
// (DW_FORM_sdata or DW_FORM_implicit_const) decodes as signed; any
// negative value forces the enum's signedness for the fallback
// compatible type.
func (c *Cache) parseEnumerator(die Die, builder *dwtype.EnumBuilder, isSigned *bool) error {
	name, present, err := dieName(die)
	if !present || err != nil {
		return malformedf("DW_TAG_enumerator has missing or invalid DW_AT_name")
	}
	if _, ok := die.Val(dwarf.AttrConstValue); !ok {
		return malformedf("DW_TAG_enumerator is missing DW_AT_const_value")
	}

	if isSignedForm(die, dwarf.AttrConstValue) {
		value, _, err := attrSdata(die, dwarf.AttrConstValue)
		if err != nil {
			return malformedf("DW_TAG_enumerator has invalid DW_AT_const_value")
		}
		builder.AddSigned(name, value)
		if value < 0 {
			*isSigned = true
		}
	} else {
		value, _, err := attrUdata(die, dwarf.AttrConstValue)
		if err != nil {
			return malformedf("DW_TAG_enumerator has invalid DW_AT_const_value")
		}
		builder.AddUnsigned(name, value)
	}
	return nil
}

// enumCompatibleFallback fabricates the compatible integer type of an
// enum whose producer omitted DW_AT_type (GCC before 5.1).
func (c *Cache) enumCompatibleFallback(die Die, isSigned bool, lang dwtype.Language) (*dwtype.Type, error) {
	size, present, err := dieByteSize(die)
	if !present || err != nil {
		return nil, malformedf("DW_TAG_enumeration_type has missing or invalid DW_AT_byte_size")
	}
	return c.factory.Int("<unknown>", size, isSigned, lang), nil
}

// enumType decodes a DW_TAG_enumeration_type DIE, with the same
// declaration handling as compoundType.
func (c *Cache) enumType(die Die, lang dwtype.Language) (*dwtype.Type, error) {
	tag, _, err := dieName(die)
	if err != nil {
		return nil, malformedf("DW_TAG_enumeration_type has invalid DW_AT_name")
	}

	declaration, err := attrFlag(die, dwarf.AttrDeclaration)
	if err != nil {
		return nil, malformedf("DW_TAG_enumeration_type has invalid DW_AT_declaration")
	}
	if declaration && tag != "" {
		t, err := c.findComplete(dwarf.TagEnumerationType, tag)
		if err == nil {
			return t, nil
		}
		if err != errStop {
			return nil, err
		}
	}
	if declaration {
		return c.factory.IncompleteEnum(tag, lang), nil
	}

	builder := c.factory.NewEnumBuilder()
	isSigned := false
	children, err := die.Children()
	if err != nil {
		return nil, malformedf("could not parse DIE children")
	}
	for _, child := range children {
		if child.Tag() != dwarf.TagEnumerator {
			continue
		}
		if err := c.parseEnumerator(child, builder, &isSigned); err != nil {
			return nil, err
		}
	}

	var compatible *dwtype.Type
	compatDie, err := die.Ref(dwarf.AttrType)
	if err != nil {
		return nil, malformedf("DW_TAG_enumeration_type has invalid DW_AT_type")
	}
	if compatDie == nil {
		compatible, err = c.enumCompatibleFallback(die, isSigned, lang)
		if err != nil {
			return nil, err
		}
	} else {
		qt, err := c.Resolve(compatDie)
		if err != nil {
			return nil, err
		}
		compatible = qt.Type
		if compatible.Kind() != dwtype.KindInt {
			return nil, malformedf("DW_AT_type of DW_TAG_enumeration_type is not an integer type")
		}
	}

	return builder.Build(tag, compatible, lang), nil
}

// typedefType decodes a DW_TAG_typedef DIE. The incomplete-array
// property of the aliased type propagates upward so that a typedef of
// an incomplete array behaves like one to its callers.
func (c *Cache) typedefType(die Die, lang dwtype.Language, canBeIncompleteArray bool, isIncompleteArrayRet *bool) (*dwtype.Type, error) {
	name, present, err := dieName(die)
	if !present || err != nil {
		return nil, malformedf("DW_TAG_typedef has missing or invalid DW_AT_name")
	}

	aliased, err := c.typeFromChild(die, "DW_TAG_typedef", true, canBeIncompleteArray, isIncompleteArrayRet)
	if err != nil {
		return nil, err
	}
	return c.factory.Typedef(name, aliased, lang), nil
}

// pointerType decodes a DW_TAG_pointer_type DIE. The pointed-to type
// may legitimately be an incomplete array. The pointer size defaults
// to the program's word size.
func (c *Cache) pointerType(die Die, lang dwtype.Language) (*dwtype.Type, error) {
	referenced, err := c.typeFromChild(die, "DW_TAG_pointer_type", true, true, nil)
	if err != nil {
		return nil, err
	}

	size, present, err := attrUdata(die, dwarf.AttrByteSize)
	if err != nil {
		return nil, malformedf("DW_TAG_pointer_type has invalid DW_AT_byte_size")
	}
	if !present {
		size = uint64(c.platform.WordSize())
	}
	return c.factory.Pointer(referenced, size, lang), nil
}

type arrayDimension struct {
	length     uint64
	isComplete bool
}

// subrangeLength decodes one DW_TAG_subrange_type DIE into a
// dimension. With neither DW_AT_upper_bound nor DW_AT_count the
// dimension is incomplete. GCC emits a DW_FORM_sdata upper bound of -1
// for empty array variables without an explicit size
// (`int arr[] = {};`), which means length zero.
func subrangeLength(die Die) (arrayDimension, error) {
	attr := dwarf.AttrUpperBound
	v, ok := die.Val(attr)
	if !ok {
		attr = dwarf.AttrCount
		v, ok = die.Val(attr)
	}
	if !ok {
		return arrayDimension{isComplete: false}, nil
	}

	var word uint64
	switch x := v.(type) {
	case int64:
		if attr == dwarf.AttrUpperBound && x == -1 {
			return arrayDimension{length: 0, isComplete: true}, nil
		}
		word = uint64(x)
	case uint64:
		word = x
	default:
		if attr == dwarf.AttrUpperBound {
			return arrayDimension{}, malformedf("DW_TAG_subrange_type has invalid DW_AT_upper_bound")
		}
		return arrayDimension{}, malformedf("DW_TAG_subrange_type has invalid DW_AT_count")
	}

	if attr == dwarf.AttrUpperBound {
		if word >= math.MaxUint64 {
			return arrayDimension{}, overflowf("DW_AT_upper_bound is too large")
		}
		return arrayDimension{length: word + 1, isComplete: true}, nil
	}
	return arrayDimension{length: word, isComplete: true}, nil
}

// arrayType decodes a DW_TAG_array_type DIE. Dimensions fold from the
// innermost outward; only the outermost may remain incomplete, and
// then only if the caller allows it. Inner dimensions with no count
// are forced to length zero.
func (c *Cache) arrayType(die Die, lang dwtype.Language, canBeIncompleteArray bool, isIncompleteArrayRet *bool) (*dwtype.Type, error) {
	var dimensions []arrayDimension
	children, err := die.Children()
	if err != nil {
		return nil, malformedf("could not parse DIE children")
	}
	for _, child := range children {
		if child.Tag() != dwarf.TagSubrangeType {
			continue
		}
		dim, err := subrangeLength(child)
		if err != nil {
			return nil, err
		}
		dimensions = append(dimensions, dim)
	}
	if len(dimensions) == 0 {
		dimensions = append(dimensions, arrayDimension{isComplete: false})
	}

	elementType, err := c.typeFromChild(die, "DW_TAG_array_type", false, false, nil)
	if err != nil {
		return nil, err
	}

	*isIncompleteArrayRet = !dimensions[0].isComplete

	var typ *dwtype.Type
	for i := len(dimensions) - 1; i >= 0; i-- {
		dim := dimensions[i]
		switch {
		case dim.isComplete:
			typ = c.factory.Array(elementType, dim.length, lang)
		case i > 0 || !canBeIncompleteArray:
			typ = c.factory.Array(elementType, 0, lang)
		default:
			typ = c.factory.IncompleteArray(elementType, lang)
		}
		elementType = dwtype.QualifiedType{Type: typ}
	}
	return typ, nil
}

// parseFormalParameter decodes one DW_TAG_formal_parameter child into
// the builder.
func (c *Cache) parseFormalParameter(die Die, builder *dwtype.FunctionBuilder) error {
	name, _, err := dieName(die)
	if err != nil {
		return malformedf("DW_TAG_formal_parameter has invalid DW_AT_name")
	}

	parameterType, err := c.lazyTypeFromChild(die, "DW_TAG_formal_parameter", true)
	if err != nil {
		return err
	}
	builder.AddParameter(name, parameterType)
	return nil
}

// functionType decodes a DW_TAG_subroutine_type or DW_TAG_subprogram
// DIE. DW_TAG_unspecified_parameters marks the function variadic; it
// may appear once, after every formal parameter.
func (c *Cache) functionType(die Die, lang dwtype.Language) (*dwtype.Type, error) {
	tagName := "DW_TAG_subroutine_type"
	if die.Tag() == dwarf.TagSubprogram {
		tagName = "DW_TAG_subprogram"
	}

	builder := c.factory.NewFunctionBuilder()
	isVariadic := false
	children, err := die.Children()
	if err != nil {
		return nil, malformedf("could not parse DIE children")
	}
	for _, child := range children {
		switch child.Tag() {
		case dwarf.TagFormalParameter:
			if isVariadic {
				return nil, malformedf("%s has DW_TAG_formal_parameter child after DW_TAG_unspecified_parameters child", tagName)
			}
			if err := c.parseFormalParameter(child, builder); err != nil {
				return nil, err
			}
		case dwarf.TagUnspecifiedParameters:
			if isVariadic {
				return nil, malformedf("%s has multiple DW_TAG_unspecified_parameters children", tagName)
			}
			isVariadic = true
		}
	}

	returnType, err := c.typeFromChild(die, tagName, true, true, nil)
	if err != nil {
		return nil, err
	}
	return builder.Build(returnType, isVariadic, lang), nil
}

// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwtype

// A Factory creates type descriptors. One factory is owned by each
// program; descriptors from different factories are never mixed.
// The factory does no interning beyond the per-language void type:
// identity of descriptors for equal DIEs is the materializer's job.
type Factory struct {
	voids map[Language]*Type
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{voids: make(map[Language]*Type)}
}

// Void returns the void type for lang. The result is interned: every
// call with the same language returns the same descriptor.
func (f *Factory) Void(lang Language) *Type {
	t := f.voids[lang]
	if t == nil {
		t = &Type{kind: KindVoid, lang: lang}
		f.voids[lang] = t
	}
	return t
}

// Bool creates a boolean type of the given name and size.
func (f *Factory) Bool(name string, size uint64, lang Language) *Type {
	return &Type{kind: KindBool, name: name, size: size, complete: true, lang: lang}
}

// Int creates an integer type.
func (f *Factory) Int(name string, size uint64, signed bool, lang Language) *Type {
	return &Type{kind: KindInt, name: name, size: size, signed: signed, complete: true, lang: lang}
}

// Float creates a floating-point type.
func (f *Factory) Float(name string, size uint64, lang Language) *Type {
	return &Type{kind: KindFloat, name: name, size: size, complete: true, lang: lang}
}

// Complex creates a complex type over the given real type.
func (f *Factory) Complex(name string, size uint64, real *Type, lang Language) *Type {
	return &Type{
		kind:     KindComplex,
		name:     name,
		size:     size,
		complete: true,
		lang:     lang,
		inner:    QualifiedType{Type: real},
	}
}

// Typedef creates a typedef of aliased named name.
func (f *Factory) Typedef(name string, aliased QualifiedType, lang Language) *Type {
	return &Type{kind: KindTypedef, name: name, inner: aliased, complete: true, lang: lang}
}

// Pointer creates a pointer to referenced of the given size.
func (f *Factory) Pointer(referenced QualifiedType, size uint64, lang Language) *Type {
	return &Type{kind: KindPointer, size: size, inner: referenced, complete: true, lang: lang}
}

// Array creates an array of length elements of element type. A length
// of zero is a genuine zero-length array, distinct from an incomplete
// array.
func (f *Factory) Array(element QualifiedType, length uint64, lang Language) *Type {
	return &Type{kind: KindArray, length: length, inner: element, complete: true, lang: lang}
}

// IncompleteArray creates an array whose outermost dimension has no
// known length.
func (f *Factory) IncompleteArray(element QualifiedType, lang Language) *Type {
	return &Type{kind: KindArray, inner: element, complete: false, lang: lang}
}

// IncompleteCompound creates a declaration-only struct, union, or
// class type. kind must be KindStruct, KindUnion, or KindClass.
func (f *Factory) IncompleteCompound(kind Kind, tag string, lang Language) *Type {
	return &Type{kind: kind, name: tag, complete: false, lang: lang}
}

// IncompleteEnum creates a declaration-only enum type.
func (f *Factory) IncompleteEnum(tag string, lang Language) *Type {
	return &Type{kind: KindEnum, name: tag, complete: false, lang: lang}
}

// A CompoundBuilder collects the members of a struct, union, or class
// type before the descriptor is created.
type CompoundBuilder struct {
	kind    Kind
	members []Member
}

// NewCompoundBuilder returns a builder for a compound type of kind,
// which must be KindStruct, KindUnion, or KindClass.
func (f *Factory) NewCompoundBuilder(kind Kind) *CompoundBuilder {
	return &CompoundBuilder{kind: kind}
}

// AddMember appends one member.
func (b *CompoundBuilder) AddMember(name string, typ *LazyType, bitOffset, bitFieldSize uint64) {
	b.members = append(b.members, Member{
		Name:         name,
		Type:         typ,
		BitOffset:    bitOffset,
		BitFieldSize: bitFieldSize,
	})
}

// Len returns the number of members added so far.
func (b *CompoundBuilder) Len() int { return len(b.members) }

// Build creates the compound descriptor. tag may be empty for an
// anonymous type.
func (b *CompoundBuilder) Build(tag string, size uint64, lang Language) *Type {
	return &Type{
		kind:     b.kind,
		name:     tag,
		size:     size,
		complete: true,
		lang:     lang,
		members:  b.members,
	}
}

// An EnumBuilder collects the enumerators of an enum type.
type EnumBuilder struct {
	enumerators []Enumerator
}

// NewEnumBuilder returns a builder for an enum type.
func (f *Factory) NewEnumBuilder() *EnumBuilder {
	return &EnumBuilder{}
}

// AddSigned appends an enumerator with a signed encoding.
func (b *EnumBuilder) AddSigned(name string, value int64) {
	b.enumerators = append(b.enumerators, Enumerator{
		Name:   name,
		Signed: true,
		SValue: value,
		UValue: uint64(value),
	})
}

// AddUnsigned appends an enumerator with an unsigned encoding.
func (b *EnumBuilder) AddUnsigned(name string, value uint64) {
	b.enumerators = append(b.enumerators, Enumerator{
		Name:   name,
		SValue: int64(value),
		UValue: value,
	})
}

// Build creates the enum descriptor. compatible is the integer type
// the enum is stored as.
func (b *EnumBuilder) Build(tag string, compatible *Type, lang Language) *Type {
	size, _ := compatible.Size()
	return &Type{
		kind:        KindEnum,
		name:        tag,
		size:        size,
		complete:    true,
		lang:        lang,
		compatible:  compatible,
		enumerators: b.enumerators,
	}
}

// A FunctionBuilder collects the parameters of a function type.
type FunctionBuilder struct {
	params []Parameter
}

// NewFunctionBuilder returns a builder for a function type.
func (f *Factory) NewFunctionBuilder() *FunctionBuilder {
	return &FunctionBuilder{}
}

// AddParameter appends one formal parameter.
func (b *FunctionBuilder) AddParameter(name string, typ *LazyType) {
	b.params = append(b.params, Parameter{Name: name, Type: typ})
}

// Build creates the function descriptor.
func (b *FunctionBuilder) Build(ret QualifiedType, variadic bool, lang Language) *Type {
	return &Type{
		kind:     KindFunction,
		inner:    ret,
		variadic: variadic,
		params:   b.params,
		lang:     lang,
	}
}

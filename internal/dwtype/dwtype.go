// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dwtype holds the program-level type descriptors produced by
// the DWARF materializer: integers, floats, compounds, enums,
// typedefs, pointers, arrays and function types, plus the qualifier
// bitset and the lazy (thunked) references that break cycles in the
// type graph.
//
// Descriptors are created through a Factory and are immutable once
// built. The materializer memoizes them so that equal DIEs yield
// pointer-equal descriptors; nothing in this package depends on how
// they were produced.
package dwtype

import (
	"fmt"
	"strings"
)

// Kind is the discriminant of a type descriptor.
type Kind int

const (
	KindVoid Kind = iota
	KindInt
	KindBool
	KindFloat
	KindComplex
	KindStruct
	KindUnion
	KindClass
	KindEnum
	KindTypedef
	KindPointer
	KindArray
	KindFunction
)

var kindNames = [...]string{
	KindVoid:     "void",
	KindInt:      "int",
	KindBool:     "bool",
	KindFloat:    "float",
	KindComplex:  "complex",
	KindStruct:   "struct",
	KindUnion:    "union",
	KindClass:    "class",
	KindEnum:     "enum",
	KindTypedef:  "typedef",
	KindPointer:  "pointer",
	KindArray:    "array",
	KindFunction: "function",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Qualifiers is a bitset of C type qualifiers. Qualifiers accumulate
// across nested qualifier DIEs; they never change the underlying
// descriptor.
type Qualifiers uint8

const (
	QualifierConst Qualifiers = 1 << iota
	QualifierRestrict
	QualifierVolatile
	QualifierAtomic
)

func (q Qualifiers) String() string {
	var parts []string
	if q&QualifierConst != 0 {
		parts = append(parts, "const")
	}
	if q&QualifierRestrict != 0 {
		parts = append(parts, "restrict")
	}
	if q&QualifierVolatile != 0 {
		parts = append(parts, "volatile")
	}
	if q&QualifierAtomic != 0 {
		parts = append(parts, "_Atomic")
	}
	return strings.Join(parts, " ")
}

// A QualifiedType is a type descriptor plus its qualifiers.
type QualifiedType struct {
	Type       *Type
	Qualifiers Qualifiers
}

func (qt QualifiedType) String() string {
	if qt.Qualifiers == 0 {
		return qt.Type.String()
	}
	return qt.Qualifiers.String() + " " + qt.Type.String()
}

// A Member is one member of a struct, union, or class type. Its type
// is lazy: the member of a structure may refer back to a pointer to
// the enclosing structure, so it is materialized on first use.
type Member struct {
	Name         string // empty for anonymous members
	Type         *LazyType
	BitOffset    uint64
	BitFieldSize uint64 // 0 if not a bit field
}

// An Enumerator is one constant of an enumerated type. Signed reports
// how the producer encoded the value; SValue and UValue are the same
// bit pattern read both ways.
type Enumerator struct {
	Name   string
	Signed bool
	SValue int64
	UValue uint64
}

// A Parameter is one formal parameter of a function type.
type Parameter struct {
	Name string // empty if the producer omitted it
	Type *LazyType
}

// A Type is an opaque descriptor for a program-level type. Only the
// Factory creates them; everything else treats them as values and
// relies on pointer equality for identity.
type Type struct {
	kind     Kind
	name     string // base type or typedef name, or compound/enum tag
	size     uint64
	signed   bool
	complete bool
	lang     Language

	// inner is the pointed-to, element, aliased, real (complex), or
	// return type, depending on kind.
	inner QualifiedType

	length      uint64 // array
	members     []Member
	enumerators []Enumerator
	compatible  *Type // enum storage type
	params      []Parameter
	variadic    bool
}

// Kind returns the type's discriminant.
func (t *Type) Kind() Kind { return t.kind }

// Name returns the type's name: the spelled name of a base type or
// typedef, or the tag of a compound or enum type. It is empty for
// anonymous and unnamed types.
func (t *Type) Name() string { return t.name }

// Language returns the source language the type was declared in.
func (t *Type) Language() Language { return t.lang }

// IsComplete reports whether the type has a known layout. Declaration
// only compounds and enums, incomplete arrays, void, and function
// types are not complete.
func (t *Type) IsComplete() bool {
	switch t.kind {
	case KindVoid, KindFunction:
		return false
	case KindTypedef:
		return t.inner.Type.IsComplete()
	default:
		return t.complete
	}
}

// IsSigned reports whether an int type is signed, or whether an enum's
// compatible type is signed. It is false for every other kind.
func (t *Type) IsSigned() bool {
	if t.kind == KindEnum && t.compatible != nil {
		return t.compatible.signed
	}
	return t.signed
}

// Size returns the type's size in bytes. The second result is false
// when the type has no size: void, function, and incomplete types.
func (t *Type) Size() (uint64, bool) {
	switch t.kind {
	case KindVoid, KindFunction:
		return 0, false
	case KindTypedef:
		return t.inner.Type.Size()
	case KindArray:
		if !t.complete {
			return 0, false
		}
		es, ok := t.inner.Type.Size()
		if !ok {
			return 0, false
		}
		return t.length * es, true
	default:
		if !t.complete {
			return 0, false
		}
		return t.size, true
	}
}

// Length returns the number of elements of a complete array type.
func (t *Type) Length() uint64 { return t.length }

// ElementType returns the element type of an array type.
func (t *Type) ElementType() QualifiedType { return t.inner }

// ReferencedType returns the pointed-to type of a pointer type.
func (t *Type) ReferencedType() QualifiedType { return t.inner }

// AliasedType returns the type a typedef names.
func (t *Type) AliasedType() QualifiedType { return t.inner }

// RealType returns the real component type of a complex type.
func (t *Type) RealType() *Type { return t.inner.Type }

// ReturnType returns the return type of a function type.
func (t *Type) ReturnType() QualifiedType { return t.inner }

// CompatibleType returns the integer type an enum is stored as, or nil
// for an incomplete enum.
func (t *Type) CompatibleType() *Type { return t.compatible }

// Members returns the members of a complete compound type.
func (t *Type) Members() []Member { return t.members }

// Enumerators returns the constants of a complete enum type.
func (t *Type) Enumerators() []Enumerator { return t.enumerators }

// Parameters returns the formal parameters of a function type.
func (t *Type) Parameters() []Parameter { return t.params }

// IsVariadic reports whether a function type takes variable arguments.
func (t *Type) IsVariadic() bool { return t.variadic }

func (t *Type) String() string {
	switch t.kind {
	case KindVoid:
		return "void"
	case KindInt, KindBool, KindFloat, KindComplex, KindTypedef:
		return t.name
	case KindStruct, KindUnion, KindClass, KindEnum:
		tag := t.name
		if tag == "" {
			tag = "<anonymous>"
		}
		return t.kind.String() + " " + tag
	case KindPointer:
		return "*" + t.inner.String()
	case KindArray:
		if !t.complete {
			return "[]" + t.inner.String()
		}
		return fmt.Sprintf("[%d]%s", t.length, t.inner.String())
	case KindFunction:
		var b strings.Builder
		b.WriteString("func(")
		for i, p := range t.params {
			if i > 0 {
				b.WriteString(", ")
			}
			if qt, err := p.Type.Evaluate(); err == nil {
				b.WriteString(qt.String())
			} else {
				b.WriteString("?")
			}
		}
		if t.variadic {
			if len(t.params) > 0 {
				b.WriteString(", ")
			}
			b.WriteString("...")
		}
		b.WriteString(") ")
		b.WriteString(t.inner.String())
		return b.String()
	}
	return "?"
}

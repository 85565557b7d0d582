// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package object represents program objects found through debugging
// information: a variable or function living at an address (a
// reference), or a constant known only from the debug info itself (a
// value).
package object

import (
	"fmt"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// Kind discriminates how an object's value is held.
type Kind int

const (
	// Reference objects live in the program's memory at Address.
	Reference Kind = iota
	// Signed and Unsigned objects are integer values held inline.
	Signed
	Unsigned
	// Buffer objects are raw bytes held inline.
	Buffer
)

func (k Kind) String() string {
	switch k {
	case Reference:
		return "reference"
	case Signed:
		return "signed"
	case Unsigned:
		return "unsigned"
	case Buffer:
		return "buffer"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// An Object is a typed value or reference.
type Object struct {
	Type dwtype.QualifiedType
	Kind Kind

	// Reference fields.
	Address uint64

	// Value fields.
	SValue       int64
	UValue       uint64
	Data         []byte
	BitSize      uint64
	LittleEndian bool
}

// NewReference returns a reference object at addr.
func NewReference(qt dwtype.QualifiedType, addr uint64, littleEndian bool) *Object {
	return &Object{Type: qt, Kind: Reference, Address: addr, LittleEndian: littleEndian}
}

// NewSigned returns a signed integer value object.
func NewSigned(qt dwtype.QualifiedType, v int64, bitSize uint64) *Object {
	return &Object{Type: qt, Kind: Signed, SValue: v, BitSize: bitSize}
}

// NewUnsigned returns an unsigned integer value object.
func NewUnsigned(qt dwtype.QualifiedType, v uint64, bitSize uint64) *Object {
	return &Object{Type: qt, Kind: Unsigned, UValue: v, BitSize: bitSize}
}

// NewBuffer returns a raw value object holding the first
// ceil(bitSize/8) bytes of data.
func NewBuffer(qt dwtype.QualifiedType, data []byte, bitSize uint64, littleEndian bool) *Object {
	n := (bitSize + 7) / 8
	buf := make([]byte, n)
	copy(buf, data[:n])
	return &Object{Type: qt, Kind: Buffer, Data: buf, BitSize: bitSize, LittleEndian: littleEndian}
}

// Uint returns the object's value read as an unsigned integer. Buffer
// objects are decoded with the object's byte order.
func (o *Object) Uint() (uint64, error) {
	switch o.Kind {
	case Unsigned:
		return o.UValue, nil
	case Signed:
		return uint64(o.SValue), nil
	case Buffer:
		if len(o.Data) > 8 {
			return 0, fmt.Errorf("object value is %d bytes, too large for an integer", len(o.Data))
		}
		var v uint64
		if o.LittleEndian {
			for i := len(o.Data) - 1; i >= 0; i-- {
				v = v<<8 | uint64(o.Data[i])
			}
		} else {
			for _, b := range o.Data {
				v = v<<8 | uint64(b)
			}
		}
		return v, nil
	}
	return 0, fmt.Errorf("cannot read value of %s object", o.Kind)
}

// Int returns the object's value read as a signed integer.
func (o *Object) Int() (int64, error) {
	if o.Kind == Signed {
		return o.SValue, nil
	}
	v, err := o.Uint()
	return int64(v), err
}

func (o *Object) String() string {
	switch o.Kind {
	case Reference:
		return fmt.Sprintf("(%s)*%#x", o.Type, o.Address)
	case Signed:
		return fmt.Sprintf("(%s)%d", o.Type, o.SValue)
	case Unsigned:
		return fmt.Sprintf("(%s)%d", o.Type, o.UValue)
	case Buffer:
		v, err := o.Uint()
		if err != nil {
			return fmt.Sprintf("(%s)%x", o.Type, o.Data)
		}
		return fmt.Sprintf("(%s)%#x", o.Type, v)
	}
	return "<invalid object>"
}

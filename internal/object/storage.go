// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package object

import (
	"fmt"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// StorageClass describes how a type's values are stored, which decides
// how a DW_AT_const_value is decoded.
type StorageClass int

const (
	StorageSigned StorageClass = iota
	StorageUnsigned
	StorageFloat
	StorageBuffer
)

// underlying strips typedefs from a type.
func underlying(t *dwtype.Type) *dwtype.Type {
	for t.Kind() == dwtype.KindTypedef {
		t = t.AliasedType().Type
	}
	return t
}

// Storage derives the storage class and bit size of values of qt.
// Void, function, and incomplete types have no values.
func Storage(qt dwtype.QualifiedType) (StorageClass, uint64, error) {
	t := underlying(qt.Type)
	size, hasSize := t.Size()
	switch t.Kind() {
	case dwtype.KindInt:
		if !hasSize {
			break
		}
		if t.IsSigned() {
			return StorageSigned, 8 * size, nil
		}
		return StorageUnsigned, 8 * size, nil
	case dwtype.KindBool, dwtype.KindPointer:
		if !hasSize {
			break
		}
		return StorageUnsigned, 8 * size, nil
	case dwtype.KindEnum:
		if !t.IsComplete() {
			return 0, 0, fmt.Errorf("cannot create object with incomplete enumerated type")
		}
		if t.IsSigned() {
			return StorageSigned, 8 * size, nil
		}
		return StorageUnsigned, 8 * size, nil
	case dwtype.KindFloat:
		return StorageFloat, 8 * size, nil
	case dwtype.KindStruct, dwtype.KindUnion, dwtype.KindClass, dwtype.KindArray, dwtype.KindComplex:
		if !hasSize {
			return 0, 0, fmt.Errorf("cannot create object with incomplete type")
		}
		return StorageBuffer, 8 * size, nil
	}
	return 0, 0, fmt.Errorf("cannot create object with %s type", t.Kind())
}

// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwinfo

import (
	"debug/dwarf"
	"errors"
	"fmt"
	"testing"

	"github.com/kamalesh-babulal/drgn/internal/dwtype"
)

// The tests drive the materializer over an in-memory DIE store so
// that producer quirks (legacy bit fields, missing attributes,
// ambiguous declarations) can be staged directly.

type testUnit struct {
	path         string
	lang         dwtype.Language
	littleEndian bool
	addrSize     int
}

func (u *testUnit) Path() string              { return u.path }
func (u *testUnit) Language() dwtype.Language { return u.lang }
func (u *testUnit) LittleEndian() bool        { return u.littleEndian }
func (u *testUnit) AddressSize() int          { return u.addrSize }

type testDie struct {
	unit     *testUnit
	tag      dwarf.Tag
	attrs    map[dwarf.Attr]interface{}
	refs     map[dwarf.Attr]*testDie
	children []*testDie
}

func newDie(u *testUnit, tag dwarf.Tag) *testDie {
	return &testDie{
		unit:  u,
		tag:   tag,
		attrs: make(map[dwarf.Attr]interface{}),
		refs:  make(map[dwarf.Attr]*testDie),
	}
}

func (d *testDie) attr(a dwarf.Attr, v interface{}) *testDie {
	d.attrs[a] = v
	return d
}

func (d *testDie) typeRef(t *testDie) *testDie {
	d.refs[dwarf.AttrType] = t
	return d
}

func (d *testDie) kids(children ...*testDie) *testDie {
	d.children = append(d.children, children...)
	return d
}

func (d *testDie) Key() DieKey    { return d }
func (d *testDie) Tag() dwarf.Tag { return d.tag }
func (d *testDie) Unit() Unit     { return d.unit }

func (d *testDie) Val(a dwarf.Attr) (interface{}, bool) {
	v, ok := d.attrs[a]
	if !ok {
		if _, ok := d.refs[a]; ok {
			return dwarf.Offset(0), true
		}
		return nil, false
	}
	return v, true
}

func (d *testDie) Ref(a dwarf.Attr) (Die, error) {
	if r, ok := d.refs[a]; ok {
		return r, nil
	}
	if _, ok := d.attrs[a]; ok {
		return nil, fmt.Errorf("%w: attribute %s is not a reference", ErrMalformedDWARF, a)
	}
	return nil, nil
}

func (d *testDie) Children() ([]Die, error) {
	children := make([]Die, len(d.children))
	for i, c := range d.children {
		children[i] = c
	}
	return children, nil
}

type testIndexEntry struct {
	tag  dwarf.Tag
	die  *testDie
	bias uint64
}

type testIndex struct {
	entries map[string][]testIndexEntry
}

func newTestIndex() *testIndex {
	return &testIndex{entries: make(map[string][]testIndexEntry)}
}

func (x *testIndex) add(name string, tag dwarf.Tag, d *testDie, bias uint64) {
	x.entries[name] = append(x.entries[name], testIndexEntry{tag: tag, die: d, bias: bias})
}

func (x *testIndex) Iterate(name string, tags []dwarf.Tag) Iterator {
	return &testIterator{entries: x.entries[name], tags: tags}
}

type testIterator struct {
	entries []testIndexEntry
	tags    []dwarf.Tag
}

func (it *testIterator) Next() (Die, uint64, bool) {
	for len(it.entries) > 0 {
		ent := it.entries[0]
		it.entries = it.entries[1:]
		for _, tag := range it.tags {
			if ent.tag == tag {
				return ent.die, ent.bias, true
			}
		}
	}
	return nil, 0, false
}

type testPlatform struct{}

func (testPlatform) WordSize() int                    { return 8 }
func (testPlatform) DefaultLanguage() dwtype.Language { return dwtype.LanguageC }

func newTestCache(ix Index) *Cache {
	if ix == nil {
		ix = newTestIndex()
	}
	return NewCache(dwtype.NewFactory(), ix, testPlatform{})
}

var (
	unitLE = &testUnit{path: "dir/foo.c", lang: dwtype.LanguageC, littleEndian: true, addrSize: 8}
	unitBE = &testUnit{path: "dir/big.c", lang: dwtype.LanguageC, littleEndian: false, addrSize: 8}
)

func intDie(u *testUnit) *testDie {
	return newDie(u, dwarf.TagBaseType).
		attr(dwarf.AttrName, "int").
		attr(dwarf.AttrEncoding, int64(encSigned)).
		attr(dwarf.AttrByteSize, int64(4))
}

func TestBaseTypes(t *testing.T) {
	c := newTestCache(nil)

	qt, err := c.Resolve(intDie(unitLE))
	if err != nil {
		t.Fatalf("Resolve(int) failed: %v", err)
	}
	typ := qt.Type
	if typ.Kind() != dwtype.KindInt || !typ.IsSigned() || typ.Name() != "int" {
		t.Errorf("got %s %q signed=%v, want signed int", typ.Kind(), typ.Name(), typ.IsSigned())
	}
	if size, ok := typ.Size(); !ok || size != 4 {
		t.Errorf("size = %d,%v, want 4", size, ok)
	}

	u8 := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "unsigned char").
		attr(dwarf.AttrEncoding, int64(encUnsignedChar)).
		attr(dwarf.AttrByteSize, int64(1))
	qt, err = c.Resolve(u8)
	if err != nil {
		t.Fatalf("Resolve(unsigned char) failed: %v", err)
	}
	if qt.Type.Kind() != dwtype.KindInt || qt.Type.IsSigned() {
		t.Errorf("unsigned char decoded as %s signed=%v", qt.Type.Kind(), qt.Type.IsSigned())
	}

	b := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "_Bool").
		attr(dwarf.AttrEncoding, int64(encBoolean)).
		attr(dwarf.AttrByteSize, int64(1))
	if qt, err = c.Resolve(b); err != nil || qt.Type.Kind() != dwtype.KindBool {
		t.Errorf("Resolve(_Bool) = %v, %v", qt, err)
	}

	f := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "double").
		attr(dwarf.AttrEncoding, int64(encFloat)).
		attr(dwarf.AttrByteSize, int64(8))
	if qt, err = c.Resolve(f); err != nil || qt.Type.Kind() != dwtype.KindFloat {
		t.Errorf("Resolve(double) = %v, %v", qt, err)
	}
}

func TestBaseTypeErrors(t *testing.T) {
	c := newTestCache(nil)

	noName := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrEncoding, int64(encSigned)).
		attr(dwarf.AttrByteSize, int64(4))
	if _, err := c.Resolve(noName); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("missing name: got %v, want ErrMalformedDWARF", err)
	}

	badEnc := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "weird").
		attr(dwarf.AttrEncoding, int64(0x7f)).
		attr(dwarf.AttrByteSize, int64(4))
	if _, err := c.Resolve(badEnc); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("unknown encoding: got %v, want ErrMalformedDWARF", err)
	}

	unknownTag := newDie(unitLE, dwarf.TagCompileUnit)
	if _, err := c.Resolve(unknownTag); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("unknown tag: got %v, want ErrMalformedDWARF", err)
	}
}

// A complex base type recurses into DW_AT_type for its real
// component, which must be a floating-point or integer type.
func TestComplexFloat(t *testing.T) {
	c := newTestCache(nil)

	double := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "double").
		attr(dwarf.AttrEncoding, int64(encFloat)).
		attr(dwarf.AttrByteSize, int64(8))
	cplx := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "complex double").
		attr(dwarf.AttrEncoding, int64(encComplexFloat)).
		attr(dwarf.AttrByteSize, int64(16)).
		typeRef(double)

	qt, err := c.Resolve(cplx)
	if err != nil {
		t.Fatalf("Resolve(complex double) failed: %v", err)
	}
	if qt.Type.Kind() != dwtype.KindComplex {
		t.Fatalf("kind = %s, want complex", qt.Type.Kind())
	}
	real := qt.Type.RealType()
	if real.Kind() != dwtype.KindFloat {
		t.Errorf("real kind = %s, want float", real.Kind())
	}
	if size, _ := real.Size(); size != 8 {
		t.Errorf("real size = %d, want 8", size)
	}

	str := newDie(unitLE, dwarf.TagStructType).attr(dwarf.AttrByteSize, int64(4))
	badCplx := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "complex struct").
		attr(dwarf.AttrEncoding, int64(encComplexFloat)).
		attr(dwarf.AttrByteSize, int64(8)).
		typeRef(str)
	if _, err := c.Resolve(badCplx); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("complex of struct: got %v, want ErrMalformedDWARF", err)
	}
}

// Resolving the same DIE twice must yield the identical descriptor.
func TestMemoization(t *testing.T) {
	c := newTestCache(nil)
	d := intDie(unitLE)

	first, err := c.Resolve(d)
	if err != nil {
		t.Fatalf("first Resolve failed: %v", err)
	}
	second, err := c.Resolve(d)
	if err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if first.Type != second.Type {
		t.Errorf("Resolve returned distinct descriptors %p and %p", first.Type, second.Type)
	}
}

// Qualifier bits commute and accumulate without creating new
// descriptors for the underlying type.
func TestQualifiers(t *testing.T) {
	c := newTestCache(nil)
	base := intDie(unitLE)

	cv := newDie(unitLE, dwarf.TagConstType).
		typeRef(newDie(unitLE, dwarf.TagVolatileType).typeRef(base))
	vc := newDie(unitLE, dwarf.TagVolatileType).
		typeRef(newDie(unitLE, dwarf.TagConstType).typeRef(base))

	qt1, err := c.Resolve(cv)
	if err != nil {
		t.Fatalf("Resolve(const volatile) failed: %v", err)
	}
	qt2, err := c.Resolve(vc)
	if err != nil {
		t.Fatalf("Resolve(volatile const) failed: %v", err)
	}

	want := dwtype.QualifierConst | dwtype.QualifierVolatile
	if qt1.Qualifiers != want || qt2.Qualifiers != want {
		t.Errorf("qualifiers = %v and %v, want %v", qt1.Qualifiers, qt2.Qualifiers, want)
	}
	if qt1.Type != qt2.Type {
		t.Errorf("qualifier chains resolved to distinct descriptors")
	}

	plain, err := c.Resolve(base)
	if err != nil {
		t.Fatalf("Resolve(int) failed: %v", err)
	}
	if plain.Type != qt1.Type {
		t.Errorf("qualified type aliases a different int descriptor")
	}
	if plain.Qualifiers != 0 {
		t.Errorf("unqualified int has qualifiers %v", plain.Qualifiers)
	}

	atomic := newDie(unitLE, dwarf.TagAtomicType).typeRef(base)
	restrict := newDie(unitLE, dwarf.TagRestrictType).typeRef(atomic)
	qt3, err := c.Resolve(restrict)
	if err != nil {
		t.Fatalf("Resolve(restrict atomic) failed: %v", err)
	}
	if qt3.Qualifiers != dwtype.QualifierRestrict|dwtype.QualifierAtomic {
		t.Errorf("qualifiers = %v, want restrict|atomic", qt3.Qualifiers)
	}

	void := newDie(unitLE, dwarf.TagConstType)
	qt4, err := c.Resolve(void)
	if err != nil {
		t.Fatalf("Resolve(const void) failed: %v", err)
	}
	if qt4.Type.Kind() != dwtype.KindVoid || qt4.Qualifiers != dwtype.QualifierConst {
		t.Errorf("const with no DW_AT_type = %v, want const void", qt4)
	}
}

// struct node { struct node *next; }; typedef struct node node_t;
// The member's thunk breaks the cycle: evaluating it yields a pointer
// whose pointee is the very same struct descriptor.
func TestTypedefPointerCycle(t *testing.T) {
	c := newTestCache(nil)

	structDie := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "node").
		attr(dwarf.AttrByteSize, int64(8))
	ptrDie := newDie(unitLE, dwarf.TagPointerType).
		attr(dwarf.AttrByteSize, int64(8)).
		typeRef(structDie)
	member := newDie(unitLE, dwarf.TagMember).
		attr(dwarf.AttrName, "next").
		attr(dwarf.AttrDataMemberLoc, int64(0)).
		typeRef(ptrDie)
	structDie.kids(member)
	typedefDie := newDie(unitLE, dwarf.TagTypedef).
		attr(dwarf.AttrName, "node_t").
		typeRef(structDie)

	qt, err := c.Resolve(typedefDie)
	if err != nil {
		t.Fatalf("Resolve(node_t) failed: %v", err)
	}
	if qt.Type.Kind() != dwtype.KindTypedef || qt.Type.Name() != "node_t" {
		t.Fatalf("got %s %q, want typedef node_t", qt.Type.Kind(), qt.Type.Name())
	}
	structType := qt.Type.AliasedType().Type
	if structType.Kind() != dwtype.KindStruct || structType.Name() != "node" {
		t.Fatalf("aliased type is %s %q, want struct node", structType.Kind(), structType.Name())
	}

	members := structType.Members()
	if len(members) != 1 || members[0].Name != "next" {
		t.Fatalf("members = %+v, want one member next", members)
	}
	next, err := members[0].Type.Evaluate()
	if err != nil {
		t.Fatalf("evaluating member type failed: %v", err)
	}
	if next.Type.Kind() != dwtype.KindPointer {
		t.Fatalf("member kind = %s, want pointer", next.Type.Kind())
	}
	if pointee := next.Type.ReferencedType().Type; pointee != structType {
		t.Errorf("pointee %p is not the enclosing struct %p", pointee, structType)
	}
}

// struct s { int n; int data[]; } keeps its flexible array member;
// struct s2 { int data[]; int n; } is a GCC zero-length array in
// disguise, because a flexible array member can only come last.
func TestFlexibleArrayMember(t *testing.T) {
	c := newTestCache(nil)
	elem := intDie(unitLE)

	arrayDie := newDie(unitLE, dwarf.TagArrayType).
		typeRef(elem).
		kids(newDie(unitLE, dwarf.TagSubrangeType))

	mkMember := func(name string, typ *testDie, loc int64) *testDie {
		return newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, name).
			attr(dwarf.AttrDataMemberLoc, loc).
			typeRef(typ)
	}

	s := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "s").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(mkMember("n", elem, 0), mkMember("data", arrayDie, 4))
	qt, err := c.Resolve(s)
	if err != nil {
		t.Fatalf("Resolve(struct s) failed: %v", err)
	}
	last, err := qt.Type.Members()[1].Type.Evaluate()
	if err != nil {
		t.Fatalf("evaluating last member failed: %v", err)
	}
	if last.Type.Kind() != dwtype.KindArray || last.Type.IsComplete() {
		t.Errorf("last member = %s complete=%v, want incomplete array", last.Type.Kind(), last.Type.IsComplete())
	}

	s2 := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "s2").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(mkMember("data", arrayDie, 0), mkMember("n", elem, 0))
	qt2, err := c.Resolve(s2)
	if err != nil {
		t.Fatalf("Resolve(struct s2) failed: %v", err)
	}
	first, err := qt2.Type.Members()[0].Type.Evaluate()
	if err != nil {
		t.Fatalf("evaluating first member failed: %v", err)
	}
	if first.Type.Kind() != dwtype.KindArray || !first.Type.IsComplete() || first.Type.Length() != 0 {
		t.Errorf("non-last array member = %s complete=%v len=%d, want zero-length array",
			first.Type.Kind(), first.Type.IsComplete(), first.Type.Length())
	}

	// A union member can never be a flexible array.
	u := newDie(unitLE, dwarf.TagUnionType).
		attr(dwarf.AttrName, "u").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(mkMember("a", elem, 0), mkMember("data", arrayDie, 0))
	qtu, err := c.Resolve(u)
	if err != nil {
		t.Fatalf("Resolve(union u) failed: %v", err)
	}
	um, err := qtu.Type.Members()[1].Type.Evaluate()
	if err != nil {
		t.Fatalf("evaluating union member failed: %v", err)
	}
	if !um.Type.IsComplete() || um.Type.Length() != 0 {
		t.Errorf("union array member complete=%v len=%d, want zero-length array", um.Type.IsComplete(), um.Type.Length())
	}
}

// The same DIE legally materializes twice: as an incomplete array
// when the context allows one, and with its outermost length forced
// to zero when it does not. Both variants are memoized separately.
func TestIncompleteArrayTwoMaps(t *testing.T) {
	c := newTestCache(nil)
	arrayDie := newDie(unitLE, dwarf.TagArrayType).
		typeRef(intDie(unitLE)).
		kids(newDie(unitLE, dwarf.TagSubrangeType))

	var isIncomplete bool
	qt, err := c.resolve(arrayDie, true, &isIncomplete)
	if err != nil {
		t.Fatalf("resolve(true) failed: %v", err)
	}
	if qt.Type.IsComplete() || !isIncomplete {
		t.Fatalf("resolve(true): complete=%v reported=%v, want incomplete array", qt.Type.IsComplete(), isIncomplete)
	}

	isIncomplete = false
	qt2, err := c.resolve(arrayDie, false, &isIncomplete)
	if err != nil {
		t.Fatalf("resolve(false) failed: %v", err)
	}
	if !qt2.Type.IsComplete() || qt2.Type.Length() != 0 {
		t.Errorf("resolve(false): complete=%v len=%d, want zero-length array", qt2.Type.IsComplete(), qt2.Type.Length())
	}
	if !isIncomplete {
		t.Errorf("resolve(false) did not report the DIE as an incomplete array")
	}

	// Both variants must now be memoized.
	qt3, err := c.resolve(arrayDie, true, nil)
	if err != nil || qt3.Type != qt.Type {
		t.Errorf("resolve(true) again = %p, %v, want memoized %p", qt3.Type, err, qt.Type)
	}
	qt4, err := c.resolve(arrayDie, false, nil)
	if err != nil || qt4.Type != qt2.Type {
		t.Errorf("resolve(false) again = %p, %v, want memoized %p", qt4.Type, err, qt2.Type)
	}
}

// A typedef of an incomplete array behaves like an incomplete array
// to its callers.
func TestTypedefOfIncompleteArray(t *testing.T) {
	c := newTestCache(nil)
	arrayDie := newDie(unitLE, dwarf.TagArrayType).
		typeRef(intDie(unitLE)).
		kids(newDie(unitLE, dwarf.TagSubrangeType))
	typedefDie := newDie(unitLE, dwarf.TagTypedef).
		attr(dwarf.AttrName, "buf_t").
		typeRef(arrayDie)

	var isIncomplete bool
	if _, err := c.resolve(typedefDie, true, &isIncomplete); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !isIncomplete {
		t.Errorf("typedef of incomplete array not reported as incomplete array")
	}

	qt, err := c.resolve(typedefDie, false, nil)
	if err != nil {
		t.Fatalf("resolve(false) failed: %v", err)
	}
	aliased := qt.Type.AliasedType().Type
	if !aliased.IsComplete() || aliased.Length() != 0 {
		t.Errorf("restricted typedef aliases complete=%v len=%d, want zero-length array",
			aliased.IsComplete(), aliased.Length())
	}
}

func TestSubrangeLength(t *testing.T) {
	mk := func(attr dwarf.Attr, v interface{}) *testDie {
		return newDie(unitLE, dwarf.TagSubrangeType).attr(attr, v)
	}
	tests := []struct {
		name     string
		die      *testDie
		length   uint64
		complete bool
		err      error
	}{
		{"absent", newDie(unitLE, dwarf.TagSubrangeType), 0, false, nil},
		{"count", mk(dwarf.AttrCount, int64(5)), 5, true, nil},
		{"upper bound", mk(dwarf.AttrUpperBound, int64(9)), 10, true, nil},
		{"sdata -1", mk(dwarf.AttrUpperBound, int64(-1)), 0, true, nil},
		{"max minus one", mk(dwarf.AttrUpperBound, uint64(1<<64-2)), 1<<64 - 1, true, nil},
		{"overflow", mk(dwarf.AttrUpperBound, uint64(1<<64-1)), 0, false, ErrOverflow},
		{"bad form", mk(dwarf.AttrUpperBound, "nope"), 0, false, ErrMalformedDWARF},
	}
	for _, test := range tests {
		dim, err := subrangeLength(test.die)
		if test.err != nil {
			if !errors.Is(err, test.err) {
				t.Errorf("%s: got %v, want %v", test.name, err, test.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", test.name, err)
			continue
		}
		if dim.length != test.length || dim.isComplete != test.complete {
			t.Errorf("%s: got {%d %v}, want {%d %v}",
				test.name, dim.length, dim.isComplete, test.length, test.complete)
		}
	}
}

func TestMultiDimensionalArray(t *testing.T) {
	c := newTestCache(nil)
	// int a[2][3]: dimensions outermost to innermost.
	arrayDie := newDie(unitLE, dwarf.TagArrayType).
		typeRef(intDie(unitLE)).
		kids(
			newDie(unitLE, dwarf.TagSubrangeType).attr(dwarf.AttrUpperBound, int64(1)),
			newDie(unitLE, dwarf.TagSubrangeType).attr(dwarf.AttrCount, int64(3)),
		)
	qt, err := c.Resolve(arrayDie)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	outer := qt.Type
	if outer.Kind() != dwtype.KindArray || outer.Length() != 2 {
		t.Fatalf("outer = %s len %d, want array len 2", outer.Kind(), outer.Length())
	}
	inner := outer.ElementType().Type
	if inner.Kind() != dwtype.KindArray || inner.Length() != 3 {
		t.Fatalf("inner = %s len %d, want array len 3", inner.Kind(), inner.Length())
	}
	if inner.ElementType().Type.Kind() != dwtype.KindInt {
		t.Errorf("element kind = %s, want int", inner.ElementType().Type.Kind())
	}

	// An inner dimension without a count is forced to zero even when
	// the caller allows incomplete arrays.
	ragged := newDie(unitLE, dwarf.TagArrayType).
		typeRef(intDie(unitLE)).
		kids(
			newDie(unitLE, dwarf.TagSubrangeType),
			newDie(unitLE, dwarf.TagSubrangeType),
		)
	qt, err = c.Resolve(ragged)
	if err != nil {
		t.Fatalf("Resolve(ragged) failed: %v", err)
	}
	if qt.Type.IsComplete() {
		t.Errorf("outermost dimension should be incomplete")
	}
	in := qt.Type.ElementType().Type
	if !in.IsComplete() || in.Length() != 0 {
		t.Errorf("inner dimension complete=%v len=%d, want forced zero", in.IsComplete(), in.Length())
	}
}

// An array DIE with no subrange children gets one synthetic
// incomplete dimension.
func TestArrayWithoutSubranges(t *testing.T) {
	c := newTestCache(nil)
	arrayDie := newDie(unitLE, dwarf.TagArrayType).typeRef(intDie(unitLE))
	qt, err := c.Resolve(arrayDie)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if qt.Type.Kind() != dwtype.KindArray || qt.Type.IsComplete() {
		t.Errorf("got %s complete=%v, want incomplete array", qt.Type.Kind(), qt.Type.IsComplete())
	}
}

func TestMemberOffsets(t *testing.T) {
	// DW_AT_data_bit_offset is used as is.
	c := newTestCache(nil)
	direct := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "d").
		attr(dwarf.AttrByteSize, int64(8)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, "f").
			attr(dwarf.AttrDataBitOffset, int64(35)).
			attr(dwarf.AttrBitSize, int64(3)).
			typeRef(intDie(unitLE)))
	qt, err := c.Resolve(direct)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.BitOffset != 35 || m.BitFieldSize != 3 {
		t.Errorf("data_bit_offset member = {%d %d}, want {35 3}", m.BitOffset, m.BitFieldSize)
	}

	// Legacy DW_AT_bit_offset on a little-endian unit: a bit field at
	// bit_offset 29 of size 3 in a 4-byte member starts at bit 0.
	legacyLE := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "le").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, "f").
			attr(dwarf.AttrBitOffset, int64(29)).
			attr(dwarf.AttrBitSize, int64(3)).
			attr(dwarf.AttrByteSize, int64(4)).
			typeRef(intDie(unitLE)))
	qt, err = c.Resolve(legacyLE)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.BitOffset != 0 {
		t.Errorf("little-endian legacy bit field offset = %d, want 0", m.BitOffset)
	}

	// Same field on a big-endian unit keeps the raw bit offset.
	legacyBE := newDie(unitBE, dwarf.TagStructType).
		attr(dwarf.AttrName, "be").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitBE, dwarf.TagMember).
			attr(dwarf.AttrName, "f").
			attr(dwarf.AttrBitOffset, int64(29)).
			attr(dwarf.AttrBitSize, int64(3)).
			typeRef(intDie(unitBE)))
	qt, err = c.Resolve(legacyBE)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.BitOffset != 29 {
		t.Errorf("big-endian legacy bit field offset = %d, want 29", m.BitOffset)
	}

	// Without DW_AT_byte_size on the member the size comes from the
	// member's type, which forces the thunk.
	fromType := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "ft").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, "f").
			attr(dwarf.AttrBitOffset, int64(29)).
			attr(dwarf.AttrBitSize, int64(3)).
			typeRef(intDie(unitLE)))
	qt, err = c.Resolve(fromType)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.BitOffset != 0 {
		t.Errorf("bit field offset via type size = %d, want 0", m.BitOffset)
	}

	// Plain members combine DW_AT_data_member_location with nothing.
	plain := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "p").
		attr(dwarf.AttrByteSize, int64(16)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, "f").
			attr(dwarf.AttrDataMemberLoc, int64(8)).
			typeRef(intDie(unitLE)))
	qt, err = c.Resolve(plain)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.BitOffset != 64 {
		t.Errorf("byte offset 8 decoded to bit offset %d, want 64", m.BitOffset)
	}
}

// An anonymous member is allowed; a member with an invalid name is
// not.
func TestAnonymousMember(t *testing.T) {
	c := newTestCache(nil)
	s := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "s").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrDataMemberLoc, int64(0)).
			typeRef(intDie(unitLE)))
	qt, err := c.Resolve(s)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if m := qt.Type.Members()[0]; m.Name != "" {
		t.Errorf("anonymous member has name %q", m.Name)
	}

	bad := newDie(unitLE, dwarf.TagStructType).
		attr(dwarf.AttrName, "bad").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitLE, dwarf.TagMember).
			attr(dwarf.AttrName, int64(1)).
			attr(dwarf.AttrDataMemberLoc, int64(0)).
			typeRef(intDie(unitLE)))
	if _, err := c.Resolve(bad); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("member with non-string name: got %v, want ErrMalformedDWARF", err)
	}
}

// An enum without DW_AT_type gets a fabricated compatible type whose
// signedness comes from the enumerator values.
func TestEnumCompatibleFallback(t *testing.T) {
	c := newTestCache(nil)
	e := newDie(unitLE, dwarf.TagEnumerationType).
		attr(dwarf.AttrName, "e").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(
			newDie(unitLE, dwarf.TagEnumerator).
				attr(dwarf.AttrName, "A").
				attr(dwarf.AttrConstValue, int64(-1)),
			newDie(unitLE, dwarf.TagEnumerator).
				attr(dwarf.AttrName, "B").
				attr(dwarf.AttrConstValue, uint64(0)),
		)
	qt, err := c.Resolve(e)
	if err != nil {
		t.Fatalf("Resolve(enum e) failed: %v", err)
	}
	compat := qt.Type.CompatibleType()
	if compat == nil || compat.Kind() != dwtype.KindInt || !compat.IsSigned() {
		t.Fatalf("compatible type = %v, want signed int", compat)
	}
	if size, _ := compat.Size(); size != 4 {
		t.Errorf("compatible size = %d, want 4", size)
	}
	if compat.Name() != "<unknown>" {
		t.Errorf("compatible name = %q, want <unknown>", compat.Name())
	}
	enums := qt.Type.Enumerators()
	if len(enums) != 2 || enums[0].SValue != -1 || enums[1].UValue != 0 {
		t.Errorf("enumerators = %+v", enums)
	}

	// All-unsigned enumerators leave the fallback unsigned.
	e2 := newDie(unitLE, dwarf.TagEnumerationType).
		attr(dwarf.AttrName, "e2").
		attr(dwarf.AttrByteSize, int64(4)).
		kids(newDie(unitLE, dwarf.TagEnumerator).
			attr(dwarf.AttrName, "C").
			attr(dwarf.AttrConstValue, uint64(7)))
	qt2, err := c.Resolve(e2)
	if err != nil {
		t.Fatalf("Resolve(enum e2) failed: %v", err)
	}
	if qt2.Type.IsSigned() {
		t.Errorf("all-unsigned enum decoded as signed")
	}
}

func TestEnumWithExplicitType(t *testing.T) {
	c := newTestCache(nil)
	e := newDie(unitLE, dwarf.TagEnumerationType).
		attr(dwarf.AttrName, "e").
		typeRef(intDie(unitLE)).
		kids(newDie(unitLE, dwarf.TagEnumerator).
			attr(dwarf.AttrName, "A").
			attr(dwarf.AttrConstValue, int64(1)))
	qt, err := c.Resolve(e)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if compat := qt.Type.CompatibleType(); compat.Name() != "int" {
		t.Errorf("compatible type = %q, want int", compat.Name())
	}

	f := newDie(unitLE, dwarf.TagBaseType).
		attr(dwarf.AttrName, "float").
		attr(dwarf.AttrEncoding, int64(encFloat)).
		attr(dwarf.AttrByteSize, int64(4))
	bad := newDie(unitLE, dwarf.TagEnumerationType).
		attr(dwarf.AttrName, "bad").
		typeRef(f).
		kids(newDie(unitLE, dwarf.TagEnumerator).
			attr(dwarf.AttrName, "X").
			attr(dwarf.AttrConstValue, int64(0)))
	if _, err := c.Resolve(bad); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("enum of float: got %v, want ErrMalformedDWARF", err)
	}
}

// A chain of 999 typedefs resolves; a chain of 1001 exceeds the
// depth bound.
func TestRecursionLimit(t *testing.T) {
	chain := func(n int) *testDie {
		d := intDie(unitLE)
		for i := 0; i < n; i++ {
			d = newDie(unitLE, dwarf.TagTypedef).
				attr(dwarf.AttrName, fmt.Sprintf("t%d", i)).
				typeRef(d)
		}
		return d
	}

	c := newTestCache(nil)
	if _, err := c.Resolve(chain(999)); err != nil {
		t.Errorf("chain of 999 typedefs failed: %v", err)
	}

	c = newTestCache(nil)
	if _, err := c.Resolve(chain(1001)); !errors.Is(err, ErrRecursionLimit) {
		t.Errorf("chain of 1001 typedefs: got %v, want ErrRecursionLimit", err)
	}

	// A failed resolution must not poison the cache.
	if _, err := c.Resolve(chain(10)); err != nil {
		t.Errorf("cache unusable after recursion failure: %v", err)
	}
}

func TestFunctionTypes(t *testing.T) {
	c := newTestCache(nil)
	param := func() *testDie {
		return newDie(unitLE, dwarf.TagFormalParameter).
			attr(dwarf.AttrName, "x").
			typeRef(intDie(unitLE))
	}

	fn := newDie(unitLE, dwarf.TagSubroutineType).
		typeRef(intDie(unitLE)).
		kids(param(), newDie(unitLE, dwarf.TagUnspecifiedParameters))
	qt, err := c.Resolve(fn)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if qt.Type.Kind() != dwtype.KindFunction || !qt.Type.IsVariadic() {
		t.Fatalf("got %s variadic=%v, want variadic function", qt.Type.Kind(), qt.Type.IsVariadic())
	}
	if len(qt.Type.Parameters()) != 1 {
		t.Fatalf("parameters = %d, want 1", len(qt.Type.Parameters()))
	}
	pt, err := qt.Type.Parameters()[0].Type.Evaluate()
	if err != nil || pt.Type.Kind() != dwtype.KindInt {
		t.Errorf("parameter type = %v, %v, want int", pt, err)
	}
	if qt.Type.ReturnType().Type.Kind() != dwtype.KindInt {
		t.Errorf("return type = %s, want int", qt.Type.ReturnType().Type.Kind())
	}

	// No return type means void.
	void := newDie(unitLE, dwarf.TagSubroutineType)
	qt, err = c.Resolve(void)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if qt.Type.ReturnType().Type.Kind() != dwtype.KindVoid {
		t.Errorf("missing return type = %s, want void", qt.Type.ReturnType().Type.Kind())
	}

	afterVariadic := newDie(unitLE, dwarf.TagSubroutineType).
		kids(newDie(unitLE, dwarf.TagUnspecifiedParameters), param())
	if _, err := c.Resolve(afterVariadic); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("parameter after unspecified: got %v, want ErrMalformedDWARF", err)
	}

	doubleVariadic := newDie(unitLE, dwarf.TagSubroutineType).
		kids(newDie(unitLE, dwarf.TagUnspecifiedParameters), newDie(unitLE, dwarf.TagUnspecifiedParameters))
	if _, err := c.Resolve(doubleVariadic); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("two unspecified: got %v, want ErrMalformedDWARF", err)
	}
}

func TestPointerSize(t *testing.T) {
	c := newTestCache(nil)
	explicit := newDie(unitLE, dwarf.TagPointerType).
		attr(dwarf.AttrByteSize, int64(4)).
		typeRef(intDie(unitLE))
	qt, err := c.Resolve(explicit)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if size, _ := qt.Type.Size(); size != 4 {
		t.Errorf("explicit pointer size = %d, want 4", size)
	}

	implicit := newDie(unitLE, dwarf.TagPointerType).typeRef(intDie(unitLE))
	qt, err = c.Resolve(implicit)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if size, _ := qt.Type.Size(); size != 8 {
		t.Errorf("default pointer size = %d, want word size 8", size)
	}

	// A pointer with no DW_AT_type points at void.
	voidPtr := newDie(unitLE, dwarf.TagPointerType).attr(dwarf.AttrByteSize, int64(8))
	qt, err = c.Resolve(voidPtr)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if qt.Type.ReferencedType().Type.Kind() != dwtype.KindVoid {
		t.Errorf("pointee = %s, want void", qt.Type.ReferencedType().Type.Kind())
	}
}

func TestDieEndianity(t *testing.T) {
	little := newDie(unitBE, dwarf.TagVariable).attr(dwarf.AttrEndianity, int64(endLittle))
	if le, err := dieLittleEndian(little, true); err != nil || !le {
		t.Errorf("explicit little: got %v, %v", le, err)
	}
	big := newDie(unitLE, dwarf.TagVariable).attr(dwarf.AttrEndianity, int64(endBig))
	if le, err := dieLittleEndian(big, true); err != nil || le {
		t.Errorf("explicit big: got %v, %v", le, err)
	}
	dflt := newDie(unitBE, dwarf.TagVariable).attr(dwarf.AttrEndianity, int64(endDefault))
	if le, err := dieLittleEndian(dflt, true); err != nil || le {
		t.Errorf("default on big-endian unit: got %v, %v", le, err)
	}
	bad := newDie(unitLE, dwarf.TagVariable).attr(dwarf.AttrEndianity, int64(9))
	if _, err := dieLittleEndian(bad, true); !errors.Is(err, ErrMalformedDWARF) {
		t.Errorf("bad endianity: got %v, want ErrMalformedDWARF", err)
	}
	// Without the attribute check the attribute is ignored entirely.
	if le, err := dieLittleEndian(little, false); err != nil || le {
		t.Errorf("checkAttr=false: got %v, %v, want unit order", le, err)
	}
}

func TestPathEndsWith(t *testing.T) {
	tests := []struct {
		path, suffix string
		want         bool
	}{
		{"dir/foo.c", "foo.c", true},
		{"dir/foo.c", "dir/foo.c", true},
		{"dir/foo.c", "o.c", false},
		{"foo.c", "foo.c", true},
		{"foo.c", "bar/foo.c", false},
	}
	for _, test := range tests {
		if got := pathEndsWith(test.path, test.suffix); got != test.want {
			t.Errorf("pathEndsWith(%q, %q) = %v, want %v", test.path, test.suffix, got, test.want)
		}
	}
}

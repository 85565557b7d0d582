// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwtype

// A Thunk is a suspended type resolution. Evaluating it re-enters the
// materializer; it must not be shared between holders.
type Thunk interface {
	Evaluate() (QualifiedType, error)
}

// A LazyType is either an already-resolved qualified type or a thunk
// that resolves it on first use. The holder (a compound's member, a
// function's parameter) owns the lazy type exclusively; evaluation is
// not safe for concurrent use.
type LazyType struct {
	resolved bool
	qt       QualifiedType
	thunk    Thunk
}

// LazyFromThunk returns a lazy type that evaluates thunk on first use.
func LazyFromThunk(thunk Thunk) *LazyType {
	return &LazyType{thunk: thunk}
}

// LazyFromType returns an already-resolved lazy type.
func LazyFromType(qt QualifiedType) *LazyType {
	return &LazyType{resolved: true, qt: qt}
}

// Evaluate returns the resolved type, running the thunk if this is the
// first use. A successful result is cached; a failed evaluation leaves
// the thunk in place.
func (l *LazyType) Evaluate() (QualifiedType, error) {
	if !l.resolved {
		qt, err := l.thunk.Evaluate()
		if err != nil {
			return QualifiedType{}, err
		}
		l.qt = qt
		l.resolved = true
		l.thunk = nil
	}
	return l.qt, nil
}

// Copyright 2019 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dwinfo

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of the materializer. Errors
// returned from this package wrap one of these; match with errors.Is.
var (
	// ErrMalformedDWARF means a required attribute was missing or of
	// an unexpected form, an encoding was unrecognized, or the DIE
	// structure was invalid.
	ErrMalformedDWARF = errors.New("malformed DWARF")

	// ErrOverflow means an array dimension did not fit in 64 bits.
	ErrOverflow = errors.New("overflow")

	// ErrRecursionLimit means type resolution exceeded the depth
	// bound.
	ErrRecursionLimit = errors.New("recursion limit")

	// ErrLookup means a requested object has no address and no
	// constant value.
	ErrLookup = errors.New("lookup error")

	// ErrNotFound is returned by the finders when no entity matches.
	ErrNotFound = errors.New("not found")
)

// errStop is the internal iterator sentinel of the incomplete-type
// resolver. It never escapes this package.
var errStop = errors.New("stop")

// errBadForm is returned by the attribute facade when a value's form
// does not fit the requested decode. Call sites replace it with an
// ErrMalformedDWARF error naming the attribute.
var errBadForm = errors.New("bad form")

func malformedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedDWARF, fmt.Sprintf(format, args...))
}

func overflowf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrOverflow, fmt.Sprintf(format, args...))
}

func lookupf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrLookup, fmt.Sprintf(format, args...))
}

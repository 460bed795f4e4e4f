// Package zc (zero-copy) reads and writes single fields of an encoded BARE
// value in place. A View borrows the caller's bytes; it never copies the
// region and only decodes the subtree a path addresses.
//
// Zero-copy string results (WithUnsafeStrings) alias the region; the caller
// must keep the backing bytes alive and unmodified while they are in use.
package zc

import (
	"errors"

	"github.com/rs/zerolog"
)

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrTypeMismatch  = errors.New("path descends into a non-aggregate type")
	ErrSizeMismatch  = errors.New("encoded size differs from the existing field")
	ErrOutOfBounds   = errors.New("out of bounds")
)

// Option configures a View.
type Option func(*View)

// WithOffsetCache memoizes resolved paths until the next SetField.
func WithOffsetCache() Option {
	return func(v *View) { v.cache = make(map[string]resolved) }
}

// WithUnsafeStrings makes GetField return strings that alias the region.
func WithUnsafeStrings() Option {
	return func(v *View) { v.unsafeStrings = true }
}

// WithLogger sets the logger for cache and rejected-write events.
func WithLogger(l zerolog.Logger) Option {
	return func(v *View) { v.log = l }
}

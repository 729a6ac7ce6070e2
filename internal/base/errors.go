// Package base holds small sentinel errors and zero-copy helpers shared
// across veloxd's packages.
package base

import "errors"

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrWrongType      = errors.New("wrong data type")
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadArg         = errors.New("bad argument")
	ErrNotFound       = errors.New("not found")
	ErrTooBig         = errors.New("response size is too big")
	ErrInvalidFrame   = errors.New("invalid request frame")
)

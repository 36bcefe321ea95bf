package store

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrBadRequest     = errors.New("bad request")
	ErrNotFound       = errors.New("not found")
)

// IOError wraps a filesystem failure on a store's backing file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

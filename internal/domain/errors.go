package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error markers. Wrap attaches one so callers can classify with errors.Is.
var (
	ErrTransport      = errors.New("transport error")
	ErrIO             = errors.New("io error")
	ErrMalformedData  = errors.New("malformed data")
	ErrSchemaMismatch = errors.New("log schema mismatch")
)

// Wrap tags err with marker and the operation that produced it.
func Wrap(marker error, op string, err error) error {
	if marker == nil {
		marker = ErrIO
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "unknown operation"
	}
	if err == nil {
		return fmt.Errorf("%w: %s", marker, op)
	}
	return fmt.Errorf("%w: %s: %w", marker, op, err)
}

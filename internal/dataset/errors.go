package dataset

import (
	"errors"
	"fmt"
)

// ErrUnsupported indicates a file format no reader accepts.
var ErrUnsupported = errors.New("unsupported tabular format")

// ParseError reports malformed tabular input.
type ParseError struct {
	Name string
	Line int // 1-based; 0 when not tied to a line
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Name, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

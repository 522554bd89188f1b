// Package task defines the unit-of-work collaborator contract for pipeline
// blocks: datatype tags, endpoint descriptors, and the Task interface, plus
// helpers for building simple tasks without hand-rolling storage management.
package task

import (
	"fmt"

	"github.com/c360/pipekit/errors"
)

// Datatype identifies the element type carried by an endpoint. The set is
// closed: blocks and sockets dispatch exhaustively over these six tags and
// treat anything else as an internal invariant violation.
type Datatype uint8

// Supported element datatypes
const (
	Int8 Datatype = iota
	Int16
	Int32
	Int64
	Float32
	Float64
)

// String returns the canonical name of the datatype
func (d Datatype) String() string {
	switch d {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("datatype(%d)", uint8(d))
	}
}

// Size returns the element size in bytes
func (d Datatype) Size() int {
	switch d {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Valid reports whether the tag belongs to the supported set
func (d Datatype) Valid() bool {
	return d <= Float64
}

// ParseDatatype resolves a canonical datatype name, as used by topology
// configuration files.
func ParseDatatype(s string) (Datatype, error) {
	switch s {
	case "int8":
		return Int8, nil
	case "int16":
		return Int16, nil
	case "int32":
		return Int32, nil
	case "int64":
		return Int64, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return 0, errors.WrapNotFound(
			fmt.Errorf("unknown datatype %q: %w", s, errors.ErrInvalidArgument),
			"task", "ParseDatatype", "datatype lookup")
	}
}

// Sample constrains the Go types a socket can carry to the six supported
// numeric element kinds.
type Sample interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// DatatypeOf maps a concrete sample type to its tag. The second return is
// false for named types outside the six base kinds.
func DatatypeOf[T Sample]() (Datatype, bool) {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8, true
	case int16:
		return Int16, true
	case int32:
		return Int32, true
	case int64:
		return Int64, true
	case float32:
		return Float32, true
	case float64:
		return Float64, true
	default:
		return 0, false
	}
}

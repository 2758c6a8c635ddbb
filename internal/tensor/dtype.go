// Package tensor provides the numeric kinds, shapes and placement enums shared
// by the distributed layer core.
package tensor

import (
	"fmt"
	"math"
)

// Float is the closed set of numeric kinds a layer can be instantiated with.
// It uses Go generics so each kind gets its own compiled specialization.
type Float interface {
	~float32 | ~float64
}

// DataType represents runtime type information for a numeric kind.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32:
		return 4
	case Float64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ParseDataType accepts the names used in layer descriptions.
// "float" and "double" are accepted as aliases.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "float32", "float", "":
		return Float32, nil
	case "float64", "double":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unsupported data type %q", s)
	}
}

// DataTypeOf returns the DataType of the kind T.
func DataTypeOf[T Float]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case float32:
		return Float32
	case float64:
		return Float64
	default:
		panic("unsupported type")
	}
}

// Epsilon returns the machine epsilon of T: the gap between 1 and the next
// representable value.
func Epsilon[T Float]() T {
	switch DataTypeOf[T]() {
	case Float32:
		return T(math.Nextafter32(1, 2) - 1)
	default:
		return T(math.Nextafter(1, 2) - 1)
	}
}

// Package common contains plain value types and helpers shared by the engine packages:
// the Transformation value type and byte views for GPU buffer uploads.
package common

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// Mat4Size is the size in bytes of one column-major mgl32.Mat4 as laid out in a GPU buffer.
const Mat4Size = uint64(unsafe.Sizeof(mgl32.Mat4{}))

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// Mat4ApproxEqual reports whether every element of a and b differs by at most epsilon.
//
// Parameters:
//   - a, b: the matrices to compare
//   - epsilon: the absolute per-element tolerance
//
// Returns:
//   - bool: true if the matrices are equal within epsilon
func Mat4ApproxEqual(a, b mgl32.Mat4, epsilon float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d > epsilon || d < -epsilon {
			return false
		}
	}
	return true
}

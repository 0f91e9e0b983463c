package engine

import "fmt"

// InvalidDimensionsError reports a bounding box with a non-positive component.
type InvalidDimensionsError struct {
	Variant string
	Width   int
	Height  int
}

func (e *InvalidDimensionsError) Error() string {
	return fmt.Sprintf("variant %q has invalid bounding box %dx%d", e.Variant, e.Width, e.Height)
}

func NewInvalidDimensions(variant string, width, height int) error {
	return &InvalidDimensionsError{Variant: variant, Width: width, Height: height}
}

// InvalidTargetError reports a byte budget outside the accepted range.
type InvalidTargetError struct {
	Variant     string
	TargetBytes int
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("variant %q target size %d bytes is outside the accepted range [%d, %d]",
		e.Variant, e.TargetBytes, MinTargetBytes, MaxTargetBytes)
}

func NewInvalidTarget(variant string, targetBytes int) error {
	return &InvalidTargetError{Variant: variant, TargetBytes: targetBytes}
}

// EncodeFailureError wraps a codec failure. It is fatal for the variant being
// processed but must not abort sibling variants.
type EncodeFailureError struct {
	Variant string
	Quality int
	Err     error
}

func (e *EncodeFailureError) Error() string {
	return fmt.Sprintf("encoding variant %q at quality %d failed: %v", e.Variant, e.Quality, e.Err)
}

func (e *EncodeFailureError) Unwrap() error {
	return e.Err
}

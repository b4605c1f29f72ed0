package imageproc

import "fmt"

// DecodeError means the buffer could not be parsed by any registered decoder.
// Terminal for the media item; there is nothing to retry.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode image: %v", e.Err) }
func (e *DecodeError) Unwrap() error { return e.Err }

// ConversionError means the HEIC/HEIF to JPEG conversion itself failed,
// usually a corrupt container. Terminal.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string { return fmt.Sprintf("convert to jpeg: %v", e.Err) }
func (e *ConversionError) Unwrap() error { return e.Err }

// ResizeError carries the preset name so the failing stage shows up in logs.
type ResizeError struct {
	Preset string
	Err    error
}

func (e *ResizeError) Error() string { return fmt.Sprintf("resize %s: %v", e.Preset, e.Err) }
func (e *ResizeError) Unwrap() error { return e.Err }

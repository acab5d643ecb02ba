package imageio

import (
	"errors"
	"fmt"
)

// ErrDecode matches every DecodeError via errors.Is.
var ErrDecode = errors.New("image decode failed")

// ErrTooLarge is returned when an input exceeds MaxUploadBytes.
var ErrTooLarge = errors.New("image exceeds maximum accepted size")

// ErrTooManyPixels is returned when declared image dimensions exceed MaxPixels.
var ErrTooManyPixels = errors.New("image exceeds maximum pixel count")

// DecodeError reports bytes that could not be turned into a PixelBuffer.
type DecodeError struct {
	MimeType string
	Err      error
}

func (e *DecodeError) Error() string {
	if e.MimeType == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image (%s): %v", e.MimeType, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDecode) match any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

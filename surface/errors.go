package surface

import "errors"

var (
	// ErrUnsupportedFormat is returned for a pixel format that is not
	// recognized or cannot be handled in the requested direction.
	ErrUnsupportedFormat = errors.New("surface: unsupported pixel format")
	// ErrMissingPalette is returned when an indexed surface has no
	// resolvable palette or refers to an index outside of it.
	ErrMissingPalette = errors.New("surface: missing palette")
	// ErrQuantizationUnsupported is returned when encoding to an indexed
	// format is requested.
	ErrQuantizationUnsupported = errors.New("surface: palette quantization is not supported")
	// ErrContainerDecode wraps failures from the JPEG, block or generic
	// image decoders.
	ErrContainerDecode = errors.New("surface: container decode failed")
	// ErrContainerEncode wraps failures from the JPEG or block encoders.
	ErrContainerEncode = errors.New("surface: container encode failed")
	// ErrMalformedInput is returned when the payload is shorter than the
	// declared dimensions require or the dimensions are invalid.
	ErrMalformedInput = errors.New("surface: malformed input")
	// ErrUnsupportedContainer is returned when exporting to an unknown
	// image file type.
	ErrUnsupportedContainer = errors.New("surface: unsupported image container")
)

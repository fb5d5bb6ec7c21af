/*
Package dxt implements a decoder and encoder for the BC1, BC2 and BC3 block
compression formats, better known by their DirectDraw names DXT1, DXT3 and
DXT5.

Every format splits the image into 4 by 4 pixel blocks, padding the right and
bottom edges out to a whole block. A DXT1 block is 8 bytes; two 16-bit RGB565
endpoint colors followed by a 2-bit index per pixel. DXT3 and DXT5 blocks are
16 bytes; 8 bytes of alpha information followed by a DXT1-style color block.
DXT3 stores a 4-bit alpha value per pixel while DXT5 stores two 8-bit alpha
endpoints and a 3-bit index per pixel.

Raw block data can optionally be wrapped in a DDS container which is a 4 byte
magic number followed by a 124 byte header.
*/
package dxt

import (
	"errors"
	"fmt"
)

// Format selects the block compression variant.
type Format int

// Supported block compression variants.
const (
	DXT1 Format = iota + 1
	DXT3
	DXT5
)

func (f Format) String() string {
	switch f {
	case DXT1:
		return "DXT1"
	case DXT3:
		return "DXT3"
	case DXT5:
		return "DXT5"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) valid() bool {
	return f >= DXT1 && f <= DXT5
}

// BlockSize returns the number of bytes used to store one 4 by 4 block.
func (f Format) BlockSize() int {
	if f == DXT1 {
		return 8
	}
	return 16
}

// Quality trades encoding speed against endpoint selection accuracy.
type Quality int

const (
	// Fast uses the bounding box of each block as the endpoints.
	Fast Quality = iota
	// Balanced insets the bounding box and refines the endpoints from
	// the initial index assignment.
	Balanced
)

const (
	blockWidth  = 4
	blockHeight = blockWidth
	blockPixels = blockWidth * blockHeight
)

var (
	// ErrUnsupportedFormat is returned for a Format outside DXT1, DXT3 and
	// DXT5.
	ErrUnsupportedFormat = errors.New("dxt: unsupported format")
	// ErrShortData is returned when there are fewer bytes than the image
	// dimensions require.
	ErrShortData = errors.New("dxt: not enough block data")
	// ErrBadContainer is returned when a DDS container cannot be parsed.
	ErrBadContainer = errors.New("dxt: invalid container")
)

func blocks(width, height int) (int, int) {
	return (width + blockWidth - 1) / blockWidth, (height + blockHeight - 1) / blockHeight
}

// Size returns the number of bytes of block data needed for an image of the
// given dimensions.
func Size(width, height int, f Format) int {
	bx, by := blocks(width, height)
	return bx * by * f.BlockSize()
}

/*
Package surface implements a decoder and encoder for the texture surfaces
stored in a game asset archive.

A surface is a declared width and height, a pixel format and an opaque
payload. Most formats store width * height pixels row-major with no padding
using a fixed number of bytes per pixel; the 24-bit and 32-bit formats keep
the historical reversed B, G, R byte order apart from the landscape variant.
The two indexed formats store a palette index per pixel and refer to an
externally stored palette. The DXT formats store 4 by 4 compressed blocks and
the JPEG format stores a complete baseline JPEG stream whose own dimensions
take precedence over the declared ones.

Everything decodes to, and encodes from, an 8-bit per channel
non-premultiplied RGBA image.
*/
package surface

import (
	"fmt"
	"strings"

	"github.com/bodgit/datsurface/dxt"
	"github.com/pkg/errors"
)

// PixelFormat identifies the on-disk encoding of a surface. The values match
// the identifiers used by the archive.
type PixelFormat uint32

// Supported pixel formats.
const (
	Raw24           PixelFormat = 0x14
	Raw32WithAlpha  PixelFormat = 0x15
	Packed565       PixelFormat = 0x17
	Packed4444      PixelFormat = 0x1a
	Alpha8          PixelFormat = 0x1c
	Palette8        PixelFormat = 0x29
	Palette16       PixelFormat = 0x65
	RawLandscape24  PixelFormat = 0xf3
	LandscapeAlpha8 PixelFormat = 0xf4
	EmbeddedJPEG    PixelFormat = 0x1f4
	BlockDXT1       PixelFormat = 0x31545844
	BlockDXT3       PixelFormat = 0x33545844
	BlockDXT5       PixelFormat = 0x35545844
)

var formatNames = []struct {
	format PixelFormat
	id     string
	name   string
}{
	{Raw24, "PFID_R8G8B8", "Raw24"},
	{Raw32WithAlpha, "PFID_A8R8G8B8", "Raw32WithAlpha"},
	{Packed565, "PFID_R5G6B5", "Packed565"},
	{Packed4444, "PFID_A4R4G4B4", "Packed4444"},
	{Alpha8, "PFID_A8", "Alpha8"},
	{Palette8, "PFID_P8", "Palette8"},
	{Palette16, "PFID_INDEX16", "Palette16"},
	{RawLandscape24, "PFID_CUSTOM_LSCAPE_R8G8B8", "RawLandscape24"},
	{LandscapeAlpha8, "PFID_CUSTOM_LSCAPE_ALPHA", "LandscapeAlpha8"},
	{EmbeddedJPEG, "PFID_CUSTOM_RAW_JPEG", "EmbeddedJPEG"},
	{BlockDXT1, "PFID_DXT1", "BlockDXT1"},
	{BlockDXT3, "PFID_DXT3", "BlockDXT3"},
	{BlockDXT5, "PFID_DXT5", "BlockDXT5"},
}

// Formats returns every supported pixel format.
func Formats() []PixelFormat {
	f := make([]PixelFormat, len(formatNames))
	for i, n := range formatNames {
		f[i] = n.format
	}
	return f
}

func (f PixelFormat) String() string {
	for _, n := range formatNames {
		if n.format == f {
			return n.id
		}
	}
	return fmt.Sprintf("PixelFormat(%#x)", uint32(f))
}

// ParseFormat returns the pixel format named by s, which can be either the
// archive identifier such as "PFID_DXT5" or the Go name such as "BlockDXT5".
// Matching is case-insensitive.
func ParseFormat(s string) (PixelFormat, error) {
	for _, n := range formatNames {
		if strings.EqualFold(s, n.id) || strings.EqualFold(s, n.name) {
			return n.format, nil
		}
	}
	return 0, errors.Wrapf(ErrUnsupportedFormat, "unknown format %q", s)
}

// BytesPerPixel returns the fixed number of bytes each pixel occupies on disk,
// or zero for the block compressed and JPEG formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case Alpha8, LandscapeAlpha8, Palette8:
		return 1
	case Packed565, Packed4444, Palette16:
		return 2
	case Raw24, RawLandscape24:
		return 3
	case Raw32WithAlpha:
		return 4
	default:
		return 0
	}
}

// Indexed reports whether f needs a palette.
func (f PixelFormat) Indexed() bool {
	return f == Palette8 || f == Palette16
}

func (f PixelFormat) blockFormat() (dxt.Format, bool) {
	switch f {
	case BlockDXT1:
		return dxt.DXT1, true
	case BlockDXT3:
		return dxt.DXT3, true
	case BlockDXT5:
		return dxt.DXT5, true
	default:
		return 0, false
	}
}

// ExpectedSize returns the number of payload bytes a width by height surface
// should have. It returns -1 for the JPEG format, for unknown formats and
// when the size does not fit in an int.
func (f PixelFormat) ExpectedSize(width, height int) int {
	n, ok := pixelCount(width, height)
	if !ok {
		return -1
	}
	if bf, ok := f.blockFormat(); ok {
		return dxt.Size(width, height, bf)
	}
	bpp := f.BytesPerPixel()
	if bpp == 0 || n > maxInt/bpp {
		return -1
	}
	return n * bpp
}

const maxInt = int(^uint(0) >> 1)

// Reserve room for the 4x RGBA expansion so the output buffer size cannot
// overflow either.
func pixelCount(width, height int) (int, bool) {
	if width < 0 || height < 0 {
		return 0, false
	}
	if width != 0 && height > maxInt/4/width {
		return 0, false
	}
	return width * height, true
}

// Surface is a texture record as stored in the archive.
type Surface struct {
	ID     uint32
	Width  int
	Height int
	Format PixelFormat
	// PaletteID is only meaningful when HasPalette is set.
	PaletteID  uint32
	HasPalette bool
	Data       []byte
}

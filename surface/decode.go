package surface

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
)

const opaque = 0xff

// unpacker converts one on-disk pixel in src into R, G, B, A in dst.
type unpacker func(dst, src []byte)

func unpackRaw24(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], opaque
}

func unpackLandscape24(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], opaque
}

func unpackRaw32(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
}

func unpackAlpha8(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], opaque
}

// Packed as RRRRRGGGGGGBBBBB
func unpack565(dst, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	dst[0] = byte(v >> 11 & 0x1f << 3)
	dst[1] = byte(v >> 5 & 0x3f << 2)
	dst[2] = byte(v & 0x1f << 3)
	dst[3] = opaque
}

// Packed as AAAARRRRGGGGBBBB, 15 * 17 = 255
func unpack4444(dst, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	dst[0] = byte(v>>8&0x0f) * 17
	dst[1] = byte(v>>4&0x0f) * 17
	dst[2] = byte(v&0x0f) * 17
	dst[3] = byte(v>>12&0x0f) * 17
}

func directUnpacker(f PixelFormat) (unpacker, bool) {
	switch f {
	case Raw24:
		return unpackRaw24, true
	case RawLandscape24:
		return unpackLandscape24, true
	case Raw32WithAlpha:
		return unpackRaw32, true
	case Alpha8, LandscapeAlpha8:
		return unpackAlpha8, true
	case Packed565:
		return unpack565, true
	case Packed4444:
		return unpack4444, true
	default:
		return nil, false
	}
}

// checkSize rejects a payload that cannot hold every declared pixel rather
// than decoding a truncated image. Trailing bytes are ignored.
func checkSize(s *Surface) (int, error) {
	n, ok := pixelCount(s.Width, s.Height)
	if !ok {
		return 0, errors.Wrapf(ErrMalformedInput, "invalid dimensions %dx%d", s.Width, s.Height)
	}
	need := s.Format.ExpectedSize(s.Width, s.Height)
	if need < 0 {
		return 0, errors.Wrapf(ErrMalformedInput, "invalid dimensions %dx%d", s.Width, s.Height)
	}
	if len(s.Data) < need {
		return 0, errors.Wrapf(ErrMalformedInput, "%v %dx%d needs %d bytes, have %d", s.Format, s.Width, s.Height, need, len(s.Data))
	}
	return n, nil
}

func newRGBA8(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

func decodeDirect(s *Surface, unpack unpacker) (*image.NRGBA, error) {
	n, err := checkSize(s)
	if err != nil {
		return nil, err
	}

	m := newRGBA8(s.Width, s.Height)
	bpp := s.Format.BytesPerPixel()
	for i := 0; i < n; i++ {
		unpack(m.Pix[i*4:i*4+4], s.Data[i*bpp:i*bpp+bpp])
	}
	return m, nil
}

func paletteIndex(f PixelFormat, b []byte) int {
	if f == Palette16 {
		return int(int16(binary.LittleEndian.Uint16(b)))
	}
	return int(b[0])
}

func decodeIndexed(s *Surface, r PaletteResolver) (*image.NRGBA, error) {
	if r == nil || !s.HasPalette {
		return nil, errors.Wrapf(ErrMissingPalette, "surface %#08x has no palette", s.ID)
	}
	p, ok := r.Palette(s.PaletteID)
	if !ok {
		return nil, errors.Wrapf(ErrMissingPalette, "unable to load palette %#08x for surface %#08x", s.PaletteID, s.ID)
	}

	n, err := checkSize(s)
	if err != nil {
		return nil, err
	}

	m := newRGBA8(s.Width, s.Height)
	bpp := s.Format.BytesPerPixel()
	for i := 0; i < n; i++ {
		idx := paletteIndex(s.Format, s.Data[i*bpp:])
		if idx < 0 || idx >= len(p) {
			return nil, errors.Wrapf(ErrMissingPalette, "index %d outside palette %#08x of %d colors", idx, s.PaletteID, len(p))
		}
		c, px := p[idx], m.Pix[i*4:i*4+4]
		px[0], px[1], px[2], px[3] = c.Red, c.Green, c.Blue, c.Alpha
	}
	return m, nil
}

// Decode converts the surface payload to an RGBA image. The palette resolver
// is only consulted for the indexed formats and may be nil otherwise.
//
// For the JPEG format the dimensions of the returned image are those of the
// embedded stream; the declared surface dimensions are ignored.
func Decode(s *Surface, r PaletteResolver) (*image.NRGBA, error) {
	if s == nil {
		return nil, errors.Wrap(ErrMalformedInput, "nil surface")
	}

	switch s.Format {
	case Raw24, RawLandscape24, Raw32WithAlpha, Alpha8, LandscapeAlpha8, Packed565, Packed4444:
		unpack, _ := directUnpacker(s.Format)
		return decodeDirect(s, unpack)
	case Palette8, Palette16:
		return decodeIndexed(s, r)
	case BlockDXT1, BlockDXT3, BlockDXT5:
		return decodeBlocks(s)
	case EmbeddedJPEG:
		return decodeJPEG(s.Data)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "cannot decode %v", s.Format)
	}
}

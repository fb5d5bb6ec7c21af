package surface

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// packer converts R, G, B, A in src into one on-disk pixel in dst.
type packer func(dst, src []byte)

func packRaw24(dst, src []byte) {
	dst[0], dst[1], dst[2] = src[2], src[1], src[0]
}

func packLandscape24(dst, src []byte) {
	dst[0], dst[1], dst[2] = src[0], src[1], src[2]
}

func packRaw32(dst, src []byte) {
	dst[0], dst[1], dst[2], dst[3] = src[2], src[1], src[0], src[3]
}

// Average of R, G and B, alpha is discarded
func packAlpha8(dst, src []byte) {
	dst[0] = byte((int(src[0]) + int(src[1]) + int(src[2])) / 3)
}

func pack565(dst, src []byte) {
	r := uint16(src[0] >> 3 & 0x1f)
	g := uint16(src[1] >> 2 & 0x3f)
	b := uint16(src[2] >> 3 & 0x1f)
	binary.LittleEndian.PutUint16(dst, r<<11|g<<5|b)
}

func pack4444(dst, src []byte) {
	a := uint16(src[3] >> 4)
	r := uint16(src[0] >> 4)
	g := uint16(src[1] >> 4)
	b := uint16(src[2] >> 4)
	binary.LittleEndian.PutUint16(dst, a<<12|r<<8|g<<4|b)
}

func directPacker(f PixelFormat) (packer, bool) {
	switch f {
	case Raw24:
		return packRaw24, true
	case RawLandscape24:
		return packLandscape24, true
	case Raw32WithAlpha:
		return packRaw32, true
	case Alpha8, LandscapeAlpha8:
		return packAlpha8, true
	case Packed565:
		return pack565, true
	case Packed4444:
		return pack4444, true
	default:
		return nil, false
	}
}

// ToRGBA8 returns a copy of m as a non-premultiplied RGBA image with its
// top-left corner at (0, 0) and no row padding.
func ToRGBA8(m image.Image) *image.NRGBA {
	b := m.Bounds()
	dst := newRGBA8(b.Dx(), b.Dy())
	draw.Draw(dst, dst.Bounds(), m, b.Min, draw.Src)
	return dst
}

// rgba8 avoids the copy when m already has the canonical layout.
func rgba8(m image.Image) *image.NRGBA {
	if n, ok := m.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	return ToRGBA8(m)
}

func encodeDirect(m *image.NRGBA, f PixelFormat, pack packer) ([]byte, error) {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	size := f.ExpectedSize(w, h)
	if size < 0 {
		return nil, errors.Wrapf(ErrMalformedInput, "invalid dimensions %dx%d", w, h)
	}

	b := make([]byte, size)
	bpp := f.BytesPerPixel()
	for i := 0; i < w*h; i++ {
		pack(b[i*bpp:i*bpp+bpp], m.Pix[i*4:i*4+4])
	}
	return b, nil
}

// Encode converts m to the on-disk payload for the pixel format f. The
// indexed formats always fail with ErrQuantizationUnsupported.
func Encode(m image.Image, f PixelFormat) ([]byte, error) {
	if m == nil {
		return nil, errors.Wrap(ErrMalformedInput, "nil image")
	}

	if f.Indexed() {
		return nil, errors.Wrapf(ErrQuantizationUnsupported, "cannot encode %v", f)
	}

	switch f {
	case Raw24, RawLandscape24, Raw32WithAlpha, Alpha8, LandscapeAlpha8, Packed565, Packed4444:
		pack, _ := directPacker(f)
		return encodeDirect(rgba8(m), f, pack)
	case BlockDXT1, BlockDXT3, BlockDXT5:
		return encodeBlocks(m, f)
	case EmbeddedJPEG:
		return encodeJPEG(m)
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "cannot encode %v", f)
	}
}

// EncodeSurface encodes m using the format of s and returns a copy of s
// holding the new payload and the dimensions of m. s itself is unchanged.
func EncodeSurface(m image.Image, s *Surface) (*Surface, error) {
	if s == nil {
		return nil, errors.Wrap(ErrMalformedInput, "nil surface")
	}
	if m == nil {
		return nil, errors.Wrap(ErrMalformedInput, "nil image")
	}

	b, err := Encode(m, s.Format)
	if err != nil {
		return nil, err
	}

	c := *s
	c.Width, c.Height = m.Bounds().Dx(), m.Bounds().Dy()
	c.Data = b

	return &c, nil
}

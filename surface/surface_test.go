package surface

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/bodgit/datsurface/dxt"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(w, h int, fn func(x, y int) color.NRGBA) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.SetNRGBA(x, y, fn(x, y))
		}
	}
	return m
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return fill(w, h, func(int, int) color.NRGBA { return c })
}

func random(w, h int, seed int64) *image.NRGBA {
	r := rand.New(rand.NewSource(seed))
	return fill(w, h, func(int, int) color.NRGBA {
		return color.NRGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256))}
	})
}

// normalize restricts a color to the values a format can store exactly
func normalize(m *image.NRGBA, fn func(color.NRGBA) color.NRGBA) *image.NRGBA {
	b := m.Bounds()
	return fill(b.Dx(), b.Dy(), func(x, y int) color.NRGBA { return fn(m.NRGBAAt(x, y)) })
}

func opaque24(c color.NRGBA) color.NRGBA {
	c.A = 0xff
	return c
}

func grey(c color.NRGBA) color.NRGBA {
	return color.NRGBA{c.R, c.R, c.R, 0xff}
}

func exact565(c color.NRGBA) color.NRGBA {
	return color.NRGBA{c.R & 0xf8, c.G & 0xfc, c.B & 0xf8, 0xff}
}

func nibble(v uint8) uint8 {
	return v&0xf0 | v>>4
}

func exact4444(c color.NRGBA) color.NRGBA {
	return color.NRGBA{nibble(c.R), nibble(c.G), nibble(c.B), nibble(c.A)}
}

func identity(c color.NRGBA) color.NRGBA {
	return c
}

func TestRoundTrip(t *testing.T) {
	formats := []struct {
		format PixelFormat
		domain func(color.NRGBA) color.NRGBA
	}{
		{Raw24, opaque24},
		{RawLandscape24, opaque24},
		{Raw32WithAlpha, identity},
		{Alpha8, grey},
		{LandscapeAlpha8, grey},
		{Packed565, exact565},
		{Packed4444, exact4444},
	}

	sizes := []image.Point{{1, 1}, {3, 5}, {16, 16}, {0, 0}}

	for _, f := range formats {
		for _, size := range sizes {
			fixtures := []*image.NRGBA{
				solid(size.X, size.Y, color.NRGBA{0x00, 0x00, 0x00, 0xff}),
				solid(size.X, size.Y, color.NRGBA{0xff, 0xff, 0xff, 0xff}),
				random(size.X, size.Y, int64(size.X*size.Y)),
			}
			for _, fixture := range fixtures {
				m := normalize(fixture, f.domain)

				b, err := Encode(m, f.format)
				require.Nil(t, err, f.format.String())
				assert.Equal(t, f.format.ExpectedSize(size.X, size.Y), len(b))

				s := &Surface{Width: size.X, Height: size.Y, Format: f.format, Data: b}
				d, err := Decode(s, nil)
				require.Nil(t, err, f.format.String())
				assert.Equal(t, m.Rect, d.Rect)
				assert.Equal(t, m.Pix, d.Pix, f.format.String())
			}
		}
	}
}

func TestDecodeChannelOrder(t *testing.T) {
	tables := []struct {
		format PixelFormat
		data   []byte
		want   color.NRGBA
	}{
		{Raw24, []byte{0x01, 0x02, 0x03}, color.NRGBA{0x03, 0x02, 0x01, 0xff}},
		{RawLandscape24, []byte{0x01, 0x02, 0x03}, color.NRGBA{0x01, 0x02, 0x03, 0xff}},
		{Raw32WithAlpha, []byte{0x01, 0x02, 0x03, 0x04}, color.NRGBA{0x03, 0x02, 0x01, 0x04}},
		{Alpha8, []byte{0x80}, color.NRGBA{0x80, 0x80, 0x80, 0xff}},
		{Packed565, []byte{0xff, 0xff}, color.NRGBA{248, 252, 248, 0xff}},
		{Packed565, []byte{0x00, 0xf8}, color.NRGBA{248, 0, 0, 0xff}},
		{Packed4444, []byte{0x34, 0x12}, color.NRGBA{0x22, 0x33, 0x44, 0x11}},
	}

	for _, table := range tables {
		m, err := Decode(&Surface{Width: 1, Height: 1, Format: table.format, Data: table.data}, nil)
		require.Nil(t, err)
		assert.Equal(t, table.want, m.NRGBAAt(0, 0), table.format.String())
	}
}

func TestPacked565White(t *testing.T) {
	b, err := Encode(solid(1, 1, color.NRGBA{0xff, 0xff, 0xff, 0xff}), Packed565)
	require.Nil(t, err)
	assert.Equal(t, []byte{0xff, 0xff}, b)

	m, err := Decode(&Surface{Width: 1, Height: 1, Format: Packed565, Data: b}, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{248, 252, 248, 255}, m.Pix)
}

func TestPacked4444Nibbles(t *testing.T) {
	c := color.NRGBA{0x11, 0x22, 0x33, 0x44}
	b, err := Encode(solid(2, 2, c), Packed4444)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x23, 0x41}, b[:2])

	m, err := Decode(&Surface{Width: 2, Height: 2, Format: Packed4444, Data: b}, nil)
	require.Nil(t, err)
	assert.Equal(t, c, m.NRGBAAt(1, 1))
}

func TestPalette8(t *testing.T) {
	palettes := Palettes{
		7: {{10, 20, 30, 255}, {40, 50, 60, 255}},
	}

	s := &Surface{Width: 1, Height: 1, Format: Palette8, PaletteID: 7, HasPalette: true, Data: []byte{1}}
	m, err := Decode(s, palettes)
	require.Nil(t, err)
	assert.Equal(t, []byte{40, 50, 60, 255}, m.Pix)

	s.Data = []byte{2}
	m, err = Decode(s, palettes)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, ErrMissingPalette))
}

func TestPalette16(t *testing.T) {
	p := make(Palette, 300)
	p[299] = Color{1, 2, 3, 4}
	resolver := ResolverFunc(func(id uint32) (Palette, bool) {
		return p, id == 0x04001234
	})

	s := &Surface{Width: 2, Height: 1, Format: Palette16, PaletteID: 0x04001234, HasPalette: true, Data: []byte{0x2b, 0x01, 0x00, 0x00}}
	m, err := Decode(s, resolver)
	require.Nil(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, m.Pix)

	// Negative signed index
	s.Data = []byte{0xff, 0xff, 0x00, 0x00}
	_, err = Decode(s, resolver)
	assert.True(t, errors.Is(err, ErrMissingPalette))
}

func TestMissingPalette(t *testing.T) {
	s := &Surface{Width: 1, Height: 1, Format: Palette8, PaletteID: 1, HasPalette: true, Data: []byte{0}}

	_, err := Decode(s, nil)
	assert.True(t, errors.Is(err, ErrMissingPalette))

	_, err = Decode(s, Palettes{})
	assert.True(t, errors.Is(err, ErrMissingPalette))

	s.HasPalette = false
	_, err = Decode(s, Palettes{1: {{}}})
	assert.True(t, errors.Is(err, ErrMissingPalette))
}

func TestJPEGDimensionMismatch(t *testing.T) {
	b := new(bytes.Buffer)
	require.Nil(t, jpeg.Encode(b, image.NewRGBA(image.Rect(0, 0, 20, 20)), nil))

	s := &Surface{ID: 0x1234, Width: 0, Height: 0, Format: EmbeddedJPEG, Data: b.Bytes()}
	m, err := Decode(s, nil)
	require.Nil(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), m.Rect)
	assert.Equal(t, 20*20*4, len(m.Pix))
}

func TestJPEGRoundTrip(t *testing.T) {
	src := solid(24, 12, color.NRGBA{0x80, 0x40, 0xc0, 0xff})

	b, err := Encode(src, EmbeddedJPEG)
	require.Nil(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, b[:2])

	m, err := Decode(&Surface{Width: 1, Height: 1, Format: EmbeddedJPEG, Data: b}, nil)
	require.Nil(t, err)
	assert.Equal(t, src.Rect, m.Rect)

	c := m.NRGBAAt(12, 6)
	assert.InDelta(t, 0x80, int(c.R), 8)
	assert.InDelta(t, 0x40, int(c.G), 8)
	assert.InDelta(t, 0xc0, int(c.B), 8)
	assert.Equal(t, uint8(0xff), c.A)

	_, err = Decode(&Surface{Format: EmbeddedJPEG, Data: []byte("not a jpeg")}, nil)
	assert.True(t, errors.Is(err, ErrContainerDecode))
}

func TestJPEGTooLarge(t *testing.T) {
	b := new(bytes.Buffer)
	require.Nil(t, jpeg.Encode(b, image.NewRGBA(image.Rect(0, 0, 8, 8)), nil))

	// Rewrite the baseline frame header to claim 65535x65535
	data := b.Bytes()
	i := bytes.Index(data, []byte{0xff, 0xc0})
	require.True(t, i > 0)
	copy(data[i+5:i+9], []byte{0xff, 0xff, 0xff, 0xff})

	m, err := Decode(&Surface{Format: EmbeddedJPEG, Data: data}, nil)
	assert.Nil(t, m)
	assert.True(t, errors.Is(err, ErrMalformedInput), "%+v", err)
}

func TestBlockFormats(t *testing.T) {
	tables := []struct {
		format PixelFormat
		block  dxt.Format
	}{
		{BlockDXT1, dxt.DXT1},
		{BlockDXT3, dxt.DXT3},
		{BlockDXT5, dxt.DXT5},
	}

	src := solid(12, 8, color.NRGBA{0xff, 0x00, 0x00, 0xff})

	for _, table := range tables {
		c, err := dxt.EncodeContainer(src, table.block, BlockQuality)
		require.Nil(t, err)

		// Encoding strips exactly the container header
		b, err := Encode(src, table.format)
		require.Nil(t, err)
		assert.Equal(t, dxt.Size(12, 8, table.block), len(b))
		assert.Equal(t, len(c)-dxt.ContainerHeaderSize, len(b))
		assert.Equal(t, c[dxt.ContainerHeaderSize:], b)

		m, err := Decode(&Surface{Width: 12, Height: 8, Format: table.format, Data: b}, nil)
		require.Nil(t, err)
		assert.Equal(t, src.Pix, m.Pix, table.format.String())

		_, err = Decode(&Surface{Width: 12, Height: 8, Format: table.format, Data: b[:len(b)-1]}, nil)
		assert.True(t, errors.Is(err, ErrMalformedInput))
	}
}

func TestEncodeIndexed(t *testing.T) {
	for _, f := range []PixelFormat{Palette8, Palette16} {
		for _, m := range []image.Image{solid(1, 1, color.NRGBA{}), random(4, 4, 1), image.NewGray(image.Rect(0, 0, 2, 2))} {
			b, err := Encode(m, f)
			assert.Nil(t, b)
			assert.True(t, errors.Is(err, ErrQuantizationUnsupported))
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	for _, f := range []PixelFormat{0, 0x16, 0xdeadbeef} {
		_, err := Decode(&Surface{Width: 1, Height: 1, Format: f, Data: make([]byte, 16)}, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))

		_, err = Encode(solid(1, 1, color.NRGBA{}), f)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat))
	}
}

func TestMalformedInput(t *testing.T) {
	tables := []*Surface{
		{Width: 2, Height: 2, Format: Raw24, Data: make([]byte, 11)},
		{Width: 2, Height: 2, Format: Raw32WithAlpha, Data: make([]byte, 15)},
		{Width: 1, Height: 1, Format: Packed565, Data: []byte{0}},
		{Width: 4, Height: 1, Format: Alpha8},
		{Width: -1, Height: 1, Format: Alpha8, Data: make([]byte, 16)},
		{Width: 1 << 20, Height: 1 << 20, Format: Alpha8, Data: make([]byte, 16)},
		{Width: 1, Height: 2, Format: Palette16, PaletteID: 1, HasPalette: true, Data: []byte{0, 0, 0}},
	}

	for _, s := range tables {
		m, err := Decode(s, Palettes{1: {{}}})
		assert.Nil(t, m)
		assert.True(t, errors.Is(err, ErrMalformedInput), "%+v", err)
	}

	_, err := Decode(nil, nil)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestTrailingData(t *testing.T) {
	m, err := Decode(&Surface{Width: 1, Height: 1, Format: Alpha8, Data: []byte{0x10, 0x20}}, nil)
	require.Nil(t, err)
	assert.Equal(t, []byte{0x10, 0x10, 0x10, 0xff}, m.Pix)
}

func TestEncodeOffsetImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 7, 6))
	src.SetNRGBA(5, 5, color.NRGBA{1, 2, 3, 4})
	src.SetNRGBA(6, 5, color.NRGBA{5, 6, 7, 8})

	b, err := Encode(src, Raw32WithAlpha)
	require.Nil(t, err)
	assert.Equal(t, []byte{3, 2, 1, 4, 7, 6, 5, 8}, b)
}

func TestFormatNames(t *testing.T) {
	for _, f := range Formats() {
		p, err := ParseFormat(f.String())
		require.Nil(t, err)
		assert.Equal(t, f, p)
	}

	f, err := ParseFormat("blockdxt5")
	require.Nil(t, err)
	assert.Equal(t, BlockDXT5, f)

	assert.Equal(t, "PFID_R8G8B8", Raw24.String())
	assert.Equal(t, "PixelFormat(0x16)", PixelFormat(0x16).String())

	_, err = ParseFormat("PFID_X8R8G8B8")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestIndexed(t *testing.T) {
	for _, f := range Formats() {
		assert.Equal(t, f == Palette8 || f == Palette16, f.Indexed(), "%v", f)
	}
}

func TestExpectedSize(t *testing.T) {
	tables := []struct {
		format        PixelFormat
		width, height int
		size          int
	}{
		{Raw24, 4, 4, 48},
		{Raw32WithAlpha, 4, 4, 64},
		{Alpha8, 3, 3, 9},
		{Palette16, 3, 3, 18},
		{BlockDXT1, 4, 4, 8},
		{BlockDXT5, 5, 4, 32},
		{EmbeddedJPEG, 4, 4, -1},
		{Raw24, -1, 4, -1},
	}

	for _, table := range tables {
		assert.Equal(t, table.size, table.format.ExpectedSize(table.width, table.height))
	}
}

func pngBytes(t *testing.T, m image.Image) *bytes.Buffer {
	b := new(bytes.Buffer)
	require.Nil(t, png.Encode(b, m))
	return b
}

func TestReplaceWith(t *testing.T) {
	src := normalize(random(10, 6, 3), opaque24)

	s := &Surface{ID: 1, Width: 32, Height: 32, Format: Raw24}
	require.Nil(t, ReplaceWith(s, pngBytes(t, src), false))
	assert.Equal(t, 10, s.Width)
	assert.Equal(t, 6, s.Height)
	assert.Equal(t, 10*6*3, len(s.Data))

	m, err := Decode(s, nil)
	require.Nil(t, err)
	assert.Equal(t, src.Pix, m.Pix)
}

func TestReplaceWithResize(t *testing.T) {
	c := color.NRGBA{0x20, 0x40, 0x60, 0xff}

	s := &Surface{Width: 8, Height: 4, Format: Raw32WithAlpha}
	require.Nil(t, ReplaceWith(s, pngBytes(t, solid(32, 32, c)), true))
	assert.Equal(t, 8, s.Width)
	assert.Equal(t, 4, s.Height)

	m, err := Decode(s, nil)
	require.Nil(t, err)
	got := m.NRGBAAt(3, 2)
	assert.InDelta(t, int(c.R), int(got.R), 1)
	assert.InDelta(t, int(c.G), int(got.G), 1)
	assert.InDelta(t, int(c.B), int(got.B), 1)

	// Nothing to resize to so the image size is adopted
	s = &Surface{Format: Raw32WithAlpha}
	require.Nil(t, ReplaceWith(s, pngBytes(t, solid(3, 3, c)), true))
	assert.Equal(t, 3, s.Width)
}

func TestReplaceWithFailure(t *testing.T) {
	s := &Surface{Width: 2, Height: 2, Format: Palette8, Data: []byte{1, 2, 3, 4}}

	err := ReplaceWith(s, pngBytes(t, solid(4, 4, color.NRGBA{})), false)
	assert.True(t, errors.Is(err, ErrQuantizationUnsupported))
	assert.Equal(t, &Surface{Width: 2, Height: 2, Format: Palette8, Data: []byte{1, 2, 3, 4}}, s)

	s.Format = Raw24
	err = ReplaceWith(s, bytes.NewReader([]byte("garbage")), false)
	assert.True(t, errors.Is(err, ErrContainerDecode))
	assert.Equal(t, 2, s.Width)
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Data)
}

func TestEncodeSurface(t *testing.T) {
	src := normalize(random(2, 3, 11), opaque24)

	s := &Surface{ID: 7, Width: 1, Height: 1, Format: Raw24, PaletteID: 3, HasPalette: true, Data: []byte{9, 9, 9}}
	c, err := EncodeSurface(src, s)
	require.Nil(t, err)
	assert.Equal(t, uint32(7), c.ID)
	assert.Equal(t, 2, c.Width)
	assert.Equal(t, 3, c.Height)
	assert.Equal(t, uint32(3), c.PaletteID)
	assert.True(t, c.HasPalette)
	assert.Equal(t, 2*3*3, len(c.Data))
	assert.Equal(t, &Surface{ID: 7, Width: 1, Height: 1, Format: Raw24, PaletteID: 3, HasPalette: true, Data: []byte{9, 9, 9}}, s)

	m, err := Decode(c, nil)
	require.Nil(t, err)
	assert.Equal(t, src.Pix, m.Pix)

	c, err = EncodeSurface(src, &Surface{Format: Palette16})
	assert.Nil(t, c)
	assert.True(t, errors.Is(err, ErrQuantizationUnsupported))

	_, err = EncodeSurface(src, nil)
	assert.True(t, errors.Is(err, ErrMalformedInput))
	_, err = EncodeSurface(nil, s)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestReplaceWithNil(t *testing.T) {
	err := ReplaceWith(nil, pngBytes(t, solid(2, 2, color.NRGBA{})), false)
	assert.True(t, errors.Is(err, ErrMalformedInput))
}

func TestSave(t *testing.T) {
	src := normalize(random(9, 7, 5), opaque24)

	tables := []struct {
		file string
		kind ContainerKind
		name string
	}{
		{"out.png", PNG, "png"},
		{"out.JPG", JPEG, "jpeg"},
		{"out.jpeg", JPEG, "jpeg"},
		{"out.gif", GIF, "gif"},
		{"out.bmp", BMP, "bmp"},
	}

	for _, table := range tables {
		kind, err := KindFromPath(table.file)
		require.Nil(t, err)
		assert.Equal(t, table.kind, kind)

		b := new(bytes.Buffer)
		require.Nil(t, Save(b, src, kind))

		m, name, err := Load(b)
		require.Nil(t, err)
		assert.Equal(t, table.name, name)
		assert.Equal(t, 9, m.Bounds().Dx())
		assert.Equal(t, 7, m.Bounds().Dy())
	}

	_, err := KindFromPath("out.tga")
	assert.True(t, errors.Is(err, ErrUnsupportedContainer))
	assert.True(t, errors.Is(Save(new(bytes.Buffer), src, 0), ErrUnsupportedContainer))
}

func TestExport(t *testing.T) {
	s := &Surface{Width: 1, Height: 1, Format: Palette8, PaletteID: 2, HasPalette: true, Data: []byte{0}}
	palettes := Palettes{2: {{0xff, 0x00, 0x00, 0xff}}}

	b := new(bytes.Buffer)
	require.Nil(t, Export(b, s, palettes, PNG))

	m, _, err := Load(b)
	require.Nil(t, err)
	r, g, bl, a := m.At(0, 0).RGBA()
	assert.Equal(t, []uint32{0xffff, 0, 0, 0xffff}, []uint32{r, g, bl, a})

	assert.True(t, errors.Is(Export(new(bytes.Buffer), s, nil, PNG), ErrMissingPalette))
}

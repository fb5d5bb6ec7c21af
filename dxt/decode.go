package dxt

import (
	"encoding/binary"
	"image"
)

// rgb565 expands a packed 5:6:5 color to 8 bits per channel by replicating
// the high bits into the low bits.
func rgb565(c uint16) (r, g, b uint8) {
	r = uint8(c >> 11 & 0x1f)
	g = uint8(c >> 5 & 0x3f)
	b = uint8(c & 0x1f)

	r = r<<3 | r>>2
	g = g<<2 | g>>4
	b = b<<3 | b>>2

	return
}

// colorPalette builds the four colors addressable by a color block. DXT1
// blocks with c0 <= c1 use three colors and transparent black.
func colorPalette(c0, c1 uint16, punchThrough bool) [4][4]uint8 {
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)

	p := [4][4]uint8{
		{r0, g0, b0, 0xff},
		{r1, g1, b1, 0xff},
	}

	if punchThrough && c0 <= c1 {
		p[2] = [4]uint8{
			uint8((int(r0) + int(r1)) / 2),
			uint8((int(g0) + int(g1)) / 2),
			uint8((int(b0) + int(b1)) / 2),
			0xff,
		}
		p[3] = [4]uint8{0, 0, 0, 0}
		return p
	}

	p[2] = [4]uint8{
		uint8((2*int(r0) + int(r1)) / 3),
		uint8((2*int(g0) + int(g1)) / 3),
		uint8((2*int(b0) + int(b1)) / 3),
		0xff,
	}
	p[3] = [4]uint8{
		uint8((int(r0) + 2*int(r1)) / 3),
		uint8((int(g0) + 2*int(g1)) / 3),
		uint8((int(b0) + 2*int(b1)) / 3),
		0xff,
	}
	return p
}

// alphaPalette builds the eight alpha values addressable by a DXT5 block.
func alphaPalette(a0, a1 uint8) [8]uint8 {
	var p [8]uint8
	p[0], p[1] = a0, a1

	if a0 > a1 {
		for i := 2; i < 8; i++ {
			p[i] = uint8(((8-i)*int(a0) + (i-1)*int(a1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			p[i] = uint8(((6-i)*int(a0) + (i-1)*int(a1)) / 5)
		}
		p[6] = 0
		p[7] = 0xff
	}

	return p
}

func decodeColorBlock(b []byte, punchThrough bool, out *[blockPixels][4]uint8) {
	c0 := binary.LittleEndian.Uint16(b[0:])
	c1 := binary.LittleEndian.Uint16(b[2:])
	indices := binary.LittleEndian.Uint32(b[4:])

	colors := colorPalette(c0, c1, punchThrough)
	for i := range out {
		out[i] = colors[indices>>(2*uint(i))&0x03]
	}
}

func decodeExplicitAlpha(b []byte, out *[blockPixels][4]uint8) {
	bits := binary.LittleEndian.Uint64(b)
	for i := range out {
		out[i][3] = uint8(bits>>(4*uint(i))&0x0f) * 17
	}
}

func decodeInterpolatedAlpha(b []byte, out *[blockPixels][4]uint8) {
	alpha := alphaPalette(b[0], b[1])

	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(b[2+i]) << (8 * uint(i))
	}

	for i := range out {
		out[i][3] = alpha[bits>>(3*uint(i))&0x07]
	}
}

func decodeBlock(b []byte, f Format, out *[blockPixels][4]uint8) {
	switch f {
	case DXT1:
		decodeColorBlock(b, true, out)
	case DXT3:
		decodeColorBlock(b[8:], false, out)
		decodeExplicitAlpha(b, out)
	case DXT5:
		decodeColorBlock(b[8:], false, out)
		decodeInterpolatedAlpha(b, out)
	}
}

// Decode decompresses raw block data into a width by height image. Pixels
// that fall in the padding of the right and bottom blocks are discarded.
func Decode(data []byte, width, height int, f Format) (*image.NRGBA, error) {
	if !f.valid() {
		return nil, ErrUnsupportedFormat
	}
	if width < 0 || height < 0 {
		return nil, ErrShortData
	}
	if len(data) < Size(width, height, f) {
		return nil, ErrShortData
	}

	m := image.NewNRGBA(image.Rect(0, 0, width, height))
	bw, bh := blocks(width, height)
	size := f.BlockSize()

	var block [blockPixels][4]uint8
	offset := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			decodeBlock(data[offset:offset+size], f, &block)
			offset += size

			for py := 0; py < blockHeight; py++ {
				for px := 0; px < blockWidth; px++ {
					x := bx*blockWidth + px
					y := by*blockHeight + py
					if x >= width || y >= height {
						continue
					}
					i := y*m.Stride + x*4
					copy(m.Pix[i:i+4], block[py*blockWidth+px][:])
				}
			}
		}
	}

	return m, nil
}

package dxt

import (
	"encoding/binary"
	"image"
	"image/draw"
)

// Alpha below this is treated as transparent by the DXT1 encoder.
const punchThroughAlpha = 128

func quantize(v uint8, max int) int {
	return (int(v)*max + 127) / 255
}

func to565(c [4]uint8) uint16 {
	return uint16(quantize(c[0], 31)<<11 | quantize(c[1], 63)<<5 | quantize(c[2], 31))
}

func sqDiff(x, y uint8) int {
	d := int(x) - int(y)
	return d * d
}

func colorDistance(a, b [4]uint8) int {
	return sqDiff(a[0], b[0]) + sqDiff(a[1], b[1]) + sqDiff(a[2], b[2])
}

func toNRGBA(m image.Image) *image.NRGBA {
	if n, ok := m.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := m.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Bounds(), m, b.Min, draw.Src)
	return n
}

// fetchBlock copies one block out of m, clamping reads that fall off the
// right or bottom edge to the last row or column.
func fetchBlock(m *image.NRGBA, bx, by int, out *[blockPixels][4]uint8) {
	w, h := m.Rect.Dx(), m.Rect.Dy()
	for py := 0; py < blockHeight; py++ {
		y := by*blockHeight + py
		if y >= h {
			y = h - 1
		}
		for px := 0; px < blockWidth; px++ {
			x := bx*blockWidth + px
			if x >= w {
				x = w - 1
			}
			i := y*m.Stride + x*4
			copy(out[py*blockWidth+px][:], m.Pix[i:i+4])
		}
	}
}

type colorFit struct {
	c0, c1  uint16
	indices uint32
	err     int
}

// fitColors assigns each pixel the closest color addressable by the given
// endpoints. Transparent pixels in punch-through mode always get index 3.
func fitColors(px *[blockPixels][4]uint8, c0, c1 uint16, punchThrough bool, transparent *[blockPixels]bool) colorFit {
	palette := colorPalette(c0, c1, punchThrough)
	usable := 4
	if punchThrough && c0 <= c1 {
		usable = 3
	}

	fit := colorFit{c0: c0, c1: c1}
	for i := range px {
		if transparent[i] {
			fit.indices |= 3 << (2 * uint(i))
			continue
		}
		best, bestErr := 0, int(^uint(0)>>1)
		for j := 0; j < usable; j++ {
			if d := colorDistance(px[i], palette[j]); d < bestErr {
				best, bestErr = j, d
			}
		}
		fit.indices |= uint32(best) << (2 * uint(i))
		fit.err += bestErr
	}
	return fit
}

func encodeColorBlock(px *[blockPixels][4]uint8, q Quality, punchThrough bool, out []byte) {
	var transparent [blockPixels]bool
	anyTransparent := false
	min := [4]uint8{0xff, 0xff, 0xff, 0xff}
	var max [4]uint8
	opaque := 0
	for i, c := range px {
		if punchThrough && c[3] < punchThroughAlpha {
			transparent[i] = true
			anyTransparent = true
			continue
		}
		opaque++
		for ch := 0; ch < 3; ch++ {
			if c[ch] < min[ch] {
				min[ch] = c[ch]
			}
			if c[ch] > max[ch] {
				max[ch] = c[ch]
			}
		}
	}
	if opaque == 0 {
		min, max = [4]uint8{}, [4]uint8{}
	}

	type endpoints struct{ hi, lo [4]uint8 }
	candidates := []endpoints{{max, min}}
	if q == Balanced {
		var hi, lo [4]uint8
		for ch := 0; ch < 3; ch++ {
			inset := (max[ch] - min[ch]) >> 4
			hi[ch], lo[ch] = max[ch]-inset, min[ch]+inset
		}
		candidates = append(candidates, endpoints{hi, lo})
	}

	var best colorFit
	for i, e := range candidates {
		c0, c1 := to565(e.hi), to565(e.lo)
		// Four color mode needs c0 > c1, three color mode c0 <= c1
		if anyTransparent {
			if c0 > c1 {
				c0, c1 = c1, c0
			}
		} else if c0 < c1 {
			c0, c1 = c1, c0
		}
		fit := fitColors(px, c0, c1, punchThrough, &transparent)
		if i == 0 || fit.err < best.err {
			best = fit
		}
	}

	binary.LittleEndian.PutUint16(out[0:], best.c0)
	binary.LittleEndian.PutUint16(out[2:], best.c1)
	binary.LittleEndian.PutUint32(out[4:], best.indices)
}

func encodeExplicitAlpha(px *[blockPixels][4]uint8, out []byte) {
	var bits uint64
	for i, c := range px {
		bits |= uint64(quantize(c[3], 15)) << (4 * uint(i))
	}
	binary.LittleEndian.PutUint64(out, bits)
}

type alphaFit struct {
	a0, a1 uint8
	bits   uint64
	err    int
}

func fitAlpha(px *[blockPixels][4]uint8, a0, a1 uint8) alphaFit {
	palette := alphaPalette(a0, a1)
	fit := alphaFit{a0: a0, a1: a1}
	for i, c := range px {
		best, bestErr := 0, int(^uint(0)>>1)
		for j, a := range palette {
			if d := sqDiff(c[3], a); d < bestErr {
				best, bestErr = j, d
			}
		}
		fit.bits |= uint64(best) << (3 * uint(i))
		fit.err += bestErr
	}
	return fit
}

func encodeInterpolatedAlpha(px *[blockPixels][4]uint8, q Quality, out []byte) {
	min, max := uint8(0xff), uint8(0)
	innerMin, innerMax := uint8(0xff), uint8(0)
	for _, c := range px {
		a := c[3]
		if a < min {
			min = a
		}
		if a > max {
			max = a
		}
		if a != 0 && a != 0xff {
			if a < innerMin {
				innerMin = a
			}
			if a > innerMax {
				innerMax = a
			}
		}
	}

	best := fitAlpha(px, max, min)
	// The six value mode has exact 0 and 255 which may suit blocks mixing
	// fully transparent or opaque pixels with partial ones.
	if q == Balanced && innerMin <= innerMax && (min == 0 || max == 0xff) {
		if fit := fitAlpha(px, innerMin, innerMax); fit.err < best.err {
			best = fit
		}
	}

	out[0], out[1] = best.a0, best.a1
	for i := 0; i < 6; i++ {
		out[2+i] = byte(best.bits >> (8 * uint(i)))
	}
}

func encodeBlock(px *[blockPixels][4]uint8, f Format, q Quality, out []byte) {
	switch f {
	case DXT1:
		encodeColorBlock(px, q, true, out)
	case DXT3:
		encodeExplicitAlpha(px, out[:8])
		encodeColorBlock(px, q, false, out[8:])
	case DXT5:
		encodeInterpolatedAlpha(px, q, out[:8])
		encodeColorBlock(px, q, false, out[8:])
	}
}

// Encode compresses m into raw block data with no container.
func Encode(m image.Image, f Format, q Quality) ([]byte, error) {
	if !f.valid() {
		return nil, ErrUnsupportedFormat
	}

	n := toNRGBA(m)
	w, h := n.Rect.Dx(), n.Rect.Dy()
	bw, bh := blocks(w, h)
	size := f.BlockSize()

	b := make([]byte, Size(w, h, f))
	var block [blockPixels][4]uint8
	offset := 0
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			fetchBlock(n, bx, by, &block)
			encodeBlock(&block, f, q, b[offset:offset+size])
			offset += size
		}
	}

	return b, nil
}

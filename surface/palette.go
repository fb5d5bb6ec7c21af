package surface

import "image/color"

// Color is a single palette entry.
type Color struct {
	Red, Green, Blue, Alpha uint8
}

// RGBA implements color.Color. Palette entries are not premultiplied.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.Red, G: c.Green, B: c.Blue, A: c.Alpha}.RGBA()
}

// Palette is an ordered list of colors addressed by a zero-based index.
type Palette []Color

// PaletteFromColors converts a standard library palette, for example the one
// belonging to an *image.Paletted.
func PaletteFromColors(p color.Palette) Palette {
	out := make(Palette, len(p))
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		out[i] = Color{n.R, n.G, n.B, n.A}
	}
	return out
}

// PaletteResolver looks up a palette by its archive identifier.
// Implementations must be safe for concurrent reads if surfaces are decoded
// concurrently.
type PaletteResolver interface {
	Palette(id uint32) (Palette, bool)
}

// ResolverFunc adapts a function to the PaletteResolver interface.
type ResolverFunc func(id uint32) (Palette, bool)

// Palette calls f(id).
func (f ResolverFunc) Palette(id uint32) (Palette, bool) {
	return f(id)
}

// Palettes is a fixed set of palettes keyed by identifier.
type Palettes map[uint32]Palette

// Palette returns the palette stored under id.
func (p Palettes) Palette(id uint32) (Palette, bool) {
	c, ok := p[id]
	return c, ok
}

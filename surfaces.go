package datsurface

import (
	"image/color"

	"github.com/bodgit/datsurface/surface"
	"github.com/pkg/errors"
)

// GetRenderSurface returns the surface stored under id.
func (w *Writer) GetRenderSurface(id uint32) (*surface.Surface, error) {
	return w.db.Surface(id)
}

// AddRenderSurface creates a surface from an image file, encoded with the
// given format and adopting the dimensions of the image. Any existing
// surface with the same id is replaced.
func (w *Writer) AddRenderSurface(id uint32, file string, format surface.PixelFormat) error {
	s := &surface.Surface{ID: id, Format: format}
	if err := surface.ReplaceWithFile(s, file, false); err != nil {
		return errors.Wrapf(err, "unable to add surface %#08x from %q", id, file)
	}

	if err := w.Save(s); err != nil {
		return err
	}
	w.logger.Printf("Added surface %#08x (%v %dx%d) from \"%s\"\n", id, format, s.Width, s.Height, file)

	return nil
}

// UpdateRenderSurface replaces the image of an existing surface keeping its
// format. If resize is set the image is scaled to the existing dimensions.
func (w *Writer) UpdateRenderSurface(id uint32, file string, resize bool) error {
	s, err := w.db.Surface(id)
	if err != nil {
		return err
	}

	if err := surface.ReplaceWithFile(s, file, resize); err != nil {
		return errors.Wrapf(err, "unable to update surface %#08x from %q", id, file)
	}

	if err := w.Save(s); err != nil {
		return err
	}
	w.logger.Printf("Updated surface %#08x (%v %dx%d) from \"%s\"\n", id, s.Format, s.Width, s.Height, file)

	return nil
}

// SaveRenderSurfaceToImage decodes a surface and writes it to an image file,
// the extension choosing between BMP, GIF, JPEG and PNG.
func (w *Writer) SaveRenderSurfaceToImage(id uint32, file string) error {
	s, err := w.db.Surface(id)
	if err != nil {
		return err
	}

	if err := surface.ExportFile(file, s, w); err != nil {
		return errors.Wrapf(err, "unable to export surface %#08x", id)
	}
	w.logger.Printf("Exported surface %#08x to \"%s\"\n", id, file)

	return nil
}

// SetSurfacePalette points an existing surface at a palette.
func (w *Writer) SetSurfacePalette(id, palette uint32) error {
	s, err := w.db.Surface(id)
	if err != nil {
		return err
	}
	s.PaletteID, s.HasPalette = palette, true
	return w.Save(s)
}

// AddPalette stores a palette under id.
func (w *Writer) AddPalette(id uint32, p surface.Palette) error {
	if err := w.db.PutPalette(id, p); err != nil {
		return err
	}
	w.logger.Printf("Added palette %#08x with %d colors\n", id, len(p))
	return nil
}

// AddPaletteFromImage stores the palette of a paletted image file, such as a
// GIF or an 8-bit PNG, under id.
func (w *Writer) AddPaletteFromImage(id uint32, file string) error {
	m, _, err := surface.LoadFile(file)
	if err != nil {
		return err
	}

	p, ok := m.ColorModel().(color.Palette)
	if !ok {
		return errors.Errorf("%q is not a paletted image", file)
	}

	return w.AddPalette(id, surface.PaletteFromColors(p))
}

package surface

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ContainerKind is an image file type a surface can be exported as.
type ContainerKind int

// Supported export containers.
const (
	PNG ContainerKind = iota + 1
	JPEG
	GIF
	BMP
)

var extensions = map[string]ContainerKind{
	".png":  PNG,
	".jpg":  JPEG,
	".jpeg": JPEG,
	".gif":  GIF,
	".bmp":  BMP,
}

// KindFromPath picks the container from the file extension.
func KindFromPath(file string) (ContainerKind, error) {
	if k, ok := extensions[strings.ToLower(filepath.Ext(file))]; ok {
		return k, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedContainer, "%q", filepath.Ext(file))
}

// Save writes m to w as the given container kind. GIF output uses a median
// cut palette and no dithering.
func Save(w io.Writer, m image.Image, kind ContainerKind) error {
	var err error
	switch kind {
	case PNG:
		err = png.Encode(w, m)
	case JPEG:
		err = jpeg.Encode(w, m, &jpeg.Options{Quality: JPEGQuality})
	case GIF:
		err = gif.Encode(w, m, &gif.Options{
			NumColors: 256,
			Quantizer: &quantize.MedianCutQuantizer{},
			Drawer:    draw.Src,
		})
	case BMP:
		err = bmp.Encode(w, m)
	default:
		return errors.Wrapf(ErrUnsupportedContainer, "kind %d", kind)
	}
	if err != nil {
		return errors.Wrapf(ErrContainerEncode, "%v", err)
	}
	return nil
}

// Export decodes s and writes it to w as the given container kind.
func Export(w io.Writer, s *Surface, r PaletteResolver, kind ContainerKind) error {
	m, err := Decode(s, r)
	if err != nil {
		return err
	}
	return Save(w, m, kind)
}

// ExportFile decodes s and writes it to the named file, the extension
// selecting the container. Nothing is created if decoding fails.
func ExportFile(file string, s *Surface, r PaletteResolver) (err error) {
	kind, err := KindFromPath(file)
	if err != nil {
		return err
	}

	m, err := Decode(s, r)
	if err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return Save(f, m, kind)
}

package surface

import (
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"io"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP
)

// Load decodes an image in any registered container, which includes BMP, GIF,
// JPEG, PNG and WebP, and returns it along with the container name.
func Load(r io.Reader) (image.Image, string, error) {
	m, kind, err := image.Decode(r)
	if err != nil {
		return nil, "", errors.Wrapf(ErrContainerDecode, "load: %v", err)
	}
	return m, kind, nil
}

// LoadFile is Load for a named file.
func LoadFile(file string) (image.Image, string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	return Load(f)
}

// Resize scales m to width by height.
func Resize(m image.Image, width, height int) *image.NRGBA {
	dst := newRGBA8(width, height)
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Src, nil)
	return dst
}

// ReplaceWith replaces the payload of s with the image read from r, encoded
// using the existing format of s. If resize is set and s has non-zero
// dimensions the image is scaled to fit them, otherwise s adopts the
// dimensions of the image. s is not modified if an error is returned.
func ReplaceWith(s *Surface, r io.Reader, resize bool) error {
	if s == nil {
		return errors.Wrap(ErrMalformedInput, "nil surface")
	}

	src, _, err := Load(r)
	if err != nil {
		return err
	}

	m := ToRGBA8(src)
	if resize && s.Width > 0 && s.Height > 0 {
		m = Resize(m, s.Width, s.Height)
	}

	c, err := EncodeSurface(m, s)
	if err != nil {
		return err
	}
	*s = *c

	return nil
}

// ReplaceWithFile is ReplaceWith for a named file.
func ReplaceWithFile(s *Surface, file string, resize bool) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return ReplaceWith(s, f, resize)
}

package surface

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/bodgit/datsurface/dxt"
	"github.com/pkg/errors"
)

const (
	// JPEGQuality is used when encoding the EmbeddedJPEG format.
	JPEGQuality = jpeg.DefaultQuality

	// BlockQuality is used when encoding the DXT formats.
	BlockQuality = dxt.Balanced

	// MaxJPEGPixels bounds the size of an embedded JPEG stream, checked
	// against its header before any pixel data is decoded.
	MaxJPEGPixels = 1 << 26
)

// Never size the output from the declared surface dimensions; the stream is
// authoritative and declared sizes of 0x0 are common.
func decodeJPEG(b []byte) (*image.NRGBA, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(ErrContainerDecode, "jpeg: %v", err)
	}
	if n, ok := pixelCount(cfg.Width, cfg.Height); !ok || n > MaxJPEGPixels {
		return nil, errors.Wrapf(ErrMalformedInput, "jpeg: %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxJPEGPixels)
	}

	m, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(ErrContainerDecode, "jpeg: %v", err)
	}
	return ToRGBA8(m), nil
}

func encodeJPEG(m image.Image) ([]byte, error) {
	b := new(bytes.Buffer)
	if err := jpeg.Encode(b, m, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, errors.Wrapf(ErrContainerEncode, "jpeg: %v", err)
	}
	return b.Bytes(), nil
}

func decodeBlocks(s *Surface) (*image.NRGBA, error) {
	f, _ := s.Format.blockFormat()
	if _, err := checkSize(s); err != nil {
		return nil, err
	}
	m, err := dxt.Decode(s.Data, s.Width, s.Height, f)
	if err != nil {
		return nil, errors.Wrapf(ErrContainerDecode, "%v: %v", f, err)
	}
	return m, nil
}

// The archive stores raw blocks so the DDS container header is stripped.
func encodeBlocks(m image.Image, pf PixelFormat) ([]byte, error) {
	f, _ := pf.blockFormat()
	c, err := dxt.EncodeContainer(m, f, BlockQuality)
	if err != nil {
		return nil, errors.Wrapf(ErrContainerEncode, "%v: %v", f, err)
	}
	if len(c) < dxt.ContainerHeaderSize {
		return nil, errors.Wrapf(ErrContainerEncode, "%v: container is only %d bytes", f, len(c))
	}
	return append([]byte(nil), c[dxt.ContainerHeaderSize:]...), nil
}

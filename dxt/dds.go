package dxt

import (
	"bytes"
	"encoding/binary"
	"image"
)

const (
	magicSize  = 4
	headerSize = 124

	// ContainerHeaderSize is the number of bytes preceding the block data
	// in a DDS container produced by EncodeContainer; the magic number
	// and the fixed header. The DX10 extension header is never written
	// for DXT1, DXT3 or DXT5.
	ContainerHeaderSize = magicSize + headerSize

	pixelFormatSize = 32
)

// Header flags
const (
	flagCaps        = 0x1
	flagHeight      = 0x2
	flagWidth       = 0x4
	flagPixelFormat = 0x1000
	flagLinearSize  = 0x80000

	pixelFormatFourCC = 0x4
	capsTexture       = 0x1000
)

var magic = [magicSize]byte{'D', 'D', 'S', ' '}

// PixelFormat is the DDS_PIXELFORMAT structure embedded in a Header.
type PixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      [4]byte
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is the DDS_HEADER structure that follows the magic number.
type Header struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

func fourCC(f Format) [4]byte {
	var b [4]byte
	copy(b[:], f.String())
	return b
}

// Format returns the block compression variant named by the header's
// FourCC code.
func (h Header) Format() (Format, error) {
	for _, f := range []Format{DXT1, DXT3, DXT5} {
		if h.PixelFormat.FourCC == fourCC(f) {
			return f, nil
		}
	}
	return 0, ErrUnsupportedFormat
}

func newHeader(width, height int, f Format) Header {
	return Header{
		Size:              headerSize,
		Flags:             flagCaps | flagHeight | flagWidth | flagPixelFormat | flagLinearSize,
		Height:            uint32(height),
		Width:             uint32(width),
		PitchOrLinearSize: uint32(Size(width, height, f)),
		PixelFormat: PixelFormat{
			Size:   pixelFormatSize,
			Flags:  pixelFormatFourCC,
			FourCC: fourCC(f),
		},
		Caps: capsTexture,
	}
}

// ReadHeader parses the magic number and header at the start of b.
func ReadHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < ContainerHeaderSize || !bytes.Equal(b[:magicSize], magic[:]) {
		return h, ErrBadContainer
	}
	if err := binary.Read(bytes.NewReader(b[magicSize:ContainerHeaderSize]), binary.LittleEndian, &h); err != nil {
		return h, err
	}
	if h.Size != headerSize || h.PixelFormat.Size != pixelFormatSize {
		return h, ErrBadContainer
	}
	return h, nil
}

// EncodeContainer compresses m and wraps the block data in a DDS container
// with a single surface and no mipmaps.
func EncodeContainer(m image.Image, f Format, q Quality) ([]byte, error) {
	data, err := Encode(m, f, q)
	if err != nil {
		return nil, err
	}

	b := bytes.NewBuffer(make([]byte, 0, ContainerHeaderSize+len(data)))
	b.Write(magic[:])
	r := m.Bounds()
	if err := binary.Write(b, binary.LittleEndian, newHeader(r.Dx(), r.Dy(), f)); err != nil {
		return nil, err
	}
	b.Write(data)

	return b.Bytes(), nil
}

// DecodeContainer decodes the top level surface of a DDS container.
func DecodeContainer(b []byte) (*image.NRGBA, error) {
	h, err := ReadHeader(b)
	if err != nil {
		return nil, err
	}
	f, err := h.Format()
	if err != nil {
		return nil, err
	}
	return Decode(b[ContainerHeaderSize:], int(h.Width), int(h.Height), f)
}

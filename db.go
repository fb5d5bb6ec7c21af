package datsurface

import (
	"database/sql"
	"encoding/binary"
	"fmt"

	"github.com/bodgit/datsurface/surface"
	"github.com/klauspost/compress/zstd"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Archive is a SQLite-backed store of surfaces and palettes keyed by their
// 32-bit identifiers. Payloads are stored zstd-compressed.
type Archive struct {
	db  *sql.DB
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewArchive opens or creates the archive stored in file.
func NewArchive(file string) (*Archive, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS palette (id INTEGER PRIMARY KEY NOT NULL, colors BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS surface (id INTEGER PRIMARY KEY NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, format INTEGER NOT NULL, palette_id INTEGER, data BLOB NOT NULL, iteration INTEGER NOT NULL DEFAULT 0)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS iteration (id INTEGER PRIMARY KEY CHECK (id = 1), current INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("INSERT OR IGNORE INTO iteration (id, current) VALUES (1, 0)"); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		db.Close()
		return nil, err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, err
	}

	return &Archive{
		db:  db,
		enc: enc,
		dec: dec,
	}, nil
}

// Close closes the underlying database.
func (a *Archive) Close() error {
	a.dec.Close()
	if err := a.enc.Close(); err != nil {
		a.db.Close()
		return err
	}
	return a.db.Close()
}

func (a *Archive) compress(b []byte) []byte {
	return a.enc.EncodeAll(b, make([]byte, 0, len(b)))
}

func (a *Archive) decompress(b []byte) ([]byte, error) {
	out, err := a.dec.DecodeAll(b, nil)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt payload")
	}
	return out, nil
}

// PutSurface inserts or replaces a surface, tagging it with the given
// iteration.
func (a *Archive) PutSurface(s *surface.Surface, iteration int) error {
	var palette sql.NullInt64
	if s.HasPalette {
		palette.Int64 = int64(s.PaletteID)
		palette.Valid = true
	}

	if _, err := a.db.Exec("INSERT OR REPLACE INTO surface (id, width, height, format, palette_id, data, iteration) VALUES (?, ?, ?, ?, ?, ?, ?)", int64(s.ID), s.Width, s.Height, int64(s.Format), palette, a.compress(s.Data), iteration); err != nil {
		return errors.Wrapf(err, "unable to write surface %#08x", s.ID)
	}
	return nil
}

// Surface returns the surface stored under id.
func (a *Archive) Surface(id uint32) (*surface.Surface, error) {
	var (
		width, height int
		format        int64
		palette       sql.NullInt64
		data          []byte
	)
	switch err := a.db.QueryRow("SELECT width, height, format, palette_id, data FROM surface WHERE id = ?", int64(id)).Scan(&width, &height, &format, &palette, &data); err {
	case sql.ErrNoRows:
		return nil, errors.Wrapf(ErrNotFound, "surface %#08x", id)
	case nil:
		b, err := a.decompress(data)
		if err != nil {
			return nil, errors.Wrapf(err, "surface %#08x", id)
		}
		return &surface.Surface{
			ID:         id,
			Width:      width,
			Height:     height,
			Format:     surface.PixelFormat(format),
			PaletteID:  uint32(palette.Int64),
			HasPalette: palette.Valid,
			Data:       b,
		}, nil
	default:
		return nil, err
	}
}

// SurfaceIteration returns the iteration a surface was last written with.
func (a *Archive) SurfaceIteration(id uint32) (int, error) {
	var iteration int
	switch err := a.db.QueryRow("SELECT iteration FROM surface WHERE id = ?", int64(id)).Scan(&iteration); err {
	case sql.ErrNoRows:
		return 0, errors.Wrapf(ErrNotFound, "surface %#08x", id)
	case nil:
		return iteration, nil
	default:
		return 0, err
	}
}

// Palettes are stored as little-endian ARGB words, four bytes per color in
// B, G, R, A order.
func marshalPalette(p surface.Palette) []byte {
	b := make([]byte, 4*len(p))
	for i, c := range p {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(c.Alpha)<<24|uint32(c.Red)<<16|uint32(c.Green)<<8|uint32(c.Blue))
	}
	return b
}

func unmarshalPalette(b []byte) (surface.Palette, error) {
	if len(b)%4 != 0 {
		return nil, errors.New("palette length is not a multiple of 4")
	}
	p := make(surface.Palette, len(b)/4)
	for i := range p {
		v := binary.LittleEndian.Uint32(b[i*4:])
		p[i] = surface.Color{
			Red:   uint8(v >> 16),
			Green: uint8(v >> 8),
			Blue:  uint8(v),
			Alpha: uint8(v >> 24),
		}
	}
	return p, nil
}

// PutPalette inserts or replaces a palette.
func (a *Archive) PutPalette(id uint32, p surface.Palette) error {
	if _, err := a.db.Exec("INSERT OR REPLACE INTO palette (id, colors) VALUES (?, ?)", int64(id), a.compress(marshalPalette(p))); err != nil {
		return errors.Wrapf(err, "unable to write palette %#08x", id)
	}
	return nil
}

// Palette returns the palette stored under id.
func (a *Archive) Palette(id uint32) (surface.Palette, error) {
	var colors []byte
	switch err := a.db.QueryRow("SELECT colors FROM palette WHERE id = ?", int64(id)).Scan(&colors); err {
	case sql.ErrNoRows:
		return nil, errors.Wrapf(ErrNotFound, "palette %#08x", id)
	case nil:
		b, err := a.decompress(colors)
		if err != nil {
			return nil, errors.Wrapf(err, "palette %#08x", id)
		}
		return unmarshalPalette(b)
	default:
		return nil, err
	}
}

// Iteration returns the current archive iteration.
func (a *Archive) Iteration() (int, error) {
	var current int
	if err := a.db.QueryRow("SELECT current FROM iteration WHERE id = 1").Scan(&current); err != nil {
		return 0, err
	}
	return current, nil
}

// SetIteration records the current archive iteration.
func (a *Archive) SetIteration(current int) error {
	_, err := a.db.Exec("UPDATE iteration SET current = ? WHERE id = 1", current)
	return err
}

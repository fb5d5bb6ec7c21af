/*
Package datsurface is a library for maintaining the texture surfaces and
palettes held in a game asset archive.
*/
package datsurface

import (
	"log"
	"sync"

	"github.com/bodgit/datsurface/surface"
	"github.com/pkg/errors"
)

// ErrNotFound is returned when no surface or palette has the requested ID.
var ErrNotFound = errors.New("datsurface: not found")

// Options configures a Writer.
type Options struct {
	// IncreaseIterations bumps the archive iteration once per Writer, on
	// the first save, and tags every saved surface with it.
	IncreaseIterations bool
	// Workers is the number of concurrent encoders used by
	// ImportDirectory. Zero means the default of 10.
	Workers int
}

const defaultWorkers = 10

// Writer adds, updates and exports surfaces in an Archive.
type Writer struct {
	db     *Archive
	logger *log.Logger
	opts   Options

	mu        sync.Mutex
	iteration int
	bumped    bool
}

// New returns a Writer for db. Progress is reported to logger.
func New(db *Archive, logger *log.Logger, opts Options) *Writer {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	return &Writer{
		db:     db,
		logger: logger,
		opts:   opts,
	}
}

// Palette implements surface.PaletteResolver against the archive.
func (w *Writer) Palette(id uint32) (surface.Palette, bool) {
	p, err := w.db.Palette(id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			w.logger.Printf("Unable to load palette %#08x: %v\n", id, err)
		}
		return nil, false
	}
	return p, true
}

func (w *Writer) currentIteration() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.opts.IncreaseIterations {
		return w.db.Iteration()
	}

	if !w.bumped {
		current, err := w.db.Iteration()
		if err != nil {
			return 0, err
		}
		if err := w.db.SetIteration(current + 1); err != nil {
			return 0, err
		}
		w.iteration = current + 1
		w.bumped = true
		w.logger.Printf("Archive iteration increased to %d\n", w.iteration)
	}

	return w.iteration, nil
}

// Save writes s to the archive.
func (w *Writer) Save(s *surface.Surface) error {
	iteration, err := w.currentIteration()
	if err != nil {
		return err
	}
	return w.db.PutSurface(s, iteration)
}

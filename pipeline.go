package datsurface

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/datsurface/surface"
)

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".webp": {},
}

type importJob struct {
	id   uint32
	file string
}

func (w *Writer) findImages(ctx context.Context, base string, first uint32) (<-chan importJob, <-chan error, error) {
	out := make(chan importJob)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		id := first
		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories, otherwise we end up fighting with things like Spotlight, etc.
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			// Ignore anything that isn't a normal file
			if !info.Mode().IsRegular() {
				return nil
			}

			if _, ok := imageExtensions[strings.ToLower(filepath.Ext(file))]; !ok {
				return nil
			}

			select {
			case out <- importJob{id: id, file: file}:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}
			id++

			return nil
		})
	}()
	return out, errc, nil
}

// encodeWorker converts images to surfaces; the codec is stateless so any
// number of these can run at once.
func (w *Writer) encodeWorker(ctx context.Context, wg *sync.WaitGroup, in <-chan importJob, format surface.PixelFormat, out chan<- *surface.Surface) {
	defer wg.Done()
	for job := range in {
		s := &surface.Surface{ID: job.id, Format: format}
		if err := surface.ReplaceWithFile(s, job.file, false); err != nil {
			w.logger.Printf("Skipping \"%s\": %v\n", job.file, err)
			continue
		}

		select {
		case out <- s:
		case <-ctx.Done():
			return
		}
	}
}

// saveWorker sends the number of surfaces written once its input is closed or
// a save fails.
func (w *Writer) saveWorker(in <-chan *surface.Surface) (<-chan int, <-chan error, error) {
	countc := make(chan int, 1)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		var count int
		defer func() {
			countc <- count
			close(countc)
		}()
		for s := range in {
			if err := w.Save(s); err != nil {
				errc <- err
				return
			}
			count++
			w.logger.Printf("Imported surface %#08x (%v %dx%d)\n", s.ID, s.Format, s.Width, s.Height)
		}
	}()
	return countc, errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// ImportDirectory walks path and adds every image found as a new surface in
// the given format. Surfaces are numbered sequentially from first in walk
// order; an image that cannot be loaded or encoded is logged and skipped,
// leaving a gap. It returns the number of surfaces written.
func (w *Writer) ImportDirectory(path string, first uint32, format surface.PixelFormat) (int, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	jobs, errc, err := w.findImages(ctx, dir, first)
	if err != nil {
		return 0, err
	}
	errcList = append(errcList, errc)

	encoded := make(chan *surface.Surface)
	var wg sync.WaitGroup
	wg.Add(w.opts.Workers)
	for i := 0; i < w.opts.Workers; i++ {
		go w.encodeWorker(ctx, &wg, jobs, format, encoded)
	}

	countc, saved, err := w.saveWorker(encoded)
	if err != nil {
		return 0, err
	}
	errcList = append(errcList, saved)

	go func() {
		wg.Wait()
		close(encoded)
	}()

	// On the first error stop the walker and encoders, then wait for the
	// saver so nothing is written after returning.
	err = waitForPipeline(errcList...)
	if err != nil {
		cancelFunc()
	}
	return <-countc, err
}

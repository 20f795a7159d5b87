//go:build unix

package bridge

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const fifoMode = 0o666

// FIFO talks to the decision process over a pair of named pipes. The
// decision process writes to inPath and reads from outPath.
//
// Both pipes are opened read-write so that opening never blocks waiting
// for a peer and the inbound side never sees EOF between writers.
type FIFO struct {
	inPath  string
	outPath string
	logger  zerolog.Logger

	// mu serializes writers. Close and resetOutbound never take it, so a
	// write stuck on a full pipe cannot hold them up.
	mu           sync.Mutex
	out          atomic.Pointer[os.File]
	writeTimeout time.Duration

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
}

// NewFIFO creates both named pipes if they do not exist yet.
func NewFIFO(inPath, outPath string, logger zerolog.Logger) (*FIFO, error) {
	f := &FIFO{
		inPath:  filepath.Clean(inPath),
		outPath: filepath.Clean(outPath),
		logger:  logger.With().Str("component", "bridge").Str("mode", "fifo").Logger(),
		done:    make(chan struct{}),

		writeTimeout: defaultWriteTimeout,
	}
	if err := ensureFIFO(f.inPath); err != nil {
		return nil, err
	}
	if err := ensureFIFO(f.outPath); err != nil {
		return nil, err
	}
	return f, nil
}

// ensureFIFO creates a named pipe at path unless one is already there.
func ensureFIFO(path string) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.Mode()&fs.ModeNamedPipe == 0 {
			return fmt.Errorf("%s exists and is not a named pipe", path)
		}
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := unix.Mkfifo(path, fifoMode); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// reader is one open handle on the inbound pipe and its scanning goroutine.
type reader struct {
	file *os.File
	err  chan error
}

func (f *FIFO) openReader(sink func(string)) (*reader, error) {
	file, err := os.OpenFile(f.inPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.inPath, err)
	}
	r := &reader{file: file, err: make(chan error, 1)}
	go func() {
		err := scanLines(file, sink)
		if err == nil {
			err = errors.New("unexpected end of pipe")
		}
		r.err <- err
	}()
	return r, nil
}

// stop closes the handle and waits for its goroutine.
func (r *reader) stop() {
	r.file.Close()
	<-r.err
}

// Listen reads inbound lines until ctx is cancelled or Close is called.
// If either pipe is removed it is recreated.
func (f *FIFO) Listen(ctx context.Context, sink func(string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]bool{filepath.Dir(f.inPath): true, filepath.Dir(f.outPath): true}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	r, err := f.openReader(sink)
	if err != nil {
		return err
	}
	f.logger.Info().Str("in", f.inPath).Str("out", f.outPath).Msg("listening on named pipes")

	for {
		select {
		case <-ctx.Done():
			r.stop()
			return nil

		case <-f.done:
			r.stop()
			return nil

		case err := <-r.err:
			r.file.Close()
			return fmt.Errorf("read %s: %w", f.inPath, err)

		case event, ok := <-watcher.Events:
			if !ok {
				r.stop()
				return nil
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			switch filepath.Clean(event.Name) {
			case f.inPath:
				f.logger.Warn().Str("path", f.inPath).Msg("inbound pipe removed, recreating")
				r.stop()
				if err := ensureFIFO(f.inPath); err != nil {
					return err
				}
				if r, err = f.openReader(sink); err != nil {
					return err
				}
			case f.outPath:
				f.logger.Warn().Str("path", f.outPath).Msg("outbound pipe removed, recreating")
				if err := f.resetOutbound(); err != nil {
					return err
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				r.stop()
				return nil
			}
			f.logger.Error().Err(err).Msg("pipe watcher error")
		}
	}
}

// resetOutbound drops the current outbound handle and recreates the pipe.
// The next Write opens it again.
func (f *FIFO) resetOutbound() error {
	if out := f.out.Swap(nil); out != nil {
		out.Close()
	}
	return ensureFIFO(f.outPath)
}

// dropOutbound forgets out if it is still the current handle and closes it.
func (f *FIFO) dropOutbound(out *os.File) {
	f.out.CompareAndSwap(out, nil)
	out.Close()
}

// Write sends one newline-terminated line to the outbound pipe. A write
// that cannot complete within the write timeout fails, since the decision
// process has stopped reading.
func (f *FIFO) Write(line string) error {
	if f.closed.Load() {
		return ErrClosed
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.out.Load()
	if out == nil {
		opened, err := os.OpenFile(f.outPath, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("open %s: %w", f.outPath, err)
		}
		f.out.Store(opened)
		out = opened
		if f.closed.Load() {
			f.dropOutbound(out)
			return ErrClosed
		}
	}

	out.SetWriteDeadline(time.Now().Add(f.writeTimeout))
	if _, err := out.WriteString(line + "\n"); err != nil {
		f.dropOutbound(out)
		if f.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("write %s: %w", f.outPath, err)
	}
	return nil
}

// Close stops Listen and closes the outbound pipe, failing any write in
// progress. The pipe files are left in place for the next run.
func (f *FIFO) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.closed.Store(true)
		close(f.done)
		if out := f.out.Swap(nil); out != nil {
			err = out.Close()
		}
	})
	return err
}

//go:build !unix

package bridge

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

var errNoFIFO = errors.New("bridge: named pipes require a unix system")

// FIFO is unavailable on this platform; use the process bridge.
type FIFO struct{}

func NewFIFO(inPath, outPath string, logger zerolog.Logger) (*FIFO, error) {
	return nil, errNoFIFO
}

func (f *FIFO) Listen(ctx context.Context, sink func(string)) error { return errNoFIFO }
func (f *FIFO) Write(line string) error                             { return errNoFIFO }
func (f *FIFO) Close() error                                        { return nil }

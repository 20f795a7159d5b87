// Package bridge connects the session to the external decision process.
// The decision process receives the battle log one line at a time and
// answers with team specs and commands, also one per line.
package bridge

import (
	"bufio"
	"context"
	"errors"
	"io"
	"time"
)

const (
	defaultScannerBufSize = 1024 * 1024 // 1 MB
	// defaultWriteTimeout bounds a write to a decision process that has
	// stopped reading.
	defaultWriteTimeout = 5 * time.Second
)

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("bridge: closed")
	// ErrProcessExited is returned by Listen when the decision process
	// stops on its own.
	ErrProcessExited = errors.New("bridge: decision process exited")
)

// Bridge is a line-oriented duplex channel to the decision process.
type Bridge interface {
	// Listen delivers each inbound line to sink until ctx is cancelled or
	// the bridge fails. It returns nil on cancellation.
	Listen(ctx context.Context, sink func(line string)) error
	// Write sends one line. It is safe for concurrent use.
	Write(line string) error
	Close() error
}

// scanLines feeds every line of r to sink and returns the scanner error,
// if any. A clean EOF returns nil.
func scanLines(r io.Reader, sink func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), defaultScannerBufSize)
	for scanner.Scan() {
		sink(scanner.Text())
	}
	return scanner.Err()
}

// Package logging builds the log output shared by every component.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure the log output.
type Options struct {
	// File, if set, receives a copy of every line and is rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stderr defaults to os.Stderr.
	Stderr io.Writer
}

// Output is the shared log destination.
type Output struct {
	w    io.Writer
	file *lumberjack.Logger
}

// New opens the log output. Close releases the log file, if any.
func New(opts Options) (*Output, error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	out := &Output{w: stderr}
	if opts.File == "" {
		return out, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return nil, err
	}
	out.file = &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}
	out.w = io.MultiWriter(stderr, out.file)
	return out, nil
}

// Logger returns a logger writing to the output with a "[component] "
// prefix and timestamps.
func (o *Output) Logger(component string) *log.Logger {
	return log.New(o.w, "["+component+"] ", log.LstdFlags)
}

// Writer returns the underlying writer.
func (o *Output) Writer() io.Writer {
	return o.w
}

// Close closes the log file.
func (o *Output) Close() error {
	if o.file == nil {
		return nil
	}
	return o.file.Close()
}

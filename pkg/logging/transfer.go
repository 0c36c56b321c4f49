package logging

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

// NewTransferWriter returns the writer for raw rsync output. That stream is
// far too chatty for the run log, so it goes to its own file with size-based
// rotation instead of the line cap.
func NewTransferWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 3,
		Compress:   true,
	}
}

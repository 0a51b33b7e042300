package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

const maxLogSize = 10 * 1024 * 1024 // 10MB before rotation

// logSink holds log output while the screen owns the terminal
type logSink struct {
	buf  *bytes.Buffer
	file *os.File
}

// setupLogging routes the standard logger to path, or to a memory buffer
// flushed after the screen is released when path is empty
func setupLogging(path string) (*logSink, error) {
	if path == "" {
		buf := &bytes.Buffer{}
		log.SetOutput(buf)
		return &logSink{buf: buf}, nil
	}

	rotateLog(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	return &logSink{file: f}, nil
}

// rotateLog moves an oversized log aside with a timestamp suffix
func rotateLog(path string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() <= maxLogSize {
		return
	}
	rotated := fmt.Sprintf("%s.%s.log", path, time.Now().Format("20060102-150405"))
	_ = os.Rename(path, rotated)
}

// Flush writes buffered output to w and sends later output there directly
func (s *logSink) Flush(w io.Writer) {
	if s.buf == nil {
		return
	}
	_, _ = s.buf.WriteTo(w)
	log.SetOutput(w)
	s.buf = nil
}

// Close releases the log file, if any
func (s *logSink) Close() error {
	if s.file == nil {
		return nil
	}
	log.SetOutput(os.Stderr)
	err := s.file.Close()
	s.file = nil
	return err
}

package main

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogging_BufferedByDefault(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	logs, err := setupLogging("")
	if err != nil {
		t.Fatal(err)
	}
	defer logs.Close()

	// Verify log output is held back from stdout and stderr
	output := log.Writer()
	if output == os.Stdout || output == os.Stderr {
		t.Error("Log output should not reach the terminal while the screen is active")
	}

	log.Println("held message")

	var out bytes.Buffer
	logs.Flush(&out)
	if !strings.Contains(out.String(), "held message") {
		t.Errorf("Flush did not replay buffered output: %q", out.String())
	}

	// After flush, output goes straight to the flush target
	log.Println("direct message")
	if !strings.Contains(out.String(), "direct message") {
		t.Error("Expected later output to be written directly")
	}
}

func TestSetupLogging_File(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	path := filepath.Join(t.TempDir(), "asciiplay.log")

	logs, err := setupLogging(path)
	if err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}

	log.Println("Test log message")
	if err := logs.Close(); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat log file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected log file to contain content")
	}
}

func TestSetupLogging_Rotation(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	dir := t.TempDir()
	logPath := filepath.Join(dir, "asciiplay.log")

	// Write just over the rotation limit
	if err := os.WriteFile(logPath, make([]byte, maxLogSize+1), 0o644); err != nil {
		t.Fatalf("Failed to write large log file: %v", err)
	}

	logs, err := setupLogging(logPath)
	if err != nil {
		t.Fatal(err)
	}
	defer logs.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read log directory: %v", err)
	}
	rotatedFound := false
	for _, entry := range entries {
		if entry.Name() != filepath.Base(logPath) && filepath.Ext(entry.Name()) == ".log" {
			rotatedFound = true
			break
		}
	}
	if !rotatedFound {
		t.Error("Expected to find rotated log file")
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Failed to stat new log file: %v", err)
	}
	if info.Size() > maxLogSize {
		t.Errorf("Expected new log file to be smaller than %d bytes, got %d", maxLogSize, info.Size())
	}
}

func TestSetupLogging_BadPath(t *testing.T) {
	defer log.SetOutput(os.Stderr)
	if _, err := setupLogging(filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Error("Expected error for unwritable log path")
	}
}

package media

import (
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"

	"github.com/lixenwraith/asciiplay/palette"
)

// shellPipe starts a shell script standing in for the decoder, 2x1 frames
func shellPipe(t *testing.T, script string) *FFmpegSource {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	s, err := startPipe(exec.Command(sh, "-c", script), "clip", Info{Width: 2, Height: 1}, 2, 1)
	if err != nil {
		t.Fatalf("startPipe failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPipeSourceCleanEnd(t *testing.T) {
	s := shellPipe(t, "printf 'aaabbb'")
	f := NewFrame(2, 1)

	if err := s.Next(f); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if f.Colors.Pix[1] != (palette.RGB{R: 'b', G: 'b', B: 'b'}) {
		t.Errorf("Unexpected pixel %v", f.Colors.Pix[1])
	}
	if err := s.Next(f); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
	// Repeated reads stay at end of stream
	if err := s.Next(f); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF again, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close returned %v", err)
	}
}

func TestPipeSourceDecoderFailure(t *testing.T) {
	s := shellPipe(t, "printf 'aaabbbcc'; echo 'corrupt packet' >&2; exit 3")
	f := NewFrame(2, 1)

	if err := s.Next(f); err != nil {
		t.Fatalf("First frame should decode, got %v", err)
	}

	err := s.Next(f)
	if err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("Expected decoder failure, got %v", err)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("Expected exit status 3, got %v", err)
	}
	if !strings.Contains(err.Error(), "corrupt packet") {
		t.Errorf("Decoder message missing from %q", err)
	}
	if s.Position() != 1 {
		t.Errorf("Position = %d, want 1", s.Position())
	}
}

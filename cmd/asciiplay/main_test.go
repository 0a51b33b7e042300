package main

import (
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/asciiplay/config"
	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/palette"
	"github.com/lixenwraith/asciiplay/render"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("asciiplay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseConfigFlagsOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("width: 60\nfps: 15\ncolor: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := parseConfig(newFlagSet(), []string{
		"-config", cfgPath, "-width", "100", "-inv", "-method", "dominant", "-no-audio", "clip.mp4",
	})
	if err != nil {
		t.Fatalf("parseConfig failed: %v", err)
	}

	if path != "clip.mp4" {
		t.Errorf("path = %q", path)
	}
	if cfg.Width != 100 {
		t.Errorf("Width = %d, flag should win over file", cfg.Width)
	}
	if cfg.FPS != 15 || !cfg.Color {
		t.Errorf("Unset flags should keep file values: fps %v color %v", cfg.FPS, cfg.Color)
	}
	if !cfg.Invert || cfg.Palette.Method != "dominant" || cfg.Audio.Enabled {
		t.Errorf("Flags not applied: %+v", cfg)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	cfg, _, err := parseConfig(newFlagSet(), []string{"movie.mkv"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 120 || cfg.Color || cfg.Invert {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing_path", nil},
		{"bad_width", []string{"-width", "0", "a.mp4"}},
		{"bad_method", []string{"-method", "octree", "a.mp4"}},
		{"missing_config", []string{"-config", "/nonexistent/asciiplay.yaml", "a.mp4"}},
		{"unknown_flag", []string{"-zoom", "2", "a.mp4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := parseConfig(newFlagSet(), tt.args); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestIsStopKey(t *testing.T) {
	tests := []struct {
		name string
		ev   *tcell.EventKey
		want bool
	}{
		{"q", tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone), true},
		{"Q", tcell.NewEventKey(tcell.KeyRune, 'Q', tcell.ModNone), true},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), true},
		{"ctrl_c", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), true},
		{"space", tcell.NewEventKey(tcell.KeyRune, ' ', tcell.ModNone), false},
		{"enter", tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), false},
	}
	for _, tt := range tests {
		if got := isStopKey(tt.ev); got != tt.want {
			t.Errorf("isStopKey(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsGIF(t *testing.T) {
	for path, want := range map[string]bool{
		"a.gif":         true,
		"dir/B.GIF":     true,
		"clip.mp4":      false,
		"gif":           false,
		"archive.gif.x": false,
	} {
		if got := isGIF(path); got != want {
			t.Errorf("isGIF(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	if ov, err := loadOverlay(""); ov != nil || err != nil {
		t.Errorf("Empty path should yield no overlay, got %v %v", ov, err)
	}

	path := filepath.Join(t.TempDir(), "mark.txt")
	if err := os.WriteFile(path, []byte("hello\nworld\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ov, err := loadOverlay(path)
	if err != nil {
		t.Fatal(err)
	}
	if ov.Height() != 2 {
		t.Errorf("Overlay height = %d, want 2", ov.Height())
	}

	if _, err := loadOverlay(path + ".missing"); err == nil {
		t.Error("Expected error for missing overlay file")
	}
}

// stillSource is a one-frame source for palette bootstrap
type stillSource struct {
	frame *media.Frame
}

func (s *stillSource) Next(f *media.Frame) error { return io.EOF }
func (s *stillSource) Position() int              { return 0 }
func (s *stillSource) Seek(int) error             { return nil }
func (s *stillSource) Size() (int, int)           { return s.frame.Size() }
func (s *stillSource) FPS() float64               { return 0 }
func (s *stillSource) Close() error               { return nil }
func (s *stillSource) SampleFrames(n int) ([]*media.Frame, error) {
	return []*media.Frame{s.frame}, nil
}

func TestBuildPaletteOnSimulationScreen(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("Failed to init screen: %v", err)
	}
	defer screen.Fini()

	frame := media.NewFrame(8, 4)
	for i := range frame.Colors.Pix {
		frame.Colors.Pix[i] = palette.RGB{R: uint8(i * 8), G: 90, B: 200}
	}

	cfg := config.Default()
	sink := render.NewScreenSink(screen)
	ix := buildPalette(cfg, &stillSource{frame: frame}, sink)

	if screen.Colors() < cfg.Palette.StartSlot+cfg.Palette.MinSlots {
		if ix != nil {
			t.Error("Expected color to be disabled on a small terminal")
		}
		return
	}
	if ix == nil {
		t.Fatal("Expected a palette index")
	}
	if ix.Len() < len(palette.BaseColors()) {
		t.Errorf("Palette has %d entries, expected at least the base set", ix.Len())
	}
	if _, err := ix.Lookup(frame.Colors.Pix[0]); err != nil {
		t.Errorf("Lookup failed: %v", err)
	}
}

func TestBuildPaletteTooFewSlots(t *testing.T) {
	log.SetOutput(io.Discard)
	defer log.SetOutput(os.Stderr)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	defer screen.Fini()

	cfg := config.Default()
	cfg.Palette.MinSlots = screen.Colors() + 1
	cfg.Palette.MaxSlots = 0

	ix := buildPalette(cfg, &stillSource{frame: media.NewFrame(2, 2)}, render.NewScreenSink(screen))
	if ix != nil {
		t.Error("Expected nil index when the terminal cannot offer enough slots")
	}
}

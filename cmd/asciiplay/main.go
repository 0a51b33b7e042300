package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/asciiplay/audio"
	"github.com/lixenwraith/asciiplay/config"
	"github.com/lixenwraith/asciiplay/engine"
	"github.com/lixenwraith/asciiplay/glyph"
	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/palette"
	"github.com/lixenwraith/asciiplay/render"
)

func main() {
	cfg, path, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	stats, err := run(cfg, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Finished. Average playback was around %.0f FPS.\n", stats.MeasuredFPS)
}

// parseConfig layers the config file, environment and explicitly set flags
func parseConfig(fs *flag.FlagSet, args []string) (*config.Config, string, error) {
	var (
		configPath = fs.String("config", "", "YAML config file")
		width      = fs.Int("width", 120, "Output width in columns")
		fps        = fs.Float64("fps", 0, "Frames per second, 0 follows the source")
		invert     = fs.Bool("inv", false, "Invert the shades")
		color      = fs.Bool("color", false, "Print colors if available (slower)")
		embed      = fs.String("embed", "", "Text file drawn over the bottom-right corner")
		logFile    = fs.String("log", "", "Write logs to file instead of stderr after exit")
		method     = fs.String("method", "", "Palette method: kmeans, dominant")
		noAudio    = fs.Bool("no-audio", false, "Play without sound")
	)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: asciiplay [options] <video>\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, "", errors.New("missing video path")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, "", err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Width = *width
		case "fps":
			cfg.FPS = *fps
		case "inv":
			cfg.Invert = *invert
		case "color":
			cfg.Color = *color
		case "embed":
			cfg.Overlay = *embed
		case "log":
			cfg.LogFile = *logFile
		case "method":
			cfg.Palette.Method = *method
		case "no-audio":
			cfg.Audio.Enabled = !*noAudio
		}
	})

	if err := config.Validate(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, fs.Arg(0), nil
}

// run plays path to completion or until stopped
func run(cfg *config.Config, path string) (stats engine.Stats, err error) {
	logs, err := setupLogging(cfg.LogFile)
	if err != nil {
		return stats, err
	}
	defer logs.Close()
	// Buffered logs reach the terminal only after the screen is released
	defer logs.Flush(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ramp, err := glyph.New(cfg.Ramp)
	if err != nil {
		return stats, err
	}
	if cfg.Invert {
		ramp.Invert()
	}

	overlay, err := loadOverlay(cfg.Overlay)
	if err != nil {
		log.Printf("Overlay not loaded: %v", err)
	}

	src, err := openSource(ctx, path, cfg.Width, cfg.CharAspect)
	if err != nil {
		return stats, fmt.Errorf("open %s: %w", path, err)
	}
	defer src.Close()

	track, cleanupAudio := openAudio(ctx, cfg, path)
	defer cleanupAudio()

	screen, err := tcell.NewScreen()
	if err != nil {
		return stats, err
	}
	if err := screen.Init(); err != nil {
		return stats, fmt.Errorf("failed to initialize terminal: %w", err)
	}
	// Restore the terminal even if playback panics
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("player crashed: %v\n%s", r, debug.Stack())
		}
	}()
	defer screen.Fini()

	sink := render.NewScreenSink(screen)
	sink.Clear()

	var index *palette.Index
	if cfg.Color {
		index = buildPalette(cfg, src, sink)
	}
	comp := render.NewCompositor(ramp, index)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go watchKeys(screen, cancel)

	var ref engine.Reference
	if track != nil {
		if err := track.Play(); err != nil {
			log.Printf("Audio playback failed: %v (continuing without audio)", err)
		} else {
			ref = track
		}
	}

	clock := engine.NewClock(engine.ClockConfig{
		TargetFPS: cfg.FPS,
		SourceFPS: src.FPS(),
		Reference: ref,
	})
	session := engine.NewSession(src, comp, overlay, sink, clock)
	return session.Run(ctx)
}

// openAudio extracts and opens the soundtrack. Failure leaves video-only
// playback; the returned cleanup is always safe to call.
func openAudio(ctx context.Context, cfg *config.Config, path string) (*audio.Track, func()) {
	noop := func() {}
	if !cfg.Audio.Enabled || isGIF(path) {
		return nil, noop
	}

	dir, err := os.MkdirTemp("", "asciiplay-")
	if err != nil {
		log.Printf("Audio initialization failed: %v", err)
		return nil, noop
	}
	cleanup := func() { os.RemoveAll(dir) }

	wav, err := media.ExtractAudio(ctx, path, dir)
	if err != nil {
		log.Printf("Audio initialization failed: %v", err)
		return nil, cleanup
	}
	track, err := audio.Open(wav, cfg.Audio)
	if err != nil {
		log.Printf("Audio initialization failed: %v", err)
		return nil, cleanup
	}
	return track, func() {
		track.Close()
		cleanup()
	}
}

// buildPalette samples the source and registers colors with the screen.
// Any failure is logged once and playback continues without color.
func buildPalette(cfg *config.Config, src videoSource, host palette.Host) *palette.Index {
	b, err := cfg.Builder()
	if err != nil {
		log.Printf("Color disabled: %v", err)
		return nil
	}
	rng := rand.New(rand.NewSource(1))
	b.Rand = rng

	samples, err := media.SampleSource(src, cfg.Palette.SampleFrames, cfg.Palette.SamplesPerFrame, rng)
	if err != nil {
		log.Printf("Palette sampling incomplete: %v", err)
	}

	entries, err := b.Build(samples, host)
	if err != nil {
		var capErr *palette.CapacityError
		if errors.As(err, &capErr) {
			log.Printf("Color disabled: terminal offers %d color slots, %d required", capErr.Available, capErr.Required)
		} else {
			log.Printf("Color disabled: %v", err)
		}
		return nil
	}
	return palette.NewIndex(entries, cfg.Palette.CacheSize)
}

// watchKeys cancels playback on q, Esc or Ctrl+C. Returns when the screen is finalized.
func watchKeys(screen tcell.Screen, cancel context.CancelFunc) {
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		if key, ok := ev.(*tcell.EventKey); ok && isStopKey(key) {
			cancel()
			return
		}
	}
}

func isStopKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

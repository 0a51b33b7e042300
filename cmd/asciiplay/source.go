package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/lixenwraith/asciiplay/engine"
	"github.com/lixenwraith/asciiplay/media"
	"github.com/lixenwraith/asciiplay/render"
)

// videoSource is what the player needs from a decoder
type videoSource interface {
	engine.FrameSource
	media.Sampler
	FPS() float64
	Close() error
}

// isGIF reports whether path should be decoded in-process
func isGIF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gif")
}

// openSource picks the decoder by file extension
func openSource(ctx context.Context, path string, width int, charAspect float64) (videoSource, error) {
	if isGIF(path) {
		src, err := media.OpenGIF(path, width, charAspect)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := media.OpenFFmpeg(ctx, path, width, charAspect)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// loadOverlay reads the overlay text file; an empty path yields no overlay
func loadOverlay(path string) (*render.Overlay, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return render.NewOverlay(string(data)), nil
}

package media

import (
	"math/rand"

	"github.com/lixenwraith/asciiplay/palette"
)

const (
	// DefaultSampleFrames is the number of frames read for palette bootstrap
	DefaultSampleFrames = 30
	// DefaultSamplesPerFrame caps pixels taken from each sampled frame
	DefaultSamplesPerFrame = 1000
)

// Sampler is a source that can supply frames spread across the stream
type Sampler interface {
	SampleFrames(n int) ([]*Frame, error)
}

// CollectSamples draws up to perFrame distinct pixel positions from each frame
// without replacement. A nil rng uses a fixed seed.
func CollectSamples(frames []*Frame, perFrame int, rng *rand.Rand) []palette.RGB {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	var out []palette.RGB
	var order []int
	for _, f := range frames {
		n := len(f.Colors.Pix)
		if n == 0 || perFrame <= 0 {
			continue
		}
		take := min(perFrame, n)

		if cap(order) < n {
			order = make([]int, n)
		}
		order = order[:n]
		for i := range order {
			order[i] = i
		}
		// Partial Fisher-Yates, first take positions are the sample
		for i := 0; i < take; i++ {
			j := i + rng.Intn(n-i)
			order[i], order[j] = order[j], order[i]
			out = append(out, f.Colors.Pix[order[i]])
		}
	}
	return out
}

// SampleSource reads frames from src and collects palette samples.
// An error from the sampler is returned with whatever was gathered.
func SampleSource(src Sampler, frames, perFrame int, rng *rand.Rand) ([]palette.RGB, error) {
	fs, err := src.SampleFrames(frames)
	return CollectSamples(fs, perFrame, rng), err
}

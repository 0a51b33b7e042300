package palette

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"math/rand"
	"slices"
	"strings"

	"github.com/cenkalti/dominantcolor"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

const (
	DefaultStartSlot  = 16    // Leave the 16 standard terminal colors untouched
	DefaultMaxSlots   = 240   // Upper bound on custom slots regardless of host
	DefaultMinSlots   = 16    // Below this color mode is not worth it
	DefaultMaxSamples = 12000 // Subsample cap to keep clustering tractable
)

// Method selects how data-driven colors are derived from samples
type Method uint8

const (
	MethodKMeans Method = iota
	MethodDominant
)

// String returns the config name of the method
func (m Method) String() string {
	switch m {
	case MethodDominant:
		return "dominant"
	default:
		return "kmeans"
	}
}

// ParseMethod accepts "kmeans" or "dominant"
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kmeans", "k-means":
		return MethodKMeans, nil
	case "dominant", "dominantcolor":
		return MethodDominant, nil
	}
	return MethodKMeans, fmt.Errorf("unknown palette method %q", s)
}

// Entry binds a palette color to a host slot
type Entry struct {
	Color RGB
	Slot  int
}

// Host is the display's color registration surface
type Host interface {
	Colors() int
	ColorPairs() int
	RegisterColor(slot int, c RGB) error
}

// Builder produces a palette combining clustered sample colors with the base set
type Builder struct {
	Base       []RGB // Priority order, always kept ahead of clustered colors
	StartSlot  int
	MaxSlots   int
	MinSlots   int
	MaxSamples int
	Method     Method
	Rand       *rand.Rand // Subsampling source, nil uses a fixed seed
}

// NewBuilder creates a builder with default limits
func NewBuilder() *Builder {
	return &Builder{
		Base:       BaseColors(),
		StartSlot:  DefaultStartSlot,
		MaxSlots:   DefaultMaxSlots,
		MinSlots:   DefaultMinSlots,
		MaxSamples: DefaultMaxSamples,
		Method:     MethodKMeans,
	}
}

// Capacity returns the number of slots the host can offer this builder
func (b *Builder) Capacity(h Host) int {
	n := min(h.Colors(), h.ColorPairs()) - b.StartSlot
	if b.MaxSlots > 0 && n > b.MaxSlots {
		n = b.MaxSlots
	}
	return max(n, 0)
}

// Plan computes the palette colors for a given capacity without touching a host.
// Base colors come first in priority order, followed by clustered colors ordered
// by cluster population. Exact duplicates resolve in favor of the base set.
// A capacity below the base set keeps only its highest-priority colors.
func (b *Builder) Plan(samples []RGB, capacity int) []RGB {
	capacity = max(capacity, 0)
	unique := Dedup(samples)

	k := max(capacity-len(b.Base), 0)
	var data []RGB
	if k > 0 && len(unique) > 0 {
		data = b.cluster(unique, min(k, len(unique)))
	}

	out := make([]RGB, 0, capacity)
	seen := make(map[uint32]struct{}, capacity)
	add := func(c RGB) {
		if len(out) >= capacity {
			return
		}
		if _, dup := seen[c.key()]; dup {
			return
		}
		seen[c.key()] = struct{}{}
		out = append(out, c)
	}

	for _, c := range b.Base {
		add(c)
	}
	for _, c := range data {
		add(c)
	}
	return out
}

// Build plans a palette sized to the host and registers each color in a
// sequential slot starting at StartSlot. A host offering fewer than MinSlots
// yields a CapacityError. Registration stops at the first slot the host
// cannot accept; the entries registered so far are returned.
func (b *Builder) Build(samples []RGB, h Host) ([]Entry, error) {
	capacity := b.Capacity(h)
	if capacity < b.MinSlots {
		return nil, &CapacityError{Available: capacity, Required: b.MinSlots}
	}
	colors := b.Plan(samples, capacity)

	limit := min(h.Colors(), h.ColorPairs())
	entries := make([]Entry, 0, len(colors))
	slot := b.StartSlot
	for _, c := range colors {
		if slot >= limit {
			break
		}
		if err := h.RegisterColor(slot, c); err != nil {
			log.Printf("palette: slot %d rejected %s: %v", slot, c.Hex(), err)
			break
		}
		entries = append(entries, Entry{Color: c, Slot: slot})
		slot++
	}

	log.Printf("palette: %d colors registered from %d samples (%s)", len(entries), len(samples), b.Method)
	return entries, nil
}

// cluster derives k representative colors from distinct samples
func (b *Builder) cluster(unique []RGB, k int) []RGB {
	// Every distinct sample is its own centroid
	if k >= len(unique) {
		return slices.Clone(unique)
	}

	points := b.subsample(unique)
	k = min(k, len(points))

	if b.Method == MethodDominant {
		return dominantColors(points, k)
	}

	colors, err := kmeansColors(points, k)
	if err != nil || len(colors) == 0 {
		log.Printf("palette warning: kmeans failed (%v), falling back to dominantcolor", err)
		return dominantColors(points, k)
	}
	return colors
}

// subsample caps the clustering input at MaxSamples
func (b *Builder) subsample(points []RGB) []RGB {
	if b.MaxSamples <= 0 || len(points) <= b.MaxSamples {
		return points
	}
	rng := b.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	out := make([]RGB, 0, b.MaxSamples)
	for _, i := range rng.Perm(len(points))[:b.MaxSamples] {
		out = append(out, points[i])
	}
	return out
}

// kmeansColors clusters in normalized RGB and returns centroids ordered by population.
// kmeans seeds its centers from the global math/rand source, so the clustered
// colors may differ between runs even for identical samples.
func kmeansColors(points []RGB, k int) ([]RGB, error) {
	dataset := make(clusters.Observations, 0, len(points))
	for _, p := range points {
		dataset = append(dataset, clusters.Coordinates{
			float64(p.R) / 255.0,
			float64(p.G) / 255.0,
			float64(p.B) / 255.0,
		})
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, k)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	out := make([]RGB, 0, len(cc))
	for _, c := range cc {
		n := len(c.Observations)
		if n == 0 {
			continue
		}
		// Centroid from members; an unmoved center can still hold its random seed
		var r, g, bl float64
		for _, o := range c.Observations {
			coords := o.Coordinates()
			r += coords[0]
			g += coords[1]
			bl += coords[2]
		}
		fn := float64(n)
		out = append(out, fromUnit(r/fn, g/fn, bl/fn))
	}
	return out, nil
}

// dominantColors packs samples into a square image for dominantcolor
func dominantColors(points []RGB, k int) []RGB {
	if len(points) == 0 || k <= 0 {
		return nil
	}

	side := int(math.Ceil(math.Sqrt(float64(len(points)))))
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for i := 0; i < side*side; i++ {
		p := points[i%len(points)]
		img.SetNRGBA(i%side, i/side, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
	}

	found := dominantcolor.FindWeight(img, k)
	slices.SortStableFunc(found, func(a, b dominantcolor.Color) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})

	out := make([]RGB, 0, len(found))
	for _, c := range found {
		out = append(out, RGB{c.RGBA.R, c.RGBA.G, c.RGBA.B})
	}
	return out
}

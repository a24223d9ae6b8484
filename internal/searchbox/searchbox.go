// Package searchbox chooses the axis-aligned search volume handed to
// the docking engine for each receptor.
package searchbox

import (
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pdbqt"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// Provenance records how a box was chosen, so results can distinguish
// a curated box from a computed one and a computed one from the
// no-data fallback.
type Provenance int

const (
	Computed Provenance = iota
	Default
	Manual
)

func (p Provenance) String() string {
	switch p {
	case Computed:
		return "computed"
	case Default:
		return "default"
	case Manual:
		return "manual"
	default:
		return "unknown"
	}
}

// Box is a docking search volume.
type Box struct {
	Center     r3.Vec
	Size       r3.Vec
	Provenance Provenance
}

// Options tune box computation.
type Options struct {
	Margin  float64 // padding added to each axis extent
	MinSize float64 // smallest usable box edge
	MaxSize float64 // largest box edge vina searches efficiently
}

// DefaultOptions returns the stock margin and clamp bounds.
func DefaultOptions() Options {
	return Options{Margin: 8.0, MinSize: 20.0, MaxSize: 28.0}
}

// DefaultBox is the fallback when a receptor yields no coordinates.
func DefaultBox() Box {
	return Box{
		Size:       r3.Vec{X: 24, Y: 24, Z: 24},
		Provenance: Default,
	}
}

// Compute derives a box from receptor coordinates: per axis the center
// is the midpoint of the extremes and the edge is the extent plus
// margin, clamped to [MinSize, MaxSize]. No coordinates yields
// DefaultBox.
func Compute(coords []r3.Vec, opts Options) Box {
	if len(coords) == 0 {
		return DefaultBox()
	}

	lo, hi := coords[0], coords[0]
	for _, c := range coords[1:] {
		lo.X = math.Min(lo.X, c.X)
		lo.Y = math.Min(lo.Y, c.Y)
		lo.Z = math.Min(lo.Z, c.Z)
		hi.X = math.Max(hi.X, c.X)
		hi.Y = math.Max(hi.Y, c.Y)
		hi.Z = math.Max(hi.Z, c.Z)
	}

	return Box{
		Center: r3.Scale(0.5, r3.Add(lo, hi)),
		Size: r3.Vec{
			X: clamp(hi.X-lo.X+opts.Margin, opts.MinSize, opts.MaxSize),
			Y: clamp(hi.Y-lo.Y+opts.Margin, opts.MinSize, opts.MaxSize),
			Z: clamp(hi.Z-lo.Z+opts.Margin, opts.MinSize, opts.MaxSize),
		},
		Provenance: Computed,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolver picks the box for each receptor: a manual entry wins
// verbatim, otherwise the box is computed from the receptor file once
// and reused for every ligand docked against it.
type Resolver struct {
	fs     fsutil.FileSystem
	opts   Options
	manual map[string]Box
	cache  map[string]Box
}

// NewResolver builds a Resolver. Entries in manual are returned
// as-is, never blended with computed values.
func NewResolver(fs fsutil.FileSystem, opts Options, manual map[string]Box) *Resolver {
	return &Resolver{
		fs:     fs,
		opts:   opts,
		manual: manual,
		cache:  make(map[string]Box),
	}
}

// BoxFor returns the search box for the receptor stored at path.
func (r *Resolver) BoxFor(receptor, path string, log runlog.Logger) (Box, error) {
	if box, ok := r.manual[receptor]; ok {
		box.Provenance = Manual
		return box, nil
	}
	if box, ok := r.cache[path]; ok {
		return box, nil
	}

	coords, _, err := pdbqt.ReadCoordinatesFile(r.fs, path)
	if err != nil {
		return Box{}, err
	}

	box := Compute(coords, r.opts)
	if box.Provenance == Default {
		log.Printf("[WARN] No atom coordinates parsed from %s; using default search box", filepath.Base(path))
	}
	r.cache[path] = box
	return box, nil
}

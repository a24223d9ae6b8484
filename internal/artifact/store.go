// Package artifact maps pipeline work units to their output locations
// and decides whether a unit can be skipped because its outputs are
// already on disk.
package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// NameSeparator joins a receptor and ligand stem in docking output
// file names. Structure names are validated to never contain it.
const NameSeparator = "__"

// Key identifies one artifact location.
type Key struct {
	Dir  string
	Stem string // base name without extension
	Ext  string // extension including the dot
}

// Path returns the deterministic location for the key.
func (k Key) Path() string {
	return filepath.Join(k.Dir, k.Stem+k.Ext)
}

// JoinName builds the shared output stem for a receptor/ligand pair,
// e.g. "5CRB__ATENOLOL".
func JoinName(receptor, ligand string) string {
	return receptor + NameSeparator + ligand
}

// SplitName recovers the receptor and ligand from an output stem. A
// stem without the separator degrades to the whole stem for both
// fields rather than guessing at a split.
func SplitName(stem string) (receptor, ligand string) {
	parts := strings.SplitN(stem, NameSeparator, 2)
	if len(parts) != 2 {
		return stem, stem
	}
	return parts[0], parts[1]
}

// Store answers skip-vs-build questions against a filesystem. The
// orchestration is strictly sequential; nothing here serializes
// concurrent writers to the same key, so any future parallelism must
// add per-key locking.
type Store struct {
	FS    fsutil.FileSystem
	Force bool
}

// NewStore returns a Store. force causes every ShouldBuild to answer
// true regardless of what is on disk.
func NewStore(fs fsutil.FileSystem, force bool) *Store {
	return &Store{FS: fs, Force: force}
}

// ShouldBuild reports whether a work unit with the given outputs needs
// to run. When force-rebuild is off and every output already exists it
// logs one skip line (named after label and the first output) and
// returns false. Building always overwrites.
func (s *Store) ShouldBuild(log runlog.Logger, label string, outputs ...string) bool {
	if s.Force {
		return true
	}
	for _, p := range outputs {
		if !s.FS.Exists(p) {
			return true
		}
	}
	log.Printf("[SKIP] %s exists -> %s", label, outputs[0])
	return false
}

// WriteAtomic writes data to path through a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// half-written artifact that a later run would skip over.
func (s *Store) WriteAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := s.FS.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := s.FS.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing %s: %w", path, err)
	}
	return nil
}

// Discard removes the outputs of a failed work unit so the next run
// rebuilds them instead of skipping a partial result. Missing files
// are ignored.
func (s *Store) Discard(outputs ...string) {
	for _, p := range outputs {
		if s.FS.Exists(p) {
			_ = s.FS.Remove(p)
		}
	}
}

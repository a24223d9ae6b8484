// Package vina assembles AutoDock Vina invocations and reads scores
// back out of its output.
package vina

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/searchbox"
)

// ResultMarker prefixes the line carrying the binding affinity of the
// best docking mode.
const ResultMarker = "REMARK VINA RESULT:"

// affinityToken is the whitespace-split index of the score on a
// result line.
const affinityToken = 3

// ErrNoResult reports output with no result marker at all.
var ErrNoResult = errors.New("no result marker in output")

// Affinity is an optionally-present binding score in kcal/mol.
type Affinity struct {
	Value float64
	OK    bool
}

// String renders the score the way the summary table shows it.
func (a Affinity) String() string {
	if !a.OK {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", a.Value)
}

// ParseAffinity scans docking output for the first result-marker line
// and parses its score token. The first marker line is authoritative:
// scanning stops there even when later lines report a different score.
// A missing marker or an unparsable token returns an absent Affinity
// with a describing error; callers treat that as a warning, never as a
// fatal failure.
func ParseAffinity(r io.Reader) (Affinity, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(strings.TrimSpace(line), ResultMarker) {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) <= affinityToken {
			return Affinity{}, fmt.Errorf("result line %q has no score token", line)
		}
		v, err := strconv.ParseFloat(parts[affinityToken], 64)
		if err != nil {
			return Affinity{}, fmt.Errorf("score token %q: %w", parts[affinityToken], err)
		}
		return Affinity{Value: v, OK: true}, nil
	}
	if err := scanner.Err(); err != nil {
		return Affinity{}, fmt.Errorf("reading output: %w", err)
	}

	return Affinity{}, ErrNoResult
}

// ParseAffinityFile parses the named docking log.
func ParseAffinityFile(fs fsutil.FileSystem, path string) (Affinity, error) {
	f, err := fs.Open(path)
	if err != nil {
		return Affinity{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ParseAffinity(f)
}

// Job describes one docking invocation.
type Job struct {
	Receptor       string
	Ligand         string
	Out            string
	Box            searchbox.Box
	Exhaustiveness int
	Verbosity      int
}

// Args renders the vina argument vector in the order the pipeline has
// always passed it.
func (j Job) Args() []string {
	return []string{
		"--receptor", j.Receptor,
		"--ligand", j.Ligand,
		"--center_x", formatCoord(j.Box.Center.X),
		"--center_y", formatCoord(j.Box.Center.Y),
		"--center_z", formatCoord(j.Box.Center.Z),
		"--size_x", formatCoord(j.Box.Size.X),
		"--size_y", formatCoord(j.Box.Size.Y),
		"--size_z", formatCoord(j.Box.Size.Z),
		"--exhaustiveness", strconv.Itoa(j.Exhaustiveness),
		"--verbosity", strconv.Itoa(j.Verbosity),
		"--out", j.Out,
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

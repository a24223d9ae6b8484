// Package pdbqt reads atom coordinates out of PDB/PDBQT structure
// files. The format is fixed-width: each coordinate lives at a fixed
// byte range within an ATOM or HETATM record, independent of the
// surrounding columns, so the reader is driven by a layout table
// rather than literal offsets scattered through the parse.
package pdbqt

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
)

// Field is one fixed-width column: a half-open byte range within a
// record line.
type Field struct {
	Name  string
	Start int // inclusive
	End   int // exclusive
}

// Coordinate columns of ATOM/HETATM records.
var (
	FieldX = Field{Name: "x", Start: 30, End: 38}
	FieldY = Field{Name: "y", Start: 38, End: 46}
	FieldZ = Field{Name: "z", Start: 46, End: 54}
)

// Extract returns the trimmed column value, or false when the line is
// too short to contain the field.
func (f Field) Extract(line string) (string, bool) {
	if len(line) < f.End {
		return "", false
	}
	return strings.TrimSpace(line[f.Start:f.End]), true
}

// Float parses the column as a float64.
func (f Field) Float(line string) (float64, error) {
	s, ok := f.Extract(line)
	if !ok {
		return 0, fmt.Errorf("line too short for %s column: %d bytes, need %d", f.Name, len(line), f.End)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s column %q: %w", f.Name, s, err)
	}
	return v, nil
}

// isCoordinateRecord reports whether the line carries atom
// coordinates.
func isCoordinateRecord(line string) bool {
	return strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM")
}

// ReadCoordinates scans r for ATOM/HETATM records and returns their
// coordinates in file order. A record whose coordinate columns do not
// parse is skipped and counted, never fatal; callers use the skipped
// count to tell "no data" apart from "only malformed data".
func ReadCoordinates(r io.Reader) (coords []r3.Vec, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !isCoordinateRecord(line) {
			continue
		}

		x, errX := FieldX.Float(line)
		y, errY := FieldY.Float(line)
		z, errZ := FieldZ.Float(line)
		if errX != nil || errY != nil || errZ != nil {
			skipped++
			continue
		}

		coords = append(coords, r3.Vec{X: x, Y: y, Z: z})
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("reading records: %w", err)
	}

	return coords, skipped, nil
}

// ReadCoordinatesFile reads coordinates from the named structure file.
func ReadCoordinatesFile(fs fsutil.FileSystem, path string) ([]r3.Vec, int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	coords, skipped, err := ReadCoordinates(f)
	if err != nil {
		return nil, skipped, fmt.Errorf("%s: %w", path, err)
	}
	return coords, skipped, nil
}

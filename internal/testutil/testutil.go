// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// PDBQTAtomLine formats a single ATOM record with the given serial and
// coordinates, using the fixed-width columns the format requires.
func PDBQTAtomLine(serial int, x, y, z float64) string {
	return fmt.Sprintf("ATOM  %5d  CA  ALA A%4d    %8.3f%8.3f%8.3f  1.00  0.00     0.000 C ",
		serial, serial, x, y, z)
}

// PDBQTFixture builds a minimal receptor file body from coordinate
// triples. Useful for search box and parser tests.
func PDBQTFixture(coords ...[3]float64) string {
	var b strings.Builder
	b.WriteString("REMARK  test receptor\n")
	for i, c := range coords {
		b.WriteString(PDBQTAtomLine(i+1, c[0], c[1], c[2]))
		b.WriteString("\n")
	}
	b.WriteString("TER\n")
	return b.String()
}

// VinaLogFixture builds a docking log body whose result table carries
// the given affinities, best mode first.
func VinaLogFixture(affinities ...float64) string {
	var b strings.Builder
	b.WriteString("AutoDock Vina v1.2.5\n")
	b.WriteString("Performing docking (random seed: -123456)\n")
	b.WriteString("mode |   affinity | dist from best mode\n")
	b.WriteString("     | (kcal/mol) | rmsd l.b.| rmsd u.b.\n")
	b.WriteString("-----+------------+----------+----------\n")
	for i, a := range affinities {
		fmt.Fprintf(&b, "%4d %11.3f %10.3f %10.3f\n", i+1, a, 0.0, 0.0)
	}
	for i, a := range affinities {
		fmt.Fprintf(&b, "REMARK VINA RESULT: %10.3f %10.3f %10.3f mode %d\n", a, 0.0, 0.0, i+1)
	}
	return b.String()
}

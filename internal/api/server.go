// Package api serves stored docking results over HTTP: JSON listings
// for tooling, the canonical CSV for spreadsheets, and the summary
// chart for browsers.
package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/httputil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/report"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
)

// Server answers API requests from the results database.
type Server struct {
	db *results.DB
}

// NewServer creates an API server over the given results database.
func NewServer(db *results.DB) *Server {
	return &Server{db: db}
}

// ServeMux returns the API routes, rooted at "/".
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/results", s.handleResults)
	mux.HandleFunc("/results.csv", s.handleResultsCSV)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/", s.handleRun)
	mux.HandleFunc("/summary", s.handleSummary)
	return mux
}

// resultJSON is the wire form of a stored docking result. A pair whose
// affinity was never parsed carries an explicit null.
type resultJSON struct {
	RunID         string     `json:"run_id,omitempty"`
	Receptor      string     `json:"receptor"`
	Ligand        string     `json:"ligand"`
	Affinity      *float64   `json:"affinity"`
	BoxCenter     [3]float64 `json:"box_center"`
	BoxSize       [3]float64 `json:"box_size"`
	BoxProvenance string     `json:"box_provenance"`
}

func toResultJSON(r results.DockingResult) resultJSON {
	out := resultJSON{
		RunID:         r.RunID,
		Receptor:      r.Receptor,
		Ligand:        r.Ligand,
		BoxCenter:     r.BoxCenter,
		BoxSize:       r.BoxSize,
		BoxProvenance: r.BoxProvenance,
	}
	if r.Affinity.Valid {
		v := r.Affinity.Float64
		out.Affinity = &v
	}
	return out
}

// runJSON is the wire form of a recorded pipeline run.
type runJSON struct {
	RunID       string     `json:"run_id"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      string     `json:"status"`
	ExitStatus  *int64     `json:"exit_status,omitempty"`
	Stages      []string   `json:"stages"`
}

func toRunJSON(r results.Run) runJSON {
	out := runJSON{
		RunID:     r.RunID,
		StartedAt: r.StartedAt,
		Status:    r.Status,
		Stages:    r.Stages,
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		out.CompletedAt = &t
	}
	if r.ExitStatus.Valid {
		v := r.ExitStatus.Int64
		out.ExitStatus = &v
	}
	return out
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rs, err := s.db.Results()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to query results: %v", err))
		return
	}

	out := make([]resultJSON, 0, len(rs))
	for _, res := range rs {
		out = append(out, toResultJSON(res))
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleResultsCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rs, err := s.db.Results()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to query results: %v", err))
		return
	}

	var buf bytes.Buffer
	if err := results.WriteEnergiesCSV(&buf, results.EnergyRows(rs)); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render CSV: %v", err))
		return
	}
	httputil.WriteCSVAttachment(w, "binding_energies.csv", buf.Bytes())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}

	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunJSON(run))
	}
	httputil.WriteJSONOK(w, out)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/runs/")
	if id == "" {
		httputil.BadRequest(w, "missing run id")
		return
	}

	run, err := s.db.GetRun(id)
	if err != nil {
		httputil.NotFound(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, toRunJSON(*run))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	rs, err := s.db.ResultsByAffinity()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to query results: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.WriteChartHTML(w, rs); err != nil {
		// Headers are already out; all we can do is log it.
		log.Printf("failed to render summary chart: %v", err)
	}
}

package stages

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/artifact"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/vina"
)

// RunExtract collects binding affinities from the captured docking
// logs into the binding-energies CSV. Logs are scanned in sorted order
// so the CSV is reproducible. An absent log directory or an empty one
// is not a failure; there is simply nothing to extract yet.
func (p *Pipeline) RunExtract(ctx context.Context) int {
	logDir := p.cfg.VinaOutputsDir()
	if !p.fs.Exists(logDir) {
		p.log.Printf("[ERROR] Log directory %s not found.", logDir)
		return 0
	}

	logFiles := p.listFiles(logDir, ".log")
	if len(logFiles) == 0 {
		p.log.Printf("[INFO] No log files found in %s", logDir)
		return 0
	}

	runID := pipeline.RunIDFrom(ctx)
	var rows []results.EnergyRow
	for _, name := range logFiles {
		aff, err := vina.ParseAffinityFile(p.fs, filepath.Join(logDir, name))
		if err != nil && !errors.Is(err, vina.ErrNoResult) {
			p.log.Printf("[WARN] Could not parse %s: %v", name, err)
		}

		receptor, ligand := artifact.SplitName(stemOf(name))
		row := results.EnergyRow{Protein: receptor, Ligand: ligand}
		if aff.OK {
			row.Affinity = sql.NullFloat64{Float64: aff.Value, Valid: true}
		}
		rows = append(rows, row)

		if p.db != nil {
			if err := p.db.UpsertAffinity(runID, receptor, ligand, row.Affinity); err != nil {
				p.log.Printf("[WARN] Could not record result for %s: %v", stemOf(name), err)
			}
		}
	}

	csvPath := p.cfg.EnergiesCSVPath()
	if err := p.fs.MkdirAll(filepath.Dir(csvPath), 0o755); err != nil {
		p.log.Printf("[ERROR] Could not create %s: %v", filepath.Dir(csvPath), err)
		return 1
	}

	var buf bytes.Buffer
	if err := results.WriteEnergiesCSV(&buf, rows); err != nil {
		p.log.Printf("[ERROR] Could not render %s: %v", csvPath, err)
		return 1
	}
	if err := p.store.WriteAtomic(csvPath, buf.Bytes()); err != nil {
		p.log.Printf("[ERROR] Could not write %s: %v", csvPath, err)
		return 1
	}

	p.log.Printf("[OK] Binding affinities saved to %s", csvPath)
	return 0
}

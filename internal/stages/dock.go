package stages

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/artifact"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/report"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/searchbox"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/vina"
)

// RunDock docks every prepared ligand against every prepared receptor.
// A pair that fails is reported and skipped; the stage itself fails
// only when there is nothing to dock. Ends with the affinity summary
// table for the whole cross product.
func (p *Pipeline) RunDock(ctx context.Context) int {
	recDir := p.cfg.ReceptorsOutDir()
	ligDir := p.cfg.LigandsOutDir()
	outDir := p.cfg.VinaOutputsDir()

	if err := p.fs.MkdirAll(outDir, 0o755); err != nil {
		p.log.Printf("[ERROR] Could not create %s: %v", outDir, err)
		return 1
	}

	receptors := p.listFiles(recDir, ".pdbqt")
	if len(receptors) == 0 {
		p.log.Printf("[ERROR] %v", &pipeline.MissingInputError{Stage: "dock", What: "receptor PDBQT files", Dir: recDir})
		return 1
	}
	ligands := p.listFiles(ligDir, ".pdbqt")
	if len(ligands) == 0 {
		p.log.Printf("[ERROR] %v", &pipeline.MissingInputError{Stage: "dock", What: "ligand PDBQT files", Dir: ligDir})
		return 1
	}

	resolver := searchbox.NewResolver(p.fs, searchbox.Options{
		Margin:  p.cfg.GetBoxMargin(),
		MinSize: p.cfg.GetBoxMinSize(),
		MaxSize: p.cfg.GetBoxMaxSize(),
	}, p.manualBoxes())

	var rows []results.EnergyRow
	for _, recFile := range receptors {
		recPath := filepath.Join(recDir, recFile)
		box := p.boxFor(resolver, recPath)

		for _, ligFile := range ligands {
			if ctx.Err() != nil {
				return pipeline.InterruptedStatus
			}
			row, ok, interrupted := p.dockPair(ctx, recPath, filepath.Join(ligDir, ligFile), box)
			if interrupted {
				return pipeline.InterruptedStatus
			}
			if ok {
				rows = append(rows, row)
			}
		}
	}

	report.WriteTable(p.log, rows)
	return 0
}

// manualBoxes converts configured boxes into resolver entries.
func (p *Pipeline) manualBoxes() map[string]searchbox.Box {
	manual := p.cfg.GetManualBoxes()
	boxes := make(map[string]searchbox.Box, len(manual))
	for receptor, mb := range manual {
		boxes[receptor] = searchbox.Box{
			Center: r3.Vec{X: mb.Center[0], Y: mb.Center[1], Z: mb.Center[2]},
			Size:   r3.Vec{X: mb.Size[0], Y: mb.Size[1], Z: mb.Size[2]},
		}
	}
	return boxes
}

// boxFor resolves the receptor's search box, degrading to the default
// box when the receptor file cannot be read.
func (p *Pipeline) boxFor(resolver *searchbox.Resolver, recPath string) searchbox.Box {
	box, err := resolver.BoxFor(stemOf(recPath), recPath, p.log)
	if err != nil {
		p.log.Printf("[WARN] Could not read receptor coords (%s): %v", recPath, err)
		return searchbox.DefaultBox()
	}
	return box
}

// dockPair runs vina for one pair, teeing its output into the pair's
// capture log. A failed pair discards its partial outputs and reports
// ok=false; only an interrupt stops the whole stage.
func (p *Pipeline) dockPair(ctx context.Context, recPath, ligPath string, box searchbox.Box) (row results.EnergyRow, ok, interrupted bool) {
	recName := stemOf(recPath)
	ligName := stemOf(ligPath)
	pair := artifact.JoinName(recName, ligName)
	outDir := p.cfg.VinaOutputsDir()

	outPDBQT := artifact.Key{Dir: outDir, Stem: pair + "_out", Ext: ".pdbqt"}.Path()
	logPath := artifact.Key{Dir: outDir, Stem: pair, Ext: ".log"}.Path()

	if !p.store.ShouldBuild(p.log, "Docking output", outPDBQT, logPath) {
		return p.summaryRow(ctx, recPath, ligPath, logPath, box), true, false
	}

	p.log.Print("")
	p.log.Printf("Running docking: %s + %s", recName, ligName)
	p.log.Printf(" Search box: center=(%.2f, %.2f, %.2f), size=(%.2f, %.2f, %.2f)",
		box.Center.X, box.Center.Y, box.Center.Z, box.Size.X, box.Size.Y, box.Size.Z)

	logFile, err := p.fs.Create(logPath)
	if err != nil {
		p.log.Printf("[ERROR] Could not create docking log %s: %v", logPath, err)
		return row, false, false
	}

	job := vina.Job{
		Receptor:       recPath,
		Ligand:         ligPath,
		Out:            outPDBQT,
		Box:            box,
		Exhaustiveness: p.cfg.GetExhaustiveness(),
		Verbosity:      p.cfg.GetVerbosity(),
	}
	sink := runlog.Multi(p.log, runlog.ToWriter(logFile))
	res, runErr := p.runner.Run(toolexec.Invocation{Path: p.cfg.GetVinaExecutable(), Args: job.Args()}, sink)
	logFile.Close()

	switch {
	case runErr != nil:
		p.store.Discard(outPDBQT, logPath)
		p.log.Printf("[ERROR] Could not execute Vina at '%s': %v", p.cfg.GetVinaExecutable(), runErr)
		return row, false, false
	case res.Interrupted:
		p.store.Discard(outPDBQT, logPath)
		return row, false, true
	case res.ExitCode != 0:
		p.store.Discard(outPDBQT, logPath)
		p.log.Printf("[ERROR] Docking failed for %s + %s (exit %d)", recName, ligName, res.ExitCode)
		return row, false, false
	}

	p.log.Printf("[OK] Docking complete. Output: %s", outPDBQT)
	return p.summaryRow(ctx, recPath, ligPath, logPath, box), true, false
}

// summaryRow reads the pair's affinity back out of its capture log,
// records the result, and returns the summary table line.
func (p *Pipeline) summaryRow(ctx context.Context, recPath, ligPath, logPath string, box searchbox.Box) results.EnergyRow {
	row := results.EnergyRow{
		Protein: filepath.Base(recPath),
		Ligand:  filepath.Base(ligPath),
	}

	aff, err := vina.ParseAffinityFile(p.fs, logPath)
	switch {
	case err == nil && aff.OK:
		row.Affinity = sql.NullFloat64{Float64: aff.Value, Valid: true}
	case err != nil && !errors.Is(err, vina.ErrNoResult):
		p.log.Printf("[WARN] Could not parse affinity from %s: %v", logPath, err)
	}

	p.recordResult(ctx, stemOf(recPath), stemOf(ligPath), box, row.Affinity)
	return row
}

// recordResult persists one docking outcome. Persistence failures are
// warnings; the CSV written by the extract stage stays authoritative.
func (p *Pipeline) recordResult(ctx context.Context, receptor, ligand string, box searchbox.Box, affinity sql.NullFloat64) {
	if p.db == nil {
		return
	}
	err := p.db.UpsertResult(results.DockingResult{
		RunID:         pipeline.RunIDFrom(ctx),
		Receptor:      receptor,
		Ligand:        ligand,
		Affinity:      affinity,
		BoxCenter:     [3]float64{box.Center.X, box.Center.Y, box.Center.Z},
		BoxSize:       [3]float64{box.Size.X, box.Size.Y, box.Size.Z},
		BoxProvenance: box.Provenance.String(),
	})
	if err != nil {
		p.log.Printf("[WARN] Could not record result for %s: %v", artifact.JoinName(receptor, ligand), err)
	}
}

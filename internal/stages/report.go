package stages

import (
	"bytes"
	"context"
	"path/filepath"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/report"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
)

// RunReport renders the stored results as an interactive HTML chart
// and a static PNG next to the visualizations, then repeats the
// summary table in the run log.
func (p *Pipeline) RunReport(ctx context.Context) int {
	if p.db == nil {
		p.log.Print("[WARN] Results database disabled; skipping summary report")
		return 0
	}

	byAffinity, err := p.db.ResultsByAffinity()
	if err != nil {
		p.log.Printf("[ERROR] Could not load docking results: %v", err)
		return 1
	}

	visDir := p.cfg.VisualizationsDir()
	if err := p.fs.MkdirAll(visDir, 0o755); err != nil {
		p.log.Printf("[ERROR] Could not create %s: %v", visDir, err)
		return 1
	}

	htmlPath := filepath.Join(visDir, "summary.html")
	var buf bytes.Buffer
	if err := report.WriteChartHTML(&buf, byAffinity); err != nil {
		p.log.Printf("[ERROR] Could not render %s: %v", htmlPath, err)
		return 1
	}
	if err := p.store.WriteAtomic(htmlPath, buf.Bytes()); err != nil {
		p.log.Printf("[ERROR] Could not write %s: %v", htmlPath, err)
		return 1
	}
	p.log.Printf("[OK] Summary chart -> %s", htmlPath)

	pngPath := filepath.Join(visDir, "summary.png")
	if err := report.SaveChartPNG(pngPath, byAffinity); err != nil {
		p.log.Printf("[ERROR] Could not render %s: %v", pngPath, err)
		return 1
	}
	p.log.Printf("[OK] Summary chart -> %s", pngPath)

	byName, err := p.db.Results()
	if err != nil {
		p.log.Printf("[ERROR] Could not load docking results: %v", err)
		return 1
	}
	report.WriteTable(p.log, results.EnergyRows(byName))
	return 0
}

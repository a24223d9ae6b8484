package stages

import (
	"context"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// RunVisualize invokes the PyMOL/RDKit visualizer script once over the
// whole result set. It renders 2D sketches from the raw ligand SDF
// files and 3D poses from the docked outputs, so it gets the raw
// ligand directory rather than the prepared one. Exit status is
// propagated verbatim; the script reserves 2-4 for environment
// problems its own checks catch.
func (p *Pipeline) RunVisualize(ctx context.Context) int {
	visDir := p.cfg.VisualizationsDir()
	if err := p.fs.MkdirAll(visDir, 0o755); err != nil {
		p.log.Printf("[ERROR] Could not create %s: %v", visDir, err)
		return 1
	}

	inv := toolexec.Invocation{
		Path: p.cfg.GetVizPython(),
		Args: []string{
			p.cfg.GetVisualizerScript(),
			p.cfg.LigandsDir(),
			p.cfg.VinaOutputsDir(),
			visDir,
		},
		Dir: p.cfg.GetWorkspaceDir(),
	}
	if p.cfg.GetSkipVizCheck() {
		inv.Env = []string{"VIZ_IGNORE_PY_CHECK=1"}
	}

	res, err := p.runner.Run(inv, p.log)
	if err != nil {
		p.log.Printf("[ERROR] Could not run visualizer: %v", err)
		return 1
	}
	if res.Interrupted {
		return pipeline.InterruptedStatus
	}
	return res.ExitCode
}

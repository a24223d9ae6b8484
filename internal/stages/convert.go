package stages

import (
	"context"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// RunConvert invokes the RDKit-based converter script once; the script
// walks data/ligands itself and writes PDB siblings into
// data/ligands_pdb. Its exit status is propagated verbatim.
func (p *Pipeline) RunConvert(ctx context.Context) int {
	inv := toolexec.Invocation{
		Path: p.cfg.GetVizPython(),
		Args: []string{p.cfg.GetConverterScript()},
		Dir:  p.cfg.GetWorkspaceDir(),
	}

	res, err := p.runner.Run(inv, p.log)
	if err != nil {
		p.log.Printf("[ERROR] Could not run converter: %v", err)
		return 1
	}
	if res.Interrupted {
		return pipeline.InterruptedStatus
	}
	return res.ExitCode
}

package stages

import (
	"context"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// RunDoctor probes the visualization interpreter for the modules the
// visualizer imports, installing missing ones with pip when automatic
// installs are enabled. Fails when a required module cannot be made
// importable; running the visualizer would then die on its first
// import anyway.
func (p *Pipeline) RunDoctor(ctx context.Context) int {
	python := p.cfg.GetVizPython()
	modules := p.cfg.GetVizModules()
	p.log.Printf("Packages to check/install: %v", modules)

	for _, module := range modules {
		if ctx.Err() != nil {
			return pipeline.InterruptedStatus
		}

		if p.moduleInstalled(python, module) {
			p.log.Printf("Package '%s' is already installed.", module)
			continue
		}
		p.log.Printf("Package '%s' not found.", module)

		if !p.cfg.GetInstallMissingPackages() {
			p.log.Printf("Package '%s' is missing and automatic install is disabled.", module)
			return 1
		}
		if !p.installModule(python, module) {
			p.log.Printf("Failed to install package '%s'. Aborting.", module)
			return 1
		}
	}

	p.log.Print("All required packages are installed.")
	return 0
}

// moduleInstalled probes importability. Probe output is noise, so it
// is discarded rather than streamed into the run log.
func (p *Pipeline) moduleInstalled(python, module string) bool {
	inv := toolexec.Invocation{
		Path: python,
		Args: []string{"-c", "import " + module},
	}
	res, err := p.runner.Run(inv, runlog.NopLogger{})
	return err == nil && res.ExitCode == 0
}

func (p *Pipeline) installModule(python, module string) bool {
	p.log.Printf("Installing package: %s", module)
	inv := toolexec.Invocation{
		Path: python,
		Args: []string{"-m", "pip", "install", module},
	}
	res, err := p.runner.Run(inv, p.log)
	return err == nil && res.ExitCode == 0
}

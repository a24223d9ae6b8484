// Package stages implements the steps of the docking workflow, from
// input download through docking to the summary report. Each stage is
// a method on Pipeline returning a process-style exit status, so the
// sequencer treats native stages and subprocess-driven stages alike.
package stages

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/artifact"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/httputil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// Deps carries the pipeline's collaborators.
type Deps struct {
	FS     fsutil.FileSystem
	Runner toolexec.Runner
	Client httputil.HTTPClient
	Log    runlog.Logger

	// DB is optional; nil disables result persistence.
	DB *results.DB
}

// Pipeline binds configuration and collaborators for all stages.
type Pipeline struct {
	cfg    *config.Config
	fs     fsutil.FileSystem
	runner toolexec.Runner
	client httputil.HTTPClient
	log    runlog.Logger
	db     *results.DB
	store  *artifact.Store
}

// New builds a Pipeline from validated configuration.
func New(cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		fs:     deps.FS,
		runner: deps.Runner,
		client: deps.Client,
		log:    deps.Log,
		db:     deps.DB,
		store:  artifact.NewStore(deps.FS, cfg.GetForceRebuild()),
	}
}

// Stages returns the full workflow in execution order. The Tool field
// names the executable the sequencer preflights; stages that run
// entirely in-process leave it empty.
func (p *Pipeline) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "fetch", Title: "Downloading protein and ligand data...", Run: p.RunFetch},
		{Name: "convert", Title: "Converting ligand SDF to PDB format...", Tool: p.cfg.GetVizPython(), Run: p.RunConvert},
		{Name: "prepare", Title: "Preparing input files for docking...", Tool: p.cfg.GetMGLToolsPython(), Run: p.RunPrepare},
		{Name: "dock", Title: "Running docking...", Tool: p.cfg.GetVinaExecutable(), Run: p.RunDock},
		{Name: "extract", Title: "Extracting docking results...", Run: p.RunExtract},
		{Name: "doctor", Title: "Checking visualization environment packages...", Tool: p.cfg.GetVizPython(), Run: p.RunDoctor},
		{Name: "visualize", Title: "Running visualization...", Tool: p.cfg.GetVizPython(), Run: p.RunVisualize},
		{Name: "report", Title: "Rendering summary report...", Run: p.RunReport},
	}
}

// StagesFrom returns the workflow starting at the named stage, for
// resuming a run whose earlier artifacts are already on disk. An empty
// name returns the full workflow.
func (p *Pipeline) StagesFrom(name string) ([]pipeline.Stage, error) {
	all := p.Stages()
	if name == "" {
		return all, nil
	}
	for i, st := range all {
		if st.Name == name {
			return all[i:], nil
		}
	}
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = st.Name
	}
	return nil, fmt.Errorf("unknown stage %q (valid: %s)", name, strings.Join(names, ", "))
}

// listFiles returns the base names of files in dir carrying one of the
// extensions, sorted, skipping dotfiles. Extensions match
// case-insensitively and include the dot. A missing directory yields
// nothing.
func (p *Pipeline) listFiles(dir string, exts ...string) []string {
	matches, err := p.fs.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil
	}

	var names []string
	for _, m := range matches {
		name := filepath.Base(m)
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, want := range exts {
			if ext == want {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// stemOf strips the directory and extension from a structure file name.
func stemOf(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

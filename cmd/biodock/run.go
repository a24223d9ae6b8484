package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/httputil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/pipeline"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/stages"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/toolexec"
)

// handleRun drives the full workflow: a timestamped transcript in the
// workspace root, the run banner, every stage in order, and the final
// "Log saved to" pointer. The process exit status is the first failing
// stage's status, or 130 when interrupted.
func handleRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	dbPath := fs.String("db", "", `Results database path ("none" disables recording)`)
	from := fs.String("from", "", "Resume from the named stage")
	force := fs.Bool("force", false, "Rebuild artifacts even when outputs already exist")
	fs.Parse(args)

	cfg, err := config.ResolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}
	if *force {
		cfg.ForceRebuild = force
	}

	osfs := fsutil.OSFileSystem{}
	started := time.Now()
	sink, err := runlog.New(osfs, cfg.GetWorkspaceDir(), started, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}
	defer sink.Close()

	sink.Banner("AutoDock Vina Pipeline Run", started)

	db := openResultsDB(sink, resolveDBPath(*dbPath, cfg))
	if db != nil {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := stages.New(cfg, stages.Deps{
		FS:     osfs,
		Runner: toolexec.ExecRunner{},
		Client: httputil.NewStandardClient(nil),
		Log:    sink,
		DB:     db,
	})

	workflow, err := p.StagesFrom(*from)
	if err != nil {
		sink.Printf("[FATAL] %v", err)
		return 1
	}

	seq := &pipeline.Sequencer{Runner: toolexec.ExecRunner{}, Log: sink}
	if db != nil {
		seq.Recorder = db
	}

	status := seq.Run(ctx, workflow)
	sink.Printf("Log saved to %s", sink.Path())
	return status
}

// handleStage runs one workflow stage with the same preflight and exit
// semantics the full run gives it, logging to the console only.
func handleStage(name string, args []string) int {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	dbPath := fs.String("db", "", `Results database path ("none" disables recording)`)
	force := fs.Bool("force", false, "Rebuild artifacts even when outputs already exist")
	fs.Parse(args)

	cfg, err := config.ResolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}
	if *force {
		cfg.ForceRebuild = force
	}

	console := runlog.ToWriter(os.Stdout)
	db := openResultsDB(console, resolveDBPath(*dbPath, cfg))
	if db != nil {
		defer db.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := stages.New(cfg, stages.Deps{
		FS:     fsutil.OSFileSystem{},
		Runner: toolexec.ExecRunner{},
		Client: httputil.NewStandardClient(nil),
		Log:    console,
		DB:     db,
	})

	st, ok := findStage(p, name)
	if !ok {
		fmt.Fprintf(os.Stderr, "[FATAL] unknown stage %q\n", name)
		return 1
	}

	seq := &pipeline.Sequencer{Runner: toolexec.ExecRunner{}, Log: console}
	if db != nil {
		seq.Recorder = db
	}
	return seq.Run(ctx, []pipeline.Stage{st})
}

// findStage looks up one stage of the workflow by name.
func findStage(p *stages.Pipeline, name string) (pipeline.Stage, bool) {
	for _, st := range p.Stages() {
		if st.Name == name {
			return st, true
		}
	}
	return pipeline.Stage{}, false
}

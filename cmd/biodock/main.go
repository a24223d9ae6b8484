package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "run":
		os.Exit(handleRun(args))
	case "fetch", "convert", "prepare", "dock", "extract", "doctor", "visualize", "report":
		os.Exit(handleStage(command, args))
	case "results":
		os.Exit(handleResults(args))
	case "serve":
		os.Exit(handleServe(args))
	case "migrate":
		os.Exit(handleMigrate(args))
	case "version":
		fmt.Println(version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`biodock - AutoDock Vina docking pipeline orchestrator

Usage: biodock <command> [options]

Commands:
  run        Run the full docking workflow (download through report)
  fetch      Download protein PDB and ligand SDF structures
  convert    Convert ligand SDF files to PDB format
  prepare    Prepare receptor and ligand PDBQT inputs with MGLTools
  dock       Dock every receptor/ligand pair with AutoDock Vina
  extract    Extract binding affinities from captured docking logs
  doctor     Check (and optionally install) visualization packages
  visualize  Render 2D/3D views of the docked complexes
  report     Render the summary chart and table from stored results
  results    Print or export stored binding affinities
  serve      Serve results over HTTP with admin debug routes
  migrate    Manage the results database schema
  version    Show biodock version
  help       Show this help message

Common Flags:
  --config <file>      Configuration file path
                       (default: config/biodock.defaults.json if present)
  --db <path>          Results database path (default: from configuration;
                       "none" disables result recording)
  --force              Rebuild artifacts even when outputs already exist

Examples:
  # Full pipeline with the default configuration
  biodock run

  # Resume an interrupted run from the docking stage
  biodock run --from dock

  # Rebuild everything from scratch
  biodock run --force

  # Dock only, without recording results
  biodock dock --db none

  # Export the binding energies CSV from the database
  biodock results --csv binding_energies.csv

  # Browse results at http://localhost:8080
  biodock serve --listen :8080`)
}

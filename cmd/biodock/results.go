package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/artifact"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/fsutil"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/report"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/security"
)

// handleResults prints the docking summary table, exports the
// binding-energies CSV, or lists recorded pipeline runs.
func handleResults(args []string) int {
	fs := flag.NewFlagSet("results", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	dbPath := fs.String("db", "", "Results database path")
	csvPath := fs.String("csv", "", "Export the binding energies CSV to this path")
	runs := fs.Int("runs", 0, "List the N most recent pipeline runs instead of affinities")
	fs.Parse(args)

	cfg, err := config.ResolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}

	path := resolveDBPath(*dbPath, cfg)
	if path == "" {
		fmt.Fprintln(os.Stderr, "[FATAL] results requires a database; drop --db none")
		return 1
	}
	db, err := mustOpenResultsDB(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] could not open results database %s: %v\n", path, err)
		return 1
	}
	defer db.Close()

	if *runs > 0 {
		return printRuns(db, *runs)
	}

	rows, err := db.Results()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] could not query results: %v\n", err)
		return 1
	}

	if *csvPath != "" {
		if err := security.ValidateExportPath(*csvPath); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] refusing export path %s: %v\n", *csvPath, err)
			return 1
		}
		var buf bytes.Buffer
		if err := results.WriteEnergiesCSV(&buf, results.EnergyRows(rows)); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		store := artifact.NewStore(fsutil.OSFileSystem{}, false)
		if err := store.WriteAtomic(*csvPath, buf.Bytes()); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		fmt.Printf("[OK] Binding affinities saved to %s\n", *csvPath)
		return 0
	}

	report.WriteTable(runlog.ToWriter(os.Stdout), results.EnergyRows(rows))
	return 0
}

func printRuns(db *results.DB, limit int) int {
	rs, err := db.ListRuns(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] could not list runs: %v\n", err)
		return 1
	}
	if len(rs) == 0 {
		fmt.Println("No recorded runs.")
		return 0
	}

	fmt.Printf("%-36s  %-19s  %-9s  %-4s  %s\n", "Run ID", "Started", "Status", "Exit", "Stages")
	for _, r := range rs {
		exit := "-"
		if r.ExitStatus.Valid {
			exit = strconv.FormatInt(r.ExitStatus.Int64, 10)
		}
		fmt.Printf("%-36s  %-19s  %-9s  %-4s  %s\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, exit,
			strings.Join(r.Stages, ","))
	}
	return 0
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
)

// handleMigrate manages the results database schema. Unlike the
// pipeline commands it never migrates implicitly; up/down/force only do
// what they are told.
func handleMigrate(args []string) int {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file path")
	dbPath := fs.String("db", "", "Results database path")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: biodock migrate [flags] <up|down|status|force N>")
		return 1
	}

	cfg, err := config.ResolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}

	path := resolveDBPath(*dbPath, cfg)
	if path == "" {
		fmt.Fprintln(os.Stderr, "[FATAL] migrate requires a database; drop --db none")
		return 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}
	db, err := results.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] could not open results database %s: %v\n", path, err)
		return 1
	}
	defer db.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := db.MigrateUp(); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		fmt.Println("Migrations applied.")
	case "down":
		if err := db.MigrateDown(); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		fmt.Println("Rolled back one migration.")
	case "status":
		version, dirty, err := db.MigrateVersion()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		fmt.Printf("Schema version %d (dirty: %v) at %s\n", version, dirty, path)
	case "force":
		if fs.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "Usage: biodock migrate force <version>")
			return 1
		}
		version, err := strconv.Atoi(fs.Arg(1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] invalid version %q: %v\n", fs.Arg(1), err)
			return 1
		}
		if err := db.MigrateForce(version); err != nil {
			fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
			return 1
		}
		fmt.Printf("Forced schema version to %d.\n", version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown migrate action: %s\n", action)
		return 1
	}
	return 0
}

package main

import (
	"os"
	"path/filepath"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/results"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/runlog"
)

// resolveDBPath maps the --db flag to a database location. An empty
// flag falls back to the configured path; "none" disables recording.
func resolveDBPath(flagValue string, cfg *config.Config) string {
	switch flagValue {
	case "none":
		return ""
	case "":
		return cfg.GetDatabasePath()
	default:
		return flagValue
	}
}

// openResultsDB opens and migrates the results database for pipeline
// commands. Recording is best-effort there: failures degrade to a
// warning and a nil handle rather than blocking the run.
func openResultsDB(log runlog.Logger, path string) *results.DB {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("[WARN] Could not create database directory for %s: %v", path, err)
		return nil
	}

	db, err := results.Open(path)
	if err != nil {
		log.Printf("[WARN] Could not open results database %s: %v", path, err)
		return nil
	}
	if err := db.MigrateUp(); err != nil {
		log.Printf("[WARN] Could not migrate results database %s: %v", path, err)
		db.Close()
		return nil
	}
	return db
}

// mustOpenResultsDB is openResultsDB for commands that cannot work
// without the database; the error comes back instead of a warning.
func mustOpenResultsDB(path string) (*results.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := results.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

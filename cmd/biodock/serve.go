package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tayyab-Ijaz/BioDockPro/internal/api"
	"github.com/Tayyab-Ijaz/BioDockPro/internal/config"
)

// handleServe exposes the results database over HTTP: the JSON/CSV API
// under /api/, the tailsql console and backup endpoint under /debug/,
// and a redirect from / to the summary chart.
func handleServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listen := fs.String("listen", ":8080", "HTTP listen address")
	configPath := fs.String("config", "", "Configuration file path")
	dbPath := fs.String("db", "", "Results database path")
	fs.Parse(args)

	cfg, err := config.ResolveConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] %v\n", err)
		return 1
	}

	path := resolveDBPath(*dbPath, cfg)
	if path == "" {
		fmt.Fprintln(os.Stderr, "[FATAL] serve requires a database; drop --db none")
		return 1
	}
	db, err := mustOpenResultsDB(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] could not open results database %s: %v\n", path, err)
		return 1
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
	db.AttachAdminRoutes(mux)

	mux.Handle("/api/", http.StripPrefix("/api", api.NewServer(db).ServeMux()))
	mux.Handle("/", http.RedirectHandler("/api/summary", http.StatusFound))

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr:    *listen,
		Handler: h,
	}

	// Start server in a goroutine so it doesn't block
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("serving docking results on %s (database %s)", *listen, path)

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	return 0
}

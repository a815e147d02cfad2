package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"

	"github.com/notedeck/notedeck/internal/config"
	"github.com/notedeck/notedeck/internal/storage"
	"github.com/notedeck/notedeck/internal/sync"
	"github.com/notedeck/notedeck/internal/web"
)

func main() {
	// 1. Define and parse command-line flags
	flags := pflag.NewFlagSet("notedeck", pflag.ExitOnError)
	configPath := flags.String("config", "", "Path to a YAML config file")
	flags.String("db", "notedeck.db", "Path to the SQLite database file")
	flags.String("listen", "127.0.0.1:8484", "Address for the JSON API to listen on")
	flags.String("repos-dir", "repos", "Directory git sources are cloned into")
	flags.Int("history-limit", 50, "Default number of history entries returned")
	addSource := flags.String("add-source", "", "Register a card source (path or git URL) and exit")
	runSync := flags.Bool("sync", false, "Sync all sources and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	// 2. Load configuration (file, env, flags)
	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. Open the database
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	slog.Info("Database opened", "path", cfg.DBPath)

	if *addSource != "" {
		addNewSource(db, *addSource)
		return
	}

	if *runSync {
		if err := sync.Run(context.Background(), db, cfg.ReposDir); err != nil {
			log.Fatalf("Sync failed: %v", err)
		}
		return
	}

	// 4. Serve the JSON API
	server := web.NewServer(db, web.Config{
		ReposDir:     cfg.ReposDir,
		HistoryLimit: cfg.HistoryLimit,
	})
	slog.Info("Listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, server); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// addNewSource registers a source, detecting whether it is a local directory
// or a git URL.
func addNewSource(db *storage.DB, path string) {
	existing, err := db.FindSourceByPath(path)
	if err != nil {
		log.Fatalf("Failed to check source %s: %v", path, err)
	}
	if existing != nil {
		slog.Info("Source already registered", "path", path)
		return
	}

	sourceType := storage.SourceTypeFor(path)
	id, err := db.InsertSource(path, sourceType)
	if err != nil {
		log.Fatalf("Failed to add source %s: %v", path, err)
	}
	slog.Info("Source added", "id", id, "type", sourceType, "path", path)
}

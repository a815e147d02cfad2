// Package sync reconciles registered card sources with the database: it
// walks each source's markdown files, upserts the cards it finds, seeds
// scheduling progress embedded in note front matter, and removes cards whose
// notes have disappeared.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/notedeck/notedeck/internal/gitsource"
	"github.com/notedeck/notedeck/internal/noteid"
	"github.com/notedeck/notedeck/internal/parser"
	"github.com/notedeck/notedeck/internal/storage"
)

// Run iterates over all registered sources and reconciles them. Git sources
// are cloned or pulled under reposDir first.
func Run(ctx context.Context, db *storage.DB, reposDir string) error {
	slog.Info("Starting sync process for all sources...")
	sources, err := db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		slog.Info("No sources configured. Add one with --add-source <path/or/url.git>")
		return nil
	}

	if err := os.MkdirAll(reposDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create repos directory: %w", err)
	}

	for _, source := range sources {
		slog.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		sourceToReconcile := source

		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("Error determining local path for git repo", "url", source.Path, "error", err)
				continue
			}

			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("Error syncing git repo", "url", source.Path, "error", err)
				continue
			}

			sourceToReconcile.Path = localRepoPath
		}

		reconcileLocalSource(db, &sourceToReconcile)
	}
	slog.Info("Sync process complete.")
	return nil
}

func reconcileLocalSource(db *storage.DB, source *storage.Source) {
	var parsedCards int
	var parseErrors []error
	foundCardIDs := make(map[string]bool)

	walkErr := filepath.WalkDir(source.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}

		note, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("parsing %s: %w", path, parseErr))
			return nil
		}

		id := noteid.New(d.Name(), note.Title)
		foundCardIDs[id] = true
		parsedCards++

		if upsertErr := db.UpsertCard(note.Card(id, path), source.ID); upsertErr != nil {
			parseErrors = append(parseErrors, fmt.Errorf("db upsert for %s: %w", id, upsertErr))
			return nil
		}

		// Seed scheduling state exported into the note's front matter, but
		// never overwrite ratings already made against this database.
		if embedded, ok := note.Progress(id); ok && embedded.ReviewCount > 0 {
			existing, getErr := db.Get(id)
			if getErr != nil {
				parseErrors = append(parseErrors, fmt.Errorf("db check for %s: %w", id, getErr))
				return nil
			}
			if existing.ReviewCount == 0 {
				slog.Info("Seeding embedded progress", "id", id, "reviews", embedded.ReviewCount)
				if putErr := db.Put(embedded); putErr != nil {
					parseErrors = append(parseErrors, fmt.Errorf("db seed for %s: %w", id, putErr))
				}
			}
		}
		return nil
	})

	if walkErr != nil {
		slog.Error("Error walking directory", "path", source.Path, "error", walkErr)
		return
	}

	dbCards, err := db.GetCardsBySourceID(source.ID)
	if err != nil {
		slog.Error("Error getting cards for source", "source_id", source.ID, "error", err)
		return
	}

	var orphanedCards int
	for _, dbCard := range dbCards {
		if !foundCardIDs[dbCard.ID] {
			slog.Info("Orphaned card, deleting", "id", dbCard.ID)
			orphanedCards++
			if err := db.DeleteCard(dbCard.ID); err != nil {
				slog.Warn("Failed to delete orphaned card", "id", dbCard.ID, "error", err)
			}
		}
	}

	if err := db.UpdateSourceLastScanned(source.ID); err != nil {
		slog.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
	}

	slog.Info("reconciliation complete",
		"path", source.Path,
		"parsed_cards", parsedCards,
		"orphaned_deleted", orphanedCards,
		"errors", len(parseErrors),
	)
	for _, e := range parseErrors {
		slog.Warn("sync issue", "error", e)
	}
}

func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}

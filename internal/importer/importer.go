// Package importer keeps decks in step with markdown vocabulary sources,
// local directories or git repositories.
package importer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/vocadeck/internal/deck"
	"github.com/conorfennell/vocadeck/internal/domain"
	"github.com/conorfennell/vocadeck/internal/gitsource"
	"github.com/conorfennell/vocadeck/internal/parser"
	"github.com/conorfennell/vocadeck/internal/storage"
)

// SourceKey is the CardFields.Extra key recording which source a card was
// imported from.
const SourceKey = "source"

// Importer reconciles registered sources into their decks.
type Importer struct {
	db       *storage.DB
	store    *deck.Store
	reposDir string
	progress io.Writer
	logger   *slog.Logger
}

// New creates an importer. Git sources are checked out under reposDir.
func New(db *storage.DB, store *deck.Store, reposDir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, store: store, reposDir: reposDir, logger: logger}
}

// SetProgress sends git clone/pull progress to w.
func (im *Importer) SetProgress(w io.Writer) {
	im.progress = w
}

// Result summarizes the reconciliation of one source.
type Result struct {
	SourceID int64   `json:"sourceId"`
	Path     string  `json:"path"`
	DeckID   string  `json:"deckId"`
	Parsed   int     `json:"parsed"`
	Removed  int     `json:"removed"`
	Errors   []error `json:"-"`
}

// AddSource registers a local directory or git URL feeding the deck named
// deckName, creating the deck if needed.
func (im *Importer) AddSource(path, deckName, targetLanguage, nativeLanguage string) (storage.Source, error) {
	src := storage.Source{
		Path:           path,
		Type:           storage.SourceLocal,
		TargetLanguage: targetLanguage,
		NativeLanguage: nativeLanguage,
	}
	if gitsource.IsGitURL(path) {
		src.Type = storage.SourceGit
		if _, err := gitsource.LocalPath(im.reposDir, path); err != nil {
			return storage.Source{}, err
		}
	} else {
		abs, err := filepath.Abs(path)
		if err != nil {
			return storage.Source{}, fmt.Errorf("failed to resolve %s: %w", path, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return storage.Source{}, fmt.Errorf("failed to stat %s: %w", abs, err)
		}
		if !info.IsDir() {
			return storage.Source{}, fmt.Errorf("%s is not a directory", abs)
		}
		src.Path = abs
	}

	src.DeckID = im.store.CreateDeck(deckName)
	id, err := im.db.InsertSource(src)
	if err != nil {
		return storage.Source{}, err
	}
	src.ID = id
	im.logger.Info("Source added", "id", id, "type", src.Type, "path", src.Path, "deck_id", src.DeckID)
	return src, nil
}

// RunSync iterates over all sources and reconciles them. A failing source
// is logged and skipped; the error covers only listing the sources.
func (im *Importer) RunSync() ([]Result, error) {
	im.logger.Info("Starting sync process for all sources...")
	sources, err := im.db.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("failed to get sources: %w", err)
	}

	if len(sources) == 0 {
		im.logger.Info("No sources configured. Add one with add-source <path/or/url.git> <deck>")
		return nil, nil
	}

	var results []Result
	for _, source := range sources {
		im.logger.Info("Syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		dir, err := im.checkout(source)
		if err != nil {
			im.logger.Error("Error syncing source", "path", source.Path, "error", err)
			results = append(results, Result{SourceID: source.ID, Path: source.Path, DeckID: source.DeckID, Errors: []error{err}})
			continue
		}
		results = append(results, im.ImportSource(source, dir))
	}
	im.logger.Info("Sync process complete.")
	return results, nil
}

// checkout returns the local directory holding the source's files, cloning
// or pulling git sources first.
func (im *Importer) checkout(source storage.Source) (string, error) {
	if source.Type != storage.SourceGit {
		return source.Path, nil
	}
	localRepoPath, err := gitsource.LocalPath(im.reposDir, source.Path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(localRepoPath), os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}
	if err := gitsource.Sync(source.Path, localRepoPath, im.progress, im.logger); err != nil {
		return "", err
	}
	return localRepoPath, nil
}

// ImportSource adds every entry found under dir to the source's deck and
// deletes cards previously imported from the source that are gone.
func (im *Importer) ImportSource(source storage.Source, dir string) Result {
	res := Result{SourceID: source.ID, Path: source.Path, DeckID: source.DeckID}
	var entries []domain.CardFields
	found := make(map[string]bool)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileEntries, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			res.Errors = append(res.Errors, fmt.Errorf("parsing %s: %w", path, parseErr))
		}
		for _, e := range fileEntries {
			if e.TargetLanguage == "" {
				e.TargetLanguage = source.TargetLanguage
			}
			if e.NativeLanguage == "" {
				e.NativeLanguage = source.NativeLanguage
			}
			if e.Extra == nil {
				e.Extra = map[string]string{}
			}
			e.Extra[SourceKey] = source.Path
			entries = append(entries, e)
			found[e.Word] = true
		}
		return nil
	})

	if walkErr != nil {
		// Without a complete walk the orphan check would delete live cards.
		im.logger.Error("Error walking directory", "path", dir, "error", walkErr)
		res.Errors = append(res.Errors, walkErr)
		return res
	}

	if len(entries) > 0 {
		im.store.AddCardsToDeck(source.DeckID, entries)
	}
	res.Parsed = len(entries)

	// A file that failed to parse hides its words, so nothing is pruned
	// until every file reads cleanly again.
	if len(res.Errors) == 0 {
		res.Removed = im.store.PruneDeck(source.DeckID, func(c domain.Card) bool {
			return c.Extra[SourceKey] == source.Path && !found[c.Word]
		})
	} else {
		im.logger.Warn("Skipping orphan removal after parse errors", "path", source.Path, "errors", len(res.Errors))
	}

	if source.ID != 0 {
		if err := im.db.UpdateSourceLastScanned(source.ID); err != nil {
			im.logger.Warn("Failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
	}

	im.logger.Info("reconciliation complete",
		"path", source.Path,
		"deck_id", source.DeckID,
		"parsed_entries", res.Parsed,
		"orphaned_deleted", res.Removed,
		"errors", len(res.Errors),
	)
	return res
}

// Err joins the errors of a result, or returns nil.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Sources lists the registered sources.
func (im *Importer) Sources() ([]storage.Source, error) {
	return im.db.GetAllSources()
}

// RemoveSource unregisters a source. Cards already imported stay in their deck.
func (im *Importer) RemoveSource(id int64) error {
	return im.db.DeleteSource(id)
}

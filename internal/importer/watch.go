package importer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/conorfennell/vocadeck/internal/storage"
)

// DefaultDebounce is how long a local source must be quiet before it is
// re-imported.
const DefaultDebounce = 500 * time.Millisecond

// Watch re-imports local sources whenever a markdown file under them
// changes, until ctx is cancelled. Sources added after Watch starts are not
// picked up.
func (im *Importer) Watch(ctx context.Context, debounce time.Duration) error {
	sources, err := im.db.GetAllSources()
	if err != nil {
		return fmt.Errorf("failed to get sources: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	var local []storage.Source
	for _, src := range sources {
		if src.Type != storage.SourceLocal {
			continue
		}
		if err := addRecursive(watcher, src.Path); err != nil {
			im.logger.Warn("Cannot watch source", "path", src.Path, "error", err)
			continue
		}
		local = append(local, src)
	}
	im.logger.Info("Watching local sources", "count", len(local))

	var (
		mu       sync.Mutex
		inflight sync.WaitGroup
		stopped  bool
	)
	timers := make(map[int64]*time.Timer)
	// Imports already running finish before Watch returns, so the caller
	// may close the database right after.
	defer func() {
		mu.Lock()
		stopped = true
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()
		inflight.Wait()
	}()

	schedule := func(src storage.Source) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[src.ID]; ok {
			t.Stop()
		}
		timers[src.ID] = time.AfterFunc(debounce, func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			inflight.Add(1)
			mu.Unlock()
			defer inflight.Done()
			im.ImportSource(src, src.Path)
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				// New subdirectories need their own watch.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(watcher, event.Name); err != nil {
						im.logger.Warn("Cannot watch new directory", "path", event.Name, "error", err)
					}
				}
			}
			if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
				continue
			}
			if src, ok := owningSource(local, event.Name); ok {
				im.logger.Debug("Source changed", "path", event.Name, "op", event.Op.String())
				schedule(src)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			im.logger.Warn("Watcher error", "error", err)
		}
	}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func owningSource(sources []storage.Source, path string) (storage.Source, bool) {
	for _, src := range sources {
		rel, err := filepath.Rel(src.Path, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return src, true
		}
	}
	return storage.Source{}, false
}

package cli

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cruffinoni/gobars/internal/fswalk"
)

const watchDebounce = 100 * time.Millisecond

// watch runs a full pass, then another one after each burst of template
// changes, until ctx is cancelled. Failed passes are logged and watching
// continues.
func (p *precompiler) watch(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.run(ctx); err != nil {
		p.logger.Error("precompile failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dirs, err := fswalk.Dirs(p.cfg.In)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}
	p.logger.Info("watching templates", "root", p.cfg.In, "dirs", len(dirs))

	return watchLoop(ctx, watcher.Events, watcher.Errors, watchDebounce, p.logger, func(events []fsnotify.Event) {
		changed := p.changedTemplates(events, watcher)
		if len(changed) == 0 {
			return
		}
		p.logger.Info("templates changed", "files", changed)
		if err := p.run(ctx); err != nil {
			p.logger.Error("precompile failed", "error", err)
		}
	})
}

// watchLoop batches events until none arrive for debounce, then hands the
// batch to flush.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, debounce time.Duration, logger *slog.Logger, flush func([]fsnotify.Event)) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var pending []fsnotify.Event
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			pending = append(pending, event)
			timer.Reset(debounce)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		case <-timer.C:
			batch := pending
			pending = nil
			if len(batch) > 0 {
				flush(batch)
			}
		}
	}
}

type dirAdder interface {
	Add(name string) error
}

// changedTemplates returns the sorted relative paths of the templates an
// event batch touched. New directories are added to the watch.
func (p *precompiler) changedTemplates(events []fsnotify.Event, watcher dirAdder) []string {
	seen := map[string]struct{}{}
	for _, event := range events {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				dirs, err := fswalk.Dirs(event.Name)
				if err != nil {
					p.logger.Warn("scan new directory failed", "dir", event.Name, "error", err)
					continue
				}
				for _, dir := range dirs {
					if err := watcher.Add(dir); err != nil {
						p.logger.Warn("watch directory failed", "dir", dir, "error", err)
					}
				}
				continue
			}
		}
		if event.Op == fsnotify.Chmod {
			continue
		}
		rel, ok, err := fswalk.Match(p.cfg.In, p.cfg.Glob, event.Name)
		if err != nil || !ok {
			continue
		}
		seen[rel] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

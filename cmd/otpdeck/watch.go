package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/otpdeck/otpdeck/internal/display"
)

const clearScreen = "\033[H\033[2J"

// watchInterval is how often the board is redrawn
var watchInterval = time.Second

// watchCodes redraws the board until ctx is done. The entry list is
// reloaded when the vault file changes, e.g. after an add from another
// terminal.
func (a *App) watchCodes(ctx context.Context, s Store, board *display.Board) error {
	entries, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	dbPath := filepath.Clean(a.Config.DB)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("vault changes will not be picked up", "err", err)
	} else {
		defer watcher.Close()
		// Watch the directory: SQLite may replace the file
		if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
			slog.Warn("vault changes will not be picked up", "err", err)
		} else {
			events, errs = watcher.Events, watcher.Errors
		}
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		if a.ClearScreen {
			fmt.Fprint(a.Stdout, clearScreen)
		}
		if err := board.Render(ctx, a.Stdout, entries, a.Now()); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !a.waitForRedraw(ctx, ticker.C, &events, &errs, func() {
			if reloaded, err := s.List(ctx); err == nil {
				entries = reloaded
			} else if ctx.Err() == nil {
				slog.Warn("failed to reload entries", "err", err)
			}
		}) {
			return nil
		}
	}
}

// waitForRedraw blocks until the next tick or until the vault file itself
// changes, calling reload in the latter case. Other events in the vault
// directory, such as journal writes, are consumed without a redraw. It
// reports false once ctx is done.
func (a *App) waitForRedraw(ctx context.Context, tick <-chan time.Time, events *<-chan fsnotify.Event, errs *<-chan error, reload func()) bool {
	dbPath := filepath.Clean(a.Config.DB)

	for {
		select {
		case <-ctx.Done():
			return false
		case <-tick:
			return true
		case ev, ok := <-*events:
			if !ok {
				*events = nil
				continue
			}
			if filepath.Clean(ev.Name) != dbPath || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			slog.Debug("vault changed, reloading entries", "op", ev.Op.String())
			reload()
			return true
		case err, ok := <-*errs:
			if !ok {
				*errs = nil
				continue
			}
			slog.Warn("vault watcher error", "err", err)
		}
	}
}

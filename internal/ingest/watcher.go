package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Dir         string        // drop directory, not recursive
	InitialScan bool          // emit batch files already present
	Debounce    time.Duration // coalesce write bursts of spreadsheet saves
}

// Watch emits paths of batch files created or written in cfg.Dir until ctx ends.
func Watch(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, nil, errors.New("watch directory is required")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("ingest.watch.create_failed", "err", err)
		return nil, nil, err
	}
	if err := w.Add(cfg.Dir); err != nil {
		_ = w.Close()
		logger.Error("ingest.watch.add_failed", "dir", cfg.Dir, "err", err)
		return nil, nil, err
	}

	evCh := make(chan string, 64)
	errCh := make(chan error, 1)

	var initial []string
	if cfg.InitialScan {
		entries, err := os.ReadDir(cfg.Dir)
		if err != nil {
			_ = w.Close()
			return nil, nil, err
		}
		for _, e := range entries {
			p := filepath.Join(cfg.Dir, e.Name())
			if !e.IsDir() && AllowedExt(filepath.Ext(p)) && !IsHidden(p) {
				initial = append(initial, p)
			}
		}
	}

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("ingest.watch.close_failed", "err", err)
			}
		}()

		for _, p := range initial {
			select {
			case evCh <- p:
			case <-ctx.Done():
				return
			}
		}

		pending := map[string]time.Time{}
		tick := time.NewTicker(tickInterval(cfg.Debounce))
		defer tick.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if IsHidden(e.Name) || !AllowedExt(filepath.Ext(e.Name)) {
					continue
				}
				if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[e.Name] = time.Now()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("ingest.watch.error", "err", err)
				select {
				case errCh <- err:
				default:
				}
			case now := <-tick.C:
				for p, seen := range pending {
					if now.Sub(seen) < cfg.Debounce {
						continue
					}
					delete(pending, p)
					select {
					case evCh <- p:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func tickInterval(debounce time.Duration) time.Duration {
	if debounce <= 0 {
		return 50 * time.Millisecond
	}
	return debounce / 2
}

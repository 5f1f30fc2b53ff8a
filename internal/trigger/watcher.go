package trigger

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"campusflow/internal/event"
	"campusflow/internal/policy"
	logx "campusflow/pkg/logx"
)

// CatalogWatcher reloads the event catalog when its file changes and turns
// the old/new diff into notification candidates: added events become
// high-match candidates (the policy engine drops low scores), moved events
// become location-change candidates.
type CatalogWatcher struct {
	path   string
	engine Engine
	log    logx.Logger
}

func NewCatalogWatcher(path string, engine Engine, log logx.Logger) *CatalogWatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &CatalogWatcher{
		path:   path,
		engine: engine,
		log:    log.With(logx.String("trigger", "catalog")),
	}
}

// Reload loads the catalog file, installs it, and offers candidates for the
// diff against the previously installed version.
func (w *CatalogWatcher) Reload(ctx context.Context) error {
	next, err := event.LoadCatalog(w.path)
	if err != nil {
		return err
	}
	prev := w.engine.Catalog()
	w.engine.SetCatalog(next)

	// First load: nothing to diff, nothing to announce.
	if prev == nil {
		return nil
	}

	ch := next.Diff(prev)
	for _, ev := range ch.Added {
		w.offer(ctx, policy.Candidate{
			EventID:    ev.ID,
			Reason:     policy.ReasonHighMatchNew,
			MatchScore: ev.MatchScore,
		})
	}
	for _, ev := range ch.Moved {
		w.offer(ctx, policy.Candidate{
			EventID:    ev.ID,
			Reason:     policy.ReasonLocationChanged,
			MatchScore: ev.MatchScore,
		})
	}
	return nil
}

func (w *CatalogWatcher) offer(ctx context.Context, c policy.Candidate) {
	if err := w.engine.Submit(ctx, c); err != nil {
		w.log.Warn("catalog candidate failed",
			logx.String("event", c.EventID),
			logx.String("reason", string(c.Reason)),
			logx.Err(err),
		)
	}
}

// Run watches the catalog file until ctx is done. Changes are debounced so
// editors that write in multiple steps trigger a single reload.
func (w *CatalogWatcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, func() {
			if err := w.Reload(ctx); err != nil {
				w.log.Warn("catalog reload failed", logx.String("path", w.path), logx.Err(err))
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) {
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove|fsnotify.Chmod) != 0 {
					debounce()
				}
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.log.Warn("catalog watch error", logx.Err(err))
			}
		}
	}
}

// Package watcher re-ingests the docs directory when course scripts change.
package watcher

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Ingester triggers a corpus pass. Ingest is idempotent, so re-running after
// every change batch is safe.
type Ingester interface {
	Reingest(ctx context.Context) error
}

// DocsWatcher watches a directory of course scripts and triggers a re-ingest
// after writes settle. Events are debounced so one saved file does not cause
// several passes.
type DocsWatcher struct {
	dir      string
	ingester Ingester
	debounce time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewDocsWatcher(dir string, ingester Ingester, debounce time.Duration) *DocsWatcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &DocsWatcher{
		dir:      dir,
		ingester: ingester,
		debounce: debounce,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start runs the watch loop until the context is cancelled or Stop is called.
func (w *DocsWatcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return err
	}

	go w.run(ctx, fsw)
	return nil
}

func (w *DocsWatcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.doneChan)
	defer fsw.Close()

	log.Printf("Watching %s for course script changes", w.dir)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			log.Println("Docs watcher stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("Docs watcher stopped: stop signal received")
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".txt") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Docs watcher error: %v", err)
		case <-pending:
			pending = nil
			if err := w.ingester.Reingest(ctx); err != nil {
				log.Printf("Docs watcher re-ingest failed: %v", err)
			}
		}
	}
}

// Stop gracefully stops the watcher.
func (w *DocsWatcher) Stop() {
	close(w.stopChan)
	<-w.doneChan
}

package preview

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/quizmark/quizmark/internal/bank"
	"github.com/quizmark/quizmark/internal/logging"
)

// ConvertFunc converts one Markdown source into quiz XML and reports
// how many questions it produced.
type ConvertFunc func(source []byte) (xml []byte, questions int, err error)

// Watcher polls a set of Markdown files and re-converts any file whose
// content digest changed, broadcasting the result through the hub.
type Watcher struct {
	hub      *Hub
	convert  ConvertFunc
	paths    []string
	interval time.Duration
	digests  map[string]string

	mu      sync.RWMutex
	results map[string][]byte
}

// NewWatcher creates a watcher over the given files.
func NewWatcher(hub *Hub, convert ConvertFunc, paths []string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		hub:      hub,
		convert:  convert,
		paths:    paths,
		interval: interval,
		digests:  make(map[string]string),
		results:  make(map[string][]byte),
	}
}

// Run polls until the context is cancelled. The first poll always
// converts every file so clients get an initial render.
func (w *Watcher) Run(ctx context.Context) {
	w.poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

// Latest returns the most recent successful conversion for path.
func (w *Watcher) Latest(path string) ([]byte, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	data, ok := w.results[path]
	return data, ok
}

func (w *Watcher) poll() {
	for _, path := range w.paths {
		source, err := os.ReadFile(path)
		if err != nil {
			logging.Warn("cannot read watched file", "path", path, "error", err)
			continue
		}

		digest := bank.Digest(source)
		if w.digests[path] == digest {
			continue
		}
		w.digests[path] = digest

		xml, questions, err := w.convert(source)
		if err != nil {
			logging.Error("conversion failed", "path", path, "error", err)
			w.hub.Broadcast(UpdateMessage{
				Type:    "error",
				Path:    path,
				Message: err.Error(),
			})
			continue
		}

		w.mu.Lock()
		w.results[path] = xml
		w.mu.Unlock()
		logging.Debug("document reconverted", "path", path, "questions", questions)
		w.hub.Broadcast(UpdateMessage{
			Type:      "update",
			Path:      path,
			Questions: questions,
			XML:       string(xml),
		})
	}
}

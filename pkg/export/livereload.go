package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// LiveReloadHub watches a data file and pushes reload events to connected
// SSE clients when it changes.
type LiveReloadHub struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *log.Logger

	mu      sync.RWMutex
	clients map[chan struct{}]struct{}

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once

	// debounce rapid file changes; editors often write in several steps
	lastEvent time.Time
	debounce  time.Duration
}

// NewLiveReloadHub creates a hub for the given data file. A nil logger
// discards watcher errors.
func NewLiveReloadHub(path string, logger *log.Logger) (*LiveReloadHub, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := &LiveReloadHub{
		path:     filepath.Clean(path),
		watcher:  watcher,
		logger:   logger,
		clients:  make(map[chan struct{}]struct{}),
		ctx:      ctx,
		cancel:   cancel,
		debounce: 200 * time.Millisecond,
	}

	return hub, nil
}

// Start begins watching. The parent directory is watched rather than the
// file itself so atomic saves (write temp, rename over) are still seen.
func (h *LiveReloadHub) Start() error {
	if err := h.watcher.Add(filepath.Dir(h.path)); err != nil {
		return fmt.Errorf("watch data dir: %w", err)
	}
	go h.watchLoop()
	return nil
}

// Stop shuts down the hub and disconnects every client. It is safe to call
// more than once.
func (h *LiveReloadHub) Stop() {
	h.stopOnce.Do(func() {
		h.cancel()
		h.watcher.Close()

		h.mu.Lock()
		defer h.mu.Unlock()
		for ch := range h.clients {
			close(ch)
		}
		h.clients = make(map[chan struct{}]struct{})
	})
}

// ClientCount returns the number of connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// watchLoop processes file system events and notifies clients.
func (h *LiveReloadHub) watchLoop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != h.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			now := time.Now()
			if now.Sub(h.lastEvent) < h.debounce {
				continue
			}
			h.lastEvent = now

			h.notifyClients()

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Printf("warning: watching %s: %v", h.path, err)
		}
	}
}

// notifyClients signals every connected client without blocking; a client
// that already has a reload queued is skipped.
func (h *LiveReloadHub) notifyClients() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (h *LiveReloadHub) register() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *LiveReloadHub) unregister(ch chan struct{}) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
}

// SSEHandler serves the event stream browsers subscribe to.
func (h *LiveReloadHub) SSEHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		clientCh := h.register()
		defer h.unregister(clientCh)

		fmt.Fprint(w, sseEvent("connected", `{"status":"connected"}`))
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-h.ctx.Done():
				return
			case _, ok := <-clientCh:
				if !ok {
					return
				}
				fmt.Fprint(w, sseEvent("reload", `{"action":"reload"}`))
				flusher.Flush()
			}
		}
	}
}

func sseEvent(name, data string) string {
	return "event: " + name + "\ndata: " + data + "\n\n"
}

// eventsPath is where the reload script connects.
const eventsPath = "/__preview__/events"

// LiveReloadScript reconnects with exponential backoff and reloads the
// page on every reload event.
const LiveReloadScript = `<script>
(function() {
  if (typeof(EventSource) === 'undefined') return;
  var delay = 1000;

  function connect() {
    var es = new EventSource('` + eventsPath + `');
    es.addEventListener('connected', function() { delay = 1000; });
    es.addEventListener('reload', function() { location.reload(); });
    es.onerror = function() {
      es.close();
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 30000);
    };
  }

  connect();
})();
</script>`

// liveReloadMiddleware injects the reload script into HTML responses.
func liveReloadMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ext := filepath.Ext(r.URL.Path); ext != "" && ext != ".html" {
			next.ServeHTTP(w, r)
			return
		}
		irw := &injectingResponseWriter{ResponseWriter: w, inject: []byte(LiveReloadScript)}
		next.ServeHTTP(irw, r)
		irw.Flush()
	})
}

// injectingResponseWriter buffers a page until </html> and places the
// script before </body>, or at the end when the page has no body close.
type injectingResponseWriter struct {
	http.ResponseWriter
	inject    []byte
	buf       []byte
	injected  bool
	committed bool
}

func (w *injectingResponseWriter) Write(b []byte) (int, error) {
	if w.committed {
		return w.ResponseWriter.Write(b)
	}
	w.buf = append(w.buf, b...)

	if !w.injected {
		if idx := bytes.LastIndex(w.buf, []byte("</body>")); idx >= 0 {
			out := make([]byte, 0, len(w.buf)+len(w.inject))
			out = append(out, w.buf[:idx]...)
			out = append(out, w.inject...)
			w.buf = append(out, w.buf[idx:]...)
			w.injected = true
		}
	}

	if bytes.Contains(w.buf, []byte("</html>")) {
		w.committed = true
		_, err := w.ResponseWriter.Write(w.buf)
		return len(b), err
	}
	return len(b), nil
}

// Flush writes whatever is still buffered.
func (w *injectingResponseWriter) Flush() {
	if !w.committed && len(w.buf) > 0 {
		w.committed = true
		if !w.injected {
			w.buf = append(w.buf, w.inject...)
		}
		w.ResponseWriter.Write(w.buf)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

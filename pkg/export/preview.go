package export

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/view"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

// PreviewServer serves the rendered tree of a data file and tells open
// browsers to reload whenever the file changes. Every request re-reads
// the file, so the page always reflects what is on disk.
type PreviewServer struct {
	dataPath string
	opts     widget.Options
	title    string
	logger   *log.Logger
	hub      *LiveReloadHub
}

// NewPreviewServer creates a server for dataPath. The widget options pick
// the root element and rendering; clock and pointer settings are unused.
func NewPreviewServer(dataPath string, opts widget.Options) (*PreviewServer, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	hub, err := NewLiveReloadHub(dataPath, logger)
	if err != nil {
		return nil, err
	}
	return &PreviewServer{
		dataPath: dataPath,
		opts:     opts,
		title:    strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath)),
		logger:   logger,
		hub:      hub,
	}, nil
}

// Hub exposes the reload hub.
func (s *PreviewServer) Hub() *LiveReloadHub { return s.hub }

// Handler routes the page, the event stream and a JSON snapshot.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", liveReloadMiddleware(http.HandlerFunc(s.servePage)))
	mux.Handle(eventsPath, s.hub.SSEHandler())
	mux.HandleFunc("/tree.json", s.serveJSON)
	return mux
}

// build renders the data file into a fresh document.
func (s *PreviewServer) build() (*widget.Tree, error) {
	items, err := loader.LoadFile(s.dataPath)
	if err != nil {
		return nil, err
	}
	doc := view.NewDocument()
	doc.CreateRoot(s.opts.RootElement, "ul")
	return widget.New(doc, items, s.opts)
}

func (s *PreviewServer) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	t, err := s.build()
	if err != nil {
		// The page still carries the reload script, so fixing the file
		// brings the tree back without a manual refresh.
		s.logger.Printf("warning: preview: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, generatePage(s.title, pageCSS(view.DefaultConfig()),
			"<pre>"+html.EscapeString(err.Error())+"</pre>\n"))
		return
	}
	if err := WriteHTMLPage(w, t.Document(), PageOptions{Title: s.title, Config: t.Config()}); err != nil {
		s.logger.Printf("warning: preview: %v", err)
	}
}

func (s *PreviewServer) serveJSON(w http.ResponseWriter, r *http.Request) {
	t, err := s.build()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(t.Model().Snapshot()); err != nil {
		s.logger.Printf("warning: preview: %v", err)
	}
}

// Run listens on addr and serves until ctx is cancelled.
func (s *PreviewServer) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the file watcher and the HTTP server on ln until ctx is
// cancelled or either fails. Open event streams are closed on shutdown.
func (s *PreviewServer) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.hub.Start(); err != nil {
		ln.Close()
		return err
	}
	defer s.hub.Stop()

	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.hub.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

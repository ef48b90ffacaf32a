package ui

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// WorkerState represents the current state of the data worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is reading the file.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string // "read", "parse"
	Cause   error
	Time    time.Time
	Retries int
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// DataReloadedMsg carries a freshly parsed data file, or the error that
// stopped it from parsing.
type DataReloadedMsg struct {
	Path  string
	Items []model.Item
	Err   error
}

// DataWorker watches a data file and parses it off the UI goroutine
// whenever its content changes.
type DataWorker struct {
	path          string
	debounceDelay time.Duration
	logger        *log.Logger

	mu         sync.RWMutex
	state      WorkerState
	dirty      bool
	started    bool
	lastHash   string
	lastError  *WorkerError
	errorCount int

	watcher *fsnotify.Watcher
	out     chan DataReloadedMsg

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// WorkerConfig configures the DataWorker.
type WorkerConfig struct {
	Path          string
	DebounceDelay time.Duration
	Logger        *log.Logger
}

// NewDataWorker creates a worker for cfg.Path.
func NewDataWorker(cfg WorkerConfig) (*DataWorker, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("data worker: no path")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &DataWorker{
		path:          filepath.Clean(cfg.Path),
		debounceDelay: cfg.DebounceDelay,
		logger:        cfg.Logger,
		state:         WorkerIdle,
		watcher:       fw,
		out:           make(chan DataReloadedMsg, 1),
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}, nil
}

// Path returns the watched file.
func (w *DataWorker) Path() string { return w.path }

// Start begins watching. The current content is hashed first so only
// real changes are reported. Start is idempotent.
func (w *DataWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	if data, err := os.ReadFile(w.path); err == nil {
		w.lastHash = hashContent(data)
	}
	w.mu.Unlock()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		close(w.done)
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	go w.processLoop()
	return nil
}

// Stop halts the worker and closes its update channel. Stop is idempotent.
func (w *DataWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()
	w.watcher.Close()

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
}

// Updates delivers parse results. It is closed once the worker stops.
func (w *DataWorker) Updates() <-chan DataReloadedMsg { return w.out }

// TriggerRefresh re-reads the file now, skipping the hash check.
func (w *DataWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.lastHash = ""
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	go w.process()
}

// State returns the current worker state.
func (w *DataWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// LastError returns the most recent error (nil if the last read succeeded).
func (w *DataWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// LastHash returns the content hash of the last processed file.
func (w *DataWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// processLoop debounces file events and triggers processing.
func (w *DataWorker) processLoop() {
	defer close(w.done)
	defer close(w.out)

	var debounce *time.Timer
	var fire <-chan time.Time
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(w.debounceDelay)
			} else {
				debounce.Reset(w.debounceDelay)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			w.process()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Printf("warning: watching %s: %v", w.path, err)
		}
	}
}

// process reads and parses the file, then publishes the result unless the
// content is unchanged.
func (w *DataWorker) process() {
	w.mu.Lock()
	if w.state != WorkerIdle {
		if w.state == WorkerProcessing {
			w.dirty = true
		}
		w.mu.Unlock()
		return
	}
	w.state = WorkerProcessing
	w.dirty = false
	w.mu.Unlock()

	msg, changed := w.load()

	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	wasDirty := w.dirty
	w.state = WorkerIdle
	w.mu.Unlock()

	if changed {
		w.publish(msg)
	}
	if wasDirty {
		go w.process()
	}
}

// publish replaces any undelivered result so the UI only sees the newest.
func (w *DataWorker) publish(msg DataReloadedMsg) {
	defer func() {
		// out is closed once the loop exits; a late publish is dropped
		_ = recover()
	}()
	for {
		select {
		case w.out <- msg:
			return
		default:
		}
		select {
		case <-w.out:
		default:
		}
	}
}

func (w *DataWorker) load() (DataReloadedMsg, bool) {
	msg := DataReloadedMsg{Path: w.path}

	var data []byte
	if werr := w.safeCompute("read", func() error {
		var err error
		data, err = os.ReadFile(w.path)
		return err
	}); werr != nil {
		w.recordError(werr)
		w.logger.Printf("warning: %v", werr)
		msg.Err = werr
		return msg, true
	}

	hash := hashContent(data)
	w.mu.Lock()
	unchanged := hash == w.lastHash
	w.lastHash = hash
	w.mu.Unlock()
	if unchanged {
		return msg, false
	}

	if werr := w.safeCompute("parse", func() error {
		var err error
		msg.Items, err = loader.Load(bytes.NewReader(data), loader.FormatFor(w.path))
		return err
	}); werr != nil {
		w.recordError(werr)
		w.logger.Printf("warning: %v", werr)
		msg.Err = werr
		return msg, true
	}
	w.recordError(nil)
	return msg, true
}

// safeCompute executes fn and recovers from any panics.
func (w *DataWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

func (w *DataWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

func hashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WaitForReload returns a command that blocks until the worker publishes
// its next result. Re-issue it after each DataReloadedMsg.
func WaitForReload(w *DataWorker) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-w.Updates()
		if !ok {
			return nil
		}
		return msg
	}
}

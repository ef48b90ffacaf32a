// Package gesture turns raw pointer events into semantic gestures:
// single click, double click, toggle click and drag-and-drop.
//
// Click disambiguation is an explicit two-state machine driven by an
// injectable Clock, so tests advance virtual time instead of sleeping.
package gesture

import (
	"sync"
	"time"
)

// DefaultClickDelay is how long a single click waits for a second one.
const DefaultClickDelay = 400 * time.Millisecond

// DefaultDragThreshold is the dead zone (in pointer units) a press must
// leave before it becomes a drag.
const DefaultDragThreshold = 3

// State is the click-disambiguation state.
type State int

const (
	// Idle means no click is waiting for a follow-up.
	Idle State = iota
	// PendingSingleClick means a click was seen and its timer is armed.
	PendingSingleClick
)

func (s State) String() string {
	if s == PendingSingleClick {
		return "pending"
	}
	return "idle"
}

// EventType is the kind of raw pointer event.
type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	Click
)

// Button identifies the pointer button.
type Button int

const (
	ButtonNone Button = iota
	ButtonLeft
	ButtonMiddle
	ButtonRight
)

// Region is the part of a rendered node the pointer is over.
type Region int

const (
	RegionNone   Region = iota // Empty space, no node
	RegionValue                // The node label
	RegionToggle               // The open/close control
	RegionInput                // The rename input
)

// Point is a position in surface coordinates.
type Point struct {
	X, Y int
}

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Target is the hit-test result for a pointer event.
type Target struct {
	NodeID string
	Region Region
}

// PointerEvent is a raw pointer event, already hit-tested.
type PointerEvent struct {
	Type   EventType
	Button Button
	Target Target
	Pos    Point
}

// ActionType is the kind of resolved gesture.
type ActionType int

const (
	SingleClick ActionType = iota
	DoubleClick
	ToggleClicked
	DragStart
	DragMove
	Drop
	DragCancel
)

var actionNames = map[ActionType]string{
	SingleClick:   "singleClick",
	DoubleClick:   "doubleClick",
	ToggleClicked: "toggleClick",
	DragStart:     "dragStart",
	DragMove:      "dragMove",
	Drop:          "drop",
	DragCancel:    "dragCancel",
}

func (a ActionType) String() string { return actionNames[a] }

// Action is a resolved gesture.
type Action struct {
	Type     ActionType
	NodeID   string // Clicked node, or drag source
	TargetID string // Drop target
	Pos      Point  // Helper position for DragStart/DragMove
}

// MoveValidator answers drop-validity questions about the tree.
type MoveValidator interface {
	IsMoveAllowed(id, targetID string) bool
	ParentID(id string) (string, error)
}

// Config configures a Router. Zero values select the defaults.
type Config struct {
	ClickDelay    time.Duration
	Clock         Clock
	UseDrag       bool
	DragThreshold int
	HelperOffset  Point // Added to the pointer position for the drag helper
	Origin        Point // Container origin subtracted from pointer positions

	// Dispatch runs timer callbacks. nil runs them wherever the Clock
	// fires them.
	Dispatch func(func())
}

type dragRecord struct {
	source  string
	start   Point
	started bool
}

// Router is the gesture state machine. It is safe for concurrent use: with
// SystemClock the click timer fires on another goroutine.
type Router struct {
	cfg       Config
	validator MoveValidator
	emit      func(Action)

	mu           sync.Mutex
	state        State
	pendingID    string
	timer        Timer
	generation   int // Bumped on every arm/cancel so stale timers are ignored
	drag         *dragRecord
	suppressNext bool // Swallow the click that follows a completed drag
}

// NewRouter creates a router that reports gestures to emit. emit is never
// called while the router's lock is held.
func NewRouter(cfg Config, validator MoveValidator, emit func(Action)) *Router {
	if cfg.ClickDelay <= 0 {
		cfg.ClickDelay = DefaultClickDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.DragThreshold <= 0 {
		cfg.DragThreshold = DefaultDragThreshold
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { f() }
	}
	if emit == nil {
		emit = func(Action) {}
	}
	return &Router{cfg: cfg, validator: validator, emit: emit}
}

// State returns the current click state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Dragging reports whether a drag passed the dead zone and is in progress.
func (r *Router) Dragging() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drag != nil && r.drag.started
}

// SetOrigin updates the container origin used for helper positions.
func (r *Router) SetOrigin(p Point) {
	r.mu.Lock()
	r.cfg.Origin = p
	r.mu.Unlock()
}

// Handle feeds one pointer event into the state machine.
func (r *Router) Handle(ev PointerEvent) {
	if ev.Button == ButtonRight || ev.Button == ButtonMiddle {
		return
	}

	r.mu.Lock()
	var out []Action
	switch ev.Type {
	case Click:
		out = r.click(ev)
	case PointerDown:
		r.down(ev)
	case PointerMove:
		out = r.move(ev)
	case PointerUp:
		out = r.up(ev)
	}
	r.mu.Unlock()

	for _, a := range out {
		r.emit(a)
	}
}

// Reset cancels any pending click and any drag in progress without
// emitting anything.
func (r *Router) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelPending()
	r.drag = nil
	r.suppressNext = false
}

func (r *Router) click(ev PointerEvent) []Action {
	if r.suppressNext {
		r.suppressNext = false
		return nil
	}
	switch ev.Target.Region {
	case RegionToggle:
		return []Action{{Type: ToggleClicked, NodeID: ev.Target.NodeID}}
	case RegionValue:
	default:
		return nil
	}

	id := ev.Target.NodeID
	if r.state == PendingSingleClick {
		if r.pendingID == id {
			r.cancelPending()
			return []Action{{Type: DoubleClick, NodeID: id}}
		}
		// A click elsewhere settles the first node's click now.
		flushed := r.pendingID
		r.cancelPending()
		r.arm(id)
		return []Action{{Type: SingleClick, NodeID: flushed}}
	}
	r.arm(id)
	return nil
}

// arm starts the single-click timer for id. Caller holds r.mu.
func (r *Router) arm(id string) {
	r.generation++
	gen := r.generation
	r.state = PendingSingleClick
	r.pendingID = id
	dispatch := r.cfg.Dispatch
	r.timer = r.cfg.Clock.AfterFunc(r.cfg.ClickDelay, func() {
		dispatch(func() { r.fire(gen) })
	})
}

// cancelPending returns to Idle. Caller holds r.mu.
func (r *Router) cancelPending() {
	r.generation++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.state = Idle
	r.pendingID = ""
}

func (r *Router) fire(gen int) {
	r.mu.Lock()
	if gen != r.generation || r.state != PendingSingleClick {
		r.mu.Unlock()
		return
	}
	id := r.pendingID
	r.state = Idle
	r.pendingID = ""
	r.timer = nil
	r.mu.Unlock()

	r.emit(Action{Type: SingleClick, NodeID: id})
}

func (r *Router) down(ev PointerEvent) {
	r.suppressNext = false
	if !r.cfg.UseDrag || ev.Target.Region != RegionValue || ev.Target.NodeID == "" {
		return
	}
	r.drag = &dragRecord{source: ev.Target.NodeID, start: ev.Pos}
}

func (r *Router) helperPos(p Point) Point {
	return p.Sub(r.cfg.Origin).Add(r.cfg.HelperOffset)
}

func (r *Router) move(ev PointerEvent) []Action {
	if r.drag == nil {
		return nil
	}
	if !r.drag.started {
		d := ev.Pos.Sub(r.drag.start)
		if abs(d.X) <= r.cfg.DragThreshold && abs(d.Y) <= r.cfg.DragThreshold {
			return nil
		}
		r.drag.started = true
		pos := r.helperPos(ev.Pos)
		return []Action{
			{Type: DragStart, NodeID: r.drag.source, Pos: pos},
			{Type: DragMove, NodeID: r.drag.source, Pos: pos},
		}
	}
	return []Action{{Type: DragMove, NodeID: r.drag.source, Pos: r.helperPos(ev.Pos)}}
}

func (r *Router) up(ev PointerEvent) []Action {
	d := r.drag
	r.drag = nil
	if d == nil || !d.started {
		return nil
	}
	r.suppressNext = true

	target := ev.Target.NodeID
	if r.validDrop(d.source, target) {
		return []Action{{Type: Drop, NodeID: d.source, TargetID: target}}
	}
	return []Action{{Type: DragCancel, NodeID: d.source}}
}

// validDrop: the target is a node other than the source, is not the
// source's current parent, and the model allows the move.
func (r *Router) validDrop(source, target string) bool {
	if target == "" || target == source || r.validator == nil {
		return false
	}
	if parent, err := r.validator.ParentID(source); err != nil || parent == target {
		return false
	}
	return r.validator.IsMoveAllowed(source, target)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

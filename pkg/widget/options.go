package widget

import (
	"io"
	"log"
	"time"

	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/view"
)

// DefaultHelperPos is the drag helper's offset from the pointer.
var DefaultHelperPos = gesture.Point{X: 10, Y: 10}

// Options configures a Tree.
type Options struct {
	// RootElement is the id of the Document root the tree renders into.
	// Required.
	RootElement string

	ClassNames  view.ClassNames
	StateLabels view.StateLabels
	DepthLabels []string

	// DefaultState is the state of nodes whose description has none.
	DefaultState model.NodeState

	UseDrag       bool
	UseHelper     bool           // Show the drag helper; needs UseDrag
	HelperPos     *gesture.Point // nil means DefaultHelperPos
	DragThreshold int

	ClickDelay time.Duration
	// Clock drives click disambiguation. nil uses the wall clock; expired
	// click timers are then queued until the owner calls Tree.RunPending
	// (Tree.Pending signals when one is waiting).
	Clock gesture.Clock
	// Dispatch posts timer callbacks to the goroutine that owns the tree,
	// for event loops that have their own queue. It overrides the
	// RunPending queue.
	Dispatch func(func())

	IDGenerator tree.IDGenerator
	Logger      *log.Logger
}

func (o Options) renderConfig() view.Config {
	return view.Config{Classes: o.ClassNames, States: o.StateLabels, DepthLabels: o.DepthLabels}
}

func (o Options) helperPos() gesture.Point {
	if o.HelperPos == nil {
		return DefaultHelperPos
	}
	return *o.HelperPos
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return o.Logger
}

func (o Options) modelOptions() []tree.Option {
	var opts []tree.Option
	if o.DefaultState != "" {
		opts = append(opts, tree.WithDefaultState(o.DefaultState))
	}
	if o.IDGenerator != nil {
		opts = append(opts, tree.WithIDGenerator(o.IDGenerator))
	}
	return opts
}

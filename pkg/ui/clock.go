package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/arbor/pkg/gesture"
)

// timerMsg is delivered when a TeaClock timer comes due.
type timerMsg struct {
	id int
}

// TeaClock is a gesture.Clock whose timers fire as bubbletea messages, so
// click callbacks run on the program goroutine like every other update.
// Arming a timer only records it; the model turns recorded timers into
// tea.Tick commands with Drain after each update.
type TeaClock struct {
	now     func() time.Time
	nextID  int
	pending map[int]func()
	queued  []tea.Cmd
}

// NewTeaClock creates a clock backed by the wall clock.
func NewTeaClock() *TeaClock {
	return &TeaClock{now: time.Now, pending: make(map[int]func())}
}

func (c *TeaClock) Now() time.Time { return c.now() }

func (c *TeaClock) AfterFunc(d time.Duration, f func()) gesture.Timer {
	c.nextID++
	id := c.nextID
	c.pending[id] = f
	c.queued = append(c.queued, tea.Tick(d, func(time.Time) tea.Msg { return timerMsg{id: id} }))
	return teaTimer{clock: c, id: id}
}

// Drain returns the tick commands for timers armed since the last call.
func (c *TeaClock) Drain() tea.Cmd {
	if len(c.queued) == 0 {
		return nil
	}
	cmds := c.queued
	c.queued = nil
	return tea.Batch(cmds...)
}

// Fire runs the callback of a due timer. Stopped timers are ignored.
func (c *TeaClock) Fire(id int) bool {
	f, ok := c.pending[id]
	if !ok {
		return false
	}
	delete(c.pending, id)
	f()
	return true
}

// Pending reports how many timers are armed and not yet fired.
func (c *TeaClock) Pending() int { return len(c.pending) }

type teaTimer struct {
	clock *TeaClock
	id    int
}

func (t teaTimer) Stop() bool {
	if _, ok := t.clock.pending[t.id]; !ok {
		return false
	}
	delete(t.clock.pending, t.id)
	return true
}

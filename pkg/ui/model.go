package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/gesture"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/view"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

const (
	headerHeight = 1
	footerHeight = 1

	// DefaultRootElement is the Document root the terminal tree renders into.
	DefaultRootElement = "tree"
)

// Terminal cells are coarse, so the helper sits just below the pointer and
// a one-cell motion starts a drag.
var (
	terminalHelperPos     = gesture.Point{X: 2, Y: 1}
	terminalDragThreshold = 1
)

var copyToClipboard = clipboard.WriteAll

var errTitleRequired = errors.New("title is required")

const (
	scanDepth    = 3
	wheelStep    = 3
	addFormWidth = 48
)

type mode int

const (
	modeTree mode = iota
	modeEdit
	modeAdd
	modeHelp
	modePicker
)

// Model is the terminal surface: it renders a widget.Tree as rows and
// feeds it keyboard and mouse input.
type Model struct {
	opts     widget.Options
	dataPath string
	title    string

	widget *widget.Tree
	clock  *TeaClock
	theme  Theme
	tree   TreeView

	mode mode

	edit textinput.Model

	addForm   *huh.Form
	addTitle  string
	addState  string
	addParent string

	help         viewport.Model
	helpRenderer *glamour.TermRenderer
	helpCtx      Context

	picker FilePickerModel
	worker *DataWorker

	marked    string
	status    string
	statusErr bool

	pressed  gesture.Button
	pressing bool

	width  int
	height int
	ready  bool
}

// NewModel builds the terminal surface over items. dataPath names the file
// the items came from; it may be empty.
func NewModel(items []model.Item, opts widget.Options, dataPath string) (*Model, error) {
	if opts.RootElement == "" {
		opts.RootElement = DefaultRootElement
	}
	if opts.HelperPos == nil {
		p := terminalHelperPos
		opts.HelperPos = &p
	}
	if opts.DragThreshold == 0 {
		opts.DragThreshold = terminalDragThreshold
	}
	clock := NewTeaClock()
	opts.Clock = clock

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256

	m := &Model{
		opts:     opts,
		dataPath: dataPath,
		title:    titleFor(dataPath),
		clock:    clock,
		theme:    DefaultTheme(lipgloss.DefaultRenderer()),
		edit:     ti,
		helpCtx:  ContextTree,
	}
	m.tree = NewTreeView(m.theme)
	if err := m.load(items); err != nil {
		return nil, err
	}
	return m, nil
}

func titleFor(path string) string {
	if path == "" {
		return "arbor"
	}
	base := filepath.Base(path)
	for _, suffix := range []string{".tree.json", ".tree.yaml", ".tree.yml", ".json", ".yaml", ".yml"} {
		if strings.HasSuffix(base, suffix) {
			return strings.TrimSuffix(base, suffix)
		}
	}
	return base
}

// load replaces the widget with a fresh one over items.
func (m *Model) load(items []model.Item) error {
	doc := view.NewDocument()
	doc.CreateRoot(m.opts.RootElement, "ul")
	w, err := widget.New(doc, items, m.opts)
	if err != nil {
		return err
	}
	w.SetOrigin(gesture.Point{Y: headerHeight})
	m.widget = w
	m.marked = ""
	m.mode = modeTree
	m.subscribe()
	m.refresh()
	return nil
}

func (m *Model) subscribe() {
	w := m.widget
	w.On(widget.EventDoubleClick, func(widget.Event) { m.enterEdit() })
	w.On(widget.EventAdd, func(ev widget.Event) {
		if len(ev.IDs) > 0 {
			m.setStatus(fmt.Sprintf("added %q", m.nodeTitle(ev.IDs[0])))
		}
	})
	w.On(widget.EventRemove, func(widget.Event) {
		if m.marked != "" && !w.Model().Has(m.marked) {
			m.marked = ""
		}
	})
	w.On(widget.EventRename, func(ev widget.Event) {
		m.setStatus(fmt.Sprintf("renamed to %q", ev.Title))
	})
	w.On(widget.EventMove, func(ev widget.Event) {
		m.setStatus(fmt.Sprintf("moved %q", m.nodeTitle(ev.NodeID)))
		if ev.NewParentID != w.Model().RootID() {
			m.report(w.Open(ev.NewParentID))
		}
	})
}

// Widget returns the tree being shown.
func (m *Model) Widget() *widget.Tree { return m.widget }

// SetWorker attaches a reload worker; its results replace the tree.
func (m *Model) SetWorker(w *DataWorker) { m.worker = w }

// Status returns the status line text.
func (m *Model) Status() string { return m.status }

// Marked returns the id of the node marked for moving.
func (m *Model) Marked() string { return m.marked }

func (m *Model) Init() tea.Cmd {
	return WaitForReload(m.worker)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.syncEditMode()
	m.refresh()
	return m, tea.Batch(cmd, m.clock.Drain())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return nil

	case timerMsg:
		m.clock.Fire(msg.id)
		return nil

	case DataReloadedMsg:
		if msg.Err != nil {
			m.setError(fmt.Errorf("reload failed: %w", msg.Err))
		} else if err := m.reload(msg.Items); err != nil {
			m.setError(err)
		} else {
			m.setStatus(fmt.Sprintf("reloaded %s", filepath.Base(msg.Path)))
		}
		return WaitForReload(m.worker)

	case OpenFileMsg:
		return m.openFile(msg.Path)

	case closePickerMsg:
		m.mode = modeTree
		return nil

	case tea.MouseMsg:
		if m.mode == modeTree || m.mode == modeEdit {
			m.handleMouse(msg)
		}
		return nil

	case tea.KeyMsg:
		if m.mode == modeTree {
			m.status = ""
		}
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeAdd:
			return m.updateAdd(msg)
		case modeHelp:
			return m.updateHelp(msg)
		case modePicker:
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return cmd
		default:
			return m.updateTree(msg)
		}
	}

	if m.mode == modeAdd {
		return m.updateAdd(msg)
	}
	return nil
}

// reload swaps in new data, keeping the selection when the node survives.
func (m *Model) reload(items []model.Item) error {
	selected := m.widget.Model().SelectedID()
	if err := m.load(items); err != nil {
		return err
	}
	if selected != "" && m.widget.Model().Has(selected) {
		if err := m.widget.Select(selected); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) resize(w, h int) {
	m.width = w
	m.height = h
	m.ready = true
	m.tree.SetSize(w, m.bodyHeight())
	m.edit.Width = max(10, w/2)
	m.picker.SetSize(w, m.bodyHeight())
	m.help = viewport.New(min(60, max(20, w-8)), max(3, m.bodyHeight()-6))
	m.helpRenderer = newHelpRenderer(m.help.Width - 2)
	if m.mode == modeHelp {
		m.help.SetContent(RenderContextHelp(m.helpCtx, m.helpRenderer))
	}
}

func (m *Model) bodyHeight() int {
	if h := m.height - headerHeight - footerHeight; h > 0 {
		return h
	}
	return 0
}

// refresh copies the widget's rendered rows into the view.
func (m *Model) refresh() {
	m.tree.SetRows(m.widget.Rows())
	m.tree.SetMarked(m.marked)
	if m.mode == modeEdit {
		m.tree.SetEditView(m.edit.View())
	} else {
		m.tree.SetEditView("")
	}
}

// syncEditMode follows rename mode started or ended inside the widget.
func (m *Model) syncEditMode() {
	editing := m.widget.Editing()
	switch {
	case editing != "" && m.mode != modeEdit && m.mode == modeTree:
		m.enterEdit()
	case editing == "" && m.mode == modeEdit:
		m.mode = modeTree
		m.edit.Blur()
	}
}

func (m *Model) enterEdit() {
	if m.widget.Editing() == "" {
		return
	}
	m.mode = modeEdit
	m.edit.SetValue(m.widget.EditValue())
	m.edit.CursorEnd()
	m.edit.Focus()
}

func (m *Model) nodeTitle(id string) string {
	if n, err := m.widget.Model().Node(id); err == nil {
		return n.Title
	}
	return id
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(err error) {
	m.status = err.Error()
	m.statusErr = true
}

// cursorID returns the node under the cursor, or "".
func (m *Model) cursorID() string {
	if row, ok := m.tree.CursorRow(); ok {
		return row.ID
	}
	return ""
}

func (m *Model) selectCursor() {
	id := m.cursorID()
	if id == "" || id == m.widget.Model().SelectedID() {
		return
	}
	if err := m.widget.Select(id); err != nil {
		m.setError(err)
	}
}

func (m *Model) updateTree(msg tea.KeyMsg) tea.Cmd {
	id := m.cursorID()
	switch {
	case key.Matches(msg, keys.Quit):
		return tea.Quit
	case key.Matches(msg, keys.Escape):
		if m.marked != "" {
			m.marked = ""
			m.setStatus("")
		}
	case key.Matches(msg, keys.Help):
		m.openHelp()
	case key.Matches(msg, keys.Down):
		m.tree.MoveDown()
		m.selectCursor()
	case key.Matches(msg, keys.Up):
		m.tree.MoveUp()
		m.selectCursor()
	case key.Matches(msg, keys.Top):
		m.tree.JumpToTop()
		m.selectCursor()
	case key.Matches(msg, keys.Bottom):
		m.tree.JumpToBottom()
		m.selectCursor()
	case key.Matches(msg, keys.PageDown):
		m.tree.PageDown()
		m.selectCursor()
	case key.Matches(msg, keys.PageUp):
		m.tree.PageUp()
		m.selectCursor()
	case key.Matches(msg, keys.Toggle):
		if id != "" {
			m.report(m.widget.Toggle(id))
		}
	case key.Matches(msg, keys.Expand):
		if id != "" {
			m.report(m.widget.Open(id))
		}
	case key.Matches(msg, keys.Collapse):
		m.collapse(id)
	case key.Matches(msg, keys.Rename):
		if id != "" {
			if err := m.widget.BeginEdit(id); err != nil {
				m.setError(err)
			} else {
				m.enterEdit()
			}
		}
	case key.Matches(msg, keys.Add):
		if id != "" {
			return m.startAdd(id)
		}
		return m.startAdd("")
	case key.Matches(msg, keys.AddTop):
		return m.startAdd("")
	case key.Matches(msg, keys.Remove):
		if id != "" {
			title := m.nodeTitle(id)
			if err := m.widget.Remove(id); err != nil {
				m.setError(err)
			} else {
				m.setStatus(fmt.Sprintf("removed %q", title))
			}
		}
	case key.Matches(msg, keys.Mark):
		if id != "" {
			m.marked = id
			m.setStatus(fmt.Sprintf("marked %q, move it with p or P", m.nodeTitle(id)))
		}
	case key.Matches(msg, keys.Put):
		m.put(id)
	case key.Matches(msg, keys.PutTop):
		m.put(m.widget.Model().RootID())
	case key.Matches(msg, keys.Copy):
		if id != "" {
			if err := copyToClipboard(id); err != nil {
				m.setError(fmt.Errorf("clipboard: %w", err))
			} else {
				m.setStatus(fmt.Sprintf("copied %s", id))
			}
		}
	case key.Matches(msg, keys.Open):
		m.openPicker()
	}
	return nil
}

// collapse closes an open node, or moves to the parent of a closed one.
func (m *Model) collapse(id string) {
	if id == "" {
		return
	}
	n, err := m.widget.Model().Node(id)
	if err != nil {
		m.setError(err)
		return
	}
	if n.IsOpen() && !n.IsLeaf() {
		m.report(m.widget.Close(id))
		return
	}
	if n.ParentID != "" && n.ParentID != m.widget.Model().RootID() {
		m.report(m.widget.Select(n.ParentID))
	}
}

// put moves the marked node under target.
func (m *Model) put(target string) {
	if m.marked == "" {
		m.setStatus("nothing marked, press m on a node first")
		return
	}
	if target == "" {
		target = m.widget.Model().RootID()
	}
	if !m.widget.IsMoveAllowed(m.marked, target) {
		m.setError(fmt.Errorf("cannot move %q there", m.nodeTitle(m.marked)))
		return
	}
	id := m.marked
	m.marked = ""
	if err := m.widget.Move(id, target); err != nil {
		m.setError(err)
		return
	}
	m.report(m.widget.Select(id))
}

func (m *Model) report(err error) {
	if err != nil {
		m.setError(err)
	}
}

func (m *Model) updateEdit(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		title := strings.TrimSpace(m.edit.Value())
		if title == "" {
			m.widget.CancelEdit()
			m.setStatus("empty title, rename cancelled")
			return nil
		}
		m.report(m.widget.CommitEdit(title))
		return nil
	case tea.KeyEsc:
		m.widget.CancelEdit()
		return nil
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	m.widget.SetEditValue(m.edit.Value())
	return cmd
}

// startAdd opens the add form for a child of parentID ("" = top level).
func (m *Model) startAdd(parentID string) tea.Cmd {
	m.addParent = parentID
	m.addTitle = ""
	m.addState = string(model.StateClosed)
	if m.opts.DefaultState != "" {
		m.addState = string(m.opts.DefaultState)
	}

	heading := "New top-level node"
	if parentID != "" {
		heading = fmt.Sprintf("New child of %q", m.nodeTitle(parentID))
	}
	m.addForm = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(heading).
				Placeholder("title").
				Value(&m.addTitle).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errTitleRequired
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("State").
				Options(
					huh.NewOption("closed", string(model.StateClosed)),
					huh.NewOption("opened", string(model.StateOpened)),
				).
				Value(&m.addState),
		),
	).WithShowHelp(false).WithWidth(addFormWidth)
	m.mode = modeAdd
	m.helpCtx = ContextAdd
	return m.addForm.Init()
}

func (m *Model) updateAdd(msg tea.Msg) tea.Cmd {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.cancelAdd()
		return nil
	}
	form, cmd := m.addForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.addForm = f
	}
	switch m.addForm.State {
	case huh.StateCompleted:
		m.finishAdd()
		return nil
	case huh.StateAborted:
		m.cancelAdd()
		return nil
	}
	return cmd
}

func (m *Model) finishAdd() {
	item := model.Item{Title: strings.TrimSpace(m.addTitle), State: model.NodeState(m.addState)}
	parent := m.addParent
	m.cancelAdd()
	ids, err := m.widget.Add([]model.Item{item}, parent)
	if err != nil {
		m.setError(err)
		return
	}
	if parent != "" {
		m.report(m.widget.Open(parent))
	}
	m.report(m.widget.Select(ids[0]))
}

func (m *Model) cancelAdd() {
	m.addForm = nil
	m.mode = modeTree
	m.helpCtx = ContextTree
}

func (m *Model) openHelp() {
	ctx := ContextTree
	if m.marked != "" {
		ctx = ContextMove
	}
	m.helpCtx = ctx
	m.mode = modeHelp
	if m.helpRenderer == nil {
		m.helpRenderer = newHelpRenderer(56)
	}
	if m.help.Width == 0 {
		m.help = viewport.New(60, 20)
	}
	m.help.SetContent(RenderContextHelp(ctx, m.helpRenderer))
	m.help.GotoTop()
}

func (m *Model) updateHelp(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, keys.Escape) || key.Matches(msg, keys.Help) || key.Matches(msg, keys.Quit) {
		m.mode = modeTree
		m.helpCtx = ContextTree
		return nil
	}
	var cmd tea.Cmd
	m.help, cmd = m.help.Update(msg)
	return cmd
}

func (m *Model) openPicker() {
	root := "."
	if m.dataPath != "" {
		root = filepath.Dir(m.dataPath)
	}
	paths := config.ScanTreeFiles(root, scanDepth)
	if len(paths) == 0 {
		m.setStatus(fmt.Sprintf("no data files found under %s", root))
		return
	}
	m.picker = NewFilePicker(root, paths, m.dataPath, m.theme)
	m.picker.SetSize(m.width, m.bodyHeight())
	m.mode = modePicker
}

// openFile loads another data file and points the reload worker at it.
func (m *Model) openFile(path string) tea.Cmd {
	m.mode = modeTree
	items, err := loader.LoadFile(path)
	if err != nil {
		m.setError(fmt.Errorf("open %s: %w", path, err))
		return nil
	}
	if err := m.load(items); err != nil {
		m.setError(err)
		return nil
	}
	m.dataPath = path
	m.title = titleFor(path)
	m.setStatus("")

	if m.worker == nil {
		return nil
	}
	m.worker.Stop()
	w, err := NewDataWorker(WorkerConfig{Path: path, Logger: m.opts.Logger})
	if err != nil {
		m.worker = nil
		m.setError(err)
		return nil
	}
	if err := w.Start(); err != nil {
		m.worker = nil
		m.setError(err)
		return nil
	}
	m.worker = w
	return WaitForReload(w)
}

// Close stops the reload worker.
func (m *Model) Close() {
	if m.worker != nil {
		m.worker.Stop()
	}
}

// handleMouse turns terminal mouse reports into pointer events. A release
// is delivered as PointerUp followed by Click, the way a browser reports a
// button going up over the same element.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.tree.Scroll(-wheelStep)
		return
	case tea.MouseButtonWheelDown:
		m.tree.Scroll(wheelStep)
		return
	}

	ev := gesture.PointerEvent{
		Target: m.tree.HitTest(msg.X, msg.Y-headerHeight),
		Pos:    gesture.Point{X: msg.X, Y: msg.Y},
	}
	switch msg.Action {
	case tea.MouseActionPress:
		m.pressed = mouseButton(msg.Button)
		m.pressing = true
		ev.Type = gesture.PointerDown
		ev.Button = m.pressed
		m.widget.HandlePointer(ev)
	case tea.MouseActionMotion:
		if !m.pressing {
			return
		}
		ev.Type = gesture.PointerMove
		ev.Button = m.pressed
		m.widget.HandlePointer(ev)
	case tea.MouseActionRelease:
		if !m.pressing {
			return
		}
		m.pressing = false
		ev.Button = m.pressed
		ev.Type = gesture.PointerUp
		m.widget.HandlePointer(ev)
		ev.Type = gesture.Click
		m.widget.HandlePointer(ev)
	}
}

func mouseButton(b tea.MouseButton) gesture.Button {
	switch b {
	case tea.MouseButtonLeft:
		return gesture.ButtonLeft
	case tea.MouseButtonMiddle:
		return gesture.ButtonMiddle
	case tea.MouseButtonRight:
		return gesture.ButtonRight
	}
	return gesture.ButtonNone
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var body string
	switch m.mode {
	case modePicker:
		body = m.picker.View()
	case modeHelp:
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center,
			RenderHelpModal(m.help.View(), m.theme, m.width))
	case modeAdd:
		form := m.theme.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Primary).
			Padding(0, 1).
			Render(m.addForm.View())
		body = lipgloss.Place(m.width, m.bodyHeight(), lipgloss.Center, lipgloss.Center, form)
	default:
		body = padLines(m.tree.View(), m.bodyHeight())
		if h := m.widget.DragHelper(); h.Visible {
			body = overlayLine(body, h.X, h.Y, m.theme.Helper.Render(h.Text))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		padLines(body, m.bodyHeight()),
		m.renderFooter(),
	)
}

func (m *Model) renderHeader() string {
	t := m.theme
	title := t.Renderer.NewStyle().Foreground(t.Primary).Bold(true).Render(m.title)
	count := t.Renderer.NewStyle().Foreground(t.Muted).Render(fmt.Sprintf(" %d nodes", m.widget.Model().Len()))
	return title + count
}

func (m *Model) renderFooter() string {
	t := m.theme
	if m.status != "" {
		style := t.Status
		if m.statusErr {
			style = t.Renderer.NewStyle().Foreground(t.Error)
		}
		return style.Render(truncateTitle(m.status, m.width))
	}

	var hints []string
	switch m.mode {
	case modeEdit:
		hints = []string{"enter: save", "esc: cancel"}
	case modeAdd:
		hints = []string{"enter: next", "esc: cancel"}
	case modeHelp:
		hints = []string{"↑/↓: scroll", "esc: close"}
	case modePicker:
		hints = []string{"enter: open", "esc: back"}
	default:
		for _, b := range keys.footerHints() {
			h := b.Help()
			hints = append(hints, h.Key+": "+h.Desc)
		}
	}
	return t.Renderer.NewStyle().Foreground(t.Muted).Render(truncateTitle(strings.Join(hints, " • "), m.width))
}

package list

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/scrollkit/internal/collection"
	"github.com/charmbracelet/scrollkit/internal/config"
	"github.com/charmbracelet/scrollkit/internal/pool"
	"github.com/charmbracelet/scrollkit/internal/source"
	"github.com/charmbracelet/scrollkit/internal/window"
	"github.com/charmbracelet/x/ansi"
)

const ViewportDefaultScrollSize = 2

var errNotSized = errors.New("terminal size not known yet")

// Source describes where the listed entries come from.
type Source struct {
	// Root is scanned for entries unless Entries is set.
	Root    string
	Options source.Options
	// Entries is a fixed listing, e.g. generated items.
	Entries []source.Entry
	// Watch re-scans Root when files change.
	Watch    bool
	Debounce time.Duration
}

type confOptions struct {
	keyMap        KeyMap
	styles        Styles
	layout        config.ListOptions
	configUpdates <-chan *config.Config
	overrides     func(*config.ListOptions)
}

type ListOption func(*confOptions)

func WithKeyMap(keyMap KeyMap) ListOption {
	return func(o *confOptions) {
		o.keyMap = keyMap
	}
}

func WithStyles(styles Styles) ListOption {
	return func(o *confOptions) {
		o.styles = styles
	}
}

// WithLayout sets the initial list layout.
func WithLayout(layout config.ListOptions) ListOption {
	return func(o *confOptions) {
		o.layout = layout
	}
}

// WithConfigUpdates applies every config received on ch to the layout.
func WithConfigUpdates(ch <-chan *config.Config) ListOption {
	return func(o *confOptions) {
		o.configUpdates = ch
	}
}

// WithLayoutOverrides sets a function that adjusts every layout received
// through config updates, so command line settings survive a reload.
func WithLayoutOverrides(fn func(*config.ListOptions)) ListOption {
	return func(o *confOptions) {
		o.overrides = fn
	}
}

type (
	scanMsg struct {
		entries []source.Entry
		err     error
	}
	sourceChangedMsg struct{}
	configMsg        struct{ cfg *config.Config }
	previewMsg       struct {
		ctx   context.Context
		cell  *Cell
		index int
		text  string
	}
)

// Model is a terminal list that only renders the rows on screen. It is the
// host and the binder of a window engine: the engine decides which entries
// are realized, the model draws them.
type Model struct {
	*confOptions

	src Source

	width, height int
	offset        float64
	content       float64

	all    []source.Entry
	data   *collection.Collection[source.Entry]
	cells  *pool.Pool[*Cell]
	engine *window.Engine[source.Entry, *Cell]

	filter    textinput.Model
	filtering bool

	watcher *source.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	pending []tea.Cmd
	err     error
}

// New builds the list. Entries show up once Init's load command completes.
func New(src Source, opts ...ListOption) (*Model, error) {
	o := &confOptions{
		keyMap: DefaultKeyMap(),
		styles: DefaultStyles(),
		layout: config.ListOptions{ItemHeight: 1, WheelStep: ViewportDefaultScrollSize},
	}
	for _, opt := range opts {
		opt(o)
	}

	data, err := collection.New(source.ID, collection.WithEqual(source.Equal))
	if err != nil {
		return nil, err
	}
	cells, err := newCellPool(o.layout.PoolCapacity, slog.Default())
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		confOptions: o,
		src:         src,
		data:        data,
		cells:       cells,
		filter:      ti,
		ctx:         ctx,
		cancel:      cancel,
	}

	m.engine, err = window.New[source.Entry, *Cell](data, cells, m, m, m.engineOptions()...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create list engine: %w", err)
	}

	if src.Watch && src.Root != "" && src.Entries == nil {
		m.watcher, err = source.NewWatcher(src.Root, src.Options, src.Debounce)
		if err != nil {
			m.Close()
			return nil, err
		}
	}
	return m, nil
}

func (m *Model) engineOptions() []window.Option {
	l := m.layout
	return []window.Option{
		window.WithItemHeight(float64(m.itemHeight())),
		window.WithSpacing(float64(l.Spacing)),
		window.WithPadding(float64(l.PaddingTop), float64(l.PaddingBottom)),
		window.WithOverscan(l.OverscanBefore, l.OverscanAfter),
		window.WithLogger(slog.Default()),
		// a one row list is a real layout, only zero height means unsized
		window.WithMinViewportHeight(0),
	}
}

func (m *Model) itemHeight() int {
	h := max(1, m.layout.ItemHeight)
	if m.layout.ShowDetails {
		h = max(2, h)
	}
	return h
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.load()}
	if m.watcher != nil {
		go m.watcher.Run(m.ctx)
		cmds = append(cmds, waitForChange(m.watcher.Changes()))
	}
	if m.configUpdates != nil {
		cmds = append(cmds, waitForConfig(m.configUpdates))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	case tea.MouseWheelMsg:
		return m, m.handleMouseWheel(msg)
	case tea.KeyPressMsg:
		cmds = append(cmds, m.handleKey(msg))
	case scanMsg:
		if msg.err != nil {
			slog.Error("Failed to load entries", "error", msg.err)
			m.err = msg.err
			break
		}
		m.err = nil
		m.all = msg.entries
		m.applyFilter()
	case sourceChangedMsg:
		cmds = append(cmds, m.load())
		if m.watcher != nil {
			cmds = append(cmds, waitForChange(m.watcher.Changes()))
		}
	case configMsg:
		layout := msg.cfg.List
		if m.overrides != nil {
			m.overrides(&layout)
		}
		m.ApplyLayout(layout)
		if m.configUpdates != nil {
			cmds = append(cmds, waitForConfig(m.configUpdates))
		}
	case previewMsg:
		// late results for cells that moved on are dropped
		if msg.ctx.Err() == nil && m.engine.IsBound(msg.cell, msg.index) {
			msg.cell.preview = msg.text
		}
	}
	cmds = append(cmds, m.flush()...)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleMouseWheel(msg tea.MouseWheelMsg) tea.Cmd {
	step := max(1, m.layout.WheelStep)
	switch msg.Button {
	case tea.MouseWheelDown:
		m.ScrollBy(step)
	case tea.MouseWheelUp:
		m.ScrollBy(-step)
	}
	return tea.Batch(m.flush()...)
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	if m.filtering {
		switch {
		case key.Matches(msg, m.keyMap.ClearFilter):
			m.filtering = false
			m.filter.Blur()
			m.SetFilter("")
			return nil
		case key.Matches(msg, m.keyMap.AcceptFilter):
			m.filtering = false
			m.filter.Blur()
			return nil
		}
		before := m.filter.Value()
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.applyFilter()
		}
		return cmd
	}

	page := m.listHeight()
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		return tea.Quit
	case key.Matches(msg, m.keyMap.Down):
		m.ScrollBy(1)
	case key.Matches(msg, m.keyMap.Up):
		m.ScrollBy(-1)
	case key.Matches(msg, m.keyMap.HalfPageDown):
		m.ScrollBy(page / 2)
	case key.Matches(msg, m.keyMap.HalfPageUp):
		m.ScrollBy(-page / 2)
	case key.Matches(msg, m.keyMap.PageDown):
		m.ScrollBy(page)
	case key.Matches(msg, m.keyMap.PageUp):
		m.ScrollBy(-page)
	case key.Matches(msg, m.keyMap.Home):
		m.engine.ScrollToStart()
	case key.Matches(msg, m.keyMap.End):
		m.engine.ScrollToEnd()
	case key.Matches(msg, m.keyMap.Filter):
		m.filtering = true
		return m.filter.Focus()
	case key.Matches(msg, m.keyMap.ClearFilter):
		m.SetFilter("")
	case key.Matches(msg, m.keyMap.Rescan):
		return m.load()
	}
	return nil
}

// SetSize resizes the list. One row is kept for the status line.
func (m *Model) SetSize(width, height int) {
	m.width, m.height = max(0, width), max(0, height)
	m.engine.MarkLayoutDirty()
	m.engine.Refresh(true)
}

// ScrollBy moves the viewport by rows, clamped to the content.
func (m *Model) ScrollBy(rows int) {
	m.offset = min(max(0, m.offset+float64(rows)), m.maxOffset())
	m.engine.OnScroll()
}

// ScrollToIndex brings the entry at index into view.
func (m *Model) ScrollToIndex(index int, align window.Align) {
	m.engine.ScrollToIndex(index, align)
}

// ApplyLayout switches to a new layout and keeps the top entry in place.
func (m *Model) ApplyLayout(layout config.ListOptions) {
	m.layout = layout
	m.engine.SetOverscan(layout.OverscanBefore, layout.OverscanAfter)
	m.engine.SetLayout(
		float64(m.itemHeight()),
		float64(max(0, layout.Spacing)),
		float64(max(0, layout.PaddingTop)),
		float64(max(0, layout.PaddingBottom)),
	)
}

// SetFilter narrows the listing to entries whose path fuzzy matches query.
func (m *Model) SetFilter(query string) {
	m.filter.SetValue(query)
	m.applyFilter()
}

// Entries returns the entries currently listed, filter applied.
func (m *Model) Entries() []source.Entry {
	return m.data.Items()
}

// VisibleRange returns the realized index window.
func (m *Model) VisibleRange() window.Range {
	return m.engine.VisibleRange()
}

// Close stops the watcher and returns every cell.
func (m *Model) Close() {
	m.cancel()
	if m.watcher != nil {
		if err := m.watcher.Close(); err != nil {
			slog.Warn("Failed to close watcher", "error", err)
		}
	}
	if m.engine != nil {
		m.engine.Close()
	}
	m.cells.Clear()
}

func (m *Model) listHeight() int {
	return max(0, m.height-1)
}

func (m *Model) maxOffset() float64 {
	return max(0, m.content-float64(m.listHeight()))
}

func (m *Model) load() tea.Cmd {
	if m.src.Entries != nil {
		entries := m.src.Entries
		return func() tea.Msg {
			return scanMsg{entries: entries}
		}
	}
	ctx, root, opts := m.ctx, m.src.Root, m.src.Options
	return func() tea.Msg {
		entries, err := source.Scan(ctx, root, opts)
		return scanMsg{entries: entries, err: err}
	}
}

func (m *Model) flush() []tea.Cmd {
	cmds := m.pending
	m.pending = nil
	return cmds
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return sourceChangedMsg{}
	}
}

func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configMsg{cfg: cfg}
	}
}

// Viewport implements window.Host.
func (m *Model) Viewport() window.Viewport {
	return window.Viewport{Offset: m.offset, Height: float64(m.listHeight())}
}

// SetViewportOffset implements window.Host. Offsets snap to whole rows.
func (m *Model) SetViewportOffset(offset float64) {
	m.offset = math.Floor(offset)
}

// SetContentHeight implements window.Host.
func (m *Model) SetContentHeight(height float64) {
	m.content = height
}

// PlaceCell implements window.Host.
func (m *Model) PlaceCell(c *Cell, top, height float64) {
	c.top, c.height = int(top), int(height)
}

// ForceLayout implements window.Host. The terminal size arrives as a message,
// so there is nothing to force; it only reports whether it arrived.
func (m *Model) ForceLayout() error {
	if m.width <= 0 || m.height <= 0 {
		return errNotSized
	}
	return nil
}

// Bind implements window.Binder. With details on, the first line of the file
// is loaded in the background.
func (m *Model) Bind(ctx context.Context, c *Cell, e source.Entry, index int) error {
	c.index = index
	c.entry = e
	c.preview = ""
	if !m.layout.ShowDetails || m.src.Entries != nil || m.src.Root == "" {
		return nil
	}
	file := filepath.Join(m.src.Root, filepath.FromSlash(e.Path))
	m.pending = append(m.pending, func() tea.Msg {
		text, err := readPreview(ctx, file)
		if err != nil {
			slog.Debug("Failed to read preview", "path", file, "error", err)
			return nil
		}
		return previewMsg{ctx: ctx, cell: c, index: index, text: text}
	})
	return nil
}

// Unbind implements window.Binder.
func (m *Model) Unbind(c *Cell) error {
	c.index = -1
	c.entry = source.Entry{}
	c.preview = ""
	return nil
}

func (m *Model) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}
	return m.renderVirtualScrolling() + "\n" + m.statusLine()
}

// renderVirtualScrolling draws the realized cells into the visible rows.
func (m *Model) renderVirtualScrolling() string {
	lines := make([]string, m.listHeight())
	offset := int(m.offset)
	for _, c := range m.engine.Cells() {
		for i, line := range c.lines(m.width, m.layout.ShowDetails, m.styles) {
			row := c.top + i - offset
			if row < 0 || row >= len(lines) {
				continue
			}
			lines[row] = line
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) statusLine() string {
	var left string
	switch {
	case m.err != nil:
		left = "error: " + m.err.Error()
	case m.filtering:
		left = m.filter.View()
	case m.filter.Value() != "":
		left = "/" + m.filter.Value()
	}

	right := fmt.Sprintf("0/%d", m.data.Count())
	if rng := m.engine.VisibleRange(); !rng.IsEmpty() {
		right = fmt.Sprintf("%d-%d/%d", rng.Start+1, rng.End+1, m.data.Count())
	}

	gap := max(1, m.width-ansi.StringWidth(left)-ansi.StringWidth(right))
	line := left + strings.Repeat(" ", gap) + right
	return m.styles.Status.Render(ansi.Truncate(line, m.width, "…"))
}

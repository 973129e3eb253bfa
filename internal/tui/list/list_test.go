package list

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/scrollkit/internal/config"
	"github.com/charmbracelet/scrollkit/internal/source"
	"github.com/charmbracelet/scrollkit/internal/window"
	"github.com/charmbracelet/x/exp/golden"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEntries(names ...string) []source.Entry {
	base := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	entries := make([]source.Entry, len(names))
	for i, name := range names {
		entries[i] = source.Entry{
			Path:        name,
			Name:        filepath.Base(name),
			Size:        int64(i * 100),
			ModTime:     base,
			Fingerprint: uint64(i + 1),
		}
	}
	return entries
}

func numbered(n int) []source.Entry {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("file-%02d.txt", i)
	}
	return makeEntries(names...)
}

// execCmd runs cmd and feeds the resulting messages back until nothing is
// left. Batches are expanded.
func execCmd(m *Model, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil:
	case tea.BatchMsg:
		for _, c := range msg {
			execCmd(m, c)
		}
	default:
		_, next := m.Update(msg)
		execCmd(m, next)
	}
}

func newTestList(t *testing.T, src Source, width, height int, opts ...ListOption) *Model {
	t.Helper()
	m, err := New(src, append([]ListOption{WithStyles(PlainStyles())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Close)

	execCmd(m, m.Init())
	_, cmd := m.Update(tea.WindowSizeMsg{Width: width, Height: height})
	execCmd(m, cmd)
	return m
}

// press sends k. Commands from the filter input (cursor blinks) are not run.
func press(m *Model, k tea.Key) {
	_, cmd := m.Update(tea.KeyPressMsg(k))
	if !m.filtering {
		execCmd(m, cmd)
	}
}

func runeKey(r rune) tea.Key {
	return tea.Key{Code: r, Text: string(r)}
}

func TestViewGolden(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(30)}, 30, 6)
	for range 3 {
		press(m, runeKey('j'))
	}
	golden.RequireEqual(t, []byte(m.View()))
}

func TestViewBeforeSize(t *testing.T) {
	t.Parallel()

	m, err := New(Source{Entries: numbered(30)}, WithStyles(PlainStyles()))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	execCmd(m, m.Init())

	assert.Empty(t, m.View())
	// a provisional window is realized before the terminal size is known
	assert.Equal(t, window.Range{Start: 0, End: 7}, m.VisibleRange())
}

func TestScrolling(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(30)}, 30, 6)
	assert.Equal(t, 0.0, m.offset)
	assert.Equal(t, window.Range{Start: 0, End: 5}, m.VisibleRange())

	press(m, tea.Key{Code: tea.KeyUp})
	assert.Equal(t, 0.0, m.offset)

	press(m, tea.Key{Code: tea.KeyDown})
	assert.Equal(t, 1.0, m.offset)

	press(m, runeKey('f'))
	assert.Equal(t, 6.0, m.offset)

	press(m, runeKey('d'))
	assert.Equal(t, 8.0, m.offset)

	press(m, runeKey('u'))
	press(m, runeKey('b'))
	assert.Equal(t, 1.0, m.offset)

	press(m, runeKey('G'))
	assert.Equal(t, 25.0, m.offset)
	assert.Equal(t, window.Range{Start: 25, End: 29}, m.VisibleRange())
	lines := strings.Split(m.View(), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "file-29.txt", lines[4])

	press(m, runeKey('j'))
	assert.Equal(t, 25.0, m.offset)

	press(m, runeKey('g'))
	assert.Equal(t, 0.0, m.offset)
	assert.Equal(t, "file-00.txt", strings.Split(m.View(), "\n")[0])
}

func TestMouseWheel(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(30)}, 30, 6)
	_, cmd := m.Update(tea.MouseWheelMsg{Button: tea.MouseWheelDown})
	execCmd(m, cmd)
	assert.Equal(t, 2.0, m.offset)

	_, cmd = m.Update(tea.MouseWheelMsg{Button: tea.MouseWheelUp})
	execCmd(m, cmd)
	_, cmd = m.Update(tea.MouseWheelMsg{Button: tea.MouseWheelUp})
	execCmd(m, cmd)
	assert.Equal(t, 0.0, m.offset)
}

func TestQuit(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(3)}, 30, 6)
	_, cmd := m.Update(tea.KeyPressMsg(runeKey('q')))
	require.NotNil(t, cmd)
	assert.True(t, quits(cmd()))
}

func quits(msg tea.Msg) bool {
	switch msg := msg.(type) {
	case tea.QuitMsg:
		return true
	case tea.BatchMsg:
		for _, c := range msg {
			if c != nil && quits(c()) {
				return true
			}
		}
	}
	return false
}

func TestFilter(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: makeEntries("alpha.go", "beta.go", "delta.md", "gamma.md")}, 30, 6)

	m.SetFilter(".md")
	assert.Equal(t, []string{"delta.md", "gamma.md"}, paths(m.Entries()))
	lines := strings.Split(m.View(), "\n")
	assert.Equal(t, "delta.md", lines[0])
	assert.Equal(t, "gamma.md", lines[1])
	assert.True(t, strings.HasPrefix(lines[5], "/.md"))
	assert.True(t, strings.HasSuffix(lines[5], "1-2/2"))

	m.SetFilter("zzz")
	assert.Empty(t, m.Entries())
	assert.True(t, strings.HasSuffix(m.View(), "0/0"))

	m.SetFilter("")
	assert.Equal(t, []string{"alpha.go", "beta.go", "delta.md", "gamma.md"}, paths(m.Entries()))
}

func TestFilterModeKeys(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: makeEntries("alpha.go", "beta.go", "delta.md")}, 30, 6)

	press(m, runeKey('/'))
	require.True(t, m.filtering)

	// keys go to the filter input instead of scrolling
	press(m, runeKey('j'))
	assert.Equal(t, 0.0, m.offset)

	press(m, tea.Key{Code: tea.KeyEnter})
	assert.False(t, m.filtering)

	press(m, tea.Key{Code: tea.KeyEscape})
	assert.Empty(t, m.filter.Value())
	assert.Len(t, m.Entries(), 3)
}

func paths(entries []source.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func TestListingChangeKeepsTopEntry(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(30)}, 30, 6)
	for range 10 {
		press(m, runeKey('j'))
	}
	require.Equal(t, "file-10.txt", strings.Split(m.View(), "\n")[0])

	entries := append(makeEntries("aaa.txt"), numbered(30)...)
	_, cmd := m.Update(scanMsg{entries: entries})
	execCmd(m, cmd)

	assert.Equal(t, 11.0, m.offset)
	assert.Equal(t, "file-10.txt", strings.Split(m.View(), "\n")[0])

	// removing rows above the top keeps it in place too
	_, cmd = m.Update(scanMsg{entries: numbered(30)[5:]})
	execCmd(m, cmd)
	assert.Equal(t, 5.0, m.offset)
	assert.Equal(t, "file-10.txt", strings.Split(m.View(), "\n")[0])
}

func TestScanError(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Root: filepath.Join(t.TempDir(), "missing")}, 40, 4)
	assert.Contains(t, m.View(), "error:")
	assert.Empty(t, m.Entries())
}

func TestApplyLayout(t *testing.T) {
	t.Parallel()

	m := newTestList(t, Source{Entries: numbered(30)}, 30, 6)
	for range 4 {
		press(m, runeKey('j'))
	}

	cfg := &config.Config{List: config.ListOptions{ItemHeight: 1, Spacing: 1, PaddingTop: 1, WheelStep: 2}}
	_, cmd := m.Update(configMsg{cfg: cfg})
	execCmd(m, cmd)

	// 1 + 30 rows + 29 gaps
	assert.Equal(t, 60.0, m.content)
	// file-04 starts at 1 + 4*2
	assert.Equal(t, 9.0, m.offset)
	assert.Equal(t, "file-04.txt", strings.Split(m.View(), "\n")[0])
}

func TestLayoutOverridesSurviveReload(t *testing.T) {
	t.Parallel()

	details := func(layout *config.ListOptions) { layout.ShowDetails = true }
	m := newTestList(t, Source{Entries: numbered(10)}, 30, 6,
		WithLayout(config.ListOptions{ItemHeight: 1, ShowDetails: true, WheelStep: 2}),
		WithLayoutOverrides(details))

	_, cmd := m.Update(configMsg{cfg: &config.Config{List: config.ListOptions{ItemHeight: 1, WheelStep: 2}}})
	execCmd(m, cmd)

	assert.True(t, m.layout.ShowDetails)
	assert.Equal(t, 1, m.layout.ItemHeight)
}

func TestSingleRowList(t *testing.T) {
	t.Parallel()

	// one row for the list, one for the status line
	m := newTestList(t, Source{Entries: numbered(30)}, 30, 2)
	for range 3 {
		press(m, runeKey('j'))
	}
	assert.Equal(t, 3.0, m.offset)
	assert.Equal(t, window.Range{Start: 3, End: 4}, m.VisibleRange())
	assert.Equal(t, "file-03.txt", strings.Split(m.View(), "\n")[0])
}

func TestDetailsWithPreview(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.md"), []byte("\n\n# Notes\nmore"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))

	m := newTestList(t, Source{Root: root}, 60, 6, WithLayout(config.ListOptions{
		ItemHeight:  1,
		ShowDetails: true,
		WheelStep:   2,
	}))

	view := m.View()
	lines := strings.Split(view, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "main.go", lines[0])
	assert.Contains(t, lines[1], "package main")
	assert.Equal(t, "notes.md", lines[2])
	assert.Contains(t, lines[3], "# Notes")
	assert.Contains(t, lines[3], "B  ")
}

func TestStalePreviewIsDropped(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	for i := range 20 {
		name := fmt.Sprintf("f%02d.txt", i)
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), 0o644))
	}

	m, err := New(Source{Root: root}, WithStyles(PlainStyles()), WithLayout(config.ListOptions{
		ItemHeight:  1,
		ShowDetails: true,
		WheelStep:   2,
	}))
	require.NoError(t, err)
	t.Cleanup(m.Close)
	execCmd(m, m.Init())

	// keep the preview loads of the first window without running them
	_, stale := m.Update(tea.WindowSizeMsg{Width: 40, Height: 5})
	require.NotNil(t, stale)

	// the new window's loads are dropped, only the stale ones complete
	m.Update(tea.KeyPressMsg(runeKey('G')))
	execCmd(m, stale)

	for _, c := range m.engine.Cells() {
		assert.Empty(t, c.preview, "cell %d got a preview for an entry it no longer shows", c.index)
	}
}

func TestHumanSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0B", humanSize(0))
	assert.Equal(t, "1023B", humanSize(1023))
	assert.Equal(t, "1.0K", humanSize(1024))
	assert.Equal(t, "1.5M", humanSize(1536*1024))
}

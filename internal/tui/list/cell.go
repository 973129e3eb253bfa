package list

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/scrollkit/internal/pool"
	"github.com/charmbracelet/scrollkit/internal/source"
	"github.com/charmbracelet/x/ansi"
	"github.com/charmbracelet/x/exp/charmtone"
)

// Cell is a reusable row block. The list owns a small pool of them and binds
// each to whatever entry currently occupies its slot.
type Cell struct {
	serial int

	top, height int

	index   int
	entry   source.Entry
	preview string
}

func (c *Cell) OnAcquire() {}

func (c *Cell) OnRelease() {
	c.index = -1
	c.entry = source.Entry{}
	c.preview = ""
}

func (c *Cell) OnDestroy() {
	c.OnRelease()
	c.top, c.height = 0, 0
}

func newCellPool(capacity int, logger *slog.Logger) (*pool.Pool[*Cell], error) {
	serial := 0
	return pool.New[*Cell](pool.FactoryFunc[*Cell](func() (*Cell, error) {
		serial++
		return &Cell{serial: serial, index: -1}, nil
	}), pool.WithCapacity(capacity), pool.WithLogger(logger))
}

type Styles struct {
	Name   lipgloss.Style
	Dir    lipgloss.Style
	Detail lipgloss.Style
	Status lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Name:   lipgloss.NewStyle().Foreground(charmtone.Ash),
		Dir:    lipgloss.NewStyle().Foreground(charmtone.Squid),
		Detail: lipgloss.NewStyle().Foreground(charmtone.Smoke),
		Status: lipgloss.NewStyle().Foreground(charmtone.Salt).Background(charmtone.Charcoal),
	}
}

// PlainStyles renders without any escape sequences.
func PlainStyles() Styles {
	return Styles{
		Name:   lipgloss.NewStyle(),
		Dir:    lipgloss.NewStyle(),
		Detail: lipgloss.NewStyle(),
		Status: lipgloss.NewStyle(),
	}
}

// lines renders the cell into exactly c.height rows of at most width cells.
func (c *Cell) lines(width int, details bool, st Styles) []string {
	out := make([]string, max(0, c.height))
	if len(out) == 0 || width <= 0 {
		return out
	}

	name := st.Name.Render(c.entry.Name)
	if dir := path.Dir(c.entry.Path); dir != "." && path.Base(c.entry.Path) == c.entry.Name {
		name = st.Dir.Render(dir+"/") + name
	}
	out[0] = ansi.Truncate(name, width, "…")

	if details && len(out) > 1 {
		detail := fmt.Sprintf("  %s  %s", humanSize(c.entry.Size), c.entry.ModTime.Format("2006-01-02 15:04"))
		if c.preview != "" {
			detail += "  " + c.preview
		}
		out[1] = st.Detail.Render(ansi.Truncate(detail, width, "…"))
	}
	return out
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

const previewLimit = 4096

// readPreview returns the first non-blank line of file.
func readPreview(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(io.LimitReader(f, previewLimit))
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line := strings.TrimSpace(ansi.Strip(sc.Text()))
		if line != "" {
			return line, nil
		}
	}
	return "", sc.Err()
}

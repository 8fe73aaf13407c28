package cli

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cartopack/cartopack/pkg/errors"
	"github.com/cartopack/cartopack/pkg/layout"
)

// viewCommand creates the view command for exploring exported layouts.
func (c *CLI) viewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [layout.json]",
		Short: "Explore an exported layout in the terminal",
		Long: `Explore an exported layout in the terminal.

The view command renders a layout file as a braille map that can be panned
and zoomed. Press t for a per-group table, r to reset the viewport, and q
to quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runView(args[0])
		},
	}
	return cmd
}

// runView loads a layout file and starts the interactive viewer.
func (c *CLI) runView(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReadInput, err, "read layout [%s]", path)
	}
	l, err := layout.UnmarshalLayout(data)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReadInput, err, "parse layout [%s]", path)
	}
	if l.FeatureCount() == 0 {
		return errors.New(errors.ErrCodeEmptyGroup, "layout has no features to display")
	}

	p := tea.NewProgram(newViewModel(path, l), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}

// =============================================================================
// ViewModel - Interactive Layout Viewer
// =============================================================================

// viewModel is the bubbletea model for the layout viewer.
type viewModel struct {
	path string
	lay  layout.Layout

	width  int
	height int

	zoom       float64
	panX, panY int // pan offsets in cells

	showTable bool
	showHelp  bool
}

func newViewModel(path string, l layout.Layout) viewModel {
	return viewModel{
		path:     path,
		lay:      l,
		zoom:     1.0,
		showHelp: true,
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.panY--
		case "down", "j":
			m.panY++
		case "left":
			m.panX -= 2
		case "right":
			m.panX += 2
		case "+", "=":
			if m.zoom < 64 {
				m.zoom *= 1.2
			}
		case "-", "_":
			if m.zoom > 0.05 {
				m.zoom /= 1.2
			}
		case "t":
			m.showTable = !m.showTable
		case "h":
			m.showHelp = !m.showHelp
		case "r":
			m.zoom = 1.0
			m.panX, m.panY = 0, 0
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m viewModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	header := fmt.Sprintf(" %s layout ─ %s ", m.lay.Tool, m.path)
	b.WriteString(StyleTitle.Render(header))
	b.WriteString("\n")

	tableHeight := 0
	var groupTable string
	if m.showTable {
		groupTable = m.renderGroupTable()
		tableHeight = lipgloss.Height(groupTable)
	}

	mapHeight := m.height - tableHeight - 3
	if mapHeight < 4 {
		mapHeight = 4
	}
	mapWidth := m.width
	if mapWidth < 10 {
		mapWidth = 10
	}

	b.WriteString(m.renderMap(mapWidth, mapHeight))
	b.WriteString("\n")
	if m.showTable {
		b.WriteString(groupTable)
		b.WriteString("\n")
	}
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderMap rasterizes the layout into a braille canvas sized w x h cells.
func (m viewModel) renderMap(w, h int) string {
	canvas := newCanvas(w, h)
	minX, minY, maxX, maxY, ok := m.lay.Bounds()
	if !ok {
		return strings.Join(canvas.lines(), "\n")
	}

	wMic, hMic := canvas.pixelSize()

	// One uniform scale for both axes keeps circles round. Braille
	// micro-pixels are close to square in a 1:2 terminal font.
	spanX := maxX - minX
	spanY := maxY - minY
	scale := 1.0
	switch {
	case spanX > 0 && spanY > 0:
		scale = min(float64(wMic-1)/spanX, float64(hMic-1)/spanY)
	case spanX > 0:
		scale = float64(wMic-1) / spanX
	case spanY > 0:
		scale = float64(hMic-1) / spanY
	}
	scale *= m.zoom

	centerX := (minX + maxX) / 2
	centerY := (minY + maxY) / 2
	project := func(x, y float64) (int, int) {
		mx := float64(wMic)/2 + (x-centerX)*scale + float64(m.panX*2)
		my := float64(hMic)/2 - (y-centerY)*scale + float64(m.panY*4)
		return int(mx + 0.5), int(my + 0.5)
	}

	for i := range m.lay.Circles {
		c := &m.lay.Circles[i]
		cx, cy := project(c.X, c.Y)
		r := int(c.Radius*scale + 0.5)
		canvas.drawCircle(cx, cy, r)
		if c.IsRoot() {
			canvas.drawMark(cx, cy)
		}
	}
	for i := range m.lay.Rects {
		r := &m.lay.Rects[i]
		x0, y0 := project(r.X, r.Y)
		x1, y1 := project(r.X+r.Width, r.Y+r.Height)
		canvas.drawRect(x0, y0, x1, y1)
	}

	return strings.Join(canvas.lines(), "\n")
}

// groupRow is one aggregated line of the group table.
type groupRow struct {
	key      string
	features int
	value    float64
}

// groupRows aggregates features per group in first-seen order.
func (m viewModel) groupRows() []groupRow {
	var (
		order []string
		byKey = map[string]*groupRow{}
	)
	add := func(key string, value float64, counted bool) {
		r, ok := byKey[key]
		if !ok {
			r = &groupRow{key: key}
			byKey[key] = r
			order = append(order, key)
		}
		if counted {
			r.features++
			r.value += value
		}
	}
	for i := range m.lay.Circles {
		c := &m.lay.Circles[i]
		// Enclosures repeat their members' values; count leaves only.
		add(c.Group, c.Value, c.IsLeaf())
	}
	for i := range m.lay.Rects {
		add(m.lay.Rects[i].Group, m.lay.Rects[i].Value, true)
	}

	rows := make([]groupRow, len(order))
	for i, key := range order {
		rows[i] = *byKey[key]
	}
	return rows
}

func (m viewModel) renderGroupTable() string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	rows := [][]string{}
	for _, r := range m.groupRows() {
		rows = append(rows, []string{r.key, fmt.Sprintf("%d", r.features), fmt.Sprintf("%g", r.value)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Group", "Features", "Value").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorWhite)
			}
			return lipgloss.NewStyle().Foreground(colorGray)
		})

	return t.Render()
}

func (m viewModel) renderFooter() string {
	status := fmt.Sprintf(" %d features · %d groups · zoom %.2fx ",
		m.lay.FeatureCount(), len(m.groupRows()), m.zoom)

	if !m.showHelp {
		return StyleDim.Render(status)
	}
	keys := []string{
		"↑↓←→ pan",
		"+/- zoom",
		"t table",
		"r reset",
		"h help",
		"q quit",
	}
	return StyleDim.Render(status + " " + strings.Join(keys, "  "))
}

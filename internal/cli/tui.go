package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/pipeline"
)

var (
	browserBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)
	browserDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// BuildingBrowser - Interactive building inspection
// =============================================================================

// layerFilter cycles through all layers and then each depth in turn.
type layerFilter int

const filterAll layerFilter = -1

func (f layerFilter) next() layerFilter {
	if int(f) >= len(layers.Depths)-1 {
		return filterAll
	}
	return f + 1
}

func (f layerFilter) String() string {
	if f == filterAll {
		return "all layers"
	}
	return layers.Depths[f].Title()
}

// BuildingBrowser is the bubbletea model for browsing resolved buildings.
type BuildingBrowser struct {
	source    string
	sep       pipeline.Separation
	filter    layerFilter
	tbl       table.Model
	height    int
	showHelp  bool
	rowsShown int
}

// NewBuildingBrowser creates a browser over the buildings of sep.
func NewBuildingBrowser(source string, sep pipeline.Separation) BuildingBrowser {
	m := BuildingBrowser{
		source:   source,
		sep:      sep,
		filter:   filterAll,
		tbl:      table.New(table.WithFocused(true)),
		height:   15,
		showHelp: true,
	}
	m.tbl.SetColumns(buildingColumns)
	m.tbl.SetHeight(m.height)
	m.refreshRows()
	return m
}

var buildingColumns = []table.Column{
	{Title: "#", Width: 4},
	{Title: "Building", Width: 22},
	{Title: "Layer", Width: 12},
	{Title: "Height", Width: 8},
	{Title: "Center X", Width: 10},
	{Title: "Top Y", Width: 10},
	{Title: "Shapes", Width: 7},
	{Title: "Source", Width: 9},
}

// refreshRows rebuilds the table rows for the current filter.
func (m *BuildingBrowser) refreshRows() {
	rows := buildingRows(m.sep.Buildings, m.filter)
	m.rowsShown = len(rows)
	m.tbl.SetRows(nil)
	m.tbl.SetRows(rows)
	m.tbl.GotoTop()
}

func buildingRows(buildings []pipeline.BuildingSummary, f layerFilter) []table.Row {
	rows := make([]table.Row, 0, len(buildings))
	for _, b := range buildings {
		if f != filterAll && b.Layer != layers.Depths[f].String() {
			continue
		}
		source := "cluster"
		if b.Tagged {
			source = "tagged"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", len(rows)+1),
			b.ID,
			b.Layer,
			formatFloat(b.Height),
			formatFloat(b.CenterX),
			formatFloat(b.TopY),
			fmt.Sprintf("%d", b.Shapes),
			source,
		})
	}
	return rows
}

func (m BuildingBrowser) Init() tea.Cmd {
	return nil
}

func (m BuildingBrowser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "l":
			m.filter = m.filter.next()
			m.refreshRows()
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-10, 5)
		m.tbl.SetHeight(m.height)
	}

	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

func (m BuildingBrowser) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.source))
	b.WriteString(browserDimStyle.Render(fmt.Sprintf("  %s · %d buildings · canvas %s",
		m.sep.Strategy, len(m.sep.Buildings), m.sep.Canvas)))
	b.WriteString("\n\n")

	b.WriteString(browserBoxStyle.Render(m.tbl.View()))
	b.WriteString("\n")

	status := fmt.Sprintf("  %s [%d/%d]", m.filter, m.rowsShown, len(m.sep.Buildings))
	b.WriteString(browserDimStyle.Render(status))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(browserDimStyle.Render("  ↑/↓ navigate  tab filter layer  ? help  q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

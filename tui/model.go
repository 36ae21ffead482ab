// Package tui is an interactive terminal view over an orchestrator.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/orchestrator"
)

// StatusMsg tells the model the orchestrator changed state.
type StatusMsg orchestrator.Status

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type Model struct {
	orch      *orchestrator.Orchestrator
	search    textinput.Model
	searching bool
	cursor    int
	schema    int // index into the schema choices, -1 for all
	details   *graph.LineageNode
	width     int
	height    int
}

func New(orch *orchestrator.Orchestrator) Model {
	search := textinput.New()
	search.Placeholder = "search tables"
	search.Prompt = "/ "

	return Model{
		orch:   orch,
		search: search,
		schema: -1,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case StatusMsg:
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.orch.SetSearch("")
		m.clampCursor()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.orch.SetSearch(m.search.Value())
	m.clampCursor()
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "/":
		m.searching = true
		return m, m.search.Focus()

	case "esc":
		m.details = nil

	case "s":
		schemas := m.orch.View().Schemas
		m.schema++
		if m.schema >= len(schemas) {
			m.schema = -1
		}
		if m.schema < 0 {
			m.orch.SetSchema("")
		} else {
			m.orch.SetSchema(schemas[m.schema])
		}
		m.clampCursor()

	case "c":
		m.orch.ClearFilters()
		m.search.SetValue("")
		m.schema = -1
		m.clampCursor()

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		m.hoverCursor()

	case "down", "j":
		m.cursor++
		m.clampCursor()
		m.hoverCursor()

	case "enter":
		frame := m.orch.View()
		if m.cursor < len(frame.Graph.Nodes) {
			node := frame.Graph.Nodes[m.cursor]
			if m.orch.Activate(node.ID) {
				m.details = &node
			}
		}

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		frame := m.orch.View()
		i := int(key[0] - '1')
		if i < len(frame.DatabaseTypes) {
			t := frame.DatabaseTypes[i]
			enabled, ok := frame.Filter.DatabaseTypes[t]
			m.orch.SetDatabaseTypeEnabled(t, ok && !enabled)
			m.clampCursor()
		}
	}

	return m, nil
}

func (m *Model) clampCursor() {
	n := len(m.orch.View().Graph.Nodes)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) hoverCursor() {
	frame := m.orch.View()
	if m.cursor < len(frame.Graph.Nodes) {
		m.orch.Hover(frame.Graph.Nodes[m.cursor].ID)
	}
}

func (m Model) View() string {
	frame := m.orch.View()
	var sb strings.Builder

	summary := frame.Status.Summary
	sb.WriteString(titleStyle.Render("dblineage"))
	sb.WriteString(fmt.Sprintf("  %s  %d sources → %d targets, %d links\n",
		frame.Status.State, summary.Sources, summary.Targets, summary.Links))
	if frame.Status.State == orchestrator.StateError {
		sb.WriteString(errorStyle.Render("error: "+frame.Status.Error) + "\n")
	}

	sb.WriteString(m.search.View())
	sb.WriteString("\n")
	sb.WriteString(m.filterLine(frame))
	sb.WriteString("\n\n")

	if frame.Graph.IsEmpty() {
		sb.WriteString(dimStyle.Render(emptyText(frame.Status.State)))
		sb.WriteString("\n")
	}

	for i, node := range frame.Graph.Nodes {
		line := nodeLine(node)
		switch {
		case i == m.cursor:
			line = cursorStyle.Render(line)
		case !frame.Hover.NodeActive(node.ID):
			line = dimStyle.Render(line)
		case node.Status == graph.StatusPending:
			line = pendingStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if m.details != nil {
		sb.WriteString("\n")
		sb.WriteString(detailStyle.Render(detailText(*m.details)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("/ search · s schema · 1-9 types · c clear · ↑↓ move · enter details · q quit"))
	return sb.String()
}

func (m Model) filterLine(frame orchestrator.Frame) string {
	schema := "all"
	if frame.Filter.Schema != "" {
		schema = frame.Filter.Schema
	}

	types := make([]string, 0, len(frame.DatabaseTypes))
	for i, t := range frame.DatabaseTypes {
		mark := "x"
		if enabled, ok := frame.Filter.DatabaseTypes[t]; ok && !enabled {
			mark = " "
		}
		types = append(types, fmt.Sprintf("%d[%s] %s", i+1, mark, t))
	}

	return fmt.Sprintf("schema: %s  types: %s", schema, strings.Join(types, "  "))
}

func emptyText(state orchestrator.State) string {
	switch state {
	case orchestrator.StateIdle:
		return "select source tables to see their lineage"
	case orchestrator.StateLoading:
		return "building lineage…"
	case orchestrator.StateError:
		return "lineage could not be built"
	default:
		return "no tables match"
	}
}

func nodeLine(node graph.LineageNode) string {
	arrow := "→"
	if node.Role == graph.RoleTarget {
		arrow = "⇥"
	}
	return fmt.Sprintf("%s %s [%s]", arrow, node.Label(), node.Status)
}

func detailText(node graph.LineageNode) string {
	lines := []string{
		titleStyle.Render(node.Label()),
		fmt.Sprintf("role: %s", node.Role),
		fmt.Sprintf("type: %s", node.DatabaseType),
		fmt.Sprintf("rows: %d", node.RowCount),
		fmt.Sprintf("columns: %d", node.ColumnCount),
		fmt.Sprintf("load: %s", node.LoadType),
		fmt.Sprintf("status: %s", node.Status),
		fmt.Sprintf("updated: %s", node.LastUpdated.Format("2006-01-02 15:04:05")),
	}
	return strings.Join(lines, "\n")
}

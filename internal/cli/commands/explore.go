package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/varlens/internal/config"
	"github.com/leapstack-labs/varlens/internal/provider"
	"github.com/leapstack-labs/varlens/internal/provider/yamlvars"
	"github.com/leapstack-labs/varlens/pkg/vars"
)

// NewExploreCommand creates the explore command.
func NewExploreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "explore FILE",
		Short: "Browse a document's variable tree interactively",
		Long: `Open an interactive tree browser over a document. Nodes are expanded
lazily: children are fetched only when you open a node, and oversized
collections show up as range nodes you can drill into. Collapsing a node
cancels any fetch still pending for the view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromContext(cmd.Context())
			logger := config.GetLogger(cmd.Context())

			prov, err := yamlvars.Load(args[0])
			if err != nil {
				return err
			}

			abs, err := filepath.Abs(args[0])
			if err != nil {
				abs = args[0]
			}
			uri := "file://" + abs

			registry := provider.NewRegistry(logger)
			registry.Register(uri, prov)

			m := newExploreModel(uri, vars.NewSource(registry, cfg.PageSize, logger))
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(cmd.OutOrStdout())).Run()
			return err
		},
	}
}

// --- Model ---

// exploreRow is one visible line of the tree.
type exploreRow struct {
	v        *vars.Variable
	depth    int
	expanded bool
}

type exploreKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func (k exploreKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Refresh, k.Quit}
}

func (k exploreKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Up, k.Down}, {k.Toggle, k.Refresh, k.Quit}}
}

var exploreKeys = exploreKeyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "expand/collapse")),
	Refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	exploreCursorStyle = lipgloss.NewStyle().Reverse(true)
	exploreValueStyle  = lipgloss.NewStyle().Faint(true)
	exploreRangeStyle  = lipgloss.NewStyle().Italic(true)
	exploreTitleStyle  = lipgloss.NewStyle().Bold(true)
	exploreErrStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type exploreModel struct {
	uri   string
	src   *vars.Source
	scope *vars.RootScope

	rows    []exploreRow
	cursor  int
	offset  int
	height  int
	loading bool
	err     error

	keys exploreKeyMap
	help help.Model
}

// childrenMsg delivers a completed fetch. An empty parentID targets the
// root level.
type childrenMsg struct {
	parentID string
	children []*vars.Variable
}

type fetchErrMsg struct{ err error }

func newExploreModel(uri string, src *vars.Source) *exploreModel {
	return &exploreModel{
		uri:    uri,
		src:    src,
		scope:  vars.NewRootScope(uri),
		height: 24,
		keys:   exploreKeys,
		help:   help.New(),
	}
}

func (m *exploreModel) fetch(parent vars.Element, parentID string) tea.Cmd {
	return func() tea.Msg {
		children, err := m.src.GetChildren(context.Background(), parent)
		if err != nil {
			return fetchErrMsg{err}
		}
		return childrenMsg{parentID: parentID, children: children}
	}
}

func (m *exploreModel) Init() tea.Cmd {
	m.loading = true
	return m.fetch(m.scope, "")
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case childrenMsg:
		m.loading = false
		m.err = nil
		m.insertChildren(msg.parentID, msg.children)
		return m, nil

	case fetchErrMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.moveCursor(-1)
		case key.Matches(msg, m.keys.Down):
			m.moveCursor(1)
		case key.Matches(msg, m.keys.Refresh):
			m.rows = nil
			m.cursor, m.offset = 0, 0
			m.loading = true
			return m, m.fetch(m.scope, "")
		case key.Matches(msg, m.keys.Toggle):
			return m, m.toggle()
		}
	}
	return m, nil
}

// insertChildren places a fetch result under its parent row, or replaces
// the whole tree for a root fetch.
func (m *exploreModel) insertChildren(parentID string, children []*vars.Variable) {
	if parentID == "" {
		m.rows = make([]exploreRow, 0, len(children))
		for _, c := range children {
			m.rows = append(m.rows, exploreRow{v: c, depth: 0})
		}
		return
	}

	for i, row := range m.rows {
		if row.v.ID != parentID || !row.expanded {
			continue
		}
		inserted := make([]exploreRow, 0, len(children))
		for _, c := range children {
			inserted = append(inserted, exploreRow{v: c, depth: row.depth + 1})
		}
		m.rows = append(m.rows[:i+1], append(inserted, m.rows[i+1:]...)...)
		return
	}
	// Parent collapsed or refreshed away before the fetch landed; drop it.
}

// toggle expands or collapses the node under the cursor.
func (m *exploreModel) toggle() tea.Cmd {
	if m.cursor >= len(m.rows) {
		return nil
	}
	row := &m.rows[m.cursor]
	if !m.src.HasChildren(row.v) {
		return nil
	}

	if row.expanded {
		row.expanded = false
		m.collapseUnder(m.cursor)
		// Abandon whatever fetch may still be pending for this view.
		m.src.Cancel()
		return nil
	}

	row.expanded = true
	m.loading = true
	return m.fetch(row.v, row.v.ID)
}

// collapseUnder removes all descendant rows of the row at index i.
func (m *exploreModel) collapseUnder(i int) {
	depth := m.rows[i].depth
	end := i + 1
	for end < len(m.rows) && m.rows[end].depth > depth {
		end++
	}
	m.rows = append(m.rows[:i+1], m.rows[end:]...)
}

func (m *exploreModel) moveCursor(delta int) {
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	visible := m.visibleLines()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

// visibleLines is the number of tree rows that fit between the title and
// the help line.
func (m *exploreModel) visibleLines() int {
	v := m.height - 3
	if v < 1 {
		v = 1
	}
	return v
}

func (m *exploreModel) View() string {
	var b strings.Builder

	title := exploreTitleStyle.Render(m.uri)
	if m.loading {
		title += exploreValueStyle.Render("  fetching…")
	}
	b.WriteString(title + "\n")

	if m.err != nil {
		b.WriteString(exploreErrStyle.Render("error: "+m.err.Error()) + "\n")
	}

	visible := m.visibleLines()
	for i := m.offset; i < len(m.rows) && i < m.offset+visible; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.cursor {
			line = exploreCursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *exploreModel) renderRow(row exploreRow) string {
	indent := strings.Repeat("  ", row.depth)

	marker := "  "
	if m.src.HasChildren(row.v) {
		marker = "▸ "
		if row.expanded {
			marker = "▾ "
		}
	}

	if row.v.IsRange() {
		return indent + marker + exploreRangeStyle.Render(fmt.Sprintf("%s (%d items)", row.v.Name, row.v.IndexedCount))
	}

	line := indent + marker + row.v.Name
	if row.v.Value != "" {
		line += exploreValueStyle.Render(" = " + row.v.Value)
	}
	if row.v.Type != "" {
		line += exploreValueStyle.Render(" (" + row.v.Type + ")")
	}
	return line
}

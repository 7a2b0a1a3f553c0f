// Package picker lets the user choose a context interactively.
package picker

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"kcfg/internal/registry"
)

// ErrCancelled is returned when the user leaves the picker without choosing.
var ErrCancelled = errors.New("selection cancelled")

const (
	defaultWidth  = 80
	defaultHeight = 20
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170")).PaddingLeft(1)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type contextItem struct {
	registry.ContextSummary
}

func (i contextItem) FilterValue() string { return i.Name + " " + i.Cluster + " " + i.Namespace }

func (i contextItem) details() string {
	d := i.Cluster + " / " + i.User
	if i.Namespace != "" {
		d += " (" + i.Namespace + ")"
	}
	return d
}

type contextDelegate struct{}

func (d contextDelegate) Height() int                             { return 1 }
func (d contextDelegate) Spacing() int                            { return 0 }
func (d contextDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d contextDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(contextItem)
	if !ok {
		return
	}

	marker := "  "
	if item.Current {
		marker = currentStyle.Render("* ")
	}
	line := item.Name + "  " + detailStyle.Render(item.details())

	// Keep one line per entry on narrow terminals.
	if width := m.Width() - 4; width > 0 && lipgloss.Width(line) > width {
		line = runewidth.Truncate(item.Name, width, "…")
	}

	if index == m.Index() {
		fmt.Fprint(w, selectedStyle.Render("▶ ")+marker+selectedStyle.Render(line))
		return
	}
	fmt.Fprint(w, "  "+marker+line)
}

// Model is the bubbletea model behind Pick.
type Model struct {
	list      list.Model
	chosen    string
	cancelled bool
}

// NewModel builds a picker over contexts with the current one preselected.
func NewModel(contexts []registry.ContextSummary) Model {
	items := make([]list.Item, 0, len(contexts))
	selected := 0
	for i, c := range contexts {
		items = append(items, contextItem{c})
		if c.Current {
			selected = i
		}
	}

	l := list.New(items, contextDelegate{}, defaultWidth, defaultHeight)
	l.Title = "Select a context"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Select(selected)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		// While filtering, keys belong to the filter input.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(contextItem); ok {
				m.chosen = item.Name
				return m, tea.Quit
			}
		case "esc", "q":
			if m.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
				break
			}
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.chosen != "" || m.cancelled {
		return ""
	}
	return m.list.View()
}

// Chosen returns the selected context name, or "" if none was chosen.
func (m Model) Chosen() string { return m.chosen }

// Cancelled reports whether the user quit without choosing.
func (m Model) Cancelled() bool { return m.cancelled }

// Pick shows the picker on the terminal and returns the chosen context name.
func Pick(ctx context.Context, contexts []registry.ContextSummary, opts ...tea.ProgramOption) (string, error) {
	if len(contexts) == 0 {
		return "", errors.New("the kubeconfig has no contexts to choose from")
	}

	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(NewModel(contexts), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("picker failed: %w", err)
	}

	m, ok := final.(Model)
	if !ok || m.cancelled || m.chosen == "" {
		return "", ErrCancelled
	}
	return m.chosen, nil
}

package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-synapse/pkg/activation"
	"github.com/dd0wney/cluso-synapse/pkg/broadcast"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginLeft(2)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			MarginLeft(2)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			MarginLeft(2)
)

type keyMap struct {
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Refresh}, {k.Help, k.Quit}}
}

var keys = keyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// nextFunc returns the next snapshot. Pollers return immediately; bus
// subscribers block until a message arrives.
type nextFunc func(ctx context.Context) (activation.Snapshot, error)

// gen tags a fetch chain; a manual refresh starts a new chain and the old
// one dies at its next step.
type snapshotMsg struct {
	gen  int
	snap activation.Snapshot
	err  error
}

type pollMsg struct{ gen int }

type watchModel struct {
	ctx     context.Context
	next    nextFunc
	delay   time.Duration // between polls; zero for push sources
	source  string
	gen     int
	snap    activation.Snapshot
	seen    bool
	changes int
	err     error
	updated time.Time
	table   table.Model
	help    help.Model
}

func newWatchModel(ctx context.Context, next nextFunc, delay time.Duration, source string) watchModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 16},
			{Title: "Name", Width: 32},
		}),
		table.WithHeight(12),
	)
	return watchModel{
		ctx:    ctx,
		next:   next,
		delay:  delay,
		source: source,
		table:  t,
		help:   help.New(),
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.fetch()
}

func (m watchModel) fetch() tea.Cmd {
	ctx, next, gen := m.ctx, m.next, m.gen
	return func() tea.Msg {
		snap, err := next(ctx)
		return snapshotMsg{gen: gen, snap: snap, err: err}
	}
}

// schedule queues the next fetch. Push sources wait a second after an error.
func (m watchModel) schedule() tea.Cmd {
	d := m.delay
	if d <= 0 {
		if m.err == nil {
			return m.fetch()
		}
		d = time.Second
	}
	gen := m.gen
	return tea.Tick(d, func(time.Time) tea.Msg { return pollMsg{gen: gen} })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, keys.Refresh):
			if m.delay > 0 {
				m.gen++
				return m, m.fetch()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case pollMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.fetch()

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			if m.seen && msg.snap.Version != m.snap.Version {
				m.changes++
			}
			m.snap, m.seen = msg.snap, true
			m.updated = time.Now()
			rows := make([]table.Row, 0, len(msg.snap.Nodes))
			for _, n := range msg.snap.Nodes {
				rows = append(rows, table.Row{n.ID, n.Name})
			}
			m.table.SetRows(rows)
		}
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.schedule()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("synapse activation"))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(fmt.Sprintf("%s · version %d · %d active · %d changes",
		m.source, m.snap.Version, len(m.snap.Nodes), m.changes)))
	b.WriteString("\n")
	if !m.updated.IsZero() {
		b.WriteString(metaStyle.Render("updated " + m.updated.Format(time.TimeOnly)))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(boxStyle.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(metaStyle.Render(m.help.View(keys)))
	b.WriteString("\n")
	return b.String()
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var (
		interval time.Duration
		bus      string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the active set live",
		Long: "Follow the active set live. By default the authority is polled; with\n" +
			"--bus the command subscribes to a scene runner's broadcast instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var m watchModel
			if bus != "" {
				sub, err := broadcast.NewSubscriber()
				if err != nil {
					return err
				}
				defer sub.Close()
				if err := sub.Dial(bus); err != nil {
					return err
				}
				m = newWatchModel(ctx, busNext(sub), 0, bus)
			} else {
				c := opts.client()
				m = newWatchModel(ctx, c.Status, interval, c.BaseURL())
			}

			_, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "poll interval")
	cmd.Flags().StringVar(&bus, "bus", "", "broadcast address to subscribe to, e.g. tcp://127.0.0.1:7400")
	return cmd
}

func busNext(sub *broadcast.Subscriber) nextFunc {
	return func(ctx context.Context) (activation.Snapshot, error) {
		msg, err := sub.Next(ctx)
		if err != nil {
			return activation.Snapshot{}, err
		}
		return activation.Snapshot{Version: msg.Version, Nodes: msg.Active, UpdatedAt: msg.At}, nil
	}
}

// Package watch implements a live terminal view of the running tracker
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/davecgh/go-spew/spew"

	"github.com/ayoisaiah/codetime/internal/control"
	"github.com/ayoisaiah/codetime/internal/models"
	"github.com/ayoisaiah/codetime/internal/timeutil"
	"github.com/ayoisaiah/codetime/stats"
)

const (
	refreshInterval = time.Second
	requestTimeout  = 5 * time.Second
	maxLanguages    = 3
)

// Client is the part of the control API used by the view.
type Client interface {
	Status(ctx context.Context) (*models.Status, error)
	Toggle(ctx context.Context) (*models.Status, error)
	Focus(ctx context.Context, focused bool) (*models.Status, error)
	Sync(ctx context.Context) (*control.SyncReply, error)
}

type (
	tickMsg time.Time

	statusMsg struct {
		status *models.Status
		err    error
	}

	syncMsg struct {
		reply *control.SyncReply
		err   error
	}
)

// Model is the bubbletea model of the live view.
type Model struct {
	client   Client
	log      *slog.Logger
	status   *models.Status
	err      error
	now      func() time.Time
	message  string
	help     help.Model
	progress progress.Model
	keys     keyMap
	syncing  bool
}

// New returns a view backed by client.
func New(client Client, logger *slog.Logger) *Model {
	return &Model{
		client:   client,
		log:      logger,
		now:      time.Now,
		keys:     defaultKeymap,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) statusCmd(
	call func(ctx context.Context) (*models.Status, error),
) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		s, err := call(ctx)

		return statusMsg{status: s, err: err}
	}
}

func (m *Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		// a sync may wait on the network for longer than a status call
		ctx, cancel := context.WithTimeout(context.Background(), 6*requestTimeout)
		defer cancel()

		r, err := m.client.Sync(ctx)

		return syncMsg{reply: r, err: err}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.statusCmd(m.client.Status), tick())
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		return m, m.statusCmd(m.client.Toggle)
	case key.Matches(msg, m.keys.focus):
		focused := m.status == nil || !m.status.Focused

		return m, m.statusCmd(func(ctx context.Context) (*models.Status, error) {
			return m.client.Focus(ctx, focused)
		})
	case key.Matches(msg, m.keys.sync):
		if m.syncing {
			return m, nil
		}

		m.syncing = true
		m.message = "Syncing..."

		return m, m.syncCmd()
	case key.Matches(msg, m.keys.refresh):
		return m, m.statusCmd(m.client.Status)
	}

	return m, nil
}

func (m *Model) handleSync(msg syncMsg) {
	m.syncing = false

	switch {
	case msg.err != nil:
		m.message = "Sync failed: " + msg.err.Error()
	case msg.reply.Skipped:
		m.message = "Sync skipped: run `codetime login` first"
		m.status = &msg.reply.Status
	case msg.reply.Days == 0:
		m.message = "Nothing to sync"
		m.status = &msg.reply.Status
	default:
		m.message = fmt.Sprintf("Synced %d day(s)", msg.reply.Days)
		m.status = &msg.reply.Status
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, tea.Batch(m.statusCmd(m.client.Status), tick())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}

		return m, nil

	case syncMsg:
		m.handleSync(msg)

		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.progress.Width = min(msg.Width-4, 60)

		return m, nil
	}

	m.log.Debug("unhandled message", slog.String("msg", spew.Sdump(msg)))

	return m, nil
}

func (m *Model) statusView() string {
	var s strings.Builder

	st := m.status

	s.WriteString(titleStyle.Render("codetime"))
	s.WriteString(hintStyle.Render("  " + st.Workspace))
	s.WriteString("\n\n")

	counter := timeutil.FormatHMS(st.ProjectSeconds)
	if st.Enabled {
		s.WriteString(runningStyle.Render("⏱ " + counter))
	} else {
		s.WriteString(pausedStyle.Render("⏸ " + counter + " [Paused]"))
	}

	if !st.Focused {
		s.WriteString(hintStyle.Render("  (unfocused)"))
	}

	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf(
		"Today: %s logged, %s focused\n",
		timeutil.FormatDuration(st.TodayTotal),
		timeutil.FormatDuration(st.TodayFocused),
	))

	var ratio float64
	if st.TodayTotal > 0 {
		ratio = float64(st.TodayFocused) / float64(st.TodayTotal)
	}

	s.WriteString(m.progress.ViewAs(ratio))
	s.WriteString("\n")

	langs := stats.Languages([]models.DayTotals{{Languages: st.Languages}})
	if len(langs) > maxLanguages {
		langs = langs[:maxLanguages]
	}

	for _, l := range langs {
		s.WriteString(hintStyle.Render(fmt.Sprintf(
			"  %s %s\n", l.Language, timeutil.FormatDuration(l.Seconds),
		)))
	}

	user := st.Username
	if user == "" {
		user = "not logged in"
	}

	s.WriteString(fmt.Sprintf(
		"\nUser: %s  Last sync: %s\n",
		user,
		timeutil.FormatLastSync(st.LastSync, m.now()),
	))

	return s.String()
}

func (m *Model) View() string {
	var s strings.Builder

	switch {
	case errors.Is(m.err, control.ErrUnavailable):
		s.WriteString(errorStyle.Render("The codetime daemon is not running"))
		s.WriteString("\n")
	case m.err != nil:
		s.WriteString(errorStyle.Render(m.err.Error()))
		s.WriteString("\n")
	case m.status == nil:
		s.WriteString(hintStyle.Render("Connecting..."))
		s.WriteString("\n")
	default:
		s.WriteString(m.statusView())
	}

	if m.message != "" {
		s.WriteString("\n" + hintStyle.Render(m.message) + "\n")
	}

	s.WriteString("\n" + m.help.View(m.keys))

	return baseStyle.Render(s.String())
}

// Run starts the view and blocks until the user quits.
func Run(client Client, logger *slog.Logger) error {
	_, err := tea.NewProgram(New(client, logger), tea.WithAltScreen()).Run()

	return err
}

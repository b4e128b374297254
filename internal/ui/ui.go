package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"twinflow/internal/auth"
	"twinflow/internal/config"
	"twinflow/internal/session"
	"twinflow/internal/task"
	"twinflow/internal/urgency"
	"twinflow/internal/view"
)

type screen int

const (
	screenAuth screen = iota
	screenDashboard
)

type mode int

const (
	modeList mode = iota
	modeAdd
	modeSearch
)

// TaskSaver persists a task after every change.
type TaskSaver interface {
	SaveTask(ctx context.Context, t task.Task) error
}

// Sessions persists the signed-in state.
type Sessions interface {
	Save(ctx context.Context, s session.Session) error
	Clear(ctx context.Context) error
}

// Deps is what the dashboard is built from. Only Tasks is required.
type Deps struct {
	Config     config.Config
	Tasks      *task.Store
	Saver      TaskSaver
	Auth       auth.Authenticator
	Sessions   Sessions
	Session    session.Session
	Clock      urgency.Clock
	ProjectDue time.Time
}

type Model struct {
	ctx        context.Context
	cfg        config.Config
	tasks      *task.Store
	saver      TaskSaver
	auth       auth.Authenticator
	sessions   Sessions
	clock      urgency.Clock
	projectDue time.Time

	screen screen
	sess   session.Session
	login  loginForm

	query  view.Query
	view   view.Model
	cursor int
	mode   mode
	input  textinput.Model
	status string
}

// New builds the model. A signed-in session opens straight on the dashboard.
func New(ctx context.Context, d Deps) Model {
	if d.Config.Keys == (config.Keymap{}) {
		d.Config.Keys = config.Default().Keys
	}
	if d.Clock == nil {
		d.Clock = urgency.SystemClock{}
	}
	if d.Tasks == nil {
		d.Tasks, _ = task.NewStore()
	}
	filter, err := view.ParseStatusFilter(d.Config.DefaultFilter)
	if err != nil {
		slog.Warn("ignoring default filter", "value", d.Config.DefaultFilter, "error", err)
		filter = view.FilterAll
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:        ctx,
		cfg:        d.Config,
		tasks:      d.Tasks,
		saver:      d.Saver,
		auth:       d.Auth,
		sessions:   d.Sessions,
		clock:      d.Clock,
		projectDue: d.ProjectDue,
		screen:     screenAuth,
		login:      newLoginForm(),
		query:      view.Query{Status: filter},
		input:      ti,
		mode:       modeList,
		status:     "Press 'a' to add, space to toggle, '/' to search.",
	}
	if d.Session.SignedIn() {
		m.sess = d.Session
		m.screen = screenDashboard
	}
	m.refresh()
	return m
}

func Run(ctx context.Context, d Deps) error {
	program := tea.NewProgram(New(ctx, d), tea.WithContext(ctx), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.waitForAuth()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.screen == screenAuth {
			return m.updateLogin(msg)
		}
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.input.Width = msg.Width - 10
	case passwordResultMsg:
		return m.applyPasswordResult(msg), nil
	case oauthStartedMsg:
		return m.applyOAuthStarted(msg), nil
	case authResultMsg:
		m = m.applyAuthResult(auth.Result(msg))
		return m, m.waitForAuth()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case modeAdd:
		return m.updateAddMode(key, msg)
	case modeSearch:
		return m.updateSearchMode(key, msg)
	}
	return m.updateListMode(key)
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.mode = modeList
		m.input.SetValue("")
		m.input.Blur()
		m.status = "Cancelled"
		return m, nil
	case m.cfg.Keys.Confirm:
		title := strings.TrimSpace(m.input.Value())
		if title == "" {
			m.status = "Title cannot be empty"
			return m, nil
		}
		t, err := task.New(task.Draft{Title: title}, m.clock.Now())
		if err != nil {
			m.status = fmt.Sprintf("add failed: %v", err)
			return m, nil
		}
		if err := m.tasks.Add(t); err != nil {
			m.status = fmt.Sprintf("add failed: %v", err)
			return m, nil
		}
		if err := m.persist(t); err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
		} else {
			m.status = "Added task"
		}
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		m.refresh()
		m.cursor = clampCursor(indexOf(m.view.Visible, t.ID, m.cursor), len(m.view.Visible))
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m Model) updateSearchMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.query.Search = ""
		m.input.SetValue("")
		m.input.Blur()
		m.mode = modeList
		m.status = "Search cleared"
		m.refresh()
		return m, nil
	case m.cfg.Keys.Confirm:
		m.input.Blur()
		m.mode = modeList
		m.status = fmt.Sprintf("%d matching tasks", len(m.view.Visible))
		return m, nil
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.query.Search = m.input.Value()
		m.refresh()
		return m, cmd
	}
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key {
	case k.Quit:
		return m, tea.Quit
	case k.Down, "down":
		m.cursor = clampCursor(m.cursor+1, len(m.view.Visible))
	case k.Up, "up":
		m.cursor = clampCursor(m.cursor-1, len(m.view.Visible))
	case k.Add:
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "Task title"
		m.input.Focus()
		m.status = "Add mode: type a title and press Enter"
	case k.Search:
		m.mode = modeSearch
		m.input.SetValue(m.query.Search)
		m.input.Placeholder = "Search title or description"
		m.input.Focus()
		m.status = "Search: type to filter, Enter to keep, Esc to clear"
	case k.NextFilter:
		m.setFilter(m.query.Status.Next())
	case "1", "2", "3", "4":
		m.setFilter(view.Filters()[int(key[0]-'1')])
	case k.Toggle:
		if len(m.view.Visible) == 0 {
			return m, nil
		}
		t, err := m.tasks.ToggleCompletion(m.view.Visible[m.cursor].ID)
		if err != nil {
			m.status = fmt.Sprintf("toggle failed: %v", err)
			return m, nil
		}
		if err := m.persist(t); err != nil {
			m.status = fmt.Sprintf("save failed: %v", err)
		} else {
			m.status = fmt.Sprintf("%q is now %s", t.Title, t.Status.Label())
		}
		m.refresh()
	case k.Confirm:
		if len(m.view.Visible) == 0 {
			m.status = "No tasks"
			return m, nil
		}
		m.status = m.detail(m.view.Visible[m.cursor])
	case k.SignOut:
		return m.signOut(), nil
	}
	return m, nil
}

func (m *Model) setFilter(f view.StatusFilter) {
	m.query.Status = f
	m.cursor = 0
	m.refresh()
	m.status = fmt.Sprintf("Showing %s (%d)", f.Label(), len(m.view.Visible))
}

// refresh recomputes the view model after any change to tasks or query.
func (m *Model) refresh() {
	m.view = view.Build(m.tasks.List(), m.query, m.clock.Now())
	m.cursor = clampCursor(m.cursor, len(m.view.Visible))
}

func (m Model) persist(t task.Task) error {
	if m.saver == nil {
		return nil
	}
	return m.saver.SaveTask(m.ctx, t)
}

func (m Model) detail(t task.Task) string {
	info := fmt.Sprintf("%s • %s • priority:%s • %s", t.Title, t.Status.Label(), t.Priority, t.Assignee)
	if !t.DueDate.IsZero() {
		info += fmt.Sprintf(" • due:%s (%s)", t.DueString(), urgency.At(t.DueDate, m.clock.Now()).Label())
	}
	if d := strings.TrimSpace(t.Description); d != "" {
		info += " • " + d
	}
	return info
}

func (m Model) View() string {
	if m.screen == screenAuth {
		return m.viewLogin()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderFilterBadges())
	b.WriteString("\n")
	b.WriteString(m.renderPriorityBadges())
	b.WriteString("\n")
	if m.query.Search != "" && m.mode != modeSearch {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("search: %q", m.query.Search)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(m.view.Visible) == 0 {
		if m.view.Counts.All == 0 {
			b.WriteString("No tasks yet. Press 'a' to add one.")
		} else {
			b.WriteString("No tasks match the current filter.")
		}
	} else {
		b.WriteString(m.renderTaskList())
	}

	b.WriteString("\n---\n")
	if m.mode == modeAdd || m.mode == modeSearch {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.renderDetailPanel())
	}

	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m Model) renderHeader() string {
	left := titleStyle.Render("TwinFlow")
	if !m.projectDue.IsZero() {
		sig := urgency.Evaluate(m.projectDue, m.clock)
		style := calmStyle
		if sig.Urgent {
			style = urgentStyle
		}
		left += "  " + style.Render(sig.Label())
	}
	id := m.sess.Identity
	right := avatarStyle.Render(id.Initials()) + " " + identityStyle.Render(fmt.Sprintf("%s (%s)", displayName(id), m.sess.Provider.Label()))
	return lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
}

func (m Model) renderFilterBadges() string {
	parts := make([]string, 0, len(view.Filters()))
	for _, f := range view.Filters() {
		text := fmt.Sprintf("%s (%d)", f.Label(), m.view.Counts.For(f))
		if f == m.query.Status {
			parts = append(parts, activeBadgeStyle.Render(text))
		} else {
			parts = append(parts, badgeStyle.Render(text))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderPriorityBadges() string {
	b := m.view.Badges
	parts := make([]string, 0, len(task.Priorities())+2)
	for _, p := range task.Priorities() {
		parts = append(parts, priorityStyles[string(p)].Render(fmt.Sprintf("%s %d", p, b.ByPriority[p])))
	}
	urgent := fmt.Sprintf("urgent %d", b.Urgent)
	if b.Urgent > 0 {
		urgent = urgentStyle.Render(urgent)
	}
	overdue := fmt.Sprintf("overdue %d", b.Overdue)
	if b.Overdue > 0 {
		overdue = urgentStyle.Render(overdue)
	}
	return strings.Join(append(parts, urgent, overdue), " • ")
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move • %s add • %s search • %s filter • space toggle • %s detail • %s sign out • %s quit",
		k.Up, k.Down, k.Add, k.Search, k.NextFilter, k.Confirm, k.SignOut, k.Quit)
}

func (m Model) renderTaskList() string {
	now := m.clock.Now()
	var b strings.Builder
	for i, t := range m.view.Visible {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = cursorStyle.Render(">")
		}

		checkbox := "[ ]"
		switch {
		case t.Completed():
			checkbox = "[x]"
		case t.Status == task.StatusInProgress:
			checkbox = "[~]"
		}

		title := t.Title
		if t.Completed() {
			title = doneStyle.Render(title)
		}

		due := ""
		if !t.DueDate.IsZero() {
			sig := urgency.At(t.DueDate, now)
			due = sig.Label()
			if sig.Urgent && !t.Completed() {
				due = urgentStyle.Render(due)
			} else {
				due = mutedStyle.Render(due)
			}
		}

		b.WriteString(fmt.Sprintf("%s %s %s  %s  %s  %s\n", cursor, checkbox, title,
			priorityStyles[string(t.Priority)].Render(string(t.Priority)), mutedStyle.Render(t.Assignee), due))
	}
	return b.String()
}

func (m Model) renderDetailPanel() string {
	if len(m.view.Visible) == 0 {
		return "No task selected"
	}
	t := m.view.Visible[clampCursor(m.cursor, len(m.view.Visible))]
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Title       : %s\n", t.Title))
	b.WriteString(fmt.Sprintf("Status      : %s\n", t.Status.Label()))
	b.WriteString(fmt.Sprintf("Priority    : %s\n", t.Priority))
	b.WriteString(fmt.Sprintf("Assignee    : %s\n", t.Assignee))
	b.WriteString(fmt.Sprintf("Due         : %s\n", emptyPlaceholder(t.DueString())))
	b.WriteString(fmt.Sprintf("Description : %s", emptyPlaceholder(t.Description)))
	return panelStyle.Render(b.String())
}

func emptyPlaceholder(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}

func indexOf(tasks []task.Task, id string, fallback int) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return fallback
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}

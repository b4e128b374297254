package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"twinflow/internal/auth"
	"twinflow/internal/config"
	"twinflow/internal/session"
	"twinflow/internal/task"
	"twinflow/internal/urgency"
	"twinflow/internal/view"
)

var now = time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC)

type fakeAuth struct {
	results  chan auth.Result
	identity auth.Identity
	err      error
	oauthErr error
	calls    []string
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{results: make(chan auth.Result, 4)}
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, email, _ string) (auth.Identity, error) {
	f.calls = append(f.calls, "password:"+email)
	return f.identity, f.err
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string, meta auth.Metadata) (auth.Identity, error) {
	f.calls = append(f.calls, "signup:"+email+":"+meta.DisplayName)
	return f.identity, f.err
}

func (f *fakeAuth) SignInWithOAuth(_ context.Context, p auth.Provider) error {
	f.calls = append(f.calls, "oauth:"+string(p))
	return f.oauthErr
}

func (f *fakeAuth) Results() <-chan auth.Result { return f.results }

type fakeSaver struct{ saved []task.Task }

func (f *fakeSaver) SaveTask(_ context.Context, t task.Task) error {
	f.saved = append(f.saved, t)
	return nil
}

type fakeSessions struct {
	saved   []session.Session
	cleared int
}

func (f *fakeSessions) Save(_ context.Context, s session.Session) error {
	f.saved = append(f.saved, s)
	return nil
}

func (f *fakeSessions) Clear(context.Context) error {
	f.cleared++
	return nil
}

type harness struct {
	auth     *fakeAuth
	saver    *fakeSaver
	sessions *fakeSessions
	store    *task.Store
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedStore(t *testing.T) *task.Store {
	t.Helper()
	drafts := []task.Draft{
		{Title: "Update project timeline", Description: "Review and adjust project milestones", Priority: task.PriorityHigh, Status: task.StatusInProgress, Assignee: "John Doe", DueDate: date("2024-02-01")},
		{Title: "Design system review", Description: "Conduct comprehensive review of components", Status: task.StatusPending, Assignee: "Sarah Smith", DueDate: date("2024-02-03")},
		{Title: "Security audit", Description: "Perform security assessment", Priority: task.PriorityHigh, Status: task.StatusInProgress, DueDate: date("2024-01-30")},
		{Title: "Documentation update", Priority: task.PriorityLow, Status: task.StatusCompleted, DueDate: date("2024-01-28")},
		{Title: "Vendor contracts", Priority: task.PriorityLow, DueDate: date("2024-03-20")},
	}
	store, err := task.NewStore()
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range drafts {
		tk, err := task.New(d, now)
		if err != nil {
			t.Fatalf("task.New(%q): %v", d.Title, err)
		}
		if err := store.Add(tk); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func newModel(t *testing.T, sess session.Session) (Model, *harness) {
	t.Helper()
	h := &harness{auth: newFakeAuth(), saver: &fakeSaver{}, sessions: &fakeSessions{}, store: seedStore(t)}
	m := New(context.Background(), Deps{
		Config:     config.Default(),
		Tasks:      h.store,
		Saver:      h.saver,
		Auth:       h.auth,
		Sessions:   h.sessions,
		Session:    sess,
		Clock:      urgency.FixedClock(now),
		ProjectDue: date("2024-02-01"),
	})
	return m, h
}

func signedIn() session.Session {
	return session.Session{
		Identity: auth.Identity{Name: "John Doe", Email: "john@company.com"},
		Provider: auth.ProviderGoogle,
	}
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		if !ok {
			t.Fatalf("Update returned %T", next)
		}
	}
	return m, cmd
}

func titles(tasks []task.Task) string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return strings.Join(out, ", ")
}

func TestSignedInSessionOpensDashboard(t *testing.T) {
	m, _ := newModel(t, signedIn())
	if m.screen != screenDashboard {
		t.Fatalf("screen: got %v, want dashboard", m.screen)
	}
	out := m.View()
	for _, want := range []string{"All (5)", "Pending (2)", "In Progress (2)", "Completed (1)", "John Doe (Google)", "JD", "Due in 3 days"} {
		if !strings.Contains(out, want) {
			t.Errorf("View missing %q", want)
		}
	}
}

func TestSignedOutStartsOnLogin(t *testing.T) {
	m, _ := newModel(t, session.Session{})
	if m.screen != screenAuth {
		t.Fatalf("screen: got %v, want auth", m.screen)
	}
	if !strings.Contains(m.View(), "Sign in to your dashboard") {
		t.Errorf("login view: %s", m.View())
	}
}

func TestPasswordSignIn(t *testing.T) {
	m, h := newModel(t, session.Session{})
	h.auth.identity = auth.Identity{Name: "Lisa Chen", Email: "lisa@example.com"}

	m, _ = send(t, m, runes("lisa@example.com"), tab, runes("password1"))
	m, cmd := send(t, m, enter)
	if cmd == nil {
		t.Fatal("expected a sign-in command")
	}
	if !m.login.pending {
		t.Error("expected pending attempt")
	}

	// A second submit while pending is refused without starting another attempt.
	m, again := send(t, m, enter)
	if again != nil {
		t.Error("second submit started another attempt")
	}
	if m.login.message != "A sign-in attempt is already in progress" {
		t.Errorf("message: got %q", m.login.message)
	}

	m, _ = send(t, m, cmd())
	if m.screen != screenDashboard {
		t.Fatalf("screen: got %v, want dashboard", m.screen)
	}
	if len(h.auth.calls) != 1 || h.auth.calls[0] != "password:lisa@example.com" {
		t.Errorf("calls: got %v", h.auth.calls)
	}
	if len(h.sessions.saved) != 1 || h.sessions.saved[0].Provider != auth.ProviderPassword {
		t.Errorf("saved sessions: got %+v", h.sessions.saved)
	}
	if m.status != "Signed in as Lisa Chen" {
		t.Errorf("status: got %q", m.status)
	}
}

func TestSignUpPassesDisplayName(t *testing.T) {
	m, h := newModel(t, session.Session{})
	h.auth.identity = auth.Identity{Name: "Mike Johnson", Email: "mike@example.com"}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if !m.login.signUp {
		t.Fatal("expected sign-up mode")
	}
	m, _ = send(t, m, runes("mike@example.com"), tab, runes("password1"), tab, runes("Mike Johnson"))
	_, cmd := send(t, m, enter)
	if cmd == nil {
		t.Fatal("expected a sign-up command")
	}
	cmd()
	if len(h.auth.calls) != 1 || h.auth.calls[0] != "signup:mike@example.com:Mike Johnson" {
		t.Errorf("calls: got %v", h.auth.calls)
	}
}

func TestPasswordFailureStaysOnLogin(t *testing.T) {
	m, h := newModel(t, session.Session{})
	h.auth.err = &auth.Error{Message: "Invalid email or password", Err: auth.ErrInvalidCredentials}

	m, cmd := send(t, m, runes("lisa@example.com"), tab, runes("nope-nope"), enter)
	m, _ = send(t, m, cmd())
	if m.screen != screenAuth {
		t.Fatalf("screen: got %v, want auth", m.screen)
	}
	if m.login.pending {
		t.Error("attempt still pending after failure")
	}
	if !strings.Contains(m.View(), "Invalid email or password") {
		t.Errorf("view missing error: %s", m.View())
	}
	if m.login.value(fieldPassword) != "" {
		t.Error("password not cleared")
	}
	if len(h.sessions.saved) != 0 {
		t.Errorf("session saved on failure: %+v", h.sessions.saved)
	}
}

func TestEmptyCredentialsAreRejected(t *testing.T) {
	m, h := newModel(t, session.Session{})
	m, cmd := send(t, m, enter)
	if cmd != nil || len(h.auth.calls) != 0 {
		t.Error("expected no attempt")
	}
	if m.login.message != "Email and password are required" {
		t.Errorf("message: got %q", m.login.message)
	}
}

func TestOAuthCompletesThroughResults(t *testing.T) {
	m, h := newModel(t, session.Session{})

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if cmd == nil {
		t.Fatal("expected an oauth command")
	}
	m, _ = send(t, m, cmd())
	if !m.login.pending {
		t.Fatal("expected pending attempt")
	}

	m, wait := send(t, m, authResultMsg(auth.Result{Kind: auth.ResultRedirect, Provider: auth.ProviderGoogle, URL: "https://accounts.example/authorize?state=x"}))
	if wait == nil {
		t.Error("expected to keep listening for results")
	}
	if !strings.Contains(m.View(), "https://accounts.example/authorize?state=x") {
		t.Errorf("redirect URL not shown: %s", m.View())
	}

	id := auth.Identity{Name: "John Doe", Email: "john@company.com"}
	m, _ = send(t, m, authResultMsg(auth.Result{Kind: auth.ResultSignedIn, Provider: auth.ProviderGoogle, Identity: id}))
	if m.screen != screenDashboard {
		t.Fatalf("screen: got %v, want dashboard", m.screen)
	}
	if m.sess.Identity != id || m.sess.Provider != auth.ProviderGoogle {
		t.Errorf("session: got %+v", m.sess)
	}
	if len(h.sessions.saved) != 1 {
		t.Errorf("saved sessions: got %d, want 1", len(h.sessions.saved))
	}
	if h.auth.calls[0] != "oauth:google" {
		t.Errorf("calls: got %v", h.auth.calls)
	}
}

func TestOAuthFailureIsShown(t *testing.T) {
	m, _ := newModel(t, session.Session{})
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	m, _ = send(t, m, cmd())
	m, _ = send(t, m, authResultMsg(auth.Result{
		Kind:     auth.ResultFailed,
		Provider: auth.ProviderMicrosoft,
		Err:      &auth.Error{Message: "Sign-in with Microsoft failed", Err: auth.ErrStateMismatch},
	}))
	if m.login.pending {
		t.Error("attempt still pending after failure")
	}
	if m.login.message != "Sign-in with Microsoft failed" {
		t.Errorf("message: got %q", m.login.message)
	}
}

func TestOAuthStartErrorReleasesForm(t *testing.T) {
	m, h := newModel(t, session.Session{})
	h.auth.oauthErr = &auth.Error{Message: "Sign-in with Google is not configured", Err: auth.ErrUnknownProvider}
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	m, _ = send(t, m, cmd())
	if m.login.pending {
		t.Error("attempt still pending")
	}
	if m.login.message != "Sign-in with Google is not configured" {
		t.Errorf("message: got %q", m.login.message)
	}
}

func TestInitWaitsForAuthResults(t *testing.T) {
	m, h := newModel(t, session.Session{})
	want := auth.Result{Kind: auth.ResultRedirect, URL: "https://example.com"}
	h.auth.results <- want
	cmd := m.Init()
	if cmd == nil {
		t.Fatal("Init returned nil")
	}
	msg := cmd()
	got, ok := msg.(authResultMsg)
	if !ok {
		t.Fatalf("got %T, want authResultMsg", msg)
	}
	if auth.Result(got).URL != want.URL {
		t.Errorf("URL: got %q, want %q", got.URL, want.URL)
	}
}

func TestAddRejectsEmptyTitle(t *testing.T) {
	m, h := newModel(t, signedIn())
	m, _ = send(t, m, runes("a"), runes("   "), enter)
	if m.status != "Title cannot be empty" {
		t.Errorf("status: got %q", m.status)
	}
	if m.mode != modeAdd {
		t.Errorf("mode: got %v, want add", m.mode)
	}
	if h.store.Len() != 5 || len(h.saver.saved) != 0 {
		t.Error("empty title was stored")
	}
}

func TestAddSavesTask(t *testing.T) {
	m, h := newModel(t, signedIn())
	m, _ = send(t, m, runes("a"), runes("Write release notes"), enter)
	if m.status != "Added task" {
		t.Errorf("status: got %q", m.status)
	}
	if h.store.Len() != 6 {
		t.Fatalf("Len: got %d, want 6", h.store.Len())
	}
	if len(h.saver.saved) != 1 || h.saver.saved[0].Title != "Write release notes" {
		t.Errorf("saved: got %+v", h.saver.saved)
	}
	if got := m.view.Visible[m.cursor].Title; got != "Write release notes" {
		t.Errorf("cursor on %q", got)
	}
	if m.view.Counts.Pending != 3 {
		t.Errorf("Pending: got %d, want 3", m.view.Counts.Pending)
	}
}

func TestToggleWritesThrough(t *testing.T) {
	m, h := newModel(t, signedIn())

	m, _ = send(t, m, space)
	first := m.view.Visible[0]
	if first.Status != task.StatusCompleted {
		t.Fatalf("after toggle: got %q, want completed", first.Status)
	}
	if m.view.Counts.Completed != 2 || m.view.Counts.InProgress != 1 {
		t.Errorf("counts: got %+v", m.view.Counts)
	}

	// Toggling back lands on pending, not the previous in-progress status.
	m, _ = send(t, m, space)
	if got := m.view.Visible[0].Status; got != task.StatusPending {
		t.Errorf("after second toggle: got %q, want pending", got)
	}
	if len(h.saver.saved) != 2 {
		t.Errorf("saved: got %d, want 2", len(h.saver.saved))
	}
}

func TestFilterAndSearch(t *testing.T) {
	m, _ := newModel(t, signedIn())

	m, _ = send(t, m, tab)
	if m.query.Status != view.StatusFilter(task.StatusPending) {
		t.Fatalf("filter: got %q, want pending", m.query.Status)
	}
	if got := titles(m.view.Visible); got != "Design system review, Vendor contracts" {
		t.Errorf("pending: got %s", got)
	}

	m, _ = send(t, m, runes("/"), runes("VENDOR"))
	if got := titles(m.view.Visible); got != "Vendor contracts" {
		t.Errorf("search: got %s", got)
	}
	// Counts stay over every task.
	if m.view.Counts.All != 5 {
		t.Errorf("All: got %d, want 5", m.view.Counts.All)
	}

	m, _ = send(t, m, esc)
	if m.query.Search != "" || len(m.view.Visible) != 2 {
		t.Errorf("after clearing: search %q, visible %d", m.query.Search, len(m.view.Visible))
	}

	m, _ = send(t, m, runes("4"))
	if got := titles(m.view.Visible); got != "Documentation update" {
		t.Errorf("completed: got %s", got)
	}
}

func TestSearchMatchesDescription(t *testing.T) {
	m, _ := newModel(t, signedIn())
	m, _ = send(t, m, runes("/"), runes("milestones"), enter)
	if got := titles(m.view.Visible); got != "Update project timeline" {
		t.Errorf("got %s", got)
	}
	if m.mode != modeList {
		t.Errorf("mode: got %v, want list", m.mode)
	}
	if m.query.Search != "milestones" {
		t.Errorf("search kept: got %q", m.query.Search)
	}
}

func TestSignOutClearsSession(t *testing.T) {
	m, h := newModel(t, signedIn())
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	if m.screen != screenAuth {
		t.Fatalf("screen: got %v, want auth", m.screen)
	}
	if h.sessions.cleared != 1 {
		t.Errorf("cleared: got %d, want 1", h.sessions.cleared)
	}
	if m.sess.SignedIn() {
		t.Error("session still signed in")
	}
	if !strings.Contains(m.View(), "Signed out") {
		t.Errorf("view: %s", m.View())
	}
}

type failingSaver struct{}

func (failingSaver) SaveTask(context.Context, task.Task) error { return errors.New("disk full") }

func TestSaveFailureIsReported(t *testing.T) {
	m, h := newModel(t, signedIn())
	m.saver = failingSaver{}
	m, _ = send(t, m, space)
	if m.status != "save failed: disk full" {
		t.Errorf("status: got %q", m.status)
	}
	// The in-memory change still stands.
	if got, _ := h.store.Get(m.view.Visible[0].ID); !got.Completed() {
		t.Error("toggle lost after save failure")
	}
}

func TestDefaultFilterFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultFilter = "in_progress"
	m := New(context.Background(), Deps{Config: cfg, Tasks: seedStore(t), Clock: urgency.FixedClock(now), Session: signedIn()})
	if got := titles(m.view.Visible); got != "Update project timeline, Security audit" {
		t.Errorf("got %s", got)
	}
}

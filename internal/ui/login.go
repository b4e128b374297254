package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"twinflow/internal/auth"
	"twinflow/internal/session"
)

const (
	fieldEmail = iota
	fieldPassword
	fieldName
)

const signUpKey = "ctrl+r"

type loginForm struct {
	inputs   []textinput.Model
	focus    int
	signUp   bool
	pending  bool
	message  string
	redirect string
}

// passwordResultMsg carries the outcome of an email/password attempt.
type passwordResultMsg struct {
	identity auth.Identity
	err      error
}

// oauthStartedMsg reports whether the redirect flow could be started.
type oauthStartedMsg struct {
	provider auth.Provider
	err      error
}

// authResultMsg is one notification read from the authenticator.
type authResultMsg auth.Result

func newLoginForm() loginForm {
	email := textinput.New()
	email.Prompt = "Email     "
	email.Placeholder = "you@company.com"
	email.CharLimit = 254
	email.Width = 40

	password := textinput.New()
	password.Prompt = "Password  "
	password.Placeholder = "at least 8 characters"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 40

	name := textinput.New()
	name.Prompt = "Name      "
	name.Placeholder = "optional"
	name.CharLimit = 128
	name.Width = 40

	f := loginForm{inputs: []textinput.Model{email, password, name}}
	f.setFocus(fieldEmail)
	return f
}

func (f loginForm) fields() int {
	if f.signUp {
		return 3
	}
	return 2
}

func (f *loginForm) setFocus(i int) {
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	f.focus = i
}

func (f loginForm) value(i int) string {
	return f.inputs[i].Value()
}

// waitForAuth blocks on the next authenticator notification.
func (m Model) waitForAuth() tea.Cmd {
	if m.auth == nil {
		return nil
	}
	ch := m.auth.Results()
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return authResultMsg(r)
	}
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.cfg.Keys
	switch key := msg.String(); key {
	case k.Cancel:
		return m, tea.Quit
	case "tab", "down":
		m.login.setFocus(wrapIndex(m.login.focus+1, m.login.fields()))
	case "shift+tab", "up":
		m.login.setFocus(wrapIndex(m.login.focus-1, m.login.fields()))
	case signUpKey:
		m.login.signUp = !m.login.signUp
		if m.login.focus >= m.login.fields() {
			m.login.setFocus(fieldEmail)
		}
		m.login.message = ""
	case k.GoogleSignIn:
		return m.startOAuth(auth.ProviderGoogle)
	case k.MicrosoftSign:
		return m.startOAuth(auth.ProviderMicrosoft)
	case k.Confirm:
		return m.submitLogin()
	default:
		var cmd tea.Cmd
		m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	if m.login.pending {
		m.login.message = "A sign-in attempt is already in progress"
		return m, nil
	}
	if m.auth == nil {
		m.login.message = "Sign-in is not available"
		return m, nil
	}
	email := strings.TrimSpace(m.login.value(fieldEmail))
	password := m.login.value(fieldPassword)
	if email == "" || password == "" {
		m.login.message = "Email and password are required"
		return m, nil
	}
	m.login.pending = true
	m.login.message = ""

	a, ctx := m.auth, m.ctx
	signUp := m.login.signUp
	meta := auth.Metadata{DisplayName: strings.TrimSpace(m.login.value(fieldName))}
	return m, func() tea.Msg {
		var id auth.Identity
		var err error
		if signUp {
			id, err = a.SignUp(ctx, email, password, meta)
		} else {
			id, err = a.SignInWithPassword(ctx, email, password)
		}
		return passwordResultMsg{identity: id, err: err}
	}
}

func (m Model) startOAuth(p auth.Provider) (tea.Model, tea.Cmd) {
	if m.login.pending {
		m.login.message = "A sign-in attempt is already in progress"
		return m, nil
	}
	if m.auth == nil {
		m.login.message = "Sign-in is not available"
		return m, nil
	}
	m.login.pending = true
	m.login.redirect = ""
	m.login.message = fmt.Sprintf("Starting sign-in with %s...", p.Label())
	a, ctx := m.auth, m.ctx
	return m, func() tea.Msg {
		return oauthStartedMsg{provider: p, err: a.SignInWithOAuth(ctx, p)}
	}
}

func (m Model) applyPasswordResult(msg passwordResultMsg) Model {
	m.login.pending = false
	if msg.err != nil {
		m.login.message = auth.Message(msg.err)
		m.login.inputs[fieldPassword].SetValue("")
		return m
	}
	return m.signIn(session.Session{Identity: msg.identity, Provider: auth.ProviderPassword})
}

func (m Model) applyOAuthStarted(msg oauthStartedMsg) Model {
	if msg.err != nil {
		m.login.pending = false
		m.login.message = auth.Message(msg.err)
	}
	return m
}

func (m Model) applyAuthResult(r auth.Result) Model {
	switch r.Kind {
	case auth.ResultRedirect:
		m.login.redirect = r.URL
		m.login.message = fmt.Sprintf("Continue in your browser to sign in with %s.", r.Provider.Label())
	case auth.ResultSignedIn:
		m.login.pending = false
		return m.signIn(session.Session{Identity: r.Identity, Provider: r.Provider})
	case auth.ResultFailed:
		m.login.pending = false
		m.login.redirect = ""
		m.login.message = auth.Message(r.Err)
	}
	return m
}

func (m Model) signIn(s session.Session) Model {
	m.sess = s
	m.screen = screenDashboard
	m.login = newLoginForm()
	m.status = fmt.Sprintf("Signed in as %s", displayName(s.Identity))
	if m.sessions != nil {
		if err := m.sessions.Save(m.ctx, s); err != nil {
			m.status = fmt.Sprintf("session save failed: %v", err)
		}
	}
	return m
}

func (m Model) signOut() Model {
	if m.sessions != nil {
		if err := m.sessions.Clear(m.ctx); err != nil {
			m.status = fmt.Sprintf("sign out failed: %v", err)
			return m
		}
	}
	m.sess = session.Session{}
	m.screen = screenAuth
	m.mode = modeList
	m.input.Blur()
	m.input.SetValue("")
	m.login = newLoginForm()
	m.login.message = "Signed out"
	return m
}

func displayName(id auth.Identity) string {
	if id.Name != "" {
		return id.Name
	}
	return id.Email
}

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("TwinFlow"))
	b.WriteString("\n")
	if m.login.signUp {
		b.WriteString("Create an account")
	} else {
		b.WriteString("Sign in to your dashboard")
	}
	b.WriteString("\n\n")

	for i := 0; i < m.login.fields(); i++ {
		b.WriteString(m.login.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.login.pending {
		b.WriteString(mutedStyle.Render("Signing in..."))
		b.WriteString("\n")
	}
	if m.login.message != "" {
		b.WriteString(errorStyle.Render(m.login.message))
		b.WriteString("\n")
	}
	if m.login.redirect != "" {
		b.WriteString(m.login.redirect)
		b.WriteString("\n")
	}

	k := m.cfg.Keys
	mode := "sign up"
	if m.login.signUp {
		mode = "sign in"
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s submit • tab next field • %s %s • %s Google • %s Microsoft • %s quit",
		k.Confirm, signUpKey, mode, k.GoogleSignIn, k.MicrosoftSign, k.Cancel)))
	return b.String()
}

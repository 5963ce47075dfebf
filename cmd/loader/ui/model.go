package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/handoff"
	"github.com/mind-engage/mindengage-loader/internal/payload"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

// Options configures a Model.
type Options struct {
	Category  content.Category
	Env       content.Environment
	Session   session.Config
	Clipboard handoff.Clipboard
	Opener    handoff.Opener
	Logger    *zap.Logger

	// Plain skips markdown rendering of the payload preview.
	Plain bool
}

type field int

const (
	fieldSheet field = iota
	fieldSubsheets
	fieldArchive
	fieldURL
	fieldConverted
	fieldScore
)

var fieldLabels = map[field]string{
	fieldSheet:     "Spreadsheet",
	fieldSubsheets: "Sub-sheets",
	fieldArchive:   "Archive (.zip)",
	fieldURL:       "JSON link",
	fieldConverted: "JSON converted",
	fieldScore:     "Question score",
}

var stepLabels = map[form.Step]string{
	form.StepArchiveVerified:    "Archive verified",
	form.StepUploadAcknowledged: "Archive uploaded",
	form.StepDestinationURL:     "JSON link",
	form.StepMetadata:           "Metadata",
	form.StepSheetName:          "Spreadsheet name",
	form.StepSubsheets:          "Sub-sheets",
}

// inspectedMsg reports a finished archive inspection.
type inspectedMsg struct {
	name    string
	outcome archive.Outcome
	stale   bool
}

// Model is the bubbletea model of one loader session.
type Model struct {
	opts     Options
	sess     *session.Session
	styles   Styles
	renderer *glamour.TermRenderer

	focus  int
	cursor int

	sheet       textinput.Model
	archivePath textinput.Model
	url         textinput.Model
	score       textinput.Model
	converted   bool

	inspecting string
	status     string
	failed     bool

	width, height int
}

func New(opts Options) (Model, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Category == "" {
		opts.Category = content.MCQ
	}
	if opts.Env == "" {
		opts.Env = content.Prod
	}
	if opts.Clipboard == nil {
		opts.Clipboard = handoff.SystemClipboard{}
	}
	if opts.Opener == nil {
		opts.Opener = handoff.BrowserOpener{Logger: opts.Logger}
	}
	s, err := session.New(opts.Category, opts.Env, opts.Session)
	if err != nil {
		return Model{}, err
	}

	m := Model{
		opts:        opts,
		sess:        s,
		styles:      NewStyles(opts.Env),
		sheet:       newInput("e.g. Week 3 MCQs", 120),
		archivePath: newInput("path/to/content.zip", 512),
		url:         newInput("https://...", 1024),
		score:       newInput(strconv.Itoa(form.DefaultQuestionScore), 6),
		width:       80,
	}
	if !opts.Plain {
		m.renderer, err = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(76),
		)
		if err != nil {
			opts.Logger.Debug("preview renderer unavailable", zap.Error(err))
			m.renderer = nil
		}
	}
	m.focusField()
	return m, nil
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 48
	return ti
}

// Session exposes the underlying session, mainly for tests.
func (m Model) Session() *session.Session { return m.sess }

// Close cancels any inspection still running.
func (m Model) Close() { m.sess.Close() }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) fields() []field {
	if m.sess.Category() == content.MCQ {
		return []field{fieldSheet, fieldSubsheets}
	}
	return []field{fieldArchive, fieldURL, fieldConverted, fieldScore}
}

func (m Model) current() field {
	fs := m.fields()
	return fs[m.focus%len(fs)]
}

func (m *Model) input(f field) *textinput.Model {
	switch f {
	case fieldSheet:
		return &m.sheet
	case fieldArchive:
		return &m.archivePath
	case fieldURL:
		return &m.url
	case fieldScore:
		return &m.score
	}
	return nil
}

func (m *Model) focusField() {
	for _, f := range []field{fieldSheet, fieldArchive, fieldURL, fieldScore} {
		m.input(f).Blur()
	}
	if in := m.input(m.current()); in != nil {
		in.Focus()
	}
}

// switchTo changes category or environment. A real change discards the form
// and clears every input.
func (m *Model) switchTo(cat content.Category, env content.Environment) {
	changed, err := m.sess.Switch(cat, env)
	if err != nil {
		m.setErr(err)
		return
	}
	if !changed {
		return
	}
	m.styles = NewStyles(env)
	m.sheet.SetValue("")
	m.archivePath.SetValue("")
	m.url.SetValue("")
	m.score.SetValue("")
	m.converted = false
	m.inspecting = ""
	m.focus, m.cursor = 0, 0
	m.focusField()
	m.setStatus(fmt.Sprintf("%s · %s: form reset", cat.Title(), env))
}

func (m *Model) setStatus(s string) { m.status, m.failed = s, false }

func (m *Model) setErr(err error) {
	m.failed = true
	switch {
	case errors.Is(err, form.ErrStepLocked):
		m.status = "Complete the previous step first"
	case errors.Is(err, handoff.ErrClipboardUnavailable):
		m.status = "Clipboard unavailable; copy the preview manually"
	default:
		m.status = err.Error()
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case inspectedMsg:
		if msg.stale {
			return m, nil
		}
		m.inspecting = ""
		m.status, m.failed = msg.outcome.Message, !msg.outcome.Success
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+t":
			next := nextCategory(m.sess.Category())
			m.switchTo(next, m.sess.Environment())
			return m, nil
		case "ctrl+e":
			env := content.Beta
			if m.sess.Environment() == content.Beta {
				env = content.Prod
			}
			m.switchTo(m.sess.Category(), env)
			return m, nil
		case "tab":
			m.focus = (m.focus + 1) % len(m.fields())
			m.focusField()
			return m, nil
		case "shift+tab":
			m.focus = (m.focus + len(m.fields()) - 1) % len(m.fields())
			m.focusField()
			return m, nil
		case "ctrl+o":
			m.acknowledgeUpload()
			return m, nil
		case "ctrl+y":
			m.copyPayload()
			return m, nil
		}
		return m.updateField(msg)
	}

	if in := m.input(m.current()); in != nil {
		var cmd tea.Cmd
		*in, cmd = in.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateField(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.current() {
	case fieldSubsheets:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(content.SubsheetOptions)-1 {
				m.cursor++
			}
		case " ", "enter":
			if err := m.sess.ToggleSubsheet(content.SubsheetOptions[m.cursor]); err != nil {
				m.setErr(err)
			} else {
				m.setStatus("")
			}
		}
		return m, nil

	case fieldConverted:
		if s := msg.String(); s == " " || s == "enter" {
			if err := m.sess.SetMetadata(!m.converted, nil); err != nil {
				m.setErr(err)
			} else {
				m.converted = !m.converted
				m.setStatus("")
			}
		}
		return m, nil

	case fieldArchive:
		if msg.Type == tea.KeyEnter {
			return m, m.selectArchive()
		}
	}

	in := m.input(m.current())
	var cmd tea.Cmd
	*in, cmd = in.Update(msg)
	m.apply(m.current())
	return m, cmd
}

// apply pushes a text input's value into the form.
func (m *Model) apply(f field) {
	var err error
	switch f {
	case fieldSheet:
		err = m.sess.SetSheetName(m.sheet.Value())
	case fieldURL:
		err = m.sess.SetDestinationURL(m.url.Value())
	case fieldScore:
		v := strings.TrimSpace(m.score.Value())
		if v == "" {
			return
		}
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			m.failed, m.status = true, "Question score must be a whole number"
			return
		}
		err = m.sess.SetMetadata(m.converted, &n)
	}
	if err != nil {
		m.setErr(err)
		return
	}
	m.setStatus("")
}

func (m *Model) selectArchive() tea.Cmd {
	path := strings.TrimSpace(m.archivePath.Value())
	if path == "" {
		m.failed, m.status = true, "Enter the path of the archive"
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.setErr(fmt.Errorf("read archive: %w", err))
		return nil
	}
	name := filepath.Base(path)
	in, err := m.sess.SelectArchive(name, data)
	if err != nil {
		m.setErr(err)
		return nil
	}
	m.inspecting = name
	m.setStatus("Inspecting " + name + "...")
	return waitInspection(name, in)
}

func waitInspection(name string, in *session.Inspection) tea.Cmd {
	return func() tea.Msg {
		outcome, stale, _ := in.Wait(context.Background())
		return inspectedMsg{name: name, outcome: outcome, stale: stale}
	}
}

func (m *Model) acknowledgeUpload() {
	u, err := m.sess.AcknowledgeUpload()
	if err != nil {
		m.setErr(err)
		return
	}
	m.opts.Opener.Open(u)
	m.setStatus("Upload page opened: " + u)
}

func (m *Model) copyPayload() {
	cat, p, pending := m.sess.Payload()
	res, err := handoff.Prepare(cat, p, pending, m.sess.Targets())
	if err != nil {
		m.setErr(err)
		return
	}
	if err := handoff.CopyAndOpen(m.opts.Clipboard, m.opts.Opener, res); err != nil {
		m.setErr(err)
		return
	}
	m.setStatus("Payload copied; admin page opened")
}

func nextCategory(c content.Category) content.Category {
	for i, cat := range content.Categories {
		if cat == c {
			return content.Categories[(i+1)%len(content.Categories)]
		}
	}
	return content.Categories[0]
}

func (m Model) View() string {
	v := m.sess.View()
	var b strings.Builder

	b.WriteString(m.styles.Header.Render("Content Loader"))
	b.WriteString(" ")
	b.WriteString(m.styles.Badge.Render(string(v.Environment)))
	b.WriteString("\n\n")

	tabs := make([]string, 0, len(content.Categories))
	for _, c := range content.Categories {
		if c == v.Category {
			tabs = append(tabs, m.styles.ActiveTab.Render(c.Title()))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(c.Title()))
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")

	for _, st := range v.Steps {
		label := stepLabels[st.Step]
		switch {
		case st.Completed:
			b.WriteString(m.styles.StepDone.Render("[x] " + label))
		case st.Unlocked:
			b.WriteString(m.styles.StepOpen.Render("[ ] " + label))
		default:
			b.WriteString(m.styles.StepLocked.Render("[-] " + label))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, f := range m.fields() {
		b.WriteString(m.renderField(f, i == m.focus%len(m.fields()), v))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if v.Pending != nil {
		b.WriteString(m.styles.Pending.Render("Pending: " + v.Pending.Message))
	} else {
		b.WriteString(m.styles.Ready.Render("Ready to copy"))
	}
	b.WriteString("\n\n")
	b.WriteString(m.preview(v.Payload))
	b.WriteString("\n")

	if m.status != "" {
		if m.failed {
			b.WriteString(m.styles.Error.Render(m.status))
		} else {
			b.WriteString(m.styles.Status.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.styles.Help.Render("tab next field · ctrl+t category · ctrl+e environment · ctrl+o open upload · ctrl+y copy · ctrl+c quit"))
	return b.String()
}

func (m Model) renderField(f field, focused bool, v session.View) string {
	label := m.styles.Label.Render(fieldLabels[f])
	if focused {
		label = m.styles.Focused.Render("> ") + label
	} else {
		label = "  " + label
	}
	switch f {
	case fieldSubsheets:
		selected := map[string]bool{}
		if v.MCQ != nil {
			for _, s := range v.MCQ.Subsheets {
				selected[s] = true
			}
		}
		var lines []string
		for i, opt := range content.SubsheetOptions {
			box := "[ ]"
			if selected[opt] {
				box = "[x]"
			}
			line := box + " " + opt
			if focused && i == m.cursor {
				line = m.styles.Focused.Render(line)
			}
			lines = append(lines, line)
		}
		return label + "\n    " + strings.Join(lines, "\n    ")
	case fieldConverted:
		box := "[ ]"
		if m.converted {
			box = "[x]"
		}
		return label + box
	case fieldArchive:
		line := label + m.archivePath.View()
		if m.inspecting != "" {
			line += m.styles.Status.Render("  inspecting...")
		}
		return line
	}
	return label + m.input(f).View()
}

func (m Model) preview(p payload.Payload) string {
	b, err := payload.Marshal(p)
	if err != nil {
		return m.styles.Error.Render(err.Error())
	}
	if m.renderer != nil {
		if out, err := m.renderer.Render("```json\n" + string(b) + "\n```"); err == nil {
			return out
		}
	}
	return m.styles.Preview.Render(string(b))
}

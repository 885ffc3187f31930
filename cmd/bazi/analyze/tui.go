package analyzecmder

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/bazi/pkg/cliui"
	"github.com/papercomputeco/bazi/pkg/llm"
	"github.com/papercomputeco/bazi/pkg/reading"
)

var (
	tuiQuestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("111")).Bold(true)
	tuiErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	tuiStatusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type analyzeKeyMap struct {
	Submit   key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func (k analyzeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.PageUp, k.PageDown, k.Quit}
}

func (k analyzeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func defaultKeyMap() analyzeKeyMap {
	return analyzeKeyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

// turnView is one question and its reply as shown on screen.
type turnView struct {
	question string
	thinking string
	content  string

	// rendered caches the markdown rendering of a finished turn.
	rendered string
}

type turnStartedMsg struct {
	turn *turn
	err  error
}

type updateMsg struct {
	update reading.Update
	ok     bool
}

type turnRecordedMsg struct {
	err error
}

type analyzeModel struct {
	ctx        context.Context
	conv       *conversation
	header     string
	noFollowup bool

	turns   []turnView
	current *turnView
	active  *turn
	busy    bool
	err     error

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	keys     analyzeKeyMap
	help     help.Model
	width    int
	height   int
}

func runTUI(ctx context.Context, conv *conversation, view cliui.ChartView, noFollowup bool) error {
	// The alt screen takes over the terminal, so pick the profile from the
	// environment instead of trusting stdout detection.
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	model := newAnalyzeModel(ctx, conv, cliui.RenderChart(view), noFollowup)

	program := bubbletea.NewProgram(model,
		bubbletea.WithContext(ctx),
		bubbletea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

func newAnalyzeModel(ctx context.Context, conv *conversation, header string, noFollowup bool) analyzeModel {
	input := textinput.New()
	input.Placeholder = "追问，例如：今年事业如何？"
	input.Prompt = userPrompt
	input.CharLimit = 500
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	return analyzeModel{
		ctx:        ctx,
		conv:       conv,
		header:     header,
		noFollowup: noFollowup,
		turns:      turnsFromHistory(conv.history),
		viewport:   viewport.New(80, 20),
		input:      input,
		spinner:    spin,
		keys:       defaultKeyMap(),
		help:       help.New(),
	}
}

// turnsFromHistory pairs saved user and assistant messages into turns.
func turnsFromHistory(history []llm.Message) []turnView {
	var turns []turnView
	for i := 0; i < len(history); i++ {
		if history[i].Role != llm.RoleUser {
			continue
		}
		t := turnView{question: history[i].Content}
		if i+1 < len(history) && history[i+1].Role == llm.RoleAssistant {
			t.thinking = history[i+1].Thinking
			t.content = history[i+1].Content
			i++
		}
		turns = append(turns, t)
	}
	return turns
}

func (m analyzeModel) Init() bubbletea.Cmd {
	cmds := []bubbletea.Cmd{m.spinner.Tick, textinput.Blink}
	if len(m.conv.history) == 0 {
		cmds = append(cmds, func() bubbletea.Msg { return startInitialMsg{} })
	}
	return bubbletea.Batch(cmds...)
}

// startInitialMsg asks for the initial reading once the program runs.
type startInitialMsg struct{}

func (m analyzeModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m = m.resize()
		return m, nil
	case startInitialMsg:
		return m.submit(reading.InitialQuestion)
	case turnStartedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.busy = false
			m.current = nil
			m = m.refresh()
			return m, nil
		}
		m.active = msg.turn
		return m, waitForUpdate(msg.turn.updates)
	case updateMsg:
		return m.handleUpdate(msg)
	case turnRecordedMsg:
		m.err = msg.err
		if m.current != nil {
			m.turns = append(m.turns, m.finish(*m.current))
		}
		m.current = nil
		m.active = nil
		m.busy = false
		m = m.refresh()
		return m, nil
	case spinner.TickMsg:
		var cmd bubbletea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m analyzeModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit
	case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
		var cmd bubbletea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if m.busy || m.noFollowup {
			return m, nil
		}
		question := strings.TrimSpace(m.input.Value())
		if question == "" {
			return m, nil
		}
		m.input.Reset()
		if question == "/exit" {
			return m, bubbletea.Quit
		}
		return m.submit(question)
	}

	if m.noFollowup {
		return m, nil
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m analyzeModel) submit(question string) (bubbletea.Model, bubbletea.Cmd) {
	m.busy = true
	m.err = nil
	m.current = &turnView{question: question}
	m = m.refresh()
	return m, startTurn(m.ctx, m.conv, question)
}

func (m analyzeModel) handleUpdate(msg updateMsg) (bubbletea.Model, bubbletea.Cmd) {
	if m.current == nil || m.active == nil {
		return m, nil
	}

	u := msg.update
	switch {
	case !msg.ok:
		// Closed without a terminal update, the context was cancelled.
		m.busy = false
		m.current = nil
		m.active = nil
	case u.Err != nil:
		m.err = u.Err
		m.busy = false
		m.current = nil
		m.active = nil
	case u.Done:
		m = m.refresh()
		return m, recordTurn(m.conv, m.active, m.current.thinking, m.current.content)
	default:
		if u.Thinking != "" {
			m.current.thinking = u.Thinking
		}
		m.current.content += u.Content
		m = m.refresh()
		return m, waitForUpdate(m.active.updates)
	}

	m = m.refresh()
	return m, nil
}

func (m analyzeModel) View() string {
	var footer string
	switch {
	case m.busy:
		footer = m.spinner.View() + " " + tuiStatusStyle.Render("推演中…")
	case m.noFollowup:
		footer = tuiStatusStyle.Render("esc to quit")
	default:
		footer = m.input.View()
	}
	if m.err != nil {
		footer = tuiErrorStyle.Render(cliui.FailMark+" "+m.err.Error()) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.header,
		m.viewport.View(),
		footer,
		m.help.View(m.keys),
	)
}

// resize fits the viewport between the chart header and the footer.
func (m analyzeModel) resize() analyzeModel {
	if m.width == 0 {
		return m
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-lipgloss.Height(m.header)-3)
	m.input.Width = max(10, m.width-lipgloss.Width(userPrompt)-1)
	m.help.Width = m.width

	// Cached renderings were wrapped for the old width.
	for i := range m.turns {
		m.turns[i].rendered = ""
	}
	return m.refresh()
}

// refresh redraws the transcript and keeps the newest text in view.
func (m analyzeModel) refresh() analyzeModel {
	for i := range m.turns {
		if m.turns[i].rendered == "" {
			m.turns[i] = m.finish(m.turns[i])
		}
	}

	m.viewport.SetContent(renderTranscript(m.turns, m.current, m.wrapWidth()))
	m.viewport.GotoBottom()
	return m
}

// finish renders the markdown of a completed turn.
func (m analyzeModel) finish(t turnView) turnView {
	rendered, err := cliui.RenderMarkdownWidth(t.content, m.wrapWidth())
	if err != nil {
		rendered = t.content
	}
	t.rendered = strings.TrimRight(rendered, "\n")
	return t
}

func (m analyzeModel) wrapWidth() int {
	if m.viewport.Width <= 4 {
		return 76
	}
	return m.viewport.Width - 4
}

func renderTranscript(turns []turnView, current *turnView, width int) string {
	var b strings.Builder
	writeTurn := func(t turnView, body string) {
		b.WriteString(tuiQuestionStyle.Render("问 " + t.question))
		b.WriteString("\n")
		if t.thinking != "" {
			b.WriteString(thinkingStyle.Width(width).Render(t.thinking))
			b.WriteString("\n")
		}
		if body != "" {
			b.WriteString(body)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, t := range turns {
		writeTurn(t, t.rendered)
	}
	if current != nil {
		// Streamed text is unstyled, so a plain column wrap is enough.
		writeTurn(*current, ansi.Wrap(current.content, width, ""))
	}

	return b.String()
}

func startTurn(ctx context.Context, conv *conversation, question string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		t, err := conv.ask(ctx, question)
		return turnStartedMsg{turn: t, err: err}
	}
}

func waitForUpdate(updates <-chan reading.Update) bubbletea.Cmd {
	return func() bubbletea.Msg {
		u, ok := <-updates
		return updateMsg{update: u, ok: ok}
	}
}

func recordTurn(conv *conversation, t *turn, thought, content string) bubbletea.Cmd {
	return func() bubbletea.Msg {
		return turnRecordedMsg{err: conv.record(t, thought, content)}
	}
}

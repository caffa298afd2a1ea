package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// exchange is one question and its (possibly partial) answer.
type exchange struct {
	question string
	answer   string
	stopped  bool
}

// App is a chat session following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports     *Ports
	ctx       context.Context
	sessionID string

	styles *styles.Styles
	keymap *keymap.KeyMap
	input  *input.QuestionInput
	status *status.Bar

	// transcript shows finished exchanges followed by the one in flight.
	transcript viewport.Model
	exchanges  []exchange
	title      string

	// stream is the answer being read; nil while idle.
	stream   driving.AnswerStream
	question string
	partial  strings.Builder

	err error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat UI for an existing session.
func NewApp(ports *Ports, sessionID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("creating app: %w", ErrMissingSession)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	return &App{
		ports:      ports,
		ctx:        context.Background(),
		sessionID:  sessionID,
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		status:     status.NewBar(s, km),
		transcript: viewport.New(80, 20),
		title:      "Chat " + sessionID,
	}, nil
}

// WithContext sets the context used for service calls.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.Init(), a.loadHistory())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.HistoryLoaded:
		if msg.Err != nil {
			a.fail(msg.Err)
			return a, nil
		}
		a.exchanges = a.exchanges[:0]
		for _, turn := range msg.Session.Turns {
			a.exchanges = append(a.exchanges, exchange{question: turn.Query, answer: turn.Answer})
		}
		a.status.SetTurns(len(a.exchanges))
		a.refresh()
		return a, a.loadDocument(msg.Session.DocumentID)

	case messages.DocumentLoaded:
		a.title = fmt.Sprintf("Chat %s · %s", a.sessionID, msg.Document.FileName)
		return a, nil

	case messages.StreamOpened:
		if msg.Err != nil {
			a.question = ""
			a.fail(msg.Err)
			a.refresh()
			return a, nil
		}
		a.stream = msg.Stream
		a.status.SetState(status.StateStreaming)
		return a, nextToken(msg.Stream)

	case messages.TokenReceived:
		if msg.Stream != a.stream {
			return a, nil
		}
		a.partial.WriteString(msg.Token)
		a.refresh()
		return a, nextToken(msg.Stream)

	case messages.AnswerCompleted:
		if msg.Stream != a.stream {
			return a, nil
		}
		a.finish(exchange{question: a.question, answer: msg.Answer})
		if msg.Err != nil {
			a.fail(msg.Err)
		}
		return a, nil

	case messages.AnswerCancelled:
		if msg.Stream != a.stream {
			return a, nil
		}
		a.finish(exchange{question: a.question, answer: a.partial.String(), stopped: true})
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.closeStream()
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Cancel):
		if a.stream != nil {
			a.closeStream()
			a.finish(exchange{question: a.question, answer: a.partial.String(), stopped: true})
		}
		return a, nil

	case key.Matches(msg, a.keymap.ScrollUp), key.Matches(msg, a.keymap.ScrollDown):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd

	case key.Matches(msg, a.keymap.Send):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.Busy() {
			return a, nil
		}
		a.input.Reset()
		a.question = question
		a.partial.Reset()
		a.status.SetState(status.StateThinking)
		a.refresh()
		return a, a.ask(question)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render(a.title),
		a.transcript.View(),
		a.input.View(),
		a.status.View(),
	)
}

// SetDimensions sizes the transcript to fill the space above the input.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// Title line, three-line input box and status bar.
	transcriptHeight := height - 5
	if transcriptHeight < 3 {
		transcriptHeight = 3
	}
	a.transcript.Width = width
	a.transcript.Height = transcriptHeight
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.refresh()
}

// Busy reports whether a question is being answered.
func (a *App) Busy() bool {
	return a.question != ""
}

// Exchanges returns the number of exchanges shown.
func (a *App) Exchanges() int {
	return len(a.exchanges)
}

// Err returns the last error.
func (a *App) Err() error {
	return a.err
}

// Transcript renders the conversation as plain styled text.
func (a *App) Transcript() string {
	var b strings.Builder
	for _, ex := range a.exchanges {
		a.writeExchange(&b, ex)
	}
	if a.question != "" {
		a.writeExchange(&b, exchange{question: a.question, answer: a.partial.String()})
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) writeExchange(b *strings.Builder, ex exchange) {
	b.WriteString(a.styles.Question.Render("You: "))
	b.WriteString(ex.question)
	b.WriteString("\n")
	b.WriteString(a.styles.Answer.Render("Assistant: "))
	b.WriteString(ex.answer)
	if ex.stopped {
		b.WriteString(a.styles.Muted.Render(" [stopped]"))
	}
	b.WriteString("\n\n")
}

func (a *App) refresh() {
	a.transcript.SetContent(a.Transcript())
	a.transcript.GotoBottom()
}

func (a *App) finish(ex exchange) {
	a.exchanges = append(a.exchanges, ex)
	a.stream = nil
	a.question = ""
	a.partial.Reset()
	a.err = nil
	a.status.SetState(status.StateReady)
	if !ex.stopped {
		a.status.SetTurns(a.countRecorded())
	}
	a.refresh()
}

// countRecorded counts exchanges that were stored as turns.
func (a *App) countRecorded() int {
	n := 0
	for _, ex := range a.exchanges {
		if !ex.stopped {
			n++
		}
	}
	return n
}

func (a *App) fail(err error) {
	a.err = err
	a.status.SetError(err.Error())
}

func (a *App) closeStream() {
	if a.stream != nil {
		_ = a.stream.Close()
	}
}

func (a *App) loadHistory() tea.Cmd {
	ctx, chat, id := a.ctx, a.ports.Chat, a.sessionID
	return func() tea.Msg {
		session, err := chat.History(ctx, id)
		return messages.HistoryLoaded{Session: session, Err: err}
	}
}

func (a *App) loadDocument(id string) tea.Cmd {
	if a.ports.Documents == nil || id == "" {
		return nil
	}
	ctx, docs := a.ctx, a.ports.Documents
	return func() tea.Msg {
		doc, err := docs.Get(ctx, id)
		if err != nil {
			return nil
		}
		return messages.DocumentLoaded{Document: doc}
	}
}

func (a *App) ask(question string) tea.Cmd {
	ctx, chat, id := a.ctx, a.ports.Chat, a.sessionID
	return func() tea.Msg {
		stream, err := chat.Message(ctx, id, question)
		return messages.StreamOpened{Stream: stream, Err: err}
	}
}

// nextToken reads one step of stream.
func nextToken(stream driving.AnswerStream) tea.Cmd {
	return func() tea.Msg {
		if stream.Next() {
			return messages.TokenReceived{Stream: stream, Token: stream.Token()}
		}
		if answer, ok := stream.Answer(); ok {
			return messages.AnswerCompleted{Stream: stream, Answer: answer, Err: stream.Err()}
		}
		return messages.AnswerCancelled{Stream: stream}
	}
}

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/ironskeleton/internal/models"
	"github.com/tatianab/ironskeleton/internal/orchestrator"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateLoading
	stateGameOver
	stateError
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	eventStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFCC")).
			Italic(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAFF"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	hudStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

// Notifications collects stat-change callbacks fired during a turn so
// the HUD can display them afterwards. The orchestrator invokes the
// hook from the turn goroutine, hence the lock.
type Notifications struct {
	mu      sync.Mutex
	changes []string
}

// Hook returns the orchestrator notification function.
func (n *Notifications) Hook() orchestrator.NotifyFunc {
	return func(stat string, delta int) {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.changes = append(n.changes, fmt.Sprintf("%+d %s", delta, stat))
	}
}

// Drain returns and clears the collected changes.
func (n *Notifications) Drain() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.changes
	n.changes = nil
	return out
}

type model struct {
	state     sessionState
	orch      *orchestrator.Orchestrator
	notifs    *Notifications
	title     string
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	gameLog   string
	hudNotes  []string
	retryMsg  string
	width     int
	height    int
}

// NewModel builds the TUI over a running session. The orchestrator
// must have been created with notifs.Hook() as its notify function.
func NewModel(orch *orchestrator.Orchestrator, notifs *Notifications, title, intro string) model {
	ti := textinput.New()
	ti.Placeholder = "Choose an option number, or type your own action..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 60

	scene := orch.GetCurrentScene()
	log := titleStyle.Render(title) + "\n\n" + gameStyle.Render(intro) + "\n\n" +
		gameStyle.Render(scene.Text) + "\n\n" + renderOptions(scene)

	return model{
		state:     statePlaying,
		orch:      orch,
		notifs:    notifs,
		title:     title,
		textInput: ti,
		gameLog:   log,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type turnProcessedMsg struct {
	input  string
	text   string
	events []string
	err    error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			if m.state == stateGameOver {
				return m, tea.Quit
			}
			if m.state != statePlaying {
				return m, nil
			}
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}
			m.textInput.Reset()

			switch input {
			case "/quit":
				return m, tea.Quit
			case "/restart":
				m.orch.ResetGame()
				scene := m.orch.GetCurrentScene()
				m.gameLog = titleStyle.Render(m.title) + "\n\n" +
					gameStyle.Render(scene.Text) + "\n\n" + renderOptions(scene)
				m.hudNotes = nil
				m.retryMsg = ""
				m.refreshViewport()
				return m, nil
			}

			m.retryMsg = ""
			m.state = stateLoading
			logWidth := int(float64(m.width) * 0.75)
			m.gameLog += "\n\n" + userStyle.Width(logWidth).Render("> "+input) + "\n\n"
			m.refreshViewport()
			return m, m.processTurn(input)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(int(float64(msg.Width)*0.75), msg.Height-6)
		} else {
			m.viewport.Width = int(float64(msg.Width) * 0.75)
			m.viewport.Height = msg.Height - 6
		}
		m.refreshViewport()

	case turnProcessedMsg:
		if msg.err != nil {
			if errors.Is(msg.err, orchestrator.ErrInvalidOption) {
				m.state = statePlaying
				m.retryMsg = "That choice isn't available here. Pick a listed number or describe what you do."
				return m, nil
			}
			m.err = msg.err
			m.state = stateError
			return m, nil
		}

		m.hudNotes = m.notifs.Drain()

		logWidth := int(float64(m.width) * 0.75)
		m.gameLog += gameStyle.Width(logWidth).Render(msg.text)
		for _, ev := range msg.events {
			m.gameLog += "\n" + eventStyle.Width(logWidth).Render(ev)
		}

		if reason, over := m.orch.CheckGameOver(); over {
			m.gameLog += "\n\n" + titleStyle.Render(reason)
			m.state = stateGameOver
		} else {
			m.gameLog += "\n\n" + renderOptions(m.orch.GetCurrentScene())
			m.state = statePlaying
		}
		m.refreshViewport()
		return m, nil
	}

	if m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	switch m.state {
	case stateLoading:
		return "\n" + m.viewport.View() + "\n\n  The story continues...\n"

	case stateError:
		return fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.\n", m.err)

	case stateGameOver:
		main := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderHud())
		return "\n" + lipgloss.JoinVertical(lipgloss.Left,
			main,
			"\n"+helpStyle.Render("The story has ended. Press Enter to quit."),
		) + "\n"

	default:
		main := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderHud())
		retry := ""
		if m.retryMsg != "" {
			retry = "\n" + helpStyle.Render(m.retryMsg)
		}
		return "\n" + lipgloss.JoinVertical(lipgloss.Left,
			main,
			retry,
			"\n"+m.textInput.View(),
			"\n"+helpStyle.Render("Commands: /restart, /quit. Enter an option number or type a custom action."),
		) + "\n"
	}
}

func (m model) renderHud() string {
	hud := m.orch.Hud()

	content := titleStyle.Render("STATUS") + "\n" +
		fmt.Sprintf("HP: %d\nMana: %d\nBullets: %d\nCredits: %d\n", hud.HP, hud.Mana, hud.Bullets, hud.Credits)

	content += "\n" + titleStyle.Render("TURN") + "\n" +
		fmt.Sprintf("%d / %d\n", m.orch.TurnCount(), m.orch.MaxTurns())

	if len(m.hudNotes) > 0 {
		content += "\n" + titleStyle.Render("CHANGES") + "\n"
		for _, note := range m.hudNotes {
			content += eventStyle.Render(note) + "\n"
		}
	}

	hudWidth := int(float64(m.width) * 0.23)
	return hudStyle.Width(hudWidth).Height(m.viewport.Height).Render(content)
}

func (m *model) refreshViewport() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) processTurn(input string) tea.Cmd {
	return func() tea.Msg {
		text, events, err := m.orch.RunTurn(context.Background(), input)
		return turnProcessedMsg{input: input, text: text, events: events, err: err}
	}
}

func renderOptions(scene *models.Scene) string {
	if len(scene.Options) == 0 {
		return ""
	}
	var b strings.Builder
	for _, opt := range scene.Options {
		b.WriteString(optionStyle.Render(fmt.Sprintf("  %d. %s", opt.ID, opt.Text)))
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the TUI over a session.
func Run(orch *orchestrator.Orchestrator, notifs *Notifications, title, intro string) error {
	p := tea.NewProgram(NewModel(orch, notifs, title, intro), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package viewtui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tOgg1/runviewer/internal/models"
	"github.com/tOgg1/runviewer/internal/viewer"
	"github.com/tOgg1/runviewer/internal/viewtui/styles"
)

const defaultRefreshInterval = 250 * time.Millisecond

type Theme string

const (
	ThemeDefault      Theme = "default"
	ThemeHighContrast Theme = "high-contrast"
)

type Config struct {
	Controller *viewer.Controller
	// Updates signals cache progress; nil disables update-driven redraws.
	Updates         <-chan struct{}
	Task            models.TaskType
	Theme           string
	RefreshInterval time.Duration
	// Err is shown in place of the panes, e.g. when the manifest failed.
	Err error
}

type Model struct {
	ctx     context.Context
	ctrl    *viewer.Controller
	updates <-chan struct{}
	task    models.TaskType
	theme   Theme
	refresh time.Duration
	loadErr error

	width    int
	height   int
	showHelp bool

	playGen int
	status  string
}

type playbackTickMsg struct {
	gen int
}

type refreshTickMsg struct{}

type loaderUpdateMsg struct{}

type runActivatedMsg struct {
	run int
	err error
}

func NewModel(ctx context.Context, cfg Config) (*Model, error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Model{
		ctx:     ctx,
		ctrl:    normalized.Controller,
		updates: normalized.Updates,
		task:    normalized.Task,
		theme:   Theme(normalized.Theme),
		refresh: normalized.RefreshInterval,
		loadErr: normalized.Err,
	}, nil
}

// Run blocks until the user quits or ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	model, err := NewModel(ctx, cfg)
	if err != nil {
		return err
	}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = program.Run()
	if err != nil && ctx.Err() != nil {
		// Interrupted by a signal; not a viewer failure.
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), refreshTick(m.refresh))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		return m, nil
	case loaderUpdateMsg:
		return m, waitForUpdate(m.updates)
	case refreshTickMsg:
		return m, refreshTick(m.refresh)
	case playbackTickMsg:
		return m, m.handlePlaybackTick(typed)
	case runActivatedMsg:
		if typed.err != nil {
			m.status = fmt.Sprintf("run %d: %v", typed.run+1, typed.err)
		} else {
			m.status = ""
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(typed)
	}
	return m, nil
}

func (m *Model) View() string {
	theme := styles.Lookup(string(m.theme))
	frame := m.ctrl.Current()

	header := m.renderHeader(theme, frame)
	footer := m.renderFooter(theme)
	slider := m.renderSlider(theme, frame)
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer) - lipgloss.Height(slider)
	if bodyHeight < 0 {
		bodyHeight = 0
	}

	var body string
	switch {
	case m.showHelp:
		body = renderHelp(m.width, bodyHeight, theme)
	case m.loadErr != nil:
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Chrome.Error)).Render(m.loadErr.Error()))
	case frame.RunID == "":
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, theme.Muted().Render("No runs"))
	default:
		body = m.renderPanes(theme, frame, bodyHeight)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, slider, footer)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return nil
	case "esc":
		m.showHelp = false
		return nil
	case " ":
		return m.apply(viewer.TogglePlayback)
	case "left", "h":
		return m.apply(step(-1))
	case "right", "l":
		return m.apply(step(1))
	case "home", "g":
		return m.apply(viewer.First)
	case "end", "G":
		return m.apply(viewer.Last)
	case "[", "p":
		return m.apply(changeRun(-1))
	case "]", "n":
		return m.apply(changeRun(1))
	case "1", "2", "3", "4", "5", "6":
		idx := int(msg.String()[0] - '1')
		if idx < len(viewer.SpeedPresets) {
			return m.apply(setSpeed(viewer.SpeedPresets[idx]))
		}
	}
	return nil
}

func (m *Model) handlePlaybackTick(msg playbackTickMsg) tea.Cmd {
	if msg.gen != m.playGen {
		return nil
	}
	cmd := m.apply(viewer.Tick)
	state := m.ctrl.State()
	if !state.Playing {
		return cmd
	}
	return tea.Batch(cmd, playbackTick(m.playGen, state.FPS))
}

// apply runs a transition and turns its effects into commands.
func (m *Model) apply(t viewer.Transition) tea.Cmd {
	effects := m.ctrl.Apply(t)
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, effect := range effects {
		switch effect.Kind {
		case viewer.EffectActivateRun:
			cmds = append(cmds, m.activateRunCmd(effect))
		case viewer.EffectStartPlayback:
			m.playGen++
			cmds = append(cmds, playbackTick(m.playGen, m.ctrl.State().FPS))
		case viewer.EffectStopPlayback:
			m.playGen++
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) activateRunCmd(effect viewer.Effect) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		err := ctrl.Execute(ctx, []viewer.Effect{effect})
		return runActivatedMsg{run: effect.Run, err: err}
	}
}

func step(delta int) viewer.Transition {
	return func(s viewer.State) (viewer.State, []viewer.Effect) { return viewer.Step(s, delta) }
}

func changeRun(delta int) viewer.Transition {
	return func(s viewer.State) (viewer.State, []viewer.Effect) { return viewer.ChangeRun(s, delta) }
}

func setSpeed(fps int) viewer.Transition {
	return func(s viewer.State) (viewer.State, []viewer.Effect) { return viewer.SetSpeed(s, fps) }
}

func playbackTick(gen, fps int) tea.Cmd {
	if fps <= 0 {
		fps = viewer.DefaultFPS
	}
	return tea.Tick(time.Second/time.Duration(fps), func(time.Time) tea.Msg { return playbackTickMsg{gen: gen} })
}

func refreshTick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return loaderUpdateMsg{}
	}
}

func (c Config) normalize() (Config, error) {
	if c.Controller == nil {
		return Config{}, errors.New("controller required")
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = defaultRefreshInterval
	}
	c.Theme = strings.TrimSpace(c.Theme)
	if c.Theme == "" {
		c.Theme = string(ThemeDefault)
	}
	switch Theme(c.Theme) {
	case ThemeDefault, ThemeHighContrast:
	default:
		return Config{}, fmt.Errorf("invalid theme %q", c.Theme)
	}
	return c, nil
}

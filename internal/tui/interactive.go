package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/swaysim/internal/compute"
	"github.com/san-kum/swaysim/internal/config"
	"github.com/san-kum/swaysim/internal/metrics"
	"github.com/san-kum/swaysim/internal/sim"
	"github.com/san-kum/swaysim/internal/state"
	"github.com/san-kum/swaysim/internal/sway"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

type screen int

const (
	screenMenu screen = iota
	screenSim
)

type model struct {
	screen  screen
	cursor  int
	presets []string

	cfg       *config.Config
	simulator *sim.Simulator
	store     *state.Store
	motion    *metrics.Motion
	parents   []uint32

	paused   bool
	windOn   bool
	simErr   error
	lastTime time.Time
	fps      float64

	width  int
	height int
}

func NewInteractiveApp() *model {
	presets := config.ListPresets()
	sort.Strings(presets)
	return &model{
		screen:  screenMenu,
		presets: presets,
		width:   80,
		height:  24,
	}
}

func (m model) Init() tea.Cmd { return nil }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if m.screen != screenSim || m.simulator == nil {
			return m, nil
		}
		if !m.paused && m.simErr == nil {
			now := time.Now()
			if !m.lastTime.IsZero() {
				if dt := now.Sub(m.lastTime).Seconds(); dt > 0 {
					m.fps = 1.0 / dt
				}
			}
			m.lastTime = now
			m.simErr = m.simulator.Step(context.Background())
		}
		return m, tick()
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	if m.screen == screenMenu {
		return m.menuKey(msg)
	}
	return m.simKey(msg)
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		if err := m.startScene(m.presets[m.cursor]); err != nil {
			m.simErr = err
		}
		m.screen = screenSim
		return m, tick()
	}
	return m, nil
}

func (m *model) startScene(name string) error {
	cfg := config.GetPreset(name)
	if cfg == nil {
		return fmt.Errorf("tui: unknown preset %q", name)
	}

	r := cfg.Rig()
	st, err := r.NewStore(len(cfg.Spheres), len(cfg.Capsules), len(cfg.Planes))
	if err != nil {
		return err
	}
	if err := st.SetColliders(cfg.Colliders()); err != nil {
		return err
	}

	params, _, _, err := r.Build()
	if err != nil {
		return err
	}
	parents := make([]uint32, len(params))
	for i, p := range params {
		parents[i] = p.ParentIndex
	}

	s, err := sim.New(st, compute.NewCPUBackend(), sim.Options{
		FrameRate:      cfg.FrameRate,
		Substeps:       cfg.Substeps,
		Gravity:        sway.Vec3{cfg.Gravity[0], cfg.Gravity[1], cfg.Gravity[2]},
		Wind:           windFromConfig(cfg),
		SettlingFrames: uint32(cfg.SettlingFrames),
	})
	if err != nil {
		return err
	}

	motion := metrics.NewMotion()
	s.AddMetric(motion)

	m.cfg = cfg
	m.simulator = s
	m.store = st
	m.motion = motion
	m.parents = parents
	m.windOn = cfg.Wind.Amplitude > 0
	m.paused = false
	m.simErr = nil
	m.lastTime = time.Time{}
	return nil
}

func windFromConfig(cfg *config.Config) sim.Wind {
	return sim.Wind{
		Amplitude: cfg.Wind.Amplitude,
		Frequency: cfg.Wind.Frequency,
		Direction: sway.Vec3{cfg.Wind.Direction[0], cfg.Wind.Direction[1], cfg.Wind.Direction[2]},
	}
}

func (m model) simKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q", "escape":
		m.screen = screenMenu
		m.simulator = nil
		return m, nil
	case " ":
		m.paused = !m.paused
	case "r":
		if m.simulator != nil {
			m.simErr = m.simulator.Reset(uint32(m.cfg.SettlingFrames))
		}
	case "w":
		if m.simulator != nil {
			m.windOn = !m.windOn
			w := windFromConfig(m.cfg)
			if !m.windOn {
				w.Amplitude = 0
			}
			m.simulator.SetWind(w)
		}
	}
	return m, nil
}

func (m model) View() string {
	if m.screen == screenMenu {
		return m.menuView()
	}
	return m.simView()
}

func (m model) menuView() string {
	var b strings.Builder
	b.WriteString("\n  " + cyan.Render("swaysim") + dim.Render("  secondary motion sandbox") + "\n\n")
	for i, name := range m.presets {
		cursor := "  "
		style := white
		if i == m.cursor {
			cursor = cyan.Render("> ")
			style = cyan
		}
		cfg := config.GetPreset(name)
		b.WriteString(fmt.Sprintf("  %s%-12s %s\n", cursor, style.Render(name),
			dim.Render(fmt.Sprintf("%d chains, %d bones", len(cfg.Chains), cfg.Rig().Bones()))))
	}
	b.WriteString("\n  " + dim.Render("up/down select · enter run · q quit") + "\n")
	return b.String()
}

func (m model) simView() string {
	if m.simErr != nil {
		return "\n  " + yellow.Render("error: "+m.simErr.Error()) + "\n\n  " + dim.Render("q back") + "\n"
	}
	if m.simulator == nil {
		return "\n  " + dim.Render("no scene") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n  " + cyan.Render(m.presets[m.cursor]) +
		dim.Render(fmt.Sprintf("  t=%.1fs  fps=%.0f", m.simulator.Time(), m.fps)) + "\n\n")

	b.WriteString(m.chainCanvas())

	status := make([]string, 0, 4)
	if m.paused {
		status = append(status, yellow.Render("paused"))
	}
	if m.simulator.Settling() {
		status = append(status, yellow.Render(fmt.Sprintf("settling %d", m.simulator.SettlingFrames())))
	} else {
		status = append(status, green.Render("steady"))
	}
	if m.windOn {
		status = append(status, white.Render("wind on"))
	}
	status = append(status, dim.Render(fmt.Sprintf("motion %.4f", m.motion.Value())))

	b.WriteString("\n  " + strings.Join(status, dim.Render(" · ")) + "\n")
	b.WriteString("  " + dim.Render("space pause · w wind · r reset · q back") + "\n")
	return b.String()
}

func (m model) chainCanvas() string {
	canvasW := 64
	canvasH := m.height - 9
	if canvasH < 8 {
		canvasH = 8
	}

	cells := make([][]rune, canvasH)
	for y := range cells {
		cells[y] = make([]rune, canvasW)
		for x := range cells[y] {
			cells[y][x] = ' '
		}
	}

	positions := m.store.Positions()
	scale := float32(12)
	centerY := float32(1.0)
	plot := func(p sway.Vec3) (int, int) {
		return canvasW/2 + int(p.X()*scale), canvasH/2 - int((p.Y()-centerY)*scale/2)
	}
	set := func(x, y int, c rune) {
		if x >= 0 && x < canvasW && y >= 0 && y < canvasH {
			cells[y][x] = c
		}
	}

	for i, p := range positions {
		if i >= len(m.parents) {
			break
		}
		x, y := plot(p)
		if m.parents[i] == sway.RootParent {
			set(x, y, '+')
			continue
		}
		set(x, y, 'o')
	}

	var b strings.Builder
	border := dim.Render("  " + strings.Repeat("-", canvasW))
	b.WriteString(border + "\n")
	for _, row := range cells {
		b.WriteString("  " + string(row) + "\n")
	}
	b.WriteString(border + "\n")
	return b.String()
}

// Run starts the interactive app and blocks until exit.
func Run() error {
	p := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

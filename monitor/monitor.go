// Package monitor renders a live terminal view of a playing scene and lets the
// user walk the listener around with the keyboard.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/engine"
	"github.com/lixenwraith/gltf-audio/spatial"
	"github.com/lixenwraith/gltf-audio/vmath"
)

const (
	defaultStep = 0.5
	minStep     = 0.125
	maxStep     = 16
)

// moveKeys maps navigation keys to unit listener moves, up walks toward -Z
var moveKeys = map[tcell.Key]vmath.Vec3F{
	tcell.KeyLeft:  {X: -1},
	tcell.KeyRight: {X: 1},
	tcell.KeyUp:    {Z: -1},
	tcell.KeyDown:  {Z: 1},
	tcell.KeyPgUp:  {Y: 1},
	tcell.KeyPgDn:  {Y: -1},
}

var (
	styleTitle  = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleHeader = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleRow    = tcell.StyleDefault
	styleActive = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleMuted  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleError  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

// Monitor owns the screen and is the only caller of Tick while it runs
type Monitor struct {
	screen   tcell.Screen
	ctx      *engine.Context
	interval time.Duration
	title    string

	step    float64
	origin  audio.Listener
	lastErr error
}

// New wraps an initialized screen, interval is the tick cadence
func New(screen tcell.Screen, c *engine.Context, interval time.Duration, title string) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	return &Monitor{
		screen:   screen,
		ctx:      c,
		interval: interval,
		title:    title,
		step:     defaultStep,
		origin:   c.Listener(),
	}
}

// Run ticks the engine and redraws until the user quits or ctx is cancelled
// After the engine halts the last frame stays up until the user quits
// The returned error is the engine's halting error, if any
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	quit := make(chan struct{})
	defer close(quit)
	go m.screen.ChannelEvents(events, quit)

	m.draw()
	for {
		select {
		case <-ctx.Done():
			return m.lastErr
		case ev, ok := <-events:
			if !ok {
				return m.lastErr
			}
			if !m.handleEvent(ev) {
				return m.lastErr
			}
			m.draw()
		case <-ticker.C:
			if m.ctx.State() == engine.Halted {
				continue
			}
			if _, err := m.ctx.Tick(); err != nil {
				m.lastErr = err
			}
			m.draw()
		}
	}
}

// handleEvent applies a key or resize, false means quit
func (m *Monitor) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}

		l := m.ctx.Listener()
		if dir, ok := moveKeys[ev.Key()]; ok {
			l.Position = vmath.V3FAdd(l.Position, vmath.V3FScale(dir, m.step))
		}
		if ev.Key() == tcell.KeyRune {
			switch ev.Rune() {
			case 'q':
				return false
			case '+':
				m.step = min(m.step*2, maxStep)
			case '-':
				m.step = max(m.step/2, minStep)
			case 'r':
				l = m.origin
			}
		}
		m.ctx.SetListener(l)

	case *tcell.EventResize:
		m.screen.Sync()
	}
	return true
}

func (m *Monitor) draw() {
	m.screen.Clear()
	w, _ := m.screen.Size()

	y := 0
	m.text(0, y, styleTitle, m.title)
	y += 2

	state := m.ctx.State()
	stateStyle := styleActive
	if state == engine.Halted {
		stateStyle = styleMuted
	}
	m.text(0, y, styleRow, "state:")
	m.text(8, y, stateStyle, state.String())
	m.text(20, y, styleRow, fmt.Sprintf("ticks: %d", m.ctx.Ticks()))
	y++

	l := m.ctx.Listener()
	m.text(0, y, styleRow, fmt.Sprintf("listener: %s  step %.3g", fmtVec(l.Position), m.step))
	y += 2

	m.text(0, y, styleHeader, fmt.Sprintf("%-3s %-16s %-10s %-7s %-22s %8s %8s", "#", "emitter", "kind", "state", "position", "dist", "gain"))
	y++

	emitters := m.ctx.Emitters()
	for i, inst := range m.ctx.Instances() {
		e := &emitters[inst.Emitter]
		name := e.Name
		if name == "" {
			name = fmt.Sprintf("#%d", inst.Emitter)
		}
		kind := e.Kind.String()
		if inst.Scoped() {
			kind = "scene"
		}

		pos, dist, gain := "-", "-", fmt.Sprintf("%8.4f", e.Gain)
		if !inst.Scoped() && e.Kind == spatial.Positional {
			pos = fmtVec(inst.Position)
			dist = fmt.Sprintf("%8.2f", inst.Attenuation.Distance)
			gain = fmt.Sprintf("%8.4f", inst.Attenuation.Gain)
		}

		style := styleMuted
		if inst.State == audio.Playing {
			style = styleActive
		}
		m.text(0, y, style, fmt.Sprintf("%-3d %-16.16s %-10s %-7s %-22s %8s %8s", i, name, kind, inst.State, pos, dist, gain))
		y++
	}

	y++
	if m.lastErr != nil {
		m.text(0, y, styleError, m.lastErr.Error())
		y++
	}
	help := "arrows: move x/z  pgup/pgdn: y  +/-: step  r: reset  q: quit"
	if state == engine.Halted {
		help = "halted, press q to exit"
	}
	if len(help) > w && w > 0 {
		help = help[:w]
	}
	m.text(0, y, styleMuted, help)

	m.screen.Show()
}

func (m *Monitor) text(x, y int, style tcell.Style, s string) {
	for i, r := range []rune(s) {
		m.screen.SetContent(x+i, y, r, nil, style)
	}
}

func fmtVec(v vmath.Vec3F) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

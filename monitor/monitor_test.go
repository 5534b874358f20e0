package monitor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/engine"
	"github.com/lixenwraith/gltf-audio/vmath"
)

const monitorDoc = `{
	"extensions": {"OMI_audio_emitter": {
		"audioSources": [{"uri": "drone.wav"}],
		"audioEmitters": [{"name": "drone", "type": "positional", "source": 0, "playing": true, "loop": true}]
	}},
	"scene": 0,
	"scenes": [{"nodes": [0]}],
	"nodes": [{"translation": [2, 0, 0], "extensions": {"OMI_audio_emitter": {"audioEmitter": 0}}}]
}`

type silence struct{}

func (silence) DecodeFile(string) (audio.PCM, error) {
	return audio.PCM{Data: make([]byte, 800), SampleRate: 8000, Channels: 1}, nil
}

func newTestMonitor(t *testing.T) (*Monitor, tcell.SimulationScreen, *engine.Context) {
	t.Helper()
	c, err := engine.LoadBytes([]byte(monitorDoc), "", engine.Options{
		Backend: audio.NewNullBackend(audio.NewManualClock(time.Unix(0, 0))),
		Decoder: silence{},
	})
	if err != nil {
		t.Fatalf("LoadBytes failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	screen.SetSize(100, 20)
	t.Cleanup(screen.Fini)

	return New(screen, c, time.Millisecond, "courtyard.gltf"), screen, c
}

func row(s tcell.Screen, y, width int) string {
	var b strings.Builder
	for x := 0; x < width; x++ {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return b.String()
}

// TestHandleEventMovesListener verifies arrow keys, step scaling and reset
func TestHandleEventMovesListener(t *testing.T) {
	m, _, c := newTestMonitor(t)

	m.handleEvent(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	m.handleEvent(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	if got := c.Listener().Position; got != (vmath.Vec3F{X: 0.5, Z: -0.5}) {
		t.Errorf("Expected (0.5,0,-0.5), got %v", got)
	}

	m.handleEvent(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone))
	m.handleEvent(tcell.NewEventKey(tcell.KeyPgUp, 0, tcell.ModNone))
	if got := c.Listener().Position.Y; got != 1 {
		t.Errorf("Expected y=1 after doubled step, got %f", got)
	}

	m.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone))
	if got := c.Listener(); got != audio.DefaultListener() {
		t.Errorf("Expected listener reset, got %+v", got)
	}

	if m.handleEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("Expected q to quit")
	}
	if m.handleEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("Expected escape to quit")
	}
}

// TestStepBounds verifies the step stays within its limits
func TestStepBounds(t *testing.T) {
	m, _, _ := newTestMonitor(t)
	for i := 0; i < 20; i++ {
		m.handleEvent(tcell.NewEventKey(tcell.KeyRune, '-', tcell.ModNone))
	}
	if m.step != minStep {
		t.Errorf("Expected step clamped to %v, got %v", minStep, m.step)
	}
	for i := 0; i < 20; i++ {
		m.handleEvent(tcell.NewEventKey(tcell.KeyRune, '+', tcell.ModNone))
	}
	if m.step != maxStep {
		t.Errorf("Expected step clamped to %v, got %v", maxStep, m.step)
	}
}

// TestDrawShowsInstances verifies the title and the instance row after a tick
func TestDrawShowsInstances(t *testing.T) {
	m, screen, c := newTestMonitor(t)

	if _, err := c.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	m.draw()

	if got := row(screen, 0, 100); !strings.HasPrefix(got, "courtyard.gltf") {
		t.Errorf("Expected title row, got %q", got)
	}
	found := false
	for y := 0; y < 20; y++ {
		r := row(screen, y, 100)
		if strings.Contains(r, "drone") && strings.Contains(r, "playing") && strings.Contains(r, "0.5000") {
			found = true
			break
		}
	}
	if !found {
		t.Error("Expected drone row playing at gain 0.5")
	}
}

// TestRunQuits verifies Run ticks and exits on q
func TestRunQuits(t *testing.T) {
	m, screen, c := newTestMonitor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean exit, got %v", err)
		}
	case <-ctx.Done():
		t.Fatal("Run did not return after q")
	}
	if c.Ticks() == 0 {
		t.Error("Expected at least one tick")
	}
}

package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/lixenwraith/gltf-audio/audio"
	"github.com/lixenwraith/gltf-audio/spatial"
)

// State of the update loop
type State int

const (
	Active State = iota
	Halted
)

func (s State) String() string {
	if s == Halted {
		return "halted"
	}
	return "active"
}

// Tick runs one update: push listener, propagate transforms, evaluate and push positional
// gain and position, poll every instance
// The loop halts when nothing is playing or on the first backend error, which is returned
// and stays sticky for later calls
func (c *Context) Tick() (State, error) {
	if c.state == Halted {
		return Halted, c.err
	}

	if err := c.backend.SetListener(c.listener); err != nil {
		return c.fail(fmt.Errorf("%w: set listener: %v", ErrBackend, err))
	}
	p := c.listener.Position
	c.posMetric.Set(fmt.Sprintf("%.2f,%.2f,%.2f", p.X, p.Y, p.Z))

	c.graph.Propagate(c.roots)

	for i := range c.instances {
		inst := &c.instances[i]
		e := &c.emitters[inst.Emitter]
		if inst.Scoped() || e.Kind != spatial.Positional {
			continue
		}
		inst.Position = c.graph.Position(inst.Node)
		inst.Attenuation = spatial.Evaluate(e, inst.Position, c.graph.Forward(inst.Node), c.listener.Position)

		if err := c.backend.SetSourceGain(inst.Source, inst.Attenuation.Gain); err != nil {
			return c.fail(fmt.Errorf("%w: instance %d gain: %v", ErrBackend, i, err))
		}
		if err := c.backend.SetSourcePosition(inst.Source, inst.Position); err != nil {
			return c.fail(fmt.Errorf("%w: instance %d position: %v", ErrBackend, i, err))
		}
		inst.gainMetric.Set(inst.Attenuation.Gain)
	}

	var playing int64
	for i := range c.instances {
		inst := &c.instances[i]
		st, err := c.backend.State(inst.Source)
		if err != nil {
			return c.fail(fmt.Errorf("%w: instance %d state: %v", ErrBackend, i, err))
		}
		inst.State = st
		inst.stateMetric.Set(st.String())
		if st == audio.Playing {
			playing++
		}
	}

	c.ticks++
	c.tickMetric.Store(c.ticks)
	c.activeMetric.Store(playing)

	if playing == 0 {
		c.logger.Info("halting, no instance playing", "ticks", c.ticks)
		c.halt(nil)
	}
	return c.state, nil
}

func (c *Context) fail(err error) (State, error) {
	c.logger.Error("halting on backend error", "ticks", c.ticks, "error", err)
	c.halt(err)
	return Halted, err
}

func (c *Context) halt(err error) {
	c.state = Halted
	c.err = err
	c.stateMetric.Set(Halted.String())
}

// State returns the loop state after the last tick
func (c *Context) State() State {
	return c.state
}

// Err returns the backend error that halted the loop, if any
func (c *Context) Err() error {
	return c.err
}

// Ticks returns the number of completed ticks
func (c *Context) Ticks() int64 {
	return c.ticks
}

// Run ticks until the loop halts, ctx is cancelled, or MaxTicks is reached
// A non-positive interval yields to the scheduler between ticks instead of sleeping
func (c *Context) Run(ctx context.Context, interval time.Duration) error {
	var timer *time.Timer
	if interval > 0 {
		timer = time.NewTimer(interval)
		defer timer.Stop()
	}

	for {
		st, err := c.Tick()
		if err != nil {
			return err
		}
		if st == Halted {
			return nil
		}
		if c.maxTicks > 0 && c.ticks >= int64(c.maxTicks) {
			c.logger.Info("tick limit reached", "ticks", c.ticks)
			return nil
		}

		if timer == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			runtime.Gosched()
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(interval)
		}
	}
}

package usecase

import (
	"sync"

	"TickAttrib/internal/domain/models"
)

// Speed clamp bounds for replay control.
const (
	MinSpeed = 0.1
	MaxSpeed = 10.0
)

// ControlState is the replay control shared between the websocket reader and
// the producer goroutine. All access goes through the mutex; commands are
// clamped, never rejected, so a misbehaving client cannot wedge a stream.
type ControlState struct {
	mu     sync.Mutex
	paused bool
	speed  float64
}

func NewControlState() *ControlState {
	return &ControlState{speed: 1.0}
}

// Apply executes one inbound control message. Unknown actions are ignored.
func (c *ControlState) Apply(msg models.ControlMessage) {
	switch msg.Action {
	case models.ActionPause:
		c.SetPaused(true)
	case models.ActionResume:
		c.SetPaused(false)
	case models.ActionSetSpeed:
		c.SetSpeed(msg.Value)
	}
}

func (c *ControlState) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *ControlState) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

func (c *ControlState) Speed() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speed
}

func (c *ControlState) SetSpeed(speed float64) {
	if speed < MinSpeed {
		speed = MinSpeed
	}
	if speed > MaxSpeed {
		speed = MaxSpeed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed = speed
}

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConnectionState is the state of a WebSocket connection, independent of
// the frame codec itself (Out of scope per the codec spec, carried here as
// the minimal supporting collaborator the codec is exercised through).
type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "Connecting"
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// Connection tracks the OPEN/CLOSING/CLOSED state machine for a single
// WebSocket connection. It owns no socket and reads no bytes itself; the
// codec produces the Frames that drive its transitions.
type Connection struct {
	ID           string
	RemoteAddr   string
	State        ConnectionState
	LastActivity time.Time
	Metadata     map[string]interface{}
}

// NewConnection creates a new connection in the Connecting state, with a
// freshly generated UUID as its ID.
func NewConnection(remoteAddr string) *Connection {
	return &Connection{
		ID:           uuid.NewString(),
		RemoteAddr:   remoteAddr,
		State:        StateConnecting,
		LastActivity: time.Now(),
		Metadata:     make(map[string]interface{}),
	}
}

// CanTransitionTo reports whether newState is a legal next state.
func (c *Connection) CanTransitionTo(newState ConnectionState) bool {
	switch c.State {
	case StateConnecting:
		return newState == StateOpen || newState == StateClosed
	case StateOpen:
		return newState == StateClosing || newState == StateClosed
	case StateClosing:
		return newState == StateClosed
	case StateClosed:
		return false
	default:
		return false
	}
}

// TransitionTo moves the connection to newState, or returns ErrInvalidState
// if the transition is not legal.
func (c *Connection) TransitionTo(newState ConnectionState) error {
	if !c.CanTransitionTo(newState) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidState, c.State, newState)
	}
	c.State = newState
	return nil
}

func (c *Connection) UpdateActivity() { c.LastActivity = time.Now() }

func (c *Connection) IsOpen() bool    { return c.State == StateOpen }
func (c *Connection) IsClosed() bool  { return c.State == StateClosed }
func (c *Connection) IsClosing() bool { return c.State == StateClosing }

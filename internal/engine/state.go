package engine

import "sync/atomic"

// State is a point in the engine's lifecycle. Transitions only ever move
// forward: Idle -> Running -> Draining -> Stopped.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// lifecycle guards the engine's state machine with a single atomic word so
// State() never blocks on the engine's mutex or its workers.
type lifecycle struct {
	state int32
}

func (l *lifecycle) State() State {
	return State(atomic.LoadInt32(&l.state))
}

// transition moves the state forward if, and only if, it currently holds
// from. Returns false when another goroutine already moved past from.
func (l *lifecycle) transition(from, to State) bool {
	return atomic.CompareAndSwapInt32(&l.state, int32(from), int32(to))
}

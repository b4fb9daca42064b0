// Package segment provides audio segments, sequence index generation and the
// per-segment transcription lifecycle.
package segment

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a segment's transcription.
type State int

const (
	// StateCaptured - Segment emitted by the capture loop, not yet sent.
	StateCaptured State = iota
	// StateUploaded - Audio uploaded, reference received.
	StateUploaded
	// StateSubmitted - Transcription job submitted, polling.
	StateSubmitted
	// StateResolved - Text merged into the transcript.
	StateResolved
	// StateFailed - A protocol stage failed. The transcript keeps a gap.
	StateFailed
	// StateDiscarded - Session ended before the result could be applied.
	StateDiscarded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateCaptured:
		return "CAPTURED"
	case StateUploaded:
		return "UPLOADED"
	case StateSubmitted:
		return "SUBMITTED"
	case StateResolved:
		return "RESOLVED"
	case StateFailed:
		return "FAILED"
	case StateDiscarded:
		return "DISCARDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateResolved || s == StateFailed || s == StateDiscarded
}

// Errors for invalid state transitions.
var (
	ErrSegmentTerminal   = errors.New("segment is in a terminal state")
	ErrInvalidTransition = errors.New("invalid segment state transition")
)

// Lifecycle tracks one segment through the transcription protocol.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	CAPTURED → UPLOADED → SUBMITTED → RESOLVED
//	    │          │           │
//	    └──────────┴───────────┴──→ FAILED | DISCARDED
//
// RESOLVED is reachable only from SUBMITTED. FAILED and DISCARDED are
// reachable from any non-terminal state.
type Lifecycle struct {
	mu    sync.RWMutex
	index int
	final bool
	state State
}

// NewLifecycle creates a lifecycle in CAPTURED state.
func NewLifecycle(index int, final bool) *Lifecycle {
	return &Lifecycle{
		index: index,
		final: final,
		state: StateCaptured,
	}
}

// Index returns the segment's sequence index.
func (l *Lifecycle) Index() int {
	return l.index
}

// IsFinal reports whether this is the session's final segment.
func (l *Lifecycle) IsFinal() bool {
	return l.final
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsDone returns true if the segment reached a terminal state.
func (l *Lifecycle) IsDone() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

func (l *Lifecycle) advance(from, to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrSegmentTerminal
	}
	if l.state != from {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, l.state, to)
	}
	l.state = to
	return nil
}

// MarkUploaded records a successful upload.
func (l *Lifecycle) MarkUploaded() error {
	return l.advance(StateCaptured, StateUploaded)
}

// MarkSubmitted records a successful job submission.
func (l *Lifecycle) MarkSubmitted() error {
	return l.advance(StateUploaded, StateSubmitted)
}

// MarkResolved records that the text was merged.
func (l *Lifecycle) MarkResolved() error {
	return l.advance(StateSubmitted, StateResolved)
}

// Fail transitions to FAILED. Returns false if already terminal, so callers
// can report a failure at most once.
func (l *Lifecycle) Fail() bool {
	return l.terminate(StateFailed)
}

// Discard transitions to DISCARDED. Returns false if already terminal.
func (l *Lifecycle) Discard() bool {
	return l.terminate(StateDiscarded)
}

func (l *Lifecycle) terminate(to State) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = to
	return true
}

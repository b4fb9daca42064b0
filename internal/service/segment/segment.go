package segment

import (
	"sync/atomic"
	"time"
)

// AudioSegment is one fixed-duration slice of captured audio. It is
// immutable once emitted by the capture loop.
type AudioSegment struct {
	SequenceIndex int
	Bytes         []byte
	CapturedAt    time.Time
	IsFinal       bool
}

// Empty reports whether the segment carries no audio.
func (s AudioSegment) Empty() bool {
	return len(s.Bytes) == 0
}

// Generator hands out sequence indices starting at 0.
type Generator struct {
	next int64
}

func New() *Generator {
	return &Generator{}
}

// Next returns the next sequence index. Indices are gap-free and strictly
// increasing across concurrent callers.
func (g *Generator) Next() int {
	return int(atomic.AddInt64(&g.next, 1) - 1)
}

// Issued returns how many indices have been handed out.
func (g *Generator) Issued() int {
	return int(atomic.LoadInt64(&g.next))
}

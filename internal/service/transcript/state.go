// Package transcript holds the running transcript of a session, merged from
// segment transcriptions that may resolve in any order.
package transcript

import (
	"sort"
	"strings"
	"sync"
)

// State maps sequence indices to resolved text. All writes are serialized;
// FullText is always in sequence order regardless of merge order.
type State struct {
	mu       sync.RWMutex
	resolved map[int]string
	failed   map[int]bool
	fullText string
}

// New creates an empty transcript.
func New() *State {
	return &State{
		resolved: make(map[int]string),
		failed:   make(map[int]bool),
	}
}

// Merge records the text for a segment and recomputes the full text.
// It reports whether the full text changed. Merging the same index twice
// keeps the first result.
func (s *State) Merge(index int, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resolved[index]; ok {
		return false
	}
	s.resolved[index] = strings.TrimSpace(text)
	delete(s.failed, index)

	prev := s.fullText
	s.fullText = s.build()
	return s.fullText != prev
}

// MarkFailed records a segment whose transcription failed. Its slot stays
// empty in the full text.
func (s *State) MarkFailed(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resolved[index]; !ok {
		s.failed[index] = true
	}
}

func (s *State) build() string {
	parts := make([]string, 0, len(s.resolved))
	for _, idx := range s.sortedIndices() {
		if t := s.resolved[idx]; t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (s *State) sortedIndices() []int {
	idx := make([]int, 0, len(s.resolved))
	for i := range s.resolved {
		idx = append(idx, i)
	}
	sort.Ints(idx)
	return idx
}

// FullText returns resolved segment texts in sequence order.
func (s *State) FullText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullText
}

// Text returns the resolved text of one segment.
func (s *State) Text(index int) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.resolved[index]
	return t, ok
}

// Entry is one resolved segment.
type Entry struct {
	SequenceIndex int    `json:"sequenceIndex"`
	Text          string `json:"text"`
}

// Snapshot is a point-in-time copy of the transcript.
type Snapshot struct {
	FullText string  `json:"fullText"`
	Segments []Entry `json:"segments"`
	Failed   []int   `json:"failed"`
}

// Snapshot returns a copy of the transcript.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		FullText: s.fullText,
		Segments: make([]Entry, 0, len(s.resolved)),
		Failed:   make([]int, 0, len(s.failed)),
	}
	for _, idx := range s.sortedIndices() {
		snap.Segments = append(snap.Segments, Entry{SequenceIndex: idx, Text: s.resolved[idx]})
	}
	for idx := range s.failed {
		snap.Failed = append(snap.Failed, idx)
	}
	sort.Ints(snap.Failed)
	return snap
}

package suggestion

import "sync"

// List is an append-only sequence of suggested questions with a display
// cursor. Once the list is non-empty the cursor is always a valid index.
type List struct {
	mu     sync.RWMutex
	items  []string
	cursor int
}

// NewList creates a list seeded with questions.
func NewList(seed ...string) *List {
	l := &List{}
	l.Append(seed...)
	return l
}

// Append adds non-empty questions and returns how many were added.
func (l *List) Append(questions ...string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, q := range questions {
		if q == "" {
			continue
		}
		l.items = append(l.items, q)
		n++
	}
	return n
}

// Current returns the question under the cursor.
func (l *List) Current() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return "", false
	}
	return l.items[l.cursor], true
}

// Next moves the cursor forward, stopping at the last question.
func (l *List) Next() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "", false
	}
	if l.cursor < len(l.items)-1 {
		l.cursor++
	}
	return l.items[l.cursor], true
}

// Prev moves the cursor back, stopping at the first question.
func (l *List) Prev() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.items) == 0 {
		return "", false
	}
	if l.cursor > 0 {
		l.cursor--
	}
	return l.items[l.cursor], true
}

// Cursor returns the cursor position.
func (l *List) Cursor() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cursor
}

// Len returns the number of questions.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Items returns a copy of all questions.
func (l *List) Items() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string{}, l.items...)
}

package timeline

import (
	"strings"
	"sync"
)

// Timeline is the concatenation of every appended frame. Boundaries holds
// one cumulative bit count per Append call. Safe for concurrent use.
type Timeline struct {
	mu         sync.RWMutex
	bits       strings.Builder
	boundaries []int
}

// New returns an empty timeline.
func New() *Timeline {
	return &Timeline{}
}

// Append adds bits as received and records a frame boundary. Characters
// other than '0' and '1' are kept so positions match the frame's entry.
// Returns the new boundary.
func (t *Timeline) Append(bits string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bits.WriteString(bits)
	end := t.bits.Len()
	t.boundaries = append(t.boundaries, end)
	return end
}

// DropFirst forgets the oldest frame and shifts the remaining boundaries
// back by its length. Returns the number of bits dropped.
func (t *Timeline) DropFirst() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.boundaries) == 0 {
		return 0
	}
	n := t.boundaries[0]
	rest := t.bits.String()[n:]
	t.bits.Reset()
	t.bits.WriteString(rest)

	t.boundaries = t.boundaries[1:]
	for i := range t.boundaries {
		t.boundaries[i] -= n
	}
	return n
}

// Clear drops all bits and boundaries.
func (t *Timeline) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bits.Reset()
	t.boundaries = nil
}

// BoundaryCount returns the number of frames appended since the last Clear.
func (t *Timeline) BoundaryCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.boundaries)
}

// BitCount returns the number of accumulated bits.
func (t *Timeline) BitCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bits.Len()
}

// Boundaries returns a copy of the boundary list.
func (t *Timeline) Boundaries() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]int, len(t.boundaries))
	copy(out, t.boundaries)
	return out
}

// Bits returns the accumulated bit string.
func (t *Timeline) Bits() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.bits.String()
}

// Window returns up to n bits starting at from, clamped to the buffer.
func (t *Timeline) Window(from, n int) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.bits.String()
	if from < 0 {
		from = 0
	}
	if from >= len(s) || n <= 0 {
		return ""
	}
	return s[from:min(from+n, len(s))]
}

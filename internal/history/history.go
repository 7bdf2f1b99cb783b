// Package history keeps the console's executed-command history: a bounded
// ring with newest-last ordering and 1-based recall indexes.
package history

import "strings"

const DefaultLimit = 200

// History records executed commands. Consecutive duplicates and blank
// entries are not stored. The zero value is not usable; call New.
type History struct {
	entries []string
	limit   int
}

// New creates a history bounded to limit entries; limit <= 0 uses
// DefaultLimit.
func New(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{limit: limit}
}

// Add appends cmd unless it is blank or repeats the previous entry.
// The oldest entry is evicted once the limit is reached.
func (h *History) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
	}
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Entries returns the stored commands, oldest first.
func (h *History) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// At returns the entry with 1-based index n (as listed by Entries),
// or "" when n is out of range.
func (h *History) At(n int) string {
	if n < 1 || n > len(h.entries) {
		return ""
	}
	return h.entries[n-1]
}

// Last returns the most recent entry, or "" when empty.
func (h *History) Last() string {
	if len(h.entries) == 0 {
		return ""
	}
	return h.entries[len(h.entries)-1]
}

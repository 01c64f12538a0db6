package engine

// Snapshot captures what undo restores
type Snapshot struct {
	Units   []Unit     `json:"units"`
	Turn    int        `json:"turn"`
	Status  GameStatus `json:"status"`
	Message string     `json:"message"`
}

// History is the per-turn undo stack
type History struct {
	entries []Snapshot
}

// Push adds a snapshot to the top of the stack
func (h *History) Push(s Snapshot) {
	h.entries = append(h.entries, s)
}

// Pop removes and returns the most recent snapshot
func (h *History) Pop() (Snapshot, bool) {
	if len(h.entries) == 0 {
		return Snapshot{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}

// Len returns the stack depth
func (h *History) Len() int {
	return len(h.entries)
}

// Clear empties the stack at turn boundaries
func (h *History) Clear() {
	h.entries = nil
}

func takeSnapshot(s *GameState) Snapshot {
	return Snapshot{
		Units:   cloneUnits(s.Units),
		Turn:    s.Turn,
		Status:  s.Status,
		Message: s.Message,
	}
}

package answer

// Turn is one message of the conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// History is a bounded sliding window over conversation turns. It is keyed
// by turn count, not tokens; the oldest turns are dropped first.
type History struct {
	turns []Turn
	max   int
}

// NewHistory creates a history that keeps at most max turns.
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultMaxHistoryTurns
	}
	return &History{max: max}
}

// DefaultMaxHistoryTurns keeps the last three exchanges.
const DefaultMaxHistoryTurns = 6

// Add appends a turn, evicting the oldest when over capacity.
func (h *History) Add(role, content string) {
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	if len(h.turns) > h.max {
		h.turns = h.turns[len(h.turns)-h.max:]
	}
}

// Turns returns the retained window, oldest first.
func (h *History) Turns() []Turn {
	if h == nil {
		return nil
	}
	return h.turns
}

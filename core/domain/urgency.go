package domain

// Priority is the work-item priority tier. Lower is more urgent,
// matching the ticketing system's numeric convention.
type Priority int

const (
	PriorityUrgent Priority = 1
	PriorityHigh   Priority = 2
	PriorityNormal Priority = 3
	PriorityLow    Priority = 4
)

// String returns the human-readable tier name.
func (p Priority) String() string {
	switch p {
	case PriorityUrgent:
		return "urgent"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// CombinePriority merges two priority assessments by keeping the more
// urgent one. An externally suggested priority can be escalated by the
// scorer's assessment but never downgraded.
func CombinePriority(a, b Priority) Priority {
	if a < b {
		return a
	}
	return b
}

// UrgencyAnalysis is the scorer's verdict for a single message.
type UrgencyAnalysis struct {
	// Score is clamped to [0, 100].
	Score int `json:"score"`

	SuggestedPriority Priority `json:"suggested_priority"`

	// Reasons holds up to 5 human-readable explanations in discovery order.
	Reasons []string `json:"reasons"`

	// Keywords holds up to 10 matched keywords in discovery order.
	Keywords []string `json:"keywords"`
}

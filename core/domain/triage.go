package domain

import "time"

// TriageDecision is the full outcome of processing one inbound email:
// derived metadata, urgency, routing, related work and the refined content
// that went into the work item.
type TriageDecision struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Metadata EmailMetadata   `json:"metadata"`
	Urgency  UrgencyAnalysis `json:"urgency"`

	// Priority is the combined verdict: the more urgent of the scorer's
	// suggestion and the refinement collaborator's suggestion.
	Priority Priority `json:"priority"`

	Destination  Destination `json:"destination"`
	CollectionID string      `json:"collection_id,omitempty"`
	Labels       []string    `json:"labels"`

	Related []RelatedTicket `json:"related,omitempty"`

	Title       string   `json:"title"`
	Description string   `json:"description"`
	Summary     string   `json:"summary,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`

	TicketID        string `json:"ticket_id,omitempty"`
	TicketDisplayID string `json:"ticket_display_id,omitempty"`
}

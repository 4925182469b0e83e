package domain

import "time"

// ConversationRecord is one entry in the conversation index: a processed
// message and the work item it produced. Records expire after the
// retention window and are swept lazily on insert.
type ConversationRecord struct {
	TicketID        string    `json:"ticket_id"`
	TicketDisplayID string    `json:"ticket_display_id"`
	SenderEmail     string    `json:"sender_email"`
	SenderDomain    string    `json:"sender_domain"`
	Subject         string    `json:"subject"`
	NormalizedSubject string  `json:"normalized_subject"`
	MessageID       string    `json:"message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// MatchType identifies which matching tier produced a related-ticket hit.
type MatchType string

const (
	MatchThread        MatchType = "thread"         // In-Reply-To / References hit
	MatchSubject       MatchType = "subject"        // exact normalized subject + sender domain
	MatchSenderSubject MatchType = "sender_subject" // same sender, overlapping subject
	MatchRecency       MatchType = "recency"        // recent ticket from same sender
)

// Confidence grades how reliable a match tier is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RelatedTicket is one hit returned by the conversation linker.
type RelatedTicket struct {
	TicketID        string     `json:"ticket_id"`
	TicketDisplayID string     `json:"ticket_display_id"`
	MatchType       MatchType  `json:"match_type"`
	Confidence      Confidence `json:"confidence"`
	Reason          string     `json:"reason"`
}

// Package out defines the outbound collaborator boundaries of the triage
// core. Implementations live under adapter/out.
package out

import (
	"context"

	"github.com/weapplyse/weapply-pm/core/domain"
)

// =============================================================================
// Text Refinement
// =============================================================================

// RefinementResult is what the text-refinement collaborator returns for a
// raw subject+body pair.
type RefinementResult struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Summary     string          `json:"summary"`
	Labels      []string        `json:"labels"`
	Priority    domain.Priority `json:"priority"`
	ActionItems []string        `json:"action_items"`
}

// Refiner rewrites raw email text into work-item content. The caller
// combines its suggested priority with the scorer's via CombinePriority.
type Refiner interface {
	Refine(ctx context.Context, subject, content string) (*RefinementResult, error)
}

// =============================================================================
// Work-Item Store
// =============================================================================

// WorkItem is the stored representation of an issue in the ticketing system.
type WorkItem struct {
	ID          string
	DisplayID   string
	Title       string
	Description string
	Attachments []string
}

// WorkItemDraft holds everything needed to create a new issue.
type WorkItemDraft struct {
	Title         string
	Description   string
	Labels        []string
	Priority      domain.Priority
	AssigneeEmail string
	TeamID        string
}

// WorkItemPatch is a partial update; nil fields are left untouched.
type WorkItemPatch struct {
	Title       *string
	Description *string
	LabelIDs    []string
	Priority    *domain.Priority
	AssigneeID  *string
	State       *string
}

// WorkItemStore is the boundary to the external ticketing system.
type WorkItemStore interface {
	GetIssue(ctx context.Context, id string) (*WorkItem, error)
	CreateIssue(ctx context.Context, draft *WorkItemDraft) (*WorkItem, error)
	UpdateIssue(ctx context.Context, id string, patch *WorkItemPatch) error
	CreateSubIssue(ctx context.Context, parentID, title, description string, labels []string) (string, error)

	AddToCollection(ctx context.Context, id, collectionID string) error
	RemoveFromCollection(ctx context.Context, id string) error

	// Resolve* map human-readable names onto store identifiers.
	// ResolveLabelID creates the label when it does not exist yet.
	ResolveLabelID(ctx context.Context, name string) (string, error)
	ResolveUserID(ctx context.Context, email string) (string, error)
	ResolveTeamID(ctx context.Context, name string) (string, error)
}

// =============================================================================
// Outbound Alerts
// =============================================================================

// Alert describes an urgent triage outcome worth an out-of-band ping.
type Alert struct {
	Identifier  string
	Title       string
	Summary     string
	URL         string
	Priority    domain.Priority
	Sender      string
	ClientLabel string
}

// Notifier fires outbound notifications. Implementations only act on the
// most urgent tier and must treat everything else as a no-op.
type Notifier interface {
	Notify(ctx context.Context, alert *Alert) error
}

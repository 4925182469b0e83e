// Package triage runs one inbound email through the full decision chain:
// metadata extraction, urgency scoring, content refinement, routing,
// conversation linking, work-item creation and urgent alerting.
package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/port/out"
	"github.com/weapplyse/weapply-pm/core/service/conversation"
	"github.com/weapplyse/weapply-pm/core/service/email"
	"github.com/weapplyse/weapply-pm/core/service/routing"
	"github.com/weapplyse/weapply-pm/core/service/urgency"
	"github.com/weapplyse/weapply-pm/pkg/logger"
)

// Deps holds everything the triage service needs. Extractor, scorer,
// linker and resolver are required; the collaborators are optional and
// their absence or failure degrades the decision instead of failing it.
type Deps struct {
	Policy    *domain.RoutingPolicy
	Extractor *email.Extractor
	Scorer    *urgency.Scorer
	Linker    *conversation.Linker
	Resolver  *routing.Resolver

	Refiner  out.Refiner
	Store    out.WorkItemStore
	Notifier out.Notifier

	TeamID string
	Log    *logger.Logger
}

// Service orchestrates the triage pipeline.
type Service struct {
	policy    *domain.RoutingPolicy
	extractor *email.Extractor
	scorer    *urgency.Scorer
	linker    *conversation.Linker
	resolver  *routing.Resolver

	refiner  out.Refiner
	store    out.WorkItemStore
	notifier out.Notifier

	teamID string
	log    *logger.Logger
}

// NewService creates the triage service.
func NewService(deps *Deps) *Service {
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		policy:    deps.Policy,
		extractor: deps.Extractor,
		scorer:    deps.Scorer,
		linker:    deps.Linker,
		resolver:  deps.Resolver,
		refiner:   deps.Refiner,
		store:     deps.Store,
		notifier:  deps.Notifier,
		teamID:    deps.TeamID,
		log:       log,
	}
}

// Process triages one inbound email and returns the full decision.
func (s *Service) Process(ctx context.Context, in *domain.InboundEmail) (*domain.TriageDecision, error) {
	meta := s.extractor.Extract(in.Content, in.Subject)
	urg := s.scorer.Analyze(in.Content, in.Subject)

	refined := s.refine(ctx, in)
	priority := domain.CombinePriority(urg.SuggestedPriority, refined.Priority)

	related := s.linker.FindRelated(ctx, meta.SenderEmail, in.Subject, in.Content)

	hasClientLabel := s.policy.ShouldCreateClientLabel(meta.ClientDomain)
	dest := s.resolver.Resolve(&meta, hasClientLabel)

	labels := []string{s.resolver.SourceLabel(&meta)}
	if hasClientLabel {
		labels = append(labels, meta.ClientDomain)
	}
	labels = appendUnique(labels, refined.Labels)

	decision := &domain.TriageDecision{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Metadata:     meta,
		Urgency:      urg,
		Priority:     priority,
		Destination:  dest,
		CollectionID: s.policy.CollectionFor(dest),
		Labels:       labels,
		Related:      related,
		Title:        refined.Title,
		Description:  refined.Description,
		Summary:      refined.Summary,
		ActionItems:  refined.ActionItems,
	}

	if err := s.createWorkItem(ctx, decision, &meta, in); err != nil {
		return nil, err
	}

	if rerr := s.linker.Record(ctx, decision.TicketID, decision.TicketDisplayID,
		meta.SenderEmail, in.Subject, in.MessageID); rerr != nil {
		s.log.WithError(rerr).Warn("conversation record failed for %s", decision.TicketID)
	}

	s.notifyUrgent(ctx, decision, &meta)

	return decision, nil
}

// refine calls the text-refinement collaborator. Any failure falls back to
// the raw subject and body so triage never depends on the collaborator
// being up.
func (s *Service) refine(ctx context.Context, in *domain.InboundEmail) *out.RefinementResult {
	fallback := &out.RefinementResult{
		Title:       fallbackTitle(in),
		Description: in.Content,
		Priority:    domain.PriorityNormal,
	}
	if s.refiner == nil {
		return fallback
	}

	refined, err := s.refiner.Refine(ctx, in.Subject, in.Content)
	if err != nil || refined == nil {
		s.log.WithError(err).Warn("refinement failed, using raw content")
		return fallback
	}
	if refined.Title == "" {
		refined.Title = fallback.Title
	}
	if refined.Description == "" {
		refined.Description = in.Content
	}
	if refined.Priority < domain.PriorityUrgent || refined.Priority > domain.PriorityLow {
		refined.Priority = domain.PriorityNormal
	}
	return refined
}

// createWorkItem creates the issue in the ticketing system and files it
// into the destination collection. Without a configured store the decision
// still gets a synthetic ticket id so conversation linking keeps working.
func (s *Service) createWorkItem(ctx context.Context, decision *domain.TriageDecision, meta *domain.EmailMetadata, in *domain.InboundEmail) error {
	if s.store == nil {
		decision.TicketID = decision.ID
		return nil
	}

	draft := &out.WorkItemDraft{
		Title:         decision.Title,
		Description:   decision.Description,
		Labels:        decision.Labels,
		Priority:      decision.Priority,
		AssigneeEmail: meta.AssignToEmail,
		TeamID:        s.teamID,
	}

	item, err := s.store.CreateIssue(ctx, draft)
	if err != nil {
		return fmt.Errorf("create work item: %w", err)
	}
	decision.TicketID = item.ID
	decision.TicketDisplayID = item.DisplayID

	if decision.CollectionID != "" {
		if err := s.store.AddToCollection(ctx, item.ID, decision.CollectionID); err != nil {
			s.log.WithError(err).Warn("failed to file %s into %s", item.DisplayID, decision.CollectionID)
		}
	}
	return nil
}

// notifyUrgent fires the outbound alert for the most urgent tier only.
// Notification failure is logged, never propagated.
func (s *Service) notifyUrgent(ctx context.Context, decision *domain.TriageDecision, meta *domain.EmailMetadata) {
	if s.notifier == nil || decision.Priority != domain.PriorityUrgent {
		return
	}

	clientLabel := ""
	if s.policy.ShouldCreateClientLabel(meta.ClientDomain) {
		clientLabel = meta.ClientDomain
	}
	alert := &out.Alert{
		Identifier:  decision.TicketDisplayID,
		Title:       decision.Title,
		Summary:     decision.Summary,
		Priority:    decision.Priority,
		Sender:      meta.SenderEmail,
		ClientLabel: clientLabel,
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		s.log.WithError(err).Warn("urgent alert failed for %s", decision.TicketID)
	}
}

func fallbackTitle(in *domain.InboundEmail) string {
	if in.Subject != "" {
		return in.Subject
	}
	return "Email without subject"
}

func appendUnique(labels []string, extra []string) []string {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		seen[l] = true
	}
	for _, l := range extra {
		if l != "" && !seen[l] {
			seen[l] = true
			labels = append(labels, l)
		}
	}
	return labels
}

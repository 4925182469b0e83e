// Package conversation links inbound messages to previously processed
// work items. Matching runs through tiers of decreasing specificity and
// stops at the first tier that yields anything: a precise thread-reference
// hit always beats coincidental recency.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/service/email"
)

const (
	// DefaultRetention is how long index entries survive before the lazy
	// sweep on insert removes them.
	DefaultRetention = 7 * 24 * time.Hour

	// recentWindow bounds the recency fallback tier.
	recentWindow = 24 * time.Hour

	// recentLimit caps how many recency-tier matches are returned.
	recentLimit = 3
)

var (
	// Reply/forward prefixes, including the common non-English ones
	// (German AW/Antw, Swedish/Danish SV, Finnish VS, Italian Rif).
	replyPrefixRe = regexp.MustCompile(`(?i)^\s*(?:(?:re|fwd?|fw|aw|sv|vs|antw|rif)\s*:\s*)+`)

	// In-Reply-To / References header lines inside the reformatted body.
	threadHeaderRe = regexp.MustCompile(`(?im)^\s*(?:in-reply-to|references):\s*(.+)$`)
	angleTokenRe   = regexp.MustCompile(`<([^<>\s]+)>`)
)

// NormalizeSubject strips reply/forward prefixes, collapses whitespace and
// lower-cases, so that replies across languages compare equal.
func NormalizeSubject(subject string) string {
	s := replyPrefixRe.ReplaceAllString(subject, "")
	s = strings.Join(strings.Fields(s), " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// threadReferences extracts the message ids referenced by In-Reply-To and
// References lines, in order of appearance.
func threadReferences(content string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, line := range threadHeaderRe.FindAllStringSubmatch(content, -1) {
		for _, tok := range angleTokenRe.FindAllStringSubmatch(line[1], -1) {
			id := NormalizeMessageID(tok[1])
			if id != "" && !seen[id] {
				seen[id] = true
				refs = append(refs, id)
			}
		}
	}
	return refs
}

// =============================================================================
// Linker
// =============================================================================

// matchInput is the normalized query one matcher tier operates on.
type matchInput struct {
	senderEmail  string
	senderDomain string
	subject      string
	content      string
}

// matcherFunc is one tier in the escalating-specificity chain.
type matcherFunc func(ctx context.Context, in matchInput) []domain.RelatedTicket

// Linker maintains the conversation index and finds related work items.
// Not safe for concurrent use by itself; the store carries its own lock.
type Linker struct {
	store     Store
	retention time.Duration
	matchers  []matcherFunc

	now func() time.Time
}

// NewLinker creates a linker over the given store with the default
// 7-day retention.
func NewLinker(store Store) *Linker {
	return NewLinkerWithRetention(store, DefaultRetention)
}

// NewLinkerWithRetention creates a linker with an explicit retention
// window. Non-positive values fall back to the default.
func NewLinkerWithRetention(store Store, retention time.Duration) *Linker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	l := &Linker{
		store:     store,
		retention: retention,
		now:       time.Now,
	}
	l.matchers = []matcherFunc{
		l.matchThreadReferences,
		l.matchExactSubject,
		l.matchSenderSubjectOverlap,
		l.matchRecentFromSender,
	}
	return l
}

// Record registers a processed message and its work item in the index.
// Every call sweeps entries older than the retention window first.
func (l *Linker) Record(ctx context.Context, ticketID, displayID, senderEmail, subject, messageID string) error {
	if err := l.store.Sweep(ctx, l.now().Add(-l.retention)); err != nil {
		return err
	}
	return l.store.Put(ctx, &domain.ConversationRecord{
		TicketID:          ticketID,
		TicketDisplayID:   displayID,
		SenderEmail:       strings.ToLower(senderEmail),
		SenderDomain:      email.ExtractDomain(senderEmail),
		Subject:           subject,
		NormalizedSubject: NormalizeSubject(subject),
		MessageID:         messageID,
		CreatedAt:         l.now(),
	})
}

// FindRelated runs the matcher tiers in order and returns the first
// non-empty result. An empty index is a normal outcome, not an error.
func (l *Linker) FindRelated(ctx context.Context, senderEmail, subject, content string) []domain.RelatedTicket {
	in := matchInput{
		senderEmail:  strings.ToLower(senderEmail),
		senderDomain: email.ExtractDomain(senderEmail),
		subject:      NormalizeSubject(subject),
		content:      content,
	}

	for _, match := range l.matchers {
		if hits := match(ctx, in); len(hits) > 0 {
			return hits
		}
	}
	return nil
}

// Tier 1: explicit thread references (high confidence).
func (l *Linker) matchThreadReferences(ctx context.Context, in matchInput) []domain.RelatedTicket {
	var hits []domain.RelatedTicket
	for _, ref := range threadReferences(in.content) {
		rec, err := l.store.ByMessageID(ctx, ref)
		if err != nil || rec == nil {
			continue
		}
		hits = append(hits, domain.RelatedTicket{
			TicketID:        rec.TicketID,
			TicketDisplayID: rec.TicketDisplayID,
			MatchType:       domain.MatchThread,
			Confidence:      domain.ConfidenceHigh,
			Reason:          fmt.Sprintf("reply to %s (same email thread)", rec.TicketDisplayID),
		})
	}
	return hits
}

// Tier 2: exact normalized subject from the same sender domain (high).
func (l *Linker) matchExactSubject(ctx context.Context, in matchInput) []domain.RelatedTicket {
	if in.subject == "" || in.senderDomain == "" {
		return nil
	}
	var hits []domain.RelatedTicket
	for _, rec := range l.snapshot(ctx) {
		if rec.NormalizedSubject == in.subject && rec.SenderDomain == in.senderDomain {
			hits = append(hits, domain.RelatedTicket{
				TicketID:        rec.TicketID,
				TicketDisplayID: rec.TicketDisplayID,
				MatchType:       domain.MatchSubject,
				Confidence:      domain.ConfidenceHigh,
				Reason:          fmt.Sprintf("same subject from %s", rec.SenderDomain),
			})
		}
	}
	return hits
}

// Tier 3: same sender with overlapping subject, either direction (medium).
func (l *Linker) matchSenderSubjectOverlap(ctx context.Context, in matchInput) []domain.RelatedTicket {
	if in.subject == "" || in.senderEmail == "" {
		return nil
	}
	var hits []domain.RelatedTicket
	for _, rec := range l.snapshot(ctx) {
		if rec.SenderEmail != in.senderEmail || rec.NormalizedSubject == "" {
			continue
		}
		if strings.Contains(rec.NormalizedSubject, in.subject) || strings.Contains(in.subject, rec.NormalizedSubject) {
			hits = append(hits, domain.RelatedTicket{
				TicketID:        rec.TicketID,
				TicketDisplayID: rec.TicketDisplayID,
				MatchType:       domain.MatchSenderSubject,
				Confidence:      domain.ConfidenceMedium,
				Reason:          "similar subject from same sender",
			})
		}
	}
	return hits
}

// Tier 4: recency fallback (low) - up to 3 most recent tickets from the
// same sender within the last 24 hours.
func (l *Linker) matchRecentFromSender(ctx context.Context, in matchInput) []domain.RelatedTicket {
	if in.senderEmail == "" {
		return nil
	}
	cutoff := l.now().Add(-recentWindow)

	var recent []*domain.ConversationRecord
	for _, rec := range l.snapshot(ctx) {
		if rec.SenderEmail == in.senderEmail && rec.CreatedAt.After(cutoff) {
			recent = append(recent, rec)
		}
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	var hits []domain.RelatedTicket
	for _, rec := range recent {
		hits = append(hits, domain.RelatedTicket{
			TicketID:        rec.TicketID,
			TicketDisplayID: rec.TicketDisplayID,
			MatchType:       domain.MatchRecency,
			Confidence:      domain.ConfidenceLow,
			Reason:          "recent ticket from same sender",
		})
	}
	return hits
}

// snapshot lists live records newest-first so scan tiers stay
// deterministic regardless of store iteration order.
func (l *Linker) snapshot(ctx context.Context) []*domain.ConversationRecord {
	recs, err := l.store.All(ctx)
	if err != nil {
		return nil
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	return recs
}

package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/weapplyse/weapply-pm/core/domain"
)

func TestNormalizeSubject(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Re: Offer question", "offer question"},
		{"RE: re: Offer question", "offer question"},
		{"Fwd: Fw: FW: status", "status"},
		{"AW: Angebot", "angebot"},
		{"SV: möte imorgon", "möte imorgon"},
		{"VS: palaveri", "palaveri"},
		{"Antw: Termin", "termin"},
		{"Rif: contratto", "contratto"},
		{"  Multiple   spaces   here ", "multiple spaces here"},
		{"No prefix at all", "no prefix at all"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeSubject(tt.in); got != tt.want {
				t.Errorf("NormalizeSubject(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFindRelatedThreadReference(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLinker(store)

	if err := l.Record(ctx, "t-1", "PM-101", "client@acme.com", "Offer question", "abc"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	content := "In-Reply-To: <abc>\n\nFollowing up on the offer."
	hits := l.FindRelated(ctx, "client@acme.com", "Re: Offer question", content)

	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].MatchType != domain.MatchThread {
		t.Errorf("match type = %v, want %v", hits[0].MatchType, domain.MatchThread)
	}
	if hits[0].Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %v, want high", hits[0].Confidence)
	}
	if hits[0].TicketID != "t-1" {
		t.Errorf("ticket = %q, want t-1", hits[0].TicketID)
	}
}

func TestFindRelatedTierFallthrough(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLinker(store)

	_ = l.Record(ctx, "t-1", "PM-101", "client@acme.com", "Offer question", "")
	_ = l.Record(ctx, "t-2", "PM-102", "other@acme.com", "Totally different", "")

	// No thread reference in content: tier 1 is empty, tier 2 must match
	// the exact normalized subject from the same domain.
	hits := l.FindRelated(ctx, "second@acme.com", "Re: Offer question", "plain body")

	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].MatchType != domain.MatchSubject {
		t.Errorf("match type = %v, want %v", hits[0].MatchType, domain.MatchSubject)
	}
	if hits[0].TicketID != "t-1" {
		t.Errorf("ticket = %q, want t-1", hits[0].TicketID)
	}
}

func TestFindRelatedSenderSubjectOverlap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLinker(store)

	_ = l.Record(ctx, "t-1", "PM-101", "client@acme.com", "Website redesign scope", "")

	// Different domain record exists, subject only overlaps as a substring:
	// tier 2 misses (no exact equality), tier 3 hits on same sender.
	hits := l.FindRelated(ctx, "client@acme.com", "Re: Website redesign scope and budget", "body")

	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].MatchType != domain.MatchSenderSubject {
		t.Errorf("match type = %v, want %v", hits[0].MatchType, domain.MatchSenderSubject)
	}
	if hits[0].Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence = %v, want medium", hits[0].Confidence)
	}
}

func TestFindRelatedRecencyFallback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLinker(store)

	for i, id := range []string{"t-1", "t-2", "t-3", "t-4"} {
		_ = l.Record(ctx, id, "PM-10"+string(rune('1'+i)), "client@acme.com", "subject "+id, "")
	}

	hits := l.FindRelated(ctx, "client@acme.com", "Brand new topic", "body")

	if len(hits) != 3 {
		t.Fatalf("hits = %d, want recency fallback capped at 3", len(hits))
	}
	for _, h := range hits {
		if h.MatchType != domain.MatchRecency {
			t.Errorf("match type = %v, want %v", h.MatchType, domain.MatchRecency)
		}
		if h.Confidence != domain.ConfidenceLow {
			t.Errorf("confidence = %v, want low", h.Confidence)
		}
		if h.Reason != "recent ticket from same sender" {
			t.Errorf("reason = %q", h.Reason)
		}
	}
}

func TestFindRelatedEmptyIndex(t *testing.T) {
	ctx := context.Background()
	l := NewLinker(NewMemoryStore())

	if hits := l.FindRelated(ctx, "client@acme.com", "Anything", "In-Reply-To: <abc>"); len(hits) != 0 {
		t.Errorf("hits = %v, want none from empty index", hits)
	}
}

func TestRecordEvictsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := NewLinker(store)

	// Backdate the clock so the first record falls outside retention.
	base := time.Now()
	l.now = func() time.Time { return base.Add(-8 * 24 * time.Hour) }
	if err := l.Record(ctx, "t-old", "PM-1", "client@acme.com", "Old thread", "abc"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	l.now = func() time.Time { return base }
	hits := l.FindRelated(ctx, "client@acme.com", "Re: Old thread", "In-Reply-To: <abc>")
	if len(hits) == 0 {
		t.Fatal("expected thread match before eviction")
	}

	// The next insert sweeps the stale entry and its reverse-index entry.
	if err := l.Record(ctx, "t-new", "PM-2", "someone@else.org", "Unrelated", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	hits = l.FindRelated(ctx, "client@acme.com", "Re: Old thread", "In-Reply-To: <abc>")
	for _, h := range hits {
		if h.MatchType == domain.MatchThread {
			t.Errorf("stale thread match survived eviction: %+v", h)
		}
	}
	if store.Len() != 1 {
		t.Errorf("store has %d records, want 1 after sweep", store.Len())
	}
}

func TestMessageIDReverseIndexInvariant(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	rec := &domain.ConversationRecord{
		TicketID:        "t-1",
		TicketDisplayID: "PM-1",
		SenderEmail:     "a@b.com",
		SenderDomain:    "b.com",
		MessageID:       "<MsgID-1>",
		CreatedAt:       time.Now().Add(-10 * 24 * time.Hour),
	}
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Lookup is case- and bracket-insensitive.
	got, err := store.ByMessageID(ctx, "msgid-1")
	if err != nil || got == nil {
		t.Fatalf("ByMessageID = %v, %v; want record", got, err)
	}

	// Sweeping the record also removes the reverse entry.
	if err := store.Sweep(ctx, time.Now().Add(-7*24*time.Hour)); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	got, _ = store.ByMessageID(ctx, "msgid-1")
	if got != nil {
		t.Errorf("reverse entry survived sweep: %+v", got)
	}
}

func TestThreadReferencesParsing(t *testing.T) {
	content := "Some intro\n" +
		"In-Reply-To: <first@mail>\n" +
		"References: <second@mail> <third@mail>\n"

	refs := threadReferences(content)
	want := []string{"first@mail", "second@mail", "third@mail"}

	if len(refs) != len(want) {
		t.Fatalf("refs = %v, want %v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %q, want %q", i, refs[i], want[i])
		}
	}
}

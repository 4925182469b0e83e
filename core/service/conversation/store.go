package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/weapplyse/weapply-pm/core/domain"
)

// Store holds conversation records plus a message-id reverse index. It is
// constructor-injected into the Linker so tests stay isolated and a
// persistent-backed implementation can be swapped in without touching call
// sites.
type Store interface {
	Put(ctx context.Context, rec *domain.ConversationRecord) error
	ByMessageID(ctx context.Context, messageID string) (*domain.ConversationRecord, error)
	All(ctx context.Context) ([]*domain.ConversationRecord, error)

	// Sweep removes records created before the cutoff, along with their
	// reverse-index entries.
	Sweep(ctx context.Context, cutoff time.Time) error
}

// MemoryStore is the default in-process store: two maps guarded by a
// mutex. Unbounded in principle, bounded in practice by the retention
// sweep on every insert.
type MemoryStore struct {
	mu          sync.Mutex
	records     map[string]*domain.ConversationRecord
	byMessageID map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     make(map[string]*domain.ConversationRecord),
		byMessageID: make(map[string]string),
	}
}

// Put inserts or replaces a record. A record with a message id always gets
// a matching reverse-index entry; the two are removed together on sweep.
func (s *MemoryStore) Put(_ context.Context, rec *domain.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[rec.TicketID]; ok && old.MessageID != "" {
		delete(s.byMessageID, NormalizeMessageID(old.MessageID))
	}
	s.records[rec.TicketID] = rec
	if rec.MessageID != "" {
		s.byMessageID[NormalizeMessageID(rec.MessageID)] = rec.TicketID
	}
	return nil
}

// ByMessageID resolves a referenced message id to its record, or nil.
func (s *MemoryStore) ByMessageID(_ context.Context, messageID string) (*domain.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticketID, ok := s.byMessageID[NormalizeMessageID(messageID)]
	if !ok {
		return nil, nil
	}
	return s.records[ticketID], nil
}

// All returns a snapshot of every live record.
func (s *MemoryStore) All(_ context.Context) ([]*domain.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.ConversationRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	return out, nil
}

// Sweep drops everything older than the cutoff. O(index size); fine while
// the index stays in the low thousands.
func (s *MemoryStore) Sweep(_ context.Context, cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			if rec.MessageID != "" {
				delete(s.byMessageID, NormalizeMessageID(rec.MessageID))
			}
		}
	}
	return nil
}

// Len reports the current record count.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// NormalizeMessageID canonicalizes a message id for index lookups:
// lower-cased, angle brackets and surrounding whitespace stripped. Store
// implementations must apply it on both write and read.
func NormalizeMessageID(id string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(id), "<>"))
}

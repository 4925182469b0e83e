// Package cache implements the conversation store on Redis so the 7-day
// index survives restarts and is shared across instances. Entries carry a
// TTL equal to the retention window, which makes the explicit sweep a
// no-op here.
package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/weapplyse/weapply-pm/core/domain"
	"github.com/weapplyse/weapply-pm/core/service/conversation"
)

const (
	ticketKeyPrefix = "conv:ticket:"
	msgKeyPrefix    = "conv:msg:"

	scanBatch = 200
)

// RedisConversationStore satisfies conversation.Store using one hash entry
// per record plus a message-id reverse key.
type RedisConversationStore struct {
	client    *redis.Client
	retention time.Duration
}

var _ conversation.Store = (*RedisConversationStore)(nil)

// NewRedisConversationStore creates the store. A zero retention falls back
// to the linker's default window.
func NewRedisConversationStore(client *redis.Client, retention time.Duration) *RedisConversationStore {
	if retention <= 0 {
		retention = conversation.DefaultRetention
	}
	return &RedisConversationStore{client: client, retention: retention}
}

// Put writes the record and its reverse-index key in one pipeline, both
// expiring together.
func (s *RedisConversationStore) Put(ctx context.Context, rec *domain.ConversationRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ticketKeyPrefix+rec.TicketID, data, s.retention)
	if rec.MessageID != "" {
		key := msgKeyPrefix + conversation.NormalizeMessageID(rec.MessageID)
		pipe.Set(ctx, key, rec.TicketID, s.retention)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// ByMessageID resolves a referenced message id via the reverse key.
func (s *RedisConversationStore) ByMessageID(ctx context.Context, messageID string) (*domain.ConversationRecord, error) {
	ticketID, err := s.client.Get(ctx, msgKeyPrefix+conversation.NormalizeMessageID(messageID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.get(ctx, ticketID)
}

func (s *RedisConversationStore) get(ctx context.Context, ticketID string) (*domain.ConversationRecord, error) {
	data, err := s.client.Get(ctx, ticketKeyPrefix+ticketID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.ConversationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// All scans the ticket keyspace. The index is bounded by the retention
// window, so the scan stays small.
func (s *RedisConversationStore) All(ctx context.Context) ([]*domain.ConversationRecord, error) {
	var recs []*domain.ConversationRecord

	iter := s.client.Scan(ctx, 0, ticketKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, err
		}
		var rec domain.ConversationRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		recs = append(recs, &rec)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Sweep is a no-op: the TTL set on write already enforces retention for
// both the record and its reverse-index key.
func (s *RedisConversationStore) Sweep(ctx context.Context, cutoff time.Time) error {
	return nil
}

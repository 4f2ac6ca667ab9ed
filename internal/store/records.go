package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/erebus-labs/erebus-gateway/internal/transfer"
)

const (
	recordKeyPrefix  = "transfer:"
	addressKeyPrefix = "transfers:addr:"

	// conditional updates retry a few times when the optimistic
	// transaction loses a race on the same key
	maxCASAttempts = 3
)

// RecordStore keeps transfer records in Redis: one JSON document per
// transfer plus a per-address index ordered by creation time. Conditional
// updates run under WATCH so the expected-state check and the write apply
// atomically even with multiple processes sharing the backend.
type RecordStore struct {
	client *redis.Client
}

func NewRecordStore(client *redis.Client) (*RecordStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RecordStore{client: client}, nil
}

func (s *RecordStore) Insert(ctx context.Context, rec *transfer.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal transfer record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(rec.ID), b, 0)
	// millisecond scores stay exact in a float64; nanoseconds do not
	pipe.ZAdd(ctx, addressKey(rec.FromAddress), redis.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert transfer record: %w", err)
	}
	return nil
}

func (s *RecordStore) Get(ctx context.Context, id string) (*transfer.Record, error) {
	val, err := s.client.Get(ctx, recordKey(id)).Result()
	if err == redis.Nil {
		return nil, transfer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transfer record: %w", err)
	}

	var rec transfer.Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal transfer record: %w", err)
	}
	return &rec, nil
}

// ConditionalUpdate applies mutate to the record only if its current state
// matches expected, reporting whether the write was applied. The mutation
// may return transfer.ErrAbortUpdate to abandon the write without error.
func (s *RecordStore) ConditionalUpdate(ctx context.Context, id string, expected transfer.State, mutate func(*transfer.Record) error) (bool, error) {
	applied := false

	txn := func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, recordKey(id)).Result()
		if err == redis.Nil {
			return transfer.ErrNotFound
		}
		if err != nil {
			return err
		}

		var rec transfer.Record
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("unmarshal transfer record: %w", err)
		}
		if rec.State != expected {
			return nil // precondition failed; applied stays false
		}

		if err := mutate(&rec); err != nil {
			if errors.Is(err, transfer.ErrAbortUpdate) {
				return nil
			}
			return err
		}
		rec.UpdatedAt = time.Now().UTC()

		b, err := json.Marshal(&rec)
		if err != nil {
			return fmt.Errorf("marshal transfer record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, recordKey(id), b, 0)
			return nil
		})
		if err != nil {
			return err
		}
		applied = true
		return nil
	}

	var err error
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err = s.client.Watch(ctx, txn, recordKey(id))
		if err != redis.TxFailedErr {
			break
		}
	}
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("conditional update: %w", err)
	}
	return applied, nil
}

// ListByAddress returns transfers originated by address, newest first.
func (s *RecordStore) ListByAddress(ctx context.Context, address string, limit int64) ([]*transfer.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := s.client.ZRevRange(ctx, addressKey(address), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list transfers index: %w", err)
	}
	if len(ids) == 0 {
		return []*transfer.Record{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget transfer records: %w", err)
	}

	out := make([]*transfer.Record, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var rec transfer.Record
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

// Ping checks if the store is reachable
func (s *RecordStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func recordKey(id string) string {
	return recordKeyPrefix + id
}

func addressKey(address string) string {
	return addressKeyPrefix + address
}

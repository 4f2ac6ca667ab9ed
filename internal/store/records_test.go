package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erebus-labs/erebus-gateway/internal/transfer"
)

func newTestStore(t *testing.T) *RecordStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s, err := NewRecordStore(client)
	require.NoError(t, err)
	return s
}

func sampleRecord(id, from string, createdAt time.Time) *transfer.Record {
	return &transfer.Record{
		ID:              id,
		FromAddress:     from,
		ToAddress:       "dest-address",
		Amount:          decimal.RequireFromString("1.5"),
		FeeAmount:       decimal.RequireFromString("0.015"),
		TotalPayable:    decimal.RequireFromString("1.515"),
		TreasuryAddress: "treasury-address",
		State:           transfer.StatePrepared,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

func TestRecordStore_InsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("t1", "wallet-a", time.Now().UTC())
	require.NoError(t, s.Insert(ctx, rec))

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.FromAddress, got.FromAddress)
	assert.True(t, rec.Amount.Equal(got.Amount))
	assert.True(t, rec.TotalPayable.Equal(got.TotalPayable))
	assert.Equal(t, transfer.StatePrepared, got.State)
}

func TestRecordStore_GetUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestRecordStore_ConditionalUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("t1", "wallet-a", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, s.Insert(ctx, rec))

	applied, err := s.ConditionalUpdate(ctx, "t1", transfer.StatePrepared, func(r *transfer.Record) error {
		r.State = transfer.StatePaymentVerified
		r.PaymentSignature = "pay-sig"
		return nil
	})
	require.NoError(t, err)
	assert.True(t, applied)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, transfer.StatePaymentVerified, got.State)
	assert.Equal(t, "pay-sig", got.PaymentSignature)
	assert.True(t, got.UpdatedAt.After(rec.UpdatedAt))
}

func TestRecordStore_ConditionalUpdateStateMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("t1", "wallet-a", time.Now().UTC())
	rec.State = transfer.StateForwarded
	require.NoError(t, s.Insert(ctx, rec))

	applied, err := s.ConditionalUpdate(ctx, "t1", transfer.StatePrepared, func(r *transfer.Record) error {
		r.State = transfer.StateFailed
		return nil
	})
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, transfer.StateForwarded, got.State, "mismatched precondition must not write")
}

func TestRecordStore_ConditionalUpdateAbort(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord("t1", "wallet-a", time.Now().UTC())))

	applied, err := s.ConditionalUpdate(ctx, "t1", transfer.StatePrepared, func(r *transfer.Record) error {
		return transfer.ErrAbortUpdate
	})
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestRecordStore_ConditionalUpdateMutationError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, sampleRecord("t1", "wallet-a", time.Now().UTC())))

	boom := errors.New("boom")
	applied, err := s.ConditionalUpdate(ctx, "t1", transfer.StatePrepared, func(r *transfer.Record) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, applied)
}

func TestRecordStore_ConditionalUpdateUnknown(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ConditionalUpdate(context.Background(), "missing", transfer.StatePrepared, func(r *transfer.Record) error {
		return nil
	})
	assert.ErrorIs(t, err, transfer.ErrNotFound)
}

func TestRecordStore_IndexScoreIsExactMilliseconds(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s, err := NewRecordStore(client)
	require.NoError(t, err)

	ctx := context.Background()
	createdAt := time.UnixMilli(1_700_000_000_123).UTC()
	require.NoError(t, s.Insert(ctx, sampleRecord("t1", "wallet-a", createdAt)))

	// nanosecond scores round in a float64; milliseconds must not
	score, err := client.ZScore(ctx, "transfers:addr:wallet-a", "t1").Result()
	require.NoError(t, err)
	assert.Equal(t, float64(1_700_000_000_123), score)
}

func TestRecordStore_ListByAddress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		rec := sampleRecord(fmt.Sprintf("t%d", i), "wallet-a", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.Insert(ctx, rec))
	}
	require.NoError(t, s.Insert(ctx, sampleRecord("other", "wallet-b", base)))

	recs, err := s.ListByAddress(ctx, "wallet-a", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, "t4", recs[0].ID)
	assert.Equal(t, "t3", recs[1].ID)
	assert.Equal(t, "t2", recs[2].ID)

	all, err := s.ListByAddress(ctx, "wallet-a", 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	none, err := s.ListByAddress(ctx, "wallet-c", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

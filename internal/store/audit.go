package store

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/erebus-labs/erebus-gateway/internal/transfer"
)

// AuditSink appends terminal transfer records to ClickHouse. The table is
// insert-only; repeated delivery of the same record is acceptable because
// readers deduplicate on (id, state).
type AuditSink struct {
	conn driver.Conn
}

type AuditConfig struct {
	Addr     string
	Database string
	Username string
	Password string
}

func NewAuditSink(cfg AuditConfig) (*AuditSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	return &AuditSink{conn: conn}, nil
}

func (a *AuditSink) RecordTransfer(ctx context.Context, rec *transfer.Record) error {
	query := `
		INSERT INTO transfers_audit (
			id, from_address, to_address, amount, fee_amount, total_to_pay,
			treasury_address, state, payment_signature, forward_signature,
			fail_reason, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := a.conn.Exec(ctx, query,
		rec.ID,
		rec.FromAddress,
		rec.ToAddress,
		rec.Amount.InexactFloat64(),
		rec.FeeAmount.InexactFloat64(),
		rec.TotalPayable.InexactFloat64(),
		rec.TreasuryAddress,
		string(rec.State),
		rec.PaymentSignature,
		rec.ForwardSignature,
		rec.FailReason,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

func (a *AuditSink) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

func (a *AuditSink) Close() error {
	return a.conn.Close()
}

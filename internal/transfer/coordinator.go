package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/erebus-labs/erebus-gateway/internal/rpc"
)

// forwardClaimTTL is how long a forwarding claim is honored before another
// Execute may assume the claimant died mid-broadcast and take over.
const forwardClaimTTL = 90 * time.Second

var lamportsPerSOL = decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))

// Coordinator runs the two-phase relay transfer: the user pays the
// custodian, the custodian forwards to the destination. Both phases are
// idempotent per transfer identifier so a caller may retry after a network
// interruption without duplicating funds movement.
type Coordinator struct {
	chain     Chain
	custodian Custodian
	records   RecordStore
	audit     Auditor
	fees      FeePolicy
	logger    *logrus.Logger
}

type CoordinatorConfig struct {
	Chain     Chain
	Custodian Custodian
	Records   RecordStore
	Audit     Auditor // optional
	Fees      FeePolicy
	Logger    *logrus.Logger
}

func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Chain == nil {
		return nil, fmt.Errorf("coordinator: chain client is required")
	}
	if cfg.Custodian == nil {
		return nil, fmt.Errorf("coordinator: custodian is required")
	}
	if cfg.Records == nil {
		return nil, fmt.Errorf("coordinator: record store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Coordinator{
		chain:     cfg.Chain,
		custodian: cfg.Custodian,
		records:   cfg.Records,
		audit:     cfg.Audit,
		fees:      cfg.Fees,
		logger:    cfg.Logger,
	}, nil
}

// Prepare allocates a new transfer record in state prepared and returns the
// amount/fee breakdown plus the custodian's receiving address. Each call is
// a fresh intent: identical arguments produce independent records. No
// blockchain interaction happens here.
func (c *Coordinator) Prepare(ctx context.Context, fromAddress, toAddress string, amount decimal.Decimal) (*PrepareResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if _, err := solana.PublicKeyFromBase58(fromAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid from_address", ErrInvalidInput)
	}
	if _, err := solana.PublicKeyFromBase58(toAddress); err != nil {
		return nil, fmt.Errorf("%w: invalid to_address", ErrInvalidInput)
	}
	if fromAddress == c.custodian.Address() {
		return nil, fmt.Errorf("%w: from_address cannot be the treasury", ErrInvalidInput)
	}

	fee := c.fees.Fee(amount)
	now := time.Now().UTC()
	rec := &Record{
		ID:              uuid.NewString(),
		FromAddress:     fromAddress,
		ToAddress:       toAddress,
		Amount:          amount,
		FeeAmount:       fee,
		TotalPayable:    amount.Add(fee),
		TreasuryAddress: c.custodian.Address(),
		State:           StatePrepared,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := c.records.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist transfer: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"transfer_id": rec.ID,
		"amount":      rec.Amount.String(),
		"fee":         rec.FeeAmount.String(),
	}).Info("transfer prepared")

	return &PrepareResult{
		TransferID:      rec.ID,
		Amount:          rec.Amount,
		FeeAmount:       rec.FeeAmount,
		TotalPayable:    rec.TotalPayable,
		TreasuryAddress: rec.TreasuryAddress,
		NetworkFee:      c.fees.NetworkFeeEstimate,
	}, nil
}

// Execute runs both phases for an existing transfer: verify the user's
// payment to the custodian, then forward the amount to the destination.
// Safe to call repeatedly; a transfer already forwarded returns its
// existing forwarding reference without broadcasting again.
func (c *Coordinator) Execute(ctx context.Context, transferID, paymentSignature, fromAddress string) (*ExecuteResult, error) {
	rec, err := c.records.Get(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if rec.FromAddress != fromAddress {
		return nil, fmt.Errorf("%w: from_address does not match transfer", ErrInvalidInput)
	}

	switch rec.State {
	case StateForwarded:
		return result(rec), nil
	case StateFailed:
		return nil, fmt.Errorf("%w: transfer %s already failed: %s", ErrPaymentNotVerified, rec.ID, rec.FailReason)
	}

	if rec.State == StatePrepared {
		rec, err = c.verifyPayment(ctx, rec, paymentSignature)
		if err != nil {
			return nil, err
		}
	}

	return c.forward(ctx, rec)
}

// verifyPayment is Step A: confirm the payment transaction is finalized,
// succeeded, and credits the custodian with at least the total payable.
// Re-executable: a record already past prepared skips it entirely.
func (c *Coordinator) verifyPayment(ctx context.Context, rec *Record, paymentSignature string) (*Record, error) {
	if paymentSignature == "" {
		return nil, fmt.Errorf("%w: payment_signature is required", ErrInvalidInput)
	}

	tx, err := c.chain.GetTransaction(ctx, paymentSignature)
	if err != nil {
		// A signature the cluster does not know may simply not be
		// finalized yet; leave the record untouched so the caller can
		// retry once it lands.
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment transaction not found", ErrPaymentNotVerified)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	required := rec.TotalPayable.Mul(lamportsPerSOL)
	credited := decimal.NewFromInt(int64(tx.LamportsCredited(rec.TreasuryAddress)))

	var reason string
	switch {
	case !tx.Succeeded():
		reason = "payment transaction failed on chain"
	case credited.LessThan(required):
		reason = fmt.Sprintf("payment credited %s lamports, need %s", credited.String(), required.Truncate(0).String())
	}
	if reason != "" {
		// The payment was found but cannot satisfy this transfer.
		// Permanent: mark the record failed.
		c.fail(ctx, rec, reason)
		return nil, fmt.Errorf("%w: %s", ErrPaymentNotVerified, reason)
	}

	applied, err := c.records.ConditionalUpdate(ctx, rec.ID, StatePrepared, func(r *Record) error {
		r.State = StatePaymentVerified
		r.PaymentSignature = paymentSignature
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist payment verification: %w", err)
	}
	if !applied {
		// A concurrent Execute advanced the record first; reload and let
		// the caller proceed from the new state.
		return c.reload(ctx, rec.ID)
	}

	c.logger.WithFields(logrus.Fields{
		"transfer_id": rec.ID,
		"payment_sig": paymentSignature,
	}).Info("payment verified")

	return c.reload(ctx, rec.ID)
}

// forward is Step B: broadcast the custodian's onward transfer of exactly
// the record's amount (the fee stays with the custodian). The claim update
// guarantees a single broadcast per transfer identifier even across process
// instances; any failure leaves the record in payment_verified so a later
// call can retry forwarding alone.
func (c *Coordinator) forward(ctx context.Context, rec *Record) (*ExecuteResult, error) {
	if rec.State == StateForwarded {
		return result(rec), nil
	}
	if rec.State != StatePaymentVerified {
		return nil, fmt.Errorf("%w: transfer %s is %s", ErrPaymentNotVerified, rec.ID, rec.State)
	}
	if rec.ForwardSignature != "" {
		return result(rec), nil
	}

	now := time.Now().UTC()
	takeover := false
	applied, err := c.records.ConditionalUpdate(ctx, rec.ID, StatePaymentVerified, func(r *Record) error {
		takeover = false
		if r.ForwardSignature != "" {
			return ErrAbortUpdate
		}
		if r.ForwardClaimedAt != nil {
			if now.Sub(*r.ForwardClaimedAt) < forwardClaimTTL {
				return ErrAbortUpdate
			}
			takeover = true
		}
		claimed := now
		r.ForwardClaimedAt = &claimed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to claim forwarding: %w", err)
	}
	if !applied {
		latest, err := c.reload(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		if latest.ForwardSignature != "" {
			return result(latest), nil
		}
		return nil, fmt.Errorf("%w: forwarding already in progress, retry shortly", ErrForwardingFailed)
	}

	// A lapsed claim means an earlier claimant may have broadcast without
	// recording the signature. Look for that transfer on chain before
	// broadcasting a second one.
	if takeover {
		if sig := c.findForwarded(ctx, rec); sig != "" {
			return c.recordForwarded(ctx, rec, sig)
		}
	}

	lamports := uint64(rec.Amount.Mul(lamportsPerSOL).IntPart())
	sig, err := c.custodian.TransferSOL(ctx, rec.ToAddress, lamports)
	if err != nil {
		// Release the claim; the record stays payment_verified and
		// retryable. Failing it here would strand verified funds.
		c.releaseClaim(ctx, rec.ID)
		return nil, fmt.Errorf("%w: %v", ErrForwardingFailed, err)
	}

	return c.recordForwarded(ctx, rec, sig)
}

// reconcileScanLimit bounds how far back findForwarded looks through the
// destination's transaction history.
const reconcileScanLimit = 25

// findForwarded scans the destination's recent transactions for a forwarding
// transfer of exactly the record's amount sent by the custodian. Non-empty
// only when an earlier claimant broadcast and then failed to record it.
func (c *Coordinator) findForwarded(ctx context.Context, rec *Record) string {
	sigs, err := c.chain.GetSignaturesForAddress(ctx, rec.ToAddress, reconcileScanLimit)
	if err != nil {
		c.logger.WithError(err).WithField("transfer_id", rec.ID).Warn("forwarding reconcile scan failed")
		return ""
	}

	lamports := uint64(rec.Amount.Mul(lamportsPerSOL).IntPart())
	for _, sig := range sigs {
		tx, err := c.chain.GetTransaction(ctx, sig)
		if err != nil {
			continue
		}
		if !tx.Succeeded() {
			continue
		}
		if tx.LamportsCredited(rec.ToAddress) == lamports && tx.LamportsDebited(rec.TreasuryAddress) >= lamports {
			c.logger.WithFields(logrus.Fields{
				"transfer_id": rec.ID,
				"forward_sig": sig,
			}).Warn("adopting unrecorded forwarding transfer found on chain")
			return sig
		}
	}
	return ""
}

// recordForwarded persists the forwarding signature and moves the record to
// its terminal forwarded state.
func (c *Coordinator) recordForwarded(ctx context.Context, rec *Record, sig string) (*ExecuteResult, error) {
	applied, err := c.records.ConditionalUpdate(ctx, rec.ID, StatePaymentVerified, func(r *Record) error {
		r.State = StateForwarded
		r.ForwardSignature = sig
		r.ForwardClaimedAt = nil
		return nil
	})
	if err != nil || !applied {
		// The broadcast went out but the store write did not land. Surface
		// the signature anyway and log loudly; the claim keeps a racing
		// Execute from broadcasting again within the claim window.
		c.logger.WithError(err).WithFields(logrus.Fields{
			"transfer_id": rec.ID,
			"forward_sig": sig,
		}).Error("forwarded but failed to persist forwarding reference")
	} else {
		c.logger.WithFields(logrus.Fields{
			"transfer_id": rec.ID,
			"forward_sig": sig,
		}).Info("transfer forwarded")
	}

	final, err := c.reload(ctx, rec.ID)
	if err != nil {
		final = rec
		final.State = StateForwarded
		final.ForwardSignature = sig
	}
	c.auditTerminal(ctx, final)
	return result(final), nil
}

// ListByAddress returns a wallet's transfer history, newest first.
func (c *Coordinator) ListByAddress(ctx context.Context, address string, limit int64) ([]*Record, error) {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("%w: invalid address", ErrInvalidInput)
	}
	return c.records.ListByAddress(ctx, address, limit)
}

// TreasuryAddress returns the custodian's receiving address.
func (c *Coordinator) TreasuryAddress() string { return c.custodian.Address() }

func (c *Coordinator) reload(ctx context.Context, id string) (*Record, error) {
	rec, err := c.records.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload transfer %s: %w", id, err)
	}
	return rec, nil
}

func (c *Coordinator) fail(ctx context.Context, rec *Record, reason string) {
	applied, err := c.records.ConditionalUpdate(ctx, rec.ID, rec.State, func(r *Record) error {
		r.State = StateFailed
		r.FailReason = reason
		return nil
	})
	if err != nil || !applied {
		c.logger.WithError(err).WithField("transfer_id", rec.ID).Warn("failed to mark transfer failed")
		return
	}
	rec.State = StateFailed
	rec.FailReason = reason
	c.auditTerminal(ctx, rec)
}

func (c *Coordinator) releaseClaim(ctx context.Context, id string) {
	_, err := c.records.ConditionalUpdate(ctx, id, StatePaymentVerified, func(r *Record) error {
		r.ForwardClaimedAt = nil
		return nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("transfer_id", id).Warn("failed to release forwarding claim")
	}
}

func (c *Coordinator) auditTerminal(ctx context.Context, rec *Record) {
	if c.audit == nil {
		return
	}
	if err := c.audit.RecordTransfer(ctx, rec); err != nil {
		c.logger.WithError(err).WithField("transfer_id", rec.ID).Warn("failed to write audit record")
	}
}

func result(rec *Record) *ExecuteResult {
	return &ExecuteResult{
		TransferID:       rec.ID,
		PaymentSignature: rec.PaymentSignature,
		ForwardSignature: rec.ForwardSignature,
		Destination:      rec.ToAddress,
		Amount:           rec.Amount,
	}
}

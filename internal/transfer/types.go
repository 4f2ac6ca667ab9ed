package transfer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erebus-labs/erebus-gateway/internal/rpc"
)

// State is the lifecycle state of a relay transfer. Forwarded and failed
// are terminal; records are never deleted.
type State string

const (
	StatePrepared        State = "prepared"
	StatePaymentVerified State = "payment_verified"
	StateForwarded       State = "forwarded"
	StateFailed          State = "failed"
)

var (
	// ErrInvalidInput indicates a malformed request rejected before any
	// external call or state transition.
	ErrInvalidInput = errors.New("invalid transfer request")

	// ErrNotFound indicates an unknown transfer identifier.
	ErrNotFound = errors.New("transfer not found")

	// ErrPaymentNotVerified indicates the user's payment to the custodian
	// could not be confirmed. The record stays re-enterable only while the
	// payment was genuinely not found; a payment that was found but does
	// not satisfy the transfer is a permanent failure.
	ErrPaymentNotVerified = errors.New("payment not verified")

	// ErrForwardingFailed indicates the custodian's onward transfer could
	// not be broadcast. The record stays in payment_verified so that a
	// later Execute can retry forwarding without re-verifying payment.
	ErrForwardingFailed = errors.New("forwarding failed")

	// ErrUpstreamUnavailable indicates the RPC collaborator could not be
	// reached. The record is left untouched and retryable.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// Record is one relay transfer in progress. Amounts are in SOL major units;
// TotalPayable always equals Amount + FeeAmount.
type Record struct {
	ID              string          `json:"id"`
	FromAddress     string          `json:"from_address"`
	ToAddress       string          `json:"to_address"`
	Amount          decimal.Decimal `json:"amount"`
	FeeAmount       decimal.Decimal `json:"fee_amount"`
	TotalPayable    decimal.Decimal `json:"total_to_pay"`
	TreasuryAddress string          `json:"treasury_address"`
	State           State           `json:"state"`

	// PaymentSignature is set once the user's payment to the custodian is
	// verified; ForwardSignature only ever after that.
	PaymentSignature string `json:"payment_signature,omitempty"`
	ForwardSignature string `json:"forward_signature,omitempty"`
	FailReason       string `json:"fail_reason,omitempty"`

	// ForwardClaimedAt marks an in-flight forwarding broadcast so that two
	// concurrent Execute calls cannot both enter the broadcast step.
	ForwardClaimedAt *time.Time `json:"forward_claimed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrAbortUpdate is returned by a ConditionalUpdate mutation to abandon the
// write; the store reports applied=false without error.
var ErrAbortUpdate = errors.New("abort update")

// RecordStore is the persistence capability the coordinator relies on.
// ConditionalUpdate must apply the mutation atomically and only when the
// record's current state matches expected; the guarantee has to hold across
// process instances sharing the same backend.
type RecordStore interface {
	Insert(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ConditionalUpdate(ctx context.Context, id string, expected State, mutate func(*Record) error) (bool, error)
	ListByAddress(ctx context.Context, address string, limit int64) ([]*Record, error)
}

// Chain is the RPC capability used to verify the user's payment and to
// reconcile forwarding transfers that were broadcast but never recorded.
type Chain interface {
	GetTransaction(ctx context.Context, signature string) (*rpc.TransactionResult, error)
	GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]string, error)
}

// Custodian holds the treasury keypair and moves funds onward.
type Custodian interface {
	Address() string
	TransferSOL(ctx context.Context, toAddress string, lamports uint64) (string, error)
}

// Auditor receives terminal transfer records for the append-only audit
// trail. Implementations must tolerate repeated delivery.
type Auditor interface {
	RecordTransfer(ctx context.Context, rec *Record) error
}

// FeePolicy computes the relay fee from configuration, not hard-coded logic.
type FeePolicy struct {
	// Percent is the fee fraction, e.g. 0.01 for 1%.
	Percent decimal.Decimal
	// NetworkFeeEstimate is an informational estimate of the on-chain fee
	// the user pays for the deposit leg; it is not part of TotalPayable.
	NetworkFeeEstimate decimal.Decimal
}

// Fee returns the fee owed for transferring amount.
func (p FeePolicy) Fee(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(p.Percent)
}

// PrepareResult is returned by Prepare: the breakdown the user must pay to
// the custodian before Execute can run.
type PrepareResult struct {
	TransferID      string
	Amount          decimal.Decimal
	FeeAmount       decimal.Decimal
	TotalPayable    decimal.Decimal
	TreasuryAddress string
	NetworkFee      decimal.Decimal
}

// ExecuteResult is returned by Execute once forwarding is complete.
type ExecuteResult struct {
	TransferID       string
	PaymentSignature string
	ForwardSignature string
	Destination      string
	Amount           decimal.Decimal
}

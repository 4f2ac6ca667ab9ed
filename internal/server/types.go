package server

import "encoding/json"

// ErrorResponse is the standardized error payload: an HTTP status, a stable
// machine-readable code, and a human message.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Details   any    `json:"details,omitempty"` // dev mode only
}

// Stable machine-readable error codes
const (
	CodeInvalidInput        = "invalid_input"
	CodeNotFound            = "not_found"
	CodeUpstreamUnavailable = "upstream_unavailable"
	CodePaymentNotVerified  = "payment_not_verified"
	CodeForwardingFailed    = "forwarding_failed"
	CodeInternal            = "internal"
)

type HealthResponse struct {
	OK bool `json:"ok"`
}

type BalanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type TokenBalanceResponse struct {
	Balance    float64 `json:"balance"`
	Decimals   int     `json:"decimals"`
	Mint       string  `json:"mint"`
	RawBalance string  `json:"raw_balance"`
}

type SwapQuoteRequest struct {
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	Amount      uint64 `json:"amount"`
	SlippageBps *int   `json:"slippage_bps"`
}

type SwapExecuteRequest struct {
	QuoteResponse                 json.RawMessage `json:"quote_response"`
	UserPublicKey                 string          `json:"user_public_key"`
	WrapUnwrapSol                 *bool           `json:"wrap_unwrap_sol"`
	ComputeUnitPriceMicroLamports *int64          `json:"compute_unit_price_micro_lamports"`
}

type SwapExecuteResponse struct {
	SwapTransaction           string          `json:"swapTransaction"`
	LastValidBlockHeight      uint64          `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports json.RawMessage `json:"prioritizationFeeLamports,omitempty"`
}

type TransferPrepareRequest struct {
	FromAddress string  `json:"from_address"`
	ToAddress   string  `json:"to_address"`
	Amount      float64 `json:"amount"`
}

type FeeBreakdown struct {
	TransferAmount      float64 `json:"transfer_amount"`
	PrivacyFee          float64 `json:"privacy_fee"`
	EstimatedNetworkFee float64 `json:"estimated_network_fee"`
	Total               float64 `json:"total"`
}

type TransferPrepareResponse struct {
	TransferID      string       `json:"transfer_id"`
	Amount          float64      `json:"amount"`
	FeeAmount       float64      `json:"fee_amount"`
	TotalToPay      float64      `json:"total_to_pay"`
	TreasuryAddress string       `json:"treasury_address"`
	Breakdown       FeeBreakdown `json:"breakdown"`
	Deprecated      string       `json:"deprecated,omitempty"`
}

type TransferExecuteRequest struct {
	TransferID       string `json:"transfer_id"`
	PaymentSignature string `json:"payment_signature"`
	FromAddress      string `json:"from_address"`
}

type TransferExecuteResponse struct {
	Success              bool    `json:"success"`
	TransferID           string  `json:"transfer_id"`
	PaymentSignature     string  `json:"payment_signature"`
	DestinationSignature string  `json:"destination_signature"`
	Amount               float64 `json:"amount"`
	Destination          string  `json:"destination"`
	PaymentExplorer      string  `json:"payment_explorer"`
	DestinationExplorer  string  `json:"destination_explorer"`
}

// TransactionView is one row of a wallet's transfer history.
type TransactionView struct {
	ID               string  `json:"id"`
	FromAddress      string  `json:"from_address"`
	ToAddress        string  `json:"to_address"`
	Amount           float64 `json:"amount"`
	FeeAmount        float64 `json:"fee_amount"`
	TotalToPay       float64 `json:"total_to_pay"`
	State            string  `json:"state"`
	PaymentSignature string  `json:"payment_signature,omitempty"`
	ForwardSignature string  `json:"forward_signature,omitempty"`
	Timestamp        string  `json:"timestamp"`
}

type TransactionsResponse struct {
	Transactions []TransactionView `json:"transactions"`
}

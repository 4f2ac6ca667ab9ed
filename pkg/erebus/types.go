package erebus

import "encoding/json"

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

type TokenInfo struct {
	Address  string   `json:"address"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Decimals int      `json:"decimals"`
	LogoURI  string   `json:"logoURI"`
	Tags     []string `json:"tags"`
}

type BalanceResponse struct {
	Address string  `json:"address"`
	Balance float64 `json:"balance"`
}

type TokenBalance struct {
	Balance    float64 `json:"balance"`
	Decimals   int     `json:"decimals"`
	Mint       string  `json:"mint"`
	RawBalance string  `json:"raw_balance"`
}

// WalletToken is one holding in a wallet's token listing: curated metadata
// where the gateway has it, plus the balance.
type WalletToken struct {
	TokenInfo
	Balance    float64 `json:"balance"`
	RawBalance string  `json:"raw_balance"`
}

type SwapQuoteRequest struct {
	InputMint   string `json:"input_mint"`
	OutputMint  string `json:"output_mint"`
	Amount      uint64 `json:"amount"`
	SlippageBps int    `json:"slippage_bps"`
}

// SwapQuote is the aggregator-shaped quote. Fallback marks an estimate that
// cannot be executed; always check it before calling ExecuteSwap.
type SwapQuote struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
	Fallback             bool            `json:"_fallback,omitempty"`
	Note                 string          `json:"_note,omitempty"`
}

type SwapExecuteRequest struct {
	QuoteResponse                 json.RawMessage `json:"quote_response"`
	UserPublicKey                 string          `json:"user_public_key"`
	WrapUnwrapSol                 *bool           `json:"wrap_unwrap_sol,omitempty"`
	ComputeUnitPriceMicroLamports *int64          `json:"compute_unit_price_micro_lamports,omitempty"`
}

type SwapExecuteResponse struct {
	SwapTransaction           string          `json:"swapTransaction"`
	LastValidBlockHeight      uint64          `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports json.RawMessage `json:"prioritizationFeeLamports,omitempty"`
}

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

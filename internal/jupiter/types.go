package jupiter

import "encoding/json"

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	SlippageBps int
}

type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	OutputMint           string          `json:"outputMint"`
	InAmount             string          `json:"inAmount"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            []RoutePlanStep `json:"routePlan"`

	ContextSlot uint64  `json:"contextSlot,omitempty"`
	TimeTaken   float64 `json:"timeTaken,omitempty"`
}

type RoutePlanStep struct {
	SwapInfo SwapInfo `json:"swapInfo"`
	Percent  *uint8   `json:"percent,omitempty"`
}

type SwapInfo struct {
	AmmKey     string `json:"ammKey"`
	Label      string `json:"label,omitempty"`
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`

	FeeAmount *string `json:"feeAmount,omitempty"`
	FeeMint   *string `json:"feeMint,omitempty"`
}

// SwapRequest asks the aggregator to build an unsigned swap transaction for
// a previously obtained quote. QuoteResponse is forwarded verbatim.
type SwapRequest struct {
	QuoteResponse                 json.RawMessage
	UserPublicKey                 string
	WrapAndUnwrapSol              bool
	ComputeUnitPriceMicroLamports *int64
}

type SwapResponse struct {
	SwapTransaction           string          `json:"swapTransaction"`
	LastValidBlockHeight      uint64          `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports json.RawMessage `json:"prioritizationFeeLamports,omitempty"`
}

// PriceResponse is the aggregator price API payload, keyed by symbol or mint.
type PriceResponse struct {
	Data map[string]json.RawMessage `json:"data"`
}

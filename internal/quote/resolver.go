package quote

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/erebus-labs/erebus-gateway/internal/jupiter"
	"github.com/erebus-labs/erebus-gateway/internal/tokens"
)

// ErrInvalidInput indicates a malformed quote request, rejected before any
// upstream call is made.
var ErrInvalidInput = errors.New("invalid quote request")

const (
	ProvenanceLive      = "live"
	ProvenanceEstimated = "estimated"

	fallbackNote = "aggregator unreachable - using estimated pricing"

	// aggregatorBudget bounds the single live attempt so fallback latency
	// stays predictable. One attempt then fallback, no retries.
	aggregatorBudget = 5 * time.Second
)

// Aggregator is the capability the resolver needs from the swap aggregator.
type Aggregator interface {
	Quote(ctx context.Context, req jupiter.QuoteRequest) (*jupiter.QuoteResponse, error)
}

// Quote is an aggregator-shaped quote annotated with its provenance. The
// Fallback and Note fields ride along in the JSON payload so that clients
// (and the swap execute handler) can tell an estimate from a live quote.
type Quote struct {
	jupiter.QuoteResponse
	Fallback bool   `json:"_fallback,omitempty"`
	Note     string `json:"_note,omitempty"`
}

// Provenance reports where the quote came from.
func (q *Quote) Provenance() string {
	if q.Fallback {
		return ProvenanceEstimated
	}
	return ProvenanceLive
}

// Request carries the validated parameters of one quote lookup.
type Request struct {
	InputMint   string
	OutputMint  string
	Amount      uint64 // smallest unit of the input token
	SlippageBps int
}

func (r Request) validate() error {
	if r.Amount == 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if r.SlippageBps < 0 || r.SlippageBps > 10000 {
		return fmt.Errorf("%w: slippage_bps must be within 0..10000", ErrInvalidInput)
	}
	if _, err := solana.PublicKeyFromBase58(r.InputMint); err != nil {
		return fmt.Errorf("%w: invalid input mint", ErrInvalidInput)
	}
	if _, err := solana.PublicKeyFromBase58(r.OutputMint); err != nil {
		return fmt.Errorf("%w: invalid output mint", ErrInvalidInput)
	}
	return nil
}

// Resolver produces best-effort swap quotes: live from the aggregator when
// it answers, estimated from the static price table when it does not.
type Resolver struct {
	aggregator Aggregator
	registry   *tokens.Registry
	logger     *logrus.Logger
}

func NewResolver(aggregator Aggregator, registry *tokens.Registry, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
	}
	return &Resolver{aggregator: aggregator, registry: registry, logger: logger}
}

// GetQuote attempts one live aggregator quote and falls back to the static
// price table on any transport failure, timeout, or non-success status.
// The fallback can fail with tokens.ErrUnknownToken when a mint is not in
// the curated registry.
func (r *Resolver) GetQuote(ctx context.Context, req Request) (*Quote, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, aggregatorBudget)
	defer cancel()

	live, err := r.aggregator.Quote(attemptCtx, jupiter.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: req.SlippageBps,
	})
	if err == nil {
		return &Quote{QuoteResponse: *live}, nil
	}

	var httpErr *jupiter.HTTPError
	switch {
	case errors.As(err, &httpErr):
		r.logger.WithField("status", httpErr.StatusCode).Warn("aggregator returned non-success status, using fallback quote")
	case errors.Is(err, context.DeadlineExceeded):
		r.logger.Warn("aggregator quote timed out, using fallback quote")
	default:
		r.logger.WithError(err).Warn("aggregator unreachable, using fallback quote")
	}

	return r.estimate(req)
}

// estimate computes a quote from the curated registry and the static USD
// price table, applying the requested slippage with floor rounding.
func (r *Resolver) estimate(req Request) (*Quote, error) {
	inputToken, err := r.registry.ByMint(req.InputMint)
	if err != nil {
		return nil, err
	}
	outputToken, err := r.registry.ByMint(req.OutputMint)
	if err != nil {
		return nil, err
	}

	inputPrice := r.registry.USDPrice(inputToken.Symbol)
	outputPrice := r.registry.USDPrice(outputToken.Symbol)

	inputMajor := float64(req.Amount) / math.Pow10(inputToken.Decimals)
	outputMajor := inputMajor * inputPrice / outputPrice
	outAmount := uint64(math.Floor(outputMajor * math.Pow10(outputToken.Decimals)))

	slippageFactor := 1 - float64(req.SlippageBps)/10000
	outAmount = uint64(math.Floor(float64(outAmount) * slippageFactor))

	return &Quote{
		QuoteResponse: jupiter.QuoteResponse{
			InputMint:            req.InputMint,
			OutputMint:           req.OutputMint,
			InAmount:             strconv.FormatUint(req.Amount, 10),
			OutAmount:            strconv.FormatUint(outAmount, 10),
			OtherAmountThreshold: strconv.FormatUint(uint64(math.Floor(float64(outAmount)*0.99)), 10),
			SwapMode:             "ExactIn",
			SlippageBps:          req.SlippageBps,
			PriceImpactPct:       "0.1",
			RoutePlan:            []jupiter.RoutePlanStep{},
		},
		Fallback: true,
		Note:     fallbackNote,
	}, nil
}

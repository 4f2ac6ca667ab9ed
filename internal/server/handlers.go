package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/erebus-labs/erebus-gateway/internal/jupiter"
	"github.com/erebus-labs/erebus-gateway/internal/quote"
	"github.com/erebus-labs/erebus-gateway/internal/rpc"
	"github.com/erebus-labs/erebus-gateway/internal/tokens"
	"github.com/erebus-labs/erebus-gateway/internal/transfer"
)

const (
	lamportsPerSOL  = 1_000_000_000
	tokenProgramID  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	explorerTxURL   = "https://solscan.io/tx/"
	defaultSlippage = 50
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	RPC       *rpc.Client
	Jupiter   *jupiter.Client
	Registry  *tokens.Registry
	Quotes    *quote.Resolver
	Transfers *transfer.Coordinator
	DevMode   bool
	Logger    *logrus.Logger
}

// err returns a standardized JSON error response. In dev mode it carries
// additional details for debugging.
func (h *Handlers) err(c echo.Context, code int, errorCode, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code, ErrorCode: errorCode}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// domainErr maps a typed domain error to its HTTP response.
func (h *Handlers) domainErr(c echo.Context, err error) error {
	code, errorCode := classify(err)
	return h.err(c, code, errorCode, err.Error(), nil)
}

func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Root identifies the API
func (h *Handlers) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "Erebus Protocol API - ZK Privacy on Solana"})
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// TreasuryAddress returns the custodian's receiving address
func (h *Handlers) TreasuryAddress(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"address": h.Transfers.TreasuryAddress(),
		"message": "Treasury wallet address",
	})
}

// Balance returns the SOL balance of an address
func (h *Handlers) Balance(c echo.Context) error {
	address := strings.TrimSpace(c.Param("address"))
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid address", map[string]any{"address": "must be base58"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	lamports, err := h.RPC.GetBalance(ctx, address)
	if err != nil {
		return h.domainErr(c, err)
	}

	return c.JSON(http.StatusOK, BalanceResponse{
		Address: address,
		Balance: float64(lamports) / lamportsPerSOL,
	})
}

// TokenList serves the curated popular-token registry
func (h *Handlers) TokenList(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Registry.List())
}

// TokenInfo returns token metadata by mint address; mints outside the
// curated registry are resolved from chain on demand.
func (h *Handlers) TokenInfo(c echo.Context) error {
	mint := strings.TrimSpace(c.Param("mint"))
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid mint", nil)
	}

	if t, err := h.Registry.ByMint(mint); err == nil {
		return c.JSON(http.StatusOK, t)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	info, err := h.RPC.GetAccountInfo(ctx, mint)
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return h.err(c, http.StatusNotFound, CodeNotFound, "token not found on chain", nil)
		}
		return h.domainErr(c, err)
	}

	t, err := tokens.FromMintAccount(mint, info.Data)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, CodeInternal, "failed to parse mint account", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, t)
}

// TokenBalance returns the SPL token balance for a wallet and mint. A
// wallet with no token account for the mint reads as a zero balance.
func (h *Handlers) TokenBalance(c echo.Context) error {
	wallet := strings.TrimSpace(c.Param("wallet"))
	mint := strings.TrimSpace(c.Param("mint"))
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid wallet", nil)
	}
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid mint", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	zero := TokenBalanceResponse{Mint: mint, RawBalance: "0"}
	accounts, err := h.RPC.GetTokenAccountsByOwner(ctx, wallet, map[string]interface{}{"mint": mint})
	if err != nil {
		h.Logger.WithError(err).Warn("token balance lookup failed")
		return c.JSON(http.StatusOK, zero)
	}
	if len(accounts) == 0 {
		return c.JSON(http.StatusOK, zero)
	}

	amount := accounts[0].Account.Data.Parsed.Info.TokenAmount
	return c.JSON(http.StatusOK, TokenBalanceResponse{
		Balance:    amount.UIAmount,
		Decimals:   amount.Decimals,
		Mint:       mint,
		RawBalance: amount.Amount,
	})
}

// WalletTokens lists all SPL tokens held by a wallet with balances, enriched
// with curated metadata where available. Errors read as an empty wallet.
func (h *Handlers) WalletTokens(c echo.Context) error {
	wallet := strings.TrimSpace(c.Param("wallet"))
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid wallet", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	empty := map[string]any{"tokens": []any{}, "count": 0}
	accounts, err := h.RPC.GetTokenAccountsByOwner(ctx, wallet, map[string]interface{}{"programId": tokenProgramID})
	if err != nil {
		h.Logger.WithError(err).Warn("wallet tokens lookup failed")
		return c.JSON(http.StatusOK, empty)
	}

	type walletToken struct {
		tokens.Descriptor
		Balance    float64 `json:"balance"`
		RawBalance string  `json:"raw_balance"`
	}

	out := make([]walletToken, 0, len(accounts))
	for _, acct := range accounts {
		info := acct.Account.Data.Parsed.Info
		if info.Mint == "" || info.TokenAmount.UIAmount <= 0 {
			continue
		}

		desc, err := h.Registry.ByMint(info.Mint)
		if err != nil {
			desc = tokens.Unknown(info.Mint, info.TokenAmount.Decimals)
		}
		out = append(out, walletToken{
			Descriptor: desc,
			Balance:    info.TokenAmount.UIAmount,
			RawBalance: info.TokenAmount.Amount,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Balance > out[j].Balance })

	return c.JSON(http.StatusOK, map[string]any{"tokens": out, "count": len(out)})
}

// SwapQuote resolves a swap quote, live from the aggregator when possible
// and estimated from the static price table otherwise. The provenance is
// always part of the payload.
func (h *Handlers) SwapQuote(c echo.Context) error {
	var req SwapQuoteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid json", nil)
	}

	slippage := defaultSlippage
	if req.SlippageBps != nil {
		slippage = *req.SlippageBps
	}

	q, err := h.Quotes.GetQuote(c.Request().Context(), quote.Request{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		SlippageBps: slippage,
	})
	if err != nil {
		return h.domainErr(c, err)
	}
	return c.JSON(http.StatusOK, q)
}

// SwapExecute builds a swap transaction through the aggregator. Estimated
// quotes are refused: there is no route to execute against.
func (h *Handlers) SwapExecute(c echo.Context) error {
	var req SwapExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid json", nil)
	}
	if len(req.QuoteResponse) == 0 {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "quote_response is required", nil)
	}
	if strings.TrimSpace(req.UserPublicKey) == "" {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "user_public_key is required", nil)
	}

	if quoteIsEstimated(req.QuoteResponse) {
		return h.err(c, http.StatusServiceUnavailable, CodeUpstreamUnavailable,
			"swap execution unavailable: the quote is an estimate produced while the aggregator was unreachable; request a fresh quote and try again", nil)
	}

	wrapSol := true
	if req.WrapUnwrapSol != nil {
		wrapSol = *req.WrapUnwrapSol
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	out, err := h.Jupiter.Swap(ctx, jupiter.SwapRequest{
		QuoteResponse:                 req.QuoteResponse,
		UserPublicKey:                 req.UserPublicKey,
		WrapAndUnwrapSol:              wrapSol,
		ComputeUnitPriceMicroLamports: req.ComputeUnitPriceMicroLamports,
	})
	if err != nil {
		var httpErr *jupiter.HTTPError
		if errors.As(err, &httpErr) {
			return h.err(c, http.StatusBadGateway, CodeUpstreamUnavailable,
				fmt.Sprintf("aggregator swap error: status %d", httpErr.StatusCode), map[string]any{"body": string(httpErr.Body)})
		}
		return h.err(c, http.StatusServiceUnavailable, CodeUpstreamUnavailable, "aggregator unavailable", map[string]any{"err": err.Error()})
	}

	return c.JSON(http.StatusOK, SwapExecuteResponse{
		SwapTransaction:           out.SwapTransaction,
		LastValidBlockHeight:      out.LastValidBlockHeight,
		PrioritizationFeeLamports: out.PrioritizationFeeLamports,
	})
}

// TransferPrepare is phase one of the relay transfer: allocate a transfer
// record and tell the caller what to pay the custodian.
func (h *Handlers) TransferPrepare(c echo.Context) error {
	return h.prepare(c, "")
}

// TransferLegacy answers the deprecated single-phase transfer endpoint by
// running the prepare phase; the immediate-send variant is retired.
func (h *Handlers) TransferLegacy(c echo.Context) error {
	return h.prepare(c, "single-phase transfer is deprecated; pay total_to_pay to treasury_address, then call /api/transfer/sol/execute")
}

func (h *Handlers) prepare(c echo.Context, deprecationNote string) error {
	var req TransferPrepareRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid json", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Transfers.Prepare(ctx, req.FromAddress, req.ToAddress, decimal.NewFromFloat(req.Amount))
	if err != nil {
		return h.domainErr(c, err)
	}

	return c.JSON(http.StatusOK, TransferPrepareResponse{
		TransferID:      res.TransferID,
		Amount:          res.Amount.InexactFloat64(),
		FeeAmount:       res.FeeAmount.InexactFloat64(),
		TotalToPay:      res.TotalPayable.InexactFloat64(),
		TreasuryAddress: res.TreasuryAddress,
		Breakdown: FeeBreakdown{
			TransferAmount:      res.Amount.InexactFloat64(),
			PrivacyFee:          res.FeeAmount.InexactFloat64(),
			EstimatedNetworkFee: res.NetworkFee.InexactFloat64(),
			Total:               res.TotalPayable.InexactFloat64(),
		},
		Deprecated: deprecationNote,
	})
}

// TransferExecute is phase two: verify the user's payment and forward the
// funds. Idempotent per transfer id.
func (h *Handlers) TransferExecute(c echo.Context) error {
	var req TransferExecuteRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid json", nil)
	}
	if strings.TrimSpace(req.TransferID) == "" {
		return h.err(c, http.StatusBadRequest, CodeInvalidInput, "transfer_id is required", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 45*time.Second)
	defer cancel()

	res, err := h.Transfers.Execute(ctx, req.TransferID, req.PaymentSignature, req.FromAddress)
	if err != nil {
		return h.domainErr(c, err)
	}

	return c.JSON(http.StatusOK, TransferExecuteResponse{
		Success:              true,
		TransferID:           res.TransferID,
		PaymentSignature:     res.PaymentSignature,
		DestinationSignature: res.ForwardSignature,
		Amount:               res.Amount.InexactFloat64(),
		Destination:          res.Destination,
		PaymentExplorer:      explorerTxURL + res.PaymentSignature,
		DestinationExplorer:  explorerTxURL + res.ForwardSignature,
	})
}

// Transactions returns a wallet's transfer history, newest first
func (h *Handlers) Transactions(c echo.Context) error {
	address := strings.TrimSpace(c.Param("address"))

	limit := int64(50)
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 1 || n > 200 {
			return h.err(c, http.StatusBadRequest, CodeInvalidInput, "invalid limit", map[string]any{"limit": "min 1 max 200"})
		}
		limit = n
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	records, err := h.Transfers.ListByAddress(ctx, address, limit)
	if err != nil {
		return h.domainErr(c, err)
	}

	views := make([]TransactionView, 0, len(records))
	for _, rec := range records {
		views = append(views, TransactionView{
			ID:               rec.ID,
			FromAddress:      rec.FromAddress,
			ToAddress:        rec.ToAddress,
			Amount:           rec.Amount.InexactFloat64(),
			FeeAmount:        rec.FeeAmount.InexactFloat64(),
			TotalToPay:       rec.TotalPayable.InexactFloat64(),
			State:            string(rec.State),
			PaymentSignature: rec.PaymentSignature,
			ForwardSignature: rec.ForwardSignature,
			Timestamp:        rec.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, TransactionsResponse{Transactions: views})
}

// Prices proxies the aggregator price API for the headline tokens; an
// unreachable aggregator reads as an empty data set.
func (h *Handlers) Prices(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Jupiter.Prices(ctx, []string{"SOL", "USDC", "USDT"})
	if err != nil {
		h.Logger.WithError(err).Warn("price fetch failed")
		return c.JSON(http.StatusOK, map[string]any{"data": map[string]any{}})
	}
	return c.JSON(http.StatusOK, res)
}

// quoteIsEstimated reports whether a quote payload carries the fallback
// marker set by the quote resolver.
func quoteIsEstimated(raw []byte) bool {
	var probe struct {
		Fallback bool `json:"_fallback"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.Fallback
}

// Package erebus is a small Go client for the Erebus gateway HTTP API. It
// mirrors the HTTP endpoints one to one.
package erebus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running gateway instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx response from the gateway, carrying the stable
// machine-readable error code when the gateway supplied one.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("erebus api %d (%s): %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("erebus api %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a client for the gateway at apiURL, e.g.
// "http://localhost:8001".
func NewClient(apiURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(apiURL), "/") + "/api",
		http:    &http.Client{Timeout: timeout},
	}
}

// TreasuryAddress returns the custodian's receiving address.
func (c *Client) TreasuryAddress(ctx context.Context) (string, error) {
	var out struct {
		Address string `json:"address"`
	}
	if err := c.get(ctx, "/treasury/address", &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

// Balance returns the SOL balance of an address.
func (c *Client) Balance(ctx context.Context, address string) (*BalanceResponse, error) {
	var out BalanceResponse
	if err := c.get(ctx, "/balance/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TokenList returns the curated popular-token list.
func (c *Client) TokenList(ctx context.Context) ([]TokenInfo, error) {
	var out []TokenInfo
	if err := c.get(ctx, "/token-list", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TokenInfo returns token metadata by mint address.
func (c *Client) TokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	var out TokenInfo
	if err := c.get(ctx, "/token-info/"+url.PathEscape(mint), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TokenBalance returns the wallet's balance for a single SPL mint. A wallet
// with no token account for the mint reads as zero.
func (c *Client) TokenBalance(ctx context.Context, wallet, mint string) (*TokenBalance, error) {
	var out TokenBalance
	if err := c.get(ctx, "/token-balance/"+url.PathEscape(wallet)+"/"+url.PathEscape(mint), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WalletTokens lists all SPL tokens held by a wallet, largest balance first.
func (c *Client) WalletTokens(ctx context.Context, address string) ([]WalletToken, error) {
	var out struct {
		Tokens []WalletToken `json:"tokens"`
		Count  int           `json:"count"`
	}
	if err := c.get(ctx, "/wallet-tokens/"+url.PathEscape(address), &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

// SwapQuote requests a swap quote. Check Fallback on the result before
// executing: estimates are refused by ExecuteSwap.
func (c *Client) SwapQuote(ctx context.Context, req SwapQuoteRequest) (*SwapQuote, error) {
	var out SwapQuote
	if err := c.post(ctx, "/swap/quote", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteSwap asks the gateway to build a swap transaction for a live quote.
func (c *Client) ExecuteSwap(ctx context.Context, req SwapExecuteRequest) (*SwapExecuteResponse, error) {
	var out SwapExecuteResponse
	if err := c.post(ctx, "/swap/execute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PrepareSOLTransfer runs phase one of the relay transfer: the gateway
// allocates a transfer id and returns the fee breakdown plus the treasury
// address the caller must pay.
func (c *Client) PrepareSOLTransfer(ctx context.Context, req TransferPrepareRequest) (*TransferPrepareResponse, error) {
	var out TransferPrepareResponse
	if err := c.post(ctx, "/transfer/sol/prepare", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteSOLTransfer runs phase two: after paying the treasury, pass the
// payment signature and the gateway forwards funds to the destination.
// Safe to retry with the same transfer id.
func (c *Client) ExecuteSOLTransfer(ctx context.Context, req TransferExecuteRequest) (*TransferExecuteResponse, error) {
	var out TransferExecuteResponse
	if err := c.post(ctx, "/transfer/sol/execute", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions returns a wallet's transfer history, newest first.
func (c *Client) Transactions(ctx context.Context, address string, limit int) ([]TransactionView, error) {
	path := "/transactions/" + url.PathEscape(address)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Transactions []TransactionView `json:"transactions"`
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

// Prices returns current USD prices for the headline tokens.
func (c *Client) Prices(ctx context.Context) (map[string]json.RawMessage, error) {
	var out struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := c.get(ctx, "/prices", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("accept", "application/json")
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(raw))}
		var payload struct {
			Error     string `json:"error"`
			ErrorCode string `json:"error_code"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.ErrorCode = payload.ErrorCode
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

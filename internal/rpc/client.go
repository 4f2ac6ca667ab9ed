package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Client is an HTTP client with retry and timeout support for Solana JSON-RPC
type Client struct {
	httpClient   *http.Client
	baseURL      string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logrus.Logger
}

// ClientConfig holds configuration for the RPC client
type ClientConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *logrus.Logger
}

// NewClient creates a new RPC client with retry support
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:      cfg.BaseURL,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       cfg.Logger,
	}
}

// Call makes a JSON-RPC call with retry logic
func (c *Client) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"attempt": attempt,
				"backoff": backoff,
				"method":  method,
			}).Debug("retrying RPC call")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2 // exponential backoff
		}

		resp, err := c.doRequest(ctx, data)
		if err != nil {
			lastErr = err
			continue
		}

		if err := json.Unmarshal(resp, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}

		return nil
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, data []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// GetBalance fetches the lamport balance of an address
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	var resp struct {
		Result struct {
			Value uint64 `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []interface{}{address, map[string]interface{}{"commitment": "confirmed"}}
	if err := c.Call(ctx, "getBalance", params, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error
	}
	return resp.Result.Value, nil
}

// GetAccountInfo fetches raw account data for an address, base64-encoded.
// Returns ErrNotFound for accounts that do not exist on chain.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var resp struct {
		Result struct {
			Value *AccountInfo `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []interface{}{
		address,
		map[string]interface{}{
			"encoding":   "base64",
			"commitment": "confirmed",
		},
	}
	if err := c.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result.Value == nil {
		return nil, ErrNotFound
	}
	return resp.Result.Value, nil
}

// GetTransaction fetches finalized transaction details for a signature.
// Returns ErrNotFound when the signature is unknown to the cluster.
func (c *Client) GetTransaction(ctx context.Context, signature string) (*TransactionResult, error) {
	var resp struct {
		Result *TransactionResult `json:"result"`
		Error  *RPCError          `json:"error"`
	}

	params := []interface{}{
		signature,
		map[string]interface{}{
			"encoding":                       "jsonParsed",
			"commitment":                     "finalized",
			"maxSupportedTransactionVersion": 0,
		},
	}
	if err := c.Call(ctx, "getTransaction", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if resp.Result == nil {
		return nil, ErrNotFound
	}
	return resp.Result, nil
}

// GetSignaturesForAddress returns signatures of recent finalized transactions
// involving an address, newest first. Transactions that failed on chain are
// skipped.
func (c *Client) GetSignaturesForAddress(ctx context.Context, address string, limit int) ([]string, error) {
	var resp struct {
		Result []struct {
			Signature string      `json:"signature"`
			Err       interface{} `json:"err"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []interface{}{
		address,
		map[string]interface{}{
			"limit":      limit,
			"commitment": "finalized",
		},
	}
	if err := c.Call(ctx, "getSignaturesForAddress", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}

	sigs := make([]string, 0, len(resp.Result))
	for _, s := range resp.Result {
		if s.Err != nil {
			continue
		}
		sigs = append(sigs, s.Signature)
	}
	return sigs, nil
}

// GetLatestBlockhash fetches the most recent blockhash
func (c *Client) GetLatestBlockhash(ctx context.Context) (*Blockhash, error) {
	var resp struct {
		Result struct {
			Value Blockhash `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []interface{}{map[string]interface{}{"commitment": "confirmed"}}
	if err := c.Call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return &resp.Result.Value, nil
}

// SendTransaction broadcasts a base64-encoded signed transaction and returns
// the signature reported by the node.
func (c *Client) SendTransaction(ctx context.Context, encodedTx string) (string, error) {
	var resp struct {
		Result string    `json:"result"`
		Error  *RPCError `json:"error"`
	}

	params := []interface{}{
		encodedTx,
		map[string]interface{}{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": "processed",
		},
	}
	if err := c.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", resp.Error
	}
	return resp.Result, nil
}

// GetTokenAccountsByOwner fetches jsonParsed SPL token accounts for a wallet.
// The filter is either {"mint": ...} or {"programId": ...}.
func (c *Client) GetTokenAccountsByOwner(ctx context.Context, owner string, filter map[string]interface{}) ([]ParsedTokenAccount, error) {
	var resp struct {
		Result struct {
			Value []ParsedTokenAccount `json:"value"`
		} `json:"result"`
		Error *RPCError `json:"error"`
	}

	params := []interface{}{
		owner,
		filter,
		map[string]interface{}{"encoding": "jsonParsed"},
	}
	if err := c.Call(ctx, "getTokenAccountsByOwner", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Result.Value, nil
}

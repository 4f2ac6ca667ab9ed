package jupiter

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

// Client talks to the Jupiter aggregator HTTP API. The quote client carries
// a deliberately short timeout so that callers can fall back to estimated
// pricing without stalling the request.
type Client struct {
	BaseURL  string
	PriceURL string
	APIKey   string

	quoteHTTP *http.Client
	swapHTTP  *http.Client
}

func NewClient(baseURL, priceURL, apiKey string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "https://quote-api.jup.ag/v6"
	}
	priceURL = strings.TrimRight(strings.TrimSpace(priceURL), "/")
	if priceURL == "" {
		priceURL = "https://api.jup.ag/price/v2"
	}
	return &Client{
		BaseURL:  baseURL,
		PriceURL: priceURL,
		APIKey:   strings.TrimSpace(apiKey),
		quoteHTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
		swapHTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	b := strings.TrimSpace(string(e.Body))
	if b == "" {
		return fmt.Sprintf("jupiter http %d", e.StatusCode)
	}
	return fmt.Sprintf("jupiter http %d: %s", e.StatusCode, b)
}

// Quote requests a swap quote. A transport failure, timeout, or non-2xx
// status is returned as an error for the caller to classify.
func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	if strings.TrimSpace(req.InputMint) == "" {
		return nil, fmt.Errorf("inputMint is required")
	}
	if strings.TrimSpace(req.OutputMint) == "" {
		return nil, fmt.Errorf("outputMint is required")
	}
	if req.Amount == 0 {
		return nil, fmt.Errorf("amount is required")
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	q.Set("onlyDirectRoutes", "false")
	q.Set("asLegacyTransaction", "false")

	u := c.BaseURL + "/quote?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.quoteHTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out QuoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter quote response: %w", err)
	}
	return &out, nil
}

// Swap asks the aggregator to build an unsigned swap transaction for the
// supplied quote. The quote payload is forwarded untouched.
func (c *Client) Swap(ctx context.Context, req SwapRequest) (*SwapResponse, error) {
	if strings.TrimSpace(req.UserPublicKey) == "" {
		return nil, fmt.Errorf("userPublicKey is required")
	}
	if len(req.QuoteResponse) == 0 {
		return nil, fmt.Errorf("quoteResponse is required")
	}

	payload := map[string]interface{}{
		"quoteResponse":             req.QuoteResponse,
		"userPublicKey":             req.UserPublicKey,
		"wrapAndUnwrapSol":          req.WrapAndUnwrapSol,
		"dynamicComputeUnitLimit":   true,
		"prioritizationFeeLamports": "auto",
	}
	if req.ComputeUnitPriceMicroLamports != nil {
		payload["computeUnitPriceMicroLamports"] = *req.ComputeUnitPriceMicroLamports
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal swap request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/swap", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-api-key", c.APIKey)
	}

	res, err := c.swapHTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out SwapResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter swap response: %w", err)
	}
	return &out, nil
}

// Prices fetches current USD prices for a set of symbols or mints.
func (c *Client) Prices(ctx context.Context, ids []string) (*PriceResponse, error) {
	u := c.PriceURL + "?ids=" + url.QueryEscape(strings.Join(ids, ","))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("accept", "application/json")

	res, err := c.quoteHTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: res.StatusCode, Body: body}
	}

	var out PriceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode jupiter price response: %w", err)
	}
	return &out, nil
}

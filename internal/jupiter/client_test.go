package jupiter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSOLMint  = "So11111111111111111111111111111111111111112"
	testUSDCMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestQuote(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("x-api-key"))
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"inputMint": "` + testSOLMint + `",
			"outputMint": "` + testUSDCMint + `",
			"inAmount": "1000000000",
			"outAmount": "180000000",
			"otherAmountThreshold": "179100000",
			"swapMode": "ExactIn",
			"slippageBps": 50,
			"priceImpactPct": "0.01",
			"routePlan": [{"swapInfo": {"ammKey": "amm1", "inputMint": "` + testSOLMint + `", "outputMint": "` + testUSDCMint + `", "inAmount": "1000000000", "outAmount": "180000000"}}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "secret")
	quote, err := c.Quote(context.Background(), QuoteRequest{
		InputMint:   testSOLMint,
		OutputMint:  testUSDCMint,
		Amount:      1_000_000_000,
		SlippageBps: 50,
	})
	require.NoError(t, err)

	assert.Equal(t, "180000000", quote.OutAmount)
	assert.Equal(t, "ExactIn", quote.SwapMode)
	require.Len(t, quote.RoutePlan, 1)
	assert.Equal(t, "amm1", quote.RoutePlan[0].SwapInfo.AmmKey)

	assert.Equal(t, "1000000000", gotQuery["amount"])
	assert.Equal(t, "50", gotQuery["slippageBps"])
	assert.Equal(t, "false", gotQuery["onlyDirectRoutes"])
}

func TestQuote_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"No routes found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	_, err := c.Quote(context.Background(), QuoteRequest{
		InputMint:  testSOLMint,
		OutputMint: testUSDCMint,
		Amount:     1,
	})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Contains(t, httpErr.Error(), "No routes found")
}

func TestQuote_MissingFields(t *testing.T) {
	c := NewClient("http://unused", "", "")

	_, err := c.Quote(context.Background(), QuoteRequest{OutputMint: testUSDCMint, Amount: 1})
	assert.Error(t, err)

	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: testSOLMint, Amount: 1})
	assert.Error(t, err)

	_, err = c.Quote(context.Background(), QuoteRequest{InputMint: testSOLMint, OutputMint: testUSDCMint})
	assert.Error(t, err)
}

func TestSwap(t *testing.T) {
	var gotPayload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/swap", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"swapTransaction": "AQABbase64tx", "lastValidBlockHeight": 12345}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "")
	res, err := c.Swap(context.Background(), SwapRequest{
		QuoteResponse:    json.RawMessage(`{"inputMint":"` + testSOLMint + `"}`),
		UserPublicKey:    "user-pubkey",
		WrapAndUnwrapSol: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "AQABbase64tx", res.SwapTransaction)
	assert.Equal(t, uint64(12345), res.LastValidBlockHeight)

	assert.Equal(t, "user-pubkey", gotPayload["userPublicKey"])
	assert.Equal(t, true, gotPayload["wrapAndUnwrapSol"])
	assert.Equal(t, true, gotPayload["dynamicComputeUnitLimit"])
	assert.Equal(t, "auto", gotPayload["prioritizationFeeLamports"])
	quote, ok := gotPayload["quoteResponse"].(map[string]interface{})
	require.True(t, ok, "quote must be forwarded as an object, not a string")
	assert.Equal(t, testSOLMint, quote["inputMint"])
}

func TestSwap_MissingFields(t *testing.T) {
	c := NewClient("http://unused", "", "")

	_, err := c.Swap(context.Background(), SwapRequest{UserPublicKey: "user"})
	assert.Error(t, err)

	_, err = c.Swap(context.Background(), SwapRequest{QuoteResponse: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOL,USDC", r.URL.Query().Get("ids"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": {"SOL": {"price": "180.5"}, "USDC": {"price": "1.0"}}}`))
	}))
	defer srv.Close()

	c := NewClient("http://unused", srv.URL, "")
	res, err := c.Prices(context.Background(), []string{"SOL", "USDC"})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Contains(t, res.Data, "SOL")
}

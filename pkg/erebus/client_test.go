package erebus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreasuryAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/treasury/address", r.URL.Path)
		_, _ = w.Write([]byte(`{"address": "treasury-pubkey", "message": "Treasury wallet address"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	addr, err := c.TreasuryAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "treasury-pubkey", addr)
}

func TestPrepareAndExecuteSOLTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/transfer/sol/prepare":
			var req TransferPrepareRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 1.0, req.Amount)
			_, _ = w.Write([]byte(`{
				"transfer_id": "t-1", "amount": 1.0, "fee_amount": 0.01, "total_to_pay": 1.01,
				"treasury_address": "treasury-pubkey",
				"breakdown": {"transfer_amount": 1.0, "privacy_fee": 0.01, "estimated_network_fee": 0.000005, "total": 1.01}
			}`))
		case "/api/transfer/sol/execute":
			var req TransferExecuteRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "t-1", req.TransferID)
			_, _ = w.Write([]byte(`{
				"success": true, "transfer_id": "t-1", "payment_signature": "pay-sig",
				"destination_signature": "fwd-sig", "amount": 1.0, "destination": "dest-pubkey",
				"payment_explorer": "https://solscan.io/tx/pay-sig",
				"destination_explorer": "https://solscan.io/tx/fwd-sig"
			}`))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	prep, err := c.PrepareSOLTransfer(ctx, TransferPrepareRequest{
		FromAddress: "from-pubkey",
		ToAddress:   "dest-pubkey",
		Amount:      1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "t-1", prep.TransferID)
	assert.Equal(t, 1.01, prep.TotalToPay)
	assert.Equal(t, 0.01, prep.Breakdown.PrivacyFee)

	exec, err := c.ExecuteSOLTransfer(ctx, TransferExecuteRequest{
		TransferID:       prep.TransferID,
		PaymentSignature: "pay-sig",
		FromAddress:      "from-pubkey",
	})
	require.NoError(t, err)
	assert.True(t, exec.Success)
	assert.Equal(t, "fwd-sig", exec.DestinationSignature)
}

func TestTransactions_LimitParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transactions/wallet-a", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"transactions": [{"id": "t-1", "state": "forwarded", "amount": 1.0}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	txs, err := c.Transactions(context.Background(), "wallet-a", 5)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "forwarded", txs[0].State)
}

func TestTokenBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/token-balance/wallet-a/mint-usdc", r.URL.Path)
		_, _ = w.Write([]byte(`{"balance": 123.0, "decimals": 6, "mint": "mint-usdc", "raw_balance": "123000000"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	bal, err := c.TokenBalance(context.Background(), "wallet-a", "mint-usdc")
	require.NoError(t, err)
	assert.Equal(t, 123.0, bal.Balance)
	assert.Equal(t, 6, bal.Decimals)
	assert.Equal(t, "123000000", bal.RawBalance)
}

func TestWalletTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/wallet-tokens/wallet-a", r.URL.Path)
		_, _ = w.Write([]byte(`{"tokens": [
			{"address": "mint-usdc", "symbol": "USDC", "name": "USD Coin", "decimals": 6,
			 "tags": ["verified", "stablecoin"], "balance": 123.0, "raw_balance": "123000000"}
		], "count": 1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	toks, err := c.WalletTokens(context.Background(), "wallet-a")
	require.NoError(t, err)
	require.Len(t, toks, 1)
	assert.Equal(t, "USDC", toks[0].Symbol)
	assert.Equal(t, 123.0, toks[0].Balance)
	assert.Contains(t, toks[0].Tags, "stablecoin")
}

func TestAPIErrorDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"error": "payment not verified", "code": 402, "error_code": "payment_not_verified"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.ExecuteSOLTransfer(context.Background(), TransferExecuteRequest{TransferID: "t-1"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.StatusCode)
	assert.Equal(t, "payment_not_verified", apiErr.ErrorCode)
	assert.Equal(t, "payment not verified", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "payment_not_verified")
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.TreasuryAddress(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, "gateway timeout", apiErr.Message)
	assert.Empty(t, apiErr.ErrorCode)
}

func TestPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/prices", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": {"SOL": {"price": "180.5"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	prices, err := c.Prices(context.Background())
	require.NoError(t, err)
	assert.Contains(t, prices, "SOL")
}

package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erebus-labs/erebus-gateway/internal/rpc"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func rpcClientFor(url string) *rpc.Client {
	return rpc.NewClient(rpc.ClientConfig{
		BaseURL: url,
		Logger:  quietLogger(),
	})
}

func TestNewTreasury_Base58Key(t *testing.T) {
	w := solana.NewWallet()
	secret := base58.Encode(w.PrivateKey)

	tr, err := NewTreasury(secret, rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey().String(), tr.Address())
	assert.True(t, w.PublicKey().Equals(tr.PublicKey()))
}

func TestNewTreasury_JSONArrayKey(t *testing.T) {
	w := solana.NewWallet()
	parts := make([]string, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		parts[i] = fmt.Sprintf("%d", b)
	}
	secret := "[" + strings.Join(parts, ",") + "]"

	tr, err := NewTreasury(secret, rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey().String(), tr.Address())
}

func TestNewTreasury_GeneratesWhenEmpty(t *testing.T) {
	a, err := NewTreasury("", rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)
	b, err := NewTreasury("   ", rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)

	assert.NotEmpty(t, a.Address())
	assert.NotEqual(t, a.Address(), b.Address())
}

func TestNewTreasury_BadKeys(t *testing.T) {
	for _, secret := range []string{
		"not!base58!at!all",
		"[1,2,3]",
		"[300]",
		"[bad json",
		base58.Encode([]byte{1, 2, 3}),
	} {
		_, err := NewTreasury(secret, rpcClientFor("http://unused"), quietLogger())
		assert.Error(t, err, "secret %q", secret)
	}
}

func TestSign(t *testing.T) {
	w := solana.NewWallet()
	tr, err := NewTreasury(base58.Encode(w.PrivateKey), rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)

	sig, err := tr.Sign([]byte("attest"))
	require.NoError(t, err)
	assert.Len(t, sig, 64)
}

func TestTransferSOL(t *testing.T) {
	blockhash := solana.NewWallet().PublicKey().String() // any 32-byte base58 value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")

		switch req["method"] {
		case "getLatestBlockhash":
			_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":{"context":{"slot":1},"value":{"blockhash":%q,"lastValidBlockHeight":100}}}`, blockhash)
		case "sendTransaction":
			params := req["params"].([]interface{})
			encodedTx, ok := params[0].(string)
			require.True(t, ok)
			assert.NotEmpty(t, encodedTx)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"forward-signature"}`))
		default:
			t.Fatalf("unexpected method %v", req["method"])
		}
	}))
	defer srv.Close()

	wlt := solana.NewWallet()
	tr, err := NewTreasury(base58.Encode(wlt.PrivateKey), rpcClientFor(srv.URL), quietLogger())
	require.NoError(t, err)

	dest := solana.NewWallet().PublicKey().String()
	sig, err := tr.TransferSOL(context.Background(), dest, 1_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, "forward-signature", sig)
}

func TestTransferSOL_InvalidDestination(t *testing.T) {
	tr, err := NewTreasury("", rpcClientFor("http://unused"), quietLogger())
	require.NoError(t, err)

	_, err = tr.TransferSOL(context.Background(), "not-an-address", 1)
	assert.Error(t, err)
}

package tokens

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_List(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	require.Len(t, list, 10)
	assert.Equal(t, "SOL", list[0].Symbol)
	assert.Equal(t, "USDC", list[1].Symbol)
	assert.Equal(t, "PYTH", list[9].Symbol)

	// mutating the returned slice must not touch the registry
	list[0].Symbol = "MUTATED"
	assert.Equal(t, "SOL", r.List()[0].Symbol)
}

func TestRegistry_ByMint(t *testing.T) {
	r := NewRegistry()

	tok, err := r.ByMint("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	require.NoError(t, err)
	assert.Equal(t, "USDC", tok.Symbol)
	assert.Equal(t, 6, tok.Decimals)
	assert.Contains(t, tok.Tags, "stablecoin")

	_, err = r.ByMint("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	assert.ErrorIs(t, err, ErrUnknownToken)
}

func TestRegistry_USDPrice(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 180.0, r.USDPrice("SOL"))
	assert.Equal(t, 0.000025, r.USDPrice("BONK"))
	assert.Equal(t, 1.0, r.USDPrice("UNLISTED"))
}

func TestUnknown(t *testing.T) {
	d := Unknown("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4", 6)
	assert.Equal(t, "JUP6", d.Symbol)
	assert.Equal(t, "Unknown Token", d.Name)
	assert.Equal(t, 6, d.Decimals)
	assert.Equal(t, []string{"custom"}, d.Tags)
}

func TestFromMintAccount(t *testing.T) {
	mint := "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"

	raw := make([]byte, 82)
	raw[44] = 6
	data := []string{base64.StdEncoding.EncodeToString(raw), "base64"}

	d, err := FromMintAccount(mint, data)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Decimals)
	assert.Equal(t, "JUP6...TAV4", d.Symbol)
	assert.Equal(t, "Custom Token", d.Name)
}

func TestFromMintAccount_DefaultsWithoutData(t *testing.T) {
	d, err := FromMintAccount("So11111111111111111111111111111111111111112", nil)
	require.NoError(t, err)
	assert.Equal(t, 9, d.Decimals)
}

func TestFromMintAccount_BadBase64(t *testing.T) {
	_, err := FromMintAccount("mint", []string{"not-base64!!"})
	assert.Error(t, err)
}

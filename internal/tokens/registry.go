package tokens

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken indicates a mint that is not in the curated registry.
var ErrUnknownToken = errors.New("token not found")

// Descriptor describes a fungible token as served by the token endpoints.
type Descriptor struct {
	Address  string   `json:"address"`
	Symbol   string   `json:"symbol"`
	Name     string   `json:"name"`
	Decimals int      `json:"decimals"`
	LogoURI  string   `json:"logoURI"`
	Tags     []string `json:"tags"`
}

const defaultLogoURI = "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/So11111111111111111111111111111111111111112/logo.png"

// curated is the static popular-token registry. Order matters: the token
// list endpoint serves it as-is.
var curated = []Descriptor{
	{Address: "So11111111111111111111111111111111111111112", Symbol: "SOL", Name: "Wrapped SOL", Decimals: 9, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/So11111111111111111111111111111111111111112/logo.png", Tags: []string{"verified"}},
	{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v/logo.png", Tags: []string{"verified", "stablecoin"}},
	{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "USDT", Decimals: 6, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB/logo.png", Tags: []string{"verified", "stablecoin"}},
	{Address: "7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs", Symbol: "ETH", Name: "Ether (Portal)", Decimals: 8, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/7vfCXTUXx5WJV5JADk17DUJ4ksgau7utNKj4b963voxs/logo.png", Tags: []string{"verified"}},
	{Address: "mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So", Symbol: "mSOL", Name: "Marinade staked SOL", Decimals: 9, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/mSoLzYCxHdYgdzU16g5QSh3i5K3z3KZK7ytfqcJm7So/logo.png", Tags: []string{"verified"}},
	{Address: "7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj", Symbol: "stSOL", Name: "Lido Staked SOL", Decimals: 9, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/7dHbWXmci3dT8UFYWYZweBLXgycu7Y3iL6trKn1Y7ARj/logo.png", Tags: []string{"verified"}},
	{Address: "J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn", Symbol: "JitoSOL", Name: "Jito Staked SOL", Decimals: 9, LogoURI: "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/J1toso1uCk3RLmjorhTtrVwY9HJ7X8V9yYac6Y7kGCPn/logo.png", Tags: []string{"verified"}},
	{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Symbol: "BONK", Name: "Bonk", Decimals: 5, LogoURI: "https://arweave.net/hQiPZOsRZXGXBJd_82PhVdlM_hACsT_q6wqwf5cSY7I", Tags: []string{"verified"}},
	{Address: "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr", Symbol: "POPCAT", Name: "Popcat", Decimals: 9, LogoURI: "https://bafkreibk3covs5ltyqxa272uodhculbr6kea6betidfwy3ajsav2vjzyum.ipfs.nftstorage.link", Tags: []string{"verified"}},
	{Address: "HZ1JovNiVvGrGNiiYvEozEVgZ58xaU3RKwX8eACQBCt3", Symbol: "PYTH", Name: "Pyth Network", Decimals: 6, LogoURI: "https://pyth.network/token.svg", Tags: []string{"verified"}},
}

// USDPrices is the static per-symbol estimate table used when live pricing
// is unavailable.
var USDPrices = map[string]float64{
	"SOL":     180.0,
	"USDC":    1.0,
	"USDT":    1.0,
	"ETH":     3200.0,
	"mSOL":    195.0,
	"stSOL":   195.0,
	"JitoSOL": 198.0,
	"BONK":    0.000025,
	"POPCAT":  0.85,
	"PYTH":    0.45,
}

// Registry answers token metadata lookups against the curated list.
type Registry struct {
	byMint map[string]Descriptor
}

func NewRegistry() *Registry {
	byMint := make(map[string]Descriptor, len(curated))
	for _, t := range curated {
		byMint[t.Address] = t
	}
	return &Registry{byMint: byMint}
}

// List returns the curated tokens in registry order.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, len(curated))
	copy(out, curated)
	return out
}

// ByMint looks up a curated token by its mint address.
func (r *Registry) ByMint(mint string) (Descriptor, error) {
	t, ok := r.byMint[mint]
	if !ok {
		return Descriptor{}, ErrUnknownToken
	}
	return t, nil
}

// USDPrice returns the static USD estimate for a curated symbol, defaulting
// to 1.0 for symbols the table does not cover.
func (r *Registry) USDPrice(symbol string) float64 {
	if p, ok := USDPrices[symbol]; ok {
		return p
	}
	return 1.0
}

// Unknown builds a placeholder descriptor for a mint that was seen on chain
// but has no curated metadata.
func Unknown(mint string, decimals int) Descriptor {
	return Descriptor{
		Address:  mint,
		Symbol:   strings.ToUpper(shortPrefix(mint, 4)),
		Name:     "Unknown Token",
		Decimals: decimals,
		LogoURI:  defaultLogoURI,
		Tags:     []string{"custom"},
	}
}

// FromMintAccount builds a descriptor for an on-chain mint from its raw
// account data. The SPL mint layout stores decimals at byte 44.
func FromMintAccount(mint string, data []string) (Descriptor, error) {
	decimals := 9
	if len(data) > 0 {
		raw, err := base64.StdEncoding.DecodeString(data[0])
		if err != nil {
			return Descriptor{}, fmt.Errorf("invalid mint account data: %w", err)
		}
		if len(raw) >= 45 {
			decimals = int(raw[44])
		}
	}

	symbol := strings.ToUpper(shortPrefix(mint, 4)) + "..." + strings.ToUpper(shortSuffix(mint, 4))
	return Descriptor{
		Address:  mint,
		Symbol:   symbol,
		Name:     "Custom Token",
		Decimals: decimals,
		LogoURI:  defaultLogoURI,
		Tags:     []string{"custom"},
	}, nil
}

func shortPrefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

func shortSuffix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[len(s)-n:]
}

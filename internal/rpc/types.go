package rpc

import "errors"

// ErrUnavailable indicates the RPC node could not be reached or kept
// returning transport-level failures after all retries.
var ErrUnavailable = errors.New("rpc unavailable")

// ErrNotFound indicates the requested signature or account does not exist.
var ErrNotFound = errors.New("rpc: not found")

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// TokenAmount represents token balance information
type TokenAmount struct {
	Amount         string  `json:"amount"`
	Decimals       int     `json:"decimals"`
	UIAmountString string  `json:"uiAmountString"`
	UIAmount       float64 `json:"uiAmount"`
}

// TransactionMeta contains balance movements recorded for a transaction
type TransactionMeta struct {
	Err          interface{} `json:"err"`
	Fee          uint64      `json:"fee"`
	PreBalances  []uint64    `json:"preBalances"`
	PostBalances []uint64    `json:"postBalances"`
}

// AccountKey represents an account in a transaction message
type AccountKey struct {
	Pubkey string `json:"pubkey"`
}

// TransactionMessage contains the transaction message
type TransactionMessage struct {
	AccountKeys []AccountKey `json:"accountKeys"`
}

// Transaction represents a parsed transaction
type Transaction struct {
	Message TransactionMessage `json:"message"`
}

// TransactionResult contains the full transaction data
type TransactionResult struct {
	Slot        uint64           `json:"slot"`
	BlockTime   *int64           `json:"blockTime"`
	Meta        *TransactionMeta `json:"meta"`
	Transaction *Transaction     `json:"transaction"`
}

// Succeeded reports whether the transaction executed without a program error.
func (t *TransactionResult) Succeeded() bool {
	return t.Meta != nil && t.Meta.Err == nil
}

// LamportsCredited returns how many lamports the transaction credited to
// address, or zero if the address did not gain funds.
func (t *TransactionResult) LamportsCredited(address string) uint64 {
	if t.Meta == nil || t.Transaction == nil {
		return 0
	}
	for i, key := range t.Transaction.Message.AccountKeys {
		if key.Pubkey != address {
			continue
		}
		if i >= len(t.Meta.PreBalances) || i >= len(t.Meta.PostBalances) {
			return 0
		}
		pre, post := t.Meta.PreBalances[i], t.Meta.PostBalances[i]
		if post > pre {
			return post - pre
		}
		return 0
	}
	return 0
}

// LamportsDebited returns how many lamports the transaction debited from
// address, or zero if the address did not lose funds.
func (t *TransactionResult) LamportsDebited(address string) uint64 {
	if t.Meta == nil || t.Transaction == nil {
		return 0
	}
	for i, key := range t.Transaction.Message.AccountKeys {
		if key.Pubkey != address {
			continue
		}
		if i >= len(t.Meta.PreBalances) || i >= len(t.Meta.PostBalances) {
			return 0
		}
		pre, post := t.Meta.PreBalances[i], t.Meta.PostBalances[i]
		if pre > post {
			return pre - post
		}
		return 0
	}
	return 0
}

// AccountInfo is the decoded value of a getAccountInfo response.
// Data is ["<base64>", "base64"] when base64 encoding is requested.
type AccountInfo struct {
	Lamports uint64   `json:"lamports"`
	Owner    string   `json:"owner"`
	Data     []string `json:"data"`
}

// ParsedTokenAccount is one entry of a jsonParsed getTokenAccountsByOwner
// response, narrowed to the fields this service reads.
type ParsedTokenAccount struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data struct {
			Parsed struct {
				Info struct {
					Mint        string      `json:"mint"`
					TokenAmount TokenAmount `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

// Blockhash is the value of a getLatestBlockhash response
type Blockhash struct {
	Blockhash            string `json:"blockhash"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

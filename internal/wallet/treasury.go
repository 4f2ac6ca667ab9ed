package wallet

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/erebus-labs/erebus-gateway/internal/rpc"
)

// Treasury is the custodian keypair. It temporarily receives user funds and
// forwards them onward; the private key is held in memory only.
type Treasury struct {
	rpc  *rpc.Client
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// NewTreasury loads the custodian keypair from secret, which is either a
// base58-encoded 64-byte key or a solana-keygen JSON byte array. An empty
// secret generates a fresh keypair; its material is logged once so an
// operator can pin it, and is never persisted by this process.
func NewTreasury(secret string, rpcClient *rpc.Client, logger *logrus.Logger) (*Treasury, error) {
	if rpcClient == nil {
		return nil, fmt.Errorf("treasury: rpc client is required")
	}
	if logger == nil {
		logger = logrus.New()
	}

	var priv solana.PrivateKey
	if strings.TrimSpace(secret) == "" {
		w := solana.NewWallet()
		priv = w.PrivateKey
		logger.WithFields(logrus.Fields{
			"public_key":  priv.PublicKey().String(),
			"private_key": base58.Encode(priv),
		}).Warn("no treasury key configured, generated a fresh keypair; set TREASURY_PRIVATE_KEY to keep it")
	} else {
		parsed, err := parsePrivateKey(secret)
		if err != nil {
			return nil, err
		}
		priv = parsed
	}

	return &Treasury{
		rpc:  rpcClient,
		priv: priv,
		pub:  priv.PublicKey(),
	}, nil
}

// Address returns the custodian's receiving address.
func (t *Treasury) Address() string { return t.pub.String() }

// PublicKey returns the custodian public key.
func (t *Treasury) PublicKey() solana.PublicKey { return t.pub }

// Sign signs an arbitrary message with the custodian key.
func (t *Treasury) Sign(message []byte) ([]byte, error) {
	sig, err := t.priv.Sign(message)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

// TransferSOL builds, signs, and broadcasts a system-program transfer of
// lamports from the custodian to the destination address. Returns the
// transaction signature reported by the node.
func (t *Treasury) TransferSOL(ctx context.Context, toAddress string, lamports uint64) (string, error) {
	to, err := solana.PublicKeyFromBase58(toAddress)
	if err != nil {
		return "", fmt.Errorf("invalid destination address: %w", err)
	}

	blockhash, err := t.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}
	recent, err := solana.HashFromBase58(blockhash.Blockhash)
	if err != nil {
		return "", fmt.Errorf("invalid blockhash format: %w", err)
	}

	ix := system.NewTransferInstruction(lamports, t.pub, to).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent,
		solana.TransactionPayer(t.pub),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(t.pub) {
			return &t.priv
		}
		return nil
	}); err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	txBytes, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	sig, err := t.rpc.SendTransaction(ctx, base64.StdEncoding.EncodeToString(txBytes))
	if err != nil {
		return "", err
	}
	return sig, nil
}

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("treasury: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("treasury: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("treasury: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(b), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("treasury: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("treasury: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(raw), nil
}

// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	bip39 "github.com/tyler-smith/go-bip39"
)

// Wallet is a named Solana keypair.
type Wallet struct {
	Name       string
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey

	mu       sync.RWMutex
	ataCache map[solana.PublicKey]solana.PublicKey
}

func fromPrivateKey(name string, key solana.PrivateKey) (*Wallet, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key length: expected %d bytes, got %d", ed25519.PrivateKeySize, len(key))
	}
	return &Wallet{
		Name:       name,
		PrivateKey: key,
		PublicKey:  key.PublicKey(),
		ataCache:   make(map[solana.PublicKey]solana.PublicKey),
	}, nil
}

// NewWallet creates a wallet from a base58-encoded 64-byte private key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	raw, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	return fromPrivateKey("", solana.PrivateKey(raw))
}

// FromKeygenFile loads a solana-keygen JSON byte array.
func FromKeygenFile(path string) (*Wallet, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file %s: %w", path, err)
	}
	return fromPrivateKey("", key)
}

// FromMnemonic derives a wallet from a BIP39 mnemonic. An empty path takes the first
// 32 seed bytes, as solana-keygen does; otherwise path is a hardened SLIP-10 path
// such as m/44'/501'/0'/0'.
func FromMnemonic(mnemonic, passphrase, path string) (*Wallet, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}
	keySeed := seed[:ed25519.SeedSize]
	if path != "" {
		if keySeed, err = deriveSLIP10(seed, path); err != nil {
			return nil, err
		}
	}
	return fromPrivateKey("", solana.PrivateKey(ed25519.NewKeyFromSeed(keySeed)))
}

// SignTransaction signs every slot of tx that belongs to this wallet.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	return SignWith(tx, w)
}

// SignWith signs tx with wallets. Placeholder signatures, as returned by swap
// APIs that leave the signing to the user, are discarded first.
func SignWith(tx *solana.Transaction, wallets ...*Wallet) error {
	if onlyPlaceholders(tx.Signatures) {
		tx.Signatures = nil
	}
	_, err := tx.Sign(KeyGetter(wallets...))
	return err
}

func onlyPlaceholders(sigs []solana.Signature) bool {
	for _, sig := range sigs {
		if !sig.IsZero() {
			return false
		}
	}
	return true
}

// KeyGetter resolves signers among wallets, for transactions signed by several of them.
func KeyGetter(wallets ...*Wallet) func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		for _, w := range wallets {
			if key.Equals(w.PublicKey) {
				return &w.PrivateKey
			}
		}
		return nil
	}
}

// GetATA returns the associated token account for mint, caching the derivation.
func (w *Wallet) GetATA(mint solana.PublicKey) (solana.PublicKey, error) {
	w.mu.RLock()
	ata, ok := w.ataCache[mint]
	w.mu.RUnlock()
	if ok {
		return ata, nil
	}
	ata, _, err := solana.FindAssociatedTokenAddress(w.PublicKey, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	w.mu.Lock()
	w.ataCache[mint] = ata
	w.mu.Unlock()
	return ata, nil
}

// PrecomputeATAs fills the ATA cache for mints ahead of time.
func (w *Wallet) PrecomputeATAs(mints []solana.PublicKey) error {
	for _, mint := range mints {
		if _, err := w.GetATA(mint); err != nil {
			return fmt.Errorf("failed to precompute ATA for mint %s: %w", mint.String(), err)
		}
	}
	return nil
}

// String returns the wallet's public key.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

package keyvault

import (
	"context"
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/internal/crypto"
	"github.com/aegis-wallet/aegisd/internal/types"
	"github.com/aegis-wallet/aegisd/storage"
)

const privateKeyLen = 64 // ed25519 seed || public key

// BalanceFetcher reads the on-chain SOL balance for a public key.
type BalanceFetcher interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, error)
}

// BalanceCache is a short-TTL cache in front of BalanceFetcher.
type BalanceCache interface {
	GetBalance(ctx context.Context, pubkey string) (uint64, bool, error)
	SetBalance(ctx context.Context, pubkey string, lamports uint64) error
}

// BackupStore holds encrypted wallet records off-site and hands them back
// for restore.
type BackupStore interface {
	UploadWalletBackup(backup storage.WalletBackup) error
	GetWalletBackup(walletID string) (storage.WalletBackup, error)
	DeleteWalletBackup(walletID string) error
}

// Vault owns keypair generation/import and the password-based protection of
// private key material. Key bytes exist in plaintext only inside a single
// call and are scrubbed before it returns.
type Vault struct {
	db       storage.WalletRepository
	balances BalanceFetcher
	cache    BalanceCache
	backup   BackupStore
	params   crypto.Params
	logger   *logrus.Logger
}

// Option configures optional collaborators; the vault works without them.
type Option func(*Vault)

func WithBalances(fetcher BalanceFetcher, cache BalanceCache) Option {
	return func(v *Vault) {
		v.balances = fetcher
		v.cache = cache
	}
}

func WithBackup(store BackupStore) Option {
	return func(v *Vault) {
		v.backup = store
	}
}

func WithKDFParams(params crypto.Params) Option {
	return func(v *Vault) {
		v.params = params
	}
}

func NewVault(db storage.WalletRepository, logger *logrus.Logger, opts ...Option) *Vault {
	v := &Vault{
		db:     db,
		params: crypto.DefaultParams(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// CreateWallet generates a fresh keypair, seals the private key under the
// password, and persists the record. The stored wallet is active iff it is
// the user's first.
func (v *Vault) CreateWallet(ctx context.Context, userID, name, password string) (types.WalletSummary, error) {
	wallet := solana.NewWallet()
	defer clear(wallet.PrivateKey)

	return v.store(ctx, userID, name, password, wallet.PrivateKey)
}

// ImportWallet accepts an existing private key in base58 or hex. A wallet
// with the same public key, owned by anyone, refuses the import.
func (v *Vault) ImportWallet(ctx context.Context, userID, name, rawKey, password string) (types.WalletSummary, error) {
	priv, err := decodePrivateKey(rawKey)
	if err != nil {
		return types.WalletSummary{}, err
	}
	defer clear(priv)

	// refuse before the scrypt work when the key is already in custody; the
	// unique index on pubkey remains the authoritative guard
	_, err = v.db.GetWalletByPubkey(ctx, priv.PublicKey().String())
	if err == nil {
		return types.WalletSummary{}, types.ErrDuplicateWallet
	}
	if !errors.Is(err, types.ErrWalletNotFound) {
		return types.WalletSummary{}, err
	}

	return v.store(ctx, userID, name, password, priv)
}

func (v *Vault) store(ctx context.Context, userID, name, password string, priv solana.PrivateKey) (types.WalletSummary, error) {
	ciphertext, salt, err := crypto.Encrypt(priv, []byte(password), v.params)
	if err != nil {
		return types.WalletSummary{}, fmt.Errorf("fail to encrypt private key, err: %w", err)
	}

	stored, err := v.db.InsertWallet(ctx, types.Wallet{
		ID:                  uuid.New(),
		UserID:              userID,
		Pubkey:              priv.PublicKey().String(),
		Name:                name,
		EncryptedPrivateKey: ciphertext,
		Salt:                salt,
	})
	if err != nil {
		return types.WalletSummary{}, err
	}

	v.backupWallet(stored)

	return stored.Summary(), nil
}

// backupWallet ships the ciphertext record off-site, best effort: custody
// correctness never depends on the backup succeeding.
func (v *Vault) backupWallet(w types.Wallet) {
	if v.backup == nil {
		return
	}
	err := v.backup.UploadWalletBackup(storage.WalletBackup{
		ID:                  w.ID.String(),
		Pubkey:              w.Pubkey,
		EncryptedPrivateKey: w.EncryptedPrivateKey,
		Salt:                w.Salt,
	})
	if err != nil {
		v.logger.Errorf("fail to upload wallet backup %s, err: %v", w.ID, err)
	}
}

// RestoreWallet re-admits a wallet from its off-site backup after the
// primary record is lost. The caller must supply the password the key was
// sealed under; the ciphertext is decrypted and checked against the
// backed-up public key before anything is persisted, so a stranger holding
// only the wallet id cannot restore it into their own account.
func (v *Vault) RestoreWallet(ctx context.Context, userID, name string, walletID uuid.UUID, password string) (types.WalletSummary, error) {
	if v.backup == nil {
		return types.WalletSummary{}, fmt.Errorf("no backup store configured: %w", types.ErrWalletNotFound)
	}

	backup, err := v.backup.GetWalletBackup(walletID.String())
	if err != nil {
		v.logger.Warnf("fail to fetch wallet backup %s, err: %v", walletID, err)
		return types.WalletSummary{}, types.ErrWalletNotFound
	}

	raw, err := crypto.Decrypt(backup.EncryptedPrivateKey, backup.Salt, []byte(password), v.params)
	if errors.Is(err, crypto.ErrCorruptedCiphertext) {
		v.logger.WithField("wallet", walletID).Errorf("corrupted backup record: %v", err)
		return types.WalletSummary{}, types.ErrWalletNotFound
	}
	if errors.Is(err, crypto.ErrDecryptionFailed) {
		return types.WalletSummary{}, types.ErrWrongPassword
	}
	if err != nil {
		return types.WalletSummary{}, fmt.Errorf("fail to decrypt wallet backup, err: %w", err)
	}
	defer clear(raw)

	if len(raw) != privateKeyLen || solana.PrivateKey(raw).PublicKey().String() != backup.Pubkey {
		return types.WalletSummary{}, types.ErrWrongPassword
	}

	stored, err := v.db.InsertWallet(ctx, types.Wallet{
		ID:                  uuid.New(),
		UserID:              userID,
		Pubkey:              backup.Pubkey,
		Name:                name,
		EncryptedPrivateKey: backup.EncryptedPrivateKey,
		Salt:                backup.Salt,
	})
	if err != nil {
		return types.WalletSummary{}, err
	}
	return stored.Summary(), nil
}

// GetPrivateKey re-derives the encryption key from the stored salt and the
// supplied password, decrypts, and verifies the plaintext reproduces the
// stored public key. A wrong password fails here deterministically. The
// caller must scrub the returned key after use.
func (v *Vault) GetPrivateKey(ctx context.Context, walletID uuid.UUID, password string) (solana.PrivateKey, error) {
	wallet, err := v.db.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	raw, err := crypto.Decrypt(wallet.EncryptedPrivateKey, wallet.Salt, []byte(password), v.params)
	if errors.Is(err, crypto.ErrCorruptedCiphertext) {
		// the record is permanently unreadable; treat it as gone
		v.logger.WithField("wallet", wallet.ID).Errorf("corrupted ciphertext record: %v", err)
		return nil, types.ErrWalletNotFound
	}
	if errors.Is(err, crypto.ErrDecryptionFailed) {
		return nil, types.ErrWrongPassword
	}
	if err != nil {
		return nil, fmt.Errorf("fail to decrypt private key, err: %w", err)
	}

	if len(raw) != privateKeyLen {
		clear(raw)
		v.logger.WithField("wallet", wallet.ID).Error("decrypted key has wrong length")
		return nil, types.ErrWalletNotFound
	}

	priv := solana.PrivateKey(raw)
	if priv.PublicKey().String() != wallet.Pubkey {
		clear(raw)
		return nil, types.ErrWrongPassword
	}
	return priv, nil
}

func (v *Vault) SetActiveWallet(ctx context.Context, userID string, walletID uuid.UUID) error {
	return v.db.SetActiveWallet(ctx, userID, walletID)
}

func (v *Vault) DeleteWallet(ctx context.Context, userID string, walletID uuid.UUID) error {
	if err := v.db.DeleteWallet(ctx, userID, walletID); err != nil {
		return err
	}
	if v.backup != nil {
		if err := v.backup.DeleteWalletBackup(walletID.String()); err != nil {
			v.logger.Warnf("fail to delete wallet backup %s, err: %v", walletID, err)
		}
	}
	return nil
}

func (v *Vault) GetWallet(ctx context.Context, walletID uuid.UUID) (types.Wallet, error) {
	return v.db.GetWallet(ctx, walletID)
}

// ListWallets returns the user's wallets, with balances attached when a
// balance source is configured. Balance lookups are best effort.
func (v *Vault) ListWallets(ctx context.Context, userID string) ([]types.WalletSummary, error) {
	wallets, err := v.db.ListWallets(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]types.WalletSummary, 0, len(wallets))
	for _, w := range wallets {
		s := w.Summary()
		if lamports, ok := v.fetchBalance(ctx, w.Pubkey); ok {
			s.Balance = &lamports
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (v *Vault) GetActiveWallet(ctx context.Context, userID string) (types.WalletSummary, error) {
	w, err := v.db.GetActiveWallet(ctx, userID)
	if err != nil {
		return types.WalletSummary{}, err
	}
	s := w.Summary()
	if lamports, ok := v.fetchBalance(ctx, w.Pubkey); ok {
		s.Balance = &lamports
	}
	return s, nil
}

func (v *Vault) fetchBalance(ctx context.Context, pubkey string) (uint64, bool) {
	if v.balances == nil {
		return 0, false
	}
	if v.cache != nil {
		if lamports, ok, err := v.cache.GetBalance(ctx, pubkey); err == nil && ok {
			return lamports, true
		}
	}
	lamports, err := v.balances.GetBalance(ctx, pubkey)
	if err != nil {
		v.logger.Warnf("fail to fetch balance for %s, err: %v", pubkey, err)
		return 0, false
	}
	if v.cache != nil {
		if err := v.cache.SetBalance(ctx, pubkey, lamports); err != nil {
			v.logger.Warnf("fail to cache balance for %s, err: %v", pubkey, err)
		}
	}
	return lamports, true
}

// decodePrivateKey accepts the two wire encodings for a 64-byte keypair and
// checks internal consistency: the embedded public key must match the one
// derived from the seed.
func decodePrivateKey(raw string) (solana.PrivateKey, error) {
	var keyBytes []byte

	if decoded, err := hex.DecodeString(raw); err == nil && len(decoded) == privateKeyLen {
		keyBytes = decoded
	} else {
		priv, err := solana.PrivateKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: not base58 or hex", types.ErrInvalidPrivateKey)
		}
		keyBytes = priv
	}

	if len(keyBytes) != privateKeyLen {
		return nil, fmt.Errorf("%w: key must be %d bytes", types.ErrInvalidPrivateKey, privateKeyLen)
	}

	derived := ed25519.NewKeyFromSeed(keyBytes[:32]).Public().(ed25519.PublicKey)
	if subtle.ConstantTimeCompare(derived, keyBytes[32:]) != 1 {
		return nil, fmt.Errorf("%w: public key does not match seed", types.ErrInvalidPrivateKey)
	}

	return solana.PrivateKey(keyBytes), nil
}

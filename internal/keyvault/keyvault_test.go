package keyvault

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-wallet/aegisd/internal/crypto"
	"github.com/aegis-wallet/aegisd/internal/types"
	"github.com/aegis-wallet/aegisd/storage"
)

// fakeWalletRepo mirrors the conditional-write semantics of the postgres
// backend in memory.
type fakeWalletRepo struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]types.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: map[uuid.UUID]types.Wallet{}}
}

func (f *fakeWalletRepo) InsertWallet(_ context.Context, w types.Wallet) (types.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.wallets {
		if existing.Pubkey == w.Pubkey {
			return types.Wallet{}, types.ErrDuplicateWallet
		}
	}
	w.IsActive = true
	for _, existing := range f.wallets {
		if existing.UserID == w.UserID {
			w.IsActive = false
			break
		}
	}
	f.wallets[w.ID] = w
	return w, nil
}

func (f *fakeWalletRepo) GetWallet(_ context.Context, id uuid.UUID) (types.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.wallets[id]
	if !ok {
		return types.Wallet{}, types.ErrWalletNotFound
	}
	return w, nil
}

func (f *fakeWalletRepo) GetWalletByPubkey(_ context.Context, pubkey string) (types.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.Pubkey == pubkey {
			return w, nil
		}
	}
	return types.Wallet{}, types.ErrWalletNotFound
}

func (f *fakeWalletRepo) ListWallets(_ context.Context, userID string) ([]types.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Wallet
	for _, w := range f.wallets {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (f *fakeWalletRepo) GetActiveWallet(_ context.Context, userID string) (types.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.wallets {
		if w.UserID == userID && w.IsActive {
			return w, nil
		}
	}
	return types.Wallet{}, types.ErrWalletNotFound
}

func (f *fakeWalletRepo) SetActiveWallet(_ context.Context, userID string, walletID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.wallets[walletID]
	if !ok || target.UserID != userID {
		return types.ErrWalletNotFound
	}
	for id, w := range f.wallets {
		if w.UserID == userID {
			w.IsActive = id == walletID
			f.wallets[id] = w
		}
	}
	return nil
}

func (f *fakeWalletRepo) DeleteWallet(_ context.Context, userID string, walletID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.wallets[walletID]
	if !ok || target.UserID != userID {
		return types.ErrWalletNotFound
	}
	var survivors []uuid.UUID
	for id, w := range f.wallets {
		if w.UserID == userID && id != walletID {
			survivors = append(survivors, id)
		}
	}
	if len(survivors) == 0 {
		return types.ErrCannotDeleteSoleWallet
	}
	delete(f.wallets, walletID)
	if target.IsActive {
		sort.Slice(survivors, func(i, j int) bool { return survivors[i].String() < survivors[j].String() })
		w := f.wallets[survivors[0]]
		w.IsActive = true
		f.wallets[survivors[0]] = w
	}
	return nil
}

func (f *fakeWalletRepo) activeCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, w := range f.wallets {
		if w.UserID == userID && w.IsActive {
			n++
		}
	}
	return n
}

func testVault(t *testing.T, opts ...Option) (*Vault, *fakeWalletRepo) {
	t.Helper()
	repo := newFakeWalletRepo()
	logger := logrus.New()
	opts = append(opts, WithKDFParams(crypto.Params{N: 1 << 4, R: 8, P: 1, KeyLen: 32}))
	return NewVault(repo, logger, opts...), repo
}

func TestCreateWalletActivation(t *testing.T) {
	v, repo := testVault(t)
	ctx := context.Background()

	first, err := v.CreateWallet(ctx, "u1", "main", "Secret123!")
	require.NoError(t, err)
	assert.True(t, first.IsActive, "first wallet must be active")

	second, err := v.CreateWallet(ctx, "u1", "second", "Other1!")
	require.NoError(t, err)
	assert.False(t, second.IsActive, "second wallet stays inactive")

	assert.Equal(t, 1, repo.activeCount("u1"))
}

func TestImportWallet(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()
	wallet := solana.NewWallet()

	testCases := []struct {
		name    string
		rawKey  string
		wantErr error
	}{
		{name: "base58", rawKey: wallet.PrivateKey.String()},
		{name: "hex", rawKey: hex.EncodeToString(solana.NewWallet().PrivateKey)},
		{name: "garbage", rawKey: "definitely not a key", wantErr: types.ErrInvalidPrivateKey},
		{name: "truncated hex", rawKey: hex.EncodeToString(wallet.PrivateKey[:32]), wantErr: types.ErrInvalidPrivateKey},
		{
			name:    "inconsistent keypair bytes",
			rawKey:  hex.EncodeToString(append(append([]byte{}, wallet.PrivateKey[:32]...), make([]byte, 32)...)),
			wantErr: types.ErrInvalidPrivateKey,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			summary, err := v.ImportWallet(ctx, "u1", "imported-"+tc.name, tc.rawKey, "pw")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, summary.Pubkey)
		})
	}
}

func TestImportWalletDuplicate(t *testing.T) {
	v, _ := testVault(t)
	ctx := context.Background()
	wallet := solana.NewWallet()

	_, err := v.ImportWallet(ctx, "u1", "mine", wallet.PrivateKey.String(), "pw")
	require.NoError(t, err)

	// same key, different user: still refused
	_, err = v.ImportWallet(ctx, "u2", "theirs", wallet.PrivateKey.String(), "pw")
	assert.ErrorIs(t, err, types.ErrDuplicateWallet)
}

func TestGetPrivateKey(t *testing.T) {
	v, repo := testVault(t)
	ctx := context.Background()
	wallet := solana.NewWallet()
	original := append(solana.PrivateKey{}, wallet.PrivateKey...)

	summary, err := v.ImportWallet(ctx, "u1", "main", wallet.PrivateKey.String(), "Secret123!")
	require.NoError(t, err)

	t.Run("correct password recovers exact key bytes", func(t *testing.T) {
		priv, err := v.GetPrivateKey(ctx, summary.ID, "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, []byte(original), []byte(priv))
		assert.Equal(t, summary.Pubkey, priv.PublicKey().String())
	})

	t.Run("wrong password fails deterministically", func(t *testing.T) {
		_, err := v.GetPrivateKey(ctx, summary.ID, "not-the-password")
		assert.ErrorIs(t, err, types.ErrWrongPassword)
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := v.GetPrivateKey(ctx, uuid.New(), "Secret123!")
		assert.ErrorIs(t, err, types.ErrWalletNotFound)
	})

	t.Run("corrupted ciphertext surfaces as not found", func(t *testing.T) {
		w, err := repo.GetWallet(ctx, summary.ID)
		require.NoError(t, err)
		w.EncryptedPrivateKey = "%%%corrupted%%%"
		repo.mu.Lock()
		repo.wallets[w.ID] = w
		repo.mu.Unlock()

		_, err = v.GetPrivateKey(ctx, summary.ID, "Secret123!")
		assert.ErrorIs(t, err, types.ErrWalletNotFound)
	})
}

func TestActivationInvariant(t *testing.T) {
	v, repo := testVault(t)
	ctx := context.Background()

	w1, err := v.CreateWallet(ctx, "u1", "one", "pw1")
	require.NoError(t, err)
	w2, err := v.CreateWallet(ctx, "u1", "two", "pw2")
	require.NoError(t, err)
	w3, err := v.CreateWallet(ctx, "u1", "three", "pw3")
	require.NoError(t, err)

	require.NoError(t, v.SetActiveWallet(ctx, "u1", w2.ID))
	assert.Equal(t, 1, repo.activeCount("u1"))

	active, err := v.GetActiveWallet(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, w2.ID, active.ID)

	// deleting the active wallet promotes a survivor
	require.NoError(t, v.DeleteWallet(ctx, "u1", w2.ID))
	assert.Equal(t, 1, repo.activeCount("u1"))

	// activating someone else's wallet is not possible
	assert.ErrorIs(t, v.SetActiveWallet(ctx, "u2", w1.ID), types.ErrWalletNotFound)

	// cannot delete down to zero
	require.NoError(t, v.DeleteWallet(ctx, "u1", w3.ID))
	lastID := w1.ID
	if active, err := v.GetActiveWallet(ctx, "u1"); err == nil {
		lastID = active.ID
	}
	assert.ErrorIs(t, v.DeleteWallet(ctx, "u1", lastID), types.ErrCannotDeleteSoleWallet)
	assert.Equal(t, 1, repo.activeCount("u1"))
}

type capturingBackup struct {
	mu      sync.Mutex
	backups map[string]storage.WalletBackup
}

func (c *capturingBackup) UploadWalletBackup(b storage.WalletBackup) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backups == nil {
		c.backups = map[string]storage.WalletBackup{}
	}
	c.backups[b.ID] = b
	return nil
}

func (c *capturingBackup) GetWalletBackup(walletID string) (storage.WalletBackup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.backups[walletID]
	if !ok {
		return storage.WalletBackup{}, errors.New("no such backup")
	}
	return b, nil
}

func (c *capturingBackup) DeleteWalletBackup(walletID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.backups, walletID)
	return nil
}

func TestBackupNeverContainsPlaintextKey(t *testing.T) {
	backup := &capturingBackup{}
	v, _ := testVault(t, WithBackup(backup))
	ctx := context.Background()
	wallet := solana.NewWallet()

	_, err := v.ImportWallet(ctx, "u1", "main", wallet.PrivateKey.String(), "pw")
	require.NoError(t, err)

	backup.mu.Lock()
	defer backup.mu.Unlock()
	require.Len(t, backup.backups, 1)
	for _, b := range backup.backups {
		serialized, err := json.Marshal(b)
		require.NoError(t, err)
		assert.NotContains(t, string(serialized), wallet.PrivateKey.String())
		assert.NotContains(t, string(serialized), hex.EncodeToString(wallet.PrivateKey))
		assert.NotEmpty(t, b.EncryptedPrivateKey)
		assert.NotEmpty(t, b.Salt)
	}
}

func TestRestoreWallet(t *testing.T) {
	backup := &capturingBackup{}
	v, repo := testVault(t, WithBackup(backup))
	ctx := context.Background()
	wallet := solana.NewWallet()

	created, err := v.ImportWallet(ctx, "u1", "main", wallet.PrivateKey.String(), "Secret123!")
	require.NoError(t, err)

	t.Run("still in custody", func(t *testing.T) {
		_, err := v.RestoreWallet(ctx, "u1", "again", created.ID, "Secret123!")
		assert.ErrorIs(t, err, types.ErrDuplicateWallet)
	})

	// simulate loss of the primary record; the off-site backup survives
	repo.mu.Lock()
	delete(repo.wallets, created.ID)
	repo.mu.Unlock()

	t.Run("wrong password refused", func(t *testing.T) {
		_, err := v.RestoreWallet(ctx, "u1", "restored", created.ID, "not-the-password")
		assert.ErrorIs(t, err, types.ErrWrongPassword)
	})

	t.Run("correct password restores custody", func(t *testing.T) {
		restored, err := v.RestoreWallet(ctx, "u1", "restored", created.ID, "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, created.Pubkey, restored.Pubkey)

		priv, err := v.GetPrivateKey(ctx, restored.ID, "Secret123!")
		require.NoError(t, err)
		assert.Equal(t, []byte(wallet.PrivateKey), []byte(priv))
	})

	t.Run("unknown backup", func(t *testing.T) {
		_, err := v.RestoreWallet(ctx, "u1", "ghost", uuid.New(), "Secret123!")
		assert.ErrorIs(t, err, types.ErrWalletNotFound)
	})
}

func TestRestoreWalletWithoutBackupStore(t *testing.T) {
	v, _ := testVault(t)

	_, err := v.RestoreWallet(context.Background(), "u1", "restored", uuid.New(), "pw")
	assert.ErrorIs(t, err, types.ErrWalletNotFound)
}

func TestDeleteWalletRemovesBackup(t *testing.T) {
	backup := &capturingBackup{}
	v, _ := testVault(t, WithBackup(backup))
	ctx := context.Background()

	first, err := v.CreateWallet(ctx, "u1", "one", "pw")
	require.NoError(t, err)
	_, err = v.CreateWallet(ctx, "u1", "two", "pw")
	require.NoError(t, err)

	require.NoError(t, v.DeleteWallet(ctx, "u1", first.ID))

	backup.mu.Lock()
	defer backup.mu.Unlock()
	_, ok := backup.backups[first.ID.String()]
	assert.False(t, ok, "deleted wallet's backup must be removed")
}

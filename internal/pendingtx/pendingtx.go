package pendingtx

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/aegis-wallet/aegisd/internal/signing"
	"github.com/aegis-wallet/aegisd/internal/tasks"
	"github.com/aegis-wallet/aegisd/internal/types"
	"github.com/aegis-wallet/aegisd/storage"
)

// staleCheckDelay is how long after creation the background staleness check
// runs; Solana blockhashes expire after roughly a minute.
const staleCheckDelay = 2 * time.Minute

// KeyProvider decrypts a wallet's private key under the supplied password.
type KeyProvider interface {
	GetPrivateKey(ctx context.Context, walletID uuid.UUID, password string) (solana.PrivateKey, error)
}

// BlockhashInspector answers whether the chain still accepts a blockhash.
type BlockhashInspector interface {
	IsBlockhashValid(ctx context.Context, hash solana.Hash) (bool, error)
}

// TaskEnqueuer schedules background work; satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service runs pending transactions through the
// pending -> {signed, rejected, failed} state machine. Every transition is a
// conditional write, so concurrent approve/reject calls on the same record
// cannot both win.
type Service struct {
	db        storage.TransactionRepository
	vault     KeyProvider
	blockhash BlockhashInspector
	enqueuer  TaskEnqueuer
	logger    *logrus.Logger
}

type Option func(*Service)

// WithBlockhashInspector enables the recency check in ApproveAndSign and the
// background sweeper; without it, stale envelopes are signed as-is.
func WithBlockhashInspector(inspector BlockhashInspector) Option {
	return func(s *Service) {
		s.blockhash = inspector
	}
}

func WithEnqueuer(enqueuer TaskEnqueuer) Option {
	return func(s *Service) {
		s.enqueuer = enqueuer
	}
}

func NewService(db storage.TransactionRepository, vault KeyProvider, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		vault:  vault,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates that the blob is a deserializable transaction envelope and
// stores a pending record. A malformed blob is rejected outright and never
// persisted.
func (s *Service) Create(ctx context.Context, userID string, walletID uuid.UUID, origin, txDataB64 string, message *string) (types.PendingTransaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txDataB64)
	if err != nil {
		return types.PendingTransaction{}, fmt.Errorf("%w: not valid base64", types.ErrMalformedTransaction)
	}
	if _, err := signing.DecodeTransaction(raw); err != nil {
		return types.PendingTransaction{}, err
	}

	stored, err := s.db.InsertTransaction(ctx, types.PendingTransaction{
		ID:              uuid.New(),
		UserID:          userID,
		WalletID:        walletID,
		DAppOrigin:      origin,
		TransactionData: txDataB64,
		Message:         message,
		Status:          types.StatusPending,
	})
	if err != nil {
		return types.PendingTransaction{}, err
	}

	s.scheduleStaleCheck(stored.ID)

	return stored, nil
}

func (s *Service) scheduleStaleCheck(txID uuid.UUID) {
	if s.enqueuer == nil {
		return
	}
	task, err := tasks.NewStaleCheckTask(txID)
	if err != nil {
		s.logger.Errorf("fail to build stale check task, err: %v", err)
		return
	}
	if _, err := s.enqueuer.Enqueue(task,
		asynq.ProcessIn(staleCheckDelay),
		asynq.Queue(tasks.QueueDefault),
	); err != nil {
		s.logger.Errorf("fail to enqueue stale check for %s, err: %v", txID, err)
	}
}

// ApproveAndSign decrypts the wallet key under the caller's password, signs
// the envelope, and transitions the record pending -> signed. Ownership and
// status are checked before any key material is touched; the status change
// itself is a compare-and-set, so a concurrent approve or reject that commits
// first turns this call into ErrAlreadyProcessed.
func (s *Service) ApproveAndSign(ctx context.Context, txID uuid.UUID, userID, password string) (string, error) {
	record, err := s.loadOwned(ctx, txID, userID)
	if err != nil {
		return "", err
	}
	if record.Status != types.StatusPending {
		return "", types.ErrAlreadyProcessed
	}

	raw, err := base64.StdEncoding.DecodeString(record.TransactionData)
	if err != nil {
		return "", s.fail(ctx, txID, fmt.Errorf("%w: stored blob is not base64", types.ErrMalformedTransaction))
	}

	if stale, err := s.isStale(ctx, raw); err != nil {
		return "", err
	} else if stale {
		return "", s.fail(ctx, txID, types.ErrStaleTransaction)
	}

	priv, err := s.vault.GetPrivateKey(ctx, record.WalletID, password)
	if err != nil {
		// wrong password leaves the record pending for a retry
		return "", err
	}
	defer clear(priv)

	signed, err := signing.SignTransaction(raw, priv)
	if err != nil {
		return "", s.fail(ctx, txID, err)
	}

	won, err := s.db.TransitionTransaction(ctx, txID, types.StatusSigned)
	if err != nil {
		return "", err
	}
	if !won {
		return "", types.ErrAlreadyProcessed
	}

	return base64.StdEncoding.EncodeToString(signed), nil
}

// Reject transitions pending -> rejected, ownership checked.
func (s *Service) Reject(ctx context.Context, txID uuid.UUID, userID string) error {
	record, err := s.loadOwned(ctx, txID, userID)
	if err != nil {
		return err
	}
	if record.Status != types.StatusPending {
		return types.ErrAlreadyProcessed
	}

	won, err := s.db.TransitionTransaction(ctx, txID, types.StatusRejected)
	if err != nil {
		return err
	}
	if !won {
		return types.ErrAlreadyProcessed
	}
	return nil
}

func (s *Service) ListPending(ctx context.Context, userID string) ([]types.PendingTransaction, error) {
	return s.db.ListPendingTransactions(ctx, userID)
}

func (s *Service) Get(ctx context.Context, txID uuid.UUID, userID string) (types.PendingTransaction, error) {
	return s.loadOwned(ctx, txID, userID)
}

// CheckStale re-examines a pending record whose blockhash may have expired
// and fails it if the chain no longer accepts it. Used by the background
// worker; records already in a terminal state are left alone.
func (s *Service) CheckStale(ctx context.Context, txID uuid.UUID) error {
	record, err := s.db.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if record.Status != types.StatusPending {
		return nil
	}

	raw, err := base64.StdEncoding.DecodeString(record.TransactionData)
	if err != nil {
		return s.fail(ctx, txID, fmt.Errorf("%w: stored blob is not base64", types.ErrMalformedTransaction))
	}

	stale, err := s.isStale(ctx, raw)
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	if _, err := s.db.TransitionTransaction(ctx, txID, types.StatusFailed); err != nil {
		return err
	}
	s.logger.WithField("transaction", txID).Info("pending transaction expired, marked failed")
	return nil
}

// SweepExpired runs CheckStale over every pending record created before
// cutoff. It backstops the per-record delayed task: a record whose enqueue
// failed still gets failed here once its blockhash expires.
func (s *Service) SweepExpired(ctx context.Context, cutoff time.Time) error {
	records, err := s.db.ListPendingTransactionsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("fail to list expired pending transactions, err: %w", err)
	}
	for _, record := range records {
		if err := s.CheckStale(ctx, record.ID); err != nil {
			s.logger.Warnf("fail to re-check transaction %s, err: %v", record.ID, err)
		}
	}
	return nil
}

func (s *Service) loadOwned(ctx context.Context, txID uuid.UUID, userID string) (types.PendingTransaction, error) {
	record, err := s.db.GetTransaction(ctx, txID)
	if err != nil {
		return types.PendingTransaction{}, err
	}
	if record.UserID != userID {
		return types.PendingTransaction{}, types.ErrNotOwner
	}
	return record, nil
}

func (s *Service) isStale(ctx context.Context, raw []byte) (bool, error) {
	if s.blockhash == nil {
		return false, nil
	}
	hash, err := signing.RecentBlockhash(raw)
	if err != nil {
		return false, err
	}
	valid, err := s.blockhash.IsBlockhashValid(ctx, hash)
	if err != nil {
		// the chain read failing must not block an approval
		s.logger.Warnf("fail to check blockhash validity, err: %v", err)
		return false, nil
	}
	return !valid, nil
}

// fail CASes the record to failed and returns cause; if another transition
// won in the meantime the terminal state is preserved and cause still
// propagates.
func (s *Service) fail(ctx context.Context, txID uuid.UUID, cause error) error {
	if _, err := s.db.TransitionTransaction(ctx, txID, types.StatusFailed); err != nil {
		s.logger.Errorf("fail to mark transaction %s failed, err: %v", txID, err)
	}
	return cause
}

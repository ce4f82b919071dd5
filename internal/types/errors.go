package types

import "errors"

// Sentinel errors returned by the custody and authorization services.
// Handlers match them with errors.Is to pick the HTTP status; services wrap
// them with context via fmt.Errorf("...: %w", err).
var (
	// validation
	ErrMalformedTransaction = errors.New("malformed transaction data")
	ErrUnknownPermission    = errors.New("unknown permission")
	ErrInvalidPrivateKey    = errors.New("invalid private key encoding")

	// authentication
	ErrInvalidSignatureEncoding = errors.New("invalid signature encoding")
	ErrInvalidPublicKey         = errors.New("invalid public key")
	ErrChallengeExpired         = errors.New("challenge expired")
	ErrSignatureMismatch        = errors.New("signature mismatch")
	ErrWrongPassword            = errors.New("wrong password")

	// authorization
	ErrNotOwner         = errors.New("caller does not own the resource")
	ErrPermissionDenied = errors.New("dapp lacks required permission")

	// conflict
	ErrDuplicateWallet        = errors.New("wallet already exists")
	ErrCannotDeleteSoleWallet = errors.New("cannot delete the only wallet")
	ErrAlreadyProcessed       = errors.New("transaction already processed")
	ErrStaleTransaction       = errors.New("transaction blockhash is no longer valid")

	// not found
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// signing
	ErrSigningFailure = errors.New("fail to sign transaction")
)

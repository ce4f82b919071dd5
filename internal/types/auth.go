package types

import (
	"encoding/json"
	"errors"
)

// AuthHeader is the per-request proof of key possession carried in the
// X-Aegis-Auth header: a signature over the canonical challenge for
// (Wallet, Timestamp). There is no server-side session; every privileged
// call supplies and re-verifies this triple.
type AuthHeader struct {
	Wallet    string `json:"wallet"`    // base58 public key
	Signature string `json:"signature"` // base58 ed25519 signature
	Timestamp int64  `json:"timestamp"` // unix seconds
}

func ParseAuthHeader(headerValue string) (AuthHeader, error) {
	var h AuthHeader
	if err := json.Unmarshal([]byte(headerValue), &h); err != nil {
		return AuthHeader{}, errors.New("invalid auth header")
	}
	if h.Wallet == "" || h.Signature == "" || h.Timestamp == 0 {
		return AuthHeader{}, errors.New("incomplete auth header")
	}
	return h, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sasha-s/go-deadlock"

	apperrors "vaultcore/internal/errors"
	"vaultcore/internal/uuid"
)

const challengeTTL = 5 * time.Minute

type challenge struct {
	message string
	expires time.Time
}

// authService verifies that a caller controls an address by having it sign
// a one-time challenge.
type authService struct {
	now func() time.Time

	mu      deadlock.Mutex
	pending map[common.Address]challenge
}

// NewAuthService creates a new AuthServicer.
func NewAuthService(now func() time.Time) AuthServicer {
	if now == nil {
		now = time.Now
	}
	return &authService{now: now, pending: make(map[common.Address]challenge)}
}

// ChallengeMessage is the text an address signs to sign in.
func ChallengeMessage(addr common.Address, nonce string) string {
	return fmt.Sprintf("Sign in to vaultcore\naddress: %s\nnonce: %s", addr.Hex(), nonce)
}

// Challenge issues a new challenge for addr, replacing any outstanding one.
func (s *authService) Challenge(_ context.Context, addr common.Address) (string, error) {
	if addr == (common.Address{}) {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "address is required")
	}
	msg := ChallengeMessage(addr, uuid.New())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[addr] = challenge{message: msg, expires: s.now().Add(challengeTTL)}
	return msg, nil
}

// Verify consumes addr's challenge and checks signature, a 65-byte personal
// message signature over it.
func (s *authService) Verify(_ context.Context, addr common.Address, signature []byte) error {
	s.mu.Lock()
	ch, ok := s.pending[addr]
	delete(s.pending, addr)
	s.mu.Unlock()

	if !ok || s.now().After(ch.expires) {
		return apperrors.WithMessage(apperrors.ErrUnauthorized, "no valid challenge for address")
	}
	if len(signature) != crypto.SignatureLength {
		return apperrors.WithMessage(apperrors.ErrUnauthorized, "malformed signature")
	}

	sig := make([]byte, len(signature))
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(ch.message)), sig)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrUnauthorized, err)
	}
	if crypto.PubkeyToAddress(*pub) != addr {
		return apperrors.WithMessage(apperrors.ErrUnauthorized, "signature does not match address")
	}
	return nil
}

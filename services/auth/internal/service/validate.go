package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinetalk/cinetalk/pkg/tokens"
)

// VerdictReason classifies why a presented access token was accepted or
// rejected. The distinctions matter to clients: Expired can be cured by
// a refresh, Revoked cannot.
type VerdictReason int

const (
	VerdictOK VerdictReason = iota
	VerdictRevoked
	VerdictExpired
	VerdictMalformed
	VerdictNoSubject
)

type Verdict struct {
	Reason VerdictReason
	Claims *tokens.AccessClaims
}

// Validate renders the authoritative verdict on an access token.
//
// The revocation ledger is consulted before the signature and expiry
// checks. The order is load-bearing: a revoked token that is still
// cryptographically valid must never slip through because the cheaper
// checks ran first.
func (s *AuthService) Validate(ctx context.Context, token string) (Verdict, error) {
	revoked, err := s.Repo.IsTokenRevoked(ctx, token)
	if err != nil {
		return Verdict{}, fmt.Errorf("revocation lookup: %w", err)
	}
	if revoked {
		return Verdict{Reason: VerdictRevoked}, nil
	}

	claims, err := tokens.Decode(token, s.Secret)
	if err != nil {
		if errors.Is(err, tokens.ErrExpired) {
			return Verdict{Reason: VerdictExpired}, nil
		}
		return Verdict{Reason: VerdictMalformed}, nil
	}

	if claims.UserID == "" {
		return Verdict{Reason: VerdictNoSubject}, nil
	}

	return Verdict{Reason: VerdictOK, Claims: claims}, nil
}

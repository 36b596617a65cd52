package tokens

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Decode outcomes. Expiry and malformed signatures are expected states
// of the protocol, not exceptional conditions, so they surface as
// sentinel errors the caller dispatches on with errors.Is.
var (
	ErrExpired   = errors.New("token expired")
	ErrMalformed = errors.New("malformed token")
)

// AccessClaims is the payload of a signed access token. UserID and
// Username are the identity the rest of the system trusts once the
// signature checks out.
type AccessClaims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sign mints an HS256 access token for the given identity expiring at exp.
func Sign(userID, username string, exp time.Time, secret []byte) (string, error) {
	claims := AccessClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
			// jti makes every minted token distinct even within one
			// second, so revoking one never shadows a sibling
			ID: uuid.NewString(),
		},
	}

	tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tkn.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Decode verifies signature and expiry. It returns ErrExpired for a
// well-signed token past its exp and ErrMalformed for everything else
// that is wrong with it.
func Decode(tokenStr string, secret []byte) (*AccessClaims, error) {
	claims, err := parse(tokenStr, secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrMalformed
	}
	return claims, nil
}

// DecodeLoose verifies the signature but tolerates expiry, returning
// the claims of an expired token. Revocation bookkeeping needs this:
// logout must be able to read exp out of a token that just lapsed.
func DecodeLoose(tokenStr string, secret []byte) (*AccessClaims, error) {
	claims, err := parse(tokenStr, secret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && claims != nil {
			return claims, nil
		}
		return nil, ErrMalformed
	}
	return claims, nil
}

// DecodeUnverified reads claims without checking the signature. It is
// for display identity and proactive-refresh heuristics on the client
// only; never base an authorization decision on its output.
func DecodeUnverified(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, &claims); err != nil {
		return nil, ErrMalformed
	}
	return &claims, nil
}

func parse(tokenStr string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		return &claims, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

const refreshValueBytes = 64

// NewRefreshValue generates an opaque refresh token: 64 random bytes,
// hex encoded. It carries no claims and shares no entropy with the
// access token signing secret.
func NewRefreshValue() (string, error) {
	buf := make([]byte, refreshValueBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Package auth implements the thin, boundary-only authentication layer of
// the demo server: a bearer token binds a caller to a domain.AccountId,
// and Service.VerifyAdmin checks an admin credential with bcrypt. In
// cmd/server only the /ws feed (via wsfeed) requires a valid token; the
// JSON command endpoints are not authenticated and VerifyAdmin is not
// called by any route. None of this is
// read by the core dispatcher/orderbook/ledger packages, which operate
// purely on AccountId values passed by the caller — spec.md §1 lists
// external transports as out of core scope, so this package exists only
// to give cmd/server a realistic boundary and to exercise the jwt/bcrypt
// dependencies the teacher also carries (auth/token.go, auth/service.go).
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/epic1st/clearinghouse/domain"
)

// Claims binds a signed token to an AccountId and role.
type Claims struct {
	AccountId domain.AccountId `json:"account_id"`
	Role      string           `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken mints a token for accountId, signed with secret and
// expiring after ttl.
func GenerateToken(accountId domain.AccountId, role string, secret []byte, ttl time.Duration) (string, error) {
	claims := &Claims{
		AccountId: accountId,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "clearinghouse",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and verifies tokenString against secret,
// rejecting anything not signed with HMAC.
func ValidateToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	return claims, nil
}

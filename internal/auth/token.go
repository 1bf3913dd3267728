package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/monitor-mbg/monitor_mbg/internal/apperr"
	"github.com/monitor-mbg/monitor_mbg/internal/user"
)

// tokenTTL is the fixed access-token lifetime.
const tokenTTL = time.Hour

// Claims are the bearer-token contents: subject, role and the iat/exp pair.
type Claims struct {
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the token subject back into a user id.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenCodec signs and verifies HS256 bearer tokens. It is stateless; a
// token is valid iff the signature checks out and it has not expired.
type TokenCodec struct {
	secret []byte
}

// NewTokenCodec builds a codec around the configured signing secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

// Encode mints a token for the user with iat = now and exp = now + 1h.
func (tc *TokenCodec) Encode(userID uuid.UUID, role user.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.secret)
	if err != nil {
		return "", apperr.Internal("sign token", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry. Every failure collapses to the
// same Unauthorized error so callers cannot tell which check tripped.
func (tc *TokenCodec) Decode(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return tc.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid || !claims.Role.Valid() {
		return nil, apperr.Unauthorized("Invalid token")
	}
	return claims, nil
}

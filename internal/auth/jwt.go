package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

type sessionClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	RoleID   int64  `json:"role_id"`
	jwt.RegisteredClaims
}

// JWTIssuer signs HS256 session tokens with a fixed lifetime.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer constructs a JWTIssuer.
func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs claims and returns the token with its expiry.
func (j *JWTIssuer) Issue(claims shared.Claims) (string, time.Time, error) {
	now := j.now()
	expiresAt := now.Add(j.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID:   claims.UserID,
		Username: claims.Username,
		RoleID:   claims.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprintf("%d", claims.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature and lifetime. Any failure is ErrUnauthorized.
func (j *JWTIssuer) Verify(tokenString string) (shared.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return shared.Claims{}, fmt.Errorf("%w: %v", shared.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return shared.Claims{}, shared.ErrUnauthorized
	}
	return shared.Claims{UserID: claims.UserID, Username: claims.Username, RoleID: claims.RoleID}, nil
}

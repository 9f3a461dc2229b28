package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "signal_kz"

// ErrInvalidToken is returned for any token that fails validation
var ErrInvalidToken = errors.New("invalid token")

// JWTClaims are the claims of a dashboard token. Role is informational: the
// API re-reads the current role on every call.
type JWTClaims struct {
	UserID int64  `json:"user_id"` // messenger user id
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTUtil signs and verifies HS256 dashboard tokens
type JWTUtil struct {
	secret   []byte
	lifetime int64 // hours
}

func NewJWTUtil(secretKey string, expirationHours int64) *JWTUtil {
	return &JWTUtil{secret: []byte(secretKey), lifetime: expirationHours}
}

// ExpirationHours is the lifetime of issued tokens
func (u *JWTUtil) ExpirationHours() int64 {
	return u.lifetime
}

// GenerateToken issues a token for userID acting as role
func (u *JWTUtil) GenerateToken(userID int64, role string) (string, error) {
	issuedAt := time.Now()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Duration(u.lifetime) * time.Hour)),
		},
	}).SignedString(u.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, issuer and expiry
func (u *JWTUtil) ValidateToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return u.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

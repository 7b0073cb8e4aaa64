package utils

import (
	"errors"
	"time"                       // Time for token expiration
	"travel_tax/internal/domain" // Error taxonomy

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// TokenType is returned alongside access tokens
const TokenType = "bearer"

// JWT Claims; the username travels in the standard "sub" claim
type Claims struct {
	jwt.RegisteredClaims // Standard JWT claims
}

// GenerateJWT creates a signed token for username that expires after ttl
func GenerateJWT(username, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,                         // Username claim
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)), // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),          // Issued at current time
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims) // Create token with claims
	return token.SignedString([]byte(secret))                  // Sign the token with the secret
}

// ParseJWT validates tokenStr and returns its claims. Every failure is Unauthorized.
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil // Return the secret key for validation
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.Unauthorized("Token expired")
		}
		return nil, domain.Unauthorized("Invalid token")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.Unauthorized("Invalid token")
	}
	if claims.Subject == "" {
		return nil, domain.Unauthorized("Invalid token")
	}
	return claims, nil
}

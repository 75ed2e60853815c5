package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims with custom fields
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens minted by the identity service. This
// process never issues tokens; it only checks signatures and expiry.
type Verifier struct {
	jwtSecret []byte
	leeway    time.Duration
}

// NewVerifier creates a new Verifier instance
func NewVerifier(jwtSecret string, leeway time.Duration) *Verifier {
	return &Verifier{
		jwtSecret: []byte(jwtSecret),
		leeway:    leeway,
	}
}

// ValidateAccessToken validates and parses a JWT access token
func (v *Verifier) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.jwtSecret, nil
	}, jwt.WithLeeway(v.leeway))

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// Package auth issues and verifies the HS256 access tokens handed to clients.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/orbit/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the user ID in "sub" and the optional email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// GenerateToken signs an access token for userID issued at now. Timestamps
// have second precision; the returned expiry matches the "exp" claim.
func GenerateToken(userID, email string, secretKey []byte, now time.Time, validity time.Duration) (string, time.Time, error) {
	iat := now.Truncate(time.Second)
	exp := iat.Add(validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return tokenString, exp, nil
}

// GetUserIDFromToken verifies tokenString and returns its subject.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// verification wraps common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}

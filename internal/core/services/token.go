package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService verifies the bearer tokens presented on the websocket
// handshake. Token issuance belongs to the auth service; this side
// only needs the shared secret.
type TokenService struct {
	secretKey []byte
	issuer    string
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
		issuer:    "connecto-auth",
	}
}

// GenerateToken exists for integration tooling and tests.
func (s *TokenService) GenerateToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iss": s.issuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses the JWT and returns the user id from 'sub'.
func (s *TokenService) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims")
	}
	userID, ok := claims["sub"].(string)
	if !ok {
		return "", fmt.Errorf("subject not found in token")
	}
	return userID, nil
}

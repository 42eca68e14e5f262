package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenDuration bounds how long an issued token stays valid.
const AccessTokenDuration = 15 * time.Minute

// JWTClaims carries the caller's verified identity: the wallet address is the
// subject, email and SuiNS name are optional claims verified out of band.
type JWTClaims struct {
	Address   string `json:"address"`
	Email     string `json:"email,omitempty"`
	SuinsName string `json:"suins_name,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager issues and verifies access tokens.
type JWTManager struct {
	secretKey []byte
	issuer    string
}

func NewJWTManager(secretKey, issuer string) *JWTManager {
	if issuer == "" {
		issuer = "sealvault-backend"
	}
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
	}
}

// GenerateAccessToken issues a token for a verified identity.
func (m *JWTManager) GenerateAccessToken(address, email, suinsName string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Address:   address,
		Email:     email,
		SuinsName: suinsName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   address,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyAccessToken parses and validates a token.
func (m *JWTManager) VerifyAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Address == "" {
		return nil, fmt.Errorf("token missing address claim")
	}
	return claims, nil
}

// ExtractTokenFromHeader extracts the token from an Authorization header.
// Format: Authorization: Bearer <token>
func ExtractTokenFromHeader(authHeader string) (string, error) {
	const bearerPrefix = "Bearer "
	if len(authHeader) <= len(bearerPrefix) || authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", fmt.Errorf("invalid authorization header format")
	}
	return authHeader[len(bearerPrefix):], nil
}

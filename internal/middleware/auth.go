package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "vaultcore/internal/errors"
)

const (
	callerKey = "caller"

	tokenAccess  = "access"
	tokenRefresh = "refresh"

	refreshTokenExpiry = 7 * 24 * time.Hour
)

// JWTClaims represents the claims in the JWT. The subject is the caller's
// checksummed address.
type JWTClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is an access token with the refresh token that renews it.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// IssueTokens signs an access token valid for accessTTL and a refresh token
// for addr.
func IssueTokens(secret string, addr common.Address, accessTTL time.Duration) (*TokenPair, error) {
	now := time.Now()
	access, err := sign(secret, addr, tokenAccess, now, now.Add(accessTTL))
	if err != nil {
		return nil, err
	}
	refresh, err := sign(secret, addr, tokenRefresh, now, now.Add(refreshTokenExpiry))
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: now.Add(accessTTL)}, nil
}

func sign(secret string, addr common.Address, tokenType string, now, expires time.Time) (string, error) {
	claims := &JWTClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "vaultcore-api",
			Subject:   addr.Hex(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// parseToken validates tokenString and returns the address it was issued to.
func parseToken(secret, tokenString, tokenType string) (common.Address, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return common.Address{}, fmt.Errorf("invalid %s token", tokenType)
	}
	if claims.TokenType != tokenType {
		return common.Address{}, fmt.Errorf("token is not a %s token", tokenType)
	}
	if !common.IsHexAddress(claims.Subject) {
		return common.Address{}, fmt.Errorf("token subject is not an address")
	}
	return common.HexToAddress(claims.Subject), nil
}

// ValidateRefreshToken parses a refresh token and returns its address.
func ValidateRefreshToken(secret, tokenString string) (common.Address, error) {
	return parseToken(secret, tokenString, tokenRefresh)
}

// AuthMiddleware verifies the bearer access token and sets the caller's
// address in the context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		addr, err := parseToken(secret, parts[1], tokenAccess)
		if err != nil {
			abortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(callerKey, addr)
		c.Next()
	}
}

// Caller returns the authenticated address set by AuthMiddleware.
func Caller(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}

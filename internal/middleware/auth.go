package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "pocketledger/internal/errors"
)

const (
	userIDKey = "userID"
	issuer    = "pocketledger-api"
)

// AuthVerifier maps a bearer credential to the user it was issued for.
type AuthVerifier interface {
	Verify(token string) (userID string, err error)
}

// JWTClaims represents the claims in the JWT
type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTAuth issues and verifies HS256 access tokens.
type JWTAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTAuth creates a JWTAuth signing with secret. Tokens expire after ttl.
func NewJWTAuth(secret string, ttl time.Duration) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue generates an access token for userID.
func (a *JWTAuth) Issue(userID string) (string, error) {
	now := a.now()
	claims := &JWTClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify implements AuthVerifier.
func (a *JWTAuth) Verify(tokenString string) (string, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("token has no user")
	}
	return claims.UserID, nil
}

// AuthMiddleware rejects requests without a valid bearer token and sets the
// caller's user ID in the context.
func AuthMiddleware(verifier AuthVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			WriteError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization header is required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			WriteError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid authorization header format"))
			return
		}

		userID, err := verifier.Verify(parts[1])
		if err != nil {
			WriteError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID set by AuthMiddleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

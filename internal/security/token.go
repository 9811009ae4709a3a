package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates a token that failed signature or claim checks.
var ErrInvalidToken = errors.New("security: invalid token")

// AdminClaims are the JWT claims carried by an admin session token.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SignAdminToken issues a signed session token for an admin.
func SignAdminToken(secret string, adminID uint64, username string, expiry time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("security: jwt secret not configured")
	}
	now := time.Now()
	claims := AdminClaims{
		AdminID:  adminID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseAdminToken validates a session token and returns its claims.
func ParseAdminToken(secret, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, errParse := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("security: unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if errParse != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

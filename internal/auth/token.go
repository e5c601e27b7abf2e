package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/equipdesk/equipdesk/internal/domain"
)

// TokenManager issues and validates session JWTs. The resolved (role,
// profile id) pair is cached inside the token for the session lifetime, so
// the profile collections are probed once per login.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes the JWT payload.
type Claims struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	ProfileID string      `json:"profile_id"`
	jwt.RegisteredClaims
}

// GenerateToken signs a JWT carrying the session.
func (tm *TokenManager) GenerateToken(session *Session) (string, time.Time, error) {
	expiresAt := time.Now().Add(tm.ttl)
	claims := &Claims{
		Email:     session.Email,
		Name:      session.Name,
		Role:      session.Role,
		ProfileID: session.ProfileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates the token and reconstructs the session.
func (tm *TokenManager) ParseToken(tokenStr string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return &Session{
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      claims.Role,
		ProfileID: claims.ProfileID,
	}, nil
}

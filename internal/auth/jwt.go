package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	mu     sync.RWMutex
	secret []byte
	ttl    = 24 * time.Hour
)

// Init sets the HMAC secret and token lifetime. Call once at startup.
func Init(key string, expiresIn time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	secret = []byte(key)
	if expiresIn > 0 {
		ttl = expiresIn
	}
}

func settings() ([]byte, time.Duration) {
	mu.RLock()
	defer mu.RUnlock()
	return secret, ttl
}

// Token is a signed session token and the session it belongs to.
type Token struct {
	Raw       string
	JTI       string
	ExpiresAt time.Time
}

func Sign(userID string, roles []string) (Token, error) {
	key, life := settings()
	if len(key) == 0 {
		return Token{}, errors.New("jwt secret not configured")
	}
	now := time.Now()
	tok := Token{JTI: uuid.NewString(), ExpiresAt: now.Add(life)}
	claims := jwt.MapClaims{
		"sub":   userID,
		"roles": roles,
		"jti":   tok.JTI,
		"exp":   tok.ExpiresAt.Unix(),
		"iat":   now.Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return Token{}, err
	}
	tok.Raw = raw
	return tok, nil
}

func Verify(tokenStr string) (Claims, error) {
	key, _ := settings()
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !tok.Valid {
		return Claims{}, errors.New("invalid token")
	}
	mapc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}
	sub, _ := mapc["sub"].(string)
	jti, _ := mapc["jti"].(string)
	var roles []string
	if arr, ok := mapc["roles"].([]interface{}); ok {
		for _, v := range arr {
			if s, ok := v.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return Claims{Subject: sub, JWTID: jti, Roles: roles}, nil
}

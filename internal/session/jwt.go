package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Vignesh-ops/vingesh-biotree-sub000/internal/models"
)

// JWTVerifier accepts HS256 tokens signed with a shared secret. It is the
// provider for local runs and tests. Revocation is kept in memory: tokens
// issued before an account's last sign-out are rejected.
type JWTVerifier struct {
	secret []byte
	now    func() time.Time

	mu      sync.RWMutex
	revoked map[string]time.Time
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTVerifier{
		secret:  []byte(secret),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*models.Session, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	v.mu.RLock()
	revokedAt, isRevoked := v.revoked[userID]
	v.mu.RUnlock()
	if isRevoked {
		iat, err := claims.GetIssuedAt()
		if err != nil || iat == nil || !iat.Time.After(revokedAt) {
			return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
		}
	}

	return &models.Session{
		AccountID:   userID,
		Email:       stringClaim(claims, "email"),
		DisplayName: stringClaim(claims, "name"),
		PhotoURL:    stringClaim(claims, "picture"),
	}, nil
}

func (v *JWTVerifier) Revoke(_ context.Context, accountID string) error {
	v.mu.Lock()
	v.revoked[accountID] = v.now()
	v.mu.Unlock()
	return nil
}

// Issue signs a token for sess, valid for ttl.
func (v *JWTVerifier) Issue(sess models.Session, ttl time.Duration) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"user_id": sess.AccountID,
		"iat":     now.Unix(),
		"exp":     now.Add(ttl).Unix(),
	}
	if sess.Email != "" {
		claims["email"] = sess.Email
	}
	if sess.DisplayName != "" {
		claims["name"] = sess.DisplayName
	}
	if sess.PhotoURL != "" {
		claims["picture"] = sess.PhotoURL
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

package devserver

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/me/jejakliqo/pkg/model"
)

// ErrTokenRevoked is returned for a well-formed token that was logged out or
// has aged out of the registry.
var ErrTokenRevoked = errors.New("token revoked")

// Claims are carried by issued access tokens.
type Claims struct {
	UserID int64      `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenRegistry mints HMAC-signed JWTs and remembers which are still live,
// so logout can revoke a token before it expires.
type TokenRegistry struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	live   *ttlcache.Cache[string, int64] // jti -> user id
}

// NewTokenRegistry creates a registry. Call Close to stop its cleanup loop.
func NewTokenRegistry(secret string, ttl time.Duration, now func() time.Time) *TokenRegistry {
	live := ttlcache.New(
		ttlcache.WithTTL[string, int64](ttl),
		ttlcache.WithDisableTouchOnHit[string, int64](),
	)
	go live.Start()
	return &TokenRegistry{secret: []byte(secret), ttl: ttl, now: now, live: live}
}

// Close stops the expiry loop.
func (r *TokenRegistry) Close() {
	r.live.Stop()
}

// Issue signs a token for u and registers it.
func (r *TokenRegistry) Issue(u *model.User) (string, time.Time, error) {
	now := r.now()
	exp := now.Add(r.ttl)
	jti := uuid.NewString()
	claims := Claims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	r.live.Set(jti, u.ID, r.ttl)
	return signed, exp, nil
}

// Verify parses token and checks that it is still registered.
func (r *TokenRegistry) Verify(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.secret, nil
	}, jwt.WithTimeFunc(r.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if r.live.Get(claims.ID) == nil {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Revoke removes a single token.
func (r *TokenRegistry) Revoke(jti string) {
	r.live.Delete(jti)
}

// RevokeUser removes every token of userID and returns how many were live.
func (r *TokenRegistry) RevokeUser(userID int64) int {
	n := 0
	for jti, item := range r.live.Items() {
		if item.Value() == userID {
			r.live.Delete(jti)
			n++
		}
	}
	return n
}

// Len returns the number of live tokens.
func (r *TokenRegistry) Len() int {
	return r.live.Len()
}

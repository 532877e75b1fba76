package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrIncorrectPassword carries the message shown next to the password field.
var ErrIncorrectPassword = errors.New("Incorrect password. Please try again.")

const adminSubject = "admin"

// Gate checks the admin password and issues signed session tokens. It only
// decides which controls are offered; it is not a security boundary.
type Gate struct {
	password string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	revoked  map[string]time.Time // token id -> expiry
	onRevoke []func(token string)
}

func NewGate(password, secret string, ttl time.Duration) *Gate {
	return &Gate{
		password: password,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		revoked:  make(map[string]time.Time),
	}
}

// Login returns a session token when password matches.
func (g *Gate) Login(password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(g.password)) != 1 {
		return "", ErrIncorrectPassword
	}
	now := g.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify reports whether token is a valid, unexpired and not logged out
// admin session.
func (g *Gate) Verify(tokenString string) bool {
	claims, ok := g.parse(tokenString)
	if !ok {
		return false
	}
	g.mu.Lock()
	_, revoked := g.revoked[claims.ID]
	g.mu.Unlock()
	return !revoked
}

// parse returns the claims of a well-signed, unexpired admin token that
// carries a token id.
func (g *Gate) parse(tokenString string) (*jwt.RegisteredClaims, bool) {
	if tokenString == "" {
		return nil, false
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return nil, false
	}
	if claims.Subject != adminSubject || claims.ID == "" {
		return nil, false
	}
	return claims, true
}

// Revoke ends the session of token for every client holding it. It reports
// false when the token was not a live session.
func (g *Gate) Revoke(tokenString string) bool {
	claims, ok := g.parse(tokenString)
	if !ok {
		return false
	}
	expires := g.now().Add(g.ttl)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	g.mu.Lock()
	if _, done := g.revoked[claims.ID]; done {
		g.mu.Unlock()
		return false
	}
	now := g.now()
	for id, exp := range g.revoked {
		if !exp.After(now) {
			delete(g.revoked, id)
		}
	}
	g.revoked[claims.ID] = expires
	observers := append([]func(string){}, g.onRevoke...)
	g.mu.Unlock()

	for _, fn := range observers {
		fn(tokenString)
	}
	return true
}

// OnRevoke registers fn to be called with every token that gets revoked.
func (g *Gate) OnRevoke(fn func(token string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onRevoke = append(g.onRevoke, fn)
}

// TTL is how long issued tokens stay valid.
func (g *Gate) TTL() time.Duration { return g.ttl }

// Flag is the admin-mode switch of one session. It starts false and is never
// persisted.
type Flag struct {
	mu    sync.RWMutex
	gate  *Gate
	admin bool
	token string
}

func NewFlag(gate *Gate) *Flag {
	return &Flag{gate: gate}
}

// Unlock turns admin mode on when password is correct. A wrong password
// leaves the flag unchanged.
func (f *Flag) Unlock(password string) error {
	token, err := f.gate.Login(password)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.admin, f.token = true, token
	f.mu.Unlock()
	return nil
}

// Lock is the logout action.
func (f *Flag) Lock() {
	f.mu.Lock()
	f.admin, f.token = false, ""
	f.mu.Unlock()
}

func (f *Flag) IsAdmin() bool {
	if f == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.admin
}

// Token is the session token issued by the last successful Unlock.
func (f *Flag) Token() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.token
}

// FromToken restores a session's flag from a token presented by a client.
func (g *Gate) FromToken(token string) *Flag {
	f := NewFlag(g)
	if g.Verify(token) {
		f.admin, f.token = true, token
	}
	return f
}

type contextKey string

const flagKey contextKey = "authFlag"

func WithFlag(ctx context.Context, f *Flag) context.Context {
	return context.WithValue(ctx, flagKey, f)
}

// FlagFrom returns the session flag stored in ctx, or nil.
func FlagFrom(ctx context.Context) *Flag {
	f, _ := ctx.Value(flagKey).(*Flag)
	return f
}

// IsAdmin reports whether the request context is in admin mode.
func IsAdmin(ctx context.Context) bool {
	return FlagFrom(ctx).IsAdmin()
}

// Package session logs users in with phone + PIN and keeps their identity in Redis.
//
// The token handed to clients only names a session; the identity it resolves to lives
// server-side under session:<id>, so logout and admin changes take effect immediately.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/storage"
)

var (
	// ErrInvalidCredentials covers unknown phone, wrong PIN and lookup failures alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned while a phone number is locked out.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
	// ErrNoSession means the token does not name a live session.
	ErrNoSession = errors.New("no active session")
	// ErrUnavailable means the session backend could not be reached.
	ErrUnavailable = errors.New("session store unavailable")
)

// Options tunes login throttling.
type Options struct {
	MaxAttempts int
	Lockout     time.Duration
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      models.User
}

// Store owns login, logout and session resolution.
type Store struct {
	users  storage.UserStore
	rdb    *redis.Client
	tokens *auth.TokenManager
	opts   Options
	logger *zap.Logger
}

// New creates a session store. tokens may be nil when the store is only used to Refresh.
func New(users storage.UserStore, rdb *redis.Client, tokens *auth.TokenManager, opts Options, logger *zap.Logger) *Store {
	return &Store{users: users, rdb: rdb, tokens: tokens, opts: opts, logger: logger}
}

func sessionKey(id string) string      { return "session:" + id }
func userSessionsKey(id string) string { return "user_sessions:" + id }
func attemptsKey(phone string) string  { return "login_attempts:" + phone }

// Each login consumes an attempt before the PIN is compared, so concurrent guesses
// cannot exceed MaxAttempts. Failed lookups that are not credential mismatches hand
// the attempt back.
var reserveAttempt = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

var releaseAttempt = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

// Login checks phone and PIN and persists the identity on success.
func (s *Store) Login(ctx context.Context, phone, pin string) (Session, error) {
	if s.opts.MaxAttempts > 0 {
		attempts, err := reserveAttempt.Run(ctx, s.rdb, []string{attemptsKey(phone)}, s.opts.Lockout.Milliseconds()).Int()
		if err != nil {
			s.logger.Error("reserve login attempt", zap.Error(err))
			return Session{}, ErrInvalidCredentials
		}
		if attempts > s.opts.MaxAttempts {
			return Session{}, ErrTooManyAttempts
		}
	}

	user, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("login lookup failed", zap.Error(err))
			s.release(ctx, phone)
		}
		return Session{}, ErrInvalidCredentials
	}
	if !auth.ComparePIN(user.PINHash, pin) {
		return Session{}, ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	token, expires, err := s.tokens.Generate(user, sessionID)
	if err != nil {
		s.logger.Error("issue session token", zap.Error(err))
		s.release(ctx, phone)
		return Session{}, ErrInvalidCredentials
	}

	blob, err := json.Marshal(user)
	if err != nil {
		return Session{}, fmt.Errorf("encode identity: %w", err)
	}
	ttl := s.tokens.TTL()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(sessionID), blob, ttl)
		pipe.SAdd(ctx, userSessionsKey(user.ID), sessionID)
		pipe.Expire(ctx, userSessionsKey(user.ID), ttl)
		pipe.Del(ctx, attemptsKey(phone))
		return nil
	})
	if err != nil {
		s.logger.Error("persist session", zap.Error(err))
		return Session{}, ErrInvalidCredentials
	}

	user.PINHash = ""
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (s *Store) release(ctx context.Context, phone string) {
	if s.opts.MaxAttempts <= 0 {
		return
	}
	if err := releaseAttempt.Run(ctx, s.rdb, []string{attemptsKey(phone)}).Err(); err != nil {
		s.logger.Warn("release login attempt", zap.Error(err))
	}
}

// Resolve returns the identity a token names. An unreadable stored identity is discarded.
func (s *Store) Resolve(ctx context.Context, token string) (models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return models.User{}, ErrNoSession
	}
	raw, err := s.rdb.Get(ctx, sessionKey(claims.ID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.User{}, ErrNoSession
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID != claims.Subject {
		s.logger.Warn("discarding unreadable session", zap.String("session_id", claims.ID))
		s.rdb.Del(ctx, sessionKey(claims.ID))
		return models.User{}, ErrNoSession
	}
	return user, nil
}

// Logout removes the persisted identity.
func (s *Store) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ErrNoSession
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(claims.ID))
		pipe.SRem(ctx, userSessionsKey(claims.Subject), claims.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Refresh rewrites the stored identity of every live session of user.
func (s *Store) Refresh(ctx context.Context, user models.User) error {
	ids, err := s.rdb.SMembers(ctx, userSessionsKey(user.ID)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	user.PINHash = ""
	blob, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	for _, id := range ids {
		ok, err := s.rdb.SetXX(ctx, sessionKey(id), blob, redis.KeepTTL).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			s.rdb.SRem(ctx, userSessionsKey(user.ID), id)
		}
	}
	return nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisSessionStore keeps sessions as theia:session:<token> -> user id with a TTL.
type RedisSessionStore struct {
	c   *redis.Client
	ttl time.Duration
}

var _ SessionStore = (*RedisSessionStore)(nil)

func NewRedisSessionStore(c *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{c: c, ttl: ttl}
}

func sessionKey(token string) string { return sessionKeyPrefix + token }

func (s *RedisSessionStore) Create(ctx context.Context, userID int64) (Session, error) {
	for i := 0; i < createAttempts; i++ {
		token := uuid.NewString()
		ok, err := s.c.SetNX(ctx, sessionKey(token), strconv.FormatInt(userID, 10), s.ttl).Result()
		if err != nil {
			return Session{}, storageErr("create session", err)
		}
		if ok {
			return Session{Token: token, UserID: userID, ExpiresAt: time.Now().Add(s.ttl)}, nil
		}
	}
	return Session{}, domain.E(domain.KindContention, "could not allocate a session token")
}

func (s *RedisSessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, domain.ErrUnauthorized
	}
	val, err := s.c.Get(ctx, sessionKey(token)).Result()
	if err == redis.Nil {
		return 0, domain.ErrUnauthorized
	}
	if err != nil {
		return 0, storageErr("resolve session", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, domain.Wrap(domain.KindUnauthorized, domain.ErrUnauthorized.Message, err)
	}
	return id, nil
}

// Rotate uses WATCH on the old key so a concurrent Destroy or Rotate aborts
// the transaction instead of resurrecting the session.
func (s *RedisSessionStore) Rotate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, domain.ErrUnauthorized
	}
	oldKey := sessionKey(token)
	next := Session{Token: uuid.NewString()}

	err := s.c.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, oldKey).Result()
		if err == redis.Nil {
			return domain.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		userID, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return domain.Wrap(domain.KindUnauthorized, domain.ErrUnauthorized.Message, err)
		}
		next.UserID = userID

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, oldKey)
			p.Set(ctx, sessionKey(next.Token), val, s.ttl)
			return nil
		})
		return err
	}, oldKey)

	var de *domain.Error
	switch {
	case err == nil:
		next.ExpiresAt = time.Now().Add(s.ttl)
		return next, nil
	case errors.Is(err, redis.TxFailedErr):
		return Session{}, errSessionChanged
	case errors.As(err, &de):
		return Session{}, err
	default:
		return Session{}, storageErr("rotate session", err)
	}
}

func (s *RedisSessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.c.Del(ctx, sessionKey(token)).Err(); err != nil {
		return storageErr("destroy session", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.Wrap(domain.KindTimeout, domain.ErrTimeout.Message, err)
	}
	return domain.Wrap(domain.KindStorage, domain.ErrStorage.Message, fmt.Errorf("%s: %w", op, err))
}

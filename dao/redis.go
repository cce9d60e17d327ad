package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cs-portal/model"

	"github.com/go-redis/redis/v8"
)

type RedisStore struct {
	client     *redis.Client
	keyPrefix  string
	ttl        time.Duration
	maxRetries int
}

type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	TTL        time.Duration
	MaxRetries int
}

func NewRedisStore(opts RedisOptions) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	keyPrefix := opts.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "cs-portal:session:"
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &RedisStore{
		client:     client,
		keyPrefix:  keyPrefix,
		ttl:        ttl,
		maxRetries: opts.MaxRetries,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*model.FormSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}

	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session model.FormSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *model.FormSession) error {
	if err := validateSession(session); err != nil {
		return err
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err()
}

// Update is an optimistic read-modify-write: the key is WATCHed, fn runs on
// the decoded session and the write goes through MULTI/EXEC. A concurrent
// writer makes EXEC fail and the whole cycle is retried.
func (s *RedisStore) Update(ctx context.Context, sessionID string, fn UpdateFunc) (*model.FormSession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: update func is nil", ErrInvalidParam)
	}

	key := s.key(sessionID)
	var updated *model.FormSession

	for i := 0; i <= s.maxRetries; i++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current := model.NewFormSession(sessionID)

			data, err := tx.Get(ctx, key).Bytes()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if err == nil {
				if err := json.Unmarshal(data, current); err != nil {
					return err
				}
			}

			if err := fn(current); err != nil {
				return &abortError{err: err}
			}
			current.ID = sessionID
			current.UpdatedAt = time.Now().UTC()

			out, err := json.Marshal(current)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, out, s.ttl)
				return nil
			})
			if err == nil {
				updated = current
			}
			return err
		}, key)

		if err == nil {
			return updated, nil
		}

		var abort *abortError
		if errors.As(err, &abort) {
			return nil, abort.err
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}

		if i < s.maxRetries {
			time.Sleep(time.Millisecond * time.Duration(10*(i+1)))
		}
	}

	return nil, fmt.Errorf("%w for session %s", ErrMaxRetries, sessionID)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: sessionID is empty", ErrInvalidParam)
	}
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// abortError carries an UpdateFunc error out of the WATCH callback so it is
// not mistaken for a transaction failure.
type abortError struct {
	err error
}

func (e *abortError) Error() string { return e.err.Error() }

func (e *abortError) Unwrap() error { return e.err }

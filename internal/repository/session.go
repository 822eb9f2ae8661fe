package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/nilavanti/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "nilavanti:session:"
	userSessionKeyPrefix = "nilavanti:user-sessions:"
)

// RedisSessionStore keeps session records in Redis with a per-user index so
// that every session of a user can be revoked at once.
type RedisSessionStore struct {
	rdb *redis.Client
}

// NewRedisSessionStore returns a session store backed by rdb.
func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func sessionKey(id string) string      { return sessionKeyPrefix + id }
func userSessionsKey(uid string) string { return userSessionKeyPrefix + uid }

// Save stores s until s.ExpiresAt.
func (st *RedisSessionStore) Save(ctx context.Context, s *models.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("save session: already expired")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = st.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), data, ttl)
		if s.UserID != "" {
			idx := userSessionsKey(s.UserID)
			pipe.SAdd(ctx, idx, s.ID)
			// The index lives at least as long as its newest session.
			pipe.Expire(ctx, idx, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads the session with id. A missing or expired record yields
// models.ErrSessionNotFound.
func (st *RedisSessionStore) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := st.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

// Delete removes the session with id. Deleting an unknown session is not an error.
func (st *RedisSessionStore) Delete(ctx context.Context, id string) error {
	s, err := st.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	_, err = st.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		if s.UserID != "" {
			pipe.SRem(ctx, userSessionsKey(s.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteAllForUser revokes every session of userID except the one with id
// except (pass "" to revoke all). It returns the number of sessions removed.
func (st *RedisSessionStore) DeleteAllForUser(ctx context.Context, userID, except string) (int, error) {
	idx := userSessionsKey(userID)
	ids, err := st.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	var victims []string
	for _, id := range ids {
		if id != except {
			victims = append(victims, id)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}

	var del *redis.IntCmd
	_, err = st.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		keys := make([]string, 0, len(victims))
		members := make([]interface{}, 0, len(victims))
		for _, id := range victims {
			keys = append(keys, sessionKey(id))
			members = append(members, id)
		}
		del = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, idx, members...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return int(del.Val()), nil
}

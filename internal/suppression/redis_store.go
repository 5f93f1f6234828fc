package suppression

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

// RedisStore keeps the table in one Redis hash: field = email, value = JSON record.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store that uses the hash at key.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = "leadgen:suppression"
	}
	return &RedisStore{client: client, key: key}
}

// Load reads every field of the hash.
func (s *RedisStore) Load(ctx context.Context) (Table, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", s.key, err)
	}
	t := make(Table, len(raw))
	for email, val := range raw {
		var rec domain.SuppressionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return nil, fmt.Errorf("decode suppression record for %s: %w", email, err)
		}
		t[email] = rec
	}
	return t, nil
}

// Save replaces the hash atomically in a MULTI/EXEC block.
func (s *RedisStore) Save(ctx context.Context, t Table) error {
	values := make(map[string]interface{}, len(t))
	for email, rec := range t {
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		values[email] = string(data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", s.key, err)
	}
	return nil
}

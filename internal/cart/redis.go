package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultCartTTL is how long an untouched cart survives
const DefaultCartTTL = 7 * 24 * time.Hour

// RedisStore keeps each session's cart as one JSON document.
// Every write refreshes the TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultCartTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) Lines(ctx context.Context, sessionID string) ([]models.CartLine, error) {
	data, err := r.client.Get(ctx, cartKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return []models.CartLine{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisStore) Add(ctx context.Context, sessionID string, line models.CartLine) ([]models.CartLine, error) {
	return r.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		return addLine(lines, line)
	})
}

func (r *RedisStore) UpdateQuantity(ctx context.Context, sessionID, productID, variantKey string, quantity int) ([]models.CartLine, error) {
	return r.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		return updateQuantity(lines, productID, variantKey, quantity)
	})
}

func (r *RedisStore) Remove(ctx context.Context, sessionID, productID, variantKey string) ([]models.CartLine, error) {
	return r.mutate(ctx, sessionID, func(lines []models.CartLine) ([]models.CartLine, error) {
		return removeLine(lines, productID, variantKey)
	})
}

func (r *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// mutate applies fn inside an optimistic WATCH transaction so two tabs of the
// same session cannot overwrite each other's edits.
func (r *RedisStore) mutate(ctx context.Context, sessionID string, fn func([]models.CartLine) ([]models.CartLine, error)) ([]models.CartLine, error) {
	key := cartKey(sessionID)
	var result []models.CartLine

	txf := func(tx *redis.Tx) error {
		lines := []models.CartLine{}
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("redis get failed: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, &lines); err != nil {
				return fmt.Errorf("unmarshal cart failed: %w", err)
			}
		}

		updated, err := fn(lines)
		if err != nil {
			return err
		}

		payload, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("marshal cart failed: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, fmt.Errorf("cart %s: too many concurrent updates", sessionID)
}

func cartKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}

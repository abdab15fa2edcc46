package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ashendes/storefront-checkout/internal/models"
	"github.com/redis/go-redis/v9"
)

const pendingAttemptsKey = "checkout:attempts:pending"

// attemptRecord is the stored form of an attempt. It keeps the signed
// confirmation so verification can run again after a restart.
type attemptRecord struct {
	Attempt
	Confirmation *models.PaymentConfirmation `json:"confirmation,omitempty"`
}

// RedisLedgerStore keeps pending attempts as JSON documents indexed by a set
type RedisLedgerStore struct {
	client *redis.Client
}

func NewRedisLedgerStore(client *redis.Client) *RedisLedgerStore {
	return &RedisLedgerStore{client: client}
}

func (r *RedisLedgerStore) Save(ctx context.Context, attempt Attempt) error {
	payload, err := json.Marshal(attemptRecord{Attempt: attempt, Confirmation: attempt.Confirmation})
	if err != nil {
		return fmt.Errorf("marshal attempt failed: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, attemptKey(attempt.ID), payload, 0)
		pipe.SAdd(ctx, pendingAttemptsKey, attempt.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save attempt failed: %w", err)
	}
	return nil
}

func (r *RedisLedgerStore) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, attemptKey(id))
		pipe.SRem(ctx, pendingAttemptsKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete attempt failed: %w", err)
	}
	return nil
}

func (r *RedisLedgerStore) Load(ctx context.Context) ([]Attempt, error) {
	ids, err := r.client.SMembers(ctx, pendingAttemptsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers failed: %w", err)
	}

	out := make([]Attempt, 0, len(ids))
	for _, id := range ids {
		data, err := r.client.Get(ctx, attemptKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			r.client.SRem(ctx, pendingAttemptsKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis get attempt failed: %w", err)
		}

		var record attemptRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("unmarshal attempt %s failed: %w", id, err)
		}
		attempt := record.Attempt
		attempt.Confirmation = record.Confirmation
		out = append(out, attempt)
	}
	return out, nil
}

func attemptKey(id string) string {
	return fmt.Sprintf("checkout:attempt:%s", id)
}

package queue

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"dhukaan/backend/internal/domain"
)

const redisQueueKey = "dhukaan:offline:transactions"

// RedisQueue keeps the offline backlog in a Redis list so a till restart
// does not lose sales taken while the central store was unreachable.
type RedisQueue struct {
	client *redis.Client
}

func NewRedisQueue(addr string, password string, db int) *RedisQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisQueue{client: client}
}

func (q *RedisQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

func (q *RedisQueue) Enqueue(ctx context.Context, tx domain.Transaction) error {
	payload, err := json.Marshal(tx)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, redisQueueKey, payload).Err()
}

func (q *RedisQueue) List(ctx context.Context) ([]domain.Transaction, error) {
	values, err := q.client.LRange(ctx, redisQueueKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(values))
	for _, value := range values {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(value), &tx); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (q *RedisQueue) Clear(ctx context.Context) error {
	return q.client.Del(ctx, redisQueueKey).Err()
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, redisQueueKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

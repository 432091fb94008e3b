package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/inventory-ledger/internal/core/domain"
)

const stockViewKeyPrefix = "stockview:"

// RedisAdapter caches read-side stock views. Never authoritative: every
// entry expires and every apply invalidates the affected SKU.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) GetStockView(ctx context.Context, sku string) (*domain.StockView, error) {
	data, err := r.client.Get(ctx, stockViewKeyPrefix+sku).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stock view: %w", err)
	}

	var view domain.StockView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("decode stock view: %w", err)
	}
	return &view, nil
}

func (r *RedisAdapter) SetStockView(ctx context.Context, view domain.StockView, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode stock view: %w", err)
	}
	return r.client.Set(ctx, stockViewKeyPrefix+view.SKU, data, ttl).Err()
}

func (r *RedisAdapter) InvalidateStockView(ctx context.Context, sku string) error {
	return r.client.Del(ctx, stockViewKeyPrefix+sku).Err()
}

package experts

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"prospect-onboarding/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "experts:products:"

// Cache keeps directory answers per product set for a short time.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Key is order-insensitive: the same products always share an entry.
func Key(productIDs []string) string {
	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)
	return keyPrefix + strings.Join(ids, ",")
}

// Get returns the cached experts; ok is false on a miss.
func (c *Cache) Get(ctx context.Context, productIDs []string) (experts []models.Expert, ok bool, err error) {
	raw, err := c.client.Get(ctx, Key(productIDs)).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if err := json.Unmarshal(raw, &experts); err != nil {
		return nil, false, err
	}
	return experts, true, nil
}

func (c *Cache) Set(ctx context.Context, productIDs []string, experts []models.Expert) error {
	raw, err := json.Marshal(experts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(productIDs), raw, c.ttl).Err()
}

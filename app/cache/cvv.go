package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCvvNotFound = errors.New("cvv not found")

const defaultCvvTTL = 15 * time.Minute

// CvvCache holds the CVV between a pending 3DS charge and its complete-3DS
// round trip. Entries are read-once and expire on their own; nothing here is
// ever written to durable storage.
type CvvCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCvvCache(redisURL string, ttl time.Duration) (*CvvCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultCvvTTL
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &CvvCache{client: client, ttl: ttl}, nil
}

func (c *CvvCache) Store(ctx context.Context, transactionID, billerName, cvv string) error {
	return c.client.Set(ctx, cvvKey(transactionID, billerName), cvv, c.ttl).Err()
}

// Take returns the cached CVV and deletes it in the same round trip.
func (c *CvvCache) Take(ctx context.Context, transactionID, billerName string) (string, error) {
	value, err := c.client.GetDel(ctx, cvvKey(transactionID, billerName)).Result()
	if err == redis.Nil {
		return "", ErrCvvNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (c *CvvCache) Close() error {
	return c.client.Close()
}

func cvvKey(transactionID, billerName string) string {
	return "cvv:" + transactionID + ":" + billerName
}

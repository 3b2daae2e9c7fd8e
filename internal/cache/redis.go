package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init connects to Redis. On failure the client stays nil and every cache
// call degrades to a miss, so the API keeps working without Redis.
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis"
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		client = nil
		return err
	}
	return nil
}

// Key builders. Every key is tenant-scoped so invalidation in one company
// never evicts another's data.

func SessionListKey(companyID int, status string) string {
	return fmt.Sprintf("sessions:%d:list:%s", companyID, status)
}

func JobCardKey(companyID, jobCardID int) string {
	return fmt.Sprintf("job_cards:%d:%d", companyID, jobCardID)
}

func InvoiceListKey(companyID int, status string) string {
	return fmt.Sprintf("invoices:%d:list:%s", companyID, status)
}

// GetCached returns cached data for a key.
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL.
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern.
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	keys, err := client.Keys(ctx, pattern).Result()
	if err == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateSessionCaches clears session caches for one company.
// Called when: CreateSession, UpdateStatus, CheckOut, Cancel.
func InvalidateSessionCaches(ctx context.Context, companyID int) {
	InvalidatePattern(ctx, fmt.Sprintf("sessions:%d:*", companyID))
}

// InvalidateJobCardCaches clears job card caches for one company.
// Called when: any job card, task or part mutation.
func InvalidateJobCardCaches(ctx context.Context, companyID int) {
	InvalidatePattern(ctx, fmt.Sprintf("job_cards:%d:*", companyID))
}

// InvalidateInvoiceCaches clears invoice caches for one company.
// Called when: any invoice or payment mutation, and the overdue sweep.
func InvalidateInvoiceCaches(ctx context.Context, companyID int) {
	InvalidatePattern(ctx, fmt.Sprintf("invoices:%d:*", companyID))
}

// IsHealthy reports whether the Redis connection is working.
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

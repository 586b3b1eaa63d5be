package spend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// keyTTL outlives the month a key belongs to so month-to-date reads never race the expiry.
const keyTTL = 35 * 24 * time.Hour

// RedisLedger stores one float counter per user and month.
type RedisLedger struct {
	client redis.UniversalClient
	logger *slog.Logger
}

// NewRedisLedger connects to the Redis server described by url (redis://[:password@]host:port/db).
func NewRedisLedger(ctx context.Context, logger *slog.Logger, url string) (*RedisLedger, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &RedisLedger{client: client, logger: logger}, nil
}

func (l *RedisLedger) MonthToDate(ctx context.Context, userID string, now time.Time) (float64, error) {
	total, err := l.client.Get(ctx, ledgerKey(userID, now)).Float64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read spend: %w", err)
	}

	return total, nil
}

func (l *RedisLedger) Record(ctx context.Context, userID string, now time.Time, amountUSD float64) error {
	key := ledgerKey(userID, now)

	pipe := l.client.TxPipeline()
	pipe.IncrByFloat(ctx, key, amountUSD)
	pipe.Expire(ctx, key, keyTTL)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}

	l.logger.DebugContext(ctx, "Recorded spend", "user_id", userID, "amount_usd", amountUSD)

	return nil
}

func (l *RedisLedger) Close() error {
	return l.client.Close()
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptiq/m/v2/app/lib"

	r "github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const usageResetMarkerTTL = 62 * 24 * time.Hour

// Totals are the system-wide lifetime counters; they survive the monthly reset.
type Totals struct {
	Generations int64 `json:"generations"`
	Tokens      int64 `json:"tokens"`
}

// RecordGeneration bumps the system and per-user counters and returns the user's
// generation count for the current month.
func RecordGeneration(ctx context.Context, c Client, userID string, tokens int) (int64, error) {
	if err := c.IncrBy(ctx, lib.SystemTotalGenerationsKey, 1).Err(); err != nil {
		return 0, fmt.Errorf("RecordGeneration: failed to increment system generations: %w", err)
	}
	if err := c.IncrBy(ctx, lib.SystemTotalTokensKey, int64(tokens)).Err(); err != nil {
		return 0, fmt.Errorf("RecordGeneration: failed to increment system tokens: %w", err)
	}
	if err := c.IncrBy(ctx, lib.UserTotalTokensKey(userID), int64(tokens)).Err(); err != nil {
		return 0, fmt.Errorf("RecordGeneration: failed to increment user tokens: %w", err)
	}
	monthly, err := c.IncrBy(ctx, lib.UserMonthlyGenerationsKey(userID), 1).Result()
	if err != nil {
		return 0, fmt.Errorf("RecordGeneration: failed to increment user generations: %w", err)
	}
	return monthly, nil
}

func GetTotals(ctx context.Context, c Client) (Totals, error) {
	generations, err := getInt(ctx, c, lib.SystemTotalGenerationsKey)
	if err != nil {
		return Totals{}, err
	}
	tokens, err := getInt(ctx, c, lib.SystemTotalTokensKey)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Generations: generations, Tokens: tokens}, nil
}

// ClearUserGenerations drops every per-user monthly generation counter.
func ClearUserGenerations(ctx context.Context, c Client) (int64, error) {
	keys, err := c.Keys(ctx, lib.UserMonthlyGenerationsKey("*")).Result()
	if err != nil {
		return 0, fmt.Errorf("ClearUserGenerations: failed to list keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := c.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("ClearUserGenerations: failed to delete keys: %w", err)
	}
	log.Infof("ClearUserGenerations: cleared %d user counters", deleted)
	return deleted, nil
}

// ClaimUsageReset returns true for exactly one caller per billing month.
func ClaimUsageReset(ctx context.Context, c Client, now time.Time) (bool, error) {
	claimed, err := c.SetNX(ctx, lib.UsageResetKey(now), now.UTC().Format(time.RFC3339), usageResetMarkerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("ClaimUsageReset: %w", err)
	}
	return claimed, nil
}

// ReleaseUsageReset lets a failed reset be retried within the same month.
func ReleaseUsageReset(ctx context.Context, c Client, now time.Time) error {
	return c.Del(ctx, lib.UsageResetKey(now)).Err()
}

func getInt(ctx context.Context, c Client, key string) (int64, error) {
	value, err := c.Get(ctx, key).Int64()
	if errors.Is(err, r.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RamanArcStudios/CulturePassAU-sub003/internal/status"
	"github.com/redis/go-redis/v9"
)

// PurchaseGuard rejects a second purchase for the same user and event while
// the first one is still settling.
type PurchaseGuard interface {
	Acquire(ctx context.Context, userID, eventID string) error
	Release(ctx context.Context, userID, eventID string)
}

type NoopPurchaseGuard struct{}

func (NoopPurchaseGuard) Acquire(context.Context, string, string) error { return nil }

func (NoopPurchaseGuard) Release(context.Context, string, string) {}

type RedisPurchaseGuard struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisPurchaseGuard(redisClient *redis.Client, ttl time.Duration) *RedisPurchaseGuard {
	return &RedisPurchaseGuard{Redis: redisClient, TTL: ttl}
}

func purchaseGuardKey(userID, eventID string) string {
	return fmt.Sprintf("purchase:guard:%s:%s", userID, eventID)
}

// Acquire fails open: a Redis outage must not stop ticket sales.
func (g *RedisPurchaseGuard) Acquire(ctx context.Context, userID, eventID string) error {
	ok, err := g.Redis.SetNX(ctx, purchaseGuardKey(userID, eventID), 1, g.TTL).Result()
	if err != nil {
		slog.Warn("Purchase guard unavailable, allowing purchase", "user_id", userID, "event_id", eventID, "error", err)
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: user %s, event %s", status.ErrDuplicatePurchase, userID, eventID)
	}
	return nil
}

func (g *RedisPurchaseGuard) Release(ctx context.Context, userID, eventID string) {
	if err := g.Redis.Del(ctx, purchaseGuardKey(userID, eventID)).Err(); err != nil {
		slog.Warn("Failed to release purchase guard", "user_id", userID, "event_id", eventID, "error", err)
	}
}

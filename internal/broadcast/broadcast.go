package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SaleEvent announces a completed sale to other registers. The broadcast is
// best effort only: listeners may miss events and must never depend on them
// for correctness.
type SaleEvent struct {
	StoreID     string    `json:"store_id"`
	RegisterID  string    `json:"register_id"`
	ReceiptID   string    `json:"receipt_id"`
	Total       float64   `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

type Notifier interface {
	SaleCompleted(ctx context.Context, ev SaleEvent)
}

// Nop is used when no redis address is configured.
type Nop struct{}

func (Nop) SaleCompleted(context.Context, SaleEvent) {}

// Redis publishes sale events on a per-store channel. Publish failures are
// logged and swallowed.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedis(addr string, logger *zap.Logger) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger.Named("broadcast"),
	}
}

func channelFor(storeID string) string {
	return fmt.Sprintf("pos:%s:sales", storeID)
}

func (r *Redis) SaleCompleted(ctx context.Context, ev SaleEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		r.logger.Warn("sale event not serializable", zap.Error(err))
		return
	}
	if err := r.client.Publish(ctx, channelFor(ev.StoreID), payload).Err(); err != nil {
		r.logger.Warn("sale broadcast failed",
			zap.String("receipt_id", ev.ReceiptID),
			zap.Error(err),
		)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

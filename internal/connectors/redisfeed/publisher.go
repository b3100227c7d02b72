// Package redisfeed publishes detected opportunities to Redis for the
// presentation layer: a stream of detections plus a ZSET of the live set
// ranked by net profit.
package redisfeed

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-core/internal/config"
	"github.com/you/arb-core/internal/types"
)

type Publisher struct {
	rdb     *redis.Client
	stream  string
	liveKey string
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Publisher{
		rdb:     rdb,
		stream:  cfg.Redis.Stream,
		liveKey: cfg.Redis.LiveKey,
	}
}

// PublishOpportunity appends the detection to the stream and refreshes the
// live ranking entry for its key.
func (p *Publisher) PublishOpportunity(ctx context.Context, o types.Opportunity) error {
	if err := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 10_000,
		Approx: true,
		Values: map[string]interface{}{
			"key":         o.Key,
			"pair":        string(o.Pair),
			"buy_venue":   string(o.BuyVenue),
			"sell_venue":  string(o.SellVenue),
			"buy_px":      o.BuyPx,
			"sell_px":     o.SellPx,
			"spread_bps":  o.SpreadBps,
			"net_bps":     o.NetBps,
			"net_quote":   o.NetQuote,
			"detected_ms": o.DetectedAt.UnixMilli(),
			"expires_ms":  o.ExpiresAt.UnixMilli(),
		},
	}).Err(); err != nil {
		return err
	}
	return p.rdb.ZAdd(ctx, p.liveKey, redis.Z{
		Score:  o.NetBps,
		Member: o.Key,
	}).Err()
}

// RemoveFromLive drops a swept opportunity from the live ranking.
func (p *Publisher) RemoveFromLive(ctx context.Context, key string) error {
	return p.rdb.ZRem(ctx, p.liveKey, key).Err()
}

// TopLive returns the n best live opportunity keys, best first.
func (p *Publisher) TopLive(ctx context.Context, n int64) ([]string, error) {
	return p.rdb.ZRevRange(ctx, p.liveKey, 0, n-1).Result()
}

func (p *Publisher) Close() error { return p.rdb.Close() }

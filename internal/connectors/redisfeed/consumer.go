package redisfeed

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/arb-core/internal/config"
	"github.com/you/arb-core/internal/types"
)

type Consumer struct {
	rdb    *redis.Client
	stream string
}

func NewConsumer(cfg *config.Config) *Consumer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	return &Consumer{rdb: rdb, stream: cfg.Redis.Stream}
}

// StreamConsume delivers published opportunities through out via a consumer
// group until ctx is done. Create the group once:
//
//	XGROUP CREATE opp:stream feed $ MKSTREAM
func (c *Consumer) StreamConsume(ctx context.Context, group, consumer string, out chan<- types.Opportunity) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: consumer,
			Streams:  []string{c.stream, ">"},
			Count:    200,
			Block:    time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		for _, s := range streams {
			for _, m := range s.Messages {
				o := decodeOpportunity(m.Values)
				if o.Key != "" && o.Pair != "" {
					select {
					case out <- o:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				_ = c.rdb.XAck(ctx, c.stream, group, m.ID).Err()
			}
		}
	}
}

func (c *Consumer) Close() error { return c.rdb.Close() }

func decodeOpportunity(values map[string]interface{}) types.Opportunity {
	var o types.Opportunity
	if v, ok := values["key"].(string); ok {
		o.Key = v
	}
	if v, ok := values["pair"].(string); ok {
		o.Pair = types.Pair(v)
	}
	if v, ok := values["buy_venue"].(string); ok {
		o.BuyVenue = types.VenueID(v)
	}
	if v, ok := values["sell_venue"].(string); ok {
		o.SellVenue = types.VenueID(v)
	}
	if v, ok := values["buy_px"].(string); ok {
		o.BuyPx = parseFloat(v)
	}
	if v, ok := values["sell_px"].(string); ok {
		o.SellPx = parseFloat(v)
	}
	if v, ok := values["spread_bps"].(string); ok {
		o.SpreadBps = parseFloat(v)
	}
	if v, ok := values["net_bps"].(string); ok {
		o.NetBps = parseFloat(v)
	}
	if v, ok := values["net_quote"].(string); ok {
		o.NetQuote = parseFloat(v)
	}
	if v, ok := values["detected_ms"].(string); ok {
		o.DetectedAt = time.UnixMilli(parseInt(v))
	}
	if v, ok := values["expires_ms"].(string); ok {
		o.ExpiresAt = time.UnixMilli(parseInt(v))
	}
	return o
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseInt(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

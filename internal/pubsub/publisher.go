// Package pubsub fans queue-state changes out over Redis Pub/Sub so
// companion processes (dashboards, the economy bot) can react without
// polling the engine.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ebcbot/waitlist/internal/models"
	"github.com/ebcbot/waitlist/pkg/logger"
)

type Publisher interface {
	PublishRoomUpdate(ctx context.Context, event models.RoomUpdateEvent) error
	Close() error
}

type redisPublisher struct {
	cli *redis.Client
	l   logger.Logger
}

func NewRedisPublisher(cli *redis.Client, l logger.Logger) Publisher {
	return &redisPublisher{
		cli: cli,
		l:   l,
	}
}

func (p *redisPublisher) PublishRoomUpdate(ctx context.Context, event models.RoomUpdateEvent) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "pubsub.PublishRoomUpdate: %v", err)
		return err
	}

	channel := fmt.Sprintf("waitlist:%s:updates", event.RoomID)
	if err := p.cli.Publish(ctx, channel, val).Err(); err != nil {
		p.l.Errorf(ctx, "pubsub.PublishRoomUpdate: %v", err)
		return err
	}

	return nil
}

func (p *redisPublisher) Close() error {
	return p.cli.Close()
}

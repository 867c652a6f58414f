package events

import (
	"context"
	"errors"
	"strconv"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"

	"github.com/redis/go-redis/v9"
)

const defaultStream = "cipherid:events"

// RedisPublisher appends committed events to a redis stream. XADD keeps the
// stream append-only and ordered, matching the event log's commit order.
type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewRedisPublisher(addr, password string, db int, stream string) (*RedisPublisher, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if db < 0 {
		return nil, errors.New("redis db must not be negative")
	}
	if stream == "" {
		stream = defaultStream
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: client, stream: stream}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	values := map[string]any{
		"type":            string(event.Type),
		"identifier_hash": event.IdentifierHash.String(),
		"seq":             strconv.FormatInt(event.Seq, 10),
	}
	if event.Owner != "" {
		values["owner"] = event.Owner
	}
	if event.Type == domain.EventDeviceAuthenticated {
		values["auth_time"] = strconv.FormatInt(event.AuthTime, 10)
	}
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err()
}

var _ usecase.EventPublisher = (*RedisPublisher)(nil)

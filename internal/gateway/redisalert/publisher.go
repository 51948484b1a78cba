// Package redisalert publishes replenishment alerts to Redis pub/sub channels, where the chat bridge picks them up.
package redisalert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"replenishment-service/internal/gateway"
	"replenishment-service/internal/modal"
)

// Message is the JSON document published for each alert.
type Message struct {
	MessageID string          `json:"message_id"`
	Channel   string          `json:"channel"`
	Body      modal.AlertBody `json:"body"`
	PostedAt  int64           `json:"posted_at"`
}

type Publisher struct {
	client *redis.Client
	now    func() time.Time
	newID  func() string
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(addr, password string, db int) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newPublisher(client), nil
}

func newPublisher(client *redis.Client) *Publisher {
	return &Publisher{
		client: client,
		now:    time.Now,
		newID:  func() string { return "msg-" + uuid.NewString() },
	}
}

func (p *Publisher) Post(ctx context.Context, channel string, body modal.AlertBody) (gateway.AlertReceipt, error) {
	msg, payload, err := p.encode(channel, body)
	if err != nil {
		return gateway.AlertReceipt{}, err
	}
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return gateway.AlertReceipt{}, fmt.Errorf("failed to publish alert: %w", err)
	}
	return gateway.AlertReceipt{MessageID: msg.MessageID}, nil
}

func (p *Publisher) encode(channel string, body modal.AlertBody) (Message, []byte, error) {
	if strings.TrimSpace(channel) == "" {
		return Message{}, nil, fmt.Errorf("alert channel is required")
	}
	msg := Message{
		MessageID: p.newID(),
		Channel:   channel,
		Body:      body,
		PostedAt:  p.now().UTC().Unix(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return Message{}, nil, fmt.Errorf("failed to marshal alert: %w", err)
	}
	return msg, payload, nil
}

// Subscribe opens a subscription on channel, the way the chat bridge consumes alerts.
func (p *Publisher) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return p.client.Subscribe(ctx, channel)
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

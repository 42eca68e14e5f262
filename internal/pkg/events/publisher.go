package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"go.uber.org/zap"
)

// ChannelPrefix namespaces every published event channel.
const ChannelPrefix = "sealvault.events."

// Publisher emits domain signals over Redis pub/sub. Nothing in this process
// subscribes: notification and indexing services consume them externally.
type Publisher struct {
	client *redis.Client
	logger *logger.Logger
}

func NewPublisher(client *redis.Client, log *logger.Logger) *Publisher {
	return &Publisher{client: client, logger: log}
}

// Publish emits one event. Event delivery is best effort: the mutation the
// event describes has already committed, so a publish failure is logged and
// swallowed rather than failing the caller's request.
func (p *Publisher) Publish(ctx context.Context, event string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithContext(ctx).Error("failed to marshal event payload",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	if err := p.client.Publish(ctx, ChannelPrefix+event, body).Err(); err != nil {
		p.logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("event", event),
			zap.Error(err))
		return
	}

	p.logger.WithContext(ctx).Debug("event published", zap.String("event", event))
}

// NopPublisher discards every event. Used when Redis is not configured and in
// tests.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event string, payload interface{}) {}

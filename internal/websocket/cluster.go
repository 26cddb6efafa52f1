package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/thereayou/workspace-chat/internal/metrics"
	"go.uber.org/zap"
)

// ClusterBridge пересылает рассылки комнат между инстансами через Redis pub/sub.
// Локальные участники получают сообщение сразу, остальные инстансы доставляют
// его своим участникам той же комнаты.
type ClusterBridge struct {
	hub     *Hub
	rdb     *redis.Client
	channel string
	origin  string
	logger  *zap.Logger
}

const (
	publishTimeout   = 2 * time.Second
	subscribeTimeout = 5 * time.Second
)

type clusterEnvelope struct {
	Origin      string          `json:"origin"`
	WorkspaceID string          `json:"workspace_id"`
	Message     json.RawMessage `json:"message"`
}

func NewClusterBridge(hub *Hub, rdb *redis.Client, channel string) *ClusterBridge {
	return &ClusterBridge{
		hub:     hub,
		rdb:     rdb,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  hub.logger.Named("cluster"),
	}
}

// SendToRoom доставляет локально и публикует для остальных инстансов
func (b *ClusterBridge) SendToRoom(workspaceID string, message []byte) int {
	delivered := b.hub.SendToRoom(workspaceID, message)

	payload, err := json.Marshal(clusterEnvelope{
		Origin:      b.origin,
		WorkspaceID: workspaceID,
		Message:     message,
	})
	if err != nil {
		b.logger.Error("encode cluster envelope", zap.Error(err))
		return delivered
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		metrics.ClusterPublishFailures.Inc()
		b.logger.Warn("redis publish failed", zap.String("workspace_id", workspaceID), zap.Error(err))
	}

	return delivered
}

// Start подписывается на канал и ждёт подтверждения подписки от Redis.
// Чтение канала продолжается в фоне до отмены ctx.
func (b *ClusterBridge) Start(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)

	subCtx, cancel := context.WithTimeout(ctx, subscribeTimeout)
	defer cancel()

	if _, err := pubsub.Receive(subCtx); err != nil {
		pubsub.Close()
		return errors.Wrap(err, "redis subscribe")
	}

	b.logger.Info("subscribed to cluster channel", zap.String("channel", b.channel))
	go b.listen(ctx, pubsub)
	return nil
}

func (b *ClusterBridge) listen(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.deliver([]byte(msg.Payload))
		}
	}
}

// deliver отдаёт чужую рассылку локальным участникам, свои сообщения пропускает
func (b *ClusterBridge) deliver(raw []byte) int {
	var env clusterEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.logger.Warn("redis message parse error", zap.Error(err))
		return 0
	}

	if env.Origin == b.origin || env.WorkspaceID == "" {
		return 0
	}

	return b.hub.SendToRoom(env.WorkspaceID, env.Message)
}

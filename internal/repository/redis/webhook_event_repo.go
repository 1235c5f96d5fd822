package redis

import (
	"context"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/pkg/clients"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/jimlawless/whereami"
)

// WebhookEventRepo хранит id уже обработанных событий вебхука с TTL.
type WebhookEventRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
}

func NewWebhookEventRepo(client *clients.RedisClient, cfg *cfg.RedisCfg) *WebhookEventRepo {
	return &WebhookEventRepo{
		client: client,
		cfg:    cfg,
	}
}

func (r *WebhookEventRepo) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := r.client.Client.Exists(ctx, webhookEventKey(eventID)).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return n > 0, nil
}

func (r *WebhookEventRepo) MarkProcessed(ctx context.Context, eventID string) error {
	if err := r.client.Client.Set(ctx, webhookEventKey(eventID), 1, r.cfg.WebhookEventTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func webhookEventKey(eventID string) string {
	return "webhook:event:" + eventID
}

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/DRSN-tech/visual-commerce/internal/cfg"
	"github.com/DRSN-tech/visual-commerce/internal/repository/redis/converter"
	"github.com/DRSN-tech/visual-commerce/internal/usecase"
	"github.com/DRSN-tech/visual-commerce/pkg/clients"
	"github.com/DRSN-tech/visual-commerce/pkg/e"
	"github.com/DRSN-tech/visual-commerce/pkg/jitter"
	"github.com/DRSN-tech/visual-commerce/pkg/logger"
	"github.com/jimlawless/whereami"
)

const (
	productCardPrefix = "vc:product:"
	ttlJitter         = 0.2
)

// CacheRepo — read-through кэш карточек товаров для выдачи поиска.
// Ошибки отдельных ключей не прерывают чтение: такой ключ считается промахом.
type CacheRepo struct {
	client *clients.RedisClient
	conv   converter.ProductInfoConverter
	ttl    time.Duration
	logger logger.Logger
}

func NewCacheRepo(client *clients.RedisClient, conv converter.ProductInfoConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *CacheRepo {
	return &CacheRepo{
		client: client,
		conv:   conv,
		ttl:    cfg.ProductTTL,
		logger: logger,
	}
}

// GetProducts возвращает найденные в кэше карточки. Отсутствующие id в результат не попадают.
func (r *CacheRepo) GetProducts(ctx context.Context, ids []int64) (map[int64]usecase.ProductInfo, error) {
	if len(ids) == 0 {
		return map[int64]usecase.ProductInfo{}, nil
	}

	keys := productCardKeys(ids)
	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[int64]usecase.ProductInfo, len(values))
	var stale []string
	for i, val := range values {
		model, err := decodeProductCard(val)
		if err != nil {
			r.logger.Warnf("drop cached card %s: %v", keys[i], err)
			stale = append(stale, keys[i])
			continue
		}
		if model == nil {
			continue
		}
		if model.ID != ids[i] {
			r.logger.Warnf("cached card %s holds product %d", keys[i], model.ID)
			stale = append(stale, keys[i])
			continue
		}

		result[ids[i]] = *r.conv.ToUseCase(model)
	}

	if len(stale) > 0 {
		if err := r.client.Client.Del(ctx, stale...).Err(); err != nil {
			r.logger.Warnf("failed to delete %d stale cards: %v", len(stale), e.Wrap(whereami.WhereAmI(), err))
		}
	}

	return result, nil
}

// SetProducts пишет карточки одним пайплайном. TTL размазывается джиттером,
// чтобы карточки одной выдачи не истекали одновременно.
func (r *CacheRepo) SetProducts(ctx context.Context, products []usecase.ProductInfo) error {
	if len(products) == 0 {
		return nil
	}

	pipe := r.client.Client.Pipeline()
	for _, model := range r.conv.ToArrRedisModel(products) {
		data, err := json.Marshal(model)
		if err != nil {
			r.logger.Warnf("skip caching product %d: %v", model.ID, err)
			continue
		}
		pipe.Set(ctx, productCardKey(model.ID), data, jitter.Duration(r.ttl, ttlJitter))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func productCardKey(id int64) string {
	return productCardPrefix + strconv.FormatInt(id, 10)
}

func productCardKeys(ids []int64) []string {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productCardKey(id)
	}

	return keys
}

// decodeProductCard разбирает значение MGET. (nil, nil) означает промах.
func decodeProductCard(val any) (*converter.ProductInfoRedisModel, error) {
	var data []byte
	switch v := val.(type) {
	case nil:
		return nil, nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return nil, fmt.Errorf("unexpected value type %T", val)
	}

	var model converter.ProductInfoRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return &model, nil
}

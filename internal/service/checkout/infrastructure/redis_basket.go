package infrastructure

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	pkgredis "storefront/internal/pkg/redis"
	"storefront/internal/service/checkout/domain"
)

// basket 的存储形态：每个会话一个 hash，field 是商品 ID，value 是数量。
const (
	basketKeyPrefix = "basket:"
	basketTTL       = 72 * time.Hour // 会话购物车的存活期，随写入续期
)

// RedisBasketStore 是 BasketStore 的 Redis 实现。
// 单价和名称不入 Redis，Fetch 时从商品目录解析，保证价格永远是当前值。
type RedisBasketStore struct {
	redisClient *pkgredis.Client
	products    domain.ProductRepository
}

func NewRedisBasketStore(redisClient *pkgredis.Client, products domain.ProductRepository) *RedisBasketStore {
	return &RedisBasketStore{redisClient: redisClient, products: products}
}

func basketKey(sessionID string) string {
	return basketKeyPrefix + sessionID
}

// Fetch 读取购物车并与商品目录对账。
// 目录中已不存在的商品被剔除并从 hash 中删除，等价于原有的 refresh 语义。
func (s *RedisBasketStore) Fetch(ctx context.Context, sessionID string) (*domain.Basket, error) {
	basket := &domain.Basket{SessionID: sessionID}
	if sessionID == "" {
		return basket, nil
	}

	entries, err := s.redisClient.GetClient().HGetAll(ctx, basketKey(sessionID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "read basket hash")
	}
	if len(entries) == 0 {
		return basket, nil
	}

	// hash 的遍历顺序不稳定，按商品 ID 排序保证条目顺序可预期
	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	catalog, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var stale []string
	for _, id := range ids {
		product, ok := catalog[id]
		if !ok {
			stale = append(stale, id)
			continue
		}
		quantity, err := strconv.Atoi(entries[id])
		if err != nil || quantity <= 0 {
			stale = append(stale, id)
			continue
		}
		basket.Items = append(basket.Items, domain.BasketItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Quantity:       quantity,
		})
	}

	if len(stale) > 0 {
		if err := s.redisClient.GetClient().HDel(ctx, basketKey(sessionID), stale...).Err(); err != nil {
			return nil, errors.Wrap(err, "drop stale basket entries")
		}
	}
	return basket, nil
}

// Add 向购物车追加商品。商品必须存在于目录中。
func (s *RedisBasketStore) Add(ctx context.Context, sessionID, productID string, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be positive")
	}
	catalog, err := s.products.FindByIDs(ctx, []string{productID})
	if err != nil {
		return err
	}
	if _, ok := catalog[productID]; !ok {
		return domain.ErrProductNotFound
	}

	// 使用 pipeline 合并写入和续期
	pipe := s.redisClient.GetClient().Pipeline()
	pipe.HIncrBy(ctx, basketKey(sessionID), productID, int64(quantity))
	pipe.Expire(ctx, basketKey(sessionID), basketTTL)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "add basket item")
}

// Clear 清空购物车。
func (s *RedisBasketStore) Clear(ctx context.Context, sessionID string) error {
	err := s.redisClient.GetClient().Del(ctx, basketKey(sessionID)).Err()
	return errors.Wrap(err, "clear basket")
}

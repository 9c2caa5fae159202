package adapter

import (
	"context"

	"storefront/internal/pkg/logger"
	"storefront/internal/zookeeper"
)

// ZkCheckoutLocker 是 port.CheckoutLocker 的 ZooKeeper 实现。
// 每次 Acquire 创建一个独立的锁实例，锁的生命周期等于一次提交。
type ZkCheckoutLocker struct {
	conn *zookeeper.Conn
}

func NewZkCheckoutLocker(conn *zookeeper.Conn) *ZkCheckoutLocker {
	return &ZkCheckoutLocker{conn: conn}
}

func (l *ZkCheckoutLocker) Acquire(ctx context.Context, key string) (func(), error) {
	lock, err := zookeeper.NewDistributedLock(l.conn, key)
	if err != nil {
		return nil, err
	}
	if err := lock.Lock(ctx); err != nil {
		return nil, err
	}
	release := func() {
		if err := lock.Unlock(); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("key", key).Msg("Failed to release checkout lock.")
		}
	}
	return release, nil
}

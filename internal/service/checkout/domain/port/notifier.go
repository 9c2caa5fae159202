package port

import (
	"context"

	"storefront/internal/service/checkout/domain"
)

// OrderNotifier 在订单创建成功后向下游发布事件。
// 发布失败不应使结账请求失败，由调用方记录并继续。
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, event *domain.OrderPlaced) error
}

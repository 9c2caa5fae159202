package domain

import "context"

// 仓储接口位于领域层，由基础设施层实现。

// BasketStore 管理会话购物车。
type BasketStore interface {
	// Fetch 读取购物车并与商品目录对账：目录中已不存在的商品
	// 会被剔除（并从底层存储删除），返回的条目携带当前单价。
	Fetch(ctx context.Context, sessionID string) (*Basket, error)

	// Add 向购物车追加指定数量的商品。
	Add(ctx context.Context, sessionID, productID string, quantity int) error

	// Clear 清空购物车，在订单创建成功后作为收尾步骤调用。
	Clear(ctx context.Context, sessionID string) error
}

// CustomerRepository 管理客户记录。
type CustomerRepository interface {
	// FirstOrCreate 按 email 查找客户，不存在则以给定姓名创建。
	// 实现必须能安全应对并发创建（唯一索引冲突后重查）。
	FirstOrCreate(ctx context.Context, email, name string) (*Customer, error)
}

// AddressRepository 管理地址记录。
type AddressRepository interface {
	// FirstOrCreate 按完整字段元组查找地址，不存在则创建。
	FirstOrCreate(ctx context.Context, address Address) (*Address, error)
}

// OrderRepository 管理订单聚合的持久化。
type OrderRepository interface {
	// Create 在一个事务中落库订单及其全部行项目。
	Create(ctx context.Context, order *Order) error

	// FindByHash 按对外标识查找订单。
	FindByHash(ctx context.Context, hash string) (*Order, error)

	// MarkPaid 将订单标记为已支付。
	MarkPaid(ctx context.Context, order *Order) error

	// MarkPaymentFailed 将订单标记为扣款失败。
	MarkPaymentFailed(ctx context.Context, order *Order) error
}

// ProductRepository 只读访问商品目录。
type ProductRepository interface {
	// FindByIDs 返回存在的商品，键为商品 ID。查不到的 ID 不报错，
	// 直接缺席于结果，由调用方决定如何处理。
	FindByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// ShippingFeeCents 是固定的运费与手续费，在商品小计之外统一加收。
// 除此之外不存在任何其他费用逻辑。
const ShippingFeeCents int64 = 500

// OrderLine 是订单的一个行项目：一条订单-商品-数量的关联。
type OrderLine struct {
	ProductID string
	Quantity  int
}

// Order 是订单聚合的根实体
type Order struct {
	ID         uint
	Hash       string // 对外的不可变订单标识，用于支付对账和客户查询
	Paid       bool
	State      State
	TotalCents int64
	CustomerID uint
	AddressID  uint
	Lines      []OrderLine
	CreatedAt  time.Time
	UpdatedAt  time.Time
	PaidAt     *time.Time
}

// NewOrderHash 生成 256 位加密随机的订单标识，十六进制编码后为 64 个字符。
func NewOrderHash() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// 工厂函数: NewOrder 从购物车快照和已解析的客户/地址创建一个新订单。
// 不变式：订单至少包含一个行项目；总价 = 购物车小计 + 固定运费。
func NewOrder(basket *Basket, customer *Customer, address *Address) (*Order, error) {
	if basket == nil || basket.IsEmpty() {
		return nil, ErrEmptyBasket
	}
	if customer == nil || customer.ID == 0 {
		return nil, errors.New("order requires a persisted customer")
	}
	if address == nil || address.ID == 0 {
		return nil, errors.New("order requires a persisted address")
	}

	hash, err := NewOrderHash()
	if err != nil {
		return nil, err
	}

	lines := make([]OrderLine, 0, len(basket.Items))
	for _, item := range basket.Items {
		lines = append(lines, OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	now := time.Now()
	return &Order{
		Hash:       hash,
		Paid:       false,
		State:      StatePendingPayment, // 初始状态
		TotalCents: basket.SubTotalCents() + ShippingFeeCents,
		CustomerID: customer.ID,
		AddressID:  address.ID,
		Lines:      lines,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkAsPaid 在网关确认扣款后调用。
// 这个方法只负责状态流转，不负责调用外部服务。
func (o *Order) MarkAsPaid() error {
	if o.State != StatePendingPayment {
		return errors.New("only pending payment orders can be marked as paid")
	}
	now := time.Now()
	o.Paid = true
	o.State = StatePaid
	o.PaidAt = &now
	o.UpdatedAt = now
	return nil
}

// MarkPaymentFailed 在扣款被拒后调用。订单保留在库中等待对账，
// paid 保持为 false。
func (o *Order) MarkPaymentFailed() {
	o.State = StatePaymentFailed
	o.UpdatedAt = time.Now()
}

package domain

// BasketItem 是购物车中的一个条目：商品及其数量。
// 单价在 Fetch 时从商品目录解析出来，避免信任客户端价格。
type BasketItem struct {
	ProductID      string
	Name           string
	UnitPriceCents int64
	Quantity       int
}

// Basket 是会话范围内的购物车快照。
type Basket struct {
	SessionID string
	Items     []BasketItem
}

// SubTotalCents 返回所有条目的 单价×数量 之和，单位为分。
func (b *Basket) SubTotalCents() int64 {
	var total int64
	for _, item := range b.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

// IsEmpty 判断购物车是否为空。小计为零视同为空，
// 这是结账入口的重定向条件。
func (b *Basket) IsEmpty() bool {
	return len(b.Items) == 0 || b.SubTotalCents() == 0
}

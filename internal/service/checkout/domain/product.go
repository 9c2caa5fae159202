package domain

// Product 是商品目录中的一条记录。结账流程只读取它。
type Product struct {
	ID         string
	Name       string
	PriceCents int64
}

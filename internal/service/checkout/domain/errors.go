package domain

import "errors"

var (
	// ErrEmptyBasket 购物车为空或小计为零，结账流程中止，不产生任何副作用。
	ErrEmptyBasket = errors.New("basket is empty")

	// ErrPaymentNonceMissing 开启支付的场景下缺少支付凭据，订单不会创建。
	ErrPaymentNonceMissing = errors.New("payment method nonce is missing")

	// ErrOrderNotFound 按 hash 查询不到订单。
	ErrOrderNotFound = errors.New("order not found")

	// ErrProductNotFound 商品在目录中不存在。
	ErrProductNotFound = errors.New("product not found")
)

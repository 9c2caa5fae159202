package port

import (
	"context"
	"errors"
)

// ErrPaymentDeclined 表示网关明确拒绝了这笔交易（非网络或协议错误）。
var ErrPaymentDeclined = errors.New("payment declined by gateway")

// SaleRequest 是发往支付网关的一次扣款请求。
type SaleRequest struct {
	AmountCents         int64
	PaymentMethodNonce  string
	SubmitForSettlement bool // 要求网关在同一调用中完成清算，而非仅授权
}

// SaleResult 是网关返回的扣款结果。
type SaleResult struct {
	TransactionID string
}

// PaymentGateway 是托管支付网关的出站端口。
type PaymentGateway interface {
	Sale(ctx context.Context, req *SaleRequest) (*SaleResult, error)
}

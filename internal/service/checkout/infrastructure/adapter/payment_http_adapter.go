package adapter

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"storefront/internal/pkg/httpclient"
	"storefront/internal/service/checkout/domain/port"
)

const saleTransactionsPath = "/transactions"

// PaymentHTTPAdapter 是 port.PaymentGateway 接口的 HTTP 实现。
// 网关的网络协议是它自己的外部契约，这里只做一次 sale 调用的适配。
type PaymentHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewPaymentHTTPAdapter 创建一个新的支付网关适配器。
func NewPaymentHTTPAdapter(client *httpclient.Client, baseURL string) *PaymentHTTPAdapter {
	return &PaymentHTTPAdapter{client: client, baseURL: baseURL}
}

type saleRequestBody struct {
	AmountCents         int64  `json:"amount_cents"`
	PaymentMethodNonce  string `json:"payment_method_nonce"`
	SubmitForSettlement bool   `json:"submit_for_settlement"`
}

type saleResponseBody struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// Sale 向网关提交一笔即时清算的扣款。
// 网关返回 402 或 declined 状态时映射为 port.ErrPaymentDeclined，
// 其余非 2xx 一律视作硬失败上抛。
func (a *PaymentHTTPAdapter) Sale(ctx context.Context, req *port.SaleRequest) (*port.SaleResult, error) {
	body := saleRequestBody{
		AmountCents:         req.AmountCents,
		PaymentMethodNonce:  req.PaymentMethodNonce,
		SubmitForSettlement: req.SubmitForSettlement,
	}
	var resp saleResponseBody
	statusCode, err := a.client.PostJSON(ctx, a.baseURL+saleTransactionsPath, body, &resp)
	if err != nil {
		return nil, errors.Wrap(err, "payment gateway sale call")
	}

	switch {
	case statusCode == http.StatusPaymentRequired || resp.Status == "declined":
		return nil, port.ErrPaymentDeclined
	case statusCode < 200 || statusCode >= 300:
		return nil, errors.Errorf("payment gateway returned status %d: %s", statusCode, resp.Message)
	}

	return &port.SaleResult{TransactionID: resp.TransactionID}, nil
}

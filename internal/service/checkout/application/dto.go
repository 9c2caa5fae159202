// internal/service/checkout/application/dto.go
package application

import "storefront/internal/service/checkout/domain"

// SubmitOrderRequest 是提交结账用例的输入数据
type SubmitOrderRequest struct {
	SessionID          string
	Name               string
	Email              string
	Address1           string
	Address2           string
	City               string
	PostalCode         string
	PaymentMethodNonce string
}

// formValues 把请求字段铺平成 字段名 → 值，供表单校验器使用。
func (r *SubmitOrderRequest) formValues() map[string]string {
	return map[string]string{
		"name":        r.Name,
		"email":       r.Email,
		"address1":    r.Address1,
		"address2":    r.Address2,
		"city":        r.City,
		"postal_code": r.PostalCode,
	}
}

// SubmitOrderResponse 是提交结账用例的输出数据
type SubmitOrderResponse struct {
	OrderHash  string       `json:"orderHash"`
	TotalCents int64        `json:"totalCents"`
	State      domain.State `json:"state"`
}

// CheckoutPage 是结账页与购物车页共用的渲染上下文。
type CheckoutPage struct {
	Items         []domain.BasketItem `json:"items"`
	SubTotalCents int64               `json:"subTotalCents"`
}

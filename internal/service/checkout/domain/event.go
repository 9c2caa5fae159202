package domain

import "time"

// OrderPlaced 是订单成功创建后发布的事件，
// 供通知服务和推送网关等下游消费。
type OrderPlaced struct {
	EventID       string    `json:"eventId"`
	OrderHash     string    `json:"orderHash"`
	CustomerEmail string    `json:"customerEmail"`
	TotalCents    int64     `json:"totalCents"`
	Paid          bool      `json:"paid"`
	PlacedAt      time.Time `json:"placedAt"`
}

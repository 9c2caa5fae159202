package infrastructure

import (
	"database/sql"

	"storefront/internal/service/checkout/domain"
)

// Mapper 负责数据库模型和领域模型之间的转换。

func ToDomainCustomer(m *CustomerModel) *domain.Customer {
	return &domain.Customer{
		ID:    m.ID,
		Email: m.Email,
		Name:  m.Name,
	}
}

func ToDomainAddress(m *AddressModel) *domain.Address {
	return &domain.Address{
		ID:         m.ID,
		Address1:   m.Address1,
		Address2:   m.Address2,
		City:       m.City,
		PostalCode: m.PostalCode,
	}
}

func ToDomainProduct(m *ProductModel) domain.Product {
	return domain.Product{
		ID:         m.ID,
		Name:       m.Name,
		PriceCents: m.PriceCents,
	}
}

func ToDomainOrder(m *OrderModel) *domain.Order {
	lines := make([]domain.OrderLine, 0, len(m.Items))
	for _, item := range m.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	order := &domain.Order{
		ID:         m.ID,
		Hash:       m.Hash,
		Paid:       m.Paid,
		State:      domain.State(m.State),
		TotalCents: m.TotalCents,
		CustomerID: m.CustomerID,
		AddressID:  m.AddressID,
		Lines:      lines,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.PaidAt.Valid {
		paidAt := m.PaidAt.Time
		order.PaidAt = &paidAt
	}
	return order
}

func FromDomainOrder(order *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, OrderItemModel{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	model := &OrderModel{
		Hash:       order.Hash,
		Paid:       order.Paid,
		State:      string(order.State),
		TotalCents: order.TotalCents,
		CustomerID: order.CustomerID,
		AddressID:  order.AddressID,
		Items:      items,
	}
	if order.PaidAt != nil {
		model.PaidAt = sql.NullTime{Time: *order.PaidAt, Valid: true}
	}
	return model
}

package domain

// Customer 以 email 作为查找键，在首次下单时惰性创建。
type Customer struct {
	ID    uint
	Email string
	Name  string
}

// Address 的身份由四个字段的完整元组决定。
type Address struct {
	ID         uint
	Address1   string
	Address2   string
	City       string
	PostalCode string
}

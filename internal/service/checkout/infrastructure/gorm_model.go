package infrastructure

import (
	"database/sql"

	"gorm.io/gorm"
)

// ProductModel 对应数据库中的 products 表（商品目录，结账侧只读）
type ProductModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"size:191"`
	PriceCents int64
}

// TableName 指定 GORM 应该使用的表名
func (ProductModel) TableName() string {
	return "products"
}

// CustomerModel 对应数据库中的 customers 表
type CustomerModel struct {
	gorm.Model
	Email string `gorm:"uniqueIndex;size:191"`
	Name  string `gorm:"size:191"`
}

// TableName 指定 GORM 应该使用的表名
func (CustomerModel) TableName() string {
	return "customers"
}

// AddressModel 对应数据库中的 addresses 表。
// 地址的身份是四个字段的完整元组，用组合唯一索引兜底并发创建。
type AddressModel struct {
	gorm.Model
	Address1   string `gorm:"size:191;uniqueIndex:idx_address_identity"`
	Address2   string `gorm:"size:191;uniqueIndex:idx_address_identity"`
	City       string `gorm:"size:100;uniqueIndex:idx_address_identity"`
	PostalCode string `gorm:"size:32;uniqueIndex:idx_address_identity"`
}

// TableName 指定 GORM 应该使用的表名
func (AddressModel) TableName() string {
	return "addresses"
}

// OrderModel 对应数据库中的 orders 表
type OrderModel struct {
	gorm.Model
	Hash       string `gorm:"uniqueIndex;size:64"`
	Paid       bool
	State      string `gorm:"size:32"`
	TotalCents int64
	CustomerID uint `gorm:"index"`
	AddressID  uint
	PaidAt     sql.NullTime
	// 关联关系：行项目随订单一起创建
	Items []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName 指定 GORM 应该使用的表名
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 对应数据库中的 order_product 表（订单行项目）
type OrderItemModel struct {
	ID        uint   `gorm:"primaryKey"`
	OrderID   uint   `gorm:"index"`
	ProductID string `gorm:"size:64"`
	Quantity  int
}

// TableName 指定 GORM 应该使用的表名
func (OrderItemModel) TableName() string {
	return "order_product"
}

// AutoMigrate 同步结账服务用到的全部表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ProductModel{},
		&CustomerModel{},
		&AddressModel{},
		&OrderModel{},
		&OrderItemModel{},
	)
}

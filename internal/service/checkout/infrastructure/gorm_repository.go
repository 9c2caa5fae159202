package infrastructure

import (
	"context"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"storefront/internal/service/checkout/domain"
)

// mysqlDuplicateEntry 是 MySQL 唯一索引冲突的错误码。
const mysqlDuplicateEntry = 1062

// isDuplicateEntry 判断错误是否为唯一索引冲突（并发 firstOrCreate 撞车）。
func isDuplicateEntry(err error) bool {
	var mysqlErr *gomysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// GormCustomerRepository 是 CustomerRepository 的 GORM 实现
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FirstOrCreate 按 email 查找客户，不存在则创建。
// 两个并发请求同时创建同一 email 时，后到的一方会撞上唯一索引，
// 此时重查一次即可拿到先到方创建的记录。
func (r *GormCustomerRepository) FirstOrCreate(ctx context.Context, email, name string) (*domain.Customer, error) {
	var model CustomerModel
	err := r.db.WithContext(ctx).
		Where(&CustomerModel{Email: email}).
		Attrs(&CustomerModel{Name: name}).
		FirstOrCreate(&model).Error
	if err != nil {
		if isDuplicateEntry(err) {
			if err := r.db.WithContext(ctx).Where(&CustomerModel{Email: email}).First(&model).Error; err != nil {
				return nil, errors.Wrap(err, "refetch customer after duplicate entry")
			}
			return ToDomainCustomer(&model), nil
		}
		return nil, errors.Wrap(err, "firstOrCreate customer")
	}
	return ToDomainCustomer(&model), nil
}

// GormAddressRepository 是 AddressRepository 的 GORM 实现
type GormAddressRepository struct {
	db *gorm.DB
}

func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// addressConditions 把地址铺平成列名 → 值的查询条件。
// 必须用 map 而不是模型结构体：结构体条件会丢弃零值字段，
// address2 为空时查询就退化成三字段匹配，命中错误的行。
func addressConditions(address domain.Address) map[string]interface{} {
	return map[string]interface{}{
		"address1":    address.Address1,
		"address2":    address.Address2,
		"city":        address.City,
		"postal_code": address.PostalCode,
	}
}

// FirstOrCreate 按完整字段元组查找地址，不存在则创建。
func (r *GormAddressRepository) FirstOrCreate(ctx context.Context, address domain.Address) (*domain.Address, error) {
	query := addressConditions(address)
	var model AddressModel
	err := r.db.WithContext(ctx).Where(query).FirstOrCreate(&model).Error
	if err != nil {
		if isDuplicateEntry(err) {
			if err := r.db.WithContext(ctx).Where(query).First(&model).Error; err != nil {
				return nil, errors.Wrap(err, "refetch address after duplicate entry")
			}
			return ToDomainAddress(&model), nil
		}
		return nil, errors.Wrap(err, "firstOrCreate address")
	}
	return ToDomainAddress(&model), nil
}

// GormOrderRepository 是 OrderRepository 的 GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create 在一个事务中写入订单和全部行项目。
// GORM 对携带关联的 Create 自动开启事务，订单和行项目要么都在要么都不在。
func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := FromDomainOrder(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.Wrap(err, "create order")
	}
	order.ID = model.ID
	order.CreatedAt = model.CreatedAt
	order.UpdatedAt = model.UpdatedAt
	return nil
}

// FindByHash 按对外标识查找订单，预加载行项目。
func (r *GormOrderRepository) FindByHash(ctx context.Context, hash string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Items").Where("hash = ?", hash).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "find order by hash")
	}
	return ToDomainOrder(&model), nil
}

// MarkPaid 持久化支付成功后的状态流转。
// 使用 map 指定更新的字段，避免 GORM 跳过 Paid=false 之类的零值。
func (r *GormOrderRepository) MarkPaid(ctx context.Context, order *domain.Order) error {
	updates := map[string]interface{}{
		"paid":    true,
		"state":   string(order.State),
		"paid_at": order.PaidAt,
	}
	err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("hash = ?", order.Hash).Updates(updates).Error
	return errors.Wrap(err, "mark order paid")
}

// MarkPaymentFailed 持久化扣款失败后的状态流转。
func (r *GormOrderRepository) MarkPaymentFailed(ctx context.Context, order *domain.Order) error {
	updates := map[string]interface{}{
		"state": string(domain.StatePaymentFailed),
	}
	err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("hash = ?", order.Hash).Updates(updates).Error
	return errors.Wrap(err, "mark order payment failed")
}

// GormProductRepository 是 ProductRepository 的 GORM 实现
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDs 批量查询商品，查不到的 ID 缺席于结果。
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}
	var models []ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "find products by ids")
	}
	result := make(map[string]domain.Product, len(models))
	for i := range models {
		result[models[i].ID] = ToDomainProduct(&models[i])
	}
	return result, nil
}

package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-core/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

// orderRepository 订单和明细是一个聚合, 一起写一起删
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create gorm按foreignKey一并插入Items
// 唯一索引冲突只回滚这一条语句, 外层事务还能换个订单号重试
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicateOrderNo
		}
		return apperrors.Wrap(err, "create order")
	}

	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	if err := dbFrom(ctx, r.db).Preload("Items").First(&model, id).Error; err != nil {
		return nil, r.translate(err, id)
	}
	return toOrderEntity(&model), nil
}

// LockByID 锁订单行; 明细不会被修改, 不需要锁
func (r *orderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&model, id).Error
	if err != nil {
		return nil, r.translate(err, id)
	}
	return toOrderEntity(&model), nil
}

// UpdateStatus UPDATE orders SET status = to WHERE id = ? AND status = from
func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.Status, now time.Time) error {
	db := dbFrom(ctx, r.db)
	result := db.Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, int(from)).
		Updates(map[string]interface{}{
			"status":     int(to),
			"updated_at": now,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "update order status")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "query order")
		}
		if count == 0 {
			return order.NotFound(id)
		}
		return order.ErrStatusChanged
	}
	return nil
}

// Delete 先删明细再删订单
func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	db := dbFrom(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&OrderItemModel{}).Error; err != nil {
		return apperrors.Wrap(err, "delete order items")
	}

	result := db.Delete(&OrderModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "delete order")
	}
	if result.RowsAffected == 0 {
		return order.NotFound(id)
	}
	return nil
}

func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(dbFrom(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID), page, pageSize)
}

func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(dbFrom(ctx, r.db).Model(&OrderModel{}), page, pageSize)
}

func (r *orderRepository) list(query *gorm.DB, page, pageSize int) ([]*order.Order, int64, error) {
	// Count会改写语句, 查列表前另开session
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "count orders")
	}

	var models []OrderModel
	err := query.Session(&gorm.Session{}).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset(offset(page, pageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list orders")
	}
	return toOrderEntities(models), total, nil
}

func (r *orderRepository) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	var models []OrderModel
	err := dbFrom(ctx, r.db).
		Preload("Items").
		Where("status = ? AND created_at < ?", int(order.StatusPending), cutoff).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "list pending orders")
	}
	return toOrderEntities(models), nil
}

func (r *orderRepository) CountItemsByBookID(ctx context.Context, bookID uint) (int64, error) {
	var count int64
	err := dbFrom(ctx, r.db).Model(&OrderItemModel{}).Where("book_id = ?", bookID).Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "count order items")
	}
	return count, nil
}

func (r *orderRepository) translate(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order.NotFound(id)
	}
	return apperrors.Wrap(err, "query order")
}

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			ID:       item.ID,
			OrderID:  item.OrderID,
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}
	return &OrderModel{
		ID:        o.ID,
		OrderNo:   o.OrderNo,
		UserID:    o.UserID,
		Total:     o.Total,
		Status:    int(o.Status),
		Items:     items,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = order.OrderItem{
			ID:       item.ID,
			OrderID:  item.OrderID,
			BookID:   item.BookID,
			Quantity: item.Quantity,
			Price:    item.Price,
		}
	}
	return &order.Order{
		ID:        m.ID,
		OrderNo:   m.OrderNo,
		UserID:    m.UserID,
		Total:     m.Total,
		Status:    order.Status(m.Status),
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toOrderEntities(models []OrderModel) []*order.Order {
	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders
}

package dto

import (
	"github.com/xiebiao/bookstore-core/internal/domain/order"
)

// OrderLineRequest 下单明细
type OrderLineRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// CreateOrderRequest 下单请求, 同一本书可以出现多次
type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" binding:"required,min=1,max=50,dive"`
}

// CreateSingleOrderRequest 单本下单
type CreateSingleOrderRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"1"`
}

// OrderItemResponse 订单明细, price是下单时的单价
type OrderItemResponse struct {
	BookID   uint   `json:"book_id" example:"1"`
	Quantity int    `json:"quantity" example:"2"`
	Price    string `json:"price" example:"20.00"`
	Subtotal string `json:"subtotal" example:"40.00"`
}

// OrderResponse 订单
type OrderResponse struct {
	ID        uint                `json:"id" example:"1"`
	OrderNo   string              `json:"order_no" example:"ORD-20240115-0427"`
	UserID    uint                `json:"user_id" example:"7"`
	Total     string              `json:"total" example:"40.00"`
	Status    string              `json:"status" example:"pending"`
	Items     []OrderItemResponse `json:"items"`
	CreatedAt string              `json:"created_at" example:"2024-01-15 10:30:00"`
	UpdatedAt string              `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// NewOrderResponse 领域对象转响应
func NewOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			BookID:   it.BookID,
			Quantity: it.Quantity,
			Price:    it.Price.StringFixed(2),
			Subtotal: it.Subtotal().StringFixed(2),
		}
	}
	return &OrderResponse{
		ID:        o.ID,
		OrderNo:   o.OrderNo,
		UserID:    o.UserID,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status.String(),
		Items:     items,
		CreatedAt: formatTime(o.CreatedAt),
		UpdatedAt: formatTime(o.UpdatedAt),
	}
}

// NewOrderList 列表转换
func NewOrderList(orders []*order.Order) []*OrderResponse {
	list := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		list[i] = NewOrderResponse(o)
	}
	return list
}

// SweepQuery 手动清理超时订单, 不传用配置的阈值
type SweepQuery struct {
	ThresholdMinutes int `form:"threshold_minutes" binding:"omitempty,min=1,max=10080" example:"5"`
}

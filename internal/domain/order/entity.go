package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status 订单状态
//
//	Pending --> Completed --> Refunded
//	   |
//	   +-----> Cancelled
//
// Refunded、Cancelled是终态. 取消即删除, Cancelled只出现在事件和日志里.
type Status int

const (
	StatusPending   Status = 1 // 待支付
	StatusCompleted Status = 2 // 已支付
	StatusRefunded  Status = 3 // 已退款
	StatusCancelled Status = 4 // 已取消
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusRefunded:
		return "refunded"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ParseStatus 解析状态名, 未知名称返回false
func ParseStatus(s string) (Status, bool) {
	for _, st := range []Status{StatusPending, StatusCompleted, StatusRefunded, StatusCancelled} {
		if st.String() == s {
			return st, true
		}
	}
	return 0, false
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {StatusRefunded},
}

// CanTransitionTo 状态机校验
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Order 订单(聚合根)
// Items只通过Order访问, OrderItem用OrderID回指, 不持有*Order
type Order struct {
	ID        uint
	OrderNo   string
	UserID    uint
	Total     decimal.Decimal
	Status    Status
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem 订单明细, Price是下单时的单价快照
type OrderItem struct {
	ID       uint
	OrderID  uint
	BookID   uint
	Quantity int
	Price    decimal.Decimal
}

// Subtotal 单价×数量
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrder 创建待支付订单, 总额由明细计算
func NewOrder(orderNo string, userID uint, items []OrderItem, now time.Time) *Order {
	o := &Order{
		OrderNo:   orderNo,
		UserID:    userID,
		Status:    StatusPending,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Total = o.CalculateTotal()
	return o
}

// CalculateTotal Σ(单价×数量)
func (o *Order) CalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// CanTransitionTo 当前状态能否迁移到target
func (o *Order) CanTransitionTo(target Status) bool {
	return o.Status.CanTransitionTo(target)
}

// TransitionTo 状态迁移, 非法时返回带订单ID和前后状态的错误
func (o *Order) TransitionTo(target Status, now time.Time) error {
	if !o.CanTransitionTo(target) {
		return InvalidTransition(o.ID, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// IsOwnedBy 订单是否属于该用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}

// IsOverdue 待支付且创建时间早于cutoff
func (o *Order) IsOverdue(cutoff time.Time) bool {
	return o.Status == StatusPending && o.CreatedAt.Before(cutoff)
}

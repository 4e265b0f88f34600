package dto

import (
	"github.com/shopspring/decimal"

	"github.com/xiebiao/bookstore-core/internal/application/batch"
	appwallet "github.com/xiebiao/bookstore-core/internal/application/wallet"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
)

// AmountRequest 充值/提现
// amount接受数字或字符串, 最多两位小数
type AmountRequest struct {
	Amount      decimal.Decimal `json:"amount" swaggertype:"string" example:"100.00"`
	Description string          `json:"description" binding:"max=255" example:"top up"`
}

// OrderIDRequest 支付/退款
type OrderIDRequest struct {
	OrderID uint `json:"order_id" binding:"required" example:"1"`
}

// BatchPayRequest 批量支付
type BatchPayRequest struct {
	OrderIDs []uint `json:"order_ids" binding:"required,min=1,max=100" example:"1,2"`
}

// TransactionQuery 流水查询
type TransactionQuery struct {
	PageQuery
	Type      string `form:"type" binding:"omitempty,oneof=all deposit withdraw payment refund" example:"all"`
	StartDate string `form:"start_date" example:"2024-01-01"`
	EndDate   string `form:"end_date" example:"2024-01-31"`
}

// WalletResponse 钱包
type WalletResponse struct {
	WalletID  uint   `json:"wallet_id" example:"1"`
	UserID    uint   `json:"user_id" example:"7"`
	Balance   string `json:"balance" example:"100.00"`
	UpdatedAt string `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// NewWalletResponse 领域对象转响应
func NewWalletResponse(w *wallet.Wallet) *WalletResponse {
	return &WalletResponse{
		WalletID:  w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance.StringFixed(2),
		UpdatedAt: formatTime(w.UpdatedAt),
	}
}

// ReceiptResponse 资金变动结果
type ReceiptResponse struct {
	WalletID      uint   `json:"wallet_id" example:"1"`
	Balance       string `json:"balance" example:"40.00"`
	TransactionID uint   `json:"transaction_id" example:"12"`
	RefNo         string `json:"ref_no" example:"6f1c2a9e-7d1b-4c55-9a43-0c6f0e2a1b7d"`
	OrderID       *uint  `json:"order_id,omitempty" example:"1"`
}

// NewReceiptResponse 转换
func NewReceiptResponse(r *appwallet.Receipt) *ReceiptResponse {
	return &ReceiptResponse{
		WalletID:      r.WalletID,
		Balance:       r.Balance.StringFixed(2),
		TransactionID: r.TransactionID,
		RefNo:         r.RefNo,
		OrderID:       r.OrderID,
	}
}

// TransactionResponse 流水, amount带符号
type TransactionResponse struct {
	ID          uint   `json:"id" example:"12"`
	RefNo       string `json:"ref_no" example:"6f1c2a9e-7d1b-4c55-9a43-0c6f0e2a1b7d"`
	Type        string `json:"type" example:"payment"`
	Amount      string `json:"amount" example:"-60.00"`
	Description string `json:"description" example:"order ORD-20240115-0427"`
	OrderID     *uint  `json:"order_id,omitempty" example:"1"`
	Status      string `json:"status" example:"success"`
	CreatedAt   string `json:"created_at" example:"2024-01-15 10:30:00"`
}

// NewTransactionList 转换
func NewTransactionList(txs []*wallet.Transaction) []*TransactionResponse {
	list := make([]*TransactionResponse, len(txs))
	for i, tx := range txs {
		list[i] = &TransactionResponse{
			ID:          tx.ID,
			RefNo:       tx.RefNo,
			Type:        string(tx.Type),
			Amount:      tx.Amount.StringFixed(2),
			Description: tx.Description,
			OrderID:     tx.OrderID,
			Status:      string(tx.Status),
			CreatedAt:   formatTime(tx.CreatedAt),
		}
	}
	return list
}

// BatchPayResponse 批量支付结果
type BatchPayResponse struct {
	Outcomes []batch.PayOutcome `json:"outcomes"`
	Paid     int                `json:"paid" example:"2"`
	Failed   int                `json:"failed" example:"0"`
	Balance  string             `json:"balance" example:"0.00"`
}

// NewBatchPayResponse 转换
func NewBatchPayResponse(r *batch.PayResult) *BatchPayResponse {
	return &BatchPayResponse{
		Outcomes: r.Outcomes,
		Paid:     r.Paid,
		Failed:   r.Failed,
		Balance:  r.Balance.StringFixed(2),
	}
}

// ReconcileResponse 对账结果
type ReconcileResponse struct {
	WalletID   uint   `json:"wallet_id" example:"1"`
	Balance    string `json:"balance" example:"40.00"`
	LedgerSum  string `json:"ledger_sum" example:"40.00"`
	Consistent bool   `json:"consistent" example:"true"`
}

// NewReconcileResponse 转换
func NewReconcileResponse(r *appwallet.Reconciliation) *ReconcileResponse {
	return &ReconcileResponse{
		WalletID:   r.WalletID,
		Balance:    r.Balance.StringFixed(2),
		LedgerSum:  r.LedgerSum.StringFixed(2),
		Consistent: r.Consistent,
	}
}

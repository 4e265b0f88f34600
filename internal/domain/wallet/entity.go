package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet 用户钱包, 每个用户一个, 首次访问时创建
// 不变量: Balance >= 0 且 Balance == Σ流水金额
type Wallet struct {
	ID        uint
	UserID    uint
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet 零余额钱包
func NewWallet(userID uint, now time.Time) *Wallet {
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit 入账
func (w *Wallet) Credit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return InvalidAmount(amount)
	}
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = now
	return nil
}

// Debit 出账, 余额不足时不修改
func (w *Wallet) Debit(amount decimal.Decimal, now time.Time) error {
	if !amount.IsPositive() {
		return InvalidAmount(amount)
	}
	if w.Balance.LessThan(amount) {
		return InsufficientBalance(amount, w.Balance)
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = now
	return nil
}

// TxType 流水类型
type TxType string

const (
	TxDeposit  TxType = "deposit"
	TxWithdraw TxType = "withdraw"
	TxPayment  TxType = "payment"
	TxRefund   TxType = "refund"
)

// Valid 是否已知类型
func (t TxType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdraw, TxPayment, TxRefund:
		return true
	}
	return false
}

// TxStatus 流水状态; 只有校验通过的操作才会落库, 所以写入的都是Success
type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxFailed  TxStatus = "failed"
)

// Transaction 钱包流水, 写入后不可修改
// Amount带符号: 入账(充值、退款)为正, 出账(提现、支付)为负
type Transaction struct {
	ID          uint
	RefNo       string
	WalletID    uint
	Amount      decimal.Decimal
	Type        TxType
	Description string
	OrderID     *uint
	Status      TxStatus
	CreatedAt   time.Time
}

// NewTransaction 创建流水, amount为绝对值, 符号由类型决定
func NewTransaction(walletID uint, txType TxType, amount decimal.Decimal, description string, orderID *uint, now time.Time) *Transaction {
	signed := amount.Abs()
	if txType == TxWithdraw || txType == TxPayment {
		signed = signed.Neg()
	}
	return &Transaction{
		RefNo:       uuid.NewString(),
		WalletID:    walletID,
		Amount:      signed,
		Type:        txType,
		Description: description,
		OrderID:     orderID,
		Status:      TxSuccess,
		CreatedAt:   now,
	}
}

// TxFilter 流水查询条件
// Start/End为闭区间, End已经换算到当天结束
type TxFilter struct {
	Type     TxType // 空表示全部
	Start    *time.Time
	End      *time.Time
	Page     int
	PageSize int
}

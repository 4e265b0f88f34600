package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

type walletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建钱包仓储
func NewWalletRepository(db *gorm.DB) wallet.Repository {
	return &walletRepository{db: db}
}

func (r *walletRepository) FindByUserID(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	var model WalletModel
	if err := dbFrom(ctx, r.db).Where("user_id = ?", userID).First(&model).Error; err != nil {
		return nil, r.translate(err)
	}
	return toWalletEntity(&model), nil
}

func (r *walletRepository) LockByUserID(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	var model WalletModel
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&model).Error
	if err != nil {
		return nil, r.translate(err)
	}
	return toWalletEntity(&model), nil
}

func (r *walletRepository) Create(ctx context.Context, w *wallet.Wallet) error {
	model := &WalletModel{
		UserID:    w.UserID,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return wallet.ErrWalletExists
		}
		return apperrors.Wrap(err, "create wallet")
	}
	w.ID = model.ID
	return nil
}

func (r *walletRepository) UpdateBalance(ctx context.Context, walletID uint, balance decimal.Decimal, now time.Time) error {
	err := dbFrom(ctx, r.db).Model(&WalletModel{}).
		Where("id = ?", walletID).
		Updates(map[string]interface{}{
			"balance":    balance,
			"updated_at": now,
		}).Error
	if err != nil {
		return apperrors.Wrap(err, "update wallet balance")
	}
	return nil
}

func (r *walletRepository) AppendTransaction(ctx context.Context, tx *wallet.Transaction) error {
	model := &WalletTransactionModel{
		RefNo:       tx.RefNo,
		WalletID:    tx.WalletID,
		Amount:      tx.Amount,
		Type:        string(tx.Type),
		Description: tx.Description,
		OrderID:     tx.OrderID,
		Status:      string(tx.Status),
		CreatedAt:   tx.CreatedAt,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "append wallet transaction")
	}
	tx.ID = model.ID
	return nil
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID uint, filter wallet.TxFilter) ([]*wallet.Transaction, int64, error) {
	query := dbFrom(ctx, r.db).Model(&WalletTransactionModel{}).Where("wallet_id = ?", walletID)
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Start != nil {
		query = query.Where("created_at >= ?", *filter.Start)
	}
	if filter.End != nil {
		query = query.Where("created_at <= ?", *filter.End)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "count wallet transactions")
	}

	var models []WalletTransactionModel
	err := query.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(filter.PageSize).
		Offset(offset(filter.Page, filter.PageSize)).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "list wallet transactions")
	}

	txs := make([]*wallet.Transaction, len(models))
	for i := range models {
		txs[i] = toTransactionEntity(&models[i])
	}
	return txs, total, nil
}

func (r *walletRepository) SumTransactions(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := dbFrom(ctx, r.db).Model(&WalletTransactionModel{}).
		Select("SUM(amount)").
		Where("wallet_id = ?", walletID).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(err, "sum wallet transactions")
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

func (r *walletRepository) translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet.ErrWalletNotFound
	}
	return apperrors.Wrap(err, "query wallet")
}

func toWalletEntity(m *WalletModel) *wallet.Wallet {
	return &wallet.Wallet{
		ID:        m.ID,
		UserID:    m.UserID,
		Balance:   m.Balance,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toTransactionEntity(m *WalletTransactionModel) *wallet.Transaction {
	return &wallet.Transaction{
		ID:          m.ID,
		RefNo:       m.RefNo,
		WalletID:    m.WalletID,
		Amount:      m.Amount,
		Type:        wallet.TxType(m.Type),
		Description: m.Description,
		OrderID:     m.OrderID,
		Status:      wallet.TxStatus(m.Status),
		CreatedAt:   m.CreatedAt,
	}
}

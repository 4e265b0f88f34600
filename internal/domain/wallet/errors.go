package wallet

import (
	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

var (
	ErrWalletNotFound      = apperrors.New(apperrors.ErrCodeWalletNotFound, "wallet not found")
	ErrInvalidAmount       = apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must be positive")
	ErrInsufficientBalance = apperrors.New(apperrors.ErrCodeInsufficientBalance, "insufficient balance")
	ErrWalletExists        = apperrors.New(apperrors.ErrCodeDuplicateEntry, "wallet already exists")
	ErrInvalidFilter       = apperrors.New(apperrors.ErrCodeInvalidParams, "invalid transaction filter")
)

// InvalidAmount 非正金额
func InvalidAmount(amount decimal.Decimal) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeInvalidAmount, "amount must be positive", map[string]interface{}{
		"amount": amount.String(),
	})
}

// InsufficientBalance 余额不足, 带需要金额和可用余额
func InsufficientBalance(required, available decimal.Decimal) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeInsufficientBalance, "insufficient balance", map[string]interface{}{
		"required":  required.StringFixed(2),
		"available": available.StringFixed(2),
	})
}

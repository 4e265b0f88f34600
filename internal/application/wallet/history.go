package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

const dateLayout = "2006-01-02"

// HistoryQuery 流水查询参数
// Type为空或"all"表示全部; 日期格式yyyy-mm-dd, 要么都给要么都不给
type HistoryQuery struct {
	Type      string
	StartDate string
	EndDate   string
	Page      int
	PageSize  int
}

// ListTransactions 流水分页, 按时间倒序
// 用户还没有钱包时返回空列表
func (l *Ledger) ListTransactions(ctx context.Context, userID uint, q HistoryQuery) ([]*wallet.Transaction, int64, error) {
	filter, err := parseFilter(q)
	if err != nil {
		return nil, 0, err
	}

	w, err := l.wallets.FindByUserID(ctx, userID)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		return []*wallet.Transaction{}, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return l.wallets.ListTransactions(ctx, w.ID, filter)
}

func parseFilter(q HistoryQuery) (wallet.TxFilter, error) {
	filter := wallet.TxFilter{Page: q.Page, PageSize: q.PageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 10
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	if q.Type != "" && q.Type != "all" {
		t := wallet.TxType(q.Type)
		if !t.Valid() {
			return filter, invalidFilter("unknown transaction type", q)
		}
		filter.Type = t
	}

	if (q.StartDate == "") != (q.EndDate == "") {
		return filter, invalidFilter("start_date and end_date must be given together", q)
	}
	if q.StartDate == "" {
		return filter, nil
	}

	start, err := time.ParseInLocation(dateLayout, q.StartDate, time.Local)
	if err != nil {
		return filter, invalidFilter("start_date must be yyyy-mm-dd", q)
	}
	end, err := time.ParseInLocation(dateLayout, q.EndDate, time.Local)
	if err != nil {
		return filter, invalidFilter("end_date must be yyyy-mm-dd", q)
	}
	if start.After(end) {
		return filter, invalidFilter("start_date is after end_date", q)
	}

	// 结束日期包含当天
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	filter.Start = &start
	filter.End = &end
	return filter, nil
}

func invalidFilter(reason string, q HistoryQuery) *apperrors.AppError {
	return apperrors.NewWithDetails(apperrors.ErrCodeInvalidParams, reason, map[string]interface{}{
		"type":       q.Type,
		"start_date": q.StartDate,
		"end_date":   q.EndDate,
	})
}

// Reconciliation 对账结果
type Reconciliation struct {
	WalletID   uint            `json:"wallet_id"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledger_sum"`
	Consistent bool            `json:"consistent"`
}

// Reconcile 重新累加流水并与余额比对
func (l *Ledger) Reconcile(ctx context.Context, userID uint) (*Reconciliation, error) {
	var rec *Reconciliation
	err := l.tx.Transaction(ctx, func(ctx context.Context) error {
		w, err := l.wallets.LockByUserID(ctx, userID)
		if err != nil {
			return err
		}
		sum, err := l.wallets.SumTransactions(ctx, w.ID)
		if err != nil {
			return err
		}
		rec = &Reconciliation{
			WalletID:   w.ID,
			Balance:    w.Balance,
			LedgerSum:  sum,
			Consistent: w.Balance.Equal(sum),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Consistent {
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"user_id":    userID,
			"wallet_id":  rec.WalletID,
			"balance":    rec.Balance.StringFixed(2),
			"ledger_sum": rec.LedgerSum.StringFixed(2),
		}).Error("wallet balance does not match ledger")
	}
	return rec, nil
}

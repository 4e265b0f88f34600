// Package inventory 库存台账
//
// 库存只能通过Reserve/Release修改. 两者都是单条条件UPDATE,
// 并发扣减同一本书时最多只有库存允许的那部分成功.
package inventory

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
)

// Ledger 库存台账
type Ledger struct {
	books   book.Repository
	metrics *metrics.Metrics
}

// NewLedger 创建库存台账
func NewLedger(books book.Repository, m *metrics.Metrics) *Ledger {
	return &Ledger{books: books, metrics: m}
}

// Reserve 预留库存, 返回扣减后的库存
// 库存不足返回带书名、需求量、剩余量的 OutOfStock
func (l *Ledger) Reserve(ctx context.Context, bookID uint, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, book.ErrInvalidQuantity
	}

	stock, err := l.books.AdjustStock(ctx, bookID, -quantity)
	switch {
	case err == nil:
		l.metrics.StockReservationsTotal.WithLabelValues("reserved").Inc()
		return stock, nil
	case errors.Is(err, book.ErrBookNotFound):
		l.metrics.StockReservationsTotal.WithLabelValues("not_found").Inc()
		return 0, err
	case errors.Is(err, book.ErrStockConflict):
		l.metrics.StockReservationsTotal.WithLabelValues("out_of_stock").Inc()
		b, ferr := l.books.FindByID(ctx, bookID)
		if ferr != nil {
			return 0, ferr
		}
		logger.WithContext(ctx).WithFields(logrus.Fields{
			"book_id":   bookID,
			"requested": quantity,
			"available": b.Stock,
		}).Warn("stock reservation rejected")
		return 0, book.OutOfStock(b.ID, b.Title, quantity, b.Stock)
	default:
		return 0, err
	}
}

// Release 归还库存, 返回归还后的库存
func (l *Ledger) Release(ctx context.Context, bookID uint, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, book.ErrInvalidQuantity
	}
	return l.books.AdjustStock(ctx, bookID, quantity)
}

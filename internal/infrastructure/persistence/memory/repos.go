package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

// ---------- users ----------

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	return r.s.do(ctx, "user.Create", func(t *tables) error {
		u.ID = t.nextID("users")
		t.users[u.ID] = *u
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, id uint) (*user.User, error) {
	var found user.User
	err := r.s.do(ctx, "user.FindByID", func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return user.ErrUserNotFound
		}
		found = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// ---------- books ----------

type bookRepo struct{ s *Store }

func (r *bookRepo) Create(ctx context.Context, b *book.Book) error {
	return r.s.do(ctx, "book.Create", func(t *tables) error {
		b.ID = t.nextID("books")
		t.books[b.ID] = *b
		return nil
	})
}

func (r *bookRepo) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.get(ctx, "book.FindByID", id)
}

func (r *bookRepo) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.get(ctx, "book.LockByID", id)
}

func (r *bookRepo) get(ctx context.Context, op string, id uint) (*book.Book, error) {
	var found book.Book
	err := r.s.do(ctx, op, func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return book.NotFound(id)
		}
		found = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *bookRepo) AdjustStock(ctx context.Context, id uint, delta int) (int, error) {
	var stock int
	err := r.s.do(ctx, "book.AdjustStock", func(t *tables) error {
		b, ok := t.books[id]
		if !ok {
			return book.NotFound(id)
		}
		if b.Stock+delta < 0 {
			return book.ErrStockConflict
		}
		b.Stock += delta
		b.UpdatedAt = time.Now()
		t.books[id] = b
		stock = b.Stock
		return nil
	})
	return stock, err
}

func (r *bookRepo) Delete(ctx context.Context, id uint) error {
	return r.s.do(ctx, "book.Delete", func(t *tables) error {
		if _, ok := t.books[id]; !ok {
			return book.NotFound(id)
		}
		delete(t.books, id)
		return nil
	})
}

// ---------- orders ----------

type orderRepo struct{ s *Store }

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.s.do(ctx, "order.Create", func(t *tables) error {
		if _, dup := t.orderNos[o.OrderNo]; dup {
			return order.ErrDuplicateOrderNo
		}
		o.ID = t.nextID("orders")
		for i := range o.Items {
			o.Items[i].ID = t.nextID("order_items")
			o.Items[i].OrderID = o.ID
		}
		t.orders[o.ID] = copyOrder(*o)
		t.orderNos[o.OrderNo] = o.ID
		return nil
	})
}

func (r *orderRepo) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.get(ctx, "order.FindByID", id)
}

func (r *orderRepo) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.get(ctx, "order.LockByID", id)
}

func (r *orderRepo) get(ctx context.Context, op string, id uint) (*order.Order, error) {
	var found order.Order
	err := r.s.do(ctx, op, func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		found = copyOrder(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint, from, to order.Status, now time.Time) error {
	return r.s.do(ctx, "order.UpdateStatus", func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		if o.Status != from {
			return order.ErrStatusChanged
		}
		o.Status = to
		o.UpdatedAt = now
		t.orders[id] = o
		return nil
	})
}

func (r *orderRepo) Delete(ctx context.Context, id uint) error {
	return r.s.do(ctx, "order.Delete", func(t *tables) error {
		o, ok := t.orders[id]
		if !ok {
			return order.NotFound(id)
		}
		delete(t.orderNos, o.OrderNo)
		delete(t.orders, id)
		return nil
	})
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(ctx, "order.ListByUserID", page, pageSize, func(o *order.Order) bool { return o.UserID == userID })
}

func (r *orderRepo) List(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(ctx, "order.List", page, pageSize, func(*order.Order) bool { return true })
}

func (r *orderRepo) list(ctx context.Context, op string, page, pageSize int, keep func(*order.Order) bool) ([]*order.Order, int64, error) {
	var matched []*order.Order
	err := r.s.do(ctx, op, func(t *tables) error {
		for _, o := range t.orders {
			c := copyOrder(o)
			if keep(&c) {
				matched = append(matched, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, page, pageSize), int64(len(matched)), nil
}

func (r *orderRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]*order.Order, error) {
	var result []*order.Order
	err := r.s.do(ctx, "order.ListPendingBefore", func(t *tables) error {
		for _, o := range t.orders {
			if o.IsOverdue(cutoff) {
				c := copyOrder(o)
				result = append(result, &c)
			}
		}
		return nil
	})
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, err
}

func (r *orderRepo) CountItemsByBookID(ctx context.Context, bookID uint) (int64, error) {
	var n int64
	err := r.s.do(ctx, "order.CountItemsByBookID", func(t *tables) error {
		for _, o := range t.orders {
			for _, item := range o.Items {
				if item.BookID == bookID {
					n++
				}
			}
		}
		return nil
	})
	return n, err
}

// ---------- wallets ----------

type walletRepo struct{ s *Store }

func (r *walletRepo) FindByUserID(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	return r.byUser(ctx, "wallet.FindByUserID", userID)
}

func (r *walletRepo) LockByUserID(ctx context.Context, userID uint) (*wallet.Wallet, error) {
	return r.byUser(ctx, "wallet.LockByUserID", userID)
}

func (r *walletRepo) byUser(ctx context.Context, op string, userID uint) (*wallet.Wallet, error) {
	var found wallet.Wallet
	err := r.s.do(ctx, op, func(t *tables) error {
		for _, w := range t.wallets {
			if w.UserID == userID {
				found = w
				return nil
			}
		}
		return wallet.ErrWalletNotFound
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *walletRepo) Create(ctx context.Context, w *wallet.Wallet) error {
	return r.s.do(ctx, "wallet.Create", func(t *tables) error {
		for _, existing := range t.wallets {
			if existing.UserID == w.UserID {
				return wallet.ErrWalletExists
			}
		}
		w.ID = t.nextID("wallets")
		t.wallets[w.ID] = *w
		return nil
	})
}

func (r *walletRepo) UpdateBalance(ctx context.Context, walletID uint, balance decimal.Decimal, now time.Time) error {
	return r.s.do(ctx, "wallet.UpdateBalance", func(t *tables) error {
		w, ok := t.wallets[walletID]
		if !ok {
			return wallet.ErrWalletNotFound
		}
		w.Balance = balance
		w.UpdatedAt = now
		t.wallets[walletID] = w
		return nil
	})
}

func (r *walletRepo) AppendTransaction(ctx context.Context, tx *wallet.Transaction) error {
	return r.s.do(ctx, "wallet.AppendTransaction", func(t *tables) error {
		if _, ok := t.wallets[tx.WalletID]; !ok {
			return apperrors.New(apperrors.ErrCodeInternal, "transaction references unknown wallet")
		}
		tx.ID = t.nextID("wallet_transactions")
		t.transactions = append(t.transactions, *tx)
		return nil
	})
}

func (r *walletRepo) ListTransactions(ctx context.Context, walletID uint, filter wallet.TxFilter) ([]*wallet.Transaction, int64, error) {
	var matched []*wallet.Transaction
	err := r.s.do(ctx, "wallet.ListTransactions", func(t *tables) error {
		for i := range t.transactions {
			tx := t.transactions[i]
			if tx.WalletID != walletID {
				continue
			}
			if filter.Type != "" && tx.Type != filter.Type {
				continue
			}
			if filter.Start != nil && tx.CreatedAt.Before(*filter.Start) {
				continue
			}
			if filter.End != nil && tx.CreatedAt.After(*filter.End) {
				continue
			}
			matched = append(matched, &tx)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, filter.Page, filter.PageSize), int64(len(matched)), nil
}

func (r *walletRepo) SumTransactions(ctx context.Context, walletID uint) (decimal.Decimal, error) {
	sum := decimal.Zero
	err := r.s.do(ctx, "wallet.SumTransactions", func(t *tables) error {
		for _, tx := range t.transactions {
			if tx.WalletID == walletID {
				sum = sum.Add(tx.Amount)
			}
		}
		return nil
	})
	return sum, err
}

func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

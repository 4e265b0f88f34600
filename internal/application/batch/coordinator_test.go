package batch

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-core/internal/application/event"
	"github.com/xiebiao/bookstore-core/internal/application/inventory"
	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	appwallet "github.com/xiebiao/bookstore-core/internal/application/wallet"
	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fixture struct {
	store       *memory.Store
	orders      *apporder.Lifecycle
	ledger      *appwallet.Ledger
	coordinator *Coordinator
	userID      uint
	otherID     uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	m := metrics.NewNop()
	rec := &event.Recorder{}

	u := user.NewUser("reader", "reader@example.com")
	require.NoError(t, store.Users().Create(ctx, u))
	other := user.NewUser("other", "other@example.com")
	require.NoError(t, store.Users().Create(ctx, other))

	orders := apporder.NewLifecycle(store, store.Orders(), store.Books(), store.Users(),
		inventory.NewLedger(store.Books(), m), rec, m, config.OrderConfig{OrderNoRetries: 3})
	ledger := appwallet.NewLedger(store, store.Wallets(), store.Users(), orders, nil, rec, m)

	return &fixture{
		store:       store,
		orders:      orders,
		ledger:      ledger,
		coordinator: NewCoordinator(store, orders, ledger, store.Books(), store.Orders(), m),
		userID:      u.ID,
		otherID:     other.ID,
	}
}

func (f *fixture) book(t *testing.T, price string, stock int) *book.Book {
	t.Helper()
	b := book.NewBook("isbn-"+price, "book "+price, "author", dec(price), stock)
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b
}

func (f *fixture) order(t *testing.T, userID, bookID uint) *order.Order {
	t.Helper()
	o, err := f.orders.CreateFromSingleBook(context.Background(), userID, bookID, 1)
	require.NoError(t, err)
	return o
}

func (f *fixture) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := f.ledger.Deposit(context.Background(), f.userID, dec(amount), "")
	require.NoError(t, err)
}

func (f *fixture) status(t *testing.T, id uint) order.Status {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func TestBatchPay_AllPaid(t *testing.T) {
	f := newFixture(t)
	o1 := f.order(t, f.userID, f.book(t, "30.00", 5).ID)
	o2 := f.order(t, f.userID, f.book(t, "20.00", 5).ID)
	f.deposit(t, "100")

	res, err := f.coordinator.BatchPay(context.Background(), f.userID, []uint{o1.ID, o2.ID, o1.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Paid)
	assert.Zero(t, res.Failed)
	assert.True(t, res.Balance.Equal(dec("50")))
	for _, out := range res.Outcomes {
		assert.True(t, out.Paid)
		assert.NotZero(t, out.TransactionID)
	}
	assert.Equal(t, order.StatusCompleted, f.status(t, o1.ID))
	assert.Equal(t, order.StatusCompleted, f.status(t, o2.ID))
}

func TestBatchPay_CombinedPrecheckRejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	o1 := f.order(t, f.userID, f.book(t, "70.00", 5).ID)
	o2 := f.order(t, f.userID, f.book(t, "50.00", 5).ID)
	f.deposit(t, "100")

	_, err := f.coordinator.BatchPay(context.Background(), f.userID, []uint{o1.ID, o2.ID})
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "120.00", appErr.Details["required"])
	assert.Equal(t, "100.00", appErr.Details["available"])

	assert.Equal(t, order.StatusPending, f.status(t, o1.ID))
	assert.Equal(t, order.StatusPending, f.status(t, o2.ID))
	w, err := f.ledger.GetOrCreateWallet(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(dec("100")))
}

func TestBatchPay_RejectionKeepsIneligibleFailures(t *testing.T) {
	f := newFixture(t)
	mine := f.order(t, f.userID, f.book(t, "70.00", 5).ID)
	theirs := f.order(t, f.otherID, f.book(t, "5.00", 5).ID)
	f.deposit(t, "50")

	res, err := f.coordinator.BatchPay(context.Background(), f.userID, []uint{mine.ID, theirs.ID, 999})
	require.ErrorIs(t, err, wallet.ErrInsufficientBalance)
	require.NotNil(t, res)

	require.Len(t, res.Outcomes, 3)
	assert.False(t, res.Outcomes[0].Paid)
	assert.Nil(t, res.Outcomes[0].Failure)
	assert.Equal(t, apperrors.ErrCodeForbidden, res.Outcomes[1].Failure.Code)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, res.Outcomes[2].Failure.Code)
	assert.Zero(t, res.Paid)
	assert.Equal(t, 3, res.Failed)
	assert.True(t, res.Balance.Equal(dec("50")))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "70.00", appErr.Details["required"])
	failures, ok := appErr.Details["failures"].([]ItemFailure)
	require.True(t, ok)
	require.Len(t, failures, 2)
	assert.Equal(t, theirs.ID, failures[0].ID)
	assert.Equal(t, uint(999), failures[1].ID)

	assert.Equal(t, order.StatusPending, f.status(t, mine.ID))
}

func TestBatchPay_IneligibleOrdersReportedAndExcluded(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "10.00", 10)
	mine := f.order(t, f.userID, b.ID)
	paid := f.order(t, f.userID, b.ID)
	theirs := f.order(t, f.otherID, b.ID)
	f.deposit(t, "20")
	_, err := f.ledger.PayOrder(context.Background(), f.userID, paid.ID)
	require.NoError(t, err)

	res, err := f.coordinator.BatchPay(context.Background(), f.userID, []uint{mine.ID, paid.ID, theirs.ID, 999})
	require.NoError(t, err)

	require.Len(t, res.Outcomes, 4)
	assert.True(t, res.Outcomes[0].Paid)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, res.Outcomes[1].Failure.Code)
	assert.Equal(t, apperrors.ErrCodeForbidden, res.Outcomes[2].Failure.Code)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, res.Outcomes[3].Failure.Code)
	assert.Equal(t, 1, res.Paid)
	assert.Equal(t, 3, res.Failed)
	assert.True(t, res.Balance.IsZero())
	assert.Equal(t, order.StatusPending, f.status(t, theirs.ID))
}

// drainingWallets 在支付第二笔之前模拟一次并发提现
type drainingWallets struct {
	*appwallet.Ledger
	userID uint
	calls  int
}

func (d *drainingWallets) PayOrder(ctx context.Context, userID, orderID uint) (*appwallet.Receipt, error) {
	d.calls++
	if d.calls == 2 {
		if _, err := d.Withdraw(ctx, d.userID, decimal.NewFromInt(40), "concurrent spend"); err != nil {
			return nil, err
		}
	}
	return d.Ledger.PayOrder(ctx, userID, orderID)
}

func TestBatchPay_PartialSuccessReportedAccurately(t *testing.T) {
	f := newFixture(t)
	o1 := f.order(t, f.userID, f.book(t, "50.00", 5).ID)
	o2 := f.order(t, f.userID, f.book(t, "30.00", 5).ID)
	f.deposit(t, "100")

	wallets := &drainingWallets{Ledger: f.ledger, userID: f.userID}
	c := NewCoordinator(f.store, f.orders, wallets, f.store.Books(), f.store.Orders(), metrics.NewNop())

	res, err := c.BatchPay(context.Background(), f.userID, []uint{o1.ID, o2.ID})
	require.NoError(t, err)

	assert.True(t, res.Outcomes[0].Paid)
	assert.False(t, res.Outcomes[1].Paid)
	assert.Equal(t, apperrors.ErrCodeInsufficientBalance, res.Outcomes[1].Failure.Code)
	assert.True(t, res.Balance.Equal(dec("10")))

	assert.Equal(t, order.StatusCompleted, f.status(t, o1.ID))
	assert.Equal(t, order.StatusPending, f.status(t, o2.ID))

	rec, err := f.ledger.Reconcile(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
}

func TestBatchPay_Empty(t *testing.T) {
	f := newFixture(t)
	_, err := f.coordinator.BatchPay(context.Background(), f.userID, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBatchCancel(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "10.00", 3)
	o1 := f.order(t, f.userID, b.ID)
	o2 := f.order(t, f.userID, b.ID)
	o3 := f.order(t, f.userID, b.ID)
	require.NoError(t, f.orders.MarkCompleted(context.Background(), o3.ID))

	res, err := f.coordinator.BatchCancel(context.Background(), []uint{o1.ID, o2.ID, o3.ID, 999})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Succeeded)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, o3.ID, res.Failures[0].ID)
	assert.Equal(t, apperrors.ErrCodeInvalidTransition, res.Failures[0].Code)
	assert.Equal(t, apperrors.ErrCodeOrderNotFound, res.Failures[1].Code)

	got, err := f.store.Books().FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestBatchCancelOwned(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "10.00", 5)
	mine := f.order(t, f.userID, b.ID)
	theirs := f.order(t, f.otherID, b.ID)

	res, err := f.coordinator.BatchCancelOwned(context.Background(), f.userID, []uint{mine.ID, theirs.ID})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, apperrors.ErrCodeForbidden, res.Failures[0].Code)
	assert.Equal(t, order.StatusPending, f.status(t, theirs.ID))
}

func TestBatchDelete(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "10.00", 5)
	o1 := f.order(t, f.userID, b.ID)
	o2 := f.order(t, f.userID, b.ID)

	res, err := f.coordinator.BatchDelete(context.Background(), []uint{o1.ID, o2.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Succeeded)
	assert.Len(t, res.Failures, 1)

	got, err := f.store.Books().FindByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock, "admin delete does not restock")
}

func TestBatchDeleteBooks(t *testing.T) {
	f := newFixture(t)
	referenced := f.book(t, "10.00", 5)
	free := f.book(t, "12.00", 5)
	f.order(t, f.userID, referenced.ID)

	res, err := f.coordinator.BatchDeleteBooks(context.Background(), []uint{referenced.ID, free.ID, 999})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Succeeded)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, referenced.ID, res.Failures[0].ID)
	assert.Equal(t, apperrors.ErrCodeBookReferenced, res.Failures[0].Code)
	assert.Equal(t, int64(1), res.Failures[0].Details["order_lines"])
	assert.Equal(t, apperrors.ErrCodeBookNotFound, res.Failures[1].Code)

	_, err = f.store.Books().FindByID(context.Background(), free.ID)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
	_, err = f.store.Books().FindByID(context.Background(), referenced.ID)
	assert.NoError(t, err)
}

func TestBatch_InternalErrorsAreGeneric(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "10.00", 5)
	o := f.order(t, f.userID, b.ID)

	f.store.FailOn("order.Delete", errors.New("deadlock found"))
	res, err := f.coordinator.BatchDelete(context.Background(), []uint{o.ID})
	require.NoError(t, err)

	require.Len(t, res.Failures, 1)
	assert.Equal(t, apperrors.ErrCodeInternal, res.Failures[0].Code)
	assert.Equal(t, "internal error", res.Failures[0].Message)
}

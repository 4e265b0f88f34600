package order

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-core/internal/application/event"
	"github.com/xiebiao/bookstore-core/internal/application/inventory"
	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
)

var baseTime = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	lifecycle *Lifecycle
	events    *event.Recorder
	userID    uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	m := metrics.NewNop()
	rec := &event.Recorder{}

	u := user.NewUser("reader", "reader@example.com")
	require.NoError(t, store.Users().Create(context.Background(), u))

	l := NewLifecycle(store, store.Orders(), store.Books(), store.Users(),
		inventory.NewLedger(store.Books(), m), rec, m, config.OrderConfig{OrderNoRetries: 3})
	l.SetClock(func() time.Time { return baseTime })

	return &fixture{store: store, lifecycle: l, events: rec, userID: u.ID}
}

func (f *fixture) addBook(t *testing.T, title string, price string, stock int) *book.Book {
	t.Helper()
	b := book.NewBook("isbn-"+title, title, "author", decimal.RequireFromString(price), stock)
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b
}

func (f *fixture) stock(t *testing.T, bookID uint) int {
	t.Helper()
	b, err := f.store.Books().FindByID(context.Background(), bookID)
	require.NoError(t, err)
	return b.Stock
}

func TestLifecycle_Create(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "20.00", 10)

	o, err := f.lifecycle.Create(context.Background(), f.userID, []Line{{BookID: b.ID, Quantity: 3}})
	require.NoError(t, err)

	assert.Equal(t, 7, f.stock(t, b.ID))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Regexp(t, `^ORD-20240501-\d{4}$`, o.OrderNo)
	require.Len(t, o.Items, 1)
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	assert.Equal(t, []string{event.OrderCreated}, f.events.Types())
}

func TestLifecycle_CreateKeepsRequestOrderAndPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	first := f.addBook(t, "first", "10.00", 5)
	second := f.addBook(t, "second", "2.50", 5)

	o, err := f.lifecycle.Create(context.Background(), f.userID, []Line{
		{BookID: second.ID, Quantity: 2},
		{BookID: first.ID, Quantity: 1},
	})
	require.NoError(t, err)

	require.Len(t, o.Items, 2)
	assert.Equal(t, second.ID, o.Items[0].BookID)
	assert.Equal(t, first.ID, o.Items[1].BookID)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("15.00")))

	assert.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, o.Items[1].Price.Equal(decimal.RequireFromString("10.00")))

	got, err := f.lifecycle.Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(got.CalculateTotal()))
}

func TestLifecycle_CreateRollsBackEarlierReservations(t *testing.T) {
	f := newFixture(t)
	plenty := f.addBook(t, "plenty", "5.00", 10)
	scarce := f.addBook(t, "scarce", "5.00", 1)

	_, err := f.lifecycle.Create(context.Background(), f.userID, []Line{
		{BookID: plenty.ID, Quantity: 4},
		{BookID: scarce.ID, Quantity: 2},
	})
	require.ErrorIs(t, err, book.ErrOutOfStock)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, scarce.ID, appErr.Details["book_id"])
	assert.Equal(t, "scarce", appErr.Details["title"])

	assert.Equal(t, 10, f.stock(t, plenty.ID))
	assert.Equal(t, 1, f.stock(t, scarce.ID))
	_, total, err := f.lifecycle.ListPaged(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, f.events.Types())
}

func TestLifecycle_CreateValidation(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "1.00", 1)

	tests := []struct {
		name   string
		userID uint
		lines  []Line
		want   error
	}{
		{"no lines", f.userID, nil, order.ErrInvalidOrderItems},
		{"zero quantity", f.userID, []Line{{BookID: b.ID, Quantity: 0}}, order.ErrInvalidQuantity},
		{"unknown user", 999, []Line{{BookID: b.ID, Quantity: 1}}, user.ErrUserNotFound},
		{"unknown book", f.userID, []Line{{BookID: 999, Quantity: 1}}, book.ErrBookNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.lifecycle.Create(context.Background(), tt.userID, tt.lines)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 1, f.stock(t, b.ID))
}

func TestLifecycle_CreateFromSingleBook(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "20.00", 10)

	o, err := f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 2)
	require.NoError(t, err)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 8, f.stock(t, b.ID))

	_, err = f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 9)
	assert.ErrorIs(t, err, book.ErrOutOfStock)
	assert.Equal(t, 8, f.stock(t, b.ID))
}

func TestLifecycle_OrderNoCollisionRetries(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "1.00", 10)

	numbers := []string{"ORD-20240501-0001", "ORD-20240501-0001", "ORD-20240501-0002"}
	f.lifecycle.newOrderNo = func(time.Time) string {
		n := numbers[0]
		numbers = numbers[1:]
		return n
	}

	first, err := f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 1)
	require.NoError(t, err)
	second, err := f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 1)
	require.NoError(t, err)

	assert.Equal(t, "ORD-20240501-0001", first.OrderNo)
	assert.Equal(t, "ORD-20240501-0002", second.OrderNo)
}

func TestLifecycle_OrderNoExhausted(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "1.00", 10)
	f.lifecycle.newOrderNo = func(time.Time) string { return "ORD-20240501-0001" }

	_, err := f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 1)
	require.NoError(t, err)

	_, err = f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 1)
	assert.ErrorIs(t, err, order.ErrOrderNoExhausted)
	assert.Equal(t, 9, f.stock(t, b.ID))
}

func TestLifecycle_StateMachine(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "20.00", 10)
	ctx := context.Background()

	o, err := f.lifecycle.CreateFromSingleBook(ctx, f.userID, b.ID, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, f.lifecycle.MarkRefunded(ctx, o.ID), order.ErrInvalidTransition)

	require.NoError(t, f.lifecycle.MarkCompleted(ctx, o.ID))
	assert.ErrorIs(t, f.lifecycle.MarkCompleted(ctx, o.ID), order.ErrInvalidTransition)
	assert.ErrorIs(t, f.lifecycle.Cancel(ctx, o.ID, ReasonUser), order.ErrInvalidTransition)

	require.NoError(t, f.lifecycle.MarkRefunded(ctx, o.ID))
	assert.ErrorIs(t, f.lifecycle.MarkRefunded(ctx, o.ID), order.ErrInvalidTransition)
	assert.ErrorIs(t, f.lifecycle.MarkCompleted(ctx, o.ID), order.ErrInvalidTransition)

	got, err := f.lifecycle.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusRefunded, got.Status)

	assert.ErrorIs(t, f.lifecycle.MarkCompleted(ctx, 999), order.ErrOrderNotFound)
}

func TestLifecycle_CancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	a := f.addBook(t, "A", "3.00", 5)
	b := f.addBook(t, "B", "4.00", 5)
	ctx := context.Background()

	o, err := f.lifecycle.Create(ctx, f.userID, []Line{{BookID: a.ID, Quantity: 2}, {BookID: b.ID, Quantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, a.ID))
	assert.Equal(t, 0, f.stock(t, b.ID))

	require.NoError(t, f.lifecycle.Cancel(ctx, o.ID, ReasonUser))

	assert.Equal(t, 5, f.stock(t, a.ID))
	assert.Equal(t, 5, f.stock(t, b.ID))
	_, err = f.lifecycle.Get(ctx, o.ID)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
	assert.ErrorIs(t, f.lifecycle.Cancel(ctx, o.ID, ReasonUser), order.ErrOrderNotFound)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, event.OrderCancelled, events[1].Type)
	payload := events[1].Payload.(event.OrderPayload)
	assert.Equal(t, "cancelled", payload.Status)
	assert.Equal(t, "user", payload.Reason)
}

func TestLifecycle_CancelRollsBackOnStorageFailure(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "3.00", 5)
	ctx := context.Background()

	o, err := f.lifecycle.CreateFromSingleBook(ctx, f.userID, b.ID, 2)
	require.NoError(t, err)

	f.store.FailOn("order.Delete", errors.New("disk full"))
	require.Error(t, f.lifecycle.Cancel(ctx, o.ID, ReasonUser))

	assert.Equal(t, 3, f.stock(t, b.ID))
	got, err := f.lifecycle.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestLifecycle_DeleteKeepsStock(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "3.00", 5)
	ctx := context.Background()

	o, err := f.lifecycle.CreateFromSingleBook(ctx, f.userID, b.ID, 2)
	require.NoError(t, err)
	require.NoError(t, f.lifecycle.MarkCompleted(ctx, o.ID))

	require.NoError(t, f.lifecycle.Delete(ctx, o.ID))

	assert.Equal(t, 3, f.stock(t, b.ID))
	assert.ErrorIs(t, f.lifecycle.Delete(ctx, o.ID), order.ErrOrderNotFound)
}

func TestLifecycle_Listing(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "1.00", 100)
	ctx := context.Background()

	other := user.NewUser("other", "other@example.com")
	require.NoError(t, f.store.Users().Create(ctx, other))

	for i := 0; i < 3; i++ {
		f.lifecycle.SetClock(func() time.Time { return baseTime.Add(time.Duration(i) * time.Minute) })
		_, err := f.lifecycle.CreateFromSingleBook(ctx, f.userID, b.ID, 1)
		require.NoError(t, err)
	}
	_, err := f.lifecycle.CreateFromSingleBook(ctx, other.ID, b.ID, 1)
	require.NoError(t, err)

	mine, total, err := f.lifecycle.ListByUser(ctx, f.userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, mine, 2)
	assert.True(t, mine[0].CreatedAt.After(mine[1].CreatedAt), "newest first")

	all, total, err := f.lifecycle.ListPaged(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 4)

	overdue, err := f.lifecycle.ListOverdue(ctx, baseTime.Add(90*time.Second))
	require.NoError(t, err)
	assert.Len(t, overdue, 2)
}

func TestLifecycle_FailedCreateRecordsReason(t *testing.T) {
	f := newFixture(t)
	b := f.addBook(t, "B", "1.00", 0)

	_, err := f.lifecycle.CreateFromSingleBook(context.Background(), f.userID, b.ID, 1)
	require.Error(t, err)
	assert.Equal(t, "out_of_stock", failureReason(err))
	assert.Equal(t, "internal", failureReason(fmt.Errorf("wrapped: %w", errors.New("io"))))
}

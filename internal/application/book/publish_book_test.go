package book

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/memory"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

func TestPublishBook(t *testing.T) {
	uc := NewPublishBookUseCase(memory.NewStore().Books())

	b, err := uc.Execute(context.Background(), PublishBookRequest{
		ISBN:   " 9787115428028 ",
		Title:  "Go in Action",
		Author: "William Kennedy",
		Price:  decimal.RequireFromString("59.90"),
		Stock:  100,
	})
	require.NoError(t, err)
	assert.NotZero(t, b.ID)
	assert.Equal(t, "9787115428028", b.ISBN)

	got, err := uc.Get(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Stock)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("59.9")))
}

func TestPublishBook_Invalid(t *testing.T) {
	uc := NewPublishBookUseCase(memory.NewStore().Books())
	valid := PublishBookRequest{ISBN: "isbn", Title: "title", Price: decimal.NewFromInt(10), Stock: 1}

	cases := map[string]func(r *PublishBookRequest){
		"empty isbn":     func(r *PublishBookRequest) { r.ISBN = "  " },
		"empty title":    func(r *PublishBookRequest) { r.Title = "" },
		"zero price":     func(r *PublishBookRequest) { r.Price = decimal.Zero },
		"sub-cent price": func(r *PublishBookRequest) { r.Price = decimal.RequireFromString("1.005") },
		"negative stock": func(r *PublishBookRequest) { r.Stock = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := valid
			mutate(&req)
			_, err := uc.Execute(context.Background(), req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidParams)
		})
	}
}

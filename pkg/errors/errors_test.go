package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	sentinel := New(ErrCodeOutOfStock, "out of stock")
	detailed := NewWithDetails(ErrCodeOutOfStock, "book 7 out of stock", map[string]interface{}{
		"book_id": 7,
	})

	assert.True(t, errors.Is(detailed, sentinel))
	assert.True(t, errors.Is(fmt.Errorf("reserve: %w", detailed), sentinel))
	assert.False(t, errors.Is(detailed, ErrOrderNotFound))
}

func TestAppError_InternalErrorsDoNotMatchEachOther(t *testing.T) {
	a := Wrap(errors.New("conn reset"), "query failed")
	b := Wrap(errors.New("timeout"), "update failed")

	assert.False(t, errors.Is(a, b))
	assert.True(t, errors.Is(a, a))
}

func TestGetAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := GetAppError(plain)
	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.ErrorIs(t, appErr, plain)

	assert.Same(t, ErrForbidden, GetAppError(ErrForbidden))
}

func TestIsBusiness(t *testing.T) {
	assert.True(t, IsBusiness(ErrOrderNotFound))
	assert.True(t, IsBusiness(fmt.Errorf("wrapped: %w", ErrInvalidParams)))
	assert.False(t, IsBusiness(Wrap(errors.New("x"), "y")))
	assert.False(t, IsBusiness(errors.New("plain")))
}

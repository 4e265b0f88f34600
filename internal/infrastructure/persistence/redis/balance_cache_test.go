package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
)

func TestBalanceCache_Miss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, time.Minute)

	mock.ExpectGet("wallet:balance:1").RedisNil()

	_, ok := cache.Get(context.Background(), 1)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceCache_Hit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, time.Minute)

	raw, err := json.Marshal(cachedWallet{ID: 3, UserID: 1, Balance: decimal.RequireFromString("40.00")})
	require.NoError(t, err)
	mock.ExpectGet("wallet:balance:1").SetVal(string(raw))

	w, ok := cache.Get(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, uint(3), w.ID)
	assert.True(t, w.Balance.Equal(decimal.NewFromInt(40)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceCache_ErrorIsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, time.Minute)

	mock.ExpectGet("wallet:balance:1").SetErr(errors.New("connection reset"))

	_, ok := cache.Get(context.Background(), 1)
	assert.False(t, ok)
}

func TestBalanceCache_SetAndInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewBalanceCache(client, 30*time.Second)
	w := &wallet.Wallet{ID: 3, UserID: 1, Balance: decimal.NewFromInt(100)}

	raw, err := json.Marshal(cachedWallet{ID: 3, UserID: 1, Balance: decimal.NewFromInt(100)})
	require.NoError(t, err)
	require.Contains(t, string(raw), `"balance":"100"`)
	mock.ExpectSet("wallet:balance:1", string(raw), 30*time.Second).SetVal("OK")
	mock.ExpectDel("wallet:balance:1").SetVal(1)

	cache.Set(context.Background(), w)
	cache.Invalidate(context.Background(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

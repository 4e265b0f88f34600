package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// BalanceCache 钱包余额读缓存
//
// Key: wallet:balance:{user_id}, 值为JSON, 带TTL.
// 写路径在事务提交后调用Invalidate; Redis出错只记日志, 调用方回源数据库.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache 创建余额缓存
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

type cachedWallet struct {
	ID        uint            `json:"id"`
	UserID    uint            `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func balanceKey(userID uint) string {
	return fmt.Sprintf("wallet:balance:%d", userID)
}

// Get 命中返回true
func (c *BalanceCache) Get(ctx context.Context, userID uint) (*wallet.Wallet, bool) {
	raw, err := c.client.Get(ctx, balanceKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, err, userID, "balance cache get failed")
		}
		return nil, false
	}

	var cw cachedWallet
	if err := json.Unmarshal(raw, &cw); err != nil {
		c.warn(ctx, err, userID, "balance cache entry corrupted")
		return nil, false
	}
	return &wallet.Wallet{
		ID:        cw.ID,
		UserID:    cw.UserID,
		Balance:   cw.Balance,
		CreatedAt: cw.CreatedAt,
		UpdatedAt: cw.UpdatedAt,
	}, true
}

// Set 写入缓存
func (c *BalanceCache) Set(ctx context.Context, w *wallet.Wallet) {
	raw, err := json.Marshal(cachedWallet{
		ID:        w.ID,
		UserID:    w.UserID,
		Balance:   w.Balance,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	})
	if err != nil {
		c.warn(ctx, err, w.UserID, "balance cache encode failed")
		return
	}
	if err := c.client.Set(ctx, balanceKey(w.UserID), string(raw), c.ttl).Err(); err != nil {
		c.warn(ctx, err, w.UserID, "balance cache set failed")
	}
}

// Invalidate 删除缓存
func (c *BalanceCache) Invalidate(ctx context.Context, userID uint) {
	if err := c.client.Del(ctx, balanceKey(userID)).Err(); err != nil {
		c.warn(ctx, err, userID, "balance cache invalidate failed")
	}
}

func (c *BalanceCache) warn(ctx context.Context, err error, userID uint, msg string) {
	logger.WithContext(ctx).WithFields(logrus.Fields{
		"user_id": userID,
		"error":   err.Error(),
	}).Warn(msg)
}

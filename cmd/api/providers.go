package main

import (
	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-core/internal/application/sweeper"
	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/txn"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-core/pkg/jwt"
	"github.com/xiebiao/bookstore-core/pkg/logger"
	"github.com/xiebiao/bookstore-core/pkg/metrics"
)

// App 注入器的产物
type App struct {
	Config  *config.Config
	Engine  *gin.Engine
	Sweeper *sweeper.Sweeper
}

func newApp(cfg *config.Config, engine *gin.Engine, sw *sweeper.Sweeper) *App {
	return &App{Config: cfg, Engine: engine, Sweeper: sw}
}

// Storage 按database.driver选出的一组仓储, 共用同一个事务管理器
type Storage struct {
	Tx      txn.Transactor
	Books   book.Repository
	Orders  order.Repository
	Wallets wallet.Repository
	Users   user.Repository
}

func provideStorage(cfg *config.Config) (*Storage, func(), error) {
	if cfg.Database.Driver == "memory" {
		logger.L().Warn("using in-memory storage, data is lost on restart")
		s := memory.NewStore()
		return &Storage{
			Tx:      s,
			Books:   s.Books(),
			Orders:  s.Orders(),
			Wallets: s.Wallets(),
			Users:   s.Users(),
		}, func() {}, nil
	}

	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return &Storage{
		Tx:      mysql.NewTxManager(db),
		Books:   mysql.NewBookRepository(db),
		Orders:  mysql.NewOrderRepository(db),
		Wallets: mysql.NewWalletRepository(db),
		Users:   mysql.NewUserRepository(db),
	}, cleanup, nil
}

// provideBalanceCache redis未启用时返回nil, 钱包直接读库
func provideBalanceCache(cfg *config.Config) (wallet.BalanceCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = client.Close() }
	return redis.NewBalanceCache(client, cfg.Wallet.BalanceCacheTTL), cleanup, nil
}

func provideMetrics() *metrics.Metrics {
	return metrics.New(nil)
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire)
}

//go:build wireinject
// +build wireinject

// 修改依赖后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/google/wire"

	"github.com/xiebiao/bookstore-core/internal/application/batch"
	appbook "github.com/xiebiao/bookstore-core/internal/application/book"
	"github.com/xiebiao/bookstore-core/internal/application/inventory"
	apporder "github.com/xiebiao/bookstore-core/internal/application/order"
	"github.com/xiebiao/bookstore-core/internal/application/sweeper"
	appuser "github.com/xiebiao/bookstore-core/internal/application/user"
	appwallet "github.com/xiebiao/bookstore-core/internal/application/wallet"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/internal/infrastructure/messaging"
	"github.com/xiebiao/bookstore-core/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-core/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-core/internal/interface/http/router"
)

// infrastructureSet 存储、缓存、消息、指标
var infrastructureSet = wire.NewSet(
	provideStorage,
	wire.FieldsOf(new(*Storage), "Tx", "Books", "Orders", "Wallets", "Users"),
	wire.FieldsOf(new(*config.Config), "Order"),
	provideBalanceCache,
	provideMetrics,
	messaging.Connect,
)

// applicationSet 五个核心组件和图书、用户开通
// 组件之间只依赖小接口, 这里统一绑定到具体实现
var applicationSet = wire.NewSet(
	inventory.NewLedger,
	apporder.NewLifecycle,
	appwallet.NewLedger,
	sweeper.New,
	batch.NewCoordinator,
	appbook.NewPublishBookUseCase,
	appuser.NewRegisterUseCase,
	wire.Bind(new(appwallet.Orders), new(*apporder.Lifecycle)),
	wire.Bind(new(sweeper.Orders), new(*apporder.Lifecycle)),
	wire.Bind(new(batch.Orders), new(*apporder.Lifecycle)),
	wire.Bind(new(batch.Wallets), new(*appwallet.Ledger)),
)

// httpSet 接口层
var httpSet = wire.NewSet(
	provideJWTManager,
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	handler.NewWalletHandler,
	handler.NewAdminHandler,
	handler.NewBookHandler,
	handler.NewUserHandler,
	router.New,
)

// InitializeApp 组装整个应用, cleanup按创建的逆序释放连接
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		applicationSet,
		httpSet,
		newApp,
	)
	return nil, nil, nil
}

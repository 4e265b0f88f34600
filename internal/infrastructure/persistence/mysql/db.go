package mysql

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// NewDB 连接MySQL并配置连接池
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		// 事务边界由TxManager显式控制, 单条写不需要再包一层事务
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	logger.L().WithField("host", cfg.Database.Host).Info("mysql connected")

	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}

// AutoMigrate 建表(只加表和列, 不删不改)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&BookModel{},
		&OrderModel{},
		&OrderItemModel{},
		&WalletModel{},
		&WalletTransactionModel{},
	)
}

// UserModel 用户表, 本服务只读
type UserModel struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"uniqueIndex;size:50;not null"`
	Email     string    `gorm:"size:100"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
	UpdatedAt time.Time `gorm:"comment:更新时间"`
}

func (UserModel) TableName() string { return "users" }

// BookModel 图书表
// 删除是硬删除: 被订单明细引用的图书由应用层拒绝删除
type BookModel struct {
	ID        uint            `gorm:"primaryKey"`
	ISBN      string          `gorm:"uniqueIndex;size:20;not null;comment:ISBN"`
	Title     string          `gorm:"size:200;not null;comment:书名"`
	Author    string          `gorm:"size:100;not null;comment:作者"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:价格"`
	Stock     int             `gorm:"not null;default:0;comment:库存(>=0)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BookModel) TableName() string { return "books" }

// OrderModel 订单表, order_no唯一
type OrderModel struct {
	ID        uint             `gorm:"primaryKey"`
	OrderNo   string           `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID    uint             `gorm:"index;not null;comment:买家"`
	Total     decimal.Decimal  `gorm:"type:decimal(12,2);not null;comment:总金额"`
	Status    int              `gorm:"index:idx_status_created;type:tinyint;not null;default:1;comment:1待支付 2已支付 3已退款 4已取消"`
	Items     []OrderItemModel `gorm:"foreignKey:OrderID"`
	CreatedAt time.Time        `gorm:"index:idx_status_created"`
	UpdatedAt time.Time
}

func (OrderModel) TableName() string { return "orders" }

// OrderItemModel 订单明细, Price为下单时单价
type OrderItemModel struct {
	ID       uint            `gorm:"primaryKey"`
	OrderID  uint            `gorm:"index;not null"`
	BookID   uint            `gorm:"index;not null"`
	Quantity int             `gorm:"not null"`
	Price    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (OrderItemModel) TableName() string { return "order_items" }

// WalletModel 钱包表, 一个用户一个
type WalletModel struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    uint            `gorm:"uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WalletModel) TableName() string { return "wallets" }

// WalletTransactionModel 钱包流水, 只追加
type WalletTransactionModel struct {
	ID          uint            `gorm:"primaryKey"`
	RefNo       string          `gorm:"uniqueIndex;size:36;not null"`
	WalletID    uint            `gorm:"index:idx_wallet_created;not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;comment:带符号金额"`
	Type        string          `gorm:"size:16;index;not null"`
	Description string          `gorm:"size:255"`
	OrderID     *uint           `gorm:"index"`
	Status      string          `gorm:"size:16;not null"`
	CreatedAt   time.Time       `gorm:"index:idx_wallet_created"`
}

func (WalletTransactionModel) TableName() string { return "wallet_transactions" }

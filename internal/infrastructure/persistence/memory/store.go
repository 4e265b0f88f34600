// Package memory 进程内存储, 实现全部仓储接口和 txn.Transactor
//
// 一把全局锁串行化所有事务, 天然满足行锁语义; 事务开始时拍快照, fn失败或panic时整体恢复.
// 用于测试和本地开发(database.driver=memory), 数据不落盘.
package memory

import (
	"context"
	"sync"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
	"github.com/xiebiao/bookstore-core/internal/domain/order"
	"github.com/xiebiao/bookstore-core/internal/domain/user"
	"github.com/xiebiao/bookstore-core/internal/domain/wallet"
)

type txKey struct{}

type tables struct {
	users        map[uint]user.User
	books        map[uint]book.Book
	orders       map[uint]order.Order
	orderNos     map[string]uint
	wallets      map[uint]wallet.Wallet // key: wallet id
	transactions []wallet.Transaction
	seq          map[string]uint
}

func newTables() *tables {
	return &tables{
		users:    make(map[uint]user.User),
		books:    make(map[uint]book.Book),
		orders:   make(map[uint]order.Order),
		orderNos: make(map[string]uint),
		wallets:  make(map[uint]wallet.Wallet),
		seq:      make(map[string]uint),
	}
}

func (t *tables) clone() *tables {
	c := &tables{
		users:        make(map[uint]user.User, len(t.users)),
		books:        make(map[uint]book.Book, len(t.books)),
		orders:       make(map[uint]order.Order, len(t.orders)),
		orderNos:     make(map[string]uint, len(t.orderNos)),
		wallets:      make(map[uint]wallet.Wallet, len(t.wallets)),
		transactions: make([]wallet.Transaction, len(t.transactions)),
		seq:          make(map[string]uint, len(t.seq)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.books {
		c.books[k] = v
	}
	for k, v := range t.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range t.orderNos {
		c.orderNos[k] = v
	}
	for k, v := range t.wallets {
		c.wallets[k] = v
	}
	copy(c.transactions, t.transactions)
	for k, v := range t.seq {
		c.seq[k] = v
	}
	return c
}

func (t *tables) nextID(name string) uint {
	t.seq[name]++
	return t.seq[name]
}

// Store 内存存储
type Store struct {
	mu     sync.Mutex
	data   *tables
	faults map[string]error
}

// NewStore 创建空存储
func NewStore() *Store {
	return &Store{data: newTables(), faults: make(map[string]error)}
}

// Transaction 串行执行fn, 出错或panic时恢复到事务开始前
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if r := recover(); r != nil {
			s.data = snapshot
			panic(r)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, s))
}

// FailOn 下一次调用op时返回err(只生效一次), 用于模拟存储故障
// op形如 "wallet.AppendTransaction"
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// Books 图书仓储
func (s *Store) Books() book.Repository { return &bookRepo{s: s} }

// Orders 订单仓储
func (s *Store) Orders() order.Repository { return &orderRepo{s: s} }

// Wallets 钱包仓储
func (s *Store) Wallets() wallet.Repository { return &walletRepo{s: s} }

// Users 用户仓储
func (s *Store) Users() user.Repository { return &userRepo{s: s} }

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// do 在锁内执行; 已在本store的事务里时锁已持有
func (s *Store) do(ctx context.Context, op string, fn func(t *tables) error) error {
	if !s.inTx(ctx) {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	return fn(s.data)
}

func copyOrder(o order.Order) order.Order {
	items := make([]order.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

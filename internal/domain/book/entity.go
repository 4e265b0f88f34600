package book

import (
	"time"

	"github.com/shopspring/decimal"
)

// Book 图书(外部目录实体, 本服务只读价格、读写库存)
// 不变量: Stock >= 0
type Book struct {
	ID        uint
	ISBN      string
	Title     string
	Author    string
	Price     decimal.Decimal
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建图书
func NewBook(isbn, title, author string, price decimal.Decimal, stock int) *Book {
	now := time.Now()
	return &Book{
		ISBN:      isbn,
		Title:     title,
		Author:    author,
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// DecrStock 扣减库存
func (b *Book) DecrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if b.Stock < quantity {
		return OutOfStock(b.ID, b.Title, quantity, b.Stock)
	}
	b.Stock -= quantity
	b.UpdatedAt = time.Now()
	return nil
}

// IncrStock 归还库存
func (b *Book) IncrStock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	b.Stock += quantity
	b.UpdatedAt = time.Now()
	return nil
}

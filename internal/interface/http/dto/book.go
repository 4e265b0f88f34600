package dto

import (
	"github.com/shopspring/decimal"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
)

// PublishBookRequest 录入图书
type PublishBookRequest struct {
	ISBN   string          `json:"isbn" binding:"required,max=20" example:"9787115428028"`
	Title  string          `json:"title" binding:"required,max=200" example:"Go语言实战"`
	Author string          `json:"author" binding:"max=100" example:"威廉·肯尼迪"`
	Price  decimal.Decimal `json:"price" swaggertype:"string" example:"59.00"`
	Stock  int             `json:"stock" binding:"min=0" example:"100"`
}

// BookResponse 图书
type BookResponse struct {
	ID        uint   `json:"id" example:"1"`
	ISBN      string `json:"isbn" example:"9787115428028"`
	Title     string `json:"title" example:"Go语言实战"`
	Author    string `json:"author" example:"威廉·肯尼迪"`
	Price     string `json:"price" example:"59.00"`
	Stock     int    `json:"stock" example:"100"`
	CreatedAt string `json:"created_at" example:"2024-01-15 10:30:00"`
	UpdatedAt string `json:"updated_at" example:"2024-01-15 10:30:00"`
}

// NewBookResponse 转换
func NewBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
		ID:        b.ID,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Price:     b.Price.StringFixed(2),
		Stock:     b.Stock,
		CreatedAt: formatTime(b.CreatedAt),
		UpdatedAt: formatTime(b.UpdatedAt),
	}
}

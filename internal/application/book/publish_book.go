// Package book 图书上架
// 图书目录由外部系统维护, 这里只提供管理员录入图书和初始库存的入口
package book

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

// PublishBookUseCase 图书上架用例
type PublishBookUseCase struct {
	books book.Repository
}

// NewPublishBookUseCase 创建上架用例
func NewPublishBookUseCase(books book.Repository) *PublishBookUseCase {
	return &PublishBookUseCase{books: books}
}

// PublishBookRequest 上架请求
type PublishBookRequest struct {
	ISBN   string
	Title  string
	Author string
	Price  decimal.Decimal
	Stock  int
}

// Execute 校验后写入图书
// 价格必须为正且最多两位小数, 库存不能为负
func (uc *PublishBookUseCase) Execute(ctx context.Context, req PublishBookRequest) (*book.Book, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	b := book.NewBook(strings.TrimSpace(req.ISBN), strings.TrimSpace(req.Title), strings.TrimSpace(req.Author), req.Price, req.Stock)
	if err := uc.books.Create(ctx, b); err != nil {
		return nil, err
	}

	logger.WithContext(ctx).WithFields(logrus.Fields{
		"book_id": b.ID,
		"isbn":    b.ISBN,
		"price":   b.Price.StringFixed(2),
		"stock":   b.Stock,
	}).Info("book published")
	return b, nil
}

// Get 查询图书
func (uc *PublishBookUseCase) Get(ctx context.Context, id uint) (*book.Book, error) {
	return uc.books.FindByID(ctx, id)
}

func validate(req PublishBookRequest) error {
	invalid := func(field string, value interface{}) error {
		return apperrors.NewWithDetails(apperrors.ErrCodeInvalidParams, "invalid "+field, map[string]interface{}{field: value})
	}
	switch {
	case strings.TrimSpace(req.ISBN) == "":
		return invalid("isbn", req.ISBN)
	case strings.TrimSpace(req.Title) == "":
		return invalid("title", req.Title)
	case !req.Price.IsPositive() || !req.Price.Equal(req.Price.Round(2)):
		return invalid("price", req.Price.String())
	case req.Stock < 0:
		return invalid("stock", req.Stock)
	}
	return nil
}

package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-core/internal/domain/book"
	apperrors "github.com/xiebiao/bookstore-core/pkg/errors"
)

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	model := toBookModel(b)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "create book")
	}
	b.ID = model.ID
	return nil
}

func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		return nil, r.translate(err, id)
	}
	return toBookEntity(&model), nil
}

// LockByID SELECT ... FOR UPDATE, 锁到事务结束
func (r *bookRepository) LockByID(ctx context.Context, id uint) (*book.Book, error) {
	var model BookModel
	err := dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, id).Error
	if err != nil {
		return nil, r.translate(err, id)
	}
	return toBookEntity(&model), nil
}

// AdjustStock UPDATE books SET stock = stock + ? WHERE id = ? AND stock + ? >= 0
func (r *bookRepository) AdjustStock(ctx context.Context, id uint, delta int) (int, error) {
	db := dbFrom(ctx, r.db)
	result := db.Model(&BookModel{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return 0, apperrors.Wrap(result.Error, "adjust stock")
	}

	if result.RowsAffected == 0 {
		// 区分不存在和库存不足
		if _, err := r.FindByID(ctx, id); err != nil {
			return 0, err
		}
		return 0, book.ErrStockConflict
	}

	var stock int
	if err := db.Model(&BookModel{}).Where("id = ?", id).Pluck("stock", &stock).Error; err != nil {
		return 0, apperrors.Wrap(err, "read stock")
	}
	return stock, nil
}

func (r *bookRepository) Delete(ctx context.Context, id uint) error {
	result := dbFrom(ctx, r.db).Delete(&BookModel{}, id)
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "delete book")
	}
	if result.RowsAffected == 0 {
		return book.NotFound(id)
	}
	return nil
}

func (r *bookRepository) translate(err error, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return book.NotFound(id)
	}
	return apperrors.Wrap(err, "query book")
}

func toBookModel(b *book.Book) *BookModel {
	return &BookModel{
		ID:        b.ID,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Author:    b.Author,
		Price:     b.Price,
		Stock:     b.Stock,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func toBookEntity(m *BookModel) *book.Book {
	return &book.Book{
		ID:        m.ID,
		ISBN:      m.ISBN,
		Title:     m.Title,
		Author:    m.Author,
		Price:     m.Price,
		Stock:     m.Stock,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

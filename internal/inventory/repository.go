package inventory

import (
	"context"

	"github.com/stockpiled/stockpile/internal/domain"
	"gorm.io/gorm"
)

// ProductRepository handles database operations for product records
type ProductRepository interface {
	// Create inserts a new product
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// GetByOwnerAndRef retrieves the product for an (owner, ref) pair
	GetByOwnerAndRef(ctx context.Context, ownerID, ref int64) (*domain.Product, error)

	// CountByOwnerAndRef counts products for an (owner, ref) pair
	CountByOwnerAndRef(ctx context.Context, ownerID, ref int64) (int64, error)

	// ListByOwner retrieves all products for an owner sorted by quantity
	ListByOwner(ctx context.Context, ownerID int64, order SortOrder) ([]domain.Product, error)

	// UpdateFields applies a partial update to a product
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// IncrementQuantity atomically adds delta to a product's quantity
	IncrementQuantity(ctx context.Context, id int64, delta int64) error

	// Delete removes a product
	Delete(ctx context.Context, id int64) error

	// ReassignOwner rewrites the owner of every product held by oldOwner
	ReassignOwner(ctx context.Context, oldOwner, newOwner int64) (int64, error)

	// ListAll retrieves every product with a reduced field projection
	ListAll(ctx context.Context) ([]domain.Product, error)
}

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GORM-based repository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) GetByOwnerAndRef(ctx context.Context, ownerID, ref int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND ref = ?", ownerID, ref).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormProductRepository) CountByOwnerAndRef(ctx context.Context, ownerID, ref int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("owner_id = ? AND ref = ?", ownerID, ref).
		Count(&count).Error
	return count, err
}

func (r *GormProductRepository) ListByOwner(ctx context.Context, ownerID int64, order SortOrder) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("quantity " + order.SQL()).
		Find(&products).Error
	return products, err
}

func (r *GormProductRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *GormProductRepository) IncrementQuantity(ctx context.Context, id int64, delta int64) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
}

func (r *GormProductRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Product{}, id).Error
}

func (r *GormProductRepository) ReassignOwner(ctx context.Context, oldOwner, newOwner int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("owner_id = ?", oldOwner).
		Update("owner_id", newOwner)
	return result.RowsAffected, result.Error
}

func (r *GormProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.db.WithContext(ctx).
		Select("id", "owner_id", "name", "ref", "quantity", "created_at").
		Find(&products).Error
	return products, err
}

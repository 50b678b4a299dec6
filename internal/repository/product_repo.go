package repository

import (
	"context"

	"warehouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	// List returns every product ordered by p_id.
	List(ctx context.Context) ([]model.Product, error)
	Update(ctx context.Context, p *model.Product) error

	// Used inside transactions. Callers must pass the tx instance.
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Product, error)
	SetQuantityTx(tx *gorm.DB, id uint, qty int) error

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, "p_id = ?", id).Error
	return &p, err
}

func (r *productRepo) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Order("p_id ASC").Find(&products).Error
	return products, err
}

// Update saves the descriptive columns only; item_quantity is owned by the
// stock operations.
func (r *productRepo) Update(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Model(p).
		Select("title", "gram", "product_rate", "item_bundle").
		Updates(p).Error
}

// FindByIDForUpdate reads the product row with SELECT ... FOR UPDATE so the
// quantity cannot change under the caller until the transaction ends.
func (r *productRepo) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Product, error) {
	var p model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, "p_id = ?", id).Error
	return &p, err
}

func (r *productRepo) SetQuantityTx(tx *gorm.DB, id uint, qty int) error {
	res := tx.Model(&model.Product{}).Where("p_id = ?", id).Update("item_quantity", qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepo) DB() *gorm.DB { return r.db }

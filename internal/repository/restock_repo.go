package repository

import (
	"context"

	"warehouse/internal/model"

	"gorm.io/gorm"
)

// RestockRepository is the append-only restock log.
type RestockRepository interface {
	CreateTx(tx *gorm.DB, r *model.Restock) error
	// List returns every restock, newest date first.
	List(ctx context.Context) ([]model.Restock, error)
}

type restockRepo struct{ db *gorm.DB }

func NewRestockRepository(db *gorm.DB) RestockRepository { return &restockRepo{db: db} }

func (r *restockRepo) CreateTx(tx *gorm.DB, rs *model.Restock) error {
	return tx.Create(rs).Error
}

func (r *restockRepo) List(ctx context.Context) ([]model.Restock, error) {
	var rows []model.Restock
	err := r.db.WithContext(ctx).Order("restock_date DESC, restock_id DESC").Find(&rows).Error
	return rows, err
}

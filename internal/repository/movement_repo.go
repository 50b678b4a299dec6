package repository

import (
	"context"
	"errors"

	"warehouse/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovementRepository interface {
	FindByDate(ctx context.Context, date model.Date) ([]model.Movement, error)
	// FindByProductDateTx returns nil, nil when no row exists for the pair.
	FindByProductDateTx(tx *gorm.DB, pid uint, date model.Date) (*model.Movement, error)
	// UpsertTx inserts m or, when a row for (p_id, movement_date) already
	// exists, overwrites only the given column. m.DID is filled in either way.
	UpsertTx(tx *gorm.DB, m *model.Movement, column string) error
	UpdateByIDTx(tx *gorm.DB, did uint, fields map[string]interface{}) error
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository {
	return &movementRepo{db: db}
}

func (r *movementRepo) FindByDate(ctx context.Context, date model.Date) ([]model.Movement, error) {
	var rows []model.Movement
	err := r.db.WithContext(ctx).
		Where("movement_date = ?", date).
		Order("p_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *movementRepo) FindByProductDateTx(tx *gorm.DB, pid uint, date model.Date) (*model.Movement, error) {
	var m model.Movement
	err := tx.Where("p_id = ? AND movement_date = ?", pid, date).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movementRepo) UpsertTx(tx *gorm.DB, m *model.Movement, column string) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "p_id"}, {Name: "movement_date"}},
		DoUpdates: clause.AssignmentColumns([]string{column}),
	}).Create(m).Error
}

func (r *movementRepo) UpdateByIDTx(tx *gorm.DB, did uint, fields map[string]interface{}) error {
	res := tx.Model(&model.Movement{}).Where("d_id = ?", did).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

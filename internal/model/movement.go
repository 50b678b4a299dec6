package model

// Movement holds the issued and returned quantities of one product on one
// calendar date. There is at most one row per (PID, MovementDate).
type Movement struct {
	DID          uint `gorm:"column:d_id;primaryKey;autoIncrement"`
	PID          uint `gorm:"column:p_id;not null;uniqueIndex:idx_movement_product_date"`
	MovementDate Date `gorm:"not null;uniqueIndex:idx_movement_product_date;index"`
	IssuedQty    int  `gorm:"not null;default:0"`
	ReturnedQty  int  `gorm:"not null;default:0"`
}

// TableName matches the legacy dashboard schema.
func (Movement) TableName() string { return "daily_stock_movement" }

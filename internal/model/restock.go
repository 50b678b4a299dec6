package model

// Restock is an append-only record of incoming stock. Several rows may exist
// for the same product and date. PID is not a foreign key constraint;
// titles are joined in memory when the log is listed.
type Restock struct {
	RestockID   uint `gorm:"column:restock_id;primaryKey;autoIncrement"`
	PID         uint `gorm:"column:p_id;not null;index"`
	RestockQty  int  `gorm:"not null"`
	RestockDate Date `gorm:"not null;index"`
}

func (Restock) TableName() string { return "restock" }

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a warehouse item. ItemQuantity is the authoritative on-hand
// count; it changes only through stock operations after creation.
type Product struct {
	PID          uint            `gorm:"column:p_id;primaryKey;autoIncrement"`
	Title        string          `gorm:"not null"`
	Gram         *string         // unit / size label, e.g. "500g"
	ItemQuantity int             `gorm:"not null;default:0"`
	ProductRate  decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	// ItemBundle is the number of units per bundle; 0 means no bundling.
	ItemBundle int `gorm:"not null;default:0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Product) TableName() string { return "products" }

// Bundles returns ItemQuantity expressed in bundles, or zero when the product
// is not bundled.
func (p Product) Bundles() decimal.Decimal {
	if p.ItemBundle <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(p.ItemQuantity)).
		Div(decimal.NewFromInt(int64(p.ItemBundle))).
		Round(2)
}

// Value is the on-hand stock valued at ProductRate.
func (p Product) Value() decimal.Decimal {
	return p.ProductRate.Mul(decimal.NewFromInt(int64(p.ItemQuantity)))
}

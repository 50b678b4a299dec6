package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateProductRequest struct {
	Title        string          `json:"title"         validate:"required,min=1,max=120"`
	Gram         *string         `json:"gram"          validate:"omitempty,max=40"`
	ItemQuantity int             `json:"item_quantity" validate:"min=0"`
	ProductRate  decimal.Decimal `json:"product_rate"  validate:"min=0"`
	ItemBundle   int             `json:"item_bundle"   validate:"min=0"`
}

// UpdateProductRequest omits item_quantity: on-hand stock changes only through
// stock operations.
type UpdateProductRequest struct {
	Title       *string          `json:"title"        validate:"omitempty,min=1,max=120"`
	Gram        *string          `json:"gram"         validate:"omitempty,max=40"`
	ProductRate *decimal.Decimal `json:"product_rate" validate:"omitempty,min=0"`
	ItemBundle  *int             `json:"item_bundle"  validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductResponse struct {
	PID          uint            `json:"p_id"`
	Title        string          `json:"title"`
	Gram         *string         `json:"gram"`
	ItemQuantity int             `json:"item_quantity"`
	ProductRate  decimal.Decimal `json:"product_rate"`
	ItemBundle   int             `json:"item_bundle"`
}

// DashboardRow adds the derived display columns of the warehouse table.
type DashboardRow struct {
	ProductResponse
	Bundles decimal.Decimal `json:"bundles"`
	Value   decimal.Decimal `json:"value"`
}

type DashboardSummary struct {
	TotalValue   decimal.Decimal `json:"total_value"`
	TotalItems   int             `json:"total_items"`
	ProductCount int             `json:"product_count"`
}

type DashboardResponse struct {
	Summary  DashboardSummary `json:"summary"`
	Products []DashboardRow   `json:"products"`
}

// ExportQuery selects the dashboard export format.
type ExportQuery struct {
	Format string `form:"format,default=xlsx" validate:"oneof=xlsx pdf"`
}

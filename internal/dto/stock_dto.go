package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SheetQuery selects the date of a daily sheet. Empty means today.
type SheetQuery struct {
	Date string `form:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SaveMovementsRequest carries the absolute issued (or returned) quantity
// entered per product for one date. Products missing from Items are left
// untouched; an explicit 0 clears a previous entry.
type SaveMovementsRequest struct {
	Date  string       `json:"date"  validate:"omitempty,datetime=2006-01-02"`
	Items map[uint]int `json:"items" validate:"required,min=1,dive,min=0"`
}

type LossEntry struct {
	GasOutQty  int `json:"gas_out_qty"  validate:"min=0"`
	ExpiredQty int `json:"expired_qty"  validate:"min=0"`
}

// SaveLossesRequest carries gas-out and expired quantities per product.
type SaveLossesRequest struct {
	Date  string             `json:"date"  validate:"omitempty,datetime=2006-01-02"`
	Items map[uint]LossEntry `json:"items" validate:"required,min=1,dive"`
}

// SaveRestockRequest carries incoming quantities per product. Entries of zero
// or less are skipped, but at least one must be positive.
type SaveRestockRequest struct {
	Date  string       `json:"date"  validate:"omitempty,datetime=2006-01-02"`
	Items map[uint]int `json:"items" validate:"required,min=1"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

// SheetRow is one product merged with its movement row for the sheet date.
type SheetRow struct {
	PID          uint    `json:"p_id"`
	Title        string  `json:"title"`
	Gram         *string `json:"gram"`
	ItemQuantity int     `json:"item_quantity"`
	IssuedQty    int     `json:"issued_qty"`
	ReturnedQty  int     `json:"returned_qty"`
	DID          *uint   `json:"d_id"`
}

type SheetResponse struct {
	Date string     `json:"date"`
	Kind string     `json:"kind"`
	Rows []SheetRow `json:"rows"`
}

// LossRow starts from zero entries every time; losses keep no ledger row.
type LossRow struct {
	PID        uint    `json:"p_id"`
	Title      string  `json:"title"`
	Gram       *string `json:"gram"`
	Available  int     `json:"available"`
	GasOutQty  int     `json:"gas_out_qty"`
	ExpiredQty int     `json:"expired_qty"`
}

type LossSheetResponse struct {
	Date string    `json:"date"`
	Rows []LossRow `json:"rows"`
}

type RestockResponse struct {
	RestockID   uint   `json:"restock_id"`
	PID         uint   `json:"p_id"`
	Title       string `json:"title"`
	RestockQty  int    `json:"restock_qty"`
	RestockDate string `json:"restock_date"`
}

// SaveResult is the aggregate outcome of one Save action.
type SaveResult struct {
	Message string `json:"message"`
	Date    string `json:"date"`
	Changed int    `json:"changed"`
	Skipped int    `json:"skipped"`
}

type SaveMovementsResponse struct {
	SaveResult
	Sheet *SheetResponse `json:"sheet"`
}

type SaveLossesResponse struct {
	SaveResult
	Sheet *LossSheetResponse `json:"sheet"`
}

type SaveRestockResponse struct {
	SaveResult
	Restocks []RestockResponse `json:"restocks"`
}

package handler

import (
	"net/http"

	"warehouse/internal/dto"
	"warehouse/internal/ledger"
	"warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

// StockHandler serves the daily sheets. Issues and returns share one code
// path parameterised by ledger.Kind.
type StockHandler struct{ svc service.StockService }

func NewStockHandler(svc service.StockService) *StockHandler { return &StockHandler{svc: svc} }

// Sheet returns the issue or return sheet for ?date= (default today).
func (h *StockHandler) Sheet(kind ledger.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q dto.SheetQuery
		if !bindQuery(c, &q) {
			return
		}
		resp, err := h.svc.Sheet(c.Request.Context(), kind, q.Date)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// SaveMovements godoc
// @Summary Save the issue or return sheet for a date
// @Tags stock
// @Accept json
// @Produce json
// @Param body body dto.SaveMovementsRequest true "Absolute quantities per p_id"
// @Success 200 {object} dto.SaveMovementsResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/stock/issues [post]
// @Router /v1/stock/returns [post]
func (h *StockHandler) SaveMovements(kind ledger.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SaveMovementsRequest
		if !bindAndValidate(c, &req) {
			return
		}
		resp, err := h.svc.SaveMovements(c.Request.Context(), kind, req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *StockHandler) LossSheet(c *gin.Context) {
	var q dto.SheetQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.LossSheet(c.Request.Context(), q.Date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveLosses godoc
// @Summary Deduct gas-out and expired quantities
// @Tags stock
// @Accept json
// @Produce json
// @Param body body dto.SaveLossesRequest true "Losses per p_id"
// @Success 200 {object} dto.SaveLossesResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/stock/losses [post]
func (h *StockHandler) SaveLosses(c *gin.Context) {
	var req dto.SaveLossesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SaveLosses(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StockHandler) ListRestocks(c *gin.Context) {
	resp, err := h.svc.ListRestocks(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SaveRestock godoc
// @Summary Record incoming stock
// @Tags stock
// @Accept json
// @Produce json
// @Param body body dto.SaveRestockRequest true "Restock quantities per p_id"
// @Success 200 {object} dto.SaveRestockResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/restocks [post]
func (h *StockHandler) SaveRestock(c *gin.Context) {
	var req dto.SaveRestockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SaveRestock(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

package handler

import (
	"fmt"
	"net/http"

	"warehouse/internal/dto"
	"warehouse/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// List godoc
// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} dto.ProductResponse
// @Router /v1/products [get]
func (h *ProductsHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ProductsHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Param body body dto.CreateProductRequest true "Product"
// @Success 201 {object} dto.ProductResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/products [post]
func (h *ProductsHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update changes descriptive fields; item_quantity is ignored.
func (h *ProductsHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Dashboard godoc
// @Summary Warehouse dashboard with stock value and bundles
// @Tags dashboard
// @Produce json
// @Success 200 {object} dto.DashboardResponse
// @Router /v1/dashboard [get]
func (h *ProductsHandler) Dashboard(c *gin.Context) {
	resp, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ExportDashboard godoc
// @Summary Download the dashboard as xlsx or pdf
// @Tags dashboard
// @Produce application/pdf
// @Param format query string false "xlsx or pdf" default(xlsx)
// @Success 200 {file} file
// @Router /v1/dashboard/export [get]
func (h *ProductsHandler) ExportDashboard(c *gin.Context) {
	var q dto.ExportQuery
	if !bindQuery(c, &q) {
		return
	}
	file, err := h.svc.ExportDashboard(c.Request.Context(), q.Format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

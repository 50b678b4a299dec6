package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warehouse/internal/dto"
	"warehouse/internal/infra"
	"warehouse/internal/model"
	"warehouse/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error)
	GetByID(ctx context.Context, id uint) (*dto.ProductResponse, error)
	List(ctx context.Context) ([]dto.ProductResponse, error)
	Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error)
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	ExportDashboard(ctx context.Context, format string) (*ExportFile, error)
}

// ExportFile is a rendered dashboard export ready to stream.
type ExportFile struct {
	Name        string
	ContentType string
	Data        []byte
}

const (
	ExportXLSX = "xlsx"
	ExportPDF  = "pdf"
)

type productService struct {
	repo  repository.ProductRepository
	cache *DashboardCache
	now   func() time.Time
}

func NewProductService(repo repository.ProductRepository, cache *DashboardCache) ProductService {
	return &productService{repo: repo, cache: cache, now: time.Now}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if req.ItemQuantity < 0 || req.ItemBundle < 0 || req.ProductRate.IsNegative() {
		return nil, fmt.Errorf("%w: quantities and rate must not be negative", ErrValidation)
	}
	p := &model.Product{
		Title:        req.Title,
		Gram:         req.Gram,
		ItemQuantity: req.ItemQuantity,
		ProductRate:  req.ProductRate,
		ItemBundle:   req.ItemBundle,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.cache.Invalidate(ctx)
	return productToResponse(p), nil
}

func (s *productService) GetByID(ctx context.Context, id uint) (*dto.ProductResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return productToResponse(p), nil
}

func (s *productService) List(ctx context.Context) ([]dto.ProductResponse, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, *productToResponse(&products[i]))
	}
	return out, nil
}

func (s *productService) Update(ctx context.Context, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Gram != nil {
		p.Gram = req.Gram
	}
	if req.ProductRate != nil {
		if req.ProductRate.IsNegative() {
			return nil, fmt.Errorf("%w: product_rate must not be negative", ErrValidation)
		}
		p.ProductRate = *req.ProductRate
	}
	if req.ItemBundle != nil {
		p.ItemBundle = *req.ItemBundle
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}
	s.cache.Invalidate(ctx)
	return productToResponse(p), nil
}

// Dashboard serves from Redis when a fresh copy exists.
func (s *productService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	if cached, ok := s.cache.get(ctx); ok {
		return cached, nil
	}
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	resp := &dto.DashboardResponse{
		Summary:  dto.DashboardSummary{TotalValue: decimal.Zero, ProductCount: len(products)},
		Products: make([]dto.DashboardRow, 0, len(products)),
	}
	for i := range products {
		p := &products[i]
		value := p.Value()
		resp.Products = append(resp.Products, dto.DashboardRow{
			ProductResponse: *productToResponse(p),
			Bundles:         p.Bundles(),
			Value:           value,
		})
		resp.Summary.TotalValue = resp.Summary.TotalValue.Add(value)
		resp.Summary.TotalItems += p.ItemQuantity
	}
	s.cache.set(ctx, resp)
	return resp, nil
}

func (s *productService) ExportDashboard(ctx context.Context, format string) (*ExportFile, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	name := "dashboard-" + now.Format("20060102")

	switch format {
	case "", ExportXLSX:
		data, err := infra.DashboardXLSX(d, now)
		if err != nil {
			return nil, err
		}
		return &ExportFile{
			Name:        name + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	case ExportPDF:
		data, err := infra.DashboardPDF(d, now)
		if err != nil {
			return nil, err
		}
		return &ExportFile{Name: name + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", ErrValidation, format)
	}
}

func (s *productService) find(ctx context.Context, id uint) (*model.Product, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product with ID %d not found", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return p, nil
}

func productToResponse(p *model.Product) *dto.ProductResponse {
	return &dto.ProductResponse{
		PID:          p.PID,
		Title:        p.Title,
		Gram:         p.Gram,
		ItemQuantity: p.ItemQuantity,
		ProductRate:  p.ProductRate,
		ItemBundle:   p.ItemBundle,
	}
}

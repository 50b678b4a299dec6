package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"warehouse/internal/dto"
	"warehouse/internal/ledger"
	"warehouse/internal/model"
	"warehouse/internal/repository"
	"warehouse/internal/worker"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockService runs the daily sheets: issues, returns, gas-out/expired
// losses and restocks. Every Save action is all-or-nothing.
type StockService interface {
	Sheet(ctx context.Context, kind ledger.Kind, date string) (*dto.SheetResponse, error)
	SaveMovements(ctx context.Context, kind ledger.Kind, req dto.SaveMovementsRequest) (*dto.SaveMovementsResponse, error)
	LossSheet(ctx context.Context, date string) (*dto.LossSheetResponse, error)
	SaveLosses(ctx context.Context, req dto.SaveLossesRequest) (*dto.SaveLossesResponse, error)
	ListRestocks(ctx context.Context) ([]dto.RestockResponse, error)
	SaveRestock(ctx context.Context, req dto.SaveRestockRequest) (*dto.SaveRestockResponse, error)
}

// AlertDispatcher queues low-stock notifications. Implemented by
// *worker.Dispatcher.
type AlertDispatcher interface {
	EnqueueLowStock(ctx context.Context, alert worker.LowStockAlert) error
}

type StockOptions struct {
	AllowNegative     bool
	LowStockThreshold int
	// Location decides which calendar day "today" is. Defaults to UTC.
	Location *time.Location
	// Now is overridable in tests.
	Now func() time.Time
}

type stockService struct {
	products   repository.ProductRepository
	movements  repository.MovementRepository
	restocks   repository.RestockRepository
	cache      *DashboardCache
	locker     SheetLocker
	alerts     AlertDispatcher
	reconciler ledger.Reconciler
	opts       StockOptions
}

func NewStockService(
	products repository.ProductRepository,
	movements repository.MovementRepository,
	restocks repository.RestockRepository,
	cache *DashboardCache,
	locker SheetLocker,
	alerts AlertDispatcher,
	opts StockOptions,
) StockService {
	if locker == nil {
		locker = noopLocker{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &stockService{
		products:   products,
		movements:  movements,
		restocks:   restocks,
		cache:      cache,
		locker:     locker,
		alerts:     alerts,
		reconciler: ledger.Reconciler{AllowNegative: opts.AllowNegative},
		opts:       opts,
	}
}

// plannedWrite pairs a plan with the product it was computed from.
type plannedWrite struct {
	plan    ledger.Plan
	product model.Product
}

// ── Sheets ───────────────────────────────────────────────────────────────────

func (s *stockService) Sheet(ctx context.Context, kind ledger.Kind, date string) (*dto.SheetResponse, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown movement kind %q", ErrValidation, kind)
	}
	d, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	return s.sheet(ctx, kind, d)
}

func (s *stockService) sheet(ctx context.Context, kind ledger.Kind, d model.Date) (*dto.SheetResponse, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	movements, err := s.movements.FindByDate(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movements: %w", err)
	}
	byProduct := make(map[uint]model.Movement, len(movements))
	for _, m := range movements {
		byProduct[m.PID] = m
	}

	resp := &dto.SheetResponse{Date: d.String(), Kind: string(kind), Rows: make([]dto.SheetRow, 0, len(products))}
	for _, p := range products {
		row := dto.SheetRow{PID: p.PID, Title: p.Title, Gram: p.Gram, ItemQuantity: p.ItemQuantity}
		if m, ok := byProduct[p.PID]; ok {
			did := m.DID
			row.DID = &did
			row.IssuedQty = m.IssuedQty
			row.ReturnedQty = m.ReturnedQty
		}
		resp.Rows = append(resp.Rows, row)
	}
	return resp, nil
}

func (s *stockService) LossSheet(ctx context.Context, date string) (*dto.LossSheetResponse, error) {
	d, err := s.resolveDate(date)
	if err != nil {
		return nil, err
	}
	return s.lossSheet(ctx, d)
}

func (s *stockService) lossSheet(ctx context.Context, d model.Date) (*dto.LossSheetResponse, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	resp := &dto.LossSheetResponse{Date: d.String(), Rows: make([]dto.LossRow, 0, len(products))}
	for _, p := range products {
		resp.Rows = append(resp.Rows, dto.LossRow{PID: p.PID, Title: p.Title, Gram: p.Gram, Available: p.ItemQuantity})
	}
	return resp, nil
}

func (s *stockService) ListRestocks(ctx context.Context) ([]dto.RestockResponse, error) {
	rows, err := s.restocks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch restocks: %w", err)
	}
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	titles := make(map[uint]string, len(products))
	for _, p := range products {
		titles[p.PID] = p.Title
	}

	out := make([]dto.RestockResponse, 0, len(rows))
	for _, r := range rows {
		title, ok := titles[r.PID]
		if !ok {
			title = "N/A"
		}
		out = append(out, dto.RestockResponse{
			RestockID:   r.RestockID,
			PID:         r.PID,
			Title:       title,
			RestockQty:  r.RestockQty,
			RestockDate: r.RestockDate.String(),
		})
	}
	return out, nil
}

// ── Save actions ─────────────────────────────────────────────────────────────

func (s *stockService) SaveMovements(ctx context.Context, kind ledger.Kind, req dto.SaveMovementsRequest) (*dto.SaveMovementsResponse, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown movement kind %q", ErrValidation, kind)
	}
	d, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no quantities entered", ErrValidation)
	}

	writes, err := s.save(ctx, string(kind), d, slices.Sorted(maps.Keys(req.Items)),
		func(tx *gorm.DB, p model.Product) (ledger.Plan, error) {
			existing, err := s.movements.FindByProductDateTx(tx, p.PID, d)
			if err != nil {
				return ledger.Plan{}, fmt.Errorf("failed to fetch movements: %w", err)
			}
			return s.reconciler.IssueOrReturn(p, existing, d, kind, req.Items[p.PID])
		})
	if err != nil {
		return nil, err
	}

	sheet, err := s.sheet(ctx, kind, d)
	if err != nil {
		return nil, err
	}
	label := "issue"
	if kind == ledger.Return {
		label = "return"
	}
	return &dto.SaveMovementsResponse{
		SaveResult: s.result(fmt.Sprintf("Daily %s saved successfully!", label), d, len(req.Items), writes),
		Sheet:      sheet,
	}, nil
}

func (s *stockService) SaveLosses(ctx context.Context, req dto.SaveLossesRequest) (*dto.SaveLossesResponse, error) {
	d, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: no quantities entered", ErrValidation)
	}

	writes, err := s.save(ctx, "loss", d, slices.Sorted(maps.Keys(req.Items)),
		func(_ *gorm.DB, p model.Product) (ledger.Plan, error) {
			e := req.Items[p.PID]
			return s.reconciler.Loss(p, e.GasOutQty, e.ExpiredQty)
		})
	if err != nil {
		return nil, err
	}

	sheet, err := s.lossSheet(ctx, d)
	if err != nil {
		return nil, err
	}
	return &dto.SaveLossesResponse{
		SaveResult: s.result("Gas-out and expired quantities saved successfully!", d, len(req.Items), writes),
		Sheet:      sheet,
	}, nil
}

func (s *stockService) SaveRestock(ctx context.Context, req dto.SaveRestockRequest) (*dto.SaveRestockResponse, error) {
	d, err := s.resolveDate(req.Date)
	if err != nil {
		return nil, err
	}
	if !ledger.AnyPositive(req.Items) {
		return nil, fmt.Errorf("%w: enter restock quantity for at least one product", ErrValidation)
	}

	var ids []uint
	for _, pid := range slices.Sorted(maps.Keys(req.Items)) {
		if req.Items[pid] > 0 {
			ids = append(ids, pid)
		}
	}

	writes, err := s.save(ctx, "restock", d, ids,
		func(_ *gorm.DB, p model.Product) (ledger.Plan, error) {
			return s.reconciler.Restock(p, req.Items[p.PID], d), nil
		})
	if err != nil {
		return nil, err
	}

	restocks, err := s.ListRestocks(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SaveRestockResponse{
		SaveResult: s.result("Restock saved successfully!", d, len(req.Items), writes),
		Restocks:   restocks,
	}, nil
}

// save is the shared Save action: lock the sheet, then inside one transaction
// lock each product row in ascending p_id order, plan every entry and apply
// the plans. Any error rolls back the whole batch. All plans are computed
// before the first write, so a rejected entry leaves nothing behind even
// without a transaction.
func (s *stockService) save(
	ctx context.Context,
	operation string,
	d model.Date,
	ids []uint,
	planFor func(tx *gorm.DB, p model.Product) (ledger.Plan, error),
) ([]plannedWrite, error) {
	release, err := s.locker.Lock(ctx, sheetLockKey(operation, d.String()))
	if err != nil {
		return nil, err
	}
	defer release()

	var writes []plannedWrite
	txErr := runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		writes = writes[:0]
		for _, pid := range ids {
			p, err := s.lockProduct(tx, pid)
			if err != nil {
				return err
			}
			plan, err := planFor(tx, *p)
			if err != nil {
				return err
			}
			if !plan.NoOp() {
				writes = append(writes, plannedWrite{plan: plan, product: *p})
			}
		}
		for _, w := range writes {
			if err := s.apply(tx, w.plan); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		log.Warn().Err(txErr).Str("operation", operation).Str("date", d.String()).Msg("stock save rolled back")
		return nil, txErr
	}

	s.afterCommit(ctx, operation, d, writes)
	return writes, nil
}

func (s *stockService) lockProduct(tx *gorm.DB, pid uint) (*model.Product, error) {
	p, err := s.products.FindByIDForUpdate(tx, pid)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: product with ID %d not found", ErrNotFound, pid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return p, nil
}

// apply performs at most one movement write, one restock insert and one
// product write.
func (s *stockService) apply(tx *gorm.DB, plan ledger.Plan) error {
	switch plan.Movement {
	case ledger.MovementUpdate:
		fields := map[string]interface{}{plan.Column: plan.Quantity()}
		if err := s.movements.UpdateByIDTx(tx, plan.MovementRow.DID, fields); err != nil {
			return fmt.Errorf("failed to update movement for product %d: %w", plan.PID, err)
		}
	case ledger.MovementInsert:
		row := plan.MovementRow
		if err := s.movements.UpsertTx(tx, &row, plan.Column); err != nil {
			return fmt.Errorf("failed to insert movement for product %d: %w", plan.PID, err)
		}
	}
	if plan.Restock != nil {
		r := *plan.Restock
		if err := s.restocks.CreateTx(tx, &r); err != nil {
			return fmt.Errorf("failed to insert restock for product %d: %w", plan.PID, err)
		}
	}
	if plan.WriteProduct {
		if err := s.products.SetQuantityTx(tx, plan.PID, plan.NewQuantity); err != nil {
			return fmt.Errorf("failed to update product %d: %w", plan.PID, err)
		}
	}
	return nil
}

// afterCommit runs the side effects of a committed save. None of them can
// fail the request.
func (s *stockService) afterCommit(ctx context.Context, operation string, d model.Date, writes []plannedWrite) {
	if len(writes) > 0 {
		s.cache.Invalidate(ctx)
	}
	log.Info().
		Str("operation", operation).
		Str("date", d.String()).
		Int("changed", len(writes)).
		Msg("stock saved")

	if s.alerts == nil {
		return
	}
	var low []worker.LowStockItem
	for _, w := range writes {
		if w.plan.WriteProduct && w.plan.NewQuantity <= s.opts.LowStockThreshold {
			low = append(low, worker.LowStockItem{PID: w.plan.PID, Title: w.product.Title, ItemQuantity: w.plan.NewQuantity})
		}
	}
	if len(low) == 0 {
		return
	}
	if err := s.alerts.EnqueueLowStock(ctx, worker.LowStockAlert{
		Operation: operation,
		Date:      d.String(),
		Threshold: s.opts.LowStockThreshold,
		Items:     low,
	}); err != nil {
		log.Warn().Err(err).Str("operation", operation).Msg("failed to enqueue low-stock alert")
	}
}

func (s *stockService) result(msg string, d model.Date, entered int, writes []plannedWrite) dto.SaveResult {
	return dto.SaveResult{Message: msg, Date: d.String(), Changed: len(writes), Skipped: entered - len(writes)}
}

// resolveDate parses a YYYY-MM-DD date; empty means today in the configured
// location.
func (s *stockService) resolveDate(raw string) (model.Date, error) {
	if raw == "" {
		return model.NewDate(s.opts.Now().In(s.opts.Location)), nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return d, nil
}

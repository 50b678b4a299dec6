package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"

	"warehouse/internal/model"
	"warehouse/internal/repository"
	"warehouse/internal/worker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── In-memory Repository Stubs ────────────────────────────────────────────────
// Services run with DB() == nil, so runTx calls the closure directly.

type stubProductRepo struct {
	products map[uint]*model.Product
	nextID   uint
	writes   int
	// failSet makes SetQuantityTx fail for the given p_id.
	failSet map[uint]bool
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

func newStubProducts(ps ...model.Product) *stubProductRepo {
	r := &stubProductRepo{products: make(map[uint]*model.Product), nextID: 1, failSet: map[uint]bool{}}
	for i := range ps {
		p := ps[i]
		r.products[p.PID] = &p
		if p.PID >= r.nextID {
			r.nextID = p.PID + 1
		}
	}
	return r
}

func (r *stubProductRepo) qty(id uint) int { return r.products[id].ItemQuantity }

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	p.PID = r.nextID
	r.nextID++
	cp := *p
	r.products[p.PID] = &cp
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uint) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductRepo) List(_ context.Context) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	stored, ok := r.products[p.PID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Title, stored.Gram, stored.ProductRate, stored.ItemBundle = p.Title, p.Gram, p.ProductRate, p.ItemBundle
	return nil
}

func (r *stubProductRepo) FindByIDForUpdate(_ *gorm.DB, id uint) (*model.Product, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubProductRepo) SetQuantityTx(_ *gorm.DB, id uint, qty int) error {
	if r.failSet[id] {
		return errors.New("disk full")
	}
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.ItemQuantity = qty
	r.writes++
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

type movementKey struct {
	pid  uint
	date string
}

type stubMovementRepo struct {
	rows   map[movementKey]*model.Movement
	nextID uint
	writes int
}

var _ repository.MovementRepository = (*stubMovementRepo)(nil)

func newStubMovements() *stubMovementRepo {
	return &stubMovementRepo{rows: make(map[movementKey]*model.Movement), nextID: 1}
}

func (r *stubMovementRepo) get(pid uint, date string) *model.Movement {
	return r.rows[movementKey{pid, date}]
}

func (r *stubMovementRepo) FindByDate(_ context.Context, date model.Date) ([]model.Movement, error) {
	var out []model.Movement
	for k, m := range r.rows {
		if k.date == date.String() {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func (r *stubMovementRepo) FindByProductDateTx(_ *gorm.DB, pid uint, date model.Date) (*model.Movement, error) {
	m := r.get(pid, date.String())
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *stubMovementRepo) UpsertTx(_ *gorm.DB, m *model.Movement, column string) error {
	r.writes++
	key := movementKey{m.PID, m.MovementDate.String()}
	if existing, ok := r.rows[key]; ok {
		if column == "returned_qty" {
			existing.ReturnedQty = m.ReturnedQty
		} else {
			existing.IssuedQty = m.IssuedQty
		}
		m.DID = existing.DID
		return nil
	}
	m.DID = r.nextID
	r.nextID++
	cp := *m
	r.rows[key] = &cp
	return nil
}

func (r *stubMovementRepo) UpdateByIDTx(_ *gorm.DB, did uint, fields map[string]interface{}) error {
	for _, m := range r.rows {
		if m.DID != did {
			continue
		}
		r.writes++
		if v, ok := fields["issued_qty"]; ok {
			m.IssuedQty = v.(int)
		}
		if v, ok := fields["returned_qty"]; ok {
			m.ReturnedQty = v.(int)
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

type stubRestockRepo struct {
	rows   []model.Restock
	nextID uint
}

var _ repository.RestockRepository = (*stubRestockRepo)(nil)

func (r *stubRestockRepo) CreateTx(_ *gorm.DB, rs *model.Restock) error {
	r.nextID++
	rs.RestockID = r.nextID
	r.rows = append(r.rows, *rs)
	return nil
}

func (r *stubRestockRepo) List(_ context.Context) ([]model.Restock, error) {
	out := append([]model.Restock(nil), r.rows...)
	sort.Slice(out, func(i, j int) bool {
		if c := strings.Compare(out[i].RestockDate.String(), out[j].RestockDate.String()); c != 0 {
			return c > 0
		}
		return out[i].RestockID > out[j].RestockID
	})
	return out, nil
}

type stubUserRepo struct {
	users map[string]*model.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newStubUsers() *stubUserRepo { return &stubUserRepo{users: make(map[string]*model.User)} }

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	r.users[u.Username] = u
	return nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Collaborators ─────────────────────────────────────────────────────────────

type recordingAlerts struct {
	alerts []worker.LowStockAlert
}

func (a *recordingAlerts) EnqueueLowStock(_ context.Context, alert worker.LowStockAlert) error {
	a.alerts = append(a.alerts, alert)
	return nil
}

type busyLocker struct{ keys []string }

func (l *busyLocker) Lock(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	return nil, errBusy
}

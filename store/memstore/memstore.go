// Package memstore is an in-memory store.Store. It copies documents on every
// read and write so callers observe the same isolation a database gives them.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hindustanbills/models"
	"hindustanbills/store"
)

type Store struct {
	mu sync.RWMutex

	users       map[string]models.User
	shops       map[string]models.Shop
	products    map[string]models.Product
	scans       map[string]models.ScannedProduct
	carts       map[string]models.Cart // keyed by user
	orders      map[string]models.Order
	receipts    map[string]models.Receipt
	idempotency map[string]models.IdempotencyRecord
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:       map[string]models.User{},
		shops:       map[string]models.Shop{},
		products:    map[string]models.Product{},
		scans:       map[string]models.ScannedProduct{},
		carts:       map[string]models.Cart{},
		orders:      map[string]models.Order{},
		receipts:    map[string]models.Receipt{},
		idempotency: map[string]models.IdempotencyRecord{},
	}
}

func cloneCart(c models.Cart) models.Cart {
	c.Items = append([]models.CartItem{}, c.Items...)
	return c
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append([]models.OrderItem{}, o.Items...)
	if o.PaymentInfo != nil {
		pi := *o.PaymentInfo
		o.PaymentInfo = &pi
	}
	return o
}

func cloneReceipt(r models.Receipt) models.Receipt {
	r.Items = append([]models.ReceiptItem{}, r.Items...)
	return r
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return store.ErrDuplicate
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicate
		}
	}
	s.users[u.ID] = *u
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UserByGoogleID(_ context.Context, googleID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.GoogleID != "" && u.GoogleID == googleID {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	s.users[u.ID] = *u
	return nil
}

// --- shops ---

func (s *Store) CreateShop(_ context.Context, sh *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.shops {
		if existing.Owner == sh.Owner || existing.ID == sh.ID {
			return store.ErrDuplicate
		}
	}
	s.shops[sh.ID] = *sh
	return nil
}

func (s *Store) ShopByID(_ context.Context, id string) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shops[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sh, nil
}

func (s *Store) ShopByOwner(_ context.Context, owner string) (*models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sh := range s.shops {
		if sh.Owner == owner {
			return &sh, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateShop(_ context.Context, sh *models.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[sh.ID]; !ok {
		return store.ErrNotFound
	}
	s.shops[sh.ID] = *sh
	return nil
}

func (s *Store) ActiveShops(_ context.Context) ([]models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Shop{}
	for _, sh := range s.shops {
		if sh.IsActive {
			out = append(out, sh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return store.ErrDuplicate
	}
	if p.Metadata.Barcode != "" {
		for _, existing := range s.products {
			if existing.Shop == p.Shop && existing.Metadata.Barcode == p.Metadata.Barcode {
				return store.ErrDuplicate
			}
		}
	}
	s.products[p.ID] = *p
	return nil
}

func (s *Store) ProductByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) ProductsByIDs(_ context.Context, ids []string) (map[string]*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (s *Store) ProductByCode(_ context.Context, shopID string, codes []string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.Shop != shopID || !p.IsActive {
			continue
		}
		for _, c := range codes {
			if c != "" && (p.Metadata.Barcode == c || p.Metadata.SKU == c) {
				return &p, nil
			}
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateProduct(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	if p.Metadata.Barcode != "" {
		for id, existing := range s.products {
			if id != p.ID && existing.Shop == p.Shop && existing.Metadata.Barcode == p.Metadata.Barcode {
				return store.ErrDuplicate
			}
		}
	}
	s.products[p.ID] = *p
	return nil
}

func (s *Store) ListProducts(_ context.Context, f store.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Search))
	out := []models.Product{}
	for _, p := range s.products {
		if f.Shop != "" && p.Shop != f.Shop {
			continue
		}
		if f.ActiveOnly && !p.IsActive {
			continue
		}
		if q != "" && !matchesProduct(p, q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	if f.Skip > 0 {
		if f.Skip >= len(out) {
			return []models.Product{}, nil
		}
		out = out[f.Skip:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matchesProduct(p models.Product, q string) bool {
	for _, field := range []string{p.Name, p.Category, p.Metadata.Barcode, p.Metadata.SKU} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *Store) DecrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.Stock < qty {
		return store.ErrConflict
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

func (s *Store) IncrementStock(_ context.Context, id string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Stock += qty
	p.UpdatedAt = time.Now()
	s.products[id] = p
	return nil
}

// --- scanned products ---

func (s *Store) ScanByKey(_ context.Context, k store.ScanKey) (*models.ScannedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sc := range s.scans {
		if sc.SessionCode == k.SessionCode && sc.User == k.User && sc.Product == k.Product {
			return &sc, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ScanByID(_ context.Context, id string) (*models.ScannedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.scans[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sc, nil
}

func (s *Store) InsertScan(_ context.Context, sc *models.ScannedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.scans {
		if existing.ID == sc.ID ||
			(existing.SessionCode == sc.SessionCode && existing.User == sc.User && existing.Product == sc.Product) {
			return store.ErrDuplicate
		}
	}
	s.scans[sc.ID] = *sc
	return nil
}

func (s *Store) UpdateScan(_ context.Context, sc *models.ScannedProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scans[sc.ID]; !ok {
		return store.ErrNotFound
	}
	s.scans[sc.ID] = *sc
	return nil
}

func (s *Store) ScansBySession(_ context.Context, sessionCode, user string, state models.ScanState) ([]models.ScannedProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.ScannedProduct{}
	for _, sc := range s.scans {
		if sc.SessionCode == sessionCode && sc.User == user && sc.State == state {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScannedAt.Before(out[j].ScannedAt) })
	return out, nil
}

func (s *Store) SetScanState(_ context.Context, ids []string, from, to models.ScanState) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		sc, ok := s.scans[id]
		if !ok || sc.State != from {
			continue
		}
		sc.State = to
		s.scans[id] = sc
		n++
	}
	return n, nil
}

// --- carts ---

func (s *Store) CartByUser(_ context.Context, user string) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[user]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneCart(c)
	return &c, nil
}

func (s *Store) SaveCart(_ context.Context, c *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now()
	s.carts[c.User] = cloneCart(*c)
	return nil
}

// --- orders ---

func (s *Store) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return store.ErrDuplicate
	}
	s.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (s *Store) OrderByID(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *Store) ListOrders(_ context.Context, f store.OrderFilter) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if f.User != "" && o.User != f.User {
			continue
		}
		if f.Shop != "" && o.Shop != f.Shop {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) TransitionOrder(_ context.Context, id string, from models.OrderStatus, u store.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return store.ErrConflict
	}
	o.Status = u.Status
	if u.PaymentInfo != nil {
		pi := *u.PaymentInfo
		o.PaymentInfo = &pi
	}
	if u.VerifiedBy != "" {
		o.VerifiedBy = u.VerifiedBy
	}
	o.UpdatedAt = time.Now()
	s.orders[id] = o
	return nil
}

// --- receipts ---

func (s *Store) CreateReceipt(_ context.Context, r *models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[r.ID]; ok {
		return store.ErrDuplicate
	}
	s.receipts[r.ID] = cloneReceipt(*r)
	return nil
}

func (s *Store) ReceiptByID(_ context.Context, id string) (*models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r = cloneReceipt(r)
	return &r, nil
}

// --- idempotency ---

func (s *Store) InsertIdempotency(_ context.Context, rec *models.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.idempotency[rec.Key]; ok && time.Now().Before(existing.ExpiresAt) {
		return store.ErrDuplicate
	}
	s.idempotency[rec.Key] = *rec
	return nil
}

func (s *Store) IdempotencyByKey(_ context.Context, key string) (*models.IdempotencyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.idempotency[key]
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (s *Store) SaveIdempotencyResponse(_ context.Context, key string, response map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return store.ErrNotFound
	}
	rec.Response = response
	s.idempotency[key] = rec
	return nil
}

func (s *Store) DeleteIdempotency(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.idempotency, key)
	return nil
}

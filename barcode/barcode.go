// Package barcode stages scanned products per session until they are moved
// into a cart.
package barcode

import (
	"context"
	"strings"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/locks"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/pkg/errors"
)

const (
	lockTTL        = 5 * time.Second
	sessionCodeLen = 8
)

type Service struct {
	products store.Products
	scans    store.Scans
	locker   locks.Locker
}

func NewService(products store.Products, scans store.Scans, locker locks.Locker) *Service {
	return &Service{products: products, scans: scans, locker: locker}
}

type ScanInput struct {
	Barcode     string `json:"barcode" validate:"required"`
	SessionCode string `json:"sessionCode" validate:"required,max=64"`
	ShopID      string `json:"shopId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"omitempty,gte=1"`
}

type AddByIDInput struct {
	ProductID   string `json:"productId" validate:"required"`
	SessionCode string `json:"sessionCode" validate:"required,max=64"`
	ShopID      string `json:"shopId" validate:"required"`
	Quantity    int    `json:"quantity" validate:"omitempty,gte=1"`
}

type ScanResult struct {
	Product        *models.Product        `json:"product"`
	Quantity       int                    `json:"quantity"`
	ScannedProduct *models.ScannedProduct `json:"scannedProduct"`
}

// SessionLine is an active staging row with its product filled in.
type SessionLine struct {
	models.ScannedProduct
	ProductInfo *models.Product `json:"productInfo"`
	Total       float64         `json:"total"`
}

type SessionView struct {
	SessionCode string        `json:"sessionCode"`
	Items       []SessionLine `json:"items"`
	Count       int           `json:"count"`
	Total       float64       `json:"total"`
}

// CodeVariants returns the lookup keys for a scanned code: the trimmed code
// and, for numeric codes, the same digits without leading zeros.
func CodeVariants(code string) []string {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	out := []string{code}
	if isDigits(code) {
		if stripped := strings.TrimLeft(code, "0"); stripped != "" && stripped != code {
			out = append(out, stripped)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// Lookup resolves a scanned code to an active product of shopID.
func (s *Service) Lookup(ctx context.Context, shopID, code string) (*models.Product, error) {
	codes := CodeVariants(code)
	if len(codes) == 0 || shopID == "" {
		return nil, apperr.BadRequest("barcode and shopId are required")
	}
	p, err := s.products.ProductByCode(ctx, shopID, codes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, apperr.Internal(err, "Failed to look up product")
	}
	return p, nil
}

func (s *Service) byID(ctx context.Context, shopID, productID string) (*models.Product, error) {
	p, err := s.products.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, apperr.Internal(err, "Failed to look up product")
	}
	if p.Shop != shopID || !p.IsActive {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

func (s *Service) Scan(ctx context.Context, userID string, in ScanInput) (*ScanResult, error) {
	p, err := s.Lookup(ctx, in.ShopID, in.Barcode)
	if err != nil {
		return nil, err
	}
	return s.stage(ctx, userID, in.SessionCode, p, in.Quantity)
}

func (s *Service) AddByID(ctx context.Context, userID string, in AddByIDInput) (*ScanResult, error) {
	p, err := s.byID(ctx, in.ShopID, in.ProductID)
	if err != nil {
		return nil, err
	}
	return s.stage(ctx, userID, in.SessionCode, p, in.Quantity)
}

// stage records qty of p in the session. Active and removed rows
// accumulate; a converted row starts over from qty.
func (s *Service) stage(ctx context.Context, userID, sessionCode string, p *models.Product, qty int) (*ScanResult, error) {
	if p.Stock <= 0 {
		return nil, apperr.Conflict("Product is out of stock")
	}
	if qty <= 0 {
		qty = 1
	}
	key := store.ScanKey{SessionCode: strings.TrimSpace(sessionCode), User: userID, Product: p.ID}

	var row *models.ScannedProduct
	err := locks.Do(ctx, s.locker, "scan:"+key.SessionCode+":"+userID+":"+p.ID, lockTTL, func() error {
		var err error
		row, err = s.upsert(ctx, key, qty)
		if errors.Is(err, store.ErrDuplicate) {
			// another replica inserted first
			row, err = s.upsert(ctx, key, qty)
		}
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to record scan")
	}
	return &ScanResult{Product: p, Quantity: row.Quantity, ScannedProduct: row}, nil
}

func (s *Service) upsert(ctx context.Context, key store.ScanKey, qty int) (*models.ScannedProduct, error) {
	now := time.Now()
	row, err := s.scans.ScanByKey(ctx, key)
	switch {
	case err == nil:
		switch row.State {
		case models.ScanConverted:
			// those units are already in the cart
			row.Quantity = qty
		default:
			row.Quantity += qty
		}
		row.State = models.ScanActive
		row.ScannedAt = now
		return row, s.scans.UpdateScan(ctx, row)
	case errors.Is(err, store.ErrNotFound):
		row = &models.ScannedProduct{
			ID:          utils.GetUUID(),
			SessionCode: key.SessionCode,
			User:        key.User,
			Product:     key.Product,
			Quantity:    qty,
			ScannedAt:   now,
			State:       models.ScanActive,
		}
		return row, s.scans.InsertScan(ctx, row)
	default:
		return nil, err
	}
}

func (s *Service) SessionProducts(ctx context.Context, userID, sessionCode string) (*SessionView, error) {
	rows, err := s.scans.ScansBySession(ctx, sessionCode, userID, models.ScanActive)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load session")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Product)
	}
	products, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load products")
	}

	view := &SessionView{SessionCode: sessionCode, Items: make([]SessionLine, 0, len(rows))}
	for _, r := range rows {
		line := SessionLine{ScannedProduct: r, ProductInfo: products[r.Product]}
		if line.ProductInfo != nil {
			line.Total = utils.RoundMoney(line.ProductInfo.Price * float64(r.Quantity))
		}
		view.Items = append(view.Items, line)
		view.Count += r.Quantity
		view.Total += line.Total
	}
	view.Total = utils.RoundMoney(view.Total)
	return view, nil
}

// activeRow loads a staging row and checks it belongs to the caller's
// session and is still active.
func (s *Service) activeRow(ctx context.Context, userID, sessionCode, id string) (*models.ScannedProduct, error) {
	row, err := s.scans.ScanByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Scanned product not found")
		}
		return nil, apperr.Internal(err, "Failed to load scanned product")
	}
	if row.User != userID || row.SessionCode != sessionCode || !row.Active() {
		return nil, apperr.NotFound("Scanned product not found")
	}
	return row, nil
}

func (s *Service) UpdateScanned(ctx context.Context, userID, sessionCode, id string, quantity int) (*models.ScannedProduct, error) {
	if quantity <= 0 {
		return nil, apperr.BadRequest("quantity must be greater than 0")
	}

	var row *models.ScannedProduct
	err := s.withRow(ctx, userID, sessionCode, id, func(r *models.ScannedProduct) error {
		r.Quantity = quantity
		r.ScannedAt = time.Now()
		row = r
		return s.scans.UpdateScan(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (s *Service) RemoveScanned(ctx context.Context, userID, sessionCode, id string) error {
	return s.withRow(ctx, userID, sessionCode, id, func(r *models.ScannedProduct) error {
		n, err := s.scans.SetScanState(ctx, []string{r.ID}, models.ScanActive, models.ScanRemoved)
		if err != nil {
			return err
		}
		if n == 0 {
			return apperr.NotFound("Scanned product not found")
		}
		return nil
	})
}

func (s *Service) withRow(ctx context.Context, userID, sessionCode, id string, fn func(*models.ScannedProduct) error) error {
	row, err := s.activeRow(ctx, userID, sessionCode, id)
	if err != nil {
		return err
	}
	err = locks.Do(ctx, s.locker, "scan:"+sessionCode+":"+userID+":"+row.Product, lockTTL, func() error {
		// re-read under the lock
		current, err := s.activeRow(ctx, userID, sessionCode, id)
		if err != nil {
			return err
		}
		return fn(current)
	})
	return apperr.Wrap(err, "Failed to update scanned product")
}

// ClearSession removes every active row of the session and returns how many
// were removed.
func (s *Service) ClearSession(ctx context.Context, userID, sessionCode string) (int64, error) {
	rows, err := s.scans.ScansBySession(ctx, sessionCode, userID, models.ScanActive)
	if err != nil {
		return 0, apperr.Internal(err, "Failed to load session")
	}
	if len(rows) == 0 {
		return 0, nil
	}
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	n, err := s.scans.SetScanState(ctx, ids, models.ScanActive, models.ScanRemoved)
	if err != nil {
		return 0, apperr.Internal(err, "Failed to clear session")
	}
	return n, nil
}

func NewSessionCode() string {
	return utils.GenerateSessionCode(sessionCodeLen)
}

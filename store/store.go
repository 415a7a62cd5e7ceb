// Package store defines the persistence contracts used by the billing
// services. Mongo is the production implementation; memstore backs tests and
// the in-memory dev mode.
package store

import (
	"context"
	"errors"

	"hindustanbills/models"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict means a conditional write matched nothing because the
	// document changed underneath (stock too low, status moved on).
	ErrConflict = errors.New("store: conditional update did not match")
)

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
}

type Shops interface {
	CreateShop(ctx context.Context, s *models.Shop) error
	ShopByID(ctx context.Context, id string) (*models.Shop, error)
	ShopByOwner(ctx context.Context, owner string) (*models.Shop, error)
	UpdateShop(ctx context.Context, s *models.Shop) error
	ActiveShops(ctx context.Context) ([]models.Shop, error)
}

type ProductFilter struct {
	Shop       string
	Search     string
	ActiveOnly bool
	Skip       int
	Limit      int
}

type Products interface {
	CreateProduct(ctx context.Context, p *models.Product) error
	ProductByID(ctx context.Context, id string) (*models.Product, error)
	ProductsByIDs(ctx context.Context, ids []string) (map[string]*models.Product, error)
	// ProductByCode finds an active product of shopID whose barcode or sku
	// equals one of codes.
	ProductByCode(ctx context.Context, shopID string, codes []string) (*models.Product, error)
	UpdateProduct(ctx context.Context, p *models.Product) error
	ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error)
	// DecrementStock subtracts qty only when stock >= qty, else ErrConflict.
	DecrementStock(ctx context.Context, id string, qty int) error
	IncrementStock(ctx context.Context, id string, qty int) error
}

type ScanKey struct {
	SessionCode string
	User        string
	Product     string
}

type Scans interface {
	ScanByKey(ctx context.Context, k ScanKey) (*models.ScannedProduct, error)
	ScanByID(ctx context.Context, id string) (*models.ScannedProduct, error)
	InsertScan(ctx context.Context, s *models.ScannedProduct) error
	UpdateScan(ctx context.Context, s *models.ScannedProduct) error
	ScansBySession(ctx context.Context, sessionCode, user string, state models.ScanState) ([]models.ScannedProduct, error)
	// SetScanState moves the given rows from one state to another and
	// returns how many actually moved.
	SetScanState(ctx context.Context, ids []string, from, to models.ScanState) (int64, error)
}

type Carts interface {
	CartByUser(ctx context.Context, user string) (*models.Cart, error)
	SaveCart(ctx context.Context, c *models.Cart) error
}

type OrderFilter struct {
	User   string
	Shop   string
	Status models.OrderStatus
}

// OrderUpdate lists the fields a status transition may write.
type OrderUpdate struct {
	Status      models.OrderStatus
	PaymentInfo *models.PaymentInfo
	VerifiedBy  string
}

type Orders interface {
	CreateOrder(ctx context.Context, o *models.Order) error
	OrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error)
	// TransitionOrder applies u only if the order is still in status from.
	TransitionOrder(ctx context.Context, id string, from models.OrderStatus, u OrderUpdate) error
}

type Receipts interface {
	CreateReceipt(ctx context.Context, r *models.Receipt) error
	ReceiptByID(ctx context.Context, id string) (*models.Receipt, error)
}

type Idempotency interface {
	InsertIdempotency(ctx context.Context, rec *models.IdempotencyRecord) error
	IdempotencyByKey(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	SaveIdempotencyResponse(ctx context.Context, key string, response map[string]interface{}) error
	DeleteIdempotency(ctx context.Context, key string) error
}

// Store is everything the server needs from persistence.
type Store interface {
	Users
	Shops
	Products
	Scans
	Carts
	Orders
	Receipts
	Idempotency
}

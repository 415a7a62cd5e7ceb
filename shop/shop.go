// Package shop serves a retailer's own shop: its profile, catalogue and
// incoming orders.
package shop

import (
	"context"
	"strings"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/pkg/errors"
)

type Service struct {
	shops    store.Shops
	products store.Products
	orders   store.Orders
}

func NewService(shops store.Shops, products store.Products, orders store.Orders) *Service {
	return &Service{shops: shops, products: products, orders: orders}
}

type DetailsInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	Address      string `json:"address" validate:"max=300"`
	BusinessType string `json:"businessType" validate:"max=60"`
	GSTNumber    string `json:"gstNumber" validate:"omitempty,len=15,alphanum"`
	FSSAILicense string `json:"fssaiLicense" validate:"omitempty,len=14,numeric"`
	IsActive     *bool  `json:"isActive"`
}

// Owned returns the caller's shop.
func (s *Service) Owned(ctx context.Context, ownerID string) (*models.Shop, error) {
	sh, err := s.shops.ShopByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Shop not found")
		}
		return nil, apperr.Internal(err, "Failed to load shop")
	}
	return sh, nil
}

// SaveDetails creates the caller's shop on first use and updates it after.
func (s *Service) SaveDetails(ctx context.Context, ownerID string, in DetailsInput) (*models.Shop, bool, error) {
	now := time.Now()
	sh, err := s.shops.ShopByOwner(ctx, ownerID)
	created := false
	switch {
	case errors.Is(err, store.ErrNotFound):
		sh = &models.Shop{ID: utils.GetUUID(), Owner: ownerID, IsActive: true, CreatedAt: now}
		created = true
	case err != nil:
		return nil, false, apperr.Internal(err, "Failed to load shop")
	}

	sh.Name = strings.TrimSpace(in.Name)
	sh.Address = strings.TrimSpace(in.Address)
	sh.BusinessType = in.BusinessType
	sh.Metadata.GSTNumber = strings.ToUpper(in.GSTNumber)
	sh.Metadata.FSSAILicense = in.FSSAILicense
	if in.IsActive != nil {
		sh.IsActive = *in.IsActive
	}
	sh.UpdatedAt = now

	if created {
		err = s.shops.CreateShop(ctx, sh)
	} else {
		err = s.shops.UpdateShop(ctx, sh)
	}
	if errors.Is(err, store.ErrDuplicate) {
		return nil, false, apperr.Conflict("Shop already exists for this user")
	}
	if err != nil {
		return nil, false, apperr.Internal(err, "Failed to save shop")
	}
	return sh, created, nil
}

func (s *Service) Products(ctx context.Context, ownerID string, q utils.QueryOptions) ([]models.Product, error) {
	sh, err := s.Owned(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	list, err := s.products.ListProducts(ctx, store.ProductFilter{
		Shop:   sh.ID,
		Search: q.Search,
		Skip:   q.Skip(),
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to list products")
	}
	return list, nil
}

func (s *Service) Orders(ctx context.Context, ownerID string, status models.OrderStatus) ([]models.Order, error) {
	sh, err := s.Owned(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	switch status {
	case "", models.OrderPending, models.OrderPaid, models.OrderVerified, models.OrderCancelled:
	default:
		return nil, apperr.BadRequest("Invalid status filter")
	}
	list, err := s.orders.ListOrders(ctx, store.OrderFilter{Shop: sh.ID, Status: status})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to list orders")
	}
	return list, nil
}

func (s *Service) Available(ctx context.Context) ([]models.Shop, error) {
	list, err := s.shops.ActiveShops(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to list shops")
	}
	return list, nil
}

// Package products is the retailer-facing catalogue: CRUD within the
// retailer's shop, shopper search and product images.
package products

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/filecheck"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

const (
	thumbSize     = 512
	imageBase     = "/static/productpic/"
	maxImageBytes = 10 << 20
)

type Service struct {
	products  store.Products
	shops     store.Shops
	uploadDir string
}

func NewService(products store.Products, shops store.Shops, uploadDir string) *Service {
	return &Service{products: products, shops: shops, uploadDir: uploadDir}
}

type ProductInput struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Price    float64 `json:"price" validate:"gte=0"`
	Stock    int     `json:"stock" validate:"gte=0"`
	Category string  `json:"category" validate:"max=80"`
	Barcode  string  `json:"barcode" validate:"max=64"`
	SKU      string  `json:"sku" validate:"max=64"`
	IsActive *bool   `json:"isActive"`
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Price = utils.RoundMoney(in.Price)
	p.Stock = in.Stock
	p.Category = strings.TrimSpace(in.Category)
	p.Metadata.Barcode = strings.TrimSpace(in.Barcode)
	p.Metadata.SKU = strings.TrimSpace(in.SKU)
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
}

func (s *Service) ownShop(ctx context.Context, ownerID string) (*models.Shop, error) {
	sh, err := s.shops.ShopByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Create your shop before adding products")
		}
		return nil, apperr.Internal(err, "Failed to load shop")
	}
	return sh, nil
}

// owned loads a product that belongs to the caller's shop.
func (s *Service) owned(ctx context.Context, ownerID, id string) (*models.Product, error) {
	sh, err := s.ownShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, apperr.Internal(err, "Failed to load product")
	}
	if p.Shop != sh.ID {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

func saveErr(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Conflict("A product with this barcode already exists in your shop")
	}
	return apperr.Internal(err, "Failed to save product")
}

func (s *Service) Create(ctx context.Context, ownerID string, in ProductInput) (*models.Product, error) {
	sh, err := s.ownShop(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	p := &models.Product{ID: utils.GetUUID(), Shop: sh.ID, IsActive: true, CreatedAt: now, UpdatedAt: now}
	in.apply(p)
	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, saveErr(err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in ProductInput) (*models.Product, error) {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	p.UpdatedAt = time.Now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, saveErr(err)
	}
	return p, nil
}

// Delete hides the product. Orders keep their snapshot of it.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}
	p.IsActive = false
	p.UpdatedAt = time.Now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return saveErr(err)
	}
	return nil
}

// Get returns an active product, or an inactive one to its shop owner.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Product, error) {
	p, err := s.products.ProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, apperr.Internal(err, "Failed to load product")
	}
	if p.IsActive {
		return p, nil
	}
	if sh, err := s.shops.ShopByOwner(ctx, userID); err == nil && sh.ID == p.Shop {
		return p, nil
	}
	return nil, apperr.NotFound("Product not found")
}

func (s *Service) Search(ctx context.Context, shopID, query string, q utils.QueryOptions) ([]models.Product, error) {
	if shopID == "" {
		return nil, apperr.BadRequest("shopId is required")
	}
	list, err := s.products.ListProducts(ctx, store.ProductFilter{
		Shop:       shopID,
		Search:     query,
		ActiveOnly: true,
		Skip:       q.Skip(),
		Limit:      q.Limit,
	})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to search products")
	}
	return list, nil
}

// SetImage stores a square-bounded JPEG thumbnail of src as the product image.
func (s *Service) SetImage(ctx context.Context, ownerID, id string, src io.Reader) (*models.Product, error) {
	p, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	upload, err := filecheck.Inspect(src, maxImageBytes, filecheck.ImageTypes)
	switch {
	case errors.Is(err, filecheck.ErrTooLarge):
		return nil, apperr.BadRequest("Image too large")
	case err != nil:
		return nil, apperr.BadRequest("Unsupported image")
	}

	if err := utils.EnsureDir(s.uploadDir); err != nil {
		return nil, apperr.Internal(err, "Failed to create upload directory")
	}
	// identical uploads share one thumbnail
	name := upload.Hash[:24] + ".jpg"
	dst := filepath.Join(s.uploadDir, name)
	if _, statErr := os.Stat(dst); statErr != nil {
		img, err := imaging.Decode(upload.Reader(), imaging.AutoOrientation(true))
		if err != nil {
			return nil, apperr.BadRequest("Unsupported image")
		}
		thumb := imaging.Fit(img, thumbSize, thumbSize, imaging.Lanczos)
		if err := imaging.Save(thumb, dst, imaging.JPEGQuality(85)); err != nil {
			return nil, apperr.Internal(err, "Failed to save image")
		}
	}

	p.Image = imageBase + name
	p.UpdatedAt = time.Now()
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return nil, saveErr(err)
	}
	return p, nil
}

package cart

import (
	"context"
	"log"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/locks"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/pkg/errors"
)

const lockTTL = 10 * time.Second

type Service struct {
	carts    store.Carts
	scans    store.Scans
	products store.Products
	locker   locks.Locker
}

func NewService(carts store.Carts, scans store.Scans, products store.Products, locker locks.Locker) *Service {
	return &Service{carts: carts, scans: scans, products: products, locker: locker}
}

func lockKey(userID string) string { return "cart:" + userID }

// load returns the user's cart, or a fresh unsaved one.
func (s *Service) load(ctx context.Context, userID string) (*models.Cart, error) {
	c, err := s.carts.CartByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return &models.Cart{ID: utils.GetUUID(), User: userID, Items: []models.CartItem{}}, nil
}

// mutate runs fn on the user's cart under the cart lock and saves the result.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*models.Cart) error) (*models.Cart, error) {
	var out *models.Cart
	err := locks.Do(ctx, s.locker, lockKey(userID), lockTTL, func() error {
		c, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		c.UpdatedAt = time.Now()
		if err := s.carts.SaveCart(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to update cart")
	}
	return out, nil
}

func (s *Service) Initialize(ctx context.Context, userID, tableNumber string) (*models.CartView, error) {
	c, err := s.mutate(ctx, userID, func(c *models.Cart) error {
		c.TableNumber = tableNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

// ConvertResult reports how many staged lines were moved into the cart.
type ConvertResult struct {
	Cart      *models.CartView `json:"cart"`
	Converted int              `json:"converted"`
}

// ConvertSession moves the session's active staging rows into the cart.
// Rows are marked converted before the cart is written and put back to
// active if the write fails, so a line is never counted twice.
func (s *Service) ConvertSession(ctx context.Context, userID, sessionCode string) (*ConvertResult, error) {
	var (
		saved *models.Cart
		moved int
	)
	err := locks.Do(ctx, s.locker, lockKey(userID), lockTTL, func() error {
		rows, err := s.scans.ScansBySession(ctx, sessionCode, userID, models.ScanActive)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return apperr.NotFound("No products found in session")
		}

		ids := make([]string, len(rows))
		for i, r := range rows {
			ids[i] = r.ID
		}
		n, err := s.scans.SetScanState(ctx, ids, models.ScanActive, models.ScanConverted)
		if err != nil {
			return err
		}
		if int(n) != len(ids) {
			s.restore(ids)
			return apperr.Conflict("Session changed while converting, please retry")
		}

		c, err := s.load(ctx, userID)
		if err != nil {
			s.restore(ids)
			return err
		}
		for _, r := range rows {
			if i := c.IndexOf(r.Product); i >= 0 {
				c.Items[i].Quantity += r.Quantity
			} else {
				c.Items = append(c.Items, models.CartItem{Product: r.Product, Quantity: r.Quantity})
			}
		}
		c.UpdatedAt = time.Now()
		if err := s.carts.SaveCart(ctx, c); err != nil {
			s.restore(ids)
			return err
		}
		saved = c
		moved = len(rows)
		return nil
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to convert session")
	}

	view, err := s.view(ctx, saved)
	if err != nil {
		return nil, err
	}
	return &ConvertResult{Cart: view, Converted: moved}, nil
}

// restore puts converted rows back to active after a failed merge.
func (s *Service) restore(ids []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.scans.SetScanState(ctx, ids, models.ScanConverted, models.ScanActive); err != nil {
		log.Printf("cart: failed to restore %d staged rows: %v", len(ids), err)
	}
}

func (s *Service) activeProduct(ctx context.Context, productID string) (*models.Product, error) {
	p, err := s.products.ProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Product not found")
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.NotFound("Product not found")
	}
	return p, nil
}

func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		return nil, apperr.BadRequest("quantity must be greater than 0")
	}
	if _, err := s.activeProduct(ctx, productID); err != nil {
		return nil, apperr.Wrap(err, "Failed to load product")
	}
	c, err := s.mutate(ctx, userID, func(c *models.Cart) error {
		if i := c.IndexOf(productID); i >= 0 {
			c.Items[i].Quantity += quantity
			return nil
		}
		c.Items = append(c.Items, models.CartItem{Product: productID, Quantity: quantity})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *Service) Remove(ctx context.Context, userID, productID string) (*models.CartView, error) {
	c, err := s.mutate(ctx, userID, func(c *models.Cart) error {
		i := c.IndexOf(productID)
		if i < 0 {
			return apperr.NotFound("Item not found in cart")
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *Service) Update(ctx context.Context, userID, productID string, quantity int) (*models.CartView, error) {
	if quantity <= 0 {
		return nil, apperr.BadRequest("quantity must be greater than 0")
	}
	c, err := s.mutate(ctx, userID, func(c *models.Cart) error {
		i := c.IndexOf(productID)
		if i < 0 {
			return apperr.NotFound("Item not found in cart")
		}
		c.Items[i].Quantity = quantity
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c)
}

func (s *Service) Get(ctx context.Context, userID string) (*models.CartView, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load cart")
	}
	return s.view(ctx, c)
}

// Items returns the raw cart lines, empty when the user has no cart.
func (s *Service) Items(ctx context.Context, userID string) ([]models.CartItem, error) {
	c, err := s.load(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load cart")
	}
	return c.Items, nil
}

// Empty clears the cart after a successful payment. A user without a cart
// is left alone.
func (s *Service) Empty(ctx context.Context, userID string) error {
	return apperr.Wrap(locks.Do(ctx, s.locker, lockKey(userID), lockTTL, func() error {
		c, err := s.carts.CartByUser(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		c.Items = []models.CartItem{}
		c.UpdatedAt = time.Now()
		return s.carts.SaveCart(ctx, c)
	}), "Failed to empty cart")
}

func (s *Service) view(ctx context.Context, c *models.Cart) (*models.CartView, error) {
	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.Product
	}
	products, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load cart products")
	}

	v := &models.CartView{ID: c.ID, User: c.User, TableNumber: c.TableNumber, Items: make([]models.CartLine, 0, len(c.Items))}
	for _, it := range c.Items {
		p, ok := products[it.Product]
		if !ok {
			continue
		}
		line := models.CartLine{Product: p, Quantity: it.Quantity, Total: utils.RoundMoney(p.Price * float64(it.Quantity))}
		v.Items = append(v.Items, line)
		v.Subtotal += line.Total
	}
	v.Subtotal = utils.RoundMoney(v.Subtotal)
	return v, nil
}

// Package orders turns carts and explicit item lists into priced, stock-
// reserving orders and moves them through their status lifecycle.
package orders

import (
	"context"
	"fmt"
	"log"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/globals"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/pkg/errors"
)

// CartSource supplies the lines of a user's cart when an order is placed
// without explicit items.
type CartSource interface {
	Items(ctx context.Context, userID string) ([]models.CartItem, error)
}

type Service struct {
	orders   store.Orders
	products store.Products
	shops    store.Shops
	cart     CartSource
	taxRate  float64
}

func NewService(orders store.Orders, products store.Products, shops store.Shops, cart CartSource, taxRate float64) *Service {
	return &Service{orders: orders, products: products, shops: shops, cart: cart, taxRate: taxRate}
}

type LineInput struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type CreateInput struct {
	Items           []LineInput     `json:"items" validate:"dive"`
	ShippingAddress string          `json:"shippingAddress"`
	Customer        models.Customer `json:"customer"`
	PaymentMethod   string          `json:"paymentMethod"`
}

var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending: {models.OrderPaid, models.OrderCancelled},
	models.OrderPaid:    {models.OrderPending, models.OrderVerified, models.OrderCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func validStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderPending, models.OrderPaid, models.OrderVerified, models.OrderCancelled:
		return true
	}
	return false
}

// mergeLines folds repeated products into one line, keeping first-seen order.
func mergeLines(in []LineInput) []LineInput {
	out := make([]LineInput, 0, len(in))
	pos := make(map[string]int, len(in))
	for _, l := range in {
		if i, ok := pos[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		pos[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.Order, error) {
	lines := in.Items
	if len(lines) == 0 {
		items, err := s.cart.Items(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			lines = append(lines, LineInput{ProductID: it.Product, Quantity: it.Quantity})
		}
	}
	if len(lines) == 0 {
		return nil, apperr.BadRequest("No items to order")
	}
	lines = mergeLines(lines)

	ids := make([]string, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.BadRequest("quantity must be at least 1")
		}
		ids[i] = l.ProductID
	}
	products, err := s.products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load products")
	}

	order := &models.Order{
		ID:              utils.GetUUID(),
		User:            userID,
		Items:           make([]models.OrderItem, 0, len(lines)),
		Status:          models.OrderPending,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.ShippingAddress,
		Customer:        in.Customer,
	}
	for _, l := range lines {
		p, ok := products[l.ProductID]
		if !ok || !p.IsActive {
			return nil, apperr.BadRequest(fmt.Sprintf("Product %s not found", l.ProductID))
		}
		if p.Stock < l.Quantity {
			return nil, apperr.BadRequest(fmt.Sprintf("Insufficient stock for %s", p.Name))
		}
		if order.Shop == "" {
			order.Shop = p.Shop
		} else if order.Shop != p.Shop {
			return nil, apperr.BadRequest("All items must come from the same shop")
		}
		total := utils.RoundMoney(p.Price * float64(l.Quantity))
		order.Items = append(order.Items, models.OrderItem{
			Product:  p.ID,
			Name:     p.Name,
			Quantity: l.Quantity,
			Price:    p.Price,
			Total:    total,
		})
		order.Subtotal += total
	}
	order.Subtotal = utils.RoundMoney(order.Subtotal)
	order.Tax = utils.RoundMoney(order.Subtotal * s.taxRate)
	order.Total = utils.RoundMoney(order.Subtotal + order.Tax)

	if err := s.reserve(ctx, order.Items); err != nil {
		return nil, err
	}

	now := time.Now()
	order.CreatedAt, order.UpdatedAt = now, now
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		s.release(order.Items)
		return nil, apperr.Internal(err, "Failed to create order")
	}
	return order, nil
}

// reserve decrements stock line by line. A line that no longer has enough
// stock undoes the lines before it.
func (s *Service) reserve(ctx context.Context, items []models.OrderItem) error {
	for i, it := range items {
		err := s.products.DecrementStock(ctx, it.Product, it.Quantity)
		if err == nil {
			continue
		}
		s.release(items[:i])
		if errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrNotFound) {
			return apperr.BadRequest(fmt.Sprintf("Insufficient stock for %s", it.Name))
		}
		return apperr.Internal(err, "Failed to reserve stock")
	}
	return nil
}

func (s *Service) release(items []models.OrderItem) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, it := range items {
		if err := s.products.IncrementStock(ctx, it.Product, it.Quantity); err != nil {
			log.Printf("orders: failed to restore %d of product %s: %v", it.Quantity, it.Product, err)
		}
	}
}

func (s *Service) load(ctx context.Context, id string) (*models.Order, error) {
	o, err := s.orders.OrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Internal(err, "Failed to load order")
	}
	return o, nil
}

// ownsShop reports whether userID owns shopID.
func (s *Service) ownsShop(ctx context.Context, userID, shopID string) (bool, error) {
	shop, err := s.shops.ShopByOwner(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal(err, "Failed to load shop")
	}
	return shop.ID == shopID, nil
}

// Get returns an order visible to the caller: its buyer, the owning
// retailer, or an admin.
func (s *Service) Get(ctx context.Context, userID, role, id string) (*models.Order, error) {
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.User == userID || role == globals.RoleAdmin {
		return o, nil
	}
	if role == globals.RoleRetailer {
		ok, err := s.ownsShop(ctx, userID, o.Shop)
		if err != nil {
			return nil, err
		}
		if ok {
			return o, nil
		}
	}
	return nil, apperr.NotFound("Order not found")
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]models.Order, error) {
	out, err := s.orders.ListOrders(ctx, store.OrderFilter{User: userID})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to list orders")
	}
	return out, nil
}

func (s *Service) ListForShop(ctx context.Context, shopID string, status models.OrderStatus) ([]models.Order, error) {
	if status != "" && !validStatus(status) {
		return nil, apperr.BadRequest("Invalid status filter")
	}
	out, err := s.orders.ListOrders(ctx, store.OrderFilter{Shop: shopID, Status: status})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to list orders")
	}
	return out, nil
}

// UpdateStatus moves an order along the allowed transitions. Only the
// owning retailer or an admin may do this; cancelling returns the stock.
func (s *Service) UpdateStatus(ctx context.Context, actorID, role, id string, status models.OrderStatus) (*models.Order, error) {
	if !validStatus(status) {
		return nil, apperr.BadRequest("Invalid status")
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if role != globals.RoleAdmin {
		ok, err := s.ownsShop(ctx, actorID, o.Shop)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Forbidden("You can only manage orders of your own shop")
		}
	}

	if !CanTransition(o.Status, status) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot change order from %s to %s", o.Status, status))
	}

	u := store.OrderUpdate{Status: status}
	if status == models.OrderVerified {
		u.VerifiedBy = actorID
	}
	if err := s.orders.TransitionOrder(ctx, o.ID, o.Status, u); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("Order status changed, please retry")
		}
		return nil, apperr.Internal(err, "Failed to update order")
	}
	if status == models.OrderCancelled {
		s.release(o.Items)
	}
	return s.load(ctx, id)
}

package models

import "time"

// CartItem is a product reference; prices are looked up when the cart is read.
type CartItem struct {
	Product  string `json:"product" bson:"product"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// Cart is the per-user singleton cart.
type Cart struct {
	ID          string     `json:"id" bson:"_id"`
	User        string     `json:"user" bson:"user"`
	TableNumber string     `json:"tableNumber,omitempty" bson:"tableNumber,omitempty"`
	Items       []CartItem `json:"items" bson:"items"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// IndexOf returns the position of productID in the cart, or -1.
func (c *Cart) IndexOf(productID string) int {
	for i, it := range c.Items {
		if it.Product == productID {
			return i
		}
	}
	return -1
}

// CartLine is a cart item joined with its product for display.
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
	Total    float64  `json:"total"`
}

type CartView struct {
	ID          string     `json:"id"`
	User        string     `json:"user"`
	TableNumber string     `json:"tableNumber,omitempty"`
	Items       []CartLine `json:"items"`
	Subtotal    float64    `json:"subtotal"`
}

package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderVerified  OrderStatus = "verified"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderItem snapshots name and price at checkout time.
type OrderItem struct {
	Product  string  `json:"product" bson:"product"`
	Name     string  `json:"name" bson:"name"`
	Quantity int     `json:"quantity" bson:"quantity"`
	Price    float64 `json:"price" bson:"price"`
	Total    float64 `json:"total" bson:"total"`
}

type Customer struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type PaymentInfo struct {
	TransactionID string    `json:"transactionId" bson:"transactionId"`
	Method        string    `json:"method" bson:"method"`
	PaidAt        time.Time `json:"paidAt" bson:"paidAt"`
	InvoiceURL    string    `json:"invoiceUrl,omitempty" bson:"invoiceUrl,omitempty"`
}

type Order struct {
	ID              string       `json:"id" bson:"_id"`
	User            string       `json:"user" bson:"user"`
	Shop            string       `json:"shop" bson:"shop"`
	Items           []OrderItem  `json:"items" bson:"items"`
	Subtotal        float64      `json:"subtotal" bson:"subtotal"`
	Tax             float64      `json:"tax" bson:"tax"`
	Total           float64      `json:"total" bson:"total"`
	Status          OrderStatus  `json:"status" bson:"status"`
	PaymentMethod   string       `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	PaymentInfo     *PaymentInfo `json:"paymentInfo,omitempty" bson:"paymentInfo,omitempty"`
	ShippingAddress string       `json:"shippingAddress,omitempty" bson:"shippingAddress,omitempty"`
	Customer        Customer     `json:"customer" bson:"customer"`
	VerifiedBy      string       `json:"verifiedBy,omitempty" bson:"verifiedBy,omitempty"`
	CreatedAt       time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt" bson:"updatedAt"`
}

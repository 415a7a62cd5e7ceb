package models

import "time"

type ReceiptItem struct {
	ProductID string  `json:"productId" bson:"productId"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// Receipt is produced by the lightweight checkout endpoint and never changes.
type Receipt struct {
	ID          string        `json:"id" bson:"_id"`
	Items       []ReceiptItem `json:"items" bson:"items"`
	TotalAmount float64       `json:"totalAmount" bson:"totalAmount"`
	User        string        `json:"user,omitempty" bson:"user,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
}

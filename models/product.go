package models

import "time"

type ProductMetadata struct {
	Barcode string `json:"barcode,omitempty" bson:"barcode,omitempty"`
	SKU     string `json:"sku,omitempty" bson:"sku,omitempty"`
}

// Product is the single catalog schema; availability is IsActive only.
type Product struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	Price     float64         `json:"price" bson:"price"`
	Stock     int             `json:"stock" bson:"stock"`
	Category  string          `json:"category,omitempty" bson:"category,omitempty"`
	Image     string          `json:"image,omitempty" bson:"image,omitempty"`
	Metadata  ProductMetadata `json:"metadata" bson:"metadata"`
	Shop      string          `json:"shop" bson:"shop"`
	IsActive  bool            `json:"isActive" bson:"isActive"`
	CreatedAt time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt" bson:"updatedAt"`
}

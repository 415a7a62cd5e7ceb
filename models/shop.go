package models

import "time"

type ShopMetadata struct {
	GSTNumber    string `json:"gstNumber,omitempty" bson:"gstNumber,omitempty"`
	FSSAILicense string `json:"fssaiLicense,omitempty" bson:"fssaiLicense,omitempty"`
}

type Shop struct {
	ID           string       `json:"id" bson:"_id"`
	Name         string       `json:"name" bson:"name"`
	Address      string       `json:"address" bson:"address"`
	BusinessType string       `json:"businessType" bson:"businessType"`
	Metadata     ShopMetadata `json:"metadata" bson:"metadata"`
	Owner        string       `json:"owner" bson:"owner"`
	IsActive     bool         `json:"isActive" bson:"isActive"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt" bson:"updatedAt"`
}

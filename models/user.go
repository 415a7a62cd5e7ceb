package models

import "time"

type User struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name" bson:"name"`
	Email       string    `json:"email" bson:"email"`
	Password    string    `json:"-" bson:"password"`
	Role        string    `json:"role" bson:"role"` // customer, retailer, admin
	GoogleID    string    `json:"-" bson:"googleId,omitempty"`
	RoleChanged bool      `json:"roleChanged" bson:"roleChanged"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

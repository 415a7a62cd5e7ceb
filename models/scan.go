package models

import "time"

// ScanState is the lifecycle of a staging row. Rows are never deleted.
type ScanState string

const (
	ScanActive    ScanState = "active"
	ScanRemoved   ScanState = "removed"
	ScanConverted ScanState = "converted"
)

// ScannedProduct stages one scanned line of a session until it is moved
// into the user's cart. (sessionCode, user, product) is unique.
type ScannedProduct struct {
	ID          string    `json:"id" bson:"_id"`
	SessionCode string    `json:"sessionCode" bson:"sessionCode"`
	User        string    `json:"user" bson:"user"`
	Product     string    `json:"product" bson:"product"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	ScannedAt   time.Time `json:"scannedAt" bson:"scannedAt"`
	State       ScanState `json:"state" bson:"state"`
}

func (s *ScannedProduct) Active() bool { return s.State == ScanActive }

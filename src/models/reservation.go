package models

import "time"

// Reservation is owned by another service; this is a read-only projection
// used to confirm the reference on a payment exists.
type Reservation struct {
	ID          string     `json:"id"`
	Status      string     `json:"status,omitempty"`
	TotalAmount float64    `json:"totalAmount,omitempty"`
	UserID      string     `json:"userId,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

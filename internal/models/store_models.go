package models

import "time"

// Store represents a physical location staff check in and out of.
type Store struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// StoreSecret is the versioned secret material check-in codes are derived
// from. One row per store; rotation swaps the secret and increments the
// generation in a single atomic update, permanently invalidating every
// code computed against prior generations.
type StoreSecret struct {
	StoreID    int64     `json:"store_id" db:"store_id"`
	Secret     []byte    `json:"-" db:"secret"` // never serialized
	Generation int64     `json:"generation" db:"generation"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	RotatedAt  time.Time `json:"rotated_at" db:"rotated_at"`
}

package models

import "time"

// Location is the address of a single job. It is created with its job and never changed.
type Location struct {
	ID        string    `db:"id" json:"id"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	State     string    `db:"state" json:"state"`
	ZipCode   string    `db:"zip_code" json:"zipCode"`
	Latitude  float64   `db:"latitude" json:"latitude"`
	Longitude float64   `db:"longitude" json:"longitude"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

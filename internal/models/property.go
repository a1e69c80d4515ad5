package models

import (
	"time"

	"github.com/paulmach/orb"
)

// TransactionType scopes a price to rental or sale terms.
type TransactionType string

const (
	TransactionRent TransactionType = "Rent"
	TransactionSale TransactionType = "Sale"
)

// PropertyTypes is the set of listing categories accepted by the API.
var PropertyTypes = []string{"PG/Hostel", "Apartment", "Residential", "Villa", "Commercial"}

// IsValidPropertyType reports whether t is one of the supported categories.
func IsValidPropertyType(t string) bool {
	for _, pt := range PropertyTypes {
		if pt == t {
			return true
		}
	}
	return false
}

// Address is the postal address of a listing. Street, city, state, country
// and postal code must all be present before the address can be geocoded.
type Address struct {
	Street     string `json:"street"`
	District   string `json:"district,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
	Landmark   string `json:"landmark,omitempty"`
}

// Price is an amount scoped to a transaction type. Amounts under different
// transaction types are never comparable, so the type travels with the amount.
type Price struct {
	Amount float64         `json:"amount"`
	Type   TransactionType `json:"type"`
}

// Listing is a property listing with a geocoded coordinate.
type Listing struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Description  string    `json:"description"`
	Address      Address   `gorm:"embedded;embeddedPrefix:address_" json:"address"`
	Latitude     float64   `gorm:"index:idx_listings_coordinates" json:"latitude"`
	Longitude    float64   `gorm:"index:idx_listings_coordinates" json:"longitude"`
	Geohash      string    `gorm:"size:12;index" json:"geohash"`
	Price        Price     `gorm:"embedded;embeddedPrefix:price_" json:"price"`
	PropertyType string    `gorm:"index" json:"property_type"`
	Bedrooms     int       `gorm:"index" json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	Area         float64   `json:"area"`
	Amenities    []string  `gorm:"serializer:json" json:"amenities,omitempty"`
	Images       []string  `gorm:"serializer:json" json:"images,omitempty"`
	IsAvailable  bool      `gorm:"default:true" json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Point returns the listing coordinate in orb's lon/lat order.
func (l *Listing) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

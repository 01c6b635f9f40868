package models

import (
	"errors"
	"strings"
	"time"
)

// ListingStatus is the lifecycle state of a house listing.
type ListingStatus string

const (
	ListingActive  ListingStatus = "ACTIVE"
	ListingPending ListingStatus = "PENDING"
	ListingSold    ListingStatus = "SOLD"
	ListingRented  ListingStatus = "RENTED"
)

// Valid reports whether s is one of the known listing statuses.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingPending, ListingSold, ListingRented:
		return true
	}
	return false
}

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrAddressRequired = errors.New("address is required")
	ErrCityRequired    = errors.New("city is required")
	ErrInvalidPrice    = errors.New("price must be greater than zero")
	ErrInvalidRooms    = errors.New("bedroom and bathroom counts cannot be negative")
	ErrInvalidArea     = errors.New("area must be greater than zero")
	ErrInvalidStatus   = errors.New("unknown listing status")
)

// House represents a property listing.
type House struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Price       int64         `json:"price"` // smallest currency unit
	Address     string        `json:"address"`
	City        string        `json:"city"`
	Bedrooms    int           `json:"bedrooms"`
	Bathrooms   int           `json:"bathrooms"`
	AreaSqm     float64       `json:"areaSqm"`
	Status      ListingStatus `json:"status"`
	OwnerID     string        `json:"ownerId"`
	PhotoPaths  []string      `json:"photoPaths,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Validate checks required fields and value ranges.
func (h House) Validate() error {
	if strings.TrimSpace(h.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(h.Address) == "" {
		return ErrAddressRequired
	}
	if strings.TrimSpace(h.City) == "" {
		return ErrCityRequired
	}
	if h.Price <= 0 {
		return ErrInvalidPrice
	}
	if h.Bedrooms < 0 || h.Bathrooms < 0 {
		return ErrInvalidRooms
	}
	if h.AreaSqm <= 0 {
		return ErrInvalidArea
	}
	if h.Status != "" && !h.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// ListingStatus is the publication state owned by the listing subsystem.
type ListingStatus string

const (
	ListingStatusActive     ListingStatus = "active"
	ListingStatusIncomplete ListingStatus = "incomplete"
	ListingStatusBilled     ListingStatus = "billed"
	ListingStatusClosed     ListingStatus = "closed"
)

// Listing is a property offered for sale/rent. The matching core treats
// listings as read-mostly; mutation happens in the listing subsystem except
// for the billing status flip.
type Listing struct {
	ID           string `json:"id" db:"id"`
	ListingID    string `json:"listing_id" db:"listing_id"`
	OwnerPhone   string `json:"owner_phone" db:"owner_phone"`
	PhoneKey     string `json:"-" db:"phone_key"`
	PropertyType string `json:"property_type" db:"property_type"`
	PropertyMode string `json:"property_mode" db:"property_mode"`
	City         string `json:"city" db:"city"`
	State        string `json:"state,omitempty" db:"state"`
	District     string `json:"district,omitempty" db:"district"`
	Area         string `json:"area" db:"area"`
	Price        int64  `json:"price" db:"price"`
	Bedrooms     int    `json:"bedrooms,omitempty" db:"bedrooms"`
	Facing       string `json:"facing,omitempty" db:"facing"`
	PropertyAge  string `json:"property_age,omitempty" db:"property_age"`
	Approval     string `json:"approval,omitempty" db:"approval"`
	Loan         string `json:"loan,omitempty" db:"loan"`

	Status    ListingStatus  `json:"status" db:"status"`
	MediaURLs pq.StringArray `json:"media_urls,omitempty" db:"media_urls"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CreateListingRequest seeds a listing (admin/import convenience).
type CreateListingRequest struct {
	ListingID    string   `json:"listing_id" validate:"required"`
	OwnerPhone   string   `json:"owner_phone" validate:"required"`
	PropertyType string   `json:"property_type" validate:"required"`
	PropertyMode string   `json:"property_mode" validate:"required,oneof=sale rent"`
	City         string   `json:"city" validate:"required"`
	State        string   `json:"state,omitempty"`
	District     string   `json:"district,omitempty"`
	Area         string   `json:"area,omitempty"`
	Price        any      `json:"price" validate:"required"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Facing       string   `json:"facing,omitempty"`
	PropertyAge  string   `json:"property_age,omitempty"`
	Approval     string   `json:"approval,omitempty"`
	Loan         string   `json:"loan,omitempty" validate:"omitempty,oneof=yes no"`
	Status       string   `json:"status,omitempty" validate:"omitempty,oneof=active incomplete billed closed"`
	MediaURLs    []string `json:"media_urls,omitempty"`
}

package models

import (
	"time"

	"github.com/lib/pq"
)

// RequestStatus is the lifecycle status of a buyer request. The set is closed;
// every write path validates against it.
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "baPending"
	RequestStatusActive         RequestStatus = "baActive"
	RequestStatusInterest       RequestStatus = "buyer-assistance-interest"
	RequestStatusInterestTried  RequestStatus = "buyer-interest-tried"
	RequestStatusRemoveInterest RequestStatus = "remove-assistance-interest"
)

// AllRequestStatuses lists every valid status value.
var AllRequestStatuses = []RequestStatus{
	RequestStatusPending,
	RequestStatusActive,
	RequestStatusInterest,
	RequestStatusInterestTried,
	RequestStatusRemoveInterest,
}

// Valid reports whether the status is one of the known values.
func (s RequestStatus) Valid() bool {
	for _, v := range AllRequestStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// BuyerRequest is a buyer's stated purchase criteria and lifecycle status.
// request_id is a human-facing sequence starting at 100; id is the surrogate key.
type BuyerRequest struct {
	ID           string `json:"id" db:"id"`
	RequestID    int64  `json:"request_id" db:"request_id"`
	PhoneNumber  string `json:"phone_number" db:"phone_number"`
	PhoneKey     string `json:"-" db:"phone_key"` // last 10 digits, used for joins
	PropertyType string `json:"property_type" db:"property_type"`
	PropertyMode string `json:"property_mode" db:"property_mode"` // sale / rent
	City         string `json:"city" db:"city"`
	State        string `json:"state,omitempty" db:"state"`
	District     string `json:"district,omitempty" db:"district"`
	Area         string `json:"area" db:"area"`
	MinPrice     *int64 `json:"min_price,omitempty" db:"min_price"`
	MaxPrice     *int64 `json:"max_price,omitempty" db:"max_price"`
	Bedrooms     int    `json:"bedrooms,omitempty" db:"bedrooms"`
	Facing       string `json:"facing,omitempty" db:"facing"`
	PropertyAge  string `json:"property_age,omitempty" db:"property_age"`
	Approval     string `json:"approval,omitempty" db:"approval"`
	Loan         string `json:"loan,omitempty" db:"loan"` // yes / no / ""

	// ListingID links the request to the listing the buyer enquired from, when known.
	ListingID string `json:"listing_id,omitempty" db:"listing_id"`

	Status           RequestStatus  `json:"status" db:"status"`
	InterestedPhones pq.StringArray `json:"interested_phones" db:"interested_phones"`

	IsDeleted bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// CreateBuyerRequestRequest is the payload for registering buyer criteria.
type CreateBuyerRequestRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required"`
	PropertyType string `json:"property_type" validate:"required"`
	PropertyMode string `json:"property_mode" validate:"required,oneof=sale rent"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state,omitempty"`
	District     string `json:"district,omitempty"`
	Area         string `json:"area,omitempty"`
	MinPrice     any    `json:"min_price,omitempty"` // number or numeric string; coerced
	MaxPrice     any    `json:"max_price,omitempty"`
	Bedrooms     int    `json:"bedrooms,omitempty"`
	Facing       string `json:"facing,omitempty"`
	PropertyAge  string `json:"property_age,omitempty"`
	Approval     string `json:"approval,omitempty"`
	Loan         string `json:"loan,omitempty" validate:"omitempty,oneof=yes no"`
	ListingID    string `json:"listing_id,omitempty"`
}

// UpdateStatusRequest sets the lifecycle status to a caller-supplied value.
type UpdateStatusRequest struct {
	Status RequestStatus `json:"status" validate:"required"`
}

// RegisterInterestRequest records an interested party on a buyer request.
type RegisterInterestRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

// RequestKeySelector names which identifier a lifecycle operation keys on.
type RequestKeySelector string

const (
	RequestKeyID        RequestKeySelector = "id"
	RequestKeyRequestID RequestKeySelector = "request_id"
	RequestKeyListingID RequestKeySelector = "listing_id"
)

func (k RequestKeySelector) Valid() bool {
	switch k {
	case RequestKeyID, RequestKeyRequestID, RequestKeyListingID:
		return true
	}
	return false
}

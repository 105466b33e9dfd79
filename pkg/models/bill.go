package models

import "time"

// BillStatus is the payment state of a bill.
type BillStatus string

const (
	BillStatusPending BillStatus = "pending"
	BillStatusPaid    BillStatus = "paid"
	BillStatusVoid    BillStatus = "void"
)

// Bill is a billing record tied to a listing and its owner. The views built
// here treat it as one-to-zero-or-one with a listing; no uniqueness is
// enforced by this service.
type Bill struct {
	ID          string     `json:"id" db:"id"`
	ListingID   string     `json:"listing_id" db:"listing_id"`
	PhoneNumber string     `json:"phone_number" db:"phone_number"`
	PhoneKey    string     `json:"-" db:"phone_key"`
	Amount      int64      `json:"amount" db:"amount"`
	ValidFrom   *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidTo     *time.Time `json:"valid_to,omitempty" db:"valid_to"`
	Status      BillStatus `json:"status" db:"status"`
	CreatedBy   string     `json:"created_by,omitempty" db:"created_by"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// CreateBillRequest raises a bill against a listing and flips the listing
// status once the bill row is committed.
type CreateBillRequest struct {
	ListingID   string `json:"listing_id" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"required"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	ValidDays   int    `json:"valid_days,omitempty" validate:"omitempty,gt=0"`
	Status      string `json:"status,omitempty" validate:"omitempty,oneof=pending paid void"`
}

package models

import "time"

// FollowUpStatus is the outcome an admin recorded for a contact attempt.
type FollowUpStatus string

const (
	FollowUpStatusRing          FollowUpStatus = "Ring"
	FollowUpStatusReadyToPay    FollowUpStatus = "Ready To Pay"
	FollowUpStatusNotDecided    FollowUpStatus = "Not Decided"
	FollowUpStatusNotInterested FollowUpStatus = "Not Interested-Closed"
	FollowUpStatusPaidClosed    FollowUpStatus = "Paid Closed"
)

var AllFollowUpStatuses = []FollowUpStatus{
	FollowUpStatusRing,
	FollowUpStatusReadyToPay,
	FollowUpStatusNotDecided,
	FollowUpStatusNotInterested,
	FollowUpStatusPaidClosed,
}

func (s FollowUpStatus) Valid() bool {
	for _, v := range AllFollowUpStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// FollowUpType classifies what the contact was about.
type FollowUpType string

const (
	FollowUpTypePayment FollowUpType = "Payment Followup"
	FollowUpTypeData    FollowUpType = "Data Followup"
	FollowUpTypeEnquiry FollowUpType = "Enquiry Followup"
)

var AllFollowUpTypes = []FollowUpType{
	FollowUpTypePayment,
	FollowUpTypeData,
	FollowUpTypeEnquiry,
}

func (t FollowUpType) Valid() bool {
	for _, v := range AllFollowUpTypes {
		if t == v {
			return true
		}
	}
	return false
}

// FollowUp is an admin-logged contact event tied to a listing/phone.
// Records are append-only; "latest" means the greatest follow-up date,
// falling back to creation time on ties.
type FollowUp struct {
	ID           string         `json:"id" db:"id"`
	ListingID    string         `json:"listing_id" db:"listing_id"`
	PhoneNumber  string         `json:"phone_number" db:"phone_number"`
	PhoneKey     string         `json:"-" db:"phone_key"`
	Status       FollowUpStatus `json:"status" db:"status"`
	Type         FollowUpType   `json:"type" db:"type"`
	FollowUpDate time.Time      `json:"follow_up_date" db:"follow_up_date"`
	AdminName    string         `json:"admin_name" db:"admin_name"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
}

// CreateFollowUpRequest logs a new follow-up event.
type CreateFollowUpRequest struct {
	ListingID    string     `json:"listing_id" validate:"required"`
	PhoneNumber  string     `json:"phone_number" validate:"required"`
	Status       string     `json:"status" validate:"required"`
	Type         string     `json:"type" validate:"required"`
	FollowUpDate *time.Time `json:"follow_up_date,omitempty"`
}

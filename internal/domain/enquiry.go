package domain

import "time"

// EnquiryStatus enumerates lifecycle states for enquiries.
//
// The expected progression is new -> in_progress -> closed, but transitions are
// not enforced: any authorized update may write any enumerated value.
type EnquiryStatus string

const (
	EnquiryStatusNew        EnquiryStatus = "new"
	EnquiryStatusInProgress EnquiryStatus = "in_progress"
	EnquiryStatusClosed     EnquiryStatus = "closed"
)

// ValidEnquiryStatus reports whether s is one of the enumerated statuses.
func ValidEnquiryStatus(s EnquiryStatus) bool {
	switch s {
	case EnquiryStatusNew, EnquiryStatusInProgress, EnquiryStatusClosed:
		return true
	}
	return false
}

// EnquiryPriority enumerates urgency levels.
type EnquiryPriority string

const (
	EnquiryPriorityLow    EnquiryPriority = "low"
	EnquiryPriorityMedium EnquiryPriority = "medium"
	EnquiryPriorityHigh   EnquiryPriority = "high"
)

// ValidEnquiryPriority reports whether p is one of the enumerated priorities.
func ValidEnquiryPriority(p EnquiryPriority) bool {
	switch p {
	case EnquiryPriorityLow, EnquiryPriorityMedium, EnquiryPriorityHigh:
		return true
	}
	return false
}

// Enquiry is the aggregate for customer contact requests.
//
// CreatedBy is nil for publicly submitted enquiries. Records are never
// physically removed: delete marks IsDeleted/DeletedAt and the row persists.
type Enquiry struct {
	ID           string
	CustomerName string
	Email        string
	Phone        string
	Message      string
	Status       EnquiryStatus
	Priority     EnquiryPriority
	AssignedTo   *string
	CreatedBy    *string
	IsDeleted    bool
	DeletedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package dto

import (
	"time"

	"github.com/shaileshgontewar/crm-server/internal/domain"
)

// CreateEnquiryRequest payload, shared by the public and authenticated create
// endpoints. Status and assignedTo are honoured for authenticated callers
// only; public submissions always start at "new".
type CreateEnquiryRequest struct {
	CustomerName string  `json:"customerName" validate:"required,min=2,max=100"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        string  `json:"phone" validate:"required,phone"`
	Message      string  `json:"message" validate:"required,min=10,max=1000"`
	Priority     string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status       string  `json:"status" validate:"omitempty,oneof=new in_progress closed"`
	AssignedTo   *string `json:"assignedTo" validate:"omitempty,uuid"`
}

// UpdateEnquiryRequest payload. All fields optional; which keys were present
// in the body is tracked separately for the staff field whitelist.
type UpdateEnquiryRequest struct {
	CustomerName *string `json:"customerName" validate:"omitempty,min=2,max=100"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Phone        *string `json:"phone" validate:"omitempty,phone"`
	Message      *string `json:"message" validate:"omitempty,min=10,max=1000"`
	Status       *string `json:"status" validate:"omitempty,oneof=new in_progress closed"`
	Priority     *string `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo   *string `json:"assignedTo" validate:"omitempty,uuid"`
}

// EnquiryResponse is the wire shape of an enquiry.
type EnquiryResponse struct {
	ID           string     `json:"id"`
	CustomerName string     `json:"customerName"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	Message      string     `json:"message"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	AssignedTo   *string    `json:"assignedTo"`
	CreatedBy    *string    `json:"createdBy,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// NewEnquiryResponse maps the domain model to its wire shape.
func NewEnquiryResponse(e *domain.Enquiry) EnquiryResponse {
	return EnquiryResponse{
		ID:           e.ID,
		CustomerName: e.CustomerName,
		Email:        e.Email,
		Phone:        e.Phone,
		Message:      e.Message,
		Status:       string(e.Status),
		Priority:     string(e.Priority),
		AssignedTo:   e.AssignedTo,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		DeletedAt:    e.DeletedAt,
	}
}

package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/policy"
	"github.com/shaileshgontewar/crm-server/internal/repository"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// EnquiryService coordinates enquiry workflows: every operation resolves the
// actor's policy decision first, then touches the store. Concurrent updates to
// the same enquiry are not serialized; the last write wins.
type EnquiryService struct {
	enquiries repository.EnquiryRepository
}

// NewEnquiryService constructs the service.
func NewEnquiryService(enquiries repository.EnquiryRepository) *EnquiryService {
	return &EnquiryService{enquiries: enquiries}
}

// EnquiryCreateInput describes a creation payload.
type EnquiryCreateInput struct {
	CustomerName string
	Email        string
	Phone        string
	Message      string
	Status       domain.EnquiryStatus
	Priority     domain.EnquiryPriority
	AssignedTo   *string
}

// EnquiryListQuery describes caller-supplied listing filters.
type EnquiryListQuery struct {
	Status string // exact status, "" or "all" means no filter
	Search string // case-insensitive substring over customerName/email/phone
	SortBy string
	Page   int
	Limit  int
}

// EnquiryUpdateInput carries a partial update plus the set of keys present in
// the request body. Key presence drives both the staff whitelist check and
// which fields get applied.
type EnquiryUpdateInput struct {
	Keys         []string
	CustomerName *string
	Email        *string
	Phone        *string
	Message      *string
	Status       *domain.EnquiryStatus
	Priority     *domain.EnquiryPriority
	AssignedTo   *string
}

// Pagination describes the page window of a listing response.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// EnquiryStats is the aggregate returned by Stats. Statuses without matching
// enquiries are absent from ByStatus.
type EnquiryStats struct {
	Total    int64                          `json:"total"`
	ByStatus map[domain.EnquiryStatus]int64 `json:"byStatus"`
}

// Create persists a new enquiry for an authenticated or anonymous actor.
// Anonymous submissions always start at status "new" with no creator.
func (s *EnquiryService) Create(ctx context.Context, actor policy.Actor, input EnquiryCreateInput) (*domain.Enquiry, error) {
	enquiry := &domain.Enquiry{
		ID:           uuid.NewString(),
		CustomerName: strings.TrimSpace(input.CustomerName),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:        strings.TrimSpace(input.Phone),
		Message:      strings.TrimSpace(input.Message),
		Status:       input.Status,
		Priority:     input.Priority,
		AssignedTo:   input.AssignedTo,
	}
	policy.CreateDefaults(actor, enquiry)
	if !domain.ValidEnquiryStatus(enquiry.Status) {
		return nil, apperrors.NewValidationError("status must be one of: new, in_progress, closed", nil)
	}
	if !domain.ValidEnquiryPriority(enquiry.Priority) {
		return nil, apperrors.NewValidationError("priority must be one of: low, medium, high", nil)
	}

	if err := s.enquiries.Create(ctx, enquiry); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return enquiry, nil
}

// List returns the actor-visible page of enquiries plus pagination metadata.
func (s *EnquiryService) List(ctx context.Context, actor policy.Actor, query EnquiryListQuery) ([]domain.Enquiry, Pagination, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := repository.EnquiryFilter{
		Search: query.Search,
		SortBy: query.SortBy,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if query.Status != "" && query.Status != "all" {
		status := domain.EnquiryStatus(query.Status)
		filter.Status = &status
	}
	applyScope(&filter, policy.ListScope(actor))

	enquiries, err := s.enquiries.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, apperrors.ToDomainError(err)
	}
	total, err := s.enquiries.Count(ctx, filter)
	if err != nil {
		return nil, Pagination{}, apperrors.ToDomainError(err)
	}

	pagination := Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + int64(limit) - 1) / int64(limit),
	}
	return enquiries, pagination, nil
}

// Get fetches a single non-deleted enquiry. A staff actor is denied with
// Forbidden when the enquiry exists but is assigned elsewhere; a missing or
// deleted id is NotFound.
func (s *EnquiryService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.Enquiry, error) {
	enquiry, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanView(actor, enquiry); err != nil {
		return nil, err
	}
	return enquiry, nil
}

// Update applies a partial update after the policy checks pass. The staff
// field whitelist is evaluated against the full key set before anything is
// written, so a rejected update leaves the record untouched.
func (s *EnquiryService) Update(ctx context.Context, actor policy.Actor, id string, input EnquiryUpdateInput) (*domain.Enquiry, error) {
	enquiry, err := s.getExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanUpdate(actor, enquiry); err != nil {
		return nil, err
	}
	if err := policy.CheckUpdateKeys(actor, input.Keys); err != nil {
		return nil, err
	}
	if input.Status != nil && !domain.ValidEnquiryStatus(*input.Status) {
		return nil, apperrors.NewValidationError("status must be one of: new, in_progress, closed", nil)
	}
	if input.Priority != nil && !domain.ValidEnquiryPriority(*input.Priority) {
		return nil, apperrors.NewValidationError("priority must be one of: low, medium, high", nil)
	}

	applyUpdate(enquiry, input)

	if err := s.enquiries.Update(ctx, enquiry); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return enquiry, nil
}

// Delete soft-deletes an enquiry. Admin only. Deleting an id that is missing
// or already deleted yields NotFound; the row itself is never removed.
func (s *EnquiryService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.CanDelete(actor); err != nil {
		return err
	}
	if err := s.enquiries.SoftDelete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("Enquiry")
		}
		return apperrors.ToDomainError(err)
	}
	return nil
}

// Stats aggregates non-deleted enquiries by status within the actor's scope.
func (s *EnquiryService) Stats(ctx context.Context, actor policy.Actor) (*EnquiryStats, error) {
	filter := repository.EnquiryFilter{}
	applyScope(&filter, policy.StatsScope(actor))

	byStatus, err := s.enquiries.CountByStatus(ctx, filter)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	total, err := s.enquiries.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return &EnquiryStats{Total: total, ByStatus: byStatus}, nil
}

func (s *EnquiryService) getExisting(ctx context.Context, id string) (*domain.Enquiry, error) {
	enquiry, err := s.enquiries.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("Enquiry")
		}
		return nil, apperrors.ToDomainError(err)
	}
	return enquiry, nil
}

func applyScope(filter *repository.EnquiryFilter, scope policy.Scope) {
	if scope.AssignedTo != nil {
		filter.AssignedTo = scope.AssignedTo
	}
	if scope.CreatedByOrEmail != nil {
		filter.Owner = &repository.OwnerFilter{
			UserID: scope.CreatedByOrEmail.UserID,
			Email:  scope.CreatedByOrEmail.Email,
		}
	}
}

func applyUpdate(enquiry *domain.Enquiry, input EnquiryUpdateInput) {
	present := make(map[string]struct{}, len(input.Keys))
	for _, key := range input.Keys {
		present[key] = struct{}{}
	}
	has := func(key string) bool {
		_, ok := present[key]
		return ok
	}

	if has("customerName") && input.CustomerName != nil {
		enquiry.CustomerName = strings.TrimSpace(*input.CustomerName)
	}
	if has("email") && input.Email != nil {
		enquiry.Email = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if has("phone") && input.Phone != nil {
		enquiry.Phone = strings.TrimSpace(*input.Phone)
	}
	if has("message") && input.Message != nil {
		enquiry.Message = strings.TrimSpace(*input.Message)
	}
	if has("status") && input.Status != nil {
		enquiry.Status = *input.Status
	}
	if has("priority") && input.Priority != nil {
		enquiry.Priority = *input.Priority
	}
	if has("assignedTo") {
		// an explicit null or empty string clears the assignment
		if input.AssignedTo == nil || strings.TrimSpace(*input.AssignedTo) == "" {
			enquiry.AssignedTo = nil
		} else {
			enquiry.AssignedTo = input.AssignedTo
		}
	}
}

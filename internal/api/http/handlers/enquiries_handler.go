package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/shaileshgontewar/crm-server/internal/api/dto"
	"github.com/shaileshgontewar/crm-server/internal/auth"
	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/policy"
	"github.com/shaileshgontewar/crm-server/internal/service"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// EnquiriesHandler exposes the enquiry endpoints.
type EnquiriesHandler struct {
	service *service.EnquiryService
}

// NewEnquiriesHandler constructs the handler.
func NewEnquiriesHandler(enquiryService *service.EnquiryService) *EnquiriesHandler {
	return &EnquiriesHandler{service: enquiryService}
}

// CreatePublic handles POST /api/enquiries/public (no authentication).
func (h *EnquiriesHandler) CreatePublic(c *fiber.Ctx) error {
	input, err := parseCreateEnquiry(c)
	if err != nil {
		return err
	}

	enquiry, err := h.service.Create(c.UserContext(), policy.Anonymous(), input)
	if err != nil {
		return err
	}
	return respondDataMessage(c, http.StatusCreated,
		"Your enquiry has been submitted successfully. We will contact you soon.",
		dto.NewEnquiryResponse(enquiry))
}

// Create handles POST /api/enquiries.
func (h *EnquiriesHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}
	input, err := parseCreateEnquiry(c)
	if err != nil {
		return err
	}

	enquiry, err := h.service.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, dto.NewEnquiryResponse(enquiry))
}

// List handles GET /api/enquiries.
func (h *EnquiriesHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	query := service.EnquiryListQuery{
		Status: c.Query("status"),
		Search: c.Query("search"),
		SortBy: c.Query("sortBy", "createdAt"),
		Page:   parsePositiveInt(c.Query("page"), 1),
		Limit:  parsePositiveInt(c.Query("limit"), 10),
	}

	enquiries, pagination, err := h.service.List(c.UserContext(), actor, query)
	if err != nil {
		return err
	}

	items := make([]dto.EnquiryResponse, 0, len(enquiries))
	for i := range enquiries {
		items = append(items, dto.NewEnquiryResponse(&enquiries[i]))
	}
	return respondData(c, http.StatusOK, fiber.Map{
		"enquiries":  items,
		"pagination": pagination,
	})
}

// Get handles GET /api/enquiries/:id.
func (h *EnquiriesHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	enquiry, err := h.service.Get(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, dto.NewEnquiryResponse(enquiry))
}

// Update handles PUT /api/enquiries/:id.
func (h *EnquiriesHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	var req dto.UpdateEnquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	keys, err := bodyKeys(c)
	if err != nil {
		return err
	}

	input := service.EnquiryUpdateInput{
		Keys:         keys,
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		AssignedTo:   req.AssignedTo,
	}
	if req.Status != nil {
		status := domain.EnquiryStatus(*req.Status)
		input.Status = &status
	}
	if req.Priority != nil {
		priority := domain.EnquiryPriority(*req.Priority)
		input.Priority = &priority
	}

	enquiry, err := h.service.Update(c.UserContext(), actor, c.Params("id"), input)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, dto.NewEnquiryResponse(enquiry))
}

// Delete handles DELETE /api/enquiries/:id (admin only, soft delete).
func (h *EnquiriesHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "Enquiry deleted successfully")
}

// Stats handles GET /api/enquiries/stats.
func (h *EnquiriesHandler) Stats(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, stats)
}

func parseCreateEnquiry(c *fiber.Ctx) (service.EnquiryCreateInput, error) {
	var req dto.CreateEnquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return service.EnquiryCreateInput{}, apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return service.EnquiryCreateInput{}, err
	}

	return service.EnquiryCreateInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		Status:       domain.EnquiryStatus(req.Status),
		Priority:     domain.EnquiryPriority(req.Priority),
		AssignedTo:   req.AssignedTo,
	}, nil
}

func actorFromRequest(c *fiber.Ctx) (policy.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return policy.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Actor(), nil
}

// bodyKeys returns the top-level JSON keys present in the request body. The
// staff update whitelist is evaluated against this set, not against parsed
// struct fields, so unknown keys are visible to the policy.
func bodyKeys(c *fiber.Ctx) ([]string, error) {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	return keys, nil
}

func parsePositiveInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

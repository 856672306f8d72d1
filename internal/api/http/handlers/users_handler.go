package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/shaileshgontewar/crm-server/internal/api/dto"
	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/service"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// UsersHandler exposes the admin account management endpoints plus the staff
// listing used for enquiry assignment.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs the handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	query := service.UserListQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Page:   parsePositiveInt(c.Query("page"), 1),
		Limit:  parsePositiveInt(c.Query("limit"), 10),
	}

	users, pagination, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return respondData(c, http.StatusOK, fiber.Map{
		"users":      items,
		"pagination": pagination,
	})
}

// ListStaff handles GET /api/users/staff/list.
func (h *UsersHandler) ListStaff(c *fiber.Ctx) error {
	users, err := h.service.ListStaff(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return respondData(c, http.StatusOK, items)
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, dto.NewUserResponse(user))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.Create(c.UserContext(), service.UserCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return respondData(c, http.StatusCreated, dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	input := service.UserUpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		input.Role = &role
	}

	user, err := h.service.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return respondData(c, http.StatusOK, dto.NewUserResponse(user))
}

// Delete handles DELETE /api/users/:id. Accounts are deactivated, not removed.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Deactivate(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "User deleted successfully")
}

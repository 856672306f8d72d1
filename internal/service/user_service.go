package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/shaileshgontewar/crm-server/internal/auth"
	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/repository"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// UserService implements the admin-only account CRUD plus the staff listing
// used when assigning enquiries.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost, logger: logger}
}

// UserCreateInput describes an admin-created account.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// UserUpdateInput carries a partial account update.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Role     *domain.Role
	IsActive *bool
}

// UserListQuery describes listing filters.
type UserListQuery struct {
	Role   string
	Search string
	Page   int
	Limit  int
}

// Create registers a new account with an explicit role. Emails are stored
// lowercase, matching the normalization applied to enquiry emails.
func (s *UserService) Create(ctx context.Context, input UserCreateInput) (*domain.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered")
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.ToDomainError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return user, nil
}

// Get returns one account by id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.ToDomainError(err)
	}
	return user, nil
}

// List returns a page of accounts.
func (s *UserService) List(ctx context.Context, query UserListQuery) ([]domain.User, Pagination, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 10
	}

	filter := repository.UserFilter{
		Search: query.Search,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if query.Role != "" && query.Role != "all" {
		filter.Roles = []domain.Role{domain.Role(query.Role)}
	}

	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, Pagination{}, apperrors.ToDomainError(err)
	}
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, Pagination{}, apperrors.ToDomainError(err)
	}

	pagination := Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: (total + int64(limit) - 1) / int64(limit),
	}
	return users, pagination, nil
}

// ListStaff returns active accounts that can carry enquiry assignments,
// meaning role staff or admin.
func (s *UserService) ListStaff(ctx context.Context) ([]domain.User, error) {
	active := true
	users, err := s.users.List(ctx, repository.UserFilter{
		Roles:    []domain.Role{domain.RoleStaff, domain.RoleAdmin},
		IsActive: &active,
		Limit:    200,
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return users, nil
}

// Update applies a partial account update.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("email already registered")
			} else if !apperrors.IsNotFound(err) {
				return nil, apperrors.ToDomainError(err)
			}
			user.Email = email
		}
	}
	if input.Role != nil {
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.users.Update(ctx, user); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("User")
		}
		return nil, apperrors.ToDomainError(err)
	}
	return user, nil
}

// Deactivate disables an account. Accounts are retained, mirroring the soft
// treatment of enquiries.
func (s *UserService) Deactivate(ctx context.Context, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	user.IsActive = false
	if err := s.users.Update(ctx, user); err != nil {
		return apperrors.ToDomainError(err)
	}
	return nil
}

// EnsureInitialAdmin creates the bootstrap admin account when no admin exists.
func (s *UserService) EnsureInitialAdmin(ctx context.Context, name, email, password string) error {
	exists, err := s.users.ExistsByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if _, err := s.Create(ctx, UserCreateInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     domain.RoleAdmin,
	}); err != nil {
		return err
	}
	s.logger.Info("initial admin user created", zap.String("email", email))
	return nil
}

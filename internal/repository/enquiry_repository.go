package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaileshgontewar/crm-server/internal/domain"
)

// OwnerFilter matches enquiries created by a user or submitted with its email.
type OwnerFilter struct {
	UserID string
	Email  string
}

// EnquiryFilter captures listing parameters. Scope fields (AssignedTo, Owner)
// come from the access policy; the rest are caller filters.
type EnquiryFilter struct {
	AssignedTo *string
	Owner      *OwnerFilter
	Status     *domain.EnquiryStatus
	Search     string
	SortBy     string
	Limit      int
	Offset     int
}

// EnquiryRepository encapsulates enquiry persistence. Every read excludes
// soft-deleted rows; callers cannot opt out of that predicate.
type EnquiryRepository interface {
	Create(ctx context.Context, enquiry *domain.Enquiry) error
	Update(ctx context.Context, enquiry *domain.Enquiry) error
	GetByID(ctx context.Context, id string) (*domain.Enquiry, error)
	List(ctx context.Context, filter EnquiryFilter) ([]domain.Enquiry, error)
	Count(ctx context.Context, filter EnquiryFilter) (int64, error)
	CountByStatus(ctx context.Context, filter EnquiryFilter) (map[domain.EnquiryStatus]int64, error)
	SoftDelete(ctx context.Context, id string) error
}

type enquiryRepository struct {
	pool *pgxpool.Pool
}

// NewEnquiryRepository instantiates the repository.
func NewEnquiryRepository(pool *pgxpool.Pool) EnquiryRepository {
	return &enquiryRepository{pool: pool}
}

const enquiryColumns = `id, customer_name, email, phone, message, status, priority,
               assigned_to, created_by, is_deleted, deleted_at, created_at, updated_at`

func (r *enquiryRepository) Create(ctx context.Context, enquiry *domain.Enquiry) error {
	const query = `
        INSERT INTO enquiries (id, customer_name, email, phone, message, status, priority, assigned_to, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		enquiry.ID,
		enquiry.CustomerName,
		enquiry.Email,
		enquiry.Phone,
		enquiry.Message,
		enquiry.Status,
		enquiry.Priority,
		enquiry.AssignedTo,
		enquiry.CreatedBy,
	).Scan(&enquiry.CreatedAt, &enquiry.UpdatedAt)
}

func (r *enquiryRepository) Update(ctx context.Context, enquiry *domain.Enquiry) error {
	const query = `
        UPDATE enquiries SET customer_name=$1, email=$2, phone=$3, message=$4,
            status=$5, priority=$6, assigned_to=$7, updated_at=NOW()
        WHERE id=$8 AND is_deleted=FALSE
        RETURNING updated_at`
	if err := r.pool.QueryRow(ctx, query,
		enquiry.CustomerName,
		enquiry.Email,
		enquiry.Phone,
		enquiry.Message,
		enquiry.Status,
		enquiry.Priority,
		enquiry.AssignedTo,
		enquiry.ID,
	).Scan(&enquiry.UpdatedAt); err != nil {
		return err
	}
	return nil
}

func (r *enquiryRepository) GetByID(ctx context.Context, id string) (*domain.Enquiry, error) {
	query := fmt.Sprintf(`SELECT %s FROM enquiries WHERE id=$1 AND is_deleted=FALSE`, enquiryColumns)

	var enquiry domain.Enquiry
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&enquiry.ID,
		&enquiry.CustomerName,
		&enquiry.Email,
		&enquiry.Phone,
		&enquiry.Message,
		&enquiry.Status,
		&enquiry.Priority,
		&enquiry.AssignedTo,
		&enquiry.CreatedBy,
		&enquiry.IsDeleted,
		&enquiry.DeletedAt,
		&enquiry.CreatedAt,
		&enquiry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// sortColumns whitelists caller-supplied sort keys. Unknown keys fall back to
// createdAt. Sorting is always descending.
var sortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"status":       "status",
	"priority":     "priority",
	"customerName": "customer_name",
}

func (r *enquiryRepository) List(ctx context.Context, filter EnquiryFilter) ([]domain.Enquiry, error) {
	clauses, args := buildEnquiryClauses(filter)

	sortCol, ok := sortColumns[filter.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM enquiries WHERE %s ORDER BY %s DESC LIMIT %d OFFSET %d`,
		enquiryColumns, strings.Join(clauses, " AND "), sortCol, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEnquiries(rows)
}

func (r *enquiryRepository) Count(ctx context.Context, filter EnquiryFilter) (int64, error) {
	clauses, args := buildEnquiryClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM enquiries WHERE %s`, strings.Join(clauses, " AND "))

	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountByStatus groups non-deleted enquiries in scope by status. Statuses with
// no matching rows are absent from the result, not zero-filled.
func (r *enquiryRepository) CountByStatus(ctx context.Context, filter EnquiryFilter) (map[domain.EnquiryStatus]int64, error) {
	clauses, args := buildEnquiryClauses(filter)
	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM enquiries WHERE %s GROUP BY status`,
		strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.EnquiryStatus]int64)
	for rows.Next() {
		var status domain.EnquiryStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// SoftDelete marks the enquiry deleted. A row that is missing or already
// deleted yields pgx.ErrNoRows, so repeat deletes surface as not found.
func (r *enquiryRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
        UPDATE enquiries SET is_deleted=TRUE, deleted_at=NOW(), updated_at=NOW()
        WHERE id=$1 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func buildEnquiryClauses(filter EnquiryFilter) ([]string, []any) {
	clauses := []string{"is_deleted=FALSE"}
	args := []any{}

	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Owner != nil {
		args = append(args, filter.Owner.UserID)
		createdBy := fmt.Sprintf("$%d", len(args))
		args = append(args, filter.Owner.Email)
		email := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(created_by=%s OR email=%s)", createdBy, email))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if strings.TrimSpace(filter.Search) != "" {
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(customer_name ILIKE %s OR email ILIKE %s OR phone ILIKE %s)",
			placeholder, placeholder, placeholder))
	}
	return clauses, args
}

func scanEnquiries(rows pgx.Rows) ([]domain.Enquiry, error) {
	var result []domain.Enquiry
	for rows.Next() {
		var enquiry domain.Enquiry
		if err := rows.Scan(
			&enquiry.ID,
			&enquiry.CustomerName,
			&enquiry.Email,
			&enquiry.Phone,
			&enquiry.Message,
			&enquiry.Status,
			&enquiry.Priority,
			&enquiry.AssignedTo,
			&enquiry.CreatedBy,
			&enquiry.IsDeleted,
			&enquiry.DeletedAt,
			&enquiry.CreatedAt,
			&enquiry.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, enquiry)
	}
	return result, rows.Err()
}

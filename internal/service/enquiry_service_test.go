package service

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaileshgontewar/crm-server/internal/domain"
	"github.com/shaileshgontewar/crm-server/internal/policy"
	"github.com/shaileshgontewar/crm-server/internal/repository"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// fakeEnquiryRepo mirrors the SQL repository's filtering semantics in memory
// so listing, scoping and soft-delete behaviour can be tested end to end.
type fakeEnquiryRepo struct {
	items map[string]*domain.Enquiry
	seq   int
	base  time.Time
}

func newFakeEnquiryRepo() *fakeEnquiryRepo {
	return &fakeEnquiryRepo{
		items: make(map[string]*domain.Enquiry),
		base:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeEnquiryRepo) Create(_ context.Context, enquiry *domain.Enquiry) error {
	r.seq++
	enquiry.CreatedAt = r.base.Add(time.Duration(r.seq) * time.Minute)
	enquiry.UpdatedAt = enquiry.CreatedAt
	copied := *enquiry
	r.items[enquiry.ID] = &copied
	return nil
}

func (r *fakeEnquiryRepo) Update(_ context.Context, enquiry *domain.Enquiry) error {
	existing, ok := r.items[enquiry.ID]
	if !ok || existing.IsDeleted {
		return pgx.ErrNoRows
	}
	enquiry.UpdatedAt = time.Now()
	copied := *enquiry
	r.items[enquiry.ID] = &copied
	return nil
}

func (r *fakeEnquiryRepo) GetByID(_ context.Context, id string) (*domain.Enquiry, error) {
	existing, ok := r.items[id]
	if !ok || existing.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	copied := *existing
	return &copied, nil
}

func (r *fakeEnquiryRepo) List(_ context.Context, filter repository.EnquiryFilter) ([]domain.Enquiry, error) {
	var matched []domain.Enquiry
	for _, item := range r.items {
		if r.matches(item, filter) {
			matched = append(matched, *item)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := filter.Offset
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + filter.Limit
	if filter.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *fakeEnquiryRepo) Count(_ context.Context, filter repository.EnquiryFilter) (int64, error) {
	var total int64
	for _, item := range r.items {
		if r.matches(item, filter) {
			total++
		}
	}
	return total, nil
}

func (r *fakeEnquiryRepo) CountByStatus(_ context.Context, filter repository.EnquiryFilter) (map[domain.EnquiryStatus]int64, error) {
	counts := make(map[domain.EnquiryStatus]int64)
	for _, item := range r.items {
		if r.matches(item, filter) {
			counts[item.Status]++
		}
	}
	return counts, nil
}

func (r *fakeEnquiryRepo) SoftDelete(_ context.Context, id string) error {
	existing, ok := r.items[id]
	if !ok || existing.IsDeleted {
		return pgx.ErrNoRows
	}
	now := time.Now()
	existing.IsDeleted = true
	existing.DeletedAt = &now
	return nil
}

func (r *fakeEnquiryRepo) matches(e *domain.Enquiry, filter repository.EnquiryFilter) bool {
	if e.IsDeleted {
		return false
	}
	if filter.AssignedTo != nil {
		if e.AssignedTo == nil || *e.AssignedTo != *filter.AssignedTo {
			return false
		}
	}
	if filter.Owner != nil {
		createdByMatch := e.CreatedBy != nil && *e.CreatedBy == filter.Owner.UserID
		emailMatch := e.Email == filter.Owner.Email
		if !createdByMatch && !emailMatch {
			return false
		}
	}
	if filter.Status != nil && e.Status != *filter.Status {
		return false
	}
	if strings.TrimSpace(filter.Search) != "" {
		needle := strings.ToLower(strings.TrimSpace(filter.Search))
		if !strings.Contains(strings.ToLower(e.CustomerName), needle) &&
			!strings.Contains(strings.ToLower(e.Email), needle) &&
			!strings.Contains(e.Phone, needle) {
			return false
		}
	}
	return true
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, status, apperrors.ToDomainError(err).HTTPStatus)
}

func newTestService() (*EnquiryService, *fakeEnquiryRepo) {
	repo := newFakeEnquiryRepo()
	return NewEnquiryService(repo), repo
}

func validInput(name string) EnquiryCreateInput {
	return EnquiryCreateInput{
		CustomerName: name,
		Email:        strings.ToLower(name) + "@example.com",
		Phone:        "1234567890",
		Message:      "I would like to know more about your offering.",
	}
}

func TestCreateAnonymousForcesNewStatus(t *testing.T) {
	svc, _ := newTestService()

	input := validInput("Alice")
	input.Status = domain.EnquiryStatusClosed // must not survive

	enquiry, err := svc.Create(context.Background(), policy.Anonymous(), input)
	require.NoError(t, err)

	assert.Equal(t, domain.EnquiryStatusNew, enquiry.Status)
	assert.Nil(t, enquiry.CreatedBy)
	assert.Equal(t, domain.EnquiryPriorityMedium, enquiry.Priority)
	assert.NotEmpty(t, enquiry.ID)
}

func TestCreateAuthenticatedRecordsCreator(t *testing.T) {
	svc, _ := newTestService()

	input := validInput("Bob")
	input.Status = domain.EnquiryStatusInProgress

	enquiry, err := svc.Create(context.Background(), policy.User("u1", "bob@example.com"), input)
	require.NoError(t, err)

	require.NotNil(t, enquiry.CreatedBy)
	assert.Equal(t, "u1", *enquiry.CreatedBy)
	assert.Equal(t, domain.EnquiryStatusInProgress, enquiry.Status)
}

func TestListPagination(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, policy.Admin("a1"), validInput(fmt.Sprintf("Customer%02d", i)))
		require.NoError(t, err)
	}

	enquiries, pagination, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, enquiries, 10)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 10, pagination.Limit)
	assert.Equal(t, int64(25), pagination.Total)
	assert.Equal(t, int64(3), pagination.Pages)

	// newest first: page 2 holds records 11-20 counting from the latest
	assert.Equal(t, "Customer14", enquiries[0].CustomerName)
	assert.Equal(t, "Customer05", enquiries[9].CustomerName)
}

func TestListDefaultsPageAndLimit(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.Create(ctx, policy.Admin("a1"), validInput(fmt.Sprintf("Customer%02d", i)))
		require.NoError(t, err)
	}

	enquiries, pagination, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{})
	require.NoError(t, err)
	assert.Len(t, enquiries, 10)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, int64(2), pagination.Pages)
}

func TestListStaffScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	mine := validInput("Mine")
	mine.AssignedTo = strPtr("s1")
	_, err := svc.Create(ctx, policy.Admin("a1"), mine)
	require.NoError(t, err)

	other := validInput("Other")
	other.AssignedTo = strPtr("s2")
	_, err = svc.Create(ctx, policy.Admin("a1"), other)
	require.NoError(t, err)

	_, err = svc.Create(ctx, policy.Admin("a1"), validInput("Unassigned"))
	require.NoError(t, err)

	enquiries, pagination, err := svc.List(ctx, policy.Staff("s1"), EnquiryListQuery{})
	require.NoError(t, err)

	require.Len(t, enquiries, 1)
	assert.Equal(t, "Mine", enquiries[0].CustomerName)
	assert.Equal(t, int64(1), pagination.Total)
}

func TestListUserScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	// created by the user
	_, err := svc.Create(ctx, policy.User("u1", "carol@example.com"), validInput("OwnRecord"))
	require.NoError(t, err)

	// submitted publicly with the user's email
	publicOwn := validInput("PublicOwn")
	publicOwn.Email = "carol@example.com"
	_, err = svc.Create(ctx, policy.Anonymous(), publicOwn)
	require.NoError(t, err)

	// someone else's enquiry
	_, err = svc.Create(ctx, policy.User("u2", "dave@example.com"), validInput("Foreign"))
	require.NoError(t, err)

	enquiries, _, err := svc.List(ctx, policy.User("u1", "carol@example.com"), EnquiryListQuery{})
	require.NoError(t, err)

	require.Len(t, enquiries, 2)
	for _, e := range enquiries {
		ownedByID := e.CreatedBy != nil && *e.CreatedBy == "u1"
		ownedByEmail := e.Email == "carol@example.com"
		assert.True(t, ownedByID || ownedByEmail)
	}
}

func TestListStatusAndSearchFilters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	closed := validInput("ClosedOne")
	closed.Status = domain.EnquiryStatusClosed
	_, err := svc.Create(ctx, policy.Admin("a1"), closed)
	require.NoError(t, err)

	_, err = svc.Create(ctx, policy.Admin("a1"), validInput("FreshOne"))
	require.NoError(t, err)

	byStatus, _, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{Status: "closed"})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "ClosedOne", byStatus[0].CustomerName)

	// "all" disables the status filter
	all, _, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{Status: "all"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// case-insensitive substring search
	found, _, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{Search: "freshone"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "FreshOne", found[0].CustomerName)
}

func TestGetDistinguishesForbiddenFromNotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := validInput("Assigned")
	input.AssignedTo = strPtr("s1")
	created, err := svc.Create(ctx, policy.Admin("a1"), input)
	require.NoError(t, err)

	// assigned staff may read it
	got, err := svc.Get(ctx, policy.Staff("s1"), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	// out-of-scope staff gets 403: the record's existence is observable
	requireStatus(t, errFromGet(svc.Get(ctx, policy.Staff("s2"), created.ID)), http.StatusForbidden)

	// a missing id is 404
	requireStatus(t, errFromGet(svc.Get(ctx, policy.Staff("s2"), "missing")), http.StatusNotFound)
}

func errFromGet(_ *domain.Enquiry, err error) error { return err }

func TestUpdateStaffWhitelist(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := validInput("Target")
	input.AssignedTo = strPtr("s1")
	created, err := svc.Create(ctx, policy.Admin("a1"), input)
	require.NoError(t, err)

	// staff updating status and message succeeds
	status := domain.EnquiryStatusClosed
	message := "Resolved after a phone call with the customer."
	updated, err := svc.Update(ctx, policy.Staff("s1"), created.ID, EnquiryUpdateInput{
		Keys:    []string{"status", "message"},
		Status:  &status,
		Message: &message,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EnquiryStatusClosed, updated.Status)
	assert.Equal(t, message, updated.Message)

	// staff touching assignedTo fails whole request, record unchanged
	_, err = svc.Update(ctx, policy.Staff("s1"), created.ID, EnquiryUpdateInput{
		Keys:       []string{"assignedTo"},
		AssignedTo: strPtr("s2"),
	})
	requireStatus(t, err, http.StatusBadRequest)

	current, err := svc.Get(ctx, policy.Staff("s1"), created.ID)
	require.NoError(t, err)
	require.NotNil(t, current.AssignedTo)
	assert.Equal(t, "s1", *current.AssignedTo)
}

func TestUpdateStaffOutOfScope(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := validInput("Elsewhere")
	input.AssignedTo = strPtr("s2")
	created, err := svc.Create(ctx, policy.Admin("a1"), input)
	require.NoError(t, err)

	status := domain.EnquiryStatusClosed
	_, err = svc.Update(ctx, policy.Staff("s1"), created.ID, EnquiryUpdateInput{
		Keys:   []string{"status"},
		Status: &status,
	})
	requireStatus(t, err, http.StatusForbidden)
}

func TestUpdateAdminReassigns(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, policy.Admin("a1"), validInput("Reassign"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, policy.Admin("a1"), created.ID, EnquiryUpdateInput{
		Keys:       []string{"assignedTo"},
		AssignedTo: strPtr("s1"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "s1", *updated.AssignedTo)

	// explicit empty value clears the assignment
	cleared, err := svc.Update(ctx, policy.Admin("a1"), created.ID, EnquiryUpdateInput{
		Keys: []string{"assignedTo"},
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
}

func TestDeleteSoftAndIdempotentInEffect(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, policy.Admin("a1"), validInput("Doomed"))
	require.NoError(t, err)

	// only admin may delete
	requireStatus(t, svc.Delete(ctx, policy.Staff("s1"), created.ID), http.StatusForbidden)
	requireStatus(t, svc.Delete(ctx, policy.User("u1", "u@x.com"), created.ID), http.StatusForbidden)

	require.NoError(t, svc.Delete(ctx, policy.Admin("a1"), created.ID))

	// gone from every read path
	_, err = svc.Get(ctx, policy.Admin("a1"), created.ID)
	requireStatus(t, err, http.StatusNotFound)
	enquiries, _, err := svc.List(ctx, policy.Admin("a1"), EnquiryListQuery{})
	require.NoError(t, err)
	assert.Empty(t, enquiries)

	// second delete is 404, the row itself survives with the tombstone set
	requireStatus(t, svc.Delete(ctx, policy.Admin("a1"), created.ID), http.StatusNotFound)
	stored := repo.items[created.ID]
	require.NotNil(t, stored)
	assert.True(t, stored.IsDeleted)
	assert.NotNil(t, stored.DeletedAt)
}

func TestStatsOmitsEmptyStatusesAndScopes(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := validInput(fmt.Sprintf("New%d", i))
		input.AssignedTo = strPtr("s1")
		_, err := svc.Create(ctx, policy.Admin("a1"), input)
		require.NoError(t, err)
	}
	progressing := validInput("Progressing")
	progressing.Status = domain.EnquiryStatusInProgress
	_, err := svc.Create(ctx, policy.Admin("a1"), progressing)
	require.NoError(t, err)

	admin, err := svc.Stats(ctx, policy.Admin("a1"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), admin.Total)
	assert.Equal(t, int64(3), admin.ByStatus[domain.EnquiryStatusNew])
	assert.Equal(t, int64(1), admin.ByStatus[domain.EnquiryStatusInProgress])
	_, hasClosed := admin.ByStatus[domain.EnquiryStatusClosed]
	assert.False(t, hasClosed, "zero-count statuses must be omitted, not zero-filled")

	// staff sees only its assigned slice
	staff, err := svc.Stats(ctx, policy.Staff("s1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), staff.Total)
	assert.Equal(t, int64(3), staff.ByStatus[domain.EnquiryStatusNew])
	_, hasProgress := staff.ByStatus[domain.EnquiryStatusInProgress]
	assert.False(t, hasProgress)
}

func TestCreateAndUpdateRejectUnknownEnumValues(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	input := validInput("Alice")
	input.Status = domain.EnquiryStatus("resolved")
	_, err := svc.Create(ctx, policy.Admin("a1"), input)
	requireStatus(t, err, 400)

	created, err := svc.Create(ctx, policy.Admin("a1"), validInput("Alice"))
	require.NoError(t, err)

	badPriority := domain.EnquiryPriority("urgent")
	_, err = svc.Update(ctx, policy.Admin("a1"), created.ID, EnquiryUpdateInput{
		Keys:     []string{"priority"},
		Priority: &badPriority,
	})
	requireStatus(t, err, 400)

	unchanged, err := svc.Get(ctx, policy.Admin("a1"), created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EnquiryPriorityMedium, unchanged.Priority)
}

func TestStatsUserSeesFullAggregate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, policy.User("u1", "u1@example.com"), validInput("Mine"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, policy.User("u2", "u2@example.com"), validInput("Theirs"))
	require.NoError(t, err)

	// stats are not narrowed for the user role, unlike listings
	stats, err := svc.Stats(ctx, policy.User("u1", "u1@example.com"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[domain.EnquiryStatusNew])
}

func TestSoftDeletedExcludedFromStats(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, policy.Admin("a1"), validInput("Ghost"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, policy.Admin("a1"), created.ID))

	stats, err := svc.Stats(ctx, policy.Admin("a1"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Total)
	assert.Empty(t, stats.ByStatus)
}

func strPtr(s string) *string { return &s }

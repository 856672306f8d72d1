package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaileshgontewar/crm-server/internal/domain"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

func strPtr(s string) *string { return &s }

func domainStatus(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	return domainErr.HTTPStatus
}

func TestFromRole(t *testing.T) {
	assert.Equal(t, ActorAdmin, FromRole(domain.RoleAdmin, "a1", "a@x.com").Kind)
	assert.Equal(t, ActorStaff, FromRole(domain.RoleStaff, "s1", "s@x.com").Kind)

	user := FromRole(domain.RoleUser, "u1", "u@x.com")
	assert.Equal(t, ActorUser, user.Kind)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "u@x.com", user.Email)
}

func TestListScope(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		check func(t *testing.T, scope Scope)
	}{
		{
			name:  "admin is unrestricted",
			actor: Admin("a1"),
			check: func(t *testing.T, scope Scope) {
				assert.Nil(t, scope.AssignedTo)
				assert.Nil(t, scope.CreatedByOrEmail)
			},
		},
		{
			name:  "anonymous is unrestricted",
			actor: Anonymous(),
			check: func(t *testing.T, scope Scope) {
				assert.Nil(t, scope.AssignedTo)
				assert.Nil(t, scope.CreatedByOrEmail)
			},
		},
		{
			name:  "staff is restricted to own assignments",
			actor: Staff("s1"),
			check: func(t *testing.T, scope Scope) {
				require.NotNil(t, scope.AssignedTo)
				assert.Equal(t, "s1", *scope.AssignedTo)
				assert.Nil(t, scope.CreatedByOrEmail)
			},
		},
		{
			name:  "user is restricted to own records or email",
			actor: User("u1", "u@x.com"),
			check: func(t *testing.T, scope Scope) {
				assert.Nil(t, scope.AssignedTo)
				require.NotNil(t, scope.CreatedByOrEmail)
				assert.Equal(t, "u1", scope.CreatedByOrEmail.UserID)
				assert.Equal(t, "u@x.com", scope.CreatedByOrEmail.Email)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ListScope(tt.actor))
		})
	}
}

func TestStatsScope(t *testing.T) {
	// only staff is narrowed for stats; a user-role actor aggregates over
	// everything even though its listings are scoped
	staff := StatsScope(Staff("s1"))
	require.NotNil(t, staff.AssignedTo)
	assert.Equal(t, "s1", *staff.AssignedTo)

	user := StatsScope(User("u1", "u@x.com"))
	assert.Nil(t, user.AssignedTo)
	assert.Nil(t, user.CreatedByOrEmail)

	admin := StatsScope(Admin("a1"))
	assert.Nil(t, admin.AssignedTo)
	assert.Nil(t, admin.CreatedByOrEmail)
}

func TestCanView(t *testing.T) {
	assigned := &domain.Enquiry{ID: "e1", AssignedTo: strPtr("s1")}
	unassigned := &domain.Enquiry{ID: "e2"}

	// staff may view only its own assignments; the denial is 403, not 404
	assert.NoError(t, CanView(Staff("s1"), assigned))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanView(Staff("s2"), assigned)))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanView(Staff("s1"), unassigned)))

	// admin and user roles have no single-read restriction
	assert.NoError(t, CanView(Admin("a1"), assigned))
	assert.NoError(t, CanView(User("u1", "u@x.com"), assigned))
}

func TestCanUpdate(t *testing.T) {
	enquiry := &domain.Enquiry{ID: "e1", AssignedTo: strPtr("s1")}

	assert.NoError(t, CanUpdate(Staff("s1"), enquiry))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanUpdate(Staff("s2"), enquiry)))
	assert.NoError(t, CanUpdate(Admin("a1"), enquiry))
	assert.NoError(t, CanUpdate(User("u1", "u@x.com"), enquiry))
}

func TestCanDelete(t *testing.T) {
	assert.NoError(t, CanDelete(Admin("a1")))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanDelete(Staff("s1"))))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanDelete(User("u1", "u@x.com"))))
	assert.Equal(t, http.StatusForbidden, domainStatus(t, CanDelete(Anonymous())))
}

func TestCheckUpdateKeys(t *testing.T) {
	tests := []struct {
		name       string
		actor      Actor
		keys       []string
		wantStatus int
	}{
		{name: "staff status and message allowed", actor: Staff("s1"), keys: []string{"status", "message"}},
		{name: "staff status alone allowed", actor: Staff("s1"), keys: []string{"status"}},
		{name: "staff reassignment rejected", actor: Staff("s1"), keys: []string{"assignedTo"}, wantStatus: http.StatusBadRequest},
		{name: "staff mixed payload rejected whole", actor: Staff("s1"), keys: []string{"status", "priority"}, wantStatus: http.StatusBadRequest},
		{name: "staff unknown key rejected", actor: Staff("s1"), keys: []string{"bogus"}, wantStatus: http.StatusBadRequest},
		{name: "admin unrestricted", actor: Admin("a1"), keys: []string{"assignedTo", "priority", "bogus"}},
		{name: "user unrestricted here", actor: User("u1", "u@x.com"), keys: []string{"assignedTo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckUpdateKeys(tt.actor, tt.keys)
			if tt.wantStatus == 0 {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantStatus, domainStatus(t, err))
			}
		})
	}
}

func TestCreateDefaults(t *testing.T) {
	t.Run("anonymous forces new status and no creator", func(t *testing.T) {
		enquiry := &domain.Enquiry{
			Status:    domain.EnquiryStatusClosed, // supplied by payload, must be overridden
			CreatedBy: strPtr("sneaky"),
		}
		CreateDefaults(Anonymous(), enquiry)

		assert.Equal(t, domain.EnquiryStatusNew, enquiry.Status)
		assert.Nil(t, enquiry.CreatedBy)
		assert.Equal(t, domain.EnquiryPriorityMedium, enquiry.Priority)
	})

	t.Run("authenticated creator recorded, status honoured", func(t *testing.T) {
		enquiry := &domain.Enquiry{Status: domain.EnquiryStatusInProgress}
		CreateDefaults(Staff("s1"), enquiry)

		require.NotNil(t, enquiry.CreatedBy)
		assert.Equal(t, "s1", *enquiry.CreatedBy)
		assert.Equal(t, domain.EnquiryStatusInProgress, enquiry.Status)
	})

	t.Run("empty status and priority get defaults", func(t *testing.T) {
		enquiry := &domain.Enquiry{}
		CreateDefaults(User("u1", "u@x.com"), enquiry)

		assert.Equal(t, domain.EnquiryStatusNew, enquiry.Status)
		assert.Equal(t, domain.EnquiryPriorityMedium, enquiry.Priority)
	})
}

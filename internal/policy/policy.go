// Package policy implements the enquiry access rules: which enquiries an actor
// may list, read or mutate, and which fields of an update a role may touch.
//
// Everything here is a pure function of the actor and the target state; the
// surrounding service layer performs the actual fetches and writes.
package policy

import (
	"fmt"

	"github.com/shaileshgontewar/crm-server/internal/domain"
	apperrors "github.com/shaileshgontewar/crm-server/pkg/util"
)

// ActorKind discriminates the closed set of caller variants.
type ActorKind string

const (
	ActorAdmin     ActorKind = "admin"
	ActorStaff     ActorKind = "staff"
	ActorUser      ActorKind = "user"
	ActorAnonymous ActorKind = "anonymous"
)

// Actor is the caller identity the policy operates on. ID and Email are empty
// for Anonymous; Email is only consulted for the user variant.
type Actor struct {
	Kind  ActorKind
	ID    string
	Email string
}

// Admin builds an admin actor.
func Admin(id string) Actor {
	return Actor{Kind: ActorAdmin, ID: id}
}

// Staff builds a staff actor scoped to its own assignments.
func Staff(id string) Actor {
	return Actor{Kind: ActorStaff, ID: id}
}

// User builds an end-user actor scoped to enquiries it created or that carry
// its email address.
func User(id, email string) Actor {
	return Actor{Kind: ActorUser, ID: id, Email: email}
}

// Anonymous is the unauthenticated public-submission actor.
func Anonymous() Actor {
	return Actor{Kind: ActorAnonymous}
}

// FromRole maps an authenticated account to its policy actor.
func FromRole(role domain.Role, id, email string) Actor {
	switch role {
	case domain.RoleAdmin:
		return Admin(id)
	case domain.RoleStaff:
		return Staff(id)
	default:
		return User(id, email)
	}
}

// Scope restricts which non-deleted enquiries an actor may see. Exactly one of
// the restriction fields is set for staff/user; both are nil for admin.
type Scope struct {
	// AssignedTo limits results to enquiries assigned to this staff id.
	AssignedTo *string
	// CreatedByOrEmail limits results to enquiries the actor created or
	// that were submitted with the actor's email address.
	CreatedByOrEmail *OwnerMatch
}

// OwnerMatch carries the identity pair for the user-role scope predicate.
type OwnerMatch struct {
	UserID string
	Email  string
}

// ListScope returns the visibility predicate for listing and stats queries.
// Soft-deleted records are excluded unconditionally by the repository; the
// scope only narrows within non-deleted rows.
func ListScope(actor Actor) Scope {
	switch actor.Kind {
	case ActorStaff:
		id := actor.ID
		return Scope{AssignedTo: &id}
	case ActorUser:
		return Scope{CreatedByOrEmail: &OwnerMatch{UserID: actor.ID, Email: actor.Email}}
	default:
		return Scope{}
	}
}

// CanView decides single-record read access for an enquiry that exists and is
// not deleted. Staff is denied on enquiries not assigned to it; the denial is
// Forbidden, not NotFound, so existence of out-of-scope records is observable.
func CanView(actor Actor, e *domain.Enquiry) error {
	if actor.Kind == ActorStaff && !assignedTo(e, actor.ID) {
		return apperrors.NewForbidden("not authorized to access this enquiry")
	}
	return nil
}

// CanUpdate decides mutation access, with the same scoping as CanView.
func CanUpdate(actor Actor, e *domain.Enquiry) error {
	if actor.Kind == ActorStaff && !assignedTo(e, actor.ID) {
		return apperrors.NewForbidden("not authorized to update this enquiry")
	}
	return nil
}

// CanDelete restricts deletion (soft) to admins.
func CanDelete(actor Actor) error {
	if actor.Kind != ActorAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// staffUpdatableKeys is the field whitelist applied to staff updates.
var staffUpdatableKeys = map[string]struct{}{
	"status":  {},
	"message": {},
}

// CheckUpdateKeys validates the key set of an update payload before anything
// is written. For staff every present key must be in the whitelist; a single
// disallowed key rejects the whole update. Other roles are unrestricted here
// (unknown keys are simply ignored when the update is applied).
func CheckUpdateKeys(actor Actor, keys []string) error {
	if actor.Kind != ActorStaff {
		return nil
	}
	for _, key := range keys {
		if _, ok := staffUpdatableKeys[key]; !ok {
			return apperrors.NewValidationError(
				"Staff can only update status and message",
				map[string]any{"field": key},
			)
		}
	}
	return nil
}

// CreateDefaults normalises a new enquiry for the given actor. Anonymous
// submissions are forced to status "new" with no creator regardless of the
// payload; authenticated creators are recorded and may supply status and
// assignment freely.
func CreateDefaults(actor Actor, e *domain.Enquiry) {
	if actor.Kind == ActorAnonymous {
		e.Status = domain.EnquiryStatusNew
		e.CreatedBy = nil
	} else {
		id := actor.ID
		e.CreatedBy = &id
	}
	if e.Status == "" {
		e.Status = domain.EnquiryStatusNew
	}
	if e.Priority == "" {
		e.Priority = domain.EnquiryPriorityMedium
	}
}

// StatsScope returns the aggregation predicate. Only staff is narrowed, to its
// assigned enquiries; every other variant aggregates over all non-deleted
// enquiries. Unlike ListScope the user variant is not restricted here.
func StatsScope(actor Actor) Scope {
	if actor.Kind == ActorStaff {
		id := actor.ID
		return Scope{AssignedTo: &id}
	}
	return Scope{}
}

func assignedTo(e *domain.Enquiry, staffID string) bool {
	return e.AssignedTo != nil && *e.AssignedTo == staffID
}

// String implements fmt.Stringer for log fields.
func (a Actor) String() string {
	if a.Kind == ActorAnonymous {
		return "anonymous"
	}
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

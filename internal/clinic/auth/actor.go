package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/clinicware/clinic/internal/clinic/model"
)

var (
	// ErrForbidden is returned when the actor's access level does not allow
	// the requested action.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrNoActor is returned when an action is attempted without logging in.
	ErrNoActor = errors.New("auth: not logged in")
)

// Action names an operation gated by access level.
type Action string

const (
	ActionClinical           Action = "clinical"            // patients, sessions, records
	ActionSchedule           Action = "schedule"            // availability slots
	ActionManagePractitioner Action = "manage_practitioner" // create/edit/delete practitioners
	ActionManageUsers        Action = "manage_users"
	ActionBackup             Action = "backup"
)

var requiredLevel = map[Action]model.AccessLevel{
	ActionClinical:           model.AccessTherapist,
	ActionSchedule:           model.AccessTherapist,
	ActionManagePractitioner: model.AccessAdmin,
	ActionManageUsers:        model.AccessAdmin,
	ActionBackup:             model.AccessAdmin,
}

// Actor is the authenticated user on whose behalf operations run.
type Actor struct {
	UserID     int64
	Username   string
	Access     model.AccessLevel
	LoggedInAt time.Time
}

// NewActor builds an Actor from verified user fields.
func NewActor(info *model.UserInfo, now time.Time) *Actor {
	return &Actor{
		UserID:     info.ID,
		Username:   info.Username,
		Access:     info.Access,
		LoggedInAt: now,
	}
}

// IsAdmin reports whether the actor has the admin access level.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Access == model.AccessAdmin
}

// Can reports whether the actor may perform action. Unknown actions are
// admin-only.
func (a *Actor) Can(action Action) bool {
	if a == nil {
		return false
	}
	if a.IsAdmin() {
		return true
	}
	need, ok := requiredLevel[action]
	if !ok {
		return false
	}
	return need == model.AccessTherapist && a.Access == model.AccessTherapist
}

// Authorize returns nil if the actor may perform action.
func (a *Actor) Authorize(action Action) error {
	if a == nil {
		return ErrNoActor
	}
	if !a.Can(action) {
		return fmt.Errorf("%w: %s (%s) may not %s", ErrForbidden, a.Username, a.Access, action)
	}
	return nil
}

// Verifier checks a username/password pair. *db.DB satisfies it.
type Verifier interface {
	VerifyUserContext(ctx context.Context, username, password string) (*model.UserInfo, error)
}

// Login verifies the credentials and returns the resulting Actor.
func Login(ctx context.Context, v Verifier, username, password string) (*Actor, error) {
	info, err := v.VerifyUserContext(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return NewActor(info, time.Now()), nil
}

package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/metrics"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/validation"
)

// Users is the admin view of registered users.
type Users struct {
	store storage.Storage
	log   zerolog.Logger
	now   func() time.Time
}

// NewUsers creates a user gateway over store.
func NewUsers(store storage.Storage, log zerolog.Logger) *Users {
	return &Users{
		store: store,
		log:   log.With().Str("component", "gateway").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List returns users newest first.
func (g *Users) List(ctx context.Context) (users []*domain.User, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("users.list", start, err) }(time.Now())

	users, err = g.store.ListUsers(ctx)
	if err != nil {
		return nil, fail(g.log, "listing users", err)
	}
	return users, nil
}

func (g *Users) Get(ctx context.Context, id string) (u *domain.User, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("users.get", start, err) }(time.Now())

	u, err = g.store.GetUser(ctx, id)
	if err != nil {
		return nil, fail(g.log, "getting user", err)
	}
	return u, nil
}

// UpdateRole sets the user's role to user or admin.
func (g *Users) UpdateRole(ctx context.Context, id string, role domain.UserRole) (u *domain.User, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("users.update_role", start, err) }(time.Now())

	if verr := validation.ValidateUserRole(role); verr != nil {
		var errs validation.ValidationErrors
		errs.Add("role", string(role), verr.Error())
		return nil, fail(g.log, "updating user role", errs)
	}
	u, err = g.store.GetUser(ctx, id)
	if err != nil {
		return nil, fail(g.log, "updating user role", err)
	}
	u.Role = role
	u.UpdatedAt = g.now()
	if err := g.store.UpdateUser(ctx, u); err != nil {
		return nil, fail(g.log, "updating user role", err)
	}
	g.log.Info().Str("id", id).Str("role", string(role)).Msg("user role updated")
	return u, nil
}

func (g *Users) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveGateway("users.delete", start, err) }(time.Now())

	if err = g.store.DeleteUser(ctx, id); err != nil {
		return fail(g.log, "deleting user", err)
	}
	g.log.Info().Str("id", id).Msg("user deleted")
	return nil
}

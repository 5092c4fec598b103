package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/metrics"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/validation"
)

// Stakeholders manages the stakeholder directory and its application role links.
type Stakeholders struct {
	store storage.Storage
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewStakeholders creates a stakeholder gateway over store.
func NewStakeholders(store storage.Storage, log zerolog.Logger) *Stakeholders {
	return &Stakeholders{
		store: store,
		log:   log.With().Str("component", "gateway").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// List returns the directory ordered by name with each stakeholder's roles attached.
func (g *Stakeholders) List(ctx context.Context) (list []*domain.Stakeholder, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.list", start, err) }(time.Now())

	list, err = g.store.ListStakeholders(ctx)
	if err != nil {
		return nil, fail(g.log, "listing stakeholders", err)
	}
	if err := g.attachRoles(ctx, list); err != nil {
		return nil, fail(g.log, "listing stakeholders", err)
	}
	return list, nil
}

// Get returns one stakeholder with roles.
func (g *Stakeholders) Get(ctx context.Context, id string) (s *domain.Stakeholder, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.get", start, err) }(time.Now())

	s, err = g.store.GetStakeholder(ctx, id)
	if err != nil {
		return nil, fail(g.log, "getting stakeholder", err)
	}
	if err := g.attachRoles(ctx, []*domain.Stakeholder{s}); err != nil {
		return nil, fail(g.log, "getting stakeholder", err)
	}
	return s, nil
}

func (g *Stakeholders) attachRoles(ctx context.Context, list []*domain.Stakeholder) error {
	byID := make(map[string]*domain.Stakeholder, len(list))
	ids := make([]string, 0, len(list))
	for _, s := range list {
		s.Roles = []*domain.StakeholderRole{}
		byID[s.ID] = s
		ids = append(ids, s.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	roles, err := g.store.ListStakeholderRoles(ctx, ids)
	if err != nil {
		return fmt.Errorf("listing stakeholder roles: %w", err)
	}
	for _, r := range roles {
		if s, ok := byID[r.StakeholderID]; ok {
			s.Roles = append(s.Roles, r)
		}
	}
	return nil
}

// Create adds a stakeholder. An empty department becomes General.
func (g *Stakeholders) Create(ctx context.Context, req *domain.CreateStakeholderRequest) (s *domain.Stakeholder, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.create", start, err) }(time.Now())

	s = &domain.Stakeholder{
		ID:         g.newID(),
		Name:       strings.TrimSpace(req.Name),
		Email:      strings.TrimSpace(req.Email),
		Department: strings.TrimSpace(req.Department),
		Position:   strings.TrimSpace(req.Position),
		Roles:      []*domain.StakeholderRole{},
		CreatedAt:  g.now(),
	}
	if s.Department == "" {
		s.Department = domain.DefaultDepartment
	}
	if errs := validation.ValidateStakeholder(s); errs.HasErrors() {
		return nil, fail(g.log, "creating stakeholder", errs)
	}
	if err := g.store.CreateStakeholder(ctx, s); err != nil {
		return nil, fail(g.log, "creating stakeholder", err)
	}
	g.log.Info().Str("id", s.ID).Str("name", s.Name).Msg("stakeholder created")
	return s, nil
}

// Update changes the stakeholder's fields. A new name is copied onto every application
// stakeholder row linked to this stakeholder.
func (g *Stakeholders) Update(ctx context.Context, id string, req *domain.UpdateStakeholderRequest) (s *domain.Stakeholder, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.update", start, err) }(time.Now())

	s, err = g.store.GetStakeholder(ctx, id)
	if err != nil {
		return nil, fail(g.log, "updating stakeholder", err)
	}
	oldName := s.Name
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		s.Email = strings.TrimSpace(*req.Email)
	}
	if req.Department != nil {
		s.Department = strings.TrimSpace(*req.Department)
		if s.Department == "" {
			s.Department = domain.DefaultDepartment
		}
	}
	if req.Position != nil {
		s.Position = strings.TrimSpace(*req.Position)
	}
	if errs := validation.ValidateStakeholder(s); errs.HasErrors() {
		return nil, fail(g.log, "updating stakeholder", errs)
	}

	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return nil, fail(g.log, "updating stakeholder", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.UpdateStakeholder(ctx, s); err != nil {
		return nil, fail(g.log, "updating stakeholder", err)
	}
	if s.Name != oldName {
		if err := tx.RenameAppStakeholder(ctx, s.ID, s.Name); err != nil {
			return nil, fail(g.log, "updating stakeholder", fmt.Errorf("renaming linked rows: %w", err))
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fail(g.log, "updating stakeholder", err)
	}
	return g.Get(ctx, s.ID)
}

// Delete removes the stakeholder and its role links. Application rows keep the name.
func (g *Stakeholders) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.delete", start, err) }(time.Now())

	if err = g.store.DeleteStakeholder(ctx, id); err != nil {
		return fail(g.log, "deleting stakeholder", err)
	}
	g.log.Info().Str("id", id).Msg("stakeholder deleted")
	return nil
}

// AddRole links the stakeholder to an application under a free-text role label.
func (g *Stakeholders) AddRole(ctx context.Context, stakeholderID, applicationID, role string) (r *domain.StakeholderRole, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.add_role", start, err) }(time.Now())

	role = strings.TrimSpace(role)
	if role == "" {
		var errs validation.ValidationErrors
		errs.Add("role", role, "role is required")
		return nil, fail(g.log, "adding stakeholder role", errs)
	}
	if _, err := g.store.GetStakeholder(ctx, stakeholderID); err != nil {
		return nil, fail(g.log, "adding stakeholder role", err)
	}
	app, err := g.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, fail(g.log, "adding stakeholder role", err)
	}

	r = &domain.StakeholderRole{
		ID:            g.newID(),
		StakeholderID: stakeholderID,
		ApplicationID: applicationID,
		Role:          role,
		CreatedAt:     g.now(),
	}
	if err := g.store.CreateStakeholderRole(ctx, r); err != nil {
		return nil, fail(g.log, "adding stakeholder role", err)
	}
	r.ApplicationCode = app.AppCode
	return r, nil
}

// RemoveRole deletes one of the stakeholder's role links. A role owned by another stakeholder is ErrNotFound.
func (g *Stakeholders) RemoveRole(ctx context.Context, stakeholderID, roleID string) (err error) {
	defer func(start time.Time) { metrics.ObserveGateway("stakeholders.remove_role", start, err) }(time.Now())

	roles, err := g.store.ListStakeholderRoles(ctx, []string{stakeholderID})
	if err != nil {
		return fail(g.log, "removing stakeholder role", err)
	}
	owned := false
	for _, r := range roles {
		if r.ID == roleID && r.StakeholderID == stakeholderID {
			owned = true
			break
		}
	}
	if !owned {
		return fail(g.log, "removing stakeholder role", domain.ErrNotFound)
	}

	if err = g.store.DeleteStakeholderRole(ctx, roleID); err != nil {
		return fail(g.log, "removing stakeholder role", err)
	}
	return nil
}

// ByDepartment groups the directory by department, keeping list order within each group.
func (g *Stakeholders) ByDepartment(ctx context.Context) (map[string][]*domain.Stakeholder, error) {
	list, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDepartment(list), nil
}

// GroupByDepartment groups list by department. A blank department counts as General.
func GroupByDepartment(list []*domain.Stakeholder) map[string][]*domain.Stakeholder {
	groups := make(map[string][]*domain.Stakeholder)
	for _, s := range list {
		dep := s.Department
		if dep == "" {
			dep = domain.DefaultDepartment
		}
		groups[dep] = append(groups[dep], s)
	}
	return groups
}

// Package gateway turns row-level storage into joined catalog records and back.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/metrics"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/validation"
)

// maxCodeAttempts bounds app code generation before giving up.
const maxCodeAttempts = 50

// Applications reads and writes catalog applications with their stakeholder and relationship rows.
type Applications struct {
	store storage.Storage
	log   zerolog.Logger
	now   func() time.Time
	newID func() string
}

// NewApplications creates an application gateway over store.
func NewApplications(store storage.Storage, log zerolog.Logger) *Applications {
	return &Applications{
		store: store,
		log:   log.With().Str("component", "gateway").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// fail logs err once at the gateway boundary and wraps it with the operation name.
func fail(log zerolog.Logger, op string, err error) error {
	var verrs validation.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		log.Debug().Str("op", op).Err(err).Msg("validation failed")
		return err
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrInvalidInput):
		log.Warn().Str("op", op).Err(err).Msg("gateway request rejected")
	default:
		log.Error().Str("op", op).Err(err).Msg("gateway request failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// List returns every application, most recently updated first.
func (g *Applications) List(ctx context.Context) (apps []*domain.Application, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("list", start, err) }(time.Now())

	apps, err = g.query(ctx, g.store, "")
	if err != nil {
		return nil, fail(g.log, "listing applications", err)
	}
	return apps, nil
}

// Search returns applications whose name, description or app code contains query,
// ignoring case. A blank query behaves like List.
func (g *Applications) Search(ctx context.Context, query string) (apps []*domain.Application, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return g.List(ctx)
	}
	defer func(start time.Time) { metrics.ObserveGateway("search", start, err) }(time.Now())

	apps, err = g.query(ctx, g.store, query)
	if err != nil {
		return nil, fail(g.log, "searching applications", err)
	}
	return apps, nil
}

// Get returns one application by id.
func (g *Applications) Get(ctx context.Context, id string) (app *domain.Application, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("get", start, err) }(time.Now())

	rec, err := g.store.GetApplication(ctx, id)
	if err != nil {
		return nil, fail(g.log, "getting application", err)
	}
	apps, err := g.join(ctx, g.store, []*domain.ApplicationRecord{rec})
	if err != nil {
		return nil, fail(g.log, "getting application", err)
	}
	return apps[0], nil
}

// GetByCode returns one application by app code.
func (g *Applications) GetByCode(ctx context.Context, appCode string) (app *domain.Application, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("get", start, err) }(time.Now())

	rec, err := g.store.GetApplicationByCode(ctx, strings.ToUpper(strings.TrimSpace(appCode)))
	if err != nil {
		return nil, fail(g.log, "getting application", err)
	}
	apps, err := g.join(ctx, g.store, []*domain.ApplicationRecord{rec})
	if err != nil {
		return nil, fail(g.log, "getting application", err)
	}
	return apps[0], nil
}

func (g *Applications) query(ctx context.Context, store storage.Storage, q string) ([]*domain.Application, error) {
	records, err := store.ListApplications(ctx, q)
	if err != nil {
		return nil, err
	}
	return g.join(ctx, store, records)
}

// join fetches stakeholder and relationship rows concurrently and assembles the records.
func (g *Applications) join(ctx context.Context, store storage.Storage, records []*domain.ApplicationRecord) ([]*domain.Application, error) {
	if len(records) == 0 {
		return []*domain.Application{}, nil
	}
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}

	var people []*domain.StakeholderAssignment
	var rels []*domain.Relationship
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		people, err = store.ListAppStakeholders(egCtx, ids)
		if err != nil {
			return fmt.Errorf("listing stakeholders: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		rels, err = store.ListRelationships(egCtx, ids)
		if err != nil {
			return fmt.Errorf("listing relationships: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return assemble(records, people, rels), nil
}

// Create validates req and writes the application with its child rows in one transaction.
// An empty app code is replaced by a generated unused one; an empty status means Under Development.
func (g *Applications) Create(ctx context.Context, req *domain.CreateApplicationRequest) (app *domain.Application, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("create", start, err) }(time.Now())

	now := g.now()
	rec := &domain.ApplicationRecord{
		ID:                g.newID(),
		AppCode:           strings.ToUpper(strings.TrimSpace(req.AppCode)),
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		FunctionalDomains: nonNil(req.FunctionalDomains),
		TechnicalStack:    nonNil(req.TechnicalStack),
		Status:            req.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if rec.Status == "" {
		rec.Status = domain.StatusUnderDevelopment
	}
	if rec.AppCode == "" {
		if rec.AppCode, err = g.unusedCode(ctx); err != nil {
			return nil, fail(g.log, "creating application", err)
		}
	}

	errs := validation.ValidateApplication(rec)
	errs = append(errs, validation.ValidateRelatedApps(req.RelatedApps)...)
	if errs.HasErrors() {
		return nil, fail(g.log, "creating application", errs)
	}

	if err := g.write(ctx, rec, true, req.Stakeholders, req.RelatedApps); err != nil {
		return nil, fail(g.log, "creating application", err)
	}
	g.log.Info().Str("app_code", rec.AppCode).Str("id", rec.ID).Msg("application created")
	return g.Get(ctx, rec.ID)
}

// Update applies req to the application. Nil fields keep their value; a nil Stakeholders or
// RelatedApps leaves the child rows alone, a non-nil one replaces them entirely.
func (g *Applications) Update(ctx context.Context, id string, req *domain.UpdateApplicationRequest) (app *domain.Application, err error) {
	defer func(start time.Time) { metrics.ObserveGateway("update", start, err) }(time.Now())

	rec, err := g.store.GetApplication(ctx, id)
	if err != nil {
		return nil, fail(g.log, "updating application", err)
	}

	if req.AppCode != nil {
		rec.AppCode = strings.ToUpper(strings.TrimSpace(*req.AppCode))
	}
	if req.Name != nil {
		rec.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		rec.Description = *req.Description
	}
	if req.FunctionalDomains != nil {
		rec.FunctionalDomains = nonNil(req.FunctionalDomains)
	}
	if req.TechnicalStack != nil {
		rec.TechnicalStack = nonNil(req.TechnicalStack)
	}
	if req.Status != nil {
		rec.Status = *req.Status
	}
	rec.UpdatedAt = g.now()
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}

	errs := validation.ValidateApplication(rec)
	errs = append(errs, validation.ValidateRelatedApps(req.RelatedApps)...)
	if errs.HasErrors() {
		return nil, fail(g.log, "updating application", errs)
	}

	if err := g.write(ctx, rec, false, req.Stakeholders, req.RelatedApps); err != nil {
		return nil, fail(g.log, "updating application", err)
	}
	g.log.Info().Str("app_code", rec.AppCode).Str("id", rec.ID).Msg("application updated")
	return g.Get(ctx, rec.ID)
}

// write stores rec and replaces whichever child sets are non-nil.
func (g *Applications) write(ctx context.Context, rec *domain.ApplicationRecord, create bool, people *domain.Stakeholders, rel *domain.RelatedApps) error {
	var directory map[string]string
	if people != nil {
		var err error
		if directory, err = g.directoryIndex(ctx); err != nil {
			return err
		}
	}

	tx, err := g.store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if create {
		err = tx.CreateApplication(ctx, rec)
	} else {
		err = tx.UpdateApplication(ctx, rec)
	}
	if err != nil {
		return err
	}

	now := g.now()
	if people != nil {
		if !create {
			if err := tx.DeleteAppStakeholders(ctx, rec.ID); err != nil {
				return fmt.Errorf("clearing stakeholders: %w", err)
			}
		}
		rows := stakeholderRows(rec.ID, *people, directory, g.newID, now)
		if len(rows) > 0 {
			if err := tx.CreateAppStakeholders(ctx, rows); err != nil {
				return fmt.Errorf("writing stakeholders: %w", err)
			}
		}
	}
	if rel != nil {
		if !create {
			if err := tx.DeleteRelationships(ctx, rec.ID); err != nil {
				return fmt.Errorf("clearing relationships: %w", err)
			}
		}
		rows := relationshipRows(rec.ID, *rel, g.newID, now)
		if len(rows) > 0 {
			if err := tx.CreateRelationships(ctx, rows); err != nil {
				return fmt.Errorf("writing relationships: %w", err)
			}
		}
	}
	return tx.Commit()
}

// directoryIndex maps stakeholder names to directory ids. The first stakeholder by name order wins.
func (g *Applications) directoryIndex(ctx context.Context) (map[string]string, error) {
	list, err := g.store.ListStakeholders(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stakeholder directory: %w", err)
	}
	index := make(map[string]string, len(list))
	for _, s := range list {
		if _, ok := index[s.Name]; !ok {
			index[s.Name] = s.ID
		}
	}
	return index, nil
}

func (g *Applications) unusedCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := domain.GenerateAppCode()
		_, err := g.store.GetApplicationByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking app code: %w", err)
		}
	}
	return "", fmt.Errorf("%w: no unused app code after %d attempts", domain.ErrConflict, maxCodeAttempts)
}

// Delete removes the application; the store cascades to its child rows.
func (g *Applications) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { metrics.ObserveGateway("delete", start, err) }(time.Now())

	if err = g.store.DeleteApplication(ctx, id); err != nil {
		return fail(g.log, "deleting application", err)
	}
	g.log.Info().Str("id", id).Msg("application deleted")
	return nil
}

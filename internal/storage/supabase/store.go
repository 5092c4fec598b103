// Package supabase implements storage.Storage over a Supabase project's REST API.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage"
	"github.com/bcnelson/app-catalog/internal/supabase"
)

const (
	tableAPIKeys          = "api_keys"
	tableApplications     = "applications"
	tableAppStakeholders  = "application_stakeholders"
	tableRelationships    = "application_relationships"
	tableStakeholders     = "stakeholders"
	tableStakeholderRoles = "stakeholder_roles"
	tableUsers            = "users"
)

// Store implements storage.Storage against PostgREST. PostgREST has no
// multi-request transactions, so BeginTx returns a pass-through.
type Store struct {
	client *supabase.Client
}

// New creates a store over client.
func New(client *supabase.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{Store: s}, nil
}

// Tx forwards every call to the store. Commit and Rollback are no-ops.
type Tx struct {
	*Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// check maps a PostgREST response to a domain error.
func check(resp *supabase.Response) error {
	err := resp.Error()
	if err == nil {
		return nil
	}
	var code string
	if se, ok := err.(*supabase.StatusError); ok {
		code = se.Code
	}
	switch {
	case resp.StatusCode == http.StatusConflict || code == "23505":
		return fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err)
	case code == "23503":
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case resp.StatusCode == http.StatusNotAcceptable || code == "PGRST116":
		return domain.ErrNotFound
	}
	return err
}

// decode checks resp and unmarshals its body into v.
func decode(resp *supabase.Response, err error, v any) error {
	if err != nil {
		return err
	}
	if err := check(resp); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if err := resp.JSON(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// affected decodes a return=representation body and reports ErrNotFound when no row changed.
func affected(resp *supabase.Response, err error) error {
	var rows []map[string]any
	if err := decode(resp, err, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// API Keys
// ============================================

type apiKeyRow struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"key_hash"`
	KeyPrefix  string     `json:"key_prefix"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func (r apiKeyRow) toDomain() *domain.APIKey {
	return &domain.APIKey{ID: r.ID, Name: r.Name, KeyHash: r.KeyHash, KeyPrefix: r.KeyPrefix, CreatedAt: r.CreatedAt, LastUsedAt: r.LastUsedAt}
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	row := apiKeyRow{ID: key.ID, Name: key.Name, KeyHash: key.KeyHash, KeyPrefix: key.KeyPrefix, CreatedAt: key.CreatedAt, LastUsedAt: key.LastUsedAt}
	resp, err := s.client.From(tableAPIKeys).ExecuteInsert(ctx, row)
	return decode(resp, err, nil)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var row apiKeyRow
	resp, err := s.client.From(tableAPIKeys).Select("*").Eq("key_hash", keyHash).Single().Execute(ctx)
	if err := decode(resp, err, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	var rows []apiKeyRow
	resp, err := s.client.From(tableAPIKeys).Select("*").Order("created_at", false).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	keys := make([]*domain.APIKey, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.toDomain())
	}
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	return affected(s.client.From(tableAPIKeys).Eq("id", id).ExecuteDelete(ctx))
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	resp, err := s.client.From(tableAPIKeys).Eq("id", id).
		ExecuteUpdate(ctx, map[string]any{"last_used_at": time.Now().UTC()})
	return decode(resp, err, nil)
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	var rows []struct {
		ID string `json:"id"`
	}
	resp, err := s.client.From(tableAPIKeys).Select("id").Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ============================================
// Applications
// ============================================

func (s *Store) CreateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	resp, err := s.client.From(tableApplications).ExecuteInsert(ctx, normalizeRecord(app))
	return decode(resp, err, nil)
}

// normalizeRecord sends empty arrays rather than null for the list columns.
func normalizeRecord(app *domain.ApplicationRecord) *domain.ApplicationRecord {
	c := *app
	if c.FunctionalDomains == nil {
		c.FunctionalDomains = []string{}
	}
	if c.TechnicalStack == nil {
		c.TechnicalStack = []string{}
	}
	return &c
}

func (s *Store) getApplication(ctx context.Context, column, value string) (*domain.ApplicationRecord, error) {
	var app domain.ApplicationRecord
	resp, err := s.client.From(tableApplications).Select("*").Eq(column, value).Single().Execute(ctx)
	if err := decode(resp, err, &app); err != nil {
		return nil, err
	}
	return normalizeRecord(&app), nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error) {
	return s.getApplication(ctx, "id", id)
}

func (s *Store) GetApplicationByCode(ctx context.Context, appCode string) (*domain.ApplicationRecord, error) {
	return s.getApplication(ctx, "app_code", appCode)
}

func (s *Store) ListApplications(ctx context.Context, query string) ([]*domain.ApplicationRecord, error) {
	q := s.client.From(tableApplications).Select("*")
	if query != "" {
		q = q.OrILike(query, "name", "description", "app_code")
	}
	var rows []*domain.ApplicationRecord
	resp, err := q.Order("updated_at", false).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	for i, r := range rows {
		rows[i] = normalizeRecord(r)
	}
	if rows == nil {
		rows = []*domain.ApplicationRecord{}
	}
	return rows, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	c := normalizeRecord(app)
	return affected(s.client.From(tableApplications).Eq("id", app.ID).ExecuteUpdate(ctx, map[string]any{
		"app_code":           c.AppCode,
		"name":               c.Name,
		"description":        c.Description,
		"functional_domains": c.FunctionalDomains,
		"technical_stack":    c.TechnicalStack,
		"status":             c.Status,
		"updated_at":         c.UpdatedAt,
	}))
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	return affected(s.client.From(tableApplications).Eq("id", id).ExecuteDelete(ctx))
}

// ============================================
// Application stakeholders
// ============================================

func (s *Store) ListAppStakeholders(ctx context.Context, appIDs []string) ([]*domain.StakeholderAssignment, error) {
	rows := []*domain.StakeholderAssignment{}
	if len(appIDs) == 0 {
		return rows, nil
	}
	resp, err := s.client.From(tableAppStakeholders).Select("*").In("application_id", appIDs).
		Order("created_at", true).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateAppStakeholders(ctx context.Context, rows []*domain.StakeholderAssignment) error {
	if len(rows) == 0 {
		return nil
	}
	resp, err := s.client.From(tableAppStakeholders).ExecuteInsert(ctx, rows)
	return decode(resp, err, nil)
}

func (s *Store) DeleteAppStakeholders(ctx context.Context, appID string) error {
	resp, err := s.client.From(tableAppStakeholders).Eq("application_id", appID).ExecuteDelete(ctx)
	return decode(resp, err, nil)
}

func (s *Store) RenameAppStakeholder(ctx context.Context, stakeholderID, name string) error {
	resp, err := s.client.From(tableAppStakeholders).Eq("stakeholder_id", stakeholderID).
		ExecuteUpdate(ctx, map[string]any{"name": name})
	return decode(resp, err, nil)
}

// ============================================
// Application relationships
// ============================================

func (s *Store) ListRelationships(ctx context.Context, appIDs []string) ([]*domain.Relationship, error) {
	rows := []*domain.Relationship{}
	if len(appIDs) == 0 {
		return rows, nil
	}
	resp, err := s.client.From(tableRelationships).Select("*").In("source_app_id", appIDs).
		Order("created_at", true).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) CreateRelationships(ctx context.Context, rows []*domain.Relationship) error {
	if len(rows) == 0 {
		return nil
	}
	resp, err := s.client.From(tableRelationships).ExecuteInsert(ctx, rows)
	return decode(resp, err, nil)
}

func (s *Store) DeleteRelationships(ctx context.Context, appID string) error {
	resp, err := s.client.From(tableRelationships).Eq("source_app_id", appID).ExecuteDelete(ctx)
	return decode(resp, err, nil)
}

// ============================================
// Stakeholder directory
// ============================================

type stakeholderRow struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

func (r stakeholderRow) toDomain() *domain.Stakeholder {
	return &domain.Stakeholder{ID: r.ID, Name: r.Name, Email: r.Email, Department: r.Department, Position: r.Position, CreatedAt: r.CreatedAt}
}

func (s *Store) CreateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	row := stakeholderRow{ID: st.ID, Name: st.Name, Email: st.Email, Department: st.Department, Position: st.Position, CreatedAt: st.CreatedAt}
	resp, err := s.client.From(tableStakeholders).ExecuteInsert(ctx, row)
	return decode(resp, err, nil)
}

func (s *Store) GetStakeholder(ctx context.Context, id string) (*domain.Stakeholder, error) {
	var row stakeholderRow
	resp, err := s.client.From(tableStakeholders).Select("*").Eq("id", id).Single().Execute(ctx)
	if err := decode(resp, err, &row); err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) ListStakeholders(ctx context.Context) ([]*domain.Stakeholder, error) {
	var rows []stakeholderRow
	resp, err := s.client.From(tableStakeholders).Select("*").Order("name", true).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	list := make([]*domain.Stakeholder, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.toDomain())
	}
	return list, nil
}

func (s *Store) UpdateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	return affected(s.client.From(tableStakeholders).Eq("id", st.ID).ExecuteUpdate(ctx, map[string]any{
		"name":       st.Name,
		"email":      st.Email,
		"department": st.Department,
		"position":   st.Position,
	}))
}

func (s *Store) DeleteStakeholder(ctx context.Context, id string) error {
	return affected(s.client.From(tableStakeholders).Eq("id", id).ExecuteDelete(ctx))
}

// ============================================
// Stakeholder roles
// ============================================

type stakeholderRoleRow struct {
	ID            string    `json:"id"`
	StakeholderID string    `json:"stakeholder_id"`
	ApplicationID string    `json:"application_id"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	Applications  *struct {
		AppCode string `json:"app_code"`
	} `json:"applications,omitempty"`
}

func (s *Store) ListStakeholderRoles(ctx context.Context, stakeholderIDs []string) ([]*domain.StakeholderRole, error) {
	roles := []*domain.StakeholderRole{}
	if len(stakeholderIDs) == 0 {
		return roles, nil
	}
	var rows []stakeholderRoleRow
	resp, err := s.client.From(tableStakeholderRoles).
		Select("id,stakeholder_id,application_id,role,created_at,applications(app_code)").
		In("stakeholder_id", stakeholderIDs).
		Order("created_at", true).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	for _, r := range rows {
		role := &domain.StakeholderRole{
			ID:            r.ID,
			StakeholderID: r.StakeholderID,
			ApplicationID: r.ApplicationID,
			Role:          r.Role,
			CreatedAt:     r.CreatedAt,
		}
		if r.Applications != nil {
			role.ApplicationCode = r.Applications.AppCode
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (s *Store) CreateStakeholderRole(ctx context.Context, role *domain.StakeholderRole) error {
	row := stakeholderRoleRow{ID: role.ID, StakeholderID: role.StakeholderID, ApplicationID: role.ApplicationID, Role: role.Role, CreatedAt: role.CreatedAt}
	resp, err := s.client.From(tableStakeholderRoles).ExecuteInsert(ctx, row)
	return decode(resp, err, nil)
}

func (s *Store) DeleteStakeholderRole(ctx context.Context, id string) error {
	return affected(s.client.From(tableStakeholderRoles).Eq("id", id).ExecuteDelete(ctx))
}

// ============================================
// Users
// ============================================

type userRow struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toUserRow(u *domain.User) userRow {
	return userRow{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role), PasswordHash: u.PasswordHash, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{ID: r.ID, Email: r.Email, Name: r.Name, Role: domain.UserRole(r.Role), PasswordHash: r.PasswordHash, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	resp, err := s.client.From(tableUsers).ExecuteInsert(ctx, toUserRow(user))
	return decode(resp, err, nil)
}

func (s *Store) getUser(ctx context.Context, q *supabase.QueryBuilder) (*domain.User, error) {
	var rows []userRow
	resp, err := q.Select("*").Limit(1).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return rows[0].toDomain(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUser(ctx, s.client.From(tableUsers).Eq("id", id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	// ilike without wildcards is a case-insensitive equality match.
	escaped := strings.NewReplacer("*", `\*`, "%", `\%`, "_", `\_`).Replace(email)
	return s.getUser(ctx, s.client.From(tableUsers).ILike("email", escaped))
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	resp, err := s.client.From(tableUsers).Select("*").Order("created_at", false).Order("id", true).Execute(ctx)
	if err := decode(resp, err, &rows); err != nil {
		return nil, err
	}
	users := make([]*domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	return affected(s.client.From(tableUsers).Eq("id", user.ID).ExecuteUpdate(ctx, map[string]any{
		"email":         user.Email,
		"name":          user.Name,
		"role":          user.Role,
		"password_hash": user.PasswordHash,
		"updated_at":    user.UpdatedAt,
	}))
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return affected(s.client.From(tableUsers).Eq("id", id).ExecuteDelete(ctx))
}

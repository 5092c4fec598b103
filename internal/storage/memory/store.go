package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
type Store struct {
	mu sync.RWMutex

	apiKeys          map[string]*domain.APIKey
	applications     map[string]*domain.ApplicationRecord
	appStakeholders  map[string]*domain.StakeholderAssignment // key: id
	relationships    map[string]*domain.Relationship          // key: id
	stakeholders     map[string]*domain.Stakeholder
	stakeholderRoles map[string]*domain.StakeholderRole // key: id
	users            map[string]*domain.User
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys:          make(map[string]*domain.APIKey),
		applications:     make(map[string]*domain.ApplicationRecord),
		appStakeholders:  make(map[string]*domain.StakeholderAssignment),
		relationships:    make(map[string]*domain.Relationship),
		stakeholders:     make(map[string]*domain.Stakeholder),
		stakeholderRoles: make(map[string]*domain.StakeholderRole),
		users:            make(map[string]*domain.User),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{Store: s}, nil
}

// Tx is a no-op transaction for the in-memory store. Writes apply immediately.
type Tx struct {
	*Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, k := range s.apiKeys {
		if k.KeyHash == key.KeyHash {
			return domain.ErrAlreadyExists
		}
	}
	s.apiKeys[key.ID] = key
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			return key, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	return nil
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apiKeys), nil
}

// ============================================
// Applications
// ============================================

func copyRecord(r *domain.ApplicationRecord) *domain.ApplicationRecord {
	c := *r
	c.FunctionalDomains = append([]string{}, r.FunctionalDomains...)
	c.TechnicalStack = append([]string{}, r.TechnicalStack...)
	return &c
}

func (s *Store) CreateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[app.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.applications {
		if existing.AppCode == app.AppCode {
			return domain.ErrAlreadyExists
		}
	}
	s.applications[app.ID] = copyRecord(app)
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, exists := s.applications[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyRecord(app), nil
}

func (s *Store) GetApplicationByCode(ctx context.Context, appCode string) (*domain.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, app := range s.applications {
		if app.AppCode == appCode {
			return copyRecord(app), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListApplications(ctx context.Context, query string) ([]*domain.ApplicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q := strings.ToLower(query)
	apps := make([]*domain.ApplicationRecord, 0, len(s.applications))
	for _, app := range s.applications {
		if q != "" &&
			!strings.Contains(strings.ToLower(app.Name), q) &&
			!strings.Contains(strings.ToLower(app.Description), q) &&
			!strings.Contains(strings.ToLower(app.AppCode), q) {
			continue
		}
		apps = append(apps, copyRecord(app))
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].UpdatedAt.Equal(apps[j].UpdatedAt) {
			return apps[i].UpdatedAt.After(apps[j].UpdatedAt)
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[app.ID]; !exists {
		return domain.ErrNotFound
	}
	for id, existing := range s.applications {
		if id != app.ID && existing.AppCode == app.AppCode {
			return domain.ErrAlreadyExists
		}
	}
	s.applications[app.ID] = copyRecord(app)
	return nil
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.applications, id)
	for rid, row := range s.appStakeholders {
		if row.ApplicationID == id {
			delete(s.appStakeholders, rid)
		}
	}
	for rid, row := range s.relationships {
		if row.SourceAppID == id {
			delete(s.relationships, rid)
		}
	}
	for rid, row := range s.stakeholderRoles {
		if row.ApplicationID == id {
			delete(s.stakeholderRoles, rid)
		}
	}
	return nil
}

// ============================================
// Application stakeholders
// ============================================

func (s *Store) ListAppStakeholders(ctx context.Context, appIDs []string) ([]*domain.StakeholderAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(appIDs)
	rows := make([]*domain.StakeholderAssignment, 0)
	for _, row := range s.appStakeholders {
		if want[row.ApplicationID] {
			c := *row
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *Store) CreateAppStakeholders(ctx context.Context, rows []*domain.StakeholderAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if _, exists := s.applications[row.ApplicationID]; !exists {
			return domain.ErrNotFound
		}
	}
	for _, row := range rows {
		c := *row
		s.appStakeholders[row.ID] = &c
	}
	return nil
}

func (s *Store) DeleteAppStakeholders(ctx context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.appStakeholders {
		if row.ApplicationID == appID {
			delete(s.appStakeholders, id)
		}
	}
	return nil
}

func (s *Store) RenameAppStakeholder(ctx context.Context, stakeholderID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.appStakeholders {
		if row.StakeholderID != nil && *row.StakeholderID == stakeholderID {
			row.Name = name
		}
	}
	return nil
}

// ============================================
// Application relationships
// ============================================

func (s *Store) ListRelationships(ctx context.Context, appIDs []string) ([]*domain.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(appIDs)
	rows := make([]*domain.Relationship, 0)
	for _, row := range s.relationships {
		if want[row.SourceAppID] {
			c := *row
			rows = append(rows, &c)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *Store) CreateRelationships(ctx context.Context, rows []*domain.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		if _, exists := s.applications[row.SourceAppID]; !exists {
			return domain.ErrNotFound
		}
	}
	for _, row := range rows {
		c := *row
		s.relationships[row.ID] = &c
	}
	return nil
}

func (s *Store) DeleteRelationships(ctx context.Context, appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.relationships {
		if row.SourceAppID == appID {
			delete(s.relationships, id)
		}
	}
	return nil
}

// ============================================
// Stakeholder directory
// ============================================

func copyStakeholder(st *domain.Stakeholder) *domain.Stakeholder {
	c := *st
	c.Roles = nil
	return &c
}

func (s *Store) CreateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stakeholders[st.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.stakeholders[st.ID] = copyStakeholder(st)
	return nil
}

func (s *Store) GetStakeholder(ctx context.Context, id string) (*domain.Stakeholder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, exists := s.stakeholders[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyStakeholder(st), nil
}

func (s *Store) ListStakeholders(ctx context.Context) ([]*domain.Stakeholder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*domain.Stakeholder, 0, len(s.stakeholders))
	for _, st := range s.stakeholders {
		list = append(list, copyStakeholder(st))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (s *Store) UpdateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stakeholders[st.ID]; !exists {
		return domain.ErrNotFound
	}
	s.stakeholders[st.ID] = copyStakeholder(st)
	return nil
}

func (s *Store) DeleteStakeholder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stakeholders[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.stakeholders, id)
	for rid, role := range s.stakeholderRoles {
		if role.StakeholderID == id {
			delete(s.stakeholderRoles, rid)
		}
	}
	for _, row := range s.appStakeholders {
		if row.StakeholderID != nil && *row.StakeholderID == id {
			row.StakeholderID = nil
		}
	}
	return nil
}

// ============================================
// Stakeholder roles
// ============================================

func (s *Store) ListStakeholderRoles(ctx context.Context, stakeholderIDs []string) ([]*domain.StakeholderRole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	want := idSet(stakeholderIDs)
	roles := make([]*domain.StakeholderRole, 0)
	for _, role := range s.stakeholderRoles {
		if !want[role.StakeholderID] {
			continue
		}
		c := *role
		if app, ok := s.applications[role.ApplicationID]; ok {
			c.ApplicationCode = app.AppCode
		}
		roles = append(roles, &c)
	}
	sort.Slice(roles, func(i, j int) bool {
		if !roles[i].CreatedAt.Equal(roles[j].CreatedAt) {
			return roles[i].CreatedAt.Before(roles[j].CreatedAt)
		}
		return roles[i].ID < roles[j].ID
	})
	return roles, nil
}

func (s *Store) CreateStakeholderRole(ctx context.Context, role *domain.StakeholderRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stakeholderRoles[role.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := s.stakeholders[role.StakeholderID]; !exists {
		return domain.ErrNotFound
	}
	if _, exists := s.applications[role.ApplicationID]; !exists {
		return domain.ErrNotFound
	}
	c := *role
	c.ApplicationCode = ""
	s.stakeholderRoles[role.ID] = &c
	return nil
}

func (s *Store) DeleteStakeholderRole(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.stakeholderRoles[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.stakeholderRoles, id)
	return nil
}

// ============================================
// Users
// ============================================

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrAlreadyExists
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, exists := s.users[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if strings.EqualFold(user.Email, email) {
			c := *user
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*domain.User, 0, len(s.users))
	for _, user := range s.users {
		c := *user
		users = append(users, &c)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; !exists {
		return domain.ErrNotFound
	}
	for id, u := range s.users {
		if id != user.ID && strings.EqualFold(u.Email, user.Email) {
			return domain.ErrAlreadyExists
		}
	}
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

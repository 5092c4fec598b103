package storage

import (
	"context"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// Storage defines the row-level interface for the backing store.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error
	CountAPIKeys(ctx context.Context) (int, error)

	// Applications
	CreateApplication(ctx context.Context, app *domain.ApplicationRecord) error
	GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error)
	GetApplicationByCode(ctx context.Context, appCode string) (*domain.ApplicationRecord, error)
	// ListApplications returns rows newest-updated first. A non-empty query keeps rows whose
	// name, description or app code contains it, ignoring case.
	ListApplications(ctx context.Context, query string) ([]*domain.ApplicationRecord, error)
	UpdateApplication(ctx context.Context, app *domain.ApplicationRecord) error
	// DeleteApplication removes the row and cascades to its stakeholder, relationship and role rows.
	DeleteApplication(ctx context.Context, id string) error

	// Application stakeholders
	ListAppStakeholders(ctx context.Context, appIDs []string) ([]*domain.StakeholderAssignment, error)
	CreateAppStakeholders(ctx context.Context, rows []*domain.StakeholderAssignment) error
	DeleteAppStakeholders(ctx context.Context, appID string) error
	RenameAppStakeholder(ctx context.Context, stakeholderID, name string) error

	// Application relationships
	ListRelationships(ctx context.Context, appIDs []string) ([]*domain.Relationship, error)
	CreateRelationships(ctx context.Context, rows []*domain.Relationship) error
	DeleteRelationships(ctx context.Context, appID string) error

	// Stakeholder directory
	CreateStakeholder(ctx context.Context, s *domain.Stakeholder) error
	GetStakeholder(ctx context.Context, id string) (*domain.Stakeholder, error)
	ListStakeholders(ctx context.Context) ([]*domain.Stakeholder, error)
	UpdateStakeholder(ctx context.Context, s *domain.Stakeholder) error
	DeleteStakeholder(ctx context.Context, id string) error

	// Stakeholder roles
	ListStakeholderRoles(ctx context.Context, stakeholderIDs []string) ([]*domain.StakeholderRole, error)
	CreateStakeholderRole(ctx context.Context, role *domain.StakeholderRole) error
	DeleteStakeholderRole(ctx context.Context, id string) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}

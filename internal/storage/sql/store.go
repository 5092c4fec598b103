package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// isForeignKeyViolation checks if an error is a FOREIGN KEY constraint violation.
func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "FOREIGN KEY constraint failed") ||
		strings.Contains(errStr, "violates foreign key constraint")
}

// wrapWriteError converts constraint violations to domain errors.
func wrapWriteError(err error) error {
	switch {
	case isUniqueViolation(err):
		return domain.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return domain.ErrNotFound
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store and runs the embedded migrations.
func New(driver, dsn string) (*Store, error) {
	if driver == "sqlite3" && !strings.Contains(dsn, "_foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_foreign_keys=on"
	}

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// NewWithDB wraps an already migrated connection.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db, driver: db.DriverName()}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, driver: s.driver}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx     *sqlx.Tx
	driver string
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// selectIn runs a query containing a single "IN (?)" clause expanded over ids.
func selectIn(ctx context.Context, db dbInterface, dest any, query string, ids []string) error {
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return err
	}
	return db.SelectContext(ctx, dest, db.Rebind(q), args...)
}

func requireRow(result sql.Result) error {
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// API Keys
// ============================================

func createAPIKey(ctx context.Context, db dbInterface, key *domain.APIKey) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.LastUsedAt)
	return wrapWriteError(err)
}

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, s.db, key)
}

func (t *Tx) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	return createAPIKey(ctx, t.tx, key)
}

func getAPIKeyByHash(ctx context.Context, db dbInterface, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := db.GetContext(ctx, &key,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys WHERE key_hash = $1`, keyHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, s.db, keyHash)
}

func (t *Tx) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	return getAPIKeyByHash(ctx, t.tx, keyHash)
}

func listAPIKeys(ctx context.Context, db dbInterface) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	err := db.SelectContext(ctx, &keys,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, s.db)
}

func (t *Tx) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	return listAPIKeys(ctx, t.tx)
}

func deleteAPIKey(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, s.db, id)
}

func (t *Tx) DeleteAPIKey(ctx context.Context, id string) error {
	return deleteAPIKey(ctx, t.tx, id)
}

func updateAPIKeyLastUsed(ctx context.Context, db dbInterface, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return updateAPIKeyLastUsed(ctx, s.db, id)
}

func (t *Tx) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	return updateAPIKeyLastUsed(ctx, t.tx, id)
}

func countAPIKeys(ctx context.Context, db dbInterface) (int, error) {
	var count int
	err := db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`)
	return count, err
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, s.db)
}

func (t *Tx) CountAPIKeys(ctx context.Context) (int, error) {
	return countAPIKeys(ctx, t.tx)
}

// ============================================
// Applications
// ============================================

// applicationRow stores the domain and stack lists as JSON text columns.
type applicationRow struct {
	ID                string    `db:"id"`
	AppCode           string    `db:"app_code"`
	Name              string    `db:"name"`
	Description       string    `db:"description"`
	FunctionalDomains string    `db:"functional_domains"`
	TechnicalStack    string    `db:"technical_stack"`
	Status            string    `db:"status"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

const applicationColumns = `id, app_code, name, description, functional_domains, technical_stack, status, created_at, updated_at`

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	return string(b)
}

func decodeList(s string) []string {
	list := []string{}
	if s != "" {
		_ = json.Unmarshal([]byte(s), &list)
	}
	return list
}

func rowToApplication(row *applicationRow) *domain.ApplicationRecord {
	return &domain.ApplicationRecord{
		ID:                row.ID,
		AppCode:           row.AppCode,
		Name:              row.Name,
		Description:       row.Description,
		FunctionalDomains: decodeList(row.FunctionalDomains),
		TechnicalStack:    decodeList(row.TechnicalStack),
		Status:            domain.Status(row.Status),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
}

func createApplication(ctx context.Context, db dbInterface, app *domain.ApplicationRecord) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO applications (`+applicationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		app.ID, app.AppCode, app.Name, app.Description,
		encodeList(app.FunctionalDomains), encodeList(app.TechnicalStack),
		string(app.Status), app.CreatedAt, app.UpdatedAt)
	return wrapWriteError(err)
}

func (s *Store) CreateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	return createApplication(ctx, s.db, app)
}

func (t *Tx) CreateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	return createApplication(ctx, t.tx, app)
}

func getApplicationWhere(ctx context.Context, db dbInterface, where string, arg any) (*domain.ApplicationRecord, error) {
	var row applicationRow
	err := db.GetContext(ctx, &row, `SELECT `+applicationColumns+` FROM applications WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rowToApplication(&row), nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error) {
	return getApplicationWhere(ctx, s.db, `id = $1`, id)
}

func (t *Tx) GetApplication(ctx context.Context, id string) (*domain.ApplicationRecord, error) {
	return getApplicationWhere(ctx, t.tx, `id = $1`, id)
}

func (s *Store) GetApplicationByCode(ctx context.Context, appCode string) (*domain.ApplicationRecord, error) {
	return getApplicationWhere(ctx, s.db, `app_code = $1`, appCode)
}

func (t *Tx) GetApplicationByCode(ctx context.Context, appCode string) (*domain.ApplicationRecord, error) {
	return getApplicationWhere(ctx, t.tx, `app_code = $1`, appCode)
}

func listApplications(ctx context.Context, db dbInterface, query string) ([]*domain.ApplicationRecord, error) {
	var rows []applicationRow
	var err error
	if query == "" {
		err = db.SelectContext(ctx, &rows,
			`SELECT `+applicationColumns+` FROM applications ORDER BY updated_at DESC, id`)
	} else {
		pattern := "%" + strings.ToLower(query) + "%"
		err = db.SelectContext(ctx, &rows,
			`SELECT `+applicationColumns+` FROM applications
			 WHERE LOWER(name) LIKE $1 OR LOWER(description) LIKE $1 OR LOWER(app_code) LIKE $1
			 ORDER BY updated_at DESC, id`, pattern)
	}
	if err != nil {
		return nil, err
	}

	apps := make([]*domain.ApplicationRecord, 0, len(rows))
	for i := range rows {
		apps = append(apps, rowToApplication(&rows[i]))
	}
	return apps, nil
}

func (s *Store) ListApplications(ctx context.Context, query string) ([]*domain.ApplicationRecord, error) {
	return listApplications(ctx, s.db, query)
}

func (t *Tx) ListApplications(ctx context.Context, query string) ([]*domain.ApplicationRecord, error) {
	return listApplications(ctx, t.tx, query)
}

func updateApplication(ctx context.Context, db dbInterface, app *domain.ApplicationRecord) error {
	result, err := db.ExecContext(ctx,
		`UPDATE applications SET app_code = $1, name = $2, description = $3, functional_domains = $4,
		 technical_stack = $5, status = $6, updated_at = $7 WHERE id = $8`,
		app.AppCode, app.Name, app.Description,
		encodeList(app.FunctionalDomains), encodeList(app.TechnicalStack),
		string(app.Status), app.UpdatedAt, app.ID)
	if err != nil {
		return wrapWriteError(err)
	}
	return requireRow(result)
}

func (s *Store) UpdateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	return updateApplication(ctx, s.db, app)
}

func (t *Tx) UpdateApplication(ctx context.Context, app *domain.ApplicationRecord) error {
	return updateApplication(ctx, t.tx, app)
}

func deleteApplication(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteApplication(ctx context.Context, id string) error {
	return deleteApplication(ctx, s.db, id)
}

func (t *Tx) DeleteApplication(ctx context.Context, id string) error {
	return deleteApplication(ctx, t.tx, id)
}

// ============================================
// Application stakeholders
// ============================================

func listAppStakeholders(ctx context.Context, db dbInterface, appIDs []string) ([]*domain.StakeholderAssignment, error) {
	rows := []*domain.StakeholderAssignment{}
	if len(appIDs) == 0 {
		return rows, nil
	}
	err := selectIn(ctx, db, &rows,
		`SELECT id, application_id, role, name, stakeholder_id, created_at
		 FROM application_stakeholders WHERE application_id IN (?) ORDER BY created_at, id`, appIDs)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListAppStakeholders(ctx context.Context, appIDs []string) ([]*domain.StakeholderAssignment, error) {
	return listAppStakeholders(ctx, s.db, appIDs)
}

func (t *Tx) ListAppStakeholders(ctx context.Context, appIDs []string) ([]*domain.StakeholderAssignment, error) {
	return listAppStakeholders(ctx, t.tx, appIDs)
}

func createAppStakeholders(ctx context.Context, db dbInterface, rows []*domain.StakeholderAssignment) error {
	for _, row := range rows {
		_, err := db.ExecContext(ctx,
			`INSERT INTO application_stakeholders (id, application_id, role, name, stakeholder_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			row.ID, row.ApplicationID, string(row.Role), row.Name, row.StakeholderID, row.CreatedAt)
		if err != nil {
			return wrapWriteError(err)
		}
	}
	return nil
}

func (s *Store) CreateAppStakeholders(ctx context.Context, rows []*domain.StakeholderAssignment) error {
	return createAppStakeholders(ctx, s.db, rows)
}

func (t *Tx) CreateAppStakeholders(ctx context.Context, rows []*domain.StakeholderAssignment) error {
	return createAppStakeholders(ctx, t.tx, rows)
}

func deleteAppStakeholders(ctx context.Context, db dbInterface, appID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM application_stakeholders WHERE application_id = $1`, appID)
	return err
}

func (s *Store) DeleteAppStakeholders(ctx context.Context, appID string) error {
	return deleteAppStakeholders(ctx, s.db, appID)
}

func (t *Tx) DeleteAppStakeholders(ctx context.Context, appID string) error {
	return deleteAppStakeholders(ctx, t.tx, appID)
}

func renameAppStakeholder(ctx context.Context, db dbInterface, stakeholderID, name string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE application_stakeholders SET name = $1 WHERE stakeholder_id = $2`, name, stakeholderID)
	return err
}

func (s *Store) RenameAppStakeholder(ctx context.Context, stakeholderID, name string) error {
	return renameAppStakeholder(ctx, s.db, stakeholderID, name)
}

func (t *Tx) RenameAppStakeholder(ctx context.Context, stakeholderID, name string) error {
	return renameAppStakeholder(ctx, t.tx, stakeholderID, name)
}

// ============================================
// Application relationships
// ============================================

func listRelationships(ctx context.Context, db dbInterface, appIDs []string) ([]*domain.Relationship, error) {
	rows := []*domain.Relationship{}
	if len(appIDs) == 0 {
		return rows, nil
	}
	err := selectIn(ctx, db, &rows,
		`SELECT id, source_app_id, target_app_code, relationship_type, created_at
		 FROM application_relationships WHERE source_app_id IN (?) ORDER BY created_at, id`, appIDs)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *Store) ListRelationships(ctx context.Context, appIDs []string) ([]*domain.Relationship, error) {
	return listRelationships(ctx, s.db, appIDs)
}

func (t *Tx) ListRelationships(ctx context.Context, appIDs []string) ([]*domain.Relationship, error) {
	return listRelationships(ctx, t.tx, appIDs)
}

func createRelationships(ctx context.Context, db dbInterface, rows []*domain.Relationship) error {
	for _, row := range rows {
		_, err := db.ExecContext(ctx,
			`INSERT INTO application_relationships (id, source_app_id, target_app_code, relationship_type, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			row.ID, row.SourceAppID, row.TargetAppCode, string(row.Type), row.CreatedAt)
		if err != nil {
			return wrapWriteError(err)
		}
	}
	return nil
}

func (s *Store) CreateRelationships(ctx context.Context, rows []*domain.Relationship) error {
	return createRelationships(ctx, s.db, rows)
}

func (t *Tx) CreateRelationships(ctx context.Context, rows []*domain.Relationship) error {
	return createRelationships(ctx, t.tx, rows)
}

func deleteRelationships(ctx context.Context, db dbInterface, appID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM application_relationships WHERE source_app_id = $1`, appID)
	return err
}

func (s *Store) DeleteRelationships(ctx context.Context, appID string) error {
	return deleteRelationships(ctx, s.db, appID)
}

func (t *Tx) DeleteRelationships(ctx context.Context, appID string) error {
	return deleteRelationships(ctx, t.tx, appID)
}

// ============================================
// Stakeholder directory
// ============================================

const stakeholderColumns = `id, name, email, department, position, created_at`

func createStakeholder(ctx context.Context, db dbInterface, st *domain.Stakeholder) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO stakeholders (`+stakeholderColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		st.ID, st.Name, st.Email, st.Department, st.Position, st.CreatedAt)
	return wrapWriteError(err)
}

func (s *Store) CreateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	return createStakeholder(ctx, s.db, st)
}

func (t *Tx) CreateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	return createStakeholder(ctx, t.tx, st)
}

func getStakeholder(ctx context.Context, db dbInterface, id string) (*domain.Stakeholder, error) {
	var st domain.Stakeholder
	err := db.GetContext(ctx, &st, `SELECT `+stakeholderColumns+` FROM stakeholders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) GetStakeholder(ctx context.Context, id string) (*domain.Stakeholder, error) {
	return getStakeholder(ctx, s.db, id)
}

func (t *Tx) GetStakeholder(ctx context.Context, id string) (*domain.Stakeholder, error) {
	return getStakeholder(ctx, t.tx, id)
}

func listStakeholders(ctx context.Context, db dbInterface) ([]*domain.Stakeholder, error) {
	list := []*domain.Stakeholder{}
	err := db.SelectContext(ctx, &list, `SELECT `+stakeholderColumns+` FROM stakeholders ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Store) ListStakeholders(ctx context.Context) ([]*domain.Stakeholder, error) {
	return listStakeholders(ctx, s.db)
}

func (t *Tx) ListStakeholders(ctx context.Context) ([]*domain.Stakeholder, error) {
	return listStakeholders(ctx, t.tx)
}

func updateStakeholder(ctx context.Context, db dbInterface, st *domain.Stakeholder) error {
	result, err := db.ExecContext(ctx,
		`UPDATE stakeholders SET name = $1, email = $2, department = $3, position = $4 WHERE id = $5`,
		st.Name, st.Email, st.Department, st.Position, st.ID)
	if err != nil {
		return wrapWriteError(err)
	}
	return requireRow(result)
}

func (s *Store) UpdateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	return updateStakeholder(ctx, s.db, st)
}

func (t *Tx) UpdateStakeholder(ctx context.Context, st *domain.Stakeholder) error {
	return updateStakeholder(ctx, t.tx, st)
}

func deleteStakeholder(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM stakeholders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteStakeholder(ctx context.Context, id string) error {
	return deleteStakeholder(ctx, s.db, id)
}

func (t *Tx) DeleteStakeholder(ctx context.Context, id string) error {
	return deleteStakeholder(ctx, t.tx, id)
}

// ============================================
// Stakeholder roles
// ============================================

func listStakeholderRoles(ctx context.Context, db dbInterface, stakeholderIDs []string) ([]*domain.StakeholderRole, error) {
	roles := []*domain.StakeholderRole{}
	if len(stakeholderIDs) == 0 {
		return roles, nil
	}
	err := selectIn(ctx, db, &roles,
		`SELECT r.id, r.stakeholder_id, r.application_id, COALESCE(a.app_code, '') AS application_code,
		        r.role, r.created_at
		 FROM stakeholder_roles r LEFT JOIN applications a ON a.id = r.application_id
		 WHERE r.stakeholder_id IN (?) ORDER BY r.created_at, r.id`, stakeholderIDs)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *Store) ListStakeholderRoles(ctx context.Context, stakeholderIDs []string) ([]*domain.StakeholderRole, error) {
	return listStakeholderRoles(ctx, s.db, stakeholderIDs)
}

func (t *Tx) ListStakeholderRoles(ctx context.Context, stakeholderIDs []string) ([]*domain.StakeholderRole, error) {
	return listStakeholderRoles(ctx, t.tx, stakeholderIDs)
}

func createStakeholderRole(ctx context.Context, db dbInterface, role *domain.StakeholderRole) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO stakeholder_roles (id, stakeholder_id, application_id, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		role.ID, role.StakeholderID, role.ApplicationID, role.Role, role.CreatedAt)
	return wrapWriteError(err)
}

func (s *Store) CreateStakeholderRole(ctx context.Context, role *domain.StakeholderRole) error {
	return createStakeholderRole(ctx, s.db, role)
}

func (t *Tx) CreateStakeholderRole(ctx context.Context, role *domain.StakeholderRole) error {
	return createStakeholderRole(ctx, t.tx, role)
}

func deleteStakeholderRole(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM stakeholder_roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteStakeholderRole(ctx context.Context, id string) error {
	return deleteStakeholderRole(ctx, s.db, id)
}

func (t *Tx) DeleteStakeholderRole(ctx context.Context, id string) error {
	return deleteStakeholderRole(ctx, t.tx, id)
}

// ============================================
// Users
// ============================================

const userColumns = `id, email, name, role, password_hash, created_at, updated_at`

func createUser(ctx context.Context, db dbInterface, user *domain.User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Name, string(user.Role), user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return wrapWriteError(err)
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, s.db, user)
}

func (t *Tx) CreateUser(ctx context.Context, user *domain.User) error {
	return createUser(ctx, t.tx, user)
}

func getUserWhere(ctx context.Context, db dbInterface, where string, arg any) (*domain.User, error) {
	var user domain.User
	err := db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUserWhere(ctx, s.db, `id = $1`, id)
}

func (t *Tx) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return getUserWhere(ctx, t.tx, `id = $1`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUserWhere(ctx, s.db, `LOWER(email) = LOWER($1)`, email)
}

func (t *Tx) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return getUserWhere(ctx, t.tx, `LOWER(email) = LOWER($1)`, email)
}

func listUsers(ctx context.Context, db dbInterface) ([]*domain.User, error) {
	users := []*domain.User{}
	err := db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return listUsers(ctx, s.db)
}

func (t *Tx) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return listUsers(ctx, t.tx)
}

func updateUser(ctx context.Context, db dbInterface, user *domain.User) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET email = $1, name = $2, role = $3, password_hash = $4, updated_at = $5 WHERE id = $6`,
		user.Email, user.Name, string(user.Role), user.PasswordHash, user.UpdatedAt, user.ID)
	if err != nil {
		return wrapWriteError(err)
	}
	return requireRow(result)
}

func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	return updateUser(ctx, s.db, user)
}

func (t *Tx) UpdateUser(ctx context.Context, user *domain.User) error {
	return updateUser(ctx, t.tx, user)
}

func deleteUser(ctx context.Context, db dbInterface, id string) error {
	result, err := db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteUser(ctx, s.db, id)
}

func (t *Tx) DeleteUser(ctx context.Context, id string) error {
	return deleteUser(ctx, t.tx, id)
}

package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/slipway-sh/slipway/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store on a local SQLite file. Writes go through
// single-statement transactions, so a crash mid-apply never leaves a
// half-written record.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (creating if needed) the state database at dsn and
// runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations applies the embedded schema migrations.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Mapping
// =============================================================================

type recordRow struct {
	ID           string `db:"id"`
	RepoURL      string `db:"repo_url"`
	ServiceName  string `db:"service_name"`
	ImageRef     string `db:"image_ref"`
	TemplateID   string `db:"template_id"`
	InfraParams  string `db:"infra_params"`
	WorkDir      string `db:"work_dir"`
	Status       string `db:"status"`
	StatusDetail string `db:"status_detail"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func toRow(record *domain.StateRecord) (*recordRow, error) {
	params, err := json.Marshal(record.InfraParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return &recordRow{
		ID:           record.ID,
		RepoURL:      record.RepoURL,
		ServiceName:  record.ServiceName,
		ImageRef:     record.ImageRef,
		TemplateID:   record.TemplateID,
		InfraParams:  string(params),
		WorkDir:      record.WorkDir,
		Status:       string(record.Status),
		StatusDetail: record.StatusDetail,
		CreatedAt:    record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

func (r *recordRow) toDomain() (*domain.StateRecord, error) {
	var params map[string]string
	if err := json.Unmarshal([]byte(r.InfraParams), &params); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339Nano, r.UpdatedAt)

	return &domain.StateRecord{
		ID:           r.ID,
		RepoURL:      r.RepoURL,
		ServiceName:  r.ServiceName,
		ImageRef:     r.ImageRef,
		TemplateID:   r.TemplateID,
		InfraParams:  params,
		WorkDir:      r.WorkDir,
		Status:       domain.DeploymentStatus(r.Status),
		StatusDetail: r.StatusDetail,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}

// =============================================================================
// Record Operations
// =============================================================================

func (s *SQLiteStore) CreateRecord(ctx context.Context, record *domain.StateRecord) error {
	row, err := toRow(record)
	if err != nil {
		return NewStoreError("CreateRecord", record.ID, err.Error(), ErrInvalidData)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO deployments (
			id, repo_url, service_name, image_ref, template_id,
			infra_params, work_dir, status, status_detail, created_at, updated_at
		) VALUES (
			:id, :repo_url, :service_name, :image_ref, :template_id,
			:infra_params, :work_dir, :status, :status_detail, :created_at, :updated_at
		)`, row)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("CreateRecord", record.ID, "identifier already exists", ErrDuplicateID)
		}
		return NewStoreError("CreateRecord", record.ID, err.Error(), err)
	}
	return nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*domain.StateRecord, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM deployments WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRecord", id, "no record for identifier", ErrNotFound)
		}
		return nil, NewStoreError("GetRecord", id, err.Error(), err)
	}
	return row.toDomain()
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, record *domain.StateRecord) error {
	row, err := toRow(record)
	if err != nil {
		return NewStoreError("UpdateRecord", record.ID, err.Error(), ErrInvalidData)
	}

	result, err := s.db.NamedExecContext(ctx, `
		UPDATE deployments SET
			repo_url = :repo_url,
			service_name = :service_name,
			image_ref = :image_ref,
			template_id = :template_id,
			infra_params = :infra_params,
			work_dir = :work_dir,
			status = :status,
			status_detail = :status_detail,
			updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return NewStoreError("UpdateRecord", record.ID, err.Error(), err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return NewStoreError("UpdateRecord", record.ID, err.Error(), err)
	}
	if affected == 0 {
		return NewStoreError("UpdateRecord", record.ID, "no record for identifier", ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context) ([]domain.StateRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM deployments ORDER BY created_at DESC`)
	if err != nil {
		return nil, NewStoreError("ListRecords", "", err.Error(), err)
	}

	records := make([]domain.StateRecord, 0, len(rows))
	for i := range rows {
		record, err := rows[i].toDomain()
		if err != nil {
			return nil, NewStoreError("ListRecords", rows[i].ID, err.Error(), ErrInvalidData)
		}
		records = append(records, *record)
	}
	return records, nil
}

var _ Store = (*SQLiteStore)(nil)

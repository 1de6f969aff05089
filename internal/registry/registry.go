// Package registry holds the known projects and clients that documents are
// attributed to. The attribution resolver only reads from it; rows are
// seeded by the import path and otherwise owned by the surrounding CRM/CRUD
// layer.
package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veltaworks/docintel/internal/db"
)

// Project is a minimal project reference used for attribution matching and
// search filtering.
type Project struct {
	ID         string    `json:"id"`
	Number     string    `json:"number"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	ClientID   string    `json:"client_id,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
	Centroid   []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Lookup is the read-only view the attribution resolver consumes.
type Lookup interface {
	// ByNumber returns the project with the exact project number, or nil.
	ByNumber(ctx context.Context, number string) (*Project, error)

	// List returns all known projects.
	List(ctx context.Context) ([]*Project, error)
}

// Store provides registry access backed by SQLite.
type Store struct {
	db *db.DB
}

// NewStore creates a registry store.
func NewStore(d *db.DB) *Store {
	return &Store{db: d}
}

// Add inserts or updates a project, keyed by project number.
func (s *Store) Add(ctx context.Context, p *Project) error {
	if p.Number == "" {
		return fmt.Errorf("project number is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var centroid []byte
	if len(p.Centroid) > 0 {
		var err error
		centroid, err = json.Marshal(p.Centroid)
		if err != nil {
			return fmt.Errorf("encoding centroid: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, number, name, status, client_id, client_name, centroid, created_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(number) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			client_id = excluded.client_id,
			client_name = excluded.client_name,
			centroid = COALESCE(excluded.centroid, projects.centroid)`,
		p.ID, p.Number, p.Name, p.Status, p.ClientID, p.ClientName,
		centroid, p.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("adding project %s: %w", p.Number, err)
	}
	return nil
}

// ByNumber returns the project with the exact number, or nil when unknown.
func (s *Store) ByNumber(ctx context.Context, number string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE number = ?", number)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up project %s: %w", number, err)
	}
	return p, nil
}

// List returns all known projects ordered by number.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+projectColumns+" FROM projects ORDER BY number")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

const projectColumns = "id, number, name, status, client_id, client_name, centroid, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p         Project
		centroid  []byte
		createdAt string
	)
	err := row.Scan(&p.ID, &p.Number, &p.Name, &p.Status, &p.ClientID, &p.ClientName,
		&centroid, &createdAt)
	if err != nil {
		return nil, err
	}
	if len(centroid) > 0 {
		if err := json.Unmarshal(centroid, &p.Centroid); err != nil {
			return nil, fmt.Errorf("decoding centroid for %s: %w", p.Number, err)
		}
	}
	p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at for %s: %w", p.Number, err)
	}
	return &p, nil
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/skylayer/pkg/layers"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	status TEXT NOT NULL,
	master_artifact_id TEXT NOT NULL DEFAULT '',
	layer_artifact_ids JSON NOT NULL DEFAULT '[]',
	layers JSON NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);

CREATE TABLE IF NOT EXISTS artifacts (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL REFERENCES projects(id),
	kind TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	data BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_project ON artifacts(project_id);
`

// SQLiteStore keeps projects in a single SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func NewSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting into one database per connection.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) CreateProject(ctx context.Context, name string) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "create_project", start, err) }(time.Now())

	p, err = newProject(name, s.now().UTC())
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Status), p.CreatedAt.UnixNano(), p.UpdatedAt.UnixNano())
	if err != nil {
		return nil, storageErr(err, "insert project")
	}
	return p, nil
}

const projectColumns = `id, name, status, master_artifact_id, layer_artifact_ids, layers, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p                  Project
		status             string
		idsJSON, infosJSON string
		created, updated   int64
	)
	if err := row.Scan(&p.ID, &p.Name, &status, &p.MasterArtifactID, &idsJSON, &infosJSON, &created, &updated); err != nil {
		return nil, err
	}
	p.Status = Status(status)
	if err := json.Unmarshal([]byte(idsJSON), &p.LayerArtifactIDs); err != nil {
		return nil, fmt.Errorf("decode layer ids of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(infosJSON), &p.Layers); err != nil {
		return nil, fmt.Errorf("decode layers of %s: %w", p.ID, err)
	}
	if p.LayerArtifactIDs == nil {
		p.LayerArtifactIDs = []string{}
	}
	if p.Layers == nil {
		p.Layers = []layers.Info{}
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return &p, nil
}

func (s *SQLiteStore) GetProject(ctx context.Context, id string) (*Project, error) {
	return getProject(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProject(ctx context.Context, q querier, id string) (*Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, projectNotFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "select project")
	}
	return p, nil
}

func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, storageErr(err, "list projects")
	}
	defer func() { _ = rows.Close() }()

	out := []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, storageErr(err, "scan project")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err, "list projects")
	}
	return out, nil
}

func insertArtifact(ctx context.Context, tx *sql.Tx, a *Artifact) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (id, project_id, kind, filename, content_type, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ProjectID, string(a.Kind), a.Filename, a.ContentType, a.Data, a.CreatedAt.UnixNano())
	return err
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageErr(err, "commit")
	}
	return nil
}

func (s *SQLiteStore) SaveMaster(ctx context.Context, projectID, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "save_master", start, err) }(time.Now())

	now := s.now().UTC()
	a, err = newArtifact(projectID, KindMaster, filename, data, now)
	if err != nil {
		return nil, err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := insertArtifact(ctx, tx, a); err != nil {
			return storageErr(err, "insert master")
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE projects SET master_artifact_id = ?, layer_artifact_ids = '[]', layers = '[]', status = ?, updated_at = ? WHERE id = ?`,
			a.ID, string(StatusUploaded), now.UnixNano(), projectID)
		return storageErr(err, "update project")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) SaveSeparation(ctx context.Context, projectID string, docs []LayerDocument) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "save_separation", start, err) }(time.Now())

	now := s.now().UTC()
	arts, ids, infos, err := newLayerArtifacts(projectID, docs, now)
	if err != nil {
		return nil, err
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return nil, storageErr(err, "encode layer ids")
	}
	infosJSON, err := json.Marshal(infos)
	if err != nil {
		return nil, storageErr(err, "encode layers")
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if cur.MasterArtifactID == "" {
			return missingMaster(projectID)
		}
		for _, a := range arts {
			if err := insertArtifact(ctx, tx, a); err != nil {
				return storageErr(err, "insert layer")
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET layer_artifact_ids = ?, layers = ?, status = ?, updated_at = ? WHERE id = ?`,
			string(idsJSON), string(infosJSON), string(StatusSeparated), now.UnixNano(), projectID)
		if err != nil {
			return storageErr(err, "update project")
		}
		p, err = getProject(ctx, tx, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) SaveArtifact(ctx context.Context, projectID string, kind Kind, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "sqlite", "save_artifact", start, err) }(time.Now())

	a, err = newArtifact(projectID, kind, filename, data, s.now().UTC())
	if err != nil {
		return nil, err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}
		return storageErr(insertArtifact(ctx, tx, a), "insert artifact")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *SQLiteStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	var (
		a       Artifact
		kind    string
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, kind, filename, content_type, data, created_at FROM artifacts WHERE id = ?`, id).
		Scan(&a.ID, &a.ProjectID, &kind, &a.Filename, &a.ContentType, &a.Data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, artifactNotFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "select artifact")
	}
	a.Kind = Kind(kind)
	a.Size = len(a.Data)
	a.CreatedAt = time.Unix(0, created).UTC()
	return &a, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)

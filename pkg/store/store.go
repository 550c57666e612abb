// Package store persists skyline projects and their artifacts.
//
// A project owns one master document and, once separated, three layer
// documents. Every document is stored as an [Artifact]; the [Project] record
// points at them by id and carries the layer summaries of the last
// separation.
//
// Three backends implement [Store]:
//   - memory: in-process maps for tests and the standalone server
//   - sqlite: a single local database file
//   - mongo: MongoDB collections for shared deployments
//
// # Atomicity
//
// [Store.SaveSeparation] writes the three layer artifacts and updates the
// project as one unit. Either the project points at all three new layers or
// the call fails and nothing is visible.
//
// # Usage
//
//	st, err := store.NewSQLite(ctx, "skylayer.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	p, _ := st.CreateProject(ctx, "harbor skyline")
//	st.SaveMaster(ctx, p.ID, "harbor.svg", master)
//	st.SaveSeparation(ctx, p.ID, layerArtifacts)
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/observability"
)

// Status tracks how far a project has progressed.
type Status string

const (
	StatusCreated   Status = "created"
	StatusUploaded  Status = "master_uploaded"
	StatusSeparated Status = "separated"
)

// Kind classifies an artifact.
type Kind string

const (
	KindMaster Kind = "master"
	KindLayer  Kind = "layer"
	KindSpaced Kind = "spaced"
)

// ContentTypeSVG is the content type of every stored document.
const ContentTypeSVG = "image/svg+xml"

// Project is a named skyline with its master and layer documents.
type Project struct {
	ID               string        `json:"id" bson:"_id"`
	Name             string        `json:"name" bson:"name"`
	Status           Status        `json:"status" bson:"status"`
	MasterArtifactID string        `json:"master_artifact_id,omitempty" bson:"master_artifact_id,omitempty"`
	LayerArtifactIDs []string      `json:"layer_artifact_ids" bson:"layer_artifact_ids"`
	Layers           []layers.Info `json:"layers" bson:"layers"`
	CreatedAt        time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" bson:"updated_at"`
}

// Artifact is one stored document.
type Artifact struct {
	ID          string    `json:"id" bson:"_id"`
	ProjectID   string    `json:"project_id" bson:"project_id"`
	Kind        Kind      `json:"kind" bson:"kind"`
	Filename    string    `json:"filename" bson:"filename"`
	ContentType string    `json:"content_type" bson:"content_type"`
	Size        int       `json:"size" bson:"size"`
	Data        []byte    `json:"-" bson:"data"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// LayerDocument is one layer handed to SaveSeparation.
type LayerDocument struct {
	Info     layers.Info
	Filename string
	Data     []byte
}

// Store is the interface for project persistence backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// CreateProject creates an empty project.
	CreateProject(ctx context.Context, name string) (*Project, error)

	// GetProject returns ErrCodeProjectNotFound for unknown ids.
	GetProject(ctx context.Context, id string) (*Project, error)

	// ListProjects returns all projects, most recently updated first.
	ListProjects(ctx context.Context) ([]*Project, error)

	// SaveMaster stores a master document and makes it the project's
	// current master. Layers of a previous master are detached.
	SaveMaster(ctx context.Context, projectID, filename string, data []byte) (*Artifact, error)

	// SaveSeparation stores the layer documents and attaches them to the
	// project atomically. The project must have a master.
	SaveSeparation(ctx context.Context, projectID string, docs []LayerDocument) (*Project, error)

	// SaveArtifact stores a derived document without changing the project.
	SaveArtifact(ctx context.Context, projectID string, kind Kind, filename string, data []byte) (*Artifact, error)

	// GetArtifact returns ErrCodeNotFound for unknown ids.
	GetArtifact(ctx context.Context, id string) (*Artifact, error)

	// Close releases backend resources.
	Close() error
}

func newID() string {
	return uuid.NewString()
}

func newProject(name string, now time.Time) (*Project, error) {
	if err := errs.ValidateProjectName(name); err != nil {
		return nil, err
	}
	return &Project{
		ID:               newID(),
		Name:             name,
		Status:           StatusCreated,
		LayerArtifactIDs: []string{},
		Layers:           []layers.Info{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func newArtifact(projectID string, kind Kind, filename string, data []byte, now time.Time) (*Artifact, error) {
	if err := errs.ValidateFilename(filename); err != nil {
		return nil, err
	}
	return &Artifact{
		ID:          newID(),
		ProjectID:   projectID,
		Kind:        kind,
		Filename:    filename,
		ContentType: ContentTypeSVG,
		Size:        len(data),
		Data:        data,
		CreatedAt:   now,
	}, nil
}

// newLayerArtifacts validates docs and builds their artifacts.
func newLayerArtifacts(projectID string, docs []LayerDocument, now time.Time) ([]*Artifact, []string, []layers.Info, error) {
	if len(docs) == 0 {
		return nil, nil, nil, errs.New(errs.ErrCodeInvalidInput, "separation has no layers")
	}
	arts := make([]*Artifact, 0, len(docs))
	ids := make([]string, 0, len(docs))
	infos := make([]layers.Info, 0, len(docs))
	for _, d := range docs {
		a, err := newArtifact(projectID, KindLayer, d.Filename, d.Data, now)
		if err != nil {
			return nil, nil, nil, err
		}
		arts = append(arts, a)
		ids = append(ids, a.ID)
		infos = append(infos, d.Info)
	}
	return arts, ids, infos, nil
}

func projectNotFound(id string) error {
	return errs.New(errs.ErrCodeProjectNotFound, "project %s not found", id)
}

func artifactNotFound(id string) error {
	return errs.New(errs.ErrCodeNotFound, "artifact %s not found", id)
}

func missingMaster(id string) error {
	return errs.New(errs.ErrCodeMissingMaster, "project %s has no master document", id)
}

// storageErr wraps backend failures. Coded errors pass through.
func storageErr(err error, op string) error {
	if err == nil || errs.GetCode(err) != "" {
		return err
	}
	return errs.Wrap(errs.ErrCodeStorage, err, "%s", op)
}

// observe reports one store call to the registered hooks.
func observe(ctx context.Context, backend, op string, start time.Time, err error) {
	observability.Store().OnStoreOperation(ctx, backend, op, time.Since(start), err)
}

func cloneProject(p *Project) *Project {
	c := *p
	c.LayerArtifactIDs = append([]string{}, p.LayerArtifactIDs...)
	c.Layers = append([]layers.Info{}, p.Layers...)
	return &c
}

func cloneArtifact(a *Artifact) *Artifact {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/skylayer/pkg/layers"
)

// MemoryStore is an in-memory store for development and testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu        sync.RWMutex
	projects  map[string]*Project
	artifacts map[string]*Artifact
	now       func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		projects:  make(map[string]*Project),
		artifacts: make(map[string]*Artifact),
		now:       time.Now,
	}
}

func (s *MemoryStore) CreateProject(ctx context.Context, name string) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "create_project", start, err) }(time.Now())

	p, err = newProject(name, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.projects[p.ID] = p
	s.mu.Unlock()
	return cloneProject(p), nil
}

func (s *MemoryStore) GetProject(ctx context.Context, id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[id]
	if !ok {
		return nil, projectNotFound(id)
	}
	return cloneProject(p), nil
}

func (s *MemoryStore) ListProjects(ctx context.Context) ([]*Project, error) {
	s.mu.RLock()
	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, cloneProject(p))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) SaveMaster(ctx context.Context, projectID, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "save_master", start, err) }(time.Now())

	now := s.now().UTC()
	a, err = newArtifact(projectID, KindMaster, filename, append([]byte(nil), data...), now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok {
		return nil, projectNotFound(projectID)
	}
	s.artifacts[a.ID] = a
	p.MasterArtifactID = a.ID
	p.LayerArtifactIDs = []string{}
	p.Layers = []layers.Info{}
	p.Status = StatusUploaded
	p.UpdatedAt = now
	return cloneArtifact(a), nil
}

func (s *MemoryStore) SaveSeparation(ctx context.Context, projectID string, docs []LayerDocument) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "save_separation", start, err) }(time.Now())

	now := s.now().UTC()
	arts, ids, infos, err := newLayerArtifacts(projectID, docs, now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.projects[projectID]
	if !ok {
		return nil, projectNotFound(projectID)
	}
	if cur.MasterArtifactID == "" {
		return nil, missingMaster(projectID)
	}
	for _, a := range arts {
		a.Data = append([]byte(nil), a.Data...)
		s.artifacts[a.ID] = a
	}
	cur.LayerArtifactIDs = ids
	cur.Layers = infos
	cur.Status = StatusSeparated
	cur.UpdatedAt = now
	return cloneProject(cur), nil
}

func (s *MemoryStore) SaveArtifact(ctx context.Context, projectID string, kind Kind, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "save_artifact", start, err) }(time.Now())

	a, err = newArtifact(projectID, kind, filename, append([]byte(nil), data...), s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[projectID]; !ok {
		return nil, projectNotFound(projectID)
	}
	s.artifacts[a.ID] = a
	return cloneArtifact(a), nil
}

func (s *MemoryStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.artifacts[id]
	if !ok {
		return nil, artifactNotFound(id)
	}
	return cloneArtifact(a), nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)

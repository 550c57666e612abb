package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/observability"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	sq, err := NewSQLite(context.Background(), filepath.Join(t.TempDir(), "skylayer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sq,
	}
}

func layerDocs() []LayerDocument {
	var docs []LayerDocument
	for i, d := range layers.Depths {
		docs = append(docs, LayerDocument{
			Info:     layers.Info{Name: d.Title(), Depth: d.String(), BuildingCount: i + 1, Color: d.Color()},
			Filename: "harbor_layer_" + string(rune('1'+i)) + ".svg",
			Data:     []byte("<svg/>"),
		})
	}
	return docs
}

func TestProjectLifecycle(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p, err := st.CreateProject(ctx, "harbor")
			require.NoError(t, err)
			assert.Equal(t, StatusCreated, p.Status)
			assert.NoError(t, errs.ValidateID(p.ID))
			assert.Empty(t, p.LayerArtifactIDs)

			got, err := st.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, p.Name, got.Name)
			assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

			master, err := st.SaveMaster(ctx, p.ID, "harbor.svg", []byte("<svg>master</svg>"))
			require.NoError(t, err)
			assert.Equal(t, KindMaster, master.Kind)
			assert.Equal(t, ContentTypeSVG, master.ContentType)
			assert.Equal(t, 17, master.Size)

			sep, err := st.SaveSeparation(ctx, p.ID, layerDocs())
			require.NoError(t, err)
			assert.Equal(t, StatusSeparated, sep.Status)
			assert.Equal(t, master.ID, sep.MasterArtifactID)
			require.Len(t, sep.LayerArtifactIDs, 3)
			require.Len(t, sep.Layers, 3)
			assert.Equal(t, "Layer 1 (Front)", sep.Layers[0].Name)

			for _, id := range sep.LayerArtifactIDs {
				a, err := st.GetArtifact(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, KindLayer, a.Kind)
				assert.Equal(t, p.ID, a.ProjectID)
				assert.Equal(t, []byte("<svg/>"), a.Data)
			}

			a, err := st.GetArtifact(ctx, master.ID)
			require.NoError(t, err)
			assert.Equal(t, "<svg>master</svg>", string(a.Data))
		})
	}
}

func TestNewMasterDetachesLayers(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := st.CreateProject(ctx, "harbor")
			require.NoError(t, err)
			_, err = st.SaveMaster(ctx, p.ID, "a.svg", []byte("<svg/>"))
			require.NoError(t, err)
			_, err = st.SaveSeparation(ctx, p.ID, layerDocs())
			require.NoError(t, err)

			second, err := st.SaveMaster(ctx, p.ID, "b.svg", []byte("<svg/>"))
			require.NoError(t, err)

			got, err := st.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusUploaded, got.Status)
			assert.Equal(t, second.ID, got.MasterArtifactID)
			assert.Empty(t, got.LayerArtifactIDs)
			assert.Empty(t, got.Layers)
		})
	}
}

func TestStoreErrors(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := st.GetProject(ctx, "00000000-0000-0000-0000-000000000000")
			assert.True(t, errs.Is(err, errs.ErrCodeProjectNotFound), "got %v", err)

			_, err = st.GetArtifact(ctx, "00000000-0000-0000-0000-000000000000")
			assert.True(t, errs.Is(err, errs.ErrCodeNotFound), "got %v", err)

			_, err = st.CreateProject(ctx, "   ")
			assert.True(t, errs.Is(err, errs.ErrCodeInvalidInput), "got %v", err)

			_, err = st.SaveMaster(ctx, "missing", "a.svg", []byte("<svg/>"))
			assert.True(t, errs.Is(err, errs.ErrCodeProjectNotFound), "got %v", err)

			p, err := st.CreateProject(ctx, "harbor")
			require.NoError(t, err)

			_, err = st.SaveMaster(ctx, p.ID, "../etc/passwd", []byte("<svg/>"))
			assert.True(t, errs.Is(err, errs.ErrCodeInvalidFilename), "got %v", err)

			_, err = st.SaveSeparation(ctx, p.ID, layerDocs())
			assert.True(t, errs.Is(err, errs.ErrCodeMissingMaster), "got %v", err)

			_, err = st.SaveSeparation(ctx, p.ID, nil)
			assert.True(t, errs.Is(err, errs.ErrCodeInvalidInput), "got %v", err)
		})
	}
}

func TestSeparationIsAtomic(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p, err := st.CreateProject(ctx, "harbor")
			require.NoError(t, err)
			_, err = st.SaveMaster(ctx, p.ID, "a.svg", []byte("<svg/>"))
			require.NoError(t, err)

			docs := layerDocs()
			docs[2].Filename = "bad/name.svg"
			_, err = st.SaveSeparation(ctx, p.ID, docs)
			require.Error(t, err)

			got, err := st.GetProject(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, StatusUploaded, got.Status)
			assert.Empty(t, got.LayerArtifactIDs)
		})
	}
}

func TestListProjectsNewestFirst(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			setClock(st, func() time.Time {
				clock = clock.Add(time.Second)
				return clock
			})

			first, err := st.CreateProject(ctx, "first")
			require.NoError(t, err)
			second, err := st.CreateProject(ctx, "second")
			require.NoError(t, err)

			list, err := st.ListProjects(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, second.ID, list[0].ID)

			_, err = st.SaveMaster(ctx, first.ID, "a.svg", []byte("<svg/>"))
			require.NoError(t, err)
			list, err = st.ListProjects(ctx)
			require.NoError(t, err)
			assert.Equal(t, first.ID, list[0].ID)
		})
	}
}

func setClock(st Store, now func() time.Time) {
	switch s := st.(type) {
	case *MemoryStore:
		s.now = now
	case *SQLiteStore:
		s.now = now
	}
}

func TestMemoryStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	p, err := st.CreateProject(ctx, "harbor")
	require.NoError(t, err)
	_, err = st.SaveMaster(ctx, p.ID, "a.svg", []byte("<svg/>"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.SaveSeparation(ctx, p.ID, layerDocs())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.LayerArtifactIDs, 3)
}

func TestReturnedProjectsAreCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	p, err := st.CreateProject(ctx, "harbor")
	require.NoError(t, err)

	p.Name = "changed"
	p.LayerArtifactIDs = append(p.LayerArtifactIDs, "x")

	got, err := st.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "harbor", got.Name)
	assert.Empty(t, got.LayerArtifactIDs)
}

type recordingHooks struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingHooks) OnStoreOperation(_ context.Context, backend, op string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, backend+":"+op)
}

func TestStoreHooks(t *testing.T) {
	rec := &recordingHooks{}
	observability.SetStoreHooks(rec)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	st := NewMemory()
	p, err := st.CreateProject(ctx, "harbor")
	require.NoError(t, err)
	_, _ = st.SaveMaster(ctx, p.ID, "a.svg", []byte("<svg/>"))

	assert.Equal(t, []string{"memory:create_project", "memory:save_master"}, rec.ops)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/skylayer/pkg/layers"
)

// Collection names.
const (
	ProjectsCollection  = "projects"
	ArtifactsCollection = "artifacts"
)

// DefaultMongoDatabase is used when MongoConfig.Database is empty.
const DefaultMongoDatabase = "skylayer"

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// MongoStore keeps projects and artifacts in two MongoDB collections.
//
// On replica sets and sharded clusters SaveSeparation runs in a
// transaction. Standalone servers have no transactions, so the layer
// inserts are undone with a compensating delete when the project update
// fails.
type MongoStore struct {
	client    *mongo.Client
	projects  *mongo.Collection
	artifacts *mongo.Collection
	txn       bool
	now       func() time.Time
}

// NewMongo connects to MongoDB and ensures indexes exist.
func NewMongo(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	s := &MongoStore{
		client:    client,
		projects:  db.Collection(ProjectsCollection),
		artifacts: db.Collection(ArtifactsCollection),
		now:       time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.txn = supportsTransactions(ctx, client)
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.artifacts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create artifact index: %w", err)
	}
	_, err = s.projects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create project index: %w", err)
	}
	return nil
}

// supportsTransactions reports whether the deployment is a replica set
// member or a mongos router.
func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

func (s *MongoStore) CreateProject(ctx context.Context, name string) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "create_project", start, err) }(time.Now())

	p, err = newProject(name, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, err
	}
	if _, err = s.projects.InsertOne(ctx, p); err != nil {
		return nil, storageErr(err, "insert project")
	}
	return p, nil
}

func (s *MongoStore) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, projectNotFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "find project")
	}
	return normalizeProject(&p), nil
}

func (s *MongoStore) ListProjects(ctx context.Context) ([]*Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.projects.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err, "find projects")
	}
	var found []*Project
	if err := cur.All(ctx, &found); err != nil {
		return nil, storageErr(err, "decode projects")
	}
	out := make([]*Project, 0, len(found))
	for _, p := range found {
		out = append(out, normalizeProject(p))
	}
	return out, nil
}

func normalizeProject(p *Project) *Project {
	if p.LayerArtifactIDs == nil {
		p.LayerArtifactIDs = []string{}
	}
	if p.Layers == nil {
		p.Layers = []layers.Info{}
	}
	return p
}

func (s *MongoStore) SaveMaster(ctx context.Context, projectID, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "save_master", start, err) }(time.Now())

	now := s.now().UTC().Truncate(time.Millisecond)
	a, err = newArtifact(projectID, KindMaster, filename, data, now)
	if err != nil {
		return nil, err
	}
	if _, err = s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err = s.artifacts.InsertOne(ctx, a); err != nil {
		return nil, storageErr(err, "insert master")
	}
	res, err := s.projects.UpdateByID(ctx, projectID, bson.M{"$set": bson.M{
		"master_artifact_id": a.ID,
		"layer_artifact_ids": []string{},
		"layers":             bson.A{},
		"status":             StatusUploaded,
		"updated_at":         now,
	}})
	if err == nil && res.MatchedCount == 0 {
		err = projectNotFound(projectID)
	}
	if err != nil {
		s.compensate(a.ID)
		return nil, storageErr(err, "update project")
	}
	return a, nil
}

func (s *MongoStore) SaveSeparation(ctx context.Context, projectID string, docs []LayerDocument) (p *Project, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "save_separation", start, err) }(time.Now())

	now := s.now().UTC().Truncate(time.Millisecond)
	arts, ids, infos, err := newLayerArtifacts(projectID, docs, now)
	if err != nil {
		return nil, err
	}
	batch := make([]any, len(arts))
	for i, a := range arts {
		batch[i] = a
	}
	update := bson.M{"$set": bson.M{
		"layer_artifact_ids": ids,
		"layers":             infos,
		"status":             StatusSeparated,
		"updated_at":         now,
	}}
	// The project may change between the read and the update.
	filter := bson.M{"_id": projectID, "master_artifact_id": bson.M{"$nin": bson.A{"", nil}}}

	apply := func(ctx context.Context) error {
		cur, err := s.GetProject(ctx, projectID)
		if err != nil {
			return err
		}
		if cur.MasterArtifactID == "" {
			return missingMaster(projectID)
		}
		if _, err := s.artifacts.InsertMany(ctx, batch); err != nil {
			return storageErr(err, "insert layers")
		}
		res, err := s.projects.UpdateOne(ctx, filter, update)
		if err != nil {
			return storageErr(err, "update project")
		}
		if res.MatchedCount == 0 {
			return missingMaster(projectID)
		}
		return nil
	}

	if s.txn {
		err = s.inTransaction(ctx, apply)
	} else {
		err = apply(ctx)
		if err != nil {
			s.compensate(ids...)
		}
	}
	if err != nil {
		return nil, err
	}
	return s.GetProject(ctx, projectID)
}

func (s *MongoStore) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return storageErr(err, "start session")
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return storageErr(err, "transaction")
}

// compensate removes artifacts written by a failed non-transactional save.
// It runs on a fresh context so a canceled request still cleans up.
func (s *MongoStore) compensate(ids ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = s.artifacts.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *MongoStore) SaveArtifact(ctx context.Context, projectID string, kind Kind, filename string, data []byte) (a *Artifact, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "save_artifact", start, err) }(time.Now())

	a, err = newArtifact(projectID, kind, filename, data, s.now().UTC().Truncate(time.Millisecond))
	if err != nil {
		return nil, err
	}
	if _, err = s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	if _, err = s.artifacts.InsertOne(ctx, a); err != nil {
		return nil, storageErr(err, "insert artifact")
	}
	return a, nil
}

func (s *MongoStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	var a Artifact
	err := s.artifacts.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, artifactNotFound(id)
	}
	if err != nil {
		return nil, storageErr(err, "find artifact")
	}
	return &a, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)

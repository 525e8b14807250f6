package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const binderCollection = "binders"

// mongoStore implements Store on a MongoDB database with one document per
// binder. Writes replace the whole document behind a version filter, so a
// batch either lands completely or not at all.
type mongoStore struct {
	client *mongo.Client
	dbName string
}

// binderDoc is the per-binder document layout.
type binderDoc struct {
	ID         string            `bson:"_id"`
	GridSize   string            `bson:"gridSize"`
	PageCount  int               `bson:"pageCount"`
	Version    int64             `bson:"version"`
	Placements []placementRecord `bson:"placements"`
	UpdatedAt  time.Time         `bson:"updatedAt"`
}

func newMongoStore(cfg domain.RemoteConfig) (*mongoStore, error) {
	uri := cfg.URI
	if uri == "" {
		port := cfg.Port
		if port == 0 {
			port = 27017
		}
		if cfg.Username != "" {
			uri = fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Username, cfg.Password, cfg.Host, port)
		} else {
			uri = fmt.Sprintf("mongodb://%s:%d", cfg.Host, port)
		}
	} else if cfg.Password != "" {
		// Atlas connection strings ship with a placeholder password
		uri = strings.ReplaceAll(uri, "<password>", cfg.Password)
		uri = strings.ReplaceAll(uri, "<db_password>", cfg.Password)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = "binders"
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &mongoStore{client: client, dbName: dbName}, nil
}

func (s *mongoStore) collection() *mongo.Collection {
	return s.client.Database(s.dbName).Collection(binderCollection)
}

func (s *mongoStore) ReadBinder(ctx context.Context, binderID string) (*domain.BinderSnapshot, error) {
	var doc binderDoc
	err := s.collection().FindOne(ctx, bson.M{"_id": binderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("read binder %s: %w", binderID, ErrBinderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read binder %s: %w", binderID, err)
	}
	return toSnapshot(doc.ID, doc.GridSize, doc.PageCount, doc.Version, doc.Placements), nil
}

func (s *mongoStore) WriteBinderBatch(ctx context.Context, binder *domain.Binder, changes []domain.PendingChange) (*domain.BinderSnapshot, error) {
	coll := s.collection()

	var doc binderDoc
	err := coll.FindOne(ctx, bson.M{"_id": binder.ID}).Decode(&doc)
	isNew := errors.Is(err, mongo.ErrNoDocuments)
	if err != nil && !isNew {
		return nil, fmt.Errorf("load binder %s: %w", binder.ID, err)
	}

	placements, err := applyChanges(doc.Placements, changes)
	if err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	next := binderDoc{
		ID:         binder.ID,
		GridSize:   binder.GridSize,
		PageCount:  binder.PageCount,
		Version:    doc.Version + 1,
		Placements: placements,
		UpdatedAt:  time.Now(),
	}

	if isNew {
		if _, err := coll.InsertOne(ctx, next); err != nil {
			return nil, fmt.Errorf("insert binder %s: %w", binder.ID, err)
		}
	} else {
		// Version filter: a concurrent writer bumps the version and this
		// replace matches nothing.
		res, err := coll.ReplaceOne(ctx, bson.M{"_id": binder.ID, "version": doc.Version}, next)
		if err != nil {
			return nil, fmt.Errorf("replace binder %s: %w", binder.ID, err)
		}
		if res.MatchedCount == 0 {
			return nil, fmt.Errorf("write binder %s: %w", binder.ID, ErrVersionConflict)
		}
	}

	return toSnapshot(next.ID, next.GridSize, next.PageCount, next.Version, next.Placements), nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Ping(ctx, nil)
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

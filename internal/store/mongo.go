package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

const projectCollection = "projects"

// MongoStore backs Store with a MongoDB collection. Documents keep the
// {projectId, content: [{key, value}], createdAt, updatedAt} shape so
// existing data from the original deployment reads unchanged.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures the projectId index.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Persistence("mongo_connect", "connecting to document store").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Persistence("mongo_ping", "document store unreachable").WithCause(err)
	}

	coll := client.Database(database).Collection(projectCollection)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "projectId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, errors.Persistence("mongo_index", "ensuring projectId index").WithCause(err)
	}

	return &MongoStore{client: client, coll: coll}, nil
}

// GetProject returns the project or errors.ErrProjectNotFound.
func (s *MongoStore) GetProject(ctx context.Context, projectID string) (*content.Project, error) {
	var p content.Project
	err := s.coll.FindOne(ctx, bson.M{"projectId": projectID}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, errors.NotFound("project_not_found", "project not found").
			WithContext("project_id", projectID)
	}
	if err != nil {
		return nil, errors.Persistence("mongo_find", "looking up project").WithCause(err)
	}
	return &p, nil
}

// ListProjectIDs returns every project id.
func (s *MongoStore) ListProjectIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"projectId": 1, "_id": 0})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Persistence("mongo_list", "listing projects").WithCause(err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ProjectID string `bson:"projectId"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, errors.Persistence("mongo_decode", "decoding project id").WithCause(err)
		}
		ids = append(ids, doc.ProjectID)
	}
	if err := cursor.Err(); err != nil {
		return nil, errors.Persistence("mongo_cursor", "iterating projects").WithCause(err)
	}
	return ids, nil
}

// CreateProject inserts a new project document, failing on duplicates.
func (s *MongoStore) CreateProject(ctx context.Context, projectID string, items []content.ContentItem) (*content.Project, error) {
	now := time.Now()
	p := &content.Project{
		ProjectID: projectID,
		Content:   dedupeItems(items),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if p.Content == nil {
		p.Content = []content.ContentItem{}
	}

	_, err := s.coll.InsertOne(ctx, p)
	if mongo.IsDuplicateKeyError(err) {
		return nil, errors.Validation("duplicate_project", "project id already exists").
			WithContext("project_id", projectID)
	}
	if err != nil {
		return nil, errors.Persistence("mongo_insert", "creating project").WithCause(err)
	}
	return p, nil
}

// UpsertContent applies per-key read-modify-write updates directly in
// the database so concurrent writers to different keys of the same
// project never overwrite each other from stale in-memory copies.
func (s *MongoStore) UpsertContent(ctx context.Context, projectID string, items []content.ContentItem) (int, error) {
	now := time.Now()

	// Create the bare project document when it does not exist yet.
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"projectId": projectID},
		bson.M{"$setOnInsert": bson.M{
			"projectId": projectID,
			"content":   []content.ContentItem{},
			"createdAt": now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return 0, errors.Persistence("mongo_upsert_project", "ensuring project document").WithCause(err)
	}

	updated := 0
	for _, item := range items {
		if item.Key == "" {
			continue
		}

		// Overwrite in place when the key already exists.
		res, err := s.coll.UpdateOne(ctx,
			bson.M{"projectId": projectID, "content.key": item.Key},
			bson.M{"$set": bson.M{"content.$.value": item.Value, "updatedAt": now}},
		)
		if err != nil {
			return updated, errors.Persistence("mongo_set_value", "updating content item").
				WithCause(err).WithContext("key", item.Key)
		}
		if res.MatchedCount > 0 {
			updated++
			continue
		}

		// Append, guarded against a concurrent append of the same key.
		res, err = s.coll.UpdateOne(ctx,
			bson.M{"projectId": projectID, "content.key": bson.M{"$ne": item.Key}},
			bson.M{
				"$push": bson.M{"content": item},
				"$set":  bson.M{"updatedAt": now},
			},
		)
		if err != nil {
			return updated, errors.Persistence("mongo_push_item", "appending content item").
				WithCause(err).WithContext("key", item.Key)
		}
		if res.MatchedCount == 0 {
			// A concurrent writer appended the key between our two
			// updates; the element exists now, so overwrite in place
			// instead of dropping this value.
			res, err = s.coll.UpdateOne(ctx,
				bson.M{"projectId": projectID, "content.key": item.Key},
				bson.M{"$set": bson.M{"content.$.value": item.Value, "updatedAt": now}},
			)
			if err != nil {
				return updated, errors.Persistence("mongo_set_value", "updating content item").
					WithCause(err).WithContext("key", item.Key)
			}
			if res.MatchedCount == 0 {
				return updated, errors.Persistence("mongo_upsert_item", "content item vanished during upsert").
					WithContext("key", item.Key)
			}
		}
		updated++
	}
	return updated, nil
}

// ReplaceContent swaps the whole content array in one write. Callers
// choose this mode explicitly for large batch updates.
func (s *MongoStore) ReplaceContent(ctx context.Context, projectID string, items []content.ContentItem) error {
	now := time.Now()
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"projectId": projectID},
		bson.M{
			"$set":         bson.M{"content": dedupeItems(items), "updatedAt": now},
			"$setOnInsert": bson.M{"projectId": projectID, "createdAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return errors.Persistence("mongo_replace", "replacing content").WithCause(err)
	}
	return nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

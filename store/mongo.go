package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nikhilsoni22/teen-theory-backend/models"
)

// Counter names in the counters collection.
const (
	projectSequence = "projects"
	userSequence    = "users"
)

// MongoStores bundles the Mongo-backed implementations sharing one
// database and one circuit breaker.
type MongoStores struct {
	Projects *MongoProjectStore
	Users    *MongoUserStore

	db *mongo.Database
}

// NewMongoStores builds the Mongo-backed stores. All store calls run
// through the given breaker so an unreachable database trips fast and
// surfaces as ErrUnavailable instead of hanging callers.
func NewMongoStores(db *mongo.Database, breaker *gobreaker.CircuitBreaker) *MongoStores {
	counters := db.Collection("counters")
	return &MongoStores{
		Projects: &MongoProjectStore{
			coll:     db.Collection("projects"),
			counters: counters,
			breaker:  breaker,
		},
		Users: &MongoUserStore{
			coll:     db.Collection("users"),
			counters: counters,
			breaker:  breaker,
		},
		db: db,
	}
}

// EnsureIndexes creates the unique indexes both stores rely on and
// seeds the id counters from any pre-existing documents, so counter
// allocation continues the observed contiguous numbering.
func (m *MongoStores) EnsureIndexes(ctx context.Context) error {
	_, err := m.Projects.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"id": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on project id: %v", err)
	}
	_, err = m.Users.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create unique index on user email: %v", err)
	}

	if err := seedCounter(ctx, m.Projects.coll, m.Projects.counters, projectSequence); err != nil {
		return err
	}
	return seedCounter(ctx, m.Users.coll, m.Users.counters, userSequence)
}

func seedCounter(ctx context.Context, coll, counters *mongo.Collection, name string) error {
	var last struct {
		ID int `bson:"id"`
	}
	err := coll.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.M{"id": -1})).Decode(&last)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil
		}
		return fmt.Errorf("failed to read last %s id: %v", name, err)
	}
	_, err = counters.UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$max": bson.M{"seq": last.ID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to seed %s counter: %v", name, err)
	}
	return nil
}

// mapMongoErr folds driver failures into the store error taxonomy.
func mapMongoErr(err error) error {
	if err == nil {
		return nil
	}
	if err == mongo.ErrNoDocuments {
		return ErrNotFound
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	if mongo.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func nextSequence(ctx context.Context, breaker *gobreaker.CircuitBreaker, counters *mongo.Collection, name string) (int, error) {
	value, err := breaker.Execute(func() (interface{}, error) {
		var doc struct {
			Seq int `bson:"seq"`
		}
		err := counters.FindOneAndUpdate(ctx,
			bson.M{"_id": name},
			bson.M{"$inc": bson.M{"seq": 1}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&doc)
		if err != nil {
			return 0, err
		}
		return doc.Seq, nil
	})
	if err != nil {
		return 0, mapMongoErr(err)
	}
	return value.(int), nil
}

// MongoProjectStore persists projects in the projects collection.
type MongoProjectStore struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	breaker  *gobreaker.CircuitBreaker
}

func (s *MongoProjectStore) NextID(ctx context.Context) (int, error) {
	return nextSequence(ctx, s.breaker, s.counters, projectSequence)
}

func (s *MongoProjectStore) Insert(ctx context.Context, project *models.Project) error {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.coll.InsertOne(ctx, project)
	})
	if err != nil {
		return mapMongoErr(err)
	}
	if oid, ok := value.(*mongo.InsertOneResult).InsertedID.(primitive.ObjectID); ok {
		project.StoreID = oid
	}
	return nil
}

func (s *MongoProjectStore) FindByID(ctx context.Context, id int) (*models.Project, error) {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		var project models.Project
		if err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&project); err != nil {
			return nil, err
		}
		return &project, nil
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return value.(*models.Project), nil
}

func (s *MongoProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoProjectStore) FindByCreator(ctx context.Context, email string) ([]models.Project, error) {
	return s.find(ctx, bson.M{"created_by_email": email})
}

func (s *MongoProjectStore) FindByMentorEmail(ctx context.Context, email string) ([]models.Project, error) {
	return s.find(ctx, bson.M{"assigned_mentor.email": email})
}

func (s *MongoProjectStore) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := s.coll.Find(ctx, filter)
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var projects []models.Project
		if err := cursor.All(ctx, &projects); err != nil {
			return nil, err
		}
		return projects, nil
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return value.([]models.Project), nil
}

func (s *MongoProjectStore) SetStatus(ctx context.Context, id int, status string, updatedAt time.Time) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"status": status, "updated_at": updatedAt}})
}

func (s *MongoProjectStore) SetMilestones(ctx context.Context, id int, milestones []models.Milestone, updatedAt time.Time) error {
	return s.update(ctx, id, bson.M{"$set": bson.M{"milestones": milestones, "updated_at": updatedAt}})
}

func (s *MongoProjectStore) update(ctx context.Context, id int, update bson.M) error {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	})
	if err != nil {
		return mapMongoErr(err)
	}
	if value.(*mongo.UpdateResult).MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoProjectStore) Delete(ctx context.Context, id int) error {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.coll.DeleteOne(ctx, bson.M{"id": id})
	})
	if err != nil {
		return mapMongoErr(err)
	}
	if value.(*mongo.DeleteResult).DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MongoUserStore persists users in the users collection.
type MongoUserStore struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	breaker  *gobreaker.CircuitBreaker
}

func (s *MongoUserStore) NextID(ctx context.Context) (int, error) {
	return nextSequence(ctx, s.breaker, s.counters, userSequence)
}

func (s *MongoUserStore) Insert(ctx context.Context, user *models.User) error {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.coll.InsertOne(ctx, user)
	})
	if err != nil {
		return mapMongoErr(err)
	}
	if oid, ok := value.(*mongo.InsertOneResult).InsertedID.(primitive.ObjectID); ok {
		user.StoreID = oid
	}
	return nil
}

func (s *MongoUserStore) FindByToken(ctx context.Context, token string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"token": token})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByStoreID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id %q", ErrNotFound, id)
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		var user models.User
		if err := s.coll.FindOne(ctx, filter).Decode(&user); err != nil {
			return nil, err
		}
		return &user, nil
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return value.(*models.User), nil
}

func (s *MongoUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		cursor, err := s.coll.Find(ctx, bson.M{})
		if err != nil {
			return nil, err
		}
		defer cursor.Close(ctx)

		var users []models.User
		if err := cursor.All(ctx, &users); err != nil {
			return nil, err
		}
		return users, nil
	})
	if err != nil {
		return nil, mapMongoErr(err)
	}
	return value.([]models.User), nil
}

func (s *MongoUserStore) SetToken(ctx context.Context, storeID primitive.ObjectID, token string) error {
	return s.set(ctx, storeID, bson.M{"token": token})
}

func (s *MongoUserStore) SetCurrentProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error {
	return s.set(ctx, storeID, bson.M{"current_projects": list})
}

func (s *MongoUserStore) SetAssignedProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error {
	return s.set(ctx, storeID, bson.M{"assigned_projects": list})
}

func (s *MongoUserStore) set(ctx context.Context, storeID primitive.ObjectID, fields bson.M) error {
	value, err := s.breaker.Execute(func() (interface{}, error) {
		return s.coll.UpdateOne(ctx, bson.M{"_id": storeID}, bson.M{"$set": fields})
	})
	if err != nil {
		return mapMongoErr(err)
	}
	if value.(*mongo.UpdateResult).MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

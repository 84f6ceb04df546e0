package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

const tasksCollection = "tasks"

type taskDocument struct {
	ID          string     `bson:"_id"`
	UserID      string     `bson:"user_id"`
	Title       string     `bson:"title"`
	Description string     `bson:"description,omitempty"`
	Status      string     `bson:"status"`
	Priority    string     `bson:"priority"`
	DueDate     *time.Time `bson:"due_date,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func toDocument(task *domain.Task) taskDocument {
	doc := taskDocument{
		ID:          task.ID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    string(task.Priority.OrDefault()),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.HasDueDate() {
		due := task.DueDate.UTC()
		doc.DueDate = &due
	}
	return doc
}

func (d taskDocument) toDomain() domain.Task {
	return domain.Task{
		ID:          d.ID,
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		Priority:    domain.ParsePriority(d.Priority),
		DueDate:     d.DueDate,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type taskRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewTaskRepository returns a MongoDB-backed implementation of TaskRepository.
func NewTaskRepository(client *mongo.Client, database string) repository.TaskRepository {
	return &taskRepository{
		client:     client,
		collection: client.Database(database).Collection(tasksCollection),
	}
}

func (r *taskRepository) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	var doc taskDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, domain.Unavailable("task store", err)
	}
	task := doc.toDomain()
	return &task, nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(max(filter.Offset, 0)))

	return r.find(ctx, query, opts)
}

func (r *taskRepository) ListDueWithin(ctx context.Context, userID string, now time.Time, windowDays int) ([]domain.Task, error) {
	from, to := repository.DueRange(now, windowDays)
	query := bson.M{
		"user_id":  userID,
		"status":   bson.M{"$ne": domain.TaskStatusCompleted},
		"due_date": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "due_date", Value: 1}})
	return r.find(ctx, query, opts)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt, task.UpdatedAt = now, now
	task.Priority = task.Priority.OrDefault()

	if _, err := r.collection.InsertOne(ctx, toDocument(task)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.NewError(domain.ErrCodeConflict, "task already exists")
		}
		return nil, domain.Unavailable("task store", err)
	}
	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}
	task.UpdatedAt = time.Now().UTC()
	doc := toDocument(task)

	set := bson.M{
		"title":       doc.Title,
		"description": doc.Description,
		"status":      doc.Status,
		"priority":    doc.Priority,
		"updated_at":  doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.DueDate != nil {
		set["due_date"] = doc.DueDate
	} else {
		update["$unset"] = bson.M{"due_date": ""}
	}

	var updated taskDocument
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": task.ID, "user_id": task.UserID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.ErrTaskNotFound
		}
		return domain.Unavailable("task store", err)
	}
	task.CreatedAt = updated.CreatedAt
	task.Priority = domain.ParsePriority(updated.Priority)
	return nil
}

func (r *taskRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return domain.Unavailable("task store", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) Ping(ctx context.Context) error {
	if r.client == nil {
		return domain.ErrNotInitialized
	}
	return r.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the indexes the task listing queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(tasksCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "due_date", Value: 1}}},
	})
	return err
}

func (r *taskRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]domain.Task, error) {
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, domain.Unavailable("task store", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.Unavailable("task store", err)
	}

	tasks := make([]domain.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, doc.toDomain())
	}
	return tasks, nil
}

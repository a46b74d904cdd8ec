package comment

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const counterName = "comments"

type MongoRepo struct {
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		collection: db.Collection("comments"),
		counters:   db.Collection("counters"),
	}
}

// nextID hands out comment ids from a counter document so they stay numeric
// like the rest of the API's ids.
func (r *MongoRepo) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": counterName},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate comment id: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoRepo) Add(ctx context.Context, c *Comment) error {
	id, err := r.nextID(ctx)
	if err != nil {
		return err
	}
	c.ID = id

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.New("comment already exists")
		}
		return err
	}
	return nil
}

func (r *MongoRepo) ByPhoto(ctx context.Context, photoID int64) ([]*Comment, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"photo_id": photoID},
		options.Find().SetSort(bson.D{{Key: "created", Value: 1}, {Key: "id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer cursor.Close(ctx)

	comments := []*Comment{}
	for cursor.Next(ctx) {
		var c Comment
		if err := cursor.Decode(&c); err != nil {
			continue
		}
		comments = append(comments, &c)
	}
	return comments, cursor.Err()
}

func (r *MongoRepo) Delete(ctx context.Context, photoID, commentID int64, userID string) error {
	var c Comment
	err := r.collection.FindOne(ctx, bson.M{"photo_id": photoID, "id": commentID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch comment: %w", err)
	}
	if c.UserID == "" || c.UserID != userID {
		return ErrForbidden
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"photo_id": photoID, "id": commentID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepo) DeleteByPhoto(ctx context.Context, photoID int64) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"photo_id": photoID})
	return err
}

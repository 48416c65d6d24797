package repository

import (
	"context"
	"errors"

	"storyquiz-service/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QuizRepository stores one quiz document per (userId, storyId) pair in a
// single collection. All writes are $set merges, so fields absent from an
// update are preserved.
type QuizRepository struct {
	Col *mongo.Collection
}

func NewQuizRepository(db *mongo.Database) *QuizRepository {
	return &QuizRepository{Col: db.Collection("quizzes")}
}

// QuizKey builds the composite document id for a quiz pair.
func QuizKey(userID, storyID string) string {
	return userID + "_" + storyID
}

// Get returns the quiz for the pair, or (nil, nil) when none exists.
func (r *QuizRepository) Get(ctx context.Context, userID, storyID string) (*models.Quiz, error) {
	var quiz models.Quiz
	err := r.Col.FindOne(ctx, bson.M{"_id": QuizKey(userID, storyID)}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Save upserts the full quiz document under the composite key.
func (r *QuizRepository) Save(ctx context.Context, userID, storyID string, quiz *models.Quiz) error {
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"_id": QuizKey(userID, storyID)},
		bson.M{"$set": quiz},
		options.Update().SetUpsert(true),
	)
	return err
}

// Update merges the given fields into an existing quiz document.
func (r *QuizRepository) Update(ctx context.Context, userID, storyID string, fields map[string]interface{}) error {
	_, err := r.Col.UpdateOne(ctx,
		bson.M{"_id": QuizKey(userID, storyID)},
		bson.M{"$set": bson.M(fields)},
	)
	return err
}

// FindGradedByUser lists a user's submitted quizzes, most recent first.
func (r *QuizRepository) FindGradedByUser(ctx context.Context, userID string) ([]models.Quiz, error) {
	opts := options.Find().SetSort(bson.D{bson.E{Key: "submitted_at", Value: -1}})
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID, "submitted": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var quizzes []models.Quiz
	for cur.Next(ctx) {
		var q models.Quiz
		if err := cur.Decode(&q); err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, cur.Err()
}

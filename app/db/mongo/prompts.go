package mongo

import (
	"context"
	"errors"
	"fmt"

	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (c *Client) InsertPrompt(ctx context.Context, prompt models.MongoPrompt) error {
	_, err := c.collection(MongoPromptCollection).InsertOne(ctx, prompt)
	if err != nil {
		return fmt.Errorf("InsertPrompt: failed to insert prompt: %w", err)
	}
	return nil
}

func (c *Client) GetPrompt(ctx context.Context, promptID string) (*models.MongoPrompt, error) {
	var prompt models.MongoPrompt
	err := c.collection(MongoPromptCollection).FindOne(ctx, bson.M{"_id": promptID}).Decode(&prompt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lib.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetPrompt: failed to find prompt: %w", err)
	}
	return &prompt, nil
}

// ListUserPrompts returns the newest prompts first.
func (c *Client) ListUserPrompts(ctx context.Context, userID string, limit int64) ([]models.MongoPrompt, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := c.collection(MongoPromptCollection).Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("ListUserPrompts: failed to find prompts: %w", err)
	}
	prompts := []models.MongoPrompt{}
	if err := cursor.All(ctx, &prompts); err != nil {
		return nil, fmt.Errorf("ListUserPrompts: failed to decode prompts: %w", err)
	}
	return prompts, nil
}

func (c *Client) DeletePrompt(ctx context.Context, promptID string) error {
	result, err := c.collection(MongoPromptCollection).DeleteOne(ctx, bson.M{"_id": promptID})
	if err != nil {
		return fmt.Errorf("DeletePrompt: failed to delete prompt: %w", err)
	}
	if result.DeletedCount == 0 {
		return lib.ErrPromptNotFound
	}
	return nil
}

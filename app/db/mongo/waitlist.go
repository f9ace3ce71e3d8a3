package mongo

import (
	"context"
	"fmt"

	"promptiq/m/v2/app/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AddToWaitlist reports false when the email is already on the list.
func (c *Client) AddToWaitlist(ctx context.Context, entry models.MongoWaitlistEntry) (bool, error) {
	_, err := c.collection(MongoWaitlistCollection).InsertOne(ctx, entry)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("AddToWaitlist: failed to insert entry: %w", err)
	}
	return true, nil
}

func (c *Client) GetWaitlistCount(ctx context.Context) (int64, error) {
	count, err := c.collection(MongoWaitlistCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("GetWaitlistCount: failed to count waitlist: %w", err)
	}
	return count, nil
}

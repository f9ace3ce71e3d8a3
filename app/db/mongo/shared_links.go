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

// ErrDuplicateCode is returned when the share code is already taken.
var ErrDuplicateCode = errors.New("share code already exists")

func (c *Client) InsertSharedLink(ctx context.Context, link models.MongoSharedLink) error {
	_, err := c.collection(MongoSharedLinkCollection).InsertOne(ctx, link)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("InsertSharedLink: failed to insert link: %w", err)
	}
	return nil
}

func (c *Client) GetSharedLink(ctx context.Context, code string) (*models.MongoSharedLink, error) {
	var link models.MongoSharedLink
	err := c.collection(MongoSharedLinkCollection).FindOne(ctx, bson.M{"code": code}).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lib.ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetSharedLink: failed to find link: %w", err)
	}
	return &link, nil
}

// IncrementSharedLinkViews bumps views atomically and returns the new count.
func (c *Client) IncrementSharedLinkViews(ctx context.Context, code string) (int64, error) {
	var link models.MongoSharedLink
	err := c.collection(MongoSharedLinkCollection).FindOneAndUpdate(ctx,
		bson.M{"code": code},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&link)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, lib.ErrLinkNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("IncrementSharedLinkViews: failed to update link: %w", err)
	}
	return link.Views, nil
}

func (c *Client) DeleteSharedLinksForPrompt(ctx context.Context, promptID string) (int64, error) {
	result, err := c.collection(MongoSharedLinkCollection).DeleteMany(ctx, bson.M{"prompt_id": promptID})
	if err != nil {
		return 0, fmt.Errorf("DeleteSharedLinksForPrompt: failed to delete links: %w", err)
	}
	return result.DeletedCount, nil
}

package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (c *Client) GetUser(ctx context.Context, userID string) (*models.MongoUser, error) {
	var user models.MongoUser
	err := c.collection(MongoUserCollection).FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, lib.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetUser: failed to find user: %w", err)
	}
	return &user, nil
}

// CreateUserIfMissing inserts the user unless a document with the same id exists.
// Returns the stored user and whether it was created by this call.
func (c *Client) CreateUserIfMissing(ctx context.Context, user models.MongoUser) (*models.MongoUser, bool, error) {
	if user.PaymentHistory == nil {
		user.PaymentHistory = []models.MongoPaymentRecord{}
	}
	onInsert := bson.M{
		"email":             user.Email,
		"name":              user.Name,
		"plan":              user.Plan,
		"generations_used":  user.GenerationsUsed,
		"generations_limit": user.GenerationsLimit,
		"created_at":        user.CreatedAt,
		"updated_at":        user.UpdatedAt,
		"payment_history":   user.PaymentHistory,
	}
	result, err := c.collection(MongoUserCollection).UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$setOnInsert": onInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, fmt.Errorf("CreateUserIfMissing: failed to upsert user: %w", err)
	}
	stored, err := c.GetUser(ctx, user.ID)
	if err != nil {
		return nil, false, err
	}
	return stored, result.UpsertedCount > 0, nil
}

func (c *Client) GetUsersCount(ctx context.Context) (int64, error) {
	count, err := c.collection(MongoUserCollection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("GetUsersCount: failed to get users count: %w", err)
	}
	return count, nil
}

func (c *Client) GetUsersCountForPlan(ctx context.Context, plan models.Plan) (int64, error) {
	count, err := c.collection(MongoUserCollection).CountDocuments(ctx, bson.M{"plan": plan})
	if err != nil {
		return 0, fmt.Errorf("GetUsersCountForPlan: failed to get users count: %w", err)
	}
	return count, nil
}

// ReserveGeneration increments generations_used only while it is below generations_limit.
func (c *Client) ReserveGeneration(ctx context.Context, userID string) (*models.MongoUser, error) {
	filter := bson.M{
		"_id":   userID,
		"$expr": bson.M{"$lt": bson.A{"$generations_used", "$generations_limit"}},
	}
	update := bson.M{
		"$inc": bson.M{"generations_used": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	var user models.MongoUser
	err := c.collection(MongoUserCollection).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("ReserveGeneration: failed to reserve generation: %w", err)
	}
	if _, err := c.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return nil, lib.ErrQuotaExceeded
}

// ReleaseGeneration gives back a reservation, never going below zero.
func (c *Client) ReleaseGeneration(ctx context.Context, userID string) error {
	_, err := c.collection(MongoUserCollection).UpdateOne(ctx,
		bson.M{"_id": userID, "generations_used": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"generations_used": -1}},
	)
	if err != nil {
		return fmt.Errorf("ReleaseGeneration: failed to release generation: %w", err)
	}
	return nil
}

// UpgradeUserPlan applies a successful payment. A record whose order id is already
// in the payment history is not applied again and reports false.
func (c *Client) UpgradeUserPlan(ctx context.Context, userID string, record models.MongoPaymentRecord) (bool, error) {
	plan, ok := models.Plans[record.Plan]
	if !ok {
		return false, lib.ErrInvalidPlan
	}
	filter := bson.M{
		"_id":                      userID,
		"payment_history.order_id": bson.M{"$ne": record.OrderID},
	}
	update := bson.M{
		"$set": bson.M{
			"plan":              record.Plan,
			"generations_limit": plan.GenerationsLimit,
			"generations_used":  0,
			"updated_at":        time.Now().UTC(),
		},
		"$push": bson.M{"payment_history": record},
	}
	result, err := c.collection(MongoUserCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("UpgradeUserPlan: failed to update user: %w", err)
	}
	if result.MatchedCount > 0 {
		return true, nil
	}
	if _, err := c.GetUser(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// SyncPlanLimits rewrites generations_limit for every plan from the plan table.
func (c *Client) SyncPlanLimits(ctx context.Context) error {
	for _, plan := range models.PlanOrder {
		_, err := c.collection(MongoUserCollection).UpdateMany(ctx,
			bson.M{"plan": plan, "generations_limit": bson.M{"$ne": models.Plans[plan].GenerationsLimit}},
			bson.M{"$set": bson.M{"generations_limit": models.Plans[plan].GenerationsLimit}},
		)
		if err != nil {
			return fmt.Errorf("SyncPlanLimits: failed to sync %s: %w", plan, err)
		}
	}
	return nil
}

func (c *Client) ResetAllUsage(ctx context.Context) (int64, error) {
	result, err := c.collection(MongoUserCollection).UpdateMany(ctx,
		bson.M{"generations_used": bson.M{"$gt": 0}},
		bson.M{"$set": bson.M{"generations_used": 0, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("ResetAllUsage: failed to reset usage: %w", err)
	}
	return result.ModifiedCount, nil
}

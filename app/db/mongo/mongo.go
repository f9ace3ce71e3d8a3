package mongo

import (
	"context"
	"fmt"
	"time"

	"promptiq/m/v2/app/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"gopkg.in/cenkalti/backoff.v1"
)

const (
	MongoUserCollection        = "users"
	MongoPromptCollection      = "prompts"
	MongoSharedLinkCollection  = "shared_links"
	MongoWaitlistCollection    = "waitlist"
	connectMaxElapsedTime      = 30 * time.Second
	defaultOperationTimeoutSec = 10
)

// Client is a mongo client
type Client struct {
	*mongo.Client
	dbName string
}

type MongoClient interface {
	Disconnect(ctx context.Context) error
	Ping(ctx context.Context, rp *readpref.ReadPref) error
	EnsureIndexes(ctx context.Context) error

	// users
	CreateUserIfMissing(ctx context.Context, user models.MongoUser) (*models.MongoUser, bool, error)
	GetUser(ctx context.Context, userID string) (*models.MongoUser, error)
	GetUsersCount(ctx context.Context) (int64, error)
	GetUsersCountForPlan(ctx context.Context, plan models.Plan) (int64, error)
	ReleaseGeneration(ctx context.Context, userID string) error
	ReserveGeneration(ctx context.Context, userID string) (*models.MongoUser, error)
	ResetAllUsage(ctx context.Context) (int64, error)
	SyncPlanLimits(ctx context.Context) error
	UpgradeUserPlan(ctx context.Context, userID string, record models.MongoPaymentRecord) (bool, error)

	// prompts
	DeletePrompt(ctx context.Context, promptID string) error
	GetPrompt(ctx context.Context, promptID string) (*models.MongoPrompt, error)
	InsertPrompt(ctx context.Context, prompt models.MongoPrompt) error
	ListUserPrompts(ctx context.Context, userID string, limit int64) ([]models.MongoPrompt, error)

	// shared links
	DeleteSharedLinksForPrompt(ctx context.Context, promptID string) (int64, error)
	GetSharedLink(ctx context.Context, code string) (*models.MongoSharedLink, error)
	IncrementSharedLinkViews(ctx context.Context, code string) (int64, error)
	InsertSharedLink(ctx context.Context, link models.MongoSharedLink) error

	// waitlist
	AddToWaitlist(ctx context.Context, entry models.MongoWaitlistEntry) (bool, error)
	GetWaitlistCount(ctx context.Context) (int64, error)
}

// NewClient creates a new mongo client
func NewClient(connection, dbName string) *Client {
	return &Client{
		Client: mustConnect(connection),
		dbName: dbName,
	}
}

// mustConnect connects to mongo and panics on error
func mustConnect(connection string) *mongo.Client {
	client, err := mongo.NewClient(options.Client().ApplyURI(connection).SetMaxConnecting(25))
	if err != nil {
		logrus.WithError(err).Panic("failed to create mongo client")
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultOperationTimeoutSec*time.Second)
	defer cancel()
	err = client.Connect(ctx)
	if err != nil {
		logrus.WithError(err).Panic("failed to connect to mongo")
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectMaxElapsedTime
	err = backoff.Retry(func() error {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		pingErr := client.Ping(pingCtx, readpref.Primary())
		if pingErr != nil {
			logrus.WithError(pingErr).Warn("mongo is not reachable yet, retrying")
		}
		return pingErr
	}, b)
	if err != nil {
		logrus.WithError(err).Panic("failed to ping mongo")
	}

	return client
}

func (c *Client) collection(name string) *mongo.Collection {
	return c.Database(c.dbName).Collection(name)
}

// EnsureIndexes creates the unique and lookup indexes every collection relies on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		MongoUserCollection: {
			{Keys: bson.D{{Key: "plan", Value: 1}}},
		},
		MongoPromptCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		MongoSharedLinkCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "prompt_id", Value: 1}}},
		},
		MongoWaitlistCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for name, indexModels := range indexes {
		_, err := c.collection(name).Indexes().CreateMany(ctx, indexModels)
		if err != nil {
			return fmt.Errorf("EnsureIndexes: failed to create indexes for %s: %w", name, err)
		}
	}
	return nil
}

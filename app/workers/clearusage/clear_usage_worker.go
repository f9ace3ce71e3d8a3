// Run every month to clear the monthly usage of the users
package clearusage

import (
	"context"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"

	log "github.com/sirupsen/logrus"
)

type ClearUsageWorker struct {
	cfg   *config.Config
	mongo mongo.MongoClient
	redis redis.Client
	now   func() time.Time
}

func New(cfg *config.Config, mongoClient mongo.MongoClient, redisClient redis.Client) *ClearUsageWorker {
	return &ClearUsageWorker{cfg: cfg, mongo: mongoClient, redis: redisClient, now: time.Now}
}

// Run resets usage at most once per billing month, however many times or replicas call it.
func (w *ClearUsageWorker) Run() {
	ctx := context.Background()
	now := w.now()

	claimed, err := redis.ClaimUsageReset(ctx, w.redis, now)
	if err != nil {
		log.Errorf("failed to claim monthly usage reset, skipping: %s", err)
		return
	}
	if !claimed {
		log.Infof("monthly usage for %s was already reset", now.UTC().Format("2006-01"))
		w.cfg.DataDogClient.Incr("clear_usage_worker.skipped", nil, 1)
		return
	}

	log.Info("clearing monthly generations..")
	users, err := w.mongo.ResetAllUsage(ctx)
	if err != nil {
		log.Errorf("failed to reset monthly generations: %s", err)
		if err := redis.ReleaseUsageReset(ctx, w.redis, now); err != nil {
			log.Errorf("failed to release monthly usage reset: %s", err)
		}
		return
	}
	w.cfg.DataDogClient.Gauge("clear_usage_worker.users", float64(users), nil, 1)
	log.Infof("reset monthly generations for %d users", users)

	keys, err := redis.ClearUserGenerations(ctx, w.redis)
	if err != nil {
		log.Errorf("failed to clear user generation counters: %s", err)
	} else {
		w.cfg.DataDogClient.Gauge("clear_usage_worker.keys", float64(keys), nil, 1)
	}
	log.Info("finished usage clearing")
}

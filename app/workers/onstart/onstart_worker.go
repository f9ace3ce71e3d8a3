// Run on start
package onstart

import (
	"context"

	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"

	log "github.com/sirupsen/logrus"
)

func Run(mongoClient mongo.MongoClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), lib.TIMEOUT)
	defer cancel()

	log.Info("[onstart] creating indexes..")
	if err := mongoClient.EnsureIndexes(ctx); err != nil {
		log.Errorf("[onstart] failed to create indexes: %s", err)
		return err
	}

	migrateAll(ctx, mongoClient)
	return nil
}

// limits follow the plan table, so a changed table is applied to stored users on the next start
func migrateAll(ctx context.Context, mongoClient mongo.MongoClient) {
	log.Info("[onstart] syncing plan limits for all users..")
	if err := mongoClient.SyncPlanLimits(ctx); err != nil {
		log.Errorf("[onstart] failed to sync plan limits: %s", err)
		return
	}
	log.Info("[onstart] finished syncing plan limits")
}

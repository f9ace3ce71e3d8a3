// Run regularly to check status of the system and persist it to the redis
package status

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/notify"
	"promptiq/m/v2/app/status"
)

type StatusWorker struct {
	cfg      *config.Config
	handler  *status.SystemStatusHandler
	redis    redis.Client
	notifier notify.Notifier
	interval time.Duration
}

func New(cfg *config.Config, handler *status.SystemStatusHandler, redisClient redis.Client, notifier notify.Notifier, interval time.Duration) *StatusWorker {
	return &StatusWorker{
		cfg:      cfg,
		handler:  handler,
		redis:    redisClient,
		notifier: notifier,
		interval: interval,
	}
}

// Cached serves the last status from redis, fetching a fresh one on a miss.
func (w *StatusWorker) Cached(ctx context.Context) (string, error) {
	return redis.WrapInCache(ctx, w.redis, lib.SystemStatusKey, w.interval*10, func() (string, error) {
		return w.FetchStatus(ctx)
	})()
}

func (w *StatusWorker) Run() {
	ctx := context.Background()
	systemStatus, err := w.FetchStatus(ctx)
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	if err := w.redis.Set(ctx, lib.SystemStatusKey, systemStatus, w.interval*10).Err(); err != nil {
		log.Errorf("failed to store system status: %s", err)
	}
	log.Debugf("system status: %s", systemStatus)
}

func (w *StatusWorker) FetchStatus(ctx context.Context) (string, error) {
	systemStatus := w.handler.GetSystemStatus(ctx)
	dd := w.cfg.DataDogClient
	dd.Gauge("status_worker.gemini_available", boolToFloat64(systemStatus.Gemini.Available), nil, 1)
	dd.Gauge("status_worker.mongo_db_available", boolToFloat64(systemStatus.MongoDB.Available), nil, 1)
	dd.Gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available), nil, 1)
	dd.Gauge("status_worker.total_generations", float64(systemStatus.Usage.TotalGenerations), nil, 1)
	dd.Gauge("status_worker.total_tokens", float64(systemStatus.Usage.TotalTokens), nil, 1)
	dd.Gauge("status_worker.total_users", float64(systemStatus.Usage.TotalUsers), nil, 1)
	dd.Gauge("status_worker.total_spark_users", float64(systemStatus.Usage.TotalSparkUsers), nil, 1)
	dd.Gauge("status_worker.total_architect_users", float64(systemStatus.Usage.TotalArchitectUsers), nil, 1)
	dd.Gauge("status_worker.total_studio_users", float64(systemStatus.Usage.TotalStudioUsers), nil, 1)
	for _, systemName := range systemStatus.Unavailable() {
		w.reportUnavailableStatus(ctx, systemName)
	}
	statusBytes, err := json.Marshal(systemStatus)
	if err != nil {
		return "", err
	}
	return string(statusBytes), nil
}

func (w *StatusWorker) reportUnavailableStatus(ctx context.Context, systemName string) {
	message := "🔥 " + config.AppName + ": " + systemName + " is down 🔥"
	log.Error(message)
	if err := w.notifier.Notify(ctx, message); err != nil {
		log.Errorf("Failed to send message to operators: %s", err)
	}
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

package status

import (
	"context"
	"time"

	"promptiq/m/v2/app/ai"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/models"

	"github.com/sirupsen/logrus"
)

type SystemStatus struct {
	MongoDB *Status     `json:"mongodb"`
	Redis   *Status     `json:"redis"`
	Gemini  *AIStatus   `json:"gemini"`
	Time    time.Time   `json:"time"`
	Usage   SystemUsage `json:"usage"`
}

type SystemUsage struct {
	TotalUsers          int64 `json:"total_users"`
	TotalSparkUsers     int64 `json:"total_spark_users"`
	TotalArchitectUsers int64 `json:"total_architect_users"`
	TotalStudioUsers    int64 `json:"total_studio_users"`
	TotalGenerations    int64 `json:"total_generations"`
	TotalTokens         int64 `json:"total_tokens"`
}

// Status
type Status struct {
	Available bool `json:"available"`
}

type AIStatus struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
}

// SystemStatusHandler is a handler for system status
type SystemStatusHandler struct {
	MongoDB mongo.MongoClient
	Redis   redis.Client
	AI      *ai.API
}

// New creates a new instance of SystemStatusHandler
func New(mongoDB mongo.MongoClient, redis redis.Client, ai *ai.API) *SystemStatusHandler {
	return &SystemStatusHandler{
		MongoDB: mongoDB,
		Redis:   redis,
		AI:      ai,
	}
}

// Unavailable lists the dependencies that are down.
func (s SystemStatus) Unavailable() []string {
	var down []string
	if s.MongoDB == nil || !s.MongoDB.Available {
		down = append(down, "MongoDB")
	}
	if s.Redis == nil || !s.Redis.Available {
		down = append(down, "Redis")
	}
	if s.Gemini == nil || !s.Gemini.Available {
		down = append(down, "Gemini")
	}
	return down
}

// GetSystemStatus gets a status of the system
func (h *SystemStatusHandler) GetSystemStatus(ctx context.Context) SystemStatus {
	mongoAvailable := false
	ctxPing, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	defer cancelPing()
	if h.MongoDB == nil {
		logrus.Warn("GetSystemStatus: MongoDB client is not configured")
	} else if err := h.MongoDB.Ping(ctxPing, nil); err != nil {
		logrus.WithError(err).Warn("GetSystemStatus: failed to ping MongoDB")
	} else {
		mongoAvailable = true
	}

	status := SystemStatus{
		MongoDB: &Status{
			Available: mongoAvailable,
		},
		Redis: &Status{
			Available: h.Redis != nil && h.Redis.Ping(ctx).Err() == nil,
		},
		Gemini: &AIStatus{},
		Usage:  SystemUsage{},
		Time:   time.Now(),
	}
	if h.AI != nil {
		aiCtx, cancelAI := context.WithTimeout(ctx, 30*time.Second)
		defer cancelAI()
		status.Gemini.Available = h.AI.IsAvailable(aiCtx)
		status.Gemini.Model = h.AI.ModelName()
	}

	if status.Redis.Available {
		totals, err := redis.GetTotals(ctx, h.Redis)
		if err != nil {
			logrus.WithError(err).Warn("GetSystemStatus: failed to read usage totals")
		}
		status.Usage.TotalGenerations = totals.Generations
		status.Usage.TotalTokens = totals.Tokens
	}
	if status.MongoDB.Available {
		status.Usage.TotalUsers, _ = h.MongoDB.GetUsersCount(ctx)
		status.Usage.TotalSparkUsers, _ = h.MongoDB.GetUsersCountForPlan(ctx, models.SparkPlan)
		status.Usage.TotalArchitectUsers, _ = h.MongoDB.GetUsersCountForPlan(ctx, models.ArchitectPlan)
		status.Usage.TotalStudioUsers, _ = h.MongoDB.GetUsersCountForPlan(ctx, models.StudioPlan)
	}
	return status
}

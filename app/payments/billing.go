package payments

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/notify"

	log "github.com/sirupsen/logrus"
)

// At 50%, 80% and 100% of the monthly generations a threshold event is raised.
var UsageThresholds = map[models.Plan]models.UsageThresholds{
	models.SparkPlan: {
		Thresholds: []models.UsageThreshold{
			{Percentage: 0.5, Message: "⚠️ %s is halfway through the free monthly generations (%d/%d)."},
			{Percentage: 0.8, Message: "⚠️ %s used 80%% of the free monthly generations (%d/%d)."},
			{Percentage: 1.0, Message: "🚀 %s reached the free monthly limit (%d/%d), upgrade lead."},
		},
	},
	models.ArchitectPlan: {
		Thresholds: []models.UsageThreshold{
			{Percentage: 0.8, Message: "⚠️ %s used 80%% of the architect monthly generations (%d/%d)."},
			{Percentage: 1.0, Message: "🚀 %s reached the architect monthly limit (%d/%d), studio lead."},
		},
	},
	models.StudioPlan: {
		Thresholds: []models.UsageThreshold{
			{Percentage: 1.0, Message: "🚫 %s reached the studio monthly limit (%d/%d)."},
		},
	},
}

type Billing struct {
	cfg      *config.Config
	mongo    mongo.MongoClient
	redis    redis.Client
	notifier notify.Notifier
}

func NewBilling(cfg *config.Config, mongoClient mongo.MongoClient, redisClient redis.Client, notifier notify.Notifier) *Billing {
	return &Billing{
		cfg:      cfg,
		mongo:    mongoClient,
		redis:    redisClient,
		notifier: notifier,
	}
}

// RecordGeneration accounts a successful generation for a user whose quota was already reserved.
func (b *Billing) RecordGeneration(ctx context.Context, user *models.MongoUser, mode string, tokens int) {
	b.cfg.DataDogClient.Incr("billing.generations", []string{"plan:" + string(user.Plan), "mode:" + mode}, 1)
	b.cfg.DataDogClient.Distribution("billing.tokens", float64(tokens), []string{"plan:" + string(user.Plan), "mode:" + mode}, 1)

	monthly, err := redis.RecordGeneration(ctx, b.redis, user.ID, tokens)
	if err != nil {
		log.Errorf("RecordGeneration: %v", err)
	} else {
		log.Infof("Billing: user %s plan %s generation %d/%d, counted this month %d, tokens %d", user.ID, user.Plan, user.GenerationsUsed, user.GenerationsLimit, monthly, tokens)
	}

	b.CheckThresholdsAndNotify(ctx, user)
}

// CheckThresholdsAndNotify fires for every threshold crossed by the latest generation.
func (b *Billing) CheckThresholdsAndNotify(ctx context.Context, user *models.MongoUser) {
	thresholds, ok := UsageThresholds[user.Plan]
	if !ok {
		log.Errorf("CheckThresholdsAndNotify: usage thresholds for plan %s not found in map", user.Plan)
		return
	}
	previous := float64(user.GenerationsUsed - 1)
	current := float64(user.GenerationsUsed)
	for _, threshold := range thresholds.Thresholds {
		thresholdUsage := float64(user.GenerationsLimit) * threshold.Percentage
		if previous < thresholdUsage && current >= thresholdUsage {
			b.cfg.DataDogClient.Incr("billing.threshold_reached", []string{
				"plan:" + string(user.Plan),
				"threshold:" + strconv.FormatFloat(threshold.Percentage*100, 'f', 0, 64),
			}, 1)
			log.Infof("User %s has reached %.1f%% of their generations for plan %s. Sending notification..", user.ID, threshold.Percentage*100, user.Plan)
			message := fmt.Sprintf(threshold.Message, user.ID, user.GenerationsUsed, user.GenerationsLimit)
			if err := b.notifier.Notify(ctx, message); err != nil {
				log.Errorf("CheckThresholdsAndNotify: %v", err)
			}
		}
	}
}

// Upgrade applies a paid plan. Redelivered payments (same order id) are ignored and report false.
func (b *Billing) Upgrade(ctx context.Context, userID string, plan models.Plan, orderID string, amount float64) (bool, error) {
	if !models.IsValidPlan(plan) || plan == models.SparkPlan {
		return false, lib.ErrInvalidPlan
	}
	record := models.MongoPaymentRecord{
		OrderID: orderID,
		Amount:  amount,
		Plan:    plan,
		Date:    time.Now().UTC(),
		Status:  models.PaymentStatusSuccess,
	}
	applied, err := b.mongo.UpgradeUserPlan(ctx, userID, record)
	if err != nil {
		return false, fmt.Errorf("Upgrade: %w", err)
	}
	if !applied {
		log.Infof("Upgrade: order %s for user %s was already applied", orderID, userID)
		b.cfg.DataDogClient.Incr("billing.upgrade_duplicate", []string{"plan:" + string(plan)}, 1)
		return false, nil
	}

	b.cfg.DataDogClient.Incr("billing.upgrade", []string{"plan:" + string(plan)}, 1)
	log.Infof("Upgrade: user %s upgraded to %s, order %s, amount %.2f", userID, plan, orderID, amount)
	if err := b.notifier.Notify(ctx, fmt.Sprintf("💰 %s upgraded to %s (₹%.0f, order %s)", userID, plan, amount, orderID)); err != nil {
		log.Errorf("Upgrade: failed to notify: %v", err)
	}
	return true, nil
}

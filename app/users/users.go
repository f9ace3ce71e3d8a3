// Package users keeps user profiles and their generation allowance.
package users

import (
	"context"
	"strings"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	log "github.com/sirupsen/logrus"
)

type Usage struct {
	Plan             models.Plan `json:"plan"`
	GenerationsUsed  int         `json:"generations_used"`
	GenerationsLimit int         `json:"generations_limit"`
	Remaining        int         `json:"remaining"`
}

type Service struct {
	cfg   *config.Config
	mongo mongo.MongoClient
	now   func() time.Time
}

func NewService(cfg *config.Config, mongoClient mongo.MongoClient) *Service {
	return &Service{cfg: cfg, mongo: mongoClient, now: time.Now}
}

// EnsureUser creates a spark user on first sign-in and returns the stored profile otherwise.
func (s *Service) EnsureUser(ctx context.Context, uid, email, name string) (*models.MongoUser, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, lib.ErrMissingFields
	}
	now := s.now().UTC()
	user, created, err := s.mongo.CreateUserIfMissing(ctx, models.MongoUser{
		ID:               uid,
		Email:            email,
		Name:             name,
		Plan:             models.SparkPlan,
		GenerationsUsed:  0,
		GenerationsLimit: models.Plans[models.SparkPlan].GenerationsLimit,
		CreatedAt:        now,
		UpdatedAt:        now,
		PaymentHistory:   []models.MongoPaymentRecord{},
	})
	if err != nil {
		return nil, err
	}
	if created {
		log.Infof("EnsureUser: new user %s", uid)
		s.cfg.DataDogClient.Incr("users.created", []string{"plan:" + string(user.Plan)}, 1)
	}
	return user, nil
}

func (s *Service) GetUsage(ctx context.Context, uid string) (*Usage, error) {
	if uid == "" {
		return nil, lib.ErrMissingFields
	}
	user, err := s.mongo.GetUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return &Usage{
		Plan:             user.Plan,
		GenerationsUsed:  user.GenerationsUsed,
		GenerationsLimit: user.GenerationsLimit,
		Remaining:        user.Remaining(),
	}, nil
}


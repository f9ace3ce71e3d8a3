// Package waitlist collects pre-launch signups.
package waitlist

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultSource = "unknown"

	countCacheTTL = time.Minute
)

var emailRegex = regexp.MustCompile(`^[^@` + lib.WhitespaceChars + `]+@[^@` + lib.WhitespaceChars + `]+\.[^@` + lib.WhitespaceChars + `]+$`)

type JoinResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
	Remaining     *int64 `json:"remaining,omitempty"`
}

type Count struct {
	Success   bool  `json:"success"`
	Total     int64 `json:"total"`
	Signups   int64 `json:"signups"`
	Remaining int64 `json:"remaining"`
}

type Service struct {
	cfg   *config.Config
	mongo mongo.MongoClient
	redis redis.Client
	now   func() time.Time
}

func NewService(cfg *config.Config, mongoClient mongo.MongoClient, redisClient redis.Client) *Service {
	return &Service{cfg: cfg, mongo: mongoClient, redis: redisClient, now: time.Now}
}

func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

func (s *Service) Join(ctx context.Context, email, source string) (*JoinResult, error) {
	if email == "" {
		return nil, lib.ErrMissingFields
	}
	if !IsValidEmail(email) {
		return nil, lib.ErrInvalidEmail
	}
	if source == "" {
		source = DefaultSource
	}

	added, err := s.mongo.AddToWaitlist(ctx, models.MongoWaitlistEntry{
		ID:        uuid.NewString(),
		Email:     email,
		Source:    source,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if !added {
		return &JoinResult{Success: true, Message: "You are already on the waitlist!", AlreadyExists: true}, nil
	}

	if err := s.redis.Del(ctx, lib.WaitlistCountKey).Err(); err != nil {
		log.Warnf("Join: failed to invalidate waitlist count: %v", err)
	}
	s.cfg.DataDogClient.Incr("waitlist.joined", []string{"source:" + source}, 1)
	log.Infof("Join: %s added to waitlist from %s", email, source)

	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &JoinResult{Success: true, Message: "Successfully added to waitlist!", Remaining: &count.Remaining}, nil
}

// Count reports the signups against the fixed number of launch spots.
func (s *Service) Count(ctx context.Context) (*Count, error) {
	cached := redis.WrapInCache(ctx, s.redis, lib.WaitlistCountKey, countCacheTTL, func() (string, error) {
		signups, err := s.mongo.GetWaitlistCount(ctx)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(signups, 10), nil
	})
	value, err := cached()
	if err != nil {
		return nil, err
	}
	signups, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, err
	}
	remaining := int64(lib.WaitlistTotalSpots) - signups
	if remaining < 0 {
		remaining = 0
	}
	return &Count{Success: true, Total: lib.WaitlistTotalSpots, Signups: signups, Remaining: remaining}, nil
}

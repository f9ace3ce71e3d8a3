// Package share issues and resolves public links to stored prompts.
package share

import (
	"context"
	"errors"
	"fmt"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const maxCodeAttempts = 5

type Link struct {
	Code     string `json:"code"`
	ShareURL string `json:"shareUrl"`
}

type Resolved struct {
	Prompt *models.MongoPrompt `json:"prompt"`
	Views  int64               `json:"views"`
}

type Service struct {
	cfg     *config.Config
	mongo   mongo.MongoClient
	newCode func() (string, error)
	now     func() time.Time
}

func NewService(cfg *config.Config, mongoClient mongo.MongoClient) *Service {
	return &Service{
		cfg:     cfg,
		mongo:   mongoClient,
		newCode: lib.GenerateShareCode,
		now:     time.Now,
	}
}

// CreateLink shares a prompt owned by userID for lib.ShareLinkTTL.
func (s *Service) CreateLink(ctx context.Context, promptID, userID string) (*Link, error) {
	if promptID == "" || userID == "" {
		return nil, lib.ErrMissingFields
	}
	prompt, err := s.mongo.GetPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if prompt.UserID != userID {
		return nil, lib.ErrUnauthorized
	}

	now := s.now().UTC()
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("CreateLink: %w", err)
		}
		err = s.mongo.InsertSharedLink(ctx, models.MongoSharedLink{
			ID:        uuid.NewString(),
			Code:      code,
			PromptID:  promptID,
			UserID:    userID,
			CreatedAt: now,
			ExpiresAt: now.Add(lib.ShareLinkTTL),
		})
		if errors.Is(err, mongo.ErrDuplicateCode) {
			log.Warnf("CreateLink: share code collision on attempt %d", attempt)
			s.cfg.DataDogClient.Incr("share.code_collision", nil, 1)
			continue
		}
		if err != nil {
			return nil, err
		}
		s.cfg.DataDogClient.Incr("share.created", nil, 1)
		return &Link{Code: code, ShareURL: s.cfg.ShareURL(code)}, nil
	}
	return nil, fmt.Errorf("CreateLink: no free share code after %d attempts", maxCodeAttempts)
}

// ResolveLink returns the shared prompt and counts the view. Expired links are not counted.
func (s *Service) ResolveLink(ctx context.Context, code string) (*Resolved, error) {
	if !lib.IsValidShareCode(code) {
		return nil, lib.ErrLinkNotFound
	}
	link, err := s.mongo.GetSharedLink(ctx, code)
	if err != nil {
		return nil, err
	}
	if link.Expired(s.now()) {
		s.cfg.DataDogClient.Incr("share.expired", nil, 1)
		return nil, lib.ErrLinkExpired
	}
	prompt, err := s.mongo.GetPrompt(ctx, link.PromptID)
	if err != nil {
		return nil, err
	}
	views, err := s.mongo.IncrementSharedLinkViews(ctx, code)
	if err != nil {
		return nil, err
	}
	s.cfg.DataDogClient.Incr("share.views", nil, 1)
	return &Resolved{Prompt: prompt, Views: views}, nil
}

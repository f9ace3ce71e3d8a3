// Package prompts serves a user's prompt history.
package prompts

import (
	"context"
	"strings"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SaveRequest stores a prompt produced outside the generation flow, such as an edited copy.
type SaveRequest struct {
	UserID       string  `json:"userId"`
	InputText    string  `json:"inputText"`
	OutputText   string  `json:"outputText"`
	Framework    string  `json:"framework"`
	QualityScore float64 `json:"qualityScore"`
	Version      int     `json:"version"`
	ParentID     string  `json:"parentId"`
}

type Service struct {
	cfg   *config.Config
	mongo mongo.MongoClient
	now   func() time.Time
}

func NewService(cfg *config.Config, mongoClient mongo.MongoClient) *Service {
	return &Service{cfg: cfg, mongo: mongoClient, now: time.Now}
}

// ClampLimit maps a missing or non-positive page size to the default and caps it.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return lib.DefaultPromptsPage
	}
	if limit > lib.MaxPromptsPage {
		return lib.MaxPromptsPage
	}
	return limit
}

// ListPrompts returns the user's prompts, newest first.
func (s *Service) ListPrompts(ctx context.Context, userID string, limit int) ([]models.MongoPrompt, error) {
	if userID == "" {
		return nil, lib.ErrMissingFields
	}
	return s.mongo.ListUserPrompts(ctx, userID, int64(ClampLimit(limit)))
}

// DeletePrompt removes a prompt owned by userID together with its share links.
func (s *Service) DeletePrompt(ctx context.Context, promptID, userID string) error {
	if promptID == "" || userID == "" {
		return lib.ErrMissingFields
	}
	prompt, err := s.mongo.GetPrompt(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt.UserID != userID {
		return lib.ErrUnauthorized
	}
	if err := s.mongo.DeletePrompt(ctx, promptID); err != nil {
		return err
	}
	links, err := s.mongo.DeleteSharedLinksForPrompt(ctx, promptID)
	if err != nil {
		log.Errorf("DeletePrompt: failed to delete share links of %s: %v", promptID, err)
		return err
	}
	s.cfg.DataDogClient.Incr("prompts.deleted", nil, 1)
	log.Infof("DeletePrompt: prompt %s of user %s deleted with %d share links", promptID, userID, links)
	return nil
}

// SavePrompt stores a prompt without touching the generation quota.
func (s *Service) SavePrompt(ctx context.Context, req SaveRequest) (string, error) {
	if req.UserID == "" || strings.TrimSpace(req.InputText) == "" || strings.TrimSpace(req.OutputText) == "" || req.Framework == "" {
		return "", lib.ErrMissingFields
	}
	if !lib.IsValidFramework(lib.Framework(req.Framework)) {
		return "", lib.ErrInvalidRequest
	}
	if _, err := s.mongo.GetUser(ctx, req.UserID); err != nil {
		return "", err
	}
	prompt := models.MongoPrompt{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		InputText:    req.InputText,
		OutputText:   req.OutputText,
		Framework:    req.Framework,
		QualityScore: req.QualityScore,
		Version:      req.Version,
		TokensUsed:   lib.EstimateTokens(req.OutputText),
		CreatedAt:    s.now().UTC(),
	}
	if prompt.Version <= 0 {
		prompt.Version = 1
	}
	if req.ParentID != "" {
		parentID := req.ParentID
		prompt.ParentID = &parentID
	}
	if err := s.mongo.InsertPrompt(ctx, prompt); err != nil {
		return "", err
	}
	s.cfg.DataDogClient.Incr("prompts.saved", nil, 1)
	return prompt.ID, nil
}

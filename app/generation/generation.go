// Package generation runs quota-guarded prompt generations.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"promptiq/m/v2/app/ai"
	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Mode string

const (
	ModeGenerate Mode = "generate"
	ModeRefine   Mode = "refine"
)

type Request struct {
	Input          string        `json:"input"`
	Framework      lib.Framework `json:"framework"`
	UserID         string        `json:"userId"`
	Mode           Mode          `json:"mode,omitempty"`
	OriginalPrompt string        `json:"originalPrompt,omitempty"`
	ParentID       string        `json:"parentId,omitempty"`
}

type Result struct {
	Output       string                  `json:"output"`
	QualityScore models.QualityBreakdown `json:"qualityScore"`
	PromptID     string                  `json:"promptId"`
}

type Generator interface {
	GeneratePrompt(ctx context.Context, idea string, framework lib.Framework) (*ai.Generated, error)
	RefinePrompt(ctx context.Context, originalPrompt, refinementRequest string, framework lib.Framework) (*ai.Generated, error)
}

type Recorder interface {
	RecordGeneration(ctx context.Context, user *models.MongoUser, mode string, tokens int)
}

type Service struct {
	cfg       *config.Config
	mongo     mongo.MongoClient
	generator Generator
	recorder  Recorder
	now       func() time.Time
}

func NewService(cfg *config.Config, mongoClient mongo.MongoClient, generator Generator, recorder Recorder) *Service {
	return &Service{
		cfg:       cfg,
		mongo:     mongoClient,
		generator: generator,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Validate defaults the mode and checks the request before any quota is touched.
// Input is kept as sent; only the emptiness check ignores surrounding whitespace.
func (r *Request) Validate() error {
	if r.Mode == "" {
		r.Mode = ModeGenerate
	}
	if strings.TrimSpace(r.Input) == "" || r.Framework == "" || r.UserID == "" {
		return lib.ErrMissingFields
	}
	switch r.Mode {
	case ModeGenerate:
	case ModeRefine:
		if strings.TrimSpace(r.OriginalPrompt) == "" {
			return lib.ErrMissingFields
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", lib.ErrInvalidRequest, r.Mode)
	}
	if !lib.IsValidFramework(r.Framework) {
		return fmt.Errorf("%w: unknown framework %q", lib.ErrInvalidRequest, r.Framework)
	}
	if utf8.RuneCountInString(r.Input) > lib.MaxInputLength {
		return fmt.Errorf("%w: input is longer than %d characters", lib.ErrInvalidRequest, lib.MaxInputLength)
	}
	return nil
}

// Generate reserves one generation, calls the model and stores the prompt.
// The reservation is given back when the model or the store fails.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.mongo.ReserveGeneration(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, lib.ErrQuotaExceeded) {
			s.cfg.DataDogClient.Incr("generation.quota_exceeded", []string{"mode:" + string(req.Mode)}, 1)
		}
		return nil, err
	}

	generated, err := s.callModel(ctx, req)
	if err != nil {
		s.release(req.UserID)
		s.cfg.DataDogClient.Incr("generation.failed", []string{"mode:" + string(req.Mode), "reason:" + failureReason(err)}, 1)
		return nil, err
	}

	prompt := models.MongoPrompt{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		InputText:    req.Input,
		OutputText:   generated.Output,
		Framework:    string(req.Framework),
		QualityScore: generated.QualityScore.Total,
		Version:      1,
		TokensUsed:   lib.EstimateTokens(generated.Output),
		CreatedAt:    s.now().UTC(),
	}
	if req.Mode == ModeRefine {
		prompt.Version = 2
		if req.ParentID != "" {
			parentID := req.ParentID
			prompt.ParentID = &parentID
		}
	}
	if err := s.mongo.InsertPrompt(ctx, prompt); err != nil {
		s.release(req.UserID)
		log.Errorf("Generate: failed to save prompt for user %s: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: %v", lib.ErrGenerationFailed, err)
	}

	s.recorder.RecordGeneration(ctx, user, string(req.Mode), prompt.TokensUsed)
	return &Result{
		Output:       generated.Output,
		QualityScore: generated.QualityScore,
		PromptID:     prompt.ID,
	}, nil
}

func (s *Service) callModel(ctx context.Context, req Request) (*ai.Generated, error) {
	if req.Mode == ModeRefine {
		return s.generator.RefinePrompt(ctx, req.OriginalPrompt, req.Input, req.Framework)
	}
	return s.generator.GeneratePrompt(ctx, req.Input, req.Framework)
}

// release runs on a fresh context so a cancelled request still gives back its reservation.
func (s *Service) release(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.mongo.ReleaseGeneration(ctx, userID); err != nil {
		log.Errorf("Generate: failed to release generation for user %s: %v", userID, err)
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, lib.ErrProviderQuotaExceeded):
		return "provider_quota"
	case errors.Is(err, lib.ErrEmptyGeneration):
		return "empty"
	default:
		return "error"
	}
}

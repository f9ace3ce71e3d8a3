// package to connect to AI API
package ai

import (
	"context"
	"strings"
	"time"

	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/quality"

	log "github.com/sirupsen/logrus"
)

const (
	TIMEOUT = 60 * time.Second
)

// Model produces text for a system instruction and a single user turn.
type Model interface {
	GenerateContent(ctx context.Context, systemInstruction, userTurn string) (string, error)
	Name() string
}

type API struct {
	cfg   *config.Config
	model Model
}

// Generated is a model output together with its quality breakdown.
type Generated struct {
	Output       string
	QualityScore models.QualityBreakdown
}

// NewAPI creates new AI API
func NewAPI(cfg *config.Config, model Model) *API {
	return &API{
		cfg:   cfg,
		model: model,
	}
}

// GeneratePrompt turns an idea into a prompt shaped by the framework.
func (a *API) GeneratePrompt(ctx context.Context, idea string, framework lib.Framework) (*Generated, error) {
	return a.complete(ctx, "generate", lib.SystemInstruction(framework), idea, framework)
}

// RefinePrompt rewrites an existing prompt according to the refinement request.
func (a *API) RefinePrompt(ctx context.Context, originalPrompt, refinementRequest string, framework lib.Framework) (*Generated, error) {
	return a.complete(ctx, "refine", lib.SystemInstruction(framework), lib.RefinementTurn(originalPrompt, refinementRequest), framework)
}

func (a *API) complete(ctx context.Context, mode, systemInstruction, userTurn string, framework lib.Framework) (*Generated, error) {
	timeNow := time.Now()
	ctx, cancel := context.WithTimeout(ctx, TIMEOUT)
	defer cancel()

	output, err := a.model.GenerateContent(ctx, systemInstruction, userTurn)
	status := "status:ok"
	defer func() {
		a.cfg.DataDogClient.Timing("ai.generate_content.latency", time.Since(timeNow), []string{status, "mode:" + mode, "framework:" + string(framework), "model:" + a.model.Name()}, 1)
	}()
	if err != nil {
		status = "status:error"
		log.Errorf("%s: model call failed: %v", mode, err)
		return nil, err
	}

	if strings.TrimSpace(output) == "" {
		status = "status:empty"
		return nil, lib.ErrEmptyGeneration
	}

	return &Generated{
		Output:       output,
		QualityScore: quality.Score(output),
	}, nil
}

// IsAvailable checks whether AI API is available
func (a *API) IsAvailable(ctx context.Context) bool {
	response, err := a.model.GenerateContent(ctx, "Reply only \"OK\" or \"Not OK\"", "test")
	if err != nil {
		log.Errorf("PING: API error: %+v", err)
		return false
	}

	log.Debugf("PING: API response: %+v", response)
	return true
}

// ModelName is used in status reports.
func (a *API) ModelName() string {
	return a.model.Name()
}

package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"promptiq/m/v2/app/ai"
	"promptiq/m/v2/app/config"
	"promptiq/m/v2/app/db/mongo"
	"promptiq/m/v2/app/db/redis"
	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"
	"promptiq/m/v2/app/notify"
	"promptiq/m/v2/app/payments"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generatedPrompt = "## Role: Podcast launch strategist\n**Task:** plan the launch. For instance, episode one."

type recorded struct {
	userID string
	mode   string
	tokens int
	used   int
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (f *fakeRecorder) RecordGeneration(ctx context.Context, user *models.MongoUser, mode string, tokens int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recorded{userID: user.ID, mode: mode, tokens: tokens, used: user.GenerationsUsed})
}

func testConfig() *config.Config {
	client, _ := statsd.New("127.0.0.1:8125", statsd.WithNamespace("tests."))
	return &config.Config{DataDogClient: client}
}

func user(id string, used, limit int) models.MongoUser {
	return models.MongoUser{ID: id, Plan: models.SparkPlan, GenerationsUsed: used, GenerationsLimit: limit}
}

func newTestService(model *ai.FakeModel, users ...models.MongoUser) (*Service, *mongo.MockMongoDBClient, *fakeRecorder) {
	cfg := testConfig()
	mongoClient := mongo.NewMockMongoDBClient(users...)
	recorder := &fakeRecorder{}
	service := NewService(cfg, mongoClient, ai.NewAPI(cfg, model), recorder)
	service.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	return service, mongoClient, recorder
}

func TestGenerate_PersistsPromptAndConsumesQuota(t *testing.T) {
	model := ai.NewFakeModel(generatedPrompt)
	service, mongoClient, recorder := newTestService(model, user("u1", 3, 30))

	result, err := service.Generate(context.Background(), Request{Input: "  launch a podcast ", Framework: lib.STAR, UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, generatedPrompt, result.Output)
	assert.NotEmpty(t, result.PromptID)
	assert.Equal(t, 2.5, result.QualityScore.Structure)

	require.Len(t, model.Calls, 1)
	assert.Equal(t, "  launch a podcast ", model.Calls[0].UserTurn)
	assert.Contains(t, model.Calls[0].SystemInstruction, "Structure as STAR")

	prompt, err := mongoClient.GetPrompt(context.Background(), result.PromptID)
	require.NoError(t, err)
	assert.Equal(t, "u1", prompt.UserID)
	assert.Equal(t, "  launch a podcast ", prompt.InputText)
	assert.Equal(t, "star", prompt.Framework)
	assert.Equal(t, 1, prompt.Version)
	assert.Nil(t, prompt.ParentID)
	assert.Equal(t, result.QualityScore.Total, prompt.QualityScore)
	assert.Equal(t, (len(generatedPrompt)+3)/4, prompt.TokensUsed)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC), prompt.CreatedAt)

	assert.Equal(t, 4, mongoClient.User("u1").GenerationsUsed)
	require.Len(t, recorder.calls, 1)
	assert.Equal(t, recorded{userID: "u1", mode: "generate", tokens: prompt.TokensUsed, used: 4}, recorder.calls[0])
}

func TestGenerate_Refine(t *testing.T) {
	model := ai.NewFakeModel(generatedPrompt)
	service, mongoClient, recorder := newTestService(model, user("u1", 0, 30))

	result, err := service.Generate(context.Background(), Request{
		Input:          "add more examples",
		Framework:      lib.CreativeBrief,
		UserID:         "u1",
		Mode:           ModeRefine,
		OriginalPrompt: "## Role: copywriter",
		ParentID:       "parent-1",
	})
	require.NoError(t, err)

	assert.Equal(t, lib.RefinementTurn("## Role: copywriter", "add more examples"), model.Calls[0].UserTurn)
	prompt, err := mongoClient.GetPrompt(context.Background(), result.PromptID)
	require.NoError(t, err)
	assert.Equal(t, 2, prompt.Version)
	require.NotNil(t, prompt.ParentID)
	assert.Equal(t, "parent-1", *prompt.ParentID)
	assert.Equal(t, 1, mongoClient.User("u1").GenerationsUsed)
	assert.Equal(t, "refine", recorder.calls[0].mode)
}

func TestGenerate_QuotaExhausted(t *testing.T) {
	model := ai.NewFakeModel(generatedPrompt)
	service, mongoClient, recorder := newTestService(model, user("u1", 30, 30))

	_, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.RICE, UserID: "u1"})
	assert.ErrorIs(t, err, lib.ErrQuotaExceeded)

	assert.Empty(t, model.Calls)
	assert.Empty(t, mongoClient.Prompts)
	assert.Equal(t, 30, mongoClient.User("u1").GenerationsUsed)
	assert.Empty(t, recorder.calls)
}

func TestGenerate_UnknownUser(t *testing.T) {
	service, _, _ := newTestService(ai.NewFakeModel(generatedPrompt))
	_, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.RICE, UserID: "ghost"})
	assert.ErrorIs(t, err, lib.ErrUserNotFound)
}

func TestGenerate_ModelFailureReleasesQuota(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		err     error
		wantErr error
	}{
		{"provider quota", "", fmt.Errorf("%w: busy", lib.ErrProviderQuotaExceeded), lib.ErrProviderQuotaExceeded},
		{"provider failure", "", fmt.Errorf("%w: boom", lib.ErrGenerationFailed), lib.ErrGenerationFailed},
		{"empty output", "   ", nil, lib.ErrEmptyGeneration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := ai.NewFakeModel(tt.output)
			model.Err = tt.err
			service, mongoClient, recorder := newTestService(model, user("u1", 7, 30))

			_, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.Custom, UserID: "u1"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 7, mongoClient.User("u1").GenerationsUsed)
			assert.Empty(t, mongoClient.Prompts)
			assert.Empty(t, recorder.calls)
		})
	}
}

func TestGenerate_StoreFailureReleasesQuota(t *testing.T) {
	service, mongoClient, _ := newTestService(ai.NewFakeModel(generatedPrompt), user("u1", 7, 30))
	mongoClient.InsertPromptErr = errors.New("disk full")

	_, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.Custom, UserID: "u1"})
	assert.ErrorIs(t, err, lib.ErrGenerationFailed)
	assert.Equal(t, 7, mongoClient.User("u1").GenerationsUsed)
}

func TestGenerate_ConcurrentRequestsNeverExceedLimit(t *testing.T) {
	service, mongoClient, _ := newTestService(ai.NewFakeModel(generatedPrompt), user("u1", 25, 30))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var quotaErrors int
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.STAR, UserID: "u1"})
			if errors.Is(err, lib.ErrQuotaExceeded) {
				mu.Lock()
				quotaErrors++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 7, quotaErrors)
	assert.Equal(t, 30, mongoClient.User("u1").GenerationsUsed)
	assert.Len(t, mongoClient.Prompts, 5)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid", Request{Input: "idea", Framework: lib.STAR, UserID: "u1"}, nil},
		{"missing input", Request{Input: "  ", Framework: lib.STAR, UserID: "u1"}, lib.ErrMissingFields},
		{"missing framework", Request{Input: "idea", UserID: "u1"}, lib.ErrMissingFields},
		{"missing user", Request{Input: "idea", Framework: lib.STAR}, lib.ErrMissingFields},
		{"refine without original", Request{Input: "idea", Framework: lib.STAR, UserID: "u1", Mode: ModeRefine}, lib.ErrMissingFields},
		{"unknown framework", Request{Input: "idea", Framework: "five-whys", UserID: "u1"}, lib.ErrInvalidRequest},
		{"unknown mode", Request{Input: "idea", Framework: lib.STAR, UserID: "u1", Mode: "rewrite"}, lib.ErrInvalidRequest},
		{"too long", Request{Input: strings.Repeat("a", lib.MaxInputLength+1), Framework: lib.STAR, UserID: "u1"}, lib.ErrInvalidRequest},
		{"max length", Request{Input: strings.Repeat("é", lib.MaxInputLength), Framework: lib.STAR, UserID: "u1"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestValidate_KeepsInputAsSent(t *testing.T) {
	req := Request{Input: "\n  draft a cover letter  ", Framework: lib.STAR, UserID: "u1"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "\n  draft a cover letter  ", req.Input)
	assert.Equal(t, ModeGenerate, req.Mode)
}

// downNotifier stands for an operator channel that never answers.
type downNotifier struct {
	attempts chan string
}

func (n *downNotifier) Notify(ctx context.Context, message string) error {
	n.attempts <- message
	<-ctx.Done()
	return ctx.Err()
}

func TestGenerate_UnreachableOperatorChannelDoesNotDelayResult(t *testing.T) {
	cfg := testConfig()
	mongoClient := mongo.NewMockMongoDBClient(user("u1", 14, 30))
	down := &downNotifier{attempts: make(chan string, 4)}
	alerts := notify.NewQueue(down, 8)
	billing := payments.NewBilling(cfg, mongoClient, redis.NewMockRedisClient(), alerts)
	service := NewService(cfg, mongoClient, ai.NewAPI(cfg, ai.NewFakeModel(generatedPrompt)), billing)

	start := time.Now()
	result, err := service.Generate(context.Background(), Request{Input: "idea", Framework: lib.STAR, UserID: "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.PromptID)
	assert.Less(t, time.Since(start), time.Second)

	// the halfway alert is still attempted in the background
	select {
	case message := <-down.attempts:
		assert.Contains(t, message, "halfway")
	case <-time.After(5 * time.Second):
		t.Fatal("threshold alert was never attempted")
	}
	assert.Equal(t, 15, mongoClient.User("u1").GenerationsUsed)
}

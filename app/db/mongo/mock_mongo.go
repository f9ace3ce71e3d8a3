package mongo

import (
	"context"
	"sort"
	"sync"
	"time"

	"promptiq/m/v2/app/lib"
	"promptiq/m/v2/app/models"

	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MockMongoDBClient is an in-memory stand-in for the MongoDB client in the mongo package.
type MockMongoDBClient struct {
	MongoClient

	mu          sync.Mutex
	Users       map[string]*models.MongoUser
	Prompts     map[string]*models.MongoPrompt
	SharedLinks map[string]*models.MongoSharedLink
	Waitlist    map[string]*models.MongoWaitlistEntry

	// failure injection
	PingErr             error
	InsertPromptErr     error
	ResetUsageErr       error
	DuplicateCodesFirst int
}

func NewMockMongoDBClient(users ...models.MongoUser) *MockMongoDBClient {
	m := &MockMongoDBClient{
		Users:       map[string]*models.MongoUser{},
		Prompts:     map[string]*models.MongoPrompt{},
		SharedLinks: map[string]*models.MongoSharedLink{},
		Waitlist:    map[string]*models.MongoWaitlistEntry{},
	}
	for i := range users {
		user := users[i]
		m.Users[user.ID] = &user
	}
	return m
}

func (m *MockMongoDBClient) Disconnect(ctx context.Context) error {
	return nil
}

func (m *MockMongoDBClient) Ping(ctx context.Context, rp *readpref.ReadPref) error {
	return m.PingErr
}

func (m *MockMongoDBClient) EnsureIndexes(ctx context.Context) error {
	return nil
}

// User returns a copy of the stored user, or nil.
func (m *MockMongoDBClient) User(userID string) *models.MongoUser {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return nil
	}
	copied := *user
	return &copied
}

func (m *MockMongoDBClient) CreateUserIfMissing(ctx context.Context, user models.MongoUser) (*models.MongoUser, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.Users[user.ID]; ok {
		copied := *existing
		return &copied, false, nil
	}
	if user.PaymentHistory == nil {
		user.PaymentHistory = []models.MongoPaymentRecord{}
	}
	m.Users[user.ID] = &user
	copied := user
	return &copied, true, nil
}

func (m *MockMongoDBClient) GetUser(ctx context.Context, userID string) (*models.MongoUser, error) {
	user := m.User(userID)
	if user == nil {
		return nil, lib.ErrUserNotFound
	}
	return user, nil
}

func (m *MockMongoDBClient) GetUsersCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Users)), nil
}

func (m *MockMongoDBClient) GetUsersCountForPlan(ctx context.Context, plan models.Plan) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, user := range m.Users {
		if user.Plan == plan {
			count++
		}
	}
	return count, nil
}

func (m *MockMongoDBClient) ReserveGeneration(ctx context.Context, userID string) (*models.MongoUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return nil, lib.ErrUserNotFound
	}
	if user.GenerationsUsed >= user.GenerationsLimit {
		return nil, lib.ErrQuotaExceeded
	}
	user.GenerationsUsed++
	user.UpdatedAt = time.Now().UTC()
	copied := *user
	return &copied, nil
}

func (m *MockMongoDBClient) ReleaseGeneration(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.Users[userID]; ok && user.GenerationsUsed > 0 {
		user.GenerationsUsed--
	}
	return nil
}

func (m *MockMongoDBClient) UpgradeUserPlan(ctx context.Context, userID string, record models.MongoPaymentRecord) (bool, error) {
	plan, ok := models.Plans[record.Plan]
	if !ok {
		return false, lib.ErrInvalidPlan
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.Users[userID]
	if !ok {
		return false, lib.ErrUserNotFound
	}
	for _, existing := range user.PaymentHistory {
		if existing.OrderID == record.OrderID {
			return false, nil
		}
	}
	user.Plan = record.Plan
	user.GenerationsLimit = plan.GenerationsLimit
	user.GenerationsUsed = 0
	user.UpdatedAt = time.Now().UTC()
	user.PaymentHistory = append(user.PaymentHistory, record)
	return true, nil
}

func (m *MockMongoDBClient) SyncPlanLimits(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.Users {
		if plan, ok := models.Plans[user.Plan]; ok {
			user.GenerationsLimit = plan.GenerationsLimit
		}
	}
	return nil
}

func (m *MockMongoDBClient) ResetAllUsage(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResetUsageErr != nil {
		return 0, m.ResetUsageErr
	}
	var modified int64
	for _, user := range m.Users {
		if user.GenerationsUsed > 0 {
			user.GenerationsUsed = 0
			modified++
		}
	}
	return modified, nil
}

func (m *MockMongoDBClient) InsertPrompt(ctx context.Context, prompt models.MongoPrompt) error {
	if m.InsertPromptErr != nil {
		return m.InsertPromptErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts[prompt.ID] = &prompt
	return nil
}

func (m *MockMongoDBClient) GetPrompt(ctx context.Context, promptID string) (*models.MongoPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompt, ok := m.Prompts[promptID]
	if !ok {
		return nil, lib.ErrPromptNotFound
	}
	copied := *prompt
	return &copied, nil
}

func (m *MockMongoDBClient) ListUserPrompts(ctx context.Context, userID string, limit int64) ([]models.MongoPrompt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompts := []models.MongoPrompt{}
	for _, prompt := range m.Prompts {
		if prompt.UserID == userID {
			prompts = append(prompts, *prompt)
		}
	}
	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].CreatedAt.After(prompts[j].CreatedAt)
	})
	if int64(len(prompts)) > limit {
		prompts = prompts[:limit]
	}
	return prompts, nil
}

func (m *MockMongoDBClient) DeletePrompt(ctx context.Context, promptID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Prompts[promptID]; !ok {
		return lib.ErrPromptNotFound
	}
	delete(m.Prompts, promptID)
	return nil
}

func (m *MockMongoDBClient) InsertSharedLink(ctx context.Context, link models.MongoSharedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DuplicateCodesFirst > 0 {
		m.DuplicateCodesFirst--
		return ErrDuplicateCode
	}
	if _, ok := m.SharedLinks[link.Code]; ok {
		return ErrDuplicateCode
	}
	m.SharedLinks[link.Code] = &link
	return nil
}

func (m *MockMongoDBClient) GetSharedLink(ctx context.Context, code string) (*models.MongoSharedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.SharedLinks[code]
	if !ok {
		return nil, lib.ErrLinkNotFound
	}
	copied := *link
	return &copied, nil
}

func (m *MockMongoDBClient) IncrementSharedLinkViews(ctx context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.SharedLinks[code]
	if !ok {
		return 0, lib.ErrLinkNotFound
	}
	link.Views++
	return link.Views, nil
}

func (m *MockMongoDBClient) DeleteSharedLinksForPrompt(ctx context.Context, promptID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for code, link := range m.SharedLinks {
		if link.PromptID == promptID {
			delete(m.SharedLinks, code)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MockMongoDBClient) AddToWaitlist(ctx context.Context, entry models.MongoWaitlistEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Waitlist[entry.Email]; ok {
		return false, nil
	}
	m.Waitlist[entry.Email] = &entry
	return true, nil
}

func (m *MockMongoDBClient) GetWaitlistCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Waitlist)), nil
}

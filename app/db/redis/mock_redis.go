package redis

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"sync"
	"time"

	r "github.com/go-redis/redis/v8"
)

// MockRedisClient is a mock for the Redis client in the redis package.
type MockRedisClient struct {
	Client

	mu      sync.Mutex
	data    map[string]string
	PingErr  error
	SetNXErr error
}

func NewMockRedisClient() *MockRedisClient {
	return &MockRedisClient{
		data: make(map[string]string),
	}
}

func (m *MockRedisClient) Close() error {
	return nil
}

func (m *MockRedisClient) Ping(ctx context.Context) *r.StatusCmd {
	cmd := r.NewStatusCmd(ctx)
	if m.PingErr != nil {
		cmd.SetErr(m.PingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (m *MockRedisClient) IncrBy(ctx context.Context, key string, value int64) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewIntCmd(ctx)
	current := int64(0)
	if v, ok := m.data[key]; ok {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			cmd.SetErr(fmt.Errorf("ERR value is not an integer or out of range"))
			return cmd
		}
		current = parsed
	}
	current += value
	m.data[key] = strconv.FormatInt(current, 10)
	cmd.SetVal(current)
	return cmd
}

func (m *MockRedisClient) Get(ctx context.Context, key string) *r.StringCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewStringCmd(ctx)
	if value, ok := m.data[key]; ok {
		cmd.SetVal(value)
	} else {
		cmd.SetErr(r.Nil)
	}
	return cmd
}

// Set ignores expiration.
func (m *MockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.StatusCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprintf("%v", value)
	cmd := r.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

// SetNX ignores expiration.
func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *r.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	cmd := r.NewBoolCmd(ctx)
	if m.SetNXErr != nil {
		cmd.SetErr(m.SetNXErr)
		return cmd
	}
	if _, ok := m.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	m.data[key] = fmt.Sprintf("%v", value)
	cmd.SetVal(true)
	return cmd
}

func (m *MockRedisClient) Del(ctx context.Context, keys ...string) *r.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			deleted++
		}
	}
	cmd := r.NewIntCmd(ctx)
	cmd.SetVal(deleted)
	return cmd
}

func (m *MockRedisClient) Keys(ctx context.Context, pattern string) *r.StringSliceCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	for key := range m.data {
		if matched, _ := path.Match(pattern, key); matched {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	cmd := r.NewStringSliceCmd(ctx)
	cmd.SetVal(keys)
	return cmd
}

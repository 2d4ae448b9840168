package typed

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) Type(ctx context.Context, key string) (NativeType, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(NativeType), args.Error(1)
}

func (m *mockClient) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockClient) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *mockClient) Set(ctx context.Context, key, value string) (bool, error) {
	args := m.Called(ctx, key, value)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	args := m.Called(ctx, key)
	h, _ := args.Get(0).(map[string]string)
	return h, args.Error(1)
}

func (m *mockClient) HMSet(ctx context.Context, key string, fields map[string]string) (bool, error) {
	args := m.Called(ctx, key, fields)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	args := m.Called(ctx, key, start, stop)
	l, _ := args.Get(0).([]string)
	return l, args.Error(1)
}

func (m *mockClient) RPush(ctx context.Context, key string, values ...string) (bool, error) {
	args := m.Called(ctx, key, values)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) SMembers(ctx context.Context, key string) ([]string, error) {
	args := m.Called(ctx, key)
	s, _ := args.Get(0).([]string)
	return s, args.Error(1)
}

func (m *mockClient) SAdd(ctx context.Context, key string, members ...string) (bool, error) {
	args := m.Called(ctx, key, members)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	args := m.Called(ctx, key, start, stop)
	z, _ := args.Get(0).([]string)
	return z, args.Error(1)
}

func (m *mockClient) ZAdd(ctx context.Context, key string, members ...ZMember) (bool, error) {
	args := m.Called(ctx, key, members)
	return args.Bool(0), args.Error(1)
}

// ttlMockClient adds TTL reporting
type ttlMockClient struct {
	mockClient
}

func (m *ttlMockClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

package typed

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"typedkv/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newMockAccessor() (*Accessor, *mockClient) {
	m := &mockClient{}
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	return New(m, WithLogger(quiet)), m
}

func TestWriteDeletesExistingKeyFirst(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(true, nil).Once()
	m.On("Del", ctx, "k").Return(nil).Once()
	m.On("Set", ctx, "k", "v").Return(true, nil).Once()

	require.NoError(t, a.SetString(ctx, "k", "v", 0))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
}

func TestWriteSkipsDeleteForAbsentKey(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(false, nil)
	m.On("Set", ctx, "k", "42").Return(true, nil)
	m.On("Expire", ctx, "k", time.Minute).Return(true, nil)

	require.NoError(t, a.SetInt(ctx, "k", 42, time.Minute))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
}

func TestZeroOrNegativeTTLIsNoop(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		a, m := newMockAccessor()
		m.On("Exists", ctx, "k").Return(true, nil)
		m.On("Del", ctx, "k").Return(nil)
		m.On("Set", ctx, "k", "x").Return(true, nil)

		require.NoError(t, a.SetString(ctx, "k", "x", ttl))
		require.NoError(t, a.SetTTL(ctx, "k", ttl))
		m.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestRejectedWriteAfterDelete(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(true, nil)
	m.On("Del", ctx, "k").Return(nil)
	m.On("HMSet", ctx, "k", map[string]string{"f": "v"}).Return(false, nil)

	err := a.SetHash(ctx, "k", Hash(map[string]string{"f": "v"}), time.Minute)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "k", pe.Key)
	assert.Equal(t, "write hash", pe.Op)
	assert.True(t, pe.PriorDeleted)
	assert.Nil(t, pe.Err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Contains(t, err.Error(), "previous value lost")
	m.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
}

func TestFailedWriteKeepsCause(t *testing.T) {
	a, m := newMockAccessor()
	boom := errors.New("connection reset")
	m.On("Exists", ctx, "k").Return(false, nil)
	m.On("RPush", ctx, "k", []string{"a", "b"}).Return(false, boom)

	err := a.SetList(ctx, "k", List("a", "b"), 0)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.PriorDeleted)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestRejectedExpire(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(false, nil)
	m.On("SAdd", ctx, "k", []string{"a"}).Return(true, nil)
	m.On("Expire", ctx, "k", time.Second).Return(false, nil)

	err := a.SetSet(ctx, "k", List("a"), time.Second)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "expire", pe.Op)
}

func TestSortedSetScoresFromKeys(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "z").Return(false, nil)
	m.On("ZAdd", ctx, "z", []ZMember{
		{Score: 5, Member: "five"},
		{Score: 0, Member: "named"},
		{Score: -2, Member: "neg"},
		{Score: 0, Member: "padded"},
	}).Return(true, nil)

	c := NewCollection(
		Entry{Key: "5", Value: "five"},
		Entry{Key: "name", Value: "named"},
		Entry{Key: "-2", Value: "neg"},
		Entry{Key: "07", Value: "padded"},
	)
	require.NoError(t, a.SetSortedSet(ctx, "z", c, 0))
	m.AssertExpectations(t)
}

func TestEmptyCollectionWritesNothing(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(true, nil)
	m.On("Del", ctx, "k").Return(nil)

	require.NoError(t, a.SetArray(ctx, "k", NewCollection(), time.Minute))
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "RPush", mock.Anything, mock.Anything, mock.Anything)
	m.AssertNotCalled(t, "Expire", mock.Anything, mock.Anything, mock.Anything)
}

type unsupported struct{}

func (unsupported) isValue() {}

func TestSetRejectsUnsupportedValues(t *testing.T) {
	a, m := newMockAccessor()

	for _, v := range []Value{nil, unsupported{}, Float(math.NaN()), Float(math.Inf(-1))} {
		err := a.Set(ctx, "k", v, 0)
		var ia *InvalidArgumentError
		require.ErrorAs(t, err, &ia, "%#v", v)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	}
	assert.Empty(t, m.Calls)
}

func TestSetDispatch(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		setup func(m *mockClient)
	}{
		{"string", String("s"), func(m *mockClient) { m.On("Set", ctx, "k", "s").Return(true, nil) }},
		{"int", Int(-7), func(m *mockClient) { m.On("Set", ctx, "k", "-7").Return(true, nil) }},
		{"float", Float(1e21), func(m *mockClient) { m.On("Set", ctx, "k", "1000000000000000000000").Return(true, nil) }},
		{"bool true", Bool(true), func(m *mockClient) { m.On("Set", ctx, "k", "1").Return(true, nil) }},
		{"bool false", Bool(false), func(m *mockClient) { m.On("Set", ctx, "k", "0").Return(true, nil) }},
		{"sequence", List("a", "b"), func(m *mockClient) { m.On("RPush", ctx, "k", []string{"a", "b"}).Return(true, nil) }},
		{"mapping", NewCollection(Entry{Key: "1", Value: "a"}, Entry{Key: "0", Value: "b"}), func(m *mockClient) {
			m.On("HMSet", ctx, "k", map[string]string{"1": "a", "0": "b"}).Return(true, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, m := newMockAccessor()
			m.On("Exists", ctx, "k").Return(false, nil)
			tt.setup(m)
			require.NoError(t, a.Set(ctx, "k", tt.value, 0))
			m.AssertExpectations(t)
		})
	}
}

func TestUnknownNativeTypeIsMismatch(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "stream").Return(true, nil)
	m.On("Type", ctx, "stream").Return(TypeUnknown, nil)

	_, err := a.Get(ctx, "stream")
	var tm *TypeMismatchError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, TypeUnknown, tm.Actual)
	assert.Len(t, tm.Expected, 5)

	_, err = a.GetArray(ctx, "stream")
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, collectionTypes, tm.Expected)
	assert.Equal(t, `typed: key "stream" holds unknown, expected list|hash|set|zset`, err.Error())
}

func TestReadChecksExistenceBeforeType(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(false, nil)

	_, err := a.GetHash(ctx, "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	m.AssertNotCalled(t, "Type", mock.Anything, mock.Anything)
}

func TestTransportErrorsPassThrough(t *testing.T) {
	a, m := newMockAccessor()
	boom := errors.New("timeout")
	m.On("Exists", ctx, "k").Return(false, boom)

	_, err := a.Exists(ctx, "k")
	assert.ErrorIs(t, err, boom)
	_, err = a.GetString(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrKeyNotFound)
	err = a.SetString(ctx, "k", "v", 0)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrPersistence)
}

func TestGetSetSortsMembers(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "s").Return(true, nil)
	m.On("Type", ctx, "s").Return(TypeSet, nil)
	m.On("SMembers", ctx, "s").Return([]string{"c", "a", "b"}, nil)

	got, err := a.GetArray(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, List("a", "b", "c"), got)
}

func TestNilRepliesBecomeEmpty(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, mock.Anything).Return(true, nil)
	m.On("Type", ctx, "h").Return(TypeHash, nil)
	m.On("Type", ctx, "l").Return(TypeList, nil)
	m.On("HGetAll", ctx, "h").Return(nil, nil)
	m.On("LRange", ctx, "l", int64(0), int64(-1)).Return(nil, nil)

	h, err := a.GetHash(ctx, "h")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Empty(t, h)

	l, err := a.GetList(ctx, "l")
	require.NoError(t, err)
	assert.NotNil(t, l)
	assert.Empty(t, l)
}

func TestTTLRequiresReader(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "k").Return(true, nil)

	_, err := a.TTL(ctx, "k")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	m.AssertExpectations(t)
}

func TestTTLChecksExistenceFirst(t *testing.T) {
	a, m := newMockAccessor()
	m.On("Exists", ctx, "missing").Return(false, nil)

	_, err := a.TTL(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
}

func TestGetSetLeavesClientSliceUntouched(t *testing.T) {
	a, m := newMockAccessor()
	fromClient := []string{"c", "a", "b"}
	m.On("Exists", ctx, "s").Return(true, nil)
	m.On("Type", ctx, "s").Return(TypeSet, nil)
	m.On("SMembers", ctx, "s").Return(fromClient, nil)

	members, err := a.GetSet(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, members)
	assert.Equal(t, []string{"c", "a", "b"}, fromClient)
}

func TestConcurrentNew(t *testing.T) {
	var wg sync.WaitGroup
	accessors := make([]*Accessor, 8)
	for i := range accessors {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			accessors[i] = New(&mockClient{})
		}()
		go func() {
			defer wg.Done()
			logger.Configure(logger.Config{Level: logger.PanicLevel, Output: io.Discard})
		}()
	}
	wg.Wait()

	for _, a := range accessors {
		require.NotNil(t, a)
		assert.Same(t, logger.Get(), a.log)
	}
}

func TestTTLNormalizesNegativeReplies(t *testing.T) {
	m := &ttlMockClient{}
	a := New(m)
	m.On("Exists", ctx, "k").Return(true, nil)
	m.On("TTL", ctx, "k").Return(time.Duration(-1), nil).Once()
	m.On("TTL", ctx, "k").Return(90*time.Second, nil).Once()

	ttl, err := a.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)

	ttl, err = a.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, ttl)
}

func TestDeleteLogs(t *testing.T) {
	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)
	m := &mockClient{}
	a := New(m, WithLogger(l))
	m.On("Exists", ctx, "k").Return(true, nil)
	m.On("Del", ctx, "k").Return(nil)

	require.NoError(t, a.Delete(ctx, "k"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "deleted key", hook.LastEntry().Message)
	assert.Equal(t, "k", hook.LastEntry().Data["key"])
	assert.Same(t, Client(m), a.Client())
}

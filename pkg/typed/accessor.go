package typed

import (
	"context"
	"fmt"
	"time"

	"typedkv/internal/logger"

	"github.com/sirupsen/logrus"
)

// Option customizes an Accessor
type Option func(*Accessor)

// WithLogger sets the logger used for write and delete tracing.
// Defaults to the process logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(a *Accessor) {
		if l != nil {
			a.log = l
		}
	}
}

// Accessor reads and writes logical values over a Client. It holds no state
// besides the client, so it is safe for concurrent use whenever the client is.
//
// Every operation is a sequence of independent round trips: a concurrent
// writer may change the key between the existence check, the type check and
// the fetch.
type Accessor struct {
	client Client
	log    logrus.FieldLogger
}

// New wraps a connected client
func New(client Client, opts ...Option) *Accessor {
	a := &Accessor{client: client, log: logger.Get()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Client returns the underlying store client
func (a *Accessor) Client() Client { return a.client }

// Exists reports whether the store holds a value for key
func (a *Accessor) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := a.client.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return ok, nil
}

// Type returns the native structure held at key
func (a *Accessor) Type(ctx context.Context, key string) (NativeType, error) {
	if err := a.mustExist(ctx, key); err != nil {
		return TypeUnknown, err
	}
	t, err := a.client.Type(ctx, key)
	if err != nil {
		return TypeUnknown, fmt.Errorf("type %q: %w", key, err)
	}
	return t, nil
}

// Delete removes key
func (a *Accessor) Delete(ctx context.Context, key string) error {
	if err := a.mustExist(ctx, key); err != nil {
		return err
	}
	if err := a.client.Del(ctx, key); err != nil {
		return fmt.Errorf("del %q: %w", key, err)
	}
	a.log.WithField("key", key).Debug("deleted key")
	return nil
}

// SetTTL makes key expire after ttl. A ttl of zero or less applies nothing.
func (a *Accessor) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if err := a.mustExist(ctx, key); err != nil {
		return err
	}
	return a.expire(ctx, key, ttl)
}

// TTL returns the remaining time to live of key, or NoExpiry.
// The client must implement TTLReader.
func (a *Accessor) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := a.mustExist(ctx, key); err != nil {
		return 0, err
	}
	r, ok := a.client.(TTLReader)
	if !ok {
		return 0, &InvalidArgumentError{Description: fmt.Sprintf("client %T cannot report TTL", a.client)}
	}
	ttl, err := r.TTL(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("ttl %q: %w", key, err)
	}
	if ttl < 0 {
		return NoExpiry, nil
	}
	return ttl, nil
}

func (a *Accessor) mustExist(ctx context.Context, key string) error {
	ok, err := a.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return &KeyNotFoundError{Key: key}
	}
	return nil
}

// requireType confirms existence and then that the key holds one of want.
// It returns the actual type so dispatching readers can branch on it.
func (a *Accessor) requireType(ctx context.Context, key string, want ...NativeType) (NativeType, error) {
	actual, err := a.Type(ctx, key)
	if err != nil {
		return TypeUnknown, err
	}
	for _, t := range want {
		if t == actual {
			return actual, nil
		}
	}
	return actual, &TypeMismatchError{Key: key, Actual: actual, Expected: want}
}

func (a *Accessor) expire(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	ok, err := a.client.Expire(ctx, key, ttl)
	if err != nil {
		return fmt.Errorf("expire %q: %w", key, err)
	}
	if !ok {
		return &PersistenceError{Key: key, Op: "expire"}
	}
	return nil
}

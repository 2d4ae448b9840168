package typed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// GetString returns the string stored at key
func (a *Accessor) GetString(ctx context.Context, key string) (string, error) {
	if _, err := a.requireType(ctx, key, TypeString); err != nil {
		return "", err
	}
	return a.fetchString(ctx, key)
}

// GetInt returns the integer stored at key. The stored string must be the
// exact decimal form of the integer: "3" and "-7" parse, "3.0" does not.
func (a *Accessor) GetInt(ctx context.Context, key string) (int64, error) {
	s, err := a.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		reason := "not numeric"
		if _, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			reason = "not an integer"
		}
		if errors.Is(err, strconv.ErrRange) {
			reason = "out of range"
		}
		return 0, &InvalidFormatError{Key: key, Value: s, Target: "int", Reason: reason, Err: err}
	}
	if strconv.FormatInt(n, 10) != s {
		return 0, &InvalidFormatError{Key: key, Value: s, Target: "int", Reason: "not in canonical integer form"}
	}
	return n, nil
}

// GetFloat returns the floating point number stored at key
func (a *Accessor) GetFloat(ctx context.Context, key string) (float64, error) {
	s, err := a.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &InvalidFormatError{Key: key, Value: s, Target: "float", Reason: "not numeric", Err: err}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidFormatError{Key: key, Value: s, Target: "float", Reason: "not finite"}
	}
	return f, nil
}

// GetBool returns false for an empty string or "0" and true for anything else
func (a *Accessor) GetBool(ctx context.Context, key string) (bool, error) {
	s, err := a.GetString(ctx, key)
	if err != nil {
		return false, err
	}
	return s != "" && s != "0", nil
}

// GetHash returns every field of the hash at key
func (a *Accessor) GetHash(ctx context.Context, key string) (map[string]string, error) {
	if _, err := a.requireType(ctx, key, TypeHash); err != nil {
		return nil, err
	}
	return a.fetchHash(ctx, key)
}

// GetList returns the list at key in store order
func (a *Accessor) GetList(ctx context.Context, key string) ([]string, error) {
	if _, err := a.requireType(ctx, key, TypeList); err != nil {
		return nil, err
	}
	return a.fetchList(ctx, key)
}

// GetSet returns the members of the set at key in no particular order
func (a *Accessor) GetSet(ctx context.Context, key string) ([]string, error) {
	if _, err := a.requireType(ctx, key, TypeSet); err != nil {
		return nil, err
	}
	return a.fetchSet(ctx, key)
}

// GetSortedSet returns the members of the sorted set at key by ascending score
func (a *Accessor) GetSortedSet(ctx context.Context, key string) ([]string, error) {
	if _, err := a.requireType(ctx, key, TypeSortedSet); err != nil {
		return nil, err
	}
	return a.fetchSortedSet(ctx, key)
}

// GetArray reads any of the four collection structures. Lists, sets and
// sorted sets come back keyed 0..n-1; hashes keep their field names.
func (a *Accessor) GetArray(ctx context.Context, key string) (Collection, error) {
	t, err := a.requireType(ctx, key, collectionTypes...)
	if err != nil {
		return Collection{}, err
	}
	return a.fetchCollection(ctx, key, t)
}

// Get reads key as a String or a Collection depending on what it holds
func (a *Accessor) Get(ctx context.Context, key string) (Value, error) {
	t, err := a.requireType(ctx, key, TypeString, TypeList, TypeHash, TypeSet, TypeSortedSet)
	if err != nil {
		return nil, err
	}
	if t == TypeString {
		s, err := a.fetchString(ctx, key)
		if err != nil {
			return nil, err
		}
		return String(s), nil
	}
	return a.fetchCollection(ctx, key, t)
}

func (a *Accessor) fetchCollection(ctx context.Context, key string, t NativeType) (Collection, error) {
	var (
		values []string
		err    error
	)
	switch t {
	case TypeHash:
		m, err := a.fetchHash(ctx, key)
		if err != nil {
			return Collection{}, err
		}
		return Hash(m), nil
	case TypeList:
		values, err = a.fetchList(ctx, key)
	case TypeSet:
		values, err = a.fetchSet(ctx, key)
	case TypeSortedSet:
		values, err = a.fetchSortedSet(ctx, key)
	default:
		return Collection{}, &TypeMismatchError{Key: key, Actual: t, Expected: collectionTypes}
	}
	if err != nil {
		return Collection{}, err
	}
	return List(values...), nil
}

func (a *Accessor) fetchString(ctx context.Context, key string) (string, error) {
	s, err := a.client.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	return s, nil
}

func (a *Accessor) fetchHash(ctx context.Context, key string) (map[string]string, error) {
	m, err := a.client.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %q: %w", key, err)
	}
	if m == nil {
		m = map[string]string{}
	}
	return m, nil
}

func (a *Accessor) fetchList(ctx context.Context, key string) ([]string, error) {
	values, err := a.client.LRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("lrange %q: %w", key, err)
	}
	return nonNil(values), nil
}

func (a *Accessor) fetchSet(ctx context.Context, key string) ([]string, error) {
	members, err := a.client.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("smembers %q: %w", key, err)
	}
	// the store gives no order; sort a copy for a stable traversal
	sorted := make([]string, len(members))
	copy(sorted, members)
	sort.Strings(sorted)
	return sorted, nil
}

func (a *Accessor) fetchSortedSet(ctx context.Context, key string) ([]string, error) {
	members, err := a.client.ZRange(ctx, key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("zrange %q: %w", key, err)
	}
	return nonNil(members), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

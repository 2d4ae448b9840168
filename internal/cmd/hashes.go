package cmd

import (
	"sort"

	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// fieldPairs reads field/value pairs from args, rejecting a dangling field
func fieldPairs(name string, args []string) (map[string]string, error) {
	if len(args)%2 != 0 {
		return nil, wrongArgs(name)
	}
	fields := make(map[string]string, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		fields[args[i]] = args[i+1]
	}
	return fields, nil
}

// HSetHandler handles HSET key field value [field value ...]
func HSetHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		fields, err := fieldPairs("HSET", args[1:])
		if err != nil {
			return resp.Value{}, err
		}
		h, err := db.GetOrCreateHash(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Int(int64(h.HMSet(fields))), nil
	}
}

// HMSetHandler handles HMSET key field value [field value ...]
func HMSetHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		fields, err := fieldPairs("HMSET", args[1:])
		if err != nil {
			return resp.Value{}, err
		}
		h, err := db.GetOrCreateHash(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		h.HMSet(fields)
		return resp.OK(), nil
	}
}

func HGetHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		h, err := db.GetHash(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, h != nil) {
			return resp.NullBulk(), nil
		}
		value, ok := h.HGet(args[1])
		if !ok {
			return resp.NullBulk(), nil
		}
		return resp.Bulk(value), nil
	}
}

// HGetAllHandler replies with field/value pairs ordered by field name
func HGetAllHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		h, err := db.GetHash(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, h != nil) {
			return resp.BulkArray(nil), nil
		}

		all := h.HGetAll()
		fields := make([]string, 0, len(all))
		for f := range all {
			fields = append(fields, f)
		}
		sort.Strings(fields)

		flat := make([]string, 0, 2*len(fields))
		for _, f := range fields {
			flat = append(flat, f, all[f])
		}
		return resp.BulkArray(flat), nil
	}
}

func HLenHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		h, err := db.GetHash(args[0])
		if err != nil || h == nil {
			return resp.Int(0), err
		}
		return resp.Int(int64(h.HLen())), nil
	}
}

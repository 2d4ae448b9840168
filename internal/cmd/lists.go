package cmd

import (
	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// LPushHandler handles LPUSH key element [element ...]
func LPushHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		l, err := db.GetOrCreateList(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Int(int64(l.LPush(args[1:]...))), nil
	}
}

// RPushHandler handles RPUSH key element [element ...]
func RPushHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		l, err := db.GetOrCreateList(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Int(int64(l.RPush(args[1:]...))), nil
	}
}

func LLenHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		l, err := db.GetList(args[0])
		if err != nil || l == nil {
			return resp.Int(0), err
		}
		return resp.Int(int64(l.LLen())), nil
	}
}

// LIndexHandler handles LINDEX key index
func LIndexHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		index, err := parseInt(args[1])
		if err != nil {
			return resp.Value{}, err
		}
		l, err := db.GetList(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, l != nil) {
			return resp.NullBulk(), nil
		}
		value, ok := l.LIndex(int(index))
		if !ok {
			return resp.NullBulk(), nil
		}
		return resp.Bulk(value), nil
	}
}

// LRangeHandler handles LRANGE key start stop
func LRangeHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		start, err := parseInt(args[1])
		if err != nil {
			return resp.Value{}, err
		}
		stop, err := parseInt(args[2])
		if err != nil {
			return resp.Value{}, err
		}
		l, err := db.GetList(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, l != nil) {
			return resp.BulkArray(nil), nil
		}
		return resp.BulkArray(l.LRange(int(start), int(stop))), nil
	}
}

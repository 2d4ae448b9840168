package cmd

import (
	"time"

	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// ExistsHandler handles EXISTS key [key ...]; a key named twice counts twice
func ExistsHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		var n int64
		for _, key := range args {
			if db.Exists(key) {
				n++
			}
		}
		return resp.Int(n), nil
	}
}

// DelHandler handles DEL key [key ...]
func DelHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		var n int64
		for _, key := range args {
			if db.Del(key) {
				n++
			}
		}
		return resp.Int(n), nil
	}
}

// TypeHandler handles TYPE key
func TypeHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		return resp.Simple(db.GetDataType(args[0]).String()), nil
	}
}

// ExpireHandler handles EXPIRE and PEXPIRE. unitMillis is the number of
// milliseconds in one unit of the argument.
func ExpireHandler(db store.DataStore, unitMillis int64) Handler {
	return func(args []string) (resp.Value, error) {
		n, err := parseInt(args[1])
		if err != nil {
			return resp.Value{}, err
		}
		d := time.Duration(n) * time.Duration(unitMillis) * time.Millisecond
		return resp.Bool(db.Expire(args[0], d)), nil
	}
}

// PExpireAtHandler handles PEXPIREAT key unix-time-milliseconds. A time in
// the past deletes the key.
func PExpireAtHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		ms, err := parseInt(args[1])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Bool(db.ExpireAt(args[0], time.UnixMilli(ms))), nil
	}
}

func TTLHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		return resp.Int(db.TTL(args[0])), nil
	}
}

func PTTLHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		return resp.Int(db.PTTL(args[0])), nil
	}
}

func DBSizeHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		return resp.Int(int64(db.Len())), nil
	}
}

// FlushAllHandler handles FLUSHALL [ASYNC|SYNC]; both modes flush synchronously
func FlushAllHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		if len(args) > 1 {
			return resp.Value{}, wrongArgs("FLUSHALL")
		}
		if len(args) == 1 && !isFlushMode(args[0]) {
			return resp.Value{}, errSyntax
		}
		db.Flush()
		return resp.OK(), nil
	}
}

func isFlushMode(s string) bool {
	switch s {
	case "ASYNC", "async", "SYNC", "sync":
		return true
	}
	return false
}

package cmd

import (
	"strings"
	"time"

	"typedkv/internal/resp"
	"typedkv/internal/store"
)

func PingHandler() Handler {
	return func(args []string) (resp.Value, error) {
		switch len(args) {
		case 0:
			return resp.Simple("PONG"), nil
		case 1:
			return resp.Bulk(args[0]), nil
		default:
			return resp.Value{}, wrongArgs("PING")
		}
	}
}

func EchoHandler() Handler {
	return func(args []string) (resp.Value, error) {
		return resp.Bulk(args[0]), nil
	}
}

// GetHandler handles GET key
func GetHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		value, ok, err := db.Get(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, ok) {
			return resp.NullBulk(), nil
		}
		return resp.Bulk(value), nil
	}
}

// SetHandler handles SET key value [EX seconds | PX milliseconds]
func SetHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		key, value := args[0], args[1]
		var expiration time.Time

		for i := 2; i < len(args); i++ {
			option := strings.ToUpper(args[i])
			if (option != "EX" && option != "PX") || i+1 >= len(args) || !expiration.IsZero() {
				return resp.Value{}, errSyntax
			}
			n, err := parseInt(args[i+1])
			if err != nil {
				return resp.Value{}, err
			}
			if n <= 0 {
				return resp.Value{}, errBadExpire
			}
			unit := time.Second
			if option == "PX" {
				unit = time.Millisecond
			}
			expiration = time.Now().Add(time.Duration(n) * unit)
			i++
		}

		db.Set(key, value, expiration)
		return resp.OK(), nil
	}
}

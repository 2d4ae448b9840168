package cmd

import (
	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// SAddHandler handles SADD key member [member ...]
func SAddHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		s, err := db.GetOrCreateSet(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Int(int64(s.SAdd(args[1:]...))), nil
	}
}

func SMembersHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		s, err := db.GetSet(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, s != nil) {
			return resp.BulkArray(nil), nil
		}
		return resp.BulkArray(s.SMembers()), nil
	}
}

func SCardHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		s, err := db.GetSet(args[0])
		if err != nil || s == nil {
			return resp.Int(0), err
		}
		return resp.Int(int64(s.SCard())), nil
	}
}

package cmd

import (
	"math"
	"strconv"
	"strings"

	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// ZAddHandler handles ZADD key score member [score member ...]
func ZAddHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		pairs := args[1:]
		if len(pairs)%2 != 0 {
			return resp.Value{}, errSyntax
		}

		entries := make([]store.ZEntry, 0, len(pairs)/2)
		for i := 0; i < len(pairs); i += 2 {
			score, err := strconv.ParseFloat(pairs[i], 64)
			if err != nil || math.IsNaN(score) {
				return resp.Value{}, errNotFloat
			}
			entries = append(entries, store.ZEntry{Member: pairs[i+1], Score: score})
		}

		z, err := db.GetOrCreateSortedSet(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		return resp.Int(int64(z.ZAdd(entries...))), nil
	}
}

// ZRangeHandler handles ZRANGE key start stop [WITHSCORES]
func ZRangeHandler(db store.DataStore, obs KeyspaceObserver) Handler {
	return func(args []string) (resp.Value, error) {
		withScores := false
		switch {
		case len(args) == 4 && strings.EqualFold(args[3], "WITHSCORES"):
			withScores = true
		case len(args) != 3:
			return resp.Value{}, errSyntax
		}

		start, err := parseInt(args[1])
		if err != nil {
			return resp.Value{}, err
		}
		stop, err := parseInt(args[2])
		if err != nil {
			return resp.Value{}, err
		}
		z, err := db.GetSortedSet(args[0])
		if err != nil {
			return resp.Value{}, err
		}
		if !observe(obs, z != nil) {
			return resp.BulkArray(nil), nil
		}
		return resp.BulkArray(z.ZRangeStrings(int(start), int(stop), withScores)), nil
	}
}

func ZCardHandler(db store.DataStore) Handler {
	return func(args []string) (resp.Value, error) {
		z, err := db.GetSortedSet(args[0])
		if err != nil || z == nil {
			return resp.Int(0), err
		}
		return resp.Int(int64(z.ZCard())), nil
	}
}

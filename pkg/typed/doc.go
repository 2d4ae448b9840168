// Package typed reads and writes typed values over a Redis-like store that
// only knows strings, hashes, lists, sets and sorted sets.
//
// Basic usage:
//
//	acc := typed.New(client)
//	err := acc.SetInt(ctx, "visits", 42, time.Hour)
//	n, err := acc.GetInt(ctx, "visits")
//
//	err = acc.Set(ctx, "tags", typed.List("a", "b"), 0)   // stored as a list
//	err = acc.Set(ctx, "user", typed.Hash(fields), 0)     // stored as a hash
//	v, err := acc.Get(ctx, "tags")                        // typed.Collection
//
// Every getter checks existence first (ErrKeyNotFound), then the native
// structure (ErrTypeMismatch), then converts (ErrInvalidFormat). Every setter
// deletes whatever the key held before writing, so a key never mixes
// structures. A write the store rejects returns ErrPersistence; when that
// happens after the delete the key is left absent.
//
// Collections carry their own key order. SetArray and Set store a collection
// as a list only when its keys are exactly "0", "1", ..., "n-1" in that order,
// and as a hash otherwise.
package typed

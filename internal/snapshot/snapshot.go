// Package snapshot saves and restores a store.DataStore as an RDB file
package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"typedkv/internal/logger"
	"typedkv/internal/store"

	"github.com/hdt3213/rdb/model"
	"github.com/hdt3213/rdb/parser"
)

// Result summarizes a save or load
type Result struct {
	Keys    int
	Expired int
	Took    time.Duration
}

// object is one key captured before encoding, so the header counts are exact
type object struct {
	key  string
	typ  store.DataType
	exp  time.Time
	str  string
	list []string
	hash map[string]string
	zset []*model.ZSetEntry
}

func capture(db store.DataStore) ([]object, uint64, error) {
	keys := db.Keys()
	objects := make([]object, 0, len(keys))
	var ttlCount uint64

	for _, key := range keys {
		o := object{key: key, typ: db.GetDataType(key)}
		var err error
		switch o.typ {
		case store.TypeString:
			var ok bool
			o.str, ok, err = db.Get(key)
			if !ok && err == nil {
				continue
			}
		case store.TypeList:
			var l *store.List
			if l, err = db.GetList(key); l != nil {
				o.list = l.LRange(0, -1)
			}
		case store.TypeSet:
			var s *store.Set
			if s, err = db.GetSet(key); s != nil {
				o.list = s.SMembers()
			}
		case store.TypeHash:
			var h *store.Hash
			if h, err = db.GetHash(key); h != nil {
				o.hash = h.HGetAll()
			}
		case store.TypeSortedSet:
			var z *store.SortedSet
			if z, err = db.GetSortedSet(key); z != nil {
				for _, e := range z.ZRange(0, -1) {
					o.zset = append(o.zset, &model.ZSetEntry{Member: e.Member, Score: e.Score})
				}
			}
		default:
			// expired or deleted since Keys
			continue
		}
		if errors.Is(err, store.ErrWrongType) {
			// replaced by another structure since GetDataType
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("capture %q: %w", key, err)
		}
		if exp, ok := db.Expiration(key); ok {
			o.exp = exp
			ttlCount++
		}
		objects = append(objects, o)
	}
	return objects, ttlCount, nil
}

// Write encodes every key of db to w
func Write(w io.Writer, db store.DataStore) (Result, error) {
	start := time.Now()
	objects, ttlCount, err := capture(db)
	if err != nil {
		return Result{}, err
	}

	rw, err := NewWriter(w)
	if err != nil {
		return Result{}, err
	}
	if err := rw.WriteHeader(uint64(len(objects)), ttlCount); err != nil {
		return Result{}, fmt.Errorf("write db header: %w", err)
	}

	for _, o := range objects {
		switch o.typ {
		case store.TypeString:
			err = rw.WriteString(o.key, o.str, o.exp)
		case store.TypeList:
			err = rw.WriteList(o.key, o.list, o.exp)
		case store.TypeSet:
			err = rw.WriteSet(o.key, o.list, o.exp)
		case store.TypeHash:
			err = rw.WriteHash(o.key, o.hash, o.exp)
		case store.TypeSortedSet:
			err = rw.WriteZSet(o.key, o.zset, o.exp)
		}
		if err != nil {
			return Result{}, fmt.Errorf("write %s %q: %w", o.typ, o.key, err)
		}
	}

	if err := rw.WriteEnd(); err != nil {
		return Result{}, fmt.Errorf("write rdb end: %w", err)
	}
	return Result{Keys: len(objects), Took: time.Since(start)}, nil
}

// Save writes db to path through a temporary file in the same directory and
// renames it into place, so readers never see a partial snapshot.
func Save(path string, db store.DataStore) (Result, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return Result{}, fmt.Errorf("create snapshot file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	res, err := Write(tmp, db)
	if err != nil {
		_ = tmp.Close()
		return Result{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Result{}, fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Result{}, fmt.Errorf("rename snapshot: %w", err)
	}

	logger.WithField("path", path).Infof("Saved %d keys in %v", res.Keys, res.Took)
	return res, nil
}

// Read decodes an RDB stream into db. Keys whose expiry already passed are
// skipped; other keys replace whatever db held under the same name.
func Read(r io.Reader, db store.DataStore) (Result, error) {
	now := time.Now()
	var (
		res     Result
		loadErr error
	)

	decoder := parser.NewDecoder(r)
	err := decoder.Parse(func(o parser.RedisObject) bool {
		var exp time.Time
		if e := o.GetExpiration(); e != nil {
			if !e.After(now) {
				res.Expired++
				return true
			}
			exp = *e
		}

		key := o.GetKey()
		db.Del(key)
		if loadErr = restore(db, o, exp); loadErr != nil {
			return false
		}
		res.Keys++
		return true
	})
	if loadErr != nil {
		return Result{}, loadErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("parse rdb: %w", err)
	}
	res.Took = time.Since(now)
	return res, nil
}

func restore(db store.DataStore, o parser.RedisObject, exp time.Time) error {
	key := o.GetKey()
	switch obj := o.(type) {
	case *parser.StringObject:
		db.Set(key, string(obj.Value), exp)
		return nil
	case *parser.ListObject:
		l, err := db.GetOrCreateList(key)
		if err != nil {
			return err
		}
		for _, v := range obj.Values {
			l.RPush(string(v))
		}
	case *parser.SetObject:
		s, err := db.GetOrCreateSet(key)
		if err != nil {
			return err
		}
		for _, m := range obj.Members {
			s.SAdd(string(m))
		}
	case *parser.HashObject:
		h, err := db.GetOrCreateHash(key)
		if err != nil {
			return err
		}
		for f, v := range obj.Hash {
			h.HSet(f, string(v))
		}
	case *parser.ZSetObject:
		z, err := db.GetOrCreateSortedSet(key)
		if err != nil {
			return err
		}
		entries := make([]store.ZEntry, len(obj.Entries))
		for i, e := range obj.Entries {
			entries[i] = store.ZEntry{Member: e.Member, Score: e.Score}
		}
		z.ZAdd(entries...)
	default:
		logger.Warnf("Skipping %s key %q: type not supported", o.GetType(), key)
		return nil
	}
	if !exp.IsZero() {
		db.ExpireAt(key, exp)
	}
	return nil
}

// Load reads the snapshot at path into db. A missing file loads nothing and
// reports an error matching os.ErrNotExist.
func Load(path string, db store.DataStore) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	res, err := Read(f, db)
	if err != nil {
		return Result{}, err
	}
	logger.WithField("path", path).Infof("Loaded %d keys (%d expired) in %v", res.Keys, res.Expired, res.Took)
	return res, nil
}

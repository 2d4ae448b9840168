package typedtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"typedkv/pkg/typed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunAccessor checks typed reads and writes end to end against a real client
func RunAccessor(t *testing.T, newClient Factory) {
	ctx := context.Background()
	newAccessor := func(t *testing.T) *typed.Accessor {
		return typed.New(newClient(t))
	}

	t.Run("MissingKeyFailsEveryGetter", func(t *testing.T) {
		a := newAccessor(t)
		getters := map[string]func() error{
			"GetString":    func() error { _, err := a.GetString(ctx, "nope"); return err },
			"GetInt":       func() error { _, err := a.GetInt(ctx, "nope"); return err },
			"GetFloat":     func() error { _, err := a.GetFloat(ctx, "nope"); return err },
			"GetBool":      func() error { _, err := a.GetBool(ctx, "nope"); return err },
			"GetHash":      func() error { _, err := a.GetHash(ctx, "nope"); return err },
			"GetList":      func() error { _, err := a.GetList(ctx, "nope"); return err },
			"GetSet":       func() error { _, err := a.GetSet(ctx, "nope"); return err },
			"GetSortedSet": func() error { _, err := a.GetSortedSet(ctx, "nope"); return err },
			"GetArray":     func() error { _, err := a.GetArray(ctx, "nope"); return err },
			"Get":          func() error { _, err := a.Get(ctx, "nope"); return err },
			"Type":         func() error { _, err := a.Type(ctx, "nope"); return err },
			"Delete":       func() error { return a.Delete(ctx, "nope") },
			"SetTTL":       func() error { return a.SetTTL(ctx, "nope", time.Minute) },
		}
		for name, get := range getters {
			err := get()
			var nf *typed.KeyNotFoundError
			require.ErrorAs(t, err, &nf, name)
			assert.Equal(t, "nope", nf.Key, name)
			assert.ErrorIs(t, err, typed.ErrKeyNotFound, name)
		}
	})

	t.Run("StringRoundTrip", func(t *testing.T) {
		a := newAccessor(t)
		for _, v := range []string{"", "plain", "with spaces\r\n", "ünïcødé", "0", "3.0"} {
			require.NoError(t, a.SetString(ctx, "k", v, 0))
			got, err := a.GetString(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, v, got)
		}
	})

	t.Run("IntRoundTrip", func(t *testing.T) {
		a := newAccessor(t)
		for _, n := range []int64{0, 3, -7, 1 << 62, -1 << 63} {
			require.NoError(t, a.SetInt(ctx, "n", n, 0))
			got, err := a.GetInt(ctx, "n")
			require.NoError(t, err)
			assert.Equal(t, n, got)
		}
	})

	t.Run("IntRejectsNonIntegers", func(t *testing.T) {
		a := newAccessor(t)
		for _, s := range []string{"3.5", "3.0", "abc", "", "07", "+3", "99999999999999999999"} {
			require.NoError(t, a.SetString(ctx, "n", s, 0))
			_, err := a.GetInt(ctx, "n")
			var inv *typed.InvalidFormatError
			require.ErrorAs(t, err, &inv, s)
			assert.Equal(t, s, inv.Value)
			assert.Equal(t, "int", inv.Target)
		}
	})

	t.Run("FloatAndBool", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetFloat(ctx, "f", 2.5, 0))
		f, err := a.GetFloat(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, 2.5, f)

		require.NoError(t, a.SetString(ctx, "f", "12", 0))
		f, err = a.GetFloat(ctx, "f")
		require.NoError(t, err)
		assert.Equal(t, 12.0, f)

		require.NoError(t, a.SetString(ctx, "f", "twelve", 0))
		_, err = a.GetFloat(ctx, "f")
		assert.ErrorIs(t, err, typed.ErrInvalidFormat)

		require.NoError(t, a.SetBool(ctx, "b", true, 0))
		s, err := a.GetString(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "1", s)
		b, err := a.GetBool(ctx, "b")
		require.NoError(t, err)
		assert.True(t, b)

		require.NoError(t, a.SetBool(ctx, "b", false, 0))
		b, err = a.GetBool(ctx, "b")
		require.NoError(t, err)
		assert.False(t, b)
	})

	t.Run("ArrayShapeInference", func(t *testing.T) {
		a := newAccessor(t)

		require.NoError(t, a.SetArray(ctx, "seq", typed.List("a", "b", "c"), 0))
		typ, err := a.Type(ctx, "seq")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeList, typ)
		got, err := a.GetArray(ctx, "seq")
		require.NoError(t, err)
		assert.True(t, got.IsList())
		assert.Equal(t, []string{"a", "b", "c"}, got.Values())

		require.NoError(t, a.SetArray(ctx, "map", typed.NewCollection(
			typed.Entry{Key: "x", Value: "a"},
			typed.Entry{Key: "y", Value: "b"},
		), 0))
		typ, err = a.Type(ctx, "map")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeHash, typ)
		got, err = a.GetArray(ctx, "map")
		require.NoError(t, err)
		assert.False(t, got.IsList())
		assert.Equal(t, map[string]string{"x": "a", "y": "b"}, got.Map())

		require.NoError(t, a.SetArray(ctx, "swapped", typed.NewCollection(
			typed.Entry{Key: "1", Value: "a"},
			typed.Entry{Key: "0", Value: "b"},
		), 0))
		typ, err = a.Type(ctx, "swapped")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeHash, typ)
		h, err := a.GetHash(ctx, "swapped")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"1": "a", "0": "b"}, h)
	})

	t.Run("WriteReplacesOtherStructure", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetString(ctx, "k", "x", 0))
		require.NoError(t, a.SetList(ctx, "k", typed.List("a"), 0))

		typ, err := a.Type(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, typed.TypeList, typ)

		_, err = a.GetString(ctx, "k")
		var tm *typed.TypeMismatchError
		require.ErrorAs(t, err, &tm)
		assert.Equal(t, typed.TypeList, tm.Actual)
		assert.Equal(t, []typed.NativeType{typed.TypeString}, tm.Expected)

		require.NoError(t, a.SetHash(ctx, "k", typed.Hash(map[string]string{"f": "v"}), 0))
		_, err = a.GetList(ctx, "k")
		assert.ErrorIs(t, err, typed.ErrTypeMismatch)
		h, err := a.GetHash(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"f": "v"}, h)
	})

	t.Run("SetListReplacesWholeList", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetList(ctx, "l", typed.List("a", "b", "c"), 0))
		require.NoError(t, a.SetList(ctx, "l", typed.Hash(map[string]string{"z": "2", "y": "1"}), 0))
		got, err := a.GetList(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, got)
	})

	t.Run("SetCollapsesDuplicates", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetSet(ctx, "s", typed.List("b", "a", "b"), 0))
		got, err := a.GetSet(ctx, "s")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, got)
	})

	t.Run("SortedSetOrdersByScore", func(t *testing.T) {
		a := newAccessor(t)
		c := typed.NewCollection(
			typed.Entry{Key: "30", Value: "thirty"},
			typed.Entry{Key: "-5", Value: "minus"},
			typed.Entry{Key: "10", Value: "ten"},
			typed.Entry{Key: "label", Value: "zero"},
		)
		require.NoError(t, a.SetSortedSet(ctx, "z", c, 0))
		got, err := a.GetSortedSet(ctx, "z")
		require.NoError(t, err)
		assert.Equal(t, []string{"minus", "zero", "ten", "thirty"}, got)

		v, err := a.Get(ctx, "z")
		require.NoError(t, err)
		assert.Equal(t, typed.List("minus", "zero", "ten", "thirty"), v)
	})

	t.Run("GetDispatch", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.Set(ctx, "s", typed.String("hello"), 0))
		require.NoError(t, a.Set(ctx, "i", typed.Int(42), 0))
		require.NoError(t, a.Set(ctx, "f", typed.Float(-0.25), 0))
		require.NoError(t, a.Set(ctx, "b", typed.Bool(true), 0))
		require.NoError(t, a.Set(ctx, "l", typed.List("x", "y"), 0))
		require.NoError(t, a.Set(ctx, "h", typed.Hash(map[string]string{"k": "v"}), 0))

		for key, want := range map[string]typed.Value{
			"s": typed.String("hello"),
			"i": typed.String("42"),
			"f": typed.String("-0.25"),
			"b": typed.String("1"),
			"l": typed.List("x", "y"),
			"h": typed.Hash(map[string]string{"k": "v"}),
		} {
			got, err := a.Get(ctx, key)
			require.NoError(t, err, key)
			assert.Equal(t, want, got, key)
		}

		_, err := a.GetArray(ctx, "s")
		var tm *typed.TypeMismatchError
		require.ErrorAs(t, err, &tm)
		assert.ElementsMatch(t, []typed.NativeType{typed.TypeList, typed.TypeHash, typed.TypeSet, typed.TypeSortedSet}, tm.Expected)
	})

	t.Run("EmptyCollectionLeavesKeyAbsent", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetString(ctx, "k", "x", 0))
		require.NoError(t, a.SetArray(ctx, "k", typed.List(), time.Minute))
		ok, err := a.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("DeleteAndExists", func(t *testing.T) {
		a := newAccessor(t)
		require.NoError(t, a.SetString(ctx, "k", "v", 0))
		ok, err := a.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, a.Delete(ctx, "k"))
		ok, err = a.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, errors.Is(a.Delete(ctx, "k"), typed.ErrKeyNotFound))
	})

	t.Run("TTL", func(t *testing.T) {
		a := newAccessor(t)
		if _, ok := a.Client().(typed.TTLReader); !ok {
			t.Skip("client cannot report TTL")
		}

		require.NoError(t, a.SetString(ctx, "forever", "v", 0))
		ttl, err := a.TTL(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, typed.NoExpiry, ttl)

		require.NoError(t, a.SetTTL(ctx, "forever", 0))
		ttl, err = a.TTL(ctx, "forever")
		require.NoError(t, err)
		assert.Equal(t, typed.NoExpiry, ttl)

		require.NoError(t, a.SetHash(ctx, "h", typed.Hash(map[string]string{"a": "1"}), time.Hour))
		ttl, err = a.TTL(ctx, "h")
		require.NoError(t, err)
		assert.InDelta(t, float64(time.Hour), float64(ttl), float64(5*time.Second))

		require.NoError(t, a.SetTTL(ctx, "forever", 40*time.Millisecond))
		assert.Eventually(t, func() bool {
			ok, err := a.Exists(ctx, "forever")
			return err == nil && !ok
		}, 2*time.Second, 10*time.Millisecond)
		_, err = a.GetString(ctx, "forever")
		assert.ErrorIs(t, err, typed.ErrKeyNotFound)
	})

	t.Run("RewriteClearsTTL", func(t *testing.T) {
		a := newAccessor(t)
		if _, ok := a.Client().(typed.TTLReader); !ok {
			t.Skip("client cannot report TTL")
		}
		require.NoError(t, a.SetString(ctx, "k", "v", time.Hour))
		require.NoError(t, a.SetString(ctx, "k", "w", 0))
		ttl, err := a.TTL(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, typed.NoExpiry, ttl)
	})
}

package cmd

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"typedkv/internal/config"
	"typedkv/internal/server"
	"typedkv/internal/store"
	redisbackend "typedkv/pkg/backend/redis"
	"typedkv/pkg/typed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	db := store.NewDB()
	srv := server.New(server.Config{Addr: "127.0.0.1:0"}, db, nil)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		_ = srv.Close()
		db.Close()
	})
	return srv.Addr()
}

// run executes the command tree with args and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "absent.env")))
	err := root.Execute()
	return out.String(), err
}

func TestClientCommands(t *testing.T) {
	url := "redis://" + startServer(t)
	do := func(args ...string) string {
		t.Helper()
		out, err := run(t, append(args, "--redis-url", url)...)
		require.NoError(t, err, "%v", args)
		return out
	}

	assert.Equal(t, "OK\n", do("set", "greeting", "hello"))
	assert.Equal(t, "hello\n", do("get", "greeting"))
	assert.Equal(t, "string\n", do("type", "greeting"))

	do("set", "visits", "42", "--as", "int")
	assert.Equal(t, "42\n", do("get", "visits", "--as", "int"))

	do("set", "ratio", "0.5", "--as", "float")
	assert.Equal(t, "0.5\n", do("get", "ratio", "--as", "float"))

	do("set", "flag", "true", "--as", "bool")
	assert.Equal(t, "true\n", do("get", "flag", "--as", "bool"))

	do("set", "tags", "go", "redis")
	assert.Equal(t, "list\n", do("type", "tags"))
	assert.Equal(t, "go\nredis\n", do("get", "tags"))

	do("set", "user", "name=ada", "lang=go")
	assert.Equal(t, "hash\n", do("type", "user"))
	assert.Equal(t, "lang\tgo\nname\tada\n", do("get", "user", "--as", "hash"))

	do("set", "rank", "20=carol", "10=bob", "--as", "zset")
	assert.Equal(t, "bob\ncarol\n", do("get", "rank", "--as", "zset"))

	do("set", "letters", "b", "a", "b", "--as", "set")
	assert.Equal(t, "a\nb\n", do("get", "letters", "--as", "array"))

	assert.Equal(t, "true\n", do("exists", "greeting"))
	assert.Equal(t, "-1\n", do("ttl", "greeting"))
	assert.Equal(t, "OK\n", do("expire", "greeting", "1h"))
	ms := strings.TrimSpace(do("ttl", "greeting"))
	assert.True(t, strings.HasPrefix(ms, "3599") || ms == "3600000", ms)

	assert.Equal(t, "OK\n", do("del", "greeting"))
	assert.Equal(t, "false\n", do("exists", "greeting"))
}

func TestClientCommandErrors(t *testing.T) {
	url := "redis://" + startServer(t)

	_, err := run(t, "get", "missing", "--redis-url", url)
	assert.ErrorIs(t, err, typed.ErrKeyNotFound)

	_, err = run(t, "set", "k", "v", "--redis-url", url)
	require.NoError(t, err)
	_, err = run(t, "get", "k", "--as", "list", "--redis-url", url)
	assert.ErrorIs(t, err, typed.ErrTypeMismatch)

	_, err = run(t, "get", "k", "--as", "int", "--redis-url", url)
	assert.ErrorIs(t, err, typed.ErrInvalidFormat)

	_, err = run(t, "get", "k", "--as", "blob", "--redis-url", url)
	assert.ErrorContains(t, err, "unknown --as")

	_, err = run(t, "expire", "k", "soon", "--redis-url", url)
	assert.ErrorContains(t, err, "invalid ttl")

	_, err = run(t, "get", "k", "--redis-url", "127.0.0.1:1", "--timeout", "500ms")
	assert.Error(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		words   []string
		want    typed.Value
		wantErr bool
	}{
		{"auto single", asAuto, []string{"hi"}, typed.String("hi"), false},
		{"auto many", asAuto, []string{"a", "b"}, typed.List("a", "b"), false},
		{"auto pairs", asAuto, []string{"x=1"}, typed.NewCollection(typed.Entry{Key: "x", Value: "1"}), false},
		{"auto mixed", asAuto, []string{"x=1", "y"}, typed.List("x=1", "y"), false},
		{"string", asString, []string{"a=b"}, typed.String("a=b"), false},
		{"string needs one", asString, []string{"a", "b"}, nil, true},
		{"int", asInt, []string{"-7"}, typed.Int(-7), false},
		{"int invalid", asInt, []string{"3.5"}, nil, true},
		{"float", asFloat, []string{"1e3"}, typed.Float(1000), false},
		{"bool", asBool, []string{"false"}, typed.Bool(false), false},
		{"bool invalid", asBool, []string{"maybe"}, nil, true},
		{"list", asList, []string{"b", "a"}, typed.List("b", "a"), false},
		{"hash", asHash, []string{"k=v=w"}, typed.NewCollection(typed.Entry{Key: "k", Value: "v=w"}), false},
		{"hash missing separator", asHash, []string{"k"}, nil, true},
		{"zset", asZSet, []string{"5=m"}, typed.NewCollection(typed.Entry{Key: "5", Value: "m"}), false},
		{"zset non integer score", asZSet, []string{"1.5=m"}, nil, true},
		{"array of digits keys", asArray, []string{"0=a", "1=b"}, typed.NewCollection(typed.Entry{Key: "0", Value: "a"}, typed.Entry{Key: "1", Value: "b"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.kind, tt.words)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	tty := printer{w: &buf}

	tty.str("a b")
	tty.integer(3)
	tty.list([]string{"x", "y"})
	tty.list(nil)
	tty.hash(map[string]string{"b": "2", "a": "1"})
	tty.ttl(typed.NoExpiry)
	tty.ttl(1500 * time.Millisecond)
	assert.Equal(t, `"a b"
(integer) 3
1) "x"
2) "y"
(empty array)
1) "a" => "1"
2) "b" => "2"
(no expiry)
1.5s
`, buf.String())

	buf.Reset()
	raw := printer{w: &buf, raw: true}
	raw.list(nil)
	raw.value(typed.List("p", "q"))
	raw.value(typed.String("s"))
	assert.Equal(t, "p\nq\ns\n", buf.String())
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: ")
	assert.Contains(t, out, "GOOS: ")
}

// startServe runs runServe in the background and waits until it listens
func startServe(t *testing.T, cfg *config.Config) (listening, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan listening, 1)
	done := make(chan error, 1)
	go func() { done <- runServe(ctx, cfg, func(l listening) { ready <- l }) }()
	select {
	case l := <-ready:
		return l, cancel, done
	case err := <-done:
		cancel()
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	return listening{}, cancel, done
}

func TestRunServe(t *testing.T) {
	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.MetricsAddr = "127.0.0.1:0"
	cfg.Snapshot.Path = filepath.Join(t.TempDir(), "dump.rdb")
	cfg.Snapshot.Interval = 0

	ctx := context.Background()
	l, stop, done := startServe(t, cfg)

	client, err := redisbackend.New(ctx, l.Addr)
	require.NoError(t, err)
	acc := typed.New(client)
	require.NoError(t, acc.SetList(ctx, "tags", typed.List("a", "b"), time.Hour))
	require.NoError(t, acc.SetInt(ctx, "n", 7, 0))
	_ = client.Close()

	resp, err := http.Get("http://" + l.MetricsAddr + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "typedkv_keys 2")
	assert.Contains(t, string(body), `typedkv_commands_processed_total{command="RPUSH"} 1`)

	resp, err = http.Get("http://" + l.MetricsAddr + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stop()
	require.NoError(t, <-done)
	_, err = os.Stat(cfg.Snapshot.Path)
	require.NoError(t, err)

	// a second run restores the snapshot
	l, stop, done = startServe(t, cfg)
	defer func() {
		stop()
		<-done
	}()

	client, err = redisbackend.New(ctx, l.Addr)
	require.NoError(t, err)
	defer client.Close()
	acc = typed.New(client)

	tags, err := acc.GetList(ctx, "tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)
	n, err := acc.GetInt(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	ttl, err := acc.TTL(ctx, "tags")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestRunServeAOF(t *testing.T) {
	cfg, err := config.NewLoader().Load()
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.AOF.Path = filepath.Join(t.TempDir(), "appendonly.aof")
	cfg.AOF.Fsync = "always"

	ctx := context.Background()
	l, stop, done := startServe(t, cfg)

	client, err := redisbackend.New(ctx, l.Addr)
	require.NoError(t, err)
	acc := typed.New(client)
	require.NoError(t, acc.SetHash(ctx, "user", typed.Hash(map[string]string{"name": "ada"}), time.Hour))
	require.NoError(t, acc.SetString(ctx, "s", "one", 0))
	require.NoError(t, acc.SetString(ctx, "s", "two", 0))
	require.NoError(t, acc.SetBool(ctx, "gone", true, 0))
	require.NoError(t, acc.Delete(ctx, "gone"))
	_ = client.Close()

	stop()
	require.NoError(t, <-done)

	st, err := os.Stat(cfg.AOF.Path)
	require.NoError(t, err)
	valid := st.Size()

	// a crash in the middle of an append leaves a partial command behind
	f, err := os.OpenFile(cfg.AOF.Path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("*3\r\n$3\r\nSET\r\n$1")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	l, stop, done = startServe(t, cfg)
	defer func() {
		stop()
		<-done
	}()

	client, err = redisbackend.New(ctx, l.Addr)
	require.NoError(t, err)
	defer client.Close()
	acc = typed.New(client)

	user, err := acc.GetHash(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"name": "ada"}, user)
	ttl, err := acc.TTL(ctx, "user")
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
	s, err := acc.GetString(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, "two", s)
	exists, err := acc.Exists(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, exists)

	st, err = os.Stat(cfg.AOF.Path)
	require.NoError(t, err)
	assert.Equal(t, valid, st.Size(), "partial command was not cut off")
}

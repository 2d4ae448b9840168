package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// Handler represents a command handler function. args excludes the command name.
type Handler func(args []string) (resp.Value, error)

// Command represents a registered command
type Command struct {
	Name     string
	Arity    int // counts the command name; >0 is exact, <0 means at least -Arity words
	Handler  Handler
	ReadOnly bool
}

// KeyspaceObserver is notified of read lookups
type KeyspaceObserver interface {
	KeyspaceHit()
	KeyspaceMiss()
}

type noopObserver struct{}

func (noopObserver) KeyspaceHit()  {}
func (noopObserver) KeyspaceMiss() {}

// CommandError is an error whose message is sent to the client verbatim
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string {
	return e.Message
}

var (
	errSyntax    = &CommandError{"ERR syntax error"}
	errNotInt    = &CommandError{"ERR value is not an integer or out of range"}
	errNotFloat  = &CommandError{"ERR value is not a valid float"}
	errBadExpire = &CommandError{"ERR invalid expire time in 'set' command"}
)

func wrongArgs(name string) error {
	return &CommandError{fmt.Sprintf("ERR wrong number of arguments for '%s' command", strings.ToLower(name))}
}

// ErrorReply converts a handler error into the reply sent to the client
func ErrorReply(err error) resp.Value {
	var ce *CommandError
	switch {
	case errors.As(err, &ce):
		return resp.Err(ce.Message)
	case errors.Is(err, store.ErrWrongType):
		return resp.Err(store.ErrWrongType.Error())
	default:
		return resp.Err("ERR " + err.Error())
	}
}

// RegisterCommands registers every supported command against db.
// obs may be nil.
func RegisterCommands(r *Registry, db store.DataStore, obs KeyspaceObserver) {
	if obs == nil {
		obs = noopObserver{}
	}

	r.Register(&Command{Name: "PING", Arity: -1, Handler: PingHandler(), ReadOnly: true})
	r.Register(&Command{Name: "ECHO", Arity: 2, Handler: EchoHandler(), ReadOnly: true})

	// Keyspace
	r.Register(&Command{Name: "EXISTS", Arity: -2, Handler: ExistsHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "TYPE", Arity: 2, Handler: TypeHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "DEL", Arity: -2, Handler: DelHandler(db)})
	r.Register(&Command{Name: "EXPIRE", Arity: 3, Handler: ExpireHandler(db, 1000)})
	r.Register(&Command{Name: "PEXPIRE", Arity: 3, Handler: ExpireHandler(db, 1)})
	r.Register(&Command{Name: "PEXPIREAT", Arity: 3, Handler: PExpireAtHandler(db)})
	r.Register(&Command{Name: "TTL", Arity: 2, Handler: TTLHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "PTTL", Arity: 2, Handler: PTTLHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "DBSIZE", Arity: 1, Handler: DBSizeHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "FLUSHALL", Arity: -1, Handler: FlushAllHandler(db)})

	// Strings
	r.Register(&Command{Name: "GET", Arity: 2, Handler: GetHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "SET", Arity: -3, Handler: SetHandler(db)})

	// Hashes
	r.Register(&Command{Name: "HSET", Arity: -4, Handler: HSetHandler(db)})
	r.Register(&Command{Name: "HMSET", Arity: -4, Handler: HMSetHandler(db)})
	r.Register(&Command{Name: "HGET", Arity: 3, Handler: HGetHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "HGETALL", Arity: 2, Handler: HGetAllHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "HLEN", Arity: 2, Handler: HLenHandler(db), ReadOnly: true})

	// Lists
	r.Register(&Command{Name: "LPUSH", Arity: -3, Handler: LPushHandler(db)})
	r.Register(&Command{Name: "RPUSH", Arity: -3, Handler: RPushHandler(db)})
	r.Register(&Command{Name: "LLEN", Arity: 2, Handler: LLenHandler(db), ReadOnly: true})
	r.Register(&Command{Name: "LINDEX", Arity: 3, Handler: LIndexHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "LRANGE", Arity: 4, Handler: LRangeHandler(db, obs), ReadOnly: true})

	// Sets
	r.Register(&Command{Name: "SADD", Arity: -3, Handler: SAddHandler(db)})
	r.Register(&Command{Name: "SMEMBERS", Arity: 2, Handler: SMembersHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "SCARD", Arity: 2, Handler: SCardHandler(db), ReadOnly: true})

	// Sorted sets
	r.Register(&Command{Name: "ZADD", Arity: -4, Handler: ZAddHandler(db)})
	r.Register(&Command{Name: "ZRANGE", Arity: -4, Handler: ZRangeHandler(db, obs), ReadOnly: true})
	r.Register(&Command{Name: "ZCARD", Arity: 2, Handler: ZCardHandler(db), ReadOnly: true})
}

func parseInt(s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errNotInt
	}
	return n, nil
}

// observe reports a lookup result to obs and passes found through
func observe(obs KeyspaceObserver, found bool) bool {
	if found {
		obs.KeyspaceHit()
	} else {
		obs.KeyspaceMiss()
	}
	return found
}

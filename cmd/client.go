package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"typedkv/internal/logger"
	redisbackend "typedkv/pkg/backend/redis"
	"typedkv/pkg/typed"

	"github.com/spf13/cobra"
)

// value kinds accepted by --as
const (
	asAuto   = "auto"
	asString = "string"
	asInt    = "int"
	asFloat  = "float"
	asBool   = "bool"
	asHash   = "hash"
	asList   = "list"
	asSet    = "set"
	asZSet   = "zset"
	asArray  = "array"
)

var valueKinds = []string{asAuto, asString, asInt, asFloat, asBool, asHash, asList, asSet, asZSet, asArray}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("redis-url", "redis://127.0.0.1:6380/0", "Store to connect to (redis:// URL or host:port)")
	cmd.Flags().Duration("timeout", 5*time.Second, "Timeout for the whole command")
	cmd.Flags().Bool("raw", false, "Use raw formatting for replies")
}

// clientCmds are the commands that talk to a store
func (a *app) clientCmds() []*cobra.Command {
	return []*cobra.Command{
		newGetCmd(a),
		newSetCmd(a),
		newDelCmd(a),
		newTypeCmd(a),
		newExistsCmd(a),
		newExpireCmd(a),
		newTTLCmd(a),
	}
}

// withAccessor runs fn under the command timeout, connecting to the
// configured store unless the app already holds an accessor
func (a *app) withAccessor(cmd *cobra.Command, fn func(ctx context.Context, acc *typed.Accessor) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Client.Timeout)
	defer cancel()

	if a.acc != nil {
		return fn(ctx, a.acc)
	}

	client, err := redisbackend.New(ctx, a.cfg.Client.RedisURL)
	if err != nil {
		return err
	}
	defer client.Close()

	return fn(ctx, typed.New(client, typed.WithLogger(logger.Get())))
}

func validKind(kind string) error {
	for _, k := range valueKinds {
		if k == kind {
			return nil
		}
	}
	return fmt.Errorf("unknown --as %q (one of %s)", kind, strings.Join(valueKinds, ", "))
}

func newGetCmd(a *app) *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Read a key as a typed value",
		Example: `  typedkv get visits --as int
  typedkv get user --as hash
  typedkv get tags`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := getStringFlag(cmd, "as", asAuto)
			if err := validKind(kind); err != nil {
				return err
			}
			p := newPrinter(cmd)
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				return readValue(ctx, acc, args[0], kind, p)
			})
		},
	}
	getCmd.Flags().String("as", asAuto, "Read as "+strings.Join(valueKinds, "|"))
	addClientFlags(getCmd)
	return getCmd
}

func readValue(ctx context.Context, acc *typed.Accessor, key, kind string, p printer) error {
	switch kind {
	case asString:
		s, err := acc.GetString(ctx, key)
		if err != nil {
			return err
		}
		p.str(s)
	case asInt:
		n, err := acc.GetInt(ctx, key)
		if err != nil {
			return err
		}
		p.integer(n)
	case asFloat:
		f, err := acc.GetFloat(ctx, key)
		if err != nil {
			return err
		}
		p.float(f)
	case asBool:
		b, err := acc.GetBool(ctx, key)
		if err != nil {
			return err
		}
		p.boolean(b)
	case asHash:
		m, err := acc.GetHash(ctx, key)
		if err != nil {
			return err
		}
		p.hash(m)
	case asList:
		l, err := acc.GetList(ctx, key)
		if err != nil {
			return err
		}
		p.list(l)
	case asSet:
		s, err := acc.GetSet(ctx, key)
		if err != nil {
			return err
		}
		p.list(s)
	case asZSet:
		z, err := acc.GetSortedSet(ctx, key)
		if err != nil {
			return err
		}
		p.list(z)
	case asArray:
		c, err := acc.GetArray(ctx, key)
		if err != nil {
			return err
		}
		p.value(c)
	default:
		v, err := acc.Get(ctx, key)
		if err != nil {
			return err
		}
		p.value(v)
	}
	return nil
}

func newSetCmd(a *app) *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set <key> <value>...",
		Short: "Write a typed value, replacing whatever the key held",
		Long: `Write a typed value, replacing whatever the key held.

With --as auto (the default) a single value is stored as a string and several
values as an array. Arrays, hashes and sorted sets take field=value pairs;
for sorted sets the field is the integer score.`,
		Example: `  typedkv set greeting hello
  typedkv set visits 42 --as int --ttl 1h
  typedkv set tags go redis --as list
  typedkv set user name=ada lang=go
  typedkv set rank 10=bob 20=carol --as zset`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := getStringFlag(cmd, "as", asAuto)
			if err := validKind(kind); err != nil {
				return err
			}
			v, err := parseValue(kind, args[1:])
			if err != nil {
				return err
			}
			ttl := getDurationFlag(cmd, "ttl", 0)
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				if err := writeValue(ctx, acc, args[0], kind, v, ttl); err != nil {
					return err
				}
				newPrinter(cmd).ok()
				return nil
			})
		},
	}
	setCmd.Flags().String("as", asAuto, "Write as "+strings.Join(valueKinds, "|"))
	setCmd.Flags().Duration("ttl", 0, "Expire the key after this long (0 keeps it)")
	addClientFlags(setCmd)
	return setCmd
}

// parseValue turns command line words into a logical value of the given kind
func parseValue(kind string, words []string) (typed.Value, error) {
	single := func() (string, error) {
		if len(words) != 1 {
			return "", fmt.Errorf("--as %s takes exactly one value, got %d", kind, len(words))
		}
		return words[0], nil
	}

	switch kind {
	case asString:
		s, err := single()
		return typed.String(s), err
	case asInt:
		s, err := single()
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int %q", s)
		}
		return typed.Int(n), nil
	case asFloat:
		s, err := single()
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float %q", s)
		}
		return typed.Float(f), nil
	case asBool:
		s, err := single()
		if err != nil {
			return nil, err
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q", s)
		}
		return typed.Bool(b), nil
	case asList, asSet:
		return typed.List(words...), nil
	case asHash:
		return pairs(words)
	case asZSet:
		c, err := pairs(words)
		if err != nil {
			return nil, err
		}
		for _, k := range c.Keys() {
			if _, err := strconv.ParseInt(k, 10, 64); err != nil {
				return nil, fmt.Errorf("invalid score %q, want score=member with an integer score", k)
			}
		}
		return c, nil
	case asArray:
		if allPairs(words) {
			return pairs(words)
		}
		return typed.List(words...), nil
	default:
		if len(words) == 1 && !strings.Contains(words[0], "=") {
			return typed.String(words[0]), nil
		}
		return parseValue(asArray, words)
	}
}

func allPairs(words []string) bool {
	for _, w := range words {
		if !strings.Contains(w, "=") {
			return false
		}
	}
	return true
}

func pairs(words []string) (typed.Collection, error) {
	entries := make([]typed.Entry, 0, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok {
			return typed.Collection{}, fmt.Errorf("expected field=value, got %q", w)
		}
		entries = append(entries, typed.Entry{Key: k, Value: v})
	}
	return typed.NewCollection(entries...), nil
}

func writeValue(ctx context.Context, acc *typed.Accessor, key, kind string, v typed.Value, ttl time.Duration) error {
	c, isCollection := v.(typed.Collection)
	switch {
	case kind == asHash && isCollection:
		return acc.SetHash(ctx, key, c, ttl)
	case kind == asList && isCollection:
		return acc.SetList(ctx, key, c, ttl)
	case kind == asSet && isCollection:
		return acc.SetSet(ctx, key, c, ttl)
	case kind == asZSet && isCollection:
		return acc.SetSortedSet(ctx, key, c, ttl)
	default:
		return acc.Set(ctx, key, v, ttl)
	}
}

func newDelCmd(a *app) *cobra.Command {
	delCmd := &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				if err := acc.Delete(ctx, args[0]); err != nil {
					return err
				}
				newPrinter(cmd).ok()
				return nil
			})
		},
	}
	addClientFlags(delCmd)
	return delCmd
}

func newTypeCmd(a *app) *cobra.Command {
	typeCmd := &cobra.Command{
		Use:   "type <key>",
		Short: "Show the native structure a key holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				t, err := acc.Type(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), t)
				return nil
			})
		},
	}
	addClientFlags(typeCmd)
	return typeCmd
}

func newExistsCmd(a *app) *cobra.Command {
	existsCmd := &cobra.Command{
		Use:   "exists <key>",
		Short: "Report whether a key exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				ok, err := acc.Exists(ctx, args[0])
				if err != nil {
					return err
				}
				newPrinter(cmd).boolean(ok)
				return nil
			})
		},
	}
	addClientFlags(existsCmd)
	return existsCmd
}

func newExpireCmd(a *app) *cobra.Command {
	expireCmd := &cobra.Command{
		Use:     "expire <key> <ttl>",
		Short:   "Expire a key after a duration",
		Example: "  typedkv expire session 30m",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ttl, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("invalid ttl %q: %w", args[1], err)
			}
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				if err := acc.SetTTL(ctx, args[0], ttl); err != nil {
					return err
				}
				newPrinter(cmd).ok()
				return nil
			})
		},
	}
	addClientFlags(expireCmd)
	return expireCmd
}

func newTTLCmd(a *app) *cobra.Command {
	ttlCmd := &cobra.Command{
		Use:   "ttl <key>",
		Short: "Show the remaining time to live of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAccessor(cmd, func(ctx context.Context, acc *typed.Accessor) error {
				ttl, err := acc.TTL(ctx, args[0])
				if err != nil {
					return err
				}
				newPrinter(cmd).ttl(ttl)
				return nil
			})
		},
	}
	addClientFlags(ttlCmd)
	return ttlCmd
}

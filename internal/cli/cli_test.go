package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	history := NewHistory(5)
	assert.Equal(t, 0, history.Len())
	assert.Equal(t, "", history.Previous())
	assert.Equal(t, "", history.Next())

	history.Add("get a")
	history.Add("set a 1")
	history.Add("")
	history.Add("set a 1")
	assert.Equal(t, 2, history.Len())

	assert.Equal(t, "set a 1", history.Previous())
	assert.Equal(t, "get a", history.Previous())
	assert.Equal(t, "", history.Previous())

	assert.Equal(t, "set a 1", history.Next())
	assert.Equal(t, "", history.Next())

	history.Previous()
	history.ResetPosition()
	assert.Equal(t, "set a 1", history.Previous())
}

func TestHistoryMaxSize(t *testing.T) {
	history := NewHistory(3)
	for i := 1; i <= 5; i++ {
		history.Add(fmt.Sprintf("get k%d", i))
	}
	assert.Equal(t, []string{"get k3", "get k4", "get k5"}, history.Entries())

	entries := history.Entries()
	entries[0] = "changed"
	assert.Equal(t, "get k3", history.Entries()[0])

	assert.Equal(t, 100, NewHistory(0).maxSize)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{"get key", []string{"get", "key"}, false},
		{"  set   key\tvalue  ", []string{"set", "key", "value"}, false},
		{`set greeting "hello world"`, []string{"set", "greeting", "hello world"}, false},
		{`set k 'a "b"'`, []string{"set", "k", `a "b"`}, false},
		{`set k "say \"hi\""`, []string{"set", "k", `say "hi"`}, false},
		{`set k name="ada lovelace"`, []string{"set", "k", "name=ada lovelace"}, false},
		{`set k ""`, []string{"set", "k", ""}, false},
		{"", nil, false},
		{`set k "open`, nil, true},
		{`set k 'open`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := Split(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recorder struct {
	calls [][]string
}

func (r *recorder) exec(_ context.Context, out io.Writer, args []string) error {
	r.calls = append(r.calls, args)
	if args[0] == "fail" {
		return errors.New("boom")
	}
	fmt.Fprintln(out, strings.Join(args, "|"))
	return nil
}

func TestShellRunsLines(t *testing.T) {
	rec := &recorder{}
	shell := &Shell{Prompt: "typedkv> ", Help: "usage\n", Exec: rec.exec}

	in := strings.NewReader("get a\n\nset b \"x y\"\nhelp\nfail now\nset c 'open\nhistory\nquit\nget never\n")
	var out bytes.Buffer
	require.NoError(t, shell.Run(context.Background(), in, &out))

	assert.Equal(t, [][]string{{"get", "a"}, {"set", "b", "x y"}, {"fail", "now"}}, rec.calls)
	assert.Equal(t, `get|a
set|b|x y
usage
(error) boom
(error) unbalanced quotes
   1  get a
   2  set b "x y"
   3  fail now
   4  set c 'open
`, out.String())
}

func TestShellStopsAtEOFWithoutNewline(t *testing.T) {
	rec := &recorder{}
	shell := &Shell{Exec: rec.exec}

	var out bytes.Buffer
	require.NoError(t, shell.Run(context.Background(), strings.NewReader("get a"), &out))
	assert.Equal(t, [][]string{{"get", "a"}}, rec.calls)
	assert.Equal(t, "get|a\n", out.String())
}

func TestShellPromptsInLineMode(t *testing.T) {
	rec := &recorder{}
	shell := &Shell{Prompt: "> ", Exec: rec.exec, History: NewHistory(10)}

	var out bytes.Buffer
	require.NoError(t, shell.runLines(context.Background(), strings.NewReader("get a\n"), &out, true))
	assert.Equal(t, "> get|a\n> \n", out.String())
}

func TestShellStopsWhenCanceled(t *testing.T) {
	rec := &recorder{}
	shell := &Shell{Exec: rec.exec}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := shell.Run(ctx, strings.NewReader("get a\n"), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls)
}

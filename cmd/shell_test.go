package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellFromFile(t *testing.T) {
	url := "redis://" + startServer(t)

	script := filepath.Join(t.TempDir(), "commands.txt")
	require.NoError(t, os.WriteFile(script, []byte(strings.Join([]string{
		`set greeting "hello world"`,
		`get greeting`,
		`set user name=ada "lang=go lang"`,
		`get user --as hash`,
		`get missing`,
		`frobnicate`,
		`type user`,
		`quit`,
		`del greeting`,
	}, "\n")), 0o644))

	out, err := run(t, "shell", "--file", script, "--redis-url", url)
	require.NoError(t, err)
	assert.Equal(t, `OK
hello world
OK
lang	go lang
name	ada
(error) typed: key "missing" not found
(error) unknown command "frobnicate" for "typedkv"
hash
`, out)

	// quit stopped the script before the delete
	out, err = run(t, "exists", "greeting", "--redis-url", url)
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
}

func TestShellFromStdin(t *testing.T) {
	url := "redis://" + startServer(t)

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader("set n 5 --as int\nget n --as int\n"))
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"shell", "--redis-url", url, "--env-file", filepath.Join(t.TempDir(), "absent.env")})
	require.NoError(t, root.Execute())
	assert.Equal(t, "OK\n5\n", out.String())
}

func TestShellMissingFile(t *testing.T) {
	_, err := run(t, "shell", "--file", filepath.Join(t.TempDir(), "none.txt"))
	assert.ErrorContains(t, err, "failed to open command file")
}

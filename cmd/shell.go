package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"typedkv/internal/cli"
	"typedkv/internal/logger"
	redisbackend "typedkv/pkg/backend/redis"
	"typedkv/pkg/typed"

	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  get <key> [--as kind]            Read a key as a typed value
  set <key> <value>... [--as kind] [--ttl d]
                                   Write a typed value
  del <key>                        Delete a key
  type <key>                       Show the native structure of a key
  exists <key>                     Report whether a key exists
  expire <key> <ttl>               Expire a key after a duration
  ttl <key>                        Show the remaining time to live

Shell:
  help                             Show this help
  history                          List previous commands
  clear                            Clear the screen
  quit, exit                       Leave the shell

Quote values containing spaces: set greeting "hello world"
`

func newShellCmd(a *app) *cobra.Command {
	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive typed command shell",
		Long: `Interactive shell over one store connection, similar to redis-cli.

Every line is one of the get/set/del/type/exists/expire/ttl commands. On a
terminal the shell offers line editing and history; otherwise commands are
read line by line from stdin or --file.`,
		Example: `  typedkv shell
  typedkv shell --redis-url redis://10.0.0.5:6379/2
  typedkv shell --file commands.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShell(cmd)
		},
	}
	addClientFlags(shellCmd)
	shellCmd.Flags().String("file", "", "Execute commands from file")
	return shellCmd
}

func (a *app) runShell(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()

	in := cmd.InOrStdin()
	if path := getStringFlag(cmd, "file", ""); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open command file: %w", err)
		}
		defer f.Close()
		in = f
	}
	out := cmd.OutOrStdout()

	dialCtx, cancel := context.WithTimeout(ctx, a.cfg.Client.Timeout)
	client, err := redisbackend.New(dialCtx, a.cfg.Client.RedisURL)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	shared := &app{
		cfg: a.cfg,
		acc: typed.New(client, typed.WithLogger(logger.Get())),
	}
	tty := !getBoolFlag(cmd, "raw") && isTerminal(in) && isTerminal(out)

	shell := &cli.Shell{
		Prompt:  "typedkv> ",
		Banner:  fmt.Sprintf("Connected to %s\nType 'help' for commands, 'quit' to exit", a.cfg.Client.RedisURL),
		Help:    shellHelp,
		History: cli.NewHistory(100),
		Exec: func(ctx context.Context, out io.Writer, args []string) error {
			verbs := shared.verbsCmd(tty)
			verbs.SetArgs(args)
			verbs.SetOut(out)
			verbs.SetErr(out)
			return verbs.ExecuteContext(ctx)
		},
	}
	return shell.Run(ctx, in, out)
}

// verbsCmd is the command tree a shell line runs against
func (a *app) verbsCmd(tty bool) *cobra.Command {
	verbs := &cobra.Command{
		Use:           "typedkv",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	if tty {
		verbs.Annotations = map[string]string{ttyAnnotation: "true"}
	}
	verbs.AddCommand(a.clientCmds()...)
	return verbs
}

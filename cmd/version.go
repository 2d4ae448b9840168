package cmd

import (
	"fmt"
	"runtime"

	"typedkv/internal/stats"

	"github.com/spf13/cobra"
)

var str = `
Version: %s
Commit: %s
Build date: %s
GOOS: %s-%s`

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(),
				str+"\n",
				stats.Version,
				stats.Commit,
				stats.BuildDate,
				runtime.GOOS,
				runtime.GOARCH,
			)
		},
	}
}

package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"typedkv/pkg/typed"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// printer renders replies like redis-cli: annotated on a terminal, one
// bare value per line otherwise.
type printer struct {
	w   io.Writer
	raw bool
}

// ttyAnnotation marks a command tree whose output reaches a terminal
// through a writer that is not an *os.File
const ttyAnnotation = "tty"

func newPrinter(cmd *cobra.Command) printer {
	out := cmd.OutOrStdout()
	tty := isTerminal(out) || cmd.Root().Annotations[ttyAnnotation] == "true"
	return printer{w: out, raw: getBoolFlag(cmd, "raw") || !tty}
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p printer) ok() {
	fmt.Fprintln(p.w, "OK")
}

func (p printer) str(s string) {
	if p.raw {
		fmt.Fprintln(p.w, s)
		return
	}
	fmt.Fprintln(p.w, strconv.Quote(s))
}

func (p printer) integer(n int64) {
	if p.raw {
		fmt.Fprintln(p.w, n)
		return
	}
	fmt.Fprintf(p.w, "(integer) %d\n", n)
}

func (p printer) float(f float64) {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if p.raw {
		fmt.Fprintln(p.w, s)
		return
	}
	fmt.Fprintf(p.w, "(float) %s\n", s)
}

func (p printer) boolean(b bool) {
	if p.raw {
		fmt.Fprintln(p.w, b)
		return
	}
	fmt.Fprintf(p.w, "(boolean) %t\n", b)
}

func (p printer) list(values []string) {
	if len(values) == 0 {
		if !p.raw {
			fmt.Fprintln(p.w, "(empty array)")
		}
		return
	}
	for i, v := range values {
		if p.raw {
			fmt.Fprintln(p.w, v)
		} else {
			fmt.Fprintf(p.w, "%d) %s\n", i+1, strconv.Quote(v))
		}
	}
}

// hash prints fields in sorted order
func (p printer) hash(m map[string]string) {
	p.entries(typed.Hash(m).Entries())
}

func (p printer) entries(entries []typed.Entry) {
	if len(entries) == 0 {
		if !p.raw {
			fmt.Fprintln(p.w, "(empty hash)")
		}
		return
	}
	for i, e := range entries {
		if p.raw {
			fmt.Fprintf(p.w, "%s\t%s\n", e.Key, e.Value)
		} else {
			fmt.Fprintf(p.w, "%d) %s => %s\n", i+1, strconv.Quote(e.Key), strconv.Quote(e.Value))
		}
	}
}

func (p printer) value(v typed.Value) {
	switch v := v.(type) {
	case typed.String:
		p.str(string(v))
	case typed.Collection:
		if v.IsList() {
			p.list(v.Values())
		} else {
			p.entries(v.Entries())
		}
	default:
		fmt.Fprintln(p.w, v)
	}
}

func (p printer) ttl(d time.Duration) {
	switch {
	case d < 0 && p.raw:
		fmt.Fprintln(p.w, -1)
	case d < 0:
		fmt.Fprintln(p.w, "(no expiry)")
	case p.raw:
		fmt.Fprintln(p.w, d.Milliseconds())
	default:
		fmt.Fprintln(p.w, d.Round(time.Millisecond))
	}
}
